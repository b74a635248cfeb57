/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package debug

import (
	"strings"
	"testing"

	"github.com/cloudwego/tracera"
	"github.com/cloudwego/tracera/arch"
	"github.com/cloudwego/tracera/lir"
	"github.com/stretchr/testify/require"
)

func TestDebug_GetStats(t *testing.T) {
	b := lir.NewBuilder()
	var vals []lir.Value
	for i := 0; i < 5; i++ {
		v := b.Var(lir.KindInt)
		b.Op("load", []lir.Value{v})
		vals = append(vals, v)
	}
	b.Op("use", nil, vals[0])
	b.Return(vals...)

	res, err := tracera.Allocate(b.Finish(), arch.Synthetic(5, 0))
	require.NoError(t, err)
	st := GetStats(res)
	require.Equal(t, 1, st.Traces)
	require.Equal(t, res.FrameSize, st.Frame.Size)
	require.Equal(t, res.Stats.Splits, st.Splits)
	require.Equal(t, res.Stats.ResolutionMoves, st.Moves.Resolution)
	require.NotZero(t, st.Intervals)

	/* no variable survives */
	out := DumpProgram(res)
	require.True(t, strings.Contains(out, "ret"))
	require.False(t, strings.Contains(out, "v0i"))
}
