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

package opts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptions_ParseOrDefault(t *testing.T) {
	require.Equal(t, 3, parseOrDefault("TRACERA_TEST_UNSET_VALUE", 3, 1))
	require.GreaterOrEqual(t, Parallelism, 1)
}

func TestOptions_Sequential(t *testing.T) {
	o := GetDefaultOptions()
	o.InterTraceHints = true
	o.ShareSpillInformation = true
	o.Parallelism = 1
	require.True(t, o.UseInterTraceHints())
	require.True(t, o.UseSharedSpillInformation())
	o.Parallelism = 4
	require.False(t, o.UseInterTraceHints())
	require.False(t, o.UseSharedSpillInformation())
}
