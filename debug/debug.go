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
	"github.com/cloudwego/tracera"
)

// A Stats records statistics about one register allocation.
type Stats struct {
	Frame     FrameStats
	Moves     MoveStats
	Traces    int
	Intervals int
	Splits    int
}

// A FrameStats records statistics about the stack frame.
type FrameStats struct {
	Size               int
	SpillSlots         int
	CachedSpillSlots   int
	CycleBreakingSlots int
}

// A MoveStats records statistics about the inserted moves.
type MoveStats struct {
	Resolution       int
	Global           int
	SpillInserted    int
	SpillEliminated  int
	Materializations int
}

// GetStats returns statistics of an allocation.
func GetStats(res *tracera.Result) Stats {
	st := res.Stats
	return Stats{
		Traces:    st.Traces,
		Intervals: st.Intervals,
		Splits:    st.Splits,
		Frame: FrameStats{
			Size:               res.FrameSize,
			SpillSlots:         st.SpillSlots,
			CachedSpillSlots:   st.CachedSpillSlots,
			CycleBreakingSlots: st.CycleBreakingSlots,
		},
		Moves: MoveStats{
			Resolution:       st.ResolutionMoves,
			Global:           st.GlobalMoves,
			SpillInserted:    st.SpillMovesInserted,
			SpillEliminated:  st.SpillMovesEliminated,
			Materializations: st.Materializations,
		},
	}
}

// DumpProgram returns the allocated program, one instruction per line.
func DumpProgram(res *tracera.Result) string {
	return res.Program.String()
}
