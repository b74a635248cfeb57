/*
 * Copyright 2022 ByteDance Inc.
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

package lsra

import (
    `fmt`
)

// Stats counts what the allocator did to a program.
type Stats struct {
    Traces               int
    Intervals            int
    Splits               int
    SpillSlots           int
    CachedSpillSlots     int
    CycleBreakingSlots   int
    ResolutionMoves      int
    GlobalMoves          int
    SpillMovesInserted   int
    SpillMovesEliminated int
    Materializations     int
}

func (self *Stats) add(other *Stats) {
    self.Traces               += other.Traces
    self.Intervals            += other.Intervals
    self.Splits               += other.Splits
    self.SpillSlots           += other.SpillSlots
    self.CachedSpillSlots     += other.CachedSpillSlots
    self.CycleBreakingSlots   += other.CycleBreakingSlots
    self.ResolutionMoves      += other.ResolutionMoves
    self.GlobalMoves          += other.GlobalMoves
    self.SpillMovesInserted   += other.SpillMovesInserted
    self.SpillMovesEliminated += other.SpillMovesEliminated
    self.Materializations     += other.Materializations
}

func (self Stats) String() string {
    return fmt.Sprintf(
        "traces=%d intervals=%d splits=%d slots=%d(+%d cached, +%d cycle) moves=%d/%d spill=%d(-%d) mat=%d",
        self.Traces,
        self.Intervals,
        self.Splits,
        self.SpillSlots,
        self.CachedSpillSlots,
        self.CycleBreakingSlots,
        self.ResolutionMoves,
        self.GlobalMoves,
        self.SpillMovesInserted,
        self.SpillMovesEliminated,
        self.Materializations,
    )
}
