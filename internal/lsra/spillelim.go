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
    `sort`

    `github.com/cloudwego/tracera/lir`
)

func (self *TraceAllocator) spillStoreIntervals() []*TraceInterval {
    var ret []*TraceInterval
    for _, it := range self.intervals {
        if it != nil && it.IsSplitParent() && !it.isEmpty() {
            if st := it.spillState; st == SpillStore || st == StartInMemory {
                ret = append(ret, it)
            }
        }
    }

    /* ordered by the position of the store */
    sort.SliceStable(ret, func(i int, j int) bool {
        return ret[i].spillDefPos < ret[j].spillDefPos
    })
    return ret
}

// canEliminateSpillMove reports whether an inserted move writes a stack slot
// that is known to hold the value already.
func (self *TraceAllocator) canEliminateSpillMove(mv *lir.Move, lastOpId int) bool {
    if !mv.Result.V.IsVariable() || mv.Kind == lir.MovePhi {
        return false
    }

    /* a store placed after lastOpId comes before this move */
    it := self.intervalFor(mv.Result.V)
    return !it.location.IsRegister() && it.inMemoryAt(lastOpId + 1)
}

// eliminateSpillMoves removes the stores of intervals that are spilled only
// once per definition, and stores the value right after the definition
// instead.
func (self *TraceAllocator) eliminateSpillMoves() {
    var buf lir.InsertionBuffer
    list := self.spillStoreIntervals()

    /* blocks are in position order */
    for _, bb := range self.blocks {
        last := -1
        buf.Init(&bb.Ins)

        /* scan the instructions */
        for j, ins := range bb.Ins {
            if ins.Id() == -1 {
                if mv, ok := ins.(*lir.Move); ok && self.canEliminateSpillMove(mv, last) {
                    bb.Ins[j] = nil
                    self.stats.SpillMovesEliminated++
                }
                continue
            }

            /* insert the stores of values defined here */
            for last = ins.Id(); len(list) != 0 && list[0].spillDefPos == last; list = list[1:] {
                it := list[0]
                if it.canMaterialize() || it.spillState == StartInMemory {
                    continue
                }

                /* the location right after the definition */
                slot := it.spillSlot
                loc := self.splitChildAtOpId(it, last, lir.Def).location

                /* no store if it is defined in memory */
                if loc.Key() != slot.Key() {
                    buf.Append(j + 1, lir.NewMove(lir.MoveSpill, slot, loc))
                    self.stats.SpillMovesInserted++
                }
            }
        }

        /* apply the insertions */
        buf.Finish()
    }

    /* every store must have found its place */
    if len(list) != 0 {
        panic(fmt.Sprintf("lsra: missed the spill position %d of %s", list[0].spillDefPos, list[0].Operand))
    }
}
