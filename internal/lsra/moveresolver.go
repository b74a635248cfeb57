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
    `github.com/cloudwego/tracera/lir`
)

type _Mapping struct {
    from  *TraceInterval
    konst lir.Value
    to    *TraceInterval
    kind  lir.MoveKind
}

// _MoveResolver orders a set of parallel moves between intervals so that no
// value is overwritten before it is read. Cycles are broken through a stack
// slot.
type _MoveResolver struct {
    a        *TraceAllocator
    buf      lir.InsertionBuffer
    list     *[]lir.Instr
    index    int
    mappings []_Mapping
    blocked  map[lir.Value]int
    busy     []lir.Value
    scratch  []lir.Value
}

func newMoveResolver(a *TraceAllocator) *_MoveResolver {
    return &_MoveResolver {
        a       : a,
        index   : -1,
        blocked : make(map[lir.Value]int),
    }
}

func mightBeBlocked(loc lir.Value) bool {
    return loc.IsRegister() || loc.IsStack()
}

func (self *_MoveResolver) hasMappings() bool {
    return len(self.mappings) != 0
}

/** Insert Position **/

func (self *_MoveResolver) setInsertPosition(list *[]lir.Instr, index int) {
    if self.list != nil {
        panic("lsra: insert position already set")
    }
    self.buf.Init(list)
    self.list = list
    self.index = index
}

func (self *_MoveResolver) moveInsertPosition(list *[]lir.Instr, index int) {
    if self.list != nil && (self.list != list || self.index != index) {
        self.resolveMappings()
    }

    /* the buffer is bound to one list */
    if self.list != list {
        self.appendInsertionBuffer()
        self.buf.Init(list)
        self.list = list
    }

    /* update the index */
    self.index = index
}

func (self *_MoveResolver) appendInsertionBuffer() {
    if self.list != nil {
        self.buf.Finish()
        self.list = nil
        self.index = -1
    }
}

func (self *_MoveResolver) resolveAndAppendMoves() {
    if self.hasMappings() {
        self.resolveMappings()
    }
    self.appendInsertionBuffer()
}

/** Mappings **/

func (self *_MoveResolver) addMapping(from *TraceInterval, to *TraceInterval, kind lir.MoveKind) {
    if to.location.IsIllegal() && to.canMaterialize() {
        return
    }

    /* rebuild the constant instead of loading it */
    if from.location.IsIllegal() && from.canMaterialize() {
        self.addConstMapping(from.MaterializedValue(), to, kind)
    } else {
        self.mappings = append(self.mappings, _Mapping { from: from, to: to, kind: kind })
    }
}

func (self *_MoveResolver) addConstMapping(konst lir.Value, to *TraceInterval, kind lir.MoveKind) {
    if !to.location.IsIllegal() || !to.canMaterialize() {
        self.mappings = append(self.mappings, _Mapping { konst: konst, to: to, kind: kind })
    }
}

/** Blocking **/

func (self *_MoveResolver) blockRegisters(it *TraceInterval) {
    if loc := it.location; mightBeBlocked(loc) {
        self.blocked[loc.Key()]++
    }
}

func (self *_MoveResolver) unblockRegisters(it *TraceInterval) {
    if loc := it.location; mightBeBlocked(loc) {
        if n := self.blocked[loc.Key()]; n <= 1 {
            delete(self.blocked, loc.Key())
        } else {
            self.blocked[loc.Key()] = n - 1
        }
    }
}

func (self *_MoveResolver) safeToProcessMove(from *TraceInterval, to *TraceInterval) bool {
    loc := to.location
    if !mightBeBlocked(loc) {
        return true
    }

    /* the target may only be read by the move itself */
    switch n := self.blocked[loc.Key()]; n {
        case 0  : return true
        case 1  : return from != nil && from.location.Key() == loc.Key()
        default : return false
    }
}

func (self *_MoveResolver) isBusy(slot lir.Value) bool {
    for _, v := range self.busy {
        if v.Key() == slot.Key() {
            return true
        }
    }
    return false
}

/** Resolution **/

func (self *_MoveResolver) insertMove(m _Mapping) {
    var mv *lir.Move
    if m.from != nil {
        mv = lir.NewMove(m.kind, m.to.Operand, m.from.Operand)
    } else {
        mv = lir.NewMove(m.kind, m.to.Operand, m.konst)
    }

    /* count by origin */
    if self.buf.Append(self.index, mv); m.kind == lir.MoveSpill {
        self.a.stats.SpillMovesInserted++
    } else {
        self.a.stats.ResolutionMoves++
    }
}

func (self *_MoveResolver) resolveMappings() {
    if !self.hasMappings() {
        return
    }

    /* every location read by a move is blocked */
    for i := len(self.mappings) - 1; i >= 0; i-- {
        if m := self.mappings[i]; m.from != nil {
            self.blockRegisters(m.from)
        }
    }

    /* emit moves whose targets are not read anymore */
    self.busy = self.busy[:0]
    for len(self.mappings) != 0 {
        done := false
        spill := -1

        /* scan backwards, removing processed mappings */
        for i := len(self.mappings) - 1; i >= 0; i-- {
            m := self.mappings[i]

            /* the target is free */
            if self.safeToProcessMove(m.from, m.to) {
                self.insertMove(m)
                if m.from != nil {
                    self.unblockRegisters(m.from)
                }

                /* slots written here must not be used to break cycles */
                if m.to.location.IsStack() {
                    self.busy = append(self.busy, m.to.location)
                }

                /* remove the mapping */
                done = true
                self.mappings = append(self.mappings[:i], self.mappings[i + 1:]...)
                continue
            }

            /* a value in a register can be parked in its spill slot */
            if m.from != nil && m.from.location.IsRegister() && !self.isBusy(m.from.SpillSlot()) {
                spill = i
            }
        }

        /* nothing could be emitted, there is a cycle */
        if !done {
            self.breakCycle(spill)
        }
    }

    /* slots of parked values are free again */
    for _, slot := range self.scratch {
        self.a.frame.ReleaseScratchSlot(slot)
    }

    /* reset the state */
    self.scratch = self.scratch[:0]
    for k := range self.blocked {
        delete(self.blocked, k)
    }
}

func (self *_MoveResolver) breakCycle(spill int) {
    if spill >= 0 {
        from := self.mappings[spill].from
        slot := from.SpillSlot()

        /* the slot of the value is used if it has one */
        if slot.IsNone() {
            slot = self.a.frame.AllocateSpillSlot(from.Kind())
            from.setSpillSlot(slot)
            self.a.stats.CycleBreakingSlots++
        }

        /* park the value */
        self.spillInterval(spill, from, slot)
        return
    }

    /* no register in the cycle, park the first value in a fresh slot */
    for i, m := range self.mappings {
        if m.from != nil {
            slot := self.a.frame.AcquireScratchSlot(m.from.Kind())
            self.scratch = append(self.scratch, slot)
            self.a.stats.CycleBreakingSlots++
            self.spillInterval(i, m.from, slot)
            return
        }
    }
    panic("lsra: cannot break a cycle without a source interval")
}

// spillInterval copies the source of a mapping to a temporary interval living
// in slot and makes the mapping read from there.
func (self *_MoveResolver) spillInterval(i int, from *TraceInterval, slot lir.Value) {
    tmp := self.a.createDerivedInterval(from)
    tmp.addRange(1, 2)
    tmp.assignLocation(slot)
    tmp.origin = from
    self.blockRegisters(tmp)

    /* copies of copies carry the original value */
    if from.origin != nil {
        tmp.origin = from.origin
    }

    /* store the value and read the copy instead */
    self.insertMove(_Mapping { from: from, to: tmp, kind: lir.MoveSpill })
    self.mappings[i].from = tmp
    self.unblockRegisters(from)
}
