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

    `github.com/cloudwego/tracera/lir`
)

// valueOf returns what replaces a variable operand that lives in it.
func valueOf(it *TraceInterval, label bool) lir.Value {
    if !it.location.IsIllegal() || !it.canMaterialize() {
        return it.location
    } else if label {
        return lir.Illegal
    } else {
        return it.MaterializedValue()
    }
}

// assignLocations rewrites every variable operand of the trace with the
// location of its interval, and records the locations at the block
// boundaries for the global move resolution. It can be run more than once.
func (self *TraceAllocator) assignLocations() {
    self.assignPhiInputs()

    /* rewrite the blocks */
    for i, bb := range self.blocks {
        ins := make([]lir.Instr, 0, len(bb.Ins))
        for _, v := range bb.Ins {
            if v != nil && !self.isMaterializedMove(v) {
                ins = append(ins, v)
            }
        }

        /* replace the operands */
        for _, v := range ins {
            self.assignInstr(i, v)
        }

        /* remove the moves that became no-ops */
        bb.Ins = ins[:0]
        for _, v := range ins {
            if mv, ok := v.(*lir.Move); !ok || !isIdentityMove(mv) {
                bb.Ins = append(bb.Ins, v)
            }
        }

        /* locations at the block boundaries */
        self.recordBoundaryLocations(i, bb)
    }
}

func isIdentityMove(mv *lir.Move) bool {
    return mv.Result.V.IsLocation() && mv.Input.V.IsLocation() && mv.Result.V.Key() == mv.Input.V.Key()
}

// isMaterializedMove reports whether ins is the definition of a constant
// that is rebuilt at its uses instead.
func (self *TraceAllocator) isMaterializedMove(ins lir.Instr) bool {
    if mv, ok := ins.(*lir.Move); !ok || !mv.Result.V.IsVariable() {
        return false
    } else {
        return self.isMaterialized(mv.Result.V, mv.Id(), lir.Def)
    }
}

// assignPhiInputs replaces the phi inputs of jumps within the trace with the
// locations of the phi outputs, the phi moves have copied them there.
func (self *TraceAllocator) assignPhiInputs() {
    for i, bb := range self.blocks {
        jmp, ok := bb.Term().(*lir.Jump)
        if !ok {
            continue
        }

        /* only edges resolved by this trace */
        j := self.traceSuccessor(i, jmp.To)
        if j < 0 {
            continue
        }

        /* phi outputs still refer to variables on the first run */
        for k, op := range jmp.To.Label().Incoming {
            if k < len(jmp.Outgoing) && op.V.IsVariable() {
                if c := self.intervalFor(op.V).getSplitChildAtOpId(self.firstId[j], lir.Def); c != nil {
                    jmp.Outgoing[k].V = valueOf(c, false)
                }
            }
        }
    }
}

func (self *TraceAllocator) assignInstr(bi int, ins lir.Instr) {
    _, label := ins.(*lir.Label)
    for _, mode := range lir.Modes {
        for _, op := range ins.Operands(mode) {
            if op.V.IsVariable() {
                op.V = valueOf(self.childFor(bi, ins, op.V, mode), label)
            }
        }
    }
}

// childFor returns the split child holding v when ins accesses it.
func (self *TraceAllocator) childFor(bi int, ins lir.Instr, v lir.Value, mode lir.OperandMode) *TraceInterval {
    if ret := self.findChild(bi, ins, v, mode); ret != nil {
        return ret
    } else {
        panic(fmt.Sprintf("lsra: %s is not alive at %d (%s)", v, ins.Id(), mode))
    }
}

func (self *TraceAllocator) findChild(bi int, ins lir.Instr, v lir.Value, mode lir.OperandMode) *TraceInterval {
    it := self.intervalFor(v)
    id := ins.Id()

    /* inserted moves name the split children directly */
    if id == -1 {
        return it
    }

    /* states of a jump are observed after the edge moves */
    if jmp, ok := ins.(*lir.Jump); ok && mode == lir.State {
        if j := self.traceSuccessor(bi, jmp.To); j >= 0 {
            if c := it.getSplitChildAtOpId(self.firstId[j], lir.Def); c != nil {
                return c
            }
        }
    }

    /* the part alive at the instruction */
    return it.getSplitChildAtOpId(id, mode)
}

func (self *TraceAllocator) recordBoundaryLocations(i int, bb *lir.Block) {
    first := self.firstId[i]
    last := self.lastId[i]

    /* locations on entry, and the slot expected to hold a copy */
    for k, v := range self.live.In[bb.Id] {
        it := self.intervals[v]
        c := self.splitChildAtOpId(it, first, lir.Def)
        self.live.InLoc[bb.Id][k] = valueOf(c, true)

        /* stores before this block were eliminated */
        if c.location.IsRegister() && it.inMemoryAt(first) {
            self.live.InShadow[bb.Id][k] = it.SpillSlot()
        } else {
            self.live.InShadow[bb.Id][k] = lir.None
        }
    }

    /* locations on exit, materialized values leave as constants */
    for k, v := range self.live.Out[bb.Id] {
        c := self.splitChildAtOpId(self.intervals[v], last, lir.Use)
        self.live.OutLoc[bb.Id][k] = valueOf(c, false)
    }
}
