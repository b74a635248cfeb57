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
    `github.com/oleiade/lane`
)

// _ValueMap maps every location to the value it holds. Values are
// identified by the split parent of the interval they belong to.
type _ValueMap map[lir.Value]*TraceInterval

func (self _ValueMap) clone() _ValueMap {
    ret := make(_ValueMap, len(self))
    for k, v := range self {
        ret[k] = v
    }
    return ret
}

// intersect keeps only the locations both maps agree on.
func (self _ValueMap) intersect(other _ValueMap) bool {
    changed := false
    for k, v := range self {
        if other[k] != v {
            delete(self, k)
            changed = true
        }
    }
    return changed
}

func (self _ValueMap) set(loc lir.Value, v *TraceInterval) {
    if v == nil {
        delete(self, loc.Key())
    } else {
        self[loc.Key()] = v
    }
}

func (self _ValueMap) get(loc lir.Value) *TraceInterval {
    return self[loc.Key()]
}

type _Verifier struct {
    a  *TraceAllocator
    bi int
}

func (self *_Verifier) errorf(ins lir.Instr, format string, args ...interface{}) error {
    ret := &VerificationError {
        Trace  : self.a.trace.Id,
        Block  : self.a.blocks[self.bi].Id,
        Reason : fmt.Sprintf(format, args...),
    }
    if ins != nil {
        ret.Instr = ins.String()
    }
    return ret
}

// verifyRegisters replays the trace and checks that every input is found in
// the location the allocator assigned to it.
func (self *TraceAllocator) verifyRegisters() error {
    n := len(self.blocks)
    in := make([]_ValueMap, n)
    queued := make([]bool, n)
    worklist := lane.NewQueue()

    /* values flowing into the trace */
    in[0] = self.traceInputs()
    queued[0] = true
    worklist.Enqueue(0)

    /* forward data-flow over the trace */
    for !worklist.Empty() {
        i := worklist.Dequeue().(int)
        st := in[i].clone()
        queued[i] = false

        /* replay the block */
        vf := &_Verifier { a: self, bi: i }
        if err := vf.verifyBlock(st); err != nil {
            return err
        }

        /* propagate to the successors within the trace */
        for _, s := range self.blocks[i].Succ {
            j := self.traceSuccessor(i, s)
            if j < 0 {
                continue
            }

            /* first visit or fewer known values */
            if in[j] == nil {
                in[j] = st.clone()
            } else if !in[j].intersect(st) {
                continue
            }

            /* visit again */
            if !queued[j] {
                queued[j] = true
                worklist.Enqueue(j)
            }
        }
    }
    return nil
}

func (self *TraceAllocator) traceInputs() _ValueMap {
    ret := make(_ValueMap)
    head := self.blocks[0]

    /* live-ins are where the label defines them */
    for _, v := range self.live.In[head.Id] {
        it := self.intervals[v]
        if c := it.getSplitChildAtOpId(0, lir.Def); c != nil && c.location.IsLocation() {
            ret.set(c.location, c.identity())
        }

        /* shared spill slots hold the value as well */
        if it.spillState == StartInMemory {
            ret.set(it.spillSlot, it)
        }
    }
    return ret
}

func (self *_Verifier) verifyBlock(st _ValueMap) error {
    bb := self.a.blocks[self.bi]
    for _, ins := range bb.Ins {
        if ins == nil || self.a.isMaterializedMove(ins) {
            continue
        }

        /* moves inserted by the allocator */
        if ins.Id() == -1 {
            if err := self.verifyMove(ins.(*lir.Move), st); err != nil {
                return err
            }
            continue
        }

        /* ordinary instructions */
        if err := self.verifyInstr(ins, st); err != nil {
            return err
        }
    }
    return nil
}

func (self *_Verifier) verifyInstr(ins lir.Instr, st _ValueMap) error {
    id := ins.Id()
    internal := false

    /* phi inputs of edges within the trace are moved before the jump */
    if jmp, ok := ins.(*lir.Jump); ok {
        internal = self.a.traceSuccessor(self.bi, jmp.To) >= 0
    }

    /* inputs */
    for _, op := range ins.Operands(lir.Use) {
        if err := self.checkInput(ins, op, id, lir.Use, st); err != nil {
            return err
        }
    }

    /* temporaries are clobbered */
    for _, op := range ins.Operands(lir.Temp) {
        if err := self.checkOutput(ins, op, id, lir.Temp, st); err != nil {
            return err
        }
    }

    /* calls destroy the caller-saved registers */
    if lir.DestroysCallerSaved(ins) {
        for _, r := range self.a.cfg.CallerSaved() {
            st.set(r.Value(), nil)
        }
    }

    /* inputs that survive the instruction */
    if !internal {
        for _, op := range ins.Operands(lir.Alive) {
            if err := self.checkInput(ins, op, id, lir.Alive, st); err != nil {
                return err
            }
        }
    }

    /* states must still be there after the instruction */
    for _, op := range ins.Operands(lir.State) {
        if err := self.checkInput(ins, op, id, lir.State, st); err != nil {
            return err
        }
    }

    /* outputs are written last */
    for _, op := range ins.Operands(lir.Def) {
        if err := self.checkOutput(ins, op, id, lir.Def, st); err != nil {
            return err
        }
    }
    return nil
}

func (self *_Verifier) childAt(ins lir.Instr, v lir.Value, id int, mode lir.OperandMode) (*TraceInterval, error) {
    if c := self.a.findChild(self.bi, ins, v, mode); c == nil {
        return nil, self.errorf(ins, "%s is not alive at %d", v, id)
    } else if c.location.IsNone() {
        return nil, self.errorf(ins, "%s has no location at %d", v, id)
    } else {
        return c, nil
    }
}

func (self *_Verifier) checkInput(ins lir.Instr, op *lir.Operand, id int, mode lir.OperandMode, st _ValueMap) error {
    if !op.V.IsVariable() {
        return nil
    }

    /* find the part alive here */
    c, err := self.childAt(ins, op.V, id, mode)
    if err != nil {
        return err
    }

    /* constants are rebuilt at the use */
    if c.location.IsIllegal() {
        if !c.canMaterialize() || !op.Flags.Has(lir.FlagConst) {
            return self.errorf(ins, "%s is materialized but the operand does not take constants", op.V)
        }
        return nil
    }

    /* the operand must accept the location */
    if c.location.IsStack() && !op.Flags.Has(lir.FlagStack) {
        return self.errorf(ins, "%s requires a register but lives in %s", op.V, c.location)
    }

    /* the value must be there */
    if v := st.get(c.location); v != c.identity() {
        return self.errorf(ins, "%s expected in %s, found %v", op.V, c.location, v)
    }
    return nil
}

func (self *_Verifier) checkOutput(ins lir.Instr, op *lir.Operand, id int, mode lir.OperandMode, st _ValueMap) error {
    if op.V.IsRegister() {
        st.set(op.V, nil)
        return nil
    }

    /* only variables carry values */
    if !op.V.IsVariable() {
        return nil
    }

    /* find the part defined here */
    c, err := self.childAt(ins, op.V, id, lir.Def)
    if err != nil {
        return err
    }

    /* the operand must accept the location */
    if c.location.IsStack() && !op.Flags.Has(lir.FlagStack) {
        return self.errorf(ins, "%s requires a register but lives in %s", op.V, c.location)
    }

    /* temporaries leave garbage behind */
    if mode == lir.Temp {
        st.set(c.location, nil)
    } else if c.location.IsLocation() {
        st.set(c.location, c.identity())
    }
    return nil
}

func (self *_Verifier) verifyMove(mv *lir.Move, st _ValueMap) error {
    var did *TraceInterval
    dloc := mv.Result.V
    src := mv.Input.V

    /* destinations are split children or stack slots */
    if dloc.IsVariable() {
        it := self.a.intervalFor(dloc)
        did = it.identity()
        dloc = it.location
    }

    /* constants are the value of the destination */
    if src.IsConstant() {
        st.set(dloc, did)
        return nil
    }

    /* copies between locations carry whatever is there */
    if !src.IsVariable() {
        st.set(dloc, st.get(src))
        return nil
    }

    /* the source must hold its value */
    it := self.a.intervalFor(src)
    val := st.get(it.location)
    if val != it.identity() {
        return self.errorf(mv, "%s expected in %s, found %v", src, it.location, val)
    }

    /* only phi moves change the value */
    if mv.Kind == lir.MovePhi {
        val = did
    } else if did != nil && val != did {
        return self.errorf(mv, "move from %s to %s mixes values", src, mv.Result.V)
    }

    /* update the destination */
    st.set(dloc, val)
    return nil
}

/** Interval Checks **/

// verifyIntervals checks the intervals of the trace for consistency: valid
// ranges and no two intervals sharing a location at the same time.
func (self *TraceAllocator) verifyIntervals() error {
    var list []*TraceInterval
    vf := &_Verifier { a: self }

    /* individual intervals */
    for i, it := range self.intervals {
        if it == nil || it.isEmpty() {
            continue
        }

        /* cycle breaking temporaries have a dummy range */
        if it.origin != nil && it.from == 1 && it.to == 2 {
            continue
        }

        /* basic properties */
        if it.Number() != i {
            return vf.errorf(nil, "interval %s is stored at index %d", it, i)
        } else if it.from >= it.to {
            return vf.errorf(nil, "interval %s has an invalid range", it)
        } else if it.location.IsNone() {
            return vf.errorf(nil, "interval %s has no location", it)
        }

        /* fixed uses of the same register */
        if loc := it.location; loc.IsRegister() {
            if fi := self.fixed[loc.Number()]; fi != nil && fi.intersectsAt(it) != -1 {
                return vf.errorf(nil, "interval %s intersects with the fixed interval %s", it, fi)
            }
        }

        /* materialized intervals need no location */
        if it.location.IsLocation() {
            list = append(list, it)
        }
    }

    /* sweep over the intervals ordered by start */
    sort.SliceStable(list, func(i int, j int) bool {
        return list[i].from < list[j].from
    })

    /* no two intervals in the same place at the same time */
    for i, it := range list {
        for _, other := range list[i + 1:] {
            if other.from >= it.to {
                break
            }
            if other.location.Key() == it.location.Key() {
                return vf.errorf(nil, "intervals %s and %s share a location", it, other)
            }
        }
    }
    return nil
}
