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

func inputPriority(op *lir.Operand) RegisterPriority {
    if op.Flags.Has(lir.FlagStack) {
        return PriorityShould
    } else {
        return PriorityMust
    }
}

func outputPriority(ins lir.Instr, op *lir.Operand) RegisterPriority {
    if _, ok := ins.(*lir.Label); ok {
        return PriorityNone
    } else if mv, ok := ins.(*lir.Move); ok && mv.Input.V.IsConstant() {
        return PriorityMust
    } else if op.Flags.Has(lir.FlagStack) {
        return PriorityShould
    } else {
        return PriorityMust
    }
}

// buildIntervals computes the intervals of every variable and register used
// in the trace by walking the blocks and instructions backwards.
func (self *TraceAllocator) buildIntervals() {
    for i := len(self.blocks) - 1; i >= 0; i-- {
        bb := self.blocks[i]
        from := self.firstId[i]
        last := self.lastId[i]

        /* everything live at the end of the block is used there */
        prio := PriorityNone
        if bb.LoopEnd {
            prio = PriorityLiveAtLoopEnd
        }

        /* extend the live-outs over the whole block */
        for _, v := range self.live.Out[bb.Id] {
            it := self.getOrCreateInterval(lir.Var(v, self.prog.Vars[v]))
            it.addRange(from, last + 1)
            it.addUsePos(last, prio, true)
        }

        /* scan the instructions backwards */
        for j := len(bb.Ins) - 1; j >= 0; j-- {
            self.buildInstr(bb.Ins[j], from)
        }

        /* the first block defines whatever is live into the trace */
        if i == 0 {
            self.defineTraceInputs(bb)
        } else {
            self.addPhiHints(self.blocks[i - 1], bb)
        }
    }

    /* spill states and materialization */
    self.finishIntervals()

    /* intervals flowing in from allocated traces */
    if self.opts.UseInterTraceHints() {
        self.addInterTraceHints(self.blocks[0])
    }

    /* values that already sit in memory and are never used in a register */
    for _, it := range self.intervals {
        if it != nil && it.SpillState() == StartInMemory && len(it.uses) == 0 && it.hint == nil {
            self.assignSpillSlot(it)
        }
    }

    /* every fixed interval starts before the first instruction */
    for _, fi := range self.fixed {
        if fi != nil {
            fi.addRange(-1, 0)
            fi.finish()
        }
    }
}

func (self *TraceAllocator) buildInstr(ins lir.Instr, from int) {
    id := ins.Id()

    /* calls destroy every caller-saved register */
    if lir.DestroysCallerSaved(ins) {
        for _, r := range self.cfg.CallerSaved() {
            self.getOrCreateFixed(r.Value()).addRange(id, id + 1)
        }
    }

    /* outputs */
    for _, op := range ins.Operands(lir.Def) {
        self.addDef(ins, op, id)
    }

    /* temporaries */
    for _, op := range ins.Operands(lir.Temp) {
        self.addTemp(op, id)
    }

    /* inputs that must survive the instruction */
    for _, op := range ins.Operands(lir.Alive) {
        self.addUse(ins, op, from, id + 1, inputPriority(op))
    }

    /* ordinary inputs */
    for _, op := range ins.Operands(lir.Use) {
        self.addUse(ins, op, from, id, inputPriority(op))
    }

    /* states only keep the values alive, across the instruction as well */
    for _, op := range ins.Operands(lir.State) {
        self.addUse(ins, op, from, id + 1, PriorityNone)
    }
}

func (self *TraceAllocator) addDef(ins lir.Instr, op *lir.Operand, id int) {
    v := op.V
    _, label := ins.(*lir.Label)

    /* physical registers */
    if v.IsRegister() {
        fi := self.getOrCreateFixed(v)
        if fi.From() <= id {
            fi.setFrom(id)
        } else {
            fi.addRange(id, id + 1)
        }
        return
    }

    /* only variables are allocated */
    if !v.IsVariable() {
        return
    }

    /* dead definitions still occupy a location for one instruction */
    it := self.getOrCreateInterval(v)
    if it.isEmpty() {
        it.addRange(id, id + 1)
    } else {
        it.setFrom(id)
    }

    /* labels do not need the value in a register */
    if !label {
        it.addUsePos(id, outputPriority(ins, op), op.Flags.Has(lir.FlagConst))
    }

    /* constant loads can be repeated instead of spilled */
    if mv, ok := ins.(*lir.Move); ok && mv.Input.V.IsConstant() {
        it.addMaterializationValue(mv.Input.V)
    } else {
        it.addMaterializationValue(lir.None)
    }

    /* register hints */
    if op.Flags.Has(lir.FlagHint) {
        if hi, ok := ins.(lir.HintInstr); ok {
            if src := hi.HintFor(op); src != nil && src.V.IsAllocatable() {
                it.setLocationHint(self.intervalHint(src.V))
            }
        }
    }

    /* remember where the value is defined */
    self.changeSpillDefinitionPos(it, id, label)
}

func (self *TraceAllocator) addTemp(op *lir.Operand, id int) {
    if v := op.V; v.IsRegister() {
        self.getOrCreateFixed(v).addRange(id, id + 1)
    } else if v.IsVariable() {
        it := self.getOrCreateInterval(v)
        it.addRange(id, id + 1)
        it.addUsePos(id, PriorityMust, false)
        it.addMaterializationValue(lir.None)
    }
}

func (self *TraceAllocator) addUse(ins lir.Instr, op *lir.Operand, from int, to int, prio RegisterPriority) {
    v := op.V

    /* physical registers */
    if v.IsRegister() {
        self.getOrCreateFixed(v).addRange(from, to)
        return
    }

    /* only variables are allocated */
    if !v.IsVariable() {
        return
    }

    /* the range covers the whole block up to the use */
    it := self.getOrCreateInterval(v)
    it.addRange(from, to)
    it.addUsePos(to &^ 1, prio, op.Flags.Has(lir.FlagConst))

    /* values moved into a register would like to be there already */
    if mv, ok := ins.(*lir.Move); ok && op == &mv.Input && mv.Result.V.IsRegister() && it.hint == nil {
        it.setLocationHint(self.getOrCreateFixed(mv.Result.V))
    }
}

func (self *TraceAllocator) changeSpillDefinitionPos(it *TraceInterval, pos int, label bool) {
    switch it.SpillState() {
        case NoDefinitionFound: {
            it.setSpillDefinitionPos(pos)
            if !label {
                it.setSpillState(NoSpillStore)
            }
        }

        /* a second definition, one of them is not followed by a store */
        case NoSpillStore: {
            if pos < it.spillDefinitionPos() - 2 {
                it.setSpillState(NoOptimization)
            }
        }

        /* nothing to do */
        case NoOptimization: {
            break
        }

        /* spill states are only changed by the walker */
        default: {
            panic(fmt.Sprintf("lsra: invalid spill state %s for %s", it.SpillState(), it.Operand))
        }
    }
}

// defineTraceInputs makes the label of the first block define every value
// that flows into the trace.
func (self *TraceAllocator) defineTraceInputs(bb *lir.Block) {
    for _, v := range self.live.In[bb.Id] {
        it := self.getOrCreateInterval(lir.Var(v, self.prog.Vars[v]))
        if it.isEmpty() {
            it.addRange(0, 1)
        } else {
            it.setFrom(0)
        }

        /* no constant to rebuild it from */
        it.addMaterializationValue(lir.None)
        self.changeSpillDefinitionPos(it, 0, true)
    }
}

// addPhiHints hints the phi outputs of bb to the values passed by the jump
// at the end of its trace predecessor.
func (self *TraceAllocator) addPhiHints(pred *lir.Block, bb *lir.Block) {
    jmp, ok := pred.Term().(*lir.Jump)
    if !ok {
        return
    }

    /* phi outputs and inputs are paired by position */
    for k, op := range bb.Label().Incoming {
        if k < len(jmp.Outgoing) && op.V.IsVariable() {
            if src := jmp.Outgoing[k].V; src.IsAllocatable() {
                self.getOrCreateInterval(op.V).setLocationHint(self.intervalHint(src))
            }
        }
    }
}

func (self *TraceAllocator) finishIntervals() {
    for _, it := range self.intervals {
        if it == nil {
            continue
        }

        /* the only definition was a phi or a trace input */
        if it.spillState == NoDefinitionFound && it.spillDefPos != -1 {
            it.spillState = NoSpillStore
        }

        /* decide about rematerialization */
        if it.canMaterialize() {
            self.checkMaterialization(it)
        }
    }
}

func (self *TraceAllocator) checkMaterialization(it *TraceInterval) {
    if !self.opts.NeverSpillConstants {
        for _, u := range it.uses {
            if u.prio == PriorityShould {
                it.addMaterializationValue(lir.None)
                return
            }
        }
        return
    }

    /* inputs that cannot take the constant need a register */
    for i := range it.uses {
        if u := &it.uses[i]; u.prio == PriorityShould && !u.konst {
            u.prio = PriorityMust
        }
    }
}

// addInterTraceHints transfers the locations of already allocated
// predecessor traces to the intervals flowing into this trace.
func (self *TraceAllocator) addInterTraceHints(head *lir.Block) {
    for _, pred := range head.Pred {
        if self.traces.TraceOf(pred).Id >= self.trace.Id {
            continue
        }

        /* live-in values */
        for _, v := range self.live.In[head.Id] {
            loc := self.live.OutLocation(pred, v)
            it := self.intervals[v]

            /* register hint, the first predecessor wins */
            if loc.IsRegister() {
                if it.hint == nil {
                    it.setLocationHint(self.getOrCreateFixed(loc))
                }
                continue
            }

            /* share the spill slot when this is the only way in */
            if loc.IsStack() && len(head.Pred) == 1 && self.opts.UseSharedSpillInformation() {
                it.setSpillSlot(loc)
                it.setSpillState(StartInMemory)
            }
        }

        /* phi outputs, if the predecessor has been rewritten already */
        if jmp, ok := pred.Term().(*lir.Jump); ok {
            for k, op := range head.Label().Incoming {
                if k < len(jmp.Outgoing) && op.V.IsVariable() && jmp.Outgoing[k].V.IsRegister() {
                    if it := self.getOrCreateInterval(op.V); it.hint == nil {
                        it.setLocationHint(self.getOrCreateFixed(jmp.Outgoing[k].V))
                    }
                }
            }
        }
    }
}
