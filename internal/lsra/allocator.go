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

    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/internal/frame`
    `github.com/cloudwego/tracera/internal/opts`
    `github.com/cloudwego/tracera/internal/trace`
    `github.com/cloudwego/tracera/lir`
    `tlog.app/go/tlog`
)

// TraceAllocator allocates registers for the blocks of one trace. It owns
// all the intervals of the trace, the only state it shares with other
// traces is the frame builder and the boundary locations of the liveness.
type TraceAllocator struct {
    trace  *trace.Trace
    blocks []*lir.Block
    prog   *lir.Program
    cfg    *arch.Config
    frame  *frame.Builder
    traces *trace.Result
    live   *trace.Liveness
    opts   *opts.Options
    stats  *Stats

    /* instruction numbering */
    opIns   []lir.Instr
    opBlock []int
    firstId []int
    lastId  []int

    /* intervals */
    intervals []*TraceInterval
    fixed     []*FixedInterval
    sorted    []*TraceInterval
    kills     bool
}

func newTraceAllocator(s *Session, t *trace.Trace) *TraceAllocator {
    return &TraceAllocator {
        trace     : t,
        blocks    : t.Blocks,
        prog      : s.Prog,
        cfg       : s.Config,
        frame     : s.Frame,
        traces    : s.Traces,
        live      : s.Live,
        opts      : &s.Opts,
        stats     : new(Stats),
        intervals : make([]*TraceInterval, s.Prog.NumVars()),
        fixed     : make([]*FixedInterval, s.Config.NumRegisters()),
        kills     : callKillsRegisters(s.Config),
    }
}

func callKillsRegisters(cfg *arch.Config) bool {
    for _, r := range cfg.Registers {
        if r.Allocatable && !r.CallerSaved {
            return false
        }
    }
    return true
}

/** Instruction Numbering **/

func (self *TraceAllocator) numberInstructions() {
    n := 0
    for _, bb := range self.blocks {
        n += len(bb.Ins)
    }

    /* id to instruction and block maps */
    idx := 0
    self.opIns = make([]lir.Instr, n)
    self.opBlock = make([]int, n)
    self.firstId = make([]int, len(self.blocks))
    self.lastId = make([]int, len(self.blocks))

    /* even numbers only, odd positions are between instructions */
    for i, bb := range self.blocks {
        self.firstId[i] = idx << 1
        for _, ins := range bb.Ins {
            ins.SetId(idx << 1)
            self.opIns[idx] = ins
            self.opBlock[idx] = i
            idx++
        }
        self.lastId[i] = (idx - 1) << 1
    }
}

func (self *TraceAllocator) maxOpId() int {
    return (len(self.opIns) - 1) << 1
}

// blockForId returns the index in the trace of the block containing op, or
// -1 past the last instruction.
func (self *TraceAllocator) blockForId(op int) int {
    if i := op >> 1; i < 0 || i >= len(self.opBlock) {
        return -1
    } else {
        return self.opBlock[i]
    }
}

func (self *TraceAllocator) instructionForId(op int) lir.Instr {
    return self.opIns[op >> 1]
}

func (self *TraceAllocator) isBlockBegin(op int) bool {
    return op == 0 || self.blockForId(op) != self.blockForId(op - 1)
}

func (self *TraceAllocator) isBlockEnd(op int) bool {
    return self.isBlockBegin(op + 2)
}

func (self *TraceAllocator) hasCall(op int) bool {
    return lir.DestroysCallerSaved(self.instructionForId(op))
}

// isMerge reports whether the block at index i has several predecessors.
func (self *TraceAllocator) isMerge(i int) bool {
    return len(self.blocks[i].Pred) > 1
}

// traceSuccessor returns the trace index of s if control flows from the
// block at index i to s without leaving the trace, or -1.
func (self *TraceAllocator) traceSuccessor(i int, s *lir.Block) int {
    if isIntraTraceEdge(self.traces, self.blocks[i], s) {
        return self.traces.IndexOf(s)
    } else {
        return -1
    }
}

/** Intervals **/

func (self *TraceAllocator) intervalFor(v lir.Value) *TraceInterval {
    if n := v.Number(); n < len(self.intervals) {
        return self.intervals[n]
    } else {
        return nil
    }
}

func (self *TraceAllocator) getOrCreateInterval(v lir.Value) *TraceInterval {
    if it := self.intervals[v.Number()]; it != nil {
        return it
    }

    /* create a new interval */
    it := newTraceInterval(v)
    self.intervals[v.Number()] = it
    return it
}

// createDerivedInterval creates an interval for a fresh variable of the same
// kind as src. The variable only exists within this trace.
func (self *TraceAllocator) createDerivedInterval(src *TraceInterval) *TraceInterval {
    it := newTraceInterval(lir.Var(len(self.intervals), src.Kind()))
    self.intervals = append(self.intervals, it)
    return it
}

func (self *TraceAllocator) getOrCreateFixed(reg lir.Value) *FixedInterval {
    if fi := self.fixed[reg.Number()]; fi != nil {
        return fi
    }

    /* create a new fixed interval */
    fi := newFixedInterval(reg)
    self.fixed[reg.Number()] = fi
    return fi
}

// intervalHint returns the interval that represents v as a register hint.
func (self *TraceAllocator) intervalHint(v lir.Value) IntervalHint {
    if v.IsRegister() {
        return self.getOrCreateFixed(v)
    } else {
        return self.getOrCreateInterval(v)
    }
}

func (self *TraceAllocator) splitChildAtOpId(it *TraceInterval, op int, mode lir.OperandMode) *TraceInterval {
    if ret := it.getSplitChildAtOpId(op, mode); ret != nil {
        return ret
    } else {
        panic(fmt.Sprintf("lsra: %s is not alive at %d (%s)", it.SplitParent().Operand, op, mode))
    }
}

func (self *TraceAllocator) isMaterialized(v lir.Value, op int, mode lir.OperandMode) bool {
    it := self.intervalFor(v)
    if op != -1 {
        it = self.splitChildAtOpId(it, op, mode)
    }
    return it.location.IsIllegal() && it.canMaterialize()
}

/** Spill Slots **/

// assignSpillSlot moves the interval to its canonical spill slot, intervals
// that can be rebuilt from a constant get the illegal location instead.
func (self *TraceAllocator) assignSpillSlot(it *TraceInterval) {
    if it.canMaterialize() {
        it.assignLocation(lir.Illegal)
        self.stats.Materializations++
    } else if slot := it.SpillSlot(); !slot.IsNone() {
        it.assignLocation(slot)
    } else {
        slot = self.allocateSpillSlot(it)
        it.setSpillSlot(slot)
        it.assignLocation(slot)
    }
}

func (self *TraceAllocator) allocateSpillSlot(it *TraceInterval) lir.Value {
    p := it.SplitParent()
    if !self.opts.CacheStackSlots {
        self.stats.SpillSlots++
        return self.frame.AllocateSpillSlot(p.Kind())
    }

    /* share the slot of this variable with other traces */
    slot, cached := self.frame.SpillSlotFor(p.Number(), p.Kind())
    if cached {
        self.stats.CachedSpillSlots++
    } else {
        self.stats.SpillSlots++
    }
    return slot
}

/** Interval Lists **/

func (self *TraceAllocator) sortIntervalsBeforeAllocation() {
    self.sorted = self.sorted[:0]
    for _, it := range self.intervals {
        if it != nil && !it.isEmpty() {
            self.sorted = append(self.sorted, it)
        }
    }

    /* stable, so intervals starting together keep the variable order */
    sort.SliceStable(self.sorted, func(i int, j int) bool {
        return self.sorted[i].from < self.sorted[j].from
    })
}

func (self *TraceAllocator) createUnhandledList() *TraceInterval {
    ret := _EndMarker
    for i := len(self.sorted) - 1; i >= 0; i-- {
        self.sorted[i].next = ret
        ret = self.sorted[i]
    }
    return ret
}

// Intervals returns every non-empty interval of the trace, split children
// included, ordered by start position.
func (self *TraceAllocator) Intervals() []*TraceInterval {
    var ret []*TraceInterval
    for _, it := range self.intervals {
        if it != nil && !it.isEmpty() {
            ret = append(ret, it)
        }
    }

    /* sort by start position */
    sort.SliceStable(ret, func(i int, j int) bool {
        return ret[i].from < ret[j].from
    })
    return ret
}

// FixedIntervals returns the fixed intervals of the trace.
func (self *TraceAllocator) FixedIntervals() []*FixedInterval {
    var ret []*FixedInterval
    for _, fi := range self.fixed {
        if fi != nil {
            ret = append(ret, fi)
        }
    }
    return ret
}

/** Allocation **/

// Allocate runs every phase of the allocator on the trace.
func (self *TraceAllocator) Allocate() (err error) {
    defer func() {
        if v := recover(); v != nil {
            if e, ok := v.(*OutOfRegistersError); ok {
                err = e
            } else {
                panic(v)
            }
        }
    }()

    /* lifetime analysis */
    self.numberInstructions()
    self.buildIntervals()
    self.sortIntervalsBeforeAllocation()

    /* linear scan and resolution */
    self.allocateRegisters()
    self.resolveDataFlow()

    /* move stores to the definitions */
    if self.opts.EliminateSpillMoves {
        self.eliminateSpillMoves()
    }

    /* check the allocation before rewriting the operands */
    if self.opts.Verify {
        if err = self.verifyIntervals(); err != nil {
            return
        }
        if err = self.verifyRegisters(); err != nil {
            return
        }
    }

    /* rewrite the instructions */
    self.assignLocations()
    self.stats.Traces++
    self.stats.Intervals += len(self.intervals)

    /* per trace summary */
    if tlog.If("tracera") {
        tlog.Printw("trace allocated", "trace", self.trace.Id, "blocks", len(self.blocks), "intervals", len(self.intervals), "splits", self.stats.Splits)
    }

    /* dumps for humans */
    if self.opts.DumpDir != "" {
        err = self.dump(self.opts.DumpDir)
    }
    return
}

func (self *TraceAllocator) allocateRegisters() {
    w := newWalker(self, self.createUnhandledList())
    w.walk()
    w.finishAllocation()
}
