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

    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/lir`
    `github.com/davecgh/go-spew/spew`
    `tlog.app/go/tlog`
)

// _Walker assigns registers to the intervals of a trace in the order of their
// start positions. Variable intervals are never inactive since they have no
// holes, fixed intervals move between the active and inactive lists.
type _Walker struct {
    a        *TraceAllocator
    position int
    moves    *_MoveResolver

    /* interval lists */
    unhandled *TraceInterval
    active    *TraceInterval
    fixedAct  []*FixedInterval
    fixedInac []*FixedInterval

    /* register state, indexed by register number */
    usePos   []int
    blockPos []int
    inMemory []bool
    spills   [][]*TraceInterval
}

func newWalker(a *TraceAllocator, unhandled *TraceInterval) *_Walker {
    n := a.cfg.NumRegisters()
    ret := &_Walker {
        a         : a,
        position  : -1,
        moves     : newMoveResolver(a),
        unhandled : unhandled,
        active    : _EndMarker,
        usePos    : make([]int, n),
        blockPos  : make([]int, n),
        inMemory  : make([]bool, n),
        spills    : make([][]*TraceInterval, n),
    }

    /* fixed intervals start inactive */
    for _, fi := range a.fixed {
        if fi != nil {
            fi.rewind()
            ret.fixedInac = append(ret.fixedInac, fi)
        }
    }
    return ret
}

/** Interval Walking **/

func (self *_Walker) walk() {
    self.walkTo(_MaxPos)
}

func (self *_Walker) walkTo(to int) {
    if to < self.position {
        panic(fmt.Sprintf("lsra: cannot walk back from %d to %d", self.position, to))
    }

    /* activate every interval starting up to the target */
    for self.unhandled != _EndMarker && self.unhandled.from <= to {
        cur := self.unhandled
        self.unhandled = cur.next
        cur.next = _EndMarker

        /* update the other lists first */
        self.position = cur.from
        self.walkToFixed(cur.from)
        self.walkToAny(cur.from)

        /* intervals with a register become active */
        if self.activateCurrent(cur) {
            self.active = addToListSortedByFrom(self.active, cur)
        }
    }

    /* move the remaining lists up to the target position */
    if self.position = to; to <= self.a.maxOpId() {
        self.walkToFixed(to)
        self.walkToAny(to)
    }
}

func (self *_Walker) walkToAny(pos int) {
    var prev *TraceInterval
    cur := self.active

    /* intervals ending before pos are handled */
    for cur != _EndMarker {
        next := cur.next
        if cur.to > pos {
            prev = cur
        } else if cur.next = _EndMarker; prev == nil {
            self.active = next
        } else {
            prev.next = next
        }
        cur = next
    }
}

func (self *_Walker) walkToFixed(pos int) {
    act := make([]*FixedInterval, 0, len(self.fixedAct))
    inac := make([]*FixedInterval, 0, len(self.fixedInac))

    /* move the range cursors forward */
    for _, list := range [...][]*FixedInterval { self.fixedAct, self.fixedInac } {
        for _, fi := range list {
            for fi.currentTo() <= pos {
                fi.nextRange()
            }

            /* dispatch by the current range */
            if fi.currentAtEnd() {
                continue
            } else if fi.currentFrom() <= pos {
                act = append(act, fi)
            } else {
                inac = append(inac, fi)
            }
        }
    }

    /* update the lists */
    self.fixedAct = act
    self.fixedInac = inac
}

func (self *_Walker) removeFromActive(it *TraceInterval) {
    var prev *TraceInterval
    for cur := self.active; cur != _EndMarker; prev, cur = cur, cur.next {
        if cur == it {
            if prev == nil {
                self.active = cur.next
            } else {
                prev.next = cur.next
            }
            cur.next = _EndMarker
            return
        }
    }
    panic("lsra: interval is not active: " + it.String())
}

/** Register State **/

func (self *_Walker) registers(it *TraceInterval) []arch.Register {
    return self.a.cfg.Allocatable(it.Kind())
}

func (self *_Walker) initUseLists(it *TraceInterval, onlyUsePos bool) {
    for _, r := range self.registers(it) {
        self.usePos[r.Number] = _MaxPos
        if !onlyUsePos {
            self.blockPos[r.Number] = _MaxPos
            self.inMemory[r.Number] = false
            self.spills[r.Number] = self.spills[r.Number][:0]
        }
    }
}

func (self *_Walker) excludeFromUse(loc lir.Value) {
    if loc.IsRegister() {
        self.usePos[loc.Number()] = 0
    }
}

func (self *_Walker) setUsePos(it *TraceInterval, pos int, onlyUsePos bool) {
    if pos == -1 || !it.location.IsRegister() {
        return
    }

    /* closest use wins */
    r := it.location.Number()
    if self.usePos[r] > pos {
        self.usePos[r] = pos
    }

    /* remember who occupies the register */
    if !onlyUsePos {
        self.spills[r] = append(self.spills[r], it)
        if it.inMemoryAt(self.position) {
            self.inMemory[r] = true
        }
    }
}

func (self *_Walker) setFixedUsePos(fi *FixedInterval, pos int) {
    if r := fi.Reg.Number(); pos != -1 && self.usePos[r] > pos {
        self.usePos[r] = pos
    }
}

func (self *_Walker) setBlockPos(fi *FixedInterval, pos int) {
    if pos == -1 {
        return
    }

    /* blocked registers cannot be used either */
    r := fi.Reg.Number()
    if self.blockPos[r] > pos {
        self.blockPos[r] = pos
    }
    if self.usePos[r] > pos {
        self.usePos[r] = pos
    }
}

func (self *_Walker) freeExcludeActiveFixed() {
    for _, fi := range self.fixedAct {
        self.excludeFromUse(fi.Reg)
    }
}

func (self *_Walker) freeExcludeActiveAny() {
    for it := self.active; it != _EndMarker; it = it.next {
        self.excludeFromUse(it.location)
    }
}

func (self *_Walker) freeCollectInactiveFixed(cur *TraceInterval) {
    for _, fi := range self.fixedInac {
        if cur.to <= fi.currentFrom() {
            self.setFixedUsePos(fi, fi.currentFrom())
        } else {
            self.setFixedUsePos(fi, fi.currentIntersectsAt(cur))
        }
    }
}

func (self *_Walker) spillExcludeActiveFixed() {
    for _, fi := range self.fixedAct {
        self.excludeFromUse(fi.Reg)
    }
}

func (self *_Walker) spillBlockInactiveFixed(cur *TraceInterval) {
    for _, fi := range self.fixedInac {
        if cur.to > fi.currentFrom() {
            self.setBlockPos(fi, fi.currentIntersectsAt(cur))
        }
    }
}

func (self *_Walker) spillCollectActiveAny(prio RegisterPriority) {
    for it := self.active; it != _EndMarker; it = it.next {
        from := self.position
        if self.releasedByInput(it) {
            from++
        }

        /* the next use that needs the register */
        pos := it.nextUsage(prio, from)
        if pos > it.to {
            pos = it.to
        }
        self.setUsePos(it, pos, false)
    }
}

/** Split Positions **/

func (self *_Walker) findOptimalSplitPos(it *TraceInterval, minPos int, maxPos int) int {
    if minPos == maxPos {
        return minPos
    }

    /* blocks containing both ends */
    minBlock := self.a.blockForId(minPos - 1)
    maxBlock := self.a.blockForId(maxPos - 1)
    if maxBlock < 0 {
        maxBlock = len(self.a.blocks) - 1
    }

    /* no block boundary in between, split as late as possible */
    if minBlock == maxBlock {
        return maxPos
    } else {
        return self.findOptimalSplitPosBetween(minBlock, maxBlock, maxPos)
    }
}

// findOptimalSplitPosBetween moves the split position to the end of the
// least frequently executed block between both blocks.
func (self *_Walker) findOptimalSplitPosBetween(minBlock int, maxBlock int, maxPos int) int {
    ret := self.a.lastId[maxBlock] + 2
    if ret > maxPos {
        ret = self.a.firstId[maxBlock]
    }

    /* split at the end of the block with the lowest probability */
    prob := self.a.blocks[maxBlock].Probability
    for i := maxBlock - 1; i >= minBlock; i-- {
        if p := self.a.blocks[i].Probability; p < prob {
            prob = p
            ret = self.a.lastId[i] + 2
        }
    }
    return ret
}

// splitBeforeUsage splits the interval somewhere between both positions and
// queues the new part. Splits at a block boundary need no move, the data
// flow resolution takes care of it.
func (self *_Walker) splitBeforeUsage(it *TraceInterval, minPos int, maxPos int) {
    if it.from >= minPos || minPos > maxPos || maxPos > it.to {
        panic(fmt.Sprintf("lsra: invalid split range [%d, %d] for %s", minPos, maxPos, it))
    }

    /* no need to split just before the end */
    opt := self.findOptimalSplitPos(it, minPos, maxPos)
    if opt == it.to && it.nextUsage(PriorityMust, minPos) == _MaxPos {
        return
    }

    /* split between instructions unless at a block boundary */
    move := !self.a.isBlockBegin(opt)
    if move {
        opt = (opt - 1) | 1
    }

    /* check again with the adjusted position */
    if opt == it.to && it.nextUsage(PriorityMust, minPos) == _MaxPos {
        return
    }

    /* the new part gets a location when it is activated */
    c := it.split(opt, self.a)
    c.insertMoveWhenActivated = move
    self.unhandled = addToListSortedByStartAndUsePositions(self.unhandled, c)

    /* trace the split */
    if tlog.If("lsra,walker") {
        tlog.Printw("split before usage", "trace", self.a.trace.Id, "interval", it.String(), "child", c.String(), "move", move)
    }
}

func (self *_Walker) splitWhenPartialRegisterAvailable(it *TraceInterval, until int) {
    if self.readOnlyAt(it, until) {
        self.splitAfterInput(it, until)
        return
    }

    /* split before the last use that still fits */
    min := it.previousUsage(PriorityShould, until)
    if min < it.from + 1 {
        min = it.from + 1
    }
    self.splitBeforeUsage(it, min, until)
}

func (self *_Walker) splitStackInterval(it *TraceInterval) {
    min := self.position + 1
    max := it.firstUsage(PriorityShould)
    if max > it.to {
        max = it.to
    }
    if min <= max {
        self.splitBeforeUsage(it, min, max)
    }
}

func (self *_Walker) splitAndSpillInterval(it *TraceInterval) {
    min := self.position + 1
    max := it.nextUsage(PriorityMust, min)

    /* the part that needs a register again is allocated later */
    if max <= it.to {
        self.splitBeforeUsage(it, min, max)
    }

    /* the rest goes to memory */
    self.splitForSpilling(it)
}

func (self *_Walker) splitForSpilling(it *TraceInterval) {
    max := self.position
    prev := it.previousUsage(PriorityShould, max)

    /* priorities were lowered by allocLockedRegister */
    if prev == self.position {
        prev = it.previousUsage(PriorityMust, max)
    }

    /* the interval is not used before this position */
    min := prev + 1
    if min < it.from {
        min = it.from
    }

    /* spill the whole interval */
    if min == it.from {
        self.a.assignSpillSlot(it)
        if min & 1 == 0 && !self.a.isBlockBegin(min) {
            self.changeSpillState(it, min - 1)
        } else {
            self.changeSpillState(it, min)
        }

        /* kick out parents that hold a register without using it */
        for p := it; p != nil && p.IsSplitChild(); {
            if p = p.getSplitChildBeforeOpId(p.from); p != nil && p.location.IsRegister() {
                if p.firstUsage(PriorityShould) != _MaxPos {
                    break
                }
                self.a.assignSpillSlot(p)
            }
        }
        return
    }

    /* split and spill the right part only */
    opt := self.findOptimalSplitPos(it, min, max)
    begin := self.a.isBlockBegin(opt)
    if !begin {
        opt = (opt - 1) | 1
    }

    /* the spilled part */
    c := it.split(opt, self.a)
    self.a.assignSpillSlot(c)
    self.changeSpillState(c, opt)

    /* store the value, except where data flow resolution does it */
    if !begin {
        self.insertMove(opt, it, c)
    }

    /* the current split child is needed for later splits */
    c.makeCurrentSplitChild()
    if tlog.If("lsra,walker") {
        tlog.Printw("spill", "trace", self.a.trace.Id, "interval", it.String(), "child", c.String())
    }
}

/** Spill Positions **/

func (self *_Walker) changeSpillState(it *TraceInterval, pos int) {
    if !self.a.opts.EliminateSpillMoves {
        it.setSpillState(NoOptimization)
        return
    }

    /* only the first spill decides the store position */
    if it.SpillState() == NoSpillStore {
        min := self.calculateMinSpillPos(it.spillDefinitionPos(), pos)
        max := self.calculateMaxSpillPos(min, pos)
        it.setSpillDefinitionPos(self.findOptimalSpillPos(min, max) &^ 1)
        it.setSpillState(SpillStore)
    }
}

func (self *_Walker) calculateMinSpillPos(def int, pos int) int {
    even := def &^ 1
    if even == 0 || !self.a.isBlockBegin(even) || def == pos {
        return def
    }

    /* no resolution moves at merges */
    if self.a.isMerge(self.a.blockForId(def)) {
        return def
    }

    /* skip the label and empty blocks */
    ret := even + 2
    for self.a.isBlockEnd(ret) {
        ret += 4
    }
    return ret
}

func (self *_Walker) calculateMaxSpillPos(min int, pos int) int {
    even := pos &^ 1
    if even == 0 || min &^ 1 == even {
        return pos
    }

    /* move away from the block boundaries */
    var ret int
    if self.a.isBlockEnd(even) {
        ret = even - 2
    } else if self.a.isBlockBegin(even) {
        ret = even - 4
    } else {
        return pos
    }

    /* skip block begins */
    for self.a.isBlockBegin(ret) && ret > min {
        ret -= 4
    }
    return ret
}

func (self *_Walker) findOptimalSpillPos(min int, max int) int {
    if min >= max {
        return min
    }

    /* blocks of both ends */
    minBlock := self.a.blockForId(min)
    maxBlock := self.a.blockForId(max)
    if minBlock == maxBlock {
        return max
    }

    /* before the end of the least frequent block */
    ret := self.a.lastId[maxBlock] - 2
    if ret > max {
        ret = max
    }

    /* blocks with only a label and a jump are skipped */
    prob := self.a.blocks[maxBlock].Probability
    for i := maxBlock - 1; i >= minBlock; i-- {
        if p := self.a.blocks[i].Probability; p < prob && self.a.lastId[i] - self.a.firstId[i] > 2 {
            prob = p
            ret = self.a.lastId[i] - 2
        }
    }
    return ret
}

/** Allocation **/

func (self *_Walker) allocFreeRegister(it *TraceInterval) bool {
    self.initUseLists(it, true)
    self.freeExcludeActiveFixed()
    self.freeCollectInactiveFixed(it)
    self.freeExcludeActiveAny()

    /* the hint, if it has a register */
    hint := -1
    if h := it.locationHint(true); h != nil && h.Location().IsRegister() {
        hint = h.Location().Number()
    }

    /* the register must be free at least until this position */
    minFull := -1
    maxPart := -1
    needed := it.from + 1

    /* prefer the hint, then the tightest fit */
    for _, r := range self.registers(it) {
        n := r.Number
        if self.usePos[n] >= it.to {
            if minFull < 0 || n == hint || (self.usePos[n] < self.usePos[minFull] && minFull != hint) {
                minFull = n
            }
        } else if self.usePos[n] > needed {
            if maxPart < 0 || n == hint || (self.usePos[n] > self.usePos[maxPart] && maxPart != hint) {
                maxPart = n
            }
        }
    }

    /* pick a register */
    reg := minFull
    if reg < 0 {
        if reg = maxPart; reg < 0 {
            return false
        }
    }

    /* split if the register is not free for the whole interval */
    it.assignLocation(self.a.cfg.Registers[reg].Value())
    if reg != minFull {
        self.splitWhenPartialRegisterAvailable(it, self.usePos[reg])
    }
    return true
}

func (self *_Walker) allocLockedRegister(it *TraceInterval) {
    first := it.firstUsage(PriorityMust)
    firstShould := it.firstUsage(PriorityShould)
    needed := it.from + 1

    /* the register must be free at least until this position */
    if first < needed {
        needed = first
    }

    /* registers already assigned to the interval are ignored */
    reg := -1
    ignore := -1
    if it.location.IsRegister() {
        ignore = it.location.Number()
    }

    /* spill intervals with uses only if nothing else works */
    for prio := PriorityLiveAtLoopEnd; ; prio = PriorityMust {
        self.initUseLists(it, false)
        self.spillExcludeActiveFixed()
        self.spillBlockInactiveFixed(it)
        self.spillCollectActiveAny(prio)

        /* prefer registers whose values are in memory already */
        reg = -1
        for _, r := range self.registers(it) {
            if n := r.Number; n != ignore && self.usePos[n] > needed {
                if reg < 0 || self.usePos[n] > self.usePos[reg] || (self.usePos[n] == self.usePos[reg] && !self.inMemory[reg] && self.inMemory[n]) {
                    reg = n
                }
            }
        }

        /* check if spilling the interval itself is cheaper */
        pos := 0
        if reg >= 0 {
            pos = self.usePos[reg]
        }

        /* the common case */
        if pos > firstShould || (reg >= 0 && !it.inMemoryAt(self.position) && self.inMemory[reg]) {
            break
        }

        /* the interval can be spilled unless it needs a register right now */
        if first > it.from + 1 {
            self.splitAndSpillInterval(it)
            return
        }

        /* last resort, spill intervals that have uses but need no register */
        if prio == PriorityLiveAtLoopEnd {
            continue
        }

        /* nothing left to try */
        panic(&OutOfRegistersError {
            Trace    : self.a.trace.Id,
            Interval : it.logString(),
            Position : first,
            Dump     : self.dumpState(),
        })
    }

    /* split if the register is blocked by a fixed use later on */
    split := self.blockPos[reg] <= it.to
    it.assignLocation(self.a.cfg.Registers[reg].Value())
    if split {
        self.splitWhenPartialRegisterAvailable(it, self.blockPos[reg])
    }

    /* evict the intervals currently in the register */
    self.splitAndSpillIntersectingIntervals(reg)
}

func (self *_Walker) splitAndSpillIntersectingIntervals(reg int) {
    for _, it := range self.spills[reg] {
        self.removeFromActive(it)
        if self.releasedByInput(it) {
            self.spillAfterInput(it)
        } else {
            self.splitAndSpillInterval(it)
        }
    }
}

func (self *_Walker) releasedByInput(it *TraceInterval) bool {
    return self.readOnlyAt(it, self.position)
}

// readOnlyAt reports whether the instruction at pos reads the interval as an
// ordinary input and does not need it in a register otherwise. Inputs are
// read before the instruction clobbers or writes anything, so the register
// is free from pos on. States are served by the part starting at pos.
func (self *_Walker) readOnlyAt(it *TraceInterval, pos int) bool {
    if pos & 1 != 0 || pos <= it.from || pos >= it.to || pos > self.a.maxOpId() {
        return false
    }

    /* look for every reference to the value */
    used := false
    ins := self.a.instructionForId(pos)
    for _, mode := range lir.Modes {
        for _, op := range ins.Operands(mode) {
            if op.V.IsVariable() && self.a.intervalFor(op.V) == it.SplitParent() {
                switch mode {
                    case lir.Use   : used = true
                    case lir.State : break
                    default        : return false
                }
            }
        }
    }
    return used
}

// spillAfterInput evicts an interval read by the instruction at the current
// position. The value is stored before the instruction, which still reads it
// from the register, and the slot holds it from there on.
func (self *_Walker) spillAfterInput(it *TraceInterval) {
    pos := self.position

    /* the part that needs a register again is allocated later */
    if max := it.nextUsage(PriorityMust, pos + 1); max <= it.to {
        self.splitBeforeUsage(it, pos + 1, max)
    }

    /* the spilled part starts at the instruction, the store goes before it */
    c := it.splitAtInput(pos, self.a)
    self.a.assignSpillSlot(c)
    self.changeSpillState(c, pos - 1)
    self.insertMove(pos - 1, it, c)

    /* the current split child is needed for the reload */
    c.makeCurrentSplitChild()
    if tlog.If("lsra,walker") {
        tlog.Printw("spill after input", "trace", self.a.trace.Id, "interval", it.String(), "child", c.String())
    }
}

// splitAfterInput queues the part of the interval starting at an instruction
// that only reads it. The instruction reads the current part, the value is
// moved to the new part right before it.
func (self *_Walker) splitAfterInput(it *TraceInterval, pos int) {
    c := it.splitAtInput(pos, self.a)
    c.insertMoveWhenActivated = true
    self.unhandled = addToListSortedByStartAndUsePositions(self.unhandled, c)

    /* trace the split */
    if tlog.If("lsra,walker") {
        tlog.Printw("split after input", "trace", self.a.trace.Id, "interval", it.String(), "child", c.String())
    }
}

// noAllocationPossible reports whether the interval starts right before a
// call that kills every register.
func (self *_Walker) noAllocationPossible(it *TraceInterval) bool {
    if !self.a.kills {
        return false
    } else if pos := it.from; pos & 1 == 0 {
        return false
    } else {
        return pos < self.a.maxOpId() && self.a.hasCall(pos + 1) && it.to > pos + 1
    }
}

func (self *_Walker) activateCurrent(it *TraceInterval) bool {
    ret := true
    loc := it.location

    /* already in memory, split before the first use */
    if !loc.IsNone() && !loc.IsRegister() {
        self.splitStackInterval(it)
        ret = false
    } else if loc.IsNone() {
        self.combineSpilledIntervals(it)
        if self.noAllocationPossible(it) || !self.allocFreeRegister(it) {
            self.allocLockedRegister(it)
        }

        /* spilled intervals are never active */
        if !it.location.IsRegister() {
            ret = false
        }
    }

    /* reload values that were split off in the middle of a block */
    if it.insertMoveWhenActivated {
        self.insertMove(it.from, it.currentSplitChild(), it)
    }

    /* this is the part to split next */
    it.makeCurrentSplitChild()
    if tlog.If("lsra,walker") {
        tlog.Printw("activate", "trace", self.a.trace.Id, "interval", it.logString())
    }
    return ret
}

// combineSpilledIntervals lets an interval defined by a plain move share the
// spill slot of the move input when the input dies at the move while it is in
// its slot. The two values never overlap in the slot.
func (self *_Walker) combineSpilledIntervals(it *TraceInterval) {
    if it.IsSplitChild() || !it.spillSlot.IsNone() || it.canMaterialize() || it.spillState == StartInMemory {
        return
    }

    /* only for intervals defined by a move */
    pos := it.from
    if pos & 1 != 0 || pos > self.a.maxOpId() {
        return
    }

    /* from another variable */
    mv, ok := self.a.instructionForId(pos).(*lir.Move)
    if !ok || mv.Kind != lir.MoveNormal || !mv.Input.V.IsVariable() || mv.Result.V.Key() != it.Operand.Key() {
        return
    }

    /* the input must end at the move, in its spill slot */
    src := self.a.intervalFor(mv.Input.V)
    c := src.getSplitChildAtOpId(pos, lir.Use)
    if c == nil || c.to != pos || !c.location.IsStack() || c.location.Key() != src.SpillSlot().Key() {
        return
    }

    /* and must not come back later */
    if cs := src.Children(); cs[len(cs) - 1] != c {
        return
    }

    /* share the slot, the definition does not need a register anymore */
    it.setSpillSlot(src.SpillSlot().WithKind(it.Kind()))
    if n := len(it.uses); n != 0 && it.uses[n - 1].pos == pos && it.uses[n - 1].prio < PriorityMust {
        it.removeFirstUsePos()
    }
}

/** Move Insertion **/

func (self *_Walker) insertMove(pos int, src *TraceInterval, dst *TraceInterval) {
    op := (pos + 1) &^ 1
    bi := self.a.blockForId(op)
    bb := self.a.blocks[bi]

    /* inserted moves shift the instructions */
    i := (op - self.a.firstId[bi]) >> 1
    for bb.Ins[i].Id() != op {
        i++
    }

    /* insert before the instruction */
    self.moves.moveInsertPosition(&bb.Ins, i)
    self.moves.addMapping(src, dst, lir.MoveSpill)
}

func (self *_Walker) finishAllocation() {
    self.moves.resolveAndAppendMoves()
}

func (self *_Walker) dumpState() string {
    var live []string
    for it := self.active; it != _EndMarker; it = it.next {
        live = append(live, it.logString())
    }
    return spew.Sdump(live, self.a.Intervals())
}
