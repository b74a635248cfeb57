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
    `math`
    `sort`
    `strings`

    `github.com/cloudwego/tracera/lir`
)

const (
    _MaxPos = math.MaxInt32
)

// RegisterPriority tells how badly a use position wants a register.
type RegisterPriority uint8

const (
    PriorityNone RegisterPriority = iota
    PriorityLiveAtLoopEnd
    PriorityShould
    PriorityMust
)

func (self RegisterPriority) String() string {
    switch self {
        case PriorityNone          : return "none"
        case PriorityLiveAtLoopEnd : return "loop-end"
        case PriorityShould        : return "should"
        case PriorityMust          : return "must"
        default                    : return "???"
    }
}

// SpillState tracks where the spill store of an interval has to be placed.
type SpillState uint8

const (
    // NoDefinitionFound means no definition has been seen yet.
    NoDefinitionFound SpillState = iota

    // NoSpillStore means the interval has a definition but is not spilled yet.
    NoSpillStore

    // SpillStore means one store right after the definition is enough, all
    // other stores can be removed.
    SpillStore

    // StartInMemory means the value is already in its spill slot when the
    // trace is entered, no store is needed at all.
    StartInMemory

    // NoOptimization means stores are emitted at every spill position.
    NoOptimization
)

func (self SpillState) String() string {
    switch self {
        case NoDefinitionFound : return "no-definition"
        case NoSpillStore      : return "no-store"
        case SpillStore        : return "store"
        case StartInMemory     : return "in-memory"
        case NoOptimization    : return "no-optimization"
        default                : return "???"
    }
}

// IntervalHint is an interval another interval would like to share a
// register with. Hints are advisory, a hint without a register is ignored.
type IntervalHint interface {
    From() int
    Location() lir.Value
}

type _UsePos struct {
    pos   int
    prio  RegisterPriority
    konst bool
}

// TraceInterval is the live range of a variable within one trace. It is a
// single range [from, to), holes are not tracked. An interval may be split
// into children, every child covers a disjoint part of the parent range and
// has a location of its own. Spill information lives in the split parent.
type TraceInterval struct {
    Operand  lir.Value
    from     int
    to       int
    uses     []_UsePos
    location lir.Value
    hint     IntervalHint
    next     *TraceInterval
    parent   *TraceInterval
    origin   *TraceInterval
    children []*TraceInterval
    current  *TraceInterval

    /* split parent only */
    spillSlot   lir.Value
    spillState  SpillState
    spillDefPos int
    mat         lir.Value
    nmat        int

    insertMoveWhenActivated bool
}

// _EndMarker terminates the linked interval lists of the walker.
var _EndMarker = &TraceInterval {
    Operand     : lir.Illegal,
    from        : _MaxPos,
    to          : _MaxPos,
    spillDefPos : _MaxPos,
}

func newTraceInterval(v lir.Value) *TraceInterval {
    ret := &TraceInterval {
        Operand     : v,
        from        : _MaxPos,
        to          : _MaxPos,
        next        : _EndMarker,
        spillDefPos : -1,
    }
    ret.current = ret
    return ret
}

func (self *TraceInterval) Number()   int          { return self.Operand.Number() }
func (self *TraceInterval) Kind()     lir.Kind     { return self.Operand.Kind() }
func (self *TraceInterval) From()     int          { return self.from }
func (self *TraceInterval) To()       int          { return self.to }
func (self *TraceInterval) Location() lir.Value    { return self.location }
func (self *TraceInterval) Hint()     IntervalHint { return self.hint }

func (self *TraceInterval) IsSplitParent() bool { return self.parent == nil }
func (self *TraceInterval) IsSplitChild()  bool { return self.parent != nil }

// SplitParent returns the interval this one was split from, or itself.
func (self *TraceInterval) SplitParent() *TraceInterval {
    if self.parent == nil {
        return self
    } else {
        return self.parent
    }
}

// Children returns every part of the split parent sorted by start position,
// the parent itself included.
func (self *TraceInterval) Children() []*TraceInterval {
    if p := self.SplitParent(); p.children == nil {
        return []*TraceInterval { p }
    } else {
        return p.children
    }
}

// identity returns the interval whose value this interval carries.
func (self *TraceInterval) identity() *TraceInterval {
    if self.origin != nil {
        return self.origin.SplitParent()
    } else {
        return self.SplitParent()
    }
}

func (self *TraceInterval) isEmpty() bool {
    return self.from == _MaxPos && self.to == _MaxPos
}

func (self *TraceInterval) assignLocation(loc lir.Value) {
    if loc.IsLocation() {
        loc = loc.WithKind(self.Kind())
    }
    self.location = loc
}

func (self *TraceInterval) setFrom(pos int) {
    self.from = pos
}

func (self *TraceInterval) addRange(from int, to int) {
    if from >= to {
        panic(fmt.Sprintf("lsra: invalid range [%d, %d) for %s", from, to, self.Operand))
    }

    /* a single range that covers everything */
    if from < self.from {
        self.from = from
    }
    if self.to == _MaxPos || self.to < to {
        self.to = to
    }
}

func (self *TraceInterval) covers(pos int, mode lir.OperandMode) bool {
    if mode == lir.Def {
        return self.from <= pos && pos < self.to
    } else {
        return self.from <= pos && pos <= self.to
    }
}

func (self *TraceInterval) intersects(other *TraceInterval) bool {
    return self.from < other.to && other.from < self.to
}

/** Use Positions **/

func (self *TraceInterval) addUsePos(pos int, prio RegisterPriority, konst bool) {
    if prio != PriorityNone {
        if n := len(self.uses); n == 0 || self.uses[n - 1].pos > pos {
            self.uses = append(self.uses, _UsePos { pos: pos, prio: prio, konst: konst })
        } else if u := &self.uses[n - 1]; u.pos == pos {
            if u.konst = u.konst && konst; u.prio < prio {
                u.prio = prio
            }
        }
    }
}

func (self *TraceInterval) firstUsage(min RegisterPriority) int {
    for i := len(self.uses) - 1; i >= 0; i-- {
        if self.uses[i].prio >= min {
            return self.uses[i].pos
        }
    }
    return _MaxPos
}

func (self *TraceInterval) nextUsage(min RegisterPriority, from int) int {
    for i := len(self.uses) - 1; i >= 0; i-- {
        if u := self.uses[i]; u.pos >= from && u.prio >= min {
            return u.pos
        }
    }
    return _MaxPos
}

func (self *TraceInterval) previousUsage(min RegisterPriority, from int) int {
    prev := -1
    for i := len(self.uses) - 1; i >= 0; i-- {
        if self.uses[i].pos > from {
            return prev
        } else if self.uses[i].prio >= min {
            prev = self.uses[i].pos
        }
    }
    return prev
}

func (self *TraceInterval) removeFirstUsePos() {
    if n := len(self.uses); n != 0 {
        self.uses = self.uses[:n - 1]
    }
}

/** Spill Information **/

func (self *TraceInterval) SpillSlot() lir.Value {
    return self.SplitParent().spillSlot
}

func (self *TraceInterval) setSpillSlot(slot lir.Value) {
    self.SplitParent().spillSlot = slot
}

func (self *TraceInterval) SpillState() SpillState {
    return self.SplitParent().spillState
}

func (self *TraceInterval) setSpillState(st SpillState) {
    self.SplitParent().spillState = st
}

func (self *TraceInterval) spillDefinitionPos() int {
    return self.SplitParent().spillDefPos
}

func (self *TraceInterval) setSpillDefinitionPos(pos int) {
    self.SplitParent().spillDefPos = pos
}

// inMemoryAt reports whether the spill slot holds the value at position op.
func (self *TraceInterval) inMemoryAt(op int) bool {
    p := self.SplitParent()
    return p.spillState == StartInMemory || (p.spillState == SpillStore && op > p.spillDefPos && !p.canMaterialize())
}

func (self *TraceInterval) addMaterializationValue(v lir.Value) {
    if p := self.SplitParent(); p.nmat == 0 {
        p.mat = v
        p.nmat++
    } else {
        p.mat = lir.None
        p.nmat++
    }
}

func (self *TraceInterval) canMaterialize() bool {
    return !self.SplitParent().mat.IsNone()
}

// MaterializedValue returns the constant the interval can be rebuilt from,
// or lir.None.
func (self *TraceInterval) MaterializedValue() lir.Value {
    return self.SplitParent().mat
}

/** Hints **/

func (self *TraceInterval) setLocationHint(hint IntervalHint) {
    self.hint = hint
}

// locationHint returns the hint of the interval. With search set, a hint
// without a register is replaced by the first of its split children that has
// one.
func (self *TraceInterval) locationHint(search bool) IntervalHint {
    if !search || self.hint == nil {
        return self.hint
    }

    /* hint is already in a register */
    if self.hint.Location().IsRegister() {
        return self.hint
    }

    /* search the split children of the hint */
    if it, ok := self.hint.(*TraceInterval); ok {
        for _, c := range it.Children() {
            if c.location.IsRegister() {
                return c
            }
        }
    }
    return nil
}

/** Splitting **/

func (self *TraceInterval) makeCurrentSplitChild() {
    self.SplitParent().current = self
}

func (self *TraceInterval) currentSplitChild() *TraceInterval {
    return self.SplitParent().current
}

// split cuts the interval at pos, the part starting at pos is returned as a
// new split child. Use positions at or after pos move to the child.
func (self *TraceInterval) split(pos int, a *TraceAllocator) *TraceInterval {
    p := self.SplitParent()
    c := a.createDerivedInterval(self)

    /* link to the parent */
    c.parent = p
    c.hint = p

    /* split the range */
    c.to = self.to
    c.from = pos
    self.to = pos

    /* split the use positions, they are in descending order */
    n := 0
    for n < len(self.uses) && self.uses[n].pos >= pos {
        n++
    }

    /* the child gets the tail */
    c.uses = append([]_UsePos(nil), self.uses[:n]...)
    self.uses = append([]_UsePos(nil), self.uses[n:]...)

    /* insert into the sorted child list */
    if p.children == nil {
        p.children = []*TraceInterval { p }
    }

    /* find the insertion point */
    i := sort.Search(len(p.children), func(i int) bool {
        return p.children[i].from > c.from
    })

    /* insert the child */
    p.children = append(p.children, nil)
    copy(p.children[i + 1:], p.children[i:])
    p.children[i] = c
    a.stats.Splits++
    return c
}

// splitAtInput splits the interval at pos like split, but the input read by
// the instruction at pos stays with the part that ends there.
func (self *TraceInterval) splitAtInput(pos int, a *TraceAllocator) *TraceInterval {
    c := self.split(pos, a)
    if n := len(c.uses); n != 0 && c.uses[n - 1].pos == pos {
        self.uses = append([]_UsePos { c.uses[n - 1] }, self.uses...)
        c.uses = c.uses[:n - 1]
    }
    return c
}

// getSplitChildAtOpId returns the part of the interval that is live at op,
// or nil. Outputs at the very end of a part do not belong to it.
func (self *TraceInterval) getSplitChildAtOpId(op int, mode lir.OperandMode) *TraceInterval {
    off := 1
    cs := self.Children()

    /* outputs end one position earlier */
    if mode == lir.Def {
        off = 0
    }

    /* the last part starting at or before op */
    i := sort.Search(len(cs), func(i int) bool {
        return cs[i].from > op
    })

    /* inputs read the part that ends at the instruction */
    if mode == lir.Use && i >= 2 && cs[i - 1].from == op && cs[i - 2].to == op {
        return cs[i - 2]
    }

    /* check if it is still alive */
    if i != 0 && op < cs[i - 1].to + off {
        return cs[i - 1]
    } else {
        return nil
    }
}

// getSplitChildBeforeOpId returns the part that ends last at or before op.
func (self *TraceInterval) getSplitChildBeforeOpId(op int) *TraceInterval {
    var ret *TraceInterval
    for _, c := range self.Children() {
        if c.to <= op && (ret == nil || ret.to < c.to) {
            ret = c
        }
    }
    return ret
}

func (self *TraceInterval) String() string {
    loc := "-"
    if !self.location.IsNone() {
        loc = self.location.String()
    }
    if self.isEmpty() {
        return fmt.Sprintf("%s[%s]{empty}", self.Operand, loc)
    } else {
        return fmt.Sprintf("%s[%s]{%d, %d}", self.Operand, loc, self.from, self.to)
    }
}

func (self *TraceInterval) logString() string {
    buf := make([]string, 0, len(self.uses))
    for i := len(self.uses) - 1; i >= 0; i-- {
        buf = append(buf, fmt.Sprintf("%d:%s", self.uses[i].pos, self.uses[i].prio))
    }
    return fmt.Sprintf(
        "%s parent=%s spill=%s@%d uses=[%s]",
        self,
        self.SplitParent().Operand,
        self.SpillState(),
        self.spillDefinitionPos(),
        strings.Join(buf, " "),
    )
}

/** Sorted Lists **/

func addToListSortedByFrom(list *TraceInterval, it *TraceInterval) *TraceInterval {
    var prev *TraceInterval
    cur := list

    /* find the insertion point */
    for cur.from < it.from {
        prev, cur = cur, cur.next
    }

    /* link it in */
    if it.next = cur; prev == nil {
        return it
    } else {
        prev.next = it
        return list
    }
}

func addToListSortedByStartAndUsePositions(list *TraceInterval, it *TraceInterval) *TraceInterval {
    var prev *TraceInterval
    cur := list

    /* intervals that start together are ordered by their first use */
    for cur.from < it.from || (cur.from == it.from && cur.firstUsage(PriorityNone) < it.firstUsage(PriorityNone)) {
        prev, cur = cur, cur.next
    }

    /* link it in */
    if it.next = cur; prev == nil {
        return it
    } else {
        prev.next = it
        return list
    }
}
