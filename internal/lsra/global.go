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
    `tlog.app/go/errors`
    `tlog.app/go/tlog`
)

type _LocationMove struct {
    src  lir.Value
    dst  lir.Value
    kind lir.MoveKind
}

// _GlobalResolver orders the parallel moves of one edge between two traces.
// It works on locations only, the intervals of the traces are gone by then.
type _GlobalResolver struct {
    s       *Session
    moves   []_LocationMove
    blocked map[lir.Value]int
    scratch []lir.Value
    out     []lir.Instr
}

func newGlobalResolver(s *Session) *_GlobalResolver {
    return &_GlobalResolver {
        s       : s,
        blocked : make(map[lir.Value]int),
    }
}

func (self *_GlobalResolver) reset() {
    self.out = nil
    self.moves = self.moves[:0]
}

func (self *_GlobalResolver) add(src lir.Value, dst lir.Value, kind lir.MoveKind) {
    if !dst.IsLocation() {
        panic("lsra: invalid move destination: " + dst.String())
    }

    /* values already in place */
    if src.IsLocation() && src.Key() == dst.Key() {
        return
    }

    /* add the move */
    self.moves = append(self.moves, _LocationMove {
        src  : src,
        dst  : dst.WithKind(src.Kind()),
        kind : kind,
    })
}

func (self *_GlobalResolver) block(loc lir.Value) {
    if loc.IsLocation() {
        self.blocked[loc.Key()]++
    }
}

func (self *_GlobalResolver) unblock(loc lir.Value) {
    if !loc.IsLocation() {
        return
    }

    /* decrease the counter */
    if n := self.blocked[loc.Key()]; n <= 1 {
        delete(self.blocked, loc.Key())
    } else {
        self.blocked[loc.Key()] = n - 1
    }
}

func (self *_GlobalResolver) emit(kind lir.MoveKind, dst lir.Value, src lir.Value) {
    self.out = append(self.out, lir.NewMove(kind, dst, src))
}

// resolve orders the moves, every source is read before it is overwritten.
func (self *_GlobalResolver) resolve() []lir.Instr {
    pending := append([]_LocationMove(nil), self.moves...)
    for _, m := range pending {
        self.block(m.src)
    }

    /* emit moves whose destinations are not read anymore */
    for len(pending) != 0 {
        done := false
        for i := len(pending) - 1; i >= 0; i-- {
            if m := pending[i]; self.blocked[m.dst.Key()] == 0 {
                self.emit(m.kind, m.dst, m.src)
                self.unblock(m.src)
                pending = append(pending[:i], pending[i + 1:]...)
                done = true
            }
        }

        /* a cycle, park the first value in a fresh slot */
        if !done {
            self.breakCycle(pending)
        }
    }

    /* the parked values are gone, so are their slots */
    for _, slot := range self.scratch {
        self.s.Frame.ReleaseScratchSlot(slot)
    }

    /* reset the state */
    self.scratch = self.scratch[:0]
    for k := range self.blocked {
        delete(self.blocked, k)
    }
    return self.out
}

func (self *_GlobalResolver) breakCycle(pending []_LocationMove) {
    for i, m := range pending {
        if m.src.IsLocation() {
            slot := self.s.Frame.AcquireScratchSlot(m.src.Kind())
            self.scratch = append(self.scratch, slot)
            self.emit(lir.MoveSpill, slot, m.src)
            self.unblock(m.src)
            self.block(slot)
            pending[i].src = slot
            self.s.Stats.CycleBreakingSlots++
            return
        }
    }
    panic("lsra: cannot break a cycle of constants")
}

// check replays the emitted moves and makes sure every destination ends up
// with the value of its source.
func (self *_GlobalResolver) check() error {
    st := make(map[lir.Value]lir.Value)
    get := func(v lir.Value) lir.Value {
        if !v.IsLocation() {
            return v
        } else if r, ok := st[v.Key()]; ok {
            return r
        } else {
            return v.Key()
        }
    }

    /* replay */
    for _, ins := range self.out {
        mv := ins.(*lir.Move)
        st[mv.Result.V.Key()] = get(mv.Input.V)
    }

    /* compare with the requested moves */
    for _, m := range self.moves {
        want := m.src
        if want.IsLocation() {
            want = want.Key()
        }
        if got := get(m.dst); got != want {
            return errors.New("%s should hold %s, found %s", m.dst, m.src, got)
        }
    }
    return nil
}

/** Edges between Traces **/

// resolveGlobalDataFlow inserts the moves on every edge that leaves a trace,
// once all the traces have been allocated.
func (self *Session) resolveGlobalDataFlow() error {
    gr := newGlobalResolver(self)
    for _, bb := range self.Prog.Blocks {
        for _, s := range bb.Succ {
            if !isIntraTraceEdge(self.Traces, bb, s) {
                if err := self.resolveGlobalEdge(gr, bb, s); err != nil {
                    return err
                }
            }
        }
    }
    return nil
}

func (self *Session) resolveGlobalEdge(gr *_GlobalResolver, from *lir.Block, to *lir.Block) error {
    gr.reset()
    self.addLiveInMoves(gr, from, to)
    self.addPhiMoves(gr, from, to)

    /* nothing to do */
    if len(gr.moves) == 0 {
        return nil
    }

    /* order the moves */
    ins := gr.resolve()
    self.Stats.GlobalMoves += len(ins)

    /* check the order */
    if self.Opts.Verify {
        if err := gr.check(); err != nil {
            return &VerificationError {
                Trace  : self.Traces.TraceOf(to).Id,
                Block  : to.Id,
                Reason : fmt.Sprintf("edge from bb_%d: %v", from.Id, err),
            }
        }
    }

    /* before the jump, or after the label of the successor */
    var buf lir.InsertionBuffer
    if len(from.Succ) <= 1 {
        buf.Init(&from.Ins)
        for _, v := range ins {
            buf.Append(len(from.Ins) - 1, v)
        }
    } else if len(to.Pred) <= 1 {
        buf.Init(&to.Ins)
        for _, v := range ins {
            buf.Append(1, v)
        }
    } else {
        panic(fmt.Sprintf("lsra: critical edge bb_%d -> bb_%d", from.Id, to.Id))
    }

    /* insert the moves */
    buf.Finish()
    if tlog.If("lsra,global") {
        tlog.Printw("global moves", "from", from.Id, "to", to.Id, "moves", len(ins))
    }
    return nil
}

func (self *Session) addLiveInMoves(gr *_GlobalResolver, from *lir.Block, to *lir.Block) {
    for k, v := range self.Live.In[to.Id] {
        dst := self.Live.InLoc[to.Id][k]
        src := self.Live.OutLocation(from, v)

        /* every live-in is live-out of every predecessor */
        if src.IsNone() {
            panic(fmt.Sprintf("lsra: v%d has no location at the end of bb_%d", v, from.Id))
        }

        /* materialized at the successor */
        if dst.IsLocation() {
            gr.add(src, dst, lir.MoveResolve)
        }

        /* the successor expects a copy in the spill slot as well */
        if shadow := self.Live.InShadow[to.Id][k]; !shadow.IsNone() {
            gr.add(src, shadow, lir.MoveResolve)
        }
    }
}

func (self *Session) addPhiMoves(gr *_GlobalResolver, from *lir.Block, to *lir.Block) {
    jmp, ok := from.Term().(*lir.Jump)
    if !ok || jmp.To != to {
        return
    }

    /* phi outputs that are materialized need no move */
    for k, op := range to.Label().Incoming {
        if k < len(jmp.Outgoing) && op.V.IsLocation() {
            gr.add(jmp.Outgoing[k].V, op.V, lir.MovePhi)
        }
    }
}
