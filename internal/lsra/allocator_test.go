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
    `os`
    `path/filepath`
    `testing`

    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/internal/opts`
    `github.com/cloudwego/tracera/internal/trace`
    `github.com/cloudwego/tracera/lir`
    `github.com/stretchr/testify/require`
)

func testOptions() opts.Options {
    o := opts.GetDefaultOptions()
    o.Verify = true
    o.Parallelism = 1
    o.DumpDir = ""
    return o
}

func newTestSession(t *testing.T, p *lir.Program, cfg *arch.Config, o opts.Options) *Session {
    lir.SplitCriticalEdges(p)
    require.NoError(t, trace.AnalyzeLoops(p))
    return NewSession(p, cfg, trace.Build(p), trace.ComputeLiveness(p), o)
}

func requireAllocated(t *testing.T, p *lir.Program) {
    p.ForEachInstr(func(bb *lir.Block, ins lir.Instr) {
        for _, mode := range lir.Modes {
            for _, op := range ins.Operands(mode) {
                require.False(t, op.V.IsVariable(), "bb_%d: %s", bb.Id, ins)
            }
        }
    })
}

// x = load; y = load; z = add x, y; ret z
func linearProgram() *lir.Program {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    z := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    b.BinOp("add", z, x, y)
    b.Return(z)
    return b.Finish()
}

// n values loaded up front and summed one after another
func pressureProgram(n int) *lir.Program {
    b := lir.NewBuilder()
    vals := make([]lir.Value, n)
    for i := range vals {
        vals[i] = b.Var(lir.KindInt)
        b.Op("load", []lir.Value { vals[i] })
    }
    sum := vals[0]
    for _, v := range vals[1:] {
        s := b.Var(lir.KindInt)
        b.BinOp("add", s, sum, v)
        sum = s
    }
    b.Return(sum)
    return b.Finish()
}

// b0 -> b1 <-> b2, b1 -> b3 with a loop counter passed through a phi
func loopProgram() *lir.Program {
    b := lir.NewBuilder()
    i0 := b.Var(lir.KindInt)
    i1 := b.Var(lir.KindInt)
    i2 := b.Var(lir.KindInt)
    c := b.Var(lir.KindInt)
    b0 := b.Block()
    b1 := b.NewBlock()
    b2 := b.NewBlock()
    b3 := b.NewBlock()
    b.Const(i0, 0)
    b.Jump(b1, i0)
    b.At(b1).Phi(i1)
    b.Op("cmp", []lir.Value { c }, i1)
    b.Branch(c, b2, b3)
    b.At(b2).BinOp("add", i2, i1, i1)
    b.Jump(b1, i2)
    b.At(b3).Return(i1)
    b0.Probability = 1
    b1.Probability = 10
    b2.Probability = 9
    b3.Probability = 1
    return b.Finish()
}

func TestAllocator_LinearTrace(t *testing.T) {
    p := linearProgram()
    s := newTestSession(t, p, arch.Synthetic(4, 0), testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.Equal(t, 1, s.Stats.Traces)
    require.Equal(t, 0, s.Stats.SpillMovesInserted)
    require.Equal(t, 0, s.Frame.FrameSize())

    /* everything in registers */
    p.ForEachInstr(func(_ *lir.Block, ins lir.Instr) {
        for _, op := range ins.Operands(lir.Use) {
            require.True(t, op.V.IsRegister(), ins.String())
        }
    })
}

func TestAllocator_Spill(t *testing.T) {
    p := pressureProgram(5)
    s := newTestSession(t, p, arch.Synthetic(2, 0), testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.NotZero(t, s.Stats.SpillMovesInserted)
    require.NotZero(t, s.Stats.Splits)
    require.NotZero(t, s.Frame.FrameSize())
}

func TestAllocator_SpillWithoutElimination(t *testing.T) {
    o := testOptions()
    o.EliminateSpillMoves = false
    p := pressureProgram(5)
    s := newTestSession(t, p, arch.Synthetic(2, 0), o)
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.Zero(t, s.Stats.SpillMovesEliminated)
}

func TestAllocator_OutOfRegisters(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    z := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    b.Op("load", []lir.Value { z })
    b.Op("use3", nil, x, y, z)
    b.Return()

    /* three values needed in two registers at the same time */
    s := newTestSession(t, b.Finish(), arch.Synthetic(2, 0), testOptions())
    err := s.NewTraceAllocator(s.Traces.Traces[0]).Allocate()
    require.Error(t, err)
    require.IsType(t, &OutOfRegistersError{}, err)
    require.NotEmpty(t, err.(*OutOfRegistersError).Dump)
}

func TestAllocator_Call(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    r := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Call("f", []lir.Value { r })
    ret := b.Return(x, r)
    p := b.Finish()

    /* r0 and r1 are caller-saved */
    cfg := arch.Synthetic(4, 0)
    s := newTestSession(t, p, cfg, testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)

    /* the value live across the call must survive it */
    if v := ret.Values[0].V; v.IsRegister() {
        require.False(t, cfg.IsCallerSaved(v.Number()), p.String())
    }
}

func TestAllocator_Loop(t *testing.T) {
    p := loopProgram()
    s := newTestSession(t, p, arch.Synthetic(3, 0), testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.Equal(t, 2, s.Stats.Traces)

    /* the phi output is in a register or slot */
    for _, op := range p.Blocks[1].Label().Incoming {
        require.True(t, op.V.IsLocation() || op.V.IsIllegal())
    }
}

func TestAllocator_Parallel(t *testing.T) {
    o := testOptions()
    o.Parallelism = 4
    p := loopProgram()
    s := newTestSession(t, p, arch.Synthetic(3, 0), o)
    require.NoError(t, s.Run())
    requireAllocated(t, p)
}

func TestAllocator_IdempotentAssignment(t *testing.T) {
    p := pressureProgram(4)
    s := newTestSession(t, p, arch.Synthetic(2, 0), testOptions())
    a := s.NewTraceAllocator(s.Traces.Traces[0])
    require.NoError(t, a.Allocate())
    before := p.String()
    a.assignLocations()
    require.Equal(t, before, p.String())
}

func TestAllocator_Intervals(t *testing.T) {
    p := pressureProgram(6)
    s := newTestSession(t, p, arch.Synthetic(3, 0), testOptions())
    a := s.NewTraceAllocator(s.Traces.Traces[0])
    require.NoError(t, a.Allocate())

    /* split children partition their parents */
    for _, it := range a.Intervals() {
        cs := it.Children()
        for i := 1; i < len(cs); i++ {
            require.Equal(t, cs[i - 1].To(), cs[i].From(), it.String())
        }
    }

    /* no two intervals in the same register at the same time */
    ivs := a.Intervals()
    for i, x := range ivs {
        for _, y := range ivs[i + 1:] {
            if x.Location().IsRegister() && x.Location().Key() == y.Location().Key() {
                require.False(t, x.intersects(y), "%s and %s", x, y)
            }
        }
    }
}

func TestAllocator_Dump(t *testing.T) {
    dir := t.TempDir()
    o := testOptions()
    o.DumpDir = dir
    s := newTestSession(t, linearProgram(), arch.Synthetic(4, 0), o)
    require.NoError(t, s.Run())
    for _, ext := range []string { ".txt", ".svg" } {
        st, err := os.Stat(filepath.Join(dir, "trace_0" + ext))
        require.NoError(t, err)
        require.NotZero(t, st.Size())
    }
}

func TestAllocator_CallState(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    call := b.Call("f", nil)
    call.States = []lir.Operand { lir.OpAny(x) }
    b.Return()
    p := b.Finish()

    /* the state is observed after the call */
    cfg := arch.Synthetic(4, 0)
    s := newTestSession(t, p, cfg, testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    if v := call.States[0].V; v.IsRegister() {
        require.False(t, cfg.IsCallerSaved(v.Number()), p.String())
    } else {
        require.True(t, v.IsStack(), p.String())
    }
}

func TestAllocator_CallOutputEvictsInput(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    r := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    call := b.Call("f", []lir.Value { r }, x, y)
    b.Op("use", nil, x)
    b.Return(r)
    p := b.Finish()

    /* r2 is the only callee-saved register, x is read by the call and needed after it */
    cfg := arch.Synthetic(3, 0)
    s := newTestSession(t, p, cfg, testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.NotZero(t, s.Frame.FrameSize())

    /* the result takes the callee-saved register */
    res := call.Defs[0].V
    require.True(t, res.IsRegister(), p.String())
    require.False(t, cfg.IsCallerSaved(res.Number()), p.String())
}

func TestAllocator_CallInputAndState(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    call := b.Call("f", nil, x, y)
    call.States = []lir.Operand { lir.OpAny(y) }
    b.Op("use", nil, x)
    b.Return()
    p := b.Finish()

    /* x takes the callee-saved register, y only fits a caller-saved one until the call */
    cfg := arch.Synthetic(3, 0)
    s := newTestSession(t, p, cfg, testOptions())
    require.NoError(t, s.Run())
    requireAllocated(t, p)
    require.True(t, call.Uses[1].V.IsRegister(), p.String())
    require.True(t, call.States[0].V.IsStack(), p.String())
}

func TestAllocator_SingleSpill(t *testing.T) {
    b := lir.NewBuilder()
    vals := make([]lir.Value, 4)
    for i := range vals {
        vals[i] = b.Var(lir.KindInt)
        b.Op("load", []lir.Value { vals[i] })
    }
    for _, v := range vals {
        b.Op("use", nil, v)
    }
    b.Return()

    /* one value more than registers */
    s := newTestSession(t, b.Finish(), arch.Synthetic(3, 0), testOptions())
    a := s.NewTraceAllocator(s.Traces.Traces[0])
    require.NoError(t, a.Allocate())

    /* exactly one of them goes to memory */
    n := 0
    for _, it := range a.Intervals() {
        if it.IsSplitParent() && !it.SpillSlot().IsNone() {
            n++
        }
    }
    require.Equal(t, 1, n)
}

func TestAllocator_StateVerified(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Call("f", nil).States = []lir.Operand { lir.OpAny(x) }
    b.Return()

    /* allocate without rewriting the program */
    cfg := arch.Synthetic(4, 0)
    s := newTestSession(t, b.Finish(), cfg, testOptions())
    a := s.NewTraceAllocator(s.Traces.Traces[0])
    a.numberInstructions()
    a.buildIntervals()
    a.sortIntervalsBeforeAllocation()
    a.allocateRegisters()
    a.resolveDataFlow()
    require.NoError(t, a.verifyRegisters())

    /* a caller-saved register does not survive the call */
    for _, c := range a.intervalFor(x).Children() {
        c.location = cfg.Registers[0].Value()
    }
    err := a.verifyRegisters()
    require.Error(t, err)
    require.IsType(t, &VerificationError{}, err)
    require.Contains(t, err.(*VerificationError).Instr, "state")
}

func TestWalker_WalkBackwards(t *testing.T) {
    s := newTestSession(t, linearProgram(), arch.Synthetic(4, 0), testOptions())
    a := s.NewTraceAllocator(s.Traces.Traces[0])
    a.numberInstructions()
    a.buildIntervals()
    w := newWalker(a, _EndMarker)
    w.walkTo(10)
    require.Equal(t, 10, w.position)
    require.NotPanics(t, func() { w.walkTo(10) })
    require.Panics(t, func() { w.walkTo(4) })
}
