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

package lir

import (
    `testing`

    `github.com/stretchr/testify/require`
)

func TestValue_Predicates(t *testing.T) {
    r := Reg(3, KindInt)
    v := Var(7, KindFloat)
    s := StackSlot(16, KindInt)
    c := Const(42, KindInt)
    require.True(t, r.IsRegister() && r.IsAllocatable() && r.IsLocation())
    require.True(t, v.IsVariable() && v.IsAllocatable() && !v.IsLocation())
    require.True(t, s.IsStack() && s.IsLocation() && !s.IsAllocatable())
    require.True(t, VirtualStackSlot(1, KindInt).IsStack())
    require.True(t, c.IsConstant())
    require.Equal(t, int64(42), c.Constant())
    require.Equal(t, 7, v.Number())
    require.True(t, None.IsNone())
    require.True(t, Illegal.IsIllegal())
    require.Equal(t, Reg(3, KindFloat).Key(), r.Key())
    require.NotEqual(t, StackSlot(3, KindInt).Key(), r.Key())
    require.Panics(t, func() { c.Number() })
    require.Equal(t, "v7f", v.String())
}

func TestInstr_Operands(t *testing.T) {
    b := NewBuilder()
    x := b.Var(KindInt)
    y := b.Var(KindInt)
    z := b.Var(KindInt)
    b.Const(x, 1)
    mv := b.Move(y, x)
    op := b.BinOp("add", z, x, y)
    b.Return(z)
    p := b.Finish()

    require.Len(t, p.Entry().Ins, 5)
    require.Equal(t, []*Operand { &mv.Input }, mv.Operands(Use))
    require.Equal(t, &mv.Input, mv.HintFor(&mv.Result))
    require.Equal(t, &op.Uses[0], op.HintFor(&op.Defs[0]))
    require.Nil(t, op.HintFor(&op.Uses[0]))
    require.False(t, DestroysCallerSaved(op))
    require.True(t, IsBlockEnd(p.Entry().Term()))

    /* rewriting through the operand pointers changes the instruction */
    op.Operands(Def)[0].V = Reg(0, KindInt)
    require.Equal(t, Reg(0, KindInt), op.Defs[0].V)
}

func TestBuilder_KeepsTerminatorLast(t *testing.T) {
    b := NewBuilder()
    x := b.Var(KindInt)
    b.Return(x)
    b.Const(x, 5)
    bb := b.Block()
    require.IsType(t, &Label{}, bb.Ins[0])
    require.IsType(t, &Move{}, bb.Ins[1])
    require.IsType(t, &Return{}, bb.Ins[2])
}

func TestInsertionBuffer_Order(t *testing.T) {
    b := NewBuilder()
    x := b.Var(KindInt)
    b.Const(x, 1)
    b.Return(x)
    bb := b.Finish().Entry()

    m1 := NewMove(MoveSpill, StackSlot(0, KindInt), Reg(0, KindInt))
    m2 := NewMove(MoveSpill, StackSlot(8, KindInt), Reg(1, KindInt))
    m3 := NewMove(MoveResolve, Reg(1, KindInt), Reg(0, KindInt))

    var buf InsertionBuffer
    buf.Init(&bb.Ins)
    require.True(t, buf.Initialized())
    buf.Append(2, m1)
    buf.Append(1, m3)
    buf.Append(2, m2)
    buf.Finish()
    require.False(t, buf.Initialized())

    require.Len(t, bb.Ins, 6)
    require.Same(t, m3, bb.Ins[1])
    require.Same(t, m1, bb.Ins[3])
    require.Same(t, m2, bb.Ins[4])
    require.IsType(t, &Return{}, bb.Ins[5])
    require.Equal(t, -1, m1.Id())
}

func TestSplitCriticalEdges(t *testing.T) {
    b := NewBuilder()
    c := b.Var(KindInt)
    b0 := b.Block()
    b1 := b.NewBlock()
    b2 := b.NewBlock()
    b.Const(c, 1)
    b.Branch(c, b1, b2)
    b.At(b1).Jump(b2)
    b.At(b2).Return()
    p := b.Finish()

    require.Equal(t, 1, SplitCriticalEdges(p))
    require.Len(t, p.Blocks, 4)

    nb := p.Blocks[3]
    require.Equal(t, []*Block { b1, nb }, b0.Succ)
    require.Equal(t, []*Block { b0 }, nb.Pred)
    require.Equal(t, []*Block { b2 }, nb.Succ)
    require.Equal(t, []*Block { nb, b1 }, b2.Pred)
    require.Same(t, nb, b0.Term().(*Branch).Else)
    require.Equal(t, 0, SplitCriticalEdges(p))
}
