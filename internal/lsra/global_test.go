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
    `testing`

    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/lir`
    `github.com/stretchr/testify/require`
)

type _EdgeTest struct {
    s    *Session
    p    *lir.Program
    vals []lir.Value
}

// b0: x = load; y = load; c = load; br c, b1, b2
// b1: use x, y; ret
// b2: use x, y; ret
func newEdgeTest(t *testing.T) *_EdgeTest {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    c := b.Var(lir.KindInt)
    b1 := b.NewBlock()
    b2 := b.NewBlock()
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    b.Op("load", []lir.Value { c })
    b.Branch(c, b1, b2)
    b.At(b1).Op("use", nil, x, y)
    b.Return()
    b.At(b2).Op("use", nil, x, y)
    b.Return()
    b1.Probability = 0.9
    b2.Probability = 0.1
    p := b.Finish()
    return &_EdgeTest {
        s    : newTestSession(t, p, arch.Synthetic(4, 0), testOptions()),
        p    : p,
        vals : []lir.Value { x, y },
    }
}

func indexOf(vars []int, v lir.Value) int {
    for i, n := range vars {
        if n == v.Number() {
            return i
        }
    }
    panic("not live: " + v.String())
}

// place records where the value leaves b0 and where b2 expects it.
func (self *_EdgeTest) place(v lir.Value, out lir.Value, in lir.Value) {
    from, to := self.p.Blocks[0], self.p.Blocks[2]
    self.s.Live.OutLoc[from.Id][indexOf(self.s.Live.Out[from.Id], v)] = out
    k := indexOf(self.s.Live.In[to.Id], v)
    self.s.Live.InLoc[to.Id][k] = in
    self.s.Live.InShadow[to.Id][k] = lir.None
}

func (self *_EdgeTest) resolve(t *testing.T) []*lir.Move {
    var ret []*lir.Move
    bb := self.p.Blocks[2]
    require.NoError(t, self.s.resolveGlobalEdge(newGlobalResolver(self.s), self.p.Blocks[0], bb))

    /* the moves follow the label of the successor */
    for _, ins := range bb.Ins[1:] {
        if mv, ok := ins.(*lir.Move); ok {
            ret = append(ret, mv)
        } else {
            break
        }
    }
    return ret
}

func TestGlobal_BoundaryMove(t *testing.T) {
    et := newEdgeTest(t)
    r := arch.Synthetic(4, 0).Registers
    et.place(et.vals[0], r[0].Value(), r[1].Value())
    et.place(et.vals[1], r[2].Value(), r[2].Value())
    mvs := et.resolve(t)
    require.Len(t, mvs, 1)
    require.Equal(t, lir.MoveResolve, mvs[0].Kind)
    require.Equal(t, r[0].Value(), mvs[0].Input.V)
    require.Equal(t, r[1].Value(), mvs[0].Result.V)
    require.Equal(t, 1, et.s.Stats.GlobalMoves)
}

func TestGlobal_BoundaryInPlace(t *testing.T) {
    et := newEdgeTest(t)
    r := arch.Synthetic(4, 0).Registers
    n := len(et.p.Blocks[2].Ins)
    et.place(et.vals[0], r[1].Value(), r[1].Value())
    et.place(et.vals[1], r[2].Value(), r[2].Value())
    require.Empty(t, et.resolve(t))
    require.Len(t, et.p.Blocks[2].Ins, n)
    require.Zero(t, et.s.Stats.GlobalMoves)
}

func TestGlobal_BoundarySwap(t *testing.T) {
    et := newEdgeTest(t)
    r := arch.Synthetic(4, 0).Registers
    et.place(et.vals[0], r[0].Value(), r[1].Value())
    et.place(et.vals[1], r[1].Value(), r[0].Value())
    mvs := et.resolve(t)
    require.Len(t, mvs, 3)
    require.Equal(t, lir.MoveSpill, mvs[0].Kind)
    require.True(t, mvs[0].Result.V.IsStack())
    require.Equal(t, 1, et.s.Stats.CycleBreakingSlots)

    /* the parked slot is free again */
    slot := et.s.Frame.AcquireScratchSlot(lir.KindInt)
    require.Equal(t, mvs[0].Result.V.Key(), slot.Key())
}

func TestGlobal_CheckOrder(t *testing.T) {
    et := newEdgeTest(t)
    r := arch.Synthetic(4, 0).Registers
    r0, r1 := r[0].Value(), r[1].Value()
    gr := newGlobalResolver(et.s)
    gr.add(r0, r1, lir.MoveResolve)
    gr.add(r1, r0, lir.MoveResolve)

    /* a swap without a temporary loses one of the values */
    gr.emit(lir.MoveResolve, r1, r0)
    gr.emit(lir.MoveResolve, r0, r1)
    err := gr.check()
    require.Error(t, err)
    require.Contains(t, err.Error(), "should hold")

    /* the ordered moves are fine */
    gr.out = nil
    require.Len(t, gr.resolve(), 3)
    require.NoError(t, gr.check())
}
