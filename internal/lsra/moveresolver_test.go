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
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/tracera/internal/frame`
    `github.com/cloudwego/tracera/lir`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

type _MoveTest struct {
    a  *TraceAllocator
    mr *_MoveResolver
    bb *lir.Block
}

func newMoveTest() *_MoveTest {
    b := lir.NewBuilder()
    b.Return()
    a := newTestAllocator(0)
    a.frame = frame.NewBuilder()
    return &_MoveTest { a: a, mr: newMoveResolver(a), bb: b.Block() }
}

func (self *_MoveTest) interval(loc lir.Value) *TraceInterval {
    it := newTraceInterval(lir.Var(len(self.a.intervals), lir.KindInt))
    it.assignLocation(loc)
    self.a.intervals = append(self.a.intervals, it)
    return it
}

func (self *_MoveTest) resolve() []lir.Instr {
    self.mr.setInsertPosition(&self.bb.Ins, len(self.bb.Ins) - 1)
    self.mr.resolveAndAppendMoves()
    return self.bb.Ins[1:len(self.bb.Ins) - 1]
}

func (self *_MoveTest) locationOf(v lir.Value) lir.Value {
    if v.IsVariable() {
        return self.a.intervals[v.Number()].location.Key()
    } else {
        return v.Key()
    }
}

// simulate runs the moves on a state where every location holds its own name.
func (self *_MoveTest) simulate(ins []lir.Instr) map[lir.Value]string {
    st := make(map[lir.Value]string)
    get := func(v lir.Value) string {
        if v.IsConstant() {
            return v.String()
        } else if r, ok := st[self.locationOf(v)]; ok {
            return r
        } else {
            return self.locationOf(v).String()
        }
    }
    for _, v := range ins {
        mv := v.(*lir.Move)
        st[self.locationOf(mv.Result.V)] = get(mv.Input.V)
    }
    return st
}

func TestMoveResolver_Chain(t *testing.T) {
    mt := newMoveTest()
    r0, r1, r2 := lir.Reg(0, lir.KindInt), lir.Reg(1, lir.KindInt), lir.Reg(2, lir.KindInt)
    mt.mr.addMapping(mt.interval(r0), mt.interval(r1), lir.MoveResolve)
    mt.mr.addMapping(mt.interval(r1), mt.interval(r2), lir.MoveResolve)
    ins := mt.resolve()
    require.Len(t, ins, 2)
    st := mt.simulate(ins)
    require.Equal(t, r0.Key().String(), st[r1.Key()])
    require.Equal(t, r1.Key().String(), st[r2.Key()])
    require.Equal(t, 0, mt.a.stats.CycleBreakingSlots)
}

func TestMoveResolver_Rotation(t *testing.T) {
    mt := newMoveTest()
    r0, r1, r2 := lir.Reg(0, lir.KindInt), lir.Reg(1, lir.KindInt), lir.Reg(2, lir.KindInt)
    v0 := mt.interval(r0)
    mt.mr.addMapping(v0, mt.interval(r1), lir.MoveResolve)
    mt.mr.addMapping(mt.interval(r1), mt.interval(r2), lir.MoveResolve)
    mt.mr.addMapping(mt.interval(r2), mt.interval(r0), lir.MoveResolve)
    ins := mt.resolve()

    /* one store into the spill slot and one reload from it */
    require.Len(t, ins, 4, spew.Sdump(ins))
    require.Equal(t, lir.MoveSpill, ins[0].(*lir.Move).Kind)
    require.Equal(t, 1, mt.a.stats.SpillMovesInserted)
    require.Equal(t, 3, mt.a.stats.ResolutionMoves)
    require.Equal(t, 1, mt.a.stats.CycleBreakingSlots)
    require.True(t, v0.SpillSlot().IsStack())

    /* every value ends up in its place */
    st := mt.simulate(ins)
    require.Equal(t, r0.Key().String(), st[r1.Key()])
    require.Equal(t, r1.Key().String(), st[r2.Key()])
    require.Equal(t, r2.Key().String(), st[r0.Key()])
}

func TestMoveResolver_StackCycle(t *testing.T) {
    mt := newMoveTest()
    s0, s1 := lir.VirtualStackSlot(0, lir.KindInt), lir.VirtualStackSlot(1, lir.KindInt)
    mt.mr.addMapping(mt.interval(s0), mt.interval(s1), lir.MoveResolve)
    mt.mr.addMapping(mt.interval(s1), mt.interval(s0), lir.MoveResolve)
    ins := mt.resolve()

    /* parked in a scratch slot */
    require.Len(t, ins, 3, spew.Sdump(ins))
    require.Equal(t, lir.MoveSpill, ins[0].(*lir.Move).Kind)
    require.Equal(t, 1, mt.a.stats.CycleBreakingSlots)
    scratch := mt.locationOf(ins[0].(*lir.Move).Result.V)
    require.True(t, scratch.IsStackSlot())

    /* the values are swapped */
    st := mt.simulate(ins)
    require.Equal(t, s0.Key().String(), st[s1.Key()])
    require.Equal(t, s1.Key().String(), st[s0.Key()])

    /* and the slot is free for the next cycle */
    require.Equal(t, scratch, mt.a.frame.AcquireScratchSlot(lir.KindInt).Key())
}

func TestMoveResolver_Constants(t *testing.T) {
    mt := newMoveTest()
    r0, r1 := lir.Reg(0, lir.KindInt), lir.Reg(1, lir.KindInt)
    mat := mt.interval(lir.Illegal)
    mat.addMaterializationValue(lir.Const(5, lir.KindInt))
    mt.mr.addConstMapping(lir.Const(3, lir.KindInt), mt.interval(r0), lir.MovePhi)
    mt.mr.addMapping(mt.interval(r0), mt.interval(r1), lir.MoveResolve)
    mt.mr.addMapping(mat, mt.interval(lir.Reg(2, lir.KindInt)), lir.MoveResolve)
    mt.mr.addMapping(mt.interval(r1), mat, lir.MoveResolve)
    ins := mt.resolve()

    /* materialized targets are skipped, the constant is written last */
    require.Len(t, ins, 3)
    st := mt.simulate(ins)
    require.Equal(t, "$3", st[r0.Key()])
    require.Equal(t, r0.Key().String(), st[r1.Key()])
    require.Equal(t, "$5", st[lir.Reg(2, lir.KindInt).Key()])
}

func TestMoveResolver_Random(t *testing.T) {
    for seed := int64(0); seed < 200; seed++ {
        f := gofakeit.New(seed + 1)
        mt := newMoveTest()

        /* registers and virtual slots, the frame allocates real ones */
        var pool []lir.Value
        for i := 0; i < 6; i++ {
            pool = append(pool, lir.Reg(i, lir.KindInt))
        }
        for i := 0; i < 4; i++ {
            pool = append(pool, lir.VirtualStackSlot(i, lir.KindInt))
        }

        /* distinct destinations, arbitrary sources */
        idx := make([]int, len(pool))
        for i := range idx {
            idx[i] = i
        }
        f.ShuffleInts(idx)
        want := make(map[lir.Value]string)
        for _, d := range idx[:f.Number(1, len(pool))] {
            dst := pool[d]
            if f.Number(0, 9) == 0 {
                c := lir.Const(int64(f.Number(0, 100)), lir.KindInt)
                mt.mr.addConstMapping(c, mt.interval(dst), lir.MoveResolve)
                want[dst.Key()] = c.String()
            } else {
                src := pool[f.Number(0, len(pool) - 1)]
                mt.mr.addMapping(mt.interval(src), mt.interval(dst), lir.MoveResolve)
                want[dst.Key()] = src.Key().String()
            }
        }

        /* check the outcome of the moves */
        ins := mt.resolve()
        st := mt.simulate(ins)
        for loc, v := range want {
            if v == loc.String() {
                continue
            }
            require.Equal(t, v, st[loc], fmt.Sprintf("seed %d\n%s", seed, mt.bb))
        }
    }
}
