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

package tracera

import (
    `testing`

    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/internal/opts`
    `github.com/cloudwego/tracera/lir`
    `github.com/stretchr/testify/require`
)

// b0: x = load; c = load; br c, b1, b2
// b1: y = add x, x; jmp b3(y)
// b2: jmp b3(x)
// b3: z = phi; ret z
func diamond() (*lir.Program, lir.Value, lir.Value) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    c := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    z := b.Var(lir.KindInt)
    b1 := b.NewBlock()
    b2 := b.NewBlock()
    b3 := b.NewBlock()
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { c })
    b.Branch(c, b1, b2)
    b.At(b1).BinOp("add", y, x, x)
    b.Jump(b3, y)
    b.At(b2).Jump(b3, x)
    b.At(b3).Phi(z)
    b.Return(z)
    b1.Probability = 0.9
    b2.Probability = 0.1
    return b.Finish(), x, z
}

func TestAllocate_Empty(t *testing.T) {
    _, err := Allocate(new(lir.Program), arch.Synthetic(2, 0))
    require.Error(t, err)
}

func TestAllocate_Diamond(t *testing.T) {
    p, x, z := diamond()
    res, err := Allocate(p, arch.Synthetic(4, 0), WithVerify(true))
    require.NoError(t, err)
    require.Same(t, p, res.Program)
    require.Equal(t, 0, res.FrameSize)
    require.Equal(t, res.Stats.Traces, len(res.Traces))

    /* every block is in exactly one trace */
    seen := make(map[int]bool)
    for _, tr := range res.Traces {
        for _, id := range tr {
            require.False(t, seen[id])
            seen[id] = true
        }
    }
    require.Len(t, seen, len(p.Blocks))

    /* the entry trace follows the likely path */
    require.Equal(t, []int { 0, 1, 3 }, res.Traces[0])

    /* locations at the block boundaries */
    require.True(t, res.ExitLocation(p.Blocks[0], x).IsRegister())
    require.True(t, res.EntryLocation(p.Blocks[2], x).IsLocation())
    require.True(t, res.ExitLocation(p.Blocks[0], z).IsNone())
}

func TestAllocate_Spill(t *testing.T) {
    b := lir.NewBuilder()
    var vals []lir.Value
    for i := 0; i < 6; i++ {
        v := b.Var(lir.KindInt)
        b.Op("load", []lir.Value { v })
        vals = append(vals, v)
    }
    for _, v := range vals {
        b.Op("use", nil, v)
    }
    b.Return()

    /* six values and three registers */
    res, err := Allocate(b.Finish(), arch.Synthetic(3, 0), WithVerify(true))
    require.NoError(t, err)
    require.NotZero(t, res.FrameSize)
    require.NotZero(t, res.Stats.SpillSlots + res.Stats.CachedSpillSlots)
}

func TestAllocate_OutOfRegisters(t *testing.T) {
    b := lir.NewBuilder()
    x := b.Var(lir.KindInt)
    y := b.Var(lir.KindInt)
    b.Op("load", []lir.Value { x })
    b.Op("load", []lir.Value { y })
    b.Op("use2", nil, x, y)
    b.Return()

    /* a single register for two operands */
    _, err := Allocate(b.Finish(), arch.Synthetic(1, 0))
    require.Error(t, err)
    var oor *OutOfRegistersError
    require.ErrorAs(t, err, &oor)
    require.Equal(t, 0, oor.Trace)
}

func TestOptions_Parallelism(t *testing.T) {
    require.Panics(t, func() { WithParallelism(0) })
    require.Panics(t, func() { WithParallelism(1025) })
    o := opts.GetDefaultOptions()
    WithParallelism(8)(&o)
    require.Equal(t, 8, o.Parallelism)
    require.False(t, o.Sequential())
}

func TestOptions_SetVerify(t *testing.T) {
    old := SetVerify(true)
    defer SetVerify(old)
    require.True(t, opts.GetDefaultOptions().Verify)
    require.True(t, SetVerify(false))
    require.False(t, opts.GetDefaultOptions().Verify)
}

func TestAllocate_Parallel(t *testing.T) {
    p, _, _ := diamond()
    res, err := Allocate(p, arch.Synthetic(2, 0), WithParallelism(4), WithVerify(true))
    require.NoError(t, err)
    require.Equal(t, res.Stats.Traces, len(res.Traces))
}
