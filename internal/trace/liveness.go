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

package trace

import (
    `fmt`
    `sort`
    `strings`

    `github.com/cloudwego/tracera/lir`
    `github.com/oleiade/lane`
)

// Liveness is the global liveness information of a program. In[b] holds the
// variables live at the start of block b after its label, Out[b] the ones
// live at the end of block b after its terminator, both sorted. Phi outputs
// are defined by the label, phi inputs are used by the jump.
//
// InLoc and OutLoc are parallel to In and Out, they hold the location of each
// variable at the block boundaries once the block has been allocated. When a
// live-in variable is expected both in a register and in its spill slot, the
// slot is recorded in InShadow, otherwise InShadow holds lir.None.
type Liveness struct {
    In       [][]int
    Out      [][]int
    InLoc    [][]lir.Value
    OutLoc   [][]lir.Value
    InShadow [][]lir.Value
}

func find(vars []int, v int) int {
    if i := sort.SearchInts(vars, v); i < len(vars) && vars[i] == v {
        return i
    } else {
        return -1
    }
}

// IsLiveIn reports whether variable v is live at the start of bb.
func (self *Liveness) IsLiveIn(bb *lir.Block, v int) bool {
    return find(self.In[bb.Id], v) >= 0
}

// IsLiveOut reports whether variable v is live at the end of bb.
func (self *Liveness) IsLiveOut(bb *lir.Block, v int) bool {
    return find(self.Out[bb.Id], v) >= 0
}

// InLocation returns the location of v at the start of bb, or lir.None.
func (self *Liveness) InLocation(bb *lir.Block, v int) lir.Value {
    if i := find(self.In[bb.Id], v); i < 0 {
        return lir.None
    } else {
        return self.InLoc[bb.Id][i]
    }
}

// InShadowSlot returns the stack slot that must also hold v when entering
// bb, or lir.None.
func (self *Liveness) InShadowSlot(bb *lir.Block, v int) lir.Value {
    if i := find(self.In[bb.Id], v); i < 0 {
        return lir.None
    } else {
        return self.InShadow[bb.Id][i]
    }
}

// OutLocation returns the location of v at the end of bb, or lir.None.
func (self *Liveness) OutLocation(bb *lir.Block, v int) lir.Value {
    if i := find(self.Out[bb.Id], v); i < 0 {
        return lir.None
    } else {
        return self.OutLoc[bb.Id][i]
    }
}

func (self *Liveness) String() string {
    buf := make([]string, 0, len(self.In))
    for i := range self.In {
        buf = append(buf, fmt.Sprintf("bb_%d: in=%v out=%v", i, self.In[i], self.Out[i]))
    }
    return strings.Join(buf, "\n")
}

type _BlockLiveness struct {
    gen  bitset
    kill bitset
}

func transfer(bb *lir.Block, nv int) _BlockLiveness {
    ret := _BlockLiveness {
        gen  : newBitset(nv),
        kill : newBitset(nv),
    }

    /* scan the block backwards */
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        ins := bb.Ins[i]

        /* definitions kill */
        for _, v := range ins.Operands(lir.Def) {
            if v.V.IsVariable() {
                ret.gen.unset(v.V.Number())
                ret.kill.set(v.V.Number())
            }
        }

        /* uses generate */
        for _, m := range [...]lir.OperandMode { lir.Use, lir.Alive, lir.State } {
            for _, v := range ins.Operands(m) {
                if v.V.IsVariable() {
                    ret.gen.set(v.V.Number())
                }
            }
        }
    }
    return ret
}

// ComputeLiveness computes the global liveness of every variable of p.
func ComputeLiveness(p *lir.Program) *Liveness {
    nb := len(p.Blocks)
    nv := p.NumVars()
    in := make([]bitset, nb)
    out := make([]bitset, nb)
    tf := make([]_BlockLiveness, nb)
    queued := make([]bool, nb)
    worklist := lane.NewQueue()

    /* local information */
    for i := nb - 1; i >= 0; i-- {
        bb := p.Blocks[i]
        tf[bb.Id] = transfer(bb, nv)
        in[bb.Id] = newBitset(nv)
        out[bb.Id] = newBitset(nv)
        queued[bb.Id] = true
        worklist.Enqueue(bb)
    }

    /* backward data-flow until fixed point */
    for !worklist.Empty() {
        bb := worklist.Dequeue().(*lir.Block)
        queued[bb.Id] = false

        /* out = U in(succ) */
        for _, s := range bb.Succ {
            out[bb.Id].union(in[s.Id])
        }

        /* in = gen U (out - kill) */
        ni := out[bb.Id].clone()
        for i, v := range tf[bb.Id].kill {
            ni[i] &^= v
        }

        /* check for changes */
        if ni.union(tf[bb.Id].gen); ni.equals(in[bb.Id]) {
            continue
        }

        /* update and propagate to predecessors */
        in[bb.Id] = ni
        for _, pred := range bb.Pred {
            if !queued[pred.Id] {
                queued[pred.Id] = true
                worklist.Enqueue(pred)
            }
        }
    }

    /* build the result */
    ret := &Liveness {
        In       : make([][]int, nb),
        Out      : make([][]int, nb),
        InLoc    : make([][]lir.Value, nb),
        OutLoc   : make([][]lir.Value, nb),
        InShadow : make([][]lir.Value, nb),
    }

    /* convert to sorted slices */
    for i := 0; i < nb; i++ {
        ret.In[i] = in[i].slice()
        ret.Out[i] = out[i].slice()
        ret.InLoc[i] = make([]lir.Value, len(ret.In[i]))
        ret.OutLoc[i] = make([]lir.Value, len(ret.Out[i]))
        ret.InShadow[i] = make([]lir.Value, len(ret.In[i]))
    }
    return ret
}
