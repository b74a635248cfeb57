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

    `github.com/cloudwego/tracera/internal/trace`
    `github.com/cloudwego/tracera/lir`
)

// isIntraTraceEdge reports whether the edge p -> s is resolved by the trace
// that contains both blocks: either s follows p in the trace, or p is the
// loop end closing the trace.
func isIntraTraceEdge(res *trace.Result, p *lir.Block, s *lir.Block) bool {
    if !res.SameTrace(p, s) {
        return false
    }

    /* consecutive blocks, or the back edge at the end of the trace */
    i := res.IndexOf(p)
    t := res.TraceOf(p)
    return res.IndexOf(s) == i + 1 || (i == len(t.Blocks) - 1 && p.LoopEnd)
}

// resolveDataFlow inserts moves on the edges inside the trace where a value
// does not stay in the same location across the edge.
func (self *TraceAllocator) resolveDataFlow() {
    mr := newMoveResolver(self)
    for i, bb := range self.blocks {
        for _, s := range bb.Succ {
            if j := self.traceSuccessor(i, s); j >= 0 {
                self.resolveEdge(mr, i, j)
            }
        }
    }
}

func (self *TraceAllocator) resolveEdge(mr *_MoveResolver, fi int, ti int) {
    from := self.blocks[fi]
    to := self.blocks[ti]
    fromId := self.lastId[fi]
    toId := self.firstId[ti]

    /* values live across the edge */
    for _, v := range self.live.In[to.Id] {
        it := self.intervals[v]
        dst := it.getSplitChildAtOpId(toId, lir.Def)

        /* values not alive at the target are not moved */
        if dst == nil {
            continue
        }

        /* the source must be alive */
        src := it.getSplitChildAtOpId(fromId, lir.Use)
        if src == nil {
            panic(fmt.Sprintf("lsra: %s is not alive at the end of bb_%d", it.Operand, from.Id))
        }

        /* different locations need a move */
        if src != dst {
            mr.addMapping(src, dst, lir.MoveResolve)
        }
    }

    /* phi values */
    if jmp, ok := from.Term().(*lir.Jump); ok {
        for k, op := range to.Label().Incoming {
            if op.V.IsVariable() && k < len(jmp.Outgoing) {
                self.resolvePhi(mr, jmp.Outgoing[k].V, op.V, fromId, toId)
            }
        }
    }

    /* nothing to do */
    if !mr.hasMappings() {
        return
    }

    /* before the jump, or at the start of the successor */
    if len(from.Succ) <= 1 {
        mr.setInsertPosition(&from.Ins, len(from.Ins) - 1)
    } else {
        mr.setInsertPosition(&to.Ins, 1)
    }

    /* emit the moves */
    mr.resolveAndAppendMoves()
}

func (self *TraceAllocator) resolvePhi(mr *_MoveResolver, src lir.Value, dst lir.Value, fromId int, toId int) {
    dit := self.intervals[dst.Number()].getSplitChildAtOpId(toId, lir.Def)
    if dit == nil {
        return
    }

    /* constant inputs are loaded directly */
    if src.IsConstant() {
        mr.addConstMapping(src, dit, lir.MovePhi)
        return
    }

    /* only variables can be passed within a trace */
    if !src.IsVariable() {
        panic("lsra: unsupported phi input: " + src.String())
    }

    /* the value of the input at the jump */
    sit := self.intervals[src.Number()].getSplitChildAtOpId(fromId, lir.Use)
    if sit == nil {
        panic(fmt.Sprintf("lsra: phi input %s is not alive at %d", src, fromId))
    }

    /* the phi output is a different variable, the move always defines it */
    mr.addMapping(sit, dit, lir.MovePhi)
}
