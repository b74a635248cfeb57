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
    `fmt`
)

type _CrEdge struct {
    to   *Block
    from *Block
}

// SplitCriticalEdges splits critical edges (those that go from a block with
// more than one outedge to a block with more than one inedge) by inserting
// an empty block. Resolution moves can then always be placed either at the
// end of the predecessor or at the start of the successor.
//
// It returns the number of edges split.
func SplitCriticalEdges(p *Program) int {
    var edges []_CrEdge

    /* find all critical edges */
    for _, bb := range p.Blocks {
        if len(bb.Pred) > 1 {
            for _, pred := range bb.Pred {
                if len(pred.Succ) > 1 {
                    edges = append(edges, _CrEdge {
                        to   : bb,
                        from : pred,
                    })
                }
            }
        }
    }

    /* insert empty block between the edges */
    for _, e := range edges {
        if len(e.to.Label().Incoming) != 0 {
            panic(fmt.Sprintf("lir: critical edge bb_%d -> bb_%d into a block with phis", e.from.Id, e.to.Id))
        }

        /* the new block inherits the less frequent of both ends */
        bb := p.CreateBlock()
        bb.Pred = []*Block { e.from }
        bb.Probability = e.from.Probability
        bb.LoopDepth = e.to.LoopDepth

        /* never more frequent than the target */
        if e.to.Probability < bb.Probability {
            bb.Probability = e.to.Probability
        }

        /* jump to the original target */
        bb.SetTerm(&Jump { To: e.to })
        e.from.replaceSucc(e.to, bb)

        /* update the predecessor */
        for i, v := range e.to.Pred {
            if v == e.from {
                e.to.Pred[i] = bb
                break
            }
        }
    }

    /* number of split edges */
    return len(edges)
}
