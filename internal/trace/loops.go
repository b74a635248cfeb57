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
    `github.com/cloudwego/tracera/lir`
    `github.com/oleiade/lane`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`
    `tlog.app/go/errors`
)

type _BackEdge struct {
    end    *lir.Block
    header *lir.Block
}

func buildGraph(p *lir.Program, skip func(u *lir.Block, v *lir.Block) bool) *simple.DirectedGraph {
    g := simple.NewDirectedGraph()

    /* add all the blocks */
    for _, bb := range p.Blocks {
        g.AddNode(simple.Node(bb.Id))
    }

    /* add all the edges, except self loops */
    for _, bb := range p.Blocks {
        for _, s := range bb.Succ {
            if s != bb && !skip(bb, s) {
                g.SetEdge(g.NewEdge(simple.Node(bb.Id), simple.Node(s.Id)))
            }
        }
    }
    return g
}

func dominates(dt flow.DominatorTree, h int64, u int64) bool {
    var n graph.Node
    for n = simple.Node(u); n != nil; n = dt.DominatorOf(n.ID()) {
        if n.ID() == h {
            return true
        }
    }
    return false
}

// AnalyzeLoops marks loop headers, loop ends and the loop depth of every
// block. A loop end is the source of a back edge, that is an edge whose
// target dominates its source. Irreducible control flow is rejected.
func AnalyzeLoops(p *lir.Program) error {
    var edges []_BackEdge
    var dt flow.DominatorTree

    /* reset the loop information */
    for _, bb := range p.Blocks {
        bb.LoopEnd = false
        bb.LoopDepth = 0
        bb.LoopHeader = false
    }

    /* dominator tree of the CFG */
    g := buildGraph(p, func(*lir.Block, *lir.Block) bool { return false })
    dt = flow.Dominators(simple.Node(p.Entry().Id), g)

    /* find all the back edges */
    for _, bb := range p.Blocks {
        for _, s := range bb.Succ {
            if s == bb || dominates(dt, int64(s.Id), int64(bb.Id)) {
                edges = append(edges, _BackEdge { end: bb, header: s })
            }
        }
    }

    /* the CFG without back edges must be acyclic */
    fg := buildGraph(p, func(u *lir.Block, v *lir.Block) bool {
        return dominates(dt, int64(v.Id), int64(u.Id))
    })

    /* otherwise there is a loop with multiple entries */
    for _, scc := range topo.TarjanSCC(fg) {
        if len(scc) > 1 {
            return errors.New("irreducible loop containing bb_%d", scc[0].ID())
        }
    }

    /* collect the loop bodies, loops sharing a header are merged */
    body := make(map[*lir.Block]map[*lir.Block]struct{})
    for _, e := range edges {
        e.end.LoopEnd = true
        e.header.LoopHeader = true
        loopBody(body, e)
    }

    /* loop depth is the number of loops containing the block */
    for _, bs := range body {
        for bb := range bs {
            bb.LoopDepth++
        }
    }
    return nil
}

func loopBody(body map[*lir.Block]map[*lir.Block]struct{}, e _BackEdge) {
    bs := body[e.header]
    st := lane.NewStack()

    /* create the body if needed */
    if bs == nil {
        bs = map[*lir.Block]struct{} { e.header: {} }
        body[e.header] = bs
    }

    /* walk backwards from the loop end until the header */
    for st.Push(e.end); !st.Empty(); {
        bb := st.Pop().(*lir.Block)
        if _, ok := bs[bb]; !ok {
            bs[bb] = struct{}{}
            for _, p := range bb.Pred {
                st.Push(p)
            }
        }
    }
}
