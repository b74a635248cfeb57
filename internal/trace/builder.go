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
    `strings`

    `github.com/cloudwego/tracera/lir`
    `github.com/oleiade/lane`
)

const (
    _ProbScale = 1e6
)

// Trace is a sequence of blocks where every block is followed by one of its
// successors in the CFG.
type Trace struct {
    Id     int
    Blocks []*lir.Block
}

func (self *Trace) String() string {
    buf := make([]string, 0, len(self.Blocks))
    for _, bb := range self.Blocks {
        buf = append(buf, fmt.Sprintf("bb_%d", bb.Id))
    }
    return fmt.Sprintf("trace_%d[%s]", self.Id, strings.Join(buf, " "))
}

// Result is the partition of all blocks into traces. It is never modified
// after Build returns.
type Result struct {
    Traces  []*Trace
    traceOf []int
    indexOf []int
    sideIn  []bool
}

// TraceOf returns the trace containing bb.
func (self *Result) TraceOf(bb *lir.Block) *Trace {
    return self.Traces[self.traceOf[bb.Id]]
}

// IndexOf returns the position of bb in its trace.
func (self *Result) IndexOf(bb *lir.Block) int {
    return self.indexOf[bb.Id]
}

// SameTrace reports whether both blocks belong to the same trace.
func (self *Result) SameTrace(a *lir.Block, b *lir.Block) bool {
    return self.traceOf[a.Id] == self.traceOf[b.Id]
}

// IncomingSideEdges reports whether some block of the trace other than the
// first one can be entered from a block that is not its trace predecessor.
func (self *Result) IncomingSideEdges(t *Trace) bool {
    return self.sideIn[t.Id]
}

func (self *Result) String() string {
    buf := make([]string, 0, len(self.Traces))
    for _, t := range self.Traces {
        buf = append(buf, t.String())
    }
    return strings.Join(buf, "\n")
}

type _Builder struct {
    n         int
    blocked   []int
    processed []bool
    worklist  *lane.PQueue
}

func (self *_Builder) push(bb *lir.Block) {
    self.worklist.Push(bb, int(bb.Probability * _ProbScale) * (self.n + 1) + (self.n - bb.Id))
}

func (self *_Builder) unblock(bb *lir.Block) {
    for _, s := range bb.Succ {
        if !self.processed[s.Id] {
            if self.blocked[s.Id]--; self.blocked[s.Id] == 0 {
                self.push(s)
            }
        }
    }
}

func (self *_Builder) selectNext(bb *lir.Block) *lir.Block {
    var next *lir.Block
    for _, s := range bb.Succ {
        if !self.processed[s.Id] && (next == nil || s.Probability > next.Probability) {
            next = s
        }
    }
    return next
}

func (self *_Builder) findTrace(start *lir.Block) []*lir.Block {
    var ret []*lir.Block
    for bb := start; bb != nil; bb = self.selectNext(bb) {
        self.processed[bb.Id] = true
        ret = append(ret, bb)
        self.unblock(bb)
    }
    return ret
}

// Build partitions the blocks into traces. Traces are grown greedily along
// the most probable unprocessed successor, new traces start at the most
// probable block whose forward predecessors have all been processed. Loop
// information must be present.
func Build(p *lir.Program) *Result {
    nb := len(p.Blocks)
    ret := &Result {
        traceOf : make([]int, nb),
        indexOf : make([]int, nb),
    }

    /* the builder state */
    tb := &_Builder {
        n         : nb,
        blocked   : make([]int, nb),
        processed : make([]bool, nb),
        worklist  : lane.NewPQueue(lane.MAXPQ),
    }

    /* a block is blocked by its forward predecessors */
    for _, bb := range p.Blocks {
        for _, pred := range bb.Pred {
            if !bb.LoopHeader || !pred.LoopEnd {
                tb.blocked[bb.Id]++
            }
        }
    }

    /* start with the entry block */
    tb.push(p.Entry())
    ret.build(tb)

    /* unreachable blocks form traces of their own */
    for _, bb := range p.Blocks {
        if !tb.processed[bb.Id] {
            tb.push(bb)
            ret.build(tb)
        }
    }

    /* find the side entries of every trace */
    ret.sideIn = make([]bool, len(ret.Traces))
    for _, t := range ret.Traces {
        for i, bb := range t.Blocks[1:] {
            for _, pred := range bb.Pred {
                if pred != t.Blocks[i] {
                    ret.sideIn[t.Id] = true
                }
            }
        }
    }
    return ret
}

func (self *Result) build(tb *_Builder) {
    for tb.worklist.Size() != 0 {
        v, _ := tb.worklist.Pop()
        bb := v.(*lir.Block)

        /* already part of some trace */
        if tb.processed[bb.Id] {
            continue
        }

        /* grow a new trace */
        t := &Trace {
            Id     : len(self.Traces),
            Blocks : tb.findTrace(bb),
        }

        /* update the block mapping */
        for i, b := range t.Blocks {
            self.indexOf[b.Id] = i
            self.traceOf[b.Id] = t.Id
        }

        /* add to trace list */
        self.Traces = append(self.Traces, t)
    }
}
