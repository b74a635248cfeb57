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
    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/internal/lsra`
    `github.com/cloudwego/tracera/internal/opts`
    `github.com/cloudwego/tracera/internal/trace`
    `github.com/cloudwego/tracera/lir`
    `tlog.app/go/errors`
)

// Stats records what the allocator did to a program.
type Stats = lsra.Stats

// Result is the outcome of a register allocation. The program itself is
// rewritten in place: every variable operand is replaced by a register, a
// stack slot or a constant, and the moves connecting them are inserted.
type Result struct {
    Program   *lir.Program
    Config    *arch.Config
    Traces    [][]int
    FrameSize int
    Stats     Stats

    live *trace.Liveness
}

// EntryLocation returns where variable v is when entering bb, or lir.None if
// it is not live there. Materialized constants have the lir.Illegal location.
func (self *Result) EntryLocation(bb *lir.Block, v lir.Value) lir.Value {
    return self.live.InLocation(bb, v.Number())
}

// ExitLocation returns where variable v is when leaving bb, or lir.None if it
// is not live there.
func (self *Result) ExitLocation(bb *lir.Block, v lir.Value) lir.Value {
    return self.live.OutLocation(bb, v.Number())
}

// Allocate assigns a location to every variable of p for the registers
// described by cfg.
//
// The program is prepared first: critical edges are split, loops are
// detected and the blocks are grouped into traces along the most probable
// paths. Every trace is then allocated on its own, and moves are inserted on
// the edges between traces at last.
//
// When the registers are not enough for some instruction, an error wrapping
// *OutOfRegistersError is returned, and the program is left in an
// unspecified state.
func Allocate(p *lir.Program, cfg *arch.Config, options ...Option) (*Result, error) {
    o := opts.GetDefaultOptions()
    for _, fn := range options {
        fn(&o)
    }

    /* empty programs have nothing to allocate */
    if len(p.Blocks) == 0 {
        return nil, errors.New("empty program")
    }

    /* split critical edges, so moves always have a place */
    lir.SplitCriticalEdges(p)
    if err := trace.AnalyzeLoops(p); err != nil {
        return nil, errors.Wrap(err, "loop analysis")
    }

    /* build the traces and the global liveness */
    traces := trace.Build(p)
    live := trace.ComputeLiveness(p)
    session := lsra.NewSession(p, cfg, traces, live, o)

    /* allocate all the traces */
    if err := session.Run(); err != nil {
        return nil, err
    }

    /* build the result */
    ret := &Result {
        Program   : p,
        Config    : cfg,
        Traces    : make([][]int, 0, len(traces.Traces)),
        FrameSize : session.Frame.FrameSize(),
        Stats     : session.Stats,
        live      : live,
    }

    /* block ids of every trace */
    for _, t := range traces.Traces {
        ids := make([]int, 0, len(t.Blocks))
        for _, bb := range t.Blocks {
            ids = append(ids, bb.Id)
        }
        ret.Traces = append(ret.Traces, ids)
    }
    return ret, nil
}
