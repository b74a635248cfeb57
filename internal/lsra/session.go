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
    `sync`

    `github.com/bytedance/gopkg/util/gopool`
    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/internal/frame`
    `github.com/cloudwego/tracera/internal/opts`
    `github.com/cloudwego/tracera/internal/trace`
    `github.com/cloudwego/tracera/lir`
    `tlog.app/go/errors`
    `tlog.app/go/tlog`
)

// Session allocates the registers of a whole program, one trace at a time,
// then connects the traces with the global move resolution.
type Session struct {
    Prog   *lir.Program
    Config *arch.Config
    Traces *trace.Result
    Live   *trace.Liveness
    Frame  *frame.Builder
    Opts   opts.Options
    Stats  Stats
}

func NewSession(p *lir.Program, cfg *arch.Config, traces *trace.Result, live *trace.Liveness, o opts.Options) *Session {
    return &Session {
        Prog   : p,
        Config : cfg,
        Traces : traces,
        Live   : live,
        Frame  : frame.NewBuilder(),
        Opts   : o,
    }
}

// NewTraceAllocator creates the allocator of one trace of the session.
func (self *Session) NewTraceAllocator(t *trace.Trace) *TraceAllocator {
    return newTraceAllocator(self, t)
}

// Run allocates every trace and resolves the edges between them.
func (self *Session) Run() error {
    var err error
    if self.Opts.Sequential() {
        err = self.runSequential()
    } else {
        err = self.runParallel()
    }

    /* some trace failed */
    if err != nil {
        return err
    }

    /* connect the traces */
    if err = self.resolveGlobalDataFlow(); err != nil {
        return errors.Wrap(err, "global data-flow")
    }

    /* session summary */
    if tlog.If("tracera") {
        tlog.Printw("program allocated", "traces", len(self.Traces.Traces), "frame", self.Frame.FrameSize(), "slots", self.Frame.Slots().String(), "stats", self.Stats.String())
    }
    return nil
}

func (self *Session) runSequential() error {
    for _, t := range self.Traces.Traces {
        a := newTraceAllocator(self, t)
        if err := a.Allocate(); err != nil {
            return errors.Wrap(err, "trace %d", t.Id)
        }
        self.Stats.add(a.stats)
    }
    return nil
}

func (self *Session) runParallel() error {
    wg := sync.WaitGroup{}
    nt := len(self.Traces.Traces)
    errs := make([]error, nt)
    stats := make([]*Stats, nt)
    pool := gopool.NewPool("tracera", int32(self.Opts.Parallelism), gopool.NewConfig())

    /* every trace on its own */
    for i, t := range self.Traces.Traces {
        i, t := i, t
        wg.Add(1)

        /* panics stay within the trace */
        pool.Go(func() {
            defer func() {
                if v := recover(); v != nil {
                    errs[i] = errors.New("panic: %v", v)
                }
                wg.Done()
            }()

            /* allocate the trace */
            a := newTraceAllocator(self, t)
            errs[i] = a.Allocate()
            stats[i] = a.stats
        })
    }

    /* wait for all of them */
    wg.Wait()

    /* first error by trace order */
    for i, err := range errs {
        if err != nil {
            return errors.Wrap(err, "trace %d", self.Traces.Traces[i].Id)
        }
    }

    /* sum up the statistics */
    for _, st := range stats {
        self.Stats.add(st)
    }
    return nil
}
