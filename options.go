/*
 * Copyright 2022 CloudWeGo Authors
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
	"fmt"

	"github.com/cloudwego/tracera/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

const (
	_MaxParallelism = 1024
)

// WithSpillMoveElimination controls whether spill moves are replaced by a
// single store right after the definition of a value.
//
// This value can also be configured with the `TRACERA_NO_SPILL_MOVE_ELIMINATION`
// environment variable.
//
// The default value of this option is "true".
func WithSpillMoveElimination(v bool) Option {
	return func(o *opts.Options) { o.EliminateSpillMoves = v }
}

// WithSharedSpillInformation lets a trace reuse the spill slot that a value
// already occupies at the end of an allocated predecessor trace.
//
// Only effective when traces are allocated sequentially.
func WithSharedSpillInformation(v bool) Option {
	return func(o *opts.Options) { o.ShareSpillInformation = v }
}

// WithInterTraceHints lets a trace prefer the registers that values occupy
// at the end of an allocated predecessor trace.
//
// Only effective when traces are allocated sequentially.
func WithInterTraceHints(v bool) Option {
	return func(o *opts.Options) { o.InterTraceHints = v }
}

// WithStackSlotCache makes every trace spill a variable to the same stack
// slot, instead of allocating a new slot each time.
func WithStackSlotCache(v bool) Option {
	return func(o *opts.Options) { o.CacheStackSlots = v }
}

// WithNeverSpillConstants forces values defined by a constant to be
// rebuilt at their uses instead of being spilled to the stack.
//
// The default value of this option is "false".
func WithNeverSpillConstants(v bool) Option {
	return func(o *opts.Options) { o.NeverSpillConstants = v }
}

// WithVerify enables the checks of the allocation result. Allocation fails
// with a VerificationError when the checks fail.
//
// This value can also be configured with the `TRACERA_VERIFY` environment
// variable.
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithParallelism sets the number of traces allocated at the same time.
//
// Values larger than "1" disable inter-trace hints and shared spill
// information, since no trace can wait for another one.
//
// The default value of this option is "1".
func WithParallelism(n int) Option {
	if n < 1 || n > _MaxParallelism {
		panic(fmt.Sprintf("tracera: invalid parallelism: %d", n))
	} else {
		return func(o *opts.Options) { o.Parallelism = n }
	}
}

// WithDumpDir writes an interval dump and a live range chart of every trace
// into dir. The directory must exist.
func WithDumpDir(dir string) Option {
	return func(o *opts.Options) { o.DumpDir = dir }
}

// SetVerify sets the default value of the Verify option for all allocations
// from now on.
//
// Returns the old opts.Verify value.
func SetVerify(v bool) bool {
	v, opts.Verify = opts.Verify, v
	return v
}
