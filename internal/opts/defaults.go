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

package opts

import (
	"github.com/xyproto/env/v2"
)

const (
	_DefaultParallelism = 1 // allocate traces one after another
	_MaxParallelism     = 1024
)

var (
	EliminateSpillMoves   = !env.Bool("TRACERA_NO_SPILL_MOVE_ELIMINATION")
	ShareSpillInformation = !env.Bool("TRACERA_NO_SHARE_SPILL_INFORMATION")
	InterTraceHints       = !env.Bool("TRACERA_NO_INTER_TRACE_HINTS")
	CacheStackSlots       = !env.Bool("TRACERA_NO_CACHE_STACK_SLOTS")
	NeverSpillConstants   = env.Bool("TRACERA_NEVER_SPILL_CONSTANTS")
	Verify                = env.Bool("TRACERA_VERIFY")
	Parallelism           = parseOrDefault("TRACERA_PARALLELISM", _DefaultParallelism, 1)
	DumpDir               = env.Str("TRACERA_DUMP_DIR")
)

func parseOrDefault(key string, def int, min int) int {
	if !env.Has(key) {
		return def
	} else if ret := env.Int(key, -1); ret < 0 {
		panic("tracera: invalid value for " + key)
	} else if ret < min || ret > _MaxParallelism {
		panic("tracera: value out of range for " + key)
	} else {
		return ret
	}
}
