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

type Options struct {
	EliminateSpillMoves   bool
	ShareSpillInformation bool
	InterTraceHints       bool
	CacheStackSlots       bool
	NeverSpillConstants   bool
	Verify                bool
	Parallelism           int
	DumpDir               string
}

// Sequential reports whether traces are allocated one after another, which
// is required for any information to flow from one trace to the next.
func (self *Options) Sequential() bool {
	return self.Parallelism <= 1
}

func (self *Options) UseInterTraceHints() bool {
	return self.InterTraceHints && self.Sequential()
}

func (self *Options) UseSharedSpillInformation() bool {
	return self.ShareSpillInformation && self.Sequential()
}

func GetDefaultOptions() Options {
	return Options{
		EliminateSpillMoves:   EliminateSpillMoves,
		ShareSpillInformation: ShareSpillInformation,
		InterTraceHints:       InterTraceHints,
		CacheStackSlots:       CacheStackSlots,
		NeverSpillConstants:   NeverSpillConstants,
		Verify:                Verify,
		Parallelism:           Parallelism,
		DumpDir:               DumpDir,
	}
}
