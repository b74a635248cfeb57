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
)

// OutOfRegistersError is returned when an interval needs a register at a
// position where every register is blocked by fixed uses or by other
// intervals that need one at the same position.
type OutOfRegistersError struct {
    Trace    int
    Interval string
    Position int
    Dump     string
}

func (self *OutOfRegistersError) Error() string {
    return fmt.Sprintf("out of registers in trace %d: cannot allocate %s at %d", self.Trace, self.Interval, self.Position)
}

// VerificationError is returned when the allocation of a trace is found to
// be inconsistent.
type VerificationError struct {
    Trace  int
    Block  int
    Instr  string
    Reason string
}

func (self *VerificationError) Error() string {
    if self.Instr == "" {
        return fmt.Sprintf("verification failed in trace %d, bb_%d: %s", self.Trace, self.Block, self.Reason)
    } else {
        return fmt.Sprintf("verification failed in trace %d, bb_%d at %q: %s", self.Trace, self.Block, self.Instr, self.Reason)
    }
}
