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
    `sort`
)

type _Pending struct {
    index int
    seq   int
    ins   Instr
}

// InsertionBuffer collects instructions to be inserted into an instruction
// list at indices of the original list, and splices them all in at once.
// Instructions appended at the same index keep their order.
type InsertionBuffer struct {
    ins *[]Instr
    buf []_Pending
}

// Init binds the buffer to an instruction list.
func (self *InsertionBuffer) Init(ins *[]Instr) {
    if self.ins != nil {
        panic("lir: insertion buffer already initialized")
    }
    self.ins = ins
    self.buf = self.buf[:0]
}

// Initialized reports whether the buffer is bound to a list.
func (self *InsertionBuffer) Initialized() bool {
    return self.ins != nil
}

// Len returns the original length of the bound list.
func (self *InsertionBuffer) Len() int {
    return len(*self.ins)
}

// Append schedules ins to be inserted before the instruction at index.
func (self *InsertionBuffer) Append(index int, ins Instr) {
    if index < 0 || index > len(*self.ins) {
        panic("lir: insertion index out of range")
    }
    self.buf = append(self.buf, _Pending { index: index, seq: len(self.buf), ins: ins })
}

// Finish performs all insertions and unbinds the buffer.
func (self *InsertionBuffer) Finish() {
    if len(self.buf) != 0 {
        old := *self.ins
        ret := make([]Instr, 0, len(old) + len(self.buf))

        /* order by index, then by the order of appending */
        sort.Slice(self.buf, func(i int, j int) bool {
            a, b := self.buf[i], self.buf[j]
            return a.index < b.index || (a.index == b.index && a.seq < b.seq)
        })

        /* merge the two lists */
        p := 0
        for i, v := range old {
            for p < len(self.buf) && self.buf[p].index == i {
                ret = append(ret, self.buf[p].ins)
                p++
            }
            ret = append(ret, v)
        }

        /* instructions appended at the very end */
        for ; p < len(self.buf); p++ {
            ret = append(ret, self.buf[p].ins)
        }

        /* write back */
        *self.ins = ret
    }

    /* reset the buffer */
    self.ins = nil
    self.buf = self.buf[:0]
}
