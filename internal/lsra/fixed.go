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
    `strings`

    `github.com/cloudwego/tracera/lir`
)

type _Range struct {
    from int
    to   int
}

var _EndRange = _Range { from: _MaxPos, to: _MaxPos }

// FixedInterval is the set of ranges where a physical register is used
// directly by the instructions of a trace. Unlike variable intervals it may
// have holes.
type FixedInterval struct {
    Reg    lir.Value
    ranges []_Range
    cursor int
    done   bool
}

func newFixedInterval(reg lir.Value) *FixedInterval {
    return &FixedInterval { Reg: reg }
}

func (self *FixedInterval) Location() lir.Value {
    return self.Reg
}

// From returns the start of the first range.
func (self *FixedInterval) From() int {
    if n := len(self.ranges); n == 0 {
        return _MaxPos
    } else if self.done {
        return self.ranges[0].from
    } else {
        return self.ranges[n - 1].from
    }
}

// To returns the end of the last range.
func (self *FixedInterval) To() int {
    if n := len(self.ranges); n == 0 {
        return _MaxPos
    } else if !self.done {
        return self.ranges[0].to
    } else if n == 1 {
        return _MaxPos
    } else {
        return self.ranges[n - 2].to
    }
}

/* ranges are collected backwards, the first range is at the end of the slice */

func (self *FixedInterval) addRange(from int, to int) {
    if self.done {
        panic("lsra: fixed interval is already finished")
    }

    /* join with the first range if they touch */
    if n := len(self.ranges); n != 0 && self.ranges[n - 1].from <= to {
        r := &self.ranges[n - 1]
        if from < r.from { r.from = from }
        if to > r.to     { r.to = to }
    } else {
        self.ranges = append(self.ranges, _Range { from: from, to: to })
    }
}

func (self *FixedInterval) setFrom(pos int) {
    if n := len(self.ranges); n == 0 {
        panic("lsra: empty fixed interval")
    } else {
        self.ranges[n - 1].from = pos
    }
}

// finish puts the ranges in ascending order and terminates them.
func (self *FixedInterval) finish() {
    n := len(self.ranges)
    for i := 0; i < n / 2; i++ {
        self.ranges[i], self.ranges[n - 1 - i] = self.ranges[n - 1 - i], self.ranges[i]
    }
    self.ranges = append(self.ranges, _EndRange)
    self.done = true
    self.cursor = 0
}

/** Range Cursor **/

func (self *FixedInterval) rewind()            { self.cursor = 0 }
func (self *FixedInterval) nextRange()         { self.cursor++ }
func (self *FixedInterval) currentFrom() int   { return self.ranges[self.cursor].from }
func (self *FixedInterval) currentTo() int     { return self.ranges[self.cursor].to }
func (self *FixedInterval) currentAtEnd() bool { return self.ranges[self.cursor] == _EndRange }

// currentIntersectsAt returns the first position at or after the cursor
// where the register is used while it is live, or -1.
func (self *FixedInterval) currentIntersectsAt(it *TraceInterval) int {
    return self.intersectsFrom(self.cursor, it)
}

func (self *FixedInterval) intersectsAt(it *TraceInterval) int {
    return self.intersectsFrom(0, it)
}

func (self *FixedInterval) intersectsFrom(i int, it *TraceInterval) int {
    for ; i < len(self.ranges) - 1; i++ {
        r := self.ranges[i]
        if r.to <= it.from {
            continue
        } else if r.from >= it.to {
            return -1
        } else if r.from > it.from {
            return r.from
        } else {
            return it.from
        }
    }
    return -1
}

func (self *FixedInterval) String() string {
    buf := make([]string, 0, len(self.ranges))
    for _, r := range self.ranges {
        if r != _EndRange {
            buf = append(buf, fmt.Sprintf("[%d, %d)", r.from, r.to))
        }
    }
    return fmt.Sprintf("%s{%s}", self.Reg, strings.Join(buf, " "))
}
