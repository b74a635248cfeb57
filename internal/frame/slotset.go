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

package frame

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/tracera/lir"
)

// SlotSet is a set of stack slots keyed by frame offset. It remembers the
// kind a slot was added with.
type SlotSet map[int]lir.Kind

func offsetOf(slot lir.Value) int {
	if !slot.IsStackSlot() {
		panic("frame: not a stack slot: " + slot.String())
	}
	return slot.Number()
}

// Add inserts slot and reports whether it was not there yet.
func (self SlotSet) Add(slot lir.Value) bool {
	off := offsetOf(slot)
	if _, ok := self[off]; ok {
		return false
	}
	self[off] = slot.Kind()
	return true
}

// Remove deletes slot and reports whether it was there.
func (self SlotSet) Remove(slot lir.Value) bool {
	off := offsetOf(slot)
	if _, ok := self[off]; !ok {
		return false
	}
	delete(self, off)
	return true
}

func (self SlotSet) Contains(slot lir.Value) bool {
	_, ok := self[offsetOf(slot)]
	return ok
}

// Offsets returns the frame offsets in ascending order.
func (self SlotSet) Offsets() []int {
	ret := make([]int, 0, len(self))
	for off := range self {
		ret = append(ret, off)
	}
	sort.Ints(ret)
	return ret
}

// Lowest returns the slot with the smallest offset, or lir.None if the set
// is empty.
func (self SlotSet) Lowest() lir.Value {
	if len(self) == 0 {
		return lir.None
	}
	off := self.Offsets()[0]
	return lir.StackSlot(off, self[off])
}

func (self SlotSet) Clone() SlotSet {
	ret := make(SlotSet, len(self))
	for off, k := range self {
		ret[off] = k
	}
	return ret
}

func (self SlotSet) String() string {
	buf := make([]string, 0, len(self))
	for _, off := range self.Offsets() {
		buf = append(buf, lir.StackSlot(off, self[off]).String())
	}
	return fmt.Sprintf("{%s}", strings.Join(buf, ", "))
}
