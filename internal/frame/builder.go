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
	"sync"

	"github.com/cloudwego/tracera/lir"
)

const (
	SlotSize = 8
)

// Builder hands out spill slots of one frame. It is the only state shared by
// concurrently allocated traces, every method is safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	size    int
	slots   SlotSet
	scratch SlotSet
	free    SlotSet
	cache   map[int]lir.Value
}

func NewBuilder() *Builder {
	return &Builder{
		slots:   make(SlotSet),
		scratch: make(SlotSet),
		free:    make(SlotSet),
		cache:   make(map[int]lir.Value),
	}
}

func (self *Builder) allocate(k lir.Kind) lir.Value {
	ret := lir.StackSlot(self.size, k)
	self.size += SlotSize
	self.slots.Add(ret)
	return ret
}

// AllocateSpillSlot returns a fresh stack slot.
func (self *Builder) AllocateSpillSlot(k lir.Kind) lir.Value {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.allocate(k)
}

// SpillSlotFor returns the stack slot of variable v, allocating one if v has
// none yet. The second result is true when the slot was already there.
func (self *Builder) SpillSlotFor(v int, k lir.Kind) (lir.Value, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* already allocated by another trace */
	if ret, ok := self.cache[v]; ok {
		return ret.WithKind(k), true
	}

	/* allocate a new one */
	ret := self.allocate(k)
	self.cache[v] = ret
	return ret, false
}

// AcquireScratchSlot returns a stack slot for a value that lives only within
// one sequence of moves. Released scratch slots are handed out again, the
// lowest offset first.
func (self *Builder) AcquireScratchSlot(k lir.Kind) lir.Value {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* reuse a released one, or allocate a new one */
	ret := self.free.Lowest()
	if ret.IsNone() {
		ret = self.allocate(k)
		self.scratch.Add(ret)
		return ret
	}

	/* take it from the free list */
	self.free.Remove(ret)
	return ret.WithKind(k)
}

// ReleaseScratchSlot makes a slot returned by AcquireScratchSlot available
// again.
func (self *Builder) ReleaseScratchSlot(slot lir.Value) {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* only scratch slots can be released */
	if !self.scratch.Contains(slot) {
		panic("frame: not a scratch slot: " + slot.String())
	}

	/* and only once */
	if !self.free.Add(slot) {
		panic("frame: scratch slot released twice: " + slot.String())
	}
}

// FrameSize returns the number of bytes of spill area allocated so far.
func (self *Builder) FrameSize() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.size
}

// Slots returns a snapshot of the allocated slots.
func (self *Builder) Slots() SlotSet {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.slots.Clone()
}
