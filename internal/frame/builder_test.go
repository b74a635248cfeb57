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
	"testing"

	"github.com/cloudwego/tracera/lir"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SpillSlotFor(t *testing.T) {
	fb := NewBuilder()
	s0, ok := fb.SpillSlotFor(3, lir.KindInt)
	require.False(t, ok)
	s1, ok := fb.SpillSlotFor(3, lir.KindInt)
	require.True(t, ok)
	require.Equal(t, s0, s1)
	s2 := fb.AllocateSpillSlot(lir.KindFloat)
	require.NotEqual(t, s0.Key(), s2.Key())
	require.Equal(t, 2 * SlotSize, fb.FrameSize())
	require.Equal(t, "{stack:0, stack:8}", fb.Slots().String())
}

func TestBuilder_Concurrent(t *testing.T) {
	wg := sync.WaitGroup{}
	fb := NewBuilder()
	res := make([]lir.Value, 64)
	for i := range res {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res[i] = fb.AllocateSpillSlot(lir.KindInt)
		}(i)
	}
	wg.Wait()
	set := make(SlotSet)
	for _, v := range res {
		require.True(t, set.Add(v))
	}
	require.Equal(t, 64 * SlotSize, fb.FrameSize())
	require.True(t, set.Remove(res[0]))
	require.False(t, set.Contains(res[0]))
}

func TestBuilder_ScratchSlot(t *testing.T) {
	fb := NewBuilder()
	s0 := fb.AcquireScratchSlot(lir.KindInt)
	s1 := fb.AcquireScratchSlot(lir.KindFloat)
	require.NotEqual(t, s0.Key(), s1.Key())
	require.Equal(t, lir.KindFloat, s1.Kind())

	/* released slots come back, lowest offset first */
	fb.ReleaseScratchSlot(s1)
	fb.ReleaseScratchSlot(s0)
	s2 := fb.AcquireScratchSlot(lir.KindFloat)
	require.Equal(t, s0.Key(), s2.Key())
	require.Equal(t, lir.KindFloat, s2.Kind())
	require.Equal(t, s1.Key(), fb.AcquireScratchSlot(lir.KindInt).Key())
	require.Equal(t, 2*SlotSize, fb.FrameSize())

	/* spill slots are never reused */
	require.Panics(t, func() { fb.ReleaseScratchSlot(fb.AllocateSpillSlot(lir.KindInt)) })
	fb.ReleaseScratchSlot(s2)
	require.Panics(t, func() { fb.ReleaseScratchSlot(s2) })
	require.Equal(t, "{stack:0, stack:8, stack:16}", fb.Slots().String())
}

func TestSlotSet_Lowest(t *testing.T) {
	set := make(SlotSet)
	require.True(t, set.Lowest().IsNone())
	require.True(t, set.Add(lir.StackSlot(16, lir.KindInt)))
	require.True(t, set.Add(lir.StackSlot(8, lir.KindFloat)))
	require.False(t, set.Add(lir.StackSlot(8, lir.KindInt)))
	require.Equal(t, lir.StackSlot(8, lir.KindFloat), set.Lowest())
	require.Equal(t, []int{8, 16}, set.Offsets())
	require.True(t, set.Remove(lir.StackSlot(8, lir.KindInt)))
	require.Equal(t, lir.StackSlot(16, lir.KindInt), set.Lowest())
	require.Panics(t, func() { set.Add(lir.VirtualStackSlot(0, lir.KindInt)) })
}
