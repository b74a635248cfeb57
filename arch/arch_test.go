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

package arch

import (
    `testing`

    `github.com/cloudwego/tracera/lir`
    `github.com/stretchr/testify/require`
)

func TestArch_AMD64(t *testing.T) {
    cfg := NewAMD64(false)
    require.Equal(t, 32, cfg.NumRegisters())
    require.Len(t, cfg.Allocatable(lir.KindInt), 14)
    require.Len(t, cfg.Allocatable(lir.KindFloat), 16)
    require.Equal(t, "rax", cfg.RegName(0))
    require.Equal(t, "r15", cfg.RegName(15))
    require.Equal(t, "xmm0", cfg.RegName(16))
    require.False(t, cfg.IsAllocatable(4))
    require.False(t, cfg.IsAllocatable(5))
    require.True(t, cfg.IsCallerSaved(0))
    require.False(t, cfg.IsCallerSaved(3))
    require.Len(t, cfg.CallerSaved(), 9 + 16)
    require.Equal(t, 48, NewAMD64(true).NumRegisters())
    require.NotNil(t, AMD64())
}

func TestArch_ARM64(t *testing.T) {
    cfg := ARM64()
    require.Equal(t, 63, cfg.NumRegisters())
    require.Equal(t, "x0", cfg.RegName(0))
    require.Equal(t, "v0", cfg.RegName(31))
    require.False(t, cfg.IsAllocatable(16))
    require.False(t, cfg.IsAllocatable(18))
    require.False(t, cfg.IsAllocatable(30))
    require.True(t, cfg.IsAllocatable(28))
    require.Len(t, cfg.Allocatable(lir.KindInt), 26)
    require.Len(t, cfg.Allocatable(lir.KindFloat), 32)
    require.False(t, cfg.IsCallerSaved(31 + 8))
}

func TestArch_Synthetic(t *testing.T) {
    cfg := Synthetic(3, 2)
    require.Equal(t, 5, cfg.NumRegisters())
    require.Equal(t, "%r1", cfg.Format(lir.Reg(1, lir.KindInt)))
    require.Equal(t, "f0", cfg.RegName(3))
    require.Len(t, cfg.CallerSaved(), 3)
    require.Equal(t, "synthetic/3/2{r0*, r1*, r2, f0*, f1}", cfg.String())
}
