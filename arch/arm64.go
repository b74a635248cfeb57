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
    `strings`

    `github.com/cloudwego/tracera/lir`
    `golang.org/x/arch/arm64/arm64asm`
)

// ARM64 returns the AAPCS64 register configuration. X0..X30 take the numbers
// 0..30 and V0..V31 take 31..62. The intra-procedure-call scratch registers,
// the platform register, the frame pointer and the link register are never
// allocated.
func ARM64() *Config {
    regs := make([]Register, 0, 63)

    /* general purpose registers */
    for i := 0; i <= 30; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : strings.ToLower((arm64asm.X0 + arm64asm.Reg(i)).String()),
            Kind        : lir.KindInt,
            CallerSaved : i <= 18,
            Allocatable : i < 16 || (i > 18 && i < 29),
        })
    }

    /* V8..V15 are callee-saved, only their lower halves, but good enough */
    for i := 0; i <= 31; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : strings.ToLower((arm64asm.V0 + arm64asm.Reg(i)).String()),
            Kind        : lir.KindFloat,
            CallerSaved : i < 8 || i > 15,
            Allocatable : true,
        })
    }

    /* build the config */
    return newConfig("arm64", regs)
}
