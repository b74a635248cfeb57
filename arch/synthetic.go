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
    `fmt`

    `github.com/cloudwego/tracera/lir`
)

// Synthetic returns a small register file with nint integer and nfloat float
// registers, all allocatable. The first half of each class is caller-saved.
func Synthetic(nint int, nfloat int) *Config {
    regs := make([]Register, 0, nint + nfloat)

    /* integer registers */
    for i := 0; i < nint; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : fmt.Sprintf("r%d", i),
            Kind        : lir.KindInt,
            CallerSaved : i < (nint + 1) / 2,
            Allocatable : true,
        })
    }

    /* float registers */
    for i := 0; i < nfloat; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : fmt.Sprintf("f%d", i),
            Kind        : lir.KindFloat,
            CallerSaved : i < (nfloat + 1) / 2,
            Allocatable : true,
        })
    }

    /* build the config */
    return newConfig(fmt.Sprintf("synthetic/%d/%d", nint, nfloat), regs)
}
