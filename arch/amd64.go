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
    `github.com/chenzhuoyu/iasm/x86_64`
    `github.com/cloudwego/tracera/lir`
    `github.com/klauspost/cpuid/v2`
)

var amd64Reserved = map[x86_64.Register64]bool {
    x86_64.RSP: true,
    x86_64.RBP: true,
}

var amd64CalleeSaved = map[x86_64.Register64]bool {
    x86_64.RBX : true,
    x86_64.RBP : true,
    x86_64.R12 : true,
    x86_64.R13 : true,
    x86_64.R14 : true,
    x86_64.R15 : true,
}

// AMD64 returns the System V amd64 register configuration of the host. The
// upper 16 vector registers are only used when the host supports AVX-512F.
func AMD64() *Config {
    return NewAMD64(cpuid.CPU.Supports(cpuid.AVX512F))
}

// NewAMD64 returns the System V amd64 register configuration. Integer
// registers take the numbers 0..15 in encoding order, vector registers follow.
func NewAMD64(avx512 bool) *Config {
    nx := 16
    regs := make([]Register, 0, 48)

    /* 32 vector registers with AVX-512 */
    if avx512 {
        nx = 32
    }

    /* general purpose registers */
    for i := x86_64.RAX; i <= x86_64.R15; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : i.String(),
            Kind        : lir.KindInt,
            CallerSaved : !amd64CalleeSaved[i],
            Allocatable : !amd64Reserved[i],
        })
    }

    /* vector registers, all of them are caller-saved */
    for i := 0; i < nx; i++ {
        regs = append(regs, Register {
            Number      : len(regs),
            Name        : x86_64.XMMRegister(i).String(),
            Kind        : lir.KindFloat,
            CallerSaved : true,
            Allocatable : true,
        })
    }

    /* build the config */
    if avx512 {
        return newConfig("amd64+avx512", regs)
    } else {
        return newConfig("amd64", regs)
    }
}
