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
    `strings`

    `github.com/cloudwego/tracera/lir`
)

// Register describes one physical register.
type Register struct {
    Number      int
    Name        string
    Kind        lir.Kind
    CallerSaved bool
    Allocatable bool
}

func (self Register) Value() lir.Value {
    return lir.Reg(self.Number, self.Kind)
}

func (self Register) String() string {
    return self.Name
}

// Config is a register configuration: the register file of a target and the
// subset of it the allocator may hand out.
type Config struct {
    Name      string
    Registers []Register
    alloc     [3][]Register
    clobber   []Register
}

func newConfig(name string, regs []Register) *Config {
    ret := &Config { Name: name, Registers: regs }

    /* register numbers are indices */
    for i, r := range regs {
        if r.Number != i {
            panic(fmt.Sprintf("arch: register %s has number %d at index %d", r.Name, r.Number, i))
        }
    }

    /* group the allocatable registers */
    for _, r := range regs {
        if r.Allocatable {
            ret.alloc[r.Kind] = append(ret.alloc[r.Kind], r)
            if r.CallerSaved {
                ret.clobber = append(ret.clobber, r)
            }
        }
    }
    return ret
}

// NumRegisters returns the size of the register file.
func (self *Config) NumRegisters() int {
    return len(self.Registers)
}

// Allocatable returns the registers of kind k the allocator may use, in
// allocation preference order.
func (self *Config) Allocatable(k lir.Kind) []Register {
    if int(k) >= len(self.alloc) {
        return nil
    } else {
        return self.alloc[k]
    }
}

// CallerSaved returns the allocatable registers destroyed by calls.
func (self *Config) CallerSaved() []Register {
    return self.clobber
}

// IsAllocatable reports whether register n may be handed out.
func (self *Config) IsAllocatable(n int) bool {
    return n >= 0 && n < len(self.Registers) && self.Registers[n].Allocatable
}

// IsCallerSaved reports whether register n is destroyed by calls.
func (self *Config) IsCallerSaved(n int) bool {
    return n >= 0 && n < len(self.Registers) && self.Registers[n].CallerSaved
}

// RegName returns the name of register n.
func (self *Config) RegName(n int) string {
    if n < 0 || n >= len(self.Registers) {
        return fmt.Sprintf("r%d?", n)
    } else {
        return self.Registers[n].Name
    }
}

// Format renders a location with register names.
func (self *Config) Format(v lir.Value) string {
    if v.IsRegister() {
        return "%" + self.RegName(v.Number())
    } else {
        return v.String()
    }
}

func (self *Config) String() string {
    buf := make([]string, 0, len(self.Registers))
    for _, r := range self.Registers {
        if r.Allocatable {
            if r.CallerSaved {
                buf = append(buf, r.Name + "*")
            } else {
                buf = append(buf, r.Name)
            }
        }
    }
    return fmt.Sprintf("%s{%s}", self.Name, strings.Join(buf, ", "))
}
