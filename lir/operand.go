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
    `fmt`
    `strings`
)

// OperandMode categorizes an operand slot of an instruction.
type OperandMode uint8

const (
    // Use is read at the start of the instruction, the location may be
    // reused by an output of the same instruction.
    Use OperandMode = iota

    // Alive is read and must stay intact until the end of the instruction.
    Alive

    // Temp is clobbered by the instruction.
    Temp

    // Def is written by the instruction.
    Def

    // State is debug or deoptimization information, it keeps a value live
    // without requiring it in a register.
    State
)

// Modes lists the operand modes in the order they are visited when rewriting.
var Modes = [...]OperandMode { Use, Alive, Temp, Def, State }

func (self OperandMode) String() string {
    switch self {
        case Use   : return "use"
        case Alive : return "alive"
        case Temp  : return "temp"
        case Def   : return "def"
        case State : return "state"
        default    : return "???"
    }
}

// OperandFlag describes what kind of location an operand slot accepts.
type OperandFlag uint8

const (
    FlagReg OperandFlag = 1 << iota
    FlagStack
    FlagConst
    FlagHint
)

func (self OperandFlag) Has(f OperandFlag) bool {
    return self & f != 0
}

func (self OperandFlag) String() string {
    var ret []string
    if self.Has(FlagReg)   { ret = append(ret, "reg") }
    if self.Has(FlagStack) { ret = append(ret, "stack") }
    if self.Has(FlagConst) { ret = append(ret, "const") }
    if self.Has(FlagHint)  { ret = append(ret, "hint") }
    return strings.Join(ret, "|")
}

// Operand is one operand slot of an instruction. Location assignment
// rewrites V in place.
type Operand struct {
    V     Value
    Flags OperandFlag
}

func (self Operand) String() string {
    return self.V.String()
}

// OpReg creates an operand that requires a register.
func OpReg(v Value) Operand {
    return Operand { V: v, Flags: FlagReg }
}

// OpRegStack creates an operand that tolerates a stack slot.
func OpRegStack(v Value) Operand {
    return Operand { V: v, Flags: FlagReg | FlagStack }
}

// OpAny creates an operand that accepts any location or a constant.
func OpAny(v Value) Operand {
    return Operand { V: v, Flags: FlagReg | FlagStack | FlagConst }
}

func operandsOf(ops []Operand) []*Operand {
    ret := make([]*Operand, len(ops))
    for i := range ops {
        ret[i] = &ops[i]
    }
    return ret
}

func operandsrepr(ops []Operand) string {
    ret := make([]string, len(ops))
    for i, v := range ops {
        ret[i] = v.String()
    }
    return strings.Join(ret, ", ")
}

func valueslice(vals []Value, flags OperandFlag) []Operand {
    ret := make([]Operand, len(vals))
    for i, v := range vals {
        ret[i] = Operand { V: v, Flags: flags }
    }
    return ret
}

func (self Operand) GoString() string {
    return fmt.Sprintf("Operand{%s, %s}", self.V, self.Flags)
}
