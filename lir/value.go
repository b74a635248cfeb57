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
)

// Kind is the value kind of an operand, it selects the register category.
type Kind uint8

const (
    KindIllegal Kind = iota
    KindInt
    KindFloat
)

func (self Kind) String() string {
    switch self {
        case KindInt   : return "i"
        case KindFloat : return "f"
        default        : return "?"
    }
}

type _ValueType uint8

const (
    _V_none _ValueType = iota
    _V_illegal
    _V_reg
    _V_var
    _V_stack
    _V_vstack
    _V_const
)

// Value is an operand of an LIR instruction: a register, a variable, a stack
// slot (real or virtual), a constant, or the illegal value. The zero Value
// means "no value" and is used for unassigned locations.
type Value struct {
    t _ValueType
    k Kind
    n int
    c int64
}

var (
    None    = Value{}
    Illegal = Value { t: _V_illegal }
)

// Reg creates a register value with the architecture register number n.
func Reg(n int, k Kind) Value {
    return Value { t: _V_reg, k: k, n: n }
}

// Var creates a variable with index n.
func Var(n int, k Kind) Value {
    return Value { t: _V_var, k: k, n: n }
}

// StackSlot creates a real stack slot at the frame offset off.
func StackSlot(off int, k Kind) Value {
    return Value { t: _V_stack, k: k, n: off }
}

// VirtualStackSlot creates a stack slot whose frame offset is not decided yet.
func VirtualStackSlot(id int, k Kind) Value {
    return Value { t: _V_vstack, k: k, n: id }
}

// Const creates a constant value.
func Const(v int64, k Kind) Value {
    return Value { t: _V_const, k: k, c: v }
}

func (self Value) IsNone()             bool { return self.t == _V_none }
func (self Value) IsIllegal()          bool { return self.t == _V_illegal }
func (self Value) IsRegister()         bool { return self.t == _V_reg }
func (self Value) IsVariable()         bool { return self.t == _V_var }
func (self Value) IsConstant()         bool { return self.t == _V_const }
func (self Value) IsStackSlot()        bool { return self.t == _V_stack }
func (self Value) IsVirtualStackSlot() bool { return self.t == _V_vstack }

// IsStack reports whether the value is a real or a virtual stack slot.
func (self Value) IsStack() bool {
    return self.t == _V_stack || self.t == _V_vstack
}

// IsAllocatable reports whether the value is a register or a variable.
func (self Value) IsAllocatable() bool {
    return self.t == _V_reg || self.t == _V_var
}

// IsLocation reports whether the value names a storage location.
func (self Value) IsLocation() bool {
    return self.t == _V_reg || self.IsStack()
}

func (self Value) Kind() Kind {
    return self.k
}

// Number returns the register number, variable index or stack slot offset.
func (self Value) Number() int {
    if self.t == _V_none || self.t == _V_illegal || self.t == _V_const {
        panic("lir: value has no number: " + self.String())
    } else {
        return self.n
    }
}

// Constant returns the payload of a constant value.
func (self Value) Constant() int64 {
    if self.t != _V_const {
        panic("lir: not a constant: " + self.String())
    } else {
        return self.c
    }
}

// WithKind returns a copy of the value with a different kind.
func (self Value) WithKind(k Kind) Value {
    self.k = k
    return self
}

// Key returns the value with its kind erased, two locations that alias each
// other always have the same key.
func (self Value) Key() Value {
    self.k = KindIllegal
    return self
}

func (self Value) String() string {
    switch self.t {
        case _V_none    : return "-"
        case _V_illegal : return "illegal"
        case _V_reg     : return fmt.Sprintf("%%r%d", self.n)
        case _V_var     : return fmt.Sprintf("v%d%s", self.n, self.k)
        case _V_stack   : return fmt.Sprintf("stack:%d", self.n)
        case _V_vstack  : return fmt.Sprintf("vstack:%d", self.n)
        case _V_const   : return fmt.Sprintf("$%d", self.c)
        default         : panic("lir: invalid value type")
    }
}
