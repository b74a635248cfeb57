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

// Instr is an LIR instruction. Every instruction exposes its operand slots by
// mode, the slots are pointers into the instruction so that they can be
// rewritten in place.
type Instr interface {
    fmt.Stringer
    Id() int
    SetId(id int)
    Operands(mode OperandMode) []*Operand
}

// CallInstr is implemented by instructions that may destroy caller-saved registers.
type CallInstr interface {
    Instr
    DestroysCallerSaved() bool
}

// HintInstr is implemented by instructions whose output would like to share a
// location with one of the inputs (moves, two-operand arithmetic).
type HintInstr interface {
    Instr
    HintFor(def *Operand) *Operand
}

// DestroysCallerSaved reports whether ins clobbers every caller-saved register.
func DestroysCallerSaved(ins Instr) bool {
    if p, ok := ins.(CallInstr); ok {
        return p.DestroysCallerSaved()
    } else {
        return false
    }
}

type _InstrBase struct {
    id int
}

func (self *_InstrBase) Id() int {
    return self.id
}

func (self *_InstrBase) SetId(id int) {
    self.id = id
}

// Label is the first instruction of every block, its outputs are the phi
// values of the block.
type Label struct {
    _InstrBase
    Block    *Block
    Incoming []Operand
}

func (self *Label) Operands(mode OperandMode) []*Operand {
    if mode == Def {
        return operandsOf(self.Incoming)
    } else {
        return nil
    }
}

// AddIncoming appends phi outputs to the label.
func (self *Label) AddIncoming(vals ...Value) {
    self.Incoming = append(self.Incoming, valueslice(vals, FlagReg | FlagStack)...)
}

func (self *Label) String() string {
    if len(self.Incoming) == 0 {
        return fmt.Sprintf("bb_%d:", self.Block.Id)
    } else {
        return fmt.Sprintf("bb_%d(%s):", self.Block.Id, operandsrepr(self.Incoming))
    }
}

// Jump transfers control to its single successor, passing the phi inputs.
// A jump may carry a safepoint state, typically on loop back edges.
type Jump struct {
    _InstrBase
    To       *Block
    Outgoing []Operand
    States   []Operand
}

func (self *Jump) Operands(mode OperandMode) []*Operand {
    switch mode {
        case Alive : return operandsOf(self.Outgoing)
        case State : return operandsOf(self.States)
        default    : return nil
    }
}

func (self *Jump) String() string {
    ret := fmt.Sprintf("jmp bb_%d", self.To.Id)
    if len(self.Outgoing) != 0 {
        ret += fmt.Sprintf("(%s)", operandsrepr(self.Outgoing))
    }
    if len(self.States) != 0 {
        ret += fmt.Sprintf(" state %s", operandsrepr(self.States))
    }
    return ret
}

// Branch ends a block with two successors, it reads its condition operands.
type Branch struct {
    _InstrBase
    Cond     []Operand
    Then     *Block
    Else     *Block
}

func (self *Branch) Operands(mode OperandMode) []*Operand {
    if mode == Use {
        return operandsOf(self.Cond)
    } else {
        return nil
    }
}

func (self *Branch) String() string {
    return fmt.Sprintf("br (%s), bb_%d, bb_%d", operandsrepr(self.Cond), self.Then.Id, self.Else.Id)
}

// Return ends a block with no successors.
type Return struct {
    _InstrBase
    Values []Operand
}

func (self *Return) Operands(mode OperandMode) []*Operand {
    if mode == Use {
        return operandsOf(self.Values)
    } else {
        return nil
    }
}

func (self *Return) String() string {
    return fmt.Sprintf("ret %s", operandsrepr(self.Values))
}

// MoveKind tells who created a move.
type MoveKind uint8

const (
    MoveNormal MoveKind = iota
    MoveSpill
    MoveResolve
    MovePhi
)

func (self MoveKind) String() string {
    switch self {
        case MoveNormal  : return "mov"
        case MoveSpill   : return "spill"
        case MoveResolve : return "resolve"
        case MovePhi     : return "phi"
        default          : return "???"
    }
}

// Move copies Input to Result.
type Move struct {
    _InstrBase
    Kind   MoveKind
    Result Operand
    Input  Operand
}

// NewMove creates a move of the given kind. Moves created this way do not
// have an id, they are recognised as inserted moves by the allocator.
func NewMove(kind MoveKind, dst Value, src Value) *Move {
    return &Move {
        _InstrBase : _InstrBase { id: -1 },
        Kind       : kind,
        Result     : Operand { V: dst, Flags: FlagReg | FlagStack | FlagHint },
        Input      : Operand { V: src, Flags: FlagReg | FlagStack | FlagConst | FlagHint },
    }
}

func (self *Move) Operands(mode OperandMode) []*Operand {
    switch mode {
        case Use : return []*Operand { &self.Input }
        case Def : return []*Operand { &self.Result }
        default  : return nil
    }
}

func (self *Move) HintFor(def *Operand) *Operand {
    if def == &self.Result {
        return &self.Input
    } else {
        return nil
    }
}

func (self *Move) String() string {
    return fmt.Sprintf("%s = %s %s", self.Result, self.Kind, self.Input)
}

// Op is a generic instruction.
type Op struct {
    _InstrBase
    Name       string
    Defs       []Operand
    Uses       []Operand
    Alives     []Operand
    Temps      []Operand
    States     []Operand
    Call       bool
    TwoOperand bool
}

func (self *Op) Operands(mode OperandMode) []*Operand {
    switch mode {
        case Use   : return operandsOf(self.Uses)
        case Alive : return operandsOf(self.Alives)
        case Temp  : return operandsOf(self.Temps)
        case Def   : return operandsOf(self.Defs)
        case State : return operandsOf(self.States)
        default    : panic("lir: invalid operand mode")
    }
}

func (self *Op) DestroysCallerSaved() bool {
    return self.Call
}

// HintFor hints the first output of a two-operand instruction to its first input.
func (self *Op) HintFor(def *Operand) *Operand {
    if self.TwoOperand && len(self.Defs) != 0 && len(self.Uses) != 0 && def == &self.Defs[0] {
        return &self.Uses[0]
    } else {
        return nil
    }
}

func (self *Op) String() string {
    var buf []string
    var sep string

    /* outputs first */
    if len(self.Defs) != 0 {
        sep = operandsrepr(self.Defs) + " = "
    }

    /* then the inputs */
    for _, v := range self.Uses   { buf = append(buf, v.String()) }
    for _, v := range self.Alives { buf = append(buf, "alive " + v.String()) }
    for _, v := range self.Temps  { buf = append(buf, "temp " + v.String()) }
    for _, v := range self.States { buf = append(buf, "state " + v.String()) }

    /* mark calls */
    if self.Call {
        buf = append(buf, "call")
    }

    /* join them together */
    return fmt.Sprintf("%s%s %s", sep, self.Name, strings.Join(buf, ", "))
}

// IsBlockEnd reports whether ins terminates a block.
func IsBlockEnd(ins Instr) bool {
    switch ins.(type) {
        case *Jump, *Branch, *Return : return true
        default                      : return false
    }
}
