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

// Builder constructs LIR programs block by block.
type Builder struct {
    p  *Program
    bb *Block
}

// NewBuilder creates a builder positioned at the entry block of a new program.
func NewBuilder() *Builder {
    p := new(Program)
    return &Builder { p: p, bb: p.CreateBlock() }
}

func (self *Builder) Program() *Program { return self.p }
func (self *Builder) Block()   *Block   { return self.bb }

// NewBlock creates a new block without moving the insertion point.
func (self *Builder) NewBlock() *Block {
    return self.p.CreateBlock()
}

// At moves the insertion point to the end of bb.
func (self *Builder) At(bb *Block) *Builder {
    self.bb = bb
    return self
}

// Var creates a new variable.
func (self *Builder) Var(k Kind) Value {
    return self.p.NewVar(k)
}

// Phi adds phi outputs to the label of the current block.
func (self *Builder) Phi(vals ...Value) {
    self.bb.Label().AddIncoming(vals...)
}

// Add appends an instruction to the current block.
func (self *Builder) Add(ins Instr) Instr {
    n := len(self.bb.Ins)
    self.bb.Ins = append(self.bb.Ins, ins)

    /* keep the terminator at the end */
    if n > 1 && IsBlockEnd(self.bb.Ins[n - 1]) {
        self.bb.Ins[n - 1], self.bb.Ins[n] = self.bb.Ins[n], self.bb.Ins[n - 1]
    }
    return ins
}

// Move emits dst = src.
func (self *Builder) Move(dst Value, src Value) *Move {
    mv := NewMove(MoveNormal, dst, src)
    mv.SetId(0)
    self.Add(mv)
    return mv
}

// Const emits dst = $v.
func (self *Builder) Const(dst Value, v int64) *Move {
    return self.Move(dst, Const(v, dst.Kind()))
}

// Op emits a generic instruction whose operands all require registers.
func (self *Builder) Op(name string, defs []Value, uses ...Value) *Op {
    op := &Op {
        Name : name,
        Defs : valueslice(defs, FlagReg),
        Uses : valueslice(uses, FlagReg),
    }
    self.Add(op)
    return op
}

// BinOp emits a two-operand arithmetic instruction, dst is hinted to x.
func (self *Builder) BinOp(name string, dst Value, x Value, y Value) *Op {
    op := self.Op(name, []Value { dst }, x, y)
    op.TwoOperand = true
    op.Defs[0].Flags |= FlagHint
    op.Uses[1].Flags |= FlagStack
    return op
}

// Call emits a call that destroys every caller-saved register.
func (self *Builder) Call(name string, defs []Value, uses ...Value) *Op {
    op := self.Op(name, defs, uses...)
    op.Call = true
    return op
}

// Jump terminates the current block with a jump passing phi inputs.
func (self *Builder) Jump(to *Block, vals ...Value) *Jump {
    jmp := &Jump { To: to, Outgoing: valueslice(vals, FlagReg | FlagStack | FlagConst) }
    self.bb.SetTerm(jmp)
    return jmp
}

// Branch terminates the current block with a two-way branch.
func (self *Builder) Branch(cond Value, then *Block, els *Block) *Branch {
    br := &Branch { Cond: valueslice([]Value { cond }, FlagReg), Then: then, Else: els }
    self.bb.SetTerm(br)
    return br
}

// Return terminates the current block.
func (self *Builder) Return(vals ...Value) *Return {
    ret := &Return { Values: valueslice(vals, FlagReg) }
    self.bb.SetTerm(ret)
    return ret
}

// Finish links the predecessor lists and returns the program.
func (self *Builder) Finish() *Program {
    self.p.Link()
    return self.p
}
