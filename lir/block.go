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

// Block is a basic block. The first instruction is always a *Label and the
// last one is a *Jump, *Branch or *Return.
type Block struct {
    Id          int
    Ins         []Instr
    Pred        []*Block
    Succ        []*Block
    Probability float64
    LoopHeader  bool
    LoopEnd     bool
    LoopDepth   int
}

// Label returns the label of the block.
func (self *Block) Label() *Label {
    return self.Ins[0].(*Label)
}

// Term returns the last instruction of the block.
func (self *Block) Term() Instr {
    return self.Ins[len(self.Ins) - 1]
}

// PredIndex returns the position of p in the predecessor list, or -1.
func (self *Block) PredIndex(p *Block) int {
    for i, v := range self.Pred {
        if v == p {
            return i
        }
    }
    return -1
}

// SetTerm replaces the terminator of the block and rebuilds the successor
// list from it.
func (self *Block) SetTerm(ins Instr) {
    if !IsBlockEnd(ins) {
        panic("lir: not a block terminator: " + ins.String())
    }

    /* append or replace */
    if n := len(self.Ins); n > 1 && IsBlockEnd(self.Ins[n - 1]) {
        self.Ins[n - 1] = ins
    } else {
        self.Ins = append(self.Ins, ins)
    }

    /* rebuild successors */
    switch t := ins.(type) {
        case *Jump   : self.Succ = []*Block { t.To }
        case *Branch : self.Succ = []*Block { t.Then, t.Else }
        case *Return : self.Succ = nil
    }
}

// replaceSucc redirects the edge to old so it reaches nb instead.
func (self *Block) replaceSucc(old *Block, nb *Block) {
    for i, v := range self.Succ {
        if v == old {
            self.Succ[i] = nb
            break
        }
    }

    /* update the terminator */
    switch t := self.Term().(type) {
        case *Jump: {
            t.To = nb
        }
        case *Branch: {
            if t.Then == old {
                t.Then = nb
            } else if t.Else == old {
                t.Else = nb
            }
        }
    }
}

func (self *Block) String() string {
    buf := make([]string, 0, len(self.Ins))
    for _, v := range self.Ins {
        if v.Id() < 0 {
            buf = append(buf, fmt.Sprintf("      %s", v))
        } else {
            buf = append(buf, fmt.Sprintf("%4d  %s", v.Id(), v))
        }
    }
    return strings.Join(buf, "\n")
}

// Program is a whole LIR compilation unit.
type Program struct {
    Blocks []*Block
    Vars   []Kind
}

// Entry returns the entry block.
func (self *Program) Entry() *Block {
    return self.Blocks[0]
}

// NumVars returns the number of variables created so far.
func (self *Program) NumVars() int {
    return len(self.Vars)
}

// NewVar creates a new variable of kind k.
func (self *Program) NewVar(k Kind) Value {
    self.Vars = append(self.Vars, k)
    return Var(len(self.Vars) - 1, k)
}

// CreateBlock appends a new block with an empty label.
func (self *Program) CreateBlock() *Block {
    bb := &Block {
        Id          : len(self.Blocks),
        Probability : 1.0,
    }

    /* every block starts with a label */
    bb.Ins = []Instr { &Label { Block: bb } }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// Link rebuilds the predecessor lists from the successor lists.
func (self *Program) Link() {
    for _, bb := range self.Blocks {
        bb.Pred = bb.Pred[:0]
    }
    for _, bb := range self.Blocks {
        for _, s := range bb.Succ {
            s.Pred = append(s.Pred, bb)
        }
    }
}

// ForEachInstr calls fn on every instruction of the program in block order.
func (self *Program) ForEachInstr(fn func(bb *Block, ins Instr)) {
    for _, bb := range self.Blocks {
        for _, v := range bb.Ins {
            fn(bb, v)
        }
    }
}

func (self *Program) String() string {
    buf := make([]string, 0, len(self.Blocks))
    for _, bb := range self.Blocks {
        buf = append(buf, bb.String())
    }
    return strings.Join(buf, "\n")
}
