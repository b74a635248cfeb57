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

package tests

import (
    `github.com/cloudwego/tracera/arch`
    `github.com/cloudwego/tracera/lir`
    `tlog.app/go/errors`
)

const (
    _Poison  = int64(0x5eeddead)
    _MaxFuel = 1 << 20
)

// Machine executes LIR programs, before or after register allocation. The
// observable behavior of a program is the list of values passed to "use",
// "call" and "ret" instructions, followed for every operation by the values
// of its alive and state operands. Those are read after the temporaries are
// clobbered and the call has destroyed the caller-saved registers.
type Machine struct {
    cfg  *arch.Config
    seq  int64
    fuel int
    vals map[lir.Value]int64
    Log  []int64
}

// NewMachine creates a machine for programs allocated with cfg, or for
// unallocated programs when cfg is nil.
func NewMachine(cfg *arch.Config) *Machine {
    return &Machine {
        cfg  : cfg,
        vals : make(map[lir.Value]int64),
    }
}

// Execute runs the program once and returns its observable behavior.
func Execute(p *lir.Program, cfg *arch.Config) ([]int64, error) {
    m := NewMachine(cfg)
    if err := m.Run(p); err != nil {
        return nil, err
    } else {
        return m.Log, nil
    }
}

func (self *Machine) allocated() bool {
    return self.cfg != nil
}

func (self *Machine) read(v lir.Value) (int64, error) {
    switch {
        case v.IsConstant()                     : return v.Constant(), nil
        case v.IsVariable() && self.allocated() : return 0, errors.New("variable %s in allocated program", v)
    }

    /* undefined locations read as garbage */
    if r, ok := self.vals[v.Key()]; ok {
        return r, nil
    } else {
        return _Poison, nil
    }
}

func (self *Machine) write(v lir.Value, r int64) error {
    if !v.IsVariable() && !v.IsLocation() {
        return errors.New("cannot write to %s", v)
    } else if v.IsVariable() && self.allocated() {
        return errors.New("variable %s in allocated program", v)
    } else {
        self.vals[v.Key()] = r
        return nil
    }
}

func (self *Machine) readAll(ops []lir.Operand) ([]int64, error) {
    ret := make([]int64, 0, len(ops))
    for _, op := range ops {
        if r, err := self.read(op.V); err != nil {
            return nil, err
        } else {
            ret = append(ret, r)
        }
    }
    return ret, nil
}

func (self *Machine) mix(args []int64, k int) int64 {
    h := int64(17)
    for _, v := range args {
        h = h * 31 + v
    }
    return h + int64(k)
}

// Run executes p from the entry block until it returns.
func (self *Machine) Run(p *lir.Program) error {
    bb := p.Entry()
    for bb != nil {
        var err error
        var next *lir.Block

        /* execute every instruction */
        for _, ins := range bb.Ins {
            if self.fuel++; self.fuel > _MaxFuel {
                return errors.New("out of fuel in bb_%d", bb.Id)
            }
            if next, err = self.exec(ins); err != nil {
                return errors.Wrap(err, "bb_%d: %s", bb.Id, ins)
            }
        }

        /* move on to the successor */
        bb = next
    }
    return nil
}

func (self *Machine) exec(ins lir.Instr) (*lir.Block, error) {
    switch v := ins.(type) {
        case *lir.Label  : return nil, nil
        case *lir.Move   : return nil, self.move(v)
        case *lir.Op     : return nil, self.op(v)
        case *lir.Jump   : return v.To, self.jump(v)
        case *lir.Branch : return self.branch(v)
        case *lir.Return : return nil, self.ret(v)
        default          : return nil, errors.New("unknown instruction %T", ins)
    }
}

func (self *Machine) move(mv *lir.Move) error {
    if r, err := self.read(mv.Input.V); err != nil {
        return err
    } else {
        return self.write(mv.Result.V, r)
    }
}

func (self *Machine) op(op *lir.Op) error {
    var r   int64
    var err error
    var args []int64

    /* read every input first */
    if args, err = self.readAll(op.Uses); err != nil {
        return err
    }

    /* observable effects */
    switch op.Name {
        case "use", "call": {
            self.Log = append(self.Log, args...)
        }
    }

    /* temporaries hold garbage afterwards */
    for _, t := range op.Temps {
        if t.V.IsVariable() || t.V.IsLocation() {
            if err = self.write(t.V, _Poison); err != nil {
                return err
            }
        }
    }

    /* calls destroy the caller-saved registers */
    if op.Call && self.allocated() {
        for _, reg := range self.cfg.CallerSaved() {
            delete(self.vals, reg.Value().Key())
        }
    }

    /* values that must survive the instruction */
    if kept, err := self.readAll(append(append([]lir.Operand(nil), op.Alives...), op.States...)); err != nil {
        return err
    } else {
        self.Log = append(self.Log, kept...)
    }

    /* then write the results */
    for k, d := range op.Defs {
        switch op.Name {
            case "load" : self.seq++; r = self.seq * 7919
            case "add"  : r = args[0] + args[1]
            case "lt"   : r = b2i(args[0] < args[1])
            case "call" : self.seq++; r = self.mix(args, k) ^ self.seq
            default     : r = self.mix(args, k)
        }
        if err = self.write(d.V, r); err != nil {
            return err
        }
    }
    return nil
}

func (self *Machine) jump(jmp *lir.Jump) error {
    if self.allocated() {
        return nil
    }

    /* phi inputs are copied in parallel */
    args, err := self.readAll(jmp.Outgoing)
    if err != nil {
        return err
    }

    /* into the phi outputs of the target */
    for i, op := range jmp.To.Label().Incoming {
        if err = self.write(op.V, args[i]); err != nil {
            return err
        }
    }
    return nil
}

func (self *Machine) branch(br *lir.Branch) (*lir.Block, error) {
    if c, err := self.read(br.Cond[0].V); err != nil {
        return nil, err
    } else if c != 0 {
        return br.Then, nil
    } else {
        return br.Else, nil
    }
}

func (self *Machine) ret(ret *lir.Return) error {
    if args, err := self.readAll(ret.Values); err != nil {
        return err
    } else {
        self.Log = append(self.Log, args...)
        return nil
    }
}

func b2i(v bool) int64 {
    if v {
        return 1
    } else {
        return 0
    }
}
