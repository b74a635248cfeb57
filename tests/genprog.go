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
    `math/rand`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/tracera/lir`
)

// ProgramConfig controls the shape of generated programs.
type ProgramConfig struct {
    Floats   bool
    Length   int
    MaxDepth int
}

// DefaultProgramConfig generates integer-only programs of moderate size.
var DefaultProgramConfig = ProgramConfig {
    Floats   : false,
    Length   : 8,
    MaxDepth : 2,
}

type _Scope struct {
    vals []lir.Value
}

func (self *_Scope) add(vals ...lir.Value) {
    self.vals = append(self.vals, vals...)
}

func (self *_Scope) clone() *_Scope {
    return &_Scope { vals: append([]lir.Value(nil), self.vals...) }
}

type _Gen struct {
    f   *gofakeit.Faker
    b   *lir.Builder
    cfg ProgramConfig
}

// GenProgram generates a random structured program: straight-line code,
// if-else diamonds merging with phis and counted loops. Every loop runs at
// most three times, so every generated program terminates. The same seed
// always gives the same program, zero included.
func GenProgram(seed int64, cfg ProgramConfig) *lir.Program {
    g := &_Gen {
        f   : gofakeit.NewCustom(rand.NewSource(seed).(rand.Source64)),
        b   : lir.NewBuilder(),
        cfg : cfg,
    }

    /* every program starts with some values */
    sc := new(_Scope)
    g.load(sc, lir.KindInt)
    g.region(sc, 0)

    /* return one or two of them */
    if g.f.Bool() {
        g.b.Return(g.pick(sc, lir.KindInt))
    } else {
        g.b.Return(g.pick(sc, lir.KindInt), g.pick(sc, g.kind()))
    }
    return g.b.Finish()
}

func (self *_Gen) kind() lir.Kind {
    if !self.cfg.Floats || self.f.Number(0, 2) != 0 {
        return lir.KindInt
    } else {
        return lir.KindFloat
    }
}

func (self *_Gen) load(sc *_Scope, k lir.Kind) lir.Value {
    v := self.b.Var(k)
    self.b.Op("load", []lir.Value { v })
    sc.add(v)
    return v
}

func (self *_Gen) pick(sc *_Scope, k lir.Kind) lir.Value {
    var vals []lir.Value
    for _, v := range sc.vals {
        if v.Kind() == k {
            vals = append(vals, v)
        }
    }

    /* define one if nothing is there */
    if len(vals) == 0 {
        return self.load(sc, k)
    } else {
        return vals[self.f.Number(0, len(vals) - 1)]
    }
}

func (self *_Gen) region(sc *_Scope, depth int) {
    for n := self.f.Number(1, self.cfg.Length); n > 0; n-- {
        switch self.f.Number(0, 9) {
            case 0, 1 : self.load(sc, self.kind())
            case 2    : self.constant(sc)
            case 3, 4 : self.binop(sc)
            case 5    : self.mix(sc)
            case 6    : self.call(sc)
            case 7    : self.diamond(sc, depth)
            case 8    : self.loop(sc, depth)
            case 9    : self.b.Op("use", nil, self.pick(sc, self.kind()))
        }
    }
}

func (self *_Gen) constant(sc *_Scope) {
    v := self.b.Var(lir.KindInt)
    self.b.Const(v, int64(self.f.Number(-100, 100)))
    sc.add(v)
}

func (self *_Gen) binop(sc *_Scope) {
    k := self.kind()
    x := self.pick(sc, k)
    y := self.pick(sc, k)
    d := self.b.Var(k)
    self.b.BinOp("add", d, x, y)
    sc.add(d)
}

func (self *_Gen) mix(sc *_Scope) {
    var alives []lir.Operand
    var temps  []lir.Operand

    /* inputs are picked before anything is emitted */
    x := self.pick(sc, self.kind())
    y := self.pick(sc, self.kind())

    /* a value that must survive the instruction */
    if self.f.Number(0, 3) == 0 {
        alives = append(alives, lir.OpReg(self.pick(sc, self.kind())))
    }

    /* a scratch register */
    if self.f.Number(0, 3) == 0 {
        temps = append(temps, lir.OpReg(self.b.Var(self.kind())))
    }

    /* emit the instruction */
    st := self.states(sc)
    d := self.b.Var(self.kind())
    op := self.b.Op("mix", []lir.Value { d }, x, y)
    op.Alives = alives
    op.Temps = temps
    op.States = st
    sc.add(d)
}

// states picks the values observed after an instruction, if any.
func (self *_Gen) states(sc *_Scope) []lir.Operand {
    var ret []lir.Operand
    if self.f.Bool() {
        for i := self.f.Number(1, 2); i > 0; i-- {
            ret = append(ret, lir.OpAny(self.pick(sc, self.kind())))
        }
    }
    return ret
}

func (self *_Gen) call(sc *_Scope) {
    var defs []lir.Value
    var args []lir.Value

    /* up to two arguments */
    for i := self.f.Number(0, 2); i > 0; i-- {
        args = append(args, self.pick(sc, lir.KindInt))
    }

    /* and maybe a result */
    if self.f.Bool() {
        defs = append(defs, self.b.Var(self.kind()))
    }

    /* emit the call, its states must survive it */
    st := self.states(sc)
    self.b.Call("call", defs, args...).States = st
    sc.add(defs...)
}

func (self *_Gen) diamond(sc *_Scope, depth int) {
    if depth >= self.cfg.MaxDepth {
        self.mix(sc)
        return
    }

    /* the arms and the merge point */
    k := self.kind()
    c := self.pick(sc, lir.KindInt)
    merge := self.b.NewBlock()
    arms := [2]*lir.Block { self.b.NewBlock(), self.b.NewBlock() }
    self.b.Branch(c, arms[0], arms[1])

    /* random branch probabilities */
    for _, bb := range arms {
        bb.Probability = self.f.Float64Range(0.05, 1)
    }

    /* each arm passes one value to the merge point */
    for _, bb := range arms {
        s := sc.clone()
        self.b.At(bb)
        self.region(s, depth + 1)
        self.b.Jump(merge, self.pick(s, k))
    }

    /* the merged value */
    m := self.b.Var(k)
    self.b.At(merge).Phi(m)
    sc.add(m)
}

func (self *_Gen) loop(sc *_Scope, depth int) {
    if depth >= self.cfg.MaxDepth {
        self.binop(sc)
        return
    }

    /* loop bounds */
    i0 := self.b.Var(lir.KindInt)
    nn := self.b.Var(lir.KindInt)
    one := self.b.Var(lir.KindInt)
    self.b.Const(i0, 0)
    self.b.Const(nn, int64(self.f.Number(1, 3)))
    self.b.Const(one, 1)

    /* the loop blocks */
    acc0 := self.pick(sc, lir.KindInt)
    head := self.b.NewBlock()
    body := self.b.NewBlock()
    exit := self.b.NewBlock()
    self.b.Jump(head, i0, acc0)

    /* loops are hot */
    body.Probability = self.f.Float64Range(2, 8)
    head.Probability = body.Probability + 1

    /* header: i, acc = phi; if i < n goto body else exit */
    i := self.b.Var(lir.KindInt)
    c := self.b.Var(lir.KindInt)
    acc := self.b.Var(lir.KindInt)
    self.b.At(head).Phi(i, acc)
    self.b.Op("lt", []lir.Value { c }, i, nn)
    self.b.Branch(c, body, exit)

    /* body: accumulate something, then count */
    s := sc.clone()
    s.add(i, acc)
    self.b.At(body)
    self.region(s, depth + 1)
    i2 := self.b.Var(lir.KindInt)
    acc2 := self.b.Var(lir.KindInt)
    self.b.Op("mix", []lir.Value { acc2 }, acc, self.pick(s, lir.KindInt))
    self.b.BinOp("add", i2, i, one)
    self.b.Jump(head, i2, acc2)

    /* the header values are available after the loop */
    self.b.At(exit)
    sc.add(i, acc)
}
