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

package lsra

import (
    `fmt`
    `os`
    `path/filepath`
    `sort`

    `github.com/ajstarks/svgo`
    `github.com/davecgh/go-spew/spew`
    `tlog.app/go/errors`
)

const (
    _RowHeight = 24
    _ColWidth  = 64
    _TopMargin = 100
)

// DumpText returns the intervals and the instructions of the trace in a form
// suitable for humans.
func (self *TraceAllocator) DumpText() string {
    var ivs []string
    var fix []string
    var ins []string

    /* intervals with their use positions */
    for _, it := range self.Intervals() {
        ivs = append(ivs, it.logString())
    }

    /* fixed intervals */
    for _, fi := range self.FixedIntervals() {
        fix = append(fix, fi.String())
    }

    /* the instructions by id */
    for _, v := range self.opIns {
        ins = append(ins, fmt.Sprintf("%4d: %s", v.Id(), v))
    }

    /* dump everything */
    cfg := spew.ConfigState { Indent: "    ", DisablePointerAddresses: true }
    return cfg.Sdump(self.trace.String(), ivs, fix, ins, "frame " + self.frame.Slots().String())
}

func (self *TraceAllocator) dump(dir string) error {
    name := filepath.Join(dir, fmt.Sprintf("trace_%d", self.trace.Id))
    if err := os.WriteFile(name + ".txt", []byte(self.DumpText()), 0644); err != nil {
        return errors.Wrap(err, "write interval dump")
    }

    /* the live range chart */
    fp, err := os.OpenFile(name + ".svg", os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0644)
    if err != nil {
        return errors.Wrap(err, "create live range chart")
    }

    /* draw, then close the file */
    self.drawLiveRanges(svg.New(fp))
    if err = fp.Close(); err != nil {
        return errors.Wrap(err, "close live range chart")
    }
    return nil
}

func positionY(pos int) int {
    return _TopMargin + pos * _RowHeight / 2
}

func locationStyle(it *TraceInterval) string {
    switch loc := it.location; {
        case loc.IsRegister() : return "stroke:black;stroke-width:3"
        case loc.IsStack()    : return "stroke:red;stroke-width:3;stroke-dasharray:4"
        default               : return "stroke:blue;stroke-width:1"
    }
}

// drawLiveRanges draws one column per variable of the trace, every split
// child is a segment labelled with its location.
func (self *TraceAllocator) drawLiveRanges(p *svg.SVG) {
    maxi := 0
    vars := make([]*TraceInterval, 0, len(self.intervals))

    /* the widest instruction */
    for _, v := range self.opIns {
        if n := len(v.String()); n > maxi {
            maxi = n
        }
    }

    /* split parents only, the children share the column */
    for _, it := range self.intervals {
        if it != nil && !it.isEmpty() && it.IsSplitParent() && it.origin == nil {
            vars = append(vars, it)
        }
    }

    /* ordered by variable */
    sort.Slice(vars, func(i int, j int) bool {
        return vars[i].Number() < vars[j].Number()
    })

    /* canvas */
    insw := maxi * 9 + 120
    p.Start(insw + len(vars) * _ColWidth + 100, positionY(self.maxOpId() + 2) + _TopMargin)
    p.Rect(0, 0, insw + len(vars) * _ColWidth + 100, positionY(self.maxOpId() + 2) + _TopMargin, "fill:white")

    /* instructions and block boundaries */
    for i, v := range self.opIns {
        y := positionY(i << 1)
        if self.isBlockBegin(i << 1) {
            p.Line(10, y - _RowHeight / 2, insw + len(vars) * _ColWidth + 50, y - _RowHeight / 2, "stroke:lightgray")
            p.Text(16, y + 5, fmt.Sprintf("bb_%d", self.blocks[self.opBlock[i]].Id), "fill:gray;font-size:16px;font-family:monospace")
        }
        p.Text(insw, y + 5, fmt.Sprintf("%d: %s", v.Id(), v), "fill:black;font-size:16px;font-family:monospace;text-anchor:end")
    }

    /* one column per variable */
    for i, it := range vars {
        x := insw + i * _ColWidth + 50
        p.Text(x, _TopMargin - 30, it.Operand.String(), "fill:black;font-size:16px;font-family:monospace;text-anchor:middle")

        /* the split children */
        for _, c := range it.Children() {
            y0, y1 := positionY(c.from), positionY(c.to)
            p.Line(x, y0, x, y1, locationStyle(c))
            p.Text(x + 6, y0 + 12, valueOf(c, false).String(), "fill:gray;font-size:10px;font-family:monospace")

            /* use positions */
            for _, u := range c.uses {
                if u.prio == PriorityMust {
                    p.Circle(x, positionY(u.pos), 4, "fill:black;stroke:black;stroke-width:2")
                } else {
                    p.Circle(x, positionY(u.pos), 4, "fill:white;stroke:black;stroke-width:2")
                }
            }
        }
    }
    p.End()
}
