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

package trace

import (
    `math/bits`
)

type bitset []uint64

func newBitset(n int) bitset {
    return make(bitset, (n + 63) >> 6)
}

func (s bitset) set(i int) {
    x, y := i >> 6, i & 63 // i/64, i%64
    s[x] |= 1 << y
}

func (s bitset) unset(i int) {
    x, y := i >> 6, i & 63 // i/64, i%64
    s[x] &^= 1 << y
}

func (s bitset) test(i int) bool {
    x, y := i >> 6, i & 63 // i/64, i%64
    return s[x] & (1 << y) != 0
}

func (s bitset) union(o bitset) {
    for i, v := range o {
        s[i] |= v
    }
}

func (s bitset) equals(o bitset) bool {
    for i, v := range o {
        if s[i] != v {
            return false
        }
    }
    return true
}

func (s bitset) clone() bitset {
    return append(bitset(nil), s...)
}

func (s bitset) slice() []int {
    var ret []int
    for i, v := range s {
        for v != 0 {
            ret = append(ret, i << 6 + bits.TrailingZeros64(v))
            v &= v - 1
        }
    }
    return ret
}
