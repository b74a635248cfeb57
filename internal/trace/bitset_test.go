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
    `testing`

    `github.com/stretchr/testify/require`
)

func TestBitset(t *testing.T) {
    s := newBitset(1000)
    for i := 0; i < 1000; i++ {
        if i % 2 == 0 {
            s.set(i)
        }
        if i % 4 == 0 {
            s.unset(i)
        }
    }
    for i := 0; i < 1000; i++ {
        if i % 4 == 0 {
            require.False(t, s.test(i))
        } else if i % 2 == 0 {
            require.True(t, s.test(i))
        } else {
            require.False(t, s.test(i))
        }
    }
    c := s.clone()
    require.True(t, c.equals(s))
    c.set(1)
    require.False(t, c.equals(s))
    s.union(c)
    require.True(t, s.test(1))
    require.Equal(t, []int { 1, 2, 6 }, s.slice()[:3])
}
