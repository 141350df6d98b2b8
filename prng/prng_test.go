// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package prng

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicStreams(t *testing.T) {
	Init(12345)
	assert.Equal(t, int64(12345), RootSeed())
	a := NewStream()
	seqA := []int64{a.Int63(), a.Int63(), a.Int63()}
	j := NewJitter(time.Second)
	u := NewUnitRandom()

	Init(12345)
	b := NewStream()
	assert.Equal(t, seqA, []int64{b.Int63(), b.Int63(), b.Int63()})
	assert.Equal(t, j, NewJitter(time.Second))
	assert.Equal(t, u, NewUnitRandom())

	c := NewStream()
	assert.NotEqual(t, seqA[0], c.Int63())
}

func TestRanges(t *testing.T) {
	Init(7)
	for i := 0; i < 1000; i++ {
		j := NewJitter(time.Millisecond)
		assert.True(t, j >= 0 && j < time.Millisecond)
		u := NewUnitRandom()
		assert.True(t, u >= 0 && u < 1)
	}
	assert.Equal(t, time.Duration(0), NewJitter(0))
}

func TestTimeBasedSeed(t *testing.T) {
	seed := Init(0)
	assert.NotEqual(t, int64(0), seed)
	assert.Equal(t, seed, RootSeed())
	Init(DefaultRootSeed)
}
