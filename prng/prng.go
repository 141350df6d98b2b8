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
	"math/rand"
	"sync"
	"time"
)

type RandomSeed int64

// DefaultRootSeed is used until Init is called.
const DefaultRootSeed int64 = 1

var (
	lock                sync.Mutex
	rootSeed            int64
	streamSeedGenerator *rand.Rand
	jitterRandGenerator *rand.Rand
	unitRandGenerator   *rand.Rand
)

func init() {
	Init(DefaultRootSeed)
}

// Init initializes the prng package, either with a fixed PRNG seed (seed != 0) or a 'random' time-based PRNG
// seed (if seed == 0). It returns the root seed in use.
func Init(seed int64) int64 {
	lock.Lock()
	defer lock.Unlock()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rootSeed = seed
	root := rand.New(rand.NewSource(seed))

	streamSeedGenerator = rand.New(rand.NewSource(seed + root.Int63n(1e10)))
	jitterRandGenerator = rand.New(rand.NewSource(seed + root.Int63n(1e10)))
	unitRandGenerator = rand.New(rand.NewSource(seed + root.Int63n(1e10)))
	return seed
}

// RootSeed returns the seed passed to (or chosen by) the last Init.
func RootSeed() int64 {
	lock.Lock()
	defer lock.Unlock()
	return rootSeed
}

// NewStreamSeed generates unique random-seeds for newly created event producers.
func NewStreamSeed() RandomSeed {
	lock.Lock()
	defer lock.Unlock()
	return RandomSeed(streamSeedGenerator.Int63())
}

// NewStream creates an independent random stream. Its sequence only depends on the root seed
// and the number of streams created before it.
func NewStream() *rand.Rand {
	return rand.New(rand.NewSource(int64(NewStreamSeed())))
}

// NewJitter generates a random duration in [0, max).
func NewJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	lock.Lock()
	defer lock.Unlock()
	return time.Duration(jitterRandGenerator.Int63n(int64(max)))
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func NewUnitRandom() float64 {
	lock.Lock()
	defer lock.Unlock()
	return unitRandGenerator.Float64()
}
