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

package rpc

import (
	"sync"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/stats"
)

const subscriberBuffer = 64

// Store is a stats.Observer keeping a copy of every sample set for concurrent readers.
type Store struct {
	sync.Mutex
	samples   []stats.SampleSet
	totals    stats.Totals
	totalsSrc func() stats.Totals
	subs      map[chan stats.SampleSet]struct{}
	closed    bool
}

// NewStore creates a store; totals, if not nil, is called on every sample from the
// goroutine delivering samples.
func NewStore(totals func() stats.Totals) *Store {
	return &Store{
		totalsSrc: totals,
		subs:      map[chan stats.SampleSet]struct{}{},
	}
}

func (st *Store) OnSample(ss stats.SampleSet) {
	var totals stats.Totals
	if st.totalsSrc != nil {
		totals = st.totalsSrc()
	}

	st.Lock()
	defer st.Unlock()
	st.samples = append(st.samples, ss)
	if st.totalsSrc != nil {
		st.totals = totals
	}
	for ch := range st.subs {
		select {
		case ch <- ss:
		default:
			logger.Warnf("sample subscriber lagging, dropped sample %d", ss.Index)
		}
	}
}

// Latest returns the last sample set and false if none was reported yet.
func (st *Store) Latest() (stats.SampleSet, bool) {
	st.Lock()
	defer st.Unlock()
	if len(st.samples) == 0 {
		return stats.SampleSet{}, false
	}
	return st.samples[len(st.samples)-1], true
}

func (st *Store) Len() int {
	st.Lock()
	defer st.Unlock()
	return len(st.samples)
}

// Series returns the time series of metric m.
func (st *Store) Series(m stats.Metric) []stats.Sample {
	st.Lock()
	defer st.Unlock()
	ret := make([]stats.Sample, 0, len(st.samples))
	for _, ss := range st.samples {
		ret = append(ret, stats.Sample{Time: ss.Time.Seconds(), Value: ss.Get(m)})
	}
	return ret
}

func (st *Store) Totals() stats.Totals {
	st.Lock()
	defer st.Unlock()
	return st.totals
}

// Subscribe returns a channel receiving every subsequent sample set. The channel is closed
// by cancel or by Close.
func (st *Store) Subscribe() (<-chan stats.SampleSet, func()) {
	st.Lock()
	defer st.Unlock()
	ch := make(chan stats.SampleSet, subscriberBuffer)
	if st.closed {
		close(ch)
		return ch, func() {}
	}
	st.subs[ch] = struct{}{}
	return ch, func() {
		st.Lock()
		defer st.Unlock()
		if _, ok := st.subs[ch]; ok {
			delete(st.subs, ch)
			close(ch)
		}
	}
}

// Close ends all subscriptions; the run is over.
func (st *Store) Close() {
	st.Lock()
	defer st.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	for ch := range st.subs {
		close(ch)
	}
	st.subs = map[chan stats.SampleSet]struct{}{}
}
