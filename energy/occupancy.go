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

package energy

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/logger"
	. "github.com/sdnwifi/wifistats/types"
)

// Occupancy accumulates the time the channel spends in each of the four mutually exclusive
// states, both since the start of the run and since the last interval reset.
// The producer reports each state interval with its elapsed duration; no transition validation
// is done here.
type Occupancy struct {
	total    ChannelTimes
	interval ChannelTimes
}

func NewOccupancy() *Occupancy {
	return &Occupancy{}
}

// OnStateInterval adds duration to the cumulative and the interval counter of state.
func (o *Occupancy) OnStateInterval(state ChannelState, start time.Duration, duration time.Duration) error {
	if !state.IsValid() {
		return errors.Wrapf(ErrUnrecognizedState, "state %d at %v", byte(state), start)
	}
	if duration < 0 {
		return errors.Errorf("negative %v interval at %v: %v", state, start, duration)
	}

	o.total.add(state, duration)
	o.interval.add(state, duration)
	logger.Tracef("channel %v start=%v duration=%v", state, start, duration)
	return nil
}

// Interval returns the time accounted per state since the last ResetInterval.
func (o *Occupancy) Interval() ChannelTimes {
	return o.interval
}

// Total returns the time accounted per state since the start of the run.
func (o *Occupancy) Total() ChannelTimes {
	return o.total
}

// ResetInterval zeroes the interval counters. The cumulative counters are kept.
func (o *Occupancy) ResetInterval() {
	o.interval = ChannelTimes{}
}

// BusyTime returns the cumulative time the channel was busy or receiving.
func (o *Occupancy) BusyTime() time.Duration {
	return o.total.Busy + o.total.Rx
}
