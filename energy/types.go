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

	"github.com/sdnwifi/wifistats/logger"
	. "github.com/sdnwifi/wifistats/types"
)

// ChannelTimes holds the time spent in each channel state.
type ChannelTimes struct {
	Idle time.Duration `json:"idle" yaml:"idle"`
	Busy time.Duration `json:"busy" yaml:"busy"`
	Tx   time.Duration `json:"tx" yaml:"tx"`
	Rx   time.Duration `json:"rx" yaml:"rx"`
}

// Get returns the time spent in state.
func (ct ChannelTimes) Get(state ChannelState) time.Duration {
	switch state {
	case ChannelIdle:
		return ct.Idle
	case ChannelBusy:
		return ct.Busy
	case ChannelTx:
		return ct.Tx
	case ChannelRx:
		return ct.Rx
	default:
		logger.Panicf("unknown channel state: %v", state)
		return 0
	}
}

func (ct *ChannelTimes) add(state ChannelState, d time.Duration) {
	switch state {
	case ChannelIdle:
		ct.Idle += d
	case ChannelBusy:
		ct.Busy += d
	case ChannelTx:
		ct.Tx += d
	case ChannelRx:
		ct.Rx += d
	default:
		logger.Panicf("unknown channel state: %v", state)
	}
}

// Sum returns the time accounted over all states.
func (ct ChannelTimes) Sum() time.Duration {
	return ct.Idle + ct.Busy + ct.Tx + ct.Rx
}

// TxTotals are the run totals of the transmit energy accounting.
type TxTotals struct {
	Energy      float64       `json:"energy_mws" yaml:"energy_mws"` // mW·s
	TxTime      time.Duration `json:"tx_time" yaml:"tx_time"`
	DataFrames  uint64        `json:"data_frames" yaml:"data_frames"`
	OtherFrames uint64        `json:"other_frames" yaml:"other_frames"`
}
