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

package phy

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/logger"
	. "github.com/sdnwifi/wifistats/types"
)

// TxTimeEntry pairs a data rate with the airtime of the reference frame at that rate.
type TxTimeEntry struct {
	Rate     DataRate
	Duration time.Duration
}

// TxTimeTable maps a rate to the airtime of a fixed-size reference frame. It is built once
// from the radio's mode set and never changes afterwards.
type TxTimeTable struct {
	frameSize uint32
	entries   []TxTimeEntry
}

// NewTxTimeTable computes one entry per mode in modes, in the given order, for frames of
// frameSize bytes sent with the preamble and channel width of txv (txv.Mode is ignored).
func NewTxTimeTable(modes []WifiMode, frameSize uint32, txv TxVector) (*TxTimeTable, error) {
	if len(modes) == 0 {
		return nil, errors.New("tx time table needs at least one mode")
	}
	if frameSize == 0 {
		return nil, errors.New("tx time table needs a non-zero frame size")
	}

	tt := &TxTimeTable{
		frameSize: frameSize,
		entries:   make([]TxTimeEntry, 0, len(modes)),
	}
	for i, mode := range modes {
		txv.Mode = mode
		d, err := CalculateTxDuration(frameSize, txv)
		if err != nil {
			return nil, errors.Wrapf(err, "mode %s", mode.Name)
		}
		rate := mode.DataRate(txv.ChannelWidth)
		logger.Debugf("%d %f %v", i, d.Seconds(), rate)
		tt.entries = append(tt.entries, TxTimeEntry{Rate: rate, Duration: d})
	}
	return tt, nil
}

// Lookup returns the airtime of the reference frame at rate. The rate must match a table
// entry exactly; ErrRateNotFound means the producer and the table disagree on the mode set.
func (tt *TxTimeTable) Lookup(rate DataRate) (time.Duration, error) {
	for _, e := range tt.entries {
		if e.Rate == rate {
			return e.Duration, nil
		}
	}
	return 0, errors.Wrapf(ErrRateNotFound, "%v (frame size %d)", rate, tt.frameSize)
}

func (tt *TxTimeTable) FrameSize() uint32 {
	return tt.frameSize
}

// Entries returns a copy of the table entries in build order.
func (tt *TxTimeTable) Entries() []TxTimeEntry {
	ret := make([]TxTimeEntry, len(tt.entries))
	copy(ret, tt.entries)
	return ret
}

// Rates returns the rates of the table in build order.
func (tt *TxTimeTable) Rates() []DataRate {
	ret := make([]DataRate, 0, len(tt.entries))
	for _, e := range tt.entries {
		ret = append(ret, e.Rate)
	}
	return ret
}
