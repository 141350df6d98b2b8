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

	"github.com/sdnwifi/wifistats/phy"
	. "github.com/sdnwifi/wifistats/types"
)

// LinkState provides the current power and rate of a destination.
type LinkState interface {
	CurrentPower(addr MacAddress) (DbmValue, error)
	CurrentRate(addr MacAddress) (DataRate, error)
}

// AirtimeTable provides the airtime of the reference frame at a rate.
type AirtimeTable interface {
	Lookup(rate DataRate) (time.Duration, error)
}

// TxEnergy charges every outgoing data frame with its destination's current power sustained
// for the airtime of the reference frame at the destination's current rate.
type TxEnergy struct {
	links LinkState
	table AirtimeTable

	energy float64 // mW·s
	txTime time.Duration
	totals TxTotals
}

func NewTxEnergy(links LinkState, table AirtimeTable) *TxEnergy {
	return &TxEnergy{
		links: links,
		table: table,
	}
}

// OnFrameSent accounts one frame sent to dest. Only data frames are charged.
func (te *TxEnergy) OnFrameSent(dest MacAddress, kind FrameKind) error {
	if kind != FrameData {
		te.totals.OtherFrames++
		return nil
	}

	power, err := te.links.CurrentPower(dest)
	if err != nil {
		return err
	}
	rate, err := te.links.CurrentRate(dest)
	if err != nil {
		return err
	}
	airtime, err := te.table.Lookup(rate)
	if err != nil {
		return errors.Wrapf(err, "frame to %s", dest)
	}

	e := phy.DbmToMilliwatt(power) * airtime.Seconds()
	te.energy += e
	te.txTime += airtime
	te.totals.Energy += e
	te.totals.TxTime += airtime
	te.totals.DataFrames++
	return nil
}

// Energy returns the energy charged since the last Reset, in mW·s.
func (te *TxEnergy) Energy() float64 {
	return te.energy
}

// TxTime returns the airtime charged since the last Reset.
func (te *TxEnergy) TxTime() time.Duration {
	return te.txTime
}

// Reset zeroes the interval energy and transmit time.
func (te *TxEnergy) Reset() {
	te.energy = 0
	te.txTime = 0
}

func (te *TxEnergy) Totals() TxTotals {
	return te.totals
}
