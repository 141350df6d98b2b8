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
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Preamble selects the PLCP preamble used for a transmission.
type Preamble int

const (
	PreambleLong Preamble = iota
	PreambleShort
)

func (p Preamble) String() string {
	if p == PreambleShort {
		return "short"
	}
	return "long"
}

func ParsePreamble(s string) (Preamble, error) {
	switch strings.ToLower(s) {
	case "long", "":
		return PreambleLong, nil
	case "short":
		return PreambleShort, nil
	default:
		return PreambleLong, errors.Errorf("invalid preamble: %q", s)
	}
}

// TxVector holds the transmission parameters of one frame.
type TxVector struct {
	Mode         WifiMode
	Preamble     Preamble
	ChannelWidth uint16 // MHz
}

const (
	ofdmServiceBits = 16
	ofdmTailBits    = 6

	dsssLongPreamble  = 144 * time.Microsecond
	dsssLongHeader    = 48 * time.Microsecond
	dsssShortPreamble = 72 * time.Microsecond
	dsssShortHeader   = 24 * time.Microsecond
)

// ofdmSymbolDuration returns the OFDM symbol duration; 0 for an unsupported width.
func ofdmSymbolDuration(channelWidth uint16) time.Duration {
	switch channelWidth {
	case 20:
		return 4 * time.Microsecond
	case 10:
		return 8 * time.Microsecond
	case 5:
		return 16 * time.Microsecond
	default:
		return 0
	}
}

// CalculateTxDuration returns the airtime of a frame of size bytes sent with txv.
func CalculateTxDuration(size uint32, txv TxVector) (time.Duration, error) {
	switch txv.Mode.Class {
	case ModClassOfdm:
		return ofdmTxDuration(size, txv)
	case ModClassDsss:
		return dsssTxDuration(size, txv), nil
	default:
		return 0, errors.Errorf("unsupported modulation class: %v", txv.Mode.Class)
	}
}

func ofdmTxDuration(size uint32, txv TxVector) (time.Duration, error) {
	sym := ofdmSymbolDuration(txv.ChannelWidth)
	if sym == 0 {
		return 0, errors.Errorf("unsupported OFDM channel width: %d MHz", txv.ChannelWidth)
	}
	if txv.Mode.Ndbps == 0 {
		return 0, errors.Errorf("mode %s has no bits per symbol", txv.Mode.Name)
	}

	// preamble and SIGNAL field are 4 and 1 symbol(s) long at every width.
	preamble := 4 * sym
	signal := sym

	bits := uint64(ofdmServiceBits) + 8*uint64(size) + uint64(ofdmTailBits)
	nsym := (bits + uint64(txv.Mode.Ndbps) - 1) / uint64(txv.Mode.Ndbps)
	return preamble + signal + time.Duration(nsym)*sym, nil
}

func dsssTxDuration(size uint32, txv TxVector) time.Duration {
	preamble, header := dsssLongPreamble, dsssLongHeader
	// short preamble is not defined for the 1 Mb/s mode.
	if txv.Preamble == PreambleShort && txv.Mode.dsssRate > 1000000 {
		preamble, header = dsssShortPreamble, dsssShortHeader
	}
	rate := uint64(txv.Mode.dsssRate)
	payloadUs := (8*uint64(size)*1000000 + rate - 1) / rate
	return preamble + header + time.Duration(payloadUs)*time.Microsecond
}
