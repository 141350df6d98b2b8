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

	"github.com/pkg/errors"

	. "github.com/sdnwifi/wifistats/types"
)

// Standard names a PHY standard whose mode set and timing the package knows.
type Standard string

const (
	Standard80211a Standard = "80211a"
	Standard80211b Standard = "80211b"
)

// ModulationClass selects the timing rules of a mode.
type ModulationClass int

const (
	ModClassDsss ModulationClass = iota
	ModClassOfdm
)

func (c ModulationClass) String() string {
	switch c {
	case ModClassDsss:
		return "DSSS"
	case ModClassOfdm:
		return "OFDM"
	default:
		return "unknown"
	}
}

// WifiMode is one modulation and coding combination supported by a radio.
type WifiMode struct {
	Name       string
	Class      ModulationClass
	Modulation string
	CodingRate string

	// Ndbps is the number of data bits per OFDM symbol (OFDM only).
	Ndbps uint32

	// dsssRate is the fixed rate of a DSSS/CCK mode.
	dsssRate DataRate
}

// DataRate returns the data rate of the mode at the given channel width in MHz.
// DSSS modes ignore the width.
func (m WifiMode) DataRate(channelWidth uint16) DataRate {
	switch m.Class {
	case ModClassDsss:
		return m.dsssRate
	case ModClassOfdm:
		sym := ofdmSymbolDuration(channelWidth)
		if sym == 0 {
			return 0
		}
		return DataRate(uint64(m.Ndbps) * 1000000000 / uint64(sym.Nanoseconds()))
	default:
		return 0
	}
}

func (m WifiMode) String() string {
	return m.Name
}

func ofdmMode(name string, modulation string, coding string, ndbps uint32) WifiMode {
	return WifiMode{
		Name:       name,
		Class:      ModClassOfdm,
		Modulation: modulation,
		CodingRate: coding,
		Ndbps:      ndbps,
	}
}

func dsssMode(name string, modulation string, rate DataRate) WifiMode {
	return WifiMode{
		Name:       name,
		Class:      ModClassDsss,
		Modulation: modulation,
		dsssRate:   rate,
	}
}

// Modes80211a returns the eight 802.11a OFDM modes, slowest first.
func Modes80211a() []WifiMode {
	return []WifiMode{
		ofdmMode("OfdmRate6Mbps", "BPSK", "1/2", 24),
		ofdmMode("OfdmRate9Mbps", "BPSK", "3/4", 36),
		ofdmMode("OfdmRate12Mbps", "QPSK", "1/2", 48),
		ofdmMode("OfdmRate18Mbps", "QPSK", "3/4", 72),
		ofdmMode("OfdmRate24Mbps", "16-QAM", "1/2", 96),
		ofdmMode("OfdmRate36Mbps", "16-QAM", "3/4", 144),
		ofdmMode("OfdmRate48Mbps", "64-QAM", "2/3", 192),
		ofdmMode("OfdmRate54Mbps", "64-QAM", "3/4", 216),
	}
}

// Modes80211b returns the four 802.11b DSSS/CCK modes, slowest first.
func Modes80211b() []WifiMode {
	return []WifiMode{
		dsssMode("DsssRate1Mbps", "DBPSK", 1*Mbps),
		dsssMode("DsssRate2Mbps", "DQPSK", 2*Mbps),
		dsssMode("DsssRate5_5Mbps", "CCK", 5500*Kbps),
		dsssMode("DsssRate11Mbps", "CCK", 11*Mbps),
	}
}

// ParseStandard accepts "80211a", "802.11a", "a" and likewise for b.
func ParseStandard(s string) (Standard, error) {
	str := strings.ToLower(strings.ReplaceAll(s, ".", ""))
	switch str {
	case "80211a", "a", "wifi_phy_standard_80211a":
		return Standard80211a, nil
	case "80211b", "b", "wifi_phy_standard_80211b":
		return Standard80211b, nil
	default:
		return "", errors.Errorf("unsupported PHY standard: %q", s)
	}
}

// ModesForStandard returns the mode set of a standard.
func ModesForStandard(std Standard) ([]WifiMode, error) {
	switch std {
	case Standard80211a:
		return Modes80211a(), nil
	case Standard80211b:
		return Modes80211b(), nil
	default:
		return nil, errors.Errorf("unsupported PHY standard: %q", std)
	}
}

// DefaultChannelWidth returns the channel width in MHz used by a standard when none is configured.
func DefaultChannelWidth(std Standard) uint16 {
	if std == Standard80211b {
		return 22
	}
	return 20
}

// FindMode returns the mode of the set whose rate at the given width equals rate.
func FindMode(modes []WifiMode, rate DataRate, channelWidth uint16) (WifiMode, bool) {
	for _, m := range modes {
		if m.DataRate(channelWidth) == rate {
			return m, true
		}
	}
	return WifiMode{}, false
}
