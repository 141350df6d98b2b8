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
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/sdnwifi/wifistats/types"
)

func TestModes80211aRates(t *testing.T) {
	expected := []DataRate{6 * Mbps, 9 * Mbps, 12 * Mbps, 18 * Mbps, 24 * Mbps, 36 * Mbps, 48 * Mbps, 54 * Mbps}
	modes := Modes80211a()
	assert.Equal(t, len(expected), len(modes))
	for i, m := range modes {
		assert.Equal(t, expected[i], m.DataRate(20), m.Name)
		assert.Equal(t, expected[i]/2, m.DataRate(10), m.Name)
	}
	assert.Equal(t, DataRate(0), modes[0].DataRate(40))
}

func TestModes80211bRates(t *testing.T) {
	expected := []DataRate{1 * Mbps, 2 * Mbps, 5500 * Kbps, 11 * Mbps}
	for i, m := range Modes80211b() {
		assert.Equal(t, expected[i], m.DataRate(22), m.Name)
	}
}

func TestCalculateTxDurationOfdm(t *testing.T) {
	modes := Modes80211a()
	txv := TxVector{Preamble: PreambleLong, ChannelWidth: 20}

	// 1420 bytes: 16 + 11360 + 6 = 11382 bits.
	txv.Mode = modes[7] // 54 Mb/s: ceil(11382/216) = 53 symbols
	d, err := CalculateTxDuration(1420, txv)
	assert.Nil(t, err)
	assert.Equal(t, 20*time.Microsecond+53*4*time.Microsecond, d)

	txv.Mode = modes[0] // 6 Mb/s: ceil(11382/24) = 475 symbols
	d, err = CalculateTxDuration(1420, txv)
	assert.Nil(t, err)
	assert.Equal(t, 1920*time.Microsecond, d)

	txv.ChannelWidth = 10
	d, err = CalculateTxDuration(1420, txv)
	assert.Nil(t, err)
	assert.Equal(t, 3840*time.Microsecond, d)

	txv.ChannelWidth = 80
	_, err = CalculateTxDuration(1420, txv)
	assert.NotNil(t, err)
}

func TestCalculateTxDurationDsss(t *testing.T) {
	modes := Modes80211b()
	txv := TxVector{Mode: modes[3], Preamble: PreambleLong, ChannelWidth: 22}

	// 11 Mb/s: ceil(11360/11) = 1033 us payload.
	d, err := CalculateTxDuration(1420, txv)
	assert.Nil(t, err)
	assert.Equal(t, (192+1033)*time.Microsecond, d)

	txv.Preamble = PreambleShort
	d, err = CalculateTxDuration(1420, txv)
	assert.Nil(t, err)
	assert.Equal(t, (96+1033)*time.Microsecond, d)

	// no short preamble at 1 Mb/s
	txv.Mode = modes[0]
	d, err = CalculateTxDuration(100, txv)
	assert.Nil(t, err)
	assert.Equal(t, (192+800)*time.Microsecond, d)
}

func TestTxTimeTable(t *testing.T) {
	modes := Modes80211a()
	tt, err := NewTxTimeTable([]WifiMode{modes[0], modes[7]}, 1420, TxVector{ChannelWidth: 20})
	assert.Nil(t, err)
	assert.Equal(t, uint32(1420), tt.FrameSize())
	assert.Equal(t, []DataRate{6 * Mbps, 54 * Mbps}, tt.Rates())

	d, err := tt.Lookup(54 * Mbps)
	assert.Nil(t, err)
	assert.Equal(t, 232*time.Microsecond, d)

	d, err = tt.Lookup(6 * Mbps)
	assert.Nil(t, err)
	assert.Equal(t, 1920*time.Microsecond, d)

	_, err = tt.Lookup(12 * Mbps)
	assert.True(t, errors.Is(err, ErrRateNotFound))

	entries := tt.Entries()
	entries[0].Duration = 0
	d, _ = tt.Lookup(6 * Mbps)
	assert.Equal(t, 1920*time.Microsecond, d)
}

func TestTxTimeTableInvalid(t *testing.T) {
	_, err := NewTxTimeTable(nil, 1420, TxVector{ChannelWidth: 20})
	assert.NotNil(t, err)
	_, err = NewTxTimeTable(Modes80211a(), 0, TxVector{ChannelWidth: 20})
	assert.NotNil(t, err)
	_, err = NewTxTimeTable(Modes80211a(), 1420, TxVector{ChannelWidth: 160})
	assert.NotNil(t, err)
}

func TestStandards(t *testing.T) {
	std, err := ParseStandard("802.11a")
	assert.Nil(t, err)
	assert.Equal(t, Standard80211a, std)
	std, err = ParseStandard("b")
	assert.Nil(t, err)
	assert.Equal(t, Standard80211b, std)
	_, err = ParseStandard("80211ax")
	assert.NotNil(t, err)

	modes, err := ModesForStandard(Standard80211b)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(modes))
	assert.Equal(t, uint16(22), DefaultChannelWidth(Standard80211b))
	assert.Equal(t, uint16(20), DefaultChannelWidth(Standard80211a))

	m, ok := FindMode(Modes80211a(), 24*Mbps, 20)
	assert.True(t, ok)
	assert.Equal(t, "OfdmRate24Mbps", m.Name)
	_, ok = FindMode(Modes80211a(), 11*Mbps, 20)
	assert.False(t, ok)
}

func TestDbmConversions(t *testing.T) {
	assert.InDelta(t, 1.0, DbmToMilliwatt(0), 1e-12)
	assert.InDelta(t, math.Pow(10, 1.7), DbmToMilliwatt(17), 1e-9)
	assert.InDelta(t, 20.0, MilliwattToDbm(100), 1e-12)

	assert.Equal(t, 0.0, PowerLevelDbm(0, 17, 18, 0))
	assert.Equal(t, 17.0, PowerLevelDbm(0, 17, 18, 17))
	assert.Equal(t, 17.0, PowerLevelDbm(0, 17, 18, 99))
	assert.Equal(t, 5.0, PowerLevelDbm(5, 17, 1, 3))
	assert.InDelta(t, 1.0, PowerLevelDbm(0, 17, 18, 1), 1e-12)
}

func TestParsePreamble(t *testing.T) {
	p, err := ParsePreamble("Short")
	assert.Nil(t, err)
	assert.Equal(t, PreambleShort, p)
	p, err = ParsePreamble("")
	assert.Nil(t, err)
	assert.Equal(t, PreambleLong, p)
	_, err = ParsePreamble("greenfield")
	assert.NotNil(t, err)
}
