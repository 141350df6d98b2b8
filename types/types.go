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

package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MacAddressLen is the length in bytes of a link-layer (MAC-48) address.
	MacAddressLen = 6
)

// MacAddress is a link-layer address. Equality and ordering are by raw bytes.
type MacAddress [MacAddressLen]byte

var (
	// BroadcastAddress is the reserved all-ones link-layer address.
	BroadcastAddress = MacAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	// InvalidAddress is the all-zeros address, never used by a real station.
	InvalidAddress = MacAddress{}
)

// ParseMacAddress parses an address of the form "aa:bb:cc:dd:ee:ff" (':' or '-' separated).
func ParseMacAddress(s string) (MacAddress, error) {
	var addr MacAddress
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == '-'
	})
	if len(parts) != MacAddressLen {
		return addr, errors.Errorf("invalid MAC address: %q", s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return addr, errors.Errorf("invalid MAC address: %q", s)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return addr, errors.Wrapf(err, "invalid MAC address: %q", s)
		}
		addr[i] = b[0]
	}
	return addr, nil
}

// MustParseMacAddress is like ParseMacAddress but panics on invalid input.
func MustParseMacAddress(s string) MacAddress {
	addr, err := ParseMacAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// MacAddressFromUint64 builds an address from the lower 48 bits of v, big-endian.
func MacAddressFromUint64(v uint64) MacAddress {
	var addr MacAddress
	for i := MacAddressLen - 1; i >= 0; i-- {
		addr[i] = byte(v)
		v >>= 8
	}
	return addr
}

func (a MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Compare returns -1, 0 or +1 comparing a and b byte-wise.
func (a MacAddress) Compare(b MacAddress) int {
	return bytes.Compare(a[:], b[:])
}

func (a MacAddress) IsBroadcast() bool {
	return a == BroadcastAddress
}

// MarshalText makes MacAddress usable as a text key in YAML/TOML/JSON.
func (a MacAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *MacAddress) UnmarshalText(text []byte) error {
	addr, err := ParseMacAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// DbmValue is a power level in dBm.
type DbmValue = float64

const (
	UndefinedDbmValue DbmValue = math.MaxFloat64
)

// DataRate is a data rate in bits per second.
type DataRate uint64

const (
	Kbps DataRate = 1000
	Mbps DataRate = 1000 * Kbps
	Gbps DataRate = 1000 * Mbps
)

// String formats the rate the way rate strings are written in scripts, e.g. "54Mbps" or "5.5Mbps".
func (r DataRate) String() string {
	switch {
	case r >= Gbps && r%Mbps == 0:
		return strconv.FormatFloat(float64(r)/float64(Gbps), 'f', -1, 64) + "Gbps"
	case r >= Mbps:
		return strconv.FormatFloat(float64(r)/float64(Mbps), 'f', -1, 64) + "Mbps"
	case r >= Kbps:
		return strconv.FormatFloat(float64(r)/float64(Kbps), 'f', -1, 64) + "Kbps"
	default:
		return strconv.FormatUint(uint64(r), 10) + "bps"
	}
}

// Mbit returns the rate in Mb/s.
func (r DataRate) Mbit() float64 {
	return float64(r) / float64(Mbps)
}

// ParseDataRate parses strings like "54Mbps", "54Mb/s", "5.5Mbps", "100kbps" or a plain bps number.
func ParseDataRate(s string) (DataRate, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	str = strings.TrimSuffix(str, "/s")
	str = strings.TrimSuffix(str, "ps")
	str = strings.TrimSuffix(str, "b")

	mult := 1.0
	switch {
	case strings.HasSuffix(str, "g"):
		mult = float64(Gbps)
	case strings.HasSuffix(str, "m"):
		mult = float64(Mbps)
	case strings.HasSuffix(str, "k"):
		mult = float64(Kbps)
	}
	if mult != 1.0 {
		str = str[:len(str)-1]
	}

	v, err := strconv.ParseFloat(str, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("invalid data rate: %q", s)
	}
	bps := math.Round(v * mult)
	if bps >= math.MaxUint64 {
		return 0, errors.Errorf("data rate out of range: %q", s)
	}
	return DataRate(bps), nil
}

func (r DataRate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *DataRate) UnmarshalText(text []byte) error {
	v, err := ParseDataRate(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ChannelState is the PHY state a radio spends time in. The four states are mutually exclusive.
type ChannelState byte

const (
	ChannelIdle    ChannelState = 0
	ChannelBusy    ChannelState = 1 // CCA busy: medium sensed busy, not receiving for us
	ChannelTx      ChannelState = 2
	ChannelRx      ChannelState = 3
	NumChannelStates            = 4

	ChannelStateInvalid ChannelState = 0xff
)

// ChannelStates lists all known channel states in accumulator order.
var ChannelStates = []ChannelState{ChannelIdle, ChannelBusy, ChannelTx, ChannelRx}

func (s ChannelState) IsValid() bool {
	return s < NumChannelStates
}

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelBusy:
		return "busy"
	case ChannelTx:
		return "tx"
	case ChannelRx:
		return "rx"
	default:
		return fmt.Sprintf("state(%d)", byte(s))
	}
}

// ParseChannelState parses a state tag as used in traces and the CLI. ns-3 style
// tags (IDLE, CCA_BUSY, TX, RX) are accepted too.
func ParseChannelState(s string) (ChannelState, error) {
	switch strings.ToLower(s) {
	case "idle":
		return ChannelIdle, nil
	case "busy", "cca_busy", "ccabusy":
		return ChannelBusy, nil
	case "tx":
		return ChannelTx, nil
	case "rx":
		return ChannelRx, nil
	default:
		return ChannelStateInvalid, errors.Wrapf(ErrUnrecognizedState, "%q", s)
	}
}

// FrameKind classifies a transmitted MAC frame.
type FrameKind byte

const (
	FrameManagement FrameKind = 0
	FrameControl    FrameKind = 1
	FrameData       FrameKind = 2
)

func (k FrameKind) String() string {
	switch k {
	case FrameManagement:
		return "mgmt"
	case FrameControl:
		return "ctrl"
	case FrameData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

func ParseFrameKind(s string) (FrameKind, error) {
	switch strings.ToLower(s) {
	case "mgmt", "management":
		return FrameManagement, nil
	case "ctrl", "control":
		return FrameControl, nil
	case "data":
		return FrameData, nil
	default:
		return 0, errors.Errorf("invalid frame kind: %q", s)
	}
}
