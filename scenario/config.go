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

package scenario

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/phy"
	. "github.com/sdnwifi/wifistats/types"
)

const (
	ManagerConstant = "constant"
	ManagerStep     = "step"
)

// Config describes the synthetic traffic of one access point sending a CBR downlink flow to
// its stations.
type Config struct {
	AP       MacAddress
	Stations []MacAddress

	Standard     phy.Standard
	ChannelWidth uint16
	Preamble     phy.Preamble

	PacketSize      uint32
	OfferedLoad     DataRate
	Start           time.Duration
	Jitter          time.Duration
	LossProbability float64
	BusyProbability float64
	BeaconInterval  time.Duration

	// Manager selects how power and rate evolve: ManagerConstant keeps ConstantRate and
	// MaxPowerDbm, ManagerStep moves each station one power level and one mode per StepInterval.
	Manager      string
	ConstantRate DataRate
	MaxPowerDbm  DbmValue
	MinPowerDbm  DbmValue
	PowerLevels  uint32
	StepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		AP:              MacAddressFromUint64(0x100),
		Standard:        phy.Standard80211a,
		Preamble:        phy.PreambleLong,
		PacketSize:      1420,
		OfferedLoad:     10 * Mbps,
		Start:           500 * time.Millisecond,
		Jitter:          50 * time.Microsecond,
		LossProbability: 0.01,
		BusyProbability: 0.2,
		BeaconInterval:  102400 * time.Microsecond,
		Manager:         ManagerStep,
		MaxPowerDbm:     17,
		MinPowerDbm:     0,
		PowerLevels:     18,
		StepInterval:    100 * time.Millisecond,
	}
}

func (cfg *Config) Validate() error {
	if len(cfg.Stations) == 0 {
		return errors.Errorf("scenario needs at least one station")
	}
	if cfg.PacketSize == 0 {
		return errors.Errorf("invalid packet size: 0")
	}
	if cfg.OfferedLoad == 0 {
		return errors.Errorf("invalid offered load: 0")
	}
	if cfg.PacketInterval() <= 0 {
		return errors.Errorf("offered load %v too high for %dB packets", cfg.OfferedLoad, cfg.PacketSize)
	}
	for _, addr := range append([]MacAddress{cfg.AP}, cfg.Stations...) {
		if addr == InvalidAddress || addr == BroadcastAddress {
			return errors.Errorf("invalid station address: %s", addr)
		}
	}
	if cfg.LossProbability < 0 || cfg.LossProbability > 1 {
		return errors.Errorf("invalid loss probability: %v", cfg.LossProbability)
	}
	if cfg.BusyProbability < 0 || cfg.BusyProbability > 1 {
		return errors.Errorf("invalid busy probability: %v", cfg.BusyProbability)
	}
	if cfg.MinPowerDbm > cfg.MaxPowerDbm {
		return errors.Errorf("min power %.1fdBm above max power %.1fdBm", cfg.MinPowerDbm, cfg.MaxPowerDbm)
	}
	switch cfg.Manager {
	case ManagerConstant:
	case ManagerStep:
		if cfg.StepInterval <= 0 {
			return errors.Errorf("invalid step interval: %v", cfg.StepInterval)
		}
		if cfg.PowerLevels == 0 {
			return errors.Errorf("invalid power levels: 0")
		}
	default:
		return errors.Errorf("unknown manager: %q", cfg.Manager)
	}
	return nil
}

// InitialLink returns the power and rate every station starts with: the top power level and
// the slowest mode of the standard.
func (cfg *Config) InitialLink() (DbmValue, DataRate, error) {
	modes, err := phy.ModesForStandard(cfg.Standard)
	if err != nil {
		return 0, 0, err
	}
	width := cfg.ChannelWidth
	if width == 0 {
		width = phy.DefaultChannelWidth(cfg.Standard)
	}
	return cfg.MaxPowerDbm, modes[0].DataRate(width), nil
}

// PacketInterval returns the CBR inter-packet time for the offered load.
func (cfg *Config) PacketInterval() time.Duration {
	return time.Duration(uint64(cfg.PacketSize) * 8 * uint64(time.Second) / uint64(cfg.OfferedLoad))
}
