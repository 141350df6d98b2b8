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

// Package scenario generates a deterministic synthetic stream of link events: one access point
// sending a CBR flow to its stations while a rate/power manager adapts each link.
package scenario

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/phy"
	"github.com/sdnwifi/wifistats/prng"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

const (
	sifs       = 16 * time.Microsecond
	ackSize    = 14
	beaconSize = 100
)

type linkParams struct {
	modeIdx    int
	powerLevel uint32
	power      DbmValue
	rate       DataRate
}

// Counters summarize what a Producer emitted.
type Counters struct {
	DataFrames   uint64 `json:"data_frames" yaml:"data_frames"`
	Delivered    uint64 `json:"delivered" yaml:"delivered"`
	Lost         uint64 `json:"lost" yaml:"lost"`
	Beacons      uint64 `json:"beacons" yaml:"beacons"`
	RateChanges  uint64 `json:"rate_changes" yaml:"rate_changes"`
	PowerChanges uint64 `json:"power_changes" yaml:"power_changes"`
}

// Producer emits the events of one synthetic BSS to a stats.Listener through the scheduler.
type Producer struct {
	cfg      Config
	sched    *clock.Scheduler
	listener stats.Listener
	rng      *rand.Rand

	modes   []phy.WifiMode
	txv     phy.TxVector
	airtime func(rate DataRate) (time.Duration, error)
	links   map[MacAddress]*linkParams

	next     int           // round-robin station index
	cursor   time.Duration // end of the last channel interval reported
	stopped  bool
	counters Counters
}

// NewProducer creates a producer whose data-frame airtime comes from table, so that it agrees
// with the energy accounting of the consumer.
func NewProducer(cfg Config, s *clock.Scheduler, l stats.Listener, table *phy.TxTimeTable) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modes, err := phy.ModesForStandard(cfg.Standard)
	if err != nil {
		return nil, err
	}
	if cfg.ChannelWidth == 0 {
		cfg.ChannelWidth = phy.DefaultChannelWidth(cfg.Standard)
	}
	if table.FrameSize() != cfg.PacketSize {
		logger.Warnf("scenario packet size %dB differs from the reference frame size %dB", cfg.PacketSize, table.FrameSize())
	}

	p := &Producer{
		cfg:      cfg,
		sched:    s,
		listener: l,
		rng:      prng.NewStream(),
		modes:    modes,
		txv:      phy.TxVector{Mode: modes[0], Preamble: cfg.Preamble, ChannelWidth: cfg.ChannelWidth},
		airtime:  table.Lookup,
		links:    make(map[MacAddress]*linkParams),
		cursor:   s.Now(),
	}
	topLevel := uint32(0)
	if cfg.PowerLevels > 0 {
		topLevel = cfg.PowerLevels - 1
	}
	for _, sta := range cfg.Stations {
		p.links[sta] = &linkParams{
			modeIdx:    0,
			powerLevel: topLevel,
			power:      cfg.MaxPowerDbm,
			rate:       modes[0].DataRate(cfg.ChannelWidth),
		}
	}
	if cfg.Manager == ManagerConstant && cfg.ConstantRate != 0 {
		if _, ok := phy.FindMode(modes, cfg.ConstantRate, cfg.ChannelWidth); !ok {
			return nil, errors.Wrapf(ErrRateNotFound, "constant rate %v", cfg.ConstantRate)
		}
	}
	return p, nil
}

// InitialPower and InitialRate are the per-station values before the first change event.
func (p *Producer) InitialPower() DbmValue {
	return p.cfg.MaxPowerDbm
}

func (p *Producer) InitialRate() DataRate {
	return p.modes[0].DataRate(p.cfg.ChannelWidth)
}

// Start schedules the flow, the beacons and the manager.
func (p *Producer) Start() error {
	if p.cfg.Manager == ManagerConstant && p.cfg.ConstantRate != 0 {
		if err := p.schedule(0, p.applyConstantRate); err != nil {
			return err
		}
	} else if p.cfg.Manager == ManagerStep {
		if err := p.schedule(p.cfg.StepInterval, p.step); err != nil {
			return err
		}
	}
	if p.cfg.BeaconInterval > 0 {
		if err := p.schedule(0, p.beacon); err != nil {
			return err
		}
	}
	return p.schedule(p.cfg.Start, p.sendData)
}

func (p *Producer) Counters() Counters {
	return p.counters
}

// schedule runs fn after delay; a stopped clock silently ends the producer.
func (p *Producer) schedule(delay time.Duration, fn clock.Handler) error {
	if p.stopped {
		return nil
	}
	err := p.sched.Schedule(delay, fn)
	if errors.Is(err, clock.ErrClockStopped) {
		p.stopped = true
		return nil
	}
	return err
}

func (p *Producer) applyConstantRate() error {
	for _, sta := range p.cfg.Stations {
		if err := p.setRate(sta, p.cfg.ConstantRate); err != nil {
			return err
		}
	}
	return nil
}

func (p *Producer) setRate(sta MacAddress, rate DataRate) error {
	lp := p.links[sta]
	if lp.rate == rate {
		return nil
	}
	old := lp.rate
	lp.rate = rate
	for i, m := range p.modes {
		if m.DataRate(p.cfg.ChannelWidth) == rate {
			lp.modeIdx = i
		}
	}
	p.counters.RateChanges++
	return p.listener.OnRateChanged(sta, old, rate)
}

func (p *Producer) setPowerLevel(sta MacAddress, level uint32) error {
	lp := p.links[sta]
	power := phy.PowerLevelDbm(p.cfg.MinPowerDbm, p.cfg.MaxPowerDbm, p.cfg.PowerLevels, level)
	lp.powerLevel = level
	if power == lp.power {
		return nil
	}
	old := lp.power
	lp.power = power
	p.counters.PowerChanges++
	return p.listener.OnPowerChanged(sta, old, power)
}

// step moves every station one mode up or down and one power level up or down.
func (p *Producer) step() error {
	for _, sta := range p.cfg.Stations {
		lp := p.links[sta]
		modeIdx := lp.modeIdx + p.rng.Intn(3) - 1
		if modeIdx < 0 {
			modeIdx = 0
		} else if modeIdx >= len(p.modes) {
			modeIdx = len(p.modes) - 1
		}
		if err := p.setRate(sta, p.modes[modeIdx].DataRate(p.cfg.ChannelWidth)); err != nil {
			return err
		}

		level := int64(lp.powerLevel) + int64(p.rng.Intn(3)) - 1
		if level < 0 {
			level = 0
		} else if level >= int64(p.cfg.PowerLevels) {
			level = int64(p.cfg.PowerLevels) - 1
		}
		if err := p.setPowerLevel(sta, uint32(level)); err != nil {
			return err
		}
	}
	return p.schedule(p.cfg.StepInterval, p.step)
}

// reportGap reports the channel time between the last reported interval and now as idle,
// with a random busy tail when another BSS occupies the medium.
func (p *Producer) reportGap(now time.Duration) error {
	gap := now - p.cursor
	if gap <= 0 {
		return nil
	}
	start := p.cursor
	p.cursor = now

	busy := time.Duration(0)
	if p.rng.Float64() < p.cfg.BusyProbability {
		busy = time.Duration(p.rng.Int63n(int64(gap) + 1))
	}
	if idle := gap - busy; idle > 0 {
		if err := p.listener.OnChannelState(ChannelIdle, start, idle); err != nil {
			return err
		}
	}
	if busy > 0 {
		return p.listener.OnChannelState(ChannelBusy, now-busy, busy)
	}
	return nil
}

// transmit starts a frame now. It returns false when the medium is still occupied.
func (p *Producer) transmit(kind FrameKind, dest MacAddress, airtime time.Duration, onDone clock.Handler) (bool, error) {
	now := p.sched.Now()
	if now < p.cursor {
		return false, nil
	}
	if err := p.reportGap(now); err != nil {
		return true, err
	}
	if err := p.listener.OnFrameTransmitted(kind, dest); err != nil {
		return true, err
	}
	p.cursor = now + airtime
	return true, p.schedule(airtime, func() error {
		if err := p.listener.OnChannelState(ChannelTx, now, airtime); err != nil {
			return err
		}
		if onDone != nil {
			return onDone()
		}
		return nil
	})
}

func (p *Producer) sendData() error {
	sta := p.cfg.Stations[p.next]
	lp := p.links[sta]
	airtime, err := p.airtime(lp.rate)
	if err != nil {
		return errors.Wrapf(err, "data frame to %s", sta)
	}

	delivered := p.rng.Float64() >= p.cfg.LossProbability
	var ackTime time.Duration
	if delivered {
		p.txv.Mode = p.modes[0]
		if ackTime, err = phy.CalculateTxDuration(ackSize, p.txv); err != nil {
			return err
		}
	}

	started, err := p.transmit(FrameData, sta, airtime, func() error {
		if !delivered {
			p.counters.Lost++
			return nil
		}
		p.counters.Delivered++
		txEnd := p.sched.Now()
		if err := p.listener.OnBytesReceived(p.cfg.PacketSize, sta); err != nil {
			return err
		}
		return p.schedule(sifs+ackTime, func() error {
			if err := p.listener.OnChannelState(ChannelIdle, txEnd, sifs); err != nil {
				return err
			}
			return p.listener.OnChannelState(ChannelRx, txEnd+sifs, ackTime)
		})
	})
	if err != nil {
		return err
	}
	if !started {
		// medium busy: retry when it is free.
		return p.schedule(p.cursor-p.sched.Now(), p.sendData)
	}
	if delivered {
		p.cursor += sifs + ackTime
	}
	p.counters.DataFrames++
	p.next = (p.next + 1) % len(p.cfg.Stations)
	return p.schedule(p.cfg.PacketInterval()+prng.NewJitter(p.cfg.Jitter), p.sendData)
}

func (p *Producer) beacon() error {
	p.txv.Mode = p.modes[0]
	airtime, err := phy.CalculateTxDuration(beaconSize, p.txv)
	if err != nil {
		return err
	}
	started, err := p.transmit(FrameManagement, BroadcastAddress, airtime, nil)
	if err != nil {
		return err
	}
	if !started {
		return p.schedule(p.cursor-p.sched.Now(), p.beacon)
	}
	p.counters.Beacons++
	return p.schedule(p.cfg.BeaconInterval, p.beacon)
}
