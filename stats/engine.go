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

// Package stats turns a stream of link events into periodic time series of throughput,
// average radiated power and channel occupancy.
package stats

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/energy"
	"github.com/sdnwifi/wifistats/linkstate"
	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/phy"
	. "github.com/sdnwifi/wifistats/types"
)

// Listener is the set of link events an event producer delivers. A returned error is a
// contract violation between producer and consumer and must abort the run.
type Listener interface {
	OnPowerChanged(addr MacAddress, oldPower, newPower DbmValue) error
	OnRateChanged(addr MacAddress, oldRate, newRate DataRate) error
	OnChannelState(state ChannelState, start time.Duration, duration time.Duration) error
	OnFrameTransmitted(kind FrameKind, dest MacAddress) error
	OnBytesReceived(n uint32, src MacAddress) error
}

type EngineConfig struct {
	Standard     phy.Standard
	ChannelWidth uint16 // MHz, 0 for the standard's default
	Preamble     phy.Preamble
	FrameSize    uint32 // reference frame size for airtime, bytes

	// Stations are seeded with InitialPowerDbm and InitialRate, as is the broadcast address.
	Stations        []MacAddress
	InitialPowerDbm DbmValue
	InitialRate     DataRate // 0 for the rate of the slowest mode

	Interval   time.Duration
	Watch      []MacAddress
	WatchLevel logger.Level
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Standard:        phy.Standard80211a,
		Preamble:        phy.PreambleLong,
		FrameSize:       1420,
		InitialPowerDbm: 17,
		Interval:        time.Second,
		WatchLevel:      logger.InfoLevel,
	}
}

// Totals are the run totals, valid at any time including after the run.
type Totals struct {
	Channel   energy.ChannelTimes `json:"channel" yaml:"channel"`
	BusyTime  time.Duration       `json:"busy_time" yaml:"busy_time"`
	Tx        energy.TxTotals     `json:"tx" yaml:"tx"`
	RxBytes   uint64              `json:"rx_bytes" yaml:"rx_bytes"`
	RxPackets uint64              `json:"rx_packets" yaml:"rx_packets"`
	Ticks     int                 `json:"ticks" yaml:"ticks"`
}

// Engine owns the accumulators of one experiment. It is single-threaded: all Listener
// methods and ticks must be delivered serially.
type Engine struct {
	cfg       EngineConfig
	clock     Clock
	table     *phy.TxTimeTable
	links     *linkstate.Tracker
	occupancy *energy.Occupancy
	txEnergy  *energy.TxEnergy
	tp        *Throughput
	reporter  *Reporter
}

func NewEngine(cfg EngineConfig, clk Clock) (*Engine, error) {
	modes, err := phy.ModesForStandard(cfg.Standard)
	if err != nil {
		return nil, err
	}
	if cfg.ChannelWidth == 0 {
		cfg.ChannelWidth = phy.DefaultChannelWidth(cfg.Standard)
	}
	table, err := phy.NewTxTimeTable(modes, cfg.FrameSize, phy.TxVector{
		Preamble:     cfg.Preamble,
		ChannelWidth: cfg.ChannelWidth,
	})
	if err != nil {
		return nil, err
	}
	if cfg.InitialRate == 0 {
		cfg.InitialRate = modes[0].DataRate(cfg.ChannelWidth)
	}
	if _, err = table.Lookup(cfg.InitialRate); err != nil {
		return nil, errors.Wrap(err, "initial rate")
	}

	e := &Engine{
		cfg:       cfg,
		clock:     clk,
		table:     table,
		links:     linkstate.NewTracker(),
		occupancy: energy.NewOccupancy(),
		tp:        NewThroughput(),
	}
	e.txEnergy = energy.NewTxEnergy(e.links, table)
	e.reporter = NewReporter(clk, e.tp, e.txEnergy, e.occupancy)

	for _, sta := range cfg.Stations {
		e.links.Seed(sta, cfg.InitialPowerDbm, cfg.InitialRate)
	}
	e.links.Seed(BroadcastAddress, cfg.InitialPowerDbm, cfg.InitialRate)

	for _, addr := range cfg.Watch {
		e.Watch(addr, cfg.WatchLevel)
	}
	e.reporter.AddObserver(ObserverFunc(func(ss SampleSet) {
		e.links.FlushWatch(ss.Time)
	}))

	logger.Infof("engine: %s %dMHz frame=%dB, %d stations, initial %.1fdBm %v",
		cfg.Standard, cfg.ChannelWidth, cfg.FrameSize, len(cfg.Stations), cfg.InitialPowerDbm, cfg.InitialRate)
	return e, nil
}

// Start fires the first reporting tick and re-arms it every cfg.Interval.
func (e *Engine) Start() error {
	return e.reporter.Start(e.cfg.Interval)
}

func (e *Engine) OnPowerChanged(addr MacAddress, oldPower, newPower DbmValue) error {
	e.links.OnPowerChange(addr, oldPower, newPower)
	return nil
}

func (e *Engine) OnRateChanged(addr MacAddress, oldRate, newRate DataRate) error {
	e.links.OnRateChange(addr, oldRate, newRate)
	return nil
}

func (e *Engine) OnChannelState(state ChannelState, start time.Duration, duration time.Duration) error {
	return e.occupancy.OnStateInterval(state, start, duration)
}

func (e *Engine) OnFrameTransmitted(kind FrameKind, dest MacAddress) error {
	return e.txEnergy.OnFrameSent(dest, kind)
}

func (e *Engine) OnBytesReceived(n uint32, src MacAddress) error {
	e.tp.OnBytesReceived(n, src)
	return nil
}

func (e *Engine) CurrentPower(addr MacAddress) (DbmValue, error) {
	return e.links.CurrentPower(addr)
}

func (e *Engine) CurrentRate(addr MacAddress) (DataRate, error) {
	return e.links.CurrentRate(addr)
}

// Addresses returns the tracked destination addresses in byte order.
func (e *Engine) Addresses() []MacAddress {
	return e.links.Addresses()
}

// AddObserver registers o to receive every subsequent SampleSet.
func (e *Engine) AddObserver(o Observer) {
	e.reporter.AddObserver(o)
}

func (e *Engine) Series(m Metric) *TimeSeries {
	return e.reporter.Series(m)
}

// AllSeries returns the six series in Metrics order.
func (e *Engine) AllSeries() []*TimeSeries {
	ret := make([]*TimeSeries, 0, NumMetrics)
	for _, m := range Metrics {
		ret = append(ret, e.reporter.Series(m))
	}
	return ret
}

// BusyTime returns the cumulative time the channel was busy or receiving.
func (e *Engine) BusyTime() time.Duration {
	return e.occupancy.BusyTime()
}

func (e *Engine) Totals() Totals {
	return Totals{
		Channel:   e.occupancy.Total(),
		BusyTime:  e.occupancy.BusyTime(),
		Tx:        e.txEnergy.Totals(),
		RxBytes:   e.tp.TotalBytes(),
		RxPackets: e.tp.TotalPackets(),
		Ticks:     e.reporter.Ticks(),
	}
}

// Watch logs the power and rate changes of addr at the given level; OffLevel stops watching.
func (e *Engine) Watch(addr MacAddress, level logger.Level) {
	if level <= logger.OffLevel {
		e.links.Watch(addr, nil)
		return
	}
	e.links.Watch(addr, logger.NewAddrLogger(addr, level))
}

func (e *Engine) Watched() []MacAddress {
	return e.links.Watched()
}

// FlushWatch displays pending watch entries stamped with the current virtual time.
func (e *Engine) FlushWatch() {
	e.links.FlushWatch(e.clock.Now())
}

func (e *Engine) Table() *phy.TxTimeTable {
	return e.table
}

func (e *Engine) Config() EngineConfig {
	return e.cfg
}

func (e *Engine) Reporter() *Reporter {
	return e.reporter
}
