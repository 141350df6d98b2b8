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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/prng"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

var stations = []MacAddress{
	MustParseMacAddress("00:00:00:00:00:01"),
	MustParseMacAddress("00:00:00:00:00:02"),
}

func runScenario(t *testing.T, cfg Config, duration time.Duration) (*stats.Engine, *Producer, *clock.Scheduler) {
	prng.Init(5)
	s := clock.NewScheduler()
	s.SetStopTime(duration)

	ecfg := stats.DefaultEngineConfig()
	ecfg.Stations = cfg.Stations
	ecfg.InitialPowerDbm = cfg.MaxPowerDbm
	e, err := stats.NewEngine(ecfg, s)
	require.Nil(t, err)

	p, err := NewProducer(cfg, s, e, e.Table())
	require.Nil(t, err)
	assert.Equal(t, ecfg.InitialPowerDbm, p.InitialPower())
	assert.Equal(t, 6*Mbps, p.InitialRate())

	require.Nil(t, e.Start())
	require.Nil(t, p.Start())
	require.Nil(t, s.Run(context.Background()))
	return e, p, s
}

func TestStepScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stations = stations
	cfg.OfferedLoad = 2 * Mbps
	cfg.LossProbability = 0.05
	e, p, s := runScenario(t, cfg, 3*time.Second)

	c := p.Counters()
	totals := e.Totals()
	assert.True(t, c.DataFrames > 300)
	assert.True(t, c.Beacons > 20)
	assert.True(t, c.RateChanges > 0)
	assert.True(t, c.PowerChanges > 0)
	assert.Equal(t, c.DataFrames, totals.Tx.DataFrames)
	assert.Equal(t, c.Beacons, totals.Tx.OtherFrames)
	assert.Equal(t, c.Delivered*uint64(cfg.PacketSize), totals.RxBytes)
	assert.True(t, c.Lost > 0)

	assert.True(t, totals.Channel.Sum() > 2*time.Second)
	assert.True(t, totals.Channel.Sum() <= s.Now())
	assert.True(t, totals.Channel.Busy > 0)
	assert.True(t, totals.Channel.Rx > 0)
	assert.Equal(t, 3, totals.Ticks)

	// the offered load is 2Mb/s from 0.5s on, 5% lost.
	tp := e.Series(stats.MetricThroughput).Samples()
	assert.Equal(t, 0.0, tp[0].Value)
	assert.InDelta(t, 1.9, tp[2].Value, 0.25)
}

func TestScenarioDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stations = stations
	e1, p1, _ := runScenario(t, cfg, 2*time.Second)
	e2, p2, _ := runScenario(t, cfg, 2*time.Second)
	assert.Equal(t, p1.Counters(), p2.Counters())
	assert.Equal(t, e1.Totals(), e2.Totals())
	for _, m := range stats.Metrics {
		assert.Equal(t, e1.Series(m).Samples(), e2.Series(m).Samples())
	}
}

func TestConstantScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stations = stations
	cfg.Manager = ManagerConstant
	cfg.ConstantRate = 54 * Mbps
	cfg.LossProbability = 0
	cfg.BusyProbability = 0
	e, p, _ := runScenario(t, cfg, 2*time.Second)

	c := p.Counters()
	assert.Equal(t, uint64(2), c.RateChanges)
	assert.Equal(t, uint64(0), c.PowerChanges)
	assert.Equal(t, uint64(0), c.Lost)
	for _, sta := range stations {
		r, err := e.CurrentRate(sta)
		assert.Nil(t, err)
		assert.Equal(t, 54*Mbps, r)
	}
	assert.Equal(t, time.Duration(0), e.Totals().Channel.Busy)

	d, err := e.Table().Lookup(54 * Mbps)
	require.Nil(t, err)
	assert.Equal(t, time.Duration(c.DataFrames)*d, e.Totals().Tx.TxTime)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotNil(t, cfg.Validate())
	cfg.Stations = stations
	assert.Nil(t, cfg.Validate())

	bad := cfg
	bad.Manager = "minstrel"
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.LossProbability = 1.5
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.MinPowerDbm = 20
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.StepInterval = 0
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.OfferedLoad = 0
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.PacketSize = 1
	bad.OfferedLoad = 100 * Gbps
	assert.Equal(t, time.Duration(0), bad.PacketInterval())
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.AP = InvalidAddress
	assert.NotNil(t, bad.Validate())
	bad = cfg
	bad.Stations = []MacAddress{stations[0], BroadcastAddress}
	assert.NotNil(t, bad.Validate())

	assert.Equal(t, 1136*time.Microsecond, cfg.PacketInterval())
}

func TestConstantRateMustBeAMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stations = stations
	cfg.Manager = ManagerConstant
	cfg.ConstantRate = 11 * Mbps
	s := clock.NewScheduler()
	ecfg := stats.DefaultEngineConfig()
	ecfg.Stations = stations
	e, err := stats.NewEngine(ecfg, s)
	require.Nil(t, err)
	_, err = NewProducer(cfg, s, e, e.Table())
	assert.NotNil(t, err)
}
