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

package stats

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/energy"
	"github.com/sdnwifi/wifistats/logger"
)

// Clock is the virtual clock the reporter re-arms itself on.
type Clock interface {
	Now() time.Duration
	ScheduleTick(delay time.Duration, fn clock.Handler) error
}

// SampleSet is the set of samples emitted by one reporting tick.
type SampleSet struct {
	Index    int           `json:"index"`
	Time     time.Duration `json:"time"`
	Interval time.Duration `json:"interval"`

	Throughput float64 `json:"throughput_mbps"` // Mb/s
	Power      float64 `json:"avg_power_mw"`    // average radiated power over the interval, mW
	Idle       float64 `json:"idle"`            // interval seconds x 100
	Busy       float64 `json:"busy"`
	Tx         float64 `json:"tx"`
	Rx         float64 `json:"rx"`
}

// Get returns the value of metric m.
func (ss SampleSet) Get(m Metric) float64 {
	switch m {
	case MetricThroughput:
		return ss.Throughput
	case MetricPower:
		return ss.Power
	case MetricIdle:
		return ss.Idle
	case MetricBusy:
		return ss.Busy
	case MetricTx:
		return ss.Tx
	case MetricRx:
		return ss.Rx
	default:
		logger.Panicf("unknown metric: %d", m)
		return 0
	}
}

// Observer receives every SampleSet right after it is appended to the series.
type Observer interface {
	OnSample(ss SampleSet)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ss SampleSet)

func (f ObserverFunc) OnSample(ss SampleSet) {
	f(ss)
}

type ReporterState int

const (
	ReporterIdle ReporterState = iota
	ReporterArmed
	ReporterReporting
	ReporterStopped
)

func (s ReporterState) String() string {
	switch s {
	case ReporterIdle:
		return "idle"
	case ReporterArmed:
		return "armed"
	case ReporterReporting:
		return "reporting"
	case ReporterStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reporter samples the accumulators once per interval, appends one sample to each series,
// resets the interval accumulators and re-arms itself on the clock.
type Reporter struct {
	clock     Clock
	tp        *Throughput
	txEnergy  *energy.TxEnergy
	occupancy *energy.Occupancy

	series    [NumMetrics]*TimeSeries
	observers []Observer
	interval  time.Duration
	state     ReporterState
	ticks     int
}

func NewReporter(clk Clock, tp *Throughput, te *energy.TxEnergy, occ *energy.Occupancy) *Reporter {
	r := &Reporter{
		clock:     clk,
		tp:        tp,
		txEnergy:  te,
		occupancy: occ,
		state:     ReporterIdle,
	}
	for _, m := range Metrics {
		r.series[m] = NewTimeSeries(m.Title())
	}
	return r
}

// AddObserver registers o to receive every subsequent SampleSet.
func (r *Reporter) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Start fires the first tick now and then every interval.
func (r *Reporter) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("invalid reporting interval: %v", interval)
	}
	if r.state != ReporterIdle {
		return errors.Errorf("reporter already started (%v)", r.state)
	}
	r.interval = interval
	r.state = ReporterArmed
	return r.tick()
}

func (r *Reporter) tick() error {
	logger.AssertEqual(ReporterArmed, r.state)
	r.state = ReporterReporting

	now := r.clock.Now()
	t := r.interval.Seconds()
	ch := r.occupancy.Interval()
	ss := SampleSet{
		Index:      r.ticks,
		Time:       now,
		Interval:   r.interval,
		Throughput: ThroughputMbps(r.tp.Bytes(), t),
		Power:      r.txEnergy.Energy() / t,
		Idle:       ch.Idle.Seconds() * 100,
		Busy:       ch.Busy.Seconds() * 100,
		Tx:         ch.Tx.Seconds() * 100,
		Rx:         ch.Rx.Seconds() * 100,
	}

	ts := now.Seconds()
	for _, m := range Metrics {
		r.series[m].Add(ts, ss.Get(m))
	}
	r.tp.Reset()
	r.txEnergy.Reset()
	r.occupancy.ResetInterval()
	r.ticks++

	logger.Debugf("tick %d at %v: %.3fMb/s power=%.3f idle=%.1f busy=%.1f tx=%.1f rx=%.1f",
		ss.Index, now, ss.Throughput, ss.Power, ss.Idle, ss.Busy, ss.Tx, ss.Rx)
	for _, o := range r.observers {
		o.OnSample(ss)
	}

	err := r.clock.ScheduleTick(r.interval, r.tick)
	if errors.Is(err, clock.ErrClockStopped) {
		logger.Debugf("reporter stopped at %v after %d ticks", now, r.ticks)
		r.state = ReporterStopped
		return nil
	} else if err != nil {
		r.state = ReporterStopped
		return errors.Wrap(err, "re-arm reporter")
	}
	r.state = ReporterArmed
	return nil
}

func (r *Reporter) State() ReporterState {
	return r.state
}

func (r *Reporter) Interval() time.Duration {
	return r.interval
}

// Ticks returns the number of sample sets emitted.
func (r *Reporter) Ticks() int {
	return r.ticks
}

func (r *Reporter) Series(m Metric) *TimeSeries {
	return r.series[m]
}
