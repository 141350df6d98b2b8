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

package simulation

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/phy"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

// KpiManager keeps the end-of-run summary of a simulation.
type KpiManager struct {
	sim       *Simulation
	data      *Kpi
	startTime time.Duration
	isRunning bool
}

func NewKpiManager() *KpiManager {
	return &KpiManager{}
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
}

func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.startTime = km.sim.Now()
	km.isRunning = true
}

// Stop calculates the final KPIs. The status records whether the run was interrupted.
func (km *KpiManager) Stop(status string) {
	if !km.isRunning {
		return
	}
	km.isRunning = false
	if status != "" {
		km.data.Status = status
	}
	km.calculateKpis()
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs, calculated up to now while running.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.calculateKpis()
	}
	return km.data
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		logger.Panicf("could not marshal KPI JSON data: %v", err)
	}
	if err = os.WriteFile(fn, js, 0644); err != nil {
		logger.Errorf("could not write KPI JSON file %s: %v", fn, err)
		return err
	}
	return nil
}

func (km *KpiManager) calculateKpis() {
	end := km.sim.Now()
	period := end - km.startTime
	km.data.TimeSec = KpiTimeSec{
		StartTimeSec: km.startTime.Seconds(),
		EndTimeSec:   end.Seconds(),
		PeriodSec:    period.Seconds(),
	}

	totals := km.sim.Engine().Totals()
	km.data.Ticks = totals.Ticks
	km.data.RxBytes = totals.RxBytes
	km.data.RxPackets = totals.RxPackets
	km.data.BusyTimeSec = totals.BusyTime.Seconds()
	km.data.MeanThroughputMbps = 0
	km.data.Tx = KpiTx{
		EnergyMws:   totals.Tx.Energy,
		TxTimeSec:   totals.Tx.TxTime.Seconds(),
		DataFrames:  totals.Tx.DataFrames,
		OtherFrames: totals.Tx.OtherFrames,
	}
	if totals.Tx.TxTime > 0 {
		km.data.Tx.TxPowerDbm = phy.MilliwattToDbm(totals.Tx.Energy / totals.Tx.TxTime.Seconds())
	}
	if period > 0 {
		km.data.MeanThroughputMbps = stats.ThroughputMbps(totals.RxBytes, period.Seconds())
		km.data.Tx.AvgPowerMw = totals.Tx.Energy / period.Seconds()
	}

	km.data.Channels = make(map[string]KpiChannel, NumChannelStates)
	for _, st := range ChannelStates {
		d := totals.Channel.Get(st)
		ch := KpiChannel{TimeSec: d.Seconds()}
		if period > 0 {
			ch.Percentage = 100.0 * d.Seconds() / period.Seconds()
		}
		km.data.Channels[st.String()] = ch
	}

	flows := km.sim.Flows().Flows()
	km.data.Flows = make([]KpiFlow, 0, len(flows))
	for _, fs := range flows {
		km.data.Flows = append(km.data.Flows, KpiFlow{
			Source:         fs.Source.String(),
			RxBytes:        fs.RxBytes,
			RxPackets:      fs.RxPackets,
			FirstRxSec:     fs.FirstRx.Seconds(),
			LastRxSec:      fs.LastRx.Seconds(),
			ThroughputMbps: fs.Throughput(),
		})
	}

	if p := km.sim.Producer(); p != nil {
		c := p.Counters()
		km.data.Producer = &KpiProducer{
			DataFrames:   c.DataFrames,
			Delivered:    c.Delivered,
			Lost:         c.Lost,
			Beacons:      c.Beacons,
			RateChanges:  c.RateChanges,
			PowerChanges: c.PowerChanges,
		}
	}
	if rp := km.sim.Replay(); rp != nil {
		km.data.ReplayEvents = rp.Count()
	}
}
