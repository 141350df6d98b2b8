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

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start" yaml:"start"`
	EndTimeSec   float64 `json:"end" yaml:"end"`
	PeriodSec    float64 `json:"duration" yaml:"duration"`
}

type KpiChannel struct {
	TimeSec    float64 `json:"time_sec" yaml:"time_sec"`
	Percentage float64 `json:"percent" yaml:"percent"`
}

type KpiTx struct {
	EnergyMws   float64 `json:"energy_mws" yaml:"energy_mws"`
	TxTimeSec   float64 `json:"tx_time_sec" yaml:"tx_time_sec"`
	DataFrames  uint64  `json:"data_frames" yaml:"data_frames"`
	OtherFrames uint64  `json:"other_frames" yaml:"other_frames"`
	AvgPowerMw  float64 `json:"avg_power_mw" yaml:"avg_power_mw"`
	TxPowerDbm  float64 `json:"tx_power_dbm,omitempty" yaml:"tx_power_dbm,omitempty"` // energy-weighted, data frames only
}

type KpiFlow struct {
	Source         string  `json:"source" yaml:"source"`
	RxBytes        uint64  `json:"rx_bytes" yaml:"rx_bytes"`
	RxPackets      uint64  `json:"rx_packets" yaml:"rx_packets"`
	FirstRxSec     float64 `json:"first_rx" yaml:"first_rx"`
	LastRxSec      float64 `json:"last_rx" yaml:"last_rx"`
	ThroughputMbps float64 `json:"throughput_mbps" yaml:"throughput_mbps"`
}

type KpiProducer struct {
	DataFrames   uint64 `json:"data_frames" yaml:"data_frames"`
	Delivered    uint64 `json:"delivered" yaml:"delivered"`
	Lost         uint64 `json:"lost" yaml:"lost"`
	Beacons      uint64 `json:"beacons" yaml:"beacons"`
	RateChanges  uint64 `json:"rate_changes" yaml:"rate_changes"`
	PowerChanges uint64 `json:"power_changes" yaml:"power_changes"`
}

type Kpi struct {
	FileTime           string                `json:"created" yaml:"created"`
	Status             string                `json:"status" yaml:"status"`
	TimeSec            KpiTimeSec            `json:"time_sec" yaml:"time_sec"`
	Ticks              int                   `json:"ticks" yaml:"ticks"`
	RxBytes            uint64                `json:"rx_bytes" yaml:"rx_bytes"`
	RxPackets          uint64                `json:"rx_packets" yaml:"rx_packets"`
	MeanThroughputMbps float64               `json:"mean_throughput_mbps" yaml:"mean_throughput_mbps"`
	BusyTimeSec        float64               `json:"busy_time_sec" yaml:"busy_time_sec"`
	Channels           map[string]KpiChannel `json:"channels" yaml:"channels"`
	Tx                 KpiTx                 `json:"tx" yaml:"tx"`
	Flows              []KpiFlow             `json:"flows" yaml:"flows"`
	Producer           *KpiProducer          `json:"producer,omitempty" yaml:"producer,omitempty"`
	ReplayEvents       int                   `json:"replay_events,omitempty" yaml:"replay_events,omitempty"`
}
