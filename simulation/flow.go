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
	"sort"
	"time"

	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

// FlowStats are the receive statistics of the traffic from one source.
type FlowStats struct {
	Source    MacAddress
	RxBytes   uint64
	RxPackets uint64
	FirstRx   time.Duration
	LastRx    time.Duration
}

// Throughput returns the flow throughput in Mb/s over the span between the first and the
// last received packet, with 1 Mb = 1024*1024 bits. It is 0 for fewer than two packets.
func (fs *FlowStats) Throughput() float64 {
	span := (fs.LastRx - fs.FirstRx).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(fs.RxBytes) * 8.0 / span / 1024 / 1024
}

// Clock provides the virtual time of received packets.
type Clock interface {
	Now() time.Duration
}

// FlowMonitor is a stats.Listener that keeps per-source flow statistics and frame counters
// before forwarding every event to the next listener.
type FlowMonitor struct {
	next     stats.Listener
	clock    Clock
	flows    map[MacAddress]*FlowStats
	txFrames [3]uint64
}

func NewFlowMonitor(clk Clock, next stats.Listener) *FlowMonitor {
	return &FlowMonitor{
		next:  next,
		clock: clk,
		flows: map[MacAddress]*FlowStats{},
	}
}

func (fm *FlowMonitor) OnPowerChanged(addr MacAddress, oldPower, newPower DbmValue) error {
	return fm.next.OnPowerChanged(addr, oldPower, newPower)
}

func (fm *FlowMonitor) OnRateChanged(addr MacAddress, oldRate, newRate DataRate) error {
	return fm.next.OnRateChanged(addr, oldRate, newRate)
}

func (fm *FlowMonitor) OnChannelState(state ChannelState, start time.Duration, duration time.Duration) error {
	return fm.next.OnChannelState(state, start, duration)
}

func (fm *FlowMonitor) OnFrameTransmitted(kind FrameKind, dest MacAddress) error {
	if int(kind) < len(fm.txFrames) {
		fm.txFrames[kind]++
	}
	return fm.next.OnFrameTransmitted(kind, dest)
}

func (fm *FlowMonitor) OnBytesReceived(n uint32, src MacAddress) error {
	now := fm.clock.Now()
	fs := fm.flows[src]
	if fs == nil {
		fs = &FlowStats{Source: src, FirstRx: now}
		fm.flows[src] = fs
	}
	fs.RxBytes += uint64(n)
	fs.RxPackets++
	fs.LastRx = now
	return fm.next.OnBytesReceived(n, src)
}

// Flows returns a copy of the flow statistics ordered by source address.
func (fm *FlowMonitor) Flows() []FlowStats {
	ret := make([]FlowStats, 0, len(fm.flows))
	for _, fs := range fm.flows {
		ret = append(ret, *fs)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Source.Compare(ret[j].Source) < 0
	})
	return ret
}

// TxFrames returns the number of transmitted frames of a kind.
func (fm *FlowMonitor) TxFrames(kind FrameKind) uint64 {
	if int(kind) >= len(fm.txFrames) {
		return 0
	}
	return fm.txFrames[kind]
}
