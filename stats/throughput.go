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
	. "github.com/sdnwifi/wifistats/types"
)

// Throughput counts received bytes between reporting ticks.
type Throughput struct {
	bytes        uint64
	totalBytes   uint64
	totalPackets uint64
}

func NewThroughput() *Throughput {
	return &Throughput{}
}

// OnBytesReceived adds n bytes to the interval counter. The source is not used for accounting.
func (tp *Throughput) OnBytesReceived(n uint32, src MacAddress) {
	tp.bytes += uint64(n)
	tp.totalBytes += uint64(n)
	tp.totalPackets++
}

// Bytes returns the bytes received since the last Reset.
func (tp *Throughput) Bytes() uint64 {
	return tp.bytes
}

func (tp *Throughput) Reset() {
	tp.bytes = 0
}

func (tp *Throughput) TotalBytes() uint64 {
	return tp.totalBytes
}

func (tp *Throughput) TotalPackets() uint64 {
	return tp.totalPackets
}

// ThroughputMbps returns the throughput in Mb/s of the given byte count over an interval of t seconds.
func ThroughputMbps(bytes uint64, t float64) float64 {
	return float64(bytes) * 8.0 / (1000000 * t)
}
