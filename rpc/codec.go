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

package rpc

import (
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sdnwifi/wifistats/energy"
	"github.com/sdnwifi/wifistats/stats"
)

func sampleSetToStruct(ss stats.SampleSet) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"index":           ss.Index,
		"time_s":          ss.Time.Seconds(),
		"interval_s":      ss.Interval.Seconds(),
		"throughput_mbps": ss.Throughput,
		"avg_power_mw":    ss.Power,
		"idle":            ss.Idle,
		"busy":            ss.Busy,
		"tx":              ss.Tx,
		"rx":              ss.Rx,
	})
}

func structToSampleSet(s *structpb.Struct) stats.SampleSet {
	f := s.GetFields()
	return stats.SampleSet{
		Index:      int(f["index"].GetNumberValue()),
		Time:       seconds(f["time_s"].GetNumberValue()),
		Interval:   seconds(f["interval_s"].GetNumberValue()),
		Throughput: f["throughput_mbps"].GetNumberValue(),
		Power:      f["avg_power_mw"].GetNumberValue(),
		Idle:       f["idle"].GetNumberValue(),
		Busy:       f["busy"].GetNumberValue(),
		Tx:         f["tx"].GetNumberValue(),
		Rx:         f["rx"].GetNumberValue(),
	}
}

func seriesToStruct(m stats.Metric, samples []stats.Sample) (*structpb.Struct, error) {
	points := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		points = append(points, []interface{}{s.Time, s.Value})
	}
	return structpb.NewStruct(map[string]interface{}{
		"metric":  m.String(),
		"title":   m.Title(),
		"samples": points,
	})
}

func structToSeries(s *structpb.Struct) ([]stats.Sample, error) {
	list := s.GetFields()["samples"].GetListValue()
	ret := make([]stats.Sample, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		pt := v.GetListValue().GetValues()
		if len(pt) != 2 {
			return nil, errors.Errorf("malformed sample %d", i)
		}
		ret = append(ret, stats.Sample{Time: pt[0].GetNumberValue(), Value: pt[1].GetNumberValue()})
	}
	return ret, nil
}

// Durations are carried as seconds; counters as numbers, exact below 2^53.
func totalsToStruct(t stats.Totals) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"idle_s":       t.Channel.Idle.Seconds(),
		"busy_s":       t.Channel.Busy.Seconds(),
		"tx_s":         t.Channel.Tx.Seconds(),
		"rx_s":         t.Channel.Rx.Seconds(),
		"busy_time_s":  t.BusyTime.Seconds(),
		"energy_mws":   t.Tx.Energy,
		"tx_time_s":    t.Tx.TxTime.Seconds(),
		"data_frames":  t.Tx.DataFrames,
		"other_frames": t.Tx.OtherFrames,
		"rx_bytes":     t.RxBytes,
		"rx_packets":   t.RxPackets,
		"ticks":        t.Ticks,
	})
}

func structToTotals(s *structpb.Struct) stats.Totals {
	f := s.GetFields()
	return stats.Totals{
		Channel: energy.ChannelTimes{
			Idle: seconds(f["idle_s"].GetNumberValue()),
			Busy: seconds(f["busy_s"].GetNumberValue()),
			Tx:   seconds(f["tx_s"].GetNumberValue()),
			Rx:   seconds(f["rx_s"].GetNumberValue()),
		},
		BusyTime: seconds(f["busy_time_s"].GetNumberValue()),
		Tx: energy.TxTotals{
			Energy:      f["energy_mws"].GetNumberValue(),
			TxTime:      seconds(f["tx_time_s"].GetNumberValue()),
			DataFrames:  uint64(f["data_frames"].GetNumberValue()),
			OtherFrames: uint64(f["other_frames"].GetNumberValue()),
		},
		RxBytes:   uint64(f["rx_bytes"].GetNumberValue()),
		RxPackets: uint64(f["rx_packets"].GetNumberValue()),
		Ticks:     int(f["ticks"].GetNumberValue()),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s*float64(time.Second) + 0.5)
}
