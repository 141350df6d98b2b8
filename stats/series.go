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
	"strings"

	"github.com/pkg/errors"
)

// Sample is one (time, value) point of a TimeSeries. Time is in seconds of virtual time.
type Sample struct {
	Time  float64 `json:"t" yaml:"t"`
	Value float64 `json:"v" yaml:"v"`
}

// TimeSeries is an append-only sequence of samples in time order.
type TimeSeries struct {
	title   string
	samples []Sample
}

func NewTimeSeries(title string) *TimeSeries {
	return &TimeSeries{
		title:   title,
		samples: make([]Sample, 0, 3600),
	}
}

func (ts *TimeSeries) Title() string {
	return ts.title
}

// Add appends a sample. Samples are never modified after they are added.
func (ts *TimeSeries) Add(t float64, v float64) {
	ts.samples = append(ts.samples, Sample{Time: t, Value: v})
}

func (ts *TimeSeries) Len() int {
	return len(ts.samples)
}

// Samples returns a copy of the samples.
func (ts *TimeSeries) Samples() []Sample {
	ret := make([]Sample, len(ts.samples))
	copy(ret, ts.samples)
	return ret
}

// At returns the i-th sample.
func (ts *TimeSeries) At(i int) Sample {
	return ts.samples[i]
}

// Last returns the latest sample, if any.
func (ts *TimeSeries) Last() (Sample, bool) {
	if len(ts.samples) == 0 {
		return Sample{}, false
	}
	return ts.samples[len(ts.samples)-1], true
}

// Metric identifies one of the reported time series.
type Metric int

const (
	MetricThroughput Metric = iota
	MetricPower
	MetricIdle
	MetricBusy
	MetricTx
	MetricRx
	NumMetrics = 6
)

// Metrics lists all metrics in report order.
var Metrics = []Metric{MetricThroughput, MetricPower, MetricIdle, MetricBusy, MetricTx, MetricRx}

var metricNames = [NumMetrics]string{"throughput", "power", "idle", "busy", "tx", "rx"}

// metricTitles are the dataset titles used in plots.
var metricTitles = [NumMetrics]string{
	"Throughput Mbits/s",
	"Average Radiated Power",
	"Idle Time",
	"Busy Time",
	"TX Time",
	"RX Time",
}

func (m Metric) String() string {
	if m < 0 || m >= NumMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// Title returns the dataset title of the metric.
func (m Metric) Title() string {
	if m < 0 || m >= NumMetrics {
		return ""
	}
	return metricTitles[m]
}

func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(s)
	for i, name := range metricNames {
		if name == s {
			return Metric(i), nil
		}
	}
	if s == "avgpower" || s == "atp" {
		return MetricPower, nil
	}
	return -1, errors.Errorf("unknown metric: %q", s)
}
