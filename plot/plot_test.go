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

package plot

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnwifi/wifistats/stats"
)

type fakeSeries map[stats.Metric]*stats.TimeSeries

func (fs fakeSeries) Series(m stats.Metric) *stats.TimeSeries {
	return fs[m]
}

func newFakeSeries() fakeSeries {
	fs := fakeSeries{}
	for _, m := range stats.Metrics {
		ts := stats.NewTimeSeries(m.Title())
		ts.Add(0, 0)
		ts.Add(1, 1.5)
		fs[m] = ts
	}
	return fs
}

func TestGenerateOutput(t *testing.T) {
	ts := stats.NewTimeSeries("Throughput Mbits/s")
	ts.Add(0, 0)
	ts.Add(1, 1)
	ts.Add(2, 2.5)

	p := NewPlot("throughput-x-0.eps", "Throughput")
	p.SetLegend("Time (seconds)", "Throughput (Mb/s)")
	p.AddSeries(ts)

	var buf bytes.Buffer
	require.Nil(t, p.GenerateOutput(&buf))
	expected := `set terminal post eps color enhanced
set output "throughput-x-0.eps"
set title "Throughput"
set xlabel "Time (seconds)"
set ylabel "Throughput (Mb/s)"
plot "-" title "Throughput Mbits/s" with lines
0 0
1 1
2 2.5
e
`
	assert.Equal(t, expected, buf.String())
}

func TestPlotsMultipleDatasets(t *testing.T) {
	plots := Plots("run", newFakeSeries())
	require.Equal(t, 3, len(plots))
	st := plots[2]
	assert.Equal(t, 4, len(st.Datasets))

	var buf bytes.Buffer
	require.Nil(t, st.GenerateOutput(&buf))
	out := buf.String()
	assert.Contains(t, out, `plot "-" title "Idle Time" with lines, "-" title "Busy Time" with lines, "-" title "TX Time" with lines, "-" title "RX Time" with lines`)
	assert.Equal(t, 4, strings.Count(out, "\ne\n"))
}

func TestWritePlots(t *testing.T) {
	dir := t.TempDir()
	files, err := WritePlots(dir, "run", newFakeSeries())
	require.Nil(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "throughput-run-0.plt"),
		filepath.Join(dir, "power-run-0.plt"),
		filepath.Join(dir, "state-run-0.plt"),
	}, files)
	for _, fn := range files {
		data, err := os.ReadFile(fn)
		require.Nil(t, err)
		assert.True(t, strings.HasPrefix(string(data), "set terminal post eps color enhanced\n"))
	}
}

func TestCSVRecorder(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out", "samples.csv")
	r, err := NewCSVRecorder(fn)
	require.Nil(t, err)
	r.OnSample(stats.SampleSet{Time: 0})
	r.OnSample(stats.SampleSet{Time: 1500 * time.Millisecond, Throughput: 1, Power: 2.5, Idle: 30, Busy: 20})
	require.Nil(t, r.Close())

	f, err := os.Open(fn)
	require.Nil(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.Nil(t, err)
	require.Equal(t, 3, len(rows))
	assert.Equal(t, "t_s", rows[0][0])
	assert.Equal(t, []string{"1.5", "1.000000", "2.500000", "30.000000", "20.000000", "0.000000", "0.000000"}, rows[2])
}
