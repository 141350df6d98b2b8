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

// Package plot writes the reported time series as gnuplot scripts and CSV files.
package plot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/stats"
)

const DefaultTerminal = "post eps color enhanced"

// Dataset is one curve of a Plot, with its data inlined in the script.
type Dataset struct {
	Title   string
	Style   string
	Samples []stats.Sample
}

// Plot is a 2D gnuplot script.
type Plot struct {
	Output   string // image file the script renders to
	Title    string
	Terminal string
	XLegend  string
	YLegend  string
	Datasets []Dataset
}

func NewPlot(output string, title string) *Plot {
	return &Plot{
		Output:   output,
		Title:    title,
		Terminal: DefaultTerminal,
	}
}

func (p *Plot) SetLegend(x, y string) {
	p.XLegend = x
	p.YLegend = y
}

// AddSeries adds ts as a dataset drawn with lines.
func (p *Plot) AddSeries(ts *stats.TimeSeries) {
	p.Datasets = append(p.Datasets, Dataset{
		Title:   ts.Title(),
		Style:   "lines",
		Samples: ts.Samples(),
	})
}

// GenerateOutput writes the gnuplot script to w.
func (p *Plot) GenerateOutput(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if p.Terminal != "" {
		fmt.Fprintf(bw, "set terminal %s\n", p.Terminal)
	}
	if p.Output != "" {
		fmt.Fprintf(bw, "set output %q\n", p.Output)
	}
	if p.Title != "" {
		fmt.Fprintf(bw, "set title %q\n", p.Title)
	}
	if p.XLegend != "" {
		fmt.Fprintf(bw, "set xlabel %q\n", p.XLegend)
	}
	if p.YLegend != "" {
		fmt.Fprintf(bw, "set ylabel %q\n", p.YLegend)
	}

	if len(p.Datasets) > 0 {
		fmt.Fprint(bw, "plot ")
		for i, ds := range p.Datasets {
			if i > 0 {
				fmt.Fprint(bw, ", ")
			}
			fmt.Fprintf(bw, "\"-\" title %q with %s", ds.Title, ds.Style)
		}
		fmt.Fprintln(bw)
		for _, ds := range p.Datasets {
			for _, s := range ds.Samples {
				fmt.Fprintf(bw, "%g %g\n", s.Time, s.Value)
			}
			fmt.Fprintln(bw, "e")
		}
	}
	return bw.Flush()
}

// WriteFile writes the script to filename.
func (p *Plot) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err = p.GenerateOutput(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, filename)
	}
	return f.Close()
}

// SeriesSource provides the reported series.
type SeriesSource interface {
	Series(m stats.Metric) *stats.TimeSeries
}

// Plots returns the throughput, power and channel-state plots for an output name.
func Plots(name string, src SeriesSource) []*Plot {
	th := NewPlot(fmt.Sprintf("throughput-%s-0.eps", name), "Throughput (STA to host) vs time")
	th.SetLegend("Time (seconds)", "Throughput (Mb/s)")
	th.AddSeries(src.Series(stats.MetricThroughput))

	pw := NewPlot(fmt.Sprintf("power-%s-0.eps", name), "Average radiated power over the interval vs time")
	pw.SetLegend("Time (seconds)", "Power (mW)")
	pw.AddSeries(src.Series(stats.MetricPower))

	st := NewPlot(fmt.Sprintf("state-%s-0.eps", name), "Percentage time AP in WiFi state vs time")
	st.SetLegend("Time (seconds)", "Percent")
	for _, m := range []stats.Metric{stats.MetricIdle, stats.MetricBusy, stats.MetricTx, stats.MetricRx} {
		st.AddSeries(src.Series(m))
	}
	return []*Plot{th, pw, st}
}

// WritePlots writes the .plt scripts of Plots into dir and returns their paths.
func WritePlots(dir string, name string, src SeriesSource) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var files []string
	for _, p := range Plots(name, src) {
		base := p.Output[:len(p.Output)-len(filepath.Ext(p.Output))]
		fn := filepath.Join(dir, base+".plt")
		if err := p.WriteFile(fn); err != nil {
			return files, err
		}
		logger.Debugf("plot written: %s", fn)
		files = append(files, fn)
	}
	return files, nil
}
