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

// Package metrics exposes the latest sample set and the run totals as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

// Exporter is a stats.Observer updating Prometheus gauges on every tick. Gauges are safe to
// scrape from other goroutines.
type Exporter struct {
	gatherer prometheus.Gatherer
	totals   func() stats.Totals

	Sample         *prometheus.GaugeVec
	SampleTime     prometheus.Gauge
	Ticks          prometheus.Counter
	ChannelSeconds *prometheus.GaugeVec
	BusySeconds    prometheus.Gauge
	TxEnergy       prometheus.Gauge
	DataFrames     prometheus.Gauge
	RxBytes        prometheus.Gauge

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewExporter registers the metrics against reg, defaulting to the global Prometheus registry
// when nil.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	e := &Exporter{gatherer: gatherer}
	var err error
	if e.Sample, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wifistats_sample",
		Help: "Latest reported value per metric (throughput Mb/s, average radiated power mW, channel state seconds x 100).",
	}, []string{"metric"}), "wifistats_sample"); err != nil {
		return nil, err
	}
	if e.SampleTime, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifistats_sample_time_seconds",
		Help: "Virtual time of the latest sample set.",
	}), "wifistats_sample_time_seconds"); err != nil {
		return nil, err
	}
	if e.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wifistats_ticks_total",
		Help: "Number of sample sets reported.",
	}), "wifistats_ticks_total"); err != nil {
		return nil, err
	}
	if e.ChannelSeconds, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wifistats_channel_seconds",
		Help: "Cumulative virtual time spent per channel state.",
	}, []string{"state"}), "wifistats_channel_seconds"); err != nil {
		return nil, err
	}
	if e.BusySeconds, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifistats_busy_seconds",
		Help: "Cumulative busy plus receive time.",
	}), "wifistats_busy_seconds"); err != nil {
		return nil, err
	}
	if e.TxEnergy, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifistats_tx_energy_mws",
		Help: "Cumulative transmit energy of data frames in mW*s.",
	}), "wifistats_tx_energy_mws"); err != nil {
		return nil, err
	}
	if e.DataFrames, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifistats_data_frames",
		Help: "Cumulative number of data frames charged.",
	}), "wifistats_data_frames"); err != nil {
		return nil, err
	}
	if e.RxBytes, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifistats_rx_bytes",
		Help: "Cumulative received bytes.",
	}), "wifistats_rx_bytes"); err != nil {
		return nil, err
	}
	if e.RPCRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifistats_rpc_requests_total",
		Help: "Total number of handled query RPCs, labeled by method and gRPC status code.",
	}, []string{"method", "code"}), "wifistats_rpc_requests_total"); err != nil {
		return nil, err
	}
	if e.RPCDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wifistats_rpc_duration_seconds",
		Help:    "Query RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method"}), "wifistats_rpc_duration_seconds"); err != nil {
		return nil, err
	}
	return e, nil
}

// SetTotalsSource makes OnSample also refresh the run totals from f. f is called from the
// goroutine delivering samples.
func (e *Exporter) SetTotalsSource(f func() stats.Totals) {
	e.totals = f
}

func (e *Exporter) OnSample(ss stats.SampleSet) {
	for _, m := range stats.Metrics {
		e.Sample.WithLabelValues(m.String()).Set(ss.Get(m))
	}
	e.SampleTime.Set(ss.Time.Seconds())
	e.Ticks.Inc()
	if e.totals != nil {
		e.SetTotals(e.totals())
	}
}

func (e *Exporter) SetTotals(t stats.Totals) {
	for _, st := range ChannelStates {
		e.ChannelSeconds.WithLabelValues(st.String()).Set(t.Channel.Get(st).Seconds())
	}
	e.BusySeconds.Set(t.BusyTime.Seconds())
	e.TxEnergy.Set(t.Tx.Energy)
	e.DataFrames.Set(float64(t.Tx.DataFrames))
	e.RxBytes.Set(float64(t.RxBytes))
}

// Handler exposes a ready-to-use /metrics handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("metrics server listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (e *Exporter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if e == nil {
			return resp, err
		}
		method := "unknown"
		if info != nil && info.FullMethod != "" {
			method = info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
		}
		e.RPCRequests.WithLabelValues(method, status.Code(err).String()).Inc()
		e.RPCDurations.WithLabelValues(method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}
