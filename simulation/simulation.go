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

// Package simulation wires the virtual clock, the statistics engine, an event source and the
// outputs of one experiment.
package simulation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/config"
	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/metrics"
	"github.com/sdnwifi/wifistats/plot"
	"github.com/sdnwifi/wifistats/prng"
	"github.com/sdnwifi/wifistats/progctx"
	"github.com/sdnwifi/wifistats/rpc"
	"github.com/sdnwifi/wifistats/scenario"
	"github.com/sdnwifi/wifistats/stats"
	"github.com/sdnwifi/wifistats/trace"
	"github.com/sdnwifi/wifistats/types"
)

type Simulation struct {
	Started  chan struct{}
	ctx      *progctx.ProgCtx
	cfg      *config.Config
	sched    *clock.Scheduler
	engine   *stats.Engine
	flows    *FlowMonitor
	producer *scenario.Producer
	replay   *trace.Replay
	reader   *trace.Reader
	recorder *trace.Recorder
	csv      *plot.CSVRecorder
	store    *rpc.Store
	exporter *metrics.Exporter
	kpi      *KpiManager

	tasks     chan func()
	cmdRunner CmdRunner
	started   bool
	finished  bool
	stopped   bool
	err       error
}

// NewSimulation builds a simulation from a validated configuration. The Prometheus exporter
// is registered on reg; with a nil reg it is only created when a metrics address is set.
func NewSimulation(ctx *progctx.ProgCtx, cfg *config.Config, reg prometheus.Registerer) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := prng.Init(cfg.Seed)
	logger.Debugf("random seed %d", seed)

	s := &Simulation{
		Started: make(chan struct{}),
		ctx:     ctx,
		cfg:     cfg,
		sched:   clock.NewScheduler(),
		tasks:   make(chan func(), 16),
		kpi:     NewKpiManager(),
	}
	s.sched.SetStopTime(cfg.Duration)

	ec, err := cfg.StatsConfig()
	if err != nil {
		return nil, err
	}
	if s.engine, err = stats.NewEngine(ec, s.sched); err != nil {
		return nil, err
	}

	var listener stats.Listener = s.engine
	if cfg.Trace.Record != "" {
		f, err := trace.NewFile(cfg.Trace.Record, ec.FrameSize)
		if err != nil {
			return nil, err
		}
		s.recorder = trace.NewRecorder(f, s.sched, listener)
		listener = s.recorder
	}
	s.flows = NewFlowMonitor(s.sched, listener)

	if cfg.Trace.Input != "" {
		if s.reader, err = trace.Open(cfg.Trace.Input); err != nil {
			s.closeFiles()
			return nil, err
		}
		if s.reader.FrameSize() != ec.FrameSize {
			logger.Warnf("trace %s was recorded with frame size %dB, engine uses %dB",
				cfg.Trace.Input, s.reader.FrameSize(), ec.FrameSize)
		}
		s.replay = trace.NewReplay(s.reader, s.sched, s.flows)
	} else {
		sc, err := cfg.ScenarioConfig()
		if err != nil {
			s.closeFiles()
			return nil, err
		}
		if s.producer, err = scenario.NewProducer(sc, s.sched, s.flows, s.engine.Table()); err != nil {
			s.closeFiles()
			return nil, err
		}
		logger.AssertEqual(ec.InitialPowerDbm, s.producer.InitialPower())
		logger.AssertEqual(ec.InitialRate, s.producer.InitialRate())
	}

	s.store = rpc.NewStore(s.engine.Totals)
	s.engine.AddObserver(s.store)

	if reg == nil && cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
	}
	if reg != nil {
		if s.exporter, err = metrics.NewExporter(reg); err != nil {
			s.closeFiles()
			return nil, err
		}
		s.exporter.SetTotalsSource(s.engine.Totals)
		s.engine.AddObserver(s.exporter)
	}

	if cfg.Output.CSV {
		if s.csv, err = plot.NewCSVRecorder(s.outputPath("stats-%s.csv")); err != nil {
			s.closeFiles()
			return nil, err
		}
		s.engine.AddObserver(s.csv)
	}

	s.kpi.Init(s)
	return s, nil
}

func (s *Simulation) outputPath(pattern string) string {
	return filepath.Join(s.cfg.Output.Dir, strings.Replace(pattern, "%s", s.cfg.Output.Prefix, 1))
}

// Start fires the first reporting tick at the current time and starts the event source.
func (s *Simulation) Start() error {
	if s.started {
		return errors.New("simulation already started")
	}
	s.started = true
	s.kpi.Start()
	if err := s.engine.Start(); err != nil {
		return err
	}
	if s.producer != nil {
		return s.producer.Start()
	}
	return s.replay.Start()
}

// Run executes posted tasks on the calling goroutine until the program context is done.
// All access to the engine and the scheduler happens in this loop.
func (s *Simulation) Run() {
	s.ctx.WaitAdd("simulation", 1)
	defer s.ctx.WaitDone("simulation")
	defer logger.Debugf("simulation exit.")
	defer s.Stop()
	close(s.Started)

	for {
		select {
		case f := <-s.tasks:
			f()
		case <-s.ctx.Done():
			return
		}
	}
}

// PostAsync queues f for the simulation loop. It returns false if the program is exiting.
func (s *Simulation) PostAsync(f func()) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.tasks <- f:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Do runs f in the simulation loop and waits for its result.
func (s *Simulation) Do(f func() error) error {
	done := make(chan error, 1)
	if !s.PostAsync(func() { done <- f() }) {
		return CommandInterruptedError
	}
	select {
	case err := <-done:
		return err
	case <-s.ctx.Done():
		return CommandInterruptedError
	}
}

// Go advances the virtual time by duration, or up to the end of the run.
func (s *Simulation) Go(duration time.Duration) <-chan error {
	done := make(chan error, 1)
	if !s.PostAsync(func() { done <- s.GoNow(duration) }) {
		done <- CommandInterruptedError
	}
	return done
}

// GoNow advances the virtual time in the calling goroutine. Reaching the end of the run
// finishes the simulation.
func (s *Simulation) GoNow(duration time.Duration) error {
	if s.finished {
		return errors.Errorf("simulation finished at %v", s.sched.Now())
	}
	if !s.started {
		if err := s.Start(); err != nil {
			return s.abort(err)
		}
	}
	if err := s.sched.Go(s.ctx, duration); err != nil {
		if s.ctx.Err() != nil {
			return err
		}
		return s.abort(err)
	}
	if s.sched.Now() >= s.sched.StopTime() {
		return s.Finish()
	}
	return nil
}

// RunToEnd starts the simulation if needed and runs it to the configured duration.
func (s *Simulation) RunToEnd() error {
	return s.GoNow(s.sched.StopTime() - s.sched.Now())
}

func (s *Simulation) abort(err error) error {
	logger.Errorf("simulation aborted at %v: %v", s.sched.Now(), err)
	s.err = err
	s.sched.Stop()
	status := "aborted: "
	if types.IsContractViolation(err) {
		status = "producer contract violation: "
	}
	if ferr := s.finish(status + err.Error()); ferr != nil {
		logger.Errorf("finishing aborted simulation: %v", ferr)
	}
	return err
}

// Finish writes the outputs of the run. It is effective once.
func (s *Simulation) Finish() error {
	return s.finish("")
}

func (s *Simulation) finish(status string) error {
	if s.finished {
		return nil
	}
	s.finished = true
	s.kpi.Stop(status)
	s.engine.FlushWatch()
	s.store.Close()

	var errs []string
	addErr := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	out := s.cfg.Output
	if out.Plots || out.Summary || out.CSV {
		addErr(os.MkdirAll(out.Dir, 0o755))
	}
	if out.Plots {
		files, err := plot.WritePlots(out.Dir, out.Prefix, s.engine)
		addErr(err)
		for _, fn := range files {
			logger.Infof("plot written: %s", fn)
		}
	}
	if out.Summary {
		fn := s.outputPath("summary-%s.json")
		if err := s.kpi.SaveFile(fn); err != nil {
			addErr(err)
		} else {
			logger.Infof("summary written: %s", fn)
		}
	}
	s.closeFiles()

	for _, fs := range s.flows.Flows() {
		logger.Infof("flow %s: %d bytes in %d packets, throughput %.3f Mbps", fs.Source, fs.RxBytes, fs.RxPackets, fs.Throughput())
	}
	logger.Infof("run finished at %v: %d ticks, busy time %v", s.sched.Now(), s.engine.Reporter().Ticks(), s.engine.BusyTime())

	if len(errs) > 0 {
		return errors.Errorf("writing outputs: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Simulation) closeFiles() {
	if s.csv != nil {
		if err := s.csv.Close(); err != nil {
			logger.Errorf("close csv: %v", err)
		}
		s.csv = nil
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			logger.Errorf("close trace recording: %v", err)
		}
		s.recorder = nil
	}
	if s.reader != nil {
		_ = s.reader.Close()
		s.reader = nil
	}
}

// Stop finishes the run, if not done yet, and cancels the program context.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation ...")
	s.stopped = true
	if s.started {
		if err := s.finish("interrupted"); err != nil {
			logger.Errorf("%v", err)
		}
	} else {
		s.closeFiles()
		s.store.Close()
	}
	s.ctx.Cancel("simulation-stop")
}

// Command runs a console command through the CmdRunner and returns its output lines.
func (s *Simulation) Command(cmd string) ([]string, error) {
	if s.cmdRunner == nil {
		return nil, errors.New("no command runner")
	}
	var buf bytes.Buffer
	err := s.cmdRunner.RunCommand(cmd, &buf)
	output := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(output) == 1 && output[0] == "" {
		output = nil
	}
	return output, err
}

func (s *Simulation) SetCmdRunner(cmdRunner CmdRunner) {
	s.cmdRunner = cmdRunner
}

func (s *Simulation) Now() time.Duration {
	return s.sched.Now()
}

func (s *Simulation) Finished() bool {
	return s.finished
}

// Err returns the error that aborted the run, if any.
func (s *Simulation) Err() error {
	return s.err
}

func (s *Simulation) Scheduler() *clock.Scheduler {
	return s.sched
}

func (s *Simulation) Engine() *stats.Engine {
	return s.engine
}

func (s *Simulation) Flows() *FlowMonitor {
	return s.flows
}

func (s *Simulation) Producer() *scenario.Producer {
	return s.producer
}

func (s *Simulation) Replay() *trace.Replay {
	return s.replay
}

func (s *Simulation) Store() *rpc.Store {
	return s.store
}

func (s *Simulation) Exporter() *metrics.Exporter {
	return s.exporter
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpi
}

func (s *Simulation) GetConfig() *config.Config {
	return s.cfg
}
