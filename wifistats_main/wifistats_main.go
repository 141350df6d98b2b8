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

// Package wifistats_main runs a wifistats experiment from the command line: configuration,
// logging, the simulation loop, the optional metrics and gRPC query servers, and either a
// batch run or the interactive console.
package wifistats_main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/sdnwifi/wifistats/cli"
	"github.com/sdnwifi/wifistats/config"
	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/progctx"
	"github.com/sdnwifi/wifistats/rpc"
	"github.com/sdnwifi/wifistats/simulation"
	"github.com/sdnwifi/wifistats/tracing"
	. "github.com/sdnwifi/wifistats/types"
)

type MainArgs struct {
	ConfigFile  string
	Duration    time.Duration
	Interval    time.Duration
	Seed        int64
	OutputDir   string
	Prefix      string
	CSV         bool
	NoPlots     bool
	TraceIn     string
	TraceOut    string
	MetricsAddr string
	RPCAddr     string
	LogLevel    string
	LogFile     string
	WatchLevel  string
	Manager     string
	MaxPower    float64
	MinPower    float64
	PowerLevels uint
	OfferedLoad string
	Tracing     string
	Batch       bool
	AutoGo      bool
	History     string
}

// parseArgs parses argv into args. Only the flags present in argv override the configuration
// file; their names are returned in set.
func parseArgs(fs *flag.FlagSet, argv []string) (args *MainArgs, set map[string]bool, err error) {
	defaults := config.DefaultConfig()
	args = &MainArgs{}

	fs.StringVar(&args.ConfigFile, "config", "", "experiment configuration file (.yaml, .yml or .toml)")
	fs.DurationVar(&args.Duration, "duration", defaults.Duration, "virtual run time (simuTime)")
	fs.DurationVar(&args.Interval, "interval", defaults.Interval, "reporting interval")
	fs.Int64Var(&args.Seed, "seed", defaults.Seed, "random seed, 0 for a time-based seed")
	fs.StringVar(&args.OutputDir, "output", defaults.Output.Dir, "output directory")
	fs.StringVar(&args.Prefix, "prefix", defaults.Output.Prefix, "output file name prefix (outputFileName)")
	fs.BoolVar(&args.CSV, "csv", defaults.Output.CSV, "record every sample set to a CSV file")
	fs.BoolVar(&args.NoPlots, "no-plots", false, "do not write gnuplot files")
	fs.StringVar(&args.TraceIn, "trace-in", "", "replay a recorded event trace instead of the synthetic scenario")
	fs.StringVar(&args.TraceOut, "trace-out", "", "record the delivered events to a trace file")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	fs.StringVar(&args.RPCAddr, "rpc", "", "serve the gRPC query service on this address")
	fs.StringVar(&args.LogLevel, "log", defaults.LogLevel, "log level: trace, debug, info, note, warn, error")
	fs.StringVar(&args.LogFile, "log-file", "", "also write the log to this file")
	fs.StringVar(&args.WatchLevel, "watch", defaults.Engine.WatchLevel, "log level of watched stations")
	fs.StringVar(&args.Manager, "manager", defaults.Scenario.Manager, "rate/power manager of the scenario: constant or step")
	fs.Float64Var(&args.MaxPower, "max-power", defaults.Scenario.MaxPowerDbm, "maximum transmit power in dBm (maxPower)")
	fs.Float64Var(&args.MinPower, "min-power", defaults.Scenario.MinPowerDbm, "minimum transmit power in dBm (minPower)")
	fs.UintVar(&args.PowerLevels, "power-levels", uint(defaults.Scenario.PowerLevels), "number of transmit power levels (powerLevels)")
	fs.StringVar(&args.OfferedLoad, "load", defaults.Scenario.OfferedLoad.String(), "offered load of the scenario, e.g. 54Mbps")
	fs.StringVar(&args.Tracing, "otel", "", "enable OpenTelemetry tracing of the query service: stdout or otlp")
	fs.BoolVar(&args.Batch, "batch", false, "run to the end without console and exit")
	fs.BoolVar(&args.AutoGo, "autogo", false, "advance the run in the background while the console is open")
	fs.StringVar(&args.History, "history", "", "console history file")

	if err = fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return args, set, nil
}

// buildConfig loads the configuration file, if any, and applies the flags given on the
// command line.
func buildConfig(args *MainArgs, set map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(args.ConfigFile); err != nil {
			return nil, errors.Wrapf(err, "load %s", args.ConfigFile)
		}
	}

	if set["duration"] {
		cfg.Duration = args.Duration
	}
	if set["interval"] {
		cfg.Interval = args.Interval
	}
	if set["seed"] {
		cfg.Seed = args.Seed
	}
	if set["output"] {
		cfg.Output.Dir = args.OutputDir
	}
	if set["prefix"] {
		cfg.Output.Prefix = args.Prefix
	}
	if set["csv"] {
		cfg.Output.CSV = args.CSV
	}
	if args.NoPlots {
		cfg.Output.Plots = false
	}
	if set["trace-in"] {
		cfg.Trace.Input = args.TraceIn
	}
	if set["trace-out"] {
		cfg.Trace.Record = args.TraceOut
	}
	if set["metrics"] {
		cfg.MetricsAddr = args.MetricsAddr
	}
	if set["rpc"] {
		cfg.RPCAddr = args.RPCAddr
	}
	if set["log"] {
		cfg.LogLevel = args.LogLevel
	}
	if set["log-file"] {
		cfg.LogFile = args.LogFile
	}
	if set["watch"] {
		cfg.Engine.WatchLevel = args.WatchLevel
	}
	if set["manager"] {
		cfg.Scenario.Manager = args.Manager
	}
	if set["max-power"] {
		cfg.Scenario.MaxPowerDbm = args.MaxPower
	}
	if set["min-power"] {
		cfg.Scenario.MinPowerDbm = args.MinPower
	}
	if set["power-levels"] {
		cfg.Scenario.PowerLevels = uint32(args.PowerLevels)
	}
	if set["load"] {
		load, err := ParseDataRate(args.OfferedLoad)
		if err != nil {
			return nil, err
		}
		cfg.Scenario.OfferedLoad = load
	}
	if set["otel"] {
		cfg.Tracing.Enabled = args.Tracing != ""
		if args.Tracing != "" {
			cfg.Tracing.Exporter = args.Tracing
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logger.ParseLevelString(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.LogFile != "" {
		return logger.SetLogFile(cfg.LogFile)
	}
	return nil
}

// Main runs the program with the command line arguments argv (without program name).
func Main(ctx *progctx.ProgCtx, argv []string, cliOptions *cli.CliOptions) error {
	args, set, err := parseArgs(flag.NewFlagSet("wifistats", flag.ContinueOnError), argv)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(args, set)
	if err != nil {
		return err
	}
	if err = setupLogging(cfg); err != nil {
		return err
	}
	logger.Debugf("configuration: %+v", *cfg)

	handleSignals(ctx)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	ctx.Defer(func() {
		tracing.Shutdown(shutdownTracing)
	})

	sim, err := simulation.NewSimulation(ctx, cfg, nil)
	if err != nil {
		return err
	}
	rt := cli.NewCmdRunner(ctx, sim)
	go sim.Run()
	<-sim.Started

	if exporter := sim.Exporter(); exporter != nil && cfg.MetricsAddr != "" {
		ctx.Go("metrics", func(c context.Context) error {
			return exporter.Serve(c, cfg.MetricsAddr)
		})
	}
	if cfg.RPCAddr != "" {
		startQueryServer(ctx, sim, cfg.RPCAddr)
	}

	if args.Batch {
		err = sim.Do(sim.RunToEnd)
		ctx.Cancel(errors.Wrap(err, "batch run"))
	} else {
		runConsole(ctx, rt, args, cliOptions)
	}

	logger.Debugf("waiting for wifistats to stop gracefully ...")
	ctx.Wait()
	if sim.Err() != nil {
		return sim.Err()
	}
	if errors.Is(err, simulation.CommandInterruptedError) {
		return nil
	}
	return err
}

func startQueryServer(ctx *progctx.ProgCtx, sim *simulation.Simulation, addr string) {
	var interceptors []grpc.UnaryServerInterceptor
	if exporter := sim.Exporter(); exporter != nil {
		interceptors = append(interceptors, exporter.UnaryServerInterceptor())
	}
	server := rpc.NewServer(addr, sim.Store(), sim.Command, interceptors...)
	ctx.Defer(server.Stop)
	ctx.Go("rpc", func(c context.Context) error {
		err := server.Run()
		if c.Err() != nil {
			return nil
		}
		return err
	})
}

func runConsole(ctx *progctx.ProgCtx, rt *cli.CmdRunner, args *MainArgs, cliOptions *cli.CliOptions) {
	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	if args.History != "" {
		cliOptions.HistoryFile = args.History
	}
	logger.SetStdoutCallback(cli.Cli)
	ctx.Defer(func() {
		go cli.Cli.Stop()
	})

	if args.AutoGo {
		ctx.WaitAdd("autogo", 1)
		go func() {
			defer ctx.WaitDone("autogo")
			if err := rt.GoEver(); err != nil && ctx.Err() == nil {
				logger.Errorf("autogo: %v", err)
			}
		}()
	}

	err := cli.Cli.Run(rt, cliOptions)
	ctx.Cancel(errors.Wrapf(err, "console exit"))
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		select {
		case sig := <-c:
			logger.Infof("signal received: %v", sig)
			ctx.Cancel(nil)
		case <-ctx.Done():
		}
	}()
}
