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

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/plot"
	"github.com/sdnwifi/wifistats/progctx"
	"github.com/sdnwifi/wifistats/simulation"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	context.Context
	*Command
	rt              *CmdRunner
	err             error
	output          io.Writer
	isBackgroundCmd bool
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	// a single record is one flow mapping, a list is one flow item per line.
	if itemsYaml.Kind == yaml.MappingNode {
		itemsYaml.Style = yaml.FlowStyle
	} else {
		for _, content := range itemsYaml.Content {
			content.Style = yaml.FlowStyle
		}
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner parses console lines and executes them against a simulation. Everything that
// touches the engine runs inside the simulation loop.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	cr := &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
	sim.SetCmdRunner(cr)
	return cr
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
			for _, u := range rt.help.usage(firstWord(cmdline)) {
				if _, err := fmt.Fprintf(output, "usage: %s\n", u); err != nil {
					return err
				}
			}
		} else {
			rt.execute(&cmd, isBackgroundCommand(cmdline), output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) CommandNames() []string {
	return rt.help.commandNames()
}

func (rt *CmdRunner) execute(cmd *Command, background bool, output io.Writer) {
	cc := &CommandContext{
		Context:         rt.ctx,
		Command:         cmd,
		rt:              rt,
		output:          output,
		isBackgroundCmd: background,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else if !cc.isBackgroundCmd {
			cc.outputf("Done\n")
		} else {
			cc.outputf("Started\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.Stations != nil {
		rt.executeStations(cc)
	} else if cmd.Power != nil {
		rt.executePower(cc, cmd.Power)
	} else if cmd.Rate != nil {
		rt.executeRate(cc, cmd.Rate)
	} else if cmd.Rates != nil {
		rt.executeRates(cc)
	} else if cmd.Series != nil {
		rt.executeSeries(cc, cmd.Series)
	} else if cmd.Latest != nil {
		rt.executeLatest(cc)
	} else if cmd.Totals != nil {
		rt.executeTotals(cc)
	} else if cmd.Flows != nil {
		rt.executeFlows(cc)
	} else if cmd.Summary != nil {
		rt.executeSummary(cc, cmd.Summary)
	} else if cmd.Plot != nil {
		rt.executePlot(cc, cmd.Plot)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		logger.Panicf("unimplemented command")
	}
}

func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	done := make(chan struct{})
	if rt.sim.PostAsync(func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)
	}) {
		<-done
	} else {
		cc.error(simulation.CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever != nil {
		rt.executeGoEver(cc)
		return
	}

	timeDurToGo, err := time.ParseDuration(cmd.Time)
	if err != nil {
		timeDurToGo, err = time.ParseDuration(cmd.Time + "s") // try parsing as seconds
		if err != nil {
			cc.errorf("could not parse time duration: %s", cmd.Time)
			return
		}
	}
	cc.error(<-rt.sim.Go(timeDurToGo))
}

// executeGoEver runs the simulation to its end in the background, one second at a time, so
// that other commands are served in between.
func (rt *CmdRunner) executeGoEver(cc *CommandContext) {
	rt.ctx.WaitAdd("go-ever", 1)
	go func() {
		defer rt.ctx.WaitDone("go-ever")
		if err := rt.GoEver(); err != nil && rt.ctx.Err() == nil {
			logger.Errorf("go ever: %v", err)
		}
	}()
}

// GoEver advances the simulation one second at a time until the run is finished.
func (rt *CmdRunner) GoEver() error {
	for rt.ctx.Err() == nil {
		finished := false
		if err := rt.sim.Do(func() error {
			finished = rt.sim.Finished()
			return nil
		}); err != nil {
			return err
		}
		if finished {
			return nil
		}
		if err := <-rt.sim.Go(time.Second); err != nil {
			return err
		}
	}
	return nil
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	var now time.Duration
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		now = sim.Now()
	})
	cc.outputf("%v\n", now)
}

func (rt *CmdRunner) executeStations(cc *CommandContext) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		engine := sim.Engine()
		cc.outputf("%-4s | %-17s | %10s | %10s\n", "idx", "address", "power dBm", "rate")
		cc.outputf("%s\n", strings.Repeat("-", 51))
		for i, addr := range engine.Addresses() {
			power, err := engine.CurrentPower(addr)
			cc.error(err)
			rate, err := engine.CurrentRate(addr)
			cc.error(err)
			cc.outputf("%-4d | %-17s | %10.2f | %10v\n", i+1, addr, power, rate)
		}
	})
}

func (rt *CmdRunner) executePower(cc *CommandContext, cmd *PowerCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		addr, err := resolveStation(sim.Engine().Addresses(), cmd.Station)
		if err != nil {
			cc.error(err)
			return
		}
		power, err := sim.Engine().CurrentPower(addr)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%.2f\n", power)
	})
}

func (rt *CmdRunner) executeRate(cc *CommandContext, cmd *RateCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		addr, err := resolveStation(sim.Engine().Addresses(), cmd.Station)
		if err != nil {
			cc.error(err)
			return
		}
		rate, err := sim.Engine().CurrentRate(addr)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%v\n", rate)
	})
}

func (rt *CmdRunner) executeRates(cc *CommandContext) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		table := sim.Engine().Table()
		cc.outputf("frame size %d bytes\n", table.FrameSize())
		for _, e := range table.Entries() {
			cc.outputf("%10v %12v\n", e.Rate, e.Duration)
		}
	})
}

func (rt *CmdRunner) executeSeries(cc *CommandContext, cmd *SeriesCmd) {
	name := cmd.Metric
	if name == "tp" {
		name = stats.MetricThroughput.String()
	}
	m, err := stats.ParseMetric(name)
	if err != nil {
		cc.error(err)
		return
	}
	if cmd.Last != nil && *cmd.Last <= 0 {
		cc.errorf("invalid sample count: %d", *cmd.Last)
		return
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		samples := sim.Engine().Series(m).Samples()
		if cmd.Last != nil && *cmd.Last < len(samples) {
			samples = samples[len(samples)-*cmd.Last:]
		}
		cc.outputf("# %s\n", m.Title())
		for _, s := range samples {
			cc.outputf("%g %g\n", s.Time, s.Value)
		}
	})
}

func (rt *CmdRunner) executeLatest(cc *CommandContext) {
	ss, ok := rt.sim.Store().Latest()
	if !ok {
		cc.errorf("no samples yet")
		return
	}
	cc.outputItemsAsYaml(ss)
}

func (rt *CmdRunner) executeTotals(cc *CommandContext) {
	var totals stats.Totals
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		totals = sim.Engine().Totals()
	})
	if cc.Err() == nil {
		cc.outputItemsAsYaml(totals)
	}
}

func (rt *CmdRunner) executeFlows(cc *CommandContext) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, fs := range sim.Flows().Flows() {
			cc.outputf("%s bytes=%d packets=%d first=%v last=%v throughput=%.3fMbps\n",
				fs.Source, fs.RxBytes, fs.RxPackets, fs.FirstRx, fs.LastRx, fs.Throughput())
		}
	})
}

func (rt *CmdRunner) executeSummary(cc *CommandContext, cmd *SummaryCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Save == nil {
			cc.outputItemsAsYaml(sim.Kpi().Data())
			return
		}
		fn := cmd.Name
		if fn == "" {
			cfg := sim.GetConfig()
			fn = fmt.Sprintf("%s/summary-%s.json", cfg.Output.Dir, cfg.Output.Prefix)
		}
		if err := sim.Kpi().SaveFile(fn); err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%s\n", fn)
	})
}

func (rt *CmdRunner) executePlot(cc *CommandContext, cmd *PlotCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cfg := sim.GetConfig()
		dir := cmd.Dir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		files, err := plot.WritePlots(dir, cfg.Output.Prefix, sim.Engine())
		cc.error(err)
		for _, fn := range files {
			cc.outputf("%s\n", fn)
		}
	})
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		engine := sim.Engine()
		level := engine.Config().WatchLevel
		if len(cmd.Level) > 0 {
			var err error
			if level, err = logger.ParseLevelString(cmd.Level); err != nil {
				cc.error(err)
				return
			}
		}

		var toWatch []MacAddress
		if len(cmd.All) > 0 && len(cmd.Stations) > 0 {
			cc.errorf("watch: unsupported combination of command options")
			return
		} else if len(cmd.All) > 0 {
			// variant: 'watch all [<level>]'
			toWatch = engine.Addresses()
		} else if len(cmd.Stations) > 0 {
			// variant: 'watch <sta> [<sta> ...] [<level>]'
			var err error
			if toWatch, err = resolveStations(engine.Addresses(), cmd.Stations); err != nil {
				cc.error(err)
				return
			}
		} else if len(cmd.Level) > 0 {
			// variant: 'watch <level>' changes the level of all watched stations.
			toWatch = engine.Watched()
		} else {
			// variant: 'watch'
			watched := engine.Watched()
			names := make([]string, 0, len(watched))
			for _, addr := range watched {
				names = append(names, addr.String())
			}
			cc.outputf("%s\n", strings.Join(names, " "))
			return
		}

		for _, addr := range toWatch {
			engine.Watch(addr, level)
		}
	})
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		engine := sim.Engine()
		toUnwatch := engine.Watched()
		if len(cmd.Stations) > 0 {
			var err error
			if toUnwatch, err = resolveStations(engine.Addresses(), cmd.Stations); err != nil {
				cc.error(err)
				return
			}
		}
		for _, addr := range toUnwatch {
			engine.Watch(addr, logger.OffLevel)
		}
	})
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.Stop()
	})
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
