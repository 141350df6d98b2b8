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

// Package config holds the experiment configuration, read from a YAML or TOML file.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/phy"
	"github.com/sdnwifi/wifistats/scenario"
	"github.com/sdnwifi/wifistats/stats"
	"github.com/sdnwifi/wifistats/tracing"
	. "github.com/sdnwifi/wifistats/types"
)

const (
	DefaultDuration     = 100 * time.Second
	DefaultInterval     = time.Second
	DefaultOutputPrefix = "parf"
)

type EngineConfig struct {
	Standard        string       `yaml:"standard" toml:"standard"`
	ChannelWidth    uint16       `yaml:"channel_width" toml:"channel_width"`
	Preamble        string       `yaml:"preamble" toml:"preamble"`
	FrameSize       uint32       `yaml:"frame_size" toml:"frame_size"`
	// InitialPowerDbm and InitialRate seed the engine when a trace is replayed. With the
	// synthetic scenario the seed follows the scenario, and set values must agree with it.
	InitialPowerDbm *DbmValue    `yaml:"initial_power_dbm,omitempty" toml:"initial_power_dbm"`
	InitialRate     DataRate     `yaml:"initial_rate,omitempty" toml:"initial_rate"`
	Watch           []MacAddress `yaml:"watch,omitempty" toml:"watch"`
	WatchLevel      string       `yaml:"watch_level" toml:"watch_level"`
}

type ScenarioConfig struct {
	AP              MacAddress    `yaml:"ap" toml:"ap"`
	Stations        []MacAddress  `yaml:"stations,omitempty" toml:"stations"`
	NumStations     int           `yaml:"num_stations" toml:"num_stations"`
	PacketSize      uint32        `yaml:"packet_size" toml:"packet_size"`
	OfferedLoad     DataRate      `yaml:"offered_load" toml:"offered_load"`
	Start           time.Duration `yaml:"start" toml:"start"`
	Jitter          time.Duration `yaml:"jitter" toml:"jitter"`
	LossProbability float64       `yaml:"loss_probability" toml:"loss_probability"`
	BusyProbability float64       `yaml:"busy_probability" toml:"busy_probability"`
	BeaconInterval  time.Duration `yaml:"beacon_interval" toml:"beacon_interval"`
	Manager         string        `yaml:"manager" toml:"manager"`
	ConstantRate    DataRate      `yaml:"constant_rate" toml:"constant_rate"`
	MaxPowerDbm     DbmValue      `yaml:"max_power_dbm" toml:"max_power_dbm"`
	MinPowerDbm     DbmValue      `yaml:"min_power_dbm" toml:"min_power_dbm"`
	PowerLevels     uint32        `yaml:"power_levels" toml:"power_levels"`
	StepInterval    time.Duration `yaml:"step_interval" toml:"step_interval"`
}

// TraceConfig selects a recorded trace as event source instead of the synthetic scenario
// (Input), and/or records the delivered events (Record).
type TraceConfig struct {
	Input  string `yaml:"input" toml:"input"`
	Record string `yaml:"record" toml:"record"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir" toml:"dir"`
	Prefix  string `yaml:"prefix" toml:"prefix"`
	Plots   bool   `yaml:"plots" toml:"plots"`
	CSV     bool   `yaml:"csv" toml:"csv"`
	Summary bool   `yaml:"summary" toml:"summary"`
}

type Config struct {
	Duration time.Duration `yaml:"duration" toml:"duration"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
	Seed     int64         `yaml:"seed" toml:"seed"`
	LogLevel string        `yaml:"log_level" toml:"log_level"`
	LogFile  string        `yaml:"log_file" toml:"log_file"`

	Engine   EngineConfig   `yaml:"engine" toml:"engine"`
	Scenario ScenarioConfig `yaml:"scenario" toml:"scenario"`
	Trace    TraceConfig    `yaml:"trace" toml:"trace"`
	Output   OutputConfig   `yaml:"output" toml:"output"`

	MetricsAddr string         `yaml:"metrics_addr" toml:"metrics_addr"`
	RPCAddr     string         `yaml:"rpc_addr" toml:"rpc_addr"`
	Tracing     tracing.Config `yaml:"tracing" toml:"tracing"`
}

func DefaultConfig() *Config {
	sc := scenario.DefaultConfig()
	ec := stats.DefaultEngineConfig()
	return &Config{
		Duration: DefaultDuration,
		Interval: DefaultInterval,
		Seed:     1,
		LogLevel: logger.DefaultLevelString,
		Engine: EngineConfig{
			Standard:   string(ec.Standard),
			Preamble:   ec.Preamble.String(),
			FrameSize:  ec.FrameSize,
			WatchLevel: "info",
		},
		Scenario: ScenarioConfig{
			AP:              sc.AP,
			NumStations:     1,
			PacketSize:      sc.PacketSize,
			OfferedLoad:     sc.OfferedLoad,
			Start:           sc.Start,
			Jitter:          sc.Jitter,
			LossProbability: sc.LossProbability,
			BusyProbability: sc.BusyProbability,
			BeaconInterval:  sc.BeaconInterval,
			Manager:         sc.Manager,
			MaxPowerDbm:     sc.MaxPowerDbm,
			MinPowerDbm:     sc.MinPowerDbm,
			PowerLevels:     sc.PowerLevels,
			StepInterval:    sc.StepInterval,
		},
		Output: OutputConfig{
			Dir:     ".",
			Prefix:  DefaultOutputPrefix,
			Plots:   true,
			Summary: true,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Load reads a configuration file on top of the defaults. The format follows the file
// extension: .yaml/.yml or .toml. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYaml(data, cfg)
	case ".toml":
		err = decodeToml(data, cfg)
	default:
		return nil, errors.Errorf("unsupported config file format: %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

func decodeYaml(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil // empty file
	}
	return err
}

func decodeToml(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// normalizeManager maps ns-3 station manager names onto the synthetic managers.
func normalizeManager(m string) string {
	switch strings.ToLower(strings.TrimPrefix(m, "ns3::")) {
	case "constant", "constantratewifimanager":
		return scenario.ManagerConstant
	case "step", "parf", "aparf", "parfwifimanager", "aparfwifimanager":
		return scenario.ManagerStep
	default:
		return m
	}
}

func (cfg *Config) Validate() error {
	if cfg.Duration <= 0 {
		return errors.Errorf("invalid duration: %v", cfg.Duration)
	}
	if cfg.Interval <= 0 {
		return errors.Errorf("invalid interval: %v", cfg.Interval)
	}
	if _, err := logger.ParseLevelString(cfg.LogLevel); err != nil {
		return err
	}
	if _, err := logger.ParseLevelString(cfg.Engine.WatchLevel); err != nil {
		return errors.Wrap(err, "watch level")
	}
	if _, err := cfg.StatsConfig(); err != nil {
		return err
	}
	if cfg.Trace.Input == "" {
		sc, err := cfg.ScenarioConfig()
		if err != nil {
			return err
		}
		if err = sc.Validate(); err != nil {
			return errors.Wrap(err, "scenario")
		}
	}
	if cfg.Output.Prefix == "" && (cfg.Output.Plots || cfg.Output.CSV || cfg.Output.Summary) {
		return errors.New("output prefix must not be empty")
	}
	return nil
}

// StationAddresses returns the configured stations, or NumStations addresses counting up
// from 00:00:00:00:00:01.
func (cfg *Config) StationAddresses() []MacAddress {
	if len(cfg.Scenario.Stations) > 0 {
		return append([]MacAddress(nil), cfg.Scenario.Stations...)
	}
	ret := make([]MacAddress, 0, cfg.Scenario.NumStations)
	for i := 1; i <= cfg.Scenario.NumStations; i++ {
		ret = append(ret, MacAddressFromUint64(uint64(i)))
	}
	return ret
}

// StatsConfig builds the engine configuration.
func (cfg *Config) StatsConfig() (stats.EngineConfig, error) {
	ec := stats.DefaultEngineConfig()
	std, err := phy.ParseStandard(cfg.Engine.Standard)
	if err != nil {
		return ec, err
	}
	preamble, err := phy.ParsePreamble(cfg.Engine.Preamble)
	if err != nil {
		return ec, err
	}
	watchLevel, err := logger.ParseLevelString(cfg.Engine.WatchLevel)
	if err != nil {
		return ec, err
	}

	ec.Standard = std
	ec.ChannelWidth = cfg.Engine.ChannelWidth
	ec.Preamble = preamble
	ec.FrameSize = cfg.Engine.FrameSize
	if cfg.Engine.InitialPowerDbm != nil {
		ec.InitialPowerDbm = *cfg.Engine.InitialPowerDbm
	}
	ec.InitialRate = cfg.Engine.InitialRate
	if cfg.Trace.Input == "" {
		if ec.InitialPowerDbm, ec.InitialRate, err = cfg.scenarioSeed(); err != nil {
			return ec, err
		}
	}
	ec.Interval = cfg.Interval
	ec.Watch = append([]MacAddress(nil), cfg.Engine.Watch...)
	ec.WatchLevel = watchLevel
	ec.Stations = cfg.StationAddresses()
	return ec, nil
}

// scenarioSeed returns the initial power and rate of the synthetic stations, and fails when
// the engine settings disagree with them.
func (cfg *Config) scenarioSeed() (DbmValue, DataRate, error) {
	sc, err := cfg.ScenarioConfig()
	if err != nil {
		return 0, 0, err
	}
	power, rate, err := sc.InitialLink()
	if err != nil {
		return 0, 0, err
	}
	if p := cfg.Engine.InitialPowerDbm; p != nil && *p != power {
		return 0, 0, errors.Errorf("engine initial power %.1fdBm differs from the scenario's %.1fdBm", *p, power)
	}
	if r := cfg.Engine.InitialRate; r != 0 && r != rate {
		return 0, 0, errors.Errorf("engine initial rate %v differs from the scenario's %v", r, rate)
	}
	return power, rate, nil
}

// ScenarioConfig builds the synthetic producer configuration; PHY settings are shared with
// the engine so both use the same airtime table.
func (cfg *Config) ScenarioConfig() (scenario.Config, error) {
	sc := scenario.DefaultConfig()
	std, err := phy.ParseStandard(cfg.Engine.Standard)
	if err != nil {
		return sc, err
	}
	preamble, err := phy.ParsePreamble(cfg.Engine.Preamble)
	if err != nil {
		return sc, err
	}

	s := cfg.Scenario
	sc.AP = s.AP
	sc.Stations = cfg.StationAddresses()
	sc.Standard = std
	sc.ChannelWidth = cfg.Engine.ChannelWidth
	sc.Preamble = preamble
	sc.PacketSize = s.PacketSize
	sc.OfferedLoad = s.OfferedLoad
	sc.Start = s.Start
	sc.Jitter = s.Jitter
	sc.LossProbability = s.LossProbability
	sc.BusyProbability = s.BusyProbability
	sc.BeaconInterval = s.BeaconInterval
	sc.Manager = normalizeManager(s.Manager)
	sc.ConstantRate = s.ConstantRate
	sc.MaxPowerDbm = s.MaxPowerDbm
	sc.MinPowerDbm = s.MinPowerDbm
	sc.PowerLevels = s.PowerLevels
	sc.StepInterval = s.StepInterval
	return sc, nil
}

// Yaml returns the configuration as YAML.
func (cfg *Config) Yaml() (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
