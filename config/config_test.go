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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/phy"
	"github.com/sdnwifi/wifistats/scenario"
	. "github.com/sdnwifi/wifistats/types"
)

func writeFile(t *testing.T, name string, content string) string {
	fn := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.Validate())
	assert.Equal(t, 100*time.Second, cfg.Duration)
	assert.Equal(t, "parf", cfg.Output.Prefix)

	ec, err := cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, phy.Standard80211a, ec.Standard)
	assert.Equal(t, uint32(1420), ec.FrameSize)
	assert.Equal(t, 17.0, ec.InitialPowerDbm)
	assert.Equal(t, []MacAddress{MustParseMacAddress("00:00:00:00:00:01")}, ec.Stations)
	assert.Equal(t, logger.InfoLevel, ec.WatchLevel)

	sc, err := cfg.ScenarioConfig()
	require.Nil(t, err)
	assert.Equal(t, scenario.ManagerStep, sc.Manager)
	assert.Equal(t, uint32(18), sc.PowerLevels)
	assert.Nil(t, sc.Validate())
}

const testYaml = `
duration: 20s
interval: 500ms
seed: 7
engine:
  standard: 802.11b
  preamble: short
  initial_rate: 1Mbps
  watch: ["00:00:00:00:00:02"]
scenario:
  stations: ["00:00:00:00:00:02", "00:00:00:00:00:03"]
  offered_load: 2Mbps
  manager: ns3::ConstantRateWifiManager
  constant_rate: 5.5Mbps
output:
  prefix: aparf
  csv: true
`

func TestLoadYaml(t *testing.T) {
	cfg, err := Load(writeFile(t, "exp.yaml", testYaml))
	require.Nil(t, err)
	require.Nil(t, cfg.Validate())

	assert.Equal(t, 20*time.Second, cfg.Duration)
	assert.Equal(t, 500*time.Millisecond, cfg.Interval)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "aparf", cfg.Output.Prefix)
	assert.True(t, cfg.Output.CSV)
	assert.True(t, cfg.Output.Plots)

	ec, err := cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, phy.Standard80211b, ec.Standard)
	assert.Equal(t, phy.PreambleShort, ec.Preamble)
	assert.Equal(t, 1*Mbps, ec.InitialRate)
	assert.Equal(t, 17.0, ec.InitialPowerDbm)
	assert.Equal(t, 500*time.Millisecond, ec.Interval)
	assert.Equal(t, 2, len(ec.Stations))
	assert.Equal(t, []MacAddress{MustParseMacAddress("00:00:00:00:00:02")}, ec.Watch)

	sc, err := cfg.ScenarioConfig()
	require.Nil(t, err)
	assert.Equal(t, scenario.ManagerConstant, sc.Manager)
	assert.Equal(t, 5500*Kbps, sc.ConstantRate)
	assert.Equal(t, 2*Mbps, sc.OfferedLoad)
}

const testToml = `
duration = "30s"
log_level = "debug"
metrics_addr = ":9100"

[engine]
frame_size = 1000

[scenario]
num_stations = 3
max_power_dbm = 20.0
power_levels = 5

[tracing]
enabled = true
exporter = "otlp"
`

func TestLoadToml(t *testing.T) {
	cfg, err := Load(writeFile(t, "exp.toml", testToml))
	require.Nil(t, err)
	require.Nil(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, uint32(1000), cfg.Engine.FrameSize)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, "wifistats", cfg.Tracing.ServiceName)

	stas := cfg.StationAddresses()
	assert.Equal(t, 3, len(stas))
	assert.Equal(t, MustParseMacAddress("00:00:00:00:00:03"), stas[2])

	ec, err := cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, 20.0, ec.InitialPowerDbm)
	assert.Equal(t, 6*Mbps, ec.InitialRate)

	sc, err := cfg.ScenarioConfig()
	require.Nil(t, err)
	assert.Equal(t, 20.0, sc.MaxPowerDbm)
	assert.Equal(t, uint32(5), sc.PowerLevels)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "exp.json", "{}"))
	assert.NotNil(t, err)

	_, err = Load(writeFile(t, "exp.yaml", "durashun: 3s\n"))
	assert.NotNil(t, err)

	_, err = Load(writeFile(t, "exp.toml", "[engine]\nstandart = \"a\"\n"))
	assert.NotNil(t, err)

	_, err = Load(writeFile(t, "exp.yaml", "engine:\n  initial_rate: fast\n"))
	assert.NotNil(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)

	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.Nil(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 0
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Engine.Standard = "80211ac"
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scenario.Manager = "minstrel"
	assert.NotNil(t, cfg.Validate())

	cfg.Trace.Input = "run.wtr"
	assert.Nil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LogLevel = "loud"
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Output.Prefix = ""
	assert.NotNil(t, cfg.Validate())
}

func TestEngineSeedFollowsScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenario.MaxPowerDbm = 20
	ec, err := cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, 20.0, ec.InitialPowerDbm)
	assert.Equal(t, 6*Mbps, ec.InitialRate)

	power := DbmValue(20)
	cfg.Engine.InitialPowerDbm = &power
	cfg.Engine.InitialRate = 6 * Mbps
	assert.Nil(t, cfg.Validate())

	power = 17
	assert.NotNil(t, cfg.Validate())

	power = 20
	cfg.Engine.InitialRate = 54 * Mbps
	assert.NotNil(t, cfg.Validate())

	// a replayed trace is seeded from the engine settings alone
	cfg.Trace.Input = "run.wtr"
	power = 12
	require.Nil(t, cfg.Validate())
	ec, err = cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, 12.0, ec.InitialPowerDbm)
	assert.Equal(t, 54*Mbps, ec.InitialRate)

	cfg = DefaultConfig()
	cfg.Engine.Standard = "b"
	ec, err = cfg.StatsConfig()
	require.Nil(t, err)
	assert.Equal(t, 1*Mbps, ec.InitialRate)
}

func TestYamlRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenario.Stations = []MacAddress{MustParseMacAddress("02:00:00:00:00:01")}
	power := DbmValue(15)
	cfg.Engine.InitialPowerDbm = &power
	cfg.Engine.InitialRate = 54 * Mbps
	text, err := cfg.Yaml()
	require.Nil(t, err)
	assert.Contains(t, text, "02:00:00:00:00:01")
	assert.Contains(t, text, "54Mbps")

	loaded, err := Load(writeFile(t, "rt.yaml", text))
	require.Nil(t, err)
	assert.Equal(t, cfg, loaded)
}
