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

package wifistats_main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnwifi/wifistats/config"
	"github.com/sdnwifi/wifistats/progctx"
	. "github.com/sdnwifi/wifistats/types"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestBuildConfigDefaults(t *testing.T) {
	args, set, err := parseArgs(newFlagSet(), nil)
	require.Nil(t, err)
	assert.Empty(t, set)

	cfg, err := buildConfig(args, set)
	require.Nil(t, err)
	def := config.DefaultConfig()
	assert.Equal(t, def.Duration, cfg.Duration)
	assert.Equal(t, def.Output, cfg.Output)
	assert.Equal(t, "default", cfg.LogLevel)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "exp.yaml")
	require.Nil(t, os.WriteFile(fn, []byte("duration: 20s\nseed: 9\noutput:\n  prefix: fromfile\n  plots: true\n"), 0o644))

	args, set, err := parseArgs(newFlagSet(), []string{
		"-config", fn, "-duration", "30s", "-max-power", "16", "-power-levels", "17",
		"-manager", "ns3::ParfWifiManager", "-load", "6Mbps", "-no-plots", "-otel", "stdout",
	})
	require.Nil(t, err)
	assert.True(t, set["duration"])
	assert.False(t, set["seed"])

	cfg, err := buildConfig(args, set)
	require.Nil(t, err)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "fromfile", cfg.Output.Prefix)
	assert.False(t, cfg.Output.Plots)
	assert.Equal(t, 16.0, cfg.Scenario.MaxPowerDbm)
	assert.Equal(t, uint32(17), cfg.Scenario.PowerLevels)
	assert.Equal(t, 6*Mbps, cfg.Scenario.OfferedLoad)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
}

func TestBuildConfigErrors(t *testing.T) {
	_, _, err := parseArgs(newFlagSet(), []string{"-nosuchflag"})
	assert.NotNil(t, err)

	args, set, err := parseArgs(newFlagSet(), []string{"-config", "/nonexistent/exp.yaml"})
	require.Nil(t, err)
	_, err = buildConfig(args, set)
	assert.NotNil(t, err)

	args, set, err = parseArgs(newFlagSet(), []string{"-load", "fast"})
	require.Nil(t, err)
	_, err = buildConfig(args, set)
	assert.NotNil(t, err)

	args, set, err = parseArgs(newFlagSet(), []string{"-duration", "0s"})
	require.Nil(t, err)
	_, err = buildConfig(args, set)
	assert.NotNil(t, err)
}

func TestMainBatch(t *testing.T) {
	dir := t.TempDir()
	ctx := progctx.New(context.Background())
	err := Main(ctx, []string{"-batch", "-duration", "3s", "-seed", "5", "-output", dir, "-prefix", "batch", "-csv"}, nil)
	require.Nil(t, err)
	assert.NotNil(t, ctx.Err())

	for _, name := range []string{"throughput-batch-0.plt", "stats-batch.csv", "summary-batch.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.Nil(t, err, name)
	}
}
