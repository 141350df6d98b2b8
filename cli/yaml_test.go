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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/sdnwifi/wifistats/stats"
)

func TestOutputItemsAsYaml(t *testing.T) {
	var buf bytes.Buffer
	cc := &CommandContext{output: &buf}
	cc.outputItemsAsYaml(stats.SampleSet{Index: 2, Time: 2 * time.Second, Interval: time.Second, Throughput: 1.5, Idle: 80, Busy: 20})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{index: 2, "), out)
	assert.True(t, strings.HasSuffix(out, "}\n"), out)
	assert.NotContains(t, out, "\nindex:")
	assert.Contains(t, out, "time: 2s")
	assert.Contains(t, out, "throughput: 1.5")

	var ss stats.SampleSet
	assert.Nil(t, yaml.Unmarshal(buf.Bytes(), &ss))
	assert.Equal(t, 2*time.Second, ss.Time)
	assert.Equal(t, 20.0, ss.Busy)
}

func TestOutputTotalsAsYaml(t *testing.T) {
	var buf bytes.Buffer
	cc := &CommandContext{output: &buf}
	cc.outputItemsAsYaml(stats.Totals{BusyTime: 500 * time.Millisecond, RxBytes: 1000, Ticks: 3})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, "busy_time: 500ms")
	assert.Contains(t, out, "rx_bytes: 1000")
	assert.Contains(t, out, "ticks: 3")
}

func TestOutputListAsYaml(t *testing.T) {
	var buf bytes.Buffer
	cc := &CommandContext{output: &buf}
	cc.outputItemsAsYaml([]stats.Sample{{Time: 1, Value: 2.5}, {Time: 2, Value: 3}})

	assert.Equal(t, "- {t: 1, v: 2.5}\n- {t: 2, v: 3}\n", buf.String())
}
