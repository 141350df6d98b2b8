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

package trace

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/event"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

var sta = MustParseMacAddress("00:00:00:00:00:01")

func getFileSize(t *testing.T, fn string) int {
	fi, err := os.Stat(fn)
	require.Nil(t, err)
	return int(fi.Size())
}

func testEvents() []*event.Event {
	return []*event.Event{
		event.NewRateChanged(100*time.Millisecond, sta, 6*Mbps, 54*Mbps),
		event.NewChannelState(ChannelIdle, 0, 300*time.Millisecond),
		event.NewFrameTransmitted(400*time.Millisecond, FrameData, sta),
		event.NewChannelState(ChannelTx, 400*time.Millisecond, 232*time.Microsecond),
		event.NewBytesReceived(700*time.Millisecond, 125000, sta),
		event.NewBytesReceived(1500*time.Millisecond, 1420, sta),
	}
}

func TestTraceFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "test.trace")
	f, err := NewFile(fn, 1420)
	require.Nil(t, err)
	assert.Equal(t, traceFileHeaderSize, getFileSize(t, fn))

	size := traceFileHeaderSize
	for _, ev := range testEvents() {
		require.Nil(t, f.AppendEvent(ev))
		require.Nil(t, f.Sync())
		size += len(ev.Serialize())
		assert.Equal(t, size, getFileSize(t, fn))
	}
	require.Nil(t, f.Close())

	r, err := Open(fn)
	require.Nil(t, err)
	defer r.Close()
	assert.Equal(t, uint32(1420), r.FrameSize())
	evs, err := r.ReadAll()
	assert.Nil(t, err)
	assert.Equal(t, testEvents(), evs)
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("short")))
	assert.NotNil(t, err)
	_, err = NewReader(bytes.NewReader(make([]byte, traceFileHeaderSize)))
	assert.NotNil(t, err)

	fn := filepath.Join(t.TempDir(), "trunc.trace")
	f, err := NewFile(fn, 0)
	require.Nil(t, err)
	require.Nil(t, f.AppendEvent(testEvents()[0]))
	require.Nil(t, f.Close())
	data, err := os.ReadFile(fn)
	require.Nil(t, err)

	r, err := NewReader(bytes.NewReader(data[:len(data)-3]))
	require.Nil(t, err)
	_, err = r.Next()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReplayIntoEngine(t *testing.T) {
	s := clock.NewScheduler()
	s.SetStopTime(time.Second)
	cfg := stats.DefaultEngineConfig()
	cfg.Stations = []MacAddress{sta}
	e, err := stats.NewEngine(cfg, s)
	require.Nil(t, err)
	require.Nil(t, e.Start())

	rp := NewReplay(NewSliceSource(testEvents()), s, e)
	require.Nil(t, rp.Start())
	require.Nil(t, s.Run(context.Background()))
	assert.True(t, rp.Done())
	// the receive at 1.5s is past the stop time.
	assert.Equal(t, 5, rp.Count())

	r, err := e.CurrentRate(sta)
	assert.Nil(t, err)
	assert.Equal(t, 54*Mbps, r)
	assert.Equal(t, uint64(125000), e.Totals().RxBytes)
	assert.Equal(t, uint64(1), e.Totals().Tx.DataFrames)
}

func TestReplayOutOfOrder(t *testing.T) {
	s := clock.NewScheduler()
	evs := []*event.Event{
		event.NewBytesReceived(time.Second, 1, sta),
		event.NewBytesReceived(time.Millisecond, 1, sta),
	}
	rp := NewReplay(NewSliceSource(evs), s, &nopListener{})
	require.Nil(t, rp.Start())
	assert.NotNil(t, s.Run(context.Background()))
}

func TestReplayContractViolation(t *testing.T) {
	s := clock.NewScheduler()
	e, err := stats.NewEngine(stats.DefaultEngineConfig(), s)
	require.Nil(t, err)
	evs := []*event.Event{
		event.NewFrameTransmitted(time.Millisecond, FrameData, sta),
	}
	rp := NewReplay(NewSliceSource(evs), s, e)
	require.Nil(t, rp.Start())
	err = s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrUnknownDestination))
}

type nopListener struct {
	n int
}

func (l *nopListener) OnPowerChanged(addr MacAddress, oldPower, newPower DbmValue) error {
	l.n++
	return nil
}

func (l *nopListener) OnRateChanged(addr MacAddress, oldRate, newRate DataRate) error {
	l.n++
	return nil
}

func (l *nopListener) OnChannelState(state ChannelState, start time.Duration, duration time.Duration) error {
	l.n++
	return nil
}

func (l *nopListener) OnFrameTransmitted(kind FrameKind, dest MacAddress) error {
	l.n++
	return nil
}

func (l *nopListener) OnBytesReceived(n uint32, src MacAddress) error {
	l.n++
	return nil
}

func TestRecorderRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "rec.trace")
	f, err := NewFile(fn, 1420)
	require.Nil(t, err)

	s := clock.NewScheduler()
	next := &nopListener{}
	rec := NewRecorder(f, s, next)
	require.Nil(t, s.Schedule(time.Second, func() error {
		if err := rec.OnRateChanged(sta, 6*Mbps, 12*Mbps); err != nil {
			return err
		}
		if err := rec.OnChannelState(ChannelRx, 900*time.Millisecond, 100*time.Millisecond); err != nil {
			return err
		}
		return rec.OnBytesReceived(1420, sta)
	}))
	require.Nil(t, s.Run(context.Background()))
	require.Nil(t, rec.Close())
	assert.Equal(t, 3, next.n)

	r, err := Open(fn)
	require.Nil(t, err)
	defer r.Close()
	evs, err := r.ReadAll()
	require.Nil(t, err)
	require.Equal(t, 3, len(evs))
	for _, ev := range evs {
		assert.Equal(t, time.Second, ev.Timestamp)
	}
	assert.Equal(t, 12*Mbps, evs[0].RateData.NewRate)
	assert.Equal(t, ChannelRx, evs[1].ChannelData.State)
	assert.Equal(t, uint32(1420), evs[2].RxData.Bytes)
}
