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

package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/sdnwifi/wifistats/energy"
	"github.com/sdnwifi/wifistats/stats"
)

func startServer(t *testing.T, store *Store, command CommandFunc) *Client {
	lis := bufconn.Listen(1 << 20)
	srv := NewServer("bufnet", store, command)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	c, err := Dial("bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.Nil(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sample(i int) stats.SampleSet {
	return stats.SampleSet{
		Index:      i,
		Time:       time.Duration(i) * time.Second,
		Interval:   time.Second,
		Throughput: float64(i) * 1.5,
		Power:      50.0,
		Idle:       70,
		Busy:       10,
		Tx:         15,
		Rx:         5,
	}
}

func TestStoreSubscribe(t *testing.T) {
	st := NewStore(nil)
	_, ok := st.Latest()
	assert.False(t, ok)

	ch, cancel := st.Subscribe()
	st.OnSample(sample(0))
	st.OnSample(sample(1))
	assert.Equal(t, sample(0), <-ch)
	assert.Equal(t, sample(1), <-ch)
	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()

	st.Close()
	ch, _ = st.Subscribe()
	_, open = <-ch
	assert.False(t, open)

	latest, ok := st.Latest()
	assert.True(t, ok)
	assert.Equal(t, 1, latest.Index)
	assert.Equal(t, []stats.Sample{{Time: 0, Value: 0}, {Time: 1, Value: 1.5}}, st.Series(stats.MetricThroughput))
}

func TestLatestAndSeries(t *testing.T) {
	st := NewStore(nil)
	c := startServer(t, st, nil)
	ctx := context.Background()

	_, err := c.Latest(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))

	for i := 0; i < 3; i++ {
		st.OnSample(sample(i))
	}
	ss, err := c.Latest(ctx)
	require.Nil(t, err)
	assert.Equal(t, sample(2), ss)

	series, err := c.Series(ctx, stats.MetricThroughput)
	require.Nil(t, err)
	assert.Equal(t, []stats.Sample{{Time: 0, Value: 0}, {Time: 1, Value: 1.5}, {Time: 2, Value: 3}}, series)

	series, err = c.Series(ctx, stats.MetricIdle)
	require.Nil(t, err)
	assert.Equal(t, 3, len(series))
	assert.Equal(t, 70.0, series[2].Value)
}

func TestTotals(t *testing.T) {
	totals := stats.Totals{
		Channel:   energy.ChannelTimes{Idle: 7 * time.Second, Busy: time.Second, Tx: 1500 * time.Millisecond, Rx: 500 * time.Millisecond},
		BusyTime:  1500 * time.Millisecond,
		Tx:        energy.TxTotals{Energy: 12.5, TxTime: 1500 * time.Millisecond, DataFrames: 1000, OtherFrames: 98},
		RxBytes:   1420000,
		RxPackets: 1000,
		Ticks:     10,
	}
	st := NewStore(func() stats.Totals { return totals })
	c := startServer(t, st, nil)

	got, err := c.Totals(context.Background())
	require.Nil(t, err)
	assert.Equal(t, stats.Totals{}, got)

	st.OnSample(sample(0))
	got, err = c.Totals(context.Background())
	require.Nil(t, err)
	assert.Equal(t, totals, got)
}

func TestCommand(t *testing.T) {
	c := startServer(t, NewStore(nil), func(cmd string) ([]string, error) {
		if cmd == "fail" {
			return nil, errors.New("bad command")
		}
		return []string{"echo", cmd}, nil
	})
	ctx := context.Background()

	out, err := c.Command(ctx, " totals ")
	require.Nil(t, err)
	assert.Equal(t, []string{"echo", "totals"}, out)

	_, err = c.Command(ctx, "fail")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	c2 := startServer(t, NewStore(nil), nil)
	_, err = c2.Command(ctx, "totals")
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestSeriesUnknownMetric(t *testing.T) {
	c := startServer(t, NewStore(nil), nil)
	_, err := c.Series(context.Background(), stats.Metric(42))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func (st *Store) subscribers() int {
	st.Lock()
	defer st.Unlock()
	return len(st.subs)
}

func TestWatch(t *testing.T) {
	st := NewStore(nil)
	c := startServer(t, st, nil)

	var got []stats.SampleSet
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(context.Background(), func(ss stats.SampleSet) error {
			got = append(got, ss)
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return st.subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	for i := 0; i < 5; i++ {
		st.OnSample(sample(i))
	}
	st.Close()

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not finish")
	}
	require.Equal(t, 5, len(got))
	assert.Equal(t, sample(4), got[4])
}
