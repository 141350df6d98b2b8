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

package clock

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSchedulerOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	add := func(name string) Handler {
		return func() error {
			order = append(order, name)
			return nil
		}
	}

	assert.Nil(t, s.ScheduleTick(time.Second, add("tick1")))
	assert.Nil(t, s.Schedule(time.Second, add("ev1")))
	assert.Nil(t, s.Schedule(500*time.Millisecond, add("ev0")))
	assert.Nil(t, s.Schedule(time.Second, add("ev2")))
	assert.Equal(t, 4, s.Pending())
	assert.Equal(t, 500*time.Millisecond, s.NextTimestamp())

	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, []string{"ev0", "ev1", "ev2", "tick1"}, order)
	assert.Equal(t, time.Second, s.Now())
	assert.Equal(t, uint64(4), s.Executed())
	assert.Equal(t, Ever, s.NextTimestamp())
}

func TestSchedulerStopTime(t *testing.T) {
	s := NewScheduler()
	ticks := 0
	var tick Handler
	tick = func() error {
		ticks++
		err := s.ScheduleTick(time.Second, tick)
		if errors.Is(err, ErrClockStopped) {
			return nil
		}
		return err
	}
	s.SetStopTime(10 * time.Second)
	assert.Nil(t, tick())
	assert.Nil(t, s.Run(context.Background()))
	// first tick at 0, then 1..9
	assert.Equal(t, 10, ticks)
	assert.Equal(t, 10*time.Second, s.Now())

	err := s.Schedule(0, func() error { return nil })
	assert.True(t, errors.Is(err, ErrClockStopped))
}

func TestSchedulerSetStopTimeDropsEvents(t *testing.T) {
	s := NewScheduler()
	ran := 0
	for i := 1; i <= 5; i++ {
		assert.Nil(t, s.Schedule(time.Duration(i)*time.Second, func() error {
			ran++
			return nil
		}))
	}
	s.SetStopTime(3 * time.Second)
	assert.Equal(t, 2, s.Pending())
	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, 2, ran)
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler()
	ran := 0
	assert.Nil(t, s.Schedule(time.Second, func() error {
		ran++
		s.Stop()
		return nil
	}))
	assert.Nil(t, s.Schedule(2*time.Second, func() error {
		ran++
		return nil
	}))
	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, 1, ran)
	assert.True(t, s.Stopped())
	assert.Equal(t, time.Second, s.Now())
	assert.Equal(t, ErrClockStopped, s.Schedule(0, func() error { return nil }))
}

func TestSchedulerHandlerError(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")
	assert.Nil(t, s.Schedule(time.Second, func() error { return boom }))
	assert.Nil(t, s.Schedule(2*time.Second, func() error { return nil }))
	err := s.Run(context.Background())
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, s.Pending())
}

func TestSchedulerGo(t *testing.T) {
	s := NewScheduler()
	ran := 0
	for i := 1; i <= 5; i++ {
		assert.Nil(t, s.Schedule(time.Duration(i)*time.Second, func() error {
			ran++
			return nil
		}))
	}
	assert.Nil(t, s.Go(context.Background(), 2500*time.Millisecond))
	assert.Equal(t, 2, ran)
	assert.Equal(t, 2500*time.Millisecond, s.Now())

	assert.Nil(t, s.Go(context.Background(), 500*time.Millisecond))
	assert.Equal(t, 3, ran)
	assert.Equal(t, 3*time.Second, s.Now())

	s.SetStopTime(4500 * time.Millisecond)
	assert.Equal(t, 1, s.Pending())
	assert.Nil(t, s.Go(context.Background(), time.Hour))
	assert.Equal(t, 4, ran)
	assert.Equal(t, 4500*time.Millisecond, s.Now())

	assert.NotNil(t, s.Go(context.Background(), -time.Second))
}

func TestSchedulerCanceled(t *testing.T) {
	s := NewScheduler()
	assert.Nil(t, s.Schedule(time.Second, func() error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, s.Run(ctx))
	assert.Equal(t, 1, s.Pending())
}

func TestSchedulerPast(t *testing.T) {
	s := NewScheduler()
	assert.Nil(t, s.Go(context.Background(), time.Second))
	assert.NotNil(t, s.ScheduleAt(500*time.Millisecond, PriorityNormal, func() error { return nil }))
	assert.NotNil(t, s.Schedule(-time.Millisecond, func() error { return nil }))
}
