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

// Package clock implements the virtual-time discrete-event scheduler that delivers link events
// and reporting ticks serially.
package clock

import (
	"container/heap"
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/logger"
)

// Ever is the timestamp of "never".
const Ever time.Duration = math.MaxInt64

// ErrClockStopped is returned when scheduling on a stopped clock or past its stop time.
// For a periodic task it is the normal end of the series.
var ErrClockStopped = errors.New("clock stopped")

// Scheduler runs events in virtual-time order. It is not safe for concurrent use; all
// handlers run on the goroutine calling Run, Go or Step.
type Scheduler struct {
	q        eventQueue
	now      time.Duration
	seq      uint64
	stopTime time.Duration
	stopped  bool
	executed uint64
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		q:        eventQueue{},
		stopTime: Ever,
	}
	heap.Init(&s.q)
	return s
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Schedule runs fn after delay with normal priority.
func (s *Scheduler) Schedule(delay time.Duration, fn Handler) error {
	return s.ScheduleAt(s.now+delay, PriorityNormal, fn)
}

// ScheduleTick runs fn after delay with tick priority.
func (s *Scheduler) ScheduleTick(delay time.Duration, fn Handler) error {
	return s.ScheduleAt(s.now+delay, PriorityTick, fn)
}

// ScheduleAt runs fn at virtual time ts. Events at or after the stop time are refused with
// ErrClockStopped.
func (s *Scheduler) ScheduleAt(ts time.Duration, prio Priority, fn Handler) error {
	if s.stopped {
		return ErrClockStopped
	}
	if ts < s.now {
		return errors.Errorf("can not schedule in the past: %v < %v", ts, s.now)
	}
	if ts >= s.stopTime {
		return errors.Wrapf(ErrClockStopped, "event at %v, stop time %v", ts, s.stopTime)
	}
	logger.AssertNotNil(fn)

	s.seq++
	heap.Push(&s.q, &event{
		Timestamp: ts,
		Priority:  prio,
		Seq:       s.seq,
		Fn:        fn,
	})
	return nil
}

// SetStopTime ends the run at virtual time ts. Pending events at or after ts are dropped.
func (s *Scheduler) SetStopTime(ts time.Duration) {
	s.stopTime = ts
	kept := s.q[:0]
	for _, e := range s.q {
		if e.Timestamp < ts {
			e.index = len(kept)
			kept = append(kept, e)
		}
	}
	s.q = kept
	heap.Init(&s.q)
}

func (s *Scheduler) StopTime() time.Duration {
	return s.stopTime
}

// Stop halts the clock. Pending events are discarded and later Schedule calls fail.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	logger.Debugf("clock stopped at %v, %d events discarded", s.now, len(s.q))
	s.q = s.q[:0]
}

func (s *Scheduler) Stopped() bool {
	return s.stopped
}

// Pending returns the number of scheduled events.
func (s *Scheduler) Pending() int {
	return len(s.q)
}

// Executed returns the number of events run so far.
func (s *Scheduler) Executed() uint64 {
	return s.executed
}

// NextTimestamp returns the timestamp of the next event, or Ever.
func (s *Scheduler) NextTimestamp() time.Duration {
	if len(s.q) == 0 {
		return Ever
	}
	return s.q[0].Timestamp
}

// Step runs the next event. It returns false when no event is pending.
func (s *Scheduler) Step() (bool, error) {
	if len(s.q) == 0 || s.stopped {
		return false, nil
	}
	e := heap.Pop(&s.q).(*event)
	logger.AssertTrue(e.Timestamp >= s.now)
	s.now = e.Timestamp
	s.executed++
	if err := e.Fn(); err != nil {
		return true, errors.Wrapf(err, "event at %v", e.Timestamp)
	}
	return true, nil
}

// Run runs events until none is pending, the clock stops, ctx is done or a handler fails.
// On a normal end the clock advances to the stop time, if one is set.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.runUntil(ctx, Ever); err != nil {
		return err
	}
	if !s.stopped && s.stopTime != Ever && s.stopTime > s.now {
		s.now = s.stopTime
	}
	return nil
}

// Go runs the events of the next duration of virtual time and advances the clock by duration,
// bounded by the stop time.
func (s *Scheduler) Go(ctx context.Context, duration time.Duration) error {
	if duration < 0 {
		return errors.Errorf("invalid duration: %v", duration)
	}
	end := s.now + duration
	if duration == Ever || end < s.now {
		end = Ever
	}
	if err := s.runUntil(ctx, end); err != nil {
		return err
	}
	if end > s.stopTime {
		end = s.stopTime
	}
	if !s.stopped && end != Ever && end > s.now {
		s.now = end
	}
	return nil
}

func (s *Scheduler) runUntil(ctx context.Context, end time.Duration) error {
	for len(s.q) > 0 && !s.stopped && s.q[0].Timestamp <= end {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}
