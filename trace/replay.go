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
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/clock"
	"github.com/sdnwifi/wifistats/event"
	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/stats"
	. "github.com/sdnwifi/wifistats/types"
)

// Source yields events in timestamp order; io.EOF ends it.
type Source interface {
	Next() (*event.Event, error)
}

// Replay delivers the events of src to l at their timestamps. Events are read one at a time,
// each scheduled by the handler of the previous one. Events at or past the stop time of s end
// the replay.
type Replay struct {
	src      Source
	sched    *clock.Scheduler
	listener stats.Listener
	count    int
	done     bool
}

func NewReplay(src Source, s *clock.Scheduler, l stats.Listener) *Replay {
	return &Replay{
		src:      src,
		sched:    s,
		listener: l,
	}
}

// Start schedules the first event.
func (rp *Replay) Start() error {
	return rp.scheduleNext()
}

func (rp *Replay) scheduleNext() error {
	ev, err := rp.src.Next()
	if err == io.EOF {
		logger.Infof("replay finished: %d events", rp.count)
		rp.done = true
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "read event %d", rp.count)
	}
	if ev.Timestamp < rp.sched.Now() {
		return errors.Errorf("event %d out of order: %v < %v", rp.count, ev.Timestamp, rp.sched.Now())
	}

	err = rp.sched.ScheduleAt(ev.Timestamp, clock.PriorityNormal, func() error {
		rp.count++
		if err := ev.Dispatch(rp.listener); err != nil {
			return errors.Wrapf(err, "%v", ev)
		}
		return rp.scheduleNext()
	})
	if errors.Is(err, clock.ErrClockStopped) {
		logger.Infof("replay stopped at %v: %d events", ev.Timestamp, rp.count)
		rp.done = true
		return nil
	}
	return err
}

// Count returns the number of events delivered.
func (rp *Replay) Count() int {
	return rp.count
}

// Done reports whether the source is exhausted or the clock refused the next event.
func (rp *Replay) Done() bool {
	return rp.done
}

// SliceSource yields the events of a slice.
type SliceSource struct {
	events []*event.Event
}

func NewSliceSource(evs []*event.Event) *SliceSource {
	return &SliceSource{events: evs}
}

func (ss *SliceSource) Next() (*event.Event, error) {
	if len(ss.events) == 0 {
		return nil, io.EOF
	}
	ev := ss.events[0]
	ss.events = ss.events[1:]
	return ev, nil
}

// Clock provides the virtual time at which recorded events happen.
type Clock interface {
	Now() time.Duration
}

// Recorder is a stats.Listener that appends every event to a trace file before forwarding it.
type Recorder struct {
	file  File
	clock Clock
	next  stats.Listener
}

// NewRecorder records to f the events delivered to next. A nil next only records.
func NewRecorder(f File, clk Clock, next stats.Listener) *Recorder {
	return &Recorder{
		file:  f,
		clock: clk,
		next:  next,
	}
}

func (r *Recorder) record(ev *event.Event) error {
	return errors.Wrap(r.file.AppendEvent(ev), "record trace")
}

func (r *Recorder) OnPowerChanged(addr MacAddress, oldPower, newPower DbmValue) error {
	if err := r.record(event.NewPowerChanged(r.clock.Now(), addr, oldPower, newPower)); err != nil {
		return err
	}
	if r.next == nil {
		return nil
	}
	return r.next.OnPowerChanged(addr, oldPower, newPower)
}

func (r *Recorder) OnRateChanged(addr MacAddress, oldRate, newRate DataRate) error {
	if err := r.record(event.NewRateChanged(r.clock.Now(), addr, oldRate, newRate)); err != nil {
		return err
	}
	if r.next == nil {
		return nil
	}
	return r.next.OnRateChanged(addr, oldRate, newRate)
}

func (r *Recorder) OnChannelState(state ChannelState, start time.Duration, duration time.Duration) error {
	ev := event.NewChannelState(state, start, duration)
	ev.Timestamp = r.clock.Now()
	if err := r.record(ev); err != nil {
		return err
	}
	if r.next == nil {
		return nil
	}
	return r.next.OnChannelState(state, start, duration)
}

func (r *Recorder) OnFrameTransmitted(kind FrameKind, dest MacAddress) error {
	if err := r.record(event.NewFrameTransmitted(r.clock.Now(), kind, dest)); err != nil {
		return err
	}
	if r.next == nil {
		return nil
	}
	return r.next.OnFrameTransmitted(kind, dest)
}

func (r *Recorder) OnBytesReceived(n uint32, src MacAddress) error {
	if err := r.record(event.NewBytesReceived(r.clock.Now(), n, src)); err != nil {
		return err
	}
	if r.next == nil {
		return nil
	}
	return r.next.OnBytesReceived(n, src)
}

func (r *Recorder) Close() error {
	return r.file.Close()
}
