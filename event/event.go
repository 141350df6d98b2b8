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

// Package event implements the binary encoding of link events, as stored in trace files.
package event

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/stats"
	"github.com/sdnwifi/wifistats/types"
)

type EventType = uint8

const (
	EventTypePowerChanged     EventType = 1
	EventTypeRateChanged      EventType = 2
	EventTypeChannelState     EventType = 3
	EventTypeFrameTransmitted EventType = 4
	EventTypeBytesReceived    EventType = 5
)

// Event header: timestamp (8), type (1), address (6), data length (2). Little endian.
const eventMsgHeaderLen = 17

// HeaderLen is the size of a serialized event header.
const HeaderLen = eventMsgHeaderLen

// PayloadLen returns the payload length announced by a serialized event header.
func PayloadLen(header []byte) int {
	return int(binary.LittleEndian.Uint16(header[15:17]))
}

// Event is one link event at a virtual timestamp. Addr is the destination of power, rate and
// frame events and the source of a receive event; it is unused for channel state events.
type Event struct {
	Timestamp time.Duration
	Type      EventType
	Addr      types.MacAddress

	// Data is the payload of an event type this package does not know.
	Data []byte

	// payload, depends on the event type.
	PowerData   PowerEventData
	RateData    RateEventData
	ChannelData ChannelEventData
	FrameData   FrameEventData
	RxData      RxEventData
}

const powerEventDataLen = 16

type PowerEventData struct {
	OldDbm types.DbmValue
	NewDbm types.DbmValue
}

const rateEventDataLen = 16

type RateEventData struct {
	OldRate types.DataRate
	NewRate types.DataRate
}

const channelEventDataLen = 17

type ChannelEventData struct {
	State    types.ChannelState
	Start    time.Duration
	Duration time.Duration
}

const frameEventDataLen = 1

type FrameEventData struct {
	Kind types.FrameKind
}

const rxEventDataLen = 4

type RxEventData struct {
	Bytes uint32
}

func (e *Event) serializePayload() []byte {
	var p []byte
	switch e.Type {
	case EventTypePowerChanged:
		p = make([]byte, powerEventDataLen)
		binary.LittleEndian.PutUint64(p[0:8], math.Float64bits(e.PowerData.OldDbm))
		binary.LittleEndian.PutUint64(p[8:16], math.Float64bits(e.PowerData.NewDbm))
	case EventTypeRateChanged:
		p = make([]byte, rateEventDataLen)
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.RateData.OldRate))
		binary.LittleEndian.PutUint64(p[8:16], uint64(e.RateData.NewRate))
	case EventTypeChannelState:
		p = make([]byte, channelEventDataLen)
		p[0] = byte(e.ChannelData.State)
		binary.LittleEndian.PutUint64(p[1:9], uint64(e.ChannelData.Start))
		binary.LittleEndian.PutUint64(p[9:17], uint64(e.ChannelData.Duration))
	case EventTypeFrameTransmitted:
		p = make([]byte, frameEventDataLen)
		p[0] = byte(e.FrameData.Kind)
	case EventTypeBytesReceived:
		p = make([]byte, rxEventDataLen)
		binary.LittleEndian.PutUint32(p[0:4], e.RxData.Bytes)
	default:
		p = e.Data
	}
	return p
}

// Serialize serializes this Event into []byte.
func (e *Event) Serialize() []byte {
	payload := e.serializePayload()
	msg := make([]byte, eventMsgHeaderLen+len(payload))
	binary.LittleEndian.PutUint64(msg[0:8], uint64(e.Timestamp))
	msg[8] = e.Type
	copy(msg[9:15], e.Addr[:])
	binary.LittleEndian.PutUint16(msg[15:17], uint16(len(payload)))
	copy(msg[eventMsgHeaderLen:], payload)
	return msg
}

// Deserialize deserializes one Event from data into e. It returns the number of bytes used
// from data, or 0 if data does not contain one entire serialized Event.
func (e *Event) Deserialize(data []byte) (int, error) {
	n := len(data)
	if n < eventMsgHeaderLen {
		return 0, nil
	}
	datalen := int(binary.LittleEndian.Uint16(data[15:17]))
	if datalen > n-eventMsgHeaderLen {
		return 0, nil
	}

	*e = Event{
		Timestamp: time.Duration(binary.LittleEndian.Uint64(data[0:8])),
		Type:      data[8],
	}
	copy(e.Addr[:], data[9:15])
	payload := data[eventMsgHeaderLen : eventMsgHeaderLen+datalen]
	used := eventMsgHeaderLen + datalen

	expectLen := func(l int) error {
		if len(payload) < l {
			return errors.Errorf("event type %d: payload too short (%d < %d)", e.Type, len(payload), l)
		}
		return nil
	}

	switch e.Type {
	case EventTypePowerChanged:
		if err := expectLen(powerEventDataLen); err != nil {
			return used, err
		}
		e.PowerData.OldDbm = math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8]))
		e.PowerData.NewDbm = math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16]))
	case EventTypeRateChanged:
		if err := expectLen(rateEventDataLen); err != nil {
			return used, err
		}
		e.RateData.OldRate = types.DataRate(binary.LittleEndian.Uint64(payload[0:8]))
		e.RateData.NewRate = types.DataRate(binary.LittleEndian.Uint64(payload[8:16]))
	case EventTypeChannelState:
		if err := expectLen(channelEventDataLen); err != nil {
			return used, err
		}
		e.ChannelData.State = types.ChannelState(payload[0])
		e.ChannelData.Start = time.Duration(binary.LittleEndian.Uint64(payload[1:9]))
		e.ChannelData.Duration = time.Duration(binary.LittleEndian.Uint64(payload[9:17]))
	case EventTypeFrameTransmitted:
		if err := expectLen(frameEventDataLen); err != nil {
			return used, err
		}
		e.FrameData.Kind = types.FrameKind(payload[0])
	case EventTypeBytesReceived:
		if err := expectLen(rxEventDataLen); err != nil {
			return used, err
		}
		e.RxData.Bytes = binary.LittleEndian.Uint32(payload[0:4])
	default:
		e.Data = make([]byte, datalen)
		copy(e.Data, payload)
	}
	return used, nil
}

// Dispatch delivers the event to l.
func (e *Event) Dispatch(l stats.Listener) error {
	switch e.Type {
	case EventTypePowerChanged:
		return l.OnPowerChanged(e.Addr, e.PowerData.OldDbm, e.PowerData.NewDbm)
	case EventTypeRateChanged:
		return l.OnRateChanged(e.Addr, e.RateData.OldRate, e.RateData.NewRate)
	case EventTypeChannelState:
		return l.OnChannelState(e.ChannelData.State, e.ChannelData.Start, e.ChannelData.Duration)
	case EventTypeFrameTransmitted:
		return l.OnFrameTransmitted(e.FrameData.Kind, e.Addr)
	case EventTypeBytesReceived:
		return l.OnBytesReceived(e.RxData.Bytes, e.Addr)
	default:
		return errors.Errorf("unknown event type: %d", e.Type)
	}
}

func (e *Event) String() string {
	var s string
	switch e.Type {
	case EventTypePowerChanged:
		s = fmt.Sprintf("power,%s,%.2f->%.2f", e.Addr, e.PowerData.OldDbm, e.PowerData.NewDbm)
	case EventTypeRateChanged:
		s = fmt.Sprintf("rate,%s,%v->%v", e.Addr, e.RateData.OldRate, e.RateData.NewRate)
	case EventTypeChannelState:
		s = fmt.Sprintf("state,%v,start=%v,dur=%v", e.ChannelData.State, e.ChannelData.Start, e.ChannelData.Duration)
	case EventTypeFrameTransmitted:
		s = fmt.Sprintf("tx,%s,%v", e.Addr, e.FrameData.Kind)
	case EventTypeBytesReceived:
		s = fmt.Sprintf("rx,%s,%dB", e.Addr, e.RxData.Bytes)
	default:
		s = fmt.Sprintf("%2d,payl=%s", e.Type, hex.EncodeToString(e.Data))
	}
	return fmt.Sprintf("Ev{%v,%s}", e.Timestamp, s)
}

func NewPowerChanged(ts time.Duration, addr types.MacAddress, oldDbm, newDbm types.DbmValue) *Event {
	return &Event{Timestamp: ts, Type: EventTypePowerChanged, Addr: addr,
		PowerData: PowerEventData{OldDbm: oldDbm, NewDbm: newDbm}}
}

func NewRateChanged(ts time.Duration, addr types.MacAddress, oldRate, newRate types.DataRate) *Event {
	return &Event{Timestamp: ts, Type: EventTypeRateChanged, Addr: addr,
		RateData: RateEventData{OldRate: oldRate, NewRate: newRate}}
}

// NewChannelState creates the event reporting that the channel was in state from start for
// duration. It is delivered at start + duration.
func NewChannelState(state types.ChannelState, start, duration time.Duration) *Event {
	return &Event{Timestamp: start + duration, Type: EventTypeChannelState,
		ChannelData: ChannelEventData{State: state, Start: start, Duration: duration}}
}

func NewFrameTransmitted(ts time.Duration, kind types.FrameKind, dest types.MacAddress) *Event {
	return &Event{Timestamp: ts, Type: EventTypeFrameTransmitted, Addr: dest,
		FrameData: FrameEventData{Kind: kind}}
}

func NewBytesReceived(ts time.Duration, n uint32, src types.MacAddress) *Event {
	return &Event{Timestamp: ts, Type: EventTypeBytesReceived, Addr: src,
		RxData: RxEventData{Bytes: n}}
}
