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

package event

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sdnwifi/wifistats/types"
)

var sta = types.MustParseMacAddress("00:00:00:00:00:01")

func TestDeserializeBytesReceivedEvent(t *testing.T) {
	data, _ := hex.DecodeString("00ca9a3b0000000005000000000001040048e80100")
	var ev Event
	n, err := ev.Deserialize(data)
	assert.Nil(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, time.Second, ev.Timestamp)
	assert.Equal(t, EventTypeBytesReceived, ev.Type)
	assert.Equal(t, sta, ev.Addr)
	assert.Equal(t, uint32(125000), ev.RxData.Bytes)
}

func TestSerializeBytesReceivedEvent(t *testing.T) {
	ev := NewBytesReceived(time.Second, 125000, sta)
	assert.Equal(t, "00ca9a3b0000000005000000000001040048e80100", hex.EncodeToString(ev.Serialize()))
}

func TestSerializeFrameTransmittedEvent(t *testing.T) {
	ev := NewFrameTransmitted(time.Second, types.FrameData, sta)
	data := ev.Serialize()
	assert.Equal(t, "00ca9a3b0000000004000000000001010002", hex.EncodeToString(data))

	var dec Event
	n, err := dec.Deserialize(data)
	assert.Nil(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, types.FrameData, dec.FrameData.Kind)
	assert.Equal(t, "Ev{1s,tx,00:00:00:00:00:01,data}", dec.String())
}

func TestDeserializeIncomplete(t *testing.T) {
	data := NewChannelState(types.ChannelBusy, time.Millisecond, 2*time.Millisecond).Serialize()
	var ev Event
	for i := 0; i < len(data); i++ {
		n, err := ev.Deserialize(data[:i])
		assert.Nil(t, err)
		assert.Equal(t, 0, n)
	}
}

func TestDeserializeShortPayload(t *testing.T) {
	data, _ := hex.DecodeString("00ca9a3b00000000050000000000010200e801")
	var ev Event
	n, err := ev.Deserialize(data)
	assert.NotNil(t, err)
	assert.Equal(t, len(data), n)
}

func TestDeserializeMultiple(t *testing.T) {
	evs := []*Event{
		NewPowerChanged(0, sta, 0, 17.5),
		NewRateChanged(time.Millisecond, types.BroadcastAddress, 6*types.Mbps, 54*types.Mbps),
		NewChannelState(types.ChannelIdle, time.Millisecond, 300*time.Microsecond),
		NewFrameTransmitted(2*time.Millisecond, types.FrameData, sta),
		NewBytesReceived(3*time.Millisecond, 1420, sta),
		{Timestamp: 4 * time.Millisecond, Type: 99, Data: []byte{1, 2, 3}},
	}
	var data []byte
	for _, ev := range evs {
		data = append(data, ev.Serialize()...)
	}

	for _, expected := range evs {
		var ev Event
		n, err := ev.Deserialize(data)
		assert.Nil(t, err)
		assert.True(t, n > 0)
		assert.Equal(t, *expected, ev)
		data = data[n:]
	}
	assert.Equal(t, 0, len(data))
}

func TestChannelStateTimestamp(t *testing.T) {
	ev := NewChannelState(types.ChannelRx, time.Second, 250*time.Microsecond)
	assert.Equal(t, time.Second+250*time.Microsecond, ev.Timestamp)
	assert.Contains(t, ev.String(), "state,rx")
}

type recordingListener struct {
	calls []string
}

func (r *recordingListener) OnPowerChanged(addr types.MacAddress, oldPower, newPower types.DbmValue) error {
	r.calls = append(r.calls, "power")
	return nil
}

func (r *recordingListener) OnRateChanged(addr types.MacAddress, oldRate, newRate types.DataRate) error {
	r.calls = append(r.calls, "rate")
	return nil
}

func (r *recordingListener) OnChannelState(state types.ChannelState, start time.Duration, duration time.Duration) error {
	r.calls = append(r.calls, "state")
	return nil
}

func (r *recordingListener) OnFrameTransmitted(kind types.FrameKind, dest types.MacAddress) error {
	r.calls = append(r.calls, "tx")
	return nil
}

func (r *recordingListener) OnBytesReceived(n uint32, src types.MacAddress) error {
	r.calls = append(r.calls, "rx")
	return nil
}

func TestDispatch(t *testing.T) {
	l := &recordingListener{}
	assert.Nil(t, NewPowerChanged(0, sta, 0, 1).Dispatch(l))
	assert.Nil(t, NewRateChanged(0, sta, 1, 2).Dispatch(l))
	assert.Nil(t, NewChannelState(types.ChannelTx, 0, 1).Dispatch(l))
	assert.Nil(t, NewFrameTransmitted(0, types.FrameControl, sta).Dispatch(l))
	assert.Nil(t, NewBytesReceived(0, 1, sta).Dispatch(l))
	assert.Equal(t, []string{"power", "rate", "state", "tx", "rx"}, l.calls)

	ev := &Event{Type: 42}
	assert.NotNil(t, ev.Dispatch(l))
}
