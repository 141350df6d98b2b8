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

// Package trace stores link events in trace files and replays them onto the scheduler.
package trace

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/event"
	"github.com/sdnwifi/wifistats/logger"
)

const (
	traceMagicNumber    = 0x57465354 // "WFST"
	traceVersionMajor   = 1
	traceVersionMinor   = 0
	traceFileHeaderSize = 16
)

// File is a trace file open for writing.
type File interface {
	AppendEvent(ev *event.Event) error
	Sync() error
	Close() error
}

type traceFile struct {
	fd    *os.File
	count uint64
}

// NewFile creates a trace file, truncating an existing one. frameSize is the reference frame
// size of the run the events belong to, 0 if unknown.
func NewFile(filename string, frameSize uint32) (File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	tf := &traceFile{
		fd: fd,
	}

	if err = tf.writeHeader(frameSize); err != nil {
		_ = tf.Close()
		return nil, err
	}
	return tf, nil
}

func (tf *traceFile) AppendEvent(ev *event.Event) error {
	_, err := tf.fd.Write(ev.Serialize())
	if err == nil {
		tf.count++
	}
	return err
}

func (tf *traceFile) Sync() error {
	return tf.fd.Sync()
}

func (tf *traceFile) Close() error {
	logger.Debugf("trace %s closed, %d events", tf.fd.Name(), tf.count)
	return tf.fd.Close()
}

func (tf *traceFile) writeHeader(frameSize uint32) error {
	var header [traceFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], traceMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], traceVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], traceVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], frameSize)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	if _, err := tf.fd.Write(header[:]); err != nil {
		return err
	}
	return tf.fd.Sync()
}

// Reader reads the events of a trace file in order.
type Reader struct {
	r         *bufio.Reader
	closer    io.Closer
	frameSize uint32
}

// Open opens a trace file for reading and checks its header.
func Open(filename string) (*Reader, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	tr, err := NewReader(fd)
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrap(err, filename)
	}
	tr.closer = fd
	return tr, nil
}

// NewReader reads a trace from r.
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{
		r: bufio.NewReader(r),
	}
	var header [traceFileHeaderSize]byte
	if _, err := io.ReadFull(tr.r, header[:]); err != nil {
		return nil, errors.Wrap(err, "read trace header")
	}
	if binary.LittleEndian.Uint32(header[:4]) != traceMagicNumber {
		return nil, errors.Errorf("not a trace file")
	}
	if major := binary.LittleEndian.Uint16(header[4:6]); major != traceVersionMajor {
		return nil, errors.Errorf("unsupported trace version %d", major)
	}
	tr.frameSize = binary.LittleEndian.Uint32(header[8:12])
	return tr, nil
}

// FrameSize returns the reference frame size recorded in the header.
func (tr *Reader) FrameSize() uint32 {
	return tr.frameSize
}

// Next returns the next event, or io.EOF at the end of the trace.
func (tr *Reader) Next() (*event.Event, error) {
	var header [event.HeaderLen]byte
	if _, err := io.ReadFull(tr.r, header[:]); err != nil {
		return nil, err
	}
	msg := make([]byte, event.HeaderLen+event.PayloadLen(header[:]))
	copy(msg, header[:])
	if _, err := io.ReadFull(tr.r, msg[event.HeaderLen:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	ev := &event.Event{}
	if _, err := ev.Deserialize(msg); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadAll reads all remaining events.
func (tr *Reader) ReadAll() ([]*event.Event, error) {
	var evs []*event.Event
	for {
		ev, err := tr.Next()
		if err == io.EOF {
			return evs, nil
		} else if err != nil {
			return evs, err
		}
		evs = append(evs, ev)
	}
}

func (tr *Reader) Close() error {
	if tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}
