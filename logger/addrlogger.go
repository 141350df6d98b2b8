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

package logger

import (
	"fmt"
	"time"

	. "github.com/sdnwifi/wifistats/types"
)

type logEntry struct {
	Level Level
	Msg   string
}

// AddrLogger is a station-specific log object, used to watch the events of one link-layer address.
// Entries are buffered and displayed stamped with the virtual time at which they are flushed.
type AddrLogger struct {
	Addr         MacAddress
	displayLevel Level

	entries   chan logEntry
	timestamp time.Duration
}

// NewAddrLogger creates a watch logger for addr that displays entries at or below level.
func NewAddrLogger(addr MacAddress, level Level) *AddrLogger {
	return &AddrLogger{
		Addr:         addr,
		displayLevel: level,
		entries:      make(chan logEntry, 1000),
	}
}

func (al *AddrLogger) SetDisplayLevel(level Level) {
	al.displayLevel = level
}

func (al *AddrLogger) DisplayLevel() Level {
	return al.displayLevel
}

func (al *AddrLogger) Logf(level Level, format string, args ...interface{}) {
	if level > al.displayLevel {
		return
	}
	entry := logEntry{
		Level: level,
		Msg:   getMessage(format, args),
	}
	select {
	case al.entries <- entry:
		break
	default:
		al.DisplayPendingLogEntries(al.timestamp)
		al.entries <- entry
	}
}

func (al *AddrLogger) Tracef(format string, args ...interface{}) {
	al.Logf(TraceLevel, format, args...)
}

func (al *AddrLogger) Debugf(format string, args ...interface{}) {
	al.Logf(DebugLevel, format, args...)
}

func (al *AddrLogger) Infof(format string, args ...interface{}) {
	al.Logf(InfoLevel, format, args...)
}

func (al *AddrLogger) Warnf(format string, args ...interface{}) {
	al.Logf(WarnLevel, format, args...)
}

// PendingCount returns the number of buffered, not yet displayed, entries.
func (al *AddrLogger) PendingCount() int {
	return len(al.entries)
}

// DisplayPendingLogEntries displays all pending log entries, using given virtual time ts.
func (al *AddrLogger) DisplayPendingLogEntries(ts time.Duration) {
	al.timestamp = ts
	prefix := fmt.Sprintf("%s %12.6f ", al.Addr, ts.Seconds())
	for {
		select {
		case entry := <-al.entries:
			logAlways(entry.Level, prefix+entry.Msg)
		default:
			return
		}
	}
}
