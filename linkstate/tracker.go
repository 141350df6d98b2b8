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

package linkstate

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnwifi/wifistats/logger"
	. "github.com/sdnwifi/wifistats/types"
)

type entry struct {
	power    DbmValue
	rate     DataRate
	hasPower bool
	hasRate  bool
}

// Tracker keeps the current transmit power and data rate per destination address.
// Broadcast is an ordinary key. Notifications overwrite in place; no history is kept.
type Tracker struct {
	entries map[MacAddress]*entry
	watch   map[MacAddress]*logger.AddrLogger
}

func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[MacAddress]*entry),
		watch:   make(map[MacAddress]*logger.AddrLogger),
	}
}

// Seed sets the initial power and rate of addr.
func (t *Tracker) Seed(addr MacAddress, power DbmValue, rate DataRate) {
	e := t.getOrCreate(addr)
	e.power, e.hasPower = power, true
	e.rate, e.hasRate = rate, true
	logger.Tracef("seed %s power=%.2fdBm rate=%v", addr, power, rate)
}

// OnPowerChange records newPower as the current power of addr.
func (t *Tracker) OnPowerChange(addr MacAddress, oldPower, newPower DbmValue) {
	e := t.getOrCreate(addr)
	e.power, e.hasPower = newPower, true
	if al := t.watch[addr]; al != nil {
		al.Infof("power %.2fdBm -> %.2fdBm", oldPower, newPower)
	}
}

// OnRateChange records newRate as the current rate of addr.
func (t *Tracker) OnRateChange(addr MacAddress, oldRate, newRate DataRate) {
	e := t.getOrCreate(addr)
	e.rate, e.hasRate = newRate, true
	if al := t.watch[addr]; al != nil {
		al.Infof("rate %v -> %v", oldRate, newRate)
	}
}

func (t *Tracker) CurrentPower(addr MacAddress) (DbmValue, error) {
	e := t.entries[addr]
	if e == nil || !e.hasPower {
		return UndefinedDbmValue, errors.Wrapf(ErrUnknownDestination, "power of %s", addr)
	}
	return e.power, nil
}

func (t *Tracker) CurrentRate(addr MacAddress) (DataRate, error) {
	e := t.entries[addr]
	if e == nil || !e.hasRate {
		return 0, errors.Wrapf(ErrUnknownDestination, "rate of %s", addr)
	}
	return e.rate, nil
}

// Has reports whether addr has an entry.
func (t *Tracker) Has(addr MacAddress) bool {
	_, ok := t.entries[addr]
	return ok
}

func (t *Tracker) Len() int {
	return len(t.entries)
}

// Addresses returns the tracked addresses in byte order.
func (t *Tracker) Addresses() []MacAddress {
	addrs := make([]MacAddress, 0, len(t.entries))
	for addr := range t.entries {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Compare(addrs[j]) < 0
	})
	return addrs
}

// Watch logs every power and rate change of addr to al. A nil al stops watching.
func (t *Tracker) Watch(addr MacAddress, al *logger.AddrLogger) {
	if al == nil {
		delete(t.watch, addr)
		return
	}
	t.watch[addr] = al
}

// FlushWatch displays the pending watch entries stamped with virtual time ts.
func (t *Tracker) FlushWatch(ts time.Duration) {
	for _, addr := range t.Watched() {
		t.watch[addr].DisplayPendingLogEntries(ts)
	}
}

func (t *Tracker) Watched() []MacAddress {
	addrs := make([]MacAddress, 0, len(t.watch))
	for addr := range t.watch {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Compare(addrs[j]) < 0
	})
	return addrs
}

func (t *Tracker) getOrCreate(addr MacAddress) *entry {
	e := t.entries[addr]
	if e == nil {
		e = &entry{}
		t.entries[addr] = e
	}
	return e
}
