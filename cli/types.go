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

package cli

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	. "github.com/sdnwifi/wifistats/types"
)

var (
	backgroundCommandsPat = regexp.MustCompile(`^go\s+ever\b`)
)

func isBackgroundCommand(line string) bool {
	return backgroundCommandsPat.MatchString(line)
}

func firstWord(line string) string {
	if fields := strings.Fields(line); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// resolveStations maps selectors onto addresses of the tracked set. Positions are 1-based in
// the byte order of the tracked addresses. The result is unique and sorted.
func resolveStations(tracked []MacAddress, input []StationSelector) ([]MacAddress, error) {
	m := make(map[MacAddress]struct{}, len(input))
	for _, sel := range input {
		addr, err := resolveStation(tracked, sel)
		if err != nil {
			return nil, err
		}
		m[addr] = struct{}{}
	}

	addrs := make([]MacAddress, 0, len(m))
	for addr := range m {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Compare(addrs[j]) < 0
	})
	return addrs, nil
}

func resolveStation(tracked []MacAddress, sel StationSelector) (MacAddress, error) {
	switch {
	case sel.Broadcast != nil:
		return BroadcastAddress, nil
	case sel.Addr != "":
		return ParseMacAddress(sel.Addr)
	case sel.Index >= 1 && sel.Index <= len(tracked):
		return tracked[sel.Index-1], nil
	default:
		return MacAddress{}, errors.Errorf("station %d not found", sel.Index)
	}
}
