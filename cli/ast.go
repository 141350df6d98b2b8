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
	"strconv"

	"github.com/alecthomas/participle"

	. "github.com/sdnwifi/wifistats/types"
)

// noinspection GoStructTag
type Command struct {
	Exit     *ExitCmd     `  @@` //nolint
	Flows    *FlowsCmd    `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Latest   *LatestCmd   `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Plot     *PlotCmd     `| @@` //nolint
	Power    *PowerCmd    `| @@` //nolint
	Rate     *RateCmd     `| @@` //nolint
	Rates    *RatesCmd    `| @@` //nolint
	Series   *SeriesCmd   `| @@` //nolint
	Stations *StationsCmd `| @@` //nolint
	Summary  *SummaryCmd  `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Totals   *TotalsCmd   `| @@` //nolint
	Unwatch  *UnwatchCmd  `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                     //nolint
	Time string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever *EverFlag `| @@ )`                                   //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// StationSelector picks a station by its 1-based position in the address list, by its
// quoted address, or the broadcast entry.
// noinspection GoStructTag
type StationSelector struct {
	Index     int     `(  @Int`                    //nolint
	Addr      string  ` | @String`                 //nolint
	Broadcast *string ` | @("broadcast"|"bcast") )` //nolint
}

func (ss *StationSelector) String() string {
	if ss.Broadcast != nil {
		return BroadcastAddress.String()
	}
	if ss.Addr != "" {
		return ss.Addr
	}
	return strconv.Itoa(ss.Index)
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type StationsCmd struct {
	Cmd struct{} `("stations"|"sta")` //nolint
}

// noinspection GoStructTag
type PowerCmd struct {
	Cmd     struct{}        `"power"` //nolint
	Station StationSelector `@@`      //nolint
}

// noinspection GoStructTag
type RateCmd struct {
	Cmd     struct{}        `"rate"` //nolint
	Station StationSelector `@@`     //nolint
}

// noinspection GoStructTag
type RatesCmd struct {
	Cmd struct{} `"rates"` //nolint
}

// noinspection GoStructTag
type SeriesCmd struct {
	Cmd    struct{} `"series"`                                            //nolint
	Metric string   `@("throughput"|"tp"|"power"|"idle"|"busy"|"tx"|"rx")` //nolint
	Last   *int     `[ @Int ]`                                            //nolint
}

// noinspection GoStructTag
type LatestCmd struct {
	Cmd struct{} `"latest"` //nolint
}

// noinspection GoStructTag
type TotalsCmd struct {
	Cmd struct{} `"totals"` //nolint
}

// noinspection GoStructTag
type FlowsCmd struct {
	Cmd struct{} `"flows"` //nolint
}

// noinspection GoStructTag
type SummaryCmd struct {
	Cmd  struct{}  `"summary"` //nolint
	Save *SaveFlag `( @@ )?`   //nolint
	Name string    `@String?`  //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type PlotCmd struct {
	Cmd struct{} `"plot"`   //nolint
	Dir string   `@String?` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                       //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"T"|"D"|"I"|"N"|"W"|"C"|"E" )]` //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd      struct{}          `"watch"`                                                                                             //nolint
	All      string            `[ @"all" ]`                                                                                          //nolint
	Stations []StationSelector `[ ( @@ )+ ]`                                                                                         //nolint
	Level    string            `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"none"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd      struct{}          `"unwatch"`    //nolint
	All      string            `( @"all"`     //nolint
	Stations []StationSelector `| ( @@ )+ )?` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
