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
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/sdnwifi/wifistats/logger"
)

// helpEntry is the documentation of one console command.
type helpEntry struct {
	short string
	text  strings.Builder
	usage []string
}

type Help struct {
	termWidth   uint
	maxCmdWidth uint
	commands    map[string]*helpEntry
}

type helpBlock int

const (
	blockText helpBlock = iota
	blockExample
	blockDefinition
)

var (
	cmdHeaderPattern  = regexp.MustCompile("^### .+")
	linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)
)

// The console command reference.
//
//go:embed README.md
var cliHelpFile string

// newHelp parses the embedded command reference.
func newHelp() Help {
	h := Help{
		termWidth:   80,
		maxCmdWidth: 10,
		commands:    make(map[string]*helpEntry),
	}
	h.parse(cliHelpFile)
	h.update()
	return h
}

// update takes the width of the user's terminal into account.
func (help *Help) update() {
	fdTerm := int(os.Stdout.Fd())
	if !term.IsTerminal(fdTerm) {
		return
	}
	width, _, err := term.GetSize(fdTerm)
	if err != nil {
		logger.Debugf("terminal size: %v", err)
		return
	}
	if uint(width) > help.maxCmdWidth+20 {
		help.termWidth = uint(width)
	}
}

// outputGeneralHelp lists every command with the first sentence of its description.
func (help *Help) outputGeneralHelp() string {
	var sb strings.Builder
	for _, c := range help.commandNames() {
		_, _ = fmt.Fprintf(&sb, "%-*s %s\n", int(help.maxCmdWidth), c, help.commands[c].short)
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

// outputCommandHelp returns the full help of command.
func (help *Help) outputCommandHelp(command string) string {
	help.update()
	entry, ok := help.commands[command]
	if !ok {
		return command + "\n  (Non-existent command.)\n"
	}

	var sb strings.Builder
	w := help.termWidth - help.maxCmdWidth - 1
	for i, line := range strings.Split(wordwrap.WrapString(entry.text.String(), w), "\n") {
		if i == 0 {
			sb.WriteString(line + "\n")
		} else {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String()
}

// usage returns the definition lines of command, or nil if it has none.
func (help *Help) usage(command string) []string {
	if entry, ok := help.commands[command]; ok {
		return entry.usage
	}
	return nil
}

func (help *Help) parse(md string) {
	var entry *helpEntry
	block := blockText
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if cmdHeaderPattern.MatchString(line) {
			name := strings.TrimSpace(line[strings.Index(line, " ")+1:])
			if uint(len(name)) >= help.maxCmdWidth {
				help.maxCmdWidth = uint(len(name)) + 1
			}
			entry = &helpEntry{}
			entry.text.WriteString(name + "\n")
			help.commands[name] = entry
			block = blockText
			continue
		}
		if entry == nil {
			continue
		}

		switch {
		case line == "```bash":
			block = blockExample
			entry.text.WriteString("\nExample:\n")
		case line == "```shell":
			block = blockDefinition
			entry.text.WriteString("\nDefinition:\n")
		case line == "```":
			block = blockText
			entry.text.WriteString("\n")
		case block == blockText:
			line = markdownUnquote(line)
			entry.text.WriteString(line + "\n")
			if entry.short == "" {
				entry.short = firstSentence(line)
			}
		default:
			if block == blockDefinition {
				entry.usage = append(entry.usage, line)
			}
			entry.text.WriteString("  " + line + "\n")
		}
	}
}

func firstSentence(line string) string {
	if idx := strings.Index(line, "."); idx > 0 {
		return line[:idx+1]
	}
	return line
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	return linkTargetPattern.ReplaceAllString(md, "")
}

// commandNames returns the documented commands in sorted order.
func (help *Help) commandNames() []string {
	cmds := make([]string, 0, len(help.commands))
	for k := range help.commands {
		cmds = append(cmds, k)
	}
	sort.Strings(cmds)
	return cmds
}
