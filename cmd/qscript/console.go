// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/lang/indexer"
	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/parser"
)

// consoleInput is where the console reads from. Tests replace it.
var consoleInput io.Reader = os.Stdin

var consoleCommand = cli.Command{
	Action:   console,
	Name:     "console",
	Usage:    "Evaluate statements interactively",
	Category: "SCRIPT COMMANDS",
	Description: `
The console command reads one event per line. Every accepted line is replayed
in order on a flat scenario (spot from the configuration, numeraire 1) and the
variables are printed after each line.`,
}

// prompter reads lines from the user.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// linePrompter reads from a non-terminal input.
type linePrompter struct {
	scanner *bufio.Scanner
}

func (p *linePrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *linePrompter) AppendHistory(string) {}
func (p *linePrompter) Close() error { return nil }

func newPrompter(in io.Reader) prompter {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		return l
	}
	return &linePrompter{scanner: bufio.NewScanner(in)}
}

// session accumulates the events entered so far.
type session struct {
	spot   float64
	strict bool
	events []*ast.Event
	ix     *indexer.Indexer
}

// exec parses line as a new event and replays every event. A line that
// fails to parse leaves the session unchanged.
func (s *session) exec(line string) ([]string, []float64, error) {
	var mode lexer.Mode
	if s.strict {
		mode = lexer.Strict
	}
	filename := "line@" + strconv.Itoa(len(s.events)+1)
	ev, err := parser.ParseTokens(lexer.New(filename, line, mode).Tokenize(), parser.WithFilename(filename))
	if err != nil {
		return nil, nil, err
	}
	s.ix.Index(ev)
	s.events = append(s.events, ev)

	names := s.ix.Names()
	e := eval.New[float64](aad.Float{}, len(names))
	scen := make(eval.Scenario[float64], len(s.events))
	for i := range scen {
		scen[i] = eval.Sample[float64]{Spot: s.spot, Numeraire: 1}
	}
	e.Evaluate(s.events, scen)
	return names, e.Values(), nil
}

func console(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	sess := &session{spot: cfg.Model.Spot, strict: cfg.Script.Strict, ix: indexer.New()}
	w := ctx.App.Writer
	red := color.New(color.FgRed)

	pr := newPrompter(consoleInput)
	defer pr.Close()
	for {
		line, err := pr.Prompt("> ")
		if err == io.EOF || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		pr.AppendHistory(line)
		names, vals, err := sess.exec(line)
		if err != nil {
			red.Fprintf(w, "error: %v\n", err)
			continue
		}
		for i, name := range names {
			fmt.Fprintf(w, "%s = %s\n", name, strconv.FormatFloat(vals[i], 'g', -1, 64))
		}
	}
}
