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

// Command qscript values and risk-manages products written as dated event
// scripts.
//
// Usage:
//
//	qscript [global flags] value <sheet.yaml>
//	qscript [global flags] risk [--output NAME]... <sheet.yaml>
//	qscript [global flags] solve <sheet.yaml>
//	qscript [global flags] tokens <script>
//	qscript [global flags] ast [--dump] <sheet.yaml>
//	qscript [global flags] expand <sheet.yaml>
//	qscript [global flags] console
//	qscript [global flags] dumpconfig [file]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

const version = "0.1.0"

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	todayFlag = cli.IntFlag{
		Name:  "today",
		Usage: "Valuation date, in the days of the event dates",
	}
	spotFlag = cli.Float64Flag{
		Name:  "spot",
		Usage: "Initial spot",
	}
	volFlag = cli.Float64Flag{
		Name:  "vol",
		Usage: "Black-Scholes volatility",
	}
	rateFlag = cli.Float64Flag{
		Name:  "rate",
		Usage: "Continuously compounded interest rate",
	}
	pathsFlag = cli.IntFlag{
		Name:  "paths",
		Usage: "Number of Monte-Carlo paths",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "Simulation goroutines (0 = one per CPU)",
	}
	strictFlag = cli.BoolFlag{
		Name:  "strict",
		Usage: "Reject unrecognised characters in scripts",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "Parse cache size (0 = disabled)",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "qscript"
	app.Usage = "scripted payoff valuation"
	app.Version = version
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		todayFlag,
		spotFlag,
		volFlag,
		rateFlag,
		pathsFlag,
		seedFlag,
		workersFlag,
		strictFlag,
		cacheFlag,
	}
	app.Commands = []cli.Command{
		valueCommand,
		riskCommand,
		solveCommand,
		tokensCommand,
		astCommand,
		expandCommand,
		consoleCommand,
		dumpConfigCommand,
	}
	app.Before = setupLogging
	return app
}

func setupLogging(ctx *cli.Context) error {
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(ctx.GlobalInt(verbosityFlag.Name)), handler))
	return nil
}

// fatalf prints a highlighted error and exits.
func fatalf(format string, args ...interface{}) {
	w := colorable.NewColorableStderr()
	color.New(color.FgRed, color.Bold).Fprint(w, "Fatal: ")
	fmt.Fprintf(w, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatalf("%v", err)
	}
}
