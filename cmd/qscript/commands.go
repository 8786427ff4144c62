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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/macro"
	"github.com/probechain/quantscript/product"
	"github.com/probechain/quantscript/valuation"
)

var (
	errNoSheet = errors.New("missing product sheet argument")
	errNoSolve = errors.New("sheet has no solve section")

	outputFlag = cli.StringSliceFlag{
		Name:  "output",
		Usage: "Variable to differentiate (repeatable, default all)",
	}
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the raw node arrays",
	}

	valueCommand = cli.Command{
		Action:    value,
		Name:      "value",
		Usage:     "Value a product by Monte-Carlo simulation",
		ArgsUsage: "<sheet.yaml>",
		Category:  "VALUATION COMMANDS",
	}
	riskCommand = cli.Command{
		Action:    risk,
		Name:      "risk",
		Usage:     "Compute sensitivities by adjoint differentiation",
		ArgsUsage: "<sheet.yaml>",
		Flags:     []cli.Flag{outputFlag},
		Category:  "VALUATION COMMANDS",
	}
	solveCommand = cli.Command{
		Action:    solve,
		Name:      "solve",
		Usage:     "Calibrate the SOLVE() placeholder, then value",
		ArgsUsage: "<sheet.yaml>",
		Category:  "VALUATION COMMANDS",
		Description: `
The solve command finds the value of SOLVE() that brings the sheet's target
variable to its target value, on the same paths the value command uses.`,
	}
	tokensCommand = cli.Command{
		Action:    tokens,
		Name:      "tokens",
		Usage:     "Print the tokens of a script file",
		ArgsUsage: "<script>",
		Category:  "SCRIPT COMMANDS",
	}
	astCommand = cli.Command{
		Action:    printAST,
		Name:      "ast",
		Usage:     "Print the syntax trees of a product",
		ArgsUsage: "<sheet.yaml>",
		Flags:     []cli.Flag{dumpFlag},
		Category:  "SCRIPT COMMANDS",
	}
	expandCommand = cli.Command{
		Action:    expand,
		Name:      "expand",
		Usage:     "Print the scripts of a product after macro expansion",
		ArgsUsage: "<sheet.yaml>",
		Category:  "SCRIPT COMMANDS",
	}
)

// loadProduct reads the sheet named on the command line and builds it.
func loadProduct(ctx *cli.Context, cfg qscriptConfig) (*product.Sheet, *product.Product, []float64, error) {
	if ctx.NArg() < 1 {
		return nil, nil, nil, errNoSheet
	}
	sheet, err := product.LoadSheet(ctx.Args().First())
	if err != nil {
		return nil, nil, nil, err
	}
	cached, err := product.Cached(cfg.Script.CacheSize)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := sheet.Build(product.WithStrict(cfg.Script.Strict), cached)
	if err != nil {
		return nil, nil, nil, err
	}
	defs, err := sheet.DefinitionValues(p.DefinitionNames())
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debug("Loaded product", "name", sheet.Name, "events", len(p.Events()), "variables", len(p.VarNames()))
	return sheet, p, defs, nil
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

var printer = message.NewPrinter(language.English)

func formatFloat(v float64) string {
	return printer.Sprintf("%.6f", v)
}

func printValues(w io.Writer, res *valuation.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Variable", "Value", "Std error"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, name := range res.Names {
		table.Append([]string{name, formatFloat(res.Values[i]), formatFloat(res.StdErrs[i])})
	}
	table.Render()
}

func value(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	_, p, defs, err := loadProduct(ctx, cfg)
	if err != nil {
		return err
	}
	c, cancel := interruptible()
	defer cancel()
	res, err := valuation.Value(c, p, cfg.Model, cfg.Valuation, defs)
	if err != nil {
		return err
	}
	printValues(ctx.App.Writer, res)
	return nil
}

func risk(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	_, p, defs, err := loadProduct(ctx, cfg)
	if err != nil {
		return err
	}
	c, cancel := interruptible()
	defer cancel()
	r, err := valuation.ComputeRisk(c, p, cfg.Model, cfg.Valuation, defs, ctx.StringSlice(outputFlag.Name)...)
	if err != nil {
		return err
	}
	printValues(ctx.App.Writer, &r.Result)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader(append([]string{"d / d"}, r.Inputs...))
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for o, name := range r.Outputs {
		row := []string{name}
		for _, s := range r.Sensitivities[o] {
			row = append(row, formatFloat(s))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func solve(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	sheet, p, defs, err := loadProduct(ctx, cfg)
	if err != nil {
		return err
	}
	if sheet.Solve == nil {
		return errNoSolve
	}
	spec := sheet.Solve
	sol, err := valuation.Calibrate(p, cfg.Model, cfg.Valuation, defs, spec.Target, spec.Value, spec.Guess, cfg.Solver)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "SOLVE() = %s (objective %g, %d evaluations, %s)\n",
		formatFloat(sol.X), sol.Objective, sol.Evaluations, sol.Status)

	c, cancel := interruptible()
	defer cancel()
	res, err := valuation.Value(c, p, cfg.Model, cfg.Valuation, defs)
	if err != nil {
		return err
	}
	printValues(ctx.App.Writer, res)
	return nil
}

func tokens(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() < 1 {
		return errors.New("missing script argument")
	}
	filename := ctx.Args().First()
	src, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	var mode lexer.Mode
	if cfg.Script.Strict {
		mode = lexer.Strict
	}
	for _, tok := range lexer.New(filename, string(src), mode).Tokenize() {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
	}
	return nil
}

func printAST(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	_, p, _, err := loadProduct(ctx, cfg)
	if err != nil {
		return err
	}
	if ctx.Bool(dumpFlag.Name) {
		dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		dumper.Fdump(ctx.App.Writer, p.Events())
		return nil
	}
	fmt.Fprint(ctx.App.Writer, p)
	return nil
}

func expand(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errNoSheet
	}
	sheet, err := product.LoadSheet(ctx.Args().First())
	if err != nil {
		return err
	}
	for _, ev := range sheet.Events {
		src, err := macro.ExpandString(sheet.Macros, ev.Script)
		if err != nil {
			return fmt.Errorf("event %d: %w", ev.Date, err)
		}
		fmt.Fprintf(ctx.App.Writer, "@%d\n%s\n", ev.Date, src)
	}
	return nil
}
