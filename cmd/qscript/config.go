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
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/quantscript/model"
	"github.com/probechain/quantscript/product"
	"github.com/probechain/quantscript/solver"
	"github.com/probechain/quantscript/valuation"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// scriptConfig controls how event scripts are read.
type scriptConfig struct {
	Strict    bool // reject unrecognised characters instead of skipping them
	CacheSize int  // parse cache entries, 0 disables the cache
}

type qscriptConfig struct {
	Model     model.Config
	Valuation valuation.Config
	Solver    solver.Settings
	Script    scriptConfig
}

func defaultConfig() qscriptConfig {
	return qscriptConfig{
		Model:     model.Defaults,
		Valuation: valuation.Defaults,
		Solver:    solver.DefaultSettings,
		Script:    scriptConfig{CacheSize: 0},
	}
}

func loadConfig(file string, cfg *qscriptConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads defaults, then the config file, then flags.
func makeConfig(ctx *cli.Context) (qscriptConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
		log.Debug("Loaded configuration", "file", file)
	}
	if ctx.GlobalIsSet(todayFlag.Name) {
		cfg.Model.Today = product.Date(ctx.GlobalInt(todayFlag.Name))
	}
	if ctx.GlobalIsSet(spotFlag.Name) {
		cfg.Model.Spot = ctx.GlobalFloat64(spotFlag.Name)
	}
	if ctx.GlobalIsSet(volFlag.Name) {
		cfg.Model.Vol = ctx.GlobalFloat64(volFlag.Name)
	}
	if ctx.GlobalIsSet(rateFlag.Name) {
		cfg.Model.Rate = ctx.GlobalFloat64(rateFlag.Name)
	}
	if ctx.GlobalIsSet(pathsFlag.Name) {
		cfg.Valuation.Paths = ctx.GlobalInt(pathsFlag.Name)
	}
	if ctx.GlobalIsSet(seedFlag.Name) {
		cfg.Valuation.Seed = ctx.GlobalInt64(seedFlag.Name)
	}
	if ctx.GlobalIsSet(workersFlag.Name) {
		cfg.Valuation.Workers = ctx.GlobalInt(workersFlag.Name)
	}
	if ctx.GlobalIsSet(strictFlag.Name) {
		cfg.Script.Strict = ctx.GlobalBool(strictFlag.Name)
	}
	if ctx.GlobalIsSet(cacheFlag.Name) {
		cfg.Script.CacheSize = ctx.GlobalInt(cacheFlag.Name)
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
