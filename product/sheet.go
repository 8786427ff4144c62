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

package product

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/probechain/quantscript/lang/macro"
	"github.com/probechain/quantscript/lang/parser"
)

// ErrMissingDefinition is returned when a script reads a definition the
// sheet gives no value for.
var ErrMissingDefinition = errors.New("product: definition without a value")

// Sheet is the YAML description of a product:
//
//	name: call
//	macros:
//	  STRIKE: "650"
//	  "CALL(S,K)": "MAX(S-K,0)"
//	definitions:
//	  NOTIONAL: 1
//	events:
//	  - date: 360
//	    script: OPT PAYS NOTIONAL * CALL(SPOT(), STRIKE)
//	solve:
//	  target: OPT
//	  value: 50
type Sheet struct {
	Name        string             `yaml:"name"`
	Macros      map[string]string  `yaml:"macros,omitempty"`
	Definitions map[string]float64 `yaml:"definitions,omitempty"`
	Events      []SheetEvent       `yaml:"events"`
	Solve       *SolveSpec         `yaml:"solve,omitempty"`
}

// SheetEvent is one dated script.
type SheetEvent struct {
	Date   Date   `yaml:"date"`
	Script string `yaml:"script"`
}

// SolveSpec names the variable a SOLVE placeholder is calibrated against.
type SolveSpec struct {
	Target string  `yaml:"target"`
	Value  float64 `yaml:"value"`
	Guess  float64 `yaml:"guess,omitempty"`
}

// LoadSheet reads a product sheet from a YAML file.
func LoadSheet(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSheet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSheet decodes a product sheet, rejecting unknown fields.
func ParseSheet(data []byte) (*Sheet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	s := new(Sheet)
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	if len(s.Events) == 0 {
		return nil, ErrNoEvents
	}
	// Scripts are uppercased by the lexer; names given here follow suit.
	if len(s.Definitions) > 0 {
		defs := make(map[string]float64, len(s.Definitions))
		for name, v := range s.Definitions {
			defs[strings.ToUpper(name)] = v
		}
		s.Definitions = defs
	}
	if s.Solve != nil {
		s.Solve.Target = strings.ToUpper(s.Solve.Target)
	}
	return s, nil
}

// Build parses and indexes the sheet's events.
func (s *Sheet) Build(opts ...Option) (*Product, error) {
	table, err := macro.NewTable(s.Macros)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.Definitions))
	for name := range s.Definitions {
		names = append(names, name)
	}
	opts = append([]Option{WithMacros(table), WithDefinitions(names...)}, opts...)
	p := New(opts...)

	srcs := make([]Source, len(s.Events))
	for i, ev := range s.Events {
		srcs[i] = Source{Date: ev.Date, Script: ev.Script}
	}
	if err := p.ParseEvents(srcs); err != nil {
		return nil, err
	}
	p.IndexVariables()
	return p, nil
}

// DefinitionValues returns the values of the given definitions in order.
func (s *Sheet) DefinitionValues(names []string) ([]float64, error) {
	vals := make([]float64, len(names))
	for i, name := range names {
		v, ok := s.Definitions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingDefinition, name)
		}
		vals[i] = v
	}
	return vals, nil
}

// Cached is an Option helper creating a private parse cache of the given
// size; a non-positive size disables caching.
func Cached(size int) (Option, error) {
	if size <= 0 {
		return func(*Product) {}, nil
	}
	c, err := parser.NewCache(size)
	if err != nil {
		return nil, err
	}
	return WithCache(c), nil
}
