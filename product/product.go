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

// Package product turns a set of dated event scripts into an evaluable
// payoff.
package product

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/lang/indexer"
	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/macro"
	"github.com/probechain/quantscript/lang/parser"
)

var (
	// ErrDuplicateDate is returned when two events share a date.
	ErrDuplicateDate = errors.New("product: duplicate event date")

	// ErrNoEvents is returned when a product is built from no scripts.
	ErrNoEvents = errors.New("product: no events")
)

// Date is an event date in days. Its origin is the model's today.
type Date int

// Source is the raw script of one event.
type Source struct {
	Date   Date
	Script string
}

// Option configures a Product.
type Option func(*Product)

// WithMacros expands the given macros in every event before parsing.
func WithMacros(t *macro.Table) Option {
	return func(p *Product) { p.macros = t }
}

// WithDefinitions declares named inputs readable from every event.
func WithDefinitions(names ...string) Option {
	return func(p *Product) { p.defs = append(p.defs, names...) }
}

// WithStrict rejects characters the lexer does not recognise.
func WithStrict(strict bool) Option {
	return func(p *Product) { p.strict = strict }
}

// WithCache parses through a shared parse cache.
func WithCache(c *parser.Cache) Option {
	return func(p *Product) { p.cache = c }
}

// Product is an ordered list of events, one per date.
type Product struct {
	dates  []Date
	events []*ast.Event

	macros *macro.Table
	defs   []string
	strict bool
	cache  *parser.Cache

	ix *indexer.Indexer // nil until IndexVariables

	log log.Logger
}

// New creates an empty product.
func New(opts ...Option) *Product {
	p := &Product{log: log.New("module", "product")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseMap parses events given as a date -> script map, in date order.
func (p *Product) ParseMap(events map[Date]string) error {
	srcs := make([]Source, 0, len(events))
	for d, s := range events {
		srcs = append(srcs, Source{Date: d, Script: s})
	}
	return p.ParseEvents(srcs)
}

// ParseEvents parses every script and replaces the product's events. Events
// are ordered by date. On error the product is left unchanged.
func (p *Product) ParseEvents(srcs []Source) error {
	if len(srcs) == 0 {
		return ErrNoEvents
	}
	sorted := append([]Source(nil), srcs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	dates := make([]Date, len(sorted))
	events := make([]*ast.Event, len(sorted))
	for i, src := range sorted {
		if i > 0 && src.Date == sorted[i-1].Date {
			return fmt.Errorf("%w: %d", ErrDuplicateDate, src.Date)
		}
		ev, err := p.parseEvent(src)
		if err != nil {
			return fmt.Errorf("event %d: %w", src.Date, err)
		}
		dates[i], events[i] = src.Date, ev
	}
	p.dates, p.events, p.ix = dates, events, nil
	p.log.Debug("Parsed product", "events", len(events))
	return nil
}

func (p *Product) parseEvent(src Source) (*ast.Event, error) {
	filename := "event@" + strconv.Itoa(int(src.Date))
	var mode lexer.Mode
	if p.strict {
		mode = lexer.Strict
	}
	l := lexer.New(filename, src.Script, mode)
	toks := l.Tokenize()
	if n := len(l.Dropped()); n > 0 {
		p.log.Warn("Ignored unrecognised characters", "event", src.Date, "count", n)
	}
	toks, err := p.macros.Expand(toks)
	if err != nil {
		return nil, err
	}
	opts := []parser.Option{parser.WithFilename(filename), parser.WithDefinitions(p.defs...)}
	if p.cache != nil {
		return p.cache.ParseTokens(toks, opts...)
	}
	return parser.ParseTokens(toks, opts...)
}

// IndexVariables assigns slots to every variable and definition, in order
// of first appearance across events.
func (p *Product) IndexVariables() {
	ix := indexer.New()
	for _, ev := range p.events {
		ix.Index(ev)
	}
	p.ix = ix
	p.log.Debug("Indexed product", "variables", len(ix.Names()), "definitions", len(ix.Definitions()))
}

func (p *Product) indexer() *indexer.Indexer {
	if p.ix == nil {
		p.IndexVariables()
	}
	return p.ix
}

// VarNames returns variable names ordered by slot.
func (p *Product) VarNames() []string {
	return p.indexer().Names()
}

// DefinitionNames returns the definitions referenced by the scripts,
// ordered by slot.
func (p *Product) DefinitionNames() []string {
	return p.indexer().Definitions()
}

// EventDates returns the event dates in evaluation order.
func (p *Product) EventDates() []Date {
	return append([]Date(nil), p.dates...)
}

// Events returns the parsed events in date order.
func (p *Product) Events() []*ast.Event {
	return p.events
}

// Walk runs v over every statement of every event.
func (p *Product) Walk(v ast.Visitor) {
	for _, ev := range p.events {
		ast.WalkEvent(v, ev)
	}
}

// String renders the product one event per paragraph.
func (p *Product) String() string {
	var out bytes.Buffer
	for i, ev := range p.events {
		fmt.Fprintf(&out, "@%d\n%s", p.dates[i], ev)
	}
	return out.String()
}

// NewEvaluator returns an evaluator sized for the product's variables,
// indexing them first if needed.
func NewEvaluator[T any](p *Product, alg eval.Algebra[T]) *eval.Evaluator[T] {
	return eval.New(alg, len(p.VarNames()))
}

// NewScenario allocates one sample per event date.
func NewScenario[T any](p *Product) eval.Scenario[T] {
	return make(eval.Scenario[T], len(p.dates))
}

// Evaluate runs one path: every event in date order against s. The caller
// initialises e beforehand.
func Evaluate[T any](p *Product, e *eval.Evaluator[T], s eval.Scenario[T]) {
	e.Evaluate(p.events, s)
}
