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

// Package solver calibrates the SOLVE placeholder of a product so that a
// named variable reaches a target value.
package solver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/product"
)

var (
	// ErrUnknownTarget is returned when the target variable does not appear
	// in the product.
	ErrUnknownTarget = errors.New("solver: unknown target variable")

	// ErrNoSolve is returned when the product has no SOLVE placeholder.
	ErrNoSolve = errors.New("solver: product has no SOLVE() placeholder")

	// ErrNoScenario is returned when the objective is given no scenario.
	ErrNoScenario = errors.New("solver: no scenario")
)

// binder collects the SOLVE nodes of a product.
type binder struct {
	nodes []*ast.Node
}

func (b *binder) Visit(ev *ast.Event, id ast.NodeID) ast.Visitor {
	if n := ev.Node(id); n.Kind == ast.Solve {
		b.nodes = append(b.nodes, n)
	}
	return b
}

// Objective is the squared distance between the target variable, averaged
// over a fixed set of scenarios, and its target value, as a function of the
// unknown. Every SOLVE() in the product stands for the same unknown.
//
// The payload lives in the shared syntax tree, so evaluations are
// serialised. No other evaluation of the product may run concurrently with
// the objective.
type Objective struct {
	mu sync.Mutex

	prod      *product.Product
	eval      *eval.Evaluator[float64]
	scenarios []eval.Scenario[float64]
	solves    []*ast.Node

	target int
	value  float64
	calls  int
}

// New binds an objective to the product's SOLVE placeholders and to the
// slot of the target variable.
func New(p *product.Product, target string, value float64, scenarios ...eval.Scenario[float64]) (*Objective, error) {
	if len(scenarios) == 0 {
		return nil, ErrNoScenario
	}
	for i, sc := range scenarios {
		if err := sc.Validate(aad.Float{}); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	slot := -1
	for i, name := range p.VarNames() {
		if name == target {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	b := new(binder)
	p.Walk(b)
	if len(b.nodes) == 0 {
		return nil, ErrNoSolve
	}
	return &Objective{
		prod:      p,
		eval:      product.NewEvaluator[float64](p, aad.Float{}),
		scenarios: scenarios,
		solves:    b.nodes,
		target:    slot,
		value:     value,
	}, nil
}

// SetDefinitions sets the values of the product's named definitions.
func (o *Objective) SetDefinitions(defs []float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.eval.SetDefinitions(defs)
}

// Eval writes x into every SOLVE payload, re-runs the product on each
// scenario and returns (mean target - value)^2.
func (o *Objective) Eval(x float64) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls++
	for _, n := range o.solves {
		n.Value = x
	}
	var sum float64
	for _, s := range o.scenarios {
		o.eval.Init()
		product.Evaluate(o.prod, o.eval, s)
		sum += o.eval.Value(o.target)
	}
	d := sum/float64(len(o.scenarios)) - o.value
	return d * d
}

// Calls returns the number of objective evaluations so far.
func (o *Objective) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Func adapts the objective to multivariate minimisers; only x[0] is read.
func (o *Objective) Func() func(x []float64) float64 {
	return func(x []float64) float64 {
		v := o.Eval(x[0])
		log.Trace("Solver step", "x", x[0], "objective", v)
		return v
	}
}
