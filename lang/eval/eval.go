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

// Package eval interprets parsed events against a simulated scenario.
package eval

import (
	"fmt"
	"math"

	"github.com/probechain/quantscript/lang/ast"
)

// Epsilon is the absolute tolerance of every comparison.
const Epsilon = 1e-15

// ContractError is the panic value raised when the evaluator meets a tree
// that parsing and indexing should have excluded: a stack underflow, an
// unindexed or out-of-range slot, a missing scenario sample. It signals a
// bug in the caller, never a script error.
type ContractError struct {
	Kind ast.Kind
	Msg  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("eval: contract violation at %s: %s", e.Kind, e.Msg)
}

// Evaluator is a stack machine walking the syntax tree of each event.
//
// State persists across Exec calls so that a variable assigned at one date
// is visible at the next. Call Init before every simulated path; nothing is
// reset automatically. An Evaluator is not safe for concurrent use, but any
// number of evaluators may walk the same indexed events at once.
type Evaluator[T any] struct {
	alg Algebra[T]

	vars  []T
	defs  []T
	stack []T    // operand stack
	conds []bool // condition stack

	// lhs is set while the target of an assignment is being resolved; the
	// VAR visit then records its slot in target instead of pushing a value.
	lhs    bool
	target int

	scenario Scenario[T]
	event    int
}

// New creates an evaluator for nVars variables.
func New[T any](alg Algebra[T], nVars int) *Evaluator[T] {
	e := &Evaluator[T]{
		alg:    alg,
		vars:   make([]T, nVars),
		stack:  make([]T, 0, 16),
		conds:  make([]bool, 0, 8),
		target: -1,
	}
	e.Init()
	return e
}

// Init zeroes every variable and drains both stacks, keeping their capacity.
func (e *Evaluator[T]) Init() {
	zero := e.alg.Const(0)
	for i := range e.vars {
		e.vars[i] = zero
	}
	e.stack = e.stack[:0]
	e.conds = e.conds[:0]
	e.lhs = false
	e.target = -1
}

// SetScenario sets the samples read by SPOT and PAYS.
func (e *Evaluator[T]) SetScenario(s Scenario[T]) {
	e.scenario = s
}

// SetEvent sets the index of the current event into the scenario.
func (e *Evaluator[T]) SetEvent(i int) {
	e.event = i
}

// SetDefinitions sets the values of named definitions, indexed by slot.
func (e *Evaluator[T]) SetDefinitions(defs []T) {
	e.defs = defs
}

// Values returns a copy of the variables, indexed by slot.
func (e *Evaluator[T]) Values() []T {
	return append([]T(nil), e.vars...)
}

// Value returns the variable stored in slot.
func (e *Evaluator[T]) Value(slot int) T {
	return e.vars[slot]
}

// Evaluate runs the events in order against s, the i-th event reading the
// i-th sample. It does not call Init.
func (e *Evaluator[T]) Evaluate(events []*ast.Event, s Scenario[T]) {
	e.SetScenario(s)
	for i, ev := range events {
		e.SetEvent(i)
		e.Exec(ev)
	}
}

// Exec runs every statement of one event.
func (e *Evaluator[T]) Exec(ev *ast.Event) {
	for _, s := range ev.Statements {
		e.visit(ev, s)
	}
}

func (e *Evaluator[T]) fail(kind ast.Kind, format string, args ...interface{}) {
	panic(&ContractError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (e *Evaluator[T]) push(x T) {
	e.stack = append(e.stack, x)
}

func (e *Evaluator[T]) pop(kind ast.Kind) T {
	n := len(e.stack)
	if n == 0 {
		e.fail(kind, "operand stack underflow")
	}
	x := e.stack[n-1]
	e.stack = e.stack[:n-1]
	return x
}

func (e *Evaluator[T]) popCond(kind ast.Kind) bool {
	n := len(e.conds)
	if n == 0 {
		e.fail(kind, "condition stack underflow")
	}
	c := e.conds[n-1]
	e.conds = e.conds[:n-1]
	return c
}

// visitReverse visits the children right to left, leaving the leftmost
// result on top of the stack.
func (e *Evaluator[T]) visitReverse(ev *ast.Event, n *ast.Node) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		e.visit(ev, n.Children[i])
	}
}

func (e *Evaluator[T]) sample(kind ast.Kind) Sample[T] {
	if e.event < 0 || e.event >= len(e.scenario) {
		e.fail(kind, "no scenario sample for event %d", e.event)
	}
	return e.scenario[e.event]
}

func (e *Evaluator[T]) slot(n *ast.Node, size int) int {
	if n.Slot < 0 || n.Slot >= size {
		e.fail(n.Kind, "slot %d of %s outside 0..%d", n.Slot, n.Name, size-1)
	}
	return n.Slot
}

func (e *Evaluator[T]) visit(ev *ast.Event, id ast.NodeID) {
	n := ev.Node(id)
	alg := e.alg

	switch n.Kind {
	// Arithmetic
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Pow:
		e.visitReverse(ev, n)
		a, b := e.pop(n.Kind), e.pop(n.Kind)
		switch n.Kind {
		case ast.Add:
			e.push(alg.Add(a, b))
		case ast.Sub:
			e.push(alg.Sub(a, b))
		case ast.Mul:
			e.push(alg.Mul(a, b))
		case ast.Div:
			e.push(alg.Div(a, b))
		case ast.Pow:
			e.push(alg.Pow(a, b))
		}

	case ast.Uplus:
		e.visit(ev, n.Children[0])

	case ast.Uminus:
		e.visit(ev, n.Children[0])
		e.push(alg.Neg(e.pop(n.Kind)))

	case ast.Log:
		e.visit(ev, n.Children[0])
		e.push(alg.Log(e.pop(n.Kind)))

	case ast.Sqrt:
		e.visit(ev, n.Children[0])
		e.push(alg.Sqrt(e.pop(n.Kind)))

	case ast.Min, ast.Max:
		e.visitReverse(ev, n)
		acc := e.pop(n.Kind)
		for i := 1; i < len(n.Children); i++ {
			if n.Kind == ast.Min {
				acc = alg.Min(acc, e.pop(n.Kind))
			} else {
				acc = alg.Max(acc, e.pop(n.Kind))
			}
		}
		e.push(acc)

	// Conditions
	case ast.Equal, ast.Different, ast.Superior, ast.SupEqual, ast.Inferior, ast.InfEqual:
		e.visitReverse(ev, n)
		a, b := alg.Value(e.pop(n.Kind)), alg.Value(e.pop(n.Kind))
		e.conds = append(e.conds, compare(n.Kind, a, b))

	case ast.And, ast.Or:
		e.visitReverse(ev, n)
		a, b := e.popCond(n.Kind), e.popCond(n.Kind)
		if n.Kind == ast.And {
			e.conds = append(e.conds, a && b)
		} else {
			e.conds = append(e.conds, a || b)
		}

	// Statements
	case ast.If:
		e.visit(ev, n.Children[0])
		from, to := 1, len(n.Children)
		if n.FirstElse != -1 {
			to = n.FirstElse
		}
		if !e.popCond(n.Kind) {
			if n.FirstElse == -1 {
				return
			}
			from, to = n.FirstElse, len(n.Children)
		}
		for _, c := range n.Children[from:to] {
			e.visit(ev, c)
		}

	case ast.Assign, ast.Pays:
		e.lhs = true
		e.visit(ev, n.Children[0])
		target := e.target
		if e.lhs || target < 0 {
			e.fail(n.Kind, "left-hand side is not a variable")
		}
		e.target = -1
		e.visit(ev, n.Children[1])
		rhs := e.pop(n.Kind)
		if n.Kind == ast.Assign {
			e.vars[target] = rhs
		} else {
			e.vars[target] = alg.Add(e.vars[target], alg.Div(rhs, e.sample(n.Kind).Numeraire))
		}

	// Leaves
	case ast.Var:
		s := e.slot(n, len(e.vars))
		if e.lhs {
			e.lhs = false
			e.target = s
			return
		}
		e.push(e.vars[s])

	case ast.Definition:
		if e.lhs {
			e.fail(n.Kind, "definition %s used as assignment target", n.Name)
		}
		e.push(e.defs[e.slot(n, len(e.defs))])

	case ast.Const, ast.Solve:
		e.push(alg.Const(n.Value))

	case ast.Spot:
		e.push(e.sample(n.Kind).Spot)

	default:
		e.fail(n.Kind, "unknown node kind")
	}
}

// compare applies a comparison with absolute tolerance Epsilon. Strict
// comparisons need a margin beyond Epsilon, the inclusive ones are their
// exact complements.
func compare(kind ast.Kind, a, b float64) bool {
	switch kind {
	case ast.Equal:
		return math.Abs(a-b) < Epsilon
	case ast.Different:
		return !(math.Abs(a-b) < Epsilon)
	case ast.Superior:
		return a-b > Epsilon
	case ast.SupEqual:
		return !(b-a > Epsilon)
	case ast.Inferior:
		return b-a > Epsilon
	case ast.InfEqual:
		return !(a-b > Epsilon)
	}
	return false
}
