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

// Package aad implements reverse-mode automatic differentiation over an
// explicit operation tape.
//
// A Tape is owned by its caller and is not safe for concurrent use; run one
// tape per goroutine. Numbers produced by Const never touch the tape, so
// arithmetic with constants costs one parent slot less and a tape holds only
// what can carry a derivative.
package aad

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrForeignNumber is the panic value used when a Number recorded on another
// tape, or on this tape before its last Reset, is combined on the tape.
var ErrForeignNumber = errors.New("aad: number does not belong to this tape")

// generations hands out a fresh id to every new or reset tape.
var generations uint64

func nextGeneration() uint64 {
	return atomic.AddUint64(&generations, 1)
}

// Number is a scalar that may be recorded on a Tape.
type Number struct {
	Value float64
	slot  int    // -1 for constants
	gen   uint64 // generation of the recording tape
}

// Slot returns the tape slot of the number, -1 for a constant.
func (n Number) Slot() int {
	return n.slot
}

// IsConst reports whether the number is off the tape.
func (n Number) IsConst() bool {
	return n.slot < 0
}

// node is one recorded operation: up to two parents with the local
// derivative of the result with respect to each.
type node struct {
	parents [2]int
	derivs  [2]float64
	n       uint8
}

// Tape is an append-only record of operations. Every parent slot of a node
// is smaller than the node's own slot, so a descending scan is a valid
// reverse topological order.
type Tape struct {
	nodes []node
	gen   uint64
}

// NewTape creates a tape with room for size operations before it grows.
func NewTape(size int) *Tape {
	return &Tape{nodes: make([]node, 0, size), gen: nextGeneration()}
}

// Len returns the number of recorded nodes.
func (t *Tape) Len() int {
	return len(t.nodes)
}

// Reset discards every node but keeps the allocated capacity. Numbers
// recorded before the reset are rejected from then on.
func (t *Tape) Reset() {
	t.nodes = t.nodes[:0]
	t.gen = nextGeneration()
}

// last returns the number recorded in the newest slot.
func (t *Tape) last(v float64) Number {
	return Number{Value: v, slot: len(t.nodes) - 1, gen: t.gen}
}

// Leaf records an input with no parents.
func (t *Tape) Leaf(v float64) Number {
	t.nodes = append(t.nodes, node{})
	return t.last(v)
}

// Const returns a number that carries no derivative.
func (t *Tape) Const(v float64) Number {
	return Number{Value: v, slot: -1}
}

// Value returns the scalar part of x.
func (t *Tape) Value(x Number) float64 {
	return x.Value
}

// check rejects recorded numbers from another tape or generation. Constants
// belong to every tape.
func (t *Tape) check(x Number) {
	if x.slot < 0 {
		return
	}
	if x.gen != t.gen || x.slot >= len(t.nodes) {
		panic(ErrForeignNumber)
	}
}

// unary records v = f(a) with df/da = d.
func (t *Tape) unary(a Number, v, d float64) Number {
	if a.slot < 0 {
		return Number{Value: v, slot: -1}
	}
	t.check(a)
	t.nodes = append(t.nodes, node{parents: [2]int{a.slot}, derivs: [2]float64{d}, n: 1})
	return t.last(v)
}

// binary records v = f(a, b) with partials da and db. Constant operands
// contribute no parent.
func (t *Tape) binary(a, b Number, v, da, db float64) Number {
	switch {
	case a.slot < 0 && b.slot < 0:
		return Number{Value: v, slot: -1}
	case b.slot < 0:
		return t.unary(a, v, da)
	case a.slot < 0:
		return t.unary(b, v, db)
	}
	t.check(a)
	t.check(b)
	t.nodes = append(t.nodes, node{
		parents: [2]int{a.slot, b.slot},
		derivs:  [2]float64{da, db},
		n:       2,
	})
	return t.last(v)
}

func (t *Tape) Add(a, b Number) Number {
	return t.binary(a, b, a.Value+b.Value, 1, 1)
}

func (t *Tape) Sub(a, b Number) Number {
	return t.binary(a, b, a.Value-b.Value, 1, -1)
}

func (t *Tape) Mul(a, b Number) Number {
	return t.binary(a, b, a.Value*b.Value, b.Value, a.Value)
}

func (t *Tape) Div(a, b Number) Number {
	return t.binary(a, b, a.Value/b.Value, 1/b.Value, -a.Value/(b.Value*b.Value))
}

// Pow records a^b. The partial in b is a^b ln a, taken as zero when a is
// not positive.
func (t *Tape) Pow(a, b Number) Number {
	v := math.Pow(a.Value, b.Value)
	var db float64
	if a.Value > 0 {
		db = v * math.Log(a.Value)
	}
	return t.binary(a, b, v, b.Value*math.Pow(a.Value, b.Value-1), db)
}

func (t *Tape) Neg(a Number) Number {
	return t.unary(a, -a.Value, -1)
}

func (t *Tape) Log(a Number) Number {
	return t.unary(a, math.Log(a.Value), 1/a.Value)
}

func (t *Tape) Sqrt(a Number) Number {
	v := math.Sqrt(a.Value)
	return t.unary(a, v, 0.5/v)
}

func (t *Tape) Exp(a Number) Number {
	v := math.Exp(a.Value)
	return t.unary(a, v, v)
}

// NormCdf records the standard normal distribution function.
func (t *Tape) NormCdf(a Number) Number {
	return t.unary(a, normCdf(a.Value), normPdf(a.Value))
}

// Min selects the smaller operand, a on ties. Selection records nothing:
// the derivative flows entirely to the selected operand.
func (t *Tape) Min(a, b Number) Number {
	if a.Value <= b.Value {
		return a
	}
	return b
}

// Max selects the larger operand, a on ties.
func (t *Tape) Max(a, b Number) Number {
	if a.Value >= b.Value {
		return a
	}
	return b
}

// Backward propagates adjoints from result back to every slot and returns
// them indexed by slot. The result of an all-constant computation yields a
// zero vector.
func (t *Tape) Backward(result Number) []float64 {
	return t.BackwardInto(nil, result)
}

// BackwardInto is Backward reusing adj when it has enough capacity.
func (t *Tape) BackwardInto(adj []float64, result Number) []float64 {
	t.check(result)
	if cap(adj) < len(t.nodes) {
		adj = make([]float64, len(t.nodes))
	} else {
		adj = adj[:len(t.nodes)]
		for i := range adj {
			adj[i] = 0
		}
	}
	if result.slot < 0 {
		return adj
	}
	adj[result.slot] = 1
	for i := result.slot; i >= 0; i-- {
		a := adj[i]
		if a == 0 {
			continue
		}
		nd := &t.nodes[i]
		for j := uint8(0); j < nd.n; j++ {
			adj[nd.parents[j]] += a * nd.derivs[j]
		}
	}
	return adj
}

// Adjoint reads the sensitivity of x from an adjoint vector. Constants
// have none.
func Adjoint(adj []float64, x Number) float64 {
	if x.slot < 0 || x.slot >= len(adj) {
		return 0
	}
	return adj[x.slot]
}

func normCdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPdf(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
