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

package solver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/product"
)

func build(t *testing.T, scripts map[product.Date]string) *product.Product {
	t.Helper()
	p := product.New()
	require.NoError(t, p.ParseMap(scripts))
	p.IndexVariables()
	return p
}

var flat = eval.Scenario[float64]{{Spot: 100, Numeraire: 1}}

func TestObjective(t *testing.T) {
	p := build(t, map[product.Date]string{0: "X = SOLVE() Y = 50 VP = X - Y"})
	obj, err := New(p, "VP", 50, flat)
	require.NoError(t, err)

	assert.Equal(t, 0.0, obj.Eval(100))
	assert.Equal(t, 100.0, obj.Eval(90))
	assert.Equal(t, 2, obj.Calls())
}

func TestMinimize(t *testing.T) {
	p := build(t, map[product.Date]string{0: "X = SOLVE() Y = 50 VP = X - Y"})
	obj, err := New(p, "VP", 50, flat)
	require.NoError(t, err)

	res, err := Minimize(obj, 0, DefaultSettings)
	require.NoError(t, err)
	assert.InDelta(t, 100, res.X, 1e-4)
	assert.Less(t, res.Objective, 1e-8)
	assert.Positive(t, res.Evaluations)

	// The calibrated value stays in the tree.
	var payload float64
	for _, ev := range p.Events() {
		for _, n := range ev.Nodes {
			if n.Kind == ast.Solve {
				payload = n.Value
			}
		}
	}
	assert.Equal(t, res.X, payload)
}

func TestMinimizeAcrossScenarios(t *testing.T) {
	p := build(t, map[product.Date]string{
		0:   "K = SOLVE()",
		360: "OPT PAYS MAX(SPOT() - K, 0)",
	})
	paths := []eval.Scenario[float64]{
		{{Spot: 100, Numeraire: 1}, {Spot: 110, Numeraire: 1}},
		{{Spot: 100, Numeraire: 1}, {Spot: 130, Numeraire: 1}},
	}
	obj, err := New(p, "OPT", 15, paths...)
	require.NoError(t, err)

	res, err := Minimize(obj, 100, DefaultSettings)
	require.NoError(t, err)
	assert.InDelta(t, 105, res.X, 1e-4)
}

func TestSharedUnknown(t *testing.T) {
	p := build(t, map[product.Date]string{0: "A = SOLVE()", 1: "B = SOLVE() * 2 C = A + B"})
	obj, err := New(p, "C", 0, flat, flat)
	require.NoError(t, err)
	assert.Len(t, obj.solves, 2)
	assert.Equal(t, 81.0, obj.Eval(3)) // C = 3 + 6
}

func TestBindingErrors(t *testing.T) {
	p := build(t, map[product.Date]string{0: "X = SOLVE()"})
	_, err := New(p, "Y", 1, flat)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = New(p, "X", 1)
	assert.ErrorIs(t, err, ErrNoScenario)

	zero := eval.Scenario[float64]{{Spot: 100, Numeraire: 0}}
	_, err = New(p, "X", 1, flat, zero)
	assert.ErrorIs(t, err, eval.ErrNumeraire)
	assert.Contains(t, err.Error(), "scenario 1")

	p = build(t, map[product.Date]string{0: "X = 1"})
	_, err = New(p, "X", 1, flat)
	assert.ErrorIs(t, err, ErrNoSolve)
}

func TestConcurrentEvaluations(t *testing.T) {
	p := build(t, map[product.Date]string{0: "X = SOLVE() VP = X * X"})
	obj, err := New(p, "VP", 0, flat)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = obj.Eval(float64(i))
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		x := float64(i)
		assert.Equal(t, x*x*x*x, got, "x = %d", i)
	}
}
