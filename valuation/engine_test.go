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

package valuation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/model"
	"github.com/probechain/quantscript/product"
	"github.com/probechain/quantscript/solver"
)

var market = model.Config{Today: 0, Spot: 100, Vol: 0.2, Rate: 0.02}

func build(t *testing.T, events map[product.Date]string, defs ...string) *product.Product {
	t.Helper()
	p := product.New(product.WithDefinitions(defs...))
	require.NoError(t, p.ParseMap(events))
	p.IndexVariables()
	return p
}

func TestEuropeanCallMatchesClosedForm(t *testing.T) {
	p := build(t, map[product.Date]string{360: "C PAYS MAX(SPOT() - 100, 0)"})
	res, err := Value(context.Background(), p, market, Config{Paths: 20000, Seed: 7, Workers: 4}, nil)
	require.NoError(t, err)

	want := model.ClosedFormCall[float64](aad.Float{}, 100, 0.02, 0, 0.2, 100, 1)
	got, ok := res.Value("C")
	require.True(t, ok)
	assert.InDelta(t, want, got, 4*res.StdErrs[0])
	assert.Equal(t, 20000, res.Paths)
	assert.NotEqual(t, uuid.Nil, res.RunID)
}

func TestDiscountedSpotIsMartingale(t *testing.T) {
	p := build(t, map[product.Date]string{
		90:  "A PAYS SPOT()",
		720: "B PAYS SPOT()",
	})
	res, err := Value(context.Background(), p, market, Config{Paths: 20000, Seed: 11}, nil)
	require.NoError(t, err)
	for i, name := range res.Names {
		assert.InDelta(t, 100, res.Values[i], 4*res.StdErrs[i], name)
	}
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	p := build(t, map[product.Date]string{
		180: "IF SPOT() > 100 THEN X = 1 ELSE X = 0 ENDIF",
		360: "C PAYS X * MAX(SPOT() - 95, 0)",
	})
	var prev *Result
	for _, workers := range []int{1, 2, 7} {
		res, err := Value(context.Background(), p, market, Config{Paths: 5000, Seed: 3, Workers: workers}, nil)
		require.NoError(t, err)
		if prev != nil {
			assert.Equal(t, prev.Values, res.Values, "workers=%d", workers)
			assert.Equal(t, prev.StdErrs, res.StdErrs, "workers=%d", workers)
		}
		prev = res
	}
}

func TestRiskMatchesBumpAndRevalue(t *testing.T) {
	events := map[product.Date]string{
		180: "FIX = SPOT()",
		360: "C PAYS N * MAX(SPOT() - K, 0) + 0.1 * FIX",
	}
	p := build(t, events, "N", "K")
	cfg := Config{Paths: 4096, Seed: 5, Workers: 3}
	defs := []float64{2, 105}

	risk, err := ComputeRisk(context.Background(), p, market, cfg, defs, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{InputSpot, InputVol, InputRate, "N", "K"}, risk.Inputs)

	base, err := Value(context.Background(), p, market, cfg, defs)
	require.NoError(t, err)
	for i := range base.Values {
		assert.InDelta(t, base.Values[i], risk.Values[i], 1e-9)
	}

	value := func(m model.Config, d []float64) float64 {
		res, err := Value(context.Background(), p, m, cfg, d)
		require.NoError(t, err)
		v, _ := res.Value("C")
		return v
	}
	const h = 1e-5
	bumps := map[string]func(m *model.Config, d []float64, dx float64){
		InputSpot: func(m *model.Config, d []float64, dx float64) { m.Spot += dx },
		InputVol:  func(m *model.Config, d []float64, dx float64) { m.Vol += dx },
		InputRate: func(m *model.Config, d []float64, dx float64) { m.Rate += dx },
		"N":       func(m *model.Config, d []float64, dx float64) { d[0] += dx },
		"K":       func(m *model.Config, d []float64, dx float64) { d[1] += dx },
	}
	bumped := func(bump func(*model.Config, []float64, float64), dx float64) float64 {
		m, d := market, append([]float64(nil), defs...)
		bump(&m, d, dx)
		return value(m, d)
	}
	for input, bump := range bumps {
		fd := (bumped(bump, h) - bumped(bump, -h)) / (2 * h)
		ad, ok := risk.Sensitivity("C", input)
		require.True(t, ok, input)
		assert.InDelta(t, fd, ad, 1e-4*math.Max(1, math.Abs(fd)), input)
	}
	// Linear in the notional.
	n, _ := risk.Sensitivity("C", "N")
	c, _ := risk.Value("C")
	fix, _ := risk.Value("FIX")
	assert.InDelta(t, (c-0.1*fix/math.Exp(market.Rate))/2, n, 1e-9)
}

func TestRiskDefaultsToEveryVariable(t *testing.T) {
	p := build(t, map[product.Date]string{360: "A = SPOT()\nB PAYS 2 * SPOT()"})
	risk, err := ComputeRisk(context.Background(), p, market, Config{Paths: 1000, Seed: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, risk.Outputs)

	// B is homogeneous of degree one in the spot.
	d, ok := risk.Sensitivity("B", InputSpot)
	require.True(t, ok)
	b, _ := risk.Value("B")
	assert.InDelta(t, b/market.Spot, d, 1e-12)

	_, ok = risk.Sensitivity("B", "NOPE")
	assert.False(t, ok)
}

func TestCalibrateRecoversStrike(t *testing.T) {
	cfg := Config{Paths: 2000, Seed: 9}
	ref := build(t, map[product.Date]string{360: "C PAYS MAX(SPOT() - 105, 0)"})
	res, err := Value(context.Background(), ref, market, cfg, nil)
	require.NoError(t, err)
	target, _ := res.Value("C")

	p := build(t, map[product.Date]string{360: "C PAYS MAX(SPOT() - SOLVE(), 0)"})
	sol, err := Calibrate(p, market, cfg, nil, "C", target, 100, solver.DefaultSettings)
	require.NoError(t, err)
	assert.InDelta(t, 105, sol.X, 1e-3)

	solved, err := Value(context.Background(), p, market, cfg, nil)
	require.NoError(t, err)
	got, _ := solved.Value("C")
	assert.InDelta(t, target, got, 1e-5)

	ast.Inspect(p.Events()[0], func(ev *ast.Event, id ast.NodeID) bool {
		if n := ev.Node(id); n.Kind == ast.Solve {
			assert.Equal(t, sol.X, n.Value)
		}
		return true
	})
}

func TestConfigurationErrors(t *testing.T) {
	ctx := context.Background()
	p := build(t, map[product.Date]string{360: "C PAYS N * SPOT()"}, "N")

	_, err := Value(ctx, p, market, Config{Paths: 0}, []float64{1})
	assert.True(t, errors.Is(err, ErrNoPaths))

	_, err = Value(ctx, p, market, Config{Paths: 10}, nil)
	assert.True(t, errors.Is(err, ErrDefinitions))

	_, err = ComputeRisk(ctx, p, market, Config{Paths: 10}, []float64{1}, "D")
	assert.True(t, errors.Is(err, ErrUnknownOutput))

	bad := market
	bad.Spot = -1
	_, err = Value(ctx, p, bad, Config{Paths: 10}, []float64{1})
	assert.True(t, errors.Is(err, model.ErrParameter))

	late := market
	late.Today = 400
	_, err = Value(ctx, p, late, Config{Paths: 10}, []float64{1})
	assert.True(t, errors.Is(err, model.ErrPastDate))
}

func TestCancelledContext(t *testing.T) {
	p := build(t, map[product.Date]string{360: "C PAYS SPOT()"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Value(ctx, p, market, Config{Paths: 200 * BatchSize, Seed: 1, Workers: 2}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestContractViolationBecomesError(t *testing.T) {
	run := func() (err error) {
		defer protect(&err)
		panic(&eval.ContractError{Kind: ast.Add, Msg: "stack underflow"})
	}
	err := run()
	assert.True(t, errors.Is(err, ErrEvaluationFailed))
	assert.Contains(t, err.Error(), "stack underflow")

	assert.Panics(t, func() {
		var err error
		defer protect(&err)
		panic("unrelated")
	})
}
