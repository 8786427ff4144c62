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
	"fmt"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/model"
	"github.com/probechain/quantscript/product"
	"github.com/probechain/quantscript/solver"
)

// Scenarios draws cfg.Paths scenarios with the same streams as Value, so a
// product calibrated on them reproduces its target under Value.
func Scenarios(p *product.Product, mcfg model.Config, cfg Config) ([]eval.Scenario[float64], error) {
	j, err := newJob(p, mcfg, cfg, make([]float64, len(p.DefinitionNames())))
	if err != nil {
		return nil, err
	}
	params := model.Params[float64]{Spot: mcfg.Spot, Vol: mcfg.Vol, Rate: mcfg.Rate}
	gauss := make([]float64, j.model.Dimension())
	out := make([]eval.Scenario[float64], 0, j.cfg.Paths)
	for b := 0; b < j.batches(); b++ {
		rng := model.NewGaussian(j.cfg.Seed + int64(b))
		lo, hi := j.batch(b)
		for path := lo; path < hi; path++ {
			rng.Fill(gauss)
			s := product.NewScenario[float64](p)
			model.Simulate[float64](j.model, aad.Float{}, params, gauss, s)
			out = append(out, s)
		}
	}
	return out, nil
}

// Calibrate solves for the SOLVE() placeholder that brings the average of
// target to value over the simulated scenarios. On success the product's
// placeholders hold the solution.
func Calibrate(p *product.Product, mcfg model.Config, cfg Config, defs []float64, target string, value, guess float64, s solver.Settings) (*solver.Result, error) {
	if n := len(p.DefinitionNames()); n != len(defs) {
		return nil, fmt.Errorf("%w: product reads %d, got %d", ErrDefinitions, n, len(defs))
	}
	scen, err := Scenarios(p, mcfg, cfg)
	if err != nil {
		return nil, err
	}
	obj, err := solver.New(p, target, value, scen...)
	if err != nil {
		return nil, err
	}
	obj.SetDefinitions(defs)
	return solver.Minimize(obj, guess, s)
}
