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
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/model"
	"github.com/probechain/quantscript/product"
)

// ErrUnknownOutput is returned when a risk output is not a product variable.
var ErrUnknownOutput = errors.New("valuation: unknown output variable")

// Model inputs differentiated by Risk, ahead of the product definitions.
const (
	InputSpot = "SPOT"
	InputVol  = "VOL"
	InputRate = "RATE"
)

// Risk is a valuation together with the sensitivities of selected outputs
// to every model input and definition.
type Risk struct {
	Result
	Inputs        []string
	Outputs       []string
	Sensitivities [][]float64 // [output][input], of the path average
}

// Sensitivity returns d output / d input.
func (r *Risk) Sensitivity(output, input string) (float64, bool) {
	for o, name := range r.Outputs {
		if name != output {
			continue
		}
		for i, in := range r.Inputs {
			if in == input {
				return r.Sensitivities[o][i], true
			}
		}
	}
	return 0, false
}

// ComputeRisk values the product like Value and, on every path, runs one
// adjoint sweep per output over a freshly recorded tape. With no outputs
// named every variable is an output.
func ComputeRisk(ctx context.Context, p *product.Product, mcfg model.Config, cfg Config, defs []float64, outputs ...string) (*Risk, error) {
	j, err := newJob(p, mcfg, cfg, defs)
	if err != nil {
		return nil, err
	}
	names := p.VarNames()
	if len(outputs) == 0 {
		outputs = names
	}
	slots := make([]int, len(outputs))
	for o, out := range outputs {
		slots[o] = -1
		for slot, name := range names {
			if name == out {
				slots[o] = slot
				break
			}
		}
		if slots[o] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, out)
		}
	}
	inputs := append([]string{InputSpot, InputVol, InputRate}, p.DefinitionNames()...)
	width := len(outputs) * len(inputs)

	samples := make([][]float64, len(names))
	for i := range samples {
		samples[i] = make([]float64, j.cfg.Paths)
	}
	sums := make([][]float64, j.batches())
	j.log.Debug("Starting risk", "paths", j.cfg.Paths, "workers", j.cfg.Workers,
		"outputs", len(outputs), "inputs", len(inputs))

	err = j.run(ctx, func() func(int) error {
		tape := aad.NewTape(1024)
		e := product.NewEvaluator[aad.Number](p, tape)
		scen := product.NewScenario[aad.Number](p)
		gauss := make([]float64, j.model.Dimension())
		leaves := make([]aad.Number, len(inputs))
		var adj []float64
		return func(b int) (err error) {
			defer protect(&err)
			sum := make([]float64, width)
			rng := model.NewGaussian(j.cfg.Seed + int64(b))
			lo, hi := j.batch(b)
			for path := lo; path < hi; path++ {
				rng.Fill(gauss)
				tape.Reset()
				leaves[0] = tape.Leaf(mcfg.Spot)
				leaves[1] = tape.Leaf(mcfg.Vol)
				leaves[2] = tape.Leaf(mcfg.Rate)
				for i, v := range defs {
					leaves[3+i] = tape.Leaf(v)
				}
				e.SetDefinitions(leaves[3:])
				params := model.Params[aad.Number]{Spot: leaves[0], Vol: leaves[1], Rate: leaves[2]}
				model.Simulate[aad.Number](j.model, tape, params, gauss, scen)
				e.Init()
				product.Evaluate(p, e, scen)

				for slot := range samples {
					samples[slot][path] = e.Value(slot).Value
				}
				for o, slot := range slots {
					adj = tape.BackwardInto(adj, e.Value(slot))
					row := sum[o*len(inputs) : (o+1)*len(inputs)]
					for i, x := range leaves {
						row[i] += aad.Adjoint(adj, x)
					}
				}
			}
			sums[b] = sum
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	total := make([]float64, width)
	for _, s := range sums {
		floats.Add(total, s)
	}
	floats.Scale(1/float64(j.cfg.Paths), total)

	r := &Risk{
		Result: Result{
			RunID:   j.id,
			Paths:   j.cfg.Paths,
			Names:   names,
			Values:  make([]float64, len(names)),
			StdErrs: make([]float64, len(names)),
		},
		Inputs:        inputs,
		Outputs:       append([]string(nil), outputs...),
		Sensitivities: make([][]float64, len(outputs)),
	}
	for slot, xs := range samples {
		r.Values[slot], r.StdErrs[slot] = meanStdErr(xs)
	}
	for o := range outputs {
		r.Sensitivities[o] = total[o*len(inputs) : (o+1)*len(inputs)]
	}
	j.log.Debug("Risk done", "outputs", len(outputs))
	return r, nil
}
