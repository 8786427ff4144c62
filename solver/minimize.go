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
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"gonum.org/v1/gonum/optimize"
)

// Settings bounds the minimisation.
type Settings struct {
	MaxIterations int     // major iterations of the simplex
	Tolerance     float64 // absolute objective improvement deemed converged
	Step          float64 // initial simplex size
}

// DefaultSettings suits objectives of order one around the root.
var DefaultSettings = Settings{
	MaxIterations: 1000,
	Tolerance:     1e-14,
	Step:          1,
}

// Result is the outcome of a calibration.
type Result struct {
	X           float64 // calibrated unknown
	Objective   float64 // objective at X
	Evaluations int
	Iterations  int
	Status      string
}

// Minimize drives a Nelder-Mead simplex over the objective starting from
// guess. On return every SOLVE payload holds the calibrated value.
func Minimize(o *Objective, guess float64, s Settings) (*Result, error) {
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultSettings.MaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultSettings.Tolerance
	}
	if s.Step <= 0 {
		s.Step = DefaultSettings.Step
	}
	problem := optimize.Problem{Func: o.Func()}
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Tolerance,
			Iterations: 20,
		},
	}
	res, err := optimize.Minimize(problem, []float64{guess}, settings, &optimize.NelderMead{SimplexSize: s.Step})
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	x := res.X[0]
	f := o.Eval(x)
	log.Debug("Calibrated SOLVE placeholder", "x", x, "objective", f,
		"evaluations", res.Stats.FuncEvaluations, "status", res.Status)
	return &Result{
		X:           x,
		Objective:   f,
		Evaluations: res.Stats.FuncEvaluations,
		Iterations:  res.Stats.MajorIterations,
		Status:      res.Status.String(),
	}, nil
}
