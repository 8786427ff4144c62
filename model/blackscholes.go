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

// Package model generates market scenarios for products: a Black-Scholes
// spot process with a deterministic bank-account numeraire.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/product"
)

// DaysPerYear converts event dates to year fractions.
const DaysPerYear = 360

var (
	// ErrPastDate is returned for an event dated before today.
	ErrPastDate = errors.New("model: event date before today")

	// ErrParameter is returned for a non-positive spot or a negative
	// volatility.
	ErrParameter = errors.New("model: invalid parameter")
)

// Config holds the market parameters.
type Config struct {
	Today product.Date
	Spot  float64
	Vol   float64
	Rate  float64
}

// Defaults are the parameters used when none are configured.
var Defaults = Config{
	Today: 0,
	Spot:  100,
	Vol:   0.2,
	Rate:  0.02,
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if !(c.Spot > 0) {
		return fmt.Errorf("%w: spot %g", ErrParameter, c.Spot)
	}
	if c.Vol < 0 || math.IsNaN(c.Vol) {
		return fmt.Errorf("%w: volatility %g", ErrParameter, c.Vol)
	}
	return nil
}

// Params are the model inputs as numbers of the evaluation algebra, so that
// under differentiation each can be a tape leaf.
type Params[T any] struct {
	Spot T
	Vol  T
	Rate T
}

// BlackScholes simulates
//
//	S(t+dt) = S(t) exp((r - vol^2/2) dt + vol sqrt(dt) G)
//
// at the event dates of a product, with numeraire exp(r t).
type BlackScholes struct {
	times []float64 // year fraction of each event date
	steps []float64 // time since the previous date, 0 when none elapsed
	dim   int
}

// NewBlackScholes prepares the time grid of the given dates.
func NewBlackScholes(today product.Date, dates []product.Date) (*BlackScholes, error) {
	m := &BlackScholes{
		times: make([]float64, len(dates)),
		steps: make([]float64, len(dates)),
	}
	prev := 0.0
	for i, d := range dates {
		if d < today {
			return nil, fmt.Errorf("%w: %d < %d", ErrPastDate, d, today)
		}
		t := float64(d-today) / DaysPerYear
		m.times[i] = t
		if t > prev {
			m.steps[i] = t - prev
			m.dim++
		}
		prev = t
	}
	return m, nil
}

// Dimension returns the number of Gaussian draws consumed per path.
func (m *BlackScholes) Dimension() int {
	return m.dim
}

// Times returns the year fraction of every event date.
func (m *BlackScholes) Times() []float64 {
	return m.times
}

// Simulate fills s, one sample per date, from Dimension() standard normal
// draws.
func Simulate[T any](m *BlackScholes, alg eval.Algebra[T], p Params[T], gauss []float64, s eval.Scenario[T]) {
	half := alg.Const(0.5)
	drift := alg.Sub(p.Rate, alg.Mul(half, alg.Mul(p.Vol, p.Vol)))

	spot := p.Spot
	g := 0
	for i, dt := range m.steps {
		if dt > 0 {
			step := alg.Add(
				alg.Mul(drift, alg.Const(dt)),
				alg.Mul(p.Vol, alg.Const(math.Sqrt(dt)*gauss[g])),
			)
			spot = alg.Mul(spot, alg.Exp(step))
			g++
		}
		s[i] = eval.Sample[T]{
			Spot:      spot,
			Numeraire: alg.Exp(alg.Mul(p.Rate, alg.Const(m.times[i]))),
		}
	}
}
