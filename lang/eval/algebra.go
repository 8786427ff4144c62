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

package eval

import (
	"errors"
	"fmt"
)

// ErrNumeraire is returned by Scenario.Validate for a non-positive numeraire.
var ErrNumeraire = errors.New("eval: numeraire must be positive")

// Algebra is the numeric contract the evaluator is written against. The
// plain float64 kernel and the differentiating tape both implement it, so
// one interpreter serves valuation and risk.
//
// Value exposes the scalar part of a number; conditions only ever compare
// scalars, no derivative flows through a branch.
type Algebra[T any] interface {
	Const(v float64) T
	Value(x T) float64

	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	Pow(a, b T) T
	Neg(a T) T
	Log(a T) T
	Sqrt(a T) T
	Exp(a T) T
	Min(a, b T) T
	Max(a, b T) T
}

// Sample is the market state at one event date of one simulated path.
type Sample[T any] struct {
	Spot      T
	Numeraire T
}

// Scenario holds one sample per event date, in date order.
type Scenario[T any] []Sample[T]

// Validate checks that every numeraire is strictly positive.
func (s Scenario[T]) Validate(alg Algebra[T]) error {
	for i, smp := range s {
		if n := alg.Value(smp.Numeraire); !(n > 0) {
			return fmt.Errorf("%w: %g at event %d", ErrNumeraire, n, i)
		}
	}
	return nil
}
