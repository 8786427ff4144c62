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

package aad

import "math"

// Float is the plain float64 kernel. It has the same method set as Tape so
// that generic code runs unchanged with or without differentiation, and it
// computes every value with the same expressions so both kernels agree bit
// for bit.
type Float struct{}

func (Float) Const(v float64) float64 { return v }
func (Float) Value(x float64) float64 { return x }
func (Float) Add(a, b float64) float64 { return a + b }
func (Float) Sub(a, b float64) float64 { return a - b }
func (Float) Mul(a, b float64) float64 { return a * b }
func (Float) Div(a, b float64) float64 { return a / b }
func (Float) Pow(a, b float64) float64 { return math.Pow(a, b) }
func (Float) Neg(a float64) float64 { return -a }
func (Float) Log(a float64) float64 { return math.Log(a) }
func (Float) Sqrt(a float64) float64 { return math.Sqrt(a) }
func (Float) Exp(a float64) float64 { return math.Exp(a) }
func (Float) NormCdf(a float64) float64 { return normCdf(a) }

func (Float) Min(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

func (Float) Max(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
