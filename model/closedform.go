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

package model

import "github.com/probechain/quantscript/lang/eval"

// Analytic extends the evaluation algebra with the normal distribution
// function needed by closed-form prices.
type Analytic[T any] interface {
	eval.Algebra[T]
	NormCdf(a T) T
}

// ClosedFormCall is the Black-Scholes price of a European call with
// continuous dividend yield. Evaluated on a tape, one backward pass gives
// every Greek.
func ClosedFormCall[T any](alg Analytic[T], spot, rate, yield, vol, strike, mat T) T {
	df := alg.Exp(alg.Neg(alg.Mul(rate, mat)))
	fwd := alg.Mul(spot, alg.Exp(alg.Mul(alg.Sub(rate, yield), mat)))
	std := alg.Mul(vol, alg.Sqrt(mat))
	d := alg.Div(alg.Log(alg.Div(fwd, strike)), std)
	halfStd := alg.Mul(alg.Const(0.5), std)
	d1 := alg.Add(d, halfStd)
	d2 := alg.Sub(d, halfStd)
	return alg.Mul(df, alg.Sub(alg.Mul(fwd, alg.NormCdf(d1)), alg.Mul(strike, alg.NormCdf(d2))))
}
