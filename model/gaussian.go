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

import "math/rand"

// Gaussian draws independent standard normal numbers from a seeded
// source. It is not safe for concurrent use.
type Gaussian struct {
	rng *rand.Rand
}

// NewGaussian creates a reproducible source.
func NewGaussian(seed int64) *Gaussian {
	return &Gaussian{rng: rand.New(rand.NewSource(seed))}
}

// Fill overwrites dst with draws.
func (g *Gaussian) Fill(dst []float64) {
	for i := range dst {
		dst[i] = g.rng.NormFloat64()
	}
}
