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

package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/indexer"
	"github.com/probechain/quantscript/lang/parser"
)

func slots(ev *ast.Event) map[string][]int {
	out := make(map[string][]int)
	ast.Inspect(ev, func(ev *ast.Event, id ast.NodeID) bool {
		if n := ev.Node(id); n.Kind == ast.Var || n.Kind == ast.Definition {
			out[n.Name] = append(out[n.Name], n.Slot)
		}
		return true
	})
	return out
}

func TestFirstSeenOrder(t *testing.T) {
	ev, err := parser.Parse("B = 1 A = B + C IF A > 1 THEN B = D ENDIF")
	require.NoError(t, err)

	ix := indexer.New()
	ix.Index(ev)
	assert.Equal(t, []string{"B", "A", "C", "D"}, ix.Names())
	assert.Equal(t, map[string][]int{
		"B": {0, 0, 0},
		"A": {1, 1},
		"C": {2},
		"D": {3},
	}, slots(ev))

	s, ok := ix.Slot("C")
	assert.True(t, ok)
	assert.Equal(t, 2, s)
	_, ok = ix.Slot("Z")
	assert.False(t, ok)
}

func TestIdempotent(t *testing.T) {
	ev, err := parser.Parse("X = Y * 2 Z PAYS X")
	require.NoError(t, err)

	ix := indexer.New()
	ix.Index(ev)
	first := ix.Names()
	before := ev.String()

	ix.Index(ev)
	assert.Equal(t, first, ix.Names())
	assert.Equal(t, before, ev.String())
}

func TestSharedAcrossEvents(t *testing.T) {
	first, err := parser.Parse("OPT PAYS 1 K = 2")
	require.NoError(t, err)
	second, err := parser.Parse("CPN = 3 OPT PAYS CPN")
	require.NoError(t, err)

	ix := indexer.New()
	ix.Index(first)
	ix.Index(second)
	assert.Equal(t, []string{"OPT", "K", "CPN"}, ix.Names())
	assert.Equal(t, []int{0}, slots(second)["OPT"][:1])
}

func TestDefinitions(t *testing.T) {
	ev, err := parser.Parse("X = MAX(SPOT() - K, 0) * N Y = K", parser.WithDefinitions("K", "N"))
	require.NoError(t, err)

	ix := indexer.New()
	ix.Index(ev)
	assert.Equal(t, []string{"X", "Y"}, ix.Names())
	assert.Equal(t, []string{"K", "N"}, ix.Definitions())
	assert.Equal(t, []int{0, 0}, slots(ev)["K"])
	assert.Equal(t, []int{1}, slots(ev)["N"])
}
