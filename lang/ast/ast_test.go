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

package ast_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/token"
)

// build creates X = MAX(SPOT, 100, Y) by hand.
func build() *ast.Event {
	ev := new(ast.Event)
	pos := token.Position{Line: 1, Column: 1}
	x := ev.NewNode(ast.Var, pos)
	ev.Node(x).Name = "X"
	spot := ev.NewNode(ast.Spot, pos)
	k := ev.NewNode(ast.Const, pos)
	ev.Node(k).Value = 100
	y := ev.NewNode(ast.Var, pos)
	ev.Node(y).Name = "Y"
	mx := ev.NewNode(ast.Max, pos, spot, k, y)
	ev.Statements = append(ev.Statements, ev.NewNode(ast.Assign, pos, x, mx))
	return ev
}

func TestRender(t *testing.T) {
	ev := build()
	assert.Equal(t, "ASSIGN(VAR[X,-1],MAX(SPOT,CONST[100],VAR[Y,-1]))\n", ev.String())
	assert.Equal(t, "CONST[100]", ev.Render(2))
}

func TestRenderIf(t *testing.T) {
	ev := new(ast.Event)
	var pos token.Position
	a := ev.NewNode(ast.Const, pos)
	b := ev.NewNode(ast.Spot, pos)
	cond := ev.NewNode(ast.Superior, pos, b, a)
	v := ev.NewNode(ast.Var, pos)
	ev.Node(v).Name = "P"
	one := ev.NewNode(ast.Const, pos)
	ev.Node(one).Value = 1
	s1 := ev.NewNode(ast.Assign, pos, v, one)
	v2 := ev.NewNode(ast.Var, pos)
	ev.Node(v2).Name = "P"
	s2 := ev.NewNode(ast.Pays, pos, v2, ev.NewNode(ast.Solve, pos))
	id := ev.NewNode(ast.If, pos, cond, s1, s2)
	ev.Node(id).FirstElse = 2
	ev.Statements = []ast.NodeID{id}

	require.NoError(t, ev.Check())
	assert.Equal(t,
		"IF(SUPERIOR(SPOT,CONST[0]),THEN(ASSIGN(VAR[P,-1],CONST[1])),ELSE(PAYS(VAR[P,-1],SOLVE[0])))",
		ev.Render(id))
}

func TestCheck(t *testing.T) {
	require.NoError(t, build().Check())

	tests := []struct {
		name   string
		mutate func(ev *ast.Event)
	}{
		{"arity", func(ev *ast.Event) { ev.Node(5).Children = ev.Node(5).Children[:1] }},
		{"back reference", func(ev *ast.Event) { ev.Node(4).Children[0] = 5 }},
		{"out of range", func(ev *ast.Event) { ev.Node(4).Children[0] = 42 }},
		{"expression statement", func(ev *ast.Event) { ev.Statements[0] = 4 }},
		{"if split", func(ev *ast.Event) {
			ev.Node(4).Kind = ast.If
			ev.Node(4).FirstElse = 9
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := build()
			tt.mutate(ev)
			err := ev.Check()
			assert.True(t, errors.Is(err, ast.ErrMalformed), "got %v", err)
		})
	}
}

func TestClone(t *testing.T) {
	ev := build()
	c := ev.Clone()
	c.Node(2).Value = 7
	c.Node(4).Children[0] = 3
	c.Statements[0] = 0

	assert.Equal(t, 100.0, ev.Node(2).Value)
	assert.Equal(t, ast.NodeID(1), ev.Node(4).Children[0])
	assert.Equal(t, ast.NodeID(5), ev.Statements[0])
}

func TestInspectOrderAndSkip(t *testing.T) {
	ev := build()
	var kinds []ast.Kind
	ast.Inspect(ev, func(ev *ast.Event, id ast.NodeID) bool {
		kinds = append(kinds, ev.Node(id).Kind)
		return ev.Node(id).Kind != ast.Max
	})
	assert.Equal(t, []ast.Kind{ast.Assign, ast.Var, ast.Max}, kinds)
}

type counter map[ast.Kind]int

func (c counter) Visit(ev *ast.Event, id ast.NodeID) ast.Visitor {
	c[ev.Node(id).Kind]++
	return c
}

func TestWalkEvent(t *testing.T) {
	c := counter{}
	ast.WalkEvent(c, build())
	assert.Equal(t, counter{ast.Assign: 1, ast.Var: 2, ast.Max: 1, ast.Spot: 1, ast.Const: 1}, c)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "MUL", ast.Mul.String())
	assert.Equal(t, "kind(200)", ast.Kind(200).String())
	assert.True(t, ast.And.IsCondition())
	assert.False(t, ast.Add.IsCondition())
	assert.True(t, ast.Pays.IsStatement())

	min, max := ast.Max.Arity()
	assert.Equal(t, 2, min)
	assert.Equal(t, ast.MaxArgs, max)
	min, max = ast.If.Arity()
	assert.Equal(t, 1, min)
	assert.Equal(t, -1, max)
}
