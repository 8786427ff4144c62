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

// Package indexer assigns dense storage slots to the variables and named
// definitions of parsed events.
package indexer

import (
	"github.com/probechain/quantscript/lang/ast"
)

// Indexer maps names to slots in first-seen order. One Indexer is shared by
// all events of a product so that a variable keeps the same slot across
// dates.
type Indexer struct {
	vars table
	defs table
}

type table struct {
	slots map[string]int
	names []string
}

func (t *table) slot(name string) int {
	if s, ok := t.slots[name]; ok {
		return s
	}
	if t.slots == nil {
		t.slots = make(map[string]int)
	}
	s := len(t.names)
	t.slots[name] = s
	t.names = append(t.names, name)
	return s
}

// New returns an empty indexer.
func New() *Indexer {
	return new(Indexer)
}

// Visit implements ast.Visitor.
func (ix *Indexer) Visit(ev *ast.Event, id ast.NodeID) ast.Visitor {
	n := ev.Node(id)
	switch n.Kind {
	case ast.Var:
		n.Slot = ix.vars.slot(n.Name)
	case ast.Definition:
		n.Slot = ix.defs.slot(n.Name)
	}
	return ix
}

// Index resolves the slot of every VAR and DEFINITION node of ev in place.
// Indexing an event again leaves the tables unchanged.
func (ix *Indexer) Index(ev *ast.Event) {
	ast.WalkEvent(ix, ev)
}

// Names returns variable names ordered by slot.
func (ix *Indexer) Names() []string {
	return append([]string(nil), ix.vars.names...)
}

// Definitions returns definition names ordered by slot.
func (ix *Indexer) Definitions() []string {
	return append([]string(nil), ix.defs.names...)
}

// Slot returns the slot of a variable.
func (ix *Indexer) Slot(name string) (int, bool) {
	s, ok := ix.vars.slots[name]
	return s, ok
}
