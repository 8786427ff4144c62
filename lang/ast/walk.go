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

package ast

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// the node with w.
//
// Visit receives the arena and the id rather than a node pointer so that
// passes such as the indexer can update the node in place.
type Visitor interface {
	Visit(ev *Event, id NodeID) (w Visitor)
}

// Walk traverses the subtree rooted at id in depth-first order, children
// left to right.
func Walk(v Visitor, ev *Event, id NodeID) {
	if v = v.Visit(ev, id); v == nil {
		return
	}
	for _, c := range ev.Nodes[id].Children {
		Walk(v, ev, c)
	}
}

// WalkEvent walks every statement of the event in source order.
func WalkEvent(v Visitor, ev *Event) {
	for _, s := range ev.Statements {
		Walk(v, ev, s)
	}
}

type inspector func(*Event, NodeID) bool

func (f inspector) Visit(ev *Event, id NodeID) Visitor {
	if f(ev, id) {
		return f
	}
	return nil
}

// Inspect traverses every statement of the event, calling f for each node.
// If f returns false the children of that node are skipped.
func Inspect(ev *Event, f func(*Event, NodeID) bool) {
	WalkEvent(inspector(f), ev)
}
