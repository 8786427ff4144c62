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

// Package ast declares the syntax tree of a QuantScript event.
//
// Design:
//   - Nodes live in a per-event arena (Event.Nodes) and refer to their
//     children by NodeID, so an event is a flat value that can be cloned,
//     cached and walked concurrently without pointer chasing.
//   - The node set is closed. Passes dispatch on Node.Kind with a single
//     switch instead of one method per kind.
//   - After parsing and indexing, the only field mutated is the payload of
//     SOLVE nodes, written by the solver between evaluation passes.
package ast

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/probechain/quantscript/lang/token"
)

// ErrMalformed is returned by Check when a node breaks its arity contract.
var ErrMalformed = errors.New("ast: malformed node")

// MaxArgs is the upper bound on MIN and MAX arguments.
const MaxArgs = 100

// NodeID indexes a node inside its Event arena.
type NodeID int

// Kind is the node discriminator.
type Kind uint8

const (
	Uplus Kind = iota
	Uminus
	Add
	Sub
	Mul
	Div
	Pow
	Log
	Sqrt
	Min
	Max
	Equal
	Different
	Superior
	SupEqual
	Inferior
	InfEqual
	And
	Or
	If
	Spot
	Const
	Var
	Solve
	Definition
	Assign
	Pays
	numKinds
)

var kindNames = [...]string{
	Uplus:      "UPLUS",
	Uminus:     "UMINUS",
	Add:        "ADD",
	Sub:        "SUB",
	Mul:        "MUL",
	Div:        "DIV",
	Pow:        "POW",
	Log:        "LOG",
	Sqrt:       "SQRT",
	Min:        "MIN",
	Max:        "MAX",
	Equal:      "EQUAL",
	Different:  "DIFFERENT",
	Superior:   "SUPERIOR",
	SupEqual:   "SUPEQUAL",
	Inferior:   "INFERIOR",
	InfEqual:   "INFEQUAL",
	And:        "AND",
	Or:         "OR",
	If:         "IF",
	Spot:       "SPOT",
	Const:      "CONST",
	Var:        "VAR",
	Solve:      "SOLVE",
	Definition: "DEFINITION",
	Assign:     "ASSIGN",
	Pays:       "PAYS",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Arity returns the allowed number of children for the kind. max is -1 when
// unbounded.
func (k Kind) Arity() (min, max int) {
	switch k {
	case Uplus, Uminus, Log, Sqrt:
		return 1, 1
	case Add, Sub, Mul, Div, Pow, Equal, Different, Superior, SupEqual,
		Inferior, InfEqual, And, Or, Assign, Pays:
		return 2, 2
	case Min, Max:
		return 2, MaxArgs
	case If:
		return 1, -1
	default:
		return 0, 0
	}
}

// IsCondition reports whether nodes of this kind produce a boolean.
func (k Kind) IsCondition() bool {
	return k >= Equal && k <= Or
}

// IsStatement reports whether nodes of this kind may appear at statement
// level.
func (k Kind) IsStatement() bool {
	return k == If || k == Assign || k == Pays
}

// Node is one element of the arena.
type Node struct {
	Kind     Kind
	Children []NodeID
	Pos      token.Position

	// Value holds the literal of a CONST node and the payload of a SOLVE
	// node.
	Value float64

	// Name and Slot identify VAR and DEFINITION nodes. Slot is -1 until
	// the indexer has run.
	Name string
	Slot int

	// FirstElse is the index into Children of the first else statement of
	// an IF node, -1 when there is no else branch.
	FirstElse int
}

// Event is the parsed form of the statements scheduled at one date.
type Event struct {
	Nodes      []Node
	Statements []NodeID
}

// NewNode appends a node to the arena and returns its id.
func (e *Event) NewNode(kind Kind, pos token.Position, children ...NodeID) NodeID {
	e.Nodes = append(e.Nodes, Node{
		Kind:      kind,
		Children:  children,
		Pos:       pos,
		Slot:      -1,
		FirstElse: -1,
	})
	return NodeID(len(e.Nodes) - 1)
}

// Node returns the node with the given id.
func (e *Event) Node(id NodeID) *Node {
	return &e.Nodes[id]
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := &Event{
		Nodes:      make([]Node, len(e.Nodes)),
		Statements: append([]NodeID(nil), e.Statements...),
	}
	for i, n := range e.Nodes {
		n.Children = append([]NodeID(nil), n.Children...)
		c.Nodes[i] = n
	}
	return c
}

// Check verifies the structural invariants of every node reachable from the
// statements: child ids in range, child counts matching the kind and a
// consistent IF split.
func (e *Event) Check() error {
	for _, s := range e.Statements {
		if err := e.checkNode(s); err != nil {
			return err
		}
		if k := e.Nodes[s].Kind; !k.IsStatement() {
			return fmt.Errorf("%w: %s at statement level", ErrMalformed, k)
		}
	}
	return nil
}

func (e *Event) checkNode(id NodeID) error {
	if id < 0 || int(id) >= len(e.Nodes) {
		return fmt.Errorf("%w: node id %d out of range", ErrMalformed, id)
	}
	n := &e.Nodes[id]
	min, max := n.Kind.Arity()
	if len(n.Children) < min || (max >= 0 && len(n.Children) > max) {
		return fmt.Errorf("%w: %s with %d children", ErrMalformed, n.Kind, len(n.Children))
	}
	if n.Kind == If && n.FirstElse != -1 && (n.FirstElse < 1 || n.FirstElse > len(n.Children)) {
		return fmt.Errorf("%w: IF split %d outside 1..%d", ErrMalformed, n.FirstElse, len(n.Children))
	}
	for _, c := range n.Children {
		if c >= id {
			// Children are always created before their parent.
			return fmt.Errorf("%w: %s refers back to node %d", ErrMalformed, n.Kind, c)
		}
	}
	for _, c := range n.Children {
		if err := e.checkNode(c); err != nil {
			return err
		}
	}
	return nil
}

// String renders every statement on its own line.
func (e *Event) String() string {
	var out bytes.Buffer
	for _, s := range e.Statements {
		e.render(&out, s)
		out.WriteByte('\n')
	}
	return out.String()
}

// Render returns the debug form of a single node and its subtree, for
// example ADD(CONST[1],VAR[X,0]).
func (e *Event) Render(id NodeID) string {
	var out bytes.Buffer
	e.render(&out, id)
	return out.String()
}

func (e *Event) render(out *bytes.Buffer, id NodeID) {
	n := &e.Nodes[id]
	switch n.Kind {
	case Const:
		out.WriteString("CONST[" + strconv.FormatFloat(n.Value, 'g', -1, 64) + "]")
		return
	case Var, Definition:
		fmt.Fprintf(out, "%s[%s,%d]", n.Kind, n.Name, n.Slot)
		return
	case Solve:
		out.WriteString("SOLVE[" + strconv.FormatFloat(n.Value, 'g', -1, 64) + "]")
		return
	case Spot:
		out.WriteString("SPOT")
		return
	case If:
		out.WriteString("IF(")
		e.render(out, n.Children[0])
		end := len(n.Children)
		if n.FirstElse != -1 {
			end = n.FirstElse
		}
		e.renderList(out, ",THEN(", n.Children[1:end])
		if n.FirstElse != -1 {
			e.renderList(out, ",ELSE(", n.Children[n.FirstElse:])
		}
		out.WriteByte(')')
		return
	}
	out.WriteString(n.Kind.String())
	e.renderList(out, "(", n.Children)
}

func (e *Event) renderList(out *bytes.Buffer, open string, ids []NodeID) {
	out.WriteString(open)
	for i, c := range ids {
		if i > 0 {
			out.WriteByte(',')
		}
		e.render(out, c)
	}
	out.WriteByte(')')
}
