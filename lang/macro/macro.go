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

// Package macro implements the QuantScript pre-processor: named constants
// and function-style macros substituted over the token stream before
// parsing.
//
// Substitution is positional and literal, like a C pre-processor: the
// tokens of each call-site argument replace the parameter in the body
// without added parentheses. Expanded output is scanned again, so macros
// may be defined in terms of other macros.
package macro

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/token"
)

// maxDepth bounds nested expansion, catching self-referencing macros.
const maxDepth = 32

// Error is a macro definition or expansion failure.
type Error struct {
	Pos   token.Position
	Macro string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: macro %s: %s", e.Pos, e.Macro, e.Msg)
}

// Macro is one definition.
type Macro struct {
	Name   string
	Params []string // nil for a constant macro
	Body   []token.Token

	function bool
}

// Table holds macro definitions by name.
type Table struct {
	macros map[string]*Macro
}

// NewTable builds a table from signature -> body pairs. A signature is
// either NAME or NAME(P1,...,Pn).
func NewTable(defs map[string]string) (*Table, error) {
	t := &Table{macros: make(map[string]*Macro, len(defs))}
	for sig, body := range defs {
		if err := t.Define(sig, body); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Define adds or replaces one macro.
func (t *Table) Define(signature, body string) error {
	sig := stripEOF(lexer.New("", signature, lexer.Strict).Tokenize())
	if len(sig) == 0 || sig[0].Type != token.IDENT {
		return &Error{Macro: signature, Msg: "signature must start with a name"}
	}
	m := &Macro{
		Name: sig[0].Literal,
		Body: stripEOF(lexer.New("", body, 0).Tokenize()),
	}
	if len(sig) > 1 {
		params, err := parseParams(m.Name, sig[1:])
		if err != nil {
			return err
		}
		m.Params = params
		m.function = true
	}
	if t.macros == nil {
		t.macros = make(map[string]*Macro)
	}
	t.macros[m.Name] = m
	return nil
}

// parseParams parses "(A,B,...)" following the macro name.
func parseParams(name string, toks []token.Token) ([]string, error) {
	bad := &Error{Pos: toks[0].Pos, Macro: name, Msg: "malformed parameter list"}
	if toks[0].Type != token.LPAREN || toks[len(toks)-1].Type != token.RPAREN {
		return nil, bad
	}
	inner := toks[1 : len(toks)-1]
	params := []string{}
	seen := make(map[string]bool)
	for i, tok := range inner {
		if i%2 == 1 {
			if tok.Type != token.COMMA {
				return nil, bad
			}
			continue
		}
		if tok.Type != token.IDENT {
			return nil, bad
		}
		if seen[tok.Literal] {
			return nil, &Error{Pos: tok.Pos, Macro: name, Msg: "duplicate parameter " + tok.Literal}
		}
		seen[tok.Literal] = true
		params = append(params, tok.Literal)
	}
	if len(inner) > 0 && len(inner)%2 == 0 {
		return nil, bad // trailing comma
	}
	return params, nil
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	return len(t.macros)
}

// Lookup returns the macro with the given (uppercase) name.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Expand returns toks with every macro use replaced. The input is not
// modified. A trailing EOF token is preserved.
func (t *Table) Expand(toks []token.Token) ([]token.Token, error) {
	if t == nil || len(t.macros) == 0 {
		return toks, nil
	}
	return t.expand(toks, 0)
}

func (t *Table) expand(toks []token.Token, depth int) ([]token.Token, error) {
	out := make([]token.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		m, ok := t.macros[tok.Literal]
		if tok.Type != token.IDENT || !ok {
			out = append(out, tok)
			continue
		}
		if depth >= maxDepth {
			return nil, &Error{Pos: tok.Pos, Macro: m.Name, Msg: "expansion too deep, recursive definition?"}
		}

		var body []token.Token
		if !m.function {
			body = m.instantiate(tok.Pos, nil)
		} else {
			if i+1 >= len(toks) || toks[i+1].Type != token.LPAREN {
				// A function macro name without a call is left alone.
				out = append(out, tok)
				continue
			}
			args, next, err := splitArgs(m.Name, toks, i+1)
			if err != nil {
				return nil, err
			}
			if len(args) != len(m.Params) {
				return nil, &Error{
					Pos:   tok.Pos,
					Macro: m.Name,
					Msg:   fmt.Sprintf("called with %d argument(s), defined with %d", len(args), len(m.Params)),
				}
			}
			body = m.instantiate(tok.Pos, args)
			i = next - 1
		}
		log.Trace("Expanding macro", "name", m.Name, "pos", tok.Pos)

		expanded, err := t.expand(body, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// instantiate copies the body, substituting arguments for parameters and
// moving every token to the call site.
func (m *Macro) instantiate(pos token.Position, args [][]token.Token) []token.Token {
	out := make([]token.Token, 0, len(m.Body))
	for _, tok := range m.Body {
		if tok.Type == token.IDENT {
			if idx := m.param(tok.Literal); idx >= 0 {
				out = append(out, args[idx]...)
				continue
			}
		}
		tok.Pos = pos
		out = append(out, tok)
	}
	return out
}

func (m *Macro) param(name string) int {
	for i, p := range m.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// splitArgs splits the call starting with the '(' at toks[open] into its
// top-level comma separated arguments. next is the index following the
// matching ')'.
func splitArgs(name string, toks []token.Token, open int) (args [][]token.Token, next int, err error) {
	depth := 0
	start := open + 1
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				if i > start || len(args) > 0 {
					args = append(args, toks[start:i])
				}
				for _, a := range args {
					if len(a) == 0 {
						return nil, 0, &Error{Pos: toks[i].Pos, Macro: name, Msg: "empty argument"}
					}
				}
				return args, i + 1, nil
			}
		case token.COMMA:
			if depth == 1 {
				args = append(args, toks[start:i])
				start = i + 1
			}
		}
	}
	return nil, 0, &Error{Pos: toks[open].Pos, Macro: name, Msg: "call without closing )"}
}

func stripEOF(toks []token.Token) []token.Token {
	if n := len(toks); n > 0 && toks[n-1].Type == token.EOF {
		return toks[:n-1]
	}
	return toks
}

// ExpandString lexes src, expands it with the given definitions and renders
// the result back to text.
func ExpandString(defs map[string]string, src string) (string, error) {
	t, err := NewTable(defs)
	if err != nil {
		return "", err
	}
	toks, err := t.Expand(lexer.New("", src, 0).Tokenize())
	if err != nil {
		return "", err
	}
	return token.Join(toks), nil
}
