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

package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := map[string]Type{
		"IF":    IF,
		"THEN":  THEN,
		"ELSE":  ELSE,
		"ENDIF": ENDIF,
		"PAYS":  PAYS,
		"AND":   AND,
		"OR":    OR,
		"MAX":   IDENT,
		"SPOT":  IDENT,
		"if":    IDENT, // lookup is on uppercased literals only
	}
	for lit, want := range tests {
		if got := LookupIdent(lit); got != want {
			t.Errorf("LookupIdent(%q) = %s, want %s", lit, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	toks := []Token{
		{Type: IDENT, Literal: "P"},
		{Type: ASSIGN, Literal: "="},
		{Type: IDENT, Literal: "MAX"},
		{Type: LPAREN, Literal: "("},
		{Type: IDENT, Literal: "X"},
		{Type: MINUS, Literal: "-"},
		{Type: NUMBER, Literal: "100"},
		{Type: COMMA, Literal: ","},
		{Type: NUMBER, Literal: "0"},
		{Type: RPAREN, Literal: ")"},
		{Type: EOF},
	}
	if got, want := Join(toks), "P = MAX(X-100,0)"; got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}

	toks = []Token{
		{Type: IF, Literal: "IF"},
		{Type: IDENT, Literal: "X"},
		{Type: GTE, Literal: ">="},
		{Type: NUMBER, Literal: "1"},
		{Type: THEN, Literal: "THEN"},
		{Type: IDENT, Literal: "Y"},
		{Type: PAYS, Literal: "PAYS"},
		{Type: NUMBER, Literal: "2"},
		{Type: ELSE, Literal: "ELSE"},
		{Type: ENDIF, Literal: "ENDIF"},
	}
	if got, want := Join(toks), "IF X >= 1 THEN Y PAYS 2 ELSE ENDIF"; got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}

func TestTypeString(t *testing.T) {
	if got := NEQ.String(); got != "!=" {
		t.Errorf("NEQ.String() = %q", got)
	}
	if got := Type(999).String(); got != "token(999)" {
		t.Errorf("Type(999).String() = %q", got)
	}
	if !PAYS.IsKeyword() || IDENT.IsKeyword() {
		t.Error("IsKeyword misclassifies PAYS or IDENT")
	}
}
