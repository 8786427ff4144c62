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

// Package token defines the lexical token types of the QuantScript payoff
// language.
//
// Every literal is uppercased by the lexer, so keyword lookup and variable
// names are case-insensitive at the source level.
package token

import (
	"fmt"
	"strings"
)

// Token represents a lexical token.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

// Position tracks source location.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type is the set of lexical token types.
type Type int

const (
	// Special tokens
	ILLEGAL Type = iota
	EOF

	// Literals
	IDENT  // X, OPT, MAX
	NUMBER // 650, 0.5, .25

	// Operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
	CARET // ^

	// Comparison. A single '=' is both assignment and equality; the parser
	// decides from context.
	ASSIGN // =
	NEQ    // !=
	LT     // <
	GT     // >
	LTE    // <=
	GTE    // >=

	// Delimiters
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }
	COMMA  // ,

	keywordStart
	IF    // IF
	THEN  // THEN
	ELSE  // ELSE
	ENDIF // ENDIF
	PAYS  // PAYS
	AND   // AND
	OR    // OR
	keywordEnd
)

var tokenNames = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",

	PLUS:  "+",
	MINUS: "-",
	STAR:  "*",
	SLASH: "/",
	CARET: "^",

	ASSIGN: "=",
	NEQ:    "!=",
	LT:     "<",
	GT:     ">",
	LTE:    "<=",
	GTE:    ">=",

	LPAREN: "(",
	RPAREN: ")",
	LBRACE: "{",
	RBRACE: "}",
	COMMA:  ",",

	IF:    "IF",
	THEN:  "THEN",
	ELSE:  "ELSE",
	ENDIF: "ENDIF",
	PAYS:  "PAYS",
	AND:   "AND",
	OR:    "OR",
}

// String returns the string form of a token type.
func (t Type) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// IsKeyword returns true if the token is a keyword.
func (t Type) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// IsOperator returns true if the token is an arithmetic operator.
func (t Type) IsOperator() bool {
	return t >= PLUS && t <= CARET
}

// IsComparison returns true if the token can compare two expressions.
func (t Type) IsComparison() bool {
	return t >= ASSIGN && t <= GTE
}

// IsLiteral returns true if the token is a word.
func (t Type) IsLiteral() bool {
	return t == IDENT || t == NUMBER
}

// keywords maps keyword strings to token types.
var keywords map[string]Type

func init() {
	keywords = make(map[string]Type)
	for i := keywordStart + 1; i < keywordEnd; i++ {
		keywords[tokenNames[i]] = i
	}
}

// LookupIdent checks if an identifier is a keyword.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Join renders a token sequence back into script text. Adjacent words are
// separated by a space, comparisons and keywords are padded on both sides,
// everything else is written tight.
func Join(toks []Token) string {
	var b strings.Builder
	space := func() {
		if n := b.Len(); n > 0 && b.String()[n-1] != ' ' {
			b.WriteByte(' ')
		}
	}
	prevWord := false
	for _, tok := range toks {
		if tok.Type == EOF {
			break
		}
		padded := tok.Type.IsComparison() || tok.Type.IsKeyword()
		if padded || (tok.Type.IsLiteral() && prevWord) {
			space()
		}
		b.WriteString(tok.Literal)
		if padded {
			b.WriteByte(' ')
		}
		prevWord = tok.Type.IsLiteral()
	}
	return strings.TrimSpace(b.String())
}
