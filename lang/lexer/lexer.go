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

// Package lexer implements the tokenizer for QuantScript event scripts.
//
// Token classes:
//   - Words: runs of letters, digits, '_' and '.'; NUMBER when the first
//     character is a digit or '.', keyword or IDENT otherwise
//   - Operators and delimiters: + - * / ^ ( ) { } ,
//   - Comparisons: != >= <= first, then < > =
//
// All literals are uppercased. A character that belongs to no class is
// skipped and recorded (see Dropped); in Strict mode it becomes an ILLEGAL
// token instead, which the parser rejects.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/quantscript/lang/token"
)

// Mode controls lexer behaviour.
type Mode uint

const (
	// Strict reports unrecognised characters as ILLEGAL tokens rather than
	// skipping them.
	Strict Mode = 1 << iota
)

// Skipped describes a character the lexer discarded.
type Skipped struct {
	Char rune
	Pos  token.Position
}

// Lexer holds the state for a single-pass tokenization run.
type Lexer struct {
	filename string
	input    []byte
	mode     Mode

	// pos is the index into input of the next byte to be loaded into ch.
	// After advance(), ch == input[pos-1] and pos points one past it.
	pos  int
	line int // 1-based current line number
	col  int // 1-based current column number

	ch byte // current character; 0 when past end

	dropped []Skipped
}

// New creates a new Lexer for the given filename and input string.
func New(filename, input string, mode Mode) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    []byte(input),
		mode:     mode,
		line:     1,
		col:      0,
	}
	l.advance() // prime l.ch with the first byte
	return l
}

// advance moves to the next byte in the input, updating line/column tracking.
// When the end of input is reached, ch is set to 0.
func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input) + 1
		return
	}
	l.ch = l.input[l.pos]
	l.pos++
}

// currentPos returns a token.Position capturing the lexer's state right now.
// Call this before consuming the first character of a token.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		File:   l.filename,
		Line:   l.line,
		Column: l.col,
		Offset: l.pos - 1,
	}
}

func makeToken(typ token.Type, literal string, pos token.Position) token.Token {
	return token.Token{Type: typ, Literal: literal, Pos: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.advance()
	}
}

// NextToken scans and returns the next token from the input.
// After EOF is reached, subsequent calls continue returning EOF tokens.
func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()

		pos := l.currentPos()
		ch := l.ch
		if ch == 0 && l.pos > len(l.input) {
			return makeToken(token.EOF, "", pos)
		}
		if isWordChar(ch) {
			return l.readWord(pos)
		}
		if tok, ok := l.readOperator(pos); ok {
			return tok
		}

		// Nothing matched: consume one whole rune.
		r, size := utf8.DecodeRune(l.input[l.pos-1:])
		for i := 0; i < size; i++ {
			l.advance()
		}
		if l.mode&Strict != 0 {
			return makeToken(token.ILLEGAL, string(r), pos)
		}
		l.dropped = append(l.dropped, Skipped{Char: r, Pos: pos})
		log.Debug("Dropped unrecognised character", "char", string(r), "pos", pos)
	}
}

// readWord consumes a run of word characters starting at the current one.
func (l *Lexer) readWord(pos token.Position) token.Token {
	start := l.pos - 1
	for isWordChar(l.ch) && l.pos <= len(l.input) {
		l.advance()
	}
	end := l.pos - 1
	if end > len(l.input) {
		end = len(l.input)
	}
	lit := strings.ToUpper(string(l.input[start:end]))
	if isDigit(lit[0]) || lit[0] == '.' {
		return makeToken(token.NUMBER, lit, pos)
	}
	return makeToken(token.LookupIdent(lit), lit, pos)
}

// readOperator recognises operators, delimiters and comparisons.
func (l *Lexer) readOperator(pos token.Position) (token.Token, bool) {
	ch := l.ch
	var typ token.Type
	switch ch {
	case '+':
		typ = token.PLUS
	case '-':
		typ = token.MINUS
	case '*':
		typ = token.STAR
	case '/':
		typ = token.SLASH
	case '^':
		typ = token.CARET
	case '(':
		typ = token.LPAREN
	case ')':
		typ = token.RPAREN
	case '{':
		typ = token.LBRACE
	case '}':
		typ = token.RBRACE
	case ',':
		typ = token.COMMA
	case '=':
		typ = token.ASSIGN
	case '<':
		typ = token.LT
		if l.peek() == '=' {
			typ = token.LTE
		}
	case '>':
		typ = token.GT
		if l.peek() == '=' {
			typ = token.GTE
		}
	case '!':
		if l.peek() != '=' {
			return token.Token{}, false
		}
		typ = token.NEQ
	default:
		return token.Token{}, false
	}
	lit := typ.String()
	for range lit {
		l.advance()
	}
	return makeToken(typ, lit, pos), true
}

// peek returns the byte after the current character without consuming it.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// Tokenize returns all tokens in the input, ending with EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

// Dropped returns the characters skipped so far. Always empty in Strict
// mode.
func (l *Lexer) Dropped() []Skipped {
	return l.dropped
}

// Tokenize is a convenience wrapper lexing src in the default mode.
func Tokenize(src string) []token.Token {
	return New("", src, 0).Tokenize()
}

func isWordChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '.'
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
