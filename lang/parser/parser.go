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

// Package parser builds the syntax tree of a QuantScript event.
//
// Design:
//   - Recursive descent over a materialised token slice. Sub-ranges such as
//     a parenthesised group or a function's argument list are parsed with an
//     explicit end bound found by a balanced-delimiter scan, so a group can
//     never consume tokens beyond its closer.
//   - Expression precedence, lowest first: sum (+ -), product (* /), power
//     (^), unary (+ -), atom. Condition precedence: OR, AND, comparison.
//   - Parsing is all-or-nothing: the first error aborts the event.
package parser

import (
	"fmt"
	"strconv"

	mapset "github.com/deckarep/golang-set"

	"github.com/probechain/quantscript/lang/ast"
	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/token"
)

// Error is a syntax error located in the script.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type config struct {
	filename    string
	strict      bool
	definitions mapset.Set // nil when none are declared
}

// Option configures a parse.
type Option func(*config)

// WithFilename sets the file name reported in positions.
func WithFilename(name string) Option {
	return func(c *config) { c.filename = name }
}

// Strict rejects characters the lexer does not recognise instead of
// skipping them.
func Strict() Option {
	return func(c *config) { c.strict = true }
}

// WithDefinitions declares read-only named inputs. A bare reference to one
// of these names parses as a DEFINITION node rather than a variable.
func WithDefinitions(names ...string) Option {
	return func(c *config) {
		if c.definitions == nil {
			c.definitions = mapset.NewThreadUnsafeSet()
		}
		for _, n := range names {
			c.definitions.Add(n)
		}
	}
}

func newConfig(opts []Option) *config {
	c := new(config)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// Builtin functions
// ---------------------------------------------------------------------------

// builtin describes a function callable from a script.
type builtin struct {
	kind    ast.Kind
	minArgs int
	maxArgs int
}

var builtins = map[string]builtin{
	"SPOT":  {ast.Spot, 0, 0},
	"SOLVE": {ast.Solve, 0, 0},
	"LOG":   {ast.Log, 1, 1},
	"SQRT":  {ast.Sqrt, 1, 1},
	"MIN":   {ast.Min, 2, ast.MaxArgs},
	"MAX":   {ast.Max, 2, ast.MaxArgs},
}

// IsBuiltin reports whether name is a reserved function name.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

var comparisons = map[token.Type]ast.Kind{
	token.ASSIGN: ast.Equal,
	token.NEQ:    ast.Different,
	token.GT:     ast.Superior,
	token.GTE:    ast.SupEqual,
	token.LT:     ast.Inferior,
	token.LTE:    ast.InfEqual,
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Parse tokenises src and parses it into one event.
func Parse(src string, opts ...Option) (*ast.Event, error) {
	cfg := newConfig(opts)
	var mode lexer.Mode
	if cfg.strict {
		mode = lexer.Strict
	}
	return parse(lexer.New(cfg.filename, src, mode).Tokenize(), cfg)
}

// ParseTokens parses an already tokenised (and possibly macro expanded)
// event. The slice may or may not end with an EOF token.
func ParseTokens(toks []token.Token, opts ...Option) (*ast.Event, error) {
	return parse(toks, newConfig(opts))
}

func parse(toks []token.Token, cfg *config) (*ast.Event, error) {
	if n := len(toks); n == 0 || toks[n-1].Type != token.EOF {
		eof := token.Token{Type: token.EOF}
		if n > 0 {
			eof.Pos = toks[n-1].Pos
		}
		toks = append(toks[:n:n], eof)
	}
	for _, tok := range toks {
		if tok.Type == token.ILLEGAL {
			return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("illegal character %q", tok.Literal)}
		}
	}
	p := &parser{
		toks: toks,
		ev:   new(ast.Event),
		defs: cfg.definitions,
	}
	end := len(toks) - 1
	for p.pos < end {
		stmt, err := p.parseStatement(end)
		if err != nil {
			return nil, err
		}
		p.ev.Statements = append(p.ev.Statements, stmt)
	}
	return p.ev, nil
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// parser holds the mutable state for a single parse run. Every method takes
// the exclusive end bound of the range it may consume.
type parser struct {
	toks []token.Token
	pos  int
	ev   *ast.Event
	defs mapset.Set
}

// cur returns the current token, or an EOF token positioned at the bound
// once the range is exhausted.
func (p *parser) cur(end int) token.Token {
	if p.pos >= end {
		return token.Token{Type: token.EOF, Pos: p.toks[end].Pos}
	}
	return p.toks[p.pos]
}

func (p *parser) isDefinition(name string) bool {
	return p.defs != nil && p.defs.Contains(name)
}

func (p *parser) curIs(end int, types ...token.Type) bool {
	typ := p.cur(end).Type
	for _, t := range types {
		if typ == t {
			return true
		}
	}
	return false
}

func (p *parser) errorf(pos token.Position, format string, args ...interface{}) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// unexpected reports the current token as out of place.
func (p *parser) unexpected(end int, context string) error {
	tok := p.cur(end)
	if tok.Type == token.EOF {
		return p.errorf(tok.Pos, "unexpected end of %s", context)
	}
	return p.errorf(tok.Pos, "unexpected %q in %s", tok.Literal, context)
}

// findMatch returns the index of the closer matching the opener at p.pos,
// or -1 if the opener is unbalanced before end.
func (p *parser) findMatch(open, close token.Type, end int) int {
	depth := 0
	for i := p.pos; i < end; i++ {
		switch p.toks[i].Type {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) parseStatement(end int) (ast.NodeID, error) {
	if p.curIs(end, token.IF) {
		return p.parseIf(end)
	}
	target, err := p.parseTarget(end)
	if err != nil {
		return 0, err
	}
	tok := p.cur(end)
	var kind ast.Kind
	switch tok.Type {
	case token.PAYS:
		kind = ast.Pays
	case token.ASSIGN:
		kind = ast.Assign
	case token.EOF:
		return 0, p.errorf(tok.Pos, "unexpected end of statement")
	default:
		return 0, p.errorf(tok.Pos, "statement without an instruction")
	}
	p.pos++
	rhs, err := p.parseExpr(end)
	if err != nil {
		return 0, err
	}
	return p.ev.NewNode(kind, tok.Pos, target, rhs), nil
}

// parseTarget parses the variable on the left of '=' or PAYS.
func (p *parser) parseTarget(end int) (ast.NodeID, error) {
	tok := p.cur(end)
	if tok.Type != token.IDENT {
		return 0, p.unexpected(end, "statement")
	}
	switch {
	case IsBuiltin(tok.Literal):
		return 0, p.errorf(tok.Pos, "%s is a reserved function name", tok.Literal)
	case p.isDefinition(tok.Literal):
		return 0, p.errorf(tok.Pos, "cannot assign to definition %s", tok.Literal)
	}
	return p.parseVar(tok)
}

// parseVar creates a VAR node after validating the name.
func (p *parser) parseVar(tok token.Token) (ast.NodeID, error) {
	if c := tok.Literal[0]; c < 'A' || c > 'Z' {
		return 0, p.errorf(tok.Pos, "variable name %s must start with a letter", tok.Literal)
	}
	p.pos++
	id := p.ev.NewNode(ast.Var, tok.Pos)
	p.ev.Nodes[id].Name = tok.Literal
	return id, nil
}

// parseIf parses
//
//	IF cond THEN stmt* [ELSE stmt*] ENDIF
//	IF cond { stmt* [ELSE { stmt* }] }
//
// Terminators must match the opener. In the braced form the else block sits
// inside the IF braces.
func (p *parser) parseIf(end int) (ast.NodeID, error) {
	ifTok := p.cur(end)
	p.pos++
	cond, err := p.parseCond(end)
	if err != nil {
		return 0, err
	}
	opener := p.cur(end)
	if opener.Type != token.THEN && opener.Type != token.LBRACE {
		return 0, p.errorf(opener.Pos, "IF condition must be followed by THEN or {")
	}
	p.pos++
	braced := opener.Type == token.LBRACE

	children := []ast.NodeID{cond}
	thenStmts, err := p.parseBlock(end)
	if err != nil {
		return 0, err
	}
	children = append(children, thenStmts...)
	firstElse := -1

	if braced {
		if p.curIs(end, token.ELSE) {
			p.pos++
			if tok := p.cur(end); tok.Type != token.LBRACE {
				return 0, p.errorf(tok.Pos, "ELSE inside { must open a { block")
			}
			p.pos++
			elseStmts, err := p.parseBlock(end)
			if err != nil {
				return 0, err
			}
			firstElse = len(children)
			children = append(children, elseStmts...)
			if err := p.expectCloser(end, token.RBRACE, ifTok); err != nil {
				return 0, err
			}
		}
		if err := p.expectCloser(end, token.RBRACE, ifTok); err != nil {
			return 0, err
		}
	} else {
		if p.curIs(end, token.ELSE) {
			p.pos++
			elseStmts, err := p.parseBlock(end)
			if err != nil {
				return 0, err
			}
			firstElse = len(children)
			children = append(children, elseStmts...)
		}
		if err := p.expectCloser(end, token.ENDIF, ifTok); err != nil {
			return 0, err
		}
	}

	id := p.ev.NewNode(ast.If, ifTok.Pos, children...)
	p.ev.Nodes[id].FirstElse = firstElse
	return id, nil
}

// parseBlock parses statements up to the next ELSE, ENDIF or '}'.
func (p *parser) parseBlock(end int) ([]ast.NodeID, error) {
	var stmts []ast.NodeID
	for !p.curIs(end, token.ELSE, token.ENDIF, token.RBRACE, token.EOF) {
		stmt, err := p.parseStatement(end)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) expectCloser(end int, want token.Type, ifTok token.Token) error {
	tok := p.cur(end)
	switch tok.Type {
	case want:
		p.pos++
		return nil
	case token.EOF:
		return p.errorf(ifTok.Pos, "IF without closing %s", want)
	case token.ELSE:
		return p.errorf(tok.Pos, "unexpected ELSE, expected %s", want)
	default:
		return p.errorf(tok.Pos, "IF block closed by %s, expected %s", tok.Literal, want)
	}
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

func (p *parser) parseCond(end int) (ast.NodeID, error) {
	lhs, err := p.parseCondAnd(end)
	if err != nil {
		return 0, err
	}
	for p.curIs(end, token.OR) {
		tok := p.cur(end)
		p.pos++
		rhs, err := p.parseCondAnd(end)
		if err != nil {
			return 0, err
		}
		lhs = p.ev.NewNode(ast.Or, tok.Pos, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseCondAnd(end int) (ast.NodeID, error) {
	lhs, err := p.parseCondElem(end)
	if err != nil {
		return 0, err
	}
	for p.curIs(end, token.AND) {
		tok := p.cur(end)
		p.pos++
		rhs, err := p.parseCondElem(end)
		if err != nil {
			return 0, err
		}
		lhs = p.ev.NewNode(ast.And, tok.Pos, lhs, rhs)
	}
	return lhs, nil
}

// parseCondElem parses a comparison or a parenthesised sub-condition.
func (p *parser) parseCondElem(end int) (ast.NodeID, error) {
	if p.curIs(end, token.LPAREN) {
		closer := p.findMatch(token.LPAREN, token.RPAREN, end)
		if closer < 0 {
			return 0, p.errorf(p.cur(end).Pos, "unmatched (")
		}
		if p.isCondGroup(closer) {
			p.pos++
			cond, err := p.parseCond(closer)
			if err != nil {
				return 0, err
			}
			if p.pos != closer {
				return 0, p.unexpected(closer, "condition")
			}
			p.pos = closer + 1
			return cond, nil
		}
	}
	lhs, err := p.parseExpr(end)
	if err != nil {
		return 0, err
	}
	tok := p.cur(end)
	kind, ok := comparisons[tok.Type]
	if !ok {
		if tok.Type == token.EOF {
			return 0, p.errorf(tok.Pos, "unexpected end of condition")
		}
		return 0, p.errorf(tok.Pos, "expected comparison operator, got %q", tok.Literal)
	}
	p.pos++
	rhs, err := p.parseExpr(end)
	if err != nil {
		return 0, err
	}
	return p.ev.NewNode(kind, tok.Pos, lhs, rhs), nil
}

// isCondGroup reports whether the group opened at p.pos and closed at closer
// holds a condition, i.e. a comparison or AND/OR at its own nesting level.
func (p *parser) isCondGroup(closer int) bool {
	depth := 0
	for i := p.pos + 1; i < closer; i++ {
		switch typ := p.toks[i].Type; {
		case typ == token.LPAREN:
			depth++
		case typ == token.RPAREN:
			depth--
		case depth == 0 && (typ.IsComparison() || typ == token.AND || typ == token.OR):
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *parser) parseExpr(end int) (ast.NodeID, error) {
	lhs, err := p.parseProduct(end)
	if err != nil {
		return 0, err
	}
	for p.curIs(end, token.PLUS, token.MINUS) {
		tok := p.cur(end)
		p.pos++
		rhs, err := p.parseProduct(end)
		if err != nil {
			return 0, err
		}
		kind := ast.Add
		if tok.Type == token.MINUS {
			kind = ast.Sub
		}
		lhs = p.ev.NewNode(kind, tok.Pos, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseProduct(end int) (ast.NodeID, error) {
	lhs, err := p.parsePower(end)
	if err != nil {
		return 0, err
	}
	for p.curIs(end, token.STAR, token.SLASH) {
		tok := p.cur(end)
		p.pos++
		rhs, err := p.parsePower(end)
		if err != nil {
			return 0, err
		}
		kind := ast.Mul
		if tok.Type == token.SLASH {
			kind = ast.Div
		}
		lhs = p.ev.NewNode(kind, tok.Pos, lhs, rhs)
	}
	return lhs, nil
}

// parsePower is left associative: 2^3^2 is (2^3)^2.
func (p *parser) parsePower(end int) (ast.NodeID, error) {
	lhs, err := p.parseUnary(end)
	if err != nil {
		return 0, err
	}
	for p.curIs(end, token.CARET) {
		tok := p.cur(end)
		p.pos++
		rhs, err := p.parseUnary(end)
		if err != nil {
			return 0, err
		}
		lhs = p.ev.NewNode(ast.Pow, tok.Pos, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseUnary(end int) (ast.NodeID, error) {
	if !p.curIs(end, token.PLUS, token.MINUS) {
		return p.parseAtom(end)
	}
	tok := p.cur(end)
	p.pos++
	operand, err := p.parseUnary(end)
	if err != nil {
		return 0, err
	}
	kind := ast.Uplus
	if tok.Type == token.MINUS {
		kind = ast.Uminus
	}
	return p.ev.NewNode(kind, tok.Pos, operand), nil
}

func (p *parser) parseAtom(end int) (ast.NodeID, error) {
	tok := p.cur(end)
	switch tok.Type {
	case token.NUMBER:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return 0, p.errorf(tok.Pos, "%s is not a number", tok.Literal)
		}
		p.pos++
		id := p.ev.NewNode(ast.Const, tok.Pos)
		p.ev.Nodes[id].Value = v
		return id, nil

	case token.LPAREN:
		closer := p.findMatch(token.LPAREN, token.RPAREN, end)
		if closer < 0 {
			return 0, p.errorf(tok.Pos, "unmatched (")
		}
		p.pos++
		expr, err := p.parseExpr(closer)
		if err != nil {
			return 0, err
		}
		if p.pos != closer {
			return 0, p.unexpected(closer, "parenthesised expression")
		}
		p.pos = closer + 1
		return expr, nil

	case token.IDENT:
		if fn, ok := builtins[tok.Literal]; ok {
			return p.parseCall(end, tok, fn)
		}
		if p.isDefinition(tok.Literal) {
			p.pos++
			id := p.ev.NewNode(ast.Definition, tok.Pos)
			p.ev.Nodes[id].Name = tok.Literal
			return id, nil
		}
		return p.parseVar(tok)
	}
	return 0, p.unexpected(end, "expression")
}

// parseCall parses a builtin function call and checks its arity.
func (p *parser) parseCall(end int, name token.Token, fn builtin) (ast.NodeID, error) {
	p.pos++
	if !p.curIs(end, token.LPAREN) {
		return 0, p.errorf(name.Pos, "%s must be followed by (", name.Literal)
	}
	closer := p.findMatch(token.LPAREN, token.RPAREN, end)
	if closer < 0 {
		return 0, p.errorf(p.cur(end).Pos, "unmatched (")
	}
	p.pos++

	var args []ast.NodeID
	for p.pos < closer {
		arg, err := p.parseExpr(closer)
		if err != nil {
			return 0, err
		}
		args = append(args, arg)
		if p.pos == closer {
			break
		}
		if !p.curIs(closer, token.COMMA) {
			return 0, p.unexpected(closer, name.Literal+" arguments")
		}
		p.pos++
		if p.pos == closer {
			return 0, p.errorf(p.toks[closer].Pos, "missing argument after , in %s", name.Literal)
		}
	}
	p.pos = closer + 1

	if n := len(args); n < fn.minArgs || n > fn.maxArgs {
		if fn.minArgs == fn.maxArgs {
			return 0, p.errorf(name.Pos, "%s takes %d argument(s), got %d", name.Literal, fn.minArgs, n)
		}
		return 0, p.errorf(name.Pos, "%s takes %d to %d arguments, got %d", name.Literal, fn.minArgs, fn.maxArgs, n)
	}
	return p.ev.NewNode(fn.kind, name.Pos, args...), nil
}
