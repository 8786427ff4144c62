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

package macro_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/quantscript/lang/lexer"
	"github.com/probechain/quantscript/lang/macro"
	"github.com/probechain/quantscript/lang/token"
)

var callDefs = map[string]string{
	"STRIKE":    "100",
	"CALL(S,K)": "MAX(S-K,0)",
}

func TestExpand(t *testing.T) {
	tests := []struct {
		defs map[string]string
		src  string
		want string
	}{
		{callDefs, "P = CALL(X,STRIKE)", "P = MAX(X-100,0)"},
		{callDefs, "P = CALL(X,5)", "P = MAX(X-5,0)"},
		{callDefs, "P = CALL(MAX(A,B), STRIKE / 2)", "P = MAX(MAX(A,B)-100/2,0)"},
		{callDefs, "P = STRIKE * STRIKE", "P = 100*100"},
		{callDefs, "P = CALL", "P = CALL"},
		{callDefs, "IF SPOT() > STRIKE THEN P PAYS 1 ENDIF", "IF SPOT() > 100 THEN P PAYS 1 ENDIF"},
		{
			map[string]string{"DOUBLE(A)": "2*A", "CALL(S,K)": "MAX(S-K,0)"},
			"P = DOUBLE(CALL(X,1))",
			"P = 2*MAX(X-1,0)",
		},
		{map[string]string{"ONE()": "1"}, "X = ONE() + ONE()", "X = 1+1"},
		{map[string]string{"strike": "100"}, "p = strike", "P = 100"},
		{nil, "X = 1", "X = 1"},
	}
	for _, tt := range tests {
		got, err := macro.ExpandString(tt.defs, tt.src)
		require.NoError(t, err, "expand %q", tt.src)
		assert.Equal(t, tt.want, got, "expand %q", tt.src)
	}
}

func TestArgumentCountMismatch(t *testing.T) {
	for _, src := range []string{"P = CALL(X)", "P = CALL(X, 1, 2)", "P = CALL()"} {
		_, err := macro.ExpandString(callDefs, src)
		var merr *macro.Error
		require.True(t, errors.As(err, &merr), "expand %q: got %v", src, err)
		assert.Equal(t, "CALL", merr.Macro)
		assert.Contains(t, merr.Msg, "defined with 2")
	}
}

func TestExpansionErrors(t *testing.T) {
	tests := []struct {
		defs map[string]string
		src  string
		want string
	}{
		{callDefs, "P = CALL(X, 1", "call without closing )"},
		{callDefs, "P = CALL(X, )", "empty argument"},
		{map[string]string{"LOOP": "LOOP + 1"}, "X = LOOP", "expansion too deep"},
		{map[string]string{"A": "B", "B": "A"}, "X = A", "expansion too deep"},
	}
	for _, tt := range tests {
		_, err := macro.ExpandString(tt.defs, tt.src)
		var merr *macro.Error
		require.True(t, errors.As(err, &merr), "expand %q: got %v", tt.src, err)
		assert.Contains(t, merr.Msg, tt.want)
	}
}

func TestMalformedSignatures(t *testing.T) {
	for _, sig := range []string{"CALL(S,,K)", "CALL(S", "(S)", "CALL(S,S)", "CALL(S,)", "CALL(1)", "CALL;"} {
		_, err := macro.NewTable(map[string]string{sig: "S"})
		var merr *macro.Error
		assert.True(t, errors.As(err, &merr), "signature %q: got %v", sig, err)
	}
}

func TestExpandedPositions(t *testing.T) {
	table, err := macro.NewTable(callDefs)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	toks, err := table.Expand(lexer.New("ev.qs", "P =\n  CALL(X, 1)", 0).Tokenize())
	require.NoError(t, err)
	require.Equal(t, token.EOF, toks[len(toks)-1].Type)

	// MAX comes from the body and takes the call-site position; X keeps its
	// own.
	assert.Equal(t, "MAX", toks[2].Literal)
	assert.Equal(t, 2, toks[2].Pos.Line)
	assert.Equal(t, 3, toks[2].Pos.Column)
	assert.Equal(t, "X", toks[4].Literal)
	assert.Equal(t, 8, toks[4].Pos.Column)

	m, ok := table.Lookup("CALL")
	require.True(t, ok)
	assert.Equal(t, []string{"S", "K"}, m.Params)
}
