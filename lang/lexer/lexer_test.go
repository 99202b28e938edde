// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lexer

import (
	"testing"

	"github.com/probechain/melk/lang/token"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestNextTokenPunctuators(t *testing.T) {
	input := `+ - * ** / % ~ & | ^ ! << >> >>> === !== < > <= >=
&& || = += -= *= /= %= &= |= ^= <<= >>= >>>= **= ++ -- . , ; : ? ( ) [ ] { }`

	want := []token.Type{
		token.PLUS, token.MINUS, token.STAR, token.STARSTAR, token.SLASH, token.PERCENT,
		token.TILDE, token.AMP, token.PIPE, token.CARET, token.BANG,
		token.LSHIFT, token.RSHIFT, token.URSHIFT,
		token.SEQ, token.SNE, token.LT, token.GT, token.LTE, token.GTE,
		token.LAND, token.LOR,
		token.ASSIGN, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ, token.PERCENTEQ,
		token.AMPEQ, token.PIPEEQ, token.CARETEQ, token.LSHIFTEQ, token.RSHIFTEQ, token.URSHIFTEQ, token.STARSTAREQ,
		token.INC, token.DEC,
		token.DOT, token.COMMA, token.SEMI, token.COLON, token.QUESTION,
		token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET, token.LBRACE, token.RBRACE,
		token.EOF,
	}

	l := New("test.melk", input)
	toks := l.Tokenize()
	require.Equal(t, want, tokenTypes(toks))
}

func TestNextTokenIdentifiersAndKeywords(t *testing.T) {
	input := `let x = function(y) { if (y) { return y; } else { while (true) { break; continue; } } };
typeof x; true; false; null; undefined; _priv $dollar`

	l := New("test.melk", input)
	toks := l.Tokenize()

	require.Equal(t, token.LET, toks[0].Type)
	require.Equal(t, token.IDENT, toks[1].Type)
	require.Equal(t, "x", toks[1].Literal)
	require.Equal(t, token.FUNCTION, toks[3].Type)

	foundTypeof, foundDollar := false, false
	for _, tok := range toks {
		if tok.Type == token.TYPEOF {
			foundTypeof = true
		}
		if tok.Type == token.IDENT && tok.Literal == "$dollar" {
			foundDollar = true
		}
	}
	require.True(t, foundTypeof)
	require.True(t, foundDollar)
}

func TestNextTokenNonFeatureKeywords(t *testing.T) {
	input := `for switch try class new this delete var const yield with instanceof`
	l := New("test.melk", input)
	toks := l.Tokenize()
	for _, tok := range toks {
		if tok.Type == token.EOF {
			continue
		}
		require.True(t, tok.Type.IsNonFeature(), "expected %q to lex as a non-feature keyword", tok.Literal)
	}
}

func TestNextTokenNumbers(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"0xFF", "0xFF"},
		{"0x1a2B", "0x1a2B"},
		{"1e10", "1e10"},
		{"1.5e-3", "1.5e-3"},
		{"0", "0"},
	}
	for _, c := range cases {
		l := New("test.melk", c.input)
		tok := l.NextToken()
		require.Equal(t, token.NUMBER, tok.Type, "input %q", c.input)
		require.Equal(t, c.want, tok.Literal, "input %q", c.input)
	}
}

func TestNextTokenStrings(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb\r"`, "a\tb\r"},
		{`"it\'s"`, "it's"},
		{`'she said \"hi\"'`, `she said "hi"`},
		{`"\x41\x42"`, "AB"},
		{`""`, ""},
	}
	for _, c := range cases {
		l := New("test.melk", c.input)
		tok := l.NextToken()
		require.Equal(t, token.STRING, tok.Type, "input %q", c.input)
		require.Equal(t, c.want, tok.Literal, "input %q", c.input)
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New("test.melk", `"unterminated`)
	tok := l.NextToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
}

func TestNextTokenUnterminatedBlockComment(t *testing.T) {
	l := New("test.melk", `/* oops`)
	tok := l.NextToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
}

func TestNextTokenComments(t *testing.T) {
	input := `// line comment
let /* inline */ x = 1;`
	l := New("test.melk", input)
	toks := l.Tokenize()
	require.Equal(t, token.LET, toks[0].Type)
	require.Equal(t, token.IDENT, toks[1].Type)
	require.Equal(t, token.ASSIGN, toks[2].Type)
	require.Equal(t, token.NUMBER, toks[3].Type)
}

func TestNextTokenIllegalByte(t *testing.T) {
	l := New("test.melk", "@")
	tok := l.NextToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
}

func TestNextTokenGTSplitting(t *testing.T) {
	l := New("test.melk", "a >> b")
	toks := l.Tokenize()
	require.Equal(t, []token.Type{token.IDENT, token.RSHIFT, token.IDENT, token.EOF}, tokenTypes(toks))
}
