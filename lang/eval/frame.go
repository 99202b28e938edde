// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"github.com/probechain/melk/lang/lexer"
	"github.com/probechain/melk/lang/token"
)

// frame holds one source buffer's tokenizer position: the filename/text
// pair being scanned, plus a one-token lookahead buffer. The evaluator
// keeps a stack of these so that entering a function call can switch to
// the callee's own body buffer and later restore the caller's position
// exactly, without disturbing the caller's own lookahead.
type frame struct {
	src string
	lx  *lexer.Lexer
	cur token.Token
	pk  *token.Token
}

func newFrame(filename, src string) *frame {
	fr := &frame{src: src, lx: lexer.New(filename, src)}
	fr.cur = fr.lx.NextToken()
	return fr
}

// peek returns (without consuming) the token after cur.
func (fr *frame) peek() token.Token {
	if fr.pk == nil {
		t := fr.lx.NextToken()
		fr.pk = &t
	}
	return *fr.pk
}

// advance consumes cur, returning it, and shifts peek (if any) into cur.
func (fr *frame) advance() token.Token {
	prev := fr.cur
	if fr.pk != nil {
		fr.cur = *fr.pk
		fr.pk = nil
	} else {
		fr.cur = fr.lx.NextToken()
	}
	return prev
}

// pushFrame installs a new frame on top of the frame stack and makes it
// current, returning a function that restores the previous frame. The
// previous frame is kept reachable via ev.frameStack so fail() can
// fast-forward every active frame, not just the innermost one, matching
// the "propagation bubbles through every level" contract.
func (ev *Evaluator) pushFrame(filename, src string) func() {
	return ev.pushExistingFrame(newFrame(filename, src))
}

// pushExistingFrame installs an already-constructed frame (e.g. one
// positioned mid-parse by parseParamNames) as current, the way
// pushFrame installs a freshly lexed one.
func (ev *Evaluator) pushExistingFrame(fr *frame) func() {
	if ev.fr != nil {
		ev.frameStack = append(ev.frameStack, ev.fr)
	}
	ev.fr = fr
	return func() {
		n := len(ev.frameStack)
		if n == 0 {
			ev.fr = nil
			return
		}
		ev.fr = ev.frameStack[n-1]
		ev.frameStack = ev.frameStack[:n-1]
	}
}

func (ev *Evaluator) cur() token.Token  { return ev.fr.cur }
func (ev *Evaluator) peek() token.Token { return ev.fr.peek() }
func (ev *Evaluator) next() token.Token { return ev.fr.advance() }

// at reports whether the current token has type t.
func (ev *Evaluator) at(t token.Type) bool { return ev.fr.cur.Type == t }

// frameSnapshot captures a frame's tokenizer position so it can be
// rewound. The lexer's internal state is plain value fields (cursor,
// line, column, current byte), so a struct copy is a perfect snapshot
// — no separate position-tracking mechanism is needed to let a while
// loop re-scan its condition and body each iteration.
type frameSnapshot struct {
	lx  lexerState
	cur token.Token
	pk  *token.Token
}

// lexerState mirrors lexer.Lexer's copyable value; see frame.snapshot.
type lexerState = lexer.Lexer

func (fr *frame) snapshot() frameSnapshot {
	return frameSnapshot{lx: *fr.lx, cur: fr.cur, pk: fr.pk}
}

func (fr *frame) rewind(s frameSnapshot) {
	*fr.lx = s.lx
	fr.cur = s.cur
	fr.pk = s.pk
}

// expect consumes the current token if it has type t, else records an
// "unexpected token" error and returns false.
func (ev *Evaluator) expect(t token.Type) bool {
	if !ev.at(t) {
		ev.fail(errUnexpectedToken(ev.fr.cur))
		return false
	}
	ev.next()
	return true
}
