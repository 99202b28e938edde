// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"fmt"

	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/token"
)

// The message catalog below matches the enumerated set in the engine's
// external interface contract: short ASCII strings, no implicit-coercion
// explanations, one shape per failure kind.

func errOOM() string              { return "oom" }
func errBadLHS() string           { return "bad lhs" }
func errBadExpr() string          { return "bad expr" }
func errParseError() string       { return "parse error" }
func errBadStrLiteral() string    { return "bad str literal" }
func errBadStrOp() string         { return "bad str op" }
func errTypeMismatch() string     { return "type mismatch" }
func errDivByZero() string        { return "div by zero" }
func errUnknownOp(op string) string { return fmt.Sprintf("unknown op %s", op) }
func errBadArg(n int) string      { return fmt.Sprintf("bad arg %d", n) }
func errBadSig() string           { return "bad sig" }
func errNumArgs() string          { return "num args" }
func errFFI() string              { return "ffi" }
func errNotInLoop() string        { return "not in loop" }
func errNotInFunc() string        { return "not in func" }
func errCallingNonFunction() string { return "calling non-function" }
func errLookupInNonObj() string   { return "lookup in non-obj" }
func errIdentExpected() string    { return "ident expected" }
func errExprTooDeep() string      { return "expr too deep" }
func errCStack() string           { return "C stack" }
func errBodyTooLong() string      { return "function body too long" }
func errNotFound(name string) string       { return fmt.Sprintf("'%s' not found", name) }
func errAlreadyDeclared(name string) string { return fmt.Sprintf("'%s' already declared", name) }
func errNotImplemented(kw string) string   { return fmt.Sprintf("'%s' not implemented", kw) }
func errUnexpectedToken(t token.Token) string {
	return fmt.Sprintf("unexpected token '%s'", t.Literal)
}

// fail records msg as the engine's current error, fast-forwards every
// active frame's cursor to end-of-input so no further side effects
// occur, and returns the singleton Error value. Once set, the message
// is sticky until the next top-level Eval call starts a fresh run.
func (ev *Evaluator) fail(msg string) arena.Value {
	if !ev.hasError {
		ev.hasError = true
		ev.errMsg = msg
	}
	for _, fr := range ev.frameStack {
		fr.cur = token.Token{Type: token.EOF}
		fr.pk = nil
	}
	if ev.fr != nil {
		ev.fr.cur = token.Token{Type: token.EOF}
		ev.fr.pk = nil
	}
	return arena.ErrVal
}

// Fail lets a native function defined outside this package raise a
// script-visible Error the same way a parse or type-check failure
// does: msg becomes ErrMsg, HasError becomes true, and the Error value
// is returned for the native to hand back as its own result.
func (ev *Evaluator) Fail(msg string) arena.Value { return ev.fail(msg) }

// ErrBadArg formats the catalog's "bad arg N" message for a native
// function outside this package, so a stdlib native rejecting its Nth
// argument (or a call-level constraint like a rate limit) reports the
// same shape fail() does internally instead of an ad hoc string.
func ErrBadArg(n int) string { return errBadArg(n) }
