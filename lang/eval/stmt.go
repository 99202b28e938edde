// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/token"
)

// execStatement dispatches on the current token and returns the value
// of an expression statement, or of a block's last statement (used by
// top-level Eval to report the final statement's value); other
// statement forms return Undefined.
func (ev *Evaluator) execStatement() arena.Value {
	if ev.hasError {
		return arena.ErrVal
	}
	// Each statement's expression(s) get a fresh operator budget: this
	// is what actually bounds a long flat chain like `1+1+1+...`, since
	// it never recurses deeply enough to trip the recursion guard.
	ev.exprOps = 0
	switch ev.cur().Type {
	case token.LET:
		return ev.execLet()
	case token.IF:
		return ev.execIf()
	case token.WHILE:
		return ev.execWhile()
	case token.BREAK:
		return ev.execBreak()
	case token.CONTINUE:
		return ev.execContinue()
	case token.RETURN:
		return ev.execReturn()
	case token.LBRACE:
		return ev.execBlock()
	case token.SEMI:
		ev.next()
		return arena.Undefined
	default:
		if ev.cur().Type.IsNonFeature() {
			msg := errNotImplemented(ev.cur().Literal)
			ev.next()
			return ev.fail(msg)
		}
		return ev.execExprStatement()
	}
}

// execBlock executes `{ stmt* }` in a fresh child scope, applying the
// scope fast-path reclaim on exit.
func (ev *Evaluator) execBlock() arena.Value {
	if !ev.expect(token.LBRACE) {
		return arena.ErrVal
	}
	preScopeBrk, postScopeBrk, restore, ok := ev.pushScope()
	if !ok {
		return arena.ErrVal
	}
	var last arena.Value = arena.Undefined
	for !ev.at(token.RBRACE) && !ev.at(token.EOF) {
		// Once a return/break/continue flag is set, noExec is already
		// bumped, so every further call here just walks tokens to reach
		// the closing brace without side effects — there is no AST to
		// skip over instead.
		last = ev.execStatement()
	}
	if !ev.hasError {
		ev.expect(token.RBRACE)
	}
	ev.popScope(preScopeBrk, postScopeBrk, restore)
	return last
}

// execLet parses `let ident [= expr] (, ident [= expr])* ;`.
func (ev *Evaluator) execLet() arena.Value {
	ev.next() // consume 'let'
	scopeOff := arena.OffsetOf(ev.scope)
	for {
		if !ev.at(token.IDENT) {
			return ev.fail(errIdentExpected())
		}
		name := ev.next().Literal
		var val arena.Value = arena.Undefined
		if ev.at(token.ASSIGN) {
			ev.next()
			val = ev.deref(ev.parseAssignExpr())
			if ev.hasError {
				return arena.ErrVal
			}
		}
		if ev.noExec == 0 {
			if _, ok := ev.declare(scopeOff, name, val); !ok {
				return arena.ErrVal
			}
		}
		if !ev.at(token.COMMA) {
			break
		}
		ev.next()
	}
	if ev.at(token.SEMI) {
		ev.next()
	}
	return arena.Undefined
}

// execIf parses `if (cond) stmt [else stmt]`, running exactly one
// branch for effect and the other purely for syntax validation.
func (ev *Evaluator) execIf() arena.Value {
	ev.next()
	if !ev.expect(token.LPAREN) {
		return arena.ErrVal
	}
	cond := ev.deref(ev.parseExpr())
	if ev.hasError {
		return arena.ErrVal
	}
	if !ev.expect(token.RPAREN) {
		return arena.ErrVal
	}
	truthy := ev.truthy(cond)

	if truthy {
		ev.execStatement()
	} else {
		ev.noExec++
		ev.execStatement()
		ev.noExec--
	}
	if ev.hasError {
		return arena.ErrVal
	}

	if ev.at(token.ELSE) {
		ev.next()
		if truthy {
			ev.noExec++
			ev.execStatement()
			ev.noExec--
		} else {
			ev.execStatement()
		}
	}
	return arena.Undefined
}

// execWhile parses `while (cond) stmt`. The condition is re-scanned
// each iteration by rewinding the frame to right after the opening
// paren; the body runs on each true pass, and once the condition is
// false it is walked one more time in no-execute mode so the cursor
// always ends up past the whole construct.
func (ev *Evaluator) execWhile() arena.Value {
	ev.next()
	if !ev.expect(token.LPAREN) {
		return arena.ErrVal
	}
	condSnap := ev.fr.snapshot()

	ev.loopDepth++
	for {
		ev.fr.rewind(condSnap)
		cond := ev.deref(ev.parseExpr())
		if ev.hasError {
			ev.loopDepth--
			return arena.ErrVal
		}
		if !ev.expect(token.RPAREN) {
			ev.loopDepth--
			return arena.ErrVal
		}
		truthy := ev.truthy(cond)

		if !truthy {
			ev.noExec++
			ev.execStatement()
			ev.noExec--
			if ev.hasError {
				ev.loopDepth--
				return arena.ErrVal
			}
			break
		}

		ev.execStatement()
		if ev.hasError {
			ev.loopDepth--
			return arena.ErrVal
		}
		if ev.returnFlag {
			break
		}
		if ev.breakFlag {
			ev.breakFlag = false
			ev.noExec--
			break
		}
		if ev.continueFlag {
			ev.continueFlag = false
			ev.noExec--
		}
	}
	ev.loopDepth--
	return arena.Undefined
}

func (ev *Evaluator) execBreak() arena.Value {
	ev.next()
	if ev.at(token.SEMI) {
		ev.next()
	}
	if ev.loopDepth == 0 {
		return ev.fail(errNotInLoop())
	}
	if !ev.returnFlag && !ev.breakFlag && !ev.continueFlag {
		ev.breakFlag = true
		ev.noExec++
	}
	return arena.Undefined
}

func (ev *Evaluator) execContinue() arena.Value {
	ev.next()
	if ev.at(token.SEMI) {
		ev.next()
	}
	if ev.loopDepth == 0 {
		return ev.fail(errNotInLoop())
	}
	if !ev.returnFlag && !ev.breakFlag && !ev.continueFlag {
		ev.continueFlag = true
		ev.noExec++
	}
	return arena.Undefined
}

func (ev *Evaluator) execReturn() arena.Value {
	ev.next()
	if ev.callDepth == 0 {
		return ev.fail(errNotInFunc())
	}
	var val arena.Value = arena.Undefined
	if !ev.at(token.SEMI) && !ev.at(token.RBRACE) && !ev.at(token.EOF) {
		val = ev.deref(ev.parseExpr())
		if ev.hasError {
			return arena.ErrVal
		}
	}
	if ev.at(token.SEMI) {
		ev.next()
	}
	if !ev.returnFlag && !ev.breakFlag && !ev.continueFlag {
		ev.returnFlag = true
		ev.returnValue = val
		ev.noExec++
	}
	return arena.Undefined
}

func (ev *Evaluator) execExprStatement() arena.Value {
	val := ev.deref(ev.parseExpr())
	if ev.hasError {
		return arena.ErrVal
	}
	if ev.at(token.SEMI) {
		ev.next()
	}
	return val
}

// truthy: Booleans by value, Numbers non-zero, Strings non-empty,
// Objects and Functions always true, Null/Undefined false.
func (ev *Evaluator) truthy(v arena.Value) bool {
	switch arena.TypeOf(v) {
	case arena.TagBoolean:
		return arena.BoolPayload(v)
	case arena.TagNumber:
		return arena.AsNumber(v) != 0
	case arena.TagString:
		return ev.a.StringByteLen(arena.OffsetOf(v)) > 0
	case arena.TagObject, arena.TagFunction:
		return true
	case arena.TagNull, arena.TagUndefined:
		return false
	default:
		return false
	}
}
