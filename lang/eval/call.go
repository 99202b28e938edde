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

// parseCall dispatches a call expression, entered with the opening '('
// as the current token: resolve the callee, bound the nesting depth,
// then hand off to the native or script calling convention.
func (ev *Evaluator) parseCall(calleeVal arena.Value) arena.Value {
	fn := ev.deref(calleeVal)
	if ev.hasError {
		return arena.ErrVal
	}
	ev.next() // '('

	// Once fail() runs it force-advances every active frame to EOF, so
	// there is no need to first walk past the argument list here: any
	// tokens still sitting in it will simply never be read.
	if arena.TypeOf(fn) != arena.TagFunction {
		return ev.fail(errCallingNonFunction())
	}

	ev.callDepth++
	if ev.callDepth > ev.MaxCallDepth {
		ev.callDepth--
		return ev.fail(errCStack())
	}

	var result arena.Value
	if arena.IsNativeFunction(fn) {
		result = ev.callNativeSite(fn)
	} else {
		result = ev.callScript(fn)
	}
	ev.callDepth--
	return result
}

// callNativeSite evaluates every argument eagerly, by value, in the
// caller's own scope, then dispatches through the native bridge —
// ordinary call-by-value, unlike the deferred binding script calls use.
func (ev *Evaluator) callNativeSite(fn arena.Value) arena.Value {
	var args []arena.Value
	if !ev.at(token.RPAREN) {
		for {
			v := ev.deref(ev.parseAssignExpr())
			if ev.hasError {
				return arena.ErrVal
			}
			args = append(args, v)
			if ev.at(token.COMMA) {
				ev.next()
				continue
			}
			break
		}
	}
	if !ev.expect(token.RPAREN) {
		return arena.ErrVal
	}
	if ev.noExec > 0 {
		return arena.Undefined
	}
	return ev.callNative(arena.NativeFunctionIndex(fn), args)
}

// callScript binds parameters one at a time against the *caller's*
// token stream, with the evaluator's current scope already switched to
// the new callee scope, so each bound parameter is visible to the
// expression that binds the next one (e.g. `f(x, x+1)`).
func (ev *Evaluator) callScript(fn arena.Value) arena.Value {
	bodySrc := string(ev.a.StringBytes(arena.ScriptFunctionOffset(fn)))

	bodyFrame := newFrame("<function>", bodySrc)
	paramNames := parseParamNames(bodyFrame)

	preScopeBrk, postScopeBrk, restoreScope, ok := ev.pushScope()
	if !ok {
		return arena.ErrVal
	}

	exhausted := false
	for i, name := range paramNames {
		var val arena.Value = arena.Undefined
		if !exhausted && i > 0 {
			if ev.at(token.COMMA) {
				ev.next()
			} else {
				exhausted = true
			}
		}
		if !exhausted {
			if ev.at(token.RPAREN) {
				exhausted = true
			} else {
				val = ev.deref(ev.parseAssignExpr())
				if ev.hasError {
					ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
					return arena.ErrVal
				}
			}
		}
		if ev.noExec == 0 {
			ev.declare(arena.OffsetOf(ev.scope), name, val)
			if ev.hasError {
				ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
				return arena.ErrVal
			}
		}
	}
	// Extra supplied arguments beyond the parameter count (including
	// every argument, when the function takes none at all) are still
	// evaluated for side effects and discarded, matching ordinary
	// call-site evaluation order.
	if len(paramNames) == 0 && !ev.at(token.RPAREN) {
		ev.parseAssignExpr()
		if ev.hasError {
			ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
			return arena.ErrVal
		}
	}
	for ev.at(token.COMMA) {
		ev.next()
		ev.parseAssignExpr()
		if ev.hasError {
			ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
			return arena.ErrVal
		}
	}
	if !ev.expect(token.RPAREN) {
		ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
		return arena.ErrVal
	}

	if ev.noExec > 0 {
		ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
		return arena.Undefined
	}

	// loopDepth is scoped to the call: a break/continue textually inside
	// the callee's own body must not see the caller's enclosing loop.
	savedLoopDepth := ev.loopDepth
	ev.loopDepth = 0
	restoreFrame := ev.pushExistingFrame(bodyFrame)
	ev.execBlock()
	restoreFrame()
	ev.loopDepth = savedLoopDepth

	var result arena.Value = arena.Undefined
	if ev.hasError {
		ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
		return arena.ErrVal
	}
	if ev.returnFlag {
		result = ev.returnValue
		ev.returnFlag = false
		ev.returnValue = arena.Undefined
		ev.noExec--
	}
	ev.popScope(preScopeBrk, postScopeBrk, restoreScope)
	return result
}

// parseParamNames decodes a captured function literal's parameter
// list directly from its own frame, starting at '('. The parameter list
// was already checked to be an identifier list when the literal was
// declared, so this never needs to report a syntax error — only to collect names
// and leave the frame positioned at the body's opening '{'.
func parseParamNames(fr *frame) []string {
	fr.advance() // '('
	var names []string
	for fr.cur.Type != token.RPAREN {
		if fr.cur.Type == token.IDENT {
			names = append(names, fr.cur.Literal)
		}
		fr.advance()
	}
	fr.advance() // ')'
	return names
}
