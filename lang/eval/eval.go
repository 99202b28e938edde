// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package eval implements the single-pass recursive-descent
// parser/evaluator: there is no AST and no bytecode. Expressions and
// statements are interpreted as they are parsed; when a branch must be
// skipped (a dead if/else arm, the untaken side of a ternary, the once
// body-parse of a false while condition) the evaluator enters a
// no-execute depth that suppresses allocation, operators and native
// calls while still walking every token, since there is no tree to skip
// over. A function literal's body is not walked this way when it is
// declared: only its parameter list and brace balance are checked, and
// a syntax error inside the body surfaces on the first call.
package eval

import (
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/token"
)

const (
	// DefaultMaxExprDepth bounds how many operators a single,
	// non-nested expression may chain (the flat-scan equivalent of a
	// fixed-size operator/value stack): `1+1+1+...` eventually trips
	// this even though it never recurses.
	DefaultMaxExprDepth = 64
	// DefaultMaxRecursionDepth bounds how deeply expression parsing may
	// recurse into itself — parenthesised grouping and prefix-operator
	// chains are the two unbounded recursion sources — substituting an
	// Error value for a host stack overflow.
	DefaultMaxRecursionDepth = 64
	// DefaultMaxCallDepth bounds script call and native-reentrancy
	// nesting, substituting for host stack depth so recursion failures
	// are an Error value, not a segfault.
	DefaultMaxCallDepth = 200
)

// Evaluator holds every piece of mutable state a running eval needs:
// the arena it allocates into, the stack of source frames it is
// scanning, the live scope chain, the registered native closures, and
// the control-flow/error flags that the no-execute design threads
// through ordinary recursive descent instead of a separate signal type.
type Evaluator struct {
	a *arena.Arena

	fr         *frame
	frameStack []*frame

	scope       arena.Value
	globalScope arena.Value

	natives []NativeFunc

	hasError bool
	errMsg   string

	noExec int

	loopDepth    int
	breakFlag    bool
	continueFlag bool

	callDepth   int
	returnFlag  bool
	returnValue arena.Value

	recurDepth int
	exprOps    int

	// identNames interns names looked up but not found at resolution
	// time, so a bare identifier used as an assignment target can still
	// create a global binding without resolveIdent having to know in
	// advance whether it is about to be read or written.
	identNames []string

	MaxExprDepth      int
	MaxRecursionDepth int
	MaxCallDepth      int

	// GCThreshold is the percent-used watermark below which Collect is
	// skipped between top-level statements (the CLI's -gct flag). It is
	// a pure performance knob: at threshold 0 the engine behaves exactly
	// as if GC ran unconditionally every statement.
	GCThreshold int
}

// New creates an Evaluator over a freshly constructed global scope
// Object. Per arena.New's contract the very first allocation lands at
// offset 0, so the global scope is always reachable at a fixed offset.
func New(a *arena.Arena) (*Evaluator, error) {
	global, err := a.NewObjectEntity(0)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		a:                 a,
		scope:             global,
		globalScope:       global,
		MaxExprDepth:      DefaultMaxExprDepth,
		MaxRecursionDepth: DefaultMaxRecursionDepth,
		MaxCallDepth:      DefaultMaxCallDepth,
	}, nil
}

// Global returns the global scope Object value (engine.Glob).
func (ev *Evaluator) Global() arena.Value { return ev.globalScope }

// Arena exposes the underlying arena for the public API layer.
func (ev *Evaluator) Arena() *arena.Arena { return ev.a }

// HasError reports whether the most recent Eval call produced an Error.
func (ev *Evaluator) HasError() bool { return ev.hasError }

// ErrMsg returns the stored message of the most recent Error, matching
// the engine header's fixed errmsg field.
func (ev *Evaluator) ErrMsg() string { return ev.errMsg }

// Eval evaluates source as a sequence of statements and returns the
// value of the last one, or the Error value. Each call starts a fresh
// run: the error flag, control-flow flags and recursion counters reset,
// but all arena state and global bindings persist across calls, so the
// engine remains usable for subsequent evaluations.
//
// Eval is reentrant: a native may call it (EvalFile's require-style
// re-evaluation is built on this) while an outer Eval is itself mid-run.
// Everything this function would otherwise clobber on entry — the
// parser frame stack, the current scope, every control-flow depth
// counter — is saved and restored around the call, so the outer run
// resumes exactly where it left off once the nested one returns.
func (ev *Evaluator) Eval(filename, source string) arena.Value {
	savedScope := ev.scope
	savedFrameStack := ev.frameStack
	savedNoExec := ev.noExec
	savedLoopDepth := ev.loopDepth
	savedBreakFlag := ev.breakFlag
	savedContinueFlag := ev.continueFlag
	savedCallDepth := ev.callDepth
	savedReturnFlag := ev.returnFlag
	savedReturnValue := ev.returnValue
	savedRecurDepth := ev.recurDepth
	savedExprOps := ev.exprOps
	savedIdentNames := ev.identNames
	defer func() {
		ev.scope = savedScope
		ev.frameStack = savedFrameStack
		ev.noExec = savedNoExec
		ev.loopDepth = savedLoopDepth
		ev.breakFlag = savedBreakFlag
		ev.continueFlag = savedContinueFlag
		ev.callDepth = savedCallDepth
		ev.returnFlag = savedReturnFlag
		ev.returnValue = savedReturnValue
		ev.recurDepth = savedRecurDepth
		ev.exprOps = savedExprOps
		ev.identNames = savedIdentNames
	}()

	ev.hasError = false
	ev.errMsg = ""
	ev.noExec = 0
	ev.loopDepth = 0
	ev.breakFlag = false
	ev.continueFlag = false
	ev.callDepth = 0
	ev.returnFlag = false
	ev.recurDepth = 0
	ev.exprOps = 0
	ev.frameStack = nil
	ev.identNames = nil
	ev.scope = ev.globalScope

	restore := ev.pushFrame(filename, source)
	defer restore()

	result := arena.Undefined
	for !ev.at(token.EOF) {
		result = ev.execTopLevelStatement()
		if ev.hasError {
			return arena.ErrVal
		}
	}
	return result
}

// execTopLevelStatement runs one statement and may run a full GC pass
// before the next one. GCThreshold (percent arena usage) gates the
// pass; 0 means "always collect", matching the engine's most
// conservative default. A nested Eval (called from a native while an
// outer run is mid-statement) never collects: the outer run's values
// and scopes are not reachable from the root.
func (ev *Evaluator) execTopLevelStatement() arena.Value {
	ev.a.SetRoot(ev.scope)
	if len(ev.frameStack) == 0 && ev.GCThreshold <= ev.a.UsagePercent() {
		_ = ev.a.Collect()
	}
	return ev.execStatement()
}
