// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/lang/arena"
)

func newEvaluator(t *testing.T, size int) *Evaluator {
	t.Helper()
	a := arena.New(make([]byte, size))
	ev, err := New(a)
	require.NoError(t, err)
	return ev
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"arith precedence", `1 + 2 * 3`, "7"},
		{"nested object compound assign", `let a = {b:{c:3}}; a.b.c += 4; a.b.c`, "7"},
		{"recursive function", `let f = function(n){return n<2?1:n*f(n-1);}; f(5)`, "120"},
		{"utf8 byte length", `'Київ'.length`, "8"},
		{"while with postfix condition", `let i=0,a=0; while(i++<10) a+=i; a`, "55"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := newEvaluator(t, 1<<16)
			v := ev.Eval("test.js", tc.src)
			require.False(t, ev.HasError(), "unexpected error: %s", ev.ErrMsg())
			require.Equal(t, tc.want, ev.Str(v))
		})
	}
}

func TestEqualityTypeMismatch(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `1 === '1'`)
	require.True(t, ev.HasError())
	require.Equal(t, "type mismatch", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestScopeFastPath(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.GCThreshold = 0 // always collect between top-level statements

	v := ev.Eval("test.js", `let x=1; { let x=2; } x`)
	require.False(t, ev.HasError())
	require.Equal(t, "1", ev.Str(v))
}

// TestScopeFastPathTrivialBlock exercises the cheap brk-unchanged check
// directly: a block that allocates nothing beyond its own scope Object
// must reclaim immediately, with GC disabled, proving the fast path
// itself (not a subsequent GC pass) did the work.
func TestScopeFastPathTrivialBlock(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.GCThreshold = 100 // never collect, to isolate the fast path itself

	preBlockBrk := ev.Arena().Brk()
	v := ev.Eval("test.js", `{ 1 + 1; }`)
	require.False(t, ev.HasError())
	require.Equal(t, "2", ev.Str(v))
	require.Equal(t, preBlockBrk, ev.Arena().Brk(), "block scope should reclaim via the fast path, not linger for GC")
}

func TestUndeclaredAssignmentCreatesGlobal(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `y = 42; y`)
	require.False(t, ev.HasError())
	require.Equal(t, "42", ev.Str(v))
}

func TestUndeclaredReadIsNotFound(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `z`)
	require.True(t, ev.HasError())
	require.Equal(t, "'z' not found", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestDivByZero(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `1/0`)
	require.True(t, ev.HasError())
	require.Equal(t, "div by zero", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestBreakOutsideLoopErrors(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `break`)
	require.True(t, ev.HasError())
	require.Equal(t, "not in loop", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestBreakInCalleeWithoutOwnLoopErrorsEvenFromInsideCallerLoop(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `
		let g = function(){ break; };
		let i = 0;
		while (i < 1) { g(); i += 1; }
	`)
	require.True(t, ev.HasError())
	require.Equal(t, "not in loop", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestIfElseNoExecuteDoesNotDoubleBindDeclarations(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `
		let x = 1;
		if (false) { let y = 1; } else { let y = 2; }
		x
	`)
	require.False(t, ev.HasError())
	require.Equal(t, "1", ev.Str(v))
}

func TestDeclareDuplicateInSameScopeErrors(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `let x = 1, x = 2;`)
	require.True(t, ev.HasError())
	require.Equal(t, "'x' already declared", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestPostfixIncrementReturnsPreValue(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `let i = 5; let j = i++; j * 100 + i`)
	require.False(t, ev.HasError())
	require.Equal(t, "506", ev.Str(v))
}

func TestBitwiseCoercesTo32Bit(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `~0`)
	require.False(t, ev.HasError())
	require.Equal(t, "-1", ev.Str(v))
}

func TestTernaryBranchNoExecuteSkipsAllocation(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	brk := ev.Arena().Brk()
	v := ev.Eval("test.js", `true ? 1 : 'unused branch'`)
	require.False(t, ev.HasError())
	require.Equal(t, "1", ev.Str(v))
	require.Equal(t, brk, ev.Arena().Brk())
}

func TestFunctionCallArgumentsSeeEarlierParamsAsTheyBind(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `let f = function(x, y){ return x + y; }; f(3, x + 1)`)
	require.False(t, ev.HasError())
	require.Equal(t, "7", ev.Str(v))
}

func TestMissingArgumentsBindUndefined(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `let f = function(x, y){ return y; }; f(1)`)
	require.False(t, ev.HasError())
	require.Equal(t, "undefined", ev.Str(v))
}

func TestCallingNonFunctionErrors(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `let x = 1; x()`)
	require.True(t, ev.HasError())
	require.Equal(t, "calling non-function", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestExprTooDeep(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.MaxExprDepth = 4
	v := ev.Eval("test.js", `1+1+1+1+1+1+1+1`)
	require.True(t, ev.HasError())
	require.Equal(t, "expr too deep", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestDeeplyParenthesizedExpressionHitsCStack(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.MaxRecursionDepth = 3
	v := ev.Eval("test.js", `((((1))))`)
	require.True(t, ev.HasError())
	require.Equal(t, "C stack", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestCallStackDepthBounded(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.MaxCallDepth = 3
	v := ev.Eval("test.js", `let f = function(n){ return f(n+1); }; f(0)`)
	require.True(t, ev.HasError())
	require.Equal(t, "C stack", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestNativeRegisterAndCall(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.Register("double", func(ev *Evaluator, args []arena.Value) arena.Value {
		if !CheckArgs(args, "d") {
			return ev.fail(errBadArg(1))
		}
		return arena.FromNumber(arena.AsNumber(args[0]) * 2)
	})
	v := ev.Eval("test.js", `double(21)`)
	require.False(t, ev.HasError())
	require.Equal(t, "42", ev.Str(v))
}

func TestErrorAbortsRemainderOfEval(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	ev.Register("sideEffect", func(ev *Evaluator, args []arena.Value) arena.Value {
		t.Fatal("native call must not run after a prior error")
		return arena.Undefined
	})
	v := ev.Eval("test.js", `1/0; sideEffect()`)
	require.True(t, ev.HasError())
	require.Equal(t, "div by zero", ev.ErrMsg())
	require.Equal(t, arena.ErrVal, v)
}

func TestObjectLiteralPropertyOrderIsInsertionReversed(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v := ev.Eval("test.js", `({a:1,b:2,c:3})`)
	require.False(t, ev.HasError())
	require.Equal(t, `{"c":3,"b":2,"a":1}`, ev.Str(v))
}

func TestEvalResumesAfterPriorError(t *testing.T) {
	ev := newEvaluator(t, 1<<16)
	v1 := ev.Eval("test.js", `1/0`)
	require.True(t, ev.HasError())
	require.Equal(t, arena.ErrVal, v1)

	v2 := ev.Eval("test.js", `1 + 1`)
	require.False(t, ev.HasError())
	require.Equal(t, "2", ev.Str(v2))
}
