// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/lang/arena"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Create(make([]byte, 1<<16))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEvalReturnsLastStatementValue(t *testing.T) {
	e := newEngine(t)
	v := e.Eval("test.js", "let x = 2; x + 3;")
	require.False(t, e.HasError())
	require.Equal(t, "5", e.Str(v))
}

func TestEvalErrorSetsErrMsg(t *testing.T) {
	e := newEngine(t)
	v := e.Eval("test.js", "1 +")
	require.True(t, e.HasError())
	require.Equal(t, arena.ErrVal, v)
	require.NotEmpty(t, e.ErrMsg())
	require.Equal(t, "ERROR: "+e.ErrMsg(), e.Str(v))
}

func TestMkerrFormatsAndRecordsMessage(t *testing.T) {
	e := newEngine(t)
	v := e.Mkerr("bad arg %d", 1)
	require.Equal(t, arena.ErrVal, v)
	require.True(t, e.HasError())
	require.Equal(t, "bad arg 1", e.ErrMsg())
}

func TestMkobjSetAndStr(t *testing.T) {
	e := newEngine(t)
	obj, err := e.Mkobj(arena.Undefined)
	require.NoError(t, err)
	name, err := e.Mkstr("melk")
	require.NoError(t, err)
	require.NoError(t, e.Set(obj, "name", name))
	require.NoError(t, e.Set(obj, "version", e.Mknum(1)))

	require.NoError(t, e.Set(e.Glob(), "cfg", obj))
	v := e.Eval("test.js", "cfg.name;")
	require.False(t, e.HasError())
	s, ok := e.Str2(v)
	require.True(t, ok)
	require.Equal(t, "melk", s)
}

func TestSetOverwritesExistingProperty(t *testing.T) {
	e := newEngine(t)
	obj, err := e.Mkobj(arena.Undefined)
	require.NoError(t, err)
	require.NoError(t, e.Set(obj, "n", e.Mknum(1)))
	require.NoError(t, e.Set(obj, "n", e.Mknum(2)))
	require.NoError(t, e.Set(e.Glob(), "o", obj))

	v := e.Eval("test.js", "o.n;")
	f, ok := e.Num(v)
	require.True(t, ok)
	require.Equal(t, float64(2), f)
}

func TestNumBoolAccessorsRejectWrongType(t *testing.T) {
	e := newEngine(t)
	_, ok := e.Num(arena.True)
	require.False(t, ok)
	_, ok = e.Bool(e.Mknum(1))
	require.False(t, ok)
	s, err := e.Mkstr("x")
	require.NoError(t, err)
	_, ok = e.Str2(s)
	require.True(t, ok)
	_, ok = e.Num(s)
	require.False(t, ok)
}

func TestUsageReflectsAllocations(t *testing.T) {
	e := newEngine(t)
	before := e.Usage()
	e.Eval("test.js", `let a = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa";`)
	after := e.Usage()
	require.GreaterOrEqual(t, after, before)
}

func TestEvalFileRunsScriptFromDisk(t *testing.T) {
	e := newEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.js")
	require.NoError(t, os.WriteFile(path, []byte("6*7;"), 0o644))

	v, err := e.EvalFile(path)
	require.NoError(t, err)
	require.Equal(t, "42", e.Str(v))
}

func TestEvalFileMissingFileErrors(t *testing.T) {
	e := newEngine(t)
	_, err := e.EvalFile(filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
}

func TestCreateMappedRoundTrips(t *testing.T) {
	e, err := engine.CreateMapped(1 << 14)
	require.NoError(t, err)
	defer e.Close()

	v := e.Eval("test.js", "1+1;")
	require.False(t, e.HasError())
	require.Equal(t, "2", e.Str(v))
}

func TestGoOverheadIsPositive(t *testing.T) {
	e := newEngine(t)
	require.Greater(t, e.GoOverhead(), uint64(0))
}

func TestDumpRendersObjectProperties(t *testing.T) {
	e := newEngine(t)
	e.Eval("test.js", `let point = {x: 1, y: 2};`)
	out := e.Dump(e.Glob())
	require.Contains(t, out, "point")
}
