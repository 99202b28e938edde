// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package iofn_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/stdlib/iofn"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Create(make([]byte, 1<<16))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	iofn.Register(e)
	return e
}

func TestEmitAcceptsWithinBurst(t *testing.T) {
	e := newEngine(t)
	v := e.Eval("t.js", `emit("hello");`)
	require.False(t, e.HasError())
	require.Equal(t, "undefined", e.Str(v))
}

func TestEmitRejectsNonStringArg(t *testing.T) {
	e := newEngine(t)
	e.Eval("t.js", `emit(1);`)
	require.True(t, e.HasError())
	require.Equal(t, "bad sig", e.ErrMsg())
}

func TestEmitRateLimitsBurst(t *testing.T) {
	e := newEngine(t)
	script := `let i = 0; while (i < 10000) { emit("x"); i = i + 1; }`
	e.Eval("t.js", script)
	require.True(t, e.HasError())
	require.Equal(t, "bad arg 1", e.ErrMsg())
}

func TestRequireEvaluatesOtherFile(t *testing.T) {
	e := newEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.js")
	require.NoError(t, os.WriteFile(path, []byte("21*2;"), 0o644))

	v := e.Eval("t.js", `require("`+filepath.ToSlash(path)+`");`)
	require.False(t, e.HasError())
	require.Equal(t, "42", e.Str(v))
}

func TestRequireMissingFileFails(t *testing.T) {
	e := newEngine(t)
	e.Eval("t.js", `require("/no/such/file.js");`)
	require.True(t, e.HasError())
	require.Equal(t, "ffi", e.ErrMsg())
}
