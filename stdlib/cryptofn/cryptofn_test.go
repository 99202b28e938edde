// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package cryptofn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/stdlib/cryptofn"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Create(make([]byte, 1<<16))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	cryptofn.Register(e)
	return e
}

func TestHashIsDeterministicAndHex(t *testing.T) {
	e := newEngine(t)
	v1 := e.Eval("t.js", `hash("melk");`)
	require.False(t, e.HasError())
	v2 := e.Eval("t.js", `hash("melk");`)
	require.False(t, e.HasError())
	s1, ok := e.Str2(v1)
	require.True(t, ok)
	s2, ok := e.Str2(v2)
	require.True(t, ok)
	require.Equal(t, s1, s2)
	require.Len(t, s1, 64) // sha3-256 -> 32 bytes -> 64 hex chars
}

func TestHashRejectsNonStringArg(t *testing.T) {
	e := newEngine(t)
	e.Eval("t.js", `hash(1);`)
	require.True(t, e.HasError())
	require.Equal(t, "bad sig", e.ErrMsg())
}

func TestShake256ProducesRequestedLength(t *testing.T) {
	e := newEngine(t)
	v := e.Eval("t.js", `shake256("melk", 16);`)
	require.False(t, e.HasError())
	s, ok := e.Str2(v)
	require.True(t, ok)
	require.Len(t, s, 32) // 16 bytes -> 32 hex chars
}

func TestShake256RejectsOutOfRangeLength(t *testing.T) {
	e := newEngine(t)
	e.Eval("t.js", `shake256("melk", 0);`)
	require.True(t, e.HasError())
}
