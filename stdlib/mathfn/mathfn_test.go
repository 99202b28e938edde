// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package mathfn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/stdlib/mathfn"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Create(make([]byte, 1<<16))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	mathfn.Register(e)
	return e
}

func TestUnaryNatives(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"abs(-3);", 3},
		{"floor(1.9);", 1},
		{"ceil(1.1);", 2},
		{"round(1.5);", 2},
		{"sqrt(9);", 3},
	}
	for _, c := range cases {
		e := newEngine(t)
		v := e.Eval("t.js", c.src)
		require.False(t, e.HasError(), c.src)
		f, ok := e.Num(v)
		require.True(t, ok)
		require.Equal(t, c.want, f, c.src)
	}
}

func TestPowMinMax(t *testing.T) {
	e := newEngine(t)
	v := e.Eval("t.js", "pow(2, 10);")
	f, _ := e.Num(v)
	require.Equal(t, float64(1024), f)

	v = e.Eval("t.js", "min(3, 5);")
	f, _ = e.Num(v)
	require.Equal(t, float64(3), f)

	v = e.Eval("t.js", "max(3, 5);")
	f, _ = e.Num(v)
	require.Equal(t, float64(5), f)
}

func TestUnaryNativeRejectsBadArgCount(t *testing.T) {
	e := newEngine(t)
	e.Eval("t.js", "abs(1, 2);")
	require.True(t, e.HasError())
	require.Equal(t, "bad sig", e.ErrMsg())
}
