// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package elog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/melk/internal/elog"
)

func TestLvlFromString(t *testing.T) {
	cases := map[string]elog.Lvl{
		"crit": elog.LvlCrit, "0": elog.LvlCrit,
		"error": elog.LvlError, "1": elog.LvlError,
		"warn": elog.LvlWarn, "2": elog.LvlWarn,
		"info": elog.LvlInfo, "3": elog.LvlInfo,
		"debug": elog.LvlDebug, "4": elog.LvlDebug,
		"trace": elog.LvlTrace, "5": elog.LvlTrace,
	}
	for s, want := range cases {
		got, err := elog.LvlFromString(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := elog.LvlFromString("bogus")
	require.Error(t, err)
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := elog.New("test")
	l.SetHandler(elog.StreamHandler(&buf, elog.TerminalFormat(false)))
	l.SetLevel(elog.LvlWarn)

	l.Debug("hidden")
	require.Empty(t, buf.String())

	l.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestChildLoggerInheritsContext(t *testing.T) {
	var buf bytes.Buffer
	root := elog.New()
	root.SetHandler(elog.StreamHandler(&buf, elog.TerminalFormat(false)))
	root.SetLevel(elog.LvlInfo)

	child := root.New("engine", "abc-123")
	child.Info("ready")

	out := buf.String()
	require.True(t, strings.Contains(out, "engine=abc-123"))
	require.True(t, strings.Contains(out, "ready"))
}

func TestDiscardHandlerDropsEverything(t *testing.T) {
	l := elog.New()
	l.SetHandler(elog.DiscardHandler())
	l.SetLevel(elog.LvlTrace)
	l.Crit("should not panic or write anywhere")
}
