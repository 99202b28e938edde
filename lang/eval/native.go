// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import "github.com/probechain/melk/lang/arena"

// NativeFunc is a host-provided callable: a typed Go closure taking the
// evaluator and an argument slice and returning a value, rather than a
// bare function pointer over a packed (argv, argc) pair — the same
// host-supplied-callback idea expressed in Go's own calling convention.
// ev is re-entrant — a native is free to call ev.Eval on a fresh source
// fragment; the caller's parser frame is preserved on the frame stack
// while it does so.
type NativeFunc func(ev *Evaluator, args []arena.Value) arena.Value

// CheckArgs validates args against sig, one letter per expected
// argument: 'd' number, 'b' bool, 's' string, 'j' any value. Native
// functions call this to validate their own arguments before
// extracting them.
func CheckArgs(args []arena.Value, sig string) bool {
	if len(args) != len(sig) {
		return false
	}
	for i, c := range sig {
		switch c {
		case 'd':
			if arena.TypeOf(args[i]) != arena.TagNumber {
				return false
			}
		case 'b':
			if arena.TypeOf(args[i]) != arena.TagBoolean {
				return false
			}
		case 's':
			if arena.TypeOf(args[i]) != arena.TagString {
				return false
			}
		case 'j':
			// any value accepted
		default:
			return false
		}
	}
	return true
}

// Register installs fn as a native Function value under name on the
// global scope, overwriting any existing binding (mirrors engine.Set's
// "defines or updates a property" contract).
func (ev *Evaluator) Register(name string, fn NativeFunc) bool {
	idx := uint32(len(ev.natives))
	ev.natives = append(ev.natives, fn)
	v := arena.NewNativeFunctionValue(idx)

	globalOff := arena.OffsetOf(ev.globalScope)
	if p, ok := ev.lookupOwnProperty(globalOff, name); ok {
		ev.a.PropSetValue(p, v)
		return true
	}
	_, ok := ev.declare(globalOff, name, v)
	return ok
}

// callNative dispatches to a registered native closure, saving and
// restoring the parser frame around the call so a reentrant ev.Eval
// inside fn cannot disturb the caller's cursor.
func (ev *Evaluator) callNative(idx uint32, args []arena.Value) arena.Value {
	if int(idx) >= len(ev.natives) {
		return ev.fail(errFFI())
	}
	saved := ev.fr
	result := ev.natives[idx](ev, args)
	ev.fr = saved
	return result
}
