// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"bytes"

	"github.com/probechain/melk/lang/arena"
)

// lookupOwnProperty searches only the property list of the given scope
// Object, without walking the parent chain. Used by declaration
// (duplicate check) and by member access on a specific object.
func (ev *Evaluator) lookupOwnProperty(scope arena.Offset, key string) (arena.Offset, bool) {
	kb := []byte(key)
	for p := ev.a.ObjectFirstProp(scope); p != 0; p = ev.a.PropNext(p) {
		if bytes.Equal(ev.a.StringBytes(ev.a.PropKey(p)), kb) {
			return p, true
		}
	}
	return 0, false
}

// lookupChain walks the scope chain starting at scope, following parent
// offsets, returning the first matching Property entity. The global
// scope lives at offset 0, so it is searched last and ends the walk.
func (ev *Evaluator) lookupChain(scope arena.Offset, key string) (arena.Offset, bool) {
	for s := scope; ; s = ev.a.ObjectParent(s) {
		if p, ok := ev.lookupOwnProperty(s, key); ok {
			return p, true
		}
		if s == 0 {
			break
		}
	}
	return 0, false
}

// declare creates a new Property named key on scope with value val. It
// fails with "already declared" if key already names a property
// directly on scope (not an ancestor).
func (ev *Evaluator) declare(scope arena.Offset, key string, val arena.Value) (arena.Offset, bool) {
	if _, exists := ev.lookupOwnProperty(scope, key); exists {
		ev.fail(errAlreadyDeclared(key))
		return 0, false
	}
	keyOff, err := ev.a.NewStringEntity([]byte(key))
	if err != nil {
		ev.fail(errOOM())
		return 0, false
	}
	next := ev.a.ObjectFirstProp(scope)
	propOff, err := ev.a.NewPropertyEntity(next, arena.OffsetOf(keyOff), val)
	if err != nil {
		ev.fail(errOOM())
		return 0, false
	}
	ev.a.ObjectSetFirstProp(scope, propOff)
	return propOff, true
}

// assignOrCreateGlobal implements assignment to an undeclared name:
// that is allowed, and creates/updates a property on the global scope
// rather than erroring. It first looks up key along the full chain; if
// found, returns that
// property's offset so the caller can overwrite its value in place.
// Otherwise it declares key fresh directly on the global scope.
func (ev *Evaluator) assignOrCreateGlobal(key string, val arena.Value) (arena.Offset, bool) {
	scopeOff := arena.OffsetOf(ev.scope)
	if p, ok := ev.lookupChain(scopeOff, key); ok {
		ev.a.PropSetValue(p, val)
		return p, true
	}
	return ev.declare(arena.OffsetOf(ev.globalScope), key, val)
}

// pushScope creates a child scope Object whose parent is the current
// scope and makes it current. It returns the brk value from just before
// the scope Object was allocated (the fast-path reclaim target), the
// brk value from just after (used to detect "nothing else was
// allocated"), and a function that restores the previous current scope.
func (ev *Evaluator) pushScope() (preScopeBrk, postScopeBrk arena.Offset, restore func(), ok bool) {
	preScopeBrk = ev.a.Brk()
	parent := arena.OffsetOf(ev.scope)
	obj, err := ev.a.NewObjectEntity(parent)
	if err != nil {
		ev.fail(errOOM())
		return 0, 0, func() {}, false
	}
	postScopeBrk = ev.a.Brk()
	prevScope := ev.scope
	ev.scope = obj
	return preScopeBrk, postScopeBrk, func() { ev.scope = prevScope }, true
}

// popScope implements the scope fast-path reclaim: if
// nothing was allocated since the scope object itself was created
// (brk unchanged), brk is reset straight back to before the scope
// object existed. Otherwise the entities are left for the next GC pass.
func (ev *Evaluator) popScope(preScopeBrk, postScopeBrk arena.Offset, restore func()) {
	if ev.a.Brk() == postScopeBrk {
		ev.a.ResetBrk(preScopeBrk)
	}
	restore()
}
