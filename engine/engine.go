// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package engine is melk's embeddable public API: one Engine wraps one
// arena and one evaluator, and every exported function here is the Go
// mapping of the C engine's create/eval/mkXXX/set/str/usage surface.
// A host links this package in, hands it a buffer (or asks for one
// mmap'd on its behalf), and drives a script through it without ever
// touching lang/arena or lang/eval directly.
package engine

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/fjl/memsize"
	"github.com/google/uuid"

	"github.com/probechain/melk/internal/elog"
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/eval"
)

// Engine is one embedded script instance: an arena-backed heap plus
// the evaluator running over it. The zero value is not usable; build
// one with Create or CreateMapped.
type Engine struct {
	a  *arena.Arena
	ev *eval.Evaluator

	id  uuid.UUID
	log elog.Logger

	mm   mmap.MMap // non-nil when the backing buffer came from CreateMapped
	mmf  *os.File
	mmfn string
}

// Create wraps buf as a fresh engine: buf becomes the entire live
// heap for the lifetime of the Engine, with no further allocation
// from the Go runtime once Create returns (Register and PinCallback
// calls aside, which only touch Go-side bookkeeping slices). Returns
// an error, not a null engine, when the global scope object cannot be
// allocated — buf must be large enough for at least one Object entity.
func Create(buf []byte) (*Engine, error) {
	a := arena.New(buf)
	ev, err := eval.New(a)
	if err != nil {
		return nil, fmt.Errorf("engine: create: %w", err)
	}
	id := uuid.New()
	e := &Engine{
		a:   a,
		ev:  ev,
		id:  id,
		log: elog.New("engine", id.String()),
	}
	e.log.Debug("engine created", "heap", len(buf))
	return e, nil
}

// CreateMapped is Create over an anonymous mmap'd region instead of a
// caller-supplied slice: useful when a host wants the heap to live
// outside the Go garbage collector's scanned arena, or wants many
// engines without each one pinning its buffer in the Go heap. The
// region is backed by a temporary file that Close removes, the simplest
// portable way to get an anonymous mapping out of mmap-go, which maps
// files rather than raw memory.
func CreateMapped(size int) (*Engine, error) {
	if size <= 0 {
		return nil, fmt.Errorf("engine: create mapped: size must be positive, got %d", size)
	}
	f, err := os.CreateTemp("", "melk-heap-*")
	if err != nil {
		return nil, fmt.Errorf("engine: create mapped: %w", err)
	}
	name := f.Name()
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(name)
		return nil, fmt.Errorf("engine: create mapped: %w", err)
	}
	m, err := mmap.MapRegion(f, size, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		os.Remove(name)
		return nil, fmt.Errorf("engine: create mapped: %w", err)
	}
	e, err := Create([]byte(m))
	if err != nil {
		m.Unmap()
		f.Close()
		os.Remove(name)
		return nil, err
	}
	e.mm, e.mmf, e.mmfn = m, f, name
	return e, nil
}

// Close releases a mmap'd backing region. Engines created with Create
// over a caller-owned slice need no cleanup; Close is a no-op for
// them.
func (e *Engine) Close() error {
	if e.mm == nil {
		return nil
	}
	if err := e.mm.Unmap(); err != nil {
		return err
	}
	e.mmf.Close()
	return os.Remove(e.mmfn)
}

// SetGCThreshold sets the percent-used watermark below which a
// between-statements GC pass is skipped (the CLI's -gct flag); 0
// collects after every top-level statement.
func (e *Engine) SetGCThreshold(pct int) { e.ev.GCThreshold = pct }

// SetLogLevel adjusts how verbosely this engine's own Logger writes
// (the CLI's -v flag); engines are silent (LvlWarn and above only) by
// default.
func (e *Engine) SetLogLevel(l elog.Lvl) { e.log.SetLevel(l) }

// ID returns the UUID this engine tagged itself with at Create time,
// so a host running many engines can tell their log lines apart.
func (e *Engine) ID() uuid.UUID { return e.id }

// Eval runs source as a new top-level script and returns its value
// (or the Error value, with ErrMsg holding the message). filename is
// used only for diagnostics; the evaluator does not read the
// filesystem.
func (e *Engine) Eval(filename, source string) arena.Value {
	e.log.Debug("eval", "file", filename, "bytes", len(source))
	v := e.ev.Eval(filename, source)
	if e.ev.HasError() {
		e.log.Warn("eval error", "file", filename, "msg", e.ev.ErrMsg())
	}
	return v
}

// EvalFile reads path from the filesystem and evaluates it exactly as
// Eval would, under path as the diagnostic filename. It is the
// require()-style convenience a native calls to pull in another
// script file; it does not cache or namespace anything; calling it
// twice on the same path re-runs the file from source both times.
func (e *Engine) EvalFile(path string) (arena.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return arena.ErrVal, fmt.Errorf("engine: eval file: %w", err)
	}
	return e.Eval(path, string(src)), nil
}

// HasError reports whether the most recent Eval/EvalFile call ended
// in an Error.
func (e *Engine) HasError() bool { return e.ev.HasError() }

// ErrMsg returns the message of the most recent Error.
func (e *Engine) ErrMsg() string { return e.ev.ErrMsg() }

// Glob returns the Object value of the engine's global scope, the
// root every top-level `let` and bare assignment binds into.
func (e *Engine) Glob() arena.Value { return e.ev.Global() }

// Mkobj allocates a fresh, empty Object whose parent scope is parent
// (use e.Glob() to hang it off the global scope, or arena.Undefined's
// zero offset for a parentless object a host only ever inspects via
// Set/property walks, never through script scope resolution).
func (e *Engine) Mkobj(parent arena.Value) (arena.Value, error) {
	off, err := e.a.NewObjectEntity(arena.OffsetOf(parent))
	if err != nil {
		return arena.Undefined, fmt.Errorf("engine: mkobj: %w", err)
	}
	return off, nil
}

// Mkstr copies s into a new String entity.
func (e *Engine) Mkstr(s string) (arena.Value, error) {
	v, err := e.a.NewStringEntity([]byte(s))
	if err != nil {
		return arena.Undefined, fmt.Errorf("engine: mkstr: %w", err)
	}
	return v, nil
}

// Mknum, Mkbool, Mknull, Mkundef box plain Go values (or return the
// relevant singleton) with no arena allocation involved.
func (e *Engine) Mknum(f float64) arena.Value { return arena.FromNumber(f) }
func (e *Engine) Mkbool(b bool) arena.Value   { return arena.Bool(b) }
func (e *Engine) Mknull() arena.Value         { return arena.Null }
func (e *Engine) Mkundef() arena.Value        { return arena.Undefined }

// Mkerr constructs the engine Error value with a formatted message, the
// host-facing equivalent of a native calling Fail directly: the message
// is recorded the same way any parse or type-check failure records one,
// so HasError/ErrMsg/Str all observe it afterward.
func (e *Engine) Mkerr(format string, args ...interface{}) arena.Value {
	return e.ev.Fail(fmt.Sprintf(format, args...))
}

// Set defines or updates the property named key on obj to val,
// independent of the scope chain: obj need not be reachable from the
// global scope at all (a host frequently builds a value tree with
// Mkobj/Set before handing just its root to a script via a single
// Set onto Glob()).
func (e *Engine) Set(obj arena.Value, key string, val arena.Value) error {
	if arena.TypeOf(obj) != arena.TagObject {
		return fmt.Errorf("engine: set: %q: target is not an object", key)
	}
	off := arena.OffsetOf(obj)
	kb := []byte(key)
	for p := e.a.ObjectFirstProp(off); p != 0; p = e.a.PropNext(p) {
		if string(e.a.StringBytes(e.a.PropKey(p))) == string(kb) {
			e.a.PropSetValue(p, val)
			return nil
		}
	}
	keyOff, err := e.a.NewStringEntity(kb)
	if err != nil {
		return fmt.Errorf("engine: set: %q: %w", key, err)
	}
	propOff, err := e.a.NewPropertyEntity(e.a.ObjectFirstProp(off), arena.OffsetOf(keyOff), val)
	if err != nil {
		return fmt.Errorf("engine: set: %q: %w", key, err)
	}
	e.a.ObjectSetFirstProp(off, propOff)
	return nil
}

// Str renders v the way a script's implicit string coercion would.
func (e *Engine) Str(v arena.Value) string { return e.ev.Str(v) }

// Num extracts the float64 carried by a Number value; ok is false for
// any other type, matching js_getnum's host-accessor contract.
func (e *Engine) Num(v arena.Value) (f float64, ok bool) {
	if arena.TypeOf(v) != arena.TagNumber {
		return 0, false
	}
	return arena.AsNumber(v), true
}

// Bool extracts the bool carried by a Boolean value; ok is false for
// any other type.
func (e *Engine) Bool(v arena.Value) (b bool, ok bool) {
	if arena.TypeOf(v) != arena.TagBoolean {
		return false, false
	}
	return arena.BoolPayload(v), true
}

// Str2 extracts the raw bytes of a String value as a Go string; ok is
// false for any other type. Unlike Str, which stringifies any value,
// Str2 only succeeds on an actual String (the js_getstr contract).
func (e *Engine) Str2(v arena.Value) (s string, ok bool) {
	if arena.TypeOf(v) != arena.TagString {
		return "", false
	}
	return string(e.a.StringBytes(arena.OffsetOf(v))), true
}

// Usage returns the integer percentage of the heap currently consumed
// by live entities.
func (e *Engine) Usage() int { return e.a.UsagePercent() }

// GoOverhead returns the number of bytes of Go-side bookkeeping this
// Engine carries beyond its arena buffer itself (the Evaluator
// struct, its native-closure slice, frame stack, and everything they
// transitively point to) — useful alongside Usage when a host is
// budgeting total memory rather than just arena occupancy.
func (e *Engine) GoOverhead() uint64 {
	return uint64(memsize.Scan(e.ev).Total)
}

// Register installs a host-provided native function under name on
// the global scope.
func (e *Engine) Register(name string, fn eval.NativeFunc) bool { return e.ev.Register(name, fn) }

// Arena and Evaluator expose the underlying layers for stdlib native
// packages, which need arena.Arena's entity accessors and
// eval.Evaluator's reentrant Eval to implement natives like require().
func (e *Engine) Arena() *arena.Arena        { return e.a }
func (e *Engine) Evaluator() *eval.Evaluator { return e.ev }
