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

package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned when an allocation would cross the boundary
// between live entities and the pinned callback-descriptor region.
var ErrOutOfMemory = errors.New("arena: out of memory")

// ErrCallbackRegionFull is returned when pinning a new callback
// descriptor would collide with the live-entity region.
var ErrCallbackRegionFull = errors.New("arena: callback region full")

// ErrCorrupt is returned by internal consistency checks; it should never
// surface outside of a bug in this package.
var ErrCorrupt = errors.New("arena: corrupt entity")

const (
	objectSize       = 8  // firstProp|mark|tag word + parent word
	propertySize     = 16 // next|mark|tag word + key word + 8-byte value word
	callbackDescSize = 12 // fnOffset(4) + sigOffset(4) + nativeID(4)

	markBit = uint32(1) << 2
	tagMask = uint32(0x3)
)

func align4(n uint32) uint32 { return (n + 3) &^ 3 }

// callbackDescriptor is a pinned record held at the top of the arena,
// referenced by the native bridge so a host-held script callback can be
// invoked after the native call that registered it has returned. It is
// never reclaimed.
type callbackDescriptor struct {
	fnOff  Offset // Function value's arena offset
	sigOff Offset // signature String's arena offset, or 0
	native uint32 // opaque id the native bridge uses to route the call
}

// Arena is the linear bump allocator and mark-compact collector backing
// one engine instance. It owns a byte slice handed to it by the caller
// (or mmap'd on its behalf, see engine.CreateMapped); offset 0 of that
// slice is the first byte available to entities, which is why eval.New
// allocates the global scope object immediately after wrapping the
// buffer, before any script code can run.
type Arena struct {
	buf  []byte
	brk  Offset // [0, brk) holds live entities
	size Offset // [size, len(buf)) holds pinned callback descriptors

	root Value // current scope chain root, refreshed by the evaluator before each Collect
}

// New wraps buf as an Arena. It does not allocate anything; callers
// create the global scope object themselves (engine.Create does this).
func New(buf []byte) *Arena {
	return &Arena{buf: buf, brk: 0, size: Offset(len(buf))}
}

// Len returns the capacity of the entity+callback region (i.e. len(buf)
// passed to New), used by UsagePercent and by bounds checks.
func (a *Arena) Len() int { return len(a.buf) }

// Brk returns the current allocation cursor.
func (a *Arena) Brk() Offset { return a.brk }

// ResetBrk rolls brk back to a previous value. Only the scope fast-path
// reclaim may call this, and only when it has verified no entity
// survived the scope it is discarding.
func (a *Arena) ResetBrk(off Offset) { a.brk = off }

// SetRoot records the value the garbage collector should treat as the
// live scope-chain root. The evaluator calls this before Collect.
func (a *Arena) SetRoot(v Value) { a.root = v }

// UsagePercent returns the integer percentage of the callback boundary
// currently consumed by live entities.
func (a *Arena) UsagePercent() int {
	if a.size == 0 {
		return 100
	}
	return int(100 * uint64(a.brk) / uint64(a.size))
}

func (a *Arena) u32(off Offset) uint32          { return binary.LittleEndian.Uint32(a.buf[off:]) }
func (a *Arena) putU32(off Offset, v uint32)    { binary.LittleEndian.PutUint32(a.buf[off:], v) }
func (a *Arena) u64(off Offset) uint64          { return binary.LittleEndian.Uint64(a.buf[off:]) }
func (a *Arena) putU64(off Offset, v uint64)    { binary.LittleEndian.PutUint64(a.buf[off:], v) }

// alloc advances brk by align4(n) and returns the offset it used to
// start at. It is the only primitive that grows brk; every entity
// constructor funnels through it.
func (a *Arena) alloc(n uint32) (Offset, error) {
	aligned := align4(n)
	if uint64(a.brk)+uint64(aligned) > uint64(a.size) {
		return 0, ErrOutOfMemory
	}
	off := a.brk
	for i := off; i < off+Offset(aligned); i++ {
		a.buf[i] = 0
	}
	a.brk += Offset(aligned)
	return off, nil
}

// entitySize recovers the byte size and kind tag of the entity at off
// purely from its first word, as required by the GC's forward walks.
func (a *Arena) entitySize(off Offset) (uint32, Tag, error) {
	w0 := a.u32(off)
	tag := Tag(w0 & tagMask)
	switch tag {
	case TagObject:
		return objectSize, tag, nil
	case TagProperty:
		return propertySize, tag, nil
	case TagString:
		n := w0 >> 3
		return 4 + align4(n), tag, nil
	default:
		return 0, 0, fmt.Errorf("%w: offset %d tag %d", ErrCorrupt, off, tag)
	}
}

// ---- Object -----------------------------------------------------------

// NewObjectEntity allocates an empty Object entity with the given
// parent-scope offset (0 for none) and returns its Value.
func (a *Arena) NewObjectEntity(parent Offset) (Value, error) {
	off, err := a.alloc(objectSize)
	if err != nil {
		return 0, err
	}
	a.putU32(off, uint32(TagObject))
	a.putU32(off+4, uint32(parent))
	return NewObjectValue(off), nil
}

func (a *Arena) ObjectFirstProp(off Offset) Offset { return Offset(a.u32(off) >> 3) }

func (a *Arena) ObjectSetFirstProp(off, prop Offset) {
	w := a.u32(off)
	a.putU32(off, (uint32(prop)<<3)|(w&(markBit|tagMask)))
}

func (a *Arena) ObjectParent(off Offset) Offset { return Offset(a.u32(off + 4)) }

// ---- Property -----------------------------------------------------------

// NewPropertyEntity allocates a Property entity threading it onto the
// front of an existing list (next==0 for "was the tail").
func (a *Arena) NewPropertyEntity(next, key Offset, val Value) (Offset, error) {
	off, err := a.alloc(propertySize)
	if err != nil {
		return 0, err
	}
	a.putU32(off, uint32(TagProperty))
	a.putU32(off+4, uint32(key))
	a.putU64(off+8, uint64(val))
	a.PropSetNext(off, next)
	return off, nil
}

func (a *Arena) PropNext(off Offset) Offset { return Offset(a.u32(off) >> 3) }

func (a *Arena) PropSetNext(off, next Offset) {
	w := a.u32(off)
	a.putU32(off, (uint32(next)<<3)|(w&(markBit|tagMask)))
}

func (a *Arena) PropKey(off Offset) Offset       { return Offset(a.u32(off + 4)) }
func (a *Arena) PropValue(off Offset) Value      { return Value(a.u64(off + 8)) }
func (a *Arena) PropSetValue(off Offset, v Value) { a.putU64(off+8, uint64(v)) }

// ---- String -----------------------------------------------------------

// NewStringEntity allocates a NUL-terminated String entity holding a
// copy of s.
func (a *Arena) NewStringEntity(s []byte) (Value, error) {
	n := uint32(len(s)) + 1 // NUL terminator counted in byte_length+1
	off, err := a.alloc(4 + align4(n))
	if err != nil {
		return 0, err
	}
	a.putU32(off, (n<<3)|uint32(TagString))
	copy(a.buf[off+4:], s)
	a.buf[off+4+Offset(len(s))] = 0
	return NewStringValue(off), nil
}

// StringByteLen returns the raw byte length (not rune count) of the
// string at off; `.length` on a melk string returns this, not a
// UTF-8 rune count.
func (a *Arena) StringByteLen(off Offset) int {
	n := a.u32(off) >> 3
	return int(n) - 1
}

// StringBytes returns the live (non-NUL) bytes of the string at off.
// The slice aliases the arena buffer and is invalidated by the next
// allocation or GC, mirroring js_str's documented pointer lifetime.
func (a *Arena) StringBytes(off Offset) []byte {
	n := a.StringByteLen(off)
	return a.buf[off+4 : off+4+Offset(n)]
}

// ---- Pinned callback descriptors ---------------------------------------

// PinCallback reserves a descriptor from the top of the arena. Pinned
// descriptors are never reclaimed by Collect; each registration shrinks
// the usable arena permanently.
func (a *Arena) PinCallback(fnOff, sigOff Offset, native uint32) error {
	if uint64(a.brk)+callbackDescSize > uint64(a.size) {
		return ErrCallbackRegionFull
	}
	a.size -= callbackDescSize
	base := a.size
	a.putU32(base, uint32(fnOff))
	a.putU32(base+4, uint32(sigOff))
	a.putU32(base+8, native)
	return nil
}

// Callbacks returns every pinned callback descriptor, in pin order
// (oldest first, since the region grows downward from the top).
func (a *Arena) Callbacks() []callbackDescriptor {
	var out []callbackDescriptor
	for base := Offset(len(a.buf)) - callbackDescSize; base >= a.size && base < Offset(len(a.buf)); base -= callbackDescSize {
		out = append(out, callbackDescriptor{
			fnOff:  Offset(a.u32(base)),
			sigOff: Offset(a.u32(base + 4)),
			native: a.u32(base + 8),
		})
	}
	return out
}

// CallbackNative returns the native id pinned for the callback whose
// Function value offset is fnOff, and whether one was found.
func (a *Arena) CallbackNative(fnOff Offset) (uint32, bool) {
	for _, cb := range a.Callbacks() {
		if cb.fnOff == fnOff {
			return cb.native, true
		}
	}
	return 0, false
}
