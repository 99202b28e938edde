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

// Collect runs one mark-compact pass. It is only ever safe to call at a
// top-level statement boundary: every live reference must be reachable
// from a.root (the current scope chain) or from a pinned callback
// descriptor, or it will be silently reclaimed.
//
// Three-phase algorithm:
//  1. mark every entity in [0, brk).
//  2. walk the roots and clear the mark on everything reachable.
//  3. sweep [0, brk) left to right; anything still marked is garbage —
//     splice it out, patching every offset in the arena, in the pinned
//     region, and in a.root that pointed past it.
func (a *Arena) Collect() error {
	if err := a.markAll(); err != nil {
		return err
	}
	a.unmarkReachable(a.root)
	for _, cb := range a.Callbacks() {
		if cb.fnOff != 0 {
			a.unmarkReachable(NewFunctionValue(cb.fnOff))
		}
		if cb.sigOff != 0 {
			a.unmarkReachable(NewStringValue(cb.sigOff))
		}
	}
	return a.sweepCompact()
}

func (a *Arena) markAll() error {
	p := Offset(0)
	for p < a.brk {
		sz, _, err := a.entitySize(p)
		if err != nil {
			return err
		}
		a.putU32(p, a.u32(p)|markBit)
		p += Offset(sz)
	}
	return nil
}

func (a *Arena) isMarked(off Offset) bool { return a.u32(off)&markBit != 0 }
func (a *Arena) clearMark(off Offset)     { a.putU32(off, a.u32(off)&^markBit) }

// unmarkReachable recursively clears the mark bit of every entity
// reachable from v. It uses "still marked" as the visited check, so
// cycles (a property whose value is an ancestor scope, a self-reference
// through an object graph) terminate naturally.
func (a *Arena) unmarkReachable(v Value) {
	if !IsOffsetBearing(v) {
		return
	}
	off := OffsetOf(v)
	// Offset 0 is always the global scope Object (the first allocation).
	if off == 0 && TypeOf(v) != TagObject {
		return
	}
	switch TypeOf(v) {
	case TagObject:
		if !a.isMarked(off) {
			return
		}
		a.clearMark(off)
		if parent := a.ObjectParent(off); parent != 0 {
			a.unmarkReachable(NewObjectValue(parent))
		}
		for p := a.ObjectFirstProp(off); p != 0; p = a.PropNext(p) {
			if !a.isMarked(p) {
				break
			}
			a.clearMark(p)
			a.unmarkReachable(NewStringValue(a.PropKey(p)))
			a.unmarkReachable(a.PropValue(p))
		}
	case TagProperty:
		if !a.isMarked(off) {
			return
		}
		a.clearMark(off)
		a.unmarkReachable(NewStringValue(a.PropKey(off)))
		a.unmarkReachable(a.PropValue(off))
	case TagString:
		a.clearMark(off)
	case TagFunction:
		a.clearMark(off)
	}
}

// sweepCompact removes every entity still marked after unmarkReachable
// and rewrites every offset-bearing field that pointed past it.
func (a *Arena) sweepCompact() error {
	pos := Offset(0)
	for pos < a.brk {
		sz, _, err := a.entitySize(pos)
		if err != nil {
			return err
		}
		if !a.isMarked(pos) {
			pos += Offset(sz)
			continue
		}
		a.patchOffsetsPast(pos, sz)
		copy(a.buf[pos:a.brk-Offset(sz)], a.buf[pos+Offset(sz):a.brk])
		a.brk -= Offset(sz)
		// re-examine pos: the bytes that used to follow the removed
		// entity are now located here.
	}
	return nil
}

// patchOffsetsPast rewrites every offset field in [0, brk), in a.root,
// and in the pinned callback region that points strictly past
// threshold, subtracting size. It must run before the physical shift
// that actually removes the dead entity, while offsets are still valid
// in the pre-shift coordinate space.
func (a *Arena) patchOffsetsPast(threshold Offset, size uint32) {
	patch := func(off Offset) Offset {
		if off > threshold {
			return off - Offset(size)
		}
		return off
	}

	p := Offset(0)
	for p < a.brk {
		w0 := a.u32(p)
		tag := Tag(w0 & tagMask)
		switch tag {
		case TagObject:
			if parent := Offset(a.u32(p + 4)); parent > threshold {
				a.putU32(p+4, uint32(patch(parent)))
			}
			if first := Offset(w0 >> 3); first > threshold {
				a.putU32(p, (uint32(patch(first))<<3)|(w0&(markBit|tagMask)))
			}
			sz, _, _ := a.entitySize(p)
			p += Offset(sz)
		case TagProperty:
			if key := Offset(a.u32(p + 4)); key > threshold {
				a.putU32(p+4, uint32(patch(key)))
			}
			if next := Offset(w0 >> 3); next > threshold {
				a.putU32(p, (uint32(patch(next))<<3)|(w0&(markBit|tagMask)))
			}
			val := Value(a.u64(p + 8))
			if IsOffsetBearing(val) {
				if voff := OffsetOf(val); voff > threshold {
					a.putU64(p+8, uint64(rebuildWithOffset(val, patch(voff))))
				}
			}
			sz, _, _ := a.entitySize(p)
			p += Offset(sz)
		case TagString:
			sz, _, _ := a.entitySize(p)
			p += Offset(sz)
		default:
			return
		}
	}

	if IsOffsetBearing(a.root) {
		if roff := OffsetOf(a.root); roff > threshold {
			a.root = rebuildWithOffset(a.root, patch(roff))
		}
	}

	for base := Offset(len(a.buf)) - callbackDescSize; base >= a.size && base < Offset(len(a.buf)); base -= callbackDescSize {
		if fn := Offset(a.u32(base)); fn > threshold {
			a.putU32(base, uint32(patch(fn)))
		}
		if sig := Offset(a.u32(base + 4)); sig != 0 && sig > threshold {
			a.putU32(base+4, uint32(patch(sig)))
		}
	}
}
