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

package engine

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/probechain/melk/lang/arena"
)

// dumpNode is the generic shape Dump walks values into before handing
// them to spew; spew.Sdump already knows how to pretty-print nested
// maps and slices, so there is no need for a bespoke printer here.
type dumpNode struct {
	Type  string
	Value interface{} `json:",omitempty"`
}

// Dump renders a human-readable tree of v, recursing into Objects and
// chasing Property chains, the way js_dump walks a value for
// debugging. Cycles (a script can construct one: `let a={}; a.self =
// a;`) are broken by rendering a repeated Object's second visit as a
// `<cycle>` marker instead of recursing forever.
func (e *Engine) Dump(v arena.Value) string {
	seen := map[arena.Offset]bool{}
	return spew.Sdump(e.dumpValue(v, seen))
}

func (e *Engine) dumpValue(v arena.Value, seen map[arena.Offset]bool) dumpNode {
	switch arena.TypeOf(v) {
	case arena.TagNumber:
		return dumpNode{Type: "number", Value: arena.AsNumber(v)}
	case arena.TagUndefined:
		return dumpNode{Type: "undefined"}
	case arena.TagNull:
		return dumpNode{Type: "null"}
	case arena.TagBoolean:
		return dumpNode{Type: "boolean", Value: arena.BoolPayload(v)}
	case arena.TagString:
		s, _ := e.Str2(v)
		return dumpNode{Type: "string", Value: s}
	case arena.TagError:
		return dumpNode{Type: "error", Value: e.ErrMsg()}
	case arena.TagFunction:
		if arena.IsNativeFunction(v) {
			return dumpNode{Type: "function", Value: fmt.Sprintf("native#%d", arena.NativeFunctionIndex(v))}
		}
		return dumpNode{Type: "function", Value: e.Str(v)}
	case arena.TagObject:
		off := arena.OffsetOf(v)
		if seen[off] {
			return dumpNode{Type: "object", Value: "<cycle>"}
		}
		seen[off] = true
		props := map[string]dumpNode{}
		for p := e.a.ObjectFirstProp(off); p != 0; p = e.a.PropNext(p) {
			key := string(e.a.StringBytes(e.a.PropKey(p)))
			props[key] = e.dumpValue(e.a.PropValue(p), seen)
		}
		return dumpNode{Type: "object", Value: props}
	default:
		return dumpNode{Type: "unknown"}
	}
}
