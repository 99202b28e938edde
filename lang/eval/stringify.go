// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"strconv"
	"strings"

	"github.com/probechain/melk/lang/arena"
)

// Str renders v the way the engine's js_str does: Numbers as the
// shortest round-tripping decimal, Objects as `{"k":v,...}` in
// newest-first property order, Strings JSON-escaped and
// double-quoted, Functions as their captured `function(params){body}`
// source, Booleans as `true`/`false`, Null/Undefined as their literal
// words, and an Error as `ERROR: ` followed by the evaluator's stored
// message (e.g. `ERROR: type mismatch`). ErrMsg returns the bare
// message without that prefix, for callers that want to match on it.
//
// The source engine writes this into the arena's own unused tail so
// callers get a pointer valid until the next allocation; a Go slice
// cannot honor that contract safely (nothing stops a caller from
// retaining it past an intervening GC), so this returns an
// independent string copy instead.
func (ev *Evaluator) Str(v arena.Value) string {
	if v == arena.ErrVal {
		return "ERROR: " + ev.errMsg
	}
	var b strings.Builder
	ev.writeValue(&b, v)
	return b.String()
}

func (ev *Evaluator) writeValue(b *strings.Builder, v arena.Value) {
	switch arena.TypeOf(v) {
	case arena.TagNumber:
		b.WriteString(formatNumber(arena.AsNumber(v)))
	case arena.TagUndefined:
		b.WriteString("undefined")
	case arena.TagNull:
		b.WriteString("null")
	case arena.TagBoolean:
		if arena.BoolPayload(v) {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case arena.TagString:
		writeQuotedString(b, ev.a.StringBytes(arena.OffsetOf(v)))
	case arena.TagObject:
		ev.writeObject(b, arena.OffsetOf(v))
	case arena.TagFunction:
		if arena.IsNativeFunction(v) {
			b.WriteString("function() { [native code] }")
			return
		}
		b.WriteString("function")
		b.Write(ev.a.StringBytes(arena.ScriptFunctionOffset(v)))
	case arena.TagProperty:
		ev.writeValue(b, ev.a.PropValue(arena.OffsetOf(v)))
	default:
		b.WriteString("undefined")
	}
}

func (ev *Evaluator) writeObject(b *strings.Builder, off arena.Offset) {
	b.WriteByte('{')
	first := true
	for p := ev.a.ObjectFirstProp(off); p != 0; p = ev.a.PropNext(p) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		writeQuotedString(b, ev.a.StringBytes(ev.a.PropKey(p)))
		b.WriteByte(':')
		ev.writeValue(b, ev.a.PropValue(p))
	}
	b.WriteByte('}')
}

// formatNumber produces the shortest decimal that round-trips back to
// f (Go's strconv 'g' verb with precision -1), collapsing to an
// integer form when f has no fractional part and fits the mantissa
// exactly — the common case for scripts that never touch floats.
func formatNumber(f float64) string {
	if f == float64(int64(f)) && !isNegZero(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isNegZero(f float64) bool { return f == 0 && 1/f < 0 }

func writeQuotedString(b *strings.Builder, s []byte) {
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				const hex = "0123456789abcdef"
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
}
