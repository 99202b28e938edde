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

// Package cryptofn registers the hashing natives melk scripts call
// into, the scripting-language equivalent of ffi'ing a few chain
// primitives into the sandbox without exposing a whole crypto
// surface.
package cryptofn

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/eval"
)

// Register installs hash() and shake256() on e's global scope.
func Register(e *engine.Engine) {
	e.Register("hash", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "s") {
			return ev.Fail("bad sig")
		}
		s, _ := e.Str2(args[0])
		sum := sha3.Sum256([]byte(s))
		out, err := e.Mkstr(hex.EncodeToString(sum[:]))
		if err != nil {
			return ev.Fail("oom")
		}
		return out
	})

	e.Register("shake256", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "sd") {
			return ev.Fail("bad sig")
		}
		s, _ := e.Str2(args[0])
		n, _ := e.Num(args[1])
		if n <= 0 || n > 4096 {
			return ev.Fail(eval.ErrBadArg(1))
		}
		out := make([]byte, int(n))
		h := sha3.NewShake256()
		h.Write([]byte(s))
		h.Read(out)
		v, err := e.Mkstr(hex.EncodeToString(out))
		if err != nil {
			return ev.Fail("oom")
		}
		return v
	})
}
