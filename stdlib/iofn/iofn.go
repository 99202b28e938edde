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

// Package iofn registers the natives that let a script talk to the
// outside world: emit() writes a line to stdout under a token-bucket
// rate limit (a sandboxed script has no other way to flood a host's
// terminal or log pipeline), rejecting the call with a bad-arg Error
// rather than blocking once the bucket is empty, and require() pulls
// in another script file by path, the one example the original engine
// documents for its own FFI mechanism.
package iofn

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/eval"
)

// defaultEmitRate and defaultEmitBurst bound emit() to a rate a human
// watching a terminal can keep up with; a script calling emit() in a
// tight loop gets a "bad arg 1" Error once the burst is spent, rather
// than hanging the host.
const (
	defaultEmitRate  = 50
	defaultEmitBurst = 50
)

// Register installs emit() and require() on e's global scope.
func Register(e *engine.Engine) {
	limiter := rate.NewLimiter(rate.Limit(defaultEmitRate), defaultEmitBurst)

	e.Register("emit", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "s") {
			return ev.Fail("bad sig")
		}
		if !limiter.Allow() {
			return ev.Fail(eval.ErrBadArg(1))
		}
		s, _ := e.Str2(args[0])
		fmt.Println(s)
		return arena.Undefined
	})

	e.Register("require", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "s") {
			return ev.Fail("bad sig")
		}
		path, _ := e.Str2(args[0])
		v, err := e.EvalFile(path)
		if err != nil {
			return ev.Fail("ffi")
		}
		return v
	})
}
