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

// Package mathfn registers the scalar math natives melk scripts call
// into: abs, floor, ceil, round, sqrt, pow, min and max, one
// arithmetic primitive short of what the language's own operators
// already cover.
package mathfn

import (
	"math"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/eval"
)

// Register installs the math natives on e's global scope.
func Register(e *engine.Engine) {
	unary(e, "abs", math.Abs)
	unary(e, "floor", math.Floor)
	unary(e, "ceil", math.Ceil)
	unary(e, "round", math.Round)
	unary(e, "sqrt", math.Sqrt)

	e.Register("pow", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "dd") {
			return ev.Fail("bad sig")
		}
		x, _ := e.Num(args[0])
		y, _ := e.Num(args[1])
		return e.Mknum(math.Pow(x, y))
	})
	e.Register("min", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "dd") {
			return ev.Fail("bad sig")
		}
		x, _ := e.Num(args[0])
		y, _ := e.Num(args[1])
		return e.Mknum(math.Min(x, y))
	})
	e.Register("max", func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "dd") {
			return ev.Fail("bad sig")
		}
		x, _ := e.Num(args[0])
		y, _ := e.Num(args[1])
		return e.Mknum(math.Max(x, y))
	})
}

// unary registers a single-argument, single-result numeric native.
func unary(e *engine.Engine, name string, fn func(float64) float64) {
	e.Register(name, func(ev *eval.Evaluator, args []arena.Value) arena.Value {
		if !eval.CheckArgs(args, "d") {
			return ev.Fail("bad sig")
		}
		x, _ := e.Num(args[0])
		return e.Mknum(fn(x))
	})
}
