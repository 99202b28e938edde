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

// Package elog is a small leveled logger in the house style: a Logger
// tree with inherited key/value context, a pluggable Handler/Format
// pair, and a colorized terminal formatter for interactive use. It is
// quiet by default (Root's level is LvlWarn, so only warnings and worse
// are written) since an embedded engine normally has no business
// writing to its host's stderr unless asked.
package elog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a logging level, ordered from most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "crit"
	case LvlError:
		return "error"
	case LvlWarn:
		return "warn"
	case LvlInfo:
		return "info"
	case LvlDebug:
		return "debug"
	case LvlTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// LvlFromString parses the -v flag's level names ("crit".."trace"),
// also accepting the numeric 0-5 the CLI table uses.
func LvlFromString(s string) (Lvl, error) {
	switch s {
	case "0", "crit":
		return LvlCrit, nil
	case "1", "error":
		return LvlError, nil
	case "2", "warn":
		return LvlWarn, nil
	case "3", "info":
		return LvlInfo, nil
	case "4", "debug":
		return LvlDebug, nil
	case "5", "trace":
		return LvlTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// Record is one emitted log line: a timestamp, level, message, an
// inherited-then-call-site flattened key/value context, and the call
// frame that produced it (only resolved when origin capture is on,
// since stack.Caller walks the runtime stack and isn't free).
type Record struct {
	Time    time.Time
	Lvl     Lvl
	Msg     string
	Ctx     []interface{}
	Call    stack.Call
	HasCall bool
}

// Handler writes a Record somewhere (or filters/multiplexes to other
// Handlers). Implementations must be safe for concurrent use; melk
// itself is single-threaded, but a host embedding the engine may log
// from other goroutines of its own.
type Handler interface {
	Log(r *Record) error
}

// Format renders a Record to bytes for a stream-oriented Handler.
type Format interface {
	Format(r *Record) []byte
}

type funcHandler func(r *Record) error

func (f funcHandler) Log(r *Record) error { return f(r) }

// FuncHandler adapts a plain function to the Handler interface.
func FuncHandler(fn func(r *Record) error) Handler { return funcHandler(fn) }

// StreamHandler writes every Record to wr using fmtr, serializing
// writes with a mutex so concurrent loggers sharing one stream never
// interleave a line.
func StreamHandler(wr io.Writer, fmtr Format) Handler {
	var mu sync.Mutex
	return FuncHandler(func(r *Record) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := wr.Write(fmtr.Format(r))
		return err
	})
}

// LvlFilterHandler drops Records more verbose than maxLvl before they
// reach h.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

// DiscardHandler drops every Record; it backs a Logger that has been
// asked to be quiet without special-casing nil handlers elsewhere.
func DiscardHandler() Handler {
	return FuncHandler(func(r *Record) error { return nil })
}

var originsLocked atomic.Bool

// EnableOrigins turns on call-site capture (file:line) for every
// Record, at the cost of a stack walk per log call. Off by default.
func EnableOrigins(on bool) { originsLocked.Store(on) }

// levelColor picks one color per severity: bold magenta for crit, then
// red, yellow, green and cyan for error through debug, white otherwise.
func levelColor(l Lvl) *color.Color {
	switch l {
	case LvlCrit:
		return color.New(color.FgMagenta, color.Bold)
	case LvlError:
		return color.New(color.FgRed)
	case LvlWarn:
		return color.New(color.FgYellow)
	case LvlInfo:
		return color.New(color.FgGreen)
	case LvlDebug:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

type termFormat struct{ color bool }

// TerminalFormat renders one line per Record: `LVL[time] msg key=val
// ...`, colorizing the level tag when color is true. Values that are
// empty or contain a space, '=' or '"' get quoted the way a
// shell-pasteable log line should; keys are written as they are.
func TerminalFormat(useColor bool) Format { return &termFormat{color: useColor} }

func (f *termFormat) Format(r *Record) []byte {
	var b []byte
	lvl := fmt.Sprintf("%-5s", r.Lvl.String())
	if f.color {
		lvl = levelColor(r.Lvl).Sprint(lvl)
	}
	b = append(b, []byte(fmt.Sprintf("%s[%s] %s", lvl, r.Time.Format("01-02|15:04:05.000"), r.Msg))...)
	for i := 0; i+1 < len(r.Ctx); i += 2 {
		b = append(b, ' ')
		b = append(b, []byte(formatKV(r.Ctx[i], r.Ctx[i+1]))...)
	}
	if r.HasCall {
		b = append(b, []byte(fmt.Sprintf(" (%v)", r.Call))...)
	}
	b = append(b, '\n')
	return b
}

func formatKV(k, v interface{}) string {
	ks := fmt.Sprint(k)
	vs := fmt.Sprint(v)
	if needsQuote(vs) {
		vs = fmt.Sprintf("%q", vs)
	}
	return ks + "=" + vs
}

func needsQuote(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return len(s) == 0
}

// logger is the Logger implementation: a handler plus a frozen
// key/value prefix every call appends its own ctx onto.
type logger struct {
	ctx     []interface{}
	handler atomic.Value // Handler
	lvl     atomic.Int32
}

// Logger is the leveled, contextual logging interface melk's engine
// and CLI write against.
type Logger interface {
	New(ctx ...interface{}) Logger
	SetHandler(h Handler)
	SetLevel(l Lvl)
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

func newLogger(ctx []interface{}, h Handler, lvl Lvl) *logger {
	l := &logger{ctx: ctx}
	l.handler.Store(h)
	l.lvl.Store(int32(lvl))
	return l
}

// New returns a child Logger whose context is this logger's context
// with ctx appended, sharing the same handler and level.
func (l *logger) New(ctx ...interface{}) Logger {
	child := make([]interface{}, 0, len(l.ctx)+len(ctx))
	child = append(child, l.ctx...)
	child = append(child, ctx...)
	return newLogger(child, l.handler.Load().(Handler), Lvl(l.lvl.Load()))
}

func (l *logger) SetHandler(h Handler) { l.handler.Store(h) }
func (l *logger) SetLevel(lv Lvl)      { l.lvl.Store(int32(lv)) }

func (l *logger) write(lv Lvl, msg string, ctx []interface{}) {
	if lv > Lvl(l.lvl.Load()) {
		return
	}
	r := &Record{Time: time.Now(), Lvl: lv, Msg: msg}
	if len(l.ctx) > 0 {
		r.Ctx = append(r.Ctx, l.ctx...)
	}
	r.Ctx = append(r.Ctx, ctx...)
	if originsLocked.Load() {
		r.Call = stack.Caller(2)
		r.HasCall = true
	}
	_ = l.handler.Load().(Handler).Log(r)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

// defaultWriter picks a colorable stderr when it is a real terminal,
// plain stderr otherwise (redirected to a file, piped, or on a
// platform go-isatty can't query).
func defaultWriter() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return colorable.NewColorableStderr()
	}
	return os.Stderr
}

var root = newLogger(nil, StreamHandler(defaultWriter(), TerminalFormat(isatty.IsTerminal(os.Stderr.Fd()))), LvlWarn)

// Root returns the package-level Logger every New()-derived child and
// the bare-function helpers (Info, Warn, ...) ultimately write
// through.
func Root() Logger { return root }

// New derives a child of Root with the given key/value context.
func New(ctx ...interface{}) Logger { return root.New(ctx...) }

// SetLevel adjusts Root's verbosity; the CLI's -v flag calls this.
func SetLevel(l Lvl) { root.SetLevel(l) }

func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
