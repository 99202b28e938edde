// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package eval

import (
	"math"
	"strconv"

	"github.com/probechain/melk/lang/arena"
	"github.com/probechain/melk/lang/token"
)

// Expressions are parsed by ordinary precedence-climbing recursive
// descent rather than the two-stack push-then-sort-by-precedence
// machine described in the engine's original design note: the two are
// observationally equivalent (same precedence table, same left/right
// associativity, same evaluation order), and recursive descent needs
// no separate "is this + unary or binary" resolution pass — the
// grammar position a token is parsed from already answers that.

// parseExpr is the expression entry point. It also bounds recursion:
// parenthesised grouping is the one unbounded recursion source that
// loops back through here (parseUnary's own prefix-chain recursion
// shares the same counter), since each nesting level grows the host
// call stack one frame with no other limit.
func (ev *Evaluator) parseExpr() arena.Value {
	ev.recurDepth++
	defer func() { ev.recurDepth-- }()
	if ev.recurDepth > ev.MaxRecursionDepth {
		return ev.fail(errCStack())
	}
	return ev.parseAssignExpr()
}

// countOp charges one operator application against the current
// expression's flat operator budget — the recursive-descent equivalent
// of pushing onto a fixed-size operator stack. A long, unparenthesised
// chain like `1+1+1+...` never recurses, so it cannot trip
// MaxRecursionDepth; this is what actually bounds it.
func (ev *Evaluator) countOp() bool {
	ev.exprOps++
	if ev.exprOps > ev.MaxExprDepth {
		ev.fail(errExprTooDeep())
		return false
	}
	return true
}

var assignOps = map[token.Type]token.Type{
	token.PLUSEQ:     token.PLUS,
	token.MINUSEQ:    token.MINUS,
	token.STAREQ:     token.STAR,
	token.SLASHEQ:    token.SLASH,
	token.PERCENTEQ:  token.PERCENT,
	token.AMPEQ:      token.AMP,
	token.PIPEEQ:     token.PIPE,
	token.CARETEQ:    token.CARET,
	token.LSHIFTEQ:   token.LSHIFT,
	token.RSHIFTEQ:   token.RSHIFT,
	token.URSHIFTEQ:  token.URSHIFT,
	token.STARSTAREQ: token.STARSTAR,
}

func (ev *Evaluator) parseAssignExpr() arena.Value {
	lhs := ev.parseTernary()
	if ev.hasError {
		return arena.ErrVal
	}

	if ev.at(token.ASSIGN) {
		ev.next()
		rhs := ev.parseAssignExpr()
		if ev.hasError {
			return arena.ErrVal
		}
		return ev.assignTo(lhs, rhs)
	}
	if binOp, ok := assignOps[ev.cur().Type]; ok {
		ev.next()
		rhs := ev.parseAssignExpr()
		if ev.hasError {
			return arena.ErrVal
		}
		cur := ev.deref(lhs)
		newVal := ev.applyBinary(binOp, cur, ev.deref(rhs))
		if ev.hasError {
			return arena.ErrVal
		}
		return ev.assignTo(lhs, newVal)
	}
	return lhs
}

// assignTo writes val through the Property referenced by lhs; anything
// else on the left is a bad lhs. A bare identifier that resolved to
// nothing is the one exception: writing through it declares/updates a
// binding on the global scope instead of erroring.
func (ev *Evaluator) assignTo(lhs, val arena.Value) arena.Value {
	if arena.TypeOf(lhs) != arena.TagProperty {
		return ev.fail(errBadLHS())
	}
	val = ev.deref(val)
	if ev.hasError {
		return arena.ErrVal
	}
	off := arena.OffsetOf(lhs)
	if id, ok := unresolvedIdentID(off); ok {
		if ev.noExec == 0 {
			if _, ok := ev.assignOrCreateGlobal(ev.identNames[id], val); !ok {
				return arena.ErrVal
			}
		}
		return val
	}
	if ev.noExec == 0 {
		ev.a.PropSetValue(off, val)
	}
	return val
}

func (ev *Evaluator) parseTernary() arena.Value {
	cond := ev.parseLogicalOr()
	if ev.hasError || !ev.at(token.QUESTION) {
		return cond
	}
	ev.next()
	if !ev.countOp() {
		return arena.ErrVal
	}
	truthy := ev.truthy(ev.deref(cond))

	var result arena.Value
	if truthy {
		result = ev.parseAssignExpr()
	} else {
		ev.noExec++
		ev.parseAssignExpr()
		ev.noExec--
	}
	if ev.hasError {
		return arena.ErrVal
	}
	if !ev.expect(token.COLON) {
		return arena.ErrVal
	}
	if !truthy {
		result = ev.parseAssignExpr()
	} else {
		ev.noExec++
		ev.parseAssignExpr()
		ev.noExec--
	}
	if ev.hasError {
		return arena.ErrVal
	}
	return ev.deref(result)
}

func (ev *Evaluator) parseLogicalOr() arena.Value {
	left := ev.parseLogicalAnd()
	for !ev.hasError && ev.at(token.LOR) {
		ev.next()
		if !ev.countOp() {
			return arena.ErrVal
		}
		ld := ev.deref(left)
		if ev.truthy(ld) {
			ev.noExec++
			ev.parseLogicalAnd()
			ev.noExec--
			left = ld
			continue
		}
		left = ev.deref(ev.parseLogicalAnd())
	}
	return left
}

func (ev *Evaluator) parseLogicalAnd() arena.Value {
	left := ev.parseBitOr()
	for !ev.hasError && ev.at(token.LAND) {
		ev.next()
		if !ev.countOp() {
			return arena.ErrVal
		}
		ld := ev.deref(left)
		if !ev.truthy(ld) {
			ev.noExec++
			ev.parseBitOr()
			ev.noExec--
			left = ld
			continue
		}
		left = ev.deref(ev.parseBitOr())
	}
	return left
}

// binaryLevel parses a standard left-associative binary level: next
// climbs to the next-higher precedence, ops lists the tokens accepted
// at this level.
func (ev *Evaluator) binaryLevel(next func() arena.Value, ops ...token.Type) arena.Value {
	left := next()
	for !ev.hasError {
		matched := false
		for _, op := range ops {
			if ev.at(op) {
				ev.next()
				if !ev.countOp() {
					return arena.ErrVal
				}
				right := next()
				if ev.hasError {
					return arena.ErrVal
				}
				left = ev.applyBinary(op, ev.deref(left), ev.deref(right))
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	return left
}

func (ev *Evaluator) parseBitOr() arena.Value { return ev.binaryLevel(ev.parseBitXor, token.PIPE) }
func (ev *Evaluator) parseBitXor() arena.Value { return ev.binaryLevel(ev.parseBitAnd, token.CARET) }
func (ev *Evaluator) parseBitAnd() arena.Value { return ev.binaryLevel(ev.parseEquality, token.AMP) }
func (ev *Evaluator) parseEquality() arena.Value {
	return ev.binaryLevel(ev.parseRelational, token.SEQ, token.SNE)
}
func (ev *Evaluator) parseRelational() arena.Value {
	return ev.binaryLevel(ev.parseShift, token.LT, token.LTE, token.GT, token.GTE)
}
func (ev *Evaluator) parseShift() arena.Value {
	return ev.binaryLevel(ev.parseAdditive, token.LSHIFT, token.RSHIFT, token.URSHIFT)
}
func (ev *Evaluator) parseAdditive() arena.Value {
	return ev.binaryLevel(ev.parseMultiplicative, token.PLUS, token.MINUS)
}
func (ev *Evaluator) parseMultiplicative() arena.Value {
	return ev.binaryLevel(ev.parseExponent, token.STAR, token.SLASH, token.PERCENT)
}

// parseExponent is right-associative.
func (ev *Evaluator) parseExponent() arena.Value {
	left := ev.parseUnary()
	if ev.hasError || !ev.at(token.STARSTAR) {
		return left
	}
	ev.next()
	if !ev.countOp() {
		return arena.ErrVal
	}
	right := ev.parseExponent()
	if ev.hasError {
		return arena.ErrVal
	}
	return ev.applyBinary(token.STARSTAR, ev.deref(left), ev.deref(right))
}

// parseUnary recurses on itself for a prefix-operator chain
// (`!!!!!!x`), the other unbounded recursion source besides
// parenthesised grouping, so it shares parseExpr's recursion guard.
func (ev *Evaluator) parseUnary() arena.Value {
	switch ev.cur().Type {
	case token.BANG, token.TILDE, token.TYPEOF, token.PLUS, token.MINUS:
		op := ev.next().Type
		ev.recurDepth++
		if ev.recurDepth > ev.MaxRecursionDepth {
			ev.recurDepth--
			return ev.fail(errCStack())
		}
		operand := ev.parseUnary()
		if op == token.TYPEOF && arena.TypeOf(operand) == arena.TagProperty {
			if _, unresolved := unresolvedIdentID(arena.OffsetOf(operand)); unresolved {
				operand = arena.Undefined
			}
		}
		operand = ev.deref(operand)
		ev.recurDepth--
		if ev.hasError {
			return arena.ErrVal
		}
		return ev.applyUnary(op, operand)
	default:
		return ev.parsePostfix()
	}
}

func (ev *Evaluator) parsePostfix() arena.Value {
	v := ev.parseMemberCall()
	for !ev.hasError && (ev.at(token.INC) || ev.at(token.DEC)) {
		op := ev.next().Type
		if arena.TypeOf(v) != arena.TagProperty {
			return ev.fail(errBadLHS())
		}
		pre := ev.deref(v)
		if arena.TypeOf(pre) != arena.TagNumber {
			return ev.fail(errTypeMismatch())
		}
		delta := 1.0
		if op == token.DEC {
			delta = -1.0
		}
		if ev.noExec == 0 {
			ev.a.PropSetValue(arena.OffsetOf(v), arena.FromNumber(arena.AsNumber(pre)+delta))
		}
		v = pre
	}
	return v
}

func (ev *Evaluator) parseMemberCall() arena.Value {
	v := ev.parsePrimary()
	for !ev.hasError {
		switch ev.cur().Type {
		case token.DOT:
			ev.next()
			if !ev.at(token.IDENT) && !ev.cur().Type.IsKeyword() {
				return ev.fail(errIdentExpected())
			}
			key := ev.next().Literal
			v = ev.memberAccess(v, key)
		case token.LPAREN:
			v = ev.parseCall(v)
		default:
			return v
		}
	}
	return v
}

// memberAccess implements the `.` operator: own properties only, no
// prototype chain, and a missing key reads as Undefined rather than
// failing (unlike a missing identifier).
func (ev *Evaluator) memberAccess(left arena.Value, key string) arena.Value {
	obj := ev.deref(left)
	if arena.TypeOf(obj) == arena.TagString && key == "length" {
		return arena.FromNumber(float64(ev.a.StringByteLen(arena.OffsetOf(obj))))
	}
	if arena.TypeOf(obj) != arena.TagObject {
		return ev.fail(errLookupInNonObj())
	}
	p, ok := ev.lookupOwnProperty(arena.OffsetOf(obj), key)
	if !ok {
		return arena.Undefined
	}
	return arena.NewPropertyValue(p)
}

func (ev *Evaluator) parsePrimary() arena.Value {
	t := ev.cur()
	switch t.Type {
	case token.NUMBER:
		ev.next()
		f, err := parseNumberLiteral(t.Literal)
		if err != nil {
			return ev.fail(errParseError())
		}
		return arena.FromNumber(f)
	case token.STRING:
		ev.next()
		if ev.noExec > 0 {
			return arena.Undefined
		}
		sv, err := ev.a.NewStringEntity([]byte(t.Literal))
		if err != nil {
			return ev.fail(errOOM())
		}
		return sv
	case token.TRUE:
		ev.next()
		return arena.True
	case token.FALSE:
		ev.next()
		return arena.False
	case token.NULL:
		ev.next()
		return arena.Null
	case token.UNDEFINED:
		ev.next()
		return arena.Undefined
	case token.IDENT:
		ev.next()
		return ev.resolveIdent(t.Literal)
	case token.FUNCTION:
		return ev.parseFunctionLiteral()
	case token.LBRACE:
		return ev.parseObjectLiteral()
	case token.LPAREN:
		ev.next()
		v := ev.parseExpr()
		if ev.hasError {
			return arena.ErrVal
		}
		if !ev.expect(token.RPAREN) {
			return arena.ErrVal
		}
		return v
	default:
		if t.Type.IsNonFeature() {
			ev.next()
			return ev.fail(errNotImplemented(t.Literal))
		}
		return ev.fail(errUnexpectedToken(t))
	}
}

// parseFunctionLiteral parses `function (params) { body }`, entered
// with FUNCTION as the current token. The body is not walked in
// no-execute mode the way an untaken if/while branch is. Declaring a
// function validates only what can be checked without evaluating
// anything: the parameter list must be a comma-
// separated identifier list, and the body must be a balanced brace
// pair. A syntax error inside the body's statements (as opposed to its
// braces) surfaces the first time the function is actually called,
// exactly as callScript's own re-lex of the captured source does.
//
// The verbatim source from the opening '(' through the closing '}' is
// captured as a String entity; callScript re-lexes that slice fresh on
// every call instead of walking a stored AST.
func (ev *Evaluator) parseFunctionLiteral() arena.Value {
	ev.next() // 'function'
	if !ev.at(token.LPAREN) {
		return ev.fail(errUnexpectedToken(ev.cur()))
	}
	start := ev.cur().Pos.Offset
	ev.next() // '('

	for !ev.at(token.RPAREN) && !ev.at(token.EOF) {
		if !ev.at(token.IDENT) {
			return ev.fail(errUnexpectedToken(ev.cur()))
		}
		ev.next()
		if ev.at(token.COMMA) {
			ev.next()
		}
	}
	if !ev.expect(token.RPAREN) {
		return arena.ErrVal
	}
	if !ev.at(token.LBRACE) {
		return ev.fail(errUnexpectedToken(ev.cur()))
	}

	depth := 0
	end := start
	for {
		switch ev.cur().Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		case token.EOF, token.ILLEGAL:
			return ev.fail(errUnexpectedToken(ev.cur()))
		}
		end = ev.cur().Pos.Offset + len(ev.cur().Literal)
		ev.next()
		if depth == 0 {
			break
		}
	}

	if end > len(ev.fr.src) {
		end = len(ev.fr.src)
	}

	// Box the span as a CodeRef before touching the arena: this is the
	// same (offset,length)-into-source-buffer value a future native
	// bridge can hand out without forcing an allocation, and it is where
	// the 32-bit-overflow check on a pathologically long function body
	// belongs, ahead of the copy below rather than after it.
	ref, err := arena.NewCodeRefValue(uint32(start), uint32(end-start))
	if err != nil {
		return ev.fail(errBodyTooLong())
	}

	sv, err := ev.a.NewStringEntity([]byte(ev.fr.src[arena.CodeRefOffset(ref) : arena.CodeRefOffset(ref)+arena.CodeRefLength(ref)]))
	if err != nil {
		return ev.fail(errOOM())
	}
	return arena.NewFunctionValue(arena.OffsetOf(sv))
}

func parseNumberLiteral(lit string) (float64, error) {
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		n, err := strconv.ParseUint(lit[2:], 16, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(lit, 64)
}

// resolveIdent looks the identifier up through the scope chain,
// returning a Property value. When the name is not bound, it cannot
// fail outright: `a = 1` on an undeclared `a` must still create a
// global, and resolveIdent runs before the parser knows whether this
// identifier is about to be read or assigned. Unbound
// names are instead wrapped as an "unresolved identifier" sentinel —
// a Property value whose offset is odd, which no real arena offset
// ever is (entities are always allocated 4-byte aligned) — that
// deref() turns into a `not found` error and assignTo() turns into a
// global declaration. Inside dead (no-execute) code it resolves to
// Undefined instead, since nothing will ever read or write it.
func (ev *Evaluator) resolveIdent(name string) arena.Value {
	scopeOff := arena.OffsetOf(ev.scope)
	if p, ok := ev.lookupChain(scopeOff, name); ok {
		return arena.NewPropertyValue(p)
	}
	if ev.noExec > 0 {
		return arena.Undefined
	}
	return ev.unresolvedIdent(name)
}

func (ev *Evaluator) unresolvedIdent(name string) arena.Value {
	id := uint32(len(ev.identNames))
	ev.identNames = append(ev.identNames, name)
	return arena.NewPropertyValue(arena.Offset((id << 1) | 1))
}

// unresolvedIdentID reports whether off is an unresolved-identifier
// sentinel and, if so, its interned index.
func unresolvedIdentID(off arena.Offset) (uint32, bool) {
	if off&1 == 1 {
		return uint32(off) >> 1, true
	}
	return 0, false
}

// deref unwraps a Property value to the value it currently holds;
// every operator other than assignment and postfix ++/-- operates on
// dereferenced values.
func (ev *Evaluator) deref(v arena.Value) arena.Value {
	if arena.TypeOf(v) != arena.TagProperty {
		return v
	}
	off := arena.OffsetOf(v)
	if id, ok := unresolvedIdentID(off); ok {
		return ev.fail(errNotFound(ev.identNames[id]))
	}
	return ev.a.PropValue(off)
}

// parseObjectLiteral parses `{ key: expr, ... }`. Properties are
// prepended to the object's list as they are parsed, so iteration order
// (newest-first) is the reverse of source order, matching the arena's
// singly linked Property representation.
func (ev *Evaluator) parseObjectLiteral() arena.Value {
	ev.next() // '{'
	var objOff arena.Offset
	if ev.noExec == 0 {
		v, err := ev.a.NewObjectEntity(0)
		if err != nil {
			return ev.fail(errOOM())
		}
		objOff = arena.OffsetOf(v)
	}
	if !ev.at(token.RBRACE) {
		for {
			var key string
			switch {
			case ev.at(token.IDENT) || ev.cur().Type.IsKeyword():
				key = ev.next().Literal
			case ev.at(token.STRING):
				key = ev.next().Literal
			default:
				return ev.fail(errIdentExpected())
			}
			if !ev.expect(token.COLON) {
				return arena.ErrVal
			}
			val := ev.parseAssignExpr()
			if ev.hasError {
				return arena.ErrVal
			}
			if ev.noExec == 0 {
				if !ev.defineProperty(objOff, key, ev.deref(val)) {
					return arena.ErrVal
				}
			}
			if ev.at(token.COMMA) {
				ev.next()
				if ev.at(token.RBRACE) {
					break
				}
				continue
			}
			break
		}
	}
	if !ev.expect(token.RBRACE) {
		return arena.ErrVal
	}
	if ev.noExec > 0 {
		return arena.Undefined
	}
	return arena.NewObjectValue(objOff)
}

// defineProperty adds key:val to obj's property list without the
// duplicate-binding check declare() applies to scopes — object literals
// may repeat a key, last write wins on lookup since the newest property
// is always the list head.
func (ev *Evaluator) defineProperty(obj arena.Offset, key string, val arena.Value) bool {
	keyOff, err := ev.a.NewStringEntity([]byte(key))
	if err != nil {
		ev.fail(errOOM())
		return false
	}
	next := ev.a.ObjectFirstProp(obj)
	propOff, err := ev.a.NewPropertyEntity(next, arena.OffsetOf(keyOff), val)
	if err != nil {
		ev.fail(errOOM())
		return false
	}
	ev.a.ObjectSetFirstProp(obj, propOff)
	return true
}

func (ev *Evaluator) applyUnary(op token.Type, v arena.Value) arena.Value {
	if ev.noExec > 0 {
		return arena.Undefined
	}
	switch op {
	case token.BANG:
		return arena.Bool(!ev.truthy(v))
	case token.TILDE:
		if arena.TypeOf(v) != arena.TagNumber {
			return ev.fail(errTypeMismatch())
		}
		return arena.FromNumber(float64(^toInt32(arena.AsNumber(v))))
	case token.TYPEOF:
		return ev.typeofValue(v)
	case token.PLUS:
		if arena.TypeOf(v) != arena.TagNumber {
			return ev.fail(errTypeMismatch())
		}
		return v
	case token.MINUS:
		if arena.TypeOf(v) != arena.TagNumber {
			return ev.fail(errTypeMismatch())
		}
		return arena.FromNumber(-arena.AsNumber(v))
	}
	return ev.fail(errUnknownOp(op.String()))
}

func (ev *Evaluator) typeofValue(v arena.Value) arena.Value {
	var s string
	switch arena.TypeOf(v) {
	case arena.TagUndefined:
		s = "undefined"
	case arena.TagNull:
		s = "null"
	case arena.TagObject:
		s = "object"
	case arena.TagString:
		s = "string"
	case arena.TagNumber:
		s = "number"
	case arena.TagBoolean:
		s = "boolean"
	case arena.TagFunction:
		s = "function"
	default:
		s = "undefined"
	}
	if ev.noExec > 0 {
		return arena.Undefined
	}
	sv, err := ev.a.NewStringEntity([]byte(s))
	if err != nil {
		return ev.fail(errOOM())
	}
	return sv
}

func (ev *Evaluator) applyBinary(op token.Type, l, r arena.Value) arena.Value {
	if ev.noExec > 0 {
		return arena.Undefined
	}
	switch op {
	case token.SEQ, token.SNE:
		return ev.applyEquality(op, l, r)
	case token.PLUS:
		return ev.applyPlus(l, r)
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.STARSTAR:
		return ev.applyArith(op, l, r)
	case token.LT, token.LTE, token.GT, token.GTE:
		return ev.applyRelational(op, l, r)
	case token.AMP, token.PIPE, token.CARET, token.LSHIFT, token.RSHIFT, token.URSHIFT:
		return ev.applyBitwise(op, l, r)
	}
	return ev.fail(errUnknownOp(op.String()))
}

func (ev *Evaluator) applyPlus(l, r arena.Value) arena.Value {
	lt, rt := arena.TypeOf(l), arena.TypeOf(r)
	switch {
	case lt == arena.TagNumber && rt == arena.TagNumber:
		return arena.FromNumber(arena.AsNumber(l) + arena.AsNumber(r))
	case lt == arena.TagString && rt == arena.TagString:
		if ev.noExec > 0 {
			return arena.Undefined
		}
		buf := append(append([]byte{}, ev.a.StringBytes(arena.OffsetOf(l))...), ev.a.StringBytes(arena.OffsetOf(r))...)
		sv, err := ev.a.NewStringEntity(buf)
		if err != nil {
			return ev.fail(errOOM())
		}
		return sv
	case lt == arena.TagString || rt == arena.TagString:
		return ev.fail(errBadStrOp())
	default:
		return ev.fail(errTypeMismatch())
	}
}

func (ev *Evaluator) applyArith(op token.Type, l, r arena.Value) arena.Value {
	if arena.TypeOf(l) == arena.TagString || arena.TypeOf(r) == arena.TagString {
		return ev.fail(errBadStrOp())
	}
	if arena.TypeOf(l) != arena.TagNumber || arena.TypeOf(r) != arena.TagNumber {
		return ev.fail(errTypeMismatch())
	}
	a, b := arena.AsNumber(l), arena.AsNumber(r)
	switch op {
	case token.MINUS:
		return arena.FromNumber(a - b)
	case token.STAR:
		return arena.FromNumber(a * b)
	case token.SLASH:
		if b == 0 {
			return ev.fail(errDivByZero())
		}
		return arena.FromNumber(a / b)
	case token.PERCENT:
		if b == 0 {
			return ev.fail(errDivByZero())
		}
		return arena.FromNumber(math.Mod(a, b))
	case token.STARSTAR:
		return arena.FromNumber(math.Pow(a, b))
	}
	return ev.fail(errUnknownOp(op.String()))
}

func (ev *Evaluator) applyRelational(op token.Type, l, r arena.Value) arena.Value {
	if arena.TypeOf(l) != arena.TagNumber || arena.TypeOf(r) != arena.TagNumber {
		return ev.fail(errTypeMismatch())
	}
	a, b := arena.AsNumber(l), arena.AsNumber(r)
	var result bool
	switch op {
	case token.LT:
		result = a < b
	case token.LTE:
		result = a <= b
	case token.GT:
		result = a > b
	case token.GTE:
		result = a >= b
	}
	return arena.Bool(result)
}

// applyEquality requires both sides to have the same type or it is a
// `type mismatch`; Numbers compare as truncated integers for ===/!==.
func (ev *Evaluator) applyEquality(op token.Type, l, r arena.Value) arena.Value {
	lt, rt := arena.TypeOf(l), arena.TypeOf(r)
	if lt != rt {
		return ev.fail(errTypeMismatch())
	}
	var eq bool
	switch lt {
	case arena.TagNumber:
		eq = int64(math.Trunc(arena.AsNumber(l))) == int64(math.Trunc(arena.AsNumber(r)))
	case arena.TagString:
		eq = string(ev.a.StringBytes(arena.OffsetOf(l))) == string(ev.a.StringBytes(arena.OffsetOf(r)))
	default:
		eq = l == r
	}
	if op == token.SNE {
		eq = !eq
	}
	return arena.Bool(eq)
}

func (ev *Evaluator) applyBitwise(op token.Type, l, r arena.Value) arena.Value {
	if arena.TypeOf(l) != arena.TagNumber || arena.TypeOf(r) != arena.TagNumber {
		return ev.fail(errTypeMismatch())
	}
	a, b := toInt32(arena.AsNumber(l)), toInt32(arena.AsNumber(r))
	var result int32
	switch op {
	case token.AMP:
		result = a & b
	case token.PIPE:
		result = a | b
	case token.CARET:
		result = a ^ b
	case token.LSHIFT:
		result = a << (uint32(b) & 31)
	case token.RSHIFT:
		result = a >> (uint32(b) & 31)
	case token.URSHIFT:
		result = int32(uint32(a) >> (uint32(b) & 31))
	}
	return arena.FromNumber(float64(result))
}

// toInt32 truncates a float to a 32-bit two's-complement integer,
// matching JavaScript's ToInt32 abstract operation (NaN/Infinity -> 0).
func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(f))))
}
