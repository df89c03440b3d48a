// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"errors"
	"strconv"

	"github.com/beevik/hbdb/vm"
)

var errExprParse = errors.New("expression syntax error")

type tokenType byte

const (
	tokenNil tokenType = iota
	tokenIdentifier
	tokenNumber
	tokenOp
	tokenLParen
	tokenRParen
)

type token struct {
	Type  tokenType
	Value any // nil, string, int64 or *op (depends on Type)
}

type opType byte

const (
	opNil opType = 0 + iota
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opShiftLeft
	opShiftRight
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opEqual
	opNotEqual
	opBitwiseAnd
	opBitwiseXor
	opBitwiseOr
	opLogicalAnd
	opLogicalOr
	opBitwiseNot
	opLogicalNot
	opUnaryMinus
	opUnaryPlus
)

type associativity byte

const (
	left associativity = iota
	right
)

// An op describes an expression operator and the bytecode it compiles to.
// Operands are on the value stack when the code runs.
type op struct {
	Symbol     string
	Type       opType
	Precedence byte
	Assoc      associativity
	Args       byte
	UnaryOp    opType
	Code       []vm.Instruction
}

func emit(ops ...vm.Opcode) []vm.Instruction {
	c := make([]vm.Instruction, len(ops))
	for i, o := range ops {
		c[i].Op = o
	}
	return c
}

func join(parts ...[]vm.Instruction) []vm.Instruction {
	var c []vm.Instruction
	for _, p := range parts {
		c = append(c, p...)
	}
	return c
}

var (
	codeLogicalNot = []vm.Instruction{{Op: vm.OpPush, Arg: 0}, {Op: vm.OpEq}}
	codeTruth      = join(codeLogicalNot, codeLogicalNot)
)

var ops = []op{
	{"", opNil, 0, left, 2, opNil, nil},
	{"*", opMultiply, 11, left, 2, opNil, emit(vm.OpMul)},
	{"/", opDivide, 11, left, 2, opNil, emit(vm.OpDiv)},
	{"%", opModulo, 11, left, 2, opNil, emit(vm.OpMod)},
	{"+", opAdd, 10, left, 2, opUnaryPlus, emit(vm.OpAdd)},
	{"-", opSubtract, 10, left, 2, opUnaryMinus, emit(vm.OpSub)},
	{"<<", opShiftLeft, 9, left, 2, opNil, emit(vm.OpShl)},
	{">>", opShiftRight, 9, left, 2, opNil, emit(vm.OpShr)},
	{"<", opLess, 8, left, 2, opNil, emit(vm.OpLt)},
	{"<=", opLessEqual, 8, left, 2, opNil, join(emit(vm.OpGt), codeLogicalNot)},
	{">", opGreater, 8, left, 2, opNil, emit(vm.OpGt)},
	{">=", opGreaterEqual, 8, left, 2, opNil, join(emit(vm.OpLt), codeLogicalNot)},
	{"==", opEqual, 7, left, 2, opNil, emit(vm.OpEq)},
	{"!=", opNotEqual, 7, left, 2, opNil, join(emit(vm.OpEq), codeLogicalNot)},
	{"&", opBitwiseAnd, 6, left, 2, opNil, emit(vm.OpAnd)},
	{"^", opBitwiseXor, 5, left, 2, opNil, emit(vm.OpXor)},
	{"|", opBitwiseOr, 4, left, 2, opNil, emit(vm.OpOr)},
	{"&&", opLogicalAnd, 3, left, 2, opNil, join(codeTruth, emit(vm.OpSwap), codeTruth, emit(vm.OpAnd))},
	{"||", opLogicalOr, 2, left, 2, opNil, join(codeTruth, emit(vm.OpSwap), codeTruth, emit(vm.OpOr))},
	{"~", opBitwiseNot, 12, right, 1, opNil, emit(vm.OpNot)},
	{"!", opLogicalNot, 12, right, 1, opNil, codeLogicalNot},
	{"-", opUnaryMinus, 12, right, 1, opNil, emit(vm.OpNeg)},
	{"+", opUnaryPlus, 12, right, 1, opNil, nil},
}

// Operators whose lexemes need more than the first character to identify.
var compoundOps = map[string]opType{
	"<<": opShiftLeft,
	">>": opShiftRight,
	"<=": opLessEqual,
	">=": opGreaterEqual,
	"==": opEqual,
	"!=": opNotEqual,
	"&&": opLogicalAnd,
	"||": opLogicalOr,
	"<":  opLess,
	">":  opGreater,
	"&":  opBitwiseAnd,
	"|":  opBitwiseOr,
	"!":  opLogicalNot,
}

// lexeme identifiers
const (
	lNil byte = iota
	lNum
	lCha
	lIde
	lLPa
	lRPa
	lMul
	lDiv
	lMod
	lAdd
	lSub
	lCmp
	lXor
	lNot
)

// A table mapping lexeme identifiers to token data and parsers.
var lexeme = []struct {
	TokenType tokenType
	OpType    opType
	Parse     func(p *exprParser, t tstring) (tok token, remain tstring, err error)
}{
	/*lNil*/ {TokenType: tokenNil, OpType: opNil},
	/*lNum*/ {TokenType: tokenNumber, OpType: opNil, Parse: (*exprParser).parseNumber},
	/*lCha*/ {TokenType: tokenNumber, OpType: opNil, Parse: (*exprParser).parseChar},
	/*lIde*/ {TokenType: tokenIdentifier, OpType: opNil, Parse: (*exprParser).parseIdentifier},
	/*lLPa*/ {TokenType: tokenLParen, OpType: opNil},
	/*lRPa*/ {TokenType: tokenRParen, OpType: opNil},
	/*lMul*/ {TokenType: tokenOp, OpType: opMultiply},
	/*lDiv*/ {TokenType: tokenOp, OpType: opDivide},
	/*lMod*/ {TokenType: tokenOp, OpType: opModulo},
	/*lAdd*/ {TokenType: tokenOp, OpType: opAdd},
	/*lSub*/ {TokenType: tokenOp, OpType: opSubtract},
	/*lCmp*/ {TokenType: tokenOp, OpType: opNil, Parse: (*exprParser).parseCompoundOp},
	/*lXor*/ {TokenType: tokenOp, OpType: opBitwiseXor},
	/*lNot*/ {TokenType: tokenOp, OpType: opBitwiseNot},
}

// A table mapping the first char of a lexeme to a lexeme identifier.
var lex0 = [96]byte{
	lNil, lCmp, lNil, lNil, lNum, lMod, lCmp, lCha, // 32..39
	lLPa, lRPa, lMul, lAdd, lNil, lSub, lIde, lDiv, // 40..47
	lNum, lNum, lNum, lNum, lNum, lNum, lNum, lNum, // 48..55
	lNum, lNum, lNil, lNil, lCmp, lCmp, lCmp, lNil, // 56..63
	lNil, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 64..71
	lIde, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 72..79
	lIde, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 80..87
	lIde, lIde, lIde, lNil, lNil, lNil, lXor, lIde, // 88..95
	lNil, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 96..103
	lIde, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 104..111
	lIde, lIde, lIde, lIde, lIde, lIde, lIde, lIde, // 112..119
	lIde, lIde, lIde, lNil, lCmp, lNil, lNot, lNil, // 120..127
}

type resolver interface {
	resolveIdentifier(s string) (int64, error)
}

//
// exprParser
//

// An exprParser compiles infix expressions into bytecode that computes the
// expression's value on a machine's value stack. Identifiers are replaced
// by their current values at compile time.
type exprParser struct {
	output        tokenStack
	operatorStack tokenStack
	prevTokenType tokenType
	hexMode       bool
}

func newExprParser() *exprParser {
	return &exprParser{}
}

func (p *exprParser) Reset() {
	p.output.reset()
	p.operatorStack.reset()
	p.prevTokenType = tokenNil
}

func (p *exprParser) Parse(expr string, r resolver) ([]vm.Instruction, error) {
	defer p.Reset()

	t := tstring(expr)

	for {
		tok, remain, err := p.parseToken(t)
		if err != nil {
			return nil, err
		}
		if tok.Type == tokenNil {
			break
		}
		t = remain

		switch tok.Type {
		case tokenNumber:
			p.output.push(tok)

		case tokenIdentifier:
			v, err := r.resolveIdentifier(tok.Value.(string))
			if err != nil {
				return nil, err
			}
			tok.Type, tok.Value = tokenNumber, v
			p.output.push(tok)

		case tokenLParen:
			p.operatorStack.push(tok)

		case tokenRParen:
			foundLParen := false
			for !p.operatorStack.isEmpty() {
				tmp := p.operatorStack.pop()
				if tmp.Type == tokenLParen {
					foundLParen = true
					break
				}
				p.output.push(tmp)
			}
			if !foundLParen {
				return nil, errExprParse
			}

		case tokenOp:
			p.checkForUnaryOp(&tok)
			for p.isCollapsible(&tok) {
				p.output.push(p.operatorStack.pop())
			}
			p.operatorStack.push(tok)
		}

		p.prevTokenType = tok.Type
	}

	for !p.operatorStack.isEmpty() {
		tok := p.operatorStack.pop()
		if tok.Type == tokenLParen {
			return nil, errExprParse
		}
		p.output.push(tok)
	}

	return p.compile()
}

// Convert the postfix output queue into bytecode.
func (p *exprParser) compile() ([]vm.Instruction, error) {
	var c []vm.Instruction
	depth := 0
	for _, tok := range p.output.stack {
		switch tok.Type {
		case tokenNumber:
			c = append(c, vm.Instruction{Op: vm.OpPush, Arg: tok.Value.(int64)})
			depth++
		case tokenOp:
			o := tok.Value.(*op)
			if depth < int(o.Args) {
				return nil, errExprParse
			}
			depth -= int(o.Args) - 1
			c = append(c, o.Code...)
		default:
			return nil, errExprParse
		}
	}
	if depth != 1 {
		return nil, errExprParse
	}
	return c, nil
}

func (p *exprParser) parseToken(t tstring) (tok token, remain tstring, err error) {
	t = t.consumeWhitespace()

	// Return the nil token when there are no more tokens to parse.
	if len(t) == 0 {
		return token{}, t, nil
	}

	// Use the first character of the token string to look up lexeme
	// parser data.
	if t[0] < 32 || t[0] > 127 {
		return token{}, t, errExprParse
	}
	lex := lexeme[lex0[t[0]-32]]
	if lex.TokenType == tokenNil {
		return token{}, t, errExprParse
	}

	// One-character lexemes require no additional parsing to generate the
	// token.
	if lex.Parse == nil {
		tok = token{lex.TokenType, nil}
		if lex.OpType != opNil {
			tok.Value = &ops[lex.OpType]
		}
		return tok, t.consume(1), nil
	}

	// Lexemes that are more than one character in length require custom
	// parsing to generate the token.
	return lex.Parse(p, t)
}

func (p *exprParser) parseNumber(t tstring) (tok token, remain tstring, err error) {
	base, fn, num := 10, decimal, t

	if p.hexMode {
		base, fn = 16, hexadecimal
	}

	switch num[0] {
	case '$':
		if len(num) < 2 {
			return token{}, t, errExprParse
		}
		base, fn, num = 16, hexadecimal, num.consume(1)

	case '0':
		if len(num) > 1 && (num[1] == 'x' || num[1] == 'b' || num[1] == 'd') {
			if len(num) < 3 {
				return token{}, t, errExprParse
			}
			switch num[1] {
			case 'x':
				base, fn = 16, hexadecimal
			case 'b':
				base, fn = 2, binary
			case 'd':
				base, fn = 10, decimal
			}
			num = num.consume(2)
		}
	}

	num, remain = num.consumeWhile(fn)
	if num == "" {
		return token{}, t, errExprParse
	}

	v, err := strconv.ParseInt(string(num), base, 64)
	if err != nil {
		return token{}, t, errExprParse
	}

	tok = token{tokenNumber, v}
	return tok, remain, nil
}

func (p *exprParser) parseChar(t tstring) (tok token, remain tstring, err error) {
	if len(t) < 3 || t[2] != '\'' {
		return tok, t, errExprParse
	}

	tok = token{tokenNumber, int64(t[1])}
	return tok, t.consume(3), nil
}

func (p *exprParser) parseIdentifier(t tstring) (tok token, remain tstring, err error) {
	var id tstring
	id, remain = t.consumeWhile(identifier)
	if p.hexMode && id.scanWhile(hexadecimal) == len(id) {
		return p.parseNumber(t)
	}

	tok = token{tokenIdentifier, string(id)}
	return tok, remain, nil
}

func (p *exprParser) parseCompoundOp(t tstring) (tok token, remain tstring, err error) {
	if len(t) >= 2 {
		if o, ok := compoundOps[string(t[:2])]; ok {
			return token{tokenOp, &ops[o]}, t.consume(2), nil
		}
	}
	if o, ok := compoundOps[string(t[:1])]; ok {
		return token{tokenOp, &ops[o]}, t.consume(1), nil
	}
	return token{}, t, errExprParse
}

func (p *exprParser) checkForUnaryOp(tok *token) {
	o := tok.Value.(*op)
	if o.UnaryOp == opNil {
		return
	}

	// If this operation follows an operation, a left parenthesis, or nothing,
	// then convert it to a unary op.
	if p.prevTokenType == tokenOp || p.prevTokenType == tokenLParen || p.prevTokenType == tokenNil {
		tok.Value = &ops[o.UnaryOp]
	}
}

func (p *exprParser) isCollapsible(opToken *token) bool {
	if p.operatorStack.isEmpty() {
		return false
	}

	top := p.operatorStack.peek()
	if top.Type != tokenOp {
		return false
	}

	currOp := opToken.Value.(*op)
	if currOp.Args == 1 {
		return false
	}

	topOp := top.Value.(*op)
	if topOp.Precedence > currOp.Precedence {
		return true
	}
	if topOp.Precedence == currOp.Precedence && topOp.Assoc == left {
		return true
	}
	return false
}

//
// tokenStack
//

type tokenStack struct {
	stack []token
}

func (s *tokenStack) reset() {
	s.stack = s.stack[:0]
}

func (s *tokenStack) isEmpty() bool {
	return len(s.stack) == 0
}

func (s *tokenStack) peek() *token {
	return &s.stack[len(s.stack)-1]
}

func (s *tokenStack) push(t token) {
	s.stack = append(s.stack, t)
}

func (s *tokenStack) pop() token {
	top := len(s.stack) - 1
	t := s.stack[top]
	s.stack = s.stack[:top]
	return t
}

//
// tstring
//

type tstring string

func (t tstring) consume(n int) tstring {
	return t[n:]
}

func (t tstring) consumeWhitespace() tstring {
	return t.consume(t.scanWhile(whitespace))
}

func (t tstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(t) && fn(t[i]); i++ {
	}
	return i
}

func (t tstring) consumeWhile(fn func(c byte) bool) (consumed, remain tstring) {
	i := t.scanWhile(fn)
	return t[:i], t[i:]
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return (c >= '0' && c <= '9')
}

func hexadecimal(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binary(c byte) bool {
	return c == '0' || c == '1'
}

func identifier(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}
