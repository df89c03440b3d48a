// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"
	"strings"
)

// An Opcode identifies a single bytecode instruction.
type Opcode byte

// All opcodes understood by the machine.
const (
	OpNop Opcode = iota
	OpPush
	OpPop
	OpDup
	OpSwap
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr
	OpEq
	OpLt
	OpGt
	OpLoad
	OpStore
	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet
	OpPrint
	OpHalt

	opCount
)

// OperandKind describes the operand an instruction carries.
type OperandKind byte

const (
	OperandNone   OperandKind = iota // no operand
	OperandInt                       // integer literal stored in Arg
	OperandLabel                     // code address stored in Arg
	OperandSymbol                    // global or routine name stored in Sym
)

type opfunc func(m *Machine, inst *Instruction) error

type opdata struct {
	name    string
	operand OperandKind
	fn      opfunc // nil for control-flow instructions handled by the machine
}

var opcodes = [opCount]opdata{
	OpNop:   {"nop", OperandNone, func(m *Machine, inst *Instruction) error { return nil }},
	OpPush:  {"push", OperandInt, (*Machine).opPush},
	OpPop:   {"pop", OperandNone, (*Machine).opPop},
	OpDup:   {"dup", OperandNone, (*Machine).opDup},
	OpSwap:  {"swap", OperandNone, (*Machine).opSwap},
	OpAdd:   {"add", OperandNone, binary(func(a, b int64) int64 { return a + b })},
	OpSub:   {"sub", OperandNone, binary(func(a, b int64) int64 { return a - b })},
	OpMul:   {"mul", OperandNone, binary(func(a, b int64) int64 { return a * b })},
	OpDiv:   {"div", OperandNone, (*Machine).opDiv},
	OpMod:   {"mod", OperandNone, (*Machine).opMod},
	OpNeg:   {"neg", OperandNone, unary(func(a int64) int64 { return -a })},
	OpAnd:   {"and", OperandNone, binary(func(a, b int64) int64 { return a & b })},
	OpOr:    {"or", OperandNone, binary(func(a, b int64) int64 { return a | b })},
	OpXor:   {"xor", OperandNone, binary(func(a, b int64) int64 { return a ^ b })},
	OpNot:   {"not", OperandNone, unary(func(a int64) int64 { return ^a })},
	OpShl:   {"shl", OperandNone, binary(func(a, b int64) int64 { return a << uint64(b&63) })},
	OpShr:   {"shr", OperandNone, binary(func(a, b int64) int64 { return a >> uint64(b&63) })},
	OpEq:    {"eq", OperandNone, binary(func(a, b int64) int64 { return boolToInt(a == b) })},
	OpLt:    {"lt", OperandNone, binary(func(a, b int64) int64 { return boolToInt(a < b) })},
	OpGt:    {"gt", OperandNone, binary(func(a, b int64) int64 { return boolToInt(a > b) })},
	OpLoad:  {"load", OperandSymbol, (*Machine).opLoad},
	OpStore: {"store", OperandSymbol, (*Machine).opStore},
	OpJmp:   {"jmp", OperandLabel, nil},
	OpJz:    {"jz", OperandLabel, nil},
	OpJnz:   {"jnz", OperandLabel, nil},
	OpCall:  {"call", OperandSymbol, nil},
	OpRet:   {"ret", OperandNone, nil},
	OpPrint: {"print", OperandNone, (*Machine).opPrint},
	OpHalt:  {"halt", OperandNone, nil},
}

var opnames = make(map[string]Opcode)

func init() {
	for i := range opcodes {
		opnames[opcodes[i].name] = Opcode(i)
	}
}

// LookupOpcode returns the opcode with the requested mnemonic. Mnemonics are
// case-insensitive.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opnames[strings.ToLower(name)]
	return op, ok
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string {
	if op >= opCount {
		return "???"
	}
	return opcodes[op].name
}

// Operand returns the kind of operand the opcode expects.
func (op Opcode) Operand() OperandKind {
	if op >= opCount {
		return OperandNone
	}
	return opcodes[op].operand
}

// An Instruction is a single decoded bytecode instruction.
type Instruction struct {
	Op  Opcode
	Arg int64  // integer literal or code address
	Sym string // symbol operand
}

func binary(fn func(a, b int64) int64) opfunc {
	return func(m *Machine, inst *Instruction) error {
		b, err := m.pop()
		if err != nil {
			return err
		}
		a, err := m.pop()
		if err != nil {
			return err
		}
		return m.push(fn(a, b))
	}
}

func unary(fn func(a int64) int64) opfunc {
	return func(m *Machine, inst *Instruction) error {
		a, err := m.pop()
		if err != nil {
			return err
		}
		return m.push(fn(a))
	}
}

func (m *Machine) opPush(inst *Instruction) error {
	return m.push(inst.Arg)
}

func (m *Machine) opPop(inst *Instruction) error {
	_, err := m.pop()
	return err
}

func (m *Machine) opDup(inst *Instruction) error {
	v, err := m.top()
	if err != nil {
		return err
	}
	return m.push(v)
}

func (m *Machine) opSwap(inst *Instruction) error {
	n := len(m.stack)
	if n < 2 {
		return ErrStackUnderflow
	}
	m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
	return nil
}

func (m *Machine) opDiv(inst *Instruction) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	if b == 0 {
		return ErrDivideByZero
	}
	return m.push(a / b)
}

func (m *Machine) opMod(inst *Instruction) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	if b == 0 {
		return ErrDivideByZero
	}
	return m.push(a % b)
}

func (m *Machine) opLoad(inst *Instruction) error {
	return m.push(m.globals[inst.Sym])
}

func (m *Machine) opStore(inst *Instruction) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	m.globals[inst.Sym] = v
	return nil
}

func (m *Machine) opPrint(inst *Instruction) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	if m.cfg.Output != nil {
		_, err = fmt.Fprintln(m.cfg.Output, v)
	}
	return err
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
