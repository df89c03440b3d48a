// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a bytecode disassembler.
package disasm

import (
	"fmt"

	"github.com/beevik/hbdb/vm"
)

// Disassemble the instruction in machine 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following instruction. Label operands are shown
// as absolute addresses, annotated with the target routine when known.
func Disassemble(m *vm.Machine, addr vm.Address) (line string, next vm.Address) {
	inst, ok := m.Instruction(addr)
	if !ok {
		return "???", addr + 1
	}

	switch inst.Op.Operand() {
	case vm.OperandInt:
		line = fmt.Sprintf("%-6s %d", inst.Op, inst.Arg)
	case vm.OperandLabel:
		line = fmt.Sprintf("%-6s $%04X", inst.Op, inst.Arg)
		if r, ok := m.RegionAt(vm.Address(inst.Arg)); ok {
			line += fmt.Sprintf(" <%s+%d>", r.Routine, vm.Address(inst.Arg)-r.Start)
		}
	case vm.OperandSymbol:
		line = fmt.Sprintf("%-6s %s", inst.Op, inst.Sym)
	default:
		line = inst.Op.String()
	}
	return line, addr + 1
}
