// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"io"
	"strings"
	"testing"

	"github.com/beevik/hbdb/vm"
)

func assemble(code string) (*Assembly, error) {
	return Assemble(strings.NewReader(code), "test.src", 0, io.Discard)
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	a, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if len(a.Errors) == 0 || !strings.HasSuffix(a.Errors[0], errString) {
		t.Errorf("Expected '%s', got '%v'\n", errString, a.Errors)
	}
}

func TestRoutines(t *testing.T) {
	src := `; counter
.routine main
        push 3      ; initial
        store n
loop:   load n
        jz done
        call tick
        jmp loop
done:   halt
.end

.routine tick
        ret
.end`

	a, err := assemble(src)
	if err != nil {
		t.Fatal(err, a.Errors)
	}

	mod := a.Module
	if len(mod.Routines) != 2 {
		t.Fatalf("expected 2 routines, got %d", len(mod.Routines))
	}

	main := mod.Routines[0]
	if main.Name != "main" || main.File != "test.src" {
		t.Errorf("routine incorrect. got: %s in %s", main.Name, main.File)
	}

	exp := []vm.Instruction{
		{Op: vm.OpPush, Arg: 3},
		{Op: vm.OpStore, Sym: "n"},
		{Op: vm.OpLoad, Sym: "n"},
		{Op: vm.OpJz, Arg: 6},
		{Op: vm.OpCall, Sym: "tick"},
		{Op: vm.OpJmp, Arg: 2},
		{Op: vm.OpHalt},
	}
	if len(main.Code) != len(exp) {
		t.Fatalf("code length incorrect. exp: %d, got: %d", len(exp), len(main.Code))
	}
	for i := range exp {
		if main.Code[i] != exp[i] {
			t.Errorf("instruction %d incorrect. exp: %v, got: %v", i, exp[i], main.Code[i])
		}
	}

	lines := []int{3, 4, 5, 6, 7, 8, 9}
	for i, l := range lines {
		if main.Lines[i].Offset != i || main.Lines[i].Line != l {
			t.Errorf("line entry %d incorrect. exp: %d, got: %+v", i, l, main.Lines[i])
		}
	}
}

func TestNumbers(t *testing.T) {
	src := `.routine main
	push $10
	push 0x10
	push -5
	push 'A'
	halt
.end`

	a, err := assemble(src)
	if err != nil {
		t.Fatal(err, a.Errors)
	}
	code := a.Module.Routines[0].Code
	for i, v := range []int64{16, 16, -5, 65} {
		if code[i].Arg != v {
			t.Errorf("operand %d incorrect. exp: %d, got: %d", i, v, code[i].Arg)
		}
	}
}

func TestErrors(t *testing.T) {
	checkASMError(t, "  push 1", "instruction outside of routine")
	checkASMError(t, ".routine main\n  bogus\n.end", "invalid opcode 'bogus'")
	checkASMError(t, ".routine main\n  jmp nowhere\n.end", "undefined label 'nowhere'")
	checkASMError(t, ".routine main\n  push x\n.end", "invalid number 'x'")
	checkASMError(t, ".routine main\n  add 1\n.end", "'add' takes no operand")
	checkASMError(t, ".routine main\n  halt", "routine 'main' is missing .end")
	checkASMError(t, ".routine a\n halt\n.end\n.routine a\n halt\n.end", "routine 'a' defined more than once")
	checkASMError(t, ".end", ".end without .routine")
	checkASMError(t, ".routine main\n.end", "routine 'main' is empty")
	checkASMError(t, ".routine main extra\n  halt\n.end", "invalid routine name")
	checkASMError(t, ".routine main\n  push 1 2\n.end", "unexpected text after operand")
}

func TestErrorPosition(t *testing.T) {
	a, _ := assemble(".routine main\n  bogus\n.end")
	exp := "Syntax error in 'test.src' line 2, col 3: invalid opcode 'bogus'"
	if len(a.Errors) != 1 || a.Errors[0] != exp {
		t.Errorf("error incorrect. exp: %s, got: %v", exp, a.Errors)
	}
}
