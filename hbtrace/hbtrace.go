// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command hbtrace assembles a source file and runs it, printing every
// instruction executed along with the machine state that follows it.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/hbdb/asm"
	"github.com/beevik/hbdb/disasm"
	"github.com/beevik/hbdb/vm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Syntax: hbtrace [file.src]")
		os.Exit(0)
	}
	if err := trace(os.Args[1], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func trace(filename string, w io.Writer) error {
	fmt.Fprintf(w, "Assembling %s...\n\n", filename)
	a, err := asm.AssembleFile(filename, 0, w)
	if err != nil {
		if a != nil {
			for _, e := range a.Errors {
				fmt.Fprintln(w, e)
			}
		}
		return err
	}

	cfg := vm.DefaultConfig()
	cfg.Output = w
	m, err := vm.New(cfg)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	if err := m.Load(a.Module); err != nil {
		return err
	}

	fmt.Fprintf(w, "Running assembled code...\n\n")

	// Each boundary reports the instruction about to run, so the previous
	// line is printed once the state it produced is known.
	prev, first := vm.Address(0), true
	m.SetBoundaryHandler(func(m *vm.Machine, addr vm.Address) vm.Action {
		if !first {
			printStep(w, m, prev)
		}
		prev, first = addr, false
		return vm.Continue
	})

	err = m.Run()
	if !first {
		printStep(w, m, prev)
	}
	if errors.Is(err, vm.ErrHalted) {
		err = nil
	}
	return err
}

func printStep(w io.Writer, m *vm.Machine, addr vm.Address) {
	line, _ := disasm.Disassemble(m, addr)
	fmt.Fprintf(w, "%04X-   %-20s  PC=%04X Depth=%d Stack=[%s] Steps=%d\n",
		addr, line, m.PC(), m.Depth(), stackString(m.Stack()), m.Steps())
}

func stackString(stack []int64) string {
	s := make([]string, len(stack))
	for i, v := range stack {
		s[i] = fmt.Sprint(v)
	}
	return strings.Join(s, " ")
}
