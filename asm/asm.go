// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an assembler for the hbdb bytecode machine.
//
// Source files contain one or more routines. Each routine starts with a
// .routine directive and ends with .end. Labels start in the first column
// and may be followed by a colon. Comments start with a semicolon.
//
//	.routine main
//	        push 3
//	        store n
//	loop:   load n
//	        jz done
//	        call tick
//	        jmp loop
//	done:   halt
//	.end
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/hbdb/vm"
)

var (
	errParse = errors.New("parse error")
)

type pseudoOpData struct {
	fn func(a *assembler, line, label fstring) error
}

var pseudoOps = map[string]pseudoOpData{
	".rt":      {fn: (*assembler).parseRoutine},
	".routine": {fn: (*assembler).parseRoutine},
	".end":     {fn: (*assembler).parseEnd},
}

// An asmerror is used to keep track of errors encountered
// during assembly.
type asmerror struct {
	line fstring // line causing the error
	msg  string  // error message
}

// A fixup records a label operand that must be resolved once the whole
// routine has been parsed.
type fixup struct {
	index int     // instruction index within the routine
	label fstring // referenced label
}

// A routine is the assembler's working state for a single routine.
type routine struct {
	vm.Routine
	decl   fstring        // the .routine directive
	lines  int            // instruction lines seen, valid or not
	labels map[string]int // label -> instruction offset
	fixups []fixup
}

// The assembler is a state object used during the assembly of
// bytecode from assembly code.
type assembler struct {
	filename string
	r        io.Reader
	current  *routine
	routines []*routine
	names    map[string]bool
	out      io.Writer
	verbose  bool
	errors   []asmerror
}

// Assembly contains the assembled module and any errors encountered while
// assembling it.
type Assembly struct {
	Module *vm.Module // Assembled module
	Errors []string   // Errors encountered during assembly
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

// AssembleFile reads a file containing assembly code and assembles it into
// a loadable module named after the file.
func AssembleFile(path string, options Option, out io.Writer) (*Assembly, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Assemble(file, path, options, out)
}

// Assemble reads data from the provided stream and attempts to assemble it
// into a module. The filename is recorded in every routine's line table.
func Assemble(r io.Reader, filename string, options Option, out io.Writer) (*Assembly, error) {
	if out == nil {
		out = os.Stdout
	}

	a := &assembler{
		filename: filename,
		r:        r,
		names:    make(map[string]bool),
		out:      out,
		verbose:  (options & Verbose) != 0,
	}

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,         // Parse the assembly code
		(*assembler).resolveLabels, // Resolve label operands to offsets
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	var err error
	for _, step := range steps {
		err = step(a)
		if err != nil {
			break
		}
		if len(a.errors) > 0 {
			err = errParse
			break
		}
	}

	errs := make([]string, 0, len(a.errors))
	for _, e := range a.errors {
		s := fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s", a.filename, e.line.row, e.line.column+1, e.msg)
		errs = append(errs, s)
	}

	assembly := &Assembly{Errors: errs}
	if err == nil {
		mod := &vm.Module{Name: filename}
		for _, rt := range a.routines {
			rc := rt.Routine
			mod.Routines = append(mod.Routines, &rc)
		}
		assembly.Module = mod
	}
	return assembly, err
}

// Read the assembly code and build up the routine list.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	scanner := bufio.NewScanner(a.r)
	row := 1
	var last fstring
	for scanner.Scan() {
		line := newFstring(row, scanner.Text())
		last = line
		if err := a.parseLine(line.stripTrailingComment()); err != nil {
			return err
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if a.current != nil {
		a.addError(last, "routine '%s' is missing .end", a.current.Name)
	}
	return nil
}

func (a *assembler) parseLine(line fstring) error {
	// Skip empty (or comment-only) lines
	if line.isEmpty() {
		return nil
	}

	if line.startsWith(whitespace) {
		return a.parseUnlabeledLine(line.consumeWhitespace())
	}
	return a.parseLabeledLine(line)
}

// Parse a line of assembly code that contains no label.
func (a *assembler) parseUnlabeledLine(line fstring) error {
	word, line := line.consumeWhile(wordChar)
	if op, ok := pseudoOps[strings.ToLower(word.str)]; ok {
		return op.fn(a, line.consumeWhitespace(), fstring{})
	}

	return a.parseInstruction(word, line)
}

// Parse a line of assembly code that starts with a label.
func (a *assembler) parseLabeledLine(line fstring) error {
	// Directives may start in the first column.
	if line.startsWithChar('.') {
		return a.parseUnlabeledLine(line)
	}

	label, line := line.consumeWhile(identifierChar)
	if label.isEmpty() || !label.startsWith(identifierStartChar) {
		a.addError(line, "invalid label")
		return nil
	}
	if line.startsWithChar(':') {
		line = line.consume(1)
	}
	if !line.isEmpty() && !line.startsWith(whitespace) {
		a.addError(line, "unexpected character after label")
		return nil
	}

	if err := a.storeLabel(label); err != nil {
		return err
	}

	line = line.consumeWhitespace()
	if line.isEmpty() {
		return nil
	}

	word, line := line.consumeWhile(wordChar)
	return a.parseInstruction(word, line)
}

// Store a label into the current routine's label table.
func (a *assembler) storeLabel(label fstring) error {
	if a.current == nil {
		a.addError(label, "label '%s' outside of routine", label.str)
		return nil
	}
	if _, ok := a.current.labels[label.str]; ok {
		a.addError(label, "label '%s' used more than once", label.str)
		return nil
	}
	a.current.labels[label.str] = len(a.current.Code)
	a.log("%-15s Offset:%d", label.str, len(a.current.Code))
	return nil
}

// Parse a .routine directive.
func (a *assembler) parseRoutine(line, label fstring) error {
	if a.current != nil {
		a.addError(line, "routine '%s' is missing .end", a.current.Name)
		return nil
	}

	name, remain := line.consumeWhile(identifierChar)
	if name.isEmpty() || !name.startsWith(identifierStartChar) || !remain.consumeWhitespace().isEmpty() {
		a.addError(line, "invalid routine name")
		return nil
	}
	if a.names[name.str] {
		a.addError(name, "routine '%s' defined more than once", name.str)
		return nil
	}
	a.names[name.str] = true

	a.current = &routine{
		Routine: vm.Routine{Name: name.str, File: a.filename},
		decl:    name,
		labels:  make(map[string]int),
	}
	a.log("routine %s", name.str)
	return nil
}

// Parse a .end directive.
func (a *assembler) parseEnd(line, label fstring) error {
	if a.current == nil {
		a.addError(line, ".end without .routine")
		return nil
	}
	if a.current.lines == 0 {
		a.addError(a.current.decl, "routine '%s' is empty", a.current.Name)
	}
	a.routines = append(a.routines, a.current)
	a.current = nil
	return nil
}

// Parse a single instruction and its operand.
func (a *assembler) parseInstruction(word, line fstring) error {
	if a.current == nil {
		a.addError(word, "instruction outside of routine")
		return nil
	}
	a.current.lines++

	op, ok := vm.LookupOpcode(word.str)
	if !ok {
		a.addError(word, "invalid opcode '%s'", word.str)
		return nil
	}

	line = line.consumeWhitespace()
	operand, remain := line.consumeWhile(wordChar)
	if !remain.consumeWhitespace().isEmpty() {
		a.addError(remain, "unexpected text after operand")
		return nil
	}

	inst := vm.Instruction{Op: op}
	switch op.Operand() {
	case vm.OperandNone:
		if !operand.isEmpty() {
			a.addError(operand, "'%s' takes no operand", word.str)
			return nil
		}

	case vm.OperandInt:
		v, err := parseNumber(operand.str)
		if err != nil {
			a.addError(operand, "invalid number '%s'", operand.str)
			return nil
		}
		inst.Arg = v

	case vm.OperandLabel:
		if !isIdentifier(operand.str) {
			a.addError(operand, "invalid label '%s'", operand.str)
			return nil
		}
		a.current.fixups = append(a.current.fixups, fixup{index: len(a.current.Code), label: operand})

	case vm.OperandSymbol:
		if !isIdentifier(operand.str) {
			a.addError(operand, "invalid symbol '%s'", operand.str)
			return nil
		}
		inst.Sym = operand.str
	}

	a.current.Lines = append(a.current.Lines, vm.LineEntry{Offset: len(a.current.Code), Line: word.row})
	a.current.Code = append(a.current.Code, inst)
	a.log("%04d  %-6s %s", len(a.current.Code)-1, op, operand.str)
	return nil
}

// Resolve all label operands to routine-relative offsets.
func (a *assembler) resolveLabels() error {
	a.logSection("Resolving labels")
	for _, r := range a.routines {
		for _, f := range r.fixups {
			offset, ok := r.labels[f.label.str]
			if !ok {
				a.addError(f.label, "undefined label '%s'", f.label.str)
				continue
			}
			r.Code[f.index].Arg = int64(offset)
		}
	}
	return nil
}

func (a *assembler) addError(l fstring, format string, args ...any) {
	a.errors = append(a.errors, asmerror{l, fmt.Sprintf(format, args...)})
}

func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, "-----", name, "-----")
	}
}

func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

func parseNumber(s string) (int64, error) {
	switch {
	case s == "":
		return 0, errParse
	case len(s) == 3 && s[0] == '\'' && s[2] == '\'':
		return int64(s[1]), nil
	case s[0] == '$':
		return strconv.ParseInt(s[1:], 16, 64)
	case s[0] == '-' && len(s) > 1 && s[1] == '$':
		v, err := strconv.ParseInt(s[2:], 16, 64)
		return -v, err
	default:
		return strconv.ParseInt(s, 0, 64)
	}
}

func isIdentifier(s string) bool {
	if s == "" || !identifierStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !identifierChar(s[i]) {
			return false
		}
	}
	return true
}
