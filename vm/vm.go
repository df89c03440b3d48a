// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm implements a small stack-based bytecode machine.
//
// A machine owns a flat code space into which modules are loaded one
// routine at a time, a value stack, a call stack and a table of named
// globals. Debuggers observe execution through an instruction-boundary
// callback and through load and shutdown hooks.
package vm

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/atomic"
)

// An Address is a position within a machine's code space.
type Address uint32

// An Action is returned by a BoundaryHandler to tell the machine whether to
// keep running.
type Action byte

const (
	// Continue execution with the next instruction.
	Continue Action = iota

	// Stop execution and return control to the caller of Run.
	Stop
)

// A BoundaryHandler is called by a running machine at every instruction
// boundary, with the address of the instruction about to execute.
type BoundaryHandler func(m *Machine, addr Address) Action

// Errors returned by the machine.
var (
	ErrHalted          = errors.New("program halted")
	ErrShutdown        = errors.New("machine is shut down")
	ErrNoProgram       = errors.New("no program loaded")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrDivideByZero    = errors.New("division by zero")
	ErrBadAddress      = errors.New("address outside loaded code")
	ErrUnknownRoutine  = errors.New("unknown routine")
	ErrDuplicate       = errors.New("routine already loaded")
	ErrInvalidConfig   = errors.New("invalid machine configuration")
	ErrInvalidEvalCode = errors.New("instruction not allowed in evaluation")
)

// A RuntimeError records a failure while executing the instruction at Addr.
type RuntimeError struct {
	Addr Address
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at $%04X: %v", e.Addr, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Config holds the parameters used to construct a machine.
type Config struct {
	Name       string    // descriptive name
	StackLimit int       // maximum depth of the value and call stacks
	Output     io.Writer // destination of the print instruction
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{Name: "vm", StackLimit: 1024}
}

var machineSeq = atomic.NewUint64(0)

// Machine represents a single bytecode machine instance.
type Machine struct {
	id         uint64
	cfg        Config
	code       []Instruction
	regions    []*Region
	routines   map[string]*Region
	globals    map[string]int64
	pc         Address
	stack      []int64
	frames     []Address
	steps      uint64
	ready      bool // a routine has been selected for execution
	started    bool // the entry boundary has been reported
	halted     bool
	shutdown   bool
	boundary   BoundaryHandler
	onLoad     []func(m *Machine, mod *Module)
	onShutdown []func(m *Machine)
}

// New creates a machine with the requested configuration. Every machine
// receives a process-wide unique identifier.
func New(cfg Config) (*Machine, error) {
	if cfg.StackLimit <= 0 {
		return nil, fmt.Errorf("%w: stack limit %d", ErrInvalidConfig, cfg.StackLimit)
	}
	if cfg.Name == "" {
		cfg.Name = "vm"
	}

	m := &Machine{
		id:       machineSeq.Inc(),
		cfg:      cfg,
		routines: make(map[string]*Region),
		globals:  make(map[string]int64),
	}
	return m, nil
}

// ID returns the machine's unique identifier.
func (m *Machine) ID() uint64 {
	return m.id
}

// Config returns the configuration the machine was built with.
func (m *Machine) Config() Config {
	return m.cfg
}

// PC returns the address of the next instruction to execute.
func (m *Machine) PC() Address {
	return m.pc
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() uint64 {
	return m.steps
}

// Halted returns true once the running program has halted.
func (m *Machine) Halted() bool {
	return m.halted
}

// IsShutdown returns true once Shutdown has been called.
func (m *Machine) IsShutdown() bool {
	return m.shutdown
}

// Stack returns a copy of the value stack, bottom first.
func (m *Machine) Stack() []int64 {
	s := make([]int64, len(m.stack))
	copy(s, m.stack)
	return s
}

// Depth returns the current call depth.
func (m *Machine) Depth() int {
	return len(m.frames)
}

// Global returns the value of a named global.
func (m *Machine) Global(name string) (int64, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// SetGlobal assigns a value to a named global.
func (m *Machine) SetGlobal(name string, v int64) {
	m.globals[name] = v
}

// Instruction returns the instruction stored at addr.
func (m *Machine) Instruction(addr Address) (Instruction, bool) {
	if int(addr) >= len(m.code) {
		return Instruction{}, false
	}
	return m.code[addr], true
}

// Regions returns all loaded code regions in load order.
func (m *Machine) Regions() []*Region {
	return m.regions
}

// RegionAt returns the region containing addr.
func (m *Machine) RegionAt(addr Address) (*Region, bool) {
	for _, r := range m.regions {
		if r.Contains(addr) {
			return r, true
		}
	}
	return nil, false
}

// Routine returns the region of the named routine.
func (m *Machine) Routine(name string) (*Region, bool) {
	r, ok := m.routines[name]
	return r, ok
}

// SetBoundaryHandler installs the instruction-boundary callback. Pass nil
// to remove it.
func (m *Machine) SetBoundaryHandler(h BoundaryHandler) {
	m.boundary = h
}

// OnLoad registers a function called after each module is loaded.
func (m *Machine) OnLoad(fn func(m *Machine, mod *Module)) {
	m.onLoad = append(m.onLoad, fn)
}

// OnShutdown registers a function called when the machine shuts down.
func (m *Machine) OnShutdown(fn func(m *Machine)) {
	m.onShutdown = append(m.onShutdown, fn)
}

// Load places every routine of the module into code space and notifies the
// load hooks. Either all routines are loaded or none are.
func (m *Machine) Load(mod *Module) error {
	if m.shutdown {
		return ErrShutdown
	}

	seen := make(map[string]bool)
	for _, r := range mod.Routines {
		if _, ok := m.routines[r.Name]; ok || seen[r.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.Name)
		}
		seen[r.Name] = true
	}

	for _, r := range mod.Routines {
		base := Address(len(m.code))
		for _, inst := range r.Code {
			if inst.Op.Operand() == OperandLabel {
				inst.Arg += int64(base)
			}
			m.code = append(m.code, inst)
		}

		region := &Region{
			Routine: r.Name,
			File:    r.File,
			Start:   base,
			End:     Address(len(m.code)),
			Lines:   make([]Line, 0, len(r.Lines)),
		}
		for _, l := range r.Lines {
			region.Lines = append(region.Lines, Line{Address: base + Address(l.Offset), Line: l.Line})
		}
		m.regions = append(m.regions, region)
		m.routines[r.Name] = region
	}

	for _, fn := range m.onLoad {
		fn(m, mod)
	}
	return nil
}

// Start prepares the machine to execute the named routine from its entry
// point. The value and call stacks are cleared.
func (m *Machine) Start(routine string) error {
	r, ok := m.routines[routine]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoutine, routine)
	}
	m.pc = r.Start
	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.ready, m.started, m.halted = true, false, false
	return nil
}

func (m *Machine) prepare() error {
	switch {
	case m.shutdown:
		return ErrShutdown
	case m.halted:
		return ErrHalted
	case !m.ready:
		if _, ok := m.routines["main"]; ok {
			return m.Start("main")
		}
		if len(m.regions) == 0 {
			return ErrNoProgram
		}
		return m.Start(m.regions[0].Routine)
	}
	return nil
}

// Run executes instructions until the boundary handler returns Stop, the
// program halts (ErrHalted) or a runtime error occurs. The entry address is
// reported to the boundary handler before the first instruction runs.
func (m *Machine) Run() error {
	if err := m.prepare(); err != nil {
		return err
	}

	if !m.started {
		m.started = true
		if m.notify() == Stop {
			return nil
		}
	}

	for {
		if err := m.exec(); err != nil {
			return err
		}
		if m.notify() == Stop {
			return nil
		}
	}
}

// Step executes a single instruction and reports the following boundary to
// the boundary handler.
func (m *Machine) Step() error {
	if err := m.prepare(); err != nil {
		return err
	}
	m.started = true
	if err := m.exec(); err != nil {
		return err
	}
	m.notify()
	return nil
}

func (m *Machine) notify() Action {
	if m.boundary == nil {
		return Continue
	}
	return m.boundary(m, m.pc)
}

// Execute the instruction at the program counter.
func (m *Machine) exec() error {
	addr := m.pc
	if int(addr) >= len(m.code) {
		return &RuntimeError{Addr: addr, Err: ErrBadAddress}
	}
	inst := &m.code[addr]
	m.pc++
	m.steps++

	var err error
	switch inst.Op {
	case OpJmp:
		m.pc = Address(inst.Arg)
	case OpJz, OpJnz:
		var v int64
		v, err = m.pop()
		if err == nil && (v == 0) == (inst.Op == OpJz) {
			m.pc = Address(inst.Arg)
		}
	case OpCall:
		r, ok := m.routines[inst.Sym]
		switch {
		case !ok:
			err = fmt.Errorf("%w: %s", ErrUnknownRoutine, inst.Sym)
		case len(m.frames) >= m.cfg.StackLimit:
			err = ErrStackOverflow
		default:
			m.frames = append(m.frames, m.pc)
			m.pc = r.Start
		}
	case OpRet:
		if len(m.frames) == 0 {
			m.halted = true
			return ErrHalted
		}
		m.pc = m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
	case OpHalt:
		m.halted = true
		return ErrHalted
	default:
		if inst.Op >= opCount {
			err = fmt.Errorf("invalid opcode %d", inst.Op)
		} else {
			err = opcodes[inst.Op].fn(m, inst)
		}
	}

	if err != nil {
		m.pc = addr
		return &RuntimeError{Addr: addr, Err: err}
	}
	return nil
}

// Eval runs a detached block of code on the machine's value stack and
// returns the value left on top of the stack. Jump operands are offsets
// within the block. Calls and returns are not permitted. The machine's
// program state is left untouched apart from globals the block stores.
func (m *Machine) Eval(code []Instruction) (int64, error) {
	if m.shutdown {
		return 0, ErrShutdown
	}

	saved := m.stack
	m.stack = make([]int64, 0, 16)
	defer func() { m.stack = saved }()

	for pc := 0; pc < len(code); {
		inst := &code[pc]
		pc++

		var err error
		switch inst.Op {
		case OpJmp:
			pc = int(inst.Arg)
		case OpJz, OpJnz:
			var v int64
			v, err = m.pop()
			if err == nil && (v == 0) == (inst.Op == OpJz) {
				pc = int(inst.Arg)
			}
		case OpHalt:
			pc = len(code)
		case OpCall, OpRet:
			err = ErrInvalidEvalCode
		default:
			if inst.Op >= opCount {
				err = fmt.Errorf("invalid opcode %d", inst.Op)
			} else {
				err = opcodes[inst.Op].fn(m, inst)
			}
		}
		if err != nil {
			return 0, err
		}
	}

	return m.pop()
}

// Shutdown stops the machine permanently and runs the shutdown hooks. Only
// the first call has any effect.
func (m *Machine) Shutdown() {
	if m.shutdown {
		return
	}
	m.shutdown = true
	hooks := m.onShutdown
	m.onShutdown = nil
	for _, fn := range hooks {
		fn(m)
	}
	m.boundary = nil
	m.onLoad = nil
}

func (m *Machine) push(v int64) error {
	if len(m.stack) >= m.cfg.StackLimit {
		return ErrStackOverflow
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *Machine) pop() (int64, error) {
	n := len(m.stack)
	if n == 0 {
		return 0, ErrStackUnderflow
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, nil
}

func (m *Machine) top() (int64, error) {
	n := len(m.stack)
	if n == 0 {
		return 0, ErrStackUnderflow
	}
	return m.stack[n-1], nil
}
