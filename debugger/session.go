// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/beevik/hbdb/breakpoint"
	"github.com/beevik/hbdb/command"
	"github.com/beevik/hbdb/disasm"
	"github.com/beevik/hbdb/location"
	"github.com/beevik/hbdb/logger"
	"github.com/beevik/hbdb/vm"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Why the target last stopped.
type stopReason byte

const (
	stopNone stopReason = iota
	stopEnter
	stopBreakpoint
	stopInterrupt
)

// A Session is the debugger state attached to a single target machine.
type Session struct {
	id          string
	tag         string // log tag
	registry    *Registry
	target      *vm.Machine // not owned
	companion   *vm.Machine
	state       State
	flags       flags
	interrupt   *atomic.Bool
	resolver    *location.Resolver
	bps         *breakpoint.Manager
	dispatcher  *command.Dispatcher[*Session]
	exprParser  *exprParser
	settings    *Settings
	history     *history
	input       *bufio.Scanner
	output      *bufio.Writer
	pending     []string // lines queued by the source command
	interactive bool
	reason      stopReason
	hits        []breakpoint.Hit
	echoing     bool
	once        sync.Once
}

func newSession(r *Registry, target, companion *vm.Machine, settings *Settings) *Session {
	id := uuid.New().String()
	s := &Session{
		id:         id,
		tag:        "session " + id[:8],
		registry:   r,
		target:     target,
		companion:  companion,
		state:      StateRunning,
		flags:      flagRunning | flagEnter,
		interrupt:  atomic.NewBool(false),
		resolver:   location.NewResolver(targetCode{target}),
		dispatcher: command.NewDispatcher(cmds),
		exprParser: newExprParser(),
		settings:   settings,
		history:    newHistory(settings.HistorySize),
		output:     bufio.NewWriter(io.Discard),
	}
	s.bps = breakpoint.New(s.resolver, s)
	s.bps.SetHitHandler(s.onHit)
	s.onSettingsUpdate()
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Target returns the machine being debugged.
func (s *Session) Target() *vm.Machine {
	return s.target
}

// Companion returns the machine the session evaluates expressions on.
func (s *Session) Companion() *vm.Machine {
	return s.companion
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Breakpoints returns the session's breakpoint table.
func (s *Session) Breakpoints() *breakpoint.Manager {
	return s.bps
}

// Resolver returns the location resolver for the target's code.
func (s *Session) Resolver() *location.Resolver {
	return s.resolver
}

// Settings returns the session's settings.
func (s *Session) Settings() *Settings {
	return s.settings
}

// Break asks the target to stop at its next instruction boundary. It may be
// called from any goroutine.
func (s *Session) Break() {
	s.interrupt.Store(true)
}

// Evaluate computes the value of an expression on the companion machine.
// Identifiers refer to the target's globals and routines, and to the
// pseudo-variables pc, sp and tos.
func (s *Session) Evaluate(expr string) (int64, error) {
	if s.state == StateExited {
		return 0, ErrExited
	}
	code, err := s.exprParser.Parse(expr, s)
	if err != nil {
		return 0, err
	}
	return s.companion.Eval(code)
}

func (s *Session) resolveIdentifier(id string) (int64, error) {
	switch strings.ToLower(id) {
	case ".", "pc":
		return int64(s.target.PC()), nil
	case "sp":
		return int64(len(s.target.Stack())), nil
	case "tos":
		stack := s.target.Stack()
		if len(stack) == 0 {
			return 0, errors.New("value stack is empty")
		}
		return stack[len(stack)-1], nil
	case "depth":
		return int64(s.target.Depth()), nil
	}

	if v, ok := s.target.Global(id); ok {
		return v, nil
	}
	if r, ok := s.target.Routine(id); ok {
		return int64(r.Start), nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", id)
}

// The target's instruction-boundary callback.
func (s *Session) onBoundary(m *vm.Machine, addr vm.Address) vm.Action {
	if s.state == StateExited || s.flags&flagRunning == 0 {
		return vm.Continue
	}

	if s.interrupt.CompareAndSwap(true, false) {
		s.reason = stopInterrupt
		return vm.Stop
	}

	hits := s.bps.OnInstructionBoundary(location.Address(addr))
	if len(hits) > 0 {
		s.reason, s.hits = stopBreakpoint, hits
		return vm.Stop
	}

	if s.flags&flagEnter != 0 {
		s.flags &^= flagEnter
		s.reason = stopEnter
		return vm.Stop
	}
	return vm.Continue
}

func (s *Session) onHit(h breakpoint.Hit) {
	b := h.Breakpoint
	logger.Logf(s.tag, "breakpoint %d hit at $%04X", b.ID, b.Location.Addr)
	if h.CondErr != nil {
		logger.Logf(s.tag, "breakpoint %d condition '%s': %v", b.ID, b.Condition, h.CondErr)
	}
}

// The target's code-load hook. Pending breakpoints are retried against the
// newly loaded code.
func (s *Session) onLoad(m *vm.Machine, mod *vm.Module) {
	logger.Logf(s.tag, "loaded module '%s' (%d routines)", mod.Name, len(mod.Routines))
	for _, b := range s.bps.Reresolve() {
		logger.Logf(s.tag, "breakpoint %d resolved at $%04X", b.ID, b.Location.Addr)
		s.printf("Breakpoint %d resolved at $%04X%s.\n", b.ID, b.Location.Addr, s.positionSuffix(b.Location.Addr))
	}
}

func (s *Session) onShutdown(m *vm.Machine) {
	s.teardown()
}

// Release the session's resources and unregister it. Only the first call
// has any effect.
func (s *Session) teardown() {
	s.once.Do(func() {
		s.state = StateExited
		s.flags = 0
		s.companion.Shutdown()
		s.bps.Clear()
		s.history.clear()
		if s.echoing {
			logger.SetEcho(nil)
			s.echoing = false
		}
		s.flush()
		s.output = bufio.NewWriter(io.Discard)
		s.registry.unregister(s)
		logger.Log(s.tag, "detached")
	})
}

// Run the target until it stops, halts or fails.
func (s *Session) resume() error {
	s.interrupt.Store(false)
	s.prepareRun()
	s.state = StateRunning
	err := s.target.Run()
	return s.finishRun(err)
}

// Execute count instructions, stopping early for breakpoints, interrupts
// or program termination.
func (s *Session) step(count int) error {
	s.interrupt.Store(false)
	for i := count - 1; i >= 0; i-- {
		s.prepareRun()
		s.state = StateRunning
		err := s.target.Step()
		if err != nil || s.reason == stopBreakpoint || s.reason == stopInterrupt {
			return s.finishRun(err)
		}

		s.state = StateStopped
		switch {
		case i == s.settings.StepLines:
			s.println("...")
		case i < s.settings.StepLines:
			s.displayPC()
		}
	}
	return nil
}

func (s *Session) prepareRun() {
	s.reason, s.hits = stopNone, nil
	s.flags &^= flagEnter
}

func (s *Session) finishRun(err error) error {
	if s.state == StateExited {
		return errQuit
	}
	s.state = StateStopped

	var rerr *vm.RuntimeError
	switch {
	case err == nil:
		s.reportStop()
	case errors.Is(err, vm.ErrHalted):
		logger.Log(s.tag, "program halted")
		s.println("Program halted.")
	case errors.Is(err, vm.ErrShutdown):
		return errQuit
	case errors.As(err, &rerr):
		logger.Log(s.tag, rerr.Error())
		s.printf("ERROR: %v.\n", rerr)
		s.displayPC()
	default:
		return err
	}
	return nil
}

func (s *Session) reportStop() {
	switch s.reason {
	case stopBreakpoint:
		for _, h := range s.hits {
			b := h.Breakpoint
			kind := "Breakpoint"
			if b.Temporary {
				kind = "Temporary breakpoint"
			}
			s.printf("%s %d hit at $%04X%s.\n", kind, b.ID, b.Location.Addr, s.positionSuffix(b.Location.Addr))
			if h.CondErr != nil {
				s.printf("Condition '%s' failed: %v.\n", b.Condition, h.CondErr)
			}
		}
	case stopInterrupt:
		s.println("Interrupted.")
	}
	s.displayPC()
}

// Return " (file:line)" for an address with a known source position.
func (s *Session) positionSuffix(addr location.Address) string {
	if pos, ok := s.resolver.ReverseResolve(addr); ok {
		return " (" + pos.String() + ")"
	}
	return ""
}

func (s *Session) disassemble(addr vm.Address) (str string, next vm.Address) {
	var line string
	line, next = disasm.Disassemble(s.target, addr)

	where := "???"
	if r, ok := s.target.RegionAt(addr); ok {
		where = fmt.Sprintf("%s+%d", r.Routine, addr-r.Start)
		if line, ok := r.LineAt(addr); ok {
			where += fmt.Sprintf(" %s:%d", r.File, line)
		}
	}

	str = fmt.Sprintf("%04X-   %-20s ; %s", addr, line, where)
	return str, next
}

func (s *Session) displayPC() {
	d, _ := s.disassemble(s.target.PC())
	s.println(d)
}

func (s *Session) onSettingsUpdate() {
	s.exprParser.hexMode = s.settings.HexMode
	s.history.resize(s.settings.HistorySize)
	switch {
	case s.settings.EchoLog && !s.echoing:
		logger.SetEcho(outputWriter{s})
	case !s.settings.EchoLog && s.echoing:
		logger.SetEcho(nil)
	}
	s.echoing = s.settings.EchoLog
}

// outputWriter writes to a session's current output stream.
type outputWriter struct {
	s *Session
}

func (w outputWriter) Write(p []byte) (n int, err error) {
	n, err = w.s.output.Write(p)
	w.s.flush()
	return n, err
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.output, format, args...)
	s.flush()
}

func (s *Session) println(args ...any) {
	fmt.Fprintln(s.output, args...)
	s.flush()
}

func (s *Session) flush() {
	s.output.Flush()
}
