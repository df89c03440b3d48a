// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debugger implements an interactive source-level debugger that
// attaches to a running bytecode machine.
//
// A debug session is created by attaching to a target machine through a
// Registry. The session owns a private companion machine used to evaluate
// expressions and breakpoint conditions, a breakpoint table, and a command
// loop that reads debugger commands from an input stream. The target runs
// only when the command loop resumes it, and it stops again when the
// session's instruction-boundary callback reports a breakpoint hit, a
// completed step, or a user interrupt.
package debugger

import (
	"errors"
	"fmt"

	"github.com/beevik/hbdb/command"
)

// Errors returned by the debugger.
var (
	ErrExited         = errors.New("debug session has exited")
	ErrInitialization = errors.New("debugger initialization failed")
	ErrNoHelpTopic    = fmt.Errorf("no help topic: %w", command.ErrUnknownCommand)
	errQuit           = errors.New("quit")
)

// An InitializationError is returned by Attach when a session could not be
// created for a target. It matches ErrInitialization with errors.Is.
type InitializationError struct {
	Target uint64 // id of the target machine
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("debugger initialization failed for machine %d: %v", e.Target, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

func (e *InitializationError) Is(target error) bool {
	return target == ErrInitialization
}

// State is the lifecycle state of a debug session.
type State byte

const (
	// StateUninitialized is the state of a session that has not finished
	// attaching.
	StateUninitialized State = iota

	// StateRunning means the target is executing under the debugger's
	// observation.
	StateRunning

	// StateStopped means the target is stopped and commands are being
	// processed.
	StateStopped

	// StateExited is terminal. No further commands are processed.
	StateExited
)

var stateNames = []string{"uninitialized", "running", "stopped", "exited"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

type flags byte

const (
	flagRunning flags = 1 << iota // the session is attached and observing
	flagEnter                     // stop at the next instruction boundary
)
