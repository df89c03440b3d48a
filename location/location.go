// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package location maps textual location specs to executable addresses and
// executable addresses back to source positions.
//
// A location spec is one of:
//
//	123, 0x7b, $7B     a code address
//	main               the entry point of a routine
//	count.src:10       the first instruction at or after line 10 of a file
//
// Specs that refer to code which has not been loaded yet produce an
// unresolved Location, which can be retried after more code is loaded.
package location

import (
	"errors"
	"fmt"
)

// An Address is a position within the target's code space.
type Address uint32

// ErrUnresolved is returned when a location spec is well formed but refers
// to code that is not currently loaded.
var ErrUnresolved = errors.New("location not loaded")

// A ParseError is returned for malformed location specs.
type ParseError struct {
	Spec string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid location '%s': %s", e.Spec, e.Msg)
}

// A Location is either resolved to an address or an unresolved textual spec
// awaiting code to be loaded.
type Location struct {
	Spec     string  // the spec the location was created from
	Addr     Address // valid only if resolved
	resolved bool
}

// Resolved returns a location bound to an address.
func Resolved(spec string, addr Address) Location {
	return Location{Spec: spec, Addr: addr, resolved: true}
}

// Unresolved returns a location that has not been bound to an address.
func Unresolved(spec string) Location {
	return Location{Spec: spec}
}

// IsResolved returns true if the location is bound to an address.
func (l Location) IsResolved() bool {
	return l.resolved
}

func (l Location) String() string {
	if l.resolved {
		return fmt.Sprintf("$%04X", l.Addr)
	}
	return fmt.Sprintf("<pending %s>", l.Spec)
}

// A Position is a source code position.
type Position struct {
	File    string
	Line    int
	Routine string
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// A LineEntry associates an address with a source line.
type LineEntry struct {
	Address Address
	Line    int
}

// A LineTable describes one loaded routine: the code it occupies and its
// address-to-line mapping in address order.
type LineTable struct {
	Routine string
	File    string
	Start   Address // entry address
	End     Address // one past the last instruction
	Lines   []LineEntry
}

// Contains returns true if addr lies inside the routine.
func (t *LineTable) Contains(addr Address) bool {
	return addr >= t.Start && addr < t.End
}

// Code is implemented by the runtime that owns the code being debugged.
type Code interface {
	// LineTables returns a table for every loaded routine.
	LineTables() []LineTable

	// Entry returns the entry address of a loaded routine.
	Entry(routine string) (Address, bool)
}
