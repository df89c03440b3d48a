// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package breakpoint maintains a debug session's breakpoint table and
// decides, at each instruction boundary, whether execution should stop.
package breakpoint

import (
	"errors"
	"fmt"

	"github.com/beevik/hbdb/location"
)

// ErrNotFound is returned when a breakpoint id does not exist.
var ErrNotFound = errors.New("breakpoint not found")

// A Resolver turns a location spec into a location.
type Resolver interface {
	Resolve(spec string) (location.Location, error)
}

// An Evaluator computes the value of a condition expression. A non-zero
// result satisfies the condition.
type Evaluator interface {
	Evaluate(expr string) (int64, error)
}

// A Breakpoint represents a single entry in the breakpoint table.
type Breakpoint struct {
	ID        int
	Location  location.Location
	Enabled   bool
	Temporary bool   // removed after its first hit
	Condition string // empty for unconditional breakpoints
	Hits      int

	removed bool
}

func (b *Breakpoint) String() string {
	s := fmt.Sprintf("%d at %s (%s)", b.ID, b.Location, b.Location.Spec)
	if b.Temporary {
		s += " once"
	}
	if !b.Enabled {
		s += " disabled"
	}
	if b.Condition != "" {
		s += " if " + b.Condition
	}
	return s
}

// A Hit records a breakpoint whose location was reached and whose condition
// was satisfied. CondErr holds the diagnostic of a condition that failed to
// evaluate; such a breakpoint still fires.
type Hit struct {
	Breakpoint *Breakpoint
	CondErr    error
}
