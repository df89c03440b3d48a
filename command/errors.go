// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by command lookup.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrAmbiguousCommand = errors.New("ambiguous command")
)

// An AmbiguousError is returned when a prefix matches more than one
// command name.
type AmbiguousError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous command '%s': %s", e.Prefix, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousCommand
}

// A ParseError is returned when a command line or its arguments are
// malformed.
type ParseError struct {
	Command string // empty if the line could not be split
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Command == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Msg)
}

// ParseErrorf returns a ParseError for the named command.
func ParseErrorf(cmd, format string, args ...any) error {
	return &ParseError{Command: cmd, Msg: fmt.Sprintf(format, args...)}
}
