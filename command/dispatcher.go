// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import "strings"

// A Dispatcher executes input lines against a registry. An empty line
// repeats the most recently dispatched command.
type Dispatcher[S any] struct {
	reg  *Registry[S]
	last string
}

// NewDispatcher creates a dispatcher for the commands in reg.
func NewDispatcher[S any](reg *Registry[S]) *Dispatcher[S] {
	return &Dispatcher[S]{reg: reg}
}

// Registry returns the registry the dispatcher executes against.
func (d *Dispatcher[S]) Registry() *Registry[S] {
	return d.reg
}

// Last returns the text of the most recently dispatched command.
func (d *Dispatcher[S]) Last() string {
	return d.last
}

// Dispatch parses a line, looks up its command and invokes the command's
// handler. Once its command has been found and invoked, the line becomes the
// repeatable command whether or not the handler succeeded.
func (d *Dispatcher[S]) Dispatch(s S, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		if d.last == "" {
			return nil
		}
		line = d.last
	}

	invoked, err := d.exec(s, line)
	if invoked {
		d.last = line
	}
	return err
}

// Exec parses and runs a line like Dispatch, but an empty line does nothing
// and the line never becomes the repeatable command.
func (d *Dispatcher[S]) Exec(s S, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	_, err := d.exec(s, line)
	return err
}

func (d *Dispatcher[S]) exec(s S, line string) (invoked bool, err error) {
	args, err := Split(line)
	if err != nil {
		return false, err
	}

	c, err := d.reg.Lookup(args[0])
	if err != nil {
		return false, err
	}

	return true, c.Handler(s, args[1:])
}

// Split breaks a command line into whitespace-delimited fields. Double
// quotes group text containing whitespace into a single field.
func Split(line string) ([]string, error) {
	var fields []string
	var b strings.Builder
	inField, inQuote := false, false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			inField = true
		case !inQuote && (c == ' ' || c == '\t'):
			if inField {
				fields = append(fields, b.String())
				b.Reset()
				inField = false
			}
		default:
			b.WriteByte(c)
			inField = true
		}
	}

	if inQuote {
		return nil, &ParseError{Msg: "unterminated quote"}
	}
	if inField {
		fields = append(fields, b.String())
	}
	if len(fields) == 0 || fields[0] == "" {
		return nil, &ParseError{Msg: "empty command"}
	}
	return fields, nil
}
