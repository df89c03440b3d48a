// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package location

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// A Resolver resolves location specs against the code currently loaded in
// a runtime.
type Resolver struct {
	code Code
}

// NewResolver creates a resolver that consults the provided code.
func NewResolver(code Code) *Resolver {
	return &Resolver{code: code}
}

// Resolve maps a location spec to an address. If the spec is well formed
// but its code is not loaded, it returns an unresolved location together
// with an error wrapping ErrUnresolved.
func (r *Resolver) Resolve(spec string) (Location, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return Location{}, &ParseError{Spec: spec, Msg: "empty location"}

	case strings.LastIndexByte(spec, ':') >= 0:
		i := strings.LastIndexByte(spec, ':')
		file, lineStr := spec[:i], spec[i+1:]
		if file == "" {
			return Location{}, &ParseError{Spec: spec, Msg: "missing file name"}
		}
		line, err := strconv.Atoi(lineStr)
		if err != nil || line < 1 {
			return Location{}, &ParseError{Spec: spec, Msg: "bad line number"}
		}
		return r.resolveLine(spec, file, line)

	case numeric(spec[0]):
		addr, err := parseAddress(spec)
		if err != nil {
			return Location{}, &ParseError{Spec: spec, Msg: "bad address"}
		}
		return r.resolveAddress(spec, addr)

	case isIdentifier(spec):
		if addr, ok := r.code.Entry(spec); ok {
			return Resolved(spec, addr), nil
		}
		return Unresolved(spec), fmt.Errorf("%w: routine %s", ErrUnresolved, spec)

	default:
		return Location{}, &ParseError{Spec: spec, Msg: "expected address, routine or file:line"}
	}
}

// Validate a numeric address against the loaded code regions.
func (r *Resolver) resolveAddress(spec string, addr Address) (Location, error) {
	for _, t := range r.code.LineTables() {
		if t.Contains(addr) {
			return Resolved(spec, addr), nil
		}
	}
	return Unresolved(spec), fmt.Errorf("%w: address $%04X", ErrUnresolved, addr)
}

// Find the first address whose line is at or after the requested line,
// across every loaded routine of the file.
func (r *Resolver) resolveLine(spec, file string, line int) (Location, error) {
	var best *LineEntry
	for _, t := range r.code.LineTables() {
		if !sameFile(t.File, file) {
			continue
		}

		byLine := make([]LineEntry, len(t.Lines))
		copy(byLine, t.Lines)
		sort.SliceStable(byLine, func(i, j int) bool {
			if byLine[i].Line != byLine[j].Line {
				return byLine[i].Line < byLine[j].Line
			}
			return byLine[i].Address < byLine[j].Address
		})

		i := sort.Search(len(byLine), func(i int) bool {
			return byLine[i].Line >= line
		})
		if i == len(byLine) {
			continue
		}

		e := byLine[i]
		if best == nil || e.Line < best.Line || (e.Line == best.Line && e.Address < best.Address) {
			best = &e
		}
	}

	if best == nil {
		return Unresolved(spec), fmt.Errorf("%w: no code for %s:%d", ErrUnresolved, file, line)
	}
	return Resolved(spec, best.Address), nil
}

// ReverseResolve returns the best-known source position of an address: the
// line of the last table entry at or before addr within the routine that
// contains it. It returns false if no source mapping covers the address.
func (r *Resolver) ReverseResolve(addr Address) (Position, bool) {
	for _, t := range r.code.LineTables() {
		if !t.Contains(addr) {
			continue
		}
		i := sort.Search(len(t.Lines), func(i int) bool {
			return t.Lines[i].Address > addr
		})
		if i == 0 {
			return Position{}, false
		}
		return Position{File: t.File, Line: t.Lines[i-1].Line, Routine: t.Routine}, true
	}
	return Position{}, false
}

func sameFile(have, want string) bool {
	if have == want {
		return true
	}
	have, want = filepath.ToSlash(have), filepath.ToSlash(want)
	return filepath.Base(have) == want || strings.HasSuffix(have, "/"+want)
}

func parseAddress(s string) (Address, error) {
	var v uint64
	var err error
	if s[0] == '$' {
		v, err = strconv.ParseUint(s[1:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 0, 32)
	}
	return Address(v), err
}

func numeric(c byte) bool {
	return (c >= '0' && c <= '9') || c == '$'
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && ((c >= '0' && c <= '9') || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
