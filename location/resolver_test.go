// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package location

import (
	"errors"
	"strconv"
	"testing"
)

type fakeCode struct {
	tables []LineTable
}

func (c *fakeCode) LineTables() []LineTable {
	return c.tables
}

func (c *fakeCode) Entry(routine string) (Address, bool) {
	for _, t := range c.tables {
		if t.Routine == routine {
			return t.Start, true
		}
	}
	return 0, false
}

// Two routines of prog/routine.src: main covers lines 3-6 and work covers
// lines 10-14, with line 12 blank.
func newFakeCode() *fakeCode {
	return &fakeCode{tables: []LineTable{
		{
			Routine: "main", File: "prog/routine.src", Start: 0, End: 4,
			Lines: []LineEntry{{0, 3}, {1, 4}, {2, 5}, {3, 6}},
		},
		{
			Routine: "work", File: "prog/routine.src", Start: 4, End: 8,
			Lines: []LineEntry{{4, 10}, {5, 11}, {6, 13}, {7, 14}},
		},
	}}
}

func TestResolveNumeric(t *testing.T) {
	r := NewResolver(newFakeCode())

	for _, spec := range []string{"5", "0x5", "$5", " $05 "} {
		loc, err := r.Resolve(spec)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", spec, err)
			continue
		}
		if !loc.IsResolved() || loc.Addr != 5 {
			t.Errorf("%q: incorrect location: %v", spec, loc)
		}
	}

	loc, err := r.Resolve("$100")
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("expected unresolved error, got %v", err)
	}
	if loc.IsResolved() || loc.Spec != "$100" {
		t.Errorf("expected pending location, got %v", loc)
	}
}

func TestResolveRoutine(t *testing.T) {
	r := NewResolver(newFakeCode())

	loc, err := r.Resolve("work")
	if err != nil || loc.Addr != 4 {
		t.Errorf("incorrect resolution of work: %v, %v", loc, err)
	}

	loc, err = r.Resolve("missing")
	if !errors.Is(err, ErrUnresolved) || loc.IsResolved() {
		t.Errorf("expected pending location, got %v, %v", loc, err)
	}
}

func TestResolveFileLine(t *testing.T) {
	r := NewResolver(newFakeCode())

	cases := []struct {
		spec string
		addr Address
	}{
		{"routine.src:3", 0},
		{"routine.src:5", 2},
		{"prog/routine.src:11", 5},
		{"routine.src:12", 6}, // blank line moves to the next line
		{"routine.src:1", 0},
		{"routine.src:7", 4}, // between routines
	}
	for _, c := range cases {
		loc, err := r.Resolve(c.spec)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.spec, err)
			continue
		}
		if loc.Addr != c.addr {
			t.Errorf("%s: address incorrect. exp: %d, got: %d", c.spec, c.addr, loc.Addr)
		}
	}

	for _, spec := range []string{"routine.src:99", "other.src:3"} {
		if _, err := r.Resolve(spec); !errors.Is(err, ErrUnresolved) {
			t.Errorf("%s: expected unresolved error, got %v", spec, err)
		}
	}
}

func TestResolveNumericFileName(t *testing.T) {
	code := newFakeCode()
	code.tables = append(code.tables, LineTable{
		Routine: "game", File: "2048.src", Start: 8, End: 10,
		Lines: []LineEntry{{8, 10}, {9, 11}},
	})
	r := NewResolver(code)

	loc, err := r.Resolve("2048.src:11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loc.IsResolved() || loc.Addr != 9 {
		t.Errorf("address incorrect. exp: 9, got: %v", loc)
	}
}

func TestResolveMalformed(t *testing.T) {
	r := NewResolver(newFakeCode())

	for _, spec := range []string{"", "routine.src:", "routine.src:x", ":10", "routine.src:0", "$zz", "a b"} {
		_, err := r.Resolve(spec)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("%q: expected parse error, got %v", spec, err)
		}
	}
}

func TestResolveLaterLoad(t *testing.T) {
	code := &fakeCode{}
	r := NewResolver(code)

	if _, err := r.Resolve("routine.src:10"); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected unresolved error, got %v", err)
	}

	code.tables = newFakeCode().tables
	loc, err := r.Resolve("routine.src:10")
	if err != nil || loc.Addr != 4 {
		t.Errorf("expected resolution after load, got %v, %v", loc, err)
	}
}

func TestReverseResolve(t *testing.T) {
	r := NewResolver(newFakeCode())

	pos, ok := r.ReverseResolve(6)
	if !ok || pos.Line != 13 || pos.Routine != "work" || pos.File != "prog/routine.src" {
		t.Errorf("incorrect position: %+v", pos)
	}
	if pos.String() != "prog/routine.src:13" {
		t.Errorf("incorrect position string: %s", pos)
	}

	if _, ok := r.ReverseResolve(8); ok {
		t.Error("expected no position outside loaded code")
	}
}

func TestRoundTrip(t *testing.T) {
	r := NewResolver(newFakeCode())
	for _, line := range []int{3, 4, 5, 6, 10, 11, 13, 14} {
		loc, err := r.Resolve("routine.src:" + strconv.Itoa(line))
		if err != nil {
			t.Fatal(err)
		}
		pos, ok := r.ReverseResolve(loc.Addr)
		if !ok || pos.Line != line {
			t.Errorf("line %d round trip failed: %+v", line, pos)
		}
	}
}
