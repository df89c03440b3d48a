// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "sort"

// A LineEntry maps a routine-relative instruction offset to the source
// code line that produced it.
type LineEntry struct {
	Offset int // instruction offset within the routine
	Line   int // 1-based source line number
}

// A Routine contains the bytecode for a single named routine along with its
// address-to-line table. Label operands in Code are routine-relative until
// the routine is loaded into a machine.
type Routine struct {
	Name  string
	File  string
	Code  []Instruction
	Lines []LineEntry
}

// A Module is a unit of loadable code, typically produced by assembling a
// single source file.
type Module struct {
	Name     string
	Routines []*Routine
}

// A Line associates a loaded code address with a source line number.
type Line struct {
	Address Address
	Line    int
}

// A Region describes the block of code space occupied by a single loaded
// routine.
type Region struct {
	Routine string  // routine name
	File    string  // source file the routine was assembled from
	Start   Address // entry address
	End     Address // one past the last instruction
	Lines   []Line  // address-to-line table, in address order
}

// Contains returns true if the address lies within the region.
func (r *Region) Contains(addr Address) bool {
	return addr >= r.Start && addr < r.End
}

// LineAt returns the source line of the last line table entry at or before
// addr. It returns false if the region has no line information covering the
// address.
func (r *Region) LineAt(addr Address) (int, bool) {
	if !r.Contains(addr) {
		return 0, false
	}
	i := sort.Search(len(r.Lines), func(i int) bool {
		return r.Lines[i].Address > addr
	})
	if i == 0 {
		return 0, false
	}
	return r.Lines[i-1].Line, true
}
