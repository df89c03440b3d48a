// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"github.com/beevik/hbdb/location"
	"github.com/beevik/hbdb/vm"
)

// targetCode exposes a machine's loaded regions to the location resolver.
type targetCode struct {
	m *vm.Machine
}

func (c targetCode) LineTables() []location.LineTable {
	regions := c.m.Regions()
	tables := make([]location.LineTable, len(regions))
	for i, r := range regions {
		lines := make([]location.LineEntry, len(r.Lines))
		for j, l := range r.Lines {
			lines[j] = location.LineEntry{Address: location.Address(l.Address), Line: l.Line}
		}
		tables[i] = location.LineTable{
			Routine: r.Routine,
			File:    r.File,
			Start:   location.Address(r.Start),
			End:     location.Address(r.End),
			Lines:   lines,
		}
	}
	return tables
}

func (c targetCode) Entry(routine string) (location.Address, bool) {
	r, ok := c.m.Routine(routine)
	if !ok {
		return 0, false
	}
	return location.Address(r.Start), true
}
