// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package breakpoint

import (
	"errors"
	"fmt"
	"iter"

	"github.com/beevik/hbdb/location"
	"go.uber.org/atomic"
)

// A Manager owns the breakpoint table of a single debug session. It is not
// safe for concurrent use. Removals and additions requested while a boundary
// scan is in progress take effect when the scan completes.
type Manager struct {
	resolver Resolver
	eval     Evaluator
	onHit    func(h Hit)
	seq      *atomic.Int64
	bps      []*Breakpoint // id order
	pending  []*Breakpoint // added during a scan
	scanning bool
	dirty    bool // a breakpoint was marked removed during a scan
}

// New creates an empty breakpoint table. Conditions are evaluated with e,
// which may be nil if conditional breakpoints are not used.
func New(r Resolver, e Evaluator) *Manager {
	return &Manager{
		resolver: r,
		eval:     e,
		seq:      atomic.NewInt64(0),
	}
}

// SetHitHandler installs a function called for every hit during a boundary
// scan, before the scan completes.
func (m *Manager) SetHitHandler(fn func(h Hit)) {
	m.onHit = fn
}

// Add creates an enabled breakpoint at the location described by spec. If
// the location's code is not loaded yet, the breakpoint is stored pending
// and resolved by a later call to Reresolve.
func (m *Manager) Add(spec string) (*Breakpoint, error) {
	return m.add(spec, false, "")
}

// AddTemporary creates a breakpoint that removes itself after its first hit.
func (m *Manager) AddTemporary(spec string) (*Breakpoint, error) {
	return m.add(spec, true, "")
}

// AddConditional creates a breakpoint that fires only when cond evaluates
// to a non-zero value.
func (m *Manager) AddConditional(spec, cond string) (*Breakpoint, error) {
	return m.add(spec, false, cond)
}

func (m *Manager) add(spec string, temp bool, cond string) (*Breakpoint, error) {
	loc, err := m.resolver.Resolve(spec)
	switch {
	case errors.Is(err, location.ErrUnresolved):
		loc = location.Unresolved(spec)
	case err != nil:
		return nil, err
	}

	b := &Breakpoint{
		ID:        int(m.seq.Inc()),
		Location:  loc,
		Enabled:   true,
		Temporary: temp,
		Condition: cond,
	}
	if m.scanning {
		m.pending = append(m.pending, b)
	} else {
		m.bps = append(m.bps, b)
	}
	return b, nil
}

// Remove deletes the breakpoint with the given id.
func (m *Manager) Remove(id int) error {
	b := m.find(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	m.remove(b)
	return nil
}

func (m *Manager) remove(b *Breakpoint) {
	b.removed = true
	if m.scanning {
		m.dirty = true
		return
	}
	m.compact()
}

// Enable turns on the breakpoint with the given id.
func (m *Manager) Enable(id int) error {
	return m.setEnabled(id, true)
}

// Disable turns off the breakpoint with the given id without removing it.
func (m *Manager) Disable(id int) error {
	return m.setEnabled(id, false)
}

func (m *Manager) setEnabled(id int, enabled bool) error {
	b := m.find(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	b.Enabled = enabled
	return nil
}

// SetCondition replaces the condition of a breakpoint. An empty condition
// makes the breakpoint unconditional.
func (m *Manager) SetCondition(id int, cond string) error {
	b := m.find(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	b.Condition = cond
	return nil
}

// Get returns the breakpoint with the given id.
func (m *Manager) Get(id int) (*Breakpoint, bool) {
	b := m.find(id)
	return b, b != nil
}

// Len returns the number of breakpoints in the table.
func (m *Manager) Len() int {
	n := 0
	for range m.List() {
		n++
	}
	return n
}

// Clear removes every breakpoint. Ids are not reused afterward.
func (m *Manager) Clear() {
	for b := range m.List() {
		b.removed = true
	}
	if m.scanning {
		m.dirty = true
		return
	}
	m.compact()
}

// List returns the breakpoints in id order. The sequence iterates over a
// snapshot of the table, so the table may be modified while iterating.
func (m *Manager) List() iter.Seq[*Breakpoint] {
	snapshot := make([]*Breakpoint, 0, len(m.bps)+len(m.pending))
	snapshot = append(snapshot, m.bps...)
	snapshot = append(snapshot, m.pending...)
	return func(yield func(*Breakpoint) bool) {
		for _, b := range snapshot {
			if b.removed {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Reresolve retries every unresolved breakpoint, typically after new code
// has been loaded. It returns the breakpoints that became resolved.
func (m *Manager) Reresolve() []*Breakpoint {
	var resolved []*Breakpoint
	for b := range m.List() {
		if b.Location.IsResolved() {
			continue
		}
		loc, err := m.resolver.Resolve(b.Location.Spec)
		if err != nil || !loc.IsResolved() {
			continue
		}
		b.Location = loc
		resolved = append(resolved, b)
	}
	return resolved
}

// OnInstructionBoundary checks the breakpoints at addr and returns those
// that fire. Each firing breakpoint's hit count is incremented and
// temporary breakpoints are removed once the scan completes.
func (m *Manager) OnInstructionBoundary(addr location.Address) []Hit {
	if m.scanning {
		return nil
	}
	m.scanning = true
	defer m.endScan()

	var hits []Hit
	for _, b := range m.bps {
		if b.removed || !b.Enabled || !b.Location.IsResolved() || b.Location.Addr != addr {
			continue
		}

		h := Hit{Breakpoint: b}
		if b.Condition != "" {
			v, err := m.evaluate(b.Condition)
			switch {
			case err != nil:
				h.CondErr = err
			case v == 0:
				continue
			}
		}

		b.Hits++
		if b.Temporary {
			m.remove(b)
		}
		hits = append(hits, h)
		if m.onHit != nil {
			m.onHit(h)
		}
	}
	return hits
}

func (m *Manager) evaluate(cond string) (int64, error) {
	if m.eval == nil {
		return 0, errors.New("no condition evaluator")
	}
	return m.eval.Evaluate(cond)
}

func (m *Manager) endScan() {
	m.scanning = false
	if m.dirty {
		m.dirty = false
		m.compact()
	}
	if len(m.pending) > 0 {
		m.bps = append(m.bps, m.pending...)
		m.pending = nil
		m.compact()
	}
}

// Physically drop removed breakpoints from the table.
func (m *Manager) compact() {
	n := 0
	for _, b := range m.bps {
		if !b.removed {
			m.bps[n] = b
			n++
		}
	}
	clear(m.bps[n:])
	m.bps = m.bps[:n]
}

func (m *Manager) find(id int) *Breakpoint {
	for b := range m.List() {
		if b.ID == id {
			return b
		}
	}
	return nil
}
