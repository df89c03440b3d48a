// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger implements a bounded, tagged log. A single central log is
// shared by the whole application and is reachable through the package-level
// functions.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// An Entry is a single line in the log. Consecutive identical entries are
// collapsed into one entry with a repeat count.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	Repeated  int
}

func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Tag, e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&b, " (repeat x%d)", e.Repeated+1)
	}
	b.WriteByte('\n')
	return b.String()
}

// A Logger holds up to a fixed number of entries, discarding the oldest
// entries once full. It is safe for concurrent use.
type Logger struct {
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
	echo       io.Writer
}

// NewLogger creates a logger holding at most maxEntries entries.
func NewLogger(maxEntries int) *Logger {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Logger{maxEntries: maxEntries}
}

// Log adds an entry.
func (l *Logger) Log(tag, detail string) {
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	l.mu.Lock()
	defer l.mu.Unlock()

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.Repeated++
		e.Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		if len(l.entries) > l.maxEntries {
			l.entries = append(l.entries[:0], l.entries[len(l.entries)-l.maxEntries:]...)
		}
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil {
		io.WriteString(l.echo, e.String())
	}
}

// Logf adds a formatted entry.
func (l *Logger) Logf(tag, format string, args ...any) {
	l.Log(tag, fmt.Sprintf(format, args...))
}

// Clear removes all entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}

// Len returns the number of entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Write writes every entry to w.
func (l *Logger) Write(w io.Writer) {
	l.Tail(w, l.maxEntries)
}

// Tail writes the most recent n entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n = min(max(n, 0), len(l.entries))
	for _, e := range l.entries[len(l.entries)-n:] {
		io.WriteString(w, e.String())
	}
}

// SetEcho copies every new entry to w as it is logged. Pass nil to stop
// echoing.
func (l *Logger) SetEcho(w io.Writer) {
	l.mu.Lock()
	l.echo = w
	l.mu.Unlock()
}

// Maximum number of entries held by the central log.
const maxCentral = 256

var central = NewLogger(maxCentral)

// Log adds an entry to the central log.
func Log(tag, detail string) {
	central.Log(tag, detail)
}

// Logf adds a formatted entry to the central log.
func Logf(tag, format string, args ...any) {
	central.Logf(tag, format, args...)
}

// Clear removes all entries from the central log.
func Clear() {
	central.Clear()
}

// Write writes the central log to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the last n entries of the central log to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// SetEcho copies new central log entries to w.
func SetEcho(w io.Writer) {
	central.SetEcho(w)
}
