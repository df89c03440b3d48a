// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger_test

import (
	"strings"
	"testing"

	"github.com/beevik/hbdb/logger"
)

func expectOutput(t *testing.T, got *strings.Builder, exp string) {
	t.Helper()
	if got.String() != exp {
		t.Errorf("log output incorrect. exp: %q, got: %q", exp, got.String())
	}
	got.Reset()
}

func TestLogger(t *testing.T) {
	l := logger.NewLogger(100)
	w := &strings.Builder{}

	l.Write(w)
	expectOutput(t, w, "")

	l.Log("test", "this is a test")
	l.Logf("test2", "value %d", 5)
	l.Write(w)
	expectOutput(t, w, "test: this is a test\ntest2: value 5\n")

	l.Tail(w, 100)
	expectOutput(t, w, "test: this is a test\ntest2: value 5\n")

	l.Tail(w, 1)
	expectOutput(t, w, "test2: value 5\n")

	l.Tail(w, 0)
	expectOutput(t, w, "")

	l.Clear()
	l.Write(w)
	expectOutput(t, w, "")
}

func TestRepeats(t *testing.T) {
	l := logger.NewLogger(10)
	w := &strings.Builder{}

	l.Log("tag", "same")
	l.Log("tag", "same")
	l.Log("tag", "same")
	l.Log("tag", "differ\nent")
	l.Write(w)
	expectOutput(t, w, "tag: same (repeat x3)\ntag: different\n")
}

func TestBounded(t *testing.T) {
	l := logger.NewLogger(3)
	w := &strings.Builder{}

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.Log("t", s)
	}
	if l.Len() != 3 {
		t.Errorf("length incorrect. exp: 3, got: %d", l.Len())
	}
	l.Write(w)
	expectOutput(t, w, "t: c\nt: d\nt: e\n")
}

func TestEcho(t *testing.T) {
	l := logger.NewLogger(10)
	w := &strings.Builder{}

	l.SetEcho(w)
	l.Log("echo", "one")
	expectOutput(t, w, "echo: one\n")

	l.SetEcho(nil)
	l.Log("echo", "two")
	expectOutput(t, w, "")
}
