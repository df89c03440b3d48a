package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTrace(t *testing.T) {
	src := `.routine main
        push 2
        push 3
        add
        print
        halt
.end
`
	filename := filepath.Join(t.TempDir(), "add.src")
	if err := os.WriteFile(filename, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := trace(filename, &out); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"0000-   push   2",
		"Stack=[2 3]",
		"0002-   add",
		"5\n",
		"0004-   halt",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("trace missing %q:\n%s", want, out.String())
		}
	}
}

func TestTraceAssemblyError(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bad.src")
	if err := os.WriteFile(filename, []byte("bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := trace(filename, &out); err == nil {
		t.Error("expected assembly error")
	}
	if !strings.Contains(out.String(), "Syntax error") {
		t.Errorf("errors not reported:\n%s", out.String())
	}
}
