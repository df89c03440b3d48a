package debugger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/beevik/hbdb/vm"
)

type testResolver map[string]int64

func (r testResolver) resolveIdentifier(s string) (int64, error) {
	if v, ok := r[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func eval(t *testing.T, p *exprParser, expr string) (int64, error) {
	t.Helper()
	code, err := p.Parse(expr, testResolver{"x": 6, "y": 7})
	if err != nil {
		return 0, err
	}
	m, err := vm.New(vm.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return m.Eval(code)
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"1", 1},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"100 / 10 / 5", 2},
		{"7 % 4", 3},
		{"-4 + 10", 6},
		{"-(2 + 3)", -5},
		{"+5", 5},
		{"--5", 5},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"x * y", 42},
		{"x < y", 1},
		{"x <= 6", 1},
		{"x > y", 0},
		{"y >= 8", 0},
		{"x == 6", 1},
		{"x != 6", 0},
		{"12 & 10", 8},
		{"12 ^ 10", 6},
		{"12 | 10", 14},
		{"~0", -1},
		{"!0", 1},
		{"!5", 0},
		{"5 > 3 && 2 > 3", 0},
		{"5 > 3 || 2 > 3", 1},
		{"3 && 4", 1},
		{"1 + 1 == 2", 1},
		{"$10", 16},
		{"0x1f", 31},
		{"0b101", 5},
		{"'A'", 65},
	}

	p := newExprParser()
	for _, test := range tests {
		got, err := eval(t, p, test.expr)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.expr, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: exp: %d, got: %d", test.expr, test.want, got)
		}
	}
}

func TestExpressionErrors(t *testing.T) {
	p := newExprParser()
	for _, expr := range []string{"", "1 +", "(1", "1)", "1 2", "#", "$", "0x", "'a", "1 === 2"} {
		if _, err := eval(t, p, expr); !errors.Is(err, errExprParse) {
			t.Errorf("%q: expected syntax error, got %v", expr, err)
		}
	}

	if _, err := eval(t, p, "z + 1"); err == nil {
		t.Error("expected unknown identifier error")
	}
	if _, err := eval(t, p, "1 / 0"); !errors.Is(err, vm.ErrDivideByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestHexMode(t *testing.T) {
	p := newExprParser()
	p.hexMode = true

	tests := []struct {
		expr string
		want int64
	}{
		{"10", 16},
		{"ff", 255},
		{"x + 1", 7},
		{"0d10", 10},
	}
	for _, test := range tests {
		got, err := eval(t, p, test.expr)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.expr, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: exp: %d, got: %d", test.expr, test.want, got)
		}
	}
}
