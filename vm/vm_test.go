package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/beevik/hbdb/vm"
)

func newMachine(t *testing.T) *vm.Machine {
	m, err := vm.New(vm.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func countdown() *vm.Module {
	return &vm.Module{
		Name: "countdown",
		Routines: []*vm.Routine{
			{
				Name: "main",
				File: "count.src",
				Code: []vm.Instruction{
					{Op: vm.OpPush, Arg: 3},      // 0
					{Op: vm.OpStore, Sym: "n"},   // 1
					{Op: vm.OpLoad, Sym: "n"},    // 2
					{Op: vm.OpJz, Arg: 10},       // 3
					{Op: vm.OpLoad, Sym: "n"},    // 4
					{Op: vm.OpPush, Arg: 1},      // 5
					{Op: vm.OpSub},               // 6
					{Op: vm.OpStore, Sym: "n"},   // 7
					{Op: vm.OpCall, Sym: "tick"}, // 8
					{Op: vm.OpJmp, Arg: 2},       // 9
					{Op: vm.OpHalt},              // 10
				},
				Lines: []vm.LineEntry{{0, 2}, {2, 4}, {4, 5}, {8, 6}, {9, 7}, {10, 9}},
			},
			{
				Name: "tick",
				File: "count.src",
				Code: []vm.Instruction{
					{Op: vm.OpLoad, Sym: "ticks"},
					{Op: vm.OpPush, Arg: 1},
					{Op: vm.OpAdd},
					{Op: vm.OpStore, Sym: "ticks"},
					{Op: vm.OpRet},
				},
				Lines: []vm.LineEntry{{0, 12}, {4, 13}},
			},
		},
	}
}

func expectGlobal(t *testing.T, m *vm.Machine, name string, v int64) {
	t.Helper()
	got, _ := m.Global(name)
	if got != v {
		t.Errorf("global %s incorrect. exp: %d, got: %d", name, v, got)
	}
}

func expectPC(t *testing.T, m *vm.Machine, pc vm.Address) {
	t.Helper()
	if m.PC() != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, m.PC())
	}
}

func TestRunToHalt(t *testing.T) {
	m := newMachine(t)
	if err := m.Load(countdown()); err != nil {
		t.Fatal(err)
	}

	err := m.Run()
	if !errors.Is(err, vm.ErrHalted) {
		t.Fatalf("expected halt, got %v", err)
	}
	expectGlobal(t, m, "n", 0)
	expectGlobal(t, m, "ticks", 3)
	if !m.Halted() {
		t.Error("machine should be halted")
	}
}

func TestLoadRelocates(t *testing.T) {
	m := newMachine(t)
	m.Load(&vm.Module{Routines: []*vm.Routine{{Name: "pad", Code: []vm.Instruction{{Op: vm.OpNop}, {Op: vm.OpRet}}}}})
	m.Load(countdown())

	r, ok := m.Routine("main")
	if !ok {
		t.Fatal("main not loaded")
	}
	if r.Start != 2 || r.End != 13 {
		t.Errorf("main region incorrect. got: $%04X..$%04X", r.Start, r.End)
	}
	inst, _ := m.Instruction(r.Start + 9)
	if inst.Op != vm.OpJmp || inst.Arg != int64(r.Start)+2 {
		t.Errorf("jump not relocated. got: %v %d", inst.Op, inst.Arg)
	}
	if line, ok := r.LineAt(r.Start + 3); !ok || line != 4 {
		t.Errorf("line incorrect. exp: 4, got: %d", line)
	}
}

func TestLoadDuplicate(t *testing.T) {
	m := newMachine(t)
	m.Load(countdown())
	err := m.Load(countdown())
	if !errors.Is(err, vm.ErrDuplicate) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if len(m.Regions()) != 2 {
		t.Errorf("expected 2 regions, got %d", len(m.Regions()))
	}
}

func TestBoundaryStop(t *testing.T) {
	m := newMachine(t)
	m.Load(countdown())
	tick, _ := m.Routine("tick")

	var seen []vm.Address
	m.SetBoundaryHandler(func(m *vm.Machine, addr vm.Address) vm.Action {
		seen = append(seen, addr)
		if addr == tick.Start {
			return vm.Stop
		}
		return vm.Continue
	})

	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	expectPC(t, m, tick.Start)
	if seen[0] != 0 {
		t.Errorf("entry boundary not reported first. got: $%04X", seen[0])
	}

	// Resuming executes the stopped instruction before the next boundary.
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	expectPC(t, m, tick.Start)
	expectGlobal(t, m, "ticks", 1)
}

func TestStep(t *testing.T) {
	m := newMachine(t)
	m.Load(countdown())
	m.Step()
	m.Step()
	expectPC(t, m, 2)
	expectGlobal(t, m, "n", 3)
	if m.Steps() != 2 {
		t.Errorf("steps incorrect. exp: 2, got: %d", m.Steps())
	}
}

func TestRuntimeError(t *testing.T) {
	m := newMachine(t)
	m.Load(&vm.Module{Routines: []*vm.Routine{{
		Name: "main",
		Code: []vm.Instruction{{Op: vm.OpPush, Arg: 1}, {Op: vm.OpPush, Arg: 0}, {Op: vm.OpDiv}},
	}}})

	err := m.Run()
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) || !errors.Is(err, vm.ErrDivideByZero) {
		t.Fatalf("expected divide by zero runtime error, got %v", err)
	}
	if rerr.Addr != 2 {
		t.Errorf("error address incorrect. exp: $0002, got: $%04X", rerr.Addr)
	}
}

func TestEval(t *testing.T) {
	m := newMachine(t)
	v, err := m.Eval([]vm.Instruction{
		{Op: vm.OpPush, Arg: 6},
		{Op: vm.OpPush, Arg: 7},
		{Op: vm.OpMul},
	})
	if err != nil || v != 42 {
		t.Errorf("eval incorrect. exp: 42, got: %d (%v)", v, err)
	}

	_, err = m.Eval([]vm.Instruction{{Op: vm.OpCall, Sym: "main"}})
	if !errors.Is(err, vm.ErrInvalidEvalCode) {
		t.Errorf("expected invalid eval code, got %v", err)
	}

	_, err = m.Eval(nil)
	if !errors.Is(err, vm.ErrStackUnderflow) {
		t.Errorf("expected underflow, got %v", err)
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	cfg := vm.DefaultConfig()
	cfg.Output = &out
	m, _ := vm.New(cfg)
	m.Load(&vm.Module{Routines: []*vm.Routine{{
		Name: "main",
		Code: []vm.Instruction{{Op: vm.OpPush, Arg: 7}, {Op: vm.OpPrint}, {Op: vm.OpRet}},
	}}})
	m.Run()
	if out.String() != "7\n" {
		t.Errorf("output incorrect. got: %q", out.String())
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := vm.New(vm.Config{})
	if !errors.Is(err, vm.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestShutdownOnce(t *testing.T) {
	m := newMachine(t)
	calls := 0
	m.OnShutdown(func(*vm.Machine) { calls++ })
	m.Shutdown()
	m.Shutdown()
	if calls != 1 {
		t.Errorf("shutdown hooks ran %d times", calls)
	}
	if err := m.Run(); !errors.Is(err, vm.ErrShutdown) {
		t.Errorf("expected shutdown error, got %v", err)
	}
}

func TestUniqueIDs(t *testing.T) {
	a, b := newMachine(t), newMachine(t)
	if a.ID() == b.ID() {
		t.Error("machine ids should differ")
	}
}
