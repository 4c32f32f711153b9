package grexvm

import (
	"fmt"
	"strings"
	"testing"
)

func runVM(t *testing.T, vm *VM) {
	t.Helper()
	for _, err := range vm.Run {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestVM_NativeFunc(t *testing.T) {
	main := &Function{
		Name: "main",
		Constants: []any{
			"add",
			int64(1),
			int64(2),
			"res",
		},
		Code: []OpCode{
			OpLoadVar.With(0),
			OpLoadConst.With(1),
			OpLoadConst.With(2),
			OpCall.With(2),
			OpDefVar.With(3),
		},
	}

	vm := NewVM(main)
	vm.Def("add", NativeFunc{
		Name: "add",
		Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("bad args")
			}
			return args[0].(int64) + args[1].(int64), nil
		},
	})
	runVM(t, vm)

	res, ok := vm.Get("res")
	if !ok {
		t.Fatal("res not found")
	}
	if res.(int64) != 3 {
		t.Fatalf("expected 3, got %v", res)
	}
}

func TestVM_Closure(t *testing.T) {
	inner := &Function{
		Name:       "inner",
		NumParams:  1,
		ParamNames: []string{"x"},
		Constants: []any{
			"x",
			int64(1),
		},
		Code: []OpCode{
			OpLoadVar.With(0),
			OpLoadConst.With(1),
			OpAdd,
			OpReturn,
		},
	}
	main := &Function{
		Name: "main",
		Constants: []any{
			inner,
			int64(41),
			"res",
		},
		Code: []OpCode{
			OpMakeClosure.With(0),
			OpLoadConst.With(1),
			OpCall.With(1),
			OpDefVar.With(2),
		},
	}

	vm := NewVM(main)
	runVM(t, vm)

	res, _ := vm.Get("res")
	if res.(int64) != 42 {
		t.Fatalf("got %v", res)
	}
}

func TestVM_Defaults(t *testing.T) {
	fn := &Function{
		Name:        "f",
		NumParams:   2,
		NumDefaults: 1,
		ParamNames:  []string{"a", "b"},
		Constants: []any{
			"a",
			"b",
		},
		Code: []OpCode{
			OpLoadVar.With(0),
			OpLoadVar.With(1),
			OpAdd,
			OpReturn,
		},
	}
	main := &Function{
		Name: "main",
		Constants: []any{
			fn,
			int64(10), // default for b
			int64(1),
			"res",
		},
		Code: []OpCode{
			OpLoadConst.With(1),
			OpMakeClosure.With(0),
			OpLoadConst.With(2),
			OpCall.With(1),
			OpDefVar.With(3),
		},
	}

	vm := NewVM(main)
	runVM(t, vm)

	res, _ := vm.Get("res")
	if res.(int64) != 11 {
		t.Fatalf("got %v", res)
	}
}

func TestVM_AbortOnBackwardJump(t *testing.T) {
	// infinite loop: jump back to self
	main := &Function{
		Name: "main",
		Code: []OpCode{
			OpJump.With(-1),
		},
	}
	vm := NewVM(main)
	vm.Abort(AbortTimeout)

	var got *Interrupt
	vm.Run(func(interrupt *Interrupt, err error) bool {
		if err != nil {
			t.Fatal(err)
		}
		got = interrupt
		return false
	})
	if got == nil || got.Kind != AbortTimeout {
		t.Fatalf("got %+v", got)
	}
}

func TestVM_FirstAbortWins(t *testing.T) {
	vm := NewVM(&Function{Name: "main"})
	vm.Abort(AbortMemory)
	vm.Abort(AbortTimeout)
	if vm.aborted() != AbortMemory {
		t.Fatal("first abort request must win")
	}
}

func TestVM_MemoryAccounting(t *testing.T) {
	// append to a list until the ceiling trips
	main := &Function{
		Name: "main",
		Constants: []any{
			"l",
			int64(0),
			"append",
		},
		Code: []OpCode{
			OpMakeList.With(0),
			OpDefVar.With(0),
			// loop: l.append(0)
			OpLoadVar.With(0),
			OpLoadConst.With(2),
			OpGetAttr,
			OpLoadConst.With(1),
			OpCall.With(1),
			OpPop,
			OpJump.With(-7),
		},
	}
	vm := NewVM(main)
	vm.MemLimit = 4096

	var got *Interrupt
	vm.Run(func(interrupt *Interrupt, err error) bool {
		if err != nil {
			t.Fatal(err)
		}
		got = interrupt
		return false
	})
	if got == nil || got.Kind != AbortMemory {
		t.Fatalf("got %+v", got)
	}
	if vm.Allocated() < 4096 {
		t.Fatalf("allocated %d", vm.Allocated())
	}
}

type eventHook struct {
	events []string
}

var _ Hook = new(eventHook)

func (h *eventHook) OnEnter(fn *Function, scope *Env) {
	h.events = append(h.events, fmt.Sprintf("enter %s", fn.Name))
}

func (h *eventHook) OnReach(line int) {
	h.events = append(h.events, fmt.Sprintf("reach %d", line))
}

func (h *eventHook) OnDone(line int, scope *Env) {
	h.events = append(h.events, fmt.Sprintf("done %d", line))
}

func (h *eventHook) OnObserve(val any) {
	h.events = append(h.events, fmt.Sprintf("observe %v", val))
}

func (h *eventHook) OnReturn(fn *Function, line int, val any) {
	h.events = append(h.events, fmt.Sprintf("return %s %v", fn.Name, val))
}

func TestVM_TracingOps(t *testing.T) {
	fn := &Function{
		Name:       "f",
		NumParams:  1,
		ParamNames: []string{"x"},
		Traced:     true,
		Constants: []any{
			"x",
			int64(2),
		},
		Lines: []int32{2, 3, 3, 3, 3, 3, 4},
		Code: []OpCode{
			OpFunEnter,
			OpStmtReach.With(3),
			OpLoadVar.With(0),
			OpLoadConst.With(1),
			OpMul,
			OpObserve,
			OpReturn,
		},
	}
	main := &Function{
		Name: "main",
		Constants: []any{
			fn,
			int64(21),
		},
		Code: []OpCode{
			OpMakeClosure.With(0),
			OpLoadConst.With(1),
			OpCall.With(1),
			OpPop,
		},
	}

	hook := new(eventHook)
	vm := NewVM(main)
	vm.Hook = hook
	runVM(t, vm)

	want := []string{
		"enter f",
		"reach 3",
		"observe 42",
		"return f 42",
	}
	if got := strings.Join(hook.events, "; "); got != strings.Join(want, "; ") {
		t.Fatalf("got %q", got)
	}
}

func TestVM_HookOffInUntracedFunctions(t *testing.T) {
	fn := &Function{
		Name:       "helper",
		NumParams:  1,
		ParamNames: []string{"x"},
		Constants: []any{
			"x",
		},
		Code: []OpCode{
			OpLoadVar.With(0),
			OpReturn,
		},
	}
	main := &Function{
		Name: "main",
		Constants: []any{
			fn,
			int64(1),
		},
		Code: []OpCode{
			OpMakeClosure.With(0),
			OpLoadConst.With(1),
			OpCall.With(1),
			OpPop,
		},
	}

	hook := new(eventHook)
	vm := NewVM(main)
	vm.Hook = hook
	runVM(t, vm)

	if len(hook.events) != 0 {
		t.Fatalf("got %v", hook.events)
	}
}

func TestEqual(t *testing.T) {
	if !Equal(int64(1), float64(1)) {
		t.Fatal()
	}
	if Equal(true, int64(1)) {
		t.Fatal()
	}
	if !Equal(
		&List{Elements: []any{int64(1), "a"}},
		&List{Elements: []any{int64(1), "a"}},
	) {
		t.Fatal()
	}
	if Equal(
		&List{Elements: []any{int64(1)}},
		&List{Elements: []any{int64(2)}},
	) {
		t.Fatal()
	}
}

func TestCompare(t *testing.T) {
	n, err := Compare(int64(1), float64(1.5))
	if err != nil {
		t.Fatal(err)
	}
	if n != -1 {
		t.Fatalf("got %d", n)
	}
	n, err = Compare("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %d", n)
	}
	if _, err := Compare(int64(1), "a"); err == nil {
		t.Fatal("expected error")
	}
}
