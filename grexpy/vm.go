package grexpy

import (
	"io"

	"github.com/reusee/grex/grexvm"
)

// Options configures the per-run language environment.
type Options struct {
	Stdout io.Writer
	Inputs []string
	Seed   int64

	// Globals are extra injected bindings, like the graph handle.
	Globals map[string]any
}

// NewVM compiles source and returns a VM with the builtin environment
// installed, plus the trace directives found in the source.
func NewVM(name string, source string, opts Options) (*grexvm.VM, map[int]*Directive, error) {
	fn, directives, err := Compile(name, source)
	if err != nil {
		return nil, nil, err
	}

	vm := grexvm.NewVM(fn)
	vm.Stdout = opts.Stdout

	vm.Def("len", Len)
	vm.Def("range", Range)
	vm.Def("print", Print)
	vm.Def("abs", Abs)
	vm.Def("pow", Pow)
	vm.Def("min", Min)
	vm.Def("max", Max)
	vm.Def("sum", Sum)
	vm.Def("sorted", Sorted)
	vm.Def("str", StrFunc)
	vm.Def("int", Int)
	vm.Def("float", Float)
	vm.Def("bool", Bool)
	vm.Def("input", Input(opts.Inputs))
	randInt, randFloat := RandFuncs(opts.Seed)
	vm.Def("rand_int", randInt)
	vm.Def("rand_float", randFloat)

	for name, val := range opts.Globals {
		vm.Def(name, val)
	}

	return vm, directives, nil
}
