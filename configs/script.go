package configs

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/reusee/dscope"
	"github.com/reusee/grex/grexpy"
	"github.com/reusee/grex/grexvm"
)

// ScriptGlobals builds one constructor per Configurable type in the
// scope, so a settings script can write ServerPort(7591). Constructors
// convert the interpreter scalar into the typed config value.
func ScriptGlobals(scope dscope.Scope) map[string]any {
	globals := make(map[string]any)
	for t := range scope.AllTypes() {
		if !t.Implements(configurableType) {
			continue
		}
		globals[t.Name()] = constructor(t)
	}
	return globals
}

func constructor(t reflect.Type) grexvm.NativeFunc {
	return grexvm.NativeFunc{
		Name: t.Name(),
		Func: func(vm *grexvm.VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument, got %d", t.Name(), len(args))
			}
			v := reflect.ValueOf(args[0])
			if !v.IsValid() || !v.Type().ConvertibleTo(t) {
				return nil, fmt.Errorf("cannot use %T as %s", args[0], t.Name())
			}
			return v.Convert(t).Interface(), nil
		},
	}
}

// ScriptFork collects the Configurable values bound by a settings
// script and forks the scope with them.
func ScriptFork(scope dscope.Scope, env *grexvm.Env) (ret dscope.Scope, err error) {
	var defs []any
	seen := make(map[reflect.Type]bool)
	for e := env; e != nil; e = e.Parent {
		// reverse order, the latest binding in an environment wins
		for i := len(e.Vars) - 1; i >= 0; i-- {
			v := e.Vars[i]
			if v.Val == nil {
				continue
			}
			t := reflect.TypeOf(v.Val)
			if !t.Implements(configurableType) || seen[t] {
				continue
			}
			p := reflect.New(t)
			p.Elem().Set(reflect.ValueOf(v.Val))
			defs = append(defs, p.Interface())
			seen[t] = true
		}
	}
	return scope.Fork(defs...), nil
}

// FromScripts runs each settings script and folds its Configurable
// definitions into the scope. Later files win.
func FromScripts(scope dscope.Scope, paths []string) (dscope.Scope, error) {
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return scope, err
		}
		vm, _, err := grexpy.NewVM(path, string(content), grexpy.Options{
			Stdout:  io.Discard,
			Globals: ScriptGlobals(scope),
		})
		if err != nil {
			return scope, err
		}
		var runErr error
		vm.Run(func(interrupt *grexvm.Interrupt, err error) bool {
			if err != nil {
				runErr = err
				return false
			}
			return true
		})
		if runErr != nil {
			return scope, fmt.Errorf("settings script %s: %w", path, runErr)
		}
		scope, err = ScriptFork(scope, vm.Scope)
		if err != nil {
			return scope, err
		}
	}
	return scope, nil
}
