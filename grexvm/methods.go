package grexvm

import (
	"fmt"
	"sort"
	"strings"
)

func getAttr(target any, name string) (any, bool) {
	if h, ok := target.(HasAttrs); ok {
		return h.GetAttr(name)
	}
	switch t := target.(type) {
	case *List:
		return listAttr(t, name)
	case *Dict:
		return dictAttr(t, name)
	case string:
		return stringAttr(t, name)
	}
	return nil, false
}

func listAttr(l *List, name string) (any, bool) {
	if l.Immutable {
		switch name {
		case "index", "count":
		default:
			return nil, false
		}
	}
	switch name {
	case "append":
		return NativeFunc{Name: "append", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("append expects 1 argument")
			}
			vm.account(slotCost)
			l.Elements = append(l.Elements, args[0])
			return nil, nil
		}}, true
	case "extend":
		return NativeFunc{Name: "extend", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("extend expects 1 argument")
			}
			elems, err := Elements(args[0])
			if err != nil {
				return nil, err
			}
			vm.account(int64(len(elems)) * slotCost)
			l.Elements = append(l.Elements, elems...)
			return nil, nil
		}}, true
	case "insert":
		return NativeFunc{Name: "insert", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("insert expects 2 arguments")
			}
			i, ok := ToInt64(args[0])
			if !ok {
				return nil, fmt.Errorf("insert index must be an integer")
			}
			idx := int(i)
			if idx < 0 {
				idx += len(l.Elements)
			}
			if idx < 0 {
				idx = 0
			}
			if idx > len(l.Elements) {
				idx = len(l.Elements)
			}
			vm.account(slotCost)
			l.Elements = append(l.Elements, nil)
			copy(l.Elements[idx+1:], l.Elements[idx:])
			l.Elements[idx] = args[1]
			return nil, nil
		}}, true
	case "pop":
		return NativeFunc{Name: "pop", Func: func(vm *VM, args []any) (any, error) {
			if len(l.Elements) == 0 {
				return nil, fmt.Errorf("pop from empty list")
			}
			idx := len(l.Elements) - 1
			if len(args) == 1 {
				i, err := normIndex(args[0], len(l.Elements))
				if err != nil {
					return nil, err
				}
				idx = i
			}
			val := l.Elements[idx]
			l.Elements = append(l.Elements[:idx], l.Elements[idx+1:]...)
			return val, nil
		}}, true
	case "remove":
		return NativeFunc{Name: "remove", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("remove expects 1 argument")
			}
			for i, e := range l.Elements {
				if Equal(e, args[0]) {
					l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
					return nil, nil
				}
			}
			return nil, fmt.Errorf("value not in list")
		}}, true
	case "index":
		return NativeFunc{Name: "index", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("index expects 1 argument")
			}
			for i, e := range l.Elements {
				if Equal(e, args[0]) {
					return int64(i), nil
				}
			}
			return nil, fmt.Errorf("value not in list")
		}}, true
	case "count":
		return NativeFunc{Name: "count", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("count expects 1 argument")
			}
			var n int64
			for _, e := range l.Elements {
				if Equal(e, args[0]) {
					n++
				}
			}
			return n, nil
		}}, true
	case "reverse":
		return NativeFunc{Name: "reverse", Func: func(vm *VM, args []any) (any, error) {
			for i, j := 0, len(l.Elements)-1; i < j; i, j = i+1, j-1 {
				l.Elements[i], l.Elements[j] = l.Elements[j], l.Elements[i]
			}
			return nil, nil
		}}, true
	case "sort":
		return NativeFunc{Name: "sort", Func: func(vm *VM, args []any) (any, error) {
			return nil, SortElements(l.Elements)
		}}, true
	}
	return nil, false
}

func dictAttr(d *Dict, name string) (any, bool) {
	switch name {
	case "get":
		return NativeFunc{Name: "get", Func: func(vm *VM, args []any) (any, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("get expects 1 or 2 arguments")
			}
			if v, ok := d.Get(args[0]); ok {
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, nil
		}}, true
	case "keys":
		return NativeFunc{Name: "keys", Func: func(vm *VM, args []any) (any, error) {
			out := make([]any, len(d.Keys))
			copy(out, d.Keys)
			vm.account(int64(len(out)) * slotCost)
			return &List{Elements: out}, nil
		}}, true
	case "values":
		return NativeFunc{Name: "values", Func: func(vm *VM, args []any) (any, error) {
			out := make([]any, 0, len(d.Keys))
			for _, k := range d.Keys {
				out = append(out, d.Values[k])
			}
			vm.account(int64(len(out)) * slotCost)
			return &List{Elements: out}, nil
		}}, true
	case "items":
		return NativeFunc{Name: "items", Func: func(vm *VM, args []any) (any, error) {
			out := make([]any, 0, len(d.Keys))
			for _, k := range d.Keys {
				out = append(out, &List{
					Elements:  []any{k, d.Values[k]},
					Immutable: true,
				})
			}
			vm.account(int64(len(out)) * 3 * slotCost)
			return &List{Elements: out}, nil
		}}, true
	case "pop":
		return NativeFunc{Name: "pop", Func: func(vm *VM, args []any) (any, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("pop expects 1 or 2 arguments")
			}
			if v, ok := d.Get(args[0]); ok {
				d.Delete(args[0])
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, fmt.Errorf("key not found: %v", args[0])
		}}, true
	case "update":
		return NativeFunc{Name: "update", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("update expects 1 argument")
			}
			other, ok := args[0].(*Dict)
			if !ok {
				return nil, fmt.Errorf("update expects a dict")
			}
			for _, k := range other.Keys {
				vm.account(mapCost)
				d.Set(k, other.Values[k])
			}
			return nil, nil
		}}, true
	}
	return nil, false
}

func stringAttr(s string, name string) (any, bool) {
	switch name {
	case "upper":
		return strFunc(name, func() string { return strings.ToUpper(s) }), true
	case "lower":
		return strFunc(name, func() string { return strings.ToLower(s) }), true
	case "strip":
		return strFunc(name, func() string { return strings.TrimSpace(s) }), true
	case "split":
		return NativeFunc{Name: "split", Func: func(vm *VM, args []any) (any, error) {
			var parts []string
			if len(args) == 0 {
				parts = strings.Fields(s)
			} else if sep, ok := args[0].(string); ok {
				parts = strings.Split(s, sep)
			} else {
				return nil, fmt.Errorf("split separator must be a string")
			}
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			vm.account(int64(len(out)) * slotCost)
			return &List{Elements: out}, nil
		}}, true
	case "join":
		return NativeFunc{Name: "join", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("join expects 1 argument")
			}
			elems, err := Elements(args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(elems))
			for i, e := range elems {
				str, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("join expects an iterable of strings, got %s", typeName(e))
				}
				parts[i] = str
			}
			res := strings.Join(parts, s)
			vm.account(int64(len(res)))
			return res, nil
		}}, true
	case "replace":
		return NativeFunc{Name: "replace", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("replace expects 2 arguments")
			}
			old, ok1 := args[0].(string)
			new_, ok2 := args[1].(string)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("replace arguments must be strings")
			}
			res := strings.ReplaceAll(s, old, new_)
			vm.account(int64(len(res)))
			return res, nil
		}}, true
	case "startswith":
		return NativeFunc{Name: "startswith", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("startswith expects 1 argument")
			}
			prefix, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("startswith argument must be a string")
			}
			return strings.HasPrefix(s, prefix), nil
		}}, true
	case "endswith":
		return NativeFunc{Name: "endswith", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("endswith expects 1 argument")
			}
			suffix, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("endswith argument must be a string")
			}
			return strings.HasSuffix(s, suffix), nil
		}}, true
	case "find":
		return NativeFunc{Name: "find", Func: func(vm *VM, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("find expects 1 argument")
			}
			sub, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("find argument must be a string")
			}
			return int64(strings.Index(s, sub)), nil
		}}, true
	}
	return nil, false
}

func strFunc(name string, f func() string) NativeFunc {
	return NativeFunc{Name: name, Func: func(vm *VM, args []any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s expects no arguments", name)
		}
		res := f()
		vm.account(int64(len(res)))
		return res, nil
	}}
}

func SortElements(elems []any) error {
	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		c, err := Compare(elems[i], elems[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	return sortErr
}
