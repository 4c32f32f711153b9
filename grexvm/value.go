package grexvm

import "fmt"

type List struct {
	Elements  []any
	Immutable bool
}

// Dict keeps insertion order. Keys must be comparable scalars.
type Dict struct {
	Keys   []any
	Values map[any]any
}

func NewDict() *Dict {
	return &Dict{
		Values: make(map[any]any),
	}
}

func (d *Dict) Get(key any) (any, bool) {
	v, ok := d.Values[key]
	return v, ok
}

func (d *Dict) Set(key any, val any) {
	if _, ok := d.Values[key]; !ok {
		d.Keys = append(d.Keys, key)
	}
	d.Values[key] = val
}

func (d *Dict) Delete(key any) bool {
	if _, ok := d.Values[key]; !ok {
		return false
	}
	delete(d.Values, key)
	for i, k := range d.Keys {
		if k == key {
			d.Keys = append(d.Keys[:i], d.Keys[i+1:]...)
			break
		}
	}
	return true
}

func (d *Dict) Len() int {
	return len(d.Keys)
}

type Range struct {
	Start int64
	Stop  int64
	Step  int64
}

func (r *Range) Len() int64 {
	if r.Step > 0 {
		if r.Start >= r.Stop {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	} else if r.Step < 0 {
		if r.Start <= r.Stop {
			return 0
		}
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

type NativeFunc struct {
	Name string
	Func func(vm *VM, args []any) (any, error)
}

func (n NativeFunc) Call(vm *VM, args []any) (any, error) {
	if n.Func == nil {
		return nil, fmt.Errorf("native function %s is missing", n.Name)
	}
	return n.Func(vm, args)
}

// HasAttrs is implemented by values exposing attributes and bound
// methods, like graph handles.
type HasAttrs interface {
	GetAttr(name string) (any, bool)
}

type HasSetAttr interface {
	SetAttr(name string, val any) error
}

func Truth(val any) bool {
	switch x := val.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case *List:
		return len(x.Elements) > 0
	case *Dict:
		return x.Len() > 0
	case *Range:
		return x.Len() > 0
	}
	return true
}

func ToInt64(val any) (int64, bool) {
	switch x := val.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func ToFloat64(val any) (float64, bool) {
	switch x := val.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

// Equal follows value semantics: numbers compare across int and float,
// lists and dicts compare element-wise.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.Keys {
			yv, ok := y.Get(k)
			if !ok || !Equal(x.Values[k], yv) {
				return false
			}
		}
		return true
	}
	if i1, ok1 := ToInt64(a); ok1 {
		if i2, ok2 := ToInt64(b); ok2 {
			_, aIsBool := a.(bool)
			_, bIsBool := b.(bool)
			if aIsBool != bIsBool {
				return false
			}
			return i1 == i2
		}
		if f2, ok2 := b.(float64); ok2 {
			return float64(i1) == f2
		}
		return false
	}
	if f1, ok1 := a.(float64); ok1 {
		if i2, ok2 := ToInt64(b); ok2 {
			return f1 == float64(i2)
		}
		if f2, ok2 := b.(float64); ok2 {
			return f1 == f2
		}
		return false
	}
	return a == b
}

// Hashable reports whether val can key a dict or an identity table.
func Hashable(val any) bool {
	switch val.(type) {
	case nil, bool, int64, float64, string:
		return true
	}
	return false
}
