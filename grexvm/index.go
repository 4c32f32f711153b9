package grexvm

import (
	"fmt"
	"strings"
)

// normIndex resolves a possibly negative index against length n.
func normIndex(key any, n int) (int, error) {
	i, ok := ToInt64(key)
	if !ok {
		return 0, fmt.Errorf("indices must be integers, not %s", typeName(key))
	}
	idx := int(i)
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("index out of range: %d", i)
	}
	return idx, nil
}

func getIndex(target, key any) (any, error) {
	switch t := target.(type) {
	case *List:
		idx, err := normIndex(key, len(t.Elements))
		if err != nil {
			return nil, err
		}
		return t.Elements[idx], nil

	case *Dict:
		if !Hashable(key) {
			return nil, fmt.Errorf("unhashable type: %s", typeName(key))
		}
		v, ok := t.Get(key)
		if !ok {
			return nil, fmt.Errorf("key not found: %v", key)
		}
		return v, nil

	case string:
		runes := []rune(t)
		idx, err := normIndex(key, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[idx]), nil

	case nil:
		return nil, fmt.Errorf("indexing None")
	}
	return nil, fmt.Errorf("type %s is not indexable", typeName(target))
}

func (v *VM) setIndex(target, key, val any) error {
	switch t := target.(type) {
	case *List:
		if t.Immutable {
			return fmt.Errorf("tuple does not support item assignment")
		}
		idx, err := normIndex(key, len(t.Elements))
		if err != nil {
			return err
		}
		t.Elements[idx] = val
		return nil

	case *Dict:
		if !Hashable(key) {
			return fmt.Errorf("unhashable type: %s", typeName(key))
		}
		v.account(mapCost)
		t.Set(key, val)
		return nil

	case nil:
		return fmt.Errorf("assignment to None")
	}
	return fmt.Errorf("type %s does not support item assignment", typeName(target))
}

// sliceBounds resolves lo/hi/step with Python defaults and clamping.
func sliceBounds(lo, hi, step any, n int) (start, stop, stride int, err error) {
	stride = 1
	if step != nil {
		s, ok := ToInt64(step)
		if !ok || s == 0 {
			return 0, 0, 0, fmt.Errorf("slice step must be a non-zero integer")
		}
		stride = int(s)
	}

	clamp := func(val any, def int) (int, error) {
		if val == nil {
			return def, nil
		}
		i, ok := ToInt64(val)
		if !ok {
			return 0, fmt.Errorf("slice indices must be integers")
		}
		idx := int(i)
		if idx < 0 {
			idx += n
		}
		if stride > 0 {
			if idx < 0 {
				idx = 0
			}
			if idx > n {
				idx = n
			}
		} else {
			if idx < -1 {
				idx = -1
			}
			if idx > n-1 {
				idx = n - 1
			}
		}
		return idx, nil
	}

	if stride > 0 {
		start, err = clamp(lo, 0)
		if err != nil {
			return
		}
		stop, err = clamp(hi, n)
	} else {
		start, err = clamp(lo, n-1)
		if err != nil {
			return
		}
		stop, err = clamp(hi, -1)
	}
	return
}

func (v *VM) getSlice(target, lo, hi, step any) (any, error) {
	switch t := target.(type) {
	case *List:
		start, stop, stride, err := sliceBounds(lo, hi, step, len(t.Elements))
		if err != nil {
			return nil, err
		}
		var out []any
		if stride > 0 {
			for i := start; i < stop; i += stride {
				out = append(out, t.Elements[i])
			}
		} else {
			for i := start; i > stop; i += stride {
				out = append(out, t.Elements[i])
			}
		}
		v.account(int64(len(out)) * slotCost)
		return &List{Elements: out, Immutable: t.Immutable}, nil

	case string:
		runes := []rune(t)
		start, stop, stride, err := sliceBounds(lo, hi, step, len(runes))
		if err != nil {
			return nil, err
		}
		var out []rune
		if stride > 0 {
			for i := start; i < stop; i += stride {
				out = append(out, runes[i])
			}
		} else {
			for i := start; i > stop; i += stride {
				out = append(out, runes[i])
			}
		}
		v.account(int64(len(out)))
		return string(out), nil
	}
	return nil, fmt.Errorf("type %s is not sliceable", typeName(target))
}

func setSlice(target, lo, hi, step, val any) error {
	l, ok := target.(*List)
	if !ok {
		return fmt.Errorf("type %s does not support slice assignment", typeName(target))
	}
	if l.Immutable {
		return fmt.Errorf("tuple does not support slice assignment")
	}
	if step != nil {
		if s, ok := ToInt64(step); !ok || s != 1 {
			return fmt.Errorf("extended slice assignment is not supported")
		}
	}
	start, stop, _, err := sliceBounds(lo, hi, nil, len(l.Elements))
	if err != nil {
		return err
	}
	if stop < start {
		stop = start
	}
	src, err := Elements(val)
	if err != nil {
		return err
	}
	out := make([]any, 0, len(l.Elements)-(stop-start)+len(src))
	out = append(out, l.Elements[:start]...)
	out = append(out, src...)
	out = append(out, l.Elements[stop:]...)
	l.Elements = out
	return nil
}

func contains(container, needle any) (bool, error) {
	switch c := container.(type) {
	case *List:
		for _, e := range c.Elements {
			if Equal(e, needle) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		if !Hashable(needle) {
			return false, fmt.Errorf("unhashable type: %s", typeName(needle))
		}
		_, ok := c.Get(needle)
		return ok, nil
	case string:
		s, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string operand, not %s", typeName(needle))
		}
		return strings.Contains(c, s), nil
	case *Range:
		i, ok := ToInt64(needle)
		if !ok {
			return false, nil
		}
		if c.Step > 0 {
			return i >= c.Start && i < c.Stop && (i-c.Start)%c.Step == 0, nil
		}
		return i <= c.Start && i > c.Stop && (c.Start-i)%(-c.Step) == 0, nil
	}
	return false, fmt.Errorf("argument of type %s is not a container", typeName(container))
}
