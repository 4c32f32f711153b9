package grexvm

import "fmt"

type iterator interface {
	next() (any, bool)
}

type listIterator struct {
	list *List
	idx  int
}

func (it *listIterator) next() (any, bool) {
	if it.idx >= len(it.list.Elements) {
		return nil, false
	}
	v := it.list.Elements[it.idx]
	it.idx++
	return v, true
}

type rangeIterator struct {
	rng  *Range
	curr int64
}

func (it *rangeIterator) next() (any, bool) {
	if it.rng.Step > 0 {
		if it.curr >= it.rng.Stop {
			return nil, false
		}
	} else {
		if it.curr <= it.rng.Stop {
			return nil, false
		}
	}
	v := it.curr
	it.curr += it.rng.Step
	return v, true
}

// dictIterator yields keys in insertion order. Keys are snapshotted so
// mutation during iteration cannot skip or repeat.
type dictIterator struct {
	keys []any
	idx  int
}

func (it *dictIterator) next() (any, bool) {
	if it.idx >= len(it.keys) {
		return nil, false
	}
	k := it.keys[it.idx]
	it.idx++
	return k, true
}

type stringIterator struct {
	runes []rune
	idx   int
}

func (it *stringIterator) next() (any, bool) {
	if it.idx >= len(it.runes) {
		return nil, false
	}
	s := string(it.runes[it.idx])
	it.idx++
	return s, true
}

func getIter(val any) (iterator, error) {
	switch x := val.(type) {
	case *List:
		return &listIterator{list: x}, nil
	case *Range:
		return &rangeIterator{rng: x, curr: x.Start}, nil
	case *Dict:
		keys := make([]any, len(x.Keys))
		copy(keys, x.Keys)
		return &dictIterator{keys: keys}, nil
	case string:
		return &stringIterator{runes: []rune(x)}, nil
	}
	return nil, fmt.Errorf("type %s is not iterable", typeName(val))
}

// Elements materializes an iterable into a slice, for builtins.
func Elements(val any) ([]any, error) {
	it, err := getIter(val)
	if err != nil {
		return nil, err
	}
	var out []any
	for {
		v, ok := it.next()
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
