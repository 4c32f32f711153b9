package grexvm

import (
	"fmt"
	"math"
	"strings"
)

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		return "list"
	case *Dict:
		return "dict"
	case *Range:
		return "range"
	case *Closure, NativeFunc:
		return "function"
	}
	return fmt.Sprintf("%T", val)
}

func (v *VM) add(a, b any) (any, error) {
	if s1, ok := a.(string); ok {
		if s2, ok := b.(string); ok {
			v.account(int64(len(s1) + len(s2)))
			return s1 + s2, nil
		}
	}
	if l1, ok := a.(*List); ok {
		if l2, ok := b.(*List); ok && l1.Immutable == l2.Immutable {
			out := make([]any, 0, len(l1.Elements)+len(l2.Elements))
			out = append(out, l1.Elements...)
			out = append(out, l2.Elements...)
			v.account(int64(len(out)) * slotCost)
			return &List{Elements: out, Immutable: l1.Immutable}, nil
		}
	}
	return numBinOp(a, b, "+",
		func(x, y int64) (int64, error) { return x + y, nil },
		func(x, y float64) (float64, error) { return x + y, nil },
	)
}

func (v *VM) mul(a, b any) (any, error) {
	if s, ok := a.(string); ok {
		if n, ok := ToInt64(b); ok {
			if n < 0 {
				n = 0
			}
			v.account(int64(len(s)) * n)
			return strings.Repeat(s, int(n)), nil
		}
	}
	if l, ok := a.(*List); ok {
		if n, ok := ToInt64(b); ok {
			if n < 0 {
				n = 0
			}
			out := make([]any, 0, int64(len(l.Elements))*n)
			for range n {
				out = append(out, l.Elements...)
			}
			v.account(int64(len(out)) * slotCost)
			return &List{Elements: out, Immutable: l.Immutable}, nil
		}
	}
	return numBinOp(a, b, "*",
		func(x, y int64) (int64, error) { return x * y, nil },
		func(x, y float64) (float64, error) { return x * y, nil },
	)
}

func sub(a, b any) (any, error) {
	return numBinOp(a, b, "-",
		func(x, y int64) (int64, error) { return x - y, nil },
		func(x, y float64) (float64, error) { return x - y, nil },
	)
}

// div always yields a float, like Python 3 true division.
func div(a, b any) (any, error) {
	f1, ok1 := ToFloat64(a)
	f2, ok2 := ToFloat64(b)
	if !ok1 || !ok2 {
		return nil, binOpTypeError("/", a, b)
	}
	if f2 == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return f1 / f2, nil
}

func floorDiv(a, b any) (any, error) {
	return numBinOp(a, b, "//",
		func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return q, nil
		},
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return math.Floor(x / y), nil
		},
	)
}

func mod(a, b any) (any, error) {
	return numBinOp(a, b, "%",
		func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			r := x % y
			if r != 0 && ((r < 0) != (y < 0)) {
				r += y
			}
			return r, nil
		},
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			r := math.Mod(x, y)
			if r != 0 && ((r < 0) != (y < 0)) {
				r += y
			}
			return r, nil
		},
	)
}

func pow(a, b any) (any, error) {
	i1, aInt := a.(int64)
	i2, bInt := b.(int64)
	if aInt && bInt && i2 >= 0 {
		base, exp := i1, i2
		result := int64(1)
		for exp > 0 {
			if exp&1 == 1 {
				result *= base
			}
			base *= base
			exp >>= 1
		}
		return result, nil
	}
	f1, ok1 := ToFloat64(a)
	f2, ok2 := ToFloat64(b)
	if !ok1 || !ok2 {
		return nil, binOpTypeError("**", a, b)
	}
	return math.Pow(f1, f2), nil
}

func neg(a any) (any, error) {
	switch x := a.(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, fmt.Errorf("bad operand type for unary -: %s", typeName(a))
}

func numBinOp(
	a, b any,
	opName string,
	intOp func(x, y int64) (int64, error),
	floatOp func(x, y float64) (float64, error),
) (any, error) {
	i1, aInt := a.(int64)
	i2, bInt := b.(int64)
	if aInt && bInt {
		return intOp(i1, i2)
	}
	_, aFloat := a.(float64)
	_, bFloat := b.(float64)
	if (aInt || aFloat) && (bInt || bFloat) {
		f1, _ := ToFloat64(a)
		f2, _ := ToFloat64(b)
		return floatOp(f1, f2)
	}
	return nil, binOpTypeError(opName, a, b)
}

func binOpTypeError(op string, a, b any) error {
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, typeName(a), typeName(b))
}

// Compare returns -1, 0 or 1 for ordered values.
func Compare(a, b any) (int, error) {
	if f1, ok1 := ToFloat64(a); ok1 {
		if f2, ok2 := ToFloat64(b); ok2 {
			switch {
			case f1 < f2:
				return -1, nil
			case f1 > f2:
				return 1, nil
			}
			return 0, nil
		}
	}
	if s1, ok1 := a.(string); ok1 {
		if s2, ok2 := b.(string); ok2 {
			return strings.Compare(s1, s2), nil
		}
	}
	if l1, ok1 := a.(*List); ok1 {
		if l2, ok2 := b.(*List); ok2 {
			for i := range l1.Elements {
				if i >= len(l2.Elements) {
					return 1, nil
				}
				c, err := Compare(l1.Elements[i], l2.Elements[i])
				if err != nil {
					return 0, err
				}
				if c != 0 {
					return c, nil
				}
			}
			if len(l1.Elements) < len(l2.Elements) {
				return -1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("unsupported comparison: %s vs %s", typeName(a), typeName(b))
}
