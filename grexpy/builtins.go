package grexpy

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/reusee/grex/grexvm"
)

var Len = grexvm.NativeFunc{
	Name: "len",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len expects 1 argument")
		}
		switch v := args[0].(type) {
		case string:
			return int64(len([]rune(v))), nil
		case *grexvm.List:
			return int64(len(v.Elements)), nil
		case *grexvm.Dict:
			return int64(v.Len()), nil
		case *grexvm.Range:
			return v.Len(), nil
		default:
			return nil, fmt.Errorf("object of type %T has no len()", v)
		}
	},
}

var Range = grexvm.NativeFunc{
	Name: "range",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		var start, stop, step int64
		step = 1

		switch len(args) {
		case 1:
			s, ok := grexvm.ToInt64(args[0])
			if !ok {
				return nil, fmt.Errorf("range argument must be integer")
			}
			stop = s
		case 2:
			s1, ok1 := grexvm.ToInt64(args[0])
			s2, ok2 := grexvm.ToInt64(args[1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("range arguments must be integers")
			}
			start = s1
			stop = s2
		case 3:
			s1, ok1 := grexvm.ToInt64(args[0])
			s2, ok2 := grexvm.ToInt64(args[1])
			s3, ok3 := grexvm.ToInt64(args[2])
			if !ok1 || !ok2 || !ok3 {
				return nil, fmt.Errorf("range arguments must be integers")
			}
			start = s1
			stop = s2
			step = s3
		default:
			return nil, fmt.Errorf("range expects 1 to 3 arguments")
		}

		if step == 0 {
			return nil, fmt.Errorf("range step cannot be zero")
		}

		return &grexvm.Range{
			Start: start,
			Stop:  stop,
			Step:  step,
		}, nil
	},
}

var Print = grexvm.NativeFunc{
	Name: "print",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if vm.Stdout == nil {
			return nil, nil
		}
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = Str(arg)
		}
		fmt.Fprintln(vm.Stdout, strings.Join(parts, " "))
		return nil, nil
	},
}

var Abs = grexvm.NativeFunc{
	Name: "abs",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs expects 1 argument")
		}
		switch x := args[0].(type) {
		case int64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case float64:
			return math.Abs(x), nil
		}
		return nil, fmt.Errorf("bad operand type for abs(): %T", args[0])
	},
}

var Pow = grexvm.NativeFunc{
	Name: "pow",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow expects 2 arguments")
		}
		i1, ok1 := args[0].(int64)
		i2, ok2 := args[1].(int64)
		if ok1 && ok2 && i2 >= 0 {
			result := int64(1)
			base, exp := i1, i2
			for exp > 0 {
				if exp&1 == 1 {
					result *= base
				}
				base *= base
				exp >>= 1
			}
			return result, nil
		}
		f1, okf1 := grexvm.ToFloat64(args[0])
		f2, okf2 := grexvm.ToFloat64(args[1])
		if !okf1 || !okf2 {
			return nil, fmt.Errorf("unsupported argument types for pow: %T, %T", args[0], args[1])
		}
		return math.Pow(f1, f2), nil
	},
}

var Min = grexvm.NativeFunc{
	Name: "min",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		return minMax(args, -1)
	},
}

var Max = grexvm.NativeFunc{
	Name: "max",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		return minMax(args, 1)
	},
}

func minMax(args []any, wantCmp int) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected at least 1 argument")
	}
	var items []any
	if len(args) == 1 {
		var err error
		items, err = grexvm.Elements(args[0])
		if err != nil {
			return nil, err
		}
	} else {
		items = args
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("empty sequence")
	}

	val := items[0]
	for _, x := range items[1:] {
		cmp, err := grexvm.Compare(x, val)
		if err != nil {
			return nil, err
		}
		if cmp == wantCmp {
			val = x
		}
	}
	return val, nil
}

var Sum = grexvm.NativeFunc{
	Name: "sum",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sum expects 1 argument")
		}
		items, err := grexvm.Elements(args[0])
		if err != nil {
			return nil, err
		}
		var intSum int64
		var floatSum float64
		isFloat := false
		for _, x := range items {
			switch v := x.(type) {
			case int64:
				intSum += v
			case float64:
				isFloat = true
				floatSum += v
			default:
				return nil, fmt.Errorf("unsupported operand type for sum: %T", x)
			}
		}
		if isFloat {
			return floatSum + float64(intSum), nil
		}
		return intSum, nil
	},
}

var Sorted = grexvm.NativeFunc{
	Name: "sorted",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sorted expects 1 argument")
		}
		items, err := grexvm.Elements(args[0])
		if err != nil {
			return nil, err
		}
		out := &grexvm.List{Elements: items}
		if err := grexvm.SortElements(out.Elements); err != nil {
			return nil, err
		}
		return out, nil
	},
}

var StrFunc = grexvm.NativeFunc{
	Name: "str",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("str expects 1 argument")
		}
		return Str(args[0]), nil
	},
}

var Int = grexvm.NativeFunc{
	Name: "int",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("int expects 1 argument")
		}
		switch x := args[0].(type) {
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid literal for int(): %q", x)
			}
			return i, nil
		}
		return nil, fmt.Errorf("int() argument must be a number or string, not %T", args[0])
	},
}

var Float = grexvm.NativeFunc{
	Name: "float",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("float expects 1 argument")
		}
		switch x := args[0].(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case bool:
			if x {
				return float64(1), nil
			}
			return float64(0), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid literal for float(): %q", x)
			}
			return f, nil
		}
		return nil, fmt.Errorf("float() argument must be a number or string, not %T", args[0])
	},
}

var Bool = grexvm.NativeFunc{
	Name: "bool",
	Func: func(vm *grexvm.VM, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("bool expects 1 argument")
		}
		return grexvm.Truth(args[0]), nil
	},
}

// Input pops the next line from the run's input list. Exhaustion is a
// runtime error, matching interactive input on a closed stream.
func Input(inputs []string) grexvm.NativeFunc {
	idx := 0
	return grexvm.NativeFunc{
		Name: "input",
		Func: func(vm *grexvm.VM, args []any) (any, error) {
			if idx >= len(inputs) {
				return nil, fmt.Errorf("input exhausted: no line %d", idx+1)
			}
			line := inputs[idx]
			idx++
			return line, nil
		},
	}
}

// RandInt and RandFloat share a run-scoped deterministic source.
func RandFuncs(seed int64) (grexvm.NativeFunc, grexvm.NativeFunc) {
	rng := rand.New(rand.NewSource(seed))
	randInt := grexvm.NativeFunc{
		Name: "rand_int",
		Func: func(vm *grexvm.VM, args []any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("rand_int expects 2 arguments")
			}
			lo, ok1 := grexvm.ToInt64(args[0])
			hi, ok2 := grexvm.ToInt64(args[1])
			if !ok1 || !ok2 || hi < lo {
				return nil, fmt.Errorf("rand_int expects an integer range")
			}
			return lo + rng.Int63n(hi-lo+1), nil
		},
	}
	randFloat := grexvm.NativeFunc{
		Name: "rand_float",
		Func: func(vm *grexvm.VM, args []any) (any, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("rand_float expects no arguments")
			}
			return rng.Float64(), nil
		},
	}
	return randInt, randFloat
}

// Str renders a value the way the traced language prints it.
func Str(val any) string {
	switch x := val.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case *grexvm.List:
		var sb strings.Builder
		openBr, closeBr := "[", "]"
		if x.Immutable {
			openBr, closeBr = "(", ")"
		}
		sb.WriteString(openBr)
		for i, e := range x.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(reprStr(e))
		}
		sb.WriteString(closeBr)
		return sb.String()
	case *grexvm.Dict:
		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range x.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(reprStr(k))
			sb.WriteString(": ")
			sb.WriteString(reprStr(x.Values[k]))
		}
		sb.WriteString("}")
		return sb.String()
	case *grexvm.Range:
		return fmt.Sprintf("range(%d, %d, %d)", x.Start, x.Stop, x.Step)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", val)
}

// reprStr quotes strings inside containers.
func reprStr(val any) string {
	if s, ok := val.(string); ok {
		return "'" + s + "'"
	}
	return Str(val)
}
