package grexvm

import "fmt"

// call handles OpCall. The callee sits below argc arguments on the
// operand stack. A non-nil return means yield asked to stop.
func (v *VM) call(argc int, yield func(*Interrupt, error) bool) error {
	if kind := v.aborted(); kind != AbortNone {
		yield(&Interrupt{Kind: kind}, nil)
		return errStop
	}
	if v.SP < argc+1 {
		if !yield(nil, fmt.Errorf("stack underflow during call")) {
			return errStop
		}
		return nil
	}

	calleeIdx := v.SP - argc - 1
	callee := v.OperandStack[calleeIdx]

	switch fn := callee.(type) {
	case *Closure:
		args := make([]any, argc)
		copy(args, v.OperandStack[calleeIdx+1:v.SP])
		v.drop(argc + 1)
		return v.enter(fn, args, nil, yield)

	case NativeFunc:
		args := v.OperandStack[calleeIdx+1 : v.SP]
		res, err := fn.Call(v, args)
		if err != nil {
			if !yield(nil, err) {
				return errStop
			}
			res = nil
		}
		v.OperandStack[calleeIdx] = res
		for i := calleeIdx + 1; i < v.SP; i++ {
			v.OperandStack[i] = nil
		}
		v.SP = calleeIdx + 1
		return nil

	default:
		if !yield(nil, fmt.Errorf("'%s' object is not callable", typeName(callee))) {
			return errStop
		}
		v.drop(argc + 1)
		v.push(nil)
		return nil
	}
}

// callKw handles OpCallKw with materialized positional and keyword
// arguments. The callee is on top of the stack.
func (v *VM) callKw(args *List, kwargs *Dict, yield func(*Interrupt, error) bool) error {
	callee := v.pop()

	switch fn := callee.(type) {
	case *Closure:
		return v.enter(fn, args.Elements, kwargs, yield)

	case NativeFunc:
		if kwargs.Len() > 0 {
			if !yield(nil, fmt.Errorf("%s() takes no keyword arguments", fn.Name)) {
				return errStop
			}
			v.push(nil)
			return nil
		}
		res, err := fn.Call(v, args.Elements)
		if err != nil {
			if !yield(nil, err) {
				return errStop
			}
			res = nil
		}
		v.push(res)
		return nil

	default:
		if !yield(nil, fmt.Errorf("'%s' object is not callable", typeName(callee))) {
			return errStop
		}
		v.push(nil)
		return nil
	}
}

// enter binds arguments and switches execution into fn.
func (v *VM) enter(fn *Closure, args []any, kwargs *Dict, yield func(*Interrupt, error) bool) error {
	f := fn.Fun
	bound := make([]any, f.NumParams)
	set := make([]bool, f.NumParams)

	fixed := f.NumParams
	if f.Variadic {
		fixed--
	}

	if !f.Variadic && len(args) > fixed {
		if !yield(nil, fmt.Errorf("%s() takes %d positional arguments but %d were given", f.Name, fixed, len(args))) {
			return errStop
		}
		v.push(nil)
		return nil
	}

	for i, arg := range args {
		if i < fixed {
			bound[i] = arg
			set[i] = true
		}
	}
	if f.Variadic {
		var rest []any
		if len(args) > fixed {
			rest = append(rest, args[fixed:]...)
		}
		bound[fixed] = &List{Elements: rest}
		set[fixed] = true
	}

	if kwargs != nil {
		for _, k := range kwargs.Keys {
			name, ok := k.(string)
			if !ok {
				if !yield(nil, fmt.Errorf("keywords must be strings")) {
					return errStop
				}
				v.push(nil)
				return nil
			}
			idx := -1
			for i := range fixed {
				if f.ParamNames[i] == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				if !yield(nil, fmt.Errorf("%s() got an unexpected keyword argument '%s'", f.Name, name)) {
					return errStop
				}
				v.push(nil)
				return nil
			}
			if set[idx] {
				if !yield(nil, fmt.Errorf("%s() got multiple values for argument '%s'", f.Name, name)) {
					return errStop
				}
				v.push(nil)
				return nil
			}
			bound[idx] = kwargs.Values[k]
			set[idx] = true
		}
	}

	// defaults fill the trailing fixed parameters
	firstDefault := fixed - f.NumDefaults
	for i := range fixed {
		if !set[i] {
			if i >= firstDefault {
				bound[i] = fn.Defaults[i-firstDefault]
				set[i] = true
			} else {
				if !yield(nil, fmt.Errorf("%s() missing required argument '%s'", f.Name, f.ParamNames[i])) {
					return errStop
				}
				v.push(nil)
				return nil
			}
		}
	}

	newEnv := fn.Env.NewChild()
	for i := range f.NumParams {
		v.account(bindingCost)
		newEnv.Def(f.ParamNames[i], bound[i])
	}

	v.CallStack = append(v.CallStack, Frame{
		Fun:      v.CurrentFun,
		ReturnIP: v.IP,
		Env:      v.Scope,
		BaseSP:   v.SP,
		BP:       v.BP,
	})
	v.BP = v.SP
	v.CurrentFun = f
	v.IP = 0
	v.Scope = newEnv
	return nil
}

// errStop is a sentinel telling Run to unwind after yield declined.
var errStop = fmt.Errorf("stop")
