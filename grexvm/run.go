package grexvm

import "fmt"

// Run drives the interpreter. Errors are yielded to the caller; yield
// returning false stops execution. An honored abort request is yielded
// as a non-nil Interrupt, then Run returns.
func (v *VM) Run(yield func(*Interrupt, error) bool) {
	for {
		if v.IP < 0 || v.IP >= len(v.CurrentFun.Code) {
			return
		}

		inst := v.CurrentFun.Code[v.IP]
		v.IP++
		op := inst & 0xff

		switch op {
		case OpLoadConst:
			idx := int(inst >> 8)
			if v.SP >= len(v.OperandStack) {
				v.growOperandStack()
			}
			v.OperandStack[v.SP] = v.CurrentFun.Constants[idx]
			v.SP++

		case OpLoadVar:
			idx := int(inst >> 8)
			name := v.CurrentFun.Constants[idx].(string)
			val, ok := v.Scope.Get(name)
			if !ok {
				if !yield(nil, fmt.Errorf("name '%s' is not defined", name)) {
					return
				}
				v.push(nil)
				continue
			}
			v.push(val)

		case OpDefVar:
			idx := int(inst >> 8)
			name := v.CurrentFun.Constants[idx].(string)
			v.account(bindingCost)
			v.Scope.Def(name, v.pop())

		case OpSetVar:
			idx := int(inst >> 8)
			name := v.CurrentFun.Constants[idx].(string)
			val := v.pop()
			if !v.Scope.Set(name, val) {
				if !yield(nil, fmt.Errorf("name '%s' is not defined", name)) {
					return
				}
			}

		case OpPop:
			if v.SP > 0 {
				v.SP--
				v.OperandStack[v.SP] = nil
			}

		case OpJump:
			offset := int(int32(inst) >> 8)
			if offset < 0 {
				if kind := v.aborted(); kind != AbortNone {
					yield(&Interrupt{Kind: kind}, nil)
					return
				}
			}
			v.IP += offset

		case OpJumpFalse:
			offset := int(int32(inst) >> 8)
			if !Truth(v.pop()) {
				v.IP += offset
			}

		case OpMakeClosure:
			idx := int(inst >> 8)
			fun := v.CurrentFun.Constants[idx].(*Function)
			var defaults []any
			if fun.NumDefaults > 0 {
				defaults = make([]any, fun.NumDefaults)
				for i := fun.NumDefaults - 1; i >= 0; i-- {
					defaults[i] = v.pop()
				}
			}
			v.account(closureCost)
			v.push(&Closure{
				Fun:      fun,
				Env:      v.Scope,
				Defaults: defaults,
			})

		case OpCall:
			argc := int(inst >> 8)
			if err := v.call(argc, yield); err != nil {
				return
			}

		case OpCallKw:
			kwVal := v.pop()
			argsVal := v.pop()
			kwargs, ok := kwVal.(*Dict)
			if !ok {
				if !yield(nil, fmt.Errorf("argument after ** must be a mapping")) {
					return
				}
				v.pop()
				v.push(nil)
				continue
			}
			args, ok := argsVal.(*List)
			if !ok {
				if !yield(nil, fmt.Errorf("argument after * must be iterable")) {
					return
				}
				v.pop()
				v.push(nil)
				continue
			}
			if err := v.callKw(args, kwargs, yield); err != nil {
				return
			}

		case OpReturn:
			retVal := v.pop()
			if v.CurrentFun.Traced && v.Hook != nil {
				v.Hook.OnReturn(v.CurrentFun, v.Line(), retVal)
			}
			n := len(v.CallStack)
			if n == 0 {
				if v.BP > 0 {
					v.drop(v.SP - (v.BP - 1))
				} else {
					v.drop(v.SP)
				}
				v.push(retVal)
				return
			}
			frame := v.CallStack[n-1]
			v.CallStack = v.CallStack[:n-1]
			v.CurrentFun = frame.Fun
			v.IP = frame.ReturnIP
			v.Scope = frame.Env
			v.BP = frame.BP
			v.drop(v.SP - frame.BaseSP)
			v.push(retVal)

		case OpEnterScope:
			v.Scope = v.Scope.NewChild()

		case OpLeaveScope:
			if v.Scope.Parent != nil {
				v.Scope = v.Scope.Parent
			}

		case OpMakeList, OpMakeTuple:
			n := int(inst >> 8)
			if v.SP < n {
				if !yield(nil, fmt.Errorf("stack underflow during list creation")) {
					return
				}
				continue
			}
			elems := make([]any, n)
			start := v.SP - n
			copy(elems, v.OperandStack[start:v.SP])
			v.drop(n)
			v.account(int64(n) * slotCost)
			v.push(&List{
				Elements:  elems,
				Immutable: op == OpMakeTuple,
			})

		case OpMakeMap:
			n := int(inst >> 8)
			if v.SP < n*2 {
				if !yield(nil, fmt.Errorf("stack underflow during dict creation")) {
					return
				}
				continue
			}
			d := NewDict()
			start := v.SP - n*2
			for i := range n {
				k := v.OperandStack[start+i*2]
				if !Hashable(k) {
					if !yield(nil, fmt.Errorf("unhashable type: %s", typeName(k))) {
						return
					}
					continue
				}
				d.Set(k, v.OperandStack[start+i*2+1])
			}
			v.drop(n * 2)
			v.account(int64(n) * mapCost)
			v.push(d)

		case OpGetIndex:
			key := v.pop()
			target := v.pop()
			val, err := getIndex(target, key)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				val = nil
			}
			v.push(val)

		case OpSetIndex:
			val := v.pop()
			key := v.pop()
			target := v.pop()
			if err := v.setIndex(target, key, val); err != nil {
				if !yield(nil, err) {
					return
				}
			}

		case OpGetSlice:
			step := v.pop()
			hi := v.pop()
			lo := v.pop()
			target := v.pop()
			val, err := v.getSlice(target, lo, hi, step)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				val = nil
			}
			v.push(val)

		case OpSetSlice:
			val := v.pop()
			step := v.pop()
			hi := v.pop()
			lo := v.pop()
			target := v.pop()
			if err := setSlice(target, lo, hi, step, val); err != nil {
				if !yield(nil, err) {
					return
				}
			}

		case OpGetIter:
			it, err := getIter(v.pop())
			if err != nil {
				if !yield(nil, err) {
					return
				}
				it = &listIterator{list: &List{}}
			}
			v.push(it)

		case OpNextIter:
			offset := int(int32(inst) >> 8)
			if kind := v.aborted(); kind != AbortNone {
				yield(&Interrupt{Kind: kind}, nil)
				return
			}
			it, ok := v.OperandStack[v.SP-1].(iterator)
			if !ok {
				if !yield(nil, fmt.Errorf("iterating non-iterator: %T", v.OperandStack[v.SP-1])) {
					return
				}
				v.pop()
				v.IP += offset
				continue
			}
			val, more := it.next()
			if !more {
				v.pop()
				v.IP += offset
				continue
			}
			v.push(val)

		case OpGetAttr:
			nameVal := v.pop()
			target := v.pop()
			name, _ := nameVal.(string)
			val, ok := getAttr(target, name)
			if !ok {
				if !yield(nil, fmt.Errorf("%s object has no attribute '%s'", typeName(target), name)) {
					return
				}
				val = nil
			}
			v.push(val)

		case OpSetAttr:
			val := v.pop()
			nameVal := v.pop()
			target := v.pop()
			name, _ := nameVal.(string)
			setter, ok := target.(HasSetAttr)
			if !ok {
				if !yield(nil, fmt.Errorf("%s object does not support attribute assignment", typeName(target))) {
					return
				}
				continue
			}
			if err := setter.SetAttr(name, val); err != nil {
				if !yield(nil, err) {
					return
				}
			}

		case OpListAppend:
			val := v.pop()
			l, ok := v.OperandStack[v.SP-1].(*List)
			if !ok {
				if !yield(nil, fmt.Errorf("appending to non-list: %T", v.OperandStack[v.SP-1])) {
					return
				}
				continue
			}
			v.account(slotCost)
			l.Elements = append(l.Elements, val)

		case OpContains:
			container := v.pop()
			needle := v.pop()
			res, err := contains(container, needle)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				res = false
			}
			v.push(res)

		case OpUnpack:
			n := int(inst >> 8)
			elems, err := Elements(v.pop())
			if err != nil {
				if !yield(nil, err) {
					return
				}
				elems = nil
			}
			if len(elems) != n {
				if !yield(nil, fmt.Errorf("cannot unpack %d values into %d targets", len(elems), n)) {
					return
				}
				elems = make([]any, n)
			}
			for i := len(elems) - 1; i >= 0; i-- {
				v.push(elems[i])
			}

		case OpDup:
			v.push(v.OperandStack[v.SP-1])

		case OpDup2:
			a := v.OperandStack[v.SP-2]
			b := v.OperandStack[v.SP-1]
			v.push(a)
			v.push(b)

		case OpSwap:
			if v.SP >= 2 {
				top := v.SP - 1
				under := v.SP - 2
				v.OperandStack[top], v.OperandStack[under] = v.OperandStack[under], v.OperandStack[top]
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow:
			b := v.pop()
			a := v.pop()
			var res any
			var err error
			switch op {
			case OpAdd:
				res, err = v.add(a, b)
			case OpSub:
				res, err = sub(a, b)
			case OpMul:
				res, err = v.mul(a, b)
			case OpDiv:
				res, err = div(a, b)
			case OpFloorDiv:
				res, err = floorDiv(a, b)
			case OpMod:
				res, err = mod(a, b)
			case OpPow:
				res, err = pow(a, b)
			}
			if err != nil {
				if !yield(nil, err) {
					return
				}
				res = nil
			}
			v.push(res)

		case OpNeg:
			res, err := neg(v.pop())
			if err != nil {
				if !yield(nil, err) {
					return
				}
				res = nil
			}
			v.push(res)

		case OpEq, OpNe:
			b := v.pop()
			a := v.pop()
			match := Equal(a, b)
			var res bool
			if op == OpEq {
				res = match
			} else {
				res = !match
			}
			v.push(res)

		case OpLt, OpLe, OpGt, OpGe:
			b := v.pop()
			a := v.pop()
			cmp, err := Compare(a, b)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				v.push(nil)
				continue
			}
			var res bool
			switch op {
			case OpLt:
				res = cmp < 0
			case OpLe:
				res = cmp <= 0
			case OpGt:
				res = cmp > 0
			case OpGe:
				res = cmp >= 0
			}
			v.push(res)

		case OpNot:
			v.push(!Truth(v.pop()))

		case OpBitAnd, OpBitOr, OpBitXor, OpBitLsh, OpBitRsh:
			b := v.pop()
			a := v.pop()
			if op == OpBitOr {
				if d1, ok := a.(*Dict); ok {
					if d2, ok := b.(*Dict); ok {
						merged := NewDict()
						for _, k := range d1.Keys {
							merged.Set(k, d1.Values[k])
						}
						for _, k := range d2.Keys {
							merged.Set(k, d2.Values[k])
						}
						v.account(int64(merged.Len()) * mapCost)
						v.push(merged)
						continue
					}
				}
			}
			i1, ok1 := a.(int64)
			i2, ok2 := b.(int64)
			if !ok1 || !ok2 {
				if !yield(nil, fmt.Errorf("bitwise operands must be int, got %s and %s", typeName(a), typeName(b))) {
					return
				}
				v.push(nil)
				continue
			}
			var res int64
			var err error
			switch op {
			case OpBitAnd:
				res = i1 & i2
			case OpBitOr:
				res = i1 | i2
			case OpBitXor:
				res = i1 ^ i2
			case OpBitLsh:
				if i2 < 0 {
					err = fmt.Errorf("negative shift count")
				} else {
					res = i1 << i2
				}
			case OpBitRsh:
				if i2 < 0 {
					err = fmt.Errorf("negative shift count")
				} else {
					res = i1 >> i2
				}
			}
			if err != nil {
				if !yield(nil, err) {
					return
				}
				v.push(nil)
				continue
			}
			v.push(res)

		case OpBitNot:
			a := v.pop()
			i, ok := a.(int64)
			if !ok {
				if !yield(nil, fmt.Errorf("bitwise not operand must be int, got %s", typeName(a))) {
					return
				}
				v.push(nil)
				continue
			}
			v.push(^i)

		case OpStmtReach:
			if kind := v.aborted(); kind != AbortNone {
				yield(&Interrupt{Kind: kind}, nil)
				return
			}
			if v.Hook != nil && v.CurrentFun.Traced {
				v.Hook.OnReach(int(inst >> 8))
			}

		case OpStmtDone:
			if v.Hook != nil && v.CurrentFun.Traced {
				v.Hook.OnDone(int(inst>>8), v.Scope)
			}

		case OpObserve:
			if v.Hook != nil && v.CurrentFun.Traced && v.SP > 0 {
				v.Hook.OnObserve(v.OperandStack[v.SP-1])
			}

		case OpFunEnter:
			if v.Hook != nil && v.CurrentFun.Traced {
				v.Hook.OnEnter(v.CurrentFun, v.Scope)
			}

		default:
			if !yield(nil, fmt.Errorf("unknown opcode: %d", op)) {
				return
			}
		}
	}
}
