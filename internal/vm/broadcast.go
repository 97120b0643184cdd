package vm

// execBroadcast implements the elementwise `.op`/`f.(...)` subsystem (spec
// §4.5 "Broadcast"): every array-shaped operand must agree on length,
// scalars are repeated across every position, and the result is a fresh
// array of the same length. Base's broadcast shape rules beyond that (e.g.
// expanding a length-1 array, or multi-dimensional shapes) are not
// implemented.
//
// instr.A selects the operator/function name (via Consts), instr.B the
// argument count; operands are popped in reverse from the stack the same
// way OpCallBuiltin reads its arguments.
func (vm *VM) execBroadcast(instr Instr) (Value, error) {
	name := vm.Program.Consts[instr.A].Str
	argc := instr.B
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return Nothing, err
		}
		args[i] = v
	}

	length := -1
	for _, a := range args {
		if a.Kind == KindObject && a.Obj.OKind == ObjArray {
			if length == -1 {
				length = len(a.Obj.Elems)
			} else if length != len(a.Obj.Elems) {
				return Nothing, &ExecError{Message: "broadcast: array lengths must match", ExcType: "DimensionMismatch"}
			}
		}
	}
	if length == -1 {
		// No array operand: broadcasting a pure scalar call collapses to an
		// ordinary call (spec §4.5 "Broadcast" scalar fallback).
		return vm.applyBroadcastElement(name, args)
	}

	out := make([]Value, length)
	elemArgs := make([]Value, len(args))
	for i := 0; i < length; i++ {
		for j, a := range args {
			if a.Kind == KindObject && a.Obj.OKind == ObjArray {
				elemArgs[j] = a.Obj.Elems[i]
			} else {
				elemArgs[j] = a
			}
		}
		r, err := vm.applyBroadcastElement(name, elemArgs)
		if err != nil {
			return Nothing, err
		}
		out[i] = r
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: out, Dims: []int{length}}}, nil
}

func (vm *VM) applyBroadcastElement(name string, args []Value) (Value, error) {
	switch name {
	case "+":
		return vm.dynamicArith(OpAdd, args[0], args[1])
	case "-":
		if len(args) == 1 {
			return negate(args[0]), nil
		}
		return vm.dynamicArith(OpSub, args[0], args[1])
	case "*":
		return vm.dynamicArith(OpMul, args[0], args[1])
	case "/":
		return vm.dynamicArith(OpDiv, args[0], args[1])
	case "&&":
		return vm.shortCircuitAndAnd(args[0], args[1])
	case "||":
		return vm.shortCircuitOrOr(args[0], args[1])
	default:
		return vm.dispatchCall(name, args, -1)
	}
}

// shortCircuitAndAnd / shortCircuitOrOr implement the `.&&`/`.||` routing
// named in spec §4.1: elementwise logical ops still require Bool operands,
// the VM just applies them position-by-position rather than lazily.
func (vm *VM) shortCircuitAndAnd(l, r Value) (Value, error) {
	lb, ok := l.IsTruthy()
	if !ok {
		return Nothing, &ExecError{Message: "type error: .&& applied to non-Bool", ExcType: "TypeError"}
	}
	if !lb {
		return False, nil
	}
	rb, ok := r.IsTruthy()
	if !ok {
		return Nothing, &ExecError{Message: "type error: .&& applied to non-Bool", ExcType: "TypeError"}
	}
	return NewBool(rb), nil
}

func (vm *VM) shortCircuitOrOr(l, r Value) (Value, error) {
	lb, ok := l.IsTruthy()
	if !ok {
		return Nothing, &ExecError{Message: "type error: .|| applied to non-Bool", ExcType: "TypeError"}
	}
	if lb {
		return True, nil
	}
	rb, ok := r.IsTruthy()
	if !ok {
		return Nothing, &ExecError{Message: "type error: .|| applied to non-Bool", ExcType: "TypeError"}
	}
	return NewBool(rb), nil
}
