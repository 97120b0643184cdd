package vm

import "fmt"

// dispatchCall resolves a direct or module-qualified call by name: it
// builds the runtime argument-type signature, asks the method table to
// pick a winner (falling back to the compile-time candidate baked into the
// call site when the runtime rescan finds nothing better), and invokes the
// resulting function.
func (vm *VM) dispatchCall(name string, args []Value, fallbackFuncIdx int) (Value, error) {
	table := vm.MethodTables[name]
	if table != nil {
		argTypes := make([]string, len(args))
		nativeDict := make([]bool, len(args))
		for i, a := range args {
			argTypes[i] = a.TypeName()
			nativeDict[i] = a.Kind == KindObject && a.Obj.OKind == ObjDict
		}
		if idx, ok := table.Dispatch(name, argTypes, nativeDict, -1, vm.Hierarchy); ok {
			entry := table.Entry(idx)
			return vm.CallFunction(entry.FuncIndex, args)
		}
	}
	if fallbackFuncIdx >= 0 {
		return vm.CallFunction(fallbackFuncIdx, args)
	}
	if idx, ok := vm.Program.FuncIndex[name]; ok {
		return vm.CallFunction(idx, args)
	}
	return Nothing, &ExecError{Message: fmt.Sprintf("no method matching %s(%s)", name, describeArgTypes(args)), ExcType: "MethodError"}
}

func describeArgTypes(args []Value) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a.TypeName()
	}
	return out
}

// callValue invokes a first-class callable Value: a Closure, a
// ComposedFunction (flattened right-to-left), or a bare FunctionRef.
func (vm *VM) callValue(fn Value, args []Value) (Value, error) {
	if fn.Kind != KindObject {
		return Nothing, &ExecError{Message: "call target is not callable", ExcType: "MethodError"}
	}
	switch fn.Obj.OKind {
	case ObjFunctionRef:
		return vm.dispatchCall(fn.Obj.Name, args, -1)
	case ObjClosure:
		idx, ok := vm.Program.FuncIndex[fn.Obj.Closure.FunctionName]
		if !ok {
			return Nothing, &ExecError{Message: "closure references unknown function " + fn.Obj.Closure.FunctionName}
		}
		fi := vm.Program.Functions[idx]
		fr := NewFrame(fi.NumLocals, -1, idx)
		for i, a := range args {
			if i < len(fr.Locals) {
				fr.Locals[i] = a
			}
		}
		fr.Captures = fn.Obj.Closure.CapturedValues
		vm.frames = append(vm.frames, fr)
		result, err := vm.execFrom(fi.Entry, -1)
		vm.frames = vm.frames[:len(vm.frames)-1]
		return result, err
	case ObjComposedFn:
		// ComposedFunction applies right-to-left: the last element in the
		// flattened Composed list is the innermost function (spec supplement
		// "ComposedFunction flattening").
		cur := args
		var result Value = Nothing
		for i := len(fn.Obj.Composed) - 1; i >= 0; i-- {
			var err error
			result, err = vm.callValue(fn.Obj.Composed[i], cur)
			if err != nil {
				return Nothing, err
			}
			cur = []Value{result}
		}
		return result, nil
	default:
		return Nothing, &ExecError{Message: "call target is not callable", ExcType: "MethodError"}
	}
}

// composeValues builds a ComposedFunction, flattening nested compositions on
// either side so `(a ∘ b) ∘ c` and `a ∘ (b ∘ c)` both produce one flat
// pending-outer list (spec supplement "ComposedFunction flattening").
func composeValues(l, r Value) Value {
	var flat []Value
	flat = append(flat, flattenComposed(l)...)
	flat = append(flat, flattenComposed(r)...)
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjComposedFn, Composed: flat}}
}

func flattenComposed(v Value) []Value {
	if v.Kind == KindObject && v.Obj.OKind == ObjComposedFn {
		return v.Obj.Composed
	}
	return []Value{v}
}

func (vm *VM) structIsMutable(name string) bool {
	for _, s := range vm.Program.Structs {
		if s.Name == name {
			return s.IsMutable
		}
	}
	return false
}

func (vm *VM) isA(v Value, typeName string) bool {
	tn := v.TypeName()
	if tn == typeName {
		return true
	}
	if vm.Hierarchy != nil {
		return vm.Hierarchy.IsSubtype(tn, typeName)
	}
	return false
}
