package vm

import (
	"math"
	"strings"
)

// callBuiltin implements the VM-hard-coded intrinsics that lowering emits
// as ir.Builtin nodes (spec §4.1 "special operator rewrites"): these never
// go through multiple dispatch since their semantics don't vary by operand
// type in a way Base's method tables express.
func (vm *VM) callBuiltin(name string, args []Value) (Value, error) {
	switch name {
	case "isa":
		return NewBool(vm.isA(args[0], args[1].Str)), nil

	case "div":
		return vm.dynamicArith(OpFloorDiv, args[0], args[1])

	case "isapprox":
		l, r := asFloat(args[0]), asFloat(args[1])
		return NewBool(math.Abs(l-r) <= 1e-8*math.Max(math.Abs(l), math.Abs(r))), nil

	case "__supertype_of":
		return NewBool(vm.isA(args[1], args[0].Str)), nil

	case "union":
		return setOp(args[0], args[1], true), nil

	case "intersect":
		return setOp(args[0], args[1], false), nil

	case "__compose":
		return composeValues(args[0], args[1]), nil

	case "TypeOf":
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjTypeValue, Name: args[0].Str}}, nil

	// __get_field / __set_field implement `.field` access by name rather
	// than by compile-time-resolved index (spec §9 Open Questions: full
	// static field-index resolution needs the type-inference pass this VM
	// does not carry).
	case "__get_field":
		target, field := args[0], args[1].Str
		if target.Kind != KindObject || target.Obj.OKind != ObjStructRef {
			return Nothing, &ExecError{Message: "field access on non-struct value", ExcType: "TypeError"}
		}
		idx, ok := vm.fieldIndexByName(target.Obj.Struct.TypeName, field)
		if !ok {
			return Nothing, &ExecError{Message: "type has no field " + field, ExcType: "ErrorException"}
		}
		return target.Obj.Struct.Fields[idx], nil

	case "__set_field":
		target, field, val := args[0], args[1].Str, args[2]
		if target.Kind != KindObject || target.Obj.OKind != ObjStructRef {
			return Nothing, &ExecError{Message: "field assignment on non-struct value", ExcType: "TypeError"}
		}
		if !target.Obj.Struct.Mutable {
			return Nothing, &ExecError{Message: "cannot mutate field of immutable struct " + target.Obj.Struct.TypeName, ExcType: "ErrorException"}
		}
		idx, ok := vm.fieldIndexByName(target.Obj.Struct.TypeName, field)
		if !ok {
			return Nothing, &ExecError{Message: "type has no field " + field, ExcType: "ErrorException"}
		}
		target.Obj.Struct.Fields[idx] = val
		return val, nil

	case "__string_concat":
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(a.String())
		}
		return NewString(sb.String()), nil

	case "__typed_construct":
		return vm.typedConstruct(args[0].Str, args[1:])

	case "@generated":
		// Compile-time-body-as-generator marker left unexpanded by lowering
		// (spec §4.1); reaching the VM means no compiler pass resolved it.
		// The compiler does not check for it, so the error is raised here.
		return Nothing, &ExecError{Message: "@generated body was not resolved at compile time"}

	default:
		return Nothing, &ExecError{Message: "unknown builtin: " + name}
	}
}

func setOp(a, b Value, union bool) Value {
	seen := make(map[string]Value)
	add := func(v Value) {
		seen[dictKey(v)] = v
	}
	count := make(map[string]int)
	if a.Kind == KindObject {
		for _, e := range a.Obj.Elems {
			add(e)
			count[dictKey(e)]++
		}
	}
	if b.Kind == KindObject {
		for _, e := range b.Obj.Elems {
			add(e)
			count[dictKey(e)]++
		}
	}
	var out []Value
	for k, v := range seen {
		if union || count[k] == 2 {
			out = append(out, v)
		}
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: out, Dims: []int{len(out)}}}
}
