package vm

import (
	"fmt"
	"strings"
)

// fieldNames implements Base's `fieldnames(T)` / `fieldnames(typeof(x))`.
func (vm *VM) fieldNames(v Value) Value {
	def := vm.lookupStructDef(v)
	if def == nil {
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple}}
	}
	elems := make([]Value, len(def.Fields))
	for i, f := range def.Fields {
		elems[i] = Value{Kind: KindObject, Obj: &Object{OKind: ObjSymbol, Name: f}}
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple, Elems: elems}}
}

// fieldTypes implements Base's `fieldtypes(T)`.
func (vm *VM) fieldTypes(v Value) Value {
	def := vm.lookupStructDef(v)
	if def == nil {
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple}}
	}
	elems := make([]Value, len(def.FieldType))
	for i, t := range def.FieldType {
		elems[i] = Value{Kind: KindObject, Obj: &Object{OKind: ObjTypeValue, Name: t}}
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple, Elems: elems}}
}

// fieldIndexByName resolves a field name against structName's declared
// field order, used by the `.field` runtime-name builtins.
func (vm *VM) fieldIndexByName(structName, field string) (int, bool) {
	for i := range vm.Program.Structs {
		if vm.Program.Structs[i].Name != structName {
			continue
		}
		for j, f := range vm.Program.Structs[i].Fields {
			if f == field {
				return j, true
			}
		}
	}
	return 0, false
}

// typedConstruct implements the handful of parametric-type constructor
// forms lowering emits as DynamicTypeConstruct (spec §4.5 "parametric type
// expressions"): `Vector{T}(undef, n)`-style sized allocation. Struct
// constructors go through OpNewStruct instead; this only covers Base's own
// container types.
func (vm *VM) typedConstruct(name string, args []Value) (Value, error) {
	switch name {
	case "Vector", "Array":
		if len(args) == 0 {
			return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Dims: []int{0}}}, nil
		}
		n := int(asInt(args[len(args)-1]))
		elems := make([]Value, n)
		for i := range elems {
			elems[i] = Nothing
		}
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: elems, Dims: []int{n}}}, nil
	default:
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Dims: []int{0}}}, nil
	}
}

func (vm *VM) lookupStructDef(v Value) *StructDefInfo {
	name := v.TypeName()
	if v.Kind == KindObject && v.Obj.OKind == ObjTypeValue {
		name = v.Obj.Name
	}
	for i := range vm.Program.Structs {
		if vm.Program.Structs[i].Name == name {
			return &vm.Program.Structs[i]
		}
	}
	return nil
}

// hasMethod implements Base's `hasmethod(f, types)`: true if any registered
// signature in f's method table matches the given argument-type signature.
func (vm *VM) hasMethod(name string, args []Value) bool {
	table := vm.MethodTables[name]
	if table == nil {
		return false
	}
	argTypes := make([]string, len(args))
	nativeDict := make([]bool, len(args))
	for i, a := range args {
		argTypes[i] = a.TypeName()
	}
	_, ok := table.Dispatch(name, argTypes, nativeDict, -1, vm.Hierarchy)
	return ok
}

// describeMethods implements the diagnostic text `which`/`methods` print:
// every registered signature for name, one per line.
func (vm *VM) describeMethods(name string) string {
	table := vm.MethodTables[name]
	if table == nil {
		return fmt.Sprintf("no methods found for generic function %q", name)
	}
	indices := table.ByName(name)
	lines := make([]string, 0, len(indices))
	for _, idx := range indices {
		e := table.Entry(idx)
		lines = append(lines, fmt.Sprintf("%s(%s)", e.Name, strings.Join(e.Params, ", ")))
	}
	return strings.Join(lines, "\n")
}
