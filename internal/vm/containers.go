package vm

// indexGet implements `target[idx]` for arrays, tuples, dicts, and strings.
// A SliceAll-kinded idx (the bare `:` object) is not handled here, and
// multi-dimensional indexing never reaches here: the compiler rejects it
// with a CompileError.
func indexGet(target, idx Value) (Value, error) {
	switch {
	case target.Kind == KindObject && target.Obj.OKind == ObjArray:
		i := int(asInt(idx)) - 1 // Base arrays are 1-indexed
		if i < 0 || i >= len(target.Obj.Elems) {
			return Nothing, &ExecError{Message: "index out of bounds", ExcType: "BoundsError"}
		}
		return target.Obj.Elems[i], nil

	case target.Kind == KindObject && target.Obj.OKind == ObjTuple:
		i := int(asInt(idx)) - 1
		if i < 0 || i >= len(target.Obj.Elems) {
			return Nothing, &ExecError{Message: "index out of bounds", ExcType: "BoundsError"}
		}
		return target.Obj.Elems[i], nil

	case target.Kind == KindObject && target.Obj.OKind == ObjDict:
		v, ok := target.Obj.Dict.Get(idx)
		if !ok {
			return Nothing, &ExecError{Message: "key not found", ExcType: "KeyError"}
		}
		return v, nil

	case target.Kind == KindString:
		runes := []rune(target.Str)
		i := int(asInt(idx)) - 1
		if i < 0 || i >= len(runes) {
			return Nothing, &ExecError{Message: "index out of bounds", ExcType: "BoundsError"}
		}
		return Value{Kind: KindChar, Char: runes[i]}, nil

	default:
		return Nothing, &ExecError{Message: "value is not indexable", ExcType: "MethodError"}
	}
}

// indexSet implements `target[idx] = val` for mutable containers (arrays,
// dicts). Any other target, including strings and tuples (immutable in
// Base), fails with a MethodError.
func indexSet(target, idx, val Value) error {
	switch {
	case target.Kind == KindObject && target.Obj.OKind == ObjArray:
		i := int(asInt(idx)) - 1
		if i < 0 || i >= len(target.Obj.Elems) {
			return &ExecError{Message: "index out of bounds", ExcType: "BoundsError"}
		}
		target.Obj.Elems[i] = val
		return nil

	case target.Kind == KindObject && target.Obj.OKind == ObjDict:
		target.Obj.Dict.Set(idx, val)
		return nil

	default:
		return &ExecError{Message: "value does not support index assignment", ExcType: "MethodError"}
	}
}

// materializeRange implements Base's `start:step:stop` as an eagerly built
// Vector (spec §9 Open Questions: lazy range iterators are out of scope for
// this VM); step of 0 is a runtime ArgumentError the way
// Base itself rejects it.
func materializeRange(start, step, stop Value) (Value, error) {
	if isFloatKind(start.Kind) || isFloatKind(step.Kind) || isFloatKind(stop.Kind) {
		s, st, e := asFloat(start), asFloat(step), asFloat(stop)
		if st == 0 {
			return Nothing, &ExecError{Message: "range step cannot be zero", ExcType: "ArgumentError"}
		}
		var elems []Value
		if st > 0 {
			for v := s; v <= e+1e-9; v += st {
				elems = append(elems, NewFloat64(v))
			}
		} else {
			for v := s; v >= e-1e-9; v += st {
				elems = append(elems, NewFloat64(v))
			}
		}
		return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: elems, Dims: []int{len(elems)}}}, nil
	}
	s, st, e := asInt(start), asInt(step), asInt(stop)
	if st == 0 {
		return Nothing, &ExecError{Message: "range step cannot be zero", ExcType: "ArgumentError"}
	}
	var elems []Value
	if st > 0 {
		for v := s; v <= e; v += st {
			elems = append(elems, NewInt64(v))
		}
	} else {
		for v := s; v >= e; v += st {
			elems = append(elems, NewInt64(v))
		}
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: elems, Dims: []int{len(elems)}}}, nil
}

// valueLen implements Base's `length`.
func valueLen(v Value) int {
	switch {
	case v.Kind == KindString:
		return len([]rune(v.Str))
	case v.Kind == KindObject && (v.Obj.OKind == ObjArray || v.Obj.OKind == ObjTuple || v.Obj.OKind == ObjNamedTuple):
		return len(v.Obj.Elems)
	case v.Kind == KindObject && v.Obj.OKind == ObjDict:
		return v.Obj.Dict.Len()
	default:
		return 0
	}
}
