package vm

import (
	"math"
	"math/big"
)

func asFloat(v Value) float64 {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return float64(v.I64)
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return float64(uint64(v.I64))
	case KindFloat16, KindFloat32:
		return float64(v.F32)
	case KindFloat64:
		return v.F64
	case KindBigInt:
		f, _ := new(big.Float).SetInt(v.Big).Float64()
		return f
	case KindBigFloat:
		f, _ := v.BigF.Float64()
		return f
	default:
		return 0
	}
}

func asInt(v Value) int64 {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindFloat16, KindFloat32:
		return int64(v.F32)
	case KindFloat64:
		return int64(v.F64)
	default:
		return v.I64
	}
}

func isFloatKind(k Kind) bool {
	return k == KindFloat16 || k == KindFloat32 || k == KindFloat64 || k == KindBigFloat
}

// typedArith implements the fixed-kind arithmetic opcodes: no promotion, no
// dispatch, both operands already guaranteed (by the compiler, from type
// inference) to share a kind.
func typedArith(op Op, l, r Value) (Value, error) {
	if isFloatKind(l.Kind) {
		lf, rf := asFloat(l), asFloat(r)
		switch op {
		case OpAddTyped:
			return NewFloat64(lf + rf), nil
		case OpSubTyped:
			return NewFloat64(lf - rf), nil
		case OpMulTyped:
			return NewFloat64(lf * rf), nil
		case OpDivTyped:
			return NewFloat64(lf / rf), nil
		}
	}
	li, ri := asInt(l), asInt(r)
	switch op {
	case OpAddTyped:
		return Value{Kind: l.Kind, I64: li + ri}, nil
	case OpSubTyped:
		return Value{Kind: l.Kind, I64: li - ri}, nil
	case OpMulTyped:
		return Value{Kind: l.Kind, I64: li * ri}, nil
	case OpDivTyped:
		if ri == 0 {
			return Nothing, &ExecError{Message: "integer division error", ExcType: "DivideError"}
		}
		return Value{Kind: l.Kind, I64: li / ri}, nil
	}
	return Nothing, &ExecError{Message: "unreachable typed arithmetic opcode"}
}

func negate(v Value) Value {
	switch v.Kind {
	case KindBool:
		// spec §4.5 "Arithmetic": unary minus on a Bool promotes to Int64
		// (`-true == -1`, `-false == 0`), it never stays Bool.
		if v.Bool {
			return NewInt64(-1)
		}
		return NewInt64(0)
	case KindFloat16, KindFloat32:
		return Value{Kind: v.Kind, F32: -v.F32}
	case KindFloat64:
		return NewFloat64(-v.F64)
	case KindBigInt:
		return Value{Kind: KindBigInt, Big: new(big.Int).Neg(v.Big)}
	case KindBigFloat:
		return Value{Kind: KindBigFloat, BigF: new(big.Float).Neg(v.BigF)}
	default:
		return Value{Kind: v.Kind, I64: -v.I64}
	}
}

// isStrongZeroCase implements Base's `Bool * Float` strong-zero rule: `false
// * Inf` and `false * NaN` are `0.0`, not `NaN`, since a Bool operand is
// known to be exactly 0 or 1 rather than an arbitrary float (spec §4.5
// "Arithmetic").
func isStrongZeroCase(l, r Value) (Value, bool) {
	var boolV, floatV Value
	switch {
	case l.Kind == KindBool && isFloatKind(r.Kind):
		boolV, floatV = l, r
	case r.Kind == KindBool && isFloatKind(l.Kind):
		boolV, floatV = r, l
	default:
		return Nothing, false
	}
	f := asFloat(floatV)
	if !boolV.Bool && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return NewFloat64(0), true
	}
	return Nothing, false
}

// dynamicArith implements the promoted, dispatch-visible arithmetic
// opcodes: struct operands route through multiple dispatch (e.g. user
// `+(::Complex, ::Complex)` methods); primitive operands use the promotion
// registry (explicit promote_rule first, the default numeric ladder
// otherwise) before applying the operator.
func (vm *VM) dynamicArith(op Op, l, r Value) (Value, error) {
	if l.Kind == KindObject || r.Kind == KindObject {
		opName := map[Op]string{OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "÷", OpMod: "%", OpPow: "^"}[op]
		return vm.dispatchCall(opName, []Value{l, r}, -1)
	}

	if zero, ok := isStrongZeroCase(l, r); ok && op == OpMul {
		return zero, nil
	}

	// spec §4.5 "Arithmetic": Bool^Bool is the one Bool/Bool arithmetic op
	// that stays Bool (`x || !y`) instead of widening to Int64 like every
	// other Bool/Bool op; handled here, before defaultPromote, since
	// defaultPromote has no way to special-case by operator.
	if op == OpPow && l.Kind == KindBool && r.Kind == KindBool {
		return Value{Kind: KindBool, Bool: l.Bool || !r.Bool}, nil
	}

	targetKind := defaultPromote(l, r)
	if vm.Promotion != nil {
		if result, ok := vm.Promotion.Lookup(l.TypeName(), r.TypeName()); ok {
			if k, ok := kindFromName(result); ok {
				targetKind = k
			}
		}
	}

	if targetKind == KindBigInt || l.Kind == KindBigInt || r.Kind == KindBigInt {
		return bigIntArith(op, l, r)
	}
	if isFloatKind(targetKind) {
		lf, rf := asFloat(l), asFloat(r)
		switch op {
		case OpAdd:
			return NewFloat64(lf + rf), nil
		case OpSub:
			return NewFloat64(lf - rf), nil
		case OpMul:
			return NewFloat64(lf * rf), nil
		case OpDiv:
			return NewFloat64(lf / rf), nil
		case OpFloorDiv:
			return NewFloat64(math.Floor(lf / rf)), nil
		case OpMod:
			return NewFloat64(math.Mod(lf, rf)), nil
		case OpPow:
			return NewFloat64(math.Pow(lf, rf)), nil
		}
	}

	li, ri := asInt(l), asInt(r)
	switch op {
	case OpAdd:
		return Value{Kind: targetKind, I64: li + ri}, nil
	case OpSub:
		return Value{Kind: targetKind, I64: li - ri}, nil
	case OpMul:
		return Value{Kind: targetKind, I64: li * ri}, nil
	case OpDiv:
		return NewFloat64(float64(li) / float64(ri)), nil
	case OpFloorDiv:
		if ri == 0 {
			return Nothing, &ExecError{Message: "integer division error", ExcType: "DivideError"}
		}
		q := li / ri
		if (li%ri != 0) && ((li < 0) != (ri < 0)) {
			q--
		}
		return Value{Kind: targetKind, I64: q}, nil
	case OpMod:
		if ri == 0 {
			return Nothing, &ExecError{Message: "integer division error", ExcType: "DivideError"}
		}
		m := li % ri
		if m != 0 && ((m < 0) != (ri < 0)) {
			m += ri
		}
		return Value{Kind: targetKind, I64: m}, nil
	case OpPow:
		// spec §4.5 "Arithmetic": a negative integer exponent promotes the
		// whole result to Float64 rather than truncating to 0 (original
		// dynamic_pow: exp < 0 takes the float branch unconditionally).
		if ri < 0 {
			return NewFloat64(math.Pow(asFloat(l), asFloat(r))), nil
		}
		return Value{Kind: targetKind, I64: intPow(li, ri)}, nil
	}
	return Nothing, &ExecError{Message: "unreachable dynamic arithmetic opcode"}
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func bigIntArith(op Op, l, r Value) (Value, error) {
	toBig := func(v Value) *big.Int {
		if v.Kind == KindBigInt {
			return v.Big
		}
		return big.NewInt(asInt(v))
	}
	lb, rb := toBig(l), toBig(r)
	out := new(big.Int)
	switch op {
	case OpAdd:
		out.Add(lb, rb)
	case OpSub:
		out.Sub(lb, rb)
	case OpMul:
		out.Mul(lb, rb)
	case OpDiv, OpFloorDiv:
		if rb.Sign() == 0 {
			return Nothing, &ExecError{Message: "integer division error", ExcType: "DivideError"}
		}
		out.Div(lb, rb)
	case OpMod:
		if rb.Sign() == 0 {
			return Nothing, &ExecError{Message: "integer division error", ExcType: "DivideError"}
		}
		out.Mod(lb, rb)
	case OpPow:
		out.Exp(lb, rb, nil)
	}
	return Value{Kind: KindBigInt, Big: out}, nil
}

func kindFromName(name string) (Kind, bool) {
	switch name {
	case "Int8":
		return KindInt8, true
	case "Int16":
		return KindInt16, true
	case "Int32":
		return KindInt32, true
	case "Int64":
		return KindInt64, true
	case "Int128":
		return KindInt128, true
	case "UInt8":
		return KindUInt8, true
	case "UInt16":
		return KindUInt16, true
	case "UInt32":
		return KindUInt32, true
	case "UInt64":
		return KindUInt64, true
	case "UInt128":
		return KindUInt128, true
	case "Float16":
		return KindFloat16, true
	case "Float32":
		return KindFloat32, true
	case "Float64":
		return KindFloat64, true
	case "BigInt":
		return KindBigInt, true
	case "BigFloat":
		return KindBigFloat, true
	default:
		return KindObject, false
	}
}

// compare implements the comparison opcodes, including structural equality
// for boxed values (tuples/structs compare fieldwise, the way Base's `==`
// does for immutable structs) and strict identity (`===`) for everything
// else.
func compare(op Op, l, r Value) (Value, error) {
	switch op {
	case OpIdentical:
		return NewBool(identical(l, r)), nil
	case OpNotIdentical:
		return NewBool(!identical(l, r)), nil
	}

	if l.Kind == KindObject || r.Kind == KindObject {
		eq := structuralEqual(l, r)
		switch op {
		case OpEq:
			return NewBool(eq), nil
		case OpNe:
			return NewBool(!eq), nil
		default:
			return Nothing, &ExecError{Message: "ordering comparison not defined for this type", ExcType: "MethodError"}
		}
	}

	if isFloatKind(l.Kind) || isFloatKind(r.Kind) {
		lf, rf := asFloat(l), asFloat(r)
		switch op {
		case OpEq:
			return NewBool(lf == rf), nil
		case OpNe:
			return NewBool(lf != rf), nil
		case OpLt:
			return NewBool(lf < rf), nil
		case OpLe:
			return NewBool(lf <= rf), nil
		case OpGt:
			return NewBool(lf > rf), nil
		case OpGe:
			return NewBool(lf >= rf), nil
		}
	}

	if l.Kind == KindString || r.Kind == KindString {
		switch op {
		case OpEq:
			return NewBool(l.Str == r.Str), nil
		case OpNe:
			return NewBool(l.Str != r.Str), nil
		case OpLt:
			return NewBool(l.Str < r.Str), nil
		case OpLe:
			return NewBool(l.Str <= r.Str), nil
		case OpGt:
			return NewBool(l.Str > r.Str), nil
		case OpGe:
			return NewBool(l.Str >= r.Str), nil
		}
	}

	li, ri := asInt(l), asInt(r)
	switch op {
	case OpEq:
		return NewBool(li == ri), nil
	case OpNe:
		return NewBool(li != ri), nil
	case OpLt:
		return NewBool(li < ri), nil
	case OpLe:
		return NewBool(li <= ri), nil
	case OpGt:
		return NewBool(li > ri), nil
	case OpGe:
		return NewBool(li >= ri), nil
	}
	return Nothing, &ExecError{Message: "unreachable comparison opcode"}
}

func identical(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	if l.Kind == KindObject {
		if l.Obj.OKind == ObjStructRef && r.Obj.OKind == ObjStructRef {
			return l.Obj.Struct == r.Obj.Struct
		}
		return l.Obj == r.Obj
	}
	return l.String() == r.String()
}

func structuralEqual(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	if l.Kind != KindObject {
		return l.String() == r.String()
	}
	lo, ro := l.Obj, r.Obj
	if lo.OKind != ro.OKind {
		return false
	}
	switch lo.OKind {
	case ObjTuple, ObjArray, ObjNamedTuple:
		if len(lo.Elems) != len(ro.Elems) {
			return false
		}
		for i := range lo.Elems {
			if !structuralEqual(lo.Elems[i], ro.Elems[i]) {
				return false
			}
		}
		return true
	case ObjStructRef:
		if lo.Struct.TypeName != ro.Struct.TypeName || len(lo.Struct.Fields) != len(ro.Struct.Fields) {
			return false
		}
		for i := range lo.Struct.Fields {
			if !structuralEqual(lo.Struct.Fields[i], ro.Struct.Fields[i]) {
				return false
			}
		}
		return true
	case ObjSymbol:
		return lo.Name == ro.Name
	default:
		return lo == ro
	}
}
