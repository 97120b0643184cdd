// Package vm implements the bytecode virtual machine (spec §3.3, §3.5,
// §4.5, §4.6): the runtime Value representation, the instruction set, and
// the interpreter loop that executes programs produced by internal/compiler.
package vm

import (
	"fmt"
	"math/big"
)

// Kind discriminates a Value's payload. Inline primitive kinds avoid an
// allocation; everything else is boxed behind Obj.
type Kind uint8

const (
	KindNothing Kind = iota
	KindMissing
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindFloat16
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindBigInt
	KindBigFloat
	KindObject // Obj holds an *Object: array, dict, tuple, struct, closure, ...
)

// Value is the VM's tagged union (spec §3.3 "Value"). Inline scalar fields
// are only meaningful when Kind selects them; Obj is the single boxed slot
// for every reference-like payload, matching the teacher's own inline+boxed
// split for Value representations.
type Value struct {
	Kind     Kind
	I64      int64
	Hi       int64 // Int128/UInt128 high word
	Lo       uint64
	F64      float64
	F32      float32
	Bool     bool
	Char     rune
	Str      string
	Big      *big.Int
	BigF     *big.Float
	Obj      *Object
}

// ObjectKind discriminates the boxed Object payload.
type ObjectKind uint8

const (
	ObjArray ObjectKind = iota
	ObjDict
	ObjTuple
	ObjNamedTuple
	ObjStructRef
	ObjClosure
	ObjComposedFn
	ObjFunctionRef
	ObjRegex
	ObjSymbol
	ObjQuotedExpr
	ObjLineNumberNode
	ObjGlobalRef
	ObjModule
	ObjTypeValue
	ObjException
)

// Object is the boxed payload referenced by a Value with Kind == KindObject.
// Exactly one field group is meaningful, selected by OKind, mirroring the
// inline-Value discriminated-union convention above one level up.
type Object struct {
	OKind ObjectKind

	// ObjArray / ObjTuple / ObjNamedTuple
	Elems     []Value
	ElemType  JuliaTypeTag
	Dims      []int // array shape; len(Dims)==1 for vectors
	Names     []string // ObjNamedTuple field names, parallel to Elems

	// ObjDict
	Dict *DictValue

	// ObjStructRef
	Struct *StructRef

	// ObjClosure
	Closure *Closure

	// ObjComposedFn: flattened pending-outer function list (spec §3 supplement
	// "ComposedFunction flattening"), applied right-to-left at call time.
	Composed []Value

	// ObjFunctionRef / ObjSymbol / ObjGlobalRef / ObjModule
	Name string

	// ObjRegex
	Pattern string
	Flags   string

	// ObjQuotedExpr: a quoted/metaprogrammed AST node, kept as an opaque
	// head+args pair (Base's `Expr(head, args...)`).
	Head string
	Args []Value

	// ObjLineNumberNode
	Line int
	File string

	// ObjException
	ExcType string
	Message string
}

// JuliaTypeTag names a runtime type for reflection/dispatch purposes without
// pulling in internal/ir's full JuliaType (which is a compile-time surface
// representation); the VM only needs the printable name and parametric
// argument tags.
type JuliaTypeTag struct {
	Name   string
	Params []JuliaTypeTag
}

func (t JuliaTypeTag) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	out := t.Name + "{"
	for i, p := range t.Params {
		if i > 0 {
			out += ","
		}
		out += p.String()
	}
	return out + "}"
}

// Closure captures the enclosing frame's named locals by value at creation
// time (spec §4.1 "lambda lowering"); CapturedNames is positional so the
// compiler can emit LoadCaptured by index rather than by name lookup.
type Closure struct {
	FunctionName   string
	CapturedNames  []string
	CapturedValues []Value
}

// Nothing, True, and False are the canonical singleton Values for the most
// common zero-allocation cases.
var (
	Nothing = Value{Kind: KindNothing}
	Missing = Value{Kind: KindMissing}
	True    = Value{Kind: KindBool, Bool: true}
	False   = Value{Kind: KindBool, Bool: false}
)

// NewBool returns the canonical True/False Value for b.
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewInt64 returns an Int64-kinded Value.
func NewInt64(i int64) Value { return Value{Kind: KindInt64, I64: i} }

// NewFloat64 returns a Float64-kinded Value.
func NewFloat64(f float64) Value { return Value{Kind: KindFloat64, F64: f} }

// NewString returns a String-kinded Value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// TypeName returns the runtime type name of v, the form reflection builtins
// (`typeof`, `fieldnames`, `which`) surface to user code.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNothing:
		return "Nothing"
	case KindMissing:
		return "Missing"
	case KindBool:
		return "Bool"
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindInt128:
		return "Int128"
	case KindUInt8:
		return "UInt8"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindUInt64:
		return "UInt64"
	case KindUInt128:
		return "UInt128"
	case KindFloat16:
		return "Float16"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindChar:
		return "Char"
	case KindString:
		return "String"
	case KindBigInt:
		return "BigInt"
	case KindBigFloat:
		return "BigFloat"
	case KindObject:
		return v.Obj.typeName()
	default:
		return "Any"
	}
}

func (o *Object) typeName() string {
	switch o.OKind {
	case ObjArray:
		if len(o.Dims) > 1 {
			return fmt.Sprintf("Matrix{%s}", o.ElemType.String())
		}
		return fmt.Sprintf("Vector{%s}", o.ElemType.String())
	case ObjDict:
		return fmt.Sprintf("Dict{%s,%s}", o.Dict.KeyType, o.Dict.ValType)
	case ObjTuple:
		return "Tuple"
	case ObjNamedTuple:
		return "NamedTuple"
	case ObjStructRef:
		return o.Struct.TypeName
	case ObjClosure:
		return "#" + o.Closure.FunctionName
	case ObjComposedFn:
		return "ComposedFunction"
	case ObjFunctionRef:
		return "typeof(" + o.Name + ")"
	case ObjRegex:
		return "Regex"
	case ObjSymbol:
		return "Symbol"
	case ObjQuotedExpr:
		return "Expr"
	case ObjLineNumberNode:
		return "LineNumberNode"
	case ObjGlobalRef:
		return "GlobalRef"
	case ObjModule:
		return "Module"
	case ObjTypeValue:
		return "DataType"
	case ObjException:
		return o.ExcType
	default:
		return "Any"
	}
}

// String renders v the way Base's `string`/`print` would, used by the
// interpreter's string-interpolation and `show` opcodes.
func (v Value) String() string {
	switch v.Kind {
	case KindNothing:
		return ""
	case KindMissing:
		return "missing"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.I64)
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return fmt.Sprintf("%d", uint64(v.I64))
	case KindInt128, KindUInt128:
		return int128ToBig(v.Hi, v.Lo, v.Kind == KindInt128).String()
	case KindFloat16, KindFloat32:
		return fmt.Sprintf("%g", v.F32)
	case KindFloat64:
		return fmt.Sprintf("%g", v.F64)
	case KindChar:
		return string(v.Char)
	case KindString:
		return v.Str
	case KindBigInt:
		return v.Big.String()
	case KindBigFloat:
		return v.BigF.String()
	case KindObject:
		return v.Obj.String()
	default:
		return "<unknown>"
	}
}

func (o *Object) String() string {
	switch o.OKind {
	case ObjSymbol:
		return ":" + o.Name
	case ObjFunctionRef:
		return o.Name
	default:
		return o.typeName()
	}
}

func int128ToBig(hi int64, lo uint64, signed bool) *big.Int {
	out := new(big.Int).Lsh(big.NewInt(hi), 64)
	out.Or(out, new(big.Int).SetUint64(lo))
	_ = signed
	return out
}

// IsTruthy implements Base's strict Bool-only truthiness: any non-Bool
// condition value is a runtime TypeError, raised by the caller, not here.
func (v Value) IsTruthy() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}
