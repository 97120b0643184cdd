package ir

import "fmt"

// JuliaType is the surface type syntax captured during lowering (spec
// §3.1 "JuliaType"). It is distinct from lattice.LatticeType: JuliaType is
// what the user wrote (or what lowering synthesized from it); LatticeType
// is what abstract interpretation infers.
type JuliaType interface {
	isJuliaType()
	String() string
}

// Primitive is one of the built-in scalar/any kinds.
type Primitive struct{ Name string }

func (Primitive) isJuliaType()    {}
func (p Primitive) String() string { return p.Name }

// Built-in primitive names, matching spec §3.1 exactly.
var (
	TInt8          = Primitive{"Int8"}
	TInt16         = Primitive{"Int16"}
	TInt32         = Primitive{"Int32"}
	TInt64         = Primitive{"Int64"}
	TInt128        = Primitive{"Int128"}
	TUInt8         = Primitive{"UInt8"}
	TUInt16        = Primitive{"UInt16"}
	TUInt32        = Primitive{"UInt32"}
	TUInt64        = Primitive{"UInt64"}
	TUInt128       = Primitive{"UInt128"}
	TFloat16       = Primitive{"Float16"}
	TFloat32       = Primitive{"Float32"}
	TFloat64       = Primitive{"Float64"}
	TBool          = Primitive{"Bool"}
	TChar          = Primitive{"Char"}
	TString        = Primitive{"String"}
	TBigInt        = Primitive{"BigInt"}
	TBigFloat      = Primitive{"BigFloat"}
	TSymbol        = Primitive{"Symbol"}
	TNothing       = Primitive{"Nothing"}
	TMissing       = Primitive{"Missing"}
	TAny           = Primitive{"Any"}
)

// Struct names a user or Base struct type by name (parametric arguments, if
// any, are carried by the enclosing TApp-like construct at the IR level via
// Params).
type Struct struct {
	Name   string
	Params []JuliaType // type arguments, e.g. Complex{Float64} -> Params=[Float64]
}

func (Struct) isJuliaType() {}
func (s Struct) String() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	out := s.Name + "{"
	for i, p := range s.Params {
		if i > 0 {
			out += ","
		}
		out += p.String()
	}
	return out + "}"
}

// VectorOf is Vector{T} (rank-1 array).
type VectorOf struct{ Elem JuliaType }

func (VectorOf) isJuliaType()    {}
func (v VectorOf) String() string { return fmt.Sprintf("Vector{%s}", v.Elem.String()) }

// MatrixOf is Matrix{T} (rank-2 array).
type MatrixOf struct{ Elem JuliaType }

func (MatrixOf) isJuliaType()    {}
func (m MatrixOf) String() string { return fmt.Sprintf("Matrix{%s}", m.Elem.String()) }

// TupleOf is a fixed tuple type (T1, T2, ...).
type TupleOf struct{ Elems []JuliaType }

func (TupleOf) isJuliaType() {}
func (t TupleOf) String() string {
	out := "("
	for i, e := range t.Elems {
		if i > 0 {
			out += ", "
		}
		out += e.String()
	}
	return out + ")"
}

// Union is a union type Union{T1, T2, ...}.
type Union struct{ Members []JuliaType }

func (Union) isJuliaType() {}
func (u Union) String() string {
	out := "Union{"
	for i, m := range u.Members {
		if i > 0 {
			out += ","
		}
		out += m.String()
	}
	return out + "}"
}

// TypeVar is a where-clause type variable, optionally bounded (covariant
// bound `_<:Bound` from spec §4.5 point 2).
type TypeVar struct {
	Name  string
	Bound JuliaType // nil if unbounded
}

func (TypeVar) isJuliaType() {}
func (t TypeVar) String() string {
	if t.Bound == nil {
		return t.Name
	}
	return t.Name + "<:" + t.Bound.String()
}

// TypeOf represents the `Type{T}` pattern used for dispatch on type objects.
type TypeOf struct{ Inner JuliaType }

func (TypeOf) isJuliaType()    {}
func (t TypeOf) String() string { return fmt.Sprintf("Type{%s}", t.Inner.String()) }

// DataType is the meta-type of a type value itself (the type of `Int64`,
// as opposed to the type of a value of type Int64).
type DataType struct{}

func (DataType) isJuliaType()    {}
func (DataType) String() string { return "DataType" }
