// Package ir implements the Core IR (spec §3.1): a stable, language-agnostic
// representation bridging the external surface syntax (internal/cst) and the
// linear bytecode produced by internal/compiler. Every node here is produced
// by internal/lowering and consumed by internal/lattice, internal/compiler,
// and internal/dce.
package ir

import "github.com/corelang/corevm/internal/cst"

// Program is the whole compilation unit (spec §3.1 "Program").
type Program struct {
	Functions         []*Function
	Structs           []*StructDef
	AbstractTypes     []*AbstractTypeDef
	TypeAliases       []*TypeAliasDef
	Modules           []*Module
	UsingClauses      []*UsingClause
	Macros            []*MacroDef
	Enums             []*EnumDef
	Main              *Block
	BaseFunctionCount int // length-prefix of Functions that came from the prelude
}

// TypeParam is a where-clause type variable with an optional bound.
type TypeParam struct {
	Name  string
	Bound JuliaType // nil if unbounded
}

// Parameter is a single function parameter (spec §3.1 "Parameter").
type Parameter struct {
	Name          string // "_" for anonymous typed parameters
	Type          JuliaType
	Default       Expr // nil if no default
	IsVarargs     bool
	VarargsFixedN *int // Vararg{T,N}'s N, nil for Vararg{T} (unbounded) or non-varargs
	Span          cst.Span
}

// KeywordParam is a keyword parameter, which may itself be a keyword-vararg
// collector (`kwargs...`).
type KeywordParam struct {
	Name       string
	Type       JuliaType
	Default    Expr // nil if required
	Required   bool
	IsKwVararg bool
}

// Function is a single method definition (spec §3.1 "Function"). Multiple
// Functions may share Name; uniqueness is over (Name, parameter-type
// pattern), enforced by internal/methodtable, not here.
type Function struct {
	Name             string
	Params           []Parameter
	KeywordParams    []KeywordParam
	TypeParams       []TypeParam
	ReturnType       JuliaType // nil if unannotated
	Body             *Block
	IsBaseExtension  bool
	Span             cst.Span
}

// Block is an ordered list of statements (spec §3.1 "Block").
type Block struct {
	Stmts []Stmt
}

// StructDef is a struct type definition.
type StructDef struct {
	Name       string
	TypeParams []TypeParam
	Fields     []StructField
	IsMutable  bool
	Parent     string // abstract type name this struct subtypes, "" if none
	Span       cst.Span
}

// StructField is one field of a struct definition.
type StructField struct {
	Name string
	Type JuliaType
}

// AbstractTypeDef declares an abstract type in the user-extensible part of
// the type hierarchy (spec §9 Open Questions: the built-in hierarchy itself
// is hard-coded in internal/methodtable, but user abstract types layer on
// top of it via Parent).
type AbstractTypeDef struct {
	Name   string
	Parent string // "" if it subtypes Any directly
	Span   cst.Span
}

// TypeAliasDef is a `const X{T} = ...` style alias.
type TypeAliasDef struct {
	Name       string
	TypeParams []string
	Underlying JuliaType
	Span       cst.Span
}

// Module is a named grouping of functions (spec §4.4 "roots": modules
// named in ModuleCall are root-reached transitively).
type Module struct {
	Name       string
	Functions  []*Function
	Submodules []*Module
	Span       cst.Span
}

// UsingClause is a `using Mod` or `using Mod: a, b` statement at program
// scope (see also the Using statement for block-local usings).
type UsingClause struct {
	Module  string
	Names   []string // empty means import everything exported
	Span    cst.Span
}

// MacroDef is a macro definition. Macro expansion itself happens during
// lowering (spec §4.1 "Macro expansion"); by the time a Program reaches the
// compiler, no MacroCall expressions remain except inside Quote literals.
type MacroDef struct {
	Name   string
	Params []Parameter
	Body   *Block
	Span   cst.Span
}

// EnumDef is an enum type with ordered variants.
type EnumDef struct {
	Name     string
	Variants []string
	Span     cst.Span
}
