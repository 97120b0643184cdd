package ir

import (
	"math/big"

	"github.com/corelang/corevm/internal/cst"
)

// Expr is any CIR expression (spec §3.1 "Expr variants"). Every variant
// carries its source Span via GetSpan.
type Expr interface {
	isExpr()
	GetSpan() cst.Span
}

type ExprBase struct{ Span cst.Span }

func (b ExprBase) GetSpan() cst.Span { return b.Span }

// LiteralKind discriminates the Literal expression's payload.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitInt128
	LitBigInt
	LitFloat
	LitFloat32
	LitBool
	LitStr
	LitChar
	LitNothing
	LitMissing
	LitUndef
	LitBigFloat
	LitRegex
	LitModule
)

// Literal is a single constant value fixed at lowering time (spec §3.1
// "Literal"). Exactly one of the typed fields is meaningful, selected by
// Kind; BigInt/BigFloat use math/big since Base's own BigInt is arbitrary
// precision and a fixed-width Go type cannot represent it losslessly.
type Literal struct {
	ExprBase
	Kind     LiteralKind
	Int      int64
	Int128Hi int64 // high 64 bits of a 128-bit literal, two's complement
	Int128Lo uint64
	BigInt   *big.Int
	Float    float64
	Float32  float32
	Bool     bool
	Str      string
	Char     rune
	BigFloat *big.Float
	Regex    string // pattern text; compiled lazily by the VM
	Module   string // module-literal name, used by Base's `Symbol`/module-as-value forms
}

func (Literal) isExpr() {}

// Var references a bound name.
type Var struct {
	ExprBase
	Name string
}

func (Var) isExpr() {}

// Call is a direct function call, dispatched by name at runtime.
type Call struct {
	ExprBase
	Name     string
	Args     []Expr
	KwArgs   []KwArg
	TypeArgs []JuliaType // explicit parametric instantiation, e.g. zeros{Float64}(3)
}

func (Call) isExpr() {}

// KwArg is one `name = value` keyword argument at a call site.
type KwArg struct {
	Name  string
	Value Expr
}

// ModuleCall is `Module.fn(args...)`, kept distinct from Call so dead-code
// elimination can root-mark the named module (spec §4.4).
type ModuleCall struct {
	ExprBase
	Module string
	Name   string
	Args   []Expr
	KwArgs []KwArg
}

func (ModuleCall) isExpr() {}

// Builtin is a call to one of the VM's hard-coded intrinsics (arithmetic
// promotion entry points, reflection, metaprogramming, regex) that does not
// go through ordinary multiple dispatch.
type Builtin struct {
	ExprBase
	Name string
	Args []Expr
}

func (Builtin) isExpr() {}

// BinaryOp is a two-operand operator expression. Chained comparisons are
// lowered to ChainedCompare, not nested BinaryOp, so that each shared
// operand is evaluated once.
type BinaryOp struct {
	ExprBase
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryOp) isExpr() {}

// ChainedCompare represents `a < b <= c` style chains: Operands has one more
// element than Ops. The compiler evaluates every operand exactly once, left
// to right, and then ANDs all pairwise comparisons; it does not
// short-circuit, so operands after a failing comparison are still
// evaluated.
type ChainedCompare struct {
	ExprBase
	Operands []Expr
	Ops      []string
}

func (ChainedCompare) isExpr() {}

// BroadcastOp is an elementwise-dotted operator or call, e.g. `a .+ b` or
// `f.(a, b)` (spec §4.1 "Broadcast lowering").
type BroadcastOp struct {
	ExprBase
	Op   string // operator text, "" when Fn is set instead
	Fn   string // function name for f.(...) form, "" when Op is set
	Args []Expr
}

func (BroadcastOp) isExpr() {}

// UnaryOp is a single-operand prefix operator.
type UnaryOp struct {
	ExprBase
	Op string
	X  Expr
}

func (UnaryOp) isExpr() {}

// Ternary is `cond ? then : else`.
type Ternary struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

func (Ternary) isExpr() {}

// Index is `target[indices...]`.
type Index struct {
	ExprBase
	Target  Expr
	Indices []Expr
}

func (Index) isExpr() {}

// FieldAccess is `target.field`.
type FieldAccess struct {
	ExprBase
	Target Expr
	Field  string
}

func (FieldAccess) isExpr() {}

// ArrayLiteral is `[e1, e2, ...]` or a multi-dimensional literal built from
// Rows (each inner slice is one row; a single row means rank 1).
type ArrayLiteral struct {
	ExprBase
	Rows [][]Expr
	Elem JuliaType // explicit element type if given (e.g. Int64[1,2,3]), nil otherwise
}

func (ArrayLiteral) isExpr() {}

// TupleLiteral is `(e1, e2, ...)`.
type TupleLiteral struct {
	ExprBase
	Elems []Expr
}

func (TupleLiteral) isExpr() {}

// NamedTupleLiteral is `(a=1, b=2)`.
type NamedTupleLiteral struct {
	ExprBase
	Names []string
	Elems []Expr
}

func (NamedTupleLiteral) isExpr() {}

// DictLiteral is `Dict(k1=>v1, k2=>v2)`.
type DictLiteral struct {
	ExprBase
	Keys   []Expr
	Values []Expr
}

func (DictLiteral) isExpr() {}

// Range is `start:step:stop` (Step nil means 1).
type Range struct {
	ExprBase
	Start Expr
	Step  Expr
	Stop  Expr
}

func (Range) isExpr() {}

// Comprehension is `[expr for var in iter if cond]` (Cond nil if no filter).
type Comprehension struct {
	ExprBase
	Result Expr
	Var    string
	Iter   Expr
	Cond   Expr
}

func (Comprehension) isExpr() {}

// MultiComprehension is a comprehension with more than one `for` clause,
// e.g. `[f(i,j) for i in xs, j in ys]`.
type MultiComprehension struct {
	ExprBase
	Result Expr
	Vars   []string
	Iters  []Expr
	Cond   Expr
}

func (MultiComprehension) isExpr() {}

// Generator is the bare generator expression `(expr for var in iter)`,
// kept distinct from Comprehension in the IR; the compiler materializes it
// eagerly into an array just as it does a Comprehension.
type Generator struct {
	ExprBase
	Result Expr
	Var    string
	Iter   Expr
	Cond   Expr
}

func (Generator) isExpr() {}

// LetBlock is `let a = 1, b = 2; body end`, evaluated as an expression whose
// value is its last statement's value.
type LetBlock struct {
	ExprBase
	Names  []string
	Values []Expr
	Body   *Block
}

func (LetBlock) isExpr() {}

// AssignExpr is an assignment used in expression position (Base allows
// `x = (y = 1)`); distinct from the statement-level AssignStmt which is the
// common case emitted by the compiler as a pure effect.
type AssignExpr struct {
	ExprBase
	Name  string
	Value Expr
}

func (AssignExpr) isExpr() {}

// ReturnExpr is `return` used in tail-expression position inside a ternary
// or short-circuit operator.
type ReturnExpr struct {
	ExprBase
	Value Expr
}

func (ReturnExpr) isExpr() {}

// StringConcat is adjacent string-literal/interpolation concatenation,
// flattened at lowering time into a single node (spec §4.1 "Operator
// flattening").
type StringConcat struct {
	ExprBase
	Parts []Expr
}

func (StringConcat) isExpr() {}

// Pair is `k => v`, used both standalone and inside DictLiteral desugaring.
type Pair struct {
	ExprBase
	Key   Expr
	Value Expr
}

func (Pair) isExpr() {}

// FunctionRef is a bare function name used as a value, e.g. passed to `map`.
type FunctionRef struct {
	ExprBase
	Name string
}

func (FunctionRef) isExpr() {}

// New constructs a struct instance: `StructName(args...)` once resolved to
// a constructor rather than an ordinary Call (spec §4.1 special operators).
type New struct {
	ExprBase
	StructName string
	Args       []Expr
	KwArgs     []KwArg
}

func (New) isExpr() {}

// SliceAll is the bare `:` used as a full-dimension index, e.g. `a[:, 2]`.
type SliceAll struct {
	ExprBase
}

func (SliceAll) isExpr() {}

// TypedEmptyArray is `Vector{T}()` / `Matrix{T}()` called with no elements,
// kept distinct from New since it allocates directly rather than dispatching
// through multiple dispatch.
type TypedEmptyArray struct {
	ExprBase
	Elem JuliaType
	Rank int
}

func (TypedEmptyArray) isExpr() {}

// DynamicTypeConstruct is a parametric type used as a constructor where the
// parameter itself is a runtime value rather than syntax, e.g.
// `Array{T}(undef, n)` where T was bound by an enclosing where-clause (spec
// §4.5 "parametric type expressions").
type DynamicTypeConstruct struct {
	ExprBase
	Base   JuliaType
	Params []Expr
	Args   []Expr
}

func (DynamicTypeConstruct) isExpr() {}
