package ir

import "github.com/corelang/corevm/internal/cst"

// Stmt is any CIR statement (spec §3.1 "Statement variants"). Every variant
// carries its source Span via the GetSpan method.
type Stmt interface {
	isStmt()
	GetSpan() cst.Span
}

type StmtBase struct{ Span cst.Span }

func (b StmtBase) GetSpan() cst.Span { return b.Span }

// ExprStmt evaluates an expression for effect and discards its value.
type ExprStmt struct {
	StmtBase
	X Expr
}

func (ExprStmt) isStmt() {}

// AssignStmt is `name = value` (or destructuring, see DestructuringAssign).
type AssignStmt struct {
	StmtBase
	Name  string
	Value Expr
}

func (AssignStmt) isStmt() {}

// AddAssignStmt is `name += value` and siblings, kept distinct from a
// desugared `name = name + value` so that the compiler can choose an
// in-place instruction when the target is a simple local.
type AddAssignStmt struct {
	StmtBase
	Name  string
	Op    string // "+", "-", "*", "/", etc.
	Value Expr
}

func (AddAssignStmt) isStmt() {}

// IfStmt is `if cond; then else end`.
type IfStmt struct {
	StmtBase
	Cond Expr
	Then *Block
	Else *Block // nil if no else branch
}

func (IfStmt) isStmt() {}

// WhileStmt is `while cond; body end`.
type WhileStmt struct {
	StmtBase
	Cond Expr
	Body *Block
}

func (WhileStmt) isStmt() {}

// ForStmt is a numeric range for: `for i = start:step:end; body end`.
type ForStmt struct {
	StmtBase
	Var   string
	Start Expr
	Step  Expr // nil means step 1
	End   Expr
	Body  *Block
}

func (ForStmt) isStmt() {}

// ForEachStmt iterates a single binding over an iterable.
type ForEachStmt struct {
	StmtBase
	Var      string
	Iterable Expr
	Body     *Block
}

func (ForEachStmt) isStmt() {}

// ForEachTupleStmt destructures each element into multiple bindings:
// `for (a, b) in pairs; body end`.
type ForEachTupleStmt struct {
	StmtBase
	Vars     []string
	Iterable Expr
	Body     *Block
}

func (ForEachTupleStmt) isStmt() {}

// ReturnStmt returns from the enclosing function.
type ReturnStmt struct {
	StmtBase
	Value Expr // nil for bare `return`
}

func (ReturnStmt) isStmt() {}

// BreakStmt and ContinueStmt exit or continue the nearest enclosing loop.
type BreakStmt struct{ StmtBase }

func (BreakStmt) isStmt() {}

type ContinueStmt struct{ StmtBase }

func (ContinueStmt) isStmt() {}

// TryStmt is try/catch/else/finally. CatchVar is "" when the catch clause
// does not bind the caught value.
type TryStmt struct {
	StmtBase
	Try      *Block
	CatchVar string
	Catch    *Block // nil if no catch clause
	Else     *Block // nil if no else clause (runs only if no exception raised)
	Finally  *Block // nil if no finally clause
}

func (TryStmt) isStmt() {}

// TimedStmt wraps the block of Base's @time macro, lowered to a statement
// rather than left as a macro call. The compiler runs the body as a plain
// block; no wall-clock or allocation stats are collected or reported.
type TimedStmt struct {
	StmtBase
	Body *Block
}

func (TimedStmt) isStmt() {}

// TestStmt is a single `@test cond` assertion.
type TestStmt struct {
	StmtBase
	Cond Expr
}

func (TestStmt) isStmt() {}

// TestSetStmt groups TestStmts (and nested TestSetStmts) under a named set.
type TestSetStmt struct {
	StmtBase
	Name string
	Body *Block
}

func (TestSetStmt) isStmt() {}

// TestThrowsStmt is `@test_throws ExcType expr`.
type TestThrowsStmt struct {
	StmtBase
	ExcType JuliaType
	X       Expr
}

func (TestThrowsStmt) isStmt() {}

// IndexAssignStmt is `arr[i, j] = value`.
type IndexAssignStmt struct {
	StmtBase
	Target  Expr
	Indices []Expr
	Value   Expr
}

func (IndexAssignStmt) isStmt() {}

// FieldAssignStmt is `obj.field = value`.
type FieldAssignStmt struct {
	StmtBase
	Target Expr
	Field  string
	Value  Expr
}

func (FieldAssignStmt) isStmt() {}

// DestructuringAssignStmt is `(a, b) = pair` or `(a, b...) = list`.
type DestructuringAssignStmt struct {
	StmtBase
	Names       []string
	RestIndex   int // index within Names that captures the remainder, -1 if none
	Value       Expr
}

func (DestructuringAssignStmt) isStmt() {}

// DictAssignStmt is `d[key] = value` for dictionary-typed targets. It is
// kept distinct from IndexAssignStmt in the IR, but the compiler emits the
// same OpIndexSet for both.
type DictAssignStmt struct {
	StmtBase
	Target Expr
	Key    Expr
	Value  Expr
}

func (DictAssignStmt) isStmt() {}

// FunctionDefStmt declares a function at statement position (local function
// definitions nested inside another function's body).
type FunctionDefStmt struct {
	StmtBase
	Fn *Function
}

func (FunctionDefStmt) isStmt() {}

// LabelStmt and GotoStmt implement Base's (rare) labeled-goto control flow.
type LabelStmt struct {
	StmtBase
	Name string
}

func (LabelStmt) isStmt() {}

type GotoStmt struct {
	StmtBase
	Label string
}

func (GotoStmt) isStmt() {}

// UsingStmt is a block-local `using Mod` (as opposed to Program.UsingClauses
// at top level).
type UsingStmt struct {
	StmtBase
	Module string
	Names  []string
}

func (UsingStmt) isStmt() {}

// ExportStmt re-exports names from the enclosing module.
type ExportStmt struct {
	StmtBase
	Names []string
}

func (ExportStmt) isStmt() {}

// NewBlock is a convenience constructor.
func NewBlock(stmts ...Stmt) *Block { return &Block{Stmts: stmts} }
