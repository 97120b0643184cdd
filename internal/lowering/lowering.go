// Package lowering walks a read-only internal/cst.Node tree produced by an
// external parser and builds the internal/ir.Program the rest of the core
// consumes (spec §4.1). It never mutates or retains the CST: every CIR node
// it produces copies what it needs (text, span, recursively-lowered
// children) so the parser's tree can be discarded afterward.
//
// Conventions the supplied cst.Node tree must follow (the external parser's
// contract with this package, not a detail of the CIR itself):
//   - KindBinaryOp / KindBroadcastOp: Text() is the operator, NamedChildren()
//     is [left, right].
//   - KindUnaryOp: Text() is the operator, NamedChildren() is [operand].
//   - KindChainedCompare: Text() is a space-separated operator list,
//     NamedChildren() is the operand list (one more than the operator count).
//   - KindCall: Text() is the callee name, NamedChildren() are the
//     positional argument nodes; KindKeywordParam-kinded children among the
//     arguments carry keyword arguments.
//   - KindModuleCall: NamedChildren() is [module identifier, function
//     identifier, args...].
//   - KindParametricType: Text() is the base identifier, NamedChildren()
//     are the type-parameter nodes.
//   - KindFunctionDef: FindChild(KindFunctionSig) locates the signature;
//     FindChild(KindBlock) locates the body.
package lowering

import (
	"fmt"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

// UnsupportedFeature is returned when lowering encounters a CST node kind
// it does not recognise, rather than panicking on malformed or
// ahead-of-support input (spec §4.1 "Failure semantics").
type UnsupportedFeature struct {
	Kind cst.NodeKind
	Span cst.Span
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("unsupported feature: %s at %s:%d:%d", e.Kind, e.Span.File, e.Span.StartLine, e.Span.StartColumn)
}

// Context carries the state threaded through a single lowering run: the
// macro table (populated as MacroDefs are encountered, consumed by later
// MacroCall expansion) and a gensym counter for hygiene-renamed bindings.
// No lowering path calls gensym: macro expansion and comprehension lowering
// introduce no renamed bindings.
//
// Lambda bodies and top-level function bodies share this same Context and
// the same lowerBlock/lowerStmt/lowerExpr entry points; there is no second,
// parallel lowering path for lambdas (spec Open Question, see DESIGN.md).
type Context struct {
	macros     map[string]*ir.MacroDef
	gensymNext int
}

// NewContext returns a fresh lowering context with no macros registered.
func NewContext() *Context {
	return &Context{macros: make(map[string]*ir.MacroDef)}
}

// gensym produces a hygienic name guaranteed unique within this Context's
// lifetime, monotonically increasing so repeated expansions never collide.
func (c *Context) gensym(prefix string) string {
	c.gensymNext++
	return fmt.Sprintf("#%s_%d", prefix, c.gensymNext)
}

func baseStmtOf(span cst.Span) ir.StmtBase { return ir.StmtBase{Span: span} }
func baseExprOf(span cst.Span) ir.ExprBase { return ir.ExprBase{Span: span} }

// LowerProgram lowers a whole compilation unit rooted at a KindProgram node.
func LowerProgram(root cst.Node) (*ir.Program, error) {
	if root.Kind() != cst.KindProgram {
		return nil, &UnsupportedFeature{Kind: root.Kind(), Span: root.Span()}
	}
	ctx := NewContext()
	prog := &ir.Program{}

	for _, child := range root.NamedChildren() {
		if err := ctx.lowerTopLevel(child, prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}
