package lowering

import (
	"strings"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

// tryLowerMacroDef recognises a macro *definition*, which arrives as a
// KindMacroCall node whose Text() is the literal keyword "macro": its first
// named child is the signature (Text() the macro name, its own named
// children the parameter names), its last named child the body block.
// Anything else reaching here is an ordinary macro invocation, left for
// expandMacroCall.
func (c *Context) tryLowerMacroDef(n cst.Node) (*ir.MacroDef, bool) {
	if n.Text() != "macro" {
		return nil, false
	}
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, false
	}
	sig := children[0]
	bodyNode := children[len(children)-1]

	def := &ir.MacroDef{Name: sig.Text(), Span: n.Span()}
	for _, p := range sig.NamedChildren() {
		def.Params = append(def.Params, ir.Parameter{Name: p.Text(), Type: ir.TAny, Span: p.Span()})
	}

	body, err := c.lowerBlock(bodyNode)
	if err != nil {
		return nil, false
	}
	def.Body = body

	c.macros[def.Name] = def
	return def, true
}

// expandMacroCall expands a macro invocation `@name(args...)` into a
// LetBlock binding each parameter name to its lowered argument expression
// around the macro's (already-lowered) body, reusing the block's own
// lexical scoping for hygiene rather than gensym-renaming bindings: each
// expansion site gets its own LetBlock activation, so two expansions of the
// same macro never share state even though they reference the same
// Body pointer.
//
// `@generated` is special-cased (spec §4.1): its compile-time-body-as-
// generator semantics belong to internal/compiler, not lowering, so it is
// passed through as a marker Builtin rather than expanded here.
func (c *Context) expandMacroCall(n cst.Node) (ir.Expr, error) {
	span := n.Span()
	name := strings.TrimPrefix(n.Text(), "@")

	if name == "generated" {
		return &ir.Builtin{Name: "@generated", ExprBase: baseExprOf(span)}, nil
	}

	def, ok := c.macros[name]
	if !ok {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
	}

	var argExprs []ir.Expr
	for _, child := range n.NamedChildren() {
		a, err := c.lowerExpr(child)
		if err != nil {
			return nil, err
		}
		argExprs = append(argExprs, a)
	}

	names := make([]string, len(def.Params))
	values := make([]ir.Expr, len(def.Params))
	for i, p := range def.Params {
		names[i] = p.Name
		if i < len(argExprs) {
			values[i] = argExprs[i]
		} else {
			values[i] = &ir.Literal{Kind: ir.LitNothing, ExprBase: baseExprOf(span)}
		}
	}

	return &ir.LetBlock{Names: names, Values: values, Body: def.Body, ExprBase: baseExprOf(span)}, nil
}
