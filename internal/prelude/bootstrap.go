package prelude

import "github.com/corelang/corevm/internal/ir"

// numericLadder is the ordered set of concrete numeric (and numeric-like)
// types Base's promote_rule table covers, grouped into the widening tiers
// used to synthesize the pairwise rules in BaseProgram. The ordering
// mirrors Base's actual promotion ladder (bool < small ints < machine ints
// < rationals < floats < arbitrary precision < complex), not an arbitrary
// one, so BaseProgram's generated rules agree with the hand-checked
// ones spec §8 property 2 requires.
var numericLadder = []struct {
	typ  ir.JuliaType
	tier int
}{
	{ir.TBool, 0},
	{ir.TInt8, 1}, {ir.TInt16, 1}, {ir.TInt32, 1},
	{ir.TUInt8, 1}, {ir.TUInt16, 1}, {ir.TUInt32, 1},
	{ir.TInt64, 2}, {ir.TUInt64, 2}, {ir.TInt128, 2}, {ir.TUInt128, 2},
	{ir.Struct{Name: "Rational", Params: []ir.JuliaType{ir.TInt32}}, 3},
	{ir.Struct{Name: "Rational", Params: []ir.JuliaType{ir.TInt64}}, 3},
	{ir.TFloat16, 4}, {ir.TFloat32, 4},
	{ir.TFloat64, 5},
	{ir.TBigInt, 6},
	{ir.TBigFloat, 7},
	{ir.Struct{Name: "Complex", Params: []ir.JuliaType{ir.TInt64}}, 8},
	{ir.Struct{Name: "Complex", Params: []ir.JuliaType{ir.TFloat64}}, 9},
}

// promoteRuleFunction builds one Base `promote_rule(::Type{A}, ::Type{B})
// = C` method as IR, matching the two body shapes internal/compiler's
// tryRegisterPromotionRule recognises (spec §4.3 "Promotion rules"): a bare
// identifier for a primitive result, or Builtin(TypeOf, Literal(Str)) for a
// parametric one.
func promoteRuleFunction(a, b, result ir.JuliaType) *ir.Function {
	var resultExpr ir.Expr
	if s, ok := result.(ir.Struct); ok && len(s.Params) > 0 {
		resultExpr = &ir.Builtin{Name: "TypeOf", Args: []ir.Expr{
			&ir.Literal{Kind: ir.LitStr, Str: s.String()},
		}}
	} else {
		resultExpr = &ir.Var{Name: result.String()}
	}
	return &ir.Function{
		Name:            "promote_rule",
		IsBaseExtension: true,
		Params: []ir.Parameter{
			{Name: "_", Type: ir.TypeOf{Inner: a}},
			{Name: "_", Type: ir.TypeOf{Inner: b}},
		},
		Body: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: resultExpr}}},
	}
}

// buildPromotionRuleFunctions generates every unordered pair's promote_rule
// method from numericLadder's tiers: the wider tier wins, ties broken by
// ladder position so the output is deterministic across runs (required for
// the full-program/base cache hash to be stable).
func buildPromotionRuleFunctions() []*ir.Function {
	var out []*ir.Function
	for i := 0; i < len(numericLadder); i++ {
		for j := i + 1; j < len(numericLadder); j++ {
			a, b := numericLadder[i], numericLadder[j]
			result := a.typ
			if b.tier >= a.tier {
				result = b.typ
			}
			out = append(out, promoteRuleFunction(a.typ, b.typ, result))
		}
	}
	return out
}

// arithmeticIntrinsicStub is a Base-extension wrapper the VM falls back to
// (spec §4.5 "Fallbacks") when dynamic dispatch finds no user method; the
// VM's in-VM arithmetic (internal/vm/arithmetic.go) implements the actual
// behaviour, so these bodies only need to exist for method-table/dispatch
// bookkeeping (hasmethod/which/methods see them as the Base definition).
func arithmeticIntrinsicStub(name string, arity int) *ir.Function {
	params := make([]ir.Parameter, arity)
	for i := range params {
		params[i] = ir.Parameter{Name: "_", Type: ir.TAny}
	}
	return &ir.Function{
		Name:            name,
		IsBaseExtension: true,
		Params:          params,
		Body:            &ir.Block{Stmts: []ir.Stmt{&ir.ReturnStmt{Value: &ir.Literal{Kind: ir.LitUndef}}}},
	}
}

// BaseProgram returns the hand-authored Base prelude as IR directly,
// standing in for "parse prelude.Source() with the external CST parser and
// lower it" (spec §6.1: the surface parser is an external collaborator
// this repository does not implement). It carries enough of Base to
// exercise the full compile/cache/dispatch pipeline: the promotion table
// (spec §8 property 2: >50 rules including the two named pairs), and a
// representative slice of the arithmetic/comparison intrinsics (no
// container intrinsics)
// named throughout §4.5, each registered as a Base-extension method so
// user code can override them (exercising the base-cache-bypass rule).
func BaseProgram() *ir.Program {
	fns := buildPromotionRuleFunctions()
	for _, name := range []string{"+", "-", "*", "/"} {
		fns = append(fns, arithmeticIntrinsicStub(name, 2))
	}
	for _, name := range []string{"-", "!", "~"} {
		fns = append(fns, arithmeticIntrinsicStub(name, 1))
	}
	for _, name := range []string{"<", ">", "<=", ">=", "==", "isapprox", "div", "÷"} {
		fns = append(fns, arithmeticIntrinsicStub(name, 2))
	}

	return &ir.Program{
		Functions:         fns,
		Main:              &ir.Block{},
		BaseFunctionCount: len(fns),
	}
}
