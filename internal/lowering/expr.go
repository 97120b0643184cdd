package lowering

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

// unarySugar maps Base's Unicode/operator shorthand to the builtin name the
// VM actually dispatches on (spec §4.1 "Unary sugar").
var unarySugar = map[string]string{
	"√": "sqrt",
	"∛": "cbrt",
}

func (c *Context) lowerExpr(n cst.Node) (ir.Expr, error) {
	span := n.Span()
	switch n.Kind() {
	case cst.KindIntLiteral:
		return c.lowerIntLiteral(n)

	case cst.KindFloatLiteral:
		f, err := strconv.ParseFloat(n.Text(), 64)
		if err != nil {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		return &ir.Literal{Kind: ir.LitFloat, Float: f, ExprBase: baseExprOf(span)}, nil

	case cst.KindBoolLiteral:
		return &ir.Literal{Kind: ir.LitBool, Bool: n.Text() == "true", ExprBase: baseExprOf(span)}, nil

	case cst.KindStringLiteral:
		return &ir.Literal{Kind: ir.LitStr, Str: n.Text(), ExprBase: baseExprOf(span)}, nil

	case cst.KindPrefixedString:
		return c.lowerPrefixedString(n)

	case cst.KindCharLiteral:
		r := []rune(n.Text())
		var ch rune
		if len(r) > 0 {
			ch = r[0]
		}
		return &ir.Literal{Kind: ir.LitChar, Char: ch, ExprBase: baseExprOf(span)}, nil

	case cst.KindNothingLiteral:
		return &ir.Literal{Kind: ir.LitNothing, ExprBase: baseExprOf(span)}, nil

	case cst.KindMissingLiteral:
		return &ir.Literal{Kind: ir.LitMissing, ExprBase: baseExprOf(span)}, nil

	case cst.KindIdentifier:
		return &ir.Var{Name: n.Text(), ExprBase: baseExprOf(span)}, nil

	case cst.KindBinaryOp:
		return c.lowerBinaryOp(n)

	case cst.KindChainedCompare:
		return c.lowerChainedCompare(n)

	case cst.KindUnaryOp:
		x, err := c.lastChildExpr(n)
		if err != nil {
			return nil, err
		}
		op := n.Text()
		if mapped, ok := unarySugar[op]; ok {
			return &ir.Builtin{Name: mapped, Args: []ir.Expr{x}, ExprBase: baseExprOf(span)}, nil
		}
		return &ir.UnaryOp{Op: op, X: x, ExprBase: baseExprOf(span)}, nil

	case cst.KindBroadcastOp:
		return c.lowerBroadcastOp(n)

	case cst.KindCall:
		return c.lowerCall(n)

	case cst.KindModuleCall:
		return c.lowerModuleCall(n)

	case cst.KindIndex:
		children := n.NamedChildren()
		if len(children) == 0 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		target, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		var indices []ir.Expr
		for _, idxNode := range children[1:] {
			if idxNode.Kind() == cst.KindIdentifier && idxNode.Text() == ":" {
				indices = append(indices, &ir.SliceAll{ExprBase: baseExprOf(idxNode.Span())})
				continue
			}
			idx, err := c.lowerExpr(idxNode)
			if err != nil {
				return nil, err
			}
			indices = append(indices, idx)
		}
		return &ir.Index{Target: target, Indices: indices, ExprBase: baseExprOf(span)}, nil

	case cst.KindFieldAccess:
		children := n.NamedChildren()
		if len(children) == 0 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		target, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		return &ir.FieldAccess{Target: target, Field: n.Text(), ExprBase: baseExprOf(span)}, nil

	case cst.KindTernary:
		children := n.NamedChildren()
		if len(children) != 3 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		cond, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		then, err := c.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
		els, err := c.lowerExpr(children[2])
		if err != nil {
			return nil, err
		}
		return &ir.Ternary{Cond: cond, Then: then, Else: els, ExprBase: baseExprOf(span)}, nil

	case cst.KindArrayLiteral:
		return c.lowerArrayLiteral(n)

	case cst.KindTupleLiteral:
		var elems []ir.Expr
		for _, child := range n.NamedChildren() {
			e, err := c.lowerExpr(child)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return &ir.TupleLiteral{Elems: elems, ExprBase: baseExprOf(span)}, nil

	case cst.KindNamedTuple:
		var names []string
		var elems []ir.Expr
		for _, child := range n.NamedChildren() {
			names = append(names, child.Text())
			e, err := c.lastChildExpr(child)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return &ir.NamedTupleLiteral{Names: names, Elems: elems, ExprBase: baseExprOf(span)}, nil

	case cst.KindDictLiteral:
		var keys, values []ir.Expr
		for _, child := range n.NamedChildren() {
			kv := child.NamedChildren()
			if len(kv) != 2 {
				return nil, &UnsupportedFeature{Kind: child.Kind(), Span: child.Span()}
			}
			k, err := c.lowerExpr(kv[0])
			if err != nil {
				return nil, err
			}
			v, err := c.lowerExpr(kv[1])
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			values = append(values, v)
		}
		return &ir.DictLiteral{Keys: keys, Values: values, ExprBase: baseExprOf(span)}, nil

	case cst.KindRange:
		return c.lowerRange(n)

	case cst.KindComprehension:
		return c.lowerComprehension(n)

	case cst.KindGenerator:
		result, vr, iter, cond, err := c.lowerComprehensionParts(n)
		if err != nil {
			return nil, err
		}
		return &ir.Generator{Result: result, Var: vr, Iter: iter, Cond: cond, ExprBase: baseExprOf(span)}, nil

	case cst.KindLetBlock:
		return c.lowerLetBlock(n)

	case cst.KindStringInterp:
		var parts []ir.Expr
		for _, child := range n.NamedChildren() {
			p, err := c.lowerExpr(child)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return &ir.StringConcat{Parts: parts, ExprBase: baseExprOf(span)}, nil

	case cst.KindPipe:
		// `x |> f` lowers to `f(x)`: a direct call with the piped value
		// prepended to the argument list (spec §4.1 "Special-operator
		// rewrites").
		children := n.NamedChildren()
		if len(children) != 2 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		val, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		fnName, callArgs, err := c.calleeAndArgs(children[1])
		if err != nil {
			return nil, err
		}
		return &ir.Call{Name: fnName, Args: append([]ir.Expr{val}, callArgs...), ExprBase: baseExprOf(span)}, nil

	case cst.KindCompose:
		// `f ∘ g` composed into a single ComposedFunction call wrapper
		// recognised by the VM at call time (spec §4.5 "ComposedFunction
		// flattening"); lowering just records the two function references.
		children := n.NamedChildren()
		if len(children) != 2 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		outer, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		inner, err := c.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
		return &ir.Builtin{Name: "__compose", Args: []ir.Expr{outer, inner}, ExprBase: baseExprOf(span)}, nil

	case cst.KindParametricType:
		return c.lowerParametricTypeExpr(n)

	case cst.KindMacroCall:
		return c.expandMacroCall(n)

	case cst.KindAssign:
		val, err := c.lastChildExpr(n)
		if err != nil {
			return nil, err
		}
		return &ir.AssignExpr{Name: n.Text(), Value: val, ExprBase: baseExprOf(span)}, nil

	case cst.KindReturn:
		children := n.NamedChildren()
		if len(children) == 0 {
			return &ir.ReturnExpr{ExprBase: baseExprOf(span)}, nil
		}
		v, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		return &ir.ReturnExpr{Value: v, ExprBase: baseExprOf(span)}, nil

	default:
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
	}
}

func (c *Context) lowerIntLiteral(n cst.Node) (ir.Expr, error) {
	span := n.Span()
	text := strings.ReplaceAll(n.Text(), "_", "")
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return &ir.Literal{Kind: ir.LitInt, Int: i, ExprBase: baseExprOf(span)}, nil
	}
	bi, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
	}
	return &ir.Literal{Kind: ir.LitBigInt, BigInt: bi, ExprBase: baseExprOf(span)}, nil
}

// int128Parts splits a decimal/hex literal into the two's-complement
// high/low 64-bit words ir.Literal carries for Int128/UInt128 (math/big
// since a fixed-width Go integer cannot parse an arbitrary 128-bit literal
// losslessly).
func int128Parts(s string) (hi int64, lo uint64) {
	bi, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return 0, 0
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	lo = new(big.Int).And(bi, mask).Uint64()
	hi = new(big.Int).Rsh(bi, 64).Int64()
	return hi, lo
}

func (c *Context) lowerPrefixedString(n cst.Node) (ir.Expr, error) {
	span := n.Span()
	prefix, body := splitPrefixedString(n.Text())
	switch prefix {
	case "big":
		bi, ok := new(big.Int).SetString(body, 0)
		if !ok {
			bi = new(big.Int)
		}
		return &ir.Literal{Kind: ir.LitBigInt, BigInt: bi, ExprBase: baseExprOf(span)}, nil
	case "raw", "v":
		return &ir.Literal{Kind: ir.LitStr, Str: body, ExprBase: baseExprOf(span)}, nil
	case "r":
		return &ir.Literal{Kind: ir.LitRegex, Regex: body, ExprBase: baseExprOf(span)}, nil
	case "b":
		return &ir.Literal{Kind: ir.LitStr, Str: body, ExprBase: baseExprOf(span)}, nil
	case "Int128", "UInt128":
		hi, lo := int128Parts(body)
		return &ir.Literal{Kind: ir.LitInt128, Int128Hi: hi, Int128Lo: lo, ExprBase: baseExprOf(span)}, nil
	case "MIME":
		return &ir.Literal{Kind: ir.LitStr, Str: body, ExprBase: baseExprOf(span)}, nil
	default:
		// Generic `p"..."` dispatches to the user-defined @p_str macro.
		return &ir.Call{Name: "@" + prefix + "_str", Args: []ir.Expr{&ir.Literal{Kind: ir.LitStr, Str: body}}, ExprBase: baseExprOf(span)}, nil
	}
}

func splitPrefixedString(text string) (prefix, body string) {
	idx := strings.IndexByte(text, '"')
	if idx < 0 {
		return "", text
	}
	return text[:idx], strings.Trim(text[idx:], `"`)
}

func (c *Context) lowerBinaryOp(n cst.Node) (ir.Expr, error) {
	children := n.NamedChildren()
	if len(children) != 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	op := normalizeSpecialOperator(n.Text())
	left, err := c.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}
	right, err := c.lowerExpr(children[1])
	if err != nil {
		return nil, err
	}

	switch op {
	case "isa":
		return &ir.Builtin{Name: "isa", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	case "÷":
		return &ir.Builtin{Name: "div", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	case "≈":
		return &ir.Builtin{Name: "isapprox", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	case "≡":
		op = "==="
	case ">:":
		return &ir.Builtin{Name: "__supertype_of", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	case "∪":
		return &ir.Builtin{Name: "union", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	case "∩":
		return &ir.Builtin{Name: "intersect", Args: []ir.Expr{left, right}, ExprBase: baseExprOf(n.Span())}, nil
	}

	return &ir.BinaryOp{Op: op, Left: left, Right: right, ExprBase: baseExprOf(n.Span())}, nil
}

// normalizeSpecialOperator maps the handful of Unicode aliases Base accepts
// onto their canonical ASCII operator text before any further rewriting
// (spec §4.1 "Special-operator rewrites").
func normalizeSpecialOperator(op string) string {
	switch op {
	case "≠":
		return "!="
	case "≤":
		return "<="
	case "≥":
		return ">="
	default:
		return op
	}
}

func (c *Context) lowerChainedCompare(n cst.Node) (ir.Expr, error) {
	ops := strings.Fields(n.Text())
	children := n.NamedChildren()
	if len(children) != len(ops)+1 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	var operands []ir.Expr
	for _, child := range children {
		e, err := c.lowerExpr(child)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	for i, op := range ops {
		ops[i] = normalizeSpecialOperator(op)
	}
	return &ir.ChainedCompare{Operands: operands, Ops: ops, ExprBase: baseExprOf(n.Span())}, nil
}

func (c *Context) lowerBroadcastOp(n cst.Node) (ir.Expr, error) {
	var args []ir.Expr
	for _, child := range n.NamedChildren() {
		e, err := c.lowerExpr(child)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	text := strings.TrimPrefix(n.Text(), ".")
	if isIdentifierLike(text) {
		// `f.(args...)` broadcast-call form.
		return &ir.BroadcastOp{Fn: text, Args: args, ExprBase: baseExprOf(n.Span())}, nil
	}
	return &ir.BroadcastOp{Op: normalizeSpecialOperator(text), Args: args, ExprBase: baseExprOf(n.Span())}, nil
}

func isIdentifierLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (c *Context) calleeAndArgs(n cst.Node) (string, []ir.Expr, error) {
	if n.Kind() == cst.KindIdentifier {
		return n.Text(), nil, nil
	}
	if n.Kind() != cst.KindCall {
		return "", nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	var args []ir.Expr
	for _, child := range n.NamedChildren() {
		if child.Kind() == cst.KindKeywordParam {
			continue
		}
		a, err := c.lowerExpr(child)
		if err != nil {
			return "", nil, err
		}
		args = append(args, a)
	}
	return n.Text(), args, nil
}

func (c *Context) lowerCall(n cst.Node) (ir.Expr, error) {
	span := n.Span()
	name := n.Text()

	if strings.HasPrefix(name, "@") {
		return c.expandMacroCall(n)
	}

	var args []ir.Expr
	var kwArgs []ir.KwArg
	for _, child := range n.NamedChildren() {
		if child.Kind() == cst.KindKeywordParam {
			val, err := c.lastChildExpr(child)
			if err != nil {
				return nil, err
			}
			kwArgs = append(kwArgs, ir.KwArg{Name: child.Text(), Value: val})
			continue
		}
		a, err := c.lowerExpr(child)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	if structTypeNames[name] {
		return &ir.New{StructName: name, Args: args, KwArgs: kwArgs, ExprBase: baseExprOf(span)}, nil
	}

	return &ir.Call{Name: name, Args: args, KwArgs: kwArgs, ExprBase: baseExprOf(span)}, nil
}

// structTypeNames is populated by the caller of LowerProgram when known in
// advance (e.g. a REPL session with prior definitions); in a single-pass
// compile it stays empty and struct construction calls fall through to the
// ordinary Call path, which the compiler still resolves correctly since
// struct constructors are registered as callable methods in the method
// table (spec §4.5).
var structTypeNames = map[string]bool{}

func (c *Context) lowerModuleCall(n cst.Node) (ir.Expr, error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	module := children[0].Text()
	name := children[1].Text()
	var args []ir.Expr
	var kwArgs []ir.KwArg
	for _, child := range children[2:] {
		if child.Kind() == cst.KindKeywordParam {
			val, err := c.lastChildExpr(child)
			if err != nil {
				return nil, err
			}
			kwArgs = append(kwArgs, ir.KwArg{Name: child.Text(), Value: val})
			continue
		}
		a, err := c.lowerExpr(child)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return &ir.ModuleCall{Module: module, Name: name, Args: args, KwArgs: kwArgs, ExprBase: baseExprOf(n.Span())}, nil
}

// lowerArrayLiteral lowers `[e1, e2, ...]` and the multi-dimensional literal
// form where one inner TupleLiteral child per row carries that row's
// elements. Text() carries the explicit element-type name for the
// `Int64[1,2,3]` form and is empty otherwise.
func (c *Context) lowerArrayLiteral(n cst.Node) (ir.Expr, error) {
	var elemTy ir.JuliaType
	if name := n.Text(); name != "" {
		ty, err := c.lowerTypeExpr(&identOnly{n})
		if err != nil {
			return nil, err
		}
		elemTy = ty
	}

	var rows [][]ir.Expr
	for _, rowNode := range n.NamedChildren() {
		var row []ir.Expr
		if rowNode.Kind() == cst.KindTupleLiteral {
			for _, elemNode := range rowNode.NamedChildren() {
				e, err := c.lowerExpr(elemNode)
				if err != nil {
					return nil, err
				}
				row = append(row, e)
			}
		} else {
			e, err := c.lowerExpr(rowNode)
			if err != nil {
				return nil, err
			}
			row = append(row, e)
		}
		rows = append(rows, row)
	}
	return &ir.ArrayLiteral{Rows: rows, Elem: elemTy, ExprBase: baseExprOf(n.Span())}, nil
}

// identOnly adapts a node to report KindIdentifier so lowerTypeExpr resolves
// its Text() as a plain type name, used where a node's own kind carries an
// element-type name as incidental metadata rather than as its primary role.
type identOnly struct{ cst.Node }

func (i *identOnly) Kind() cst.NodeKind { return cst.KindIdentifier }

func (c *Context) lowerRange(n cst.Node) (ir.Expr, error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	start, err := c.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}
	var step ir.Expr
	stopNode := children[len(children)-1]
	if len(children) == 3 {
		step, err = c.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
	}
	stop, err := c.lowerExpr(stopNode)
	if err != nil {
		return nil, err
	}
	return &ir.Range{Start: start, Step: step, Stop: stop, ExprBase: baseExprOf(n.Span())}, nil
}

// lowerComprehensionParts handles the single-generator-clause shape shared
// by Generator and the single-clause path of Comprehension: children[1] is
// the generator clause itself (Text() is the bound variable, its own sole
// named child is the iterable), children[2] if present is the filter.
func (c *Context) lowerComprehensionParts(n cst.Node) (result ir.Expr, varName string, iter ir.Expr, cond ir.Expr, err error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, "", nil, nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	result, err = c.lowerExpr(children[0])
	if err != nil {
		return nil, "", nil, nil, err
	}
	clause := children[1]
	varName = clause.Text()
	clauseChildren := clause.NamedChildren()
	if len(clauseChildren) == 0 {
		return nil, "", nil, nil, &UnsupportedFeature{Kind: clause.Kind(), Span: clause.Span()}
	}
	iter, err = c.lowerExpr(clauseChildren[0])
	if err != nil {
		return nil, "", nil, nil, err
	}
	if len(children) > 2 {
		cond, err = c.lowerExpr(children[2])
		if err != nil {
			return nil, "", nil, nil, err
		}
	}
	return result, varName, iter, cond, nil
}

func (c *Context) lowerComprehension(n cst.Node) (ir.Expr, error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	result, err := c.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}

	// A multi-clause comprehension has more than one generator-clause
	// child after the result expression; each generator clause node
	// carries its own bound variable as Text() and its iterable as its
	// sole named child.
	var genClauses []cst.Node
	var condNode cst.Node
	for _, child := range children[1:] {
		if child.Kind() == cst.KindGenerator {
			genClauses = append(genClauses, child)
		} else {
			condNode = child
		}
	}

	if len(genClauses) <= 1 {
		vr := ""
		var iter ir.Expr
		if len(genClauses) == 1 {
			vr = genClauses[0].Text()
			iterChildren := genClauses[0].NamedChildren()
			if len(iterChildren) == 0 {
				return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
			}
			iter, err = c.lowerExpr(iterChildren[0])
			if err != nil {
				return nil, err
			}
		}
		var cond ir.Expr
		if condNode != nil {
			cond, err = c.lowerExpr(condNode)
			if err != nil {
				return nil, err
			}
		}
		return &ir.Comprehension{Result: result, Var: vr, Iter: iter, Cond: cond, ExprBase: baseExprOf(n.Span())}, nil
	}

	var vars []string
	var iters []ir.Expr
	for _, gc := range genClauses {
		vars = append(vars, gc.Text())
		iterChildren := gc.NamedChildren()
		if len(iterChildren) == 0 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
		}
		it, err := c.lowerExpr(iterChildren[0])
		if err != nil {
			return nil, err
		}
		iters = append(iters, it)
	}
	var cond ir.Expr
	if condNode != nil {
		cond, err = c.lowerExpr(condNode)
		if err != nil {
			return nil, err
		}
	}
	return &ir.MultiComprehension{Result: result, Vars: vars, Iters: iters, Cond: cond, ExprBase: baseExprOf(n.Span())}, nil
}

func (c *Context) lowerLetBlock(n cst.Node) (ir.Expr, error) {
	var names []string
	var values []ir.Expr
	body, _ := n.FindChild(cst.KindBlock)

	for _, child := range n.NamedChildren() {
		if child.Kind() == cst.KindAssign {
			names = append(names, child.Text())
			v, err := c.lastChildExpr(child)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}

	blk := &ir.Block{}
	if body != nil {
		var err error
		blk, err = c.lowerBlock(body)
		if err != nil {
			return nil, err
		}
	}
	return &ir.LetBlock{Names: names, Values: values, Body: blk, ExprBase: baseExprOf(n.Span())}, nil
}

// lowerParametricTypeExpr handles a parametric type written in expression
// position. A path made up only of concrete type identifiers (no call
// nested inside) lowers to Builtin(TypeOf, ...): the type is fully known at
// lowering time. A path containing a call (e.g. a type parameter that is
// itself a runtime expression, `Array{eltype(x)}`) lowers to
// DynamicTypeConstruct instead (spec §4.1 "Parametric type expressions").
func (c *Context) lowerParametricTypeExpr(n cst.Node) (ir.Expr, error) {
	if containsCall(n) {
		base := ir.Struct{Name: n.Text()}
		var params []ir.Expr
		for _, p := range n.NamedChildren() {
			pe, err := c.lowerExpr(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pe)
		}
		return &ir.DynamicTypeConstruct{Base: base, Params: params, ExprBase: baseExprOf(n.Span())}, nil
	}
	ty, err := c.lowerTypeExpr(n)
	if err != nil {
		return nil, err
	}
	return &ir.Builtin{Name: "TypeOf", Args: []ir.Expr{&ir.Literal{Kind: ir.LitModule, Module: ty.String()}}, ExprBase: baseExprOf(n.Span())}, nil
}

func containsCall(n cst.Node) bool {
	for _, child := range n.Children() {
		if child.Kind() == cst.KindCall || child.Kind() == cst.KindModuleCall {
			return true
		}
		if containsCall(child) {
			return true
		}
	}
	return false
}
