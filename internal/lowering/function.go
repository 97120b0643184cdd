package lowering

import (
	"errors"
	"strings"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

var errNotAnInt = errors.New("lowering: not an integer literal")

// lowerFunctionDef lowers a KindFunctionDef, KindCallableStruct, or
// KindGeneratedDef node. Callable-struct definitions `(::T)(args) = body`
// lower to an ordinary Function named "__callable_T" (spec §4.1 "Full
// function-signature parsing"); @generated defs keep their Function shape
// but mark nothing extra here, since @generated's compile-time-body-as-
// generator semantics are a compiler concern, not a lowering one.
func (c *Context) lowerFunctionDef(n cst.Node) (*ir.Function, error) {
	sig, sigOK := n.FindChild(cst.KindFunctionSig)
	body, _ := n.FindChild(cst.KindBlock)

	fn := &ir.Function{Span: n.Span()}
	if n.Kind() == cst.KindCallableStruct {
		fn.Name = "__callable_" + n.Text()
	} else {
		fn.Name = n.Text()
	}

	if where, ok := n.FindChild(cst.KindWhereClause); ok {
		fn.TypeParams = lowerWhereClause(where)
	}

	typeVars := make(map[string]bool, len(fn.TypeParams))
	for _, tp := range fn.TypeParams {
		typeVars[tp.Name] = true
	}

	if sigOK {
		params, kwParams, retType, err := c.lowerSignature(sig, typeVars)
		if err != nil {
			return nil, err
		}
		fn.Params = params
		fn.KeywordParams = kwParams
		fn.ReturnType = retType
	}

	if body != nil {
		blk, err := c.lowerBlock(body)
		if err != nil {
			return nil, err
		}
		fn.Body = blk
	} else {
		fn.Body = &ir.Block{}
	}

	return fn, nil
}

// lowerWhereClause turns `where {T, S<:Number}` into TypeParams, including
// the covariant-bound form used by dispatch (spec §4.5 point 2).
func lowerWhereClause(n cst.Node) []ir.TypeParam {
	var out []ir.TypeParam
	for _, child := range n.NamedChildren() {
		tp := ir.TypeParam{Name: child.Text()}
		if bound, ok := child.FindChild(cst.KindIdentifier); ok {
			tp.Bound = ir.Struct{Name: bound.Text()}
		}
		out = append(out, tp)
	}
	return out
}

// lowerSignature parses the parameter list, keyword-parameter list (after
// a semicolon separator in the source, conventionally a nested
// KindKeywordParam run among NamedChildren), and return type.
func (c *Context) lowerSignature(n cst.Node, typeVars map[string]bool) ([]ir.Parameter, []ir.KeywordParam, ir.JuliaType, error) {
	var params []ir.Parameter
	var kwParams []ir.KeywordParam
	var retType ir.JuliaType

	for _, child := range n.NamedChildren() {
		switch child.Kind() {
		case cst.KindParameter:
			p, err := c.lowerParameter(child, typeVars)
			if err != nil {
				return nil, nil, nil, err
			}
			params = append(params, p)
		case cst.KindKeywordParam:
			kp, err := c.lowerKeywordParam(child, typeVars)
			if err != nil {
				return nil, nil, nil, err
			}
			kwParams = append(kwParams, kp)
		default:
			// A trailing non-parameter named child is the return-type
			// annotation, e.g. `function f(x)::Int64`.
			ty, err := c.lowerTypeExprWithVars(child, typeVars)
			if err != nil {
				return nil, nil, nil, err
			}
			retType = ty
		}
	}
	return params, kwParams, retType, nil
}

func (c *Context) lowerParameter(n cst.Node, typeVars map[string]bool) (ir.Parameter, error) {
	p := ir.Parameter{Name: n.Text(), Span: n.Span()}
	typeChild, hasType := n.FindChild(cst.KindParametricType)
	if !hasType {
		typeChild, hasType = n.FindChild(cst.KindIdentifier)
	}
	if !hasType {
		p.Type = ir.TAny
		return p, nil
	}

	// Vararg{T} / Vararg{T,N} is a special parametric form recognised here
	// rather than left as an ordinary Struct, since it changes how the
	// compiler counts fixed vs. variadic arity.
	if typeChild.Kind() == cst.KindParametricType && typeChild.Text() == "Vararg" {
		parts := typeChild.NamedChildren()
		if len(parts) == 0 {
			p.IsVarargs = true
			p.Type = ir.TAny
			return p, nil
		}
		elemTy, err := c.lowerTypeExprWithVars(parts[0], typeVars)
		if err != nil {
			return p, err
		}
		p.IsVarargs = true
		p.Type = elemTy
		if len(parts) > 1 {
			if fixedN, convErr := parseIntText(parts[1].Text()); convErr == nil {
				p.VarargsFixedN = &fixedN
			}
		}
		return p, nil
	}

	ty, err := c.lowerTypeExprWithVars(typeChild, typeVars)
	if err != nil {
		return p, err
	}
	p.Type = ty

	if strings.HasSuffix(n.Text(), "...") {
		p.IsVarargs = true
		p.Name = strings.TrimSuffix(n.Text(), "...")
	}

	return p, nil
}

func parseIntText(s string) (int, error) {
	if s == "" {
		return 0, errNotAnInt
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotAnInt
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func (c *Context) lowerKeywordParam(n cst.Node, typeVars map[string]bool) (ir.KeywordParam, error) {
	kp := ir.KeywordParam{Name: n.Text(), Required: true}
	if n.Text() == "..." || strings.HasSuffix(n.Text(), "...") {
		kp.IsKwVararg = true
		kp.Name = strings.TrimSuffix(n.Text(), "...")
		return kp, nil
	}
	if typeChild, ok := n.FindChild(cst.KindParametricType); ok {
		ty, err := c.lowerTypeExprWithVars(typeChild, typeVars)
		if err != nil {
			return kp, err
		}
		kp.Type = ty
	} else if typeChild, ok := n.FindChild(cst.KindIdentifier); ok {
		ty, err := c.lowerTypeExprWithVars(typeChild, typeVars)
		if err != nil {
			return kp, err
		}
		kp.Type = ty
	}
	for _, child := range n.NamedChildren() {
		switch child.Kind() {
		case cst.KindAssign:
			kp.Required = false
			def, err := c.lowerExpr(child)
			if err != nil {
				return kp, err
			}
			kp.Default = def
		}
	}
	return kp, nil
}

// lowerTypeExprWithVars resolves a type-position node, recognising bound
// type-variable names from the enclosing where-clause, the `Type{T}`
// dispatch-on-type-object pattern, and the Vector/Matrix/Tuple/Union
// shorthands, before falling back to a plain Struct reference.
func (c *Context) lowerTypeExprWithVars(n cst.Node, typeVars map[string]bool) (ir.JuliaType, error) {
	if n.Kind() == cst.KindIdentifier && typeVars[n.Text()] {
		return ir.TypeVar{Name: n.Text()}, nil
	}
	return c.lowerTypeExpr(n)
}

// lowerTypeExpr resolves a type-position node with no enclosing
// where-clause context.
func (c *Context) lowerTypeExpr(n cst.Node) (ir.JuliaType, error) {
	switch n.Kind() {
	case cst.KindIdentifier:
		if prim, ok := primitiveByName[n.Text()]; ok {
			return prim, nil
		}
		return ir.Struct{Name: n.Text()}, nil

	case cst.KindParametricType:
		children := n.NamedChildren()
		base := n.Text()
		var params []ir.JuliaType
		for _, p := range children {
			pt, err := c.lowerTypeExpr(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
		switch base {
		case "Type":
			if len(params) != 1 {
				return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
			}
			return ir.TypeOf{Inner: params[0]}, nil
		case "Vector":
			if len(params) == 1 {
				return ir.VectorOf{Elem: params[0]}, nil
			}
		case "Matrix":
			if len(params) == 1 {
				return ir.MatrixOf{Elem: params[0]}, nil
			}
		case "Union":
			return ir.Union{Members: params}, nil
		}
		return ir.Struct{Name: base, Params: params}, nil

	case cst.KindTupleLiteral:
		var elems []ir.JuliaType
		for _, child := range n.NamedChildren() {
			t, err := c.lowerTypeExpr(child)
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return ir.TupleOf{Elems: elems}, nil

	default:
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
}

var primitiveByName = map[string]ir.Primitive{
	"Int8": ir.TInt8, "Int16": ir.TInt16, "Int32": ir.TInt32, "Int64": ir.TInt64,
	"Int": ir.TInt64, "Int128": ir.TInt128,
	"UInt8": ir.TUInt8, "UInt16": ir.TUInt16, "UInt32": ir.TUInt32, "UInt64": ir.TUInt64,
	"UInt": ir.TUInt64, "UInt128": ir.TUInt128,
	"Float16": ir.TFloat16, "Float32": ir.TFloat32, "Float64": ir.TFloat64, "Float": ir.TFloat64,
	"Bool": ir.TBool, "Char": ir.TChar, "String": ir.TString,
	"BigInt": ir.TBigInt, "BigFloat": ir.TBigFloat, "Symbol": ir.TSymbol,
	"Nothing": ir.TNothing, "Missing": ir.TMissing, "Any": ir.TAny,
}
