package lattice

import (
	"fmt"

	"github.com/corelang/corevm/internal/ir"
)

// SplitEnv holds the two environments produced by narrowing env against a
// branch condition.
type SplitEnv struct {
	Then *TypeEnv
	Else *TypeEnv
}

// SplitEnvByCondition narrows env according to condition, recognising
// isa(val, Type), val === / !== / == / != nothing, !cond, cond1 && cond2,
// and cond1 || cond2. Any other condition shape leaves both branches
// identical to env (no narrowing), matching the original's fall-through.
func SplitEnvByCondition(env *TypeEnv, condition ir.Expr) SplitEnv {
	switch c := condition.(type) {
	case *ir.Call:
		if c.Name == "isa" && len(c.Args) == 2 {
			return handleIsaCondition(env, c.Args[0], c.Args[1])
		}
	case *ir.Builtin:
		if c.Name == "isa" && len(c.Args) == 2 {
			return handleIsaCondition(env, c.Args[0], c.Args[1])
		}
	case *ir.BinaryOp:
		switch c.Op {
		case "===":
			if isNothingLiteral(c.Right) {
				return handleNothingCheck(env, c.Left, true)
			}
			if isNothingLiteral(c.Left) {
				return handleNothingCheck(env, c.Right, true)
			}
		case "!==":
			if isNothingLiteral(c.Right) {
				return handleNothingCheck(env, c.Left, false)
			}
			if isNothingLiteral(c.Left) {
				return handleNothingCheck(env, c.Right, false)
			}
		case "==":
			if isNothingLiteral(c.Right) {
				return handleNothingCheck(env, c.Left, true)
			}
			if isNothingLiteral(c.Left) {
				return handleNothingCheck(env, c.Right, true)
			}
		case "!=":
			if isNothingLiteral(c.Right) {
				return handleNothingCheck(env, c.Left, false)
			}
			if isNothingLiteral(c.Left) {
				return handleNothingCheck(env, c.Right, false)
			}
		case "&&":
			split1 := SplitEnvByCondition(env, c.Left)
			split2 := SplitEnvByCondition(split1.Then, c.Right)
			elseEnv := split1.Else.Clone()
			elseEnv.Merge(split2.Else)
			return SplitEnv{Then: split2.Then, Else: elseEnv}
		case "||":
			split1 := SplitEnvByCondition(env, c.Left)
			split2 := SplitEnvByCondition(split1.Else, c.Right)
			thenEnv := split1.Then.Clone()
			thenEnv.Merge(split2.Then)
			return SplitEnv{Then: thenEnv, Else: split2.Else}
		}
	case *ir.UnaryOp:
		if c.Op == "!" {
			inner := SplitEnvByCondition(env, c.X)
			return SplitEnv{Then: inner.Else, Else: inner.Then}
		}
	}
	return SplitEnv{Then: env.Clone(), Else: env.Clone()}
}

// extractNarrowablePath recognises the three path shapes abstract
// interpretation can track: a bare variable, a single-level field access on
// a variable, and a constant-indexed element of a variable. Anything else
// (nested field access, non-constant indices, arbitrary expressions) is not
// trackable and returns ("", false).
func extractNarrowablePath(expr ir.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ir.Var:
		return e.Name, true
	case *ir.FieldAccess:
		if v, ok := e.Target.(*ir.Var); ok {
			return v.Name + "." + e.Field, true
		}
		return "", false
	case *ir.Index:
		if v, ok := e.Target.(*ir.Var); ok && len(e.Indices) == 1 {
			if idx, ok := extractConstantIndex(e.Indices[0]); ok {
				return fmt.Sprintf("%s[%s]", v.Name, idx), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func extractConstantIndex(expr ir.Expr) (string, bool) {
	lit, ok := expr.(*ir.Literal)
	if !ok {
		return "", false
	}
	switch lit.Kind {
	case ir.LitInt:
		return fmt.Sprintf("%d", lit.Int), true
	case ir.LitBool:
		if lit.Bool {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

func handleIsaCondition(env *TypeEnv, valExpr, typeExpr ir.Expr) SplitEnv {
	path, ok := extractNarrowablePath(valExpr)
	if !ok {
		return SplitEnv{Then: env.Clone(), Else: env.Clone()}
	}
	target, ok := extractTypeFromExpr(typeExpr)
	if !ok {
		return SplitEnv{Then: env.Clone(), Else: env.Clone()}
	}
	current, ok := env.Get(path)
	if !ok {
		return SplitEnv{Then: env.Clone(), Else: env.Clone()}
	}

	thenEnv := env.Clone()
	thenEnv.Set(path, current.Meet(Concrete(target)))

	elseEnv := env.Clone()
	elseEnv.Set(path, current.Subtract(Concrete(target)))

	return SplitEnv{Then: thenEnv, Else: elseEnv}
}

func handleNothingCheck(env *TypeEnv, valExpr ir.Expr, isEquality bool) SplitEnv {
	path, ok := extractNarrowablePath(valExpr)
	if !ok {
		return SplitEnv{Then: env.Clone(), Else: env.Clone()}
	}
	current, ok := env.Get(path)
	if !ok {
		return SplitEnv{Then: env.Clone(), Else: env.Clone()}
	}

	nothingType := Concrete(ir.TNothing)

	var thenType, elseType LatticeType
	if isEquality {
		thenType = current.Meet(nothingType)
		elseType = current.Subtract(nothingType)
	} else {
		thenType = current.Subtract(nothingType)
		elseType = current.Meet(nothingType)
	}

	thenEnv := env.Clone()
	thenEnv.Set(path, thenType)

	elseEnv := env.Clone()
	elseEnv.Set(path, elseType)

	return SplitEnv{Then: thenEnv, Else: elseEnv}
}

func isNothingLiteral(expr ir.Expr) bool {
	lit, ok := expr.(*ir.Literal)
	return ok && lit.Kind == ir.LitNothing
}

// extractTypeFromExpr recognises a bare type-name variable reference as
// one of the built-in primitive types. Parametric and user-defined type
// expressions are not yet narrowable targets (spec Open Question: the
// user-extensible abstract hierarchy is deferred, see DESIGN.md).
func extractTypeFromExpr(expr ir.Expr) (ir.JuliaType, bool) {
	v, ok := expr.(*ir.Var)
	if !ok {
		return nil, false
	}
	switch v.Name {
	case "Int8":
		return ir.TInt8, true
	case "Int16":
		return ir.TInt16, true
	case "Int32":
		return ir.TInt32, true
	case "Int", "Int64":
		return ir.TInt64, true
	case "Int128":
		return ir.TInt128, true
	case "BigInt":
		return ir.TBigInt, true
	case "UInt8":
		return ir.TUInt8, true
	case "UInt16":
		return ir.TUInt16, true
	case "UInt32":
		return ir.TUInt32, true
	case "UInt", "UInt64":
		return ir.TUInt64, true
	case "UInt128":
		return ir.TUInt128, true
	case "Float16":
		return ir.TFloat16, true
	case "Float32":
		return ir.TFloat32, true
	case "Float", "Float64":
		return ir.TFloat64, true
	case "BigFloat":
		return ir.TBigFloat, true
	case "Bool":
		return ir.TBool, true
	case "String":
		return ir.TString, true
	case "Char":
		return ir.TChar, true
	case "Nothing":
		return ir.TNothing, true
	case "Missing":
		return ir.TMissing, true
	case "Symbol":
		return ir.TSymbol, true
	default:
		return nil, false
	}
}
