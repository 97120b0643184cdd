package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelang/corevm/internal/compiler"
	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/vm"
)

func runProgram(t *testing.T, prog *ir.Program) vm.Value {
	t.Helper()
	c := compiler.NewCompiler()
	compiled, err := c.Compile(prog)
	require.NoError(t, err)
	machine := vm.New(compiled, c.MethodTables(), c.Hierarchy(), c.Promotion())
	result, err := machine.Run()
	require.NoError(t, err)
	return result
}

func intLit(n int64) *ir.Literal     { return &ir.Literal{Kind: ir.LitInt, Int: n} }
func floatLit(f float64) *ir.Literal { return &ir.Literal{Kind: ir.LitFloat, Float: f} }
func boolLit(b bool) *ir.Literal     { return &ir.Literal{Kind: ir.LitBool, Bool: b} }

// TestChainedComparisonTrue exercises spec §8 scenario 5:
// `1 < 2 < 3 < 4` -> true.
func TestChainedComparisonTrue(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.ChainedCompare{
				Ops:      []string{"<", "<", "<"},
				Operands: []ir.Expr{intLit(1), intLit(2), intLit(3), intLit(4)},
			}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindBool, result.Kind)
	assert.True(t, result.Bool)
}

// TestChainedComparisonFalse exercises the companion case: `1 < 2 < 1` ->
// false, where the second comparison fails.
func TestChainedComparisonFalse(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.ChainedCompare{
				Ops:      []string{"<", "<"},
				Operands: []ir.Expr{intLit(1), intLit(2), intLit(1)},
			}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindBool, result.Kind)
	assert.False(t, result.Bool)
}

// TestIntegerArithmeticStaysInteger covers spec §4.5 "Arithmetic":
// integer x integer stays integer.
func TestIntegerArithmeticStaysInteger(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "+", Left: intLit(1), Right: &ir.BinaryOp{Op: "+", Left: intLit(2), Right: intLit(3)}}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(6), result.I64)
}

// TestIntPlusFloatPromotes covers the default numeric-widening ladder:
// mixing an Int64 and a Float64 promotes to Float64.
func TestIntPlusFloatPromotes(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "+", Left: intLit(1), Right: floatLit(2.5)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindFloat64, result.Kind)
	assert.Equal(t, 3.5, result.F64)
}

// TestPowZeroIsOne covers spec §4.5: `x ^ 0` is `1`.
func TestPowZeroIsOne(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "^", Left: intLit(5), Right: intLit(0)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(1), result.I64)
}

// TestBoolArithmeticPromotesToInt64 covers spec §4.5: Bool+Bool (and by the
// same rule Bool-Bool, Bool*Bool, Bool÷Bool, Bool%Bool) widens to Int64
// rather than silently staying a (falsely-zeroed) Bool.
func TestBoolArithmeticPromotesToInt64(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "+", Left: boolLit(true), Right: boolLit(true)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(2), result.I64)
}

// TestBoolPowStaysBool covers spec §4.5: `Bool^Bool` is the one Bool/Bool
// arithmetic op that stays Bool, computed as `x || !y`.
func TestBoolPowStaysBool(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "^", Left: boolLit(false), Right: boolLit(true)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindBool, result.Kind)
	assert.False(t, result.Bool)
}

// TestNegateBoolPromotesToInt64 covers spec §4.5: unary minus on a Bool
// promotes to Int64 (`-true == -1`), it never stays Bool.
func TestNegateBoolPromotesToInt64(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.UnaryOp{Op: "-", X: boolLit(true)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(-1), result.I64)
}

// TestNegativeExponentPromotesToFloat covers spec §4.5: a negative integer
// exponent promotes the result to Float64 instead of truncating to 0.
func TestNegativeExponentPromotesToFloat(t *testing.T) {
	prog := &ir.Program{
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.BinaryOp{Op: "^", Left: intLit(2), Right: intLit(-1)}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindFloat64, result.Kind)
	assert.Equal(t, 0.5, result.F64)
}

// TestIfIsaNarrowing is spec §8 scenario 6: a branch guarded by `isa`
// takes the then-path without a runtime type error, and the else-path
// returns the literal fallback.
func TestIfIsaNarrowing(t *testing.T) {
	fn := &ir.Function{
		Name:   "classify",
		Params: []ir.Parameter{{Name: "val", Type: ir.Union{Members: []ir.JuliaType{ir.TInt64, ir.TString}}}},
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.IfStmt{
				Cond: &ir.Builtin{Name: "isa", Args: []ir.Expr{&ir.Var{Name: "val"}, &ir.Literal{Kind: ir.LitStr, Str: "Int64"}}},
				Then: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: &ir.BinaryOp{Op: "+", Left: &ir.Var{Name: "val"}, Right: intLit(1)}}}},
				Else: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: intLit(0)}}},
			},
		}},
	}
	prog := &ir.Program{
		Functions: []*ir.Function{fn},
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.Call{Name: "classify", Args: []ir.Expr{intLit(41)}}},
		}},
	}
	result := runProgram(t, prog)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(42), result.I64)
}
