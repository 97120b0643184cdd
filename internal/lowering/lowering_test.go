package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

func leaf(kind cst.NodeKind, text string) *cst.Fixture {
	return cst.NewFixture(kind, text, cst.Span{})
}

// TestLowerBinaryOpRewritesIsaToBuiltin covers spec §4.1 "special operator
// rewrites": `x isa T` lowers to an ir.Builtin, not an ir.BinaryOp.
func TestLowerBinaryOpRewritesIsaToBuiltin(t *testing.T) {
	ctx := NewContext()
	n := cst.NewFixture(cst.KindBinaryOp, "isa", cst.Span{},
		leaf(cst.KindIdentifier, "x"),
		leaf(cst.KindIdentifier, "Int64"),
	)
	expr, err := ctx.lowerExpr(n)
	require.NoError(t, err)

	builtin, ok := expr.(*ir.Builtin)
	require.True(t, ok, "expected *ir.Builtin, got %T", expr)
	assert.Equal(t, "isa", builtin.Name)
	assert.Len(t, builtin.Args, 2)
}

// TestLowerBinaryOpNormalizesUnicodeAliases covers spec §4.1: `≠`, `≤`, `≥`
// normalize to their ASCII equivalents before any further rewriting.
func TestLowerBinaryOpNormalizesUnicodeAliases(t *testing.T) {
	ctx := NewContext()
	n := cst.NewFixture(cst.KindBinaryOp, "≤", cst.Span{},
		leaf(cst.KindIntLiteral, "1"),
		leaf(cst.KindIntLiteral, "2"),
	)
	expr, err := ctx.lowerExpr(n)
	require.NoError(t, err)

	bin, ok := expr.(*ir.BinaryOp)
	require.True(t, ok, "expected *ir.BinaryOp, got %T", expr)
	assert.Equal(t, "<=", bin.Op)
}

// TestLowerChainedCompareNormalizesEachOperator exercises a chain mixing a
// Unicode alias with an ASCII operator: `1 ≠ 2 < 3`.
func TestLowerChainedCompareNormalizesEachOperator(t *testing.T) {
	ctx := NewContext()
	n := cst.NewFixture(cst.KindChainedCompare, "≠ <", cst.Span{},
		leaf(cst.KindIntLiteral, "1"),
		leaf(cst.KindIntLiteral, "2"),
		leaf(cst.KindIntLiteral, "3"),
	)
	expr, err := ctx.lowerExpr(n)
	require.NoError(t, err)

	chained, ok := expr.(*ir.ChainedCompare)
	require.True(t, ok, "expected *ir.ChainedCompare, got %T", expr)
	assert.Equal(t, []string{"!=", "<"}, chained.Ops)
	assert.Len(t, chained.Operands, 3)
}

// TestLowerIntLiteralFallsBackToBigInt covers spec §4.1: an integer literal
// too large for a machine int64 lowers to LitBigInt instead of failing.
func TestLowerIntLiteralFallsBackToBigInt(t *testing.T) {
	ctx := NewContext()
	n := leaf(cst.KindIntLiteral, "99999999999999999999999999999999")
	expr, err := ctx.lowerExpr(n)
	require.NoError(t, err)

	lit, ok := expr.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, ir.LitBigInt, lit.Kind)
	require.NotNil(t, lit.BigInt)
}

// TestLowerIntLiteralStripsUnderscoreSeparators covers Base's digit-grouping
// syntax: `1_000_000` lowers the same as `1000000`.
func TestLowerIntLiteralStripsUnderscoreSeparators(t *testing.T) {
	ctx := NewContext()
	n := leaf(cst.KindIntLiteral, "1_000_000")
	expr, err := ctx.lowerExpr(n)
	require.NoError(t, err)

	lit, ok := expr.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, ir.LitInt, lit.Kind)
	assert.Equal(t, int64(1000000), lit.Int)
}

// TestLowerProgramRejectsNonProgramRoot covers spec §4.1 "Failure semantics":
// lowering a malformed root returns UnsupportedFeature, not a panic.
func TestLowerProgramRejectsNonProgramRoot(t *testing.T) {
	_, err := LowerProgram(leaf(cst.KindBlock, ""))
	require.Error(t, err)
	var uf *UnsupportedFeature
	require.ErrorAs(t, err, &uf)
	assert.Equal(t, cst.KindBlock, uf.Kind)
}

// TestLowerProgramCollectsTopLevelFunctionDef exercises the full
// CST-to-CIR path for a minimal function definition with no body
// statements, via the real KindFunctionDef/KindFunctionSig/KindBlock shape
// lowerFunctionDef expects.
func TestLowerProgramCollectsTopLevelFunctionDef(t *testing.T) {
	sig := cst.NewFixture(cst.KindFunctionSig, "", cst.Span{})
	body := cst.NewFixture(cst.KindBlock, "", cst.Span{})
	fnDef := cst.NewFixture(cst.KindFunctionDef, "f", cst.Span{}, sig, body)
	root := cst.NewFixture(cst.KindProgram, "", cst.Span{}, fnDef)

	prog, err := LowerProgram(root)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, "f", prog.Functions[0].Name)
}
