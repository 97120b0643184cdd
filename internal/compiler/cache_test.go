package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/prelude"
	"github.com/corelang/corevm/internal/vm"
)

func emptyProgram() *ir.Program {
	return &ir.Program{Main: &ir.Block{}}
}

// TestCompileWithCachePopulatesPromotionRegistry is spec §8 property 2:
// after CompileWithCache returns successfully, the promotion-rule registry
// is non-empty (>50 rules) and contains the two named pairs.
func TestCompileWithCachePopulatesPromotionRegistry(t *testing.T) {
	s := NewSession()
	out, err := s.CompileWithCache(emptyProgram())
	require.NoError(t, err)
	require.NotNil(t, out.Promotion)

	pairs := out.Promotion.Pairs()
	seen := map[[2]string]bool{}
	for _, p := range pairs {
		k := [2]string{p.T1, p.T2}
		if k[0] > k[1] {
			k[0], k[1] = k[1], k[0]
		}
		seen[k] = true
	}
	assert.Greater(t, len(seen), 50)

	result, ok := out.Promotion.Lookup("Int64", "Float64")
	require.True(t, ok)
	assert.Equal(t, "Float64", result)

	result, ok = out.Promotion.Lookup("Rational{Int64}", "Int64")
	require.True(t, ok)
	assert.Equal(t, "Rational{Int64}", result)
}

// TestFullProgramCacheHit exercises tier 1: compiling the same program
// twice in one session returns a cache hit the second time.
func TestFullProgramCacheHit(t *testing.T) {
	s := NewSession()
	prog := emptyProgram()

	first, err := s.CompileWithCache(prog)
	require.NoError(t, err)
	assert.False(t, first.FromFullCache)

	second, err := s.CompileWithCache(prog)
	require.NoError(t, err)
	assert.True(t, second.FromFullCache)
}

// TestClearCacheIsAtomic is spec §8 property 4.
func TestClearCacheIsAtomic(t *testing.T) {
	s := NewSession()
	_, err := s.CompileWithCache(emptyProgram())
	require.NoError(t, err)
	require.True(t, s.IsCacheInitialized())

	s.ClearCache()
	assert.False(t, s.IsCacheInitialized())
	assert.Empty(t, s.cache.program)
}

// TestBaseCacheAppendedFunctionCallsCorrectEntry guards against a class of
// bug where a user function appended after the cached Base bytecode gets
// compiled against the wrong absolute function-table index (it would
// overwrite or read a Base function's FunctionInfo instead of its own).
// It exercises the base-cache path end to end: compile a program whose
// function list is the real Base functions plus one user function, run it,
// and check the user function's own body executed.
func TestBaseCacheAppendedFunctionCallsCorrectEntry(t *testing.T) {
	s := NewSession()
	base, err := s.ensureBaseCache()
	require.NoError(t, err)

	userFn := &ir.Function{
		Name:   "addOne",
		Params: []ir.Parameter{{Name: "x", Type: ir.TInt64}},
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.ReturnStmt{Value: &ir.BinaryOp{
				Op:   "+",
				Left: &ir.Var{Name: "x"},
				Right: &ir.Literal{Kind: ir.LitInt, Int: 1},
			}},
		}},
	}

	baseProgram := prelude.BaseProgram()
	allFns := append(append([]*ir.Function{}, baseProgram.Functions...), userFn)
	prog := &ir.Program{
		Functions:         allFns,
		BaseFunctionCount: base.baseFunctionCount,
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.Call{Name: "addOne", Args: []ir.Expr{&ir.Literal{Kind: ir.LitInt, Int: 41}}}},
		}},
	}

	out, err := s.CompileWithCache(prog)
	require.NoError(t, err)
	require.True(t, out.FromBaseCache)

	machine := vm.New(out.CompiledProgram, out.MethodTables, out.Hierarchy, out.Promotion)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, vm.KindInt64, result.Kind)
	assert.Equal(t, int64(42), result.I64)
}

// TestBaseCacheSerializationRoundTrip is spec §4.3 "Serialization" / §8
// property 3: serialize then deserialize the base cache, and the restored
// promotion_rules set equals the original.
func TestBaseCacheSerializationRoundTrip(t *testing.T) {
	s := NewSession()
	base, err := s.ensureBaseCache()
	require.NoError(t, err)

	blob := &prelude.BaseCacheBlob{
		Compiled:          base.compiled,
		MethodTables:      prelude.MethodTablesToEntries(base.methodTables),
		ClosureCaptures:    base.closureCaptures,
		PromotionRules:    base.promotionRules,
		BaseFunctionCount: base.baseFunctionCount,
	}

	data, err := prelude.Serialize(blob)
	require.NoError(t, err)

	restored, err := prelude.Deserialize(data)
	require.NoError(t, err)

	require.ElementsMatch(t, blob.PromotionRules, restored.PromotionRules)

	// Replaying the restored rules into a fresh registry must answer
	// promote_type queries identically to the original.
	origReg := rulesToRegistry(blob.PromotionRules)
	restoredReg := rulesToRegistry(restored.PromotionRules)
	for _, r := range blob.PromotionRules {
		want, ok := origReg.Lookup(r.T1, r.T2)
		require.True(t, ok)
		got, ok := restoredReg.Lookup(r.T1, r.T2)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}
