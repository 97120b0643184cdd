package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelang/corevm/internal/ir"
)

func TestSplitEnvIsaNarrowsThenBranch(t *testing.T) {
	env := NewTypeEnv()
	env.Set("val", Top)

	condition := &ir.Builtin{
		Name: "isa",
		Args: []ir.Expr{&ir.Var{Name: "val"}, &ir.Var{Name: "Int64"}},
	}

	split := SplitEnvByCondition(env, condition)

	got, ok := split.Then.Get("val")
	require.True(t, ok)
	assert.True(t, got.Equal(Concrete(ir.TInt64)))

	got, ok = split.Else.Get("val")
	require.True(t, ok)
	assert.True(t, got.Equal(Top))
}

func TestSplitEnvIsaWithUnion(t *testing.T) {
	env := NewTypeEnv()
	env.Set("val", MakeUnion(ir.TInt64, ir.TString))

	condition := &ir.Call{
		Name: "isa",
		Args: []ir.Expr{&ir.Var{Name: "val"}, &ir.Var{Name: "Int64"}},
	}

	split := SplitEnvByCondition(env, condition)

	then, _ := split.Then.Get("val")
	assert.True(t, then.Equal(Concrete(ir.TInt64)))

	els, _ := split.Else.Get("val")
	assert.True(t, els.Equal(Concrete(ir.TString)))
}

func TestSplitEnvNotEgalNothingNarrowsThenBranch(t *testing.T) {
	env := NewTypeEnv()
	env.Set("val", MakeUnion(ir.TNothing, ir.TInt64))

	condition := &ir.BinaryOp{
		Op:    "!==",
		Left:  &ir.Var{Name: "val"},
		Right: &ir.Literal{Kind: ir.LitNothing},
	}

	split := SplitEnvByCondition(env, condition)

	then, _ := split.Then.Get("val")
	assert.True(t, then.Equal(Concrete(ir.TInt64)))

	els, _ := split.Else.Get("val")
	assert.True(t, els.Equal(Concrete(ir.TNothing)))
}

func TestSplitEnvNegationSwapsBranches(t *testing.T) {
	env := NewTypeEnv()
	env.Set("val", Top)

	inner := &ir.Builtin{Name: "isa", Args: []ir.Expr{&ir.Var{Name: "val"}, &ir.Var{Name: "Int64"}}}
	condition := &ir.UnaryOp{Op: "!", X: inner}

	split := SplitEnvByCondition(env, condition)

	then, _ := split.Then.Get("val")
	assert.True(t, then.Equal(Top))

	els, _ := split.Else.Get("val")
	assert.True(t, els.Equal(Concrete(ir.TInt64)))
}

func TestSplitEnvAndNarrowsBothInThen(t *testing.T) {
	env := NewTypeEnv()
	env.Set("a", Top)
	env.Set("b", Top)

	cond := &ir.BinaryOp{
		Op: "&&",
		Left: &ir.Builtin{Name: "isa", Args: []ir.Expr{&ir.Var{Name: "a"}, &ir.Var{Name: "Int64"}}},
		Right: &ir.Builtin{Name: "isa", Args: []ir.Expr{&ir.Var{Name: "b"}, &ir.Var{Name: "String"}}},
	}

	split := SplitEnvByCondition(env, cond)

	a, _ := split.Then.Get("a")
	assert.True(t, a.Equal(Concrete(ir.TInt64)))
	b, _ := split.Then.Get("b")
	assert.True(t, b.Equal(Concrete(ir.TString)))
}

func TestSplitEnvUnrecognisedConditionLeavesBranchesUnchanged(t *testing.T) {
	env := NewTypeEnv()
	env.Set("val", Concrete(ir.TInt64))

	cond := &ir.Call{Name: "rand", Args: nil}
	split := SplitEnvByCondition(env, cond)

	then, _ := split.Then.Get("val")
	els, _ := split.Else.Get("val")
	assert.True(t, then.Equal(els))
}

func TestLatticeMeetJoinSubtract(t *testing.T) {
	u := MakeUnion(ir.TInt64, ir.TString, ir.TBool)
	assert.True(t, u.Meet(Concrete(ir.TInt64)).Equal(Concrete(ir.TInt64)))
	assert.True(t, u.Subtract(Concrete(ir.TInt64)).Equal(MakeUnion(ir.TString, ir.TBool)))
	assert.True(t, Bottom.Join(Concrete(ir.TInt64)).Equal(Concrete(ir.TInt64)))
	assert.True(t, Top.Subtract(Concrete(ir.TInt64)).Equal(Top))
	assert.True(t, Bottom.Meet(Top).Equal(Bottom))
}
