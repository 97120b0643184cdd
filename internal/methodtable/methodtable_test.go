package methodtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchPrefersMoreSpecificConcreteOverAbstract(t *testing.T) {
	tbl := New()
	abstractIdx := tbl.Add(Entry{Name: "area", Params: []string{"Number"}})
	concreteIdx := tbl.Add(Entry{Name: "area", Params: []string{"Float64"}})

	idx, ok := tbl.Dispatch("area", []string{"Float64"}, nil, -1, nil)
	require.True(t, ok)
	assert.Equal(t, concreteIdx, idx)
	assert.NotEqual(t, abstractIdx, idx)
}

func TestDispatchRepeatedTypeVarIsMoreSpecific(t *testing.T) {
	tbl := New()
	generic := tbl.Add(Entry{Name: "combine", Params: []string{"T", "S"}})
	same := tbl.Add(Entry{Name: "combine", Params: []string{"T", "T"}})

	idx, ok := tbl.Dispatch("combine", []string{"Int64", "Int64"}, nil, -1, nil)
	require.True(t, ok)
	assert.Equal(t, same, idx)
	assert.NotEqual(t, generic, idx)
}

func TestDispatchParametricMatchesConcreteParams(t *testing.T) {
	tbl := New()
	tbl.Add(Entry{Name: "norm", Params: []string{"Complex{Float64}"}})

	idx, ok := tbl.Dispatch("norm", []string{"Complex{Float64}"}, nil, -1, nil)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = tbl.Dispatch("norm", []string{"Complex{Int64}"}, nil, -1, nil)
	assert.False(t, ok)
}

func TestDispatchNativeDictDoesNotMatchParametricDictPattern(t *testing.T) {
	tbl := New()
	tbl.Add(Entry{Name: "len2", Params: []string{"Dict{K,V}"}})

	_, ok := tbl.Dispatch("len2", []string{"Dict"}, []bool{true}, -1, nil)
	assert.False(t, ok)
}

func TestDispatchCovariantBoundFallbackUsesUserHierarchy(t *testing.T) {
	h := NewHierarchy()
	h.Register("Dog", "Animal")

	tbl := New()
	idx := tbl.Add(Entry{Name: "speak", Params: []string{"_<:Animal"}})

	got, ok := tbl.Dispatch("speak", []string{"Dog"}, nil, -1, h)
	require.True(t, ok)
	assert.Equal(t, idx, got)
}

func TestDispatchArrayFamilyMatchesAbstractArray(t *testing.T) {
	tbl := New()
	idx := tbl.Add(Entry{Name: "size2", Params: []string{"Array"}})

	got, ok := tbl.Dispatch("size2", []string{"Matrix{Float64}"}, nil, -1, nil)
	require.True(t, ok)
	assert.Equal(t, idx, got)
}

func TestDispatchFallsBackWhenNoMatch(t *testing.T) {
	tbl := New()
	tbl.Add(Entry{Name: "f", Params: []string{"Int64"}})

	idx, ok := tbl.Dispatch("f", []string{"String"}, nil, 7, nil)
	assert.False(t, ok)
	assert.Equal(t, 7, idx)
}

func TestPatternSpecificityOrdering(t *testing.T) {
	assert.Greater(t, patternSpecificity([]string{"Int64"}), patternSpecificity([]string{"Real"}))
	assert.Greater(t, patternSpecificity([]string{"Real"}), patternSpecificity([]string{"Number"}))
	assert.Greater(t, patternSpecificity([]string{"Number"}), patternSpecificity([]string{"Any"}))
	assert.Greater(t, patternSpecificity([]string{"T", "T"}), patternSpecificity([]string{"T", "S"}))
}
