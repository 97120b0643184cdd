package dce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelang/corevm/internal/ir"
)

func callTo(name string) ir.Stmt {
	return &ir.ExprStmt{X: &ir.Call{Name: name}}
}

func fn(name string, body ...ir.Stmt) *ir.Function {
	return &ir.Function{Name: name, Body: &ir.Block{Stmts: body}}
}

func TestSimpleCallGraph(t *testing.T) {
	prog := &ir.Program{
		Functions: []*ir.Function{
			fn("helper"),
			fn("unused"),
		},
		Main: &ir.Block{Stmts: []ir.Stmt{callTo("helper")}},
	}

	g := FromProgram(prog)
	reachable := g.ReachableFunctions()

	assert.Contains(t, reachable, "helper")
	assert.NotContains(t, reachable, "unused")
}

func TestRecursiveFunction(t *testing.T) {
	prog := &ir.Program{
		Functions: []*ir.Function{
			fn("fact", &ir.IfStmt{
				Cond: &ir.Literal{Kind: ir.LitBool, Bool: true},
				Then: &ir.Block{Stmts: []ir.Stmt{callTo("fact")}},
			}),
		},
		Main: &ir.Block{Stmts: []ir.Stmt{callTo("fact")}},
	}

	g := FromProgram(prog)
	reachable := g.ReachableFunctions()

	require.Contains(t, reachable, "fact")
	assert.Len(t, reachable, 1)
}

func TestStats(t *testing.T) {
	prog := &ir.Program{
		Functions: []*ir.Function{
			fn("a"),
			fn("b"),
			fn("dead"),
		},
		Main: &ir.Block{Stmts: []ir.Stmt{callTo("a"), callTo("b")}},
	}

	g := FromProgram(prog)
	stats := g.ComputeStats()

	assert.Equal(t, 3, stats.TotalFunctions)
	assert.Equal(t, 2, stats.ReachableFunctions)
	assert.Equal(t, 1, stats.EliminatedFunctions)
}

func TestCallInLetBindingMarksCallReachable(t *testing.T) {
	letExpr := &ir.LetBlock{
		Names:  []string{"x"},
		Values: []ir.Expr{&ir.Call{Name: "inner"}},
		Body:   &ir.Block{},
	}
	prog := &ir.Program{
		Functions: []*ir.Function{
			fn("inner"),
		},
		Main: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: letExpr}}},
	}

	g := FromProgram(prog)
	reachable := g.ReachableFunctions()

	assert.Contains(t, reachable, "inner")
}

func TestFilterProgramOnlyKeepsReferencedModules(t *testing.T) {
	prog := &ir.Program{
		Modules: []*ir.Module{
			{Name: "Used", Functions: []*ir.Function{fn("helper")}},
			{Name: "Unused", Functions: []*ir.Function{fn("other")}},
		},
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.ModuleCall{Module: "Used", Name: "helper"}},
		}},
	}

	g := FromProgram(prog)
	filtered := g.FilterProgram(prog)

	require.Len(t, filtered.Modules, 1)
	assert.Equal(t, "Used", filtered.Modules[0].Name)
	assert.Equal(t, 0, filtered.BaseFunctionCount)
}

func TestFilterProgramKeepsAllModulesWhenAllUsed(t *testing.T) {
	prog := &ir.Program{
		Modules: []*ir.Module{
			{Name: "A", Functions: []*ir.Function{fn("a1")}},
			{Name: "B", Functions: []*ir.Function{fn("b1")}},
		},
		Main: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: &ir.ModuleCall{Module: "A", Name: "a1"}},
			&ir.ExprStmt{X: &ir.ModuleCall{Module: "B", Name: "b1"}},
		}},
	}

	g := FromProgram(prog)
	filtered := g.FilterProgram(prog)

	assert.Len(t, filtered.Modules, 2)
}

func TestFilterProgramRemovesAllModulesWhenNoneUsed(t *testing.T) {
	prog := &ir.Program{
		Modules: []*ir.Module{
			{Name: "A", Functions: []*ir.Function{fn("a1")}},
		},
		Main: &ir.Block{},
	}

	g := FromProgram(prog)
	filtered := g.FilterProgram(prog)

	assert.Empty(t, filtered.Modules)
}

func TestFilterProgramKeepsStructReferencedByReachableFunction(t *testing.T) {
	prog := &ir.Program{
		Functions: []*ir.Function{
			fn("make", &ir.ReturnStmt{Value: &ir.New{StructName: "Point"}}),
			fn("unused", &ir.ReturnStmt{Value: &ir.New{StructName: "Unreferenced"}}),
		},
		Structs: []*ir.StructDef{
			{Name: "Point"},
			{Name: "Unreferenced"},
		},
		Main: &ir.Block{Stmts: []ir.Stmt{callTo("make")}},
	}

	g := FromProgram(prog)
	filtered := g.FilterProgram(prog)

	var names []string
	for _, sd := range filtered.Structs {
		names = append(names, sd.Name)
	}
	assert.Contains(t, names, "Point")
	assert.NotContains(t, names, "Unreferenced")
}
