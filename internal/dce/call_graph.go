// Package dce builds a call graph over a lowered Program and prunes
// unreachable functions, structs, abstract types, and modules before
// compilation (spec §4.4), grounded on the Rust original's
// aot/call_graph.rs reachability pass.
package dce

import (
	"strings"
	"unicode"

	"github.com/corelang/corevm/internal/ir"
)

// CallGraph is the reachability graph computed from a Program: edges from
// function name to the set of names it calls, roots reachable directly from
// Main, and the struct/module reference sets used to filter non-function
// declarations once function reachability is known.
type CallGraph struct {
	edges             map[string]map[string]struct{}
	roots             map[string]struct{}
	allFunctions      map[string]struct{}
	referencedStructs map[string]struct{}
	referencedModules map[string]struct{}
}

// FromProgram builds a CallGraph by scanning every function body, module
// function body, and the Main block for call edges, struct-constructor
// references, and ModuleCall module references.
func FromProgram(prog *ir.Program) *CallGraph {
	g := &CallGraph{
		edges:             make(map[string]map[string]struct{}),
		roots:             make(map[string]struct{}),
		allFunctions:      make(map[string]struct{}),
		referencedStructs: make(map[string]struct{}),
		referencedModules: make(map[string]struct{}),
	}

	for _, fn := range prog.Functions {
		g.allFunctions[fn.Name] = struct{}{}
		g.edges[fn.Name] = make(map[string]struct{})
	}
	for _, mod := range prog.Modules {
		g.collectModuleFunctions(mod)
	}

	for _, fn := range prog.Functions {
		g.edges[fn.Name] = g.collectCallsInBlock(fn.Body)
	}
	for _, mod := range prog.Modules {
		g.collectModuleEdges(mod)
	}

	if prog.Main != nil {
		for name := range g.collectCallsInBlock(prog.Main) {
			g.roots[name] = struct{}{}
		}
		g.collectStructRefsInBlock(prog.Main)
		g.collectModuleRefsInBlock(prog.Main)
	}
	for _, fn := range prog.Functions {
		g.collectModuleRefsInBlock(fn.Body)
	}
	for _, mod := range prog.Modules {
		g.collectModuleRefsInModule(mod)
	}

	return g
}

func (g *CallGraph) collectModuleFunctions(mod *ir.Module) {
	for _, fn := range mod.Functions {
		full := mod.Name + "." + fn.Name
		g.allFunctions[full] = struct{}{}
		g.edges[full] = make(map[string]struct{})
		g.allFunctions[fn.Name] = struct{}{}
	}
	for _, sub := range mod.Submodules {
		g.collectModuleFunctions(sub)
	}
}

func (g *CallGraph) collectModuleEdges(mod *ir.Module) {
	for _, fn := range mod.Functions {
		full := mod.Name + "." + fn.Name
		calls := g.collectCallsInBlock(fn.Body)
		g.edges[full] = calls
		g.edges[fn.Name] = calls
	}
	for _, sub := range mod.Submodules {
		g.collectModuleEdges(sub)
	}
}

func union(dst map[string]struct{}, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

func (g *CallGraph) collectCallsInBlock(blk *ir.Block) map[string]struct{} {
	calls := make(map[string]struct{})
	if blk == nil {
		return calls
	}
	for _, stmt := range blk.Stmts {
		g.collectCallsInStmt(stmt, calls)
	}
	return calls
}

func (g *CallGraph) collectCallsInStmt(stmt ir.Stmt, calls map[string]struct{}) {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		g.collectCallsInExpr(s.X, calls)
	case *ir.AssignStmt:
		g.collectCallsInExpr(s.Value, calls)
	case *ir.AddAssignStmt:
		g.collectCallsInExpr(s.Value, calls)
	case *ir.IfStmt:
		g.collectCallsInExpr(s.Cond, calls)
		union(calls, g.collectCallsInBlock(s.Then))
		if s.Else != nil {
			union(calls, g.collectCallsInBlock(s.Else))
		}
	case *ir.WhileStmt:
		g.collectCallsInExpr(s.Cond, calls)
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.ForStmt:
		g.collectCallsInExpr(s.Start, calls)
		g.collectCallsInExpr(s.End, calls)
		if s.Step != nil {
			g.collectCallsInExpr(s.Step, calls)
		}
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.ForEachStmt:
		g.collectCallsInExpr(s.Iterable, calls)
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.ForEachTupleStmt:
		g.collectCallsInExpr(s.Iterable, calls)
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.ReturnStmt:
		if s.Value != nil {
			g.collectCallsInExpr(s.Value, calls)
		}
	case *ir.BreakStmt, *ir.ContinueStmt:
	case *ir.TryStmt:
		union(calls, g.collectCallsInBlock(s.Try))
		if s.Catch != nil {
			union(calls, g.collectCallsInBlock(s.Catch))
		}
		if s.Else != nil {
			union(calls, g.collectCallsInBlock(s.Else))
		}
		if s.Finally != nil {
			union(calls, g.collectCallsInBlock(s.Finally))
		}
	case *ir.TimedStmt:
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.TestStmt:
		g.collectCallsInExpr(s.Cond, calls)
	case *ir.TestSetStmt:
		union(calls, g.collectCallsInBlock(s.Body))
	case *ir.IndexAssignStmt:
		for _, idx := range s.Indices {
			g.collectCallsInExpr(idx, calls)
		}
		g.collectCallsInExpr(s.Value, calls)
	case *ir.FieldAssignStmt:
		g.collectCallsInExpr(s.Value, calls)
	case *ir.DestructuringAssignStmt:
		g.collectCallsInExpr(s.Value, calls)
	case *ir.DictAssignStmt:
		g.collectCallsInExpr(s.Target, calls)
		g.collectCallsInExpr(s.Key, calls)
		g.collectCallsInExpr(s.Value, calls)
	case *ir.TestThrowsStmt:
		g.collectCallsInExpr(s.X, calls)
	case *ir.FunctionDefStmt:
		if s.Fn != nil {
			union(calls, g.collectCallsInBlock(s.Fn.Body))
		}
	case *ir.UsingStmt, *ir.ExportStmt, *ir.LabelStmt, *ir.GotoStmt:
	}
}

func (g *CallGraph) collectCallsInExpr(expr ir.Expr, calls map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ir.Call:
		calls[e.Name] = struct{}{}
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
		for _, kw := range e.KwArgs {
			g.collectCallsInExpr(kw.Value, calls)
		}
	case *ir.ModuleCall:
		calls[e.Module+"."+e.Name] = struct{}{}
		calls[e.Name] = struct{}{}
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
		for _, kw := range e.KwArgs {
			g.collectCallsInExpr(kw.Value, calls)
		}
	case *ir.Builtin:
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
	case *ir.BinaryOp:
		g.collectCallsInExpr(e.Left, calls)
		g.collectCallsInExpr(e.Right, calls)
	case *ir.ChainedCompare:
		for _, o := range e.Operands {
			g.collectCallsInExpr(o, calls)
		}
	case *ir.BroadcastOp:
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
	case *ir.UnaryOp:
		g.collectCallsInExpr(e.X, calls)
	case *ir.Ternary:
		g.collectCallsInExpr(e.Cond, calls)
		g.collectCallsInExpr(e.Then, calls)
		g.collectCallsInExpr(e.Else, calls)
	case *ir.Index:
		g.collectCallsInExpr(e.Target, calls)
		for _, idx := range e.Indices {
			g.collectCallsInExpr(idx, calls)
		}
	case *ir.FieldAccess:
		g.collectCallsInExpr(e.Target, calls)
	case *ir.ArrayLiteral:
		for _, row := range e.Rows {
			for _, elem := range row {
				g.collectCallsInExpr(elem, calls)
			}
		}
	case *ir.TupleLiteral:
		for _, elem := range e.Elems {
			g.collectCallsInExpr(elem, calls)
		}
	case *ir.NamedTupleLiteral:
		for _, elem := range e.Elems {
			g.collectCallsInExpr(elem, calls)
		}
	case *ir.DictLiteral:
		for i := range e.Keys {
			g.collectCallsInExpr(e.Keys[i], calls)
			g.collectCallsInExpr(e.Values[i], calls)
		}
	case *ir.Range:
		g.collectCallsInExpr(e.Start, calls)
		if e.Step != nil {
			g.collectCallsInExpr(e.Step, calls)
		}
		g.collectCallsInExpr(e.Stop, calls)
	case *ir.Comprehension:
		g.collectCallsInExpr(e.Result, calls)
		g.collectCallsInExpr(e.Iter, calls)
		if e.Cond != nil {
			g.collectCallsInExpr(e.Cond, calls)
		}
	case *ir.MultiComprehension:
		g.collectCallsInExpr(e.Result, calls)
		for _, it := range e.Iters {
			g.collectCallsInExpr(it, calls)
		}
		if e.Cond != nil {
			g.collectCallsInExpr(e.Cond, calls)
		}
	case *ir.Generator:
		g.collectCallsInExpr(e.Result, calls)
		g.collectCallsInExpr(e.Iter, calls)
		if e.Cond != nil {
			g.collectCallsInExpr(e.Cond, calls)
		}
	case *ir.LetBlock:
		for _, v := range e.Values {
			g.collectCallsInExpr(v, calls)
		}
		union(calls, g.collectCallsInBlock(e.Body))
	case *ir.AssignExpr:
		g.collectCallsInExpr(e.Value, calls)
	case *ir.ReturnExpr:
		if e.Value != nil {
			g.collectCallsInExpr(e.Value, calls)
		}
	case *ir.StringConcat:
		for _, p := range e.Parts {
			g.collectCallsInExpr(p, calls)
		}
	case *ir.Pair:
		g.collectCallsInExpr(e.Key, calls)
		g.collectCallsInExpr(e.Value, calls)
	case *ir.FunctionRef:
		calls[e.Name] = struct{}{}
	case *ir.New:
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
		for _, kw := range e.KwArgs {
			g.collectCallsInExpr(kw.Value, calls)
		}
	case *ir.DynamicTypeConstruct:
		for _, p := range e.Params {
			g.collectCallsInExpr(p, calls)
		}
		for _, a := range e.Args {
			g.collectCallsInExpr(a, calls)
		}
	case *ir.Literal, *ir.Var, *ir.SliceAll, *ir.TypedEmptyArray:
	}
}

// collectStructRefsInBlock records constructor-shaped calls (an
// upper-cased callee name) as struct references, the same heuristic the
// Rust original uses since Call doesn't distinguish a constructor from an
// ordinary function at this stage.
func (g *CallGraph) collectStructRefsInBlock(blk *ir.Block) {
	if blk == nil {
		return
	}
	for _, stmt := range blk.Stmts {
		g.collectStructRefsInStmt(stmt)
	}
}

func (g *CallGraph) collectStructRefsInStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		g.collectStructRefsInExpr(s.X)
	case *ir.AssignStmt:
		g.collectStructRefsInExpr(s.Value)
	case *ir.AddAssignStmt:
		g.collectStructRefsInExpr(s.Value)
	case *ir.IfStmt:
		g.collectStructRefsInExpr(s.Cond)
		g.collectStructRefsInBlock(s.Then)
		if s.Else != nil {
			g.collectStructRefsInBlock(s.Else)
		}
	case *ir.ForStmt:
		g.collectStructRefsInExpr(s.Start)
		g.collectStructRefsInExpr(s.End)
		if s.Step != nil {
			g.collectStructRefsInExpr(s.Step)
		}
		g.collectStructRefsInBlock(s.Body)
	case *ir.ForEachStmt:
		g.collectStructRefsInExpr(s.Iterable)
		g.collectStructRefsInBlock(s.Body)
	case *ir.ForEachTupleStmt:
		g.collectStructRefsInExpr(s.Iterable)
		g.collectStructRefsInBlock(s.Body)
	case *ir.WhileStmt:
		g.collectStructRefsInExpr(s.Cond)
		g.collectStructRefsInBlock(s.Body)
	case *ir.ReturnStmt:
		if s.Value != nil {
			g.collectStructRefsInExpr(s.Value)
		}
	}
}

func isConstructorName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	return unicode.IsUpper(r[0])
}

func (g *CallGraph) collectStructRefsInExpr(expr ir.Expr) {
	switch e := expr.(type) {
	case *ir.Call:
		if isConstructorName(e.Name) {
			g.referencedStructs[e.Name] = struct{}{}
		}
		for _, a := range e.Args {
			g.collectStructRefsInExpr(a)
		}
	case *ir.New:
		g.referencedStructs[e.StructName] = struct{}{}
		for _, a := range e.Args {
			g.collectStructRefsInExpr(a)
		}
	case *ir.BinaryOp:
		g.collectStructRefsInExpr(e.Left)
		g.collectStructRefsInExpr(e.Right)
	case *ir.UnaryOp:
		g.collectStructRefsInExpr(e.X)
	case *ir.ArrayLiteral:
		for _, row := range e.Rows {
			for _, elem := range row {
				g.collectStructRefsInExpr(elem)
			}
		}
	}
}

func (g *CallGraph) collectModuleRefsInBlock(blk *ir.Block) {
	if blk == nil {
		return
	}
	for _, stmt := range blk.Stmts {
		g.collectModuleRefsInStmt(stmt)
	}
}

func (g *CallGraph) collectModuleRefsInStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		g.collectModuleRefsInExpr(s.X)
	case *ir.AssignStmt:
		g.collectModuleRefsInExpr(s.Value)
	case *ir.AddAssignStmt:
		g.collectModuleRefsInExpr(s.Value)
	case *ir.IfStmt:
		g.collectModuleRefsInExpr(s.Cond)
		g.collectModuleRefsInBlock(s.Then)
		if s.Else != nil {
			g.collectModuleRefsInBlock(s.Else)
		}
	case *ir.ForStmt:
		g.collectModuleRefsInExpr(s.Start)
		g.collectModuleRefsInExpr(s.End)
		if s.Step != nil {
			g.collectModuleRefsInExpr(s.Step)
		}
		g.collectModuleRefsInBlock(s.Body)
	case *ir.ForEachStmt:
		g.collectModuleRefsInExpr(s.Iterable)
		g.collectModuleRefsInBlock(s.Body)
	case *ir.ForEachTupleStmt:
		g.collectModuleRefsInExpr(s.Iterable)
		g.collectModuleRefsInBlock(s.Body)
	case *ir.WhileStmt:
		g.collectModuleRefsInExpr(s.Cond)
		g.collectModuleRefsInBlock(s.Body)
	case *ir.ReturnStmt:
		if s.Value != nil {
			g.collectModuleRefsInExpr(s.Value)
		}
	}
}

func (g *CallGraph) collectModuleRefsInExpr(expr ir.Expr) {
	switch e := expr.(type) {
	case *ir.ModuleCall:
		g.referencedModules[e.Module] = struct{}{}
		for _, a := range e.Args {
			g.collectModuleRefsInExpr(a)
		}
		for _, kw := range e.KwArgs {
			g.collectModuleRefsInExpr(kw.Value)
		}
	case *ir.Call:
		for _, a := range e.Args {
			g.collectModuleRefsInExpr(a)
		}
		for _, kw := range e.KwArgs {
			g.collectModuleRefsInExpr(kw.Value)
		}
	case *ir.BinaryOp:
		g.collectModuleRefsInExpr(e.Left)
		g.collectModuleRefsInExpr(e.Right)
	case *ir.UnaryOp:
		g.collectModuleRefsInExpr(e.X)
	}
}

func (g *CallGraph) collectModuleRefsInModule(mod *ir.Module) {
	for _, fn := range mod.Functions {
		g.collectModuleRefsInBlock(fn.Body)
	}
	for _, sub := range mod.Submodules {
		g.collectModuleRefsInModule(sub)
	}
}

// ReachableFunctions runs BFS from the root set over the call edges,
// returning every function name (including module-qualified names)
// transitively reachable from Main.
func (g *CallGraph) ReachableFunctions() map[string]struct{} {
	reachable := make(map[string]struct{})
	worklist := make([]string, 0, len(g.roots))
	for r := range g.roots {
		worklist = append(worklist, r)
	}

	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]
		if _, ok := reachable[name]; ok {
			continue
		}
		if _, known := g.allFunctions[name]; !known {
			continue
		}
		reachable[name] = struct{}{}
		for callee := range g.edges[name] {
			if _, ok := reachable[callee]; !ok {
				worklist = append(worklist, callee)
			}
		}
	}
	return reachable
}

// FilterProgram returns a copy of prog retaining only reachable functions,
// structs referenced by them (in their bodies or via parameter/return
// types; a struct's own field types are not followed) or already recorded
// by the call graph, abstract types that are a retained struct's parent, and modules
// referenced via ModuleCall. BaseFunctionCount resets to zero since the
// prelude/user-code boundary no longer applies to the filtered output.
func (g *CallGraph) FilterProgram(prog *ir.Program) *ir.Program {
	reachable := g.ReachableFunctions()

	var filteredFunctions []*ir.Function
	for _, fn := range prog.Functions {
		if _, ok := reachable[fn.Name]; ok {
			filteredFunctions = append(filteredFunctions, fn)
		}
	}

	structRefs := make(map[string]struct{}, len(g.referencedStructs))
	union(structRefs, g.referencedStructs)
	for _, fn := range filteredFunctions {
		g.collectStructNamesInFunction(fn, structRefs)
	}

	var filteredStructs []*ir.StructDef
	for _, sd := range prog.Structs {
		if _, ok := structRefs[sd.Name]; ok {
			filteredStructs = append(filteredStructs, sd)
		}
	}

	var filteredAbstracts []*ir.AbstractTypeDef
	for _, ad := range prog.AbstractTypes {
		keep := false
		for _, sd := range prog.Structs {
			if _, ok := structRefs[sd.Name]; ok && sd.Parent == ad.Name {
				keep = true
				break
			}
		}
		if keep {
			filteredAbstracts = append(filteredAbstracts, ad)
		}
	}

	var filteredModules []*ir.Module
	for _, mod := range prog.Modules {
		if _, ok := g.referencedModules[mod.Name]; ok {
			filteredModules = append(filteredModules, mod)
		}
	}

	return &ir.Program{
		Functions:         filteredFunctions,
		Structs:           filteredStructs,
		AbstractTypes:     filteredAbstracts,
		TypeAliases:       prog.TypeAliases,
		Modules:           filteredModules,
		UsingClauses:      prog.UsingClauses,
		Macros:            prog.Macros,
		Enums:             prog.Enums,
		Main:              prog.Main,
		BaseFunctionCount: 0,
	}
}

func (g *CallGraph) collectStructNamesInFunction(fn *ir.Function, refs map[string]struct{}) {
	for _, p := range fn.Params {
		extractStructNames(p.Type, refs)
	}
	if fn.ReturnType != nil {
		extractStructNames(fn.ReturnType, refs)
	}
	g.collectStructRefsInBlock2(fn.Body, refs)
}

// collectStructRefsInBlock2 is collectStructRefsInBlock's variant that
// writes into a caller-supplied set rather than g.referencedStructs,
// mirroring the Rust original's separate to_set helpers.
func (g *CallGraph) collectStructRefsInBlock2(blk *ir.Block, refs map[string]struct{}) {
	if blk == nil {
		return
	}
	saved := g.referencedStructs
	g.referencedStructs = refs
	g.collectStructRefsInBlock(blk)
	g.referencedStructs = saved
}

func extractStructNames(ty ir.JuliaType, refs map[string]struct{}) {
	switch t := ty.(type) {
	case ir.Struct:
		refs[t.Name] = struct{}{}
		for _, p := range t.Params {
			extractStructNames(p, refs)
		}
	case ir.VectorOf:
		extractStructNames(t.Elem, refs)
	case ir.MatrixOf:
		extractStructNames(t.Elem, refs)
	case ir.TupleOf:
		for _, e := range t.Elems {
			extractStructNames(e, refs)
		}
	case ir.Union:
		for _, m := range t.Members {
			extractStructNames(m, refs)
		}
	}
}

// Stats summarizes the outcome of a DCE pass.
type Stats struct {
	TotalFunctions      int
	ReachableFunctions  int
	RootFunctions       int
	EliminatedFunctions int
}

// ComputeStats returns reachability counters for reporting/CACHE_DEBUG
// tracing, matching the Rust original's `CallGraph::stats`.
func (g *CallGraph) ComputeStats() Stats {
	reachable := g.ReachableFunctions()
	return Stats{
		TotalFunctions:      len(g.allFunctions),
		ReachableFunctions:  len(reachable),
		RootFunctions:       len(g.roots),
		EliminatedFunctions: len(g.allFunctions) - len(reachable),
	}
}

// qualifiedName joins a module path and function name the same way
// ModuleCall edges are recorded. It is unexported and nothing calls it.
func qualifiedName(module, name string) string {
	return strings.Join([]string{module, name}, ".")
}
