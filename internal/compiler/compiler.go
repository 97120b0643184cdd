// Package compiler lowers Core IR (internal/ir) into the linear bytecode
// internal/vm executes (spec §4.3), assembles the Base prelude, and
// implements the two-tier compilation cache.
package compiler

import (
	"fmt"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/methodtable"
	"github.com/corelang/corevm/internal/vm"
)

// CompileError reports a failure to compile a well-lowered Program: an
// unsupported statement, expression, literal or operator kind, a
// break/continue outside a loop, or multi-dimensional indexing. Unresolved
// names compile as global loads and struct fields are resolved by name at
// run time, so neither is a compile error.
type CompileError struct {
	Message string
	Span    cst.Span
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at %s:%d:%d", e.Message, e.Span.File, e.Span.StartLine, e.Span.StartColumn)
}

// loopContext tracks the jump-patch state for one enclosing loop, so break
// and continue can be compiled before the loop's end is known (spec §4.6
// "control flow").
type loopContext struct {
	breakJumps    []int
	continueJumps []int
}

// funcScope is the per-function compilation scope: its local symbol table
// (name -> slot) and emitted code, isolated from the enclosing module scope
// the way the teacher's own Compiler nests a fresh scope per function
// literal.
type funcScope struct {
	locals      []string
	localSlots  map[string]int
	code        []vm.Instr
	loopStack   []loopContext
	closureOver []string
	isTopLevel  bool // true only for the Main block: bare assignment targets a global, not a fresh local
}

func newFuncScope() *funcScope {
	return &funcScope{localSlots: make(map[string]int)}
}

func newTopLevelScope() *funcScope {
	return &funcScope{localSlots: make(map[string]int), isTopLevel: true}
}

func (f *funcScope) declareLocal(name string) int {
	if slot, ok := f.localSlots[name]; ok {
		return slot
	}
	slot := len(f.locals)
	f.locals = append(f.locals, name)
	f.localSlots[name] = slot
	return slot
}

func (f *funcScope) resolveLocal(name string) (int, bool) {
	slot, ok := f.localSlots[name]
	return slot, ok
}

func (f *funcScope) emit(op vm.Op, a int, span cst.Span) int {
	f.code = append(f.code, vm.Instr{Op: op, A: a, Span: span})
	return len(f.code) - 1
}

func (f *funcScope) emit2(op vm.Op, a, b int, span cst.Span) int {
	f.code = append(f.code, vm.Instr{Op: op, A: a, B: b, Span: span})
	return len(f.code) - 1
}

func (f *funcScope) emit3(op vm.Op, a, b, c int, span cst.Span) int {
	f.code = append(f.code, vm.Instr{Op: op, A: a, B: b, C: c, Span: span})
	return len(f.code) - 1
}

func (f *funcScope) here() int { return len(f.code) }

func (f *funcScope) patchJump(idx, target int) { f.code[idx].A = target }

// Compiler assembles one Program into a vm.CompiledProgram: a flat
// instruction array addressed by per-function entry offsets, a shared
// constant pool, struct metadata for reflection, and a method table per
// multi-method function name.
type Compiler struct {
	consts      []vm.Value
	constIndex  map[string]int // dedup key -> index, for string/Value consts
	structs     []vm.StructDefInfo
	structIdx   map[string][]string // struct name -> ordered field names (for field-index resolution)
	funcIndex   map[string]int      // function name -> Functions[] index (last-defined wins for plain calls)
	funcInfos   []vm.FunctionInfo
	code        []vm.Instr
	tables      map[string]*methodtable.Table
	hierarchy   *methodtable.Hierarchy
	promotion   *vm.PromotionRegistry
	globalTypes map[string]string
}

// NewCompiler returns a Compiler with empty tables, ready to compile one
// Program via Compile.
func NewCompiler() *Compiler {
	return &Compiler{
		constIndex: make(map[string]int),
		structIdx:  make(map[string][]string),
		funcIndex:  make(map[string]int),
		tables:     make(map[string]*methodtable.Table),
		hierarchy:  methodtable.NewHierarchy(),
		promotion:  vm.NewPromotionRegistry(),
	}
}

// Compile produces a standalone vm.CompiledProgram from program. It does
// not consult or populate the package-level cache; use CompileWithCache for
// the cached entry point (spec §4.3).
func (c *Compiler) Compile(program *ir.Program) (*vm.CompiledProgram, error) {
	for _, ad := range program.AbstractTypes {
		c.hierarchy.Register(ad.Name, ad.Parent)
	}
	for _, sd := range program.Structs {
		c.registerStruct(sd)
	}

	// Pre-declare every function's slot so forward references (mutual
	// recursion, calls to functions defined later in the file) resolve.
	// firstIdx anchors these to c.funcInfos' absolute indices rather than
	// program.Functions' own 0-based positions, since a base-cache-seeded
	// Compiler (internal/compiler/cache.go compileAppending) starts this
	// call with c.funcInfos already holding the prelude's functions.
	firstIdx := len(c.funcInfos)
	for _, fn := range program.Functions {
		c.funcIndex[fn.Name] = len(c.funcInfos)
		c.funcInfos = append(c.funcInfos, vm.FunctionInfo{Name: fn.Name})
	}
	for _, mod := range program.Modules {
		c.predeclareModule(mod)
	}

	for i, fn := range program.Functions {
		if err := c.compileFunctionInto(firstIdx+i, fn); err != nil {
			return nil, err
		}
	}
	for _, mod := range program.Modules {
		if err := c.compileModule(mod); err != nil {
			return nil, err
		}
	}

	mainEntry := len(c.code)
	mainScope := newTopLevelScope()
	if err := c.compileMainBlock(mainScope, program.Main); err != nil {
		return nil, err
	}
	c.code = append(c.code, mainScope.code...)

	out := &vm.CompiledProgram{
		Code:      c.code,
		Functions: c.funcInfos,
		FuncIndex: c.funcIndex,
		Structs:   c.structs,
		Consts:    c.consts,
		MainEntry: mainEntry,
		MainLen:   len(c.code) - mainEntry,
	}
	return out, nil
}

// MethodTables returns the per-function-name dispatch tables built during
// Compile, consumed by vm.New.
func (c *Compiler) MethodTables() map[string]*methodtable.Table { return c.tables }

// Hierarchy returns the abstract-type hierarchy built during Compile.
func (c *Compiler) Hierarchy() *methodtable.Hierarchy { return c.hierarchy }

// Promotion returns the promotion registry populated from `promote_rule`
// bodies during Compile.
func (c *Compiler) Promotion() *vm.PromotionRegistry { return c.promotion }

func (c *Compiler) registerStruct(sd *ir.StructDef) {
	var fieldNames, fieldTypes []string
	for _, f := range sd.Fields {
		fieldNames = append(fieldNames, f.Name)
		fieldTypes = append(fieldTypes, f.Type.String())
	}
	c.structs = append(c.structs, vm.StructDefInfo{
		Name:      sd.Name,
		Fields:    fieldNames,
		FieldType: fieldTypes,
		IsMutable: sd.IsMutable,
		Parent:    sd.Parent,
	})
	c.structIdx[sd.Name] = fieldNames
	if sd.Parent != "" {
		c.hierarchy.Register(sd.Name, sd.Parent)
	}
}


func (c *Compiler) predeclareModule(mod *ir.Module) {
	for _, fn := range mod.Functions {
		full := mod.Name + "." + fn.Name
		c.funcIndex[full] = len(c.funcInfos)
		c.funcIndex[fn.Name] = len(c.funcInfos)
		c.funcInfos = append(c.funcInfos, vm.FunctionInfo{Name: full})
	}
	for _, sub := range mod.Submodules {
		c.predeclareModule(sub)
	}
}

func (c *Compiler) compileModule(mod *ir.Module) error {
	for _, fn := range mod.Functions {
		idx := c.funcIndex[mod.Name+"."+fn.Name]
		if err := c.compileFunctionInto(idx, fn); err != nil {
			return err
		}
	}
	for _, sub := range mod.Submodules {
		if err := c.compileModule(sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileFunctionInto(idx int, fn *ir.Function) error {
	scope := newFuncScope()
	for i, p := range fn.Params {
		slot := scope.declareLocal(p.Name)
		_ = slot
		_ = i
	}
	for _, kp := range fn.KeywordParams {
		scope.declareLocal(kp.Name)
	}

	if err := c.compileFunctionBody(scope, fn.Body); err != nil {
		return err
	}

	entry := len(c.code)
	c.code = append(c.code, scope.code...)

	returnType := ""
	if fn.ReturnType != nil {
		returnType = fn.ReturnType.String()
	}

	c.funcInfos[idx] = vm.FunctionInfo{
		Name:        c.funcInfos[idx].Name,
		Entry:       entry,
		NumLocals:   len(scope.locals),
		NumParams:   len(fn.Params),
		IsVarargs:   hasVarargs(fn.Params),
		ReturnType:  returnType,
		ClosureOver: scope.closureOver,
	}

	c.registerMethod(fn.Name, idx, fn.Params)
	if fn.Name == "promote_rule" {
		c.tryRegisterPromotionRule(fn)
	}
	return nil
}

func hasVarargs(params []ir.Parameter) bool {
	for _, p := range params {
		if p.IsVarargs {
			return true
		}
	}
	return false
}

func (c *Compiler) registerMethod(name string, funcIdx int, params []ir.Parameter) {
	patterns := make([]string, len(params))
	for i, p := range params {
		patterns[i] = p.Type.String()
	}
	table, ok := c.tables[name]
	if !ok {
		table = methodtable.New()
		c.tables[name] = table
	}
	table.Add(methodtable.Entry{FuncIndex: funcIdx, Name: name, Params: patterns})
}

// tryRegisterPromotionRule extracts the promoted return type directly from
// the IR body of a `promote_rule` definition, bypassing type inference
// entirely (spec §4.3 "promotion rule extraction"): only a bare-identifier
// return (`Int64`) or a `Builtin(TypeOf, Literal)` return whose literal is a
// Str or a Module (parametric struct types) are recognised.
func (c *Compiler) tryRegisterPromotionRule(fn *ir.Function) {
	if len(fn.Params) != 2 || len(fn.Body.Stmts) != 1 {
		return
	}
	es, ok := fn.Body.Stmts[0].(*ir.ExprStmt)
	if !ok {
		return
	}
	t1, ok1 := typeOfParam(fn.Params[0].Type)
	t2, ok2 := typeOfParam(fn.Params[1].Type)
	if !ok1 || !ok2 {
		return
	}
	var result string
	switch e := es.X.(type) {
	case *ir.Var:
		result = e.Name
	case *ir.Builtin:
		if e.Name == "TypeOf" && len(e.Args) == 1 {
			if lit, ok := e.Args[0].(*ir.Literal); ok && lit.Kind == ir.LitModule {
				result = lit.Module
			} else if lit, ok := e.Args[0].(*ir.Literal); ok && lit.Kind == ir.LitStr {
				result = lit.Str
			}
		}
	}
	if result == "" {
		return
	}
	c.promotion.Register(t1, t2, result)
	c.promotion.MarkInitialized()
}

func typeOfParam(t ir.JuliaType) (string, bool) {
	to, ok := t.(ir.TypeOf)
	if !ok {
		return "", false
	}
	if _, ok := to.Inner.(ir.TypeVar); ok {
		return "", false // generic promote_rule(::Type{T}, ::Type{S}) carries no concrete type
	}
	return to.Inner.String(), true
}

func (c *Compiler) internConst(v vm.Value) int {
	key := v.TypeName() + "\x00" + v.String()
	if idx, ok := c.constIndex[key]; ok {
		return idx
	}
	idx := len(c.consts)
	c.consts = append(c.consts, v)
	c.constIndex[key] = idx
	return idx
}

func (c *Compiler) internString(s string) int {
	return c.internConst(vm.NewString(s))
}

// internConsecutiveStrings appends names as fresh, non-deduplicated consts
// and returns the index of the first one; OpMakeNamedTuple reads
// Consts[start+i] for i in 0..len(names) so the run must stay contiguous,
// which plain internString (dedup-by-value) cannot guarantee.
func (c *Compiler) internConsecutiveStrings(names []string) int {
	start := len(c.consts)
	for _, n := range names {
		c.consts = append(c.consts, vm.NewString(n))
	}
	return start
}
