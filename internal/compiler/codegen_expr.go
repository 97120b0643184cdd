package compiler

import (
	"math/big"

	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/vm"
)

var binOpToCompareOp = binOpToCompare

// compileExpr compiles expr, leaving exactly one value on the stack (the
// single invariant every opcode that consumes an expression result relies
// on) — except ReturnExpr, which transfers control instead.
func (c *Compiler) compileExpr(scope *funcScope, expr ir.Expr) error {
	switch e := expr.(type) {
	case *ir.Literal:
		return c.compileLiteral(scope, e)

	case *ir.Var:
		c.emitLoad(scope, e.Name, e.Span)
		return nil

	case *ir.Call:
		return c.compileCall(scope, e)

	case *ir.ModuleCall:
		return c.compileModuleCall(scope, e)

	case *ir.Builtin:
		for _, a := range e.Args {
			if err := c.compileExpr(scope, a); err != nil {
				return err
			}
		}
		scope.emit2(vm.OpCallBuiltin, c.internString(e.Name), len(e.Args), e.Span)
		return nil

	case *ir.BinaryOp:
		return c.compileBinaryOp(scope, e)

	case *ir.ChainedCompare:
		return c.compileChainedCompare(scope, e)

	case *ir.BroadcastOp:
		return c.compileBroadcastOp(scope, e)

	case *ir.UnaryOp:
		return c.compileUnaryOp(scope, e)

	case *ir.Ternary:
		return c.compileTernary(scope, e)

	case *ir.Index:
		if err := c.compileExpr(scope, e.Target); err != nil {
			return err
		}
		if len(e.Indices) != 1 {
			return &CompileError{Message: "multi-dimensional indexing is unsupported", Span: e.Span}
		}
		if err := c.compileExpr(scope, e.Indices[0]); err != nil {
			return err
		}
		scope.emit(vm.OpIndexGet, 0, e.Span)
		return nil

	case *ir.FieldAccess:
		if err := c.compileExpr(scope, e.Target); err != nil {
			return err
		}
		scope.emit(vm.OpConst, c.internString(e.Field), e.Span)
		scope.emit2(vm.OpCallBuiltin, c.internString("__get_field"), 2, e.Span)
		return nil

	case *ir.ArrayLiteral:
		return c.compileArrayLiteral(scope, e)

	case *ir.TupleLiteral:
		for _, el := range e.Elems {
			if err := c.compileExpr(scope, el); err != nil {
				return err
			}
		}
		scope.emit(vm.OpMakeTuple, len(e.Elems), e.Span)
		return nil

	case *ir.NamedTupleLiteral:
		for _, el := range e.Elems {
			if err := c.compileExpr(scope, el); err != nil {
				return err
			}
		}
		namesStart := c.internConsecutiveStrings(e.Names)
		scope.emit2(vm.OpMakeNamedTuple, len(e.Elems), namesStart, e.Span)
		return nil

	case *ir.DictLiteral:
		for i := len(e.Keys) - 1; i >= 0; i-- {
			if err := c.compileExpr(scope, e.Keys[i]); err != nil {
				return err
			}
			if err := c.compileExpr(scope, e.Values[i]); err != nil {
				return err
			}
		}
		scope.emit(vm.OpMakeDict, len(e.Keys), e.Span)
		return nil

	case *ir.Range:
		if err := c.compileExpr(scope, e.Start); err != nil {
			return err
		}
		if e.Step != nil {
			if err := c.compileExpr(scope, e.Step); err != nil {
				return err
			}
		} else {
			scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), e.Span)
		}
		if err := c.compileExpr(scope, e.Stop); err != nil {
			return err
		}
		scope.emit(vm.OpMakeRange, 0, e.Span)
		return nil

	case *ir.Comprehension:
		return c.compileComprehension(scope, []string{e.Var}, []ir.Expr{e.Iter}, e.Cond, e.Result, e.Span)

	case *ir.MultiComprehension:
		return c.compileComprehension(scope, e.Vars, e.Iters, e.Cond, e.Result, e.Span)

	case *ir.Generator:
		// Lazy generators are materialized eagerly, the same simplification
		// Comprehension makes (spec §9 Open Questions).
		return c.compileComprehension(scope, []string{e.Var}, []ir.Expr{e.Iter}, e.Cond, e.Result, e.Span)

	case *ir.LetBlock:
		return c.compileLetBlock(scope, e)

	case *ir.AssignExpr:
		if err := c.compileExpr(scope, e.Value); err != nil {
			return err
		}
		scope.emit(vm.OpDup, 0, e.Span)
		c.emitStore(scope, e.Name, e.Span)
		return nil

	case *ir.ReturnExpr:
		if e.Value != nil {
			if err := c.compileExpr(scope, e.Value); err != nil {
				return err
			}
		} else {
			scope.emit(vm.OpConst, c.internConst(vm.Nothing), e.Span)
		}
		scope.emit(vm.OpReturn, 0, e.Span)
		return nil

	case *ir.StringConcat:
		for _, p := range e.Parts {
			if err := c.compileExpr(scope, p); err != nil {
				return err
			}
		}
		scope.emit2(vm.OpCallBuiltin, c.internString("__string_concat"), len(e.Parts), e.Span)
		return nil

	case *ir.Pair:
		if err := c.compileExpr(scope, e.Key); err != nil {
			return err
		}
		if err := c.compileExpr(scope, e.Value); err != nil {
			return err
		}
		scope.emit(vm.OpMakeTuple, 2, e.Span)
		return nil

	case *ir.FunctionRef:
		scope.emit(vm.OpConst, c.internConst(vm.Value{Kind: vm.KindObject, Obj: &vm.Object{OKind: vm.ObjFunctionRef, Name: e.Name}}), e.Span)
		return nil

	case *ir.New:
		for _, kw := range e.KwArgs {
			if err := c.compileExpr(scope, kw.Value); err != nil {
				return err
			}
			scope.emit(vm.OpPop, 0, e.Span)
		}
		for _, a := range e.Args {
			if err := c.compileExpr(scope, a); err != nil {
				return err
			}
		}
		scope.emit2(vm.OpNewStruct, c.internString(e.StructName), len(e.Args), e.Span)
		return nil

	case *ir.SliceAll:
		scope.emit(vm.OpSliceAll, 0, e.Span)
		return nil

	case *ir.TypedEmptyArray:
		scope.emit(vm.OpMakeArray, 0, e.Span)
		return nil

	case *ir.DynamicTypeConstruct:
		scope.emit(vm.OpConst, c.internString(e.Base.String()), e.Span)
		for _, p := range e.Params {
			if err := c.compileExpr(scope, p); err != nil {
				return err
			}
		}
		for _, a := range e.Args {
			if err := c.compileExpr(scope, a); err != nil {
				return err
			}
		}
		scope.emit2(vm.OpCallBuiltin, c.internString("__typed_construct"), 1+len(e.Params)+len(e.Args), e.Span)
		return nil

	default:
		return &CompileError{Message: "unsupported expression kind", Span: expr.GetSpan()}
	}
}

func (c *Compiler) compileLiteral(scope *funcScope, lit *ir.Literal) error {
	var v vm.Value
	switch lit.Kind {
	case ir.LitInt:
		v = vm.NewInt64(lit.Int)
	case ir.LitInt128:
		v = vm.Value{Kind: vm.KindInt128, Hi: lit.Int128Hi, Lo: lit.Int128Lo}
	case ir.LitBigInt:
		bi := lit.BigInt
		if bi == nil {
			bi = new(big.Int)
		}
		v = vm.Value{Kind: vm.KindBigInt, Big: bi}
	case ir.LitFloat:
		v = vm.NewFloat64(lit.Float)
	case ir.LitFloat32:
		v = vm.Value{Kind: vm.KindFloat32, F32: lit.Float32}
	case ir.LitBool:
		v = vm.NewBool(lit.Bool)
	case ir.LitStr:
		v = vm.NewString(lit.Str)
	case ir.LitChar:
		v = vm.Value{Kind: vm.KindChar, Char: lit.Char}
	case ir.LitNothing:
		v = vm.Nothing
	case ir.LitMissing:
		v = vm.Missing
	case ir.LitUndef:
		v = vm.Nothing
	case ir.LitBigFloat:
		bf := lit.BigFloat
		if bf == nil {
			bf = new(big.Float)
		}
		v = vm.Value{Kind: vm.KindBigFloat, BigF: bf}
	case ir.LitRegex:
		v = vm.Value{Kind: vm.KindObject, Obj: &vm.Object{OKind: vm.ObjRegex, Pattern: lit.Regex}}
	case ir.LitModule:
		v = vm.Value{Kind: vm.KindObject, Obj: &vm.Object{OKind: vm.ObjModule, Name: lit.Module}}
	default:
		return &CompileError{Message: "unsupported literal kind", Span: lit.Span}
	}
	scope.emit(vm.OpConst, c.internConst(v), lit.Span)
	return nil
}

func (c *Compiler) compileCall(scope *funcScope, e *ir.Call) error {
	for _, kw := range e.KwArgs {
		if err := c.compileExpr(scope, kw.Value); err != nil {
			return err
		}
		scope.emit(vm.OpPop, 0, e.Span)
	}
	for _, a := range e.Args {
		if err := c.compileExpr(scope, a); err != nil {
			return err
		}
	}
	fallback := -1
	if idx, ok := c.funcIndex[e.Name]; ok {
		fallback = idx
	}
	scope.emit3(vm.OpCallNamed, c.internString(e.Name), len(e.Args), fallback, e.Span)
	return nil
}

func (c *Compiler) compileModuleCall(scope *funcScope, e *ir.ModuleCall) error {
	for _, kw := range e.KwArgs {
		if err := c.compileExpr(scope, kw.Value); err != nil {
			return err
		}
		scope.emit(vm.OpPop, 0, e.Span)
	}
	for _, a := range e.Args {
		if err := c.compileExpr(scope, a); err != nil {
			return err
		}
	}
	qualified := e.Module + "." + e.Name
	fallback := -1
	if idx, ok := c.funcIndex[qualified]; ok {
		fallback = idx
	} else if idx, ok := c.funcIndex[e.Name]; ok {
		fallback = idx
	}
	scope.emit3(vm.OpCallModule, c.internString(qualified), len(e.Args), fallback, e.Span)
	return nil
}

func (c *Compiler) compileBinaryOp(scope *funcScope, e *ir.BinaryOp) error {
	switch e.Op {
	case "&&":
		return c.compileShortCircuit(scope, e.Left, e.Right, true, e.Span)
	case "||":
		return c.compileShortCircuit(scope, e.Left, e.Right, false, e.Span)
	}
	if err := c.compileExpr(scope, e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(scope, e.Right); err != nil {
		return err
	}
	if op, ok := binOpToArith[e.Op]; ok {
		scope.emit(op, 0, e.Span)
		return nil
	}
	if op, ok := binOpToCompareOp[e.Op]; ok {
		scope.emit(op, 0, e.Span)
		return nil
	}
	if e.Op == "isa" {
		scope.emit(vm.OpIsA, 0, e.Span)
		return nil
	}
	return &CompileError{Message: "unsupported binary operator " + e.Op, Span: e.Span}
}

// compileShortCircuit implements `&&`/`||` (isAnd selects which) with
// genuine short-circuit evaluation: the right operand's bytecode is only
// reached when the left operand didn't already decide the result.
func (c *Compiler) compileShortCircuit(scope *funcScope, left, right ir.Expr, isAnd bool, span cst.Span) error {
	if err := c.compileExpr(scope, left); err != nil {
		return err
	}
	var decideJump int
	if isAnd {
		decideJump = scope.emit(vm.OpJumpIfFalse, 0, span)
	} else {
		decideJump = scope.emit(vm.OpJumpIfTrue, 0, span)
	}
	if err := c.compileExpr(scope, right); err != nil {
		return err
	}
	end := scope.emit(vm.OpJump, 0, span)
	scope.patchJump(decideJump, scope.here())
	scope.emit(vm.OpConst, c.internConst(vm.NewBool(!isAnd)), span)
	scope.patchJump(end, scope.here())
	return nil
}

// compileChainedCompare evaluates every operand exactly once (spec §4.1
// "Operator flattening") by storing each into a hidden local before
// combining pairwise comparisons with plain boolean AND (no further
// short-circuit needed since every operand is already evaluated).
func (c *Compiler) compileChainedCompare(scope *funcScope, e *ir.ChainedCompare) error {
	slots := make([]int, len(e.Operands))
	for i, operand := range e.Operands {
		if err := c.compileExpr(scope, operand); err != nil {
			return err
		}
		slot := scope.declareLocal(gensymLocal(scope, "chain"))
		scope.emit(vm.OpStoreLocal, slot, e.Span)
		slots[i] = slot
	}
	for i, op := range e.Ops {
		cmpOp, ok := binOpToCompareOp[op]
		if !ok {
			return &CompileError{Message: "unsupported chained comparison operator " + op, Span: e.Span}
		}
		scope.emit(vm.OpLoadLocal, slots[i], e.Span)
		scope.emit(vm.OpLoadLocal, slots[i+1], e.Span)
		scope.emit(cmpOp, 0, e.Span)
		if i > 0 {
			scope.emit(vm.OpAnd, 0, e.Span)
		}
	}
	return nil
}

func gensymLocal(scope *funcScope, prefix string) string {
	return "##" + prefix + string(rune('a'+len(scope.locals)%26)) + itoa(len(scope.locals))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (c *Compiler) compileBroadcastOp(scope *funcScope, e *ir.BroadcastOp) error {
	for _, a := range e.Args {
		if err := c.compileExpr(scope, a); err != nil {
			return err
		}
	}
	name := e.Op
	if name == "" {
		name = e.Fn
	}
	scope.emit2(vm.OpBroadcast, c.internString(name), len(e.Args), e.Span)
	return nil
}

func (c *Compiler) compileUnaryOp(scope *funcScope, e *ir.UnaryOp) error {
	if err := c.compileExpr(scope, e.X); err != nil {
		return err
	}
	switch e.Op {
	case "!":
		scope.emit(vm.OpNot, 0, e.Span)
	case "-":
		scope.emit(vm.OpNeg, 0, e.Span)
	case "+":
		// identity; no opcode needed
	default:
		return &CompileError{Message: "unsupported unary operator " + e.Op, Span: e.Span}
	}
	return nil
}

func (c *Compiler) compileTernary(scope *funcScope, e *ir.Ternary) error {
	if err := c.compileExpr(scope, e.Cond); err != nil {
		return err
	}
	jElse := scope.emit(vm.OpJumpIfFalse, 0, e.Span)
	if err := c.compileExpr(scope, e.Then); err != nil {
		return err
	}
	jEnd := scope.emit(vm.OpJump, 0, e.Span)
	scope.patchJump(jElse, scope.here())
	if err := c.compileExpr(scope, e.Else); err != nil {
		return err
	}
	scope.patchJump(jEnd, scope.here())
	return nil
}

// compileArrayLiteral supports rank-1 vectors directly; rank>1 literals are
// flattened row-major and reshaped, a simplification over Base's full
// column-major N-dimensional array semantics.
func (c *Compiler) compileArrayLiteral(scope *funcScope, e *ir.ArrayLiteral) error {
	n := 0
	for _, row := range e.Rows {
		for _, el := range row {
			if err := c.compileExpr(scope, el); err != nil {
				return err
			}
			n++
		}
	}
	scope.emit(vm.OpMakeArray, n, e.Span)
	if len(e.Rows) > 1 {
		cols := 0
		if len(e.Rows) > 0 {
			cols = len(e.Rows[0])
		}
		scope.emit2(vm.OpReshapeMatrix, len(e.Rows), cols, e.Span)
	}
	return nil
}

func (c *Compiler) compileLetBlock(scope *funcScope, e *ir.LetBlock) error {
	for i, name := range e.Names {
		if err := c.compileExpr(scope, e.Values[i]); err != nil {
			return err
		}
		slot := scope.declareLocal(name)
		scope.emit(vm.OpStoreLocal, slot, e.Span)
	}
	return c.compileBlockAsValue(scope, e.Body)
}

// compileBlockAsValue compiles block the way compileFunctionBody does
// (implicit last-expression value) but without emitting a terminal
// OpReturn, for use in expression-position blocks like let.
func (c *Compiler) compileBlockAsValue(scope *funcScope, block *ir.Block) error {
	if len(block.Stmts) == 0 {
		scope.emit(vm.OpConst, c.internConst(vm.Nothing), cst.Span{})
		return nil
	}
	for _, stmt := range block.Stmts[:len(block.Stmts)-1] {
		if err := c.compileStmt(scope, stmt); err != nil {
			return err
		}
	}
	last := block.Stmts[len(block.Stmts)-1]
	if es, ok := last.(*ir.ExprStmt); ok {
		return c.compileExpr(scope, es.X)
	}
	if err := c.compileStmt(scope, last); err != nil {
		return err
	}
	scope.emit(vm.OpConst, c.internConst(vm.Nothing), last.GetSpan())
	return nil
}

// compileComprehension desugars both single- and multi-clause
// comprehensions (and the eagerly-materialized Generator) into nested
// counted loops accumulating into a hidden array local.
func (c *Compiler) compileComprehension(scope *funcScope, vars []string, iters []ir.Expr, cond, result ir.Expr, span cst.Span) error {
	scope.emit(vm.OpMakeArray, 0, span)
	accSlot := scope.declareLocal(gensymLocal(scope, "acc"))
	scope.emit(vm.OpStoreLocal, accSlot, span)

	if err := c.compileComprehensionLevel(scope, vars, iters, 0, cond, result, accSlot, span); err != nil {
		return err
	}

	scope.emit(vm.OpLoadLocal, accSlot, span)
	return nil
}

func (c *Compiler) compileComprehensionLevel(scope *funcScope, vars []string, iters []ir.Expr, level int, cond, result ir.Expr, accSlot int, span cst.Span) error {
	if level == len(vars) {
		if cond != nil {
			if err := c.compileExpr(scope, cond); err != nil {
				return err
			}
			jSkip := scope.emit(vm.OpJumpIfFalse, 0, span)
			if err := c.compileAccumulate(scope, result, accSlot, span); err != nil {
				return err
			}
			scope.patchJump(jSkip, scope.here())
			return nil
		}
		return c.compileAccumulate(scope, result, accSlot, span)
	}

	if err := c.compileExpr(scope, iters[level]); err != nil {
		return err
	}
	iterSlot := scope.declareLocal(gensymLocal(scope, "citer"))
	idxSlot := scope.declareLocal(gensymLocal(scope, "cidx"))
	scope.emit(vm.OpStoreLocal, iterSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(0)), span)
	scope.emit(vm.OpStoreLocal, idxSlot, span)

	loopStart := scope.here()
	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpLoadLocal, iterSlot, span)
	scope.emit(vm.OpLen, 0, span)
	scope.emit(vm.OpLt, 0, span)
	jEnd := scope.emit(vm.OpJumpIfFalse, 0, span)

	scope.emit(vm.OpLoadLocal, iterSlot, span)
	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), span)
	scope.emit(vm.OpAddTyped, 0, span)
	scope.emit(vm.OpIndexGet, 0, span)
	varSlot := scope.declareLocal(vars[level])
	scope.emit(vm.OpStoreLocal, varSlot, span)

	if err := c.compileComprehensionLevel(scope, vars, iters, level+1, cond, result, accSlot, span); err != nil {
		return err
	}

	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), span)
	scope.emit(vm.OpAddTyped, 0, span)
	scope.emit(vm.OpStoreLocal, idxSlot, span)
	scope.emit(vm.OpJump, loopStart, span)

	scope.patchJump(jEnd, scope.here())
	return nil
}

func (c *Compiler) compileAccumulate(scope *funcScope, result ir.Expr, accSlot int, span cst.Span) error {
	scope.emit(vm.OpLoadLocal, accSlot, span)
	if err := c.compileExpr(scope, result); err != nil {
		return err
	}
	scope.emit(vm.OpArrayPush, 0, span)
	scope.emit(vm.OpPop, 0, span)
	return nil
}
