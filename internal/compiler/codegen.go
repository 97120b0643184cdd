package compiler

import (
	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/vm"
)

var binOpToArith = map[string]vm.Op{
	"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul, "/": vm.OpDiv,
	"÷": vm.OpFloorDiv, "%": vm.OpMod, "^": vm.OpPow,
}

var binOpToCompare = map[string]vm.Op{
	"==": vm.OpEq, "!=": vm.OpNe, "<": vm.OpLt, "<=": vm.OpLe,
	">": vm.OpGt, ">=": vm.OpGe, "===": vm.OpIdentical, "!==": vm.OpNotIdentical,
}

// compileBlock compiles a statement-position block: every ExprStmt's value
// is discarded (popped), matching ordinary Base block-body semantics where
// only the last expression of a *function body* (handled separately by
// compileFunctionBody) contributes a value.
func (c *Compiler) compileBlock(scope *funcScope, block *ir.Block) error {
	for _, stmt := range block.Stmts {
		if err := c.compileStmt(scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

// compileMainBlock compiles the top-level Main block. Unlike a function body
// it needs no explicit trailing OpReturn: the interpreter's top-level
// execFrom runs to the end of the code range and reports whatever value the
// last OpPop discarded (spec §4.6 "Main has no explicit return"), so an
// ordinary statement-position compileBlock is sufficient.
func (c *Compiler) compileMainBlock(scope *funcScope, block *ir.Block) error {
	if block == nil {
		return nil
	}
	return c.compileBlock(scope, block)
}

// compileFunctionBody compiles a function body with Base's implicit
// last-expression-as-return-value semantics (spec §3.1 "Function"): every
// statement but the last is compiled for effect; if the last statement is a
// bare expression its value is left on the stack instead of being
// discarded, and if it is an if/else each branch is compiled the same way so
// the taken branch's last value is returned (a missing else returns
// Nothing). Every path ends in an explicit OpReturn (required because
// CallFunction's execFrom runs with no upper bound and only terminates on a
// terminal opcode).
func (c *Compiler) compileFunctionBody(scope *funcScope, block *ir.Block) error {
	if len(block.Stmts) == 0 {
		scope.emit(vm.OpConst, c.internConst(vm.Nothing), cst.Span{})
		scope.emit(vm.OpReturn, 0, cst.Span{})
		return nil
	}
	for _, stmt := range block.Stmts[:len(block.Stmts)-1] {
		if err := c.compileStmt(scope, stmt); err != nil {
			return err
		}
	}
	last := block.Stmts[len(block.Stmts)-1]
	if es, ok := last.(*ir.ExprStmt); ok {
		if err := c.compileExpr(scope, es.X); err != nil {
			return err
		}
		scope.emit(vm.OpReturn, 0, es.Span)
		return nil
	}
	if is, ok := last.(*ir.IfStmt); ok {
		if err := c.compileExpr(scope, is.Cond); err != nil {
			return err
		}
		jElse := scope.emit(vm.OpJumpIfFalse, 0, is.Span)
		if err := c.compileFunctionBody(scope, is.Then); err != nil {
			return err
		}
		scope.patchJump(jElse, scope.here())
		if is.Else == nil {
			return c.compileFunctionBody(scope, &ir.Block{})
		}
		return c.compileFunctionBody(scope, is.Else)
	}
	if err := c.compileStmt(scope, last); err != nil {
		return err
	}
	scope.emit(vm.OpConst, c.internConst(vm.Nothing), last.GetSpan())
	scope.emit(vm.OpReturn, 0, last.GetSpan())
	return nil
}

// compileStmt compiles one statement for effect.
func (c *Compiler) compileStmt(scope *funcScope, stmt ir.Stmt) error {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		if err := c.compileExpr(scope, s.X); err != nil {
			return err
		}
		scope.emit(vm.OpPop, 0, s.Span)
		return nil

	case *ir.AssignStmt:
		if err := c.compileExpr(scope, s.Value); err != nil {
			return err
		}
		c.emitStore(scope, s.Name, s.Span)
		return nil

	case *ir.AddAssignStmt:
		op, ok := binOpToArith[s.Op]
		if !ok {
			return &CompileError{Message: "unsupported compound assignment operator " + s.Op, Span: s.Span}
		}
		c.emitLoad(scope, s.Name, s.Span)
		if err := c.compileExpr(scope, s.Value); err != nil {
			return err
		}
		scope.emit(op, 0, s.Span)
		c.emitStore(scope, s.Name, s.Span)
		return nil

	case *ir.IfStmt:
		return c.compileIf(scope, s)

	case *ir.WhileStmt:
		return c.compileWhile(scope, s)

	case *ir.ForStmt:
		return c.compileFor(scope, s)

	case *ir.ForEachStmt:
		return c.compileForEach(scope, s)

	case *ir.ForEachTupleStmt:
		return c.compileForEachTuple(scope, s)

	case *ir.ReturnStmt:
		if s.Value != nil {
			if err := c.compileExpr(scope, s.Value); err != nil {
				return err
			}
		} else {
			scope.emit(vm.OpConst, c.internConst(vm.Nothing), s.Span)
		}
		scope.emit(vm.OpReturn, 0, s.Span)
		return nil

	case *ir.BreakStmt:
		if len(scope.loopStack) == 0 {
			return &CompileError{Message: "break outside a loop", Span: s.Span}
		}
		lc := &scope.loopStack[len(scope.loopStack)-1]
		idx := scope.emit(vm.OpJump, 0, s.Span)
		lc.breakJumps = append(lc.breakJumps, idx)
		return nil

	case *ir.ContinueStmt:
		if len(scope.loopStack) == 0 {
			return &CompileError{Message: "continue outside a loop", Span: s.Span}
		}
		lc := &scope.loopStack[len(scope.loopStack)-1]
		idx := scope.emit(vm.OpJump, 0, s.Span)
		lc.continueJumps = append(lc.continueJumps, idx)
		return nil

	case *ir.TryStmt:
		return c.compileTry(scope, s)

	case *ir.TimedStmt:
		return c.compileBlock(scope, s.Body)

	case *ir.TestStmt:
		if err := c.compileExpr(scope, s.Cond); err != nil {
			return err
		}
		scope.emit(vm.OpPop, 0, s.Span)
		return nil

	case *ir.TestSetStmt:
		return c.compileBlock(scope, s.Body)

	case *ir.TestThrowsStmt:
		if err := c.compileExpr(scope, s.X); err != nil {
			return err
		}
		scope.emit(vm.OpPop, 0, s.Span)
		return nil

	case *ir.IndexAssignStmt:
		if err := c.compileExpr(scope, s.Target); err != nil {
			return err
		}
		if len(s.Indices) != 1 {
			return &CompileError{Message: "multi-dimensional index assignment is unsupported", Span: s.Span}
		}
		if err := c.compileExpr(scope, s.Indices[0]); err != nil {
			return err
		}
		if err := c.compileExpr(scope, s.Value); err != nil {
			return err
		}
		scope.emit(vm.OpIndexSet, 0, s.Span)
		return nil

	case *ir.FieldAssignStmt:
		// Resolved by name at runtime via __set_field rather than a
		// compile-time field index, matching FieldAccess in compileExpr —
		// this VM has no static type-inference pass to resolve the
		// struct type a given target expression produces.
		if err := c.compileExpr(scope, s.Target); err != nil {
			return err
		}
		scope.emit(vm.OpConst, c.internString(s.Field), s.Span)
		if err := c.compileExpr(scope, s.Value); err != nil {
			return err
		}
		scope.emit2(vm.OpCallBuiltin, c.internString("__set_field"), 3, s.Span)
		scope.emit(vm.OpPop, 0, s.Span)
		return nil

	case *ir.DictAssignStmt:
		if err := c.compileExpr(scope, s.Target); err != nil {
			return err
		}
		if err := c.compileExpr(scope, s.Key); err != nil {
			return err
		}
		if err := c.compileExpr(scope, s.Value); err != nil {
			return err
		}
		scope.emit(vm.OpIndexSet, 0, s.Span)
		return nil

	case *ir.DestructuringAssignStmt:
		return c.compileDestructuring(scope, s)

	case *ir.FunctionDefStmt:
		// Nested function definitions compile as ordinary top-level functions
		// registered by name; the enclosing scope only needs the closure value
		// if it is later captured, handled by compileExpr's FunctionRef case.
		idx := len(c.funcInfos)
		c.funcIndex[s.Fn.Name] = idx
		c.funcInfos = append(c.funcInfos, vm.FunctionInfo{Name: s.Fn.Name})
		savedCode := c.code
		c.code = scope.code
		scope.code = nil
		err := c.compileFunctionInto(idx, s.Fn)
		scope.code = c.code
		c.code = savedCode
		return err

	case *ir.LabelStmt, *ir.GotoStmt, *ir.UsingStmt, *ir.ExportStmt:
		// Labeled goto and module-using bookkeeping carry no bytecode of their
		// own in this VM (spec §9 Open Questions: goto is rare enough in Base
		// code that a dedicated opcode isn't warranted).
		return nil

	default:
		return &CompileError{Message: "unsupported statement kind", Span: stmt.GetSpan()}
	}
}


func (c *Compiler) emitLoad(scope *funcScope, name string, span cst.Span) {
	if slot, ok := scope.resolveLocal(name); ok {
		scope.emit(vm.OpLoadLocal, slot, span)
		return
	}
	scope.emit(vm.OpLoadGlobal, c.internString(name), span)
}

func (c *Compiler) emitStore(scope *funcScope, name string, span cst.Span) {
	if slot, ok := scope.resolveLocal(name); ok {
		scope.emit(vm.OpStoreLocal, slot, span)
		return
	}
	if scope.isTopLevel {
		scope.emit(vm.OpStoreGlobal, c.internString(name), span)
		return
	}
	slot := scope.declareLocal(name)
	scope.emit(vm.OpStoreLocal, slot, span)
}

func (c *Compiler) compileIf(scope *funcScope, s *ir.IfStmt) error {
	if err := c.compileExpr(scope, s.Cond); err != nil {
		return err
	}
	jElse := scope.emit(vm.OpJumpIfFalse, 0, s.Span)
	if err := c.compileBlock(scope, s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		scope.patchJump(jElse, scope.here())
		return nil
	}
	jEnd := scope.emit(vm.OpJump, 0, s.Span)
	scope.patchJump(jElse, scope.here())
	if err := c.compileBlock(scope, s.Else); err != nil {
		return err
	}
	scope.patchJump(jEnd, scope.here())
	return nil
}

func (c *Compiler) compileWhile(scope *funcScope, s *ir.WhileStmt) error {
	loopStart := scope.here()
	scope.emit(vm.OpLoopHeader, 0, s.Span)
	if err := c.compileExpr(scope, s.Cond); err != nil {
		return err
	}
	jEnd := scope.emit(vm.OpJumpIfFalse, 0, s.Span)

	scope.loopStack = append(scope.loopStack, loopContext{})
	if err := c.compileBlock(scope, s.Body); err != nil {
		return err
	}
	lc := scope.loopStack[len(scope.loopStack)-1]
	scope.loopStack = scope.loopStack[:len(scope.loopStack)-1]

	scope.emit(vm.OpJump, loopStart, s.Span)
	end := scope.here()
	scope.patchJump(jEnd, end)
	for _, bj := range lc.breakJumps {
		scope.patchJump(bj, end)
	}
	for _, cj := range lc.continueJumps {
		scope.patchJump(cj, loopStart)
	}
	return nil
}

// compileFor desugars the numeric range for loop into a range materialize +
// foreach, sharing the ForEach lowering path; this keeps the opcode set
// representative rather than adding a dedicated counted-loop opcode.
func (c *Compiler) compileFor(scope *funcScope, s *ir.ForStmt) error {
	if err := c.compileExpr(scope, s.Start); err != nil {
		return err
	}
	if s.Step != nil {
		if err := c.compileExpr(scope, s.Step); err != nil {
			return err
		}
	} else {
		scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), s.Span)
	}
	if err := c.compileExpr(scope, s.End); err != nil {
		return err
	}
	scope.emit(vm.OpMakeRange, 0, s.Span)
	return c.compileIterationOverStackArray(scope, s.Var, s.Body, s.Span)
}

func (c *Compiler) compileForEach(scope *funcScope, s *ir.ForEachStmt) error {
	if err := c.compileExpr(scope, s.Iterable); err != nil {
		return err
	}
	return c.compileIterationOverStackArray(scope, s.Var, s.Body, s.Span)
}

// compileIterationOverStackArray compiles a loop body with a hidden index
// counter local, the iterable already on the stack, binding Var on each
// pass. The iterable local and index local both live in hidden slots so
// they never collide with user-visible names.
func (c *Compiler) compileIterationOverStackArray(scope *funcScope, varName string, body *ir.Block, span cst.Span) error {
	iterSlot := scope.declareLocal("##iter" + varName)
	idxSlot := scope.declareLocal("##idx" + varName)
	scope.emit(vm.OpStoreLocal, iterSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(0)), span)
	scope.emit(vm.OpStoreLocal, idxSlot, span)

	loopStart := scope.here()
	scope.emit(vm.OpLoopHeader, 0, span)
	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpLoadLocal, iterSlot, span)
	scope.emit(vm.OpLen, 0, span)
	scope.emit2(vm.OpLt, 0, 0, span)
	jEnd := scope.emit(vm.OpJumpIfFalse, 0, span)

	scope.emit(vm.OpLoadLocal, iterSlot, span)
	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), span)
	scope.emit(vm.OpAddTyped, 0, span)
	scope.emit(vm.OpIndexGet, 0, span)
	varSlot := scope.declareLocal(varName)
	scope.emit(vm.OpStoreLocal, varSlot, span)

	scope.loopStack = append(scope.loopStack, loopContext{})
	if err := c.compileBlock(scope, body); err != nil {
		return err
	}
	lc := scope.loopStack[len(scope.loopStack)-1]
	scope.loopStack = scope.loopStack[:len(scope.loopStack)-1]

	incrStart := scope.here()
	scope.emit(vm.OpLoadLocal, idxSlot, span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), span)
	scope.emit(vm.OpAddTyped, 0, span)
	scope.emit(vm.OpStoreLocal, idxSlot, span)
	scope.emit(vm.OpJump, loopStart, span)

	end := scope.here()
	scope.patchJump(jEnd, end)
	for _, bj := range lc.breakJumps {
		scope.patchJump(bj, end)
	}
	for _, cj := range lc.continueJumps {
		scope.patchJump(cj, incrStart)
	}
	return nil
}

func (c *Compiler) compileForEachTuple(scope *funcScope, s *ir.ForEachTupleStmt) error {
	if err := c.compileExpr(scope, s.Iterable); err != nil {
		return err
	}
	iterSlot := scope.declareLocal("##tupiter")
	idxSlot := scope.declareLocal("##tupidx")
	scope.emit(vm.OpStoreLocal, iterSlot, s.Span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(0)), s.Span)
	scope.emit(vm.OpStoreLocal, idxSlot, s.Span)

	loopStart := scope.here()
	scope.emit(vm.OpLoopHeader, 0, s.Span)
	scope.emit(vm.OpLoadLocal, idxSlot, s.Span)
	scope.emit(vm.OpLoadLocal, iterSlot, s.Span)
	scope.emit(vm.OpLen, 0, s.Span)
	scope.emit2(vm.OpLt, 0, 0, s.Span)
	jEnd := scope.emit(vm.OpJumpIfFalse, 0, s.Span)

	scope.emit(vm.OpLoadLocal, iterSlot, s.Span)
	scope.emit(vm.OpLoadLocal, idxSlot, s.Span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), s.Span)
	scope.emit(vm.OpAddTyped, 0, s.Span)
	scope.emit(vm.OpIndexGet, 0, s.Span)
	tupleSlot := scope.declareLocal("##tupval")
	scope.emit(vm.OpStoreLocal, tupleSlot, s.Span)
	for i, name := range s.Vars {
		scope.emit(vm.OpLoadLocal, tupleSlot, s.Span)
		scope.emit(vm.OpConst, c.internConst(vm.NewInt64(int64(i+1))), s.Span)
		scope.emit(vm.OpIndexGet, 0, s.Span)
		vslot := scope.declareLocal(name)
		scope.emit(vm.OpStoreLocal, vslot, s.Span)
	}

	scope.loopStack = append(scope.loopStack, loopContext{})
	if err := c.compileBlock(scope, s.Body); err != nil {
		return err
	}
	lc := scope.loopStack[len(scope.loopStack)-1]
	scope.loopStack = scope.loopStack[:len(scope.loopStack)-1]

	incrStart := scope.here()
	scope.emit(vm.OpLoadLocal, idxSlot, s.Span)
	scope.emit(vm.OpConst, c.internConst(vm.NewInt64(1)), s.Span)
	scope.emit(vm.OpAddTyped, 0, s.Span)
	scope.emit(vm.OpStoreLocal, idxSlot, s.Span)
	scope.emit(vm.OpJump, loopStart, s.Span)

	end := scope.here()
	scope.patchJump(jEnd, end)
	for _, bj := range lc.breakJumps {
		scope.patchJump(bj, end)
	}
	for _, cj := range lc.continueJumps {
		scope.patchJump(cj, incrStart)
	}
	return nil
}

func (c *Compiler) compileTry(scope *funcScope, s *ir.TryStmt) error {
	pushIdx := scope.emit(vm.OpPushHandler, 0, s.Span)
	if err := c.compileBlock(scope, s.Try); err != nil {
		return err
	}
	scope.emit(vm.OpPopHandler, 0, s.Span)
	if s.Else != nil {
		if err := c.compileBlock(scope, s.Else); err != nil {
			return err
		}
	}
	jEnd := scope.emit(vm.OpJump, 0, s.Span)

	catchPC := scope.here()
	scope.patchJump(pushIdx, catchPC)
	if s.Catch != nil {
		if s.CatchVar != "" {
			slot := scope.declareLocal(s.CatchVar)
			scope.emit(vm.OpStoreLocal, slot, s.Span)
		} else {
			scope.emit(vm.OpPop, 0, s.Span)
		}
		if err := c.compileBlock(scope, s.Catch); err != nil {
			return err
		}
	} else {
		scope.emit(vm.OpPop, 0, s.Span)
	}
	scope.patchJump(jEnd, scope.here())

	if s.Finally != nil {
		if err := c.compileBlock(scope, s.Finally); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileDestructuring(scope *funcScope, s *ir.DestructuringAssignStmt) error {
	if err := c.compileExpr(scope, s.Value); err != nil {
		return err
	}
	tmp := scope.declareLocal("##destructure")
	scope.emit(vm.OpStoreLocal, tmp, s.Span)
	for i, name := range s.Names {
		if i == s.RestIndex {
			continue
		}
		scope.emit(vm.OpLoadLocal, tmp, s.Span)
		scope.emit(vm.OpConst, c.internConst(vm.NewInt64(int64(i+1))), s.Span)
		scope.emit(vm.OpIndexGet, 0, s.Span)
		c.emitStore(scope, name, s.Span)
	}
	return nil
}
