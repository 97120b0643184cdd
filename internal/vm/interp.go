package vm

import (
	"fmt"

	"github.com/corelang/corevm/internal/methodtable"
)

// ExecError is a runtime fault raised by the interpreter (an uncaught
// Base exception, or a VM-internal invariant violation such as an empty
// operand stack).
type ExecError struct {
	Message string
	ExcType string
}

func (e *ExecError) Error() string { return e.Message }

// VM executes one CompiledProgram. A VM is single-use: construct one per
// top-level run (or per REPL evaluation), the way the teacher's own
// bytecode interpreter is scoped to one execution.
type VM struct {
	Program      *CompiledProgram
	Heap         *StructHeap
	MethodTables map[string]*methodtable.Table
	Hierarchy    *methodtable.Hierarchy
	Promotion    *PromotionRegistry
	Globals      map[string]Value

	stack         []Value
	frames        []*Frame
	handlers      []handlerEntry
	gensymCounter int
}

// New returns a VM ready to Run the given compiled program.
func New(program *CompiledProgram, tables map[string]*methodtable.Table, hierarchy *methodtable.Hierarchy, promotion *PromotionRegistry) *VM {
	return &VM{
		Program:      program,
		Heap:         NewStructHeap(64),
		MethodTables: tables,
		Hierarchy:    hierarchy,
		Promotion:    promotion,
		Globals:      make(map[string]Value),
	}
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return Nothing, &ExecError{Message: "operand stack underflow"}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) top() Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) frame() *Frame { return vm.frames[len(vm.frames)-1] }

// Run executes the program's top-level Main block and returns the value of
// its final expression statement (or Nothing if Main has none).
func (vm *VM) Run() (Value, error) {
	vm.frames = append(vm.frames, NewFrame(0, -1, -1))
	return vm.execFrom(vm.Program.MainEntry, vm.Program.MainEntry+vm.Program.MainLen)
}

// CallFunction invokes a compiled function by its FunctionInfo index with
// already-evaluated arguments, used by dispatchCall for
// OpCallNamed/OpCallModule.
func (vm *VM) CallFunction(funcIdx int, args []Value) (Value, error) {
	fi := vm.Program.Functions[funcIdx]
	fr := NewFrame(fi.NumLocals, -1, funcIdx)
	for i, a := range args {
		if i < len(fr.Locals) {
			fr.Locals[i] = a
		}
	}
	vm.frames = append(vm.frames, fr)
	result, err := vm.execFrom(fi.Entry, -1)
	vm.frames = vm.frames[:len(vm.frames)-1]
	return result, err
}

// execFrom runs instructions starting at pc until it hits a terminating
// opcode (OpReturn/OpReturnTyped/OpHalt) or, for a bounded range (end>=0),
// falls off the end — used to run the Main block, which has no explicit
// return.
func (vm *VM) execFrom(pc, end int) (Value, error) {
	baseStackLen := len(vm.stack)
	last := Nothing
	for {
		if end >= 0 && pc >= end {
			if len(vm.stack) > baseStackLen {
				last = vm.top()
			}
			return last, nil
		}
		instr := vm.Program.Code[pc]
		nextPC := pc + 1

		switch instr.Op {
		case OpNop:
		case OpHalt:
			return last, nil

		case OpConst:
			vm.push(vm.Program.Consts[instr.A])

		case OpPop:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			last = v

		case OpDup:
			vm.push(vm.top())

		case OpSwap:
			n := len(vm.stack)
			vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

		case OpLoadLocal:
			vm.push(vm.frame().Locals[instr.A])

		case OpStoreLocal:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.frame().Locals[instr.A] = v

		case OpLoadGlobal:
			vm.push(vm.Globals[vm.Program.Consts[instr.A].Str])

		case OpStoreGlobal:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.Globals[vm.Program.Consts[instr.A].Str] = v

		case OpLoadCaptured:
			vm.push(vm.frame().Captures[instr.A])

		case OpAddTyped, OpSubTyped, OpMulTyped, OpDivTyped:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := typedArith(instr.Op, l, r)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpNegTyped:
			x, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(negate(x))

		case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := vm.dynamicArith(instr.Op, l, r)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpNeg:
			x, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(negate(x))

		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIdentical, OpNotIdentical:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := compare(instr.Op, l, r)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpIsA:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(NewBool(vm.isA(l, r.Str)))

		case OpNot:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			b, ok := v.IsTruthy()
			if !ok {
				return Nothing, &ExecError{Message: "type error: ! applied to non-Bool", ExcType: "TypeError"}
			}
			vm.push(NewBool(!b))

		case OpJump:
			nextPC = instr.A
			goto dispatched

		case OpJumpIfFalse:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			b, ok := v.IsTruthy()
			if !ok {
				return Nothing, &ExecError{Message: "type error: non-Bool in condition", ExcType: "TypeError"}
			}
			if !b {
				nextPC = instr.A
			}
			goto dispatched

		case OpJumpIfTrue:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			b, ok := v.IsTruthy()
			if !ok {
				return Nothing, &ExecError{Message: "type error: non-Bool in condition", ExcType: "TypeError"}
			}
			if b {
				nextPC = instr.A
			}
			goto dispatched

		case OpLoopHeader:
			// instrumentation hook point only; no state change.

		case OpCallNamed, OpCallModule:
			name := vm.Program.Consts[instr.A].Str
			argc := instr.B
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				a, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				args[i] = a
			}
			res, err := vm.dispatchCall(name, args, instr.C)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpCallDynamic:
			argc := instr.A
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				a, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				args[i] = a
			}
			fnVal, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := vm.callValue(fnVal, args)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpCallBuiltin:
			name := vm.Program.Consts[instr.A].Str
			argc := instr.B
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				a, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				args[i] = a
			}
			res, err := vm.callBuiltin(name, args)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpReturn:
			v, err := vm.pop()
			if err != nil {
				v = Nothing
			}
			return v, nil

		case OpReturnTyped:
			v, err := vm.pop()
			if err != nil {
				v = Nothing
			}
			return v, nil

		case OpThrow:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			if len(vm.handlers) == 0 {
				return Nothing, &ExecError{Message: describeException(v), ExcType: v.TypeName()}
			}
			h := vm.handlers[len(vm.handlers)-1]
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
			vm.stack = vm.stack[:h.StackDepth]
			vm.push(v)
			nextPC = h.CatchPC
			goto dispatched

		case OpPushHandler:
			vm.handlers = append(vm.handlers, handlerEntry{CatchPC: instr.A, StackDepth: len(vm.stack), FrameDepth: len(vm.frames)})

		case OpPopHandler:
			if len(vm.handlers) > 0 {
				vm.handlers = vm.handlers[:len(vm.handlers)-1]
			}

		case OpMakeArray:
			n := instr.A
			elems := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				elems[i] = v
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjArray, Elems: elems, Dims: []int{n}}})

		case OpArrayPush:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			arr := vm.top()
			if arr.Kind != KindObject || arr.Obj.OKind != ObjArray {
				return Nothing, &ExecError{Message: "array_push on non-array value", ExcType: "TypeError"}
			}
			arr.Obj.Elems = append(arr.Obj.Elems, v)
			arr.Obj.Dims = []int{len(arr.Obj.Elems)}

		case OpMakeRange:
			stop, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			step, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			start, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			r, err := materializeRange(start, step, stop)
			if err != nil {
				return Nothing, err
			}
			vm.push(r)

		case OpReshapeMatrix:
			arr := vm.top()
			if arr.Kind != KindObject || arr.Obj.OKind != ObjArray {
				return Nothing, &ExecError{Message: "reshape_matrix on non-array value", ExcType: "TypeError"}
			}
			arr.Obj.Dims = []int{instr.A, instr.B}

		case OpAnd:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			lb, lok := l.IsTruthy()
			rb, rok := r.IsTruthy()
			if !lok || !rok {
				return Nothing, &ExecError{Message: "type error: && applied to non-Bool", ExcType: "TypeError"}
			}
			vm.push(NewBool(lb && rb))

		case OpOr:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			lb, lok := l.IsTruthy()
			rb, rok := r.IsTruthy()
			if !lok || !rok {
				return Nothing, &ExecError{Message: "type error: || applied to non-Bool", ExcType: "TypeError"}
			}
			vm.push(NewBool(lb || rb))

		case OpMakeTuple:
			n := instr.A
			elems := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				elems[i] = v
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple, Elems: elems}})

		case OpMakeNamedTuple:
			n := instr.A
			elems := make([]Value, n)
			names := make([]string, n)
			for i := n - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				elems[i] = v
				names[i] = vm.Program.Consts[instr.B+i].Str
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjNamedTuple, Elems: elems, Names: names}})

		case OpMakeDict:
			n := instr.A
			d := NewDict("Any", "Any", n)
			for i := 0; i < n; i++ {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				k, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				d.Set(k, v)
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjDict, Dict: d}})

		case OpIndexGet:
			idx, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			target, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := indexGet(target, idx)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpIndexSet:
			val, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			idx, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			target, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			if err := indexSet(target, idx, val); err != nil {
				return Nothing, err
			}

		case OpSliceAll:
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjSymbol, Name: ":"}})

		case OpLen:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(NewInt64(int64(valueLen(v))))

		case OpNewStruct:
			nameIdx := instr.A
			argc := instr.B
			name := vm.Program.Consts[nameIdx].Str
			fields := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				fields[i] = v
			}
			mutable := vm.structIsMutable(name)
			ref := vm.Heap.Alloc(name, fields, mutable)
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjStructRef, Struct: ref}})

		case OpGetField:
			target, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			fieldIdx := instr.A
			if target.Kind != KindObject || target.Obj.OKind != ObjStructRef {
				return Nothing, &ExecError{Message: "field access on non-struct value", ExcType: "TypeError"}
			}
			vm.push(target.Obj.Struct.Fields[fieldIdx])

		case OpSetField:
			val, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			target, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			fieldIdx := instr.A
			if target.Kind != KindObject || target.Obj.OKind != ObjStructRef {
				return Nothing, &ExecError{Message: "field assignment on non-struct value", ExcType: "TypeError"}
			}
			if !target.Obj.Struct.Mutable {
				return Nothing, &ExecError{Message: "cannot mutate field of immutable struct " + target.Obj.Struct.TypeName, ExcType: "ErrorException"}
			}
			target.Obj.Struct.Fields[fieldIdx] = val

		case OpMakeClosure:
			funcIdx := instr.A
			n := instr.B
			captures := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				captures[i] = v
			}
			fi := vm.Program.Functions[funcIdx]
			vm.push(Value{Kind: KindObject, Obj: &Object{
				OKind:   ObjClosure,
				Closure: &Closure{FunctionName: fi.Name, CapturedNames: fi.ClosureOver, CapturedValues: captures},
			}})

		case OpMakeComposed:
			r, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			l, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(composeValues(l, r))

		case OpMakeSymbol:
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjSymbol, Name: vm.Program.Consts[instr.A].Str}})

		case OpMakeExpr:
			argc := instr.B
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				args[i] = v
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjQuotedExpr, Head: vm.Program.Consts[instr.A].Str, Args: args}})

		case OpGensym:
			vm.gensymCounter++
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjSymbol, Name: fmt.Sprintf("##%d", vm.gensymCounter)}})

		case OpQuoteNode:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjQuotedExpr, Head: "quote", Args: []Value{v}}})

		case OpLineNumberNode:
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjLineNumberNode, Line: instr.A, File: vm.Program.Consts[instr.B].Str}})

		case OpGlobalRef:
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjGlobalRef, Name: vm.Program.Consts[instr.A].Str}})

		case OpEsc:
			// esc(x) is identity at the value level; hygiene is resolved during
			// lowering (spec §4.6 macro expansion), so the VM passes through.

		case OpEval:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(v)

		case OpFieldNames:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(vm.fieldNames(v))

		case OpFieldTypes:
			v, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(vm.fieldTypes(v))

		case OpHasMethod:
			argc := instr.A
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				a, err := vm.pop()
				if err != nil {
					return Nothing, err
				}
				args[i] = a
			}
			name, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(NewBool(vm.hasMethod(name.String(), args)))

		case OpWhich, OpMethods:
			// Reflection-only; the interpreter returns a printable description
			// rather than a structured Method object (spec §4.6 "reflection
			// builtins" describes these as diagnostic, not dispatch-affecting).
			name, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			vm.push(NewString(vm.describeMethods(name.String())))

		case OpMakeRegex:
			vm.push(Value{Kind: KindObject, Obj: &Object{OKind: ObjRegex, Pattern: vm.Program.Consts[instr.A].Str, Flags: vm.Program.Consts[instr.B].Str}})

		case OpRegexMatch:
			s, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			re, err := vm.pop()
			if err != nil {
				return Nothing, err
			}
			res, err := regexMatch(re, s)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		case OpBroadcast:
			res, err := vm.execBroadcast(instr)
			if err != nil {
				return Nothing, err
			}
			vm.push(res)

		default:
			return Nothing, &ExecError{Message: fmt.Sprintf("unimplemented opcode %s", instr.Op)}
		}

		pc = nextPC
		continue
	dispatched:
		pc = nextPC
	}
}

func describeException(v Value) string {
	if v.Kind == KindObject && v.Obj.OKind == ObjException {
		return v.Obj.Message
	}
	return v.String()
}
