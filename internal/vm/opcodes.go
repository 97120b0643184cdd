package vm

// Op is a single bytecode opcode (spec §4.6). Categories follow the spec's
// own grouping; this set is a representative, fully-wired core rather than
// an exhaustive enumeration of the original's ~200 opcodes — each category
// named in the spec has at least one concrete opcode here, and
// internal/compiler only ever emits opcodes from this set.
type Op uint8

const (
	OpNop Op = iota

	// Stack / constants
	OpConst    // push CompiledProgram.Consts[operand]
	OpPop
	OpDup
	OpSwap

	// Locals
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpLoadCaptured

	// Typed arithmetic (operand selects a fixed primitive kind, no dispatch)
	OpAddTyped
	OpSubTyped
	OpMulTyped
	OpDivTyped
	OpNegTyped

	// Dynamic arithmetic (goes through promotion + multiple dispatch)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpNeg

	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIdentical    // ===
	OpNotIdentical // !==
	OpIsA

	// Boolean
	OpNot
	OpAnd // strict Bool&&Bool, short-circuited by jump opcodes instead when lazy
	OpOr

	// Control flow
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpLoopHeader // marks a loop back-edge target for @time/profiling hooks

	// The four call forms (spec §4.5): direct-name dispatch, module-qualified,
	// dynamic (value-in-hand, e.g. closures/ComposedFunction), and builtin
	// intrinsic (no dispatch at all).
	OpCallNamed
	OpCallModule
	OpCallDynamic
	OpCallBuiltin

	OpReturn
	OpReturnTyped // returns like OpReturn; the operand is not checked against a declared return type

	// Exceptions
	OpThrow
	OpPushHandler
	OpPopHandler

	// Containers
	OpMakeArray
	OpArrayPush     // pop value, peek array, append in place (used by comprehension lowering)
	OpMakeRange     // pop stop,step,start; push a materialized Vector (spec §9: ranges are eager, not lazy)
	OpReshapeMatrix // pop array, reinterpret as row-major A-by-B, push it back
	OpMakeTuple
	OpMakeNamedTuple
	OpMakeDict
	OpIndexGet
	OpIndexSet
	OpSliceAll
	OpLen

	// Structs
	OpNewStruct
	OpGetField
	OpSetField

	// Closures / composition
	OpMakeClosure
	OpMakeComposed

	// Metaprogramming / reflection
	OpMakeSymbol
	OpMakeExpr
	OpGensym
	OpQuoteNode
	OpLineNumberNode
	OpGlobalRef
	OpEsc
	OpEval
	OpFieldNames
	OpFieldTypes
	OpHasMethod
	OpWhich
	OpMethods

	// Regex
	OpMakeRegex
	OpRegexMatch

	// Broadcast (spec §4.5 "Broadcast")
	OpBroadcast

	OpHalt
)

var opNames = map[Op]string{
	OpNop: "nop", OpConst: "const", OpPop: "pop", OpDup: "dup", OpSwap: "swap",
	OpLoadLocal: "load_local", OpStoreLocal: "store_local",
	OpLoadGlobal: "load_global", OpStoreGlobal: "store_global",
	OpLoadCaptured: "load_captured",
	OpAddTyped:     "add_typed", OpSubTyped: "sub_typed", OpMulTyped: "mul_typed",
	OpDivTyped: "div_typed", OpNegTyped: "neg_typed",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpFloorDiv: "floordiv",
	OpMod: "mod", OpPow: "pow", OpNeg: "neg",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpIdentical: "identical", OpNotIdentical: "not_identical", OpIsA: "isa",
	OpNot: "not", OpAnd: "and", OpOr: "or",
	OpJump: "jump", OpJumpIfFalse: "jump_if_false", OpJumpIfTrue: "jump_if_true",
	OpLoopHeader: "loop_header",
	OpCallNamed:  "call_named", OpCallModule: "call_module",
	OpCallDynamic: "call_dynamic", OpCallBuiltin: "call_builtin",
	OpReturn: "return", OpReturnTyped: "return_typed",
	OpThrow: "throw", OpPushHandler: "push_handler", OpPopHandler: "pop_handler",
	OpMakeArray: "make_array", OpArrayPush: "array_push", OpMakeRange: "make_range",
	OpReshapeMatrix: "reshape_matrix",
	OpMakeTuple:     "make_tuple",
	OpMakeNamedTuple: "make_named_tuple", OpMakeDict: "make_dict",
	OpIndexGet: "index_get", OpIndexSet: "index_set", OpSliceAll: "slice_all", OpLen: "len",
	OpNewStruct: "new_struct", OpGetField: "get_field", OpSetField: "set_field",
	OpMakeClosure: "make_closure", OpMakeComposed: "make_composed",
	OpMakeSymbol: "make_symbol", OpMakeExpr: "make_expr", OpGensym: "gensym",
	OpQuoteNode: "quote_node", OpLineNumberNode: "line_number_node",
	OpGlobalRef: "global_ref", OpEsc: "esc", OpEval: "eval",
	OpFieldNames: "field_names", OpFieldTypes: "field_types",
	OpHasMethod: "has_method", OpWhich: "which", OpMethods: "methods",
	OpMakeRegex: "make_regex", OpRegexMatch: "regex_match",
	OpBroadcast: "broadcast",
	OpHalt:      "halt",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "unknown"
}
