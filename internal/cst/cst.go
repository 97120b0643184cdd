// Package cst defines the read-only concrete-syntax-tree interface the core
// consumes from an external parser (spec §6.1). The core never constructs
// production nodes of this interface itself; the surface parser, CLI, and
// REPL are explicitly out of scope (spec §1) and live outside this module.
package cst

// NodeKind is drawn from a closed enumeration supplied by the external
// parser. The core switches on these values during lowering; it never
// inspects raw parser state.
type NodeKind string

// Span locates a node in the original source text, carried onto every CIR
// node produced during lowering (spec §3.1 invariant).
type Span struct {
	File        string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Node is the read-only view of a single CST node. Implementations are
// supplied by the external parser; internal/cst/fixture provides an
// in-memory stand-in used only by this module's own tests.
type Node interface {
	Kind() NodeKind
	Text() string
	NamedChildren() []Node
	Children() []Node
	Span() Span
	FindChild(kind NodeKind) (Node, bool)
}

// Closed set of node kinds the lowering pass recognises. An external parser
// that reports a kind outside this set causes lowering to fail with
// UnsupportedFeature (spec §4.1 "Failure semantics"), not a panic.
const (
	KindProgram         NodeKind = "program"
	KindBlock           NodeKind = "block"
	KindIdentifier      NodeKind = "identifier"
	KindIntLiteral      NodeKind = "int_literal"
	KindFloatLiteral    NodeKind = "float_literal"
	KindBoolLiteral     NodeKind = "bool_literal"
	KindStringLiteral   NodeKind = "string_literal"
	KindPrefixedString  NodeKind = "prefixed_string"
	KindCharLiteral     NodeKind = "char_literal"
	KindNothingLiteral  NodeKind = "nothing_literal"
	KindMissingLiteral  NodeKind = "missing_literal"
	KindBinaryOp        NodeKind = "binary_op"
	KindUnaryOp         NodeKind = "unary_op"
	KindChainedCompare  NodeKind = "chained_compare"
	KindBroadcastOp     NodeKind = "broadcast_op"
	KindCall            NodeKind = "call"
	KindModuleCall      NodeKind = "module_call"
	KindIndex           NodeKind = "index"
	KindFieldAccess     NodeKind = "field_access"
	KindTernary         NodeKind = "ternary"
	KindArrayLiteral    NodeKind = "array_literal"
	KindTupleLiteral    NodeKind = "tuple_literal"
	KindNamedTuple      NodeKind = "named_tuple_literal"
	KindDictLiteral     NodeKind = "dict_literal"
	KindRange           NodeKind = "range"
	KindComprehension   NodeKind = "comprehension"
	KindGenerator       NodeKind = "generator"
	KindLetBlock        NodeKind = "let_block"
	KindStringInterp    NodeKind = "string_interp"
	KindPipe            NodeKind = "pipe"
	KindCompose         NodeKind = "compose"
	KindParametricType  NodeKind = "parametric_type"
	KindFunctionDef     NodeKind = "function_def"
	KindFunctionSig     NodeKind = "function_signature"
	KindParameter       NodeKind = "parameter"
	KindKeywordParam    NodeKind = "keyword_parameter"
	KindWhereClause     NodeKind = "where_clause"
	KindAssign          NodeKind = "assign"
	KindAddAssign       NodeKind = "add_assign"
	KindIf              NodeKind = "if"
	KindWhile           NodeKind = "while"
	KindFor             NodeKind = "for"
	KindForEach         NodeKind = "for_each"
	KindForEachTuple    NodeKind = "for_each_tuple"
	KindReturn          NodeKind = "return"
	KindBreak           NodeKind = "break"
	KindContinue        NodeKind = "continue"
	KindTry             NodeKind = "try"
	KindTimed           NodeKind = "timed"
	KindTest            NodeKind = "test"
	KindTestSet         NodeKind = "testset"
	KindTestThrows      NodeKind = "test_throws"
	KindMacroCall       NodeKind = "macro_call"
	KindQuote           NodeKind = "quote"
	KindUnquote         NodeKind = "unquote"
	KindGeneratedDef    NodeKind = "generated_def"
	KindCallableStruct  NodeKind = "callable_struct_def"
	KindStructDef       NodeKind = "struct_def"
	KindAbstractTypeDef NodeKind = "abstract_type_def"
	KindTypeAliasDef    NodeKind = "type_alias_def"
	KindModuleDef       NodeKind = "module_def"
	KindUsing           NodeKind = "using"
	KindExport          NodeKind = "export"
	KindEnumDef         NodeKind = "enum_def"
	KindLabel           NodeKind = "label"
	KindGoto            NodeKind = "goto"
)
