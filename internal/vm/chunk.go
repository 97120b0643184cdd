package vm

import "github.com/corelang/corevm/internal/cst"

// Instr is a single decoded bytecode instruction. A flat operand slice
// keeps the interpreter's dispatch loop branch-predictor-friendly (no
// variant-sized encoding to decode) at the cost of a little memory, the
// same tradeoff the teacher's own bytecode format makes.
type Instr struct {
	Op      Op
	A, B, C int // operand meaning is opcode-specific; unused operands are 0
	Span    cst.Span
}

// FunctionInfo describes one compiled function's entry point and frame
// shape within the shared code array.
type FunctionInfo struct {
	Name        string
	Entry       int // index into CompiledProgram.Code
	NumLocals   int
	NumParams   int
	IsVarargs   bool
	ReturnType  string // printable JuliaType, "" if unannotated
	ClosureOver []string
}

// StructDefInfo mirrors a lowered ir.StructDef for runtime reflection
// (fieldnames/fieldtypes), kept here rather than re-walking ir.Program so
// the VM never depends on internal/ir at execution time.
type StructDefInfo struct {
	Name      string
	Fields    []string
	FieldType []string
	IsMutable bool
	Parent    string
}

// CompiledProgram is the linked output of internal/compiler: one flat
// instruction array shared by every function (functions are non-overlapping
// slices addressed by FunctionInfo.Entry), plus the constant pool and debug
// tables needed to execute and to report errors with source positions.
type CompiledProgram struct {
	Code      []Instr
	Functions []FunctionInfo
	FuncIndex map[string]int // function name -> index into Functions
	Structs   []StructDefInfo
	Consts    []Value
	MainEntry int
	MainLen   int
}

// Clone returns a deep-enough copy for cache storage: Code/Consts/Structs
// are copied so a caller mutating the returned program (e.g. appending user
// functions after the cached Base entries) never aliases the cached tables.
func (p *CompiledProgram) Clone() *CompiledProgram {
	out := &CompiledProgram{
		MainEntry: p.MainEntry,
		MainLen:   p.MainLen,
	}
	out.Code = append([]Instr(nil), p.Code...)
	out.Functions = append([]FunctionInfo(nil), p.Functions...)
	out.Structs = append([]StructDefInfo(nil), p.Structs...)
	out.Consts = append([]Value(nil), p.Consts...)
	out.FuncIndex = make(map[string]int, len(p.FuncIndex))
	for k, v := range p.FuncIndex {
		out.FuncIndex[k] = v
	}
	return out
}
