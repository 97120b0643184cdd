package vm

// Frame holds one call's activation record: its locals, an optional
// closure's captured values, and the bound type variables resolved from
// its where-clause at dispatch time (spec §4.5 "parametric dispatch").
type Frame struct {
	Locals         []Value
	BoundTypeVars  map[string]JuliaTypeTag
	Captures       []Value // indexed by FunctionInfo.ClosureOver position
	ReturnPC       int
	FuncIndex      int
}

// NewFrame allocates a Frame with numLocals zero-valued (Nothing) slots.
func NewFrame(numLocals int, returnPC, funcIndex int) *Frame {
	return &Frame{
		Locals:    make([]Value, numLocals),
		ReturnPC:  returnPC,
		FuncIndex: funcIndex,
	}
}

// handlerEntry is one entry of the exception-handler stack (spec §4.6
// "exception handling"): PushHandler records where control resumes (the
// catch block's start PC) and the stack depth to unwind to.
type handlerEntry struct {
	CatchPC    int
	StackDepth int
	FrameDepth int
}
