package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/corelang/corevm/internal/config"
	"github.com/corelang/corevm/internal/ir"
	"github.com/corelang/corevm/internal/methodtable"
	"github.com/corelang/corevm/internal/prelude"
	"github.com/corelang/corevm/internal/vm"
)

// CachedProgram is the embedder-visible result of CompileWithCache: the
// linked bytecode plus a uuid.UUID BuildID identifying the compilation that
// produced it (spec §6.2, DESIGN.md "google/uuid" entry); a full-program
// cache hit carries the BuildID of the original compile. Cache-debug trace
// lines show a hash prefix, not the BuildID. The BuildID is metadata only;
// the cache lookup key itself is the sha256 content hash computed by
// programHash.
type CachedProgram struct {
	*vm.CompiledProgram
	BuildID        uuid.UUID
	MethodTables   map[string]*methodtable.Table
	Hierarchy      *methodtable.Hierarchy
	Promotion      *vm.PromotionRegistry
	FromFullCache  bool
	FromBaseCache  bool
}

// baseCacheEntry is the thread-local, reference-counted Base compilation
// (spec §4.3 "Cache tiers", tier 2): the precompiled prelude bytecode plus
// the method tables, closure captures, and promotion rules it seeded. It is
// shared by value (copy-on-read via Clone) across every full compile that
// reuses it rather than recompiling Base from source.
type baseCacheEntry struct {
	compiled         *vm.CompiledProgram
	methodTables     map[string]*methodtable.Table
	hierarchy        *methodtable.Hierarchy
	closureCaptures  map[string]map[string]bool
	promotionRules   []prelude.PromotionRule
	baseFunctionCount int
}

// programCacheEntry is one full-program cache hit (spec §4.3 tier 1).
type programCacheEntry struct {
	compiled     *vm.CompiledProgram
	methodTables map[string]*methodtable.Table
	hierarchy    *methodtable.Hierarchy
	promotion    *vm.PromotionRegistry
	buildID      uuid.UUID
}

// threadCache is the thread-local cache state. Go has no first-class
// goroutine-local storage, so each Session owns one threadCache (a
// mutex-guarded struct, not a shared map) and NewSession gives each logical
// "thread" (a long-lived compile/run loop) its own.
type threadCache struct {
	mu      sync.Mutex
	base    *baseCacheEntry
	program map[string]*programCacheEntry
}

// Session is a thread-local cache handle (spec §5 "Shared resources": "The
// base cache and program cache are thread-local: each thread builds or
// restores them independently"). An embedder creates one Session per
// worker goroutine and never shares it across goroutines, exactly the
// discipline spec §5 "Locking discipline" places on the embedder.
type Session struct {
	cache *threadCache
}

// NewSession returns a fresh, uninitialized cache session.
func NewSession() *Session {
	return &Session{cache: &threadCache{program: make(map[string]*programCacheEntry)}}
}

// IsCacheInitialized reports whether this session's Base cache tier has
// been populated (spec §8 property 4).
func (s *Session) IsCacheInitialized() bool {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	return s.cache.base != nil
}

// ClearCache empties every tier and the promotion registry as a single
// transaction (spec §4.3 "Invariants", §8 property 4, §9 "Cache-consistency
// invariant" — the historical bug where clear_cache left the promotion
// registry populated).
func (s *Session) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.base = nil
	s.cache.program = make(map[string]*programCacheEntry)
}

// CompileWithCache is the spec §6.2 outbound entry point. It consults the
// full-program cache first, falls through to the Base cache (compiling
// prelude.BaseProgram() once per session if not already cached; there is no
// embedded precompiled blob path), and finally assembles the user
// program's functions on top.
func (s *Session) CompileWithCache(program *ir.Program) (*CachedProgram, error) {
	return s.CompileWithCacheWithGlobals(program, nil, nil)
}

// CompileWithCacheWithGlobals is CompileWithCache with an explicit global
// type/struct-name context folded into the program hash, for embedders that
// compile the same textual program against different ambient globals (REPL
// incremental sessions, spec §6.2).
func (s *Session) CompileWithCacheWithGlobals(program *ir.Program, globalTypes map[string]string, globalStructNames []string) (*CachedProgram, error) {
	if config.CacheDisabled() {
		return s.compileFull(program)
	}

	key := programHash(program, globalTypes, globalStructNames)
	s.cache.mu.Lock()
	if entry, ok := s.cache.program[key]; ok {
		s.cache.mu.Unlock()
		config.LogCache("full-program cache hit " + key[:12])
		return &CachedProgram{
			CompiledProgram: entry.compiled.Clone(),
			BuildID:         entry.buildID,
			MethodTables:    entry.methodTables,
			Hierarchy:       entry.hierarchy,
			Promotion:       entry.promotion,
			FromFullCache:   true,
		}, nil
	}
	s.cache.mu.Unlock()
	config.LogCache("full-program cache miss " + key[:12])

	out, err := s.compileWithBaseCache(program)
	if err != nil {
		return nil, err
	}

	s.cache.mu.Lock()
	s.cache.program[key] = &programCacheEntry{
		compiled:     out.CompiledProgram,
		methodTables: out.MethodTables,
		hierarchy:    out.Hierarchy,
		promotion:    out.Promotion,
		buildID:      out.BuildID,
	}
	s.cache.mu.Unlock()
	return out, nil
}

// compileWithBaseCache implements the base-cache-bypass rule (spec §4.3
// "Base-cache bypass"): if the user program overrides a Base method with an
// exact-signature replacement, BaseFunctionCount no longer matches the
// prelude's true function count, and the cached base bytecode's indices
// would be stale — fall through to a full compile in that case. If that
// full compile registered no promotion rules of its own, the cached Base
// rules are replayed into its registry.
func (s *Session) compileWithBaseCache(program *ir.Program) (*CachedProgram, error) {
	base, err := s.ensureBaseCache()
	if err != nil {
		return nil, err
	}

	if program.BaseFunctionCount != base.baseFunctionCount {
		config.LogCache("base-cache bypass: program base_function_count diverges from prelude")
		out, err := s.compileFull(program)
		if err != nil {
			return nil, err
		}
		if !out.Promotion.IsInitialized() {
			for _, r := range base.promotionRules {
				out.Promotion.Register(r.T1, r.T2, r.Result)
			}
			out.Promotion.MarkInitialized()
		}
		return out, nil
	}

	c := NewCompiler()
	c.seedFromBase(base)

	userFns := program.Functions
	if program.BaseFunctionCount <= len(userFns) {
		userFns = userFns[program.BaseFunctionCount:]
	}
	userProgram := &ir.Program{
		Functions:     userFns,
		Structs:       program.Structs,
		AbstractTypes: program.AbstractTypes,
		TypeAliases:   program.TypeAliases,
		Modules:       program.Modules,
		UsingClauses:  program.UsingClauses,
		Macros:        program.Macros,
		Enums:         program.Enums,
		Main:          program.Main,
	}

	compiled, err := c.compileAppending(base.compiled, userProgram)
	if err != nil {
		return nil, err
	}

	promo := vm.NewPromotionRegistry()
	for _, r := range base.promotionRules {
		promo.Register(r.T1, r.T2, r.Result)
	}
	promo.MarkInitialized()
	c.promotion = promo

	return &CachedProgram{
		CompiledProgram: compiled,
		BuildID:         uuid.New(),
		MethodTables:    c.tables,
		Hierarchy:       c.hierarchy,
		Promotion:       c.promotion,
		FromBaseCache:   true,
	}, nil
}

// ensureBaseCache returns this session's Base cache tier, populating it by
// compiling prelude.BaseProgram() once on first use; it does not read an
// embedded or persisted blob.
func (s *Session) ensureBaseCache() (*baseCacheEntry, error) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	if s.cache.base != nil {
		return s.cache.base, nil
	}

	config.LogCache("populating base cache")
	baseProgram := prelude.BaseProgram()

	c := NewCompiler()
	compiled, err := c.Compile(baseProgram)
	if err != nil {
		return nil, fmt.Errorf("compiling base: %w", err)
	}

	rules := extractPromotionRules(c.promotion)
	entry := &baseCacheEntry{
		compiled:          compiled,
		methodTables:      c.tables,
		hierarchy:         c.hierarchy,
		closureCaptures:   collectClosureCaptures(compiled),
		promotionRules:    rules,
		baseFunctionCount: len(baseProgram.Functions),
	}
	s.cache.base = entry
	return entry, nil
}

// compileFull bypasses every cache tier and compiles program from scratch,
// used when caching is disabled or the base-cache-bypass rule fires.
func (s *Session) compileFull(program *ir.Program) (*CachedProgram, error) {
	c := NewCompiler()
	compiled, err := c.Compile(program)
	if err != nil {
		return nil, err
	}
	return &CachedProgram{
		CompiledProgram: compiled,
		BuildID:         uuid.New(),
		MethodTables:    c.tables,
		Hierarchy:       c.hierarchy,
		Promotion:       c.promotion,
	}, nil
}

// seedFromBase primes a fresh Compiler's tables with the cached Base
// method tables and hierarchy so user functions compiled on top dispatch
// correctly against Base methods.
func (c *Compiler) seedFromBase(base *baseCacheEntry) {
	for name, t := range base.methodTables {
		c.tables[name] = t.Clone()
	}
	c.hierarchy = base.hierarchy.Clone()
}

// compileAppending links baseCompiled's code as a fixed prefix and compiles
// userProgram's functions/main after it, producing one combined
// CompiledProgram whose function entry offsets for Base methods are
// untouched (so the base-cache bypass check above is what keeps this
// valid, not any offset renumbering here).
func (c *Compiler) compileAppending(baseCompiled *vm.CompiledProgram, userProgram *ir.Program) (*vm.CompiledProgram, error) {
	c.code = append([]vm.Instr(nil), baseCompiled.Code...)
	c.consts = append([]vm.Value(nil), baseCompiled.Consts...)
	for i, v := range c.consts {
		key := v.TypeName() + "\x00" + v.String()
		c.constIndex[key] = i
	}
	c.structs = append([]vm.StructDefInfo(nil), baseCompiled.Structs...)
	for _, sd := range c.structs {
		c.structIdx[sd.Name] = sd.Fields
	}
	c.funcInfos = append([]vm.FunctionInfo(nil), baseCompiled.Functions...)
	for name, idx := range baseCompiled.FuncIndex {
		c.funcIndex[name] = idx
	}

	userOut, err := c.Compile(userProgram)
	if err != nil {
		return nil, err
	}
	return userOut, nil
}

// rulesToRegistry replays a serialized rule slice into a fresh
// PromotionRegistry, used by the cache (de)serialization round-trip test
// to compare promote_type answers rather than raw slice equality.
func rulesToRegistry(rules []prelude.PromotionRule) *vm.PromotionRegistry {
	reg := vm.NewPromotionRegistry()
	for _, r := range rules {
		reg.Register(r.T1, r.T2, r.Result)
	}
	reg.MarkInitialized()
	return reg
}

// extractPromotionRules flattens a PromotionRegistry into a stable,
// sorted slice for storage in the (de)serializable base cache (spec §4.3
// "Serialization").
func extractPromotionRules(reg *vm.PromotionRegistry) []prelude.PromotionRule {
	seen := map[[2]string]bool{}
	var out []prelude.PromotionRule
	for _, pair := range reg.Pairs() {
		t1, t2 := pair.T1, pair.T2
		k := [2]string{t1, t2}
		if t1 > t2 {
			k = [2]string{t2, t1}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, prelude.PromotionRule{T1: pair.T1, T2: pair.T2, Result: pair.Result})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].T1 != out[j].T1 {
			return out[i].T1 < out[j].T1
		}
		return out[i].T2 < out[j].T2
	})
	return out
}

// collectClosureCaptures builds the function_name -> captured variable
// names map (spec §3.4 "Closure captures") from the compiled program's
// per-function ClosureOver lists.
func collectClosureCaptures(p *vm.CompiledProgram) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, fn := range p.Functions {
		if len(fn.ClosureOver) == 0 {
			continue
		}
		set := make(map[string]bool, len(fn.ClosureOver))
		for _, name := range fn.ClosureOver {
			set[name] = true
		}
		out[fn.Name] = set
	}
	return out
}

// programHash computes the full-program cache key (spec §4.3 tier 1): a
// deterministic hash over main, the user-function suffix past
// BaseFunctionCount, user structs, modules, and the ordered global
// type/struct-name context. Structural hashing walks exported fields via
// reflection and skips cst.Span, so two ASTs that differ only in source
// position still hit the same cache entry (the compiled bytecode does
// carry span info for diagnostics, but cache identity is span-independent).
func programHash(program *ir.Program, globalTypes map[string]string, globalStructNames []string) string {
	h := sha256.New()
	w := &hashWriter{h: h}

	w.writeNode(program.Main)

	userFns := program.Functions
	if program.BaseFunctionCount <= len(userFns) {
		userFns = userFns[program.BaseFunctionCount:]
	}
	w.writeString("functions")
	w.writeInt(len(userFns))
	for _, fn := range userFns {
		w.writeNode(fn)
	}

	w.writeString("structs")
	w.writeInt(len(program.Structs))
	for _, sd := range program.Structs {
		w.writeNode(sd)
	}

	w.writeString("modules")
	w.writeInt(len(program.Modules))
	for _, m := range program.Modules {
		w.writeNode(m)
	}

	w.writeString("globalTypes")
	keys := make([]string, 0, len(globalTypes))
	for k := range globalTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.writeString(k)
		w.writeString(globalTypes[k])
	}

	w.writeString("globalStructs")
	sortedStructs := append([]string(nil), globalStructNames...)
	sort.Strings(sortedStructs)
	for _, n := range sortedStructs {
		w.writeString(n)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// hashWriter accumulates a deterministic byte stream for programHash,
// reflecting over IR nodes so new node types need no dedicated case here,
// the same "don't hand-maintain a parallel type switch" tradeoff the
// compiler's own codegen dispatch takes in the other direction.
type hashWriter struct {
	h interface{ Write([]byte) (int, error) }
}

func (w *hashWriter) writeString(s string) {
	w.h.Write([]byte(s))
	w.h.Write([]byte{0})
}

func (w *hashWriter) writeInt(n int) {
	w.writeString(fmt.Sprintf("%d", n))
}

func (w *hashWriter) writeNode(v interface{}) {
	w.reflectWrite(reflect.ValueOf(v))
}

func (w *hashWriter) reflectWrite(rv reflect.Value) {
	if !rv.IsValid() {
		w.writeString("<nil>")
		return
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			w.writeString("<nil>")
			return
		}
		w.reflectWrite(rv.Elem())
	case reflect.Struct:
		t := rv.Type()
		w.writeString(t.Name())
		for i := 0; i < rv.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if field.Type.String() == "cst.Span" || field.Name == "Span" || field.Name == "StmtBase" || field.Name == "ExprBase" {
				continue
			}
			w.writeString(field.Name)
			w.reflectWrite(rv.Field(i))
		}
	case reflect.Slice, reflect.Array:
		w.writeInt(rv.Len())
		for i := 0; i < rv.Len(); i++ {
			w.reflectWrite(rv.Index(i))
		}
	case reflect.Map:
		keys := rv.MapKeys()
		strs := make([]string, len(keys))
		for i, k := range keys {
			strs[i] = fmt.Sprintf("%v", k.Interface())
		}
		sort.Strings(strs)
		idx := make(map[string]reflect.Value, len(keys))
		for _, k := range keys {
			idx[fmt.Sprintf("%v", k.Interface())] = k
		}
		w.writeInt(len(strs))
		for _, s := range strs {
			w.writeString(s)
			w.reflectWrite(rv.MapIndex(idx[s]))
		}
	case reflect.String:
		w.writeString(rv.String())
	case reflect.Bool:
		w.writeString(fmt.Sprintf("%v", rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.writeString(fmt.Sprintf("%d", rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		w.writeString(fmt.Sprintf("%d", rv.Uint()))
	case reflect.Float32, reflect.Float64:
		w.writeString(fmt.Sprintf("%g", rv.Float()))
	default:
		w.writeString(fmt.Sprintf("%v", rv.Interface()))
	}
}
