package methodtable

// Entry is one compiled method signature: the function it resolves to and
// the parameter pattern it was compiled against (e.g. ["Complex{T}",
// "Int64"]). Patterns use the same string grammar as the reference VM:
// bare TypeVar ("T"), covariant bound ("_<:Animal"), parametric
// ("Dict{K,V}"), or a concrete/abstract name.
type Entry struct {
	FuncIndex int
	Name      string
	Params    []string
}

// Table is a method table: every Entry, indexed by function name for O(1)
// lookup during runtime rescan (spec §4.5 point 5).
type Table struct {
	entries []Entry
	byName  map[string][]int // name -> indices into entries
}

// New returns an empty table.
func New() *Table {
	return &Table{byName: make(map[string][]int)}
}

// Add registers one method signature and returns its entry index.
func (t *Table) Add(e Entry) int {
	idx := len(t.entries)
	t.entries = append(t.entries, e)
	t.byName[e.Name] = append(t.byName[e.Name], idx)
	return idx
}

// ByName returns the entry indices registered under name, in registration
// order, or nil if the name has no methods.
func (t *Table) ByName(name string) []int {
	return t.byName[name]
}

// Entry returns the entry at idx.
func (t *Table) Entry(idx int) Entry {
	return t.entries[idx]
}

// Entries returns every registered entry in registration order, for cache
// serialization (spec §4.3 "Serialization": method tables are part of the
// base cache blob); byName is an index derivable from this slice alone.
func (t *Table) Entries() []Entry {
	return t.entries
}

// FromEntries rebuilds a Table from a previously-serialized entry slice,
// the inverse of Entries.
func FromEntries(entries []Entry) *Table {
	t := New()
	for _, e := range entries {
		t.Add(e)
	}
	return t
}

// Clone returns a deep-enough copy so a caller seeding a fresh Compiler
// from the cached Base method tables (internal/compiler's base-cache tier)
// can add its own entries without mutating the shared cached Table.
func (t *Table) Clone() *Table {
	return FromEntries(append([]Entry(nil), t.entries...))
}

// isDictMismatch reports, for one (argument, expected-pattern) pair,
// whether arg is a native (Rust/Go-backed) dictionary value being matched
// against a parametric Dict{K,V} pattern meant for a pure-language
// struct-based dictionary. VM callers supply this via argIsNativeDict since
// methodtable has no notion of runtime Value representations.
func isDictMismatch(argIsNativeDict bool, pattern string) bool {
	return argIsNativeDict && baseName(pattern) == "Dict" && len(parseParamsOnly(pattern)) > 0
}

func parseParamsOnly(pattern string) []string {
	_, params := parseParametric(pattern)
	return params
}

// argInfo pairs one argument's runtime type name with whether it is a
// native dict, for the has_dict_mismatch guard.
type argInfo struct {
	typeName     string
	isNativeDict bool
}

// Dispatch resolves a call by name among the entries the live table holds
// for that name (spec §4.5 point 5, "runtime rescan"), then via the
// covariant-bound fallback pass. There is no separate frozen compile-time
// candidate set: both scans below read t.ByName(name), so the second one
// sees the same entries as the first. It returns the winning Entry index and true, or
// (fallbackIndex, false) if nothing matched and the caller supplied one,
// or (-1, false) if it did not.
func (t *Table) Dispatch(name string, argTypes []string, argIsNativeDict []bool, fallbackIndex int, hierarchy *Hierarchy) (int, bool) {
	args := make([]argInfo, len(argTypes))
	for i, ty := range argTypes {
		nd := false
		if i < len(argIsNativeDict) {
			nd = argIsNativeDict[i]
		}
		args[i] = argInfo{typeName: ty, isNativeDict: nd}
	}

	candidates := t.ByName(name)

	bestIdx, bestScore, found := bestMatch(t, candidates, args)
	if found && bestScore > 0 {
		return bestIdx, true
	}

	// Covariant-bound fallback over the same candidates.
	if cIdx, cScore, cok := covariantMatch(t, candidates, args, hierarchy); cok {
		if !found || cScore > bestScore {
			bestIdx, bestScore, found = cIdx, cScore, true
		}
	}

	// Runtime rescan of the live table for name (the same entries as
	// candidates above).
	rtIdx, rtScore, rtFound := bestMatch(t, t.ByName(name), args)
	if !rtFound {
		if cIdx, cScore, cok := covariantMatch(t, t.ByName(name), args, hierarchy); cok {
			rtIdx, rtScore, rtFound = cIdx, cScore, true
		}
	}

	switch {
	case rtFound && found && rtScore > bestScore:
		return rtIdx, true
	case rtFound && !found:
		return rtIdx, true
	case found:
		return bestIdx, true
	case fallbackIndex >= 0:
		return fallbackIndex, false
	default:
		return -1, false
	}
}

func bestMatch(t *Table, indices []int, args []argInfo) (int, int, bool) {
	best := -1
	bestScore := 0
	found := false
	argTypeNames := make([]string, len(args))
	for i, a := range args {
		argTypeNames[i] = a.typeName
	}
	for _, idx := range indices {
		e := t.entries[idx]
		if len(e.Params) != len(args) {
			continue
		}
		if hasDictMismatch(e.Params, args) {
			continue
		}
		if !patternMatches(e.Params, argTypeNames) {
			continue
		}
		score := patternSpecificity(e.Params)
		if !found || score > bestScore {
			best, bestScore, found = idx, score, true
		}
	}
	return best, bestScore, found
}

func covariantMatch(t *Table, indices []int, args []argInfo, hierarchy *Hierarchy) (int, int, bool) {
	best := -1
	bestScore := 0
	found := false
	for _, idx := range indices {
		e := t.entries[idx]
		if len(e.Params) != len(args) {
			continue
		}
		if hasDictMismatch(e.Params, args) {
			continue
		}
		hasBound := false
		for _, p := range e.Params {
			if baseHasCovariantBound(p) {
				hasBound = true
				break
			}
		}
		if !hasBound {
			continue
		}
		allMatch := true
		bindings := make(map[string]string)
		for i, p := range e.Params {
			if bound, ok := cutCovariantBound(p); ok {
				if hierarchy == nil || !hierarchy.IsSubtype(args[i].typeName, bound) {
					allMatch = false
					break
				}
				continue
			}
			if !typeMatches(p, args[i].typeName, bindings) {
				allMatch = false
				break
			}
		}
		if !allMatch {
			continue
		}
		score := patternSpecificity(e.Params)
		if !found || score > bestScore {
			best, bestScore, found = idx, score, true
		}
	}
	return best, bestScore, found
}

func hasDictMismatch(params []string, args []argInfo) bool {
	for i, p := range params {
		if i >= len(args) {
			break
		}
		if isDictMismatch(args[i].isNativeDict, p) {
			return true
		}
	}
	return false
}

func baseHasCovariantBound(p string) bool {
	_, ok := cutCovariantBound(p)
	return ok
}

func cutCovariantBound(p string) (string, bool) {
	const prefix = "_<:"
	if len(p) > len(prefix) && p[:len(prefix)] == prefix {
		return p[len(prefix):], true
	}
	return "", false
}
