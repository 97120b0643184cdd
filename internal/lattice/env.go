package lattice

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TypeEnv maps a narrowable Path to the LatticeType abstract interpretation
// currently believes it holds.
type TypeEnv struct {
	bindings map[string]LatticeType
}

// NewTypeEnv returns an empty environment.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{bindings: make(map[string]LatticeType)}
}

// Get returns the bound type for path, or (Top, false) if unbound. Callers
// that just want a best-effort type generally use GetOr(path, Top) instead.
func (e *TypeEnv) Get(path string) (LatticeType, bool) {
	t, ok := e.bindings[path]
	if !ok {
		return Top, false
	}
	return t, true
}

// GetOr returns the bound type for path, or fallback if unbound.
func (e *TypeEnv) GetOr(path string, fallback LatticeType) LatticeType {
	if t, ok := e.bindings[path]; ok {
		return t
	}
	return fallback
}

// Set binds path to t.
func (e *TypeEnv) Set(path string, t LatticeType) {
	e.bindings[path] = t
}

// Clone returns an independent deep copy of the environment.
func (e *TypeEnv) Clone() *TypeEnv {
	return &TypeEnv{bindings: maps.Clone(e.bindings)}
}

// Merge joins other into e in place: every path present in either
// environment ends up bound to the Join of its two bindings (absent in one
// side is treated as Top, matching the Rust original's "unknown path widens
// to Any" behavior for environment-merge after branch analysis).
func (e *TypeEnv) Merge(other *TypeEnv) {
	keys := make(map[string]bool, len(e.bindings)+len(other.bindings))
	for k := range e.bindings {
		keys[k] = true
	}
	for k := range other.bindings {
		keys[k] = true
	}
	for k := range keys {
		a := e.GetOr(k, Top)
		b := other.GetOr(k, Top)
		e.bindings[k] = a.Join(b)
	}
}

// Paths returns the bound paths in deterministic sorted order, for tests
// and debug tracing.
func (e *TypeEnv) Paths() []string {
	ks := maps.Keys(e.bindings)
	slices.Sort(ks)
	return ks
}
