// Package lattice implements the abstract-interpretation type lattice used
// during compilation: Bottom ⊑ Concrete(t) ⊑ Union(S) ⊑ Top, with Meet,
// Join, and Subtract forming the narrowing algebra that conditional.go
// drives from branch conditions.
package lattice

import (
	"sort"
	"strings"

	"github.com/corelang/corevm/internal/ir"
)

// Kind discriminates a LatticeType's shape.
type Kind int

const (
	KindBottom Kind = iota
	KindConcrete
	KindUnion
	KindTop
)

// LatticeType is the inferred type of a value at a program point. Unlike
// ir.JuliaType (what the user wrote), LatticeType is what abstract
// interpretation concluded.
type LatticeType struct {
	kind     Kind
	concrete ir.JuliaType   // meaningful when kind == KindConcrete
	members  []ir.JuliaType // meaningful when kind == KindUnion, sorted by String()
}

// Bottom is the type of unreachable code (no value can have this type).
var Bottom = LatticeType{kind: KindBottom}

// Top is Any: the least precise type, assigned when nothing narrower is known.
var Top = LatticeType{kind: KindTop}

// Concrete wraps a single known JuliaType.
func Concrete(t ir.JuliaType) LatticeType {
	return LatticeType{kind: KindConcrete, concrete: t}
}

// MakeUnion builds a Union lattice type from members, collapsing the
// degenerate cases (0 members -> Bottom, 1 member -> that member) and
// deduplicating by String() so repeated narrowing passes are idempotent.
func MakeUnion(members ...ir.JuliaType) LatticeType {
	seen := make(map[string]ir.JuliaType, len(members))
	for _, m := range members {
		seen[m.String()] = m
	}
	if len(seen) == 0 {
		return Bottom
	}
	if len(seen) == 1 {
		for _, m := range seen {
			return Concrete(m)
		}
	}
	out := make([]ir.JuliaType, 0, len(seen))
	for _, m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return LatticeType{kind: KindUnion, members: out}
}

func (t LatticeType) Kind() Kind { return t.kind }

// ConcreteType returns the wrapped type and true when Kind() == KindConcrete.
func (t LatticeType) ConcreteType() (ir.JuliaType, bool) {
	if t.kind != KindConcrete {
		return nil, false
	}
	return t.concrete, true
}

// UnionMembers returns the member list when Kind() == KindUnion, nil otherwise.
func (t LatticeType) UnionMembers() []ir.JuliaType {
	if t.kind != KindUnion {
		return nil
	}
	return t.members
}

func (t LatticeType) String() string {
	switch t.kind {
	case KindBottom:
		return "Union{}"
	case KindTop:
		return "Any"
	case KindConcrete:
		return t.concrete.String()
	case KindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = m.String()
		}
		return "Union{" + strings.Join(parts, ",") + "}"
	}
	return "?"
}

// Equal compares two lattice types structurally, treating unions as sets
// (member order does not matter since MakeUnion always sorts).
func (t LatticeType) Equal(other LatticeType) bool {
	return t.String() == other.String()
}

// asSet returns the flattened member set of any lattice type: Bottom -> nil,
// Concrete -> [t], Union -> members, Top -> nil (Top has no finite member set).
func (t LatticeType) asSet() []ir.JuliaType {
	switch t.kind {
	case KindConcrete:
		return []ir.JuliaType{t.concrete}
	case KindUnion:
		return t.members
	default:
		return nil
	}
}

// Meet computes the intersection (greatest lower bound) of two lattice
// types: used by the then-branch of an isa check.
func (t LatticeType) Meet(other LatticeType) LatticeType {
	if t.kind == KindBottom || other.kind == KindBottom {
		return Bottom
	}
	if t.kind == KindTop {
		return other
	}
	if other.kind == KindTop {
		return t
	}
	a, b := t.asSet(), other.asSet()
	bSet := make(map[string]bool, len(b))
	for _, m := range b {
		bSet[m.String()] = true
	}
	var common []ir.JuliaType
	for _, m := range a {
		if bSet[m.String()] {
			common = append(common, m)
		}
	}
	return MakeUnion(common...)
}

// Join computes the union (least upper bound) of two lattice types: used
// to merge branch environments after an if/else.
func (t LatticeType) Join(other LatticeType) LatticeType {
	if t.kind == KindBottom {
		return other
	}
	if other.kind == KindBottom {
		return t
	}
	if t.kind == KindTop || other.kind == KindTop {
		return Top
	}
	return MakeUnion(append(append([]ir.JuliaType{}, t.asSet()...), other.asSet()...)...)
}

// Subtract removes other's members from t: used by the else-branch of an
// isa check. Subtracting anything from Top yields Top back, since Top has
// no enumerable complement (matches the Rust original's behavior).
func (t LatticeType) Subtract(other LatticeType) LatticeType {
	if t.kind == KindTop {
		return Top
	}
	if t.kind == KindBottom {
		return Bottom
	}
	remove := make(map[string]bool)
	for _, m := range other.asSet() {
		remove[m.String()] = true
	}
	var remaining []ir.JuliaType
	for _, m := range t.asSet() {
		if !remove[m.String()] {
			remaining = append(remaining, m)
		}
	}
	return MakeUnion(remaining...)
}
