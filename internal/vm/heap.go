package vm

import (
	"github.com/dolthub/swiss"
)

// StructRef is an allocated struct instance. The heap is append-only (spec
// Non-goals: no garbage collection), so a StructRef's Id is stable for the
// lifetime of the VM and safe to use as a map key or capture in a closure.
type StructRef struct {
	Id       int
	TypeName string
	Fields   []Value
	Mutable  bool
}

// StructHeap is the append-only struct allocation arena. Lookup by Id uses
// a swiss.Map index rather than a plain slice-by-index so the heap can also
// serve identity-hash lookups (`objectid`) without a second data structure.
type StructHeap struct {
	refs  []*StructRef
	index *swiss.Map[int, *StructRef]
}

// NewStructHeap returns an empty heap sized for cap initial allocations.
func NewStructHeap(cap int) *StructHeap {
	return &StructHeap{
		refs:  make([]*StructRef, 0, cap),
		index: swiss.NewMap[int, *StructRef](uint32(cap)),
	}
}

// Alloc appends a new struct instance and returns its StructRef.
func (h *StructHeap) Alloc(typeName string, fields []Value, mutable bool) *StructRef {
	ref := &StructRef{Id: len(h.refs), TypeName: typeName, Fields: fields, Mutable: mutable}
	h.refs = append(h.refs, ref)
	h.index.Put(ref.Id, ref)
	return ref
}

// Get looks up a struct instance by Id.
func (h *StructHeap) Get(id int) (*StructRef, bool) {
	return h.index.Get(id)
}

// Len reports how many struct instances have been allocated.
func (h *StructHeap) Len() int { return len(h.refs) }

// DictValue is Base's `Dict{K,V}`, backed by a swiss.Map keyed on a Value's
// hashable projection (spec Design Note: parametric Dict rejects a raw
// Value::Dict pattern match — see internal/methodtable's covariant-bound
// fallback, which this type's KeyType/ValType tags feed).
type DictValue struct {
	m       *swiss.Map[string, dictEntry]
	KeyType string
	ValType string
}

type dictEntry struct {
	Key Value
	Val Value
}

// NewDict returns an empty dict sized for cap initial entries.
func NewDict(keyType, valType string, cap int) *DictValue {
	return &DictValue{
		m:       swiss.NewMap[string, dictEntry](uint32(cap)),
		KeyType: keyType,
		ValType: valType,
	}
}

// dictKey projects a Value to a string suitable as a swiss.Map key: Base
// dict keys are compared with `==`, which for the types the VM supports is
// always faithfully captured by this textual projection (ints/floats/bools/
// strings/chars/tuples of those).
func dictKey(v Value) string {
	return v.TypeName() + "\x00" + v.String()
}

// Get looks up a key, reporting whether it was present.
func (d *DictValue) Get(k Value) (Value, bool) {
	e, ok := d.m.Get(dictKey(k))
	if !ok {
		return Nothing, false
	}
	return e.Val, true
}

// Set inserts or overwrites a key.
func (d *DictValue) Set(k, v Value) {
	d.m.Put(dictKey(k), dictEntry{Key: k, Val: v})
}

// Delete removes a key, reporting whether it was present.
func (d *DictValue) Delete(k Value) bool {
	return d.m.Delete(dictKey(k))
}

// Len reports the number of entries.
func (d *DictValue) Len() int { return d.m.Count() }

// Pairs returns every (key, value) pair in unspecified order, the shape
// Base's `collect(dict)` / iteration protocol consumes.
func (d *DictValue) Pairs() []DictPair {
	out := make([]DictPair, 0, d.m.Count())
	d.m.Iter(func(_ string, e dictEntry) bool {
		out = append(out, DictPair{Key: e.Key, Value: e.Val})
		return false
	})
	return out
}

// DictPair is one key/value entry returned by DictValue.Pairs.
type DictPair struct {
	Key   Value
	Value Value
}
