package prelude

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/corelang/corevm/internal/methodtable"
	"github.com/corelang/corevm/internal/vm"
)

// PromotionRule is one serializable (t1, t2) -> result entry, the
// prelude-package mirror of vm.PromotionPair kept separate so this
// package's gob wire format doesn't change shape if vm.PromotionRegistry's
// internals ever do.
type PromotionRule struct {
	T1, T2, Result string
}

// BaseCacheBlob is the self-describing record serialized to/from the
// embedded cache blob (spec §6.1 "Embedded cache blob", §4.3
// "Serialization": "bytecode + method tables + closure captures +
// promotion rules"). gob is this repo's bincode-equivalent: a
// self-describing Go-native binary encoding, matching the teacher's own
// preference for stdlib encodings over a third-party wire format
// (see DESIGN.md).
type BaseCacheBlob struct {
	Compiled          *vm.CompiledProgram
	MethodTables      map[string][]methodtable.Entry
	ClosureCaptures   map[string]map[string]bool
	PromotionRules    []PromotionRule
	BaseFunctionCount int
}

// Serialize encodes a BaseCacheBlob to bytes via gob.
func Serialize(blob *BaseCacheBlob) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(blob); err != nil {
		return nil, fmt.Errorf("serializing base cache: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes bytes produced by Serialize back into a BaseCacheBlob
// with equivalent structure (spec §4.3 "Serialization": "deserialized into
// an equivalent structure").
func Deserialize(data []byte) (*BaseCacheBlob, error) {
	var blob BaseCacheBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return nil, fmt.Errorf("deserializing base cache: %w", err)
	}
	return &blob, nil
}

// MethodTablesToEntries flattens a live method-table map to the
// gob-friendly entry-slice shape BaseCacheBlob stores.
func MethodTablesToEntries(tables map[string]*methodtable.Table) map[string][]methodtable.Entry {
	out := make(map[string][]methodtable.Entry, len(tables))
	for name, t := range tables {
		out[name] = t.Entries()
	}
	return out
}

// EntriesToMethodTables rebuilds live Tables from BaseCacheBlob's
// gob-friendly representation, the inverse of MethodTablesToEntries.
func EntriesToMethodTables(entries map[string][]methodtable.Entry) map[string]*methodtable.Table {
	out := make(map[string]*methodtable.Table, len(entries))
	for name, es := range entries {
		out[name] = methodtable.FromEntries(es)
	}
	return out
}
