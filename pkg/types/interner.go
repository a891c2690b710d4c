// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Field is one element of a record type: a name plus its type.
type Field struct {
	Name string
	Type Type
}

// TupleEntry is a registered tuple type: an ordered list of field types
// (no names).
type TupleEntry struct {
	Fields []Type
}

// RecordEntry is a registered record type: fields sorted by name, which
// is an invariant of the registration itself.
type RecordEntry struct {
	Fields []Field
}

// ArrayEnumEntry interns the vector [rangeEnumId_0, ..., rangeEnumId_n-1,
// elementTypeId] used to intern an array-of-struct type.
type ArrayEnumEntry struct {
	RangeEnumIDs  []uint32
	ElementTypeID uint32
}

// Interner is the structural-type interner. It is
// process-wide for one compilation (owned by the environment) and hands
// out 1-based ids embedded into Type.TypeID.
type Interner struct {
	tuples      []TupleEntry
	records     []RecordEntry
	arrayEnums  []ArrayEnumEntry
	tupleIndex  map[string]uint32
	recordIndex map[string]uint32
}

// NewInterner constructs an empty interner.
func NewInterner() *Interner {
	return &Interner{
		tupleIndex:  make(map[string]uint32),
		recordIndex: make(map[string]uint32),
	}
}

// RegisterTupleType interns a tuple type (fields given in positional
// order) and returns its 1-based id, reusing an existing id for a
// structurally identical tuple.
func (in *Interner) RegisterTupleType(fields []Type) uint32 {
	key := tupleKey(fields)
	if id, ok := in.tupleIndex[key]; ok {
		return id
	}

	in.tuples = append(in.tuples, TupleEntry{Fields: append([]Type(nil), fields...)})
	id := uint32(len(in.tuples))
	in.tupleIndex[key] = id

	return id
}

// RegisterRecordType interns a record type. A copy of the fields is
// sorted by name before interning (the caller's slice is left as
// given), so that field-order is
// an invariant of any record literal using this type id.
func (in *Interner) RegisterRecordType(fields []Field) uint32 {
	sorted := append([]Field(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	key := recordKey(sorted)
	if id, ok := in.recordIndex[key]; ok {
		return id
	}

	in.records = append(in.records, RecordEntry{Fields: sorted})
	id := uint32(len(in.records))
	in.recordIndex[key] = id

	return id
}

// RegisterArrayEnumType interns the array-of-struct side-table entry.
// Unlike tuples/records, array-enum entries are not deduplicated: each
// array type instantiation gets its own slot, since the enum ids
// distinguishing index sets are specific to the declaration site.
func (in *Interner) RegisterArrayEnumType(rangeEnumIDs []uint32, elementTypeID uint32) uint32 {
	in.arrayEnums = append(in.arrayEnums, ArrayEnumEntry{
		RangeEnumIDs:  append([]uint32(nil), rangeEnumIDs...),
		ElementTypeID: elementTypeID,
	})

	return uint32(len(in.arrayEnums))
}

// Tuple looks up a previously registered tuple type by id.
func (in *Interner) Tuple(id uint32) (TupleEntry, bool) {
	if id == 0 || int(id) > len(in.tuples) {
		return TupleEntry{}, false
	}

	return in.tuples[id-1], true
}

// Record looks up a previously registered record type by id.
func (in *Interner) Record(id uint32) (RecordEntry, bool) {
	if id == 0 || int(id) > len(in.records) {
		return RecordEntry{}, false
	}

	return in.records[id-1], true
}

// ArrayEnum looks up a previously registered array-of-struct side-table
// entry by id.
func (in *Interner) ArrayEnum(id uint32) (ArrayEnumEntry, bool) {
	if id == 0 || int(id) > len(in.arrayEnums) {
		return ArrayEnumEntry{}, false
	}

	return in.arrayEnums[id-1], true
}

// CommonRecordType computes the common type of two record type ids for
// the purposes of a tuple-equality/common-type check: bot unless both
// have equal arity and equal field names; otherwise the field-name
// slice must match position-for-position.
func (in *Interner) CommonRecordType(a, b uint32) (uint32, bool) {
	ra, ok1 := in.Record(a)
	rb, ok2 := in.Record(b)

	if !ok1 || !ok2 || len(ra.Fields) != len(rb.Fields) {
		return 0, false
	}

	for i := range ra.Fields {
		if ra.Fields[i].Name != rb.Fields[i].Name {
			return 0, false
		}
	}

	if a == b {
		return a, true
	}
	// Structurally compatible but distinct ids (different field types):
	// re-register the LUB'd field list as a fresh/shared entry.
	fields := make([]Field, len(ra.Fields))

	for i := range ra.Fields {
		fields[i] = Field{Name: ra.Fields[i].Name, Type: LeastUpperBound(ra.Fields[i].Type, rb.Fields[i].Type)}
	}

	return in.RegisterRecordType(fields), true
}

func tupleKey(fields []Type) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}

	return strings.Join(parts, ";")
}

func recordKey(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s:%s", f.Name, f.Type.String())
	}

	return strings.Join(parts, ";")
}
