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
package types_test

import (
	"testing"

	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRecordTypeSortsFields(t *testing.T) {
	in := types.NewInterner()
	id := in.RegisterRecordType([]types.Field{
		{Name: "s", Type: types.Scalar(types.StringKind)},
		{Name: "a", Type: types.Scalar(types.IntKind)},
	})

	entry, ok := in.Record(id)
	require.True(t, ok)
	require.Len(t, entry.Fields, 2)
	assert.Equal(t, "a", entry.Fields[0].Name)
	assert.Equal(t, "s", entry.Fields[1].Name)
}

func TestRegisterRecordTypeDeduplicates(t *testing.T) {
	in := types.NewInterner()
	fields := []types.Field{{Name: "a", Type: types.Scalar(types.IntKind)}}

	id1 := in.RegisterRecordType(fields)
	id2 := in.RegisterRecordType(fields)

	assert.Equal(t, id1, id2)
}

func TestRegisterTupleTypeDeduplicates(t *testing.T) {
	in := types.NewInterner()
	fields := []types.Type{types.Scalar(types.IntKind), types.Scalar(types.BoolKind)}

	id1 := in.RegisterTupleType(fields)
	id2 := in.RegisterTupleType(fields)

	assert.Equal(t, id1, id2)
}

func TestCommonRecordTypeRequiresMatchingFieldNames(t *testing.T) {
	in := types.NewInterner()
	a := in.RegisterRecordType([]types.Field{{Name: "a", Type: types.Scalar(types.IntKind)}})
	b := in.RegisterRecordType([]types.Field{{Name: "b", Type: types.Scalar(types.IntKind)}})

	_, ok := in.CommonRecordType(a, b)
	assert.False(t, ok)
}

func TestCommonRecordTypeJoinsFieldTypes(t *testing.T) {
	in := types.NewInterner()
	a := in.RegisterRecordType([]types.Field{{Name: "a", Type: types.Scalar(types.IntKind)}})
	b := in.RegisterRecordType([]types.Field{{Name: "a", Type: types.Scalar(types.IntKind).AsVar()}})

	id, ok := in.CommonRecordType(a, b)
	require.True(t, ok)

	entry, _ := in.Record(id)
	assert.Equal(t, types.Var, entry.Fields[0].Type.Variability)
}
