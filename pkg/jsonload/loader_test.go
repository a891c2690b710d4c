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
package jsonload_test

import (
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/jsonload"
	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterner satisfies jsonload.Interner with a fixed pre-registered
// table, avoiding a dependency on pkg/types.Interner's write path.
type fakeInterner struct {
	tuples  map[uint32]types.TupleEntry
	records map[uint32]types.RecordEntry
}

func (f fakeInterner) Tuple(id uint32) (types.TupleEntry, bool) {
	e, ok := f.tuples[id]
	return e, ok
}

func (f fakeInterner) Record(id uint32) (types.RecordEntry, bool) {
	e, ok := f.records[id]
	return e, ok
}

func declare(model *ast.Model, name string, id heap.Id, ty types.Type, ti *ast.TypeInst) {
	decl := &ast.VarDecl{Name: name, Declared: ty, TI: ti, SelfID: id}
	model.Append(&ast.VarDeclI{VarDecl: decl})
}

func TestLoadScalarInt(t *testing.T) {
	model := ast.NewModel()
	declare(model, "n", 1, types.Scalar(types.IntKind), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"n": 42}`), "data.json")
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, heap.Id(1), items[0].DeclID)

	lit, ok := items[0].Rhs.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(42), lit.Val.Int64())
}

func TestLoadFlatArray(t *testing.T) {
	model := ast.NewModel()
	declare(model, "xs", 2, types.Scalar(types.IntKind).AsArray(1), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"xs": [1, 2, 3]}`), "data.json")
	require.NoError(t, err)
	require.Len(t, items, 1)

	arr, ok := items[0].Rhs.(*ast.ArrayLit)
	require.True(t, ok)
	require.Equal(t, [][2]int{{1, 3}}, arr.Bounds)
	require.Len(t, arr.Elems, 3)

	for i, want := range []int64{1, 2, 3} {
		lit, ok := arr.Elems[i].(*ast.IntLit)
		require.True(t, ok)
		assert.Equal(t, want, lit.Val.Int64())
	}
}

func TestLoadNested2DArray(t *testing.T) {
	model := ast.NewModel()
	declare(model, "grid", 3, types.Scalar(types.IntKind).AsArray(2), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"grid": [[1, 2], [3, 4], [5, 6]]}`), "data.json")
	require.NoError(t, err)

	arr, ok := items[0].Rhs.(*ast.ArrayLit)
	require.True(t, ok)
	assert.Equal(t, [][2]int{{1, 3}, {1, 2}}, arr.Bounds)
	require.Len(t, arr.Elems, 6)

	lit, ok := arr.Elems[3].(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(4), lit.Val.Int64())
}

func TestLoadRaggedArrayRejected(t *testing.T) {
	model := ast.NewModel()
	declare(model, "grid", 4, types.Scalar(types.IntKind).AsArray(2), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	_, err := l.Load([]byte(`{"grid": [[1, 2], [3]]}`), "data.json")
	assert.Error(t, err)
}

func TestLoadEnumKeyedArray(t *testing.T) {
	model := ast.NewModel()

	ti := &ast.TypeInst{Ranges: []ast.Expr{&ast.TIId{Name: "Colors"}}}
	declare(model, "cost", 5, types.Scalar(types.IntKind).AsArray(1), ti)

	enums := jsonload.EnumTable{"Colors": {"R", "G", "B"}}
	l := jsonload.NewLoader(model, fakeInterner{}, enums)

	items, err := l.Load([]byte(`{"cost": {"R": 10, "G": 20, "B": 30}}`), "data.json")
	require.NoError(t, err)

	arr, ok := items[0].Rhs.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Elems, 3)

	for i, want := range []int64{10, 20, 30} {
		lit, ok := arr.Elems[i].(*ast.IntLit)
		require.True(t, ok)
		assert.Equal(t, want, lit.Val.Int64())
	}
}

func TestLoadEnumMemberAsIdentifier(t *testing.T) {
	model := ast.NewModel()

	ti := &ast.TypeInst{Domain: &ast.TIId{Name: "Colors"}}
	declare(model, "favorite", 6, types.Scalar(types.IntKind), ti)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"favorite": "G"}`), "data.json")
	require.NoError(t, err)

	id, ok := items[0].Rhs.(*ast.Id)
	require.True(t, ok)
	assert.Equal(t, "G", id.Name)
}

func TestLoadEnumOrdinalCoercion(t *testing.T) {
	model := ast.NewModel()

	ti := &ast.TypeInst{Domain: &ast.TIId{Name: "Colors"}}
	declare(model, "favorite", 7, types.Scalar(types.IntKind), ti)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"favorite": {"i": 2}}`), "data.json")
	require.NoError(t, err)

	call, ok := items[0].Rhs.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "to_enum", call.Name)
	require.Len(t, call.Args, 2)

	enumID, ok := call.Args[0].(*ast.TIId)
	require.True(t, ok)
	assert.Equal(t, "Colors", enumID.Name)
}

func TestLoadSetLiteral(t *testing.T) {
	model := ast.NewModel()
	declare(model, "s", 8, types.Scalar(types.IntKind).AsSet(), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"s": {"set": [1, [3, 5], 10]}}`), "data.json")
	require.NoError(t, err)

	set, ok := items[0].Rhs.(*ast.SetLit)
	require.True(t, ok)
	require.Len(t, set.Ranges, 3)
	assert.Equal(t, int64(1), set.Ranges[0].Lo.Int64())
	assert.Equal(t, int64(3), set.Ranges[1].Lo.Int64())
	assert.Equal(t, int64(5), set.Ranges[1].Hi.Int64())
	assert.Equal(t, int64(10), set.Ranges[2].Lo.Int64())
}

func TestLoadRecordLiteral(t *testing.T) {
	model := ast.NewModel()

	recTy := types.Scalar(types.RecordKind)
	recTy.TypeID = 1
	declare(model, "p", 9, recTy, nil)

	l := jsonload.NewLoader(model, fakeInterner{
		records: map[uint32]types.RecordEntry{
			1: {Fields: []types.Field{{Name: "x", Type: types.Scalar(types.IntKind)}, {Name: "y", Type: types.Scalar(types.IntKind)}}},
		},
	}, nil)

	items, err := l.Load([]byte(`{"p": {"y": 2, "x": 1}}`), "data.json")
	require.NoError(t, err)

	arr, ok := items[0].Rhs.(*ast.ArrayLit)
	require.True(t, ok)
	require.True(t, arr.IsRecord)
	require.Len(t, arr.Elems, 2)

	xLit, ok := arr.Elems[0].(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(1), xLit.Val.Int64())
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	model := ast.NewModel()
	declare(model, "n", 1, types.Scalar(types.IntKind), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	_, err := l.Load([]byte(`{"m": 1}`), "data.json")
	assert.Error(t, err)
}

func TestLoadStringEscapes(t *testing.T) {
	model := ast.NewModel()
	declare(model, "s", 1, types.Scalar(types.StringKind), nil)

	l := jsonload.NewLoader(model, fakeInterner{}, nil)

	items, err := l.Load([]byte(`{"s": "line1\nline2\t\"quoted\"\\end"}`), "data.json")
	require.NoError(t, err)

	lit, ok := items[0].Rhs.(*ast.StringLit)
	require.True(t, ok)
	assert.Equal(t, "line1\nline2\t\"quoted\"\\end", lit.Val)
}
