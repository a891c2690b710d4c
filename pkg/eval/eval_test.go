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
package eval_test

import (
	"math/big"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/eval"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv is a minimal eval.Env for tests: a plain map from heap.Id to
// *ast.VarDecl, never actually cancelling.
type fakeEnv struct {
	decls map[heap.Id]*ast.VarDecl
}

func newFakeEnv() *fakeEnv { return &fakeEnv{decls: make(map[heap.Id]*ast.VarDecl)} }

func (f *fakeEnv) Decl(id heap.Id) *ast.VarDecl   { return f.decls[id] }
func (f *fakeEnv) MemoizeDecl(id heap.Id, lit ast.Expr) {
	if d, ok := f.decls[id]; ok {
		d.Def = lit
	}
}
func (f *fakeEnv) CheckCancel() error { return nil }
func (f *fakeEnv) RecordFieldNames(uint32) []string { return nil }
func (f *fakeEnv) RegisterRecordType([]types.Field) uint32 { return 0 }

func (f *fakeEnv) declare(name string, def ast.Expr) heap.Id {
	id := heap.Id(len(f.decls) + 1)
	f.decls[id] = &ast.VarDecl{Name: name, SelfID: id, Def: def}

	return id
}

func intLit(v int64) *ast.IntLit { return ast.NewIntLit(source.NoSpan, *big.NewInt(v)) }

func TestEvalIntArithmetic(t *testing.T) {
	env := newFakeEnv()
	add := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: intLit(3), R: intLit(4)}}

	v, err := eval.EvalInt(env, add)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int64())
}

func TestEvalIntDivisionByZeroIsUndefined(t *testing.T) {
	env := newFakeEnv()
	div := &ast.BinOp{Op: ast.OpIntDiv, Lhs: ast.Rhs{L: intLit(1), R: intLit(0)}}

	_, err := eval.EvalInt(env, div)
	require.Error(t, err)
	assert.True(t, source.IsUndefined(err))
}

func TestEvalIntIdentifierMemoizesDeclaration(t *testing.T) {
	env := newFakeEnv()
	id := env.declare("n", intLit(42))

	ref := &ast.Id{Name: "n", DeclID: id, ValType: types.Scalar(types.IntKind)}

	v, err := eval.EvalInt(env, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	lit, ok := env.Decl(id).Def.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(42), lit.Val.Int64())
}

func TestEvalBoolConnectives(t *testing.T) {
	env := newFakeEnv()
	implies := &ast.BinOp{Op: ast.OpImplies, Lhs: ast.Rhs{L: &ast.BoolLit{Val: true}, R: &ast.BoolLit{Val: false}}}

	v, err := eval.EvalBool(env, implies)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestEvalITEPicksMatchingBranch(t *testing.T) {
	env := newFakeEnv()
	ite := &ast.ITE{
		Branches: []ast.ITEBranch{{Cond: &ast.BoolLit{Val: false}, Then: intLit(1)}},
		Else:     intLit(2),
	}

	v, err := eval.EvalInt(env, ite)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Int64())
}

func TestEvalArrayAccessOutOfBounds(t *testing.T) {
	env := newFakeEnv()
	arr := &ast.ArrayLit{Bounds: [][2]int{{1, 3}}, Elems: []ast.Expr{intLit(10), intLit(20), intLit(30)}}
	acc := &ast.ArrayAccess{Array: arr, Indices: []ast.Expr{intLit(5)}}

	_, err := eval.EvalArrayAccess(env, acc)
	require.Error(t, err)
	assert.True(t, source.IsUndefined(err))
}

func TestEvalArrayAccessInBounds(t *testing.T) {
	env := newFakeEnv()
	arr := &ast.ArrayLit{Bounds: [][2]int{{1, 3}}, Elems: []ast.Expr{intLit(10), intLit(20), intLit(30)}}
	acc := &ast.ArrayAccess{Array: arr, Indices: []ast.Expr{intLit(2)}}

	v, err := eval.EvalArrayAccess(env, acc)
	require.NoError(t, err)

	lit, ok := v.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(20), lit.Val.Int64())
}

func TestEvalIntSetRangeAndUnion(t *testing.T) {
	env := newFakeEnv()
	rangeExpr := &ast.BinOp{Op: ast.OpRange, Lhs: ast.Rhs{L: intLit(1), R: intLit(3)}}
	otherRange := &ast.BinOp{Op: ast.OpRange, Lhs: ast.Rhs{L: intLit(5), R: intLit(7)}}
	union := &ast.BinOp{Op: ast.OpUnion, Lhs: ast.Rhs{L: rangeExpr, R: otherRange}}

	s, err := eval.EvalIntSet(env, union)
	require.NoError(t, err)
	assert.True(t, s.Contains(*big.NewInt(2)))
	assert.True(t, s.Contains(*big.NewInt(6)))
	assert.False(t, s.Contains(*big.NewInt(4)))
}

func TestComputeIntBoundsAddition(t *testing.T) {
	env := newFakeEnv()
	add := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: intLit(3), R: intLit(4)}}

	b := eval.ComputeIntBounds(env, add)
	require.True(t, b.Valid)
	assert.Equal(t, "7", b.Lo.String())
	assert.Equal(t, "7", b.Hi.String())
}

func TestComputeIntBoundsFromDeclaredDomain(t *testing.T) {
	env := newFakeEnv()
	domain := &ast.BinOp{Op: ast.OpRange, Lhs: ast.Rhs{L: intLit(1), R: intLit(10)}}
	id := env.declare("x", nil)
	env.decls[id].TI = &ast.TypeInst{Domain: domain}

	ref := &ast.Id{Name: "x", DeclID: id}

	b := eval.ComputeIntBounds(env, ref)
	require.True(t, b.Valid)
	assert.Equal(t, "1", b.Lo.String())
	assert.Equal(t, "10", b.Hi.String())
}
