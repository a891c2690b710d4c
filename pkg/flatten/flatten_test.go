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
package flatten_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/flatten"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvWithModel(model *ast.Model) *env.EnvI {
	return env.New(context.Background(), model, env.DefaultFlatteningOptions())
}

func intLit(v int64) *ast.IntLit {
	return ast.NewIntLit(source.NoSpan, *big.NewInt(v))
}

func TestFlattenParConstraintTrueDropped(t *testing.T) {
	model := ast.NewModel()
	model.Append(&ast.ConstraintI{Expr: &ast.BoolLit{Val: true}})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	e := newEnvWithModel(model)
	f := flatten.New(e)

	require.NoError(t, f.Run())

	for _, item := range e.Flat.Items {
		if ci, ok := item.(*ast.ConstraintI); ok {
			t.Fatalf("expected no surviving constraint item, found %v", ci.Expr)
		}
	}
}

func TestFlattenParConstraintFalseFails(t *testing.T) {
	model := ast.NewModel()
	model.Append(&ast.ConstraintI{Expr: &ast.BoolLit{Val: false}})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	e := newEnvWithModel(model)
	f := flatten.New(e)

	err := f.Run()
	require.Error(t, err)
	assert.True(t, source.IsModelInconsistent(err))

	require.Len(t, e.Flat.Items, 2)
	ci, ok := e.Flat.Items[0].(*ast.ConstraintI)
	require.True(t, ok)
	lit, ok := ci.Expr.(*ast.BoolLit)
	require.True(t, ok)
	assert.False(t, lit.Val)
}

func TestFlattenVarArithmeticConstraintPostsPrimitive(t *testing.T) {
	model := ast.NewModel()

	xDecl := &ast.VarDecl{Name: "x", Declared: types.Scalar(types.IntKind).AsVar()}
	model.Append(&ast.VarDeclI{VarDecl: xDecl})

	e := newEnvWithModel(model)
	// The VarDeclI above is the first declaration the flattener will
	// process, so it is the arena's first allocation; a fresh Arena's
	// first Id is always 1.
	xID := heap.Id(1)

	xRef := &ast.Id{Name: "x", DeclID: xID, ValType: xDecl.Declared}
	sum := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: xRef, R: intLit(1)}, ValType: types.Scalar(types.IntKind).AsVar()}
	cmp := &ast.BinOp{Op: ast.OpEq, Lhs: ast.Rhs{L: sum, R: intLit(5)}, ValType: types.Scalar(types.BoolKind).AsVar()}

	model.Append(&ast.ConstraintI{Expr: cmp})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	f := flatten.New(e)
	require.NoError(t, f.Run())

	var sawIntEq bool

	for _, item := range e.Flat.Items {
		if ci, ok := item.(*ast.ConstraintI); ok {
			if call, ok := ci.Expr.(*ast.Call); ok && call.Name == "int_eq" {
				sawIntEq = true
			}
		}
	}

	assert.True(t, sawIntEq, "expected a flattened int_eq primitive constraint")
}

func TestFlattenQuantifierOverParRangeWithParBodySucceeds(t *testing.T) {
	model := ast.NewModel()

	gen := ast.Generator{Names: []string{"i"}, Range: &ast.BinOp{Op: ast.OpRange, Lhs: ast.Rhs{L: intLit(1), R: intLit(3)}, ValType: types.Scalar(types.IntKind).AsSet()}}

	body := &ast.BinOp{Op: ast.OpGe, Lhs: ast.Rhs{L: intLit(1), R: intLit(0)}, ValType: types.Scalar(types.BoolKind)}

	compr := &ast.Comprehension{Generators: []ast.Generator{gen}, Body: body, ValType: types.Scalar(types.BoolKind).AsArray(1)}
	call := &ast.Call{Name: "forall", Args: []ast.Expr{compr}, ValType: types.Scalar(types.BoolKind)}

	model.Append(&ast.ConstraintI{Expr: call})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	e := newEnvWithModel(model)
	f := flatten.New(e)

	require.NoError(t, f.Run())
}

func TestFlattenITEWithParConditionPicksBranch(t *testing.T) {
	model := ast.NewModel()

	ite := &ast.ITE{
		Branches: []ast.ITEBranch{{Cond: &ast.BoolLit{Val: true}, Then: intLit(7)}},
		Else:     intLit(9),
		ValType:  types.Scalar(types.IntKind),
	}
	cmp := &ast.BinOp{Op: ast.OpEq, Lhs: ast.Rhs{L: ite, R: intLit(7)}, ValType: types.Scalar(types.BoolKind)}

	model.Append(&ast.ConstraintI{Expr: cmp})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	e := newEnvWithModel(model)
	f := flatten.New(e)

	require.NoError(t, f.Run())

	for _, item := range e.Flat.Items {
		if ci, ok := item.(*ast.ConstraintI); ok {
			t.Fatalf("expected the par comparison to resolve to true and be dropped, found %v", ci.Expr)
		}
	}
}
