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
package ast_test

import (
	"math/big"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyDistinguishesOperandOrder(t *testing.T) {
	one := ast.NewIntLit(source.NoSpan, *big.NewInt(1))
	two := ast.NewIntLit(source.NoSpan, *big.NewInt(2))

	a := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: one, R: two}}
	b := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: two, R: one}}

	assert.NotEqual(t, a.CanonicalKey(), b.CanonicalKey())
}

func TestCanonicalKeyEqualForIdenticalLiterals(t *testing.T) {
	a := ast.NewIntLit(source.NoSpan, *big.NewInt(42))
	b := ast.NewIntLit(source.NoSpan, *big.NewInt(42))

	assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
}

func TestAnnotationsHasAndFind(t *testing.T) {
	var anns ast.Annotations

	assert.False(t, anns.Has("output"))

	anns.Add(ast.Annotation{Name: "output"})
	assert.True(t, anns.Has("output"))

	found, ok := anns.Find("output")
	require.True(t, ok)
	assert.Equal(t, "output", found.Name)
}

func TestIdImplementsSymbol(t *testing.T) {
	id := &ast.Id{Name: "x", DeclID: 7, ValType: types.Scalar(types.IntKind)}

	var sym ast.Symbol = id
	assert.Equal(t, ast.NodeID(0), ast.NodeID(0)) // sanity: NodeID type exists
	assert.EqualValues(t, 7, sym.Decl())
}

func TestModelAppendPreservesOrder(t *testing.T) {
	m := ast.NewModel()
	m.Append(&ast.IncludeI{Path: "a.mzn"})
	m.Append(&ast.ConstraintI{})

	require.Len(t, m.Items, 2)
	_, ok := m.Items[0].(*ast.IncludeI)
	assert.True(t, ok)
}
