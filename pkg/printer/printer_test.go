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
package printer_test

import (
	"math/big"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/printer"
	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactArithmeticPrecedence(t *testing.T) {
	// (1 + 2) * 3 needs parens around the addition; 1 + 2 * 3 does not.
	pr := printer.NewCompactPrinter()

	a := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: bigIntLit(1), R: bigIntLit(2)}}
	mul := &ast.BinOp{Op: ast.OpMul, Lhs: ast.Rhs{L: a, R: bigIntLit(3)}}

	assert.Equal(t, "(1 + 2) * 3", pr.Expr(mul))

	b := &ast.BinOp{Op: ast.OpMul, Lhs: ast.Rhs{L: bigIntLit(2), R: bigIntLit(3)}}
	add := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: bigIntLit(1), R: b}}

	assert.Equal(t, "1 + 2 * 3", pr.Expr(add))
}

func TestCompactLeftAssociativeNoRedundantParens(t *testing.T) {
	pr := printer.NewCompactPrinter()

	// (1 - 2) - 3, printed without parens since - is left-associative
	// at its own precedence class.
	inner := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: bigIntLit(1), R: bigIntLit(2)}}
	outer := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: inner, R: bigIntLit(3)}}

	assert.Equal(t, "1 - 2 - 3", pr.Expr(outer))

	// 1 - (2 - 3) does need parens on the right to preserve meaning.
	inner2 := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: bigIntLit(2), R: bigIntLit(3)}}
	outer2 := &ast.BinOp{Op: ast.OpSub, Lhs: ast.Rhs{L: bigIntLit(1), R: inner2}}

	assert.Equal(t, "1 - (2 - 3)", pr.Expr(outer2))
}

func TestCompactArrayLit1D(t *testing.T) {
	pr := printer.NewCompactPrinter()

	lit := &ast.ArrayLit{Bounds: [][2]int{{1, 3}}, Elems: []ast.Expr{bigIntLit(1), bigIntLit(2), bigIntLit(3)}}

	assert.Equal(t, "[1, 2, 3]", pr.Expr(lit))
}

func TestCompactArrayLit2D(t *testing.T) {
	pr := printer.NewCompactPrinter()

	lit := &ast.ArrayLit{
		Bounds: [][2]int{{1, 2}, {1, 2}},
		Elems:  []ast.Expr{bigIntLit(1), bigIntLit(2), bigIntLit(3), bigIntLit(4)},
	}

	assert.Equal(t, "[| 1, 2 | 3, 4 |]", pr.Expr(lit))
}

func TestCompactTupleOneElementTrailingComma(t *testing.T) {
	pr := printer.NewCompactPrinter()

	lit := &ast.ArrayLit{IsTuple: true, Elems: []ast.Expr{bigIntLit(1)}}

	assert.Equal(t, "(1,)", pr.Expr(lit))
}

func TestCompactTupleMultiElement(t *testing.T) {
	pr := printer.NewCompactPrinter()

	lit := &ast.ArrayLit{IsTuple: true, Elems: []ast.Expr{bigIntLit(1), &ast.BoolLit{Val: true}}}

	assert.Equal(t, "(1, true)", pr.Expr(lit))
}

func TestCompactRecordLitWithInterner(t *testing.T) {
	in := types.NewInterner()
	id := in.RegisterRecordType([]types.Field{
		{Name: "b", Type: types.Scalar(types.BoolKind)},
		{Name: "a", Type: types.Scalar(types.IntKind)},
	})

	pr := printer.NewCompactPrinter().WithInterner(in)

	// Fields are sorted alphabetically at registration: a, then b.
	lit := &ast.ArrayLit{IsRecord: true, TypeID: id, Elems: []ast.Expr{bigIntLit(1), &ast.BoolLit{Val: true}}}

	assert.Equal(t, "(a: 1, b: true)", pr.Expr(lit))
}

func TestCompactStringEscaping(t *testing.T) {
	pr := printer.NewCompactPrinter()

	lit := &ast.StringLit{Val: `a "quoted" \ thing`}

	assert.Equal(t, `"a \"quoted\" \\ thing"`, pr.Expr(lit))
}

func TestCompactIdentifierPrintsIntroducedNameVerbatim(t *testing.T) {
	pr := printer.NewCompactPrinter()

	id := &ast.Id{Name: "X_INTRODUCED_3_"}

	assert.Equal(t, "X_INTRODUCED_3_", pr.Expr(id))
}

func TestVarDeclDoc(t *testing.T) {
	pr := printer.NewCompactPrinter()

	decl := &ast.VarDecl{
		Name:     "x",
		Declared: types.Scalar(types.IntKind).AsVar(),
		TI: &ast.TypeInst{
			Declared: types.Scalar(types.IntKind).AsVar(),
			Domain:   &ast.SetLit{Ranges: []ast.IntRange{{Lo: *big.NewInt(1), Hi: *big.NewInt(10)}}},
		},
	}

	out := pr.Item(&ast.VarDeclI{VarDecl: decl})
	require.Equal(t, "var {1..10}: x;", out)
}

func TestSolveSatisfy(t *testing.T) {
	pr := printer.NewCompactPrinter()
	assert.Equal(t, "solve satisfy;", pr.Item(&ast.SolveI{Kind: ast.SolveSatisfy}))
}

func TestPrettyModeWrapsLongExpression(t *testing.T) {
	pr := printer.NewPrinter().WithWidth(20)

	args := make([]ast.Expr, 0, 5)
	for i := int64(0); i < 5; i++ {
		args = append(args, bigIntLit(i))
	}

	call := &ast.Call{Name: "some_long_predicate", Args: args}

	out := pr.Expr(call)
	assert.Contains(t, out, "\n")
}

func TestCompactModeNeverBreaks(t *testing.T) {
	pr := printer.NewCompactPrinter()

	args := make([]ast.Expr, 0, 5)
	for i := int64(0); i < 5; i++ {
		args = append(args, bigIntLit(i))
	}

	call := &ast.Call{Name: "some_long_predicate", Args: args}

	out := pr.Expr(call)
	assert.NotContains(t, out, "\n")
}

func bigIntLit(v int64) *ast.IntLit {
	return &ast.IntLit{Val: *big.NewInt(v)}
}
