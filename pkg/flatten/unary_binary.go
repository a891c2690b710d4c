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
package flatten

import (
	"math/big"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/eval"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// flatUnOp flattens a unary operator. bool_not pushes the neg flag down
// through ctx rather than emitting a primitive call, following the same
// commutative-logicals polarity-pushing rule used for and/or.
func (f *Flattener) flatUnOp(ctx Ctx, u *ast.UnOp) (ast.Expr, ast.Expr, error) {
	if u.Op == ast.OpNot && u.Arg.Type().IsPar() {
		v, err := eval.EvalBool(f.env, u.Arg)
		if err != nil {
			return nil, nil, err
		}

		return &ast.BoolLit{Val: !v}, nil, nil
	}

	if u.Op == ast.OpNot {
		return f.FlatExp(ctx.Flip(), u.Arg)
	}

	if u.Type().IsPar() {
		switch u.Op {
		case ast.OpNeg:
			if u.Type().Base == types.FloatKind {
				v, err := eval.EvalFloat(f.env, u)
				if err != nil {
					return nil, nil, err
				}

				return &ast.FloatLit{Val: v}, nil, nil
			}

			v, err := eval.EvalInt(f.env, u)
			if err != nil {
				return nil, nil, err
			}

			return ast.NewIntLit(u.Loc(), v), nil, nil
		default:
			return f.FlatExp(Ctx{Polarity: Pos}, u.Arg)
		}
	}

	arg, def, err := f.FlatExp(Ctx{Polarity: Pos}, u.Arg)
	if err != nil {
		return nil, nil, err
	}

	return f.namePrimitive(u.Loc(), "int_neg", []ast.Expr{arg}, u.ValType, def)
}

// flatBinOp flattens a binary operator application. par/par applications
// are fully evaluated; otherwise a primitive call is posted (reified or
// half-reified as its context demands for the Boolean connectives, or a
// plain arithmetic/comparison primitive otherwise).
func (f *Flattener) flatBinOp(ctx Ctx, b *ast.BinOp) (ast.Expr, ast.Expr, error) {
	switch b.Op {
	case ast.OpAnd, ast.OpOr, ast.OpImplies, ast.OpReverseImplies, ast.OpEquiv, ast.OpXor:
		return f.flatLogical(ctx, b)
	}

	if b.Type().IsPar() && b.Lhs.L.Type().IsPar() && b.Lhs.R.Type().IsPar() {
		return f.evalParBinOp(b)
	}

	lctx := Ctx{Polarity: Pos}

	l, defL, err := f.FlatExp(lctx, b.Lhs.L)
	if err != nil {
		return nil, nil, err
	}

	r, defR, err := f.FlatExp(lctx, b.Lhs.R)
	if err != nil {
		return nil, nil, err
	}

	def := conjoin(defL, defR)

	if div := isDivOrMod(b.Op); div != "" && !b.Lhs.R.Type().IsPar() {
		zero := *big.NewInt(0)
		nonZeroGuard := &ast.BinOp{
			Op:      ast.OpNe,
			Lhs:     ast.Rhs{L: r, R: ast.NewIntLit(b.Loc(), zero)},
			ValType: types.Scalar(types.BoolKind).AsVar(),
		}
		def = conjoin(def, nonZeroGuard)
	}

	name := primitiveName(b.Op, b.Lhs.L.Type())

	if isComparison(b.Op) {
		return f.namePredicate(ctx, b.Loc(), name, []ast.Expr{l, r}, def)
	}

	return f.namePrimitive(b.Loc(), name, []ast.Expr{l, r}, b.ValType, def)
}

func isComparison(op ast.BinOpKind) bool {
	switch op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return true
	default:
		return false
	}
}

func isDivOrMod(op ast.BinOpKind) string {
	switch op {
	case ast.OpIntDiv:
		return "div"
	case ast.OpIntMod:
		return "mod"
	default:
		return ""
	}
}

func (f *Flattener) evalParBinOp(b *ast.BinOp) (ast.Expr, ast.Expr, error) {
	if b.ValType.Dim > 0 || b.ValType.Base == types.RecordKind || b.ValType.Base == types.TupleKind {
		v, err := eval.EvalArrayLit(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return v, nil, nil
	}

	switch b.ValType.Base {
	case types.BoolKind:
		v, err := eval.EvalBool(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return &ast.BoolLit{Val: v}, nil, nil
	case types.FloatKind:
		v, err := eval.EvalFloat(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return &ast.FloatLit{Val: v}, nil, nil
	case types.StringKind:
		v, err := eval.EvalString(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return &ast.StringLit{Val: v}, nil, nil
	default:
		v, err := eval.EvalInt(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return ast.NewIntLit(b.Loc(), v), nil, nil
	}
}

// flatLogical flattens a Boolean connective. A root-context conjunction
// flattens both operands in Root context and posts each directly; every
// other connective flattens its operands in Pos context and names the
// connective's bool_* predicate over the results. The operand context
// is the same for Pos, Neg and Mix callers: no polarity is flipped.
func (f *Flattener) flatLogical(ctx Ctx, b *ast.BinOp) (ast.Expr, ast.Expr, error) {
	if b.ValType.IsPar() {
		v, err := eval.EvalBool(f.env, b)
		if err != nil {
			return nil, nil, err
		}

		return &ast.BoolLit{Val: v}, nil, nil
	}

	opCtx := Ctx{Polarity: Pos}
	if ctx.Polarity == Root && b.Op == ast.OpAnd {
		opCtx = ctx
	}

	l, defL, err := f.FlatExp(opCtx, b.Lhs.L)
	if err != nil {
		return nil, nil, err
	}

	r, defR, err := f.FlatExp(opCtx, b.Lhs.R)
	if err != nil {
		return nil, nil, err
	}

	def := conjoin(defL, defR)

	if b.Op == ast.OpAnd && ctx.Polarity == Root {
		// A root-context conjunction never needs reification: post each
		// conjunct as its own constraint directly.
		f.postConstraint(b.Loc(), l)
		f.postConstraint(b.Loc(), r)

		return &ast.BoolLit{Val: true}, def, nil
	}

	name := map[ast.BinOpKind]string{
		ast.OpAnd: "bool_and", ast.OpOr: "bool_or", ast.OpImplies: "bool_le",
		ast.OpReverseImplies: "bool_le", ast.OpEquiv: "bool_eq", ast.OpXor: "bool_xor",
	}[b.Op]

	args := []ast.Expr{l, r}
	if b.Op == ast.OpImplies {
		args = []ast.Expr{r, l}
	}

	return f.namePredicate(ctx, b.Loc(), name, args, def)
}
