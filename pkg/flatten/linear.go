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
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// linearTerm is one coeff*v addend of a linear combination.
type linearTerm struct {
	coeff big.Int
	v     ast.Expr
}

// linearize decomposes e into a sum of coeff*var terms plus a constant,
// recognising the shape a linear arithmetic expression over decision
// variables takes: a chain of +/- over terms each a bare var reference
// or a par-int coefficient times a var reference. Anything else (a
// genuine var*var product, a call, a comparison) fails with ok=false,
// leaving the caller to fall back to the generic primitive-chain
// flattening.
func linearize(env eval.Env, e ast.Expr) (terms []linearTerm, constant big.Int, ok bool) {
	constant = *big.NewInt(0)

	if !collectLinearTerms(env, e, big.NewInt(1), &terms, &constant) {
		return nil, big.Int{}, false
	}

	if len(terms) < 2 {
		// A single-term sum isn't worth a dedicated int_lin_eq: the
		// generic primitive path already flattens it directly.
		return nil, big.Int{}, false
	}

	return terms, constant, true
}

func collectLinearTerms(env eval.Env, e ast.Expr, sign *big.Int, terms *[]linearTerm, constant *big.Int) bool {
	switch x := e.(type) {
	case *ast.BinOp:
		switch x.Op {
		case ast.OpAdd:
			return collectLinearTerms(env, x.Lhs.L, sign, terms, constant) &&
				collectLinearTerms(env, x.Lhs.R, sign, terms, constant)
		case ast.OpSub:
			negSign := new(big.Int).Neg(sign)

			return collectLinearTerms(env, x.Lhs.L, sign, terms, constant) &&
				collectLinearTerms(env, x.Lhs.R, negSign, terms, constant)
		case ast.OpMul:
			if x.Lhs.L.Type().IsPar() {
				coeff, err := eval.EvalInt(env, x.Lhs.L)
				if err != nil {
					return false
				}

				return collectLinearTerms(env, x.Lhs.R, new(big.Int).Mul(sign, &coeff), terms, constant)
			}

			if x.Lhs.R.Type().IsPar() {
				coeff, err := eval.EvalInt(env, x.Lhs.R)
				if err != nil {
					return false
				}

				return collectLinearTerms(env, x.Lhs.L, new(big.Int).Mul(sign, &coeff), terms, constant)
			}

			return false
		default:
			return false
		}
	case *ast.UnOp:
		if x.Op == ast.OpNeg {
			return collectLinearTerms(env, x.Arg, new(big.Int).Neg(sign), terms, constant)
		}

		return false
	case *ast.IntLit:
		constant.Add(constant, new(big.Int).Mul(sign, &x.Val))

		return true
	default:
		if e.Type().IsPar() {
			v, err := eval.EvalInt(env, e)
			if err != nil {
				return false
			}

			constant.Add(constant, new(big.Int).Mul(sign, &v))

			return true
		}

		if _, ok := e.(*ast.Id); !ok {
			return false
		}

		*terms = append(*terms, linearTerm{coeff: *sign, v: e})

		return true
	}
}

// flattenLinearDef recognises decl's defining expression as a linear
// combination over decision variables (e.g. "2*x + y") and, when it is
// one, posts a single int_eq(lin_exp(coeffs, vars), decl) constraint
// (which the post-pass rewrites into int_lin_eq, with decl as the
// defined variable) instead of letting the generic arithmetic
// flattening decompose it into a chain of int_times/int_plus primitives
// feeding a fresh intermediate var. Reports whether it handled decl's
// definition; when it did not (ok=false), the caller must still flatten
// origDef through the generic path.
func (f *Flattener) flattenLinearDef(decl *ast.VarDecl, id heap.Id, origDef ast.Expr) (bool, error) {
	if decl.Declared.Base != types.IntKind || decl.Declared.IsSet || decl.Declared.Dim > 0 {
		return false, nil
	}

	terms, constant, ok := linearize(f.env, origDef)
	if !ok || constant.Sign() != 0 {
		return false, nil
	}

	coeffs := make([]ast.Expr, 0, len(terms)+1)
	vars := make([]ast.Expr, 0, len(terms)+1)

	var def ast.Expr

	for _, t := range terms {
		v, d, err := f.FlatExp(Ctx{Polarity: Pos}, t.v)
		if err != nil {
			return false, err
		}

		def = conjoin(def, d)
		coeffs = append(coeffs, ast.NewIntLit(decl.Loc(), t.coeff))
		vars = append(vars, v)
	}

	if err := f.postDefinedness(decl.Loc(), def); err != nil {
		return false, err
	}

	linExp := &ast.Call{
		Name: "lin_exp",
		Args: []ast.Expr{
			&ast.ArrayLit{ElemType: types.Scalar(types.IntKind), Bounds: [][2]int{{1, len(coeffs)}}, Elems: coeffs, Flat: true},
			&ast.ArrayLit{ElemType: decl.Declared, Bounds: [][2]int{{1, len(vars)}}, Elems: vars, Flat: true},
		},
		ValType: types.Scalar(types.IntKind),
	}

	selfRef := &ast.Id{Name: decl.Name, DeclID: id, ValType: decl.Declared}
	eq := &ast.Call{Name: "int_eq", Args: []ast.Expr{linExp, selfRef}, ValType: types.Scalar(types.BoolKind)}

	f.postConstraint(decl.Loc(), eq)

	return true, nil
}
