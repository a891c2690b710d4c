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
	"github.com/mzflatten/mzflatten/pkg/types"
)

// postPassLoop runs the four-step rewriting pass to a
// fixpoint: dead-declaration removal, range-only domain conversion,
// lin_exp rewriting to int_lin_eq with a defines_var annotation, and
// exists/forall-derived disjunction rewriting to bool_clause. A bound
// on iterations (rather than an unconditional loop) guards against a
// rewrite step introducing a new instance of something an earlier step
// already cleaned up from a prior round, which would otherwise spin.
func (f *Flattener) postPassLoop() error {
	const maxRounds = 8

	for round := 0; round < maxRounds; round++ {
		changed := false

		if f.removeDeadDecls() {
			changed = true
		}

		if f.normalizeRangeDomains() {
			changed = true
		}

		if f.rewriteLinExp() {
			changed = true
		}

		if f.rewriteClauses() {
			changed = true
		}

		if !changed {
			break
		}
	}

	return nil
}

// removeDeadDecls drops var declarations with no recorded occurrence
// and no ::output/::defines_var annotation.
func (f *Flattener) removeDeadDecls() bool {
	changed := false

	kept := make([]ast.Item, 0, len(f.env.Flat.Items))

	for _, item := range f.env.Flat.Items {
		decl, ok := item.(*ast.VarDeclI)
		if !ok {
			kept = append(kept, item)
			continue
		}

		if decl.Ann().Has("output") || decl.Ann().Has("defines_var") {
			kept = append(kept, item)
			continue
		}

		if f.env.OccurrenceCount(decl.SelfID) > 0 {
			kept = append(kept, item)
			continue
		}

		f.env.RemoveVar(decl.SelfID)
		changed = true
	}

	f.env.Flat.Items = kept

	return changed
}

// normalizeRangeDomains converts a declaration's domain-restricting
// TypeInst into a single contiguous a..b range whenever the inferred
// set of values is already contiguous, dropping a multi-range SetLit in
// favour of the cheaper representation.
func (f *Flattener) normalizeRangeDomains() bool {
	changed := false

	for _, item := range f.env.Flat.Items {
		decl, ok := item.(*ast.VarDeclI)
		if !ok || decl.TI == nil || decl.TI.Domain == nil {
			continue
		}

		set, ok := decl.TI.Domain.(*ast.SetLit)
		if !ok || len(set.Ranges) <= 1 {
			continue
		}

		lo, hi := set.Ranges[0].Lo, set.Ranges[len(set.Ranges)-1].Hi

		contiguous := true

		for i := 1; i < len(set.Ranges); i++ {
			gapStart := new(big.Int).Add(&set.Ranges[i-1].Hi, big.NewInt(1))
			if gapStart.Cmp(&set.Ranges[i].Lo) != 0 {
				contiguous = false
				break
			}
		}

		if !contiguous {
			continue
		}

		decl.TI.Domain = &ast.BinOp{
			Op:      ast.OpRange,
			Lhs:     ast.Rhs{L: ast.NewIntLit(decl.Loc(), lo), R: ast.NewIntLit(decl.Loc(), hi)},
			ValType: types.Scalar(types.IntKind).AsSet(),
		}
		changed = true
	}

	return changed
}

// rewriteLinExp folds a posted int_eq(lin_exp(coeffs, vars), result)
// (or sum(vars)=result) constraint into the single int_lin_eq primitive
// flat solvers expect: sum(coeffs_i * vars_i) = const, folding the
// result side into the coefficient/variable lists (coefficient -1 when
// the result is itself a variable) rather than carrying it as a bare
// extra argument. The result variable, when there is one, is tagged
// ::defines_var so the final cleanup pass's cycle check can tell a
// legitimate functional dependency from a spurious one.
func (f *Flattener) rewriteLinExp() bool {
	changed := false

	for _, item := range f.env.Flat.Items {
		ci, ok := item.(*ast.ConstraintI)
		if !ok {
			continue
		}

		call, ok := ci.Expr.(*ast.Call)
		if !ok || (call.Name != "int_eq" && call.Name != "int_plus") || len(call.Args) != 2 {
			continue
		}

		lin, ok := call.Args[0].(*ast.Call)
		if !ok || (lin.Name != "lin_exp" && lin.Name != "sum") {
			continue
		}

		coeffs, vars, ok := linExpArrays(lin)
		if !ok {
			continue
		}

		constant := big.NewInt(0)

		switch rhs := call.Args[1].(type) {
		case *ast.Id:
			coeffs = append(coeffs, ast.NewIntLit(ci.Loc(), *big.NewInt(-1)))
			vars = append(vars, rhs)
			rhs.Ann().Add(ast.Annotation{Name: "defines_var", Args: []ast.Expr{rhs}})
		case *ast.IntLit:
			constant = &rhs.Val
		default:
			continue
		}

		ci.Expr = &ast.Call{
			Name: "int_lin_eq",
			Args: []ast.Expr{
				&ast.ArrayLit{ElemType: types.Scalar(types.IntKind), Bounds: [][2]int{{1, len(coeffs)}}, Elems: coeffs, Flat: true},
				&ast.ArrayLit{ElemType: types.Scalar(types.IntKind).AsVar(), Bounds: [][2]int{{1, len(vars)}}, Elems: vars, Flat: true},
				ast.NewIntLit(ci.Loc(), *constant),
			},
			ValType: types.Scalar(types.BoolKind),
		}
		changed = true
	}

	return changed
}

// linExpArrays extracts the coefficient and variable lists from a
// lin_exp(coeffs, vars) or sum(vars) call, the two shapes the evaluator's
// own bounds inferrer (computeLinExpBounds) already recognises.
func linExpArrays(lin *ast.Call) (coeffs, vars []ast.Expr, ok bool) {
	if lin.Name == "sum" {
		if len(lin.Args) != 1 {
			return nil, nil, false
		}

		arr, isArr := lin.Args[0].(*ast.ArrayLit)
		if !isArr {
			return nil, nil, false
		}

		coeffs = make([]ast.Expr, len(arr.Elems))
		for i := range arr.Elems {
			coeffs[i] = ast.NewIntLit(lin.Loc(), *big.NewInt(1))
		}

		return coeffs, append([]ast.Expr{}, arr.Elems...), true
	}

	if len(lin.Args) != 2 {
		return nil, nil, false
	}

	coeffArr, ok1 := lin.Args[0].(*ast.ArrayLit)
	varArr, ok2 := lin.Args[1].(*ast.ArrayLit)

	if !ok1 || !ok2 {
		return nil, nil, false
	}

	return append([]ast.Expr{}, coeffArr.Elems...), append([]ast.Expr{}, varArr.Elems...), true
}

// rewriteClauses is the "exists/forall/clause rewriting" pass: it
// rewrites a posted bool_or(a, b, true) constraint -- a two-literal
// disjunction whose result argument is the literal true -- into a
// bool_clause call over the same two operands. No other shape is
// recognised, and nested bool_or chains are not collapsed.
func (f *Flattener) rewriteClauses() bool {
	changed := false

	for _, item := range f.env.Flat.Items {
		ci, ok := item.(*ast.ConstraintI)
		if !ok {
			continue
		}

		call, ok := ci.Expr.(*ast.Call)
		if !ok || call.Name != "bool_or" || len(call.Args) != 3 {
			continue
		}

		resultLit, ok := call.Args[2].(*ast.BoolLit)
		if !ok || !resultLit.Val {
			continue
		}

		ci.Expr = &ast.Call{Name: "bool_clause", Args: []ast.Expr{call.Args[0], call.Args[1]}, ValType: types.Scalar(types.BoolKind)}
		changed = true
	}

	return changed
}
