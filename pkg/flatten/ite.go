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
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/eval"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// flatITE flattens an if-then-elseif*-else expression. A par condition
// chain resolves eagerly to a single branch (no var_ite primitive is
// ever needed); otherwise every condition is flattened in MIX context
// and the branches are combined via a chain of reified implications
// bound to a fresh result variable.
func (f *Flattener) flatITE(ctx Ctx, ite *ast.ITE) (ast.Expr, ast.Expr, error) {
	if allPar, branch, ok := f.tryEagerBranch(ite); ok {
		if allPar && branch != nil {
			return f.FlatExp(ctx, branch)
		}
	}

	result := f.freshVar(ite.ValType)

	var def ast.Expr

	covered := ast.Expr(&ast.BoolLit{Val: false})

	for _, br := range ite.Branches {
		cond, defC, err := f.FlatExp(ctx.AsMix(), br.Cond)
		if err != nil {
			return nil, nil, err
		}

		then, defT, err := f.FlatExp(Ctx{Polarity: Pos}, br.Then)
		if err != nil {
			return nil, nil, err
		}

		def = conjoin(def, conjoin(defC, defT))

		// cond /\ !covered -> result = then
		guard := conjoin(cond, &ast.UnOp{Op: ast.OpNot, Arg: covered, ValType: types.Scalar(types.BoolKind).AsVar()})
		eq := &ast.BinOp{Op: ast.OpEq, Lhs: ast.Rhs{L: result, R: then}, ValType: types.Scalar(types.BoolKind).AsVar()}
		impl := &ast.BinOp{Op: ast.OpImplies, Lhs: ast.Rhs{L: guard, R: eq}, ValType: types.Scalar(types.BoolKind).AsVar()}

		f.postConstraint(ite.Loc(), impl)

		covered = &ast.BinOp{Op: ast.OpOr, Lhs: ast.Rhs{L: covered, R: cond}, ValType: types.Scalar(types.BoolKind).AsVar()}
	}

	if ite.Else != nil {
		els, defE, err := f.FlatExp(Ctx{Polarity: Pos}, ite.Else)
		if err != nil {
			return nil, nil, err
		}

		def = conjoin(def, defE)

		guard := &ast.UnOp{Op: ast.OpNot, Arg: covered, ValType: types.Scalar(types.BoolKind).AsVar()}
		eq := &ast.BinOp{Op: ast.OpEq, Lhs: ast.Rhs{L: result, R: els}, ValType: types.Scalar(types.BoolKind).AsVar()}
		impl := &ast.BinOp{Op: ast.OpImplies, Lhs: ast.Rhs{L: guard, R: eq}, ValType: types.Scalar(types.BoolKind).AsVar()}

		f.postConstraint(ite.Loc(), impl)
	} else {
		def = conjoin(def, covered)
	}

	return result, def, nil
}

// tryEagerBranch mirrors eval.ComputeIntBounds's eager-branch pick: when
// every condition in the chain is par, pick the single matching branch
// without introducing a result variable at all.
func (f *Flattener) tryEagerBranch(ite *ast.ITE) (allPar bool, branch ast.Expr, ok bool) {
	for _, br := range ite.Branches {
		if !br.Cond.Type().IsPar() {
			return false, nil, false
		}
	}

	for _, br := range ite.Branches {
		v, err := eval.EvalBool(f.env, br.Cond)
		if err != nil {
			return true, nil, false
		}

		if v {
			return true, br.Then, true
		}
	}

	return true, ite.Else, true
}
