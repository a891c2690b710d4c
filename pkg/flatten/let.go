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
	"github.com/mzflatten/mzflatten/pkg/source"
)

// flatLet flattens a let-expression : each declaration item is
// flattened in turn (a declaration without an RHS is only legal in
// a positive/root context -- promise_total is not modelled separately
// since this implementation never emits a partial function needing
// it), each bare constraint item is conjoined into the let's
// definedness guard, and the body is flattened last, in the caller's
// original ctx, with every local declaration still in scope.
func (f *Flattener) flatLet(ctx Ctx, let *ast.Let) (ast.Expr, ast.Expr, error) {
	var def ast.Expr

	for _, item := range let.Items {
		switch it := item.(type) {
		case *ast.LetVarDecl:
			decl := f.env.Decl(it.DeclID)
			if decl == nil {
				return nil, nil, source.NewError(source.KindFlattening, it.Loc(), "let declaration not found in environment")
			}

			if decl.Def == nil {
				if ctx.Polarity != Root && ctx.Polarity != Pos {
					return nil, nil, f.env.Fail(it.Loc(), "let-bound declaration has no right-hand side in a context that requires one")
				}

				continue
			}

			result, d, err := f.FlatExp(Ctx{Polarity: Pos}, decl.Def)
			if err != nil {
				return nil, nil, err
			}

			decl.Def = result
			def = conjoin(def, d)
		default:
			// A bare constraint expression inside the let.
			result, d, err := f.FlatExp(Ctx{Polarity: Pos}, item)
			if err != nil {
				return nil, nil, err
			}

			def = conjoin(def, d)

			if lit, ok := result.(*ast.BoolLit); ok && !lit.Val {
				return nil, nil, f.env.Fail(it.Loc(), "let constraint is unsatisfiable")
			}

			def = conjoin(def, result)
		}
	}

	body, bodyDef, err := f.FlatExp(ctx, let.Body)
	if err != nil {
		return nil, nil, err
	}

	return body, conjoin(def, bodyDef), nil
}
