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

// flatCall flattens a function call. forall/exists get the commutative-
// logical treatment (their array argument is a comprehension or array
// literal, flattened elementwise in ctx's polarity); every other par
// call is fully evaluated; anything left is posted as a primitive
// array_*-or-scalar call bound to a fresh result variable.
func (f *Flattener) flatCall(ctx Ctx, c *ast.Call) (ast.Expr, ast.Expr, error) {
	switch c.Name {
	case "forall":
		return f.flatQuantifier(ctx, c, ast.OpAnd)
	case "exists":
		return f.flatQuantifier(ctx, c, ast.OpOr)
	}

	if c.ValType.IsPar() && allArgsPar(c.Args) {
		return f.evalParCall(c)
	}

	if user, ok := f.lookupUserFunction(c.Name); ok && user.Body != nil {
		return f.inlineUserFunction(ctx, c, user)
	}

	args := make([]ast.Expr, len(c.Args))

	var def ast.Expr

	for i, a := range c.Args {
		r, d, err := f.FlatExp(Ctx{Polarity: Pos}, a)
		if err != nil {
			return nil, nil, err
		}

		args[i] = r
		def = conjoin(def, d)
	}

	return f.namePrimitive(c.Loc(), c.Name, args, c.ValType, def)
}

func allArgsPar(args []ast.Expr) bool {
	for _, a := range args {
		if !a.Type().IsPar() {
			return false
		}
	}

	return true
}

func (f *Flattener) evalParCall(c *ast.Call) (ast.Expr, ast.Expr, error) {
	switch c.ValType.Base {
	case types.BoolKind:
		v, err := eval.EvalBool(f.env, c)
		if err != nil {
			return nil, nil, err
		}

		return &ast.BoolLit{Val: v}, nil, nil
	case types.FloatKind:
		v, err := eval.EvalFloat(f.env, c)
		if err != nil {
			return nil, nil, err
		}

		return &ast.FloatLit{Val: v}, nil, nil
	default:
		v, err := eval.EvalInt(f.env, c)
		if err != nil {
			return nil, nil, err
		}

		return ast.NewIntLit(c.Loc(), v), nil, nil
	}
}

// flatQuantifier flattens forall/exists over their (already lowered to
// an array literal by the comprehension handler, or given directly as
// one) array argument. In ROOT context each conjunct/disjunct of a
// forall is posted directly rather than building a bool_and chain,
// emitting one primitive per clause instead of an intermediate
// aggregate when the aggregate would otherwise be discarded
// immediately.
func (f *Flattener) flatQuantifier(ctx Ctx, c *ast.Call, op ast.BinOpKind) (ast.Expr, ast.Expr, error) {
	elemCtx := Ctx{Polarity: Pos}
	if op == ast.OpOr {
		elemCtx = ctx.Flip()
	}

	rootConjunction := ctx.Polarity == Root && op == ast.OpAnd

	var acc ast.Expr

	var def ast.Expr

	failed := false

	onElem := func(el ast.Expr) error {
		r, d, ferr := f.FlatExp(elemCtx, el)
		if ferr != nil {
			return ferr
		}

		def = conjoin(def, d)

		if rootConjunction {
			if lit, ok := r.(*ast.BoolLit); ok {
				if !lit.Val {
					failed = true
					return nil
				}

				return nil
			}

			f.postConstraint(c.Loc(), r)

			return nil
		}

		if acc == nil {
			acc = r
			return nil
		}

		acc = &ast.BinOp{Op: op, Lhs: ast.Rhs{L: acc, R: r}, ValType: types.Scalar(types.BoolKind).AsVar()}

		return nil
	}

	if err := f.forEachQuantifierElem(c.Args[0], op, onElem); err != nil {
		return nil, nil, err
	}

	if failed {
		return nil, nil, f.env.Fail(c.Loc(), "forall conjunct is unsatisfiable")
	}

	if rootConjunction {
		return &ast.BoolLit{Val: true}, def, nil
	}

	if acc == nil {
		identity := op == ast.OpAnd
		return &ast.BoolLit{Val: identity}, def, nil
	}

	result, resultDef, err := f.FlatExp(ctx, acc)

	return result, conjoin(def, resultDef), err
}

// forEachQuantifierElem invokes onElem once per instantiation of
// forall/exists's array argument: once per element of a literal array,
// or once per generator binding of a comprehension -- flattening each
// body immediately, while its generator variables are still bound to
// the current iteration's value, rather than collecting raw
// expressions to flatten afterwards (the generator declarations are
// rebound in place on every iteration, so a deferred flatten would only
// ever see the final binding).
//
// A var-typed generator range or where clause is handled the same way
// flatComprehension handles one: enumerate the range's upper bound and
// guard each candidate, except the guarded value here is "guard -> body"
// for forall (op=bool_and: a non-member vacuously satisfies it) and
// "guard /\ body" for exists (op=bool_or: a non-member contributes
// nothing to the disjunction) rather than an if-then-else against a
// neutral -- the two are equivalent but read more directly in terms of
// the connective already being built.
func (f *Flattener) forEachQuantifierElem(arg ast.Expr, op ast.BinOpKind, onElem func(ast.Expr) error) error {
	switch x := arg.(type) {
	case *ast.ArrayLit:
		for _, el := range x.Elems {
			if err := onElem(el); err != nil {
				return err
			}
		}

		return nil
	case *ast.Comprehension:
		return f.expandGenerators(x.Generators, 0, func(guard, gdef ast.Expr) error {
			wguard, wdef, skip, werr := f.flatWhereFilter(x.Where)
			if werr != nil {
				return werr
			}

			if skip {
				return nil
			}

			if err := f.postDefinedness(x.Body.Loc(), conjoin(gdef, wdef)); err != nil {
				return err
			}

			guard = conjoin(guard, wguard)

			if guard == nil {
				return onElem(x.Body)
			}

			connective := ast.OpImplies
			if op == ast.OpOr {
				connective = ast.OpAnd
			}

			return onElem(&ast.BinOp{
				Op:      connective,
				Lhs:     ast.Rhs{L: guard, R: x.Body},
				ValType: types.Scalar(types.BoolKind).AsVar(),
			})
		})
	default:
		arr, err := eval.EvalArrayLit(f.env, arg)
		if err != nil {
			return err
		}

		for _, el := range arr.Elems {
			if err := onElem(el); err != nil {
				return err
			}
		}

		return nil
	}
}

func (f *Flattener) lookupUserFunction(name string) (*ast.FunctionI, bool) {
	for _, item := range f.env.Source.Items {
		if fn, ok := item.(*ast.FunctionI); ok && fn.Name == name {
			return fn, true
		}
	}

	return nil, false
}

// inlineUserFunction substitutes c's arguments for fn's parameters and
// flattens fn's body in place of the call. Substitution is performed by
// memoising each parameter's defining expression to the actual argument
// before recursing, reusing the same machinery par-identifier lookups
// already go through.
func (f *Flattener) inlineUserFunction(ctx Ctx, c *ast.Call, fn *ast.FunctionI) (ast.Expr, ast.Expr, error) {
	savedDefs := make([]ast.Expr, len(fn.Params))

	for i, p := range fn.Params {
		savedDefs[i] = p.Def
		p.Def = c.Args[i]

		if p.SelfID == 0 {
			p.SelfID = f.env.DeclareVar(p)
		} else {
			f.env.MemoizeDecl(p.SelfID, c.Args[i])
		}
	}

	result, def, err := f.FlatExp(ctx, fn.Body)

	for i, p := range fn.Params {
		p.Def = savedDefs[i]
	}

	return result, def, err
}
