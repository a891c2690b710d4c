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
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// flatComprehension lowers an array/set comprehension to an explicit
// ArrayLit by enumerating every generator's range. A generator whose
// range is a var set can't be enumerated directly -- its membership
// isn't known until solve time -- so it is enumerated over the
// declared upper bound of that set instead, with an explicit "i in S"
// membership constraint folded in as a guard alongside any var where
// clause. A guarded candidate still occupies a slot in the result
// array (its length can't depend on a var), contributing the element
// type's neutral value in place of its body whenever the guard turns
// out false.
func (f *Flattener) flatComprehension(ctx Ctx, c *ast.Comprehension) (ast.Expr, ast.Expr, error) {
	var elems []ast.Expr

	var def ast.Expr

	neutral := neutralElem(c.Loc(), c.ValType.Element())

	err := f.expandGenerators(c.Generators, 0, func(guard, gdef ast.Expr) error {
		def = conjoin(def, gdef)

		wguard, wdef, skip, werr := f.flatWhereFilter(c.Where)
		if werr != nil {
			return werr
		}

		def = conjoin(def, wdef)

		if skip {
			return nil
		}

		guard = conjoin(guard, wguard)

		r, d, ferr := f.FlatExp(Ctx{Polarity: Pos}, c.Body)
		if ferr != nil {
			return ferr
		}

		def = conjoin(def, d)

		if guard != nil {
			var gerr error

			r, gerr = f.guardValue(c.Loc(), guard, r, neutral)
			if gerr != nil {
				return gerr
			}
		}

		elems = append(elems, r)

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	out := &ast.ArrayLit{Base: c.Base, ElemType: c.ValType.Element(), Bounds: [][2]int{{1, len(elems)}}, Elems: elems, Flat: true}

	return out, def, nil
}

// flatWhereFilter evaluates a comprehension's optional where clause. A
// par clause is decided outright (skip=true drops the candidate
// entirely, the static-filtering fast path); a var clause is instead
// flattened to a guard value the caller folds into the element's
// guard/neutral-value rewrite.
func (f *Flattener) flatWhereFilter(where ast.Expr) (guard ast.Expr, def ast.Expr, skip bool, err error) {
	if where == nil {
		return nil, nil, false, nil
	}

	if where.Type().IsPar() {
		keep, werr := eval.EvalBool(f.env, where)
		if werr != nil {
			return nil, nil, false, werr
		}

		return nil, nil, !keep, nil
	}

	r, d, ferr := f.FlatExp(Ctx{Polarity: Pos}, where)
	if ferr != nil {
		return nil, nil, false, ferr
	}

	return r, d, false, nil
}

// guardValue rewrites an already-flattened comprehension element to
// "if guard then r else neutral endif", routed through the ITE
// flattening rule shared with every other conditional expression.
func (f *Flattener) guardValue(span source.Span, guard, r, neutral ast.Expr) (ast.Expr, error) {
	ite := &ast.ITE{
		Base:     ast.NewBase(span),
		Branches: []ast.ITEBranch{{Cond: guard, Then: r}},
		Else:     neutral,
		ValType:  r.Type().AsVar(),
	}

	out, _, err := f.FlatExp(Ctx{Polarity: Pos}, ite)

	return out, err
}

// neutralElem is the value a filtered-out comprehension candidate
// contributes in place of its body: 0 for an arithmetic aggregation
// (sum), false for a Boolean one. forall/exists do not use it: their
// elements go through forEachQuantifierElem, which folds the guard into
// "guard -> body" or "guard /\ body" instead.
func neutralElem(span source.Span, t types.Type) ast.Expr {
	switch t.Base {
	case types.BoolKind:
		return &ast.BoolLit{Val: false}
	case types.FloatKind:
		return &ast.FloatLit{Val: 0}
	default:
		return ast.NewIntLit(span, *big.NewInt(0))
	}
}

// expandGenerators recursively binds each generator's pattern variable(s)
// to successive elements of its range and invokes body once per
// combination. Recursion depth equals the generator count, and each
// level iterates a finite, already-evaluated range: a par range is used
// as-is; a var range is instead enumerated over its declared upper
// bound, and body is passed a guard expression asserting the candidate
// is actually a member of the (var) range, conjoined across every
// var-ranged generator in the combination. guard is nil whenever every
// range involved was par, the common case needing no runtime guard at
// all.
func (f *Flattener) expandGenerators(gens []ast.Generator, idx int, body func(guard, def ast.Expr) error) error {
	if idx == len(gens) {
		return body(nil, nil)
	}

	g := &gens[idx]
	f.ensureGeneratorDecls(g)

	varRange := !g.Range.Type().IsPar()

	enumExpr := g.Range

	if varRange {
		ub, err := f.upperBoundSet(g)
		if err != nil {
			return err
		}

		enumExpr = ub
	}

	set, err := eval.EvalIntSet(f.env, enumExpr)
	if err != nil {
		return err
	}

	for _, r := range set.Ranges() {
		v := new(big.Int).Set(&r.Lo)

		for v.Cmp(&r.Hi) <= 0 {
			f.bindGenerator(g, *v)

			var guard, def ast.Expr

			if varRange {
				mguard, mdef, merr := f.membershipGuard(g.Range, *v)
				if merr != nil {
					return merr
				}

				guard, def = mguard, mdef
			}

			err := f.expandGenerators(gens, idx+1, func(innerGuard, innerDef ast.Expr) error {
				return body(conjoin(guard, innerGuard), conjoin(def, innerDef))
			})
			if err != nil {
				return err
			}

			v = new(big.Int).Add(v, big.NewInt(1))
		}
	}

	return nil
}

// upperBoundSet returns the declared upper-bound set of a var-typed
// generator range, used to enumerate candidates that the range itself
// can't be enumerated over until solve time.
func (f *Flattener) upperBoundSet(g *ast.Generator) (ast.Expr, error) {
	if id, ok := g.Range.(*ast.Id); ok {
		if decl := f.env.Decl(id.DeclID); decl != nil && decl.TI != nil && decl.TI.Domain != nil {
			return decl.TI.Domain, nil
		}
	}

	return nil, source.NewError(source.KindFlattening, g.Range.Loc(), "cannot determine a static upper bound for this var set generator range")
}

// membershipGuard flattens "v in rangeExpr" as a set_in primitive,
// reifying it to a var-bool result the caller folds into its guard.
func (f *Flattener) membershipGuard(rangeExpr ast.Expr, v big.Int) (ast.Expr, ast.Expr, error) {
	flatRange, def, err := f.FlatExp(Ctx{Polarity: Pos}, rangeExpr)
	if err != nil {
		return nil, nil, err
	}

	return f.namePrimitive(rangeExpr.Loc(), "set_in", []ast.Expr{ast.NewIntLit(rangeExpr.Loc(), v), flatRange}, types.Scalar(types.BoolKind).AsVar(), def)
}

// ensureGeneratorDecls allocates each pattern variable's VarDecl once,
// the first time this generator is expanded, so that repeated
// iterations rebind the same declaration rather than allocating a fresh
// one each time (Id references inside the comprehension body resolve to
// a single stable heap.Id regardless of iteration).
func (f *Flattener) ensureGeneratorDecls(g *ast.Generator) {
	if len(g.DeclIDs) == len(g.Names) {
		return
	}

	g.DeclIDs = make([]heap.Id, len(g.Names))

	for i, name := range g.Names {
		g.DeclIDs[i] = f.env.DeclareVar(&ast.VarDecl{Name: name})
	}
}

// bindGenerator rebinds the generator's pattern variable(s) to the
// given value for the current iteration.
func (f *Flattener) bindGenerator(g *ast.Generator, v big.Int) {
	lit := ast.NewIntLit(g.Range.Loc(), v)

	for _, id := range g.DeclIDs {
		f.env.MemoizeDecl(id, lit)
	}
}
