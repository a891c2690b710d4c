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

// tightenDomain implements domain tightening: intersect the
// bounds inferrer's conservative interval with the declared domain
// (when one exists), recording whether the result is narrower than
// what was declared. Only non-set int variables are tightened. An empty
// intersection fails the model for a non-optional variable; for an
// optional one the declared domain is left unchanged.
//
// origDef is decl's RHS expression as written, before flattening
// replaced it with the opaque result of posting its constraints --
// computeIdBounds cannot see through an already-flattened Id, so the
// bounds inferrer must run against the original expression tree while
// it's still available. When decl has no defining expression (origDef
// is nil), bounds fall back to whatever domain was already declared on
// decl itself, by inferring the bounds of a self-referencing Id.
func (f *Flattener) tightenDomain(decl *ast.VarDecl, origDef ast.Expr) error {
	if decl.Declared.Base != types.IntKind || decl.Declared.IsSet {
		return nil
	}

	var inferred eval.IntBounds

	if origDef != nil {
		inferred = eval.ComputeIntBounds(f.env, origDef)
	} else {
		selfRef := &ast.Id{Name: decl.Name, DeclID: decl.SelfID, ValType: decl.Declared}
		inferred = eval.ComputeIntBounds(f.env, selfRef)
	}

	if !inferred.Valid {
		return nil
	}

	if decl.TI == nil {
		decl.TI = &ast.TypeInst{Declared: decl.Declared}
	}

	if decl.TI.Domain == nil {
		lo, hi := inferred.Lo, inferred.Hi
		if lo.IsFinite() && hi.IsFinite() {
			loV, hiV := lo.Finite(), hi.Finite()
			decl.TI.Domain = &ast.BinOp{
				Op:      ast.OpRange,
				Lhs:     ast.Rhs{L: ast.NewIntLit(decl.Loc(), loV), R: ast.NewIntLit(decl.Loc(), hiV)},
				ValType: types.Scalar(types.IntKind).AsSet(),
			}
			decl.TI.Ann().Add(ast.Annotation{Name: "computed_domain"})
		}

		return nil
	}

	declared, err := eval.EvalIntSet(f.env, declaredDomainOrFull(decl))
	if err != nil || declared.IsEmpty() {
		return nil
	}

	narrowed := intersectBounds(declared, inferred)

	if narrowed.IsEmpty() {
		if decl.Declared.IsOptional {
			return nil
		}

		return f.env.Fail(decl.Loc(), "declared domain of %q is disjoint from its inferred bounds", decl.Name)
	}

	if narrowed.Equal(declared) {
		return nil
	}

	decl.TI.Domain = &ast.SetLit{
		Base:     ast.NewBase(decl.Loc()),
		ElemType: types.Scalar(types.IntKind),
		Ranges:   narrowed.Ranges(),
	}
	decl.TI.Ann().Add(ast.Annotation{Name: "computed_domain"})

	return nil
}

// intersectBounds clamps inferred's [Lo,Hi] to declared's own overall
// span on whichever side is infinite, then intersects -- IntSetVal has
// no public constructor for an infinite-bounded range, and an infinite
// side never narrows anything past what declared already excludes.
func intersectBounds(declared ast.IntSetVal, inferred eval.IntBounds) ast.IntSetVal {
	ranges := declared.Ranges()
	if len(ranges) == 0 {
		return declared
	}

	lo, hi := ranges[0].Lo, ranges[len(ranges)-1].Hi

	if inferred.Lo.IsFinite() {
		if v := inferred.Lo.Finite(); v.Cmp(&lo) > 0 {
			lo = v
		}
	}

	if inferred.Hi.IsFinite() {
		if v := inferred.Hi.Finite(); v.Cmp(&hi) < 0 {
			hi = v
		}
	}

	return declared.Intersect(ast.NewIntSetValFromRanges([]ast.IntRange{{Lo: lo, Hi: hi}}))
}

// declaredDomainOrFull returns decl's declared domain set expression
// when one exists, or a self-referencing Id otherwise; EvalIntSet on
// the latter fails (no domain to read), which tightenDomain treats as
// "nothing declared yet" rather than an error.
func declaredDomainOrFull(decl *ast.VarDecl) ast.Expr {
	if decl.TI != nil && decl.TI.Domain != nil {
		return decl.TI.Domain
	}

	return &ast.Id{Name: decl.Name, DeclID: decl.SelfID, ValType: decl.Declared}
}
