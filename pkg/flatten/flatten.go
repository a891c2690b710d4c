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
	"github.com/hashicorp/go-multierror"
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/eval"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Flattener owns one flattening run over a single EnvI, driving the
// context-directed recursion flat_exp(env, ctx, e, r, b) -> (result,
// definedness).
type Flattener struct {
	env *env.EnvI
}

// New constructs a Flattener around e. e.Source must already be
// resolved/type-checked; this package performs no name resolution.
func New(e *env.EnvI) *Flattener {
	return &Flattener{env: e}
}

// Run flattens every item of f.env.Source into f.env.Flat, then runs the
// post-pass rewriting loop and the final cleanup pass.
// If the source model fails during flattening (fail(), fixed assignment
// to an out-of-domain value, empty let-scope), the flat model is
// replaced by a constraint-false skeleton and Run returns
// the error that caused the failure, wrapped for inspection with
// source.IsModelInconsistent.
func (f *Flattener) Run() error {
	var errs *multierror.Error

	for _, item := range f.env.Source.Items {
		if err := f.env.CheckCancel(); err != nil {
			return err
		}

		if err := f.flattenItem(item); err != nil {
			if source.IsModelInconsistent(err) {
				f.rebuildAsSkeleton()
				return err
			}

			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	if err := f.postPassLoop(); err != nil {
		return err
	}

	f.finalCleanup()

	return nil
}

// rebuildAsSkeleton handles model inconsistency: once the model has failed, the
// flat model is discarded and replaced by a single `constraint false;`,
// a `solve satisfy;`, and no output items.
func (f *Flattener) rebuildAsSkeleton() {
	flat := ast.NewModel()
	flat.Append(&ast.ConstraintI{Expr: &ast.BoolLit{Val: false}})
	flat.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	f.env.Flat = flat
}

func (f *Flattener) flattenItem(item ast.Item) error {
	switch it := item.(type) {
	case *ast.IncludeI:
		return nil
	case *ast.VarDeclI:
		return f.flattenTopVarDecl(it.VarDecl)
	case *ast.AssignI:
		return f.flattenAssign(it)
	case *ast.ConstraintI:
		return f.flattenConstraint(it)
	case *ast.SolveI:
		return f.flattenSolve(it)
	case *ast.OutputI:
		return f.flattenOutput(it)
	case *ast.FunctionI:
		// User function/predicate bodies are inlined at each call site
		// during FlatExp's Call handling; the definition itself
		// produces no flat item.
		return nil
	default:
		return source.NewError(source.KindFlattening, item.Loc(), "unrecognised top-level item")
	}
}

// flattenTopVarDecl flattens a top-level declaration. A par declaration
// with a defining expression is fully evaluated and
// memoised; a var declaration is declared afresh in the flat model with
// its domain tightened from the bounds inferrer.
func (f *Flattener) flattenTopVarDecl(decl *ast.VarDecl) error {
	id := f.env.DeclareVar(decl)

	if decl.Declared.IsPar() {
		if decl.Def == nil {
			return nil
		}

		if err := f.evalParDecl(decl); err != nil {
			return err
		}

		return nil
	}

	var origDef ast.Expr

	if decl.Def != nil {
		origDef = decl.Def

		posted, err := f.flattenLinearDef(decl, id, origDef)
		if err != nil {
			return err
		}

		if posted {
			decl.Def = nil
		} else {
			result, definedness, err := f.FlatExp(Ctx{Polarity: Pos}, decl.Def)
			if err != nil {
				return err
			}

			if err := f.postDefinedness(decl.Loc(), definedness); err != nil {
				return err
			}

			decl.Def = result
		}
	}

	if err := f.tightenDomain(decl, origDef); err != nil {
		return err
	}

	f.env.Flat.Append(&ast.VarDeclI{VarDecl: decl})
	f.env.RecordOccurrence(id, &ast.VarDeclI{VarDecl: decl})

	return nil
}

func (f *Flattener) evalParDecl(decl *ast.VarDecl) error {
	switch decl.Declared.Base {
	case types.BoolKind:
		v, err := eval.EvalBool(f.env, decl.Def)
		if err != nil {
			return err
		}

		decl.Def = &ast.BoolLit{Val: v}
	case types.IntKind:
		v, err := eval.EvalInt(f.env, decl.Def)
		if err != nil {
			return err
		}

		decl.Def = ast.NewIntLit(decl.Loc(), v)
	case types.FloatKind:
		v, err := eval.EvalFloat(f.env, decl.Def)
		if err != nil {
			return err
		}

		decl.Def = &ast.FloatLit{Val: v}
	default:
		// Other par value classes (string/set/array/tuple/record) are left
		// as-is; the printer/jsonload packages consume decl.Def directly
		// rather than through this evaluator dispatch.
	}

	f.env.Flat.Append(&ast.VarDeclI{VarDecl: decl})

	return nil
}

func (f *Flattener) flattenAssign(it *ast.AssignI) error {
	decl := f.env.Decl(it.DeclID)
	if decl == nil {
		return source.NewError(source.KindFlattening, it.Loc(), "assignment to unknown declaration %q", it.Name)
	}

	decl.Def = it.Rhs

	return f.flattenTopVarDecl(decl)
}

// flattenConstraint flattens a `constraint expr;` item in ROOT context.
// A par-bool result of false fails the model; true is dropped (no flat
// item needed); a var-bool result is posted as a flat constraint call.
func (f *Flattener) flattenConstraint(it *ast.ConstraintI) error {
	result, definedness, err := f.FlatExp(RootCtx, it.Expr)
	if err != nil {
		return err
	}

	if err := f.postDefinedness(it.Loc(), definedness); err != nil {
		return err
	}

	if lit, ok := result.(*ast.BoolLit); ok {
		if !lit.Val {
			return f.env.Fail(it.Loc(), "constraint is unsatisfiable")
		}

		return nil
	}

	f.postConstraint(it.Loc(), result)

	return nil
}

// postConstraint appends e unchanged as a flat constraint for a var-bool
// result and records the occurrences used by the post-pass
// dead-declaration pass.
func (f *Flattener) postConstraint(span source.Span, e ast.Expr) {
	item := &ast.ConstraintI{Base: ast.NewBase(span), Expr: e}
	f.env.Flat.Append(item)

	for _, id := range referencedDecls(e) {
		f.env.RecordOccurrence(id, item)
	}
}

func (f *Flattener) flattenSolve(it *ast.SolveI) error {
	if it.Objective != nil {
		ctx := Ctx{Polarity: Pos}
		if it.Kind == ast.SolveMinimize {
			ctx = Ctx{Polarity: Neg}
		}

		result, definedness, err := f.FlatExp(ctx, it.Objective)
		if err != nil {
			return err
		}

		if err := f.postDefinedness(it.Loc(), definedness); err != nil {
			return err
		}

		it.Objective = result
	}

	f.env.Flat.Append(it)

	return nil
}

// flattenOutput flattens an output section's array-of-string expression
// against the solution rather than the model; at flatten time the
// expression is simply carried through structurally since it is
// evaluated post-solve.
func (f *Flattener) flattenOutput(it *ast.OutputI) error {
	f.env.Flat.Append(it)
	return nil
}

// postDefinedness folds a definedness guard into the model: a par-false
// guard means the enclosing expression is statically undefined in a
// context that required definedness, which is a hard failure; a
// var-bool guard (from a half-reified call) is posted as its own
// constraint so the solver enforces it.
func (f *Flattener) postDefinedness(span source.Span, definedness ast.Expr) error {
	if definedness == nil {
		return nil
	}

	if lit, ok := definedness.(*ast.BoolLit); ok {
		if !lit.Val {
			return f.env.Fail(span, "expression is undefined in a context requiring definedness")
		}

		return nil
	}

	f.postConstraint(span, definedness)

	return nil
}

// FlatExp is the context-directed-recursion dispatcher. It returns the
// flattened result expression and an optional definedness guard (nil
// when the subexpression is total).
func (f *Flattener) FlatExp(ctx Ctx, e ast.Expr) (ast.Expr, ast.Expr, error) {
	if err := f.env.CheckCancel(); err != nil {
		return nil, nil, err
	}

	switch x := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StringLit:
		return e, nil, nil
	case *ast.SetLit, *ast.ArrayLit:
		return f.flatArrayOrSetLit(ctx, e)
	case *ast.Id:
		return f.flatId(ctx, x)
	case *ast.ArrayAccess:
		return f.flatArrayAccess(ctx, x)
	case *ast.FieldAccess:
		return f.flatFieldAccess(x)
	case *ast.UnOp:
		return f.flatUnOp(ctx, x)
	case *ast.BinOp:
		return f.flatBinOp(ctx, x)
	case *ast.ITE:
		return f.flatITE(ctx, x)
	case *ast.Call:
		return f.flatCall(ctx, x)
	case *ast.Comprehension:
		return f.flatComprehension(ctx, x)
	case *ast.Let:
		return f.flatLet(ctx, x)
	default:
		return nil, nil, source.NewError(source.KindFlattening, e.Loc(), "no flattening rule for this expression kind")
	}
}

// flatId flattens a bare identifier reference. A par Id with a
// still-unevaluated definition is evaluated through pkg/eval; a var Id
// (or an already-evaluated par Id) is passed through unchanged, since
// it already names a flat-model VarDecl -- except a var-bool Id
// reached directly in Root context, which is itself the whole
// constraint (e.g. "constraint b;", or "constraint not b;" after
// bool_not's polarity push sets ctx.NegFlag) and so must be asserted
// with its own bool_eq(id, val) the way a predicate call would be
// rather than left as a bare identifier, which is not a legal flat
// constraint on its own.
func (f *Flattener) flatId(ctx Ctx, id *ast.Id) (ast.Expr, ast.Expr, error) {
	decl := f.env.Decl(id.DeclID)
	if decl == nil {
		return nil, nil, source.NewError(source.KindFlattening, id.Loc(), "undeclared identifier %q", id.Name)
	}

	if ctx.Polarity == Root && !decl.Declared.IsPar() && decl.Declared.Base == types.BoolKind {
		f.postConstraint(id.Loc(), &ast.Call{
			Name:    "bool_eq",
			Args:    []ast.Expr{id, &ast.BoolLit{Val: !ctx.NegFlag}},
			ValType: types.Scalar(types.BoolKind),
		})

		return &ast.BoolLit{Val: true}, nil, nil
	}

	if !decl.Declared.IsPar() || decl.Def == nil {
		return id, nil, nil
	}

	switch decl.Declared.Base {
	case types.IntKind:
		v, err := eval.EvalInt(f.env, id)
		if err != nil {
			return nil, nil, err
		}

		return ast.NewIntLit(id.Loc(), v), nil, nil
	case types.BoolKind:
		v, err := eval.EvalBool(f.env, id)
		if err != nil {
			return nil, nil, err
		}

		return &ast.BoolLit{Val: v}, nil, nil
	case types.FloatKind:
		v, err := eval.EvalFloat(f.env, id)
		if err != nil {
			return nil, nil, err
		}

		return &ast.FloatLit{Val: v}, nil, nil
	default:
		return id, nil, nil
	}
}

// flatArrayOrSetLit flattens each element in turn, conjoining
// definedness guards.
func (f *Flattener) flatArrayOrSetLit(ctx Ctx, e ast.Expr) (ast.Expr, ast.Expr, error) {
	switch lit := e.(type) {
	case *ast.ArrayLit:
		elems := make([]ast.Expr, len(lit.Elems))

		var defAll ast.Expr

		for i, el := range lit.Elems {
			r, d, err := f.FlatExp(ctx, el)
			if err != nil {
				return nil, nil, err
			}

			elems[i] = r
			defAll = conjoin(defAll, d)
		}

		out := *lit
		out.Elems = elems
		out.Flat = true

		return &out, defAll, nil
	case *ast.SetLit:
		return lit, nil, nil
	default:
		return e, nil, nil
	}
}

func conjoin(a, b ast.Expr) ast.Expr {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	if al, ok := a.(*ast.BoolLit); ok && al.Val {
		return b
	}

	if bl, ok := b.(*ast.BoolLit); ok && bl.Val {
		return a
	}

	return &ast.BinOp{Op: ast.OpAnd, Lhs: ast.Rhs{L: a, R: b}, ValType: types.Scalar(types.BoolKind).AsVar()}
}

// flatArrayAccess flattens an array index expression. An access whose
// indices are all par is evaluated eagerly; with a var index the result
// is an ArrayAccess over the flattened array and indices -- no
// array_*_element call and no result variable is introduced for it.
func (f *Flattener) flatArrayAccess(ctx Ctx, acc *ast.ArrayAccess) (ast.Expr, ast.Expr, error) {
	allPar := true

	for _, idx := range acc.Indices {
		if !idx.Type().IsPar() {
			allPar = false
			break
		}
	}

	if allPar && acc.Type().IsPar() {
		v, err := eval.EvalArrayAccess(f.env, acc)
		if err != nil {
			return nil, nil, err
		}

		return f.FlatExp(ctx, v)
	}

	array, defA, err := f.FlatExp(Ctx{Polarity: Pos}, acc.Array)
	if err != nil {
		return nil, nil, err
	}

	indices := make([]ast.Expr, len(acc.Indices))

	var defIdx ast.Expr

	for i, idx := range acc.Indices {
		r, d, err := f.FlatExp(Ctx{Polarity: Pos}, idx)
		if err != nil {
			return nil, nil, err
		}

		indices[i] = r
		defIdx = conjoin(defIdx, d)
	}

	out := &ast.ArrayAccess{Base: acc.Base, Array: array, Indices: indices, ValType: acc.ValType}

	return out, conjoin(defA, defIdx), nil
}

// flatFieldAccess flattens a tuple/record field projection; always par
// so it is simply evaluated.
func (f *Flattener) flatFieldAccess(fa *ast.FieldAccess) (ast.Expr, ast.Expr, error) {
	v, err := eval.EvalFieldAccess(f.env, fa)
	if err != nil {
		return nil, nil, err
	}

	return f.FlatExp(Ctx{Polarity: Pos}, v)
}

func referencedDecls(e ast.Expr) []heap.Id {
	var out []heap.Id

	var walk func(ast.Expr)

	walk = func(e ast.Expr) {
		switch x := e.(type) {
		case *ast.Id:
			out = append(out, x.DeclID)
		case *ast.ArrayAccess:
			walk(x.Array)

			for _, idx := range x.Indices {
				walk(idx)
			}
		case *ast.UnOp:
			walk(x.Arg)
		case *ast.BinOp:
			walk(x.Lhs.L)
			walk(x.Lhs.R)
		case *ast.Call:
			for _, a := range x.Args {
				walk(a)
			}
		case *ast.ArrayLit:
			for _, el := range x.Elems {
				walk(el)
			}
		}
	}

	walk(e)

	return out
}
