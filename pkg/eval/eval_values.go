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
package eval

import (
	"math"
	"math/big"
	"sort"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// EvalFloat evaluates a par float-typed expression. By convention,
// eval_float also accepts ints and booleans, coercing them.
func EvalFloat(env Env, e ast.Expr) (float64, error) {
	if err := env.CheckCancel(); err != nil {
		return 0, err
	}

	switch x := e.(type) {
	case *ast.FloatLit:
		return x.Val, nil
	case *ast.IntLit:
		f, _ := new(big.Float).SetInt(&x.Val).Float64()
		return f, nil
	case *ast.BoolLit:
		if x.Val {
			return 1, nil
		}

		return 0, nil
	case *ast.Id:
		decl := env.Decl(x.DeclID)
		if decl == nil || decl.Def == nil {
			return 0, source.NewError(source.KindUndefined, x.Loc(), "undefined parameter %q", x.Name)
		}

		v, err := EvalFloat(env, decl.Def)
		if err != nil {
			return 0, err
		}

		env.MemoizeDecl(decl.SelfID, &ast.FloatLit{Val: v})

		return v, nil
	case *ast.UnOp:
		v, err := EvalFloat(env, x.Arg)
		if err != nil {
			return 0, err
		}

		if x.Op == ast.OpNeg {
			return -v, nil
		}

		return v, nil
	case *ast.BinOp:
		return evalFloatBinOp(env, x)
	case *ast.ITE:
		branch, err := evalITEBranch(env, x)
		if err != nil {
			return 0, err
		}

		return EvalFloat(env, branch)
	case *ast.Call:
		return evalFloatCall(env, x)
	default:
		return 0, source.NewError(source.KindType, e.Loc(), "not a float-valued par expression")
	}
}

func evalFloatBinOp(env Env, b *ast.BinOp) (float64, error) {
	l, err := EvalFloat(env, b.Lhs.L)
	if err != nil {
		return 0, err
	}

	r, err := EvalFloat(env, b.Lhs.R)
	if err != nil {
		return 0, err
	}

	switch b.Op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpFloatDiv:
		if r == 0 {
			return 0, source.NewError(source.KindUndefined, b.Loc(), "division by zero")
		}

		return l / r, nil
	case ast.OpPow:
		return math.Pow(l, r), nil
	default:
		return 0, source.NewError(source.KindType, b.Loc(), "binary operator %s not defined on float", b.Op)
	}
}

func evalFloatCall(env Env, c *ast.Call) (float64, error) {
	switch c.Name {
	case "int2float":
		v, err := EvalInt(env, c.Args[0])
		if err != nil {
			return 0, err
		}

		f, _ := new(big.Float).SetInt(&v).Float64()

		return f, nil
	case "abs":
		v, err := EvalFloat(env, c.Args[0])
		if err != nil {
			return 0, err
		}

		return math.Abs(v), nil
	default:
		return 0, source.NewError(source.KindEval, c.Loc(), "call to %q not resolvable by the evaluator", c.Name)
	}
}

// EvalString evaluates a par string-typed expression.
func EvalString(env Env, e ast.Expr) (string, error) {
	if err := env.CheckCancel(); err != nil {
		return "", err
	}

	switch x := e.(type) {
	case *ast.StringLit:
		return x.Val, nil
	case *ast.Id:
		decl := env.Decl(x.DeclID)
		if decl == nil || decl.Def == nil {
			return "", source.NewError(source.KindUndefined, x.Loc(), "undefined parameter %q", x.Name)
		}

		v, err := EvalString(env, decl.Def)
		if err != nil {
			return "", err
		}

		env.MemoizeDecl(decl.SelfID, &ast.StringLit{Val: v})

		return v, nil
	case *ast.BinOp:
		if x.Op != ast.OpConcat && x.Op != ast.OpPlusPlus {
			return "", source.NewError(source.KindType, x.Loc(), "binary operator %s not defined on string", x.Op)
		}

		l, err := EvalString(env, x.Lhs.L)
		if err != nil {
			return "", err
		}

		r, err := EvalString(env, x.Lhs.R)
		if err != nil {
			return "", err
		}

		return l + r, nil
	default:
		return "", source.NewError(source.KindType, e.Loc(), "not a string-valued par expression")
	}
}

// EvalIntSet evaluates a par set-of-int-typed expression.
func EvalIntSet(env Env, e ast.Expr) (ast.IntSetVal, error) {
	if err := env.CheckCancel(); err != nil {
		return ast.EmptyIntSetVal, err
	}

	switch x := e.(type) {
	case *ast.SetLit:
		return evalIntSetLit(env, x)
	case *ast.Id:
		decl := env.Decl(x.DeclID)
		if decl == nil || decl.Def == nil {
			return ast.EmptyIntSetVal, source.NewError(source.KindUndefined, x.Loc(), "undefined parameter %q", x.Name)
		}

		return EvalIntSet(env, decl.Def)
	case *ast.BinOp:
		return evalIntSetBinOp(env, x)
	default:
		return ast.EmptyIntSetVal, source.NewError(source.KindType, e.Loc(), "not a set-of-int-valued par expression")
	}
}

// EvalSetLit is the generic entry point for set-literal evaluation; every
// literal, whatever its element type, goes to the int-set evaluator and
// comes back in the disjoint-range representation.
func EvalSetLit(env Env, lit *ast.SetLit) (ast.IntSetVal, error) {
	return evalIntSetLit(env, lit)
}

func evalIntSetLit(env Env, lit *ast.SetLit) (ast.IntSetVal, error) {
	if len(lit.Ranges) > 0 {
		ranges := make([]ast.IntRange, len(lit.Ranges))

		for i, r := range lit.Ranges {
			ranges[i] = r
		}

		return ast.NewIntSetValFromRanges(ranges), nil
	}

	ranges := make([]ast.IntRange, 0, len(lit.Elems))

	for _, el := range lit.Elems {
		v, err := EvalInt(env, el)
		if err != nil {
			return ast.EmptyIntSetVal, err
		}

		ranges = append(ranges, ast.IntRange{Lo: v, Hi: v})
	}

	return ast.NewIntSetValFromRanges(ranges), nil
}

func evalIntSetBinOp(env Env, b *ast.BinOp) (ast.IntSetVal, error) {
	if b.Op == ast.OpRange {
		lo, err := EvalInt(env, b.Lhs.L)
		if err != nil {
			return ast.EmptyIntSetVal, err
		}

		hi, err := EvalInt(env, b.Lhs.R)
		if err != nil {
			return ast.EmptyIntSetVal, err
		}

		return ast.NewIntSetValFromRanges([]ast.IntRange{{Lo: lo, Hi: hi}}), nil
	}

	l, err := EvalIntSet(env, b.Lhs.L)
	if err != nil {
		return ast.EmptyIntSetVal, err
	}

	r, err := EvalIntSet(env, b.Lhs.R)
	if err != nil {
		return ast.EmptyIntSetVal, err
	}

	switch b.Op {
	case ast.OpUnion:
		return l.Union(r), nil
	case ast.OpIntersect:
		return l.Intersect(r), nil
	case ast.OpDiff:
		return l.Diff(r), nil
	case ast.OpSymDiff:
		return l.SymDiff(r), nil
	default:
		return ast.EmptyIntSetVal, source.NewError(source.KindType, b.Loc(), "binary operator %s not defined on set", b.Op)
	}
}

// EvalFloatSet evaluates a par set-of-float-typed expression.
func EvalFloatSet(env Env, e ast.Expr) (ast.FloatSetVal, error) {
	switch x := e.(type) {
	case *ast.BinOp:
		if x.Op != ast.OpRange {
			return ast.FloatSetVal{}, source.NewError(source.KindType, x.Loc(), "only a..b float ranges are supported directly")
		}

		lo, err := EvalFloat(env, x.Lhs.L)
		if err != nil {
			return ast.FloatSetVal{}, err
		}

		hi, err := EvalFloat(env, x.Lhs.R)
		if err != nil {
			return ast.FloatSetVal{}, err
		}

		return ast.NewFloatSetValFromRanges([]ast.FloatRange{{Lo: lo, Hi: hi}}), nil
	default:
		return ast.FloatSetVal{}, source.NewError(source.KindType, e.Loc(), "not a set-of-float-valued par expression")
	}
}

// EvalBoolSet evaluates a par set-of-bool-typed expression, returned as
// an IntSetVal over {0,1} since bool sets are rare and have no distinct
// range-algebra requirements of their own.
func EvalBoolSet(env Env, lit *ast.SetLit) (ast.IntSetVal, error) {
	ranges := make([]ast.IntRange, 0, len(lit.Elems))

	for _, el := range lit.Elems {
		v, err := EvalBool(env, el)
		if err != nil {
			return ast.EmptyIntSetVal, err
		}

		n := *coerceBoolToInt(v)
		ranges = append(ranges, ast.IntRange{Lo: n, Hi: n})
	}

	return ast.NewIntSetValFromRanges(ranges), nil
}

// EvalArrayLit evaluates an array-literal-typed par expression, producing
// a flat *ast.ArrayLit whose elements are all canonical literals.
func EvalArrayLit(env Env, e ast.Expr) (*ast.ArrayLit, error) {
	if err := env.CheckCancel(); err != nil {
		return nil, err
	}

	switch x := e.(type) {
	case *ast.ArrayLit:
		out := &ast.ArrayLit{Base: x.Base, ElemType: x.ElemType, Bounds: x.Bounds, IsTuple: x.IsTuple, IsRecord: x.IsRecord, TypeID: x.TypeID}
		out.Elems = make([]ast.Expr, len(x.Elems))

		for i, el := range x.Elems {
			v, err := EvalPar(env, el)
			if err != nil {
				return nil, err
			}

			out.Elems[i] = v
		}

		out.Flat = true

		return out, nil
	case *ast.Id:
		decl := env.Decl(x.DeclID)
		if decl == nil || decl.Def == nil {
			return nil, source.NewError(source.KindUndefined, x.Loc(), "undefined parameter %q", x.Name)
		}

		v, err := EvalArrayLit(env, decl.Def)
		if err != nil {
			return nil, err
		}

		env.MemoizeDecl(decl.SelfID, v)

		return v, nil
	case *ast.BinOp:
		return evalConcatBinOp(env, x)
	default:
		return nil, source.NewError(source.KindType, e.Loc(), "not an array-valued par expression")
	}
}

// evalConcatBinOp evaluates ++ on arrays and records: array concat
// flattens both sides into one 1-indexed array, record merge unions the
// two field sets (sorted alphabetically, per RegisterRecordType's own
// invariant) and rejects a field name present on both sides.
func evalConcatBinOp(env Env, b *ast.BinOp) (*ast.ArrayLit, error) {
	if b.Op != ast.OpConcat && b.Op != ast.OpPlusPlus {
		return nil, source.NewError(source.KindType, b.Loc(), "binary operator %s not defined for this operand type", b.Op)
	}

	if b.ValType.Base == types.RecordKind {
		return evalRecordMerge(env, b)
	}

	return evalArrayConcat(env, b)
}

func evalArrayConcat(env Env, b *ast.BinOp) (*ast.ArrayLit, error) {
	l, err := EvalArrayLit(env, b.Lhs.L)
	if err != nil {
		return nil, err
	}

	r, err := EvalArrayLit(env, b.Lhs.R)
	if err != nil {
		return nil, err
	}

	elems := make([]ast.Expr, 0, len(l.Elems)+len(r.Elems))
	elems = append(elems, l.Elems...)
	elems = append(elems, r.Elems...)

	return &ast.ArrayLit{
		Base: ast.NewBase(b.Loc()), ElemType: l.ElemType,
		Bounds: [][2]int{{1, len(elems)}}, Elems: elems, Flat: true,
	}, nil
}

func evalRecordMerge(env Env, b *ast.BinOp) (*ast.ArrayLit, error) {
	l, err := EvalArrayLit(env, b.Lhs.L)
	if err != nil {
		return nil, err
	}

	r, err := EvalArrayLit(env, b.Lhs.R)
	if err != nil {
		return nil, err
	}

	lNames, rNames := env.RecordFieldNames(l.TypeID), env.RecordFieldNames(r.TypeID)

	values := make(map[string]ast.Expr, len(lNames)+len(rNames))

	for i, name := range lNames {
		values[name] = l.Elems[i]
	}

	for i, name := range rNames {
		if _, dup := values[name]; dup {
			return nil, source.NewError(source.KindType, b.Loc(), "record merge: field %q is present on both sides of ++", name)
		}

		values[name] = r.Elems[i]
	}

	names := make([]string, 0, len(values))

	for name := range values {
		names = append(names, name)
	}

	sort.Strings(names)

	fields := make([]types.Field, len(names))
	elems := make([]ast.Expr, len(names))

	for i, name := range names {
		elems[i] = values[name]
		fields[i] = types.Field{Name: name, Type: values[name].Type()}
	}

	typeID := env.RegisterRecordType(fields)

	return &ast.ArrayLit{
		Base: ast.NewBase(b.Loc()), IsRecord: true, TypeID: typeID,
		Bounds: [][2]int{{1, len(elems)}}, Elems: elems, Flat: true,
	}, nil
}

// EvalArrayAccess evaluates an array-access expression following the
// usual array-access rule: indices evaluate, and an out-of-bounds access
// raises undefined. Every index is evaluated with EvalInt; an absent
// optional index is not recognised and never yields an absent result.
func EvalArrayAccess(env Env, acc *ast.ArrayAccess) (ast.Expr, error) {
	arr, err := EvalArrayLit(env, acc.Array)
	if err != nil {
		return nil, err
	}

	if len(acc.Indices) != len(arr.Bounds) {
		return nil, source.NewError(source.KindEval, acc.Loc(), "array access arity mismatch: %d indices for %d dimensions", len(acc.Indices), len(arr.Bounds))
	}

	flat := 0
	stride := 1

	for dim := len(arr.Bounds) - 1; dim >= 0; dim-- {
		iv, err := EvalInt(env, acc.Indices[dim])
		if err != nil {
			return nil, err
		}

		idx := int(iv.Int64())
		lo, hi := arr.Bounds[dim][0], arr.Bounds[dim][1]

		if idx < lo || idx > hi {
			return nil, source.NewError(source.KindUndefined, acc.Loc(), "array index %d out of bounds [%d..%d] in dimension %d", idx, lo, hi, dim+1)
		}

		flat += (idx - lo) * stride
		stride *= (hi - lo + 1)
	}

	if flat < 0 || flat >= len(arr.Elems) {
		return nil, source.NewError(source.KindUndefined, acc.Loc(), "array access out of bounds")
	}

	return arr.Elems[flat], nil
}

// EvalFieldAccess evaluates the eval_fieldaccess operation: tuple/record
// projection, always par.
func EvalFieldAccess(env Env, fa *ast.FieldAccess) (ast.Expr, error) {
	rec, err := EvalArrayLit(env, fa.Record)
	if err != nil {
		return nil, err
	}

	if rec.IsTuple {
		idx, ok := tupleFieldIndex(fa.Field)
		if !ok || idx >= len(rec.Elems) {
			return nil, source.NewError(source.KindType, fa.Loc(), "no tuple field %q", fa.Field)
		}

		return rec.Elems[idx], nil
	}

	names := env.RecordFieldNames(rec.TypeID)

	for i, name := range names {
		if name == fa.Field && i < len(rec.Elems) {
			return rec.Elems[i], nil
		}
	}

	return nil, source.NewError(source.KindType, fa.Loc(), "no record field %q", fa.Field)
}

func tupleFieldIndex(name string) (int, bool) {
	// Tuple fields are named "1", "2", ... in this language's surface
	// syntax (positional access via .1, .2).
	n := 0

	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}

		n = n*10 + int(r-'0')
	}

	if n <= 0 {
		return 0, false
	}

	return n - 1, true
}

// EvalPar is the universal par evaluator: dispatches on the static type
// of e to one of the per-class evaluators above and returns a canonical
// literal Expr. By the idempotence property of evaluation, eval_par of an
// already-canonical literal returns it unchanged.
func EvalPar(env Env, e ast.Expr) (ast.Expr, error) {
	if b, ok := e.(*ast.BinOp); ok && (b.ValType.Dim > 0 || b.ValType.Base == types.RecordKind || b.ValType.Base == types.TupleKind) {
		return EvalArrayLit(env, b)
	}

	switch x := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StringLit:
		return e, nil
	case *ast.SetLit:
		if x.ElemType.Base == types.IntKind {
			v, err := evalIntSetLit(env, x)
			if err != nil {
				return nil, err
			}

			return setLitFromIntSet(x, v), nil
		}

		return x, nil
	case *ast.ArrayLit:
		return EvalArrayLit(env, x)
	case *ast.ArrayAccess:
		v, err := EvalArrayAccess(env, x)
		if err != nil {
			return nil, err
		}

		return EvalPar(env, v)
	case *ast.FieldAccess:
		v, err := EvalFieldAccess(env, x)
		if err != nil {
			return nil, err
		}

		return EvalPar(env, v)
	default:
		switch e.Type().Base {
		case types.IntKind:
			v, err := EvalInt(env, e)
			if err != nil {
				return nil, err
			}

			return ast.NewIntLit(e.Loc(), v), nil
		case types.BoolKind:
			v, err := EvalBool(env, e)
			if err != nil {
				return nil, err
			}

			return &ast.BoolLit{Base: baseOf(e), Val: v}, nil
		case types.FloatKind:
			v, err := EvalFloat(env, e)
			if err != nil {
				return nil, err
			}

			return &ast.FloatLit{Base: baseOf(e), Val: v}, nil
		case types.StringKind:
			v, err := EvalString(env, e)
			if err != nil {
				return nil, err
			}

			return &ast.StringLit{Base: baseOf(e), Val: v}, nil
		default:
			return nil, source.NewError(source.KindEval, e.Loc(), "eval_par: unsupported expression kind")
		}
	}
}

func baseOf(e ast.Expr) ast.Base { return ast.NewBase(e.Loc()) }

func setLitFromIntSet(orig *ast.SetLit, v ast.IntSetVal) *ast.SetLit {
	return &ast.SetLit{Base: orig.Base, ElemType: orig.ElemType, Ranges: v.Ranges()}
}
