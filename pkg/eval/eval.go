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

// Package eval implements the parameter (constant) evaluator: one
// operation per value class, dispatching on an expression's tag rather
// than routing every value through a single tagged union -- this
// matches the per-class return shape and costs nothing extra in
// dispatch.
package eval

import (
	"math/big"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Env is the slice of environment behaviour the evaluator needs: looking
// up a VarDecl by its arena id, memoizing a defining expression once
// evaluated, and the cooperative cancellation check that EnvI
// (pkg/env) implements.
type Env interface {
	Decl(id heap.Id) *ast.VarDecl
	MemoizeDecl(id heap.Id, lit ast.Expr)
	CheckCancel() error
	// RecordFieldNames returns the sorted field names of the interned
	// record type named by typeID, in the same order record literal
	// elements of that type are stored in.
	RecordFieldNames(typeID uint32) []string
	// RegisterRecordType interns a record type (sorting fields by name)
	// and returns its type id, used by record merge (++) to give its
	// result a structural identity field access can resolve later.
	RegisterRecordType(fields []types.Field) uint32
}

// EvalInt evaluates a par int-typed expression to a big.Int.
func EvalInt(env Env, e ast.Expr) (big.Int, error) {
	if err := env.CheckCancel(); err != nil {
		return big.Int{}, err
	}

	switch x := e.(type) {
	case *ast.IntLit:
		return x.Val, nil
	case *ast.BoolLit:
		return *coerceBoolToInt(x.Val), nil
	case *ast.Id:
		return evalIntOfDecl(env, x)
	case *ast.UnOp:
		return evalIntUnOp(env, x)
	case *ast.BinOp:
		return evalIntBinOp(env, x)
	case *ast.ITE:
		branch, err := evalITEBranch(env, x)
		if err != nil {
			return big.Int{}, err
		}

		return EvalInt(env, branch)
	case *ast.ArrayAccess:
		res, err := EvalArrayAccess(env, x)
		if err != nil {
			return big.Int{}, err
		}

		return EvalInt(env, res)
	case *ast.FieldAccess:
		res, err := EvalFieldAccess(env, x)
		if err != nil {
			return big.Int{}, err
		}

		return EvalInt(env, res)
	case *ast.Call:
		return evalIntCall(env, x)
	default:
		return big.Int{}, source.NewError(source.KindType, e.Loc(), "not an int-valued par expression")
	}
}

func coerceBoolToInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}

	return big.NewInt(0)
}

func evalIntOfDecl(env Env, id *ast.Id) (big.Int, error) {
	decl := env.Decl(id.DeclID)
	if decl == nil || decl.Def == nil {
		return big.Int{}, source.NewError(source.KindUndefined, id.Loc(), "undefined parameter %q", id.Name)
	}

	v, err := EvalInt(env, decl.Def)
	if err != nil {
		return big.Int{}, err
	}

	env.MemoizeDecl(decl.SelfID, ast.NewIntLit(decl.Loc(), v))

	return v, nil
}

func evalIntUnOp(env Env, u *ast.UnOp) (big.Int, error) {
	v, err := EvalInt(env, u.Arg)
	if err != nil {
		return big.Int{}, err
	}

	switch u.Op {
	case ast.OpNeg:
		return *new(big.Int).Neg(&v), nil
	case ast.OpPos:
		return v, nil
	default:
		return big.Int{}, source.NewError(source.KindType, u.Loc(), "unary operator not defined on int")
	}
}

func evalIntBinOp(env Env, b *ast.BinOp) (big.Int, error) {
	l, err := EvalInt(env, b.Lhs.L)
	if err != nil {
		return big.Int{}, err
	}

	r, err := EvalInt(env, b.Lhs.R)
	if err != nil {
		return big.Int{}, err
	}

	switch b.Op {
	case ast.OpAdd:
		return *new(big.Int).Add(&l, &r), nil
	case ast.OpSub:
		return *new(big.Int).Sub(&l, &r), nil
	case ast.OpMul:
		return *new(big.Int).Mul(&l, &r), nil
	case ast.OpIntDiv:
		if r.Sign() == 0 {
			return big.Int{}, source.NewError(source.KindUndefined, b.Loc(), "division by zero")
		}

		q := new(big.Int)
		q.Quo(&l, &r)

		return *q, nil
	case ast.OpIntMod:
		if r.Sign() == 0 {
			return big.Int{}, source.NewError(source.KindUndefined, b.Loc(), "modulo by zero")
		}

		m := new(big.Int)
		m.Rem(&l, &r)

		return *m, nil
	case ast.OpPow:
		return evalIntPow(b, l, r)
	default:
		return big.Int{}, source.NewError(source.KindType, b.Loc(), "binary operator %s not defined on int", b.Op)
	}
}

func evalIntPow(b *ast.BinOp, base, exp big.Int) (big.Int, error) {
	if base.Sign() == 0 && exp.Sign() < 0 {
		return big.Int{}, source.NewError(source.KindUndefined, b.Loc(), "0 raised to a negative power")
	}

	if exp.Sign() < 0 {
		return big.Int{}, source.NewError(source.KindArithmetic, b.Loc(), "negative exponent on non-zero base yields a non-integer result")
	}

	return *new(big.Int).Exp(&base, &exp, nil), nil
}

func evalIntCall(env Env, c *ast.Call) (big.Int, error) {
	switch c.Name {
	case "abs":
		v, err := EvalInt(env, c.Args[0])
		if err != nil {
			return big.Int{}, err
		}

		return *new(big.Int).Abs(&v), nil
	case "bool2int":
		v, err := EvalBool(env, c.Args[0])
		if err != nil {
			return big.Int{}, err
		}

		return *coerceBoolToInt(v), nil
	case "sum":
		return evalIntSum(env, c)
	default:
		return big.Int{}, source.NewError(source.KindEval, c.Loc(), "call to %q not resolvable by the evaluator", c.Name)
	}
}

func evalIntSum(env Env, c *ast.Call) (big.Int, error) {
	if len(c.Args) != 1 {
		return big.Int{}, source.NewError(source.KindType, c.Loc(), "sum expects one array argument")
	}

	arr, err := EvalArrayLit(env, c.Args[0])
	if err != nil {
		return big.Int{}, err
	}

	total := big.NewInt(0)

	for _, el := range arr.Elems {
		v, err := EvalInt(env, el)
		if err != nil {
			return big.Int{}, err
		}

		total.Add(total, &v)
	}

	return *total, nil
}

// EvalBool evaluates a par bool-typed expression.
func EvalBool(env Env, e ast.Expr) (bool, error) {
	if err := env.CheckCancel(); err != nil {
		return false, err
	}

	switch x := e.(type) {
	case *ast.BoolLit:
		return x.Val, nil
	case *ast.Id:
		decl := env.Decl(x.DeclID)
		if decl == nil || decl.Def == nil {
			return false, source.NewError(source.KindUndefined, x.Loc(), "undefined parameter %q", x.Name)
		}

		v, err := EvalBool(env, decl.Def)
		if err != nil {
			return false, err
		}

		env.MemoizeDecl(decl.SelfID, &ast.BoolLit{Val: v})

		return v, nil
	case *ast.UnOp:
		if x.Op != ast.OpNot {
			return false, source.NewError(source.KindType, x.Loc(), "unary operator not defined on bool")
		}

		v, err := EvalBool(env, x.Arg)

		return !v, err
	case *ast.BinOp:
		return evalBoolBinOp(env, x)
	case *ast.ITE:
		branch, err := evalITEBranch(env, x)
		if err != nil {
			return false, err
		}

		return EvalBool(env, branch)
	default:
		return false, source.NewError(source.KindType, e.Loc(), "not a bool-valued par expression")
	}
}

func evalBoolBinOp(env Env, b *ast.BinOp) (bool, error) {
	switch b.Op {
	case ast.OpAnd, ast.OpOr, ast.OpImplies, ast.OpReverseImplies, ast.OpEquiv, ast.OpXor:
		l, err := EvalBool(env, b.Lhs.L)
		if err != nil {
			return false, err
		}

		r, err := EvalBool(env, b.Lhs.R)
		if err != nil {
			return false, err
		}

		return evalBoolConnective(b.Op, l, r), nil
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return evalComparison(env, b)
	case ast.OpIn:
		return evalInOp(env, b)
	default:
		return false, source.NewError(source.KindType, b.Loc(), "binary operator %s not defined on bool", b.Op)
	}
}

func evalBoolConnective(op ast.BinOpKind, l, r bool) bool {
	switch op {
	case ast.OpAnd:
		return l && r
	case ast.OpOr:
		return l || r
	case ast.OpImplies:
		return !l || r
	case ast.OpReverseImplies:
		return l || !r
	case ast.OpEquiv:
		return l == r
	case ast.OpXor:
		return l != r
	default:
		return false
	}
}

func evalComparison(env Env, b *ast.BinOp) (bool, error) {
	lt := b.Lhs.L.Type()

	switch lt.Base {
	case types.IntKind:
		l, err := EvalInt(env, b.Lhs.L)
		if err != nil {
			return false, err
		}

		r, err := EvalInt(env, b.Lhs.R)
		if err != nil {
			return false, err
		}

		return compareOp(b.Op, l.Cmp(&r)), nil
	case types.FloatKind:
		l, err := EvalFloat(env, b.Lhs.L)
		if err != nil {
			return false, err
		}

		r, err := EvalFloat(env, b.Lhs.R)
		if err != nil {
			return false, err
		}

		return compareOp(b.Op, floatCmp(l, r)), nil
	case types.StringKind:
		l, err := EvalString(env, b.Lhs.L)
		if err != nil {
			return false, err
		}

		r, err := EvalString(env, b.Lhs.R)
		if err != nil {
			return false, err
		}

		return compareOp(b.Op, stringCmp(l, r)), nil
	default:
		return false, source.NewError(source.KindType, b.Loc(), "comparison not defined for operand type")
	}
}

func compareOp(op ast.BinOpKind, cmp int) bool {
	switch op {
	case ast.OpEq:
		return cmp == 0
	case ast.OpNe:
		return cmp != 0
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func stringCmp(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func evalInOp(env Env, b *ast.BinOp) (bool, error) {
	set, err := EvalIntSet(env, b.Lhs.R)
	if err != nil {
		return false, err
	}

	v, err := EvalInt(env, b.Lhs.L)
	if err != nil {
		return false, err
	}

	return set.Contains(v), nil
}

func evalITEBranch(env Env, ite *ast.ITE) (ast.Expr, error) {
	for _, br := range ite.Branches {
		cond, err := EvalBool(env, br.Cond)
		if err != nil {
			return nil, err
		}

		if cond {
			return br.Then, nil
		}
	}

	if ite.Else == nil {
		return nil, source.NewError(source.KindUndefined, ite.Loc(), "if-then-else with no matching branch and no else")
	}

	return ite.Else, nil
}

