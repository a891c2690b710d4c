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
	"math/big"

	"github.com/mzflatten/mzflatten/pkg/ast"
)

// IntBounds is the result of ComputeIntBounds: a conservative interval
// [Lo,Hi], valid only when Valid is true.
type IntBounds struct {
	Lo, Hi ast.ExtInt
	Valid  bool
}

func invalidBounds() IntBounds {
	return IntBounds{Lo: ast.FiniteExtInt(*big.NewInt(0)), Hi: ast.FiniteExtInt(*big.NewInt(0))}
}

func finiteBounds(lo, hi int64) IntBounds {
	return IntBounds{Lo: ast.FiniteExtInt(*big.NewInt(lo)), Hi: ast.FiniteExtInt(*big.NewInt(hi)), Valid: true}
}

// ComputeIntBounds is a post-order bounds-inferring visitor: it returns a
// conservative interval for any int-typed expression whose value is not
// statically known.
func ComputeIntBounds(env Env, e ast.Expr) IntBounds {
	switch x := e.(type) {
	case *ast.IntLit:
		return IntBounds{Lo: ast.FiniteExtInt(x.Val), Hi: ast.FiniteExtInt(x.Val), Valid: true}
	case *ast.BoolLit:
		return finiteBounds(boolToInt64(x.Val), boolToInt64(x.Val))
	case *ast.Id:
		return computeIdBounds(env, x)
	case *ast.UnOp:
		return computeUnOpBounds(env, x)
	case *ast.BinOp:
		return computeBinOpBounds(env, x)
	case *ast.ITE:
		return computeITEBounds(env, x)
	case *ast.ArrayAccess:
		return computeArrayAccessBounds(env, x)
	case *ast.Call:
		return computeCallBounds(env, x)
	default:
		return invalidBounds()
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func computeIdBounds(env Env, id *ast.Id) IntBounds {
	decl := env.Decl(id.DeclID)
	if decl == nil {
		return invalidBounds()
	}

	if decl.Def != nil {
		if lit, ok := decl.Def.(*ast.IntLit); ok {
			return IntBounds{Lo: ast.FiniteExtInt(lit.Val), Hi: ast.FiniteExtInt(lit.Val), Valid: true}
		}
	}

	if decl.TI == nil || decl.TI.Domain == nil {
		return invalidBounds()
	}

	return domainBounds(env, decl.TI.Domain)
}

// domainBounds reads the [lo,hi] of a declared domain expression, which
// is either an a..b range or a set literal of ranges.
func domainBounds(env Env, domain ast.Expr) IntBounds {
	set, err := EvalIntSet(env, domain)
	if err != nil || set.IsEmpty() {
		return invalidBounds()
	}

	ranges := set.Ranges()
	lo := ranges[0].Lo
	hi := ranges[len(ranges)-1].Hi

	return IntBounds{Lo: ast.FiniteExtInt(lo), Hi: ast.FiniteExtInt(hi), Valid: true}
}

func computeUnOpBounds(env Env, u *ast.UnOp) IntBounds {
	b := ComputeIntBounds(env, u.Arg)
	if !b.Valid {
		return invalidBounds()
	}

	if u.Op == ast.OpNeg {
		return IntBounds{Lo: extNeg(b.Hi), Hi: extNeg(b.Lo), Valid: true}
	}

	return b
}

func extNeg(v ast.ExtInt) ast.ExtInt {
	if !v.IsFinite() {
		if v.Cmp(ast.PosInfExtInt) == 0 {
			return ast.NegInfExtInt
		}

		return ast.PosInfExtInt
	}

	f := v.Finite()

	return ast.FiniteExtInt(*new(big.Int).Neg(&f))
}

func computeBinOpBounds(env Env, b *ast.BinOp) IntBounds {
	switch b.Op {
	case ast.OpAdd:
		l, r := ComputeIntBounds(env, b.Lhs.L), ComputeIntBounds(env, b.Lhs.R)
		if !l.Valid || !r.Valid {
			return invalidBounds()
		}

		return IntBounds{Lo: extAdd(l.Lo, r.Lo), Hi: extAdd(l.Hi, r.Hi), Valid: true}
	case ast.OpSub:
		l, r := ComputeIntBounds(env, b.Lhs.L), ComputeIntBounds(env, b.Lhs.R)
		if !l.Valid || !r.Valid {
			return invalidBounds()
		}

		return IntBounds{Lo: extAdd(l.Lo, extNeg(r.Hi)), Hi: extAdd(l.Hi, extNeg(r.Lo)), Valid: true}
	case ast.OpMul:
		return computeMulBounds(env, b)
	case ast.OpIntDiv, ast.OpIntMod:
		return computeDivModBounds(env, b)
	default:
		return invalidBounds()
	}
}

func extAdd(a, b ast.ExtInt) ast.ExtInt {
	if !a.IsFinite() {
		return a
	}

	if !b.IsFinite() {
		return b
	}

	av, bv := a.Finite(), b.Finite()

	return ast.FiniteExtInt(*new(big.Int).Add(&av, &bv))
}

func computeMulBounds(env Env, b *ast.BinOp) IntBounds {
	l, r := ComputeIntBounds(env, b.Lhs.L), ComputeIntBounds(env, b.Lhs.R)
	if !l.Valid || !r.Valid || !l.Lo.IsFinite() || !l.Hi.IsFinite() || !r.Lo.IsFinite() || !r.Hi.IsFinite() {
		return invalidBounds()
	}

	ll, lh, rl, rh := l.Lo.Finite(), l.Hi.Finite(), r.Lo.Finite(), r.Hi.Finite()
	corners := []big.Int{
		*new(big.Int).Mul(&ll, &rl),
		*new(big.Int).Mul(&ll, &rh),
		*new(big.Int).Mul(&lh, &rl),
		*new(big.Int).Mul(&lh, &rh),
	}

	lo, hi := corners[0], corners[0]

	for _, c := range corners[1:] {
		if c.Cmp(&lo) < 0 {
			lo = c
		}

		if c.Cmp(&hi) > 0 {
			hi = c
		}
	}

	return IntBounds{Lo: ast.FiniteExtInt(lo), Hi: ast.FiniteExtInt(hi), Valid: true}
}

// computeDivModBounds implements the bounds rule for "integer div, mod:
// replace zero corners by +/-1 before the corner product/quotient, take
// min/max" rule.
func computeDivModBounds(env Env, b *ast.BinOp) IntBounds {
	l, r := ComputeIntBounds(env, b.Lhs.L), ComputeIntBounds(env, b.Lhs.R)
	if !l.Valid || !r.Valid || !l.Lo.IsFinite() || !l.Hi.IsFinite() || !r.Lo.IsFinite() || !r.Hi.IsFinite() {
		return invalidBounds()
	}

	ll, lh := l.Lo.Finite(), l.Hi.Finite()
	rl, rh := r.Lo.Finite(), r.Hi.Finite()

	nonZero := func(v big.Int, replacement int64) big.Int {
		if v.Sign() == 0 {
			return *big.NewInt(replacement)
		}

		return v
	}

	rlNz, rhNz := nonZero(rl, 1), nonZero(rh, -1)

	var corners []big.Int

	for _, num := range []big.Int{ll, lh} {
		for _, den := range []big.Int{rlNz, rhNz} {
			q := new(big.Int)

			if b.Op == ast.OpIntDiv {
				q.Quo(&num, &den)
			} else {
				q.Rem(&num, &den)
			}

			corners = append(corners, *q)
		}
	}

	lo, hi := corners[0], corners[0]

	for _, c := range corners[1:] {
		if c.Cmp(&lo) < 0 {
			lo = c
		}

		if c.Cmp(&hi) > 0 {
			hi = c
		}
	}

	return IntBounds{Lo: ast.FiniteExtInt(lo), Hi: ast.FiniteExtInt(hi), Valid: true}
}

// computeITEBounds picks the eager branch when the condition chain is
// entirely par; otherwise unions the bounds of every branch.
func computeITEBounds(env Env, ite *ast.ITE) IntBounds {
	if cond, ok := tryEvalParBool(env, ite); ok {
		if cond.branch != nil {
			return ComputeIntBounds(env, cond.branch)
		}
	}

	var lo, hi ast.ExtInt

	have := false

	visit := func(b IntBounds) {
		if !b.Valid {
			return
		}

		if !have {
			lo, hi, have = b.Lo, b.Hi, true
			return
		}

		if b.Lo.Cmp(lo) < 0 {
			lo = b.Lo
		}

		if b.Hi.Cmp(hi) > 0 {
			hi = b.Hi
		}
	}

	for _, br := range ite.Branches {
		visit(ComputeIntBounds(env, br.Then))
	}

	if ite.Else != nil {
		visit(ComputeIntBounds(env, ite.Else))
	}

	if !have {
		return invalidBounds()
	}

	return IntBounds{Lo: lo, Hi: hi, Valid: true}
}

type iteEagerBranch struct{ branch ast.Expr }

// tryEvalParBool attempts to pick a single eager branch of ite when its
// condition chain is entirely par; returns ok=false if any condition is
// itself a decision variable.
func tryEvalParBool(env Env, ite *ast.ITE) (iteEagerBranch, bool) {
	for _, br := range ite.Branches {
		if !br.Cond.Type().IsPar() {
			return iteEagerBranch{}, false
		}

		v, err := EvalBool(env, br.Cond)
		if err != nil {
			return iteEagerBranch{}, false
		}

		if v {
			return iteEagerBranch{branch: br.Then}, true
		}
	}

	return iteEagerBranch{branch: ite.Else}, true
}

func computeArrayAccessBounds(env Env, acc *ast.ArrayAccess) IntBounds {
	for _, idx := range acc.Indices {
		if !idx.Type().IsPar() {
			return invalidBounds()
		}
	}

	v, err := EvalArrayAccess(env, acc)
	if err != nil || v == nil {
		return invalidBounds()
	}

	return ComputeIntBounds(env, v)
}

func computeCallBounds(env Env, c *ast.Call) IntBounds {
	switch c.Name {
	case "abs":
		b := ComputeIntBounds(env, c.Args[0])
		if !b.Valid {
			return invalidBounds()
		}

		lo, hi := absExt(b.Lo), absExt(b.Hi)
		if lo.Cmp(hi) > 0 {
			lo, hi = hi, lo
		}

		if b.Lo.Cmp(ast.FiniteExtInt(*big.NewInt(0))) <= 0 && b.Hi.Cmp(ast.FiniteExtInt(*big.NewInt(0))) >= 0 {
			lo = ast.FiniteExtInt(*big.NewInt(0))
		}

		return IntBounds{Lo: lo, Hi: hi, Valid: true}
	case "bool2int":
		return finiteBounds(0, 1)
	case "sum", "lin_exp":
		return computeLinExpBounds(env, c)
	default:
		return invalidBounds()
	}
}

func absExt(v ast.ExtInt) ast.ExtInt {
	if !v.IsFinite() {
		return ast.PosInfExtInt
	}

	f := v.Finite()

	return ast.FiniteExtInt(*new(big.Int).Abs(&f))
}

// computeLinExpBounds handles sum/lin_exp: dot
// product of per-element bounds with coefficients, respecting sign.
func computeLinExpBounds(env Env, c *ast.Call) IntBounds {
	arr, err := EvalArrayLit(env, c.Args[len(c.Args)-1])
	if err != nil {
		return invalidBounds()
	}

	var coeffs []big.Int

	if c.Name == "lin_exp" && len(c.Args) >= 2 {
		coeffArr, err := EvalArrayLit(env, c.Args[0])
		if err != nil {
			return invalidBounds()
		}

		for _, ce := range coeffArr.Elems {
			v, err := EvalInt(env, ce)
			if err != nil {
				return invalidBounds()
			}

			coeffs = append(coeffs, v)
		}
	}

	lo, hi := ast.FiniteExtInt(*big.NewInt(0)), ast.FiniteExtInt(*big.NewInt(0))

	for i, el := range arr.Elems {
		b := ComputeIntBounds(env, el)
		if !b.Valid {
			return invalidBounds()
		}

		coeff := big.NewInt(1)

		if i < len(coeffs) {
			coeff = &coeffs[i]
		}

		elLo, elHi := b.Lo, b.Hi

		if coeff.Sign() < 0 {
			elLo, elHi = b.Hi, b.Lo
		}

		lo = extAdd(lo, extMulConst(elLo, *coeff))
		hi = extAdd(hi, extMulConst(elHi, *coeff))
	}

	return IntBounds{Lo: lo, Hi: hi, Valid: true}
}

func extMulConst(v ast.ExtInt, c big.Int) ast.ExtInt {
	if c.Sign() == 0 {
		return ast.FiniteExtInt(*big.NewInt(0))
	}

	if !v.IsFinite() {
		if c.Sign() < 0 {
			return extNeg(v)
		}

		return v
	}

	f := v.Finite()

	return ast.FiniteExtInt(*new(big.Int).Mul(&f, &c))
}

// FloatBounds is the float analogue of IntBounds.
type FloatBounds struct {
	Lo, Hi  float64
	Valid   bool
}

// ComputeFloatBounds is the float-valued analogue of ComputeIntBounds.
func ComputeFloatBounds(env Env, e ast.Expr) FloatBounds {
	switch x := e.(type) {
	case *ast.FloatLit:
		return FloatBounds{Lo: x.Val, Hi: x.Val, Valid: true}
	case *ast.BinOp:
		return computeFloatBinOpBounds(env, x)
	case *ast.UnOp:
		b := ComputeFloatBounds(env, x.Arg)
		if !b.Valid {
			return FloatBounds{}
		}

		if x.Op == ast.OpNeg {
			return FloatBounds{Lo: -b.Hi, Hi: -b.Lo, Valid: true}
		}

		return b
	default:
		return FloatBounds{}
	}
}

func computeFloatBinOpBounds(env Env, b *ast.BinOp) FloatBounds {
	l, r := ComputeFloatBounds(env, b.Lhs.L), ComputeFloatBounds(env, b.Lhs.R)
	if !l.Valid || !r.Valid {
		return FloatBounds{}
	}

	switch b.Op {
	case ast.OpAdd:
		return FloatBounds{Lo: l.Lo + r.Lo, Hi: l.Hi + r.Hi, Valid: true}
	case ast.OpSub:
		return FloatBounds{Lo: l.Lo - r.Hi, Hi: l.Hi - r.Lo, Valid: true}
	case ast.OpMul:
		corners := []float64{l.Lo * r.Lo, l.Lo * r.Hi, l.Hi * r.Lo, l.Hi * r.Hi}
		lo, hi := corners[0], corners[0]

		for _, c := range corners[1:] {
			if c < lo {
				lo = c
			}

			if c > hi {
				hi = c
			}
		}

		return FloatBounds{Lo: lo, Hi: hi, Valid: true}
	default:
		return FloatBounds{}
	}
}
