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
	"fmt"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// primitiveName maps a BinOpKind plus its operand type to the flat
// primitive call name it lowers to, following the int_/float_/bool_
// naming scheme of FlatZinc-style builtins.
func primitiveName(op ast.BinOpKind, operandType types.Type) string {
	prefix := "int_"
	if operandType.Base == types.FloatKind {
		prefix = "float_"
	}

	switch op {
	case ast.OpAdd:
		return prefix + "plus"
	case ast.OpSub:
		return prefix + "minus"
	case ast.OpMul:
		return prefix + "times"
	case ast.OpIntDiv:
		return "int_div"
	case ast.OpIntMod:
		return "int_mod"
	case ast.OpFloatDiv:
		return "float_div"
	case ast.OpEq:
		return prefix + "eq"
	case ast.OpNe:
		return prefix + "ne"
	case ast.OpLt:
		return prefix + "lt"
	case ast.OpLe:
		return prefix + "le"
	case ast.OpGt:
		return prefix + "gt"
	case ast.OpGe:
		return prefix + "ge"
	default:
		return prefix + "unknown"
	}
}

// namePredicate flattens a Boolean predicate (a comparison or a
// connective) to the primitive call its calling context actually needs,
// choosing among three forms:
//
//   - Root: the predicate's truth is the entire constraint; post the
//     bare predicate directly (no reification var at all) and report it
//     as already-true, so the caller doesn't also need to assert the
//     result.
//   - Pos, with half-reification enabled: the predicate only needs to
//     hold one way (b -> pred), so the cheaper "_imp"
//     half-reified primitive is used.
//   - anything else (Neg, Mix, or Pos with half-reification disabled):
//     the result may be read in either direction, so the fully
//     bidirectional "_reif" primitive is used.
func (f *Flattener) namePredicate(ctx Ctx, span source.Span, baseName string, args []ast.Expr, definedness ast.Expr) (ast.Expr, ast.Expr, error) {
	if ctx.Polarity == Root {
		key := canonicalCallKey(baseName, args)

		if entry, ok := f.env.CSEGet(key); ok {
			return entry.Result, entry.Definedness, nil
		}

		item := &ast.ConstraintI{Base: ast.NewBase(span), Expr: &ast.Call{Name: baseName, Args: args, ValType: types.Scalar(types.BoolKind)}}
		f.env.Flat.Append(item)

		for _, a := range args {
			for _, id := range referencedDecls(a) {
				f.env.RecordOccurrence(id, item)
			}
		}

		lit := &ast.BoolLit{Val: true}
		f.env.CSEPut(key, lit, definedness, 0)

		return lit, definedness, nil
	}

	call := baseName + "_reif"
	if ctx.Polarity == Pos && f.env.Options.EnableHalfReification {
		call = baseName + "_imp"
	}

	return f.namePrimitive(span, call, args, types.Scalar(types.BoolKind).AsVar(), definedness)
}

// namePrimitive is the shared tail of every call-like flattening path:
// check the CSE map for a structurally identical prior call, and
// otherwise declare a fresh result variable, post the primitive
// constraint binding it, and cache the new entry. Used as-is for every
// non-Boolean (arithmetic) primitive, whose result always needs a var
// to carry its value regardless of context; Boolean predicates go
// through namePredicate instead, which picks the reified form the
// calling context actually needs before falling back to this helper.
func (f *Flattener) namePrimitive(span source.Span, call string, args []ast.Expr, resultType types.Type, definedness ast.Expr) (ast.Expr, ast.Expr, error) {
	key := canonicalCallKey(call, args)

	if entry, ok := f.env.CSEGet(key); ok {
		return entry.Result, entry.Definedness, nil
	}

	resultVar := f.freshVar(resultType)

	fullArgs := make([]ast.Expr, len(args)+1)
	copy(fullArgs, args)
	fullArgs[len(args)] = resultVar

	item := &ast.ConstraintI{Base: ast.NewBase(span), Expr: &ast.Call{Name: call, Args: fullArgs, ValType: types.Scalar(types.BoolKind)}}
	f.env.Flat.Append(item)

	for _, a := range args {
		for _, id := range referencedDecls(a) {
			f.env.RecordOccurrence(id, item)
		}
	}

	owner := heapIDOf(resultVar)
	f.env.CSEPut(key, resultVar, definedness, owner)

	return resultVar, definedness, nil
}

func canonicalCallKey(call string, args []ast.Expr) string {
	key := call + "("

	for _, a := range args {
		key += a.CanonicalKey() + ","
	}

	return key + ")"
}

// freshVar declares an X_INTRODUCED_<n>_ variable of the given type in
// the flat model and returns an Id referencing it.
func (f *Flattener) freshVar(t types.Type) *ast.Id {
	name := fmt.Sprintf("X_INTRODUCED_%d_", f.env.NextIntroducedID())
	decl := &ast.VarDecl{Name: name, Declared: t.AsVar()}
	id := f.env.DeclareVar(decl)

	f.env.Flat.Append(&ast.VarDeclI{VarDecl: decl})

	return &ast.Id{Name: name, DeclID: id, ValType: t.AsVar()}
}

func heapIDOf(e ast.Expr) heap.Id {
	if i, ok := e.(*ast.Id); ok {
		return i.DeclID
	}

	return 0
}
