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
package printer

import "github.com/mzflatten/mzflatten/pkg/ast"

// Assoc tags a precedence class as left-, right- or non-associative.
type Assoc uint8

// Associativity tags.
const (
	AssocLeft Assoc = iota
	AssocRight
	AssocNone
)

// prec is one entry of the 12-class binary-operator precedence table:
// lower Level binds more loosely.
type prec struct {
	Level int
	Assoc Assoc
}

// binPrec is the 12-precedence-class table for BinOpKind, lowest-
// binding first. Ties within a class share Level; associativity
// governs whether a same-precedence child needs parenthesising on the
// left or right.
var binPrec = map[ast.BinOpKind]prec{
	ast.OpEquiv:      {1, AssocNone},
	ast.OpImplies:    {2, AssocRight},
	ast.OpReverseImplies: {2, AssocRight},
	ast.OpOr:         {3, AssocLeft},
	ast.OpXor:        {4, AssocLeft},
	ast.OpAnd:        {5, AssocLeft},
	ast.OpEq:         {6, AssocNone},
	ast.OpNe:         {6, AssocNone},
	ast.OpLt:         {6, AssocNone},
	ast.OpLe:         {6, AssocNone},
	ast.OpGt:         {6, AssocNone},
	ast.OpGe:         {6, AssocNone},
	ast.OpIn:         {6, AssocNone},
	ast.OpSubset:     {6, AssocNone},
	ast.OpSuperset:   {6, AssocNone},
	ast.OpUnion:      {7, AssocLeft},
	ast.OpDiff:       {8, AssocLeft},
	ast.OpSymDiff:    {8, AssocLeft},
	ast.OpRange:      {9, AssocNone},
	ast.OpIntersect:  {10, AssocLeft},
	ast.OpAdd:        {11, AssocLeft},
	ast.OpSub:        {11, AssocLeft},
	ast.OpMul:        {12, AssocLeft},
	ast.OpIntDiv:     {12, AssocLeft},
	ast.OpIntMod:     {12, AssocLeft},
	ast.OpFloatDiv:   {12, AssocLeft},
	ast.OpPow:        {12, AssocRight},
	ast.OpConcat:     {12, AssocRight},
	ast.OpPlusPlus:   {12, AssocRight},
}

// unaryPrec is the precedence a unary operator application binds at,
// one class tighter than multiplication so `-x*y` parses as `(-x)*y`.
const unaryPrec = 13

// maxPrec is used for the top of a printed expression and for operands
// that never need parenthesising on their own account (literals,
// identifiers, calls, array accesses).
const maxPrec = 14

func precedenceOf(op ast.BinOpKind) prec {
	if p, ok := binPrec[op]; ok {
		return p
	}

	return prec{Level: maxPrec, Assoc: AssocNone}
}
