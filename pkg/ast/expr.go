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
package ast

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Expr is the tagged sum of every expression node kind. Every expression node
// implements it; CanonicalKey is used by the evaluator's memoisation and
// the flattener's CSE map to test structural equality cheaply.
type Expr interface {
	Node
	// CanonicalKey returns a string that is equal for two expressions iff
	// they are structurally equal (operator, operand order, and operand
	// keys all equal) -- the canonicalised key used by the CSE map
	CanonicalKey() string
}

// ----------------------------------------------------------------------
// Literals
// ----------------------------------------------------------------------

// IntLit is a literal (possibly arbitrary precision) integer value.
type IntLit struct {
	Base
	Val big.Int
}

// NewIntLit constructs an IntLit of par int type.
func NewIntLit(span source.Span, v big.Int) *IntLit {
	return &IntLit{Base: NewBase(span), Val: v}
}

// Type returns the par int scalar type.
func (e *IntLit) Type() types.Type { return types.Scalar(types.IntKind) }

// CanonicalKey implements Expr.
func (e *IntLit) CanonicalKey() string { return "int:" + e.Val.String() }

// FloatLit is a literal floating point value.
type FloatLit struct {
	Base
	Val float64
}

// Type returns the par float scalar type.
func (e *FloatLit) Type() types.Type { return types.Scalar(types.FloatKind) }

// CanonicalKey implements Expr.
func (e *FloatLit) CanonicalKey() string { return fmt.Sprintf("float:%v", e.Val) }

// BoolLit is a literal boolean value.
type BoolLit struct {
	Base
	Val bool
}

// Type returns the par bool scalar type.
func (e *BoolLit) Type() types.Type { return types.Scalar(types.BoolKind) }

// CanonicalKey implements Expr.
func (e *BoolLit) CanonicalKey() string { return fmt.Sprintf("bool:%v", e.Val) }

// StringLit is a literal string value.
type StringLit struct {
	Base
	Val string
}

// Type returns the par string scalar type.
func (e *StringLit) Type() types.Type { return types.Scalar(types.StringKind) }

// CanonicalKey implements Expr.
func (e *StringLit) CanonicalKey() string { return "str:" + e.Val }

// IntRange is an inclusive integer range, the primitive building block of
// an IntSetVal.
type IntRange struct {
	Lo, Hi big.Int
}

// SetLit is a literal set value: for int/float sets, a (canonicalised,
// disjoint, ordered) list of ranges; for bool/string/enum/tuple sets, an
// explicit element list.
type SetLit struct {
	Base
	ElemType types.Type
	Ranges   []IntRange // used when ElemType is int/float
	Elems    []Expr     // used otherwise (bool/string/tuple elements)
}

// Type returns the par set-of(ElemType) type.
func (e *SetLit) Type() types.Type { return e.ElemType.AsSet() }

// CanonicalKey implements Expr.
func (e *SetLit) CanonicalKey() string {
	var b strings.Builder

	b.WriteString("set{")

	for _, r := range e.Ranges {
		fmt.Fprintf(&b, "%s..%s,", r.Lo.String(), r.Hi.String())
	}

	for _, el := range e.Elems {
		b.WriteString(el.CanonicalKey())
		b.WriteByte(',')
	}

	b.WriteByte('}')

	return b.String()
}

// ArrayLit is a rectangular array literal. It doubles as
// a tuple/record carrier when IsTuple/TypeID identify fields; Flat is set
// once the literal has been lowered to the flat model.
type ArrayLit struct {
	Base
	ElemType types.Type
	// Bounds gives, for each dimension, the inclusive (min,max) index pair.
	Bounds [][2]int
	Elems  []Expr
	// IsTuple/IsRecord mark this literal as a tuple/record carrier rather
	// than a plain array; TypeID names the interned structural type.
	IsTuple  bool
	IsRecord bool
	TypeID   uint32
	Flat     bool
}

// Type returns this literal's type: array-of-ElemType with the declared
// rank, or the tuple/record type named by TypeID.
func (e *ArrayLit) Type() types.Type {
	if e.IsTuple {
		t := types.Scalar(types.TupleKind)
		t.TypeID = e.TypeID

		return t
	}

	if e.IsRecord {
		t := types.Scalar(types.RecordKind)
		t.TypeID = e.TypeID

		return t
	}

	return e.ElemType.AsArray(uint8(len(e.Bounds)))
}

// CanonicalKey implements Expr.
func (e *ArrayLit) CanonicalKey() string {
	var b strings.Builder

	b.WriteString("arr[")

	for _, el := range e.Elems {
		b.WriteString(el.CanonicalKey())
		b.WriteByte(',')
	}

	b.WriteByte(']')

	return b.String()
}

// ----------------------------------------------------------------------
// Identifiers
// ----------------------------------------------------------------------

// Id is a by-reference handle to a VarDecl; it is never followed during
// structural traversal unless an explicit resolver does so. It carries
// only the arena Id of the declaration, breaking the DAG's only possible
// cycle at this boundary.
type Id struct {
	Base
	Name    string
	DeclID  heap.Id
	ValType types.Type
}

// Decl implements Symbol.
func (e *Id) Decl() heap.Id { return e.DeclID }

// Type returns the cached declared type of the referenced VarDecl.
func (e *Id) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *Id) CanonicalKey() string { return fmt.Sprintf("id:%d", e.DeclID) }

// AnonVar is an anonymous decision variable ("_") of a given type,
// distinct from a named Id because it cannot be referenced a second time.
type AnonVar struct {
	Base
	ValType types.Type
}

// Type returns the declared type of this anonymous variable.
func (e *AnonVar) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr. Each AnonVar is unique by construction.
func (e *AnonVar) CanonicalKey() string { return fmt.Sprintf("anon:%d", e.ID()) }

// ----------------------------------------------------------------------
// Structural access
// ----------------------------------------------------------------------

// ArrayAccess indexes an array-typed expression by one index per
// dimension.
type ArrayAccess struct {
	Base
	Array   Expr
	Indices []Expr
	ValType types.Type
}

// Decl implements Symbol when Array is itself an Id (the common case of
// indexing a declared array variable); otherwise returns the zero Id.
func (e *ArrayAccess) Decl() heap.Id {
	if id, ok := e.Array.(*Id); ok {
		return id.DeclID
	}

	return 0
}

// Type returns the cached element type of this access.
func (e *ArrayAccess) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *ArrayAccess) CanonicalKey() string {
	var b strings.Builder

	fmt.Fprintf(&b, "idx(%s)[", e.Array.CanonicalKey())

	for _, i := range e.Indices {
		b.WriteString(i.CanonicalKey())
		b.WriteByte(',')
	}

	b.WriteByte(']')

	return b.String()
}

// FieldAccess projects a named field out of a tuple/record-typed
// expression. Always par.
type FieldAccess struct {
	Base
	Record  Expr
	Field   string
	ValType types.Type
}

// Type returns the cached field type.
func (e *FieldAccess) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *FieldAccess) CanonicalKey() string {
	return fmt.Sprintf("field(%s).%s", e.Record.CanonicalKey(), e.Field)
}

// ----------------------------------------------------------------------
// Control / composition
// ----------------------------------------------------------------------

// ITEBranch is one `elseif cond then then` arm of an ITE chain.
type ITEBranch struct {
	Cond Expr
	Then Expr
}

// ITE is an if-then-elseif*-else expression.
type ITE struct {
	Base
	Branches []ITEBranch
	Else     Expr
	ValType  types.Type
}

// Type returns the LUB of all branch types.
func (e *ITE) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *ITE) CanonicalKey() string {
	var b strings.Builder

	b.WriteString("ite(")

	for _, br := range e.Branches {
		fmt.Fprintf(&b, "%s=>%s;", br.Cond.CanonicalKey(), br.Then.CanonicalKey())
	}

	if e.Else != nil {
		b.WriteString(e.Else.CanonicalKey())
	}

	b.WriteByte(')')

	return b.String()
}

// BinOpKind enumerates the binary operators recognised directly by the
// flattener/evaluator; user-defined operator overloads are rewritten to
// Call nodes before reaching here.
type BinOpKind uint8

// Binary operator kinds.
const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpIntDiv
	OpIntMod
	OpFloatDiv
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpImplies
	OpReverseImplies
	OpEquiv
	OpXor
	OpIn
	OpSubset
	OpSuperset
	OpUnion
	OpIntersect
	OpDiff
	OpSymDiff
	OpRange
	OpConcat
	OpPlusPlus
)

var binOpNames = map[BinOpKind]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpIntDiv: "div", OpIntMod: "mod",
	OpFloatDiv: "/", OpPow: "^", OpEq: "=", OpNe: "!=", OpLt: "<", OpLe: "<=",
	OpGt: ">", OpGe: ">=", OpAnd: "/\\", OpOr: "\\/", OpImplies: "->",
	OpReverseImplies: "<-", OpEquiv: "<->", OpXor: "xor", OpIn: "in",
	OpSubset: "subset", OpSuperset: "superset", OpUnion: "union",
	OpIntersect: "intersect", OpDiff: "diff", OpSymDiff: "symdiff",
	OpRange: "..", OpConcat: "++", OpPlusPlus: "++",
}

func (k BinOpKind) String() string { return binOpNames[k] }

// BinOp is a primitive binary operator application.
type BinOp struct {
	Base
	Op      BinOpKind
	Lhs     Rhs
	ValType types.Type
}

// Rhs avoids an import cycle between Lhs/Rhs naming; it is simply a pair
// of operand expressions.
type Rhs struct {
	L, R Expr
}

// Type returns the cached result type of this operator application.
func (e *BinOp) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *BinOp) CanonicalKey() string {
	return fmt.Sprintf("(%s %s %s)", e.Lhs.L.CanonicalKey(), e.Op.String(), e.Lhs.R.CanonicalKey())
}

// UnOpKind enumerates unary operators.
type UnOpKind uint8

// Unary operator kinds.
const (
	OpNeg UnOpKind = iota
	OpPos
	OpNot
)

// UnOp is a primitive unary operator application.
type UnOp struct {
	Base
	Op      UnOpKind
	Arg     Expr
	ValType types.Type
}

// Type returns the cached result type.
func (e *UnOp) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *UnOp) CanonicalKey() string {
	names := map[UnOpKind]string{OpNeg: "-", OpPos: "+", OpNot: "not"}
	return fmt.Sprintf("(%s %s)", names[e.Op], e.Arg.CanonicalKey())
}

// Call is an application of a named function (builtin or user-defined,
// resolved separately by the out-of-scope type-checker) to arguments.
type Call struct {
	Base
	Name    string
	Args    []Expr
	ValType types.Type
}

// Type returns the cached result type of this call.
func (e *Call) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr. Operand order matters: a call is not
// commutative in general, so its arguments are not sorted.
func (e *Call) CanonicalKey() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s(", e.Name)

	for _, a := range e.Args {
		b.WriteString(a.CanonicalKey())
		b.WriteByte(',')
	}

	b.WriteByte(')')

	return b.String()
}

// Comprehension is an array/set comprehension over one or more
// generators, with an optional `where` filter, lowered to an array or
// set literal by expanding every generator binding.
type Comprehension struct {
	Base
	Generators []Generator
	Where      Expr // optional
	Body       Expr
	IsSet      bool
	ValType    types.Type
}

// Generator binds one or more pattern variables to the elements of a
// set- or array-typed range expression.
type Generator struct {
	Names []string
	// DeclIDs are filled in once the generator variables have been
	// declared in the environment's arena.
	DeclIDs []heap.Id
	Range   Expr
}

// Type returns the cached result type of the comprehension.
func (e *Comprehension) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr.
func (e *Comprehension) CanonicalKey() string {
	var b strings.Builder

	b.WriteString("compr(")

	for _, g := range e.Generators {
		fmt.Fprintf(&b, "%v<-%s;", g.Names, g.Range.CanonicalKey())
	}

	if e.Where != nil {
		fmt.Fprintf(&b, "where:%s;", e.Where.CanonicalKey())
	}

	b.WriteString(e.Body.CanonicalKey())
	b.WriteByte(')')

	return b.String()
}

// Let introduces one or more local declarations/constraints, scoped to
// Body.
type Let struct {
	Base
	// Items is the ordered list of let-items: each is either a
	// *LetVarDecl or a plain constraint Expr.
	Items   []Expr
	Body    Expr
	ValType types.Type
}

// Type returns the cached result type (the type of Body).
func (e *Let) Type() types.Type { return e.ValType }

// CanonicalKey implements Expr. Lets are never CSE'd (each is unique by
// its scope), so the key is simply derived from its NodeID.
func (e *Let) CanonicalKey() string { return fmt.Sprintf("let:%d", e.ID()) }

// LetVarDecl is a declaration that appears as an item inside a Let. It
// wraps the arena Id of the (fresh, scope-local) VarDecl it introduces.
type LetVarDecl struct {
	Base
	DeclID heap.Id
}

// Type returns the void/unit type; a declaration item has no value of
// its own (its effect is to bind a name in scope).
func (e *LetVarDecl) Type() types.Type { return types.Type{} }

// CanonicalKey implements Expr.
func (e *LetVarDecl) CanonicalKey() string { return fmt.Sprintf("letdecl:%d", e.DeclID) }

// TypeInst is the syntax of a type annotation: a base type plus
// optional index-set ranges and an optional domain-restricting
// expression (e.g. `var 1..10: x`, the `1..10` and `var` together form a
// TypeInst).
type TypeInst struct {
	Base
	Declared types.Type
	// Ranges gives, for an array TypeInst, the index-set expression of
	// each dimension (usually an IntLit range or a TIId naming an enum).
	Ranges []Expr
	// Domain is the optional domain-restricting expression of a scalar
	// TypeInst (e.g. the `1..10` of `var 1..10: x`).
	Domain Expr
}

// Type returns the declared type.
func (e *TypeInst) Type() types.Type { return e.Declared }

// CanonicalKey implements Expr.
func (e *TypeInst) CanonicalKey() string { return fmt.Sprintf("tyinst:%d", e.ID()) }

// TIId names a type by identifier (an enum name or a type alias) where a
// TypeInst is required syntactically.
type TIId struct {
	Base
	Name   string
	DeclID heap.Id
}

// Decl implements Symbol.
func (e *TIId) Decl() heap.Id { return e.DeclID }

// Type returns the ann-kind placeholder; a TIId names a type, it is not
// itself a value.
func (e *TIId) Type() types.Type { return types.Scalar(types.AnnKind) }

// CanonicalKey implements Expr.
func (e *TIId) CanonicalKey() string { return "tiid:" + e.Name }
