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

// Package types implements the compact Type value and the structural
// (tuple/record/array-of-struct) interner for structural types.
package types

import (
	"fmt"
	"strings"
)

// BaseKind is the base kind of a Type.
type BaseKind uint8

// The base kinds
const (
	Bot BaseKind = iota
	Top
	IntKind
	BoolKind
	FloatKind
	StringKind
	AnnKind
	TupleKind
	RecordKind
)

func (k BaseKind) String() string {
	switch k {
	case Bot:
		return "bot"
	case Top:
		return "top"
	case IntKind:
		return "int"
	case BoolKind:
		return "bool"
	case FloatKind:
		return "float"
	case StringKind:
		return "string"
	case AnnKind:
		return "ann"
	case TupleKind:
		return "tuple"
	case RecordKind:
		return "record"
	default:
		return "?"
	}
}

// Variability distinguishes compile-time-known (par) from
// decision (var) expressions, the central distinction driving both the
// evaluator and the flattener.
type Variability uint8

// Par is compile-time known; Var is a decision variable.
const (
	Par Variability = iota
	Var
)

func (v Variability) String() string {
	if v == Var {
		return "var"
	}

	return "par"
}

// Type is the compact value representation used throughout: a base kind, a
// set-flag, an optional-flag, an array rank ("dim"), a variability, and a
// 32-bit interned TypeID naming a structural tuple/record type, or an
// array-of-enum tuple via the side tables in the Interner.
type Type struct {
	Base        BaseKind
	IsSet       bool
	IsOptional  bool
	Dim         uint8
	Variability Variability
	// TypeID names a tuple/record/array-enum entry in an Interner; zero
	// means "no structural identity" (plain scalar of Base).
	TypeID uint32
}

// Scalar constructs a plain par scalar type of the given base kind.
func Scalar(base BaseKind) Type {
	return Type{Base: base}
}

// AsVar returns a copy of t with variability Var.
func (t Type) AsVar() Type {
	t.Variability = Var
	return t
}

// AsSet returns a copy of t marked as a set-of type.
func (t Type) AsSet() Type {
	t.IsSet = true
	return t
}

// AsOptional returns a copy of t marked optional.
func (t Type) AsOptional() Type {
	t.IsOptional = true
	return t
}

// AsArray returns a copy of t with the given array rank.
func (t Type) AsArray(dim uint8) Type {
	t.Dim = dim
	return t
}

// IsPar reports whether this type is compile-time known.
func (t Type) IsPar() bool {
	return t.Variability == Par
}

// IsScalar reports whether this type is neither a set nor an array.
func (t Type) IsScalar() bool {
	return !t.IsSet && t.Dim == 0
}

// Element returns the type one array-rank down (dim-1, same base/set/
// opt/variability). Panics if Dim == 0.
func (t Type) Element() Type {
	if t.Dim == 0 {
		panic("Element() of non-array type")
	}

	e := t
	e.Dim--

	return e
}

// SubtypeOf determines whether t is a subtype of other under the usual
// par <: var, non-opt <: opt, bot <: anything lattice. Dims and set-flags
// must match exactly (arrays/sets are invariant in this language).
func (t Type) SubtypeOf(other Type) bool {
	if t.Base == Bot {
		return true
	}

	if t.Dim != other.Dim || t.IsSet != other.IsSet {
		return false
	}

	if t.Variability == Var && other.Variability == Par {
		return false
	}

	if t.IsOptional && !other.IsOptional {
		return false
	}

	if t.Base != other.Base {
		return other.Base == Top
	}

	return t.TypeID == other.TypeID || t.TypeID == 0 || other.TypeID == 0
}

func (t Type) String() string {
	var b strings.Builder

	if t.Variability == Var {
		b.WriteString("var ")
	}

	if t.IsOptional {
		b.WriteString("opt ")
	}

	if t.IsSet {
		b.WriteString("set of ")
	}

	for i := uint8(0); i < t.Dim; i++ {
		b.WriteString("array of ")
	}

	b.WriteString(t.Base.String())

	if t.TypeID != 0 {
		fmt.Fprintf(&b, "#%d", t.TypeID)
	}

	return b.String()
}

// LeastUpperBound computes the least upper bound of two types in the
// subtyping lattice used by common-type computation: bot unless both
// sides agree on arity, set-flag and base kind; type ids fall back to 0
// when they disagree (record field names are not compared here; see
// Interner.CommonRecordType).
func LeastUpperBound(a, b Type) Type {
	if a.Base == Bot {
		return b
	}

	if b.Base == Bot {
		return a
	}

	if a.Dim != b.Dim || a.IsSet != b.IsSet || a.Base != b.Base {
		return Type{Base: Bot}
	}

	result := a
	result.IsOptional = a.IsOptional || b.IsOptional

	if a.Variability == Var || b.Variability == Var {
		result.Variability = Var
	}

	if a.TypeID != b.TypeID {
		result.TypeID = 0
	}

	return result
}
