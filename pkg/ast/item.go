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
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Item is the top-level forest node of a Model: an include, a
// declaration, an assignment, a constraint, a solve goal, an output
// section or a user function definition.
type Item interface {
	Node
	isItem()
}

// VarDecl is a top-level or let-scoped variable/parameter declaration. It
// lives both as an Item (at the top level) and, wrapped in a
// LetVarDecl, inside a Let's item list; the canonical declaration itself
// always lives in the environment's declaration arena, addressed by
// heap.Id.
type VarDecl struct {
	Base
	Name     string
	Declared types.Type
	TI       *TypeInst
	// Def is the optional defining/right-hand-side expression (nil for
	// an undefined parameter or a solve-time-only decision variable).
	Def Expr
	// SelfID is filled in once this declaration has been placed in the
	// environment's arena, so that Id/ArrayAccess nodes referencing it by
	// name can be rewritten to a heap.Id instead.
	SelfID heap.Id
}

func (d *VarDecl) isItem() {}

// Type returns the declared type.
func (d *VarDecl) Type() types.Type { return d.Declared }

// IncludeI is a top-level `include "path.mzn";` item. Includes are
// resolved and inlined before flattening begins.
type IncludeI struct {
	Base
	Path string
}

func (i *IncludeI) isItem()          {}
func (i *IncludeI) Type() types.Type { return types.Type{} }

// VarDeclI wraps a top-level VarDecl as an Item.
type VarDeclI struct {
	*VarDecl
}

// AssignI is a top-level `name = expr;` item that assigns a defining
// expression to a previously-declared (but still undefined) VarDecl.
type AssignI struct {
	Base
	Name   string
	DeclID heap.Id
	Rhs    Expr
}

func (i *AssignI) isItem()          {}
func (i *AssignI) Type() types.Type { return types.Type{} }

// ConstraintI is a top-level `constraint expr;` item; expr must have
// bool type (par or var).
type ConstraintI struct {
	Base
	Expr Expr
}

func (i *ConstraintI) isItem()          {}
func (i *ConstraintI) Type() types.Type { return types.Scalar(types.BoolKind) }

// SolveKind distinguishes satisfy/minimize/maximize goals.
type SolveKind uint8

// Solve goal kinds.
const (
	SolveSatisfy SolveKind = iota
	SolveMinimize
	SolveMaximize
)

// SolveI is the (unique) top-level solve item.
type SolveI struct {
	Base
	Kind       SolveKind
	Objective  Expr // nil for satisfy
	Anns       []Annotation
}

func (i *SolveI) isItem()          {}
func (i *SolveI) Type() types.Type { return types.Type{} }

// OutputI is a top-level `output [...]` section: an array-of-string
// expression whose evaluation runs against the solution rather than
// the model.
type OutputI struct {
	Base
	Section string // "" for the default (unnamed) section
	Expr    Expr
}

func (i *OutputI) isItem()          {}
func (i *OutputI) Type() types.Type { return types.Type{} }

// FunctionI is a top-level user function/predicate/test definition. Its
// Body is only present for non-builtin definitions; builtins are
// recognised by Name in the flattener/evaluator's dispatch tables.
type FunctionI struct {
	Base
	Name    string
	Params  []*VarDecl
	Ret     types.Type
	Body    Expr // nil for a builtin or forward declaration
	IsTest  bool
	IsPred  bool
}

func (i *FunctionI) isItem()          {}
func (i *FunctionI) Type() types.Type { return i.Ret }

// Model is the ordered sequence of top-level items produced by parsing
// (out of scope) and consumed by resolution/flattening.
type Model struct {
	Items []Item
}

// NewModel constructs an empty Model.
func NewModel() *Model { return &Model{} }

// Append adds an item to the end of the model.
func (m *Model) Append(it Item) { m.Items = append(m.Items, it) }
