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

// Package ast defines the tagged-union expression and item nodes of the
// modeling language: a DAG of Expr (with sharing permitted for interned
// literals and identifier references), broken into a forest of Item at
// the top level. Cycles in the user-facing constraint graph flow only
// through Id -> VarDecl -> defining expression -> Id; structural
// traversal must never follow that last edge (an Id carries only the
// DeclID of its declaration, never the declaration's expression).
package ast

import (
	"sync/atomic"

	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// NodeID is a process-wide stable identity used for hashing and CSE
// keys, assigned once at construction and never reused.
type NodeID uint64

var nodeCounter uint64

func nextNodeID() NodeID {
	return NodeID(atomic.AddUint64(&nodeCounter, 1))
}

// Annotations is the annotation set every node carries,
// e.g. ::promise_total, ::output, ::defines_var(x). Stored as an ordered
// list of annotation calls (duplicates are not filtered out) so both
// presence checks and re-serialisation are cheap.
type Annotations struct {
	entries []Annotation
}

// Annotation is a single `::name(args...)` annotation attached to a node.
type Annotation struct {
	Name string
	Args []Expr
}

// Add appends ann to the set (duplicates are permitted; MiniZinc
// annotations form a multiset).
func (a *Annotations) Add(ann Annotation) {
	a.entries = append(a.entries, ann)
}

// Has reports whether an annotation with the given name is present.
func (a *Annotations) Has(name string) bool {
	if a == nil {
		return false
	}

	for _, e := range a.entries {
		if e.Name == name {
			return true
		}
	}

	return false
}

// Find returns the first annotation with the given name, if any.
func (a *Annotations) Find(name string) (Annotation, bool) {
	if a == nil {
		return Annotation{}, false
	}

	for _, e := range a.entries {
		if e.Name == name {
			return e, true
		}
	}

	return Annotation{}, false
}

// All returns every annotation in the set, in insertion order.
func (a *Annotations) All() []Annotation {
	if a == nil {
		return nil
	}

	return a.entries
}

// Node is the common interface implemented by every AST node: a
// location, a compact Type, an annotation set and a stable NodeID.
type Node interface {
	Loc() source.Span
	ID() NodeID
	Type() types.Type
	Ann() *Annotations
}

// Base is embedded by every concrete node and implements Node except for
// Type(), which each node kind overrides since types differ per node
// (and, for some nodes such as AssignI, simply has no meaning).
type Base struct {
	Span source.Span
	Nid  NodeID
	Anns Annotations
}

// NewBase constructs a Base with a freshly assigned NodeID.
func NewBase(span source.Span) Base {
	return Base{Span: span, Nid: nextNodeID()}
}

// Loc returns this node's source location.
func (b *Base) Loc() source.Span { return b.Span }

// ID returns this node's stable identity.
func (b *Base) ID() NodeID { return b.Nid }

// Ann returns this node's annotation set.
func (b *Base) Ann() *Annotations { return &b.Anns }

// Symbol is implemented by expression nodes that can stand for an
// occurrence of a declared name: Id (scalar) and ArrayAccess (array
// element). Both resolve, ultimately, to a VarDecl in the environment's
// declaration arena.
type Symbol interface {
	Expr
	// Decl returns the arena id of the VarDecl this symbol refers to.
	Decl() heap.Id
}
