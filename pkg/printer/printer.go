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

import (
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
)

// defaultWidth is the pretty-mode default line width (§6: "a pretty
// mode uses a document-based layout engine with configurable width
// (default 80)").
const defaultWidth = 80

// Printer holds the configuration for one print run: the target line
// width (0 selects compact mode, emitting canonical text with no line-
// breaking) and an optional type Interner used to recover record field
// names for record literals.
type Printer struct {
	// Width is the target line width for pretty mode; 0 means compact.
	Width int
	// Interner resolves record TypeIDs to field names; nil falls back
	// to positional placeholder names.
	Interner Interner
	// Decls resolves a let-scoped VarDecl's arena id back to its
	// declaration, so a LetVarDecl inside a Let prints its full
	// `type: name = rhs` form rather than a bare `<decl#n>` placeholder;
	// nil falls back to the placeholder.
	Decls DeclResolver
}

// DeclResolver is the narrow read-only view of pkg/env.EnvI the printer
// needs to resolve a LetVarDecl's arena id back to its declaration.
type DeclResolver interface {
	Decl(id heap.Id) *ast.VarDecl
}

// NewPrinter constructs a pretty-mode printer at the default width.
func NewPrinter() *Printer {
	return &Printer{Width: defaultWidth}
}

// NewCompactPrinter constructs a compact-mode printer (width 0): no
// line-breaking, single canonical form.
func NewCompactPrinter() *Printer {
	return &Printer{}
}

// WithWidth returns a copy of pr targeting the given line width.
func (pr *Printer) WithWidth(width int) *Printer {
	out := *pr
	out.Width = width

	return &out
}

// WithInterner returns a copy of pr that resolves record field names
// through in.
func (pr *Printer) WithInterner(in Interner) *Printer {
	out := *pr
	out.Interner = in

	return &out
}

// WithDecls returns a copy of pr that resolves let-scoped declarations
// through d.
func (pr *Printer) WithDecls(d DeclResolver) *Printer {
	out := *pr
	out.Decls = d

	return &out
}

// Expr renders a single expression.
func (pr *Printer) Expr(e ast.Expr) string {
	return Render(pr.exprDoc(e), pr.Width)
}

// Item renders a single top-level item, including its trailing `;` and
// annotations.
func (pr *Printer) Item(it ast.Item) string {
	return Render(pr.itemDoc(it), pr.Width)
}

// Model renders every item of m, one per line, in insertion order.
func (pr *Printer) Model(m *ast.Model) string {
	var out string

	for i, it := range m.Items {
		if i > 0 {
			out += "\n"
		}

		out += pr.Item(it)
	}

	return out
}
