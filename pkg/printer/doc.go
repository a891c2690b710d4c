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

// Package printer implements the canonical textual form of the AST and
// the flat model: a precedence-aware expression printer plus a small
// document-based layout engine for the pretty (line-wrapping) mode.
package printer

import "strings"

// docKind tags the handful of document shapes the layout engine needs:
// plain text, a breakable space, concatenation, indentation, and a
// group whose Line children collapse to spaces when the group as a
// whole fits the remaining width -- the "break-simplification" pass
// that joins lines back up when the joined length still fits.
type docKind uint8

const (
	dText docKind = iota
	dLine
	dConcat
	dNest
	dGroup
)

// Doc is an immutable node of the layout document. Built via the
// constructor functions below and rendered with Render.
type Doc struct {
	kind   docKind
	str    string
	indent int
	parts  []Doc
}

// Text wraps a literal string with no break points.
func Text(s string) Doc { return Doc{kind: dText, str: s} }

// Line is a breakable point: a single space when its enclosing Group
// renders flat, a newline plus the current indentation otherwise.
func Line() Doc { return Doc{kind: dLine} }

// Concat sequences documents with no space between them.
func Concat(parts ...Doc) Doc { return Doc{kind: dConcat, parts: parts} }

// Join concatenates parts with sep between each pair.
func Join(sep Doc, parts []Doc) Doc {
	if len(parts) == 0 {
		return Concat()
	}

	out := make([]Doc, 0, len(parts)*2-1)
	for i, p := range parts {
		if i > 0 {
			out = append(out, sep)
		}

		out = append(out, p)
	}

	return Concat(out...)
}

// Nest increases the indentation used by any Line within d by n columns.
func Nest(n int, d Doc) Doc { return Doc{kind: dNest, indent: n, parts: []Doc{d}} }

// Group marks d as a unit that is rendered flat (every Line becomes a
// single space) when it fits within the remaining width, and broken
// (every Line becomes a real newline) otherwise.
func Group(d Doc) Doc { return Doc{kind: dGroup, parts: []Doc{d}} }

// Render lays out d at the given maximum line width. width <= 0
// selects compact mode: every Group renders flat regardless of length,
// producing canonical text with no line-breaking.
func Render(d Doc, width int) string {
	var b strings.Builder

	renderDoc(&b, d, 0, 0, width, width <= 0)

	return b.String()
}

// renderDoc writes d to b starting at column col under indentation
// indent, returning the column reached. compact forces every Group to
// render flat.
func renderDoc(b *strings.Builder, d Doc, indent, col, width int, compact bool) int {
	switch d.kind {
	case dText:
		b.WriteString(d.str)
		return col + len(d.str)
	case dLine:
		if compact {
			b.WriteByte(' ')
			return col + 1
		}

		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", indent))

		return indent
	case dConcat:
		for _, p := range d.parts {
			col = renderDoc(b, p, indent, col, width, compact)
		}

		return col
	case dNest:
		return renderDoc(b, d.parts[0], indent+d.indent, col, width, compact)
	case dGroup:
		inner := d.parts[0]
		if compact || col+flatWidth(inner) <= width {
			return renderFlat(b, inner, col)
		}

		return renderDoc(b, inner, indent, col, width, false)
	default:
		return col
	}
}

// renderFlat writes d with every Line collapsed to a single space,
// ignoring nesting (flat text carries no indentation).
func renderFlat(b *strings.Builder, d Doc, col int) int {
	switch d.kind {
	case dText:
		b.WriteString(d.str)
		return col + len(d.str)
	case dLine:
		b.WriteByte(' ')
		return col + 1
	case dConcat:
		for _, p := range d.parts {
			col = renderFlat(b, p, col)
		}

		return col
	case dNest:
		return renderFlat(b, d.parts[0], col)
	case dGroup:
		return renderFlat(b, d.parts[0], col)
	default:
		return col
	}
}

// flatWidth computes the width d would occupy rendered fully flat,
// the measure the break-simplification check compares against the
// remaining line width.
func flatWidth(d Doc) int {
	switch d.kind {
	case dText:
		return len(d.str)
	case dLine:
		return 1
	case dConcat:
		total := 0
		for _, p := range d.parts {
			total += flatWidth(p)
		}

		return total
	case dNest:
		return flatWidth(d.parts[0])
	case dGroup:
		return flatWidth(d.parts[0])
	default:
		return 0
	}
}
