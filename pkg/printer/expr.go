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
	"fmt"
	"strings"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Interner is the narrow read-only view of pkg/types.Interner the
// printer needs: record field names, to recover the `(name: v, ...)`
// form of a record literal whose ArrayLit only carries its sorted
// values plus an interned TypeID.
type Interner interface {
	Record(id uint32) (types.RecordEntry, bool)
}

// exprDoc builds the layout document for e with no enclosing operator
// (a top-level expression, call argument or list element): parentPrec
// is 0, looser than every operator class, so e is never parenthesised.
func (pr *Printer) exprDoc(e ast.Expr) Doc {
	return pr.exprDocPrec(e, 0, AssocNone)
}

// exprDocPrec builds the layout document for e appearing on the given
// side of a parent of precedence parentPrec; a child is wrapped in
// parentheses whenever its own precedence binds more loosely, or ties
// without the associativity that would make parens unnecessary.
func (pr *Printer) exprDocPrec(e ast.Expr, parentPrec int, side Assoc) Doc {
	switch x := e.(type) {
	case *ast.IntLit:
		return Text(x.Val.String())
	case *ast.FloatLit:
		return Text(formatFloat(x.Val))
	case *ast.BoolLit:
		return Text(fmt.Sprintf("%v", x.Val))
	case *ast.StringLit:
		return Text(quoteString(x.Val))
	case *ast.SetLit:
		return pr.setLitDoc(x)
	case *ast.ArrayLit:
		return pr.arrayLitDoc(x)
	case *ast.Id:
		return Text(x.Name)
	case *ast.AnonVar:
		return Text("_")
	case *ast.ArrayAccess:
		return pr.arrayAccessDoc(x)
	case *ast.FieldAccess:
		return Concat(pr.exprDocPrec(x.Record, maxPrec, AssocNone), Text("."), Text(x.Field))
	case *ast.ITE:
		return pr.iteDoc(x)
	case *ast.BinOp:
		return pr.binOpDoc(x, parentPrec, side)
	case *ast.UnOp:
		return pr.unOpDoc(x, parentPrec)
	case *ast.Call:
		return pr.callDoc(x)
	case *ast.Comprehension:
		return pr.comprehensionDoc(x)
	case *ast.Let:
		return pr.letDoc(x)
	case *ast.LetVarDecl:
		return pr.letVarDeclDoc(x)
	case *ast.TIId:
		return Text(x.Name)
	default:
		return Text(fmt.Sprintf("<?%T>", e))
	}
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// quoteString escapes only `"` and `\`, the pair the model text form
// requires per the printer contract; other characters are passed
// through verbatim.
func quoteString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}

func (pr *Printer) binOpDoc(b *ast.BinOp, parentPrec int, side Assoc) Doc {
	p := precedenceOf(b.Op)

	// Each operand is tagged with the side it sits on, so needsParens
	// omits parens at an equal precedence only where the operator's own
	// associativity allows: a right-associative operator's right child
	// never needs them, its left child does (and vice versa for left).
	lSide, rSide := AssocLeft, AssocRight

	lhs := pr.exprDocPrec(b.Lhs.L, p.Level, lSide)
	rhs := pr.exprDocPrec(b.Lhs.R, p.Level, rSide)

	inner := Group(Concat(lhs, Text(" "+b.Op.String()), Line(), rhs))

	if needsParens(p.Level, p.Assoc, parentPrec, side) {
		return Concat(Text("("), inner, Text(")"))
	}

	return inner
}

// needsParens decides whether a child of precedence (level, assoc)
// appearing on the given side of a parent of precedence parentPrec
// needs explicit parentheses to preserve meaning when re-parsed.
func needsParens(level int, assoc Assoc, parentPrec int, side Assoc) bool {
	if level > parentPrec {
		return false
	}

	if level < parentPrec {
		return true
	}

	// Equal precedence: only safe to omit parens on the side the
	// shared associativity actually allows without one.
	switch side {
	case AssocLeft:
		return assoc != AssocLeft
	case AssocRight:
		return assoc != AssocRight
	default:
		return true
	}
}

func (pr *Printer) unOpDoc(u *ast.UnOp, parentPrec int) Doc {
	names := map[ast.UnOpKind]string{ast.OpNeg: "-", ast.OpPos: "+", ast.OpNot: "not "}

	arg := pr.exprDocPrec(u.Arg, unaryPrec, AssocRight)
	inner := Concat(Text(names[u.Op]), arg)

	if unaryPrec < parentPrec {
		return Concat(Text("("), inner, Text(")"))
	}

	return inner
}

func (pr *Printer) arrayAccessDoc(a *ast.ArrayAccess) Doc {
	idx := make([]Doc, len(a.Indices))
	for i, ix := range a.Indices {
		idx[i] = pr.exprDoc(ix)
	}

	return Concat(pr.exprDocPrec(a.Array, maxPrec, AssocNone), Text("["), Join(Text(", "), idx), Text("]"))
}

func (pr *Printer) callDoc(c *ast.Call) Doc {
	args := make([]Doc, len(c.Args))
	for i, a := range c.Args {
		args[i] = pr.exprDoc(a)
	}

	return Group(Concat(Text(c.Name+"("), Nest(4, Join(Concat(Text(","), Line()), args)), Text(")")))
}

func (pr *Printer) iteDoc(ite *ast.ITE) Doc {
	var parts []Doc

	for i, br := range ite.Branches {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}

		parts = append(parts, Text(kw+" "), pr.exprDoc(br.Cond), Text(" then"), Line())
		parts = append(parts, Nest(4, pr.exprDoc(br.Then)), Line())
	}

	if ite.Else != nil {
		parts = append(parts, Text("else"), Line(), Nest(4, pr.exprDoc(ite.Else)), Line())
	}

	parts = append(parts, Text("endif"))

	return Group(Concat(parts...))
}

// setLitDoc prints a literal set: `{a, b, c}` for an explicit element
// list, or the union of its ranges (`lo..hi`) for a range-backed
// int/float set.
func (pr *Printer) setLitDoc(s *ast.SetLit) Doc {
	if len(s.Ranges) > 0 {
		parts := make([]Doc, len(s.Ranges))

		for i, r := range s.Ranges {
			parts[i] = Text(r.Lo.String() + ".." + r.Hi.String())
		}

		return Concat(Text("{"), Join(Text(" union "), parts), Text("}"))
	}

	elems := make([]Doc, len(s.Elems))
	for i, el := range s.Elems {
		elems[i] = pr.exprDoc(el)
	}

	return Group(Concat(Text("{"), Nest(4, Join(Concat(Text(","), Line()), elems)), Text("}")))
}

// arrayLitDoc special-cases 1-D literals (`[a, b, c]`), multi-
// dimensional literals (`[| a, b | c, d |]`, row-major, one `|`-
// separated row per outermost index), and tuple/record carriers
// (`(a, b)` with a trailing comma for a one-element tuple; `(name: v,
// ...)` for a record).
func (pr *Printer) arrayLitDoc(a *ast.ArrayLit) Doc {
	if a.IsTuple {
		return pr.tupleLitDoc(a)
	}

	if a.IsRecord {
		return pr.recordLitDoc(a)
	}

	if len(a.Bounds) <= 1 {
		elems := make([]Doc, len(a.Elems))
		for i, el := range a.Elems {
			elems[i] = pr.exprDoc(el)
		}

		return Group(Concat(Text("["), Nest(4, Join(Concat(Text(","), Line()), elems)), Text("]")))
	}

	return pr.multiDimArrayLitDoc(a)
}

func (pr *Printer) multiDimArrayLitDoc(a *ast.ArrayLit) Doc {
	outer := a.Bounds[0]
	rowSize := len(a.Elems)

	for _, dim := range a.Bounds[1:] {
		if size := dim[1] - dim[0] + 1; size > 0 {
			rowSize /= size
		}
	}

	nRows := outer[1] - outer[0] + 1

	rows := make([]Doc, 0, nRows)

	for r := 0; r < nRows; r++ {
		start, end := r*rowSize, (r+1)*rowSize
		if end > len(a.Elems) {
			end = len(a.Elems)
		}

		cells := make([]Doc, 0, end-start)

		for _, el := range a.Elems[start:end] {
			cells = append(cells, pr.exprDoc(el))
		}

		rows = append(rows, Join(Text(", "), cells))
	}

	return Group(Concat(Text("[| "), Join(Text(" | "), rows), Text(" |]")))
}

func (pr *Printer) tupleLitDoc(a *ast.ArrayLit) Doc {
	elems := make([]Doc, len(a.Elems))
	for i, el := range a.Elems {
		elems[i] = pr.exprDoc(el)
	}

	if len(elems) == 1 {
		return Concat(Text("("), elems[0], Text(",)"))
	}

	return Group(Concat(Text("("), Nest(4, Join(Concat(Text(","), Line()), elems)), Text(")")))
}

// recordLitDoc recovers field names from the printer's Interner (the
// record literal's Elems are stored in sorted-by-name order, an
// invariant of registration, see pkg/types.Interner.RegisterRecordType);
// without an Interner (e.g. printing a standalone literal in a test) it
// falls back to positional placeholder names.
func (pr *Printer) recordLitDoc(a *ast.ArrayLit) Doc {
	var names []string

	if pr.Interner != nil {
		if entry, ok := pr.Interner.Record(a.TypeID); ok {
			names = make([]string, len(entry.Fields))
			for i, f := range entry.Fields {
				names[i] = f.Name
			}
		}
	}

	parts := make([]Doc, len(a.Elems))

	for i, el := range a.Elems {
		name := fmt.Sprintf("f%d", i)
		if i < len(names) {
			name = names[i]
		}

		parts[i] = Concat(Text(name+": "), pr.exprDoc(el))
	}

	return Group(Concat(Text("("), Nest(4, Join(Concat(Text(","), Line()), parts)), Text(")")))
}

func (pr *Printer) comprehensionDoc(c *ast.Comprehension) Doc {
	gens := make([]Doc, len(c.Generators))

	for i, g := range c.Generators {
		gens[i] = Concat(Text(strings.Join(g.Names, ", ")), Text(" in "), pr.exprDoc(g.Range))
	}

	open, close := "[", "]"
	if c.IsSet {
		open, close = "{", "}"
	}

	inner := Concat(pr.exprDoc(c.Body), Text(" | "), Join(Text(", "), gens))

	if c.Where != nil {
		inner = Concat(inner, Text(" where "), pr.exprDoc(c.Where))
	}

	return Group(Concat(Text(open), inner, Text(close)))
}

// letVarDeclDoc renders a let-scoped declaration in full (`type: name
// = rhs`) when pr.Decls can resolve its arena id; otherwise falls back
// to a bare placeholder since the declaration itself lives outside
// this expression's reach.
func (pr *Printer) letVarDeclDoc(lv *ast.LetVarDecl) Doc {
	if pr.Decls == nil {
		return Text(fmt.Sprintf("<decl#%d>", lv.DeclID))
	}

	decl := pr.Decls.Decl(lv.DeclID)
	if decl == nil {
		return Text(fmt.Sprintf("<decl#%d>", lv.DeclID))
	}

	parts := []Doc{pr.typeInstDoc(decl.TI, decl.Declared), Text(": " + decl.Name)}

	if decl.Def != nil {
		parts = append(parts, Text(" = "), pr.exprDoc(decl.Def))
	}

	return Concat(parts...)
}

func (pr *Printer) letDoc(l *ast.Let) Doc {
	items := make([]Doc, len(l.Items))
	for i, it := range l.Items {
		items[i] = pr.exprDoc(it)
	}

	return Group(Concat(
		Text("let {"), Nest(4, Join(Concat(Text(","), Line()), items)), Text("} in "), pr.exprDoc(l.Body),
	))
}
