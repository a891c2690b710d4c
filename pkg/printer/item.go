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

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/types"
)

func (pr *Printer) itemDoc(it ast.Item) Doc {
	switch x := it.(type) {
	case *ast.IncludeI:
		return Concat(Text("include "), Text(quoteString(x.Path)), Text(";"))
	case *ast.VarDeclI:
		return pr.varDeclDoc(x.VarDecl)
	case *ast.AssignI:
		return Concat(Text(x.Name+" = "), pr.exprDoc(x.Rhs), Text(";"), pr.annotationsDoc(x.Ann()))
	case *ast.ConstraintI:
		return Concat(Text("constraint "), pr.exprDoc(x.Expr), Text(";"), pr.annotationsDoc(x.Ann()))
	case *ast.SolveI:
		return pr.solveDoc(x)
	case *ast.OutputI:
		section := ""
		if x.Section != "" {
			section = fmt.Sprintf(":: %q ", x.Section)
		}

		return Concat(Text("output "+section), pr.exprDoc(x.Expr), Text(";"))
	case *ast.FunctionI:
		return pr.functionDoc(x)
	default:
		return Text(fmt.Sprintf("<?item %T>", it))
	}
}

func (pr *Printer) varDeclDoc(d *ast.VarDecl) Doc {
	parts := []Doc{pr.typeInstDoc(d.TI, d.Declared), Text(": " + d.Name)}

	if d.Def != nil {
		parts = append(parts, Text(" = "), pr.exprDoc(d.Def))
	}

	parts = append(parts, pr.annotationsDoc(d.Ann()), Text(";"))

	return Concat(parts...)
}

// typeInstDoc renders a TypeInst: the `var`/par and `opt` modifiers and
// set-of marker come from the declared Type; array dimensions come
// from TI.Ranges (one index-set expression per dimension, printed as
// `array[r1, r2] of`); a scalar domain-restricting expression (TI.Domain)
// replaces the bare base-kind name when present (`var 1..10: x` rather
// than `var int: x`).
func (pr *Printer) typeInstDoc(ti *ast.TypeInst, declaredType types.Type) Doc {
	if ti == nil {
		return Text(declaredType.String())
	}

	t := ti.Declared

	b := Text("")
	if t.Variability == types.Var {
		b = Text("var ")
	}

	if t.IsOptional {
		b = Concat(b, Text("opt "))
	}

	if t.Dim > 0 && len(ti.Ranges) > 0 {
		ranges := make([]Doc, len(ti.Ranges))
		for i, r := range ti.Ranges {
			ranges[i] = pr.exprDoc(r)
		}

		b = Concat(b, Text("array["), Join(Text(", "), ranges), Text("] of "))
	}

	if t.IsSet {
		b = Concat(b, Text("set of "))
	}

	if ti.Domain != nil {
		return Concat(b, pr.exprDoc(ti.Domain))
	}

	return Concat(b, Text(t.Base.String()))
}

func (pr *Printer) solveDoc(s *ast.SolveI) Doc {
	switch s.Kind {
	case ast.SolveSatisfy:
		return Concat(Text("solve"), pr.solveAnnDoc(s.Anns), Text(" satisfy;"))
	case ast.SolveMinimize:
		return Concat(Text("solve"), pr.solveAnnDoc(s.Anns), Text(" minimize "), pr.exprDoc(s.Objective), Text(";"))
	case ast.SolveMaximize:
		return Concat(Text("solve"), pr.solveAnnDoc(s.Anns), Text(" maximize "), pr.exprDoc(s.Objective), Text(";"))
	default:
		return Text("solve satisfy;")
	}
}

func (pr *Printer) solveAnnDoc(anns []ast.Annotation) Doc {
	if len(anns) == 0 {
		return Text("")
	}

	parts := make([]Doc, len(anns))
	for i, a := range anns {
		parts[i] = pr.oneAnnotationDoc(a)
	}

	return Concat(Text(" "), Join(Text(" "), parts))
}

// annotationsDoc renders the `::name(args)` suffix of a node's
// annotation set, in insertion order.
func (pr *Printer) annotationsDoc(anns *ast.Annotations) Doc {
	all := anns.All()
	if len(all) == 0 {
		return Text("")
	}

	parts := make([]Doc, len(all))
	for i, a := range all {
		parts[i] = pr.oneAnnotationDoc(a)
	}

	return Concat(Text(" "), Join(Text(" "), parts))
}

func (pr *Printer) oneAnnotationDoc(a ast.Annotation) Doc {
	if len(a.Args) == 0 {
		return Text("::" + a.Name)
	}

	args := make([]Doc, len(a.Args))
	for i, arg := range a.Args {
		args[i] = pr.exprDoc(arg)
	}

	return Concat(Text("::"+a.Name+"("), Join(Text(", "), args), Text(")"))
}

func (pr *Printer) functionDoc(f *ast.FunctionI) Doc {
	kw := "function"

	switch {
	case f.IsTest:
		kw = "test"
	case f.IsPred:
		kw = "predicate"
	}

	params := make([]Doc, len(f.Params))
	for i, p := range f.Params {
		params[i] = Concat(pr.typeInstDoc(p.TI, p.Declared), Text(": "+p.Name))
	}

	head := Concat(Text(kw+" "), Text(f.Ret.String()+": "+f.Name+"("), Join(Text(", "), params), Text(")"))

	if f.Body == nil {
		return Concat(head, Text(";"))
	}

	return Concat(head, Text(" = "), pr.exprDoc(f.Body), Text(";"))
}
