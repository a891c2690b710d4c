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
package jsonload

import (
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/source"
)

// Loader parses a JSON data file against the top-level declarations of a
// Model. Declarations must already have a valid arena id (decl.SelfID)
// before Load is called -- the same precondition pkg/flatten/domain.go
// relies on when it builds a self-referencing Id from decl.SelfID, since
// AssignI.DeclID has no other way to name the declaration it targets.
type Loader struct {
	model    *ast.Model
	interner Interner
	enums    EnumTable
	decls    map[string]*ast.VarDecl
}

// NewLoader builds a Loader against model, resolving record/tuple field
// layouts through interner and enum member lists through enums.
func NewLoader(model *ast.Model, interner Interner, enums EnumTable) *Loader {
	decls := make(map[string]*ast.VarDecl)

	for _, it := range model.Items {
		if vi, ok := it.(*ast.VarDeclI); ok {
			decls[vi.Name] = vi.VarDecl
		}
	}

	return &Loader{model: model, interner: interner, enums: enums, decls: decls}
}

// Load parses data, a single top-level JSON object mapping declaration
// name to value, and returns one AssignI per recognized key. A key with
// no matching top-level declaration, or a value already defined by the
// model itself (decl.Def != nil), is an error.
func (l *Loader) Load(data []byte, filename string) ([]*ast.AssignI, error) {
	p, err := newParser(data, filename, l.enums)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	var out []*ast.AssignI

	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "a declaration name")
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}

		decl, ok := l.decls[keyTok.str]
		if !ok {
			return nil, source.NewError(source.KindJSON, keyTok.span, "%q does not name a declaration in this model", keyTok.str)
		}

		if decl.Def != nil {
			return nil, source.NewError(source.KindJSON, keyTok.span, "%q is already defined in the model", keyTok.str)
		}

		val, err := p.parseValue(l.interner, decl.Declared, decl.TI)
		if err != nil {
			return nil, err
		}

		out = append(out, &ast.AssignI{
			Base:   ast.NewBase(keyTok.span),
			Name:   keyTok.str,
			DeclID: decl.SelfID,
			Rhs:    val,
		})

		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}

	if p.tok.kind != tokEOF {
		return nil, source.NewError(source.KindJSON, p.tok.span, "unexpected trailing content after the top-level object")
	}

	return out, nil
}
