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
package cmd

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// fixture bundles a demo Model with the declarations a caller may want to
// bind data to by name, keyed the way a .mzn model names its top-level
// pars. Real textual parsing of a modeling language is out of scope, so
// the flatten/eval/check subcommands operate on this small hand-built
// set instead of an external file.
type fixture struct {
	name  string
	model *ast.Model
	// decls gives every top-level VarDecl in model, in declaration
	// order -- the same order the flattener's arena will assign ids in,
	// so SelfID can be predicted before Run() ever executes.
	decls []*ast.VarDecl
}

// newFixture wires decls[i].SelfID to heap.Id(i+1) to match what
// env.DeclareVar will assign when the flattener later walks model.Items
// in order, the same positional prediction pkg/flatten's own tests rely
// on (see flatten_test.go's newEnvWithModel usage).
func newFixture(name string, model *ast.Model, decls []*ast.VarDecl) fixture {
	for i, d := range decls {
		d.SelfID = heap.Id(i + 1) //nolint:gosec
	}

	return fixture{name: name, model: model, decls: decls}
}

// sumFixture models a small par/var mix: three undefined scalar pars
// feeding a var total, constrained by their sum. Scalar pars, rather
// than a par array, since pkg/flatten's evalParDecl dispatches purely
// on decl.Declared.Base -- an array-of-int par would mis-route through
// the scalar eval.EvalInt case.
//
//	par int: n1; par int: n2; par int: n3;
//	var 0..100: total;
//	constraint total = n1 + n2 + n3;
//	solve satisfy;
func sumFixture() fixture {
	model := ast.NewModel()

	n1Decl := &ast.VarDecl{Base: ast.NewBase(source.NoSpan), Name: "n1", Declared: types.Scalar(types.IntKind)}
	model.Append(&ast.VarDeclI{VarDecl: n1Decl})

	n2Decl := &ast.VarDecl{Base: ast.NewBase(source.NoSpan), Name: "n2", Declared: types.Scalar(types.IntKind)}
	model.Append(&ast.VarDeclI{VarDecl: n2Decl})

	n3Decl := &ast.VarDecl{Base: ast.NewBase(source.NoSpan), Name: "n3", Declared: types.Scalar(types.IntKind)}
	model.Append(&ast.VarDeclI{VarDecl: n3Decl})

	totalDecl := &ast.VarDecl{
		Base:     ast.NewBase(source.NoSpan),
		Name:     "total",
		Declared: types.Scalar(types.IntKind).AsVar(),
		TI: &ast.TypeInst{
			Base:     ast.NewBase(source.NoSpan),
			Declared: types.Scalar(types.IntKind).AsVar(),
			Domain:   &ast.SetLit{Ranges: []ast.IntRange{{Lo: *big.NewInt(0), Hi: *big.NewInt(100)}}},
		},
	}
	model.Append(&ast.VarDeclI{VarDecl: totalDecl})

	n1Ref := &ast.Id{Name: "n1", DeclID: 1, ValType: n1Decl.Declared}
	n2Ref := &ast.Id{Name: "n2", DeclID: 2, ValType: n2Decl.Declared}
	n3Ref := &ast.Id{Name: "n3", DeclID: 3, ValType: n3Decl.Declared}
	totalRef := &ast.Id{Name: "total", DeclID: 4, ValType: totalDecl.Declared}

	sum := &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: n1Ref, R: n2Ref}, ValType: types.Scalar(types.IntKind)}
	sum = &ast.BinOp{Op: ast.OpAdd, Lhs: ast.Rhs{L: sum, R: n3Ref}, ValType: types.Scalar(types.IntKind)}

	eq := &ast.BinOp{
		Op:      ast.OpEq,
		Lhs:     ast.Rhs{L: totalRef, R: sum},
		ValType: types.Scalar(types.BoolKind).AsVar(),
	}

	model.Append(&ast.ConstraintI{Expr: eq})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	return newFixture("sum", model, []*ast.VarDecl{n1Decl, n2Decl, n3Decl, totalDecl})
}

// rangeFixture models a quantifier over a par range:
//
//	par int: lo = 1;
//	par int: hi = 5;
//	constraint forall(i in lo..hi)(i > 0);
//	solve satisfy;
func rangeFixture() fixture {
	model := ast.NewModel()

	loDecl := &ast.VarDecl{
		Base: ast.NewBase(source.NoSpan), Name: "lo", Declared: types.Scalar(types.IntKind),
		Def: ast.NewIntLit(source.NoSpan, *big.NewInt(1)),
	}
	model.Append(&ast.VarDeclI{VarDecl: loDecl})

	hiDecl := &ast.VarDecl{
		Base: ast.NewBase(source.NoSpan), Name: "hi", Declared: types.Scalar(types.IntKind),
		Def: ast.NewIntLit(source.NoSpan, *big.NewInt(5)),
	}
	model.Append(&ast.VarDeclI{VarDecl: hiDecl})

	loRef := &ast.Id{Name: "lo", DeclID: 1, ValType: loDecl.Declared}
	hiRef := &ast.Id{Name: "hi", DeclID: 2, ValType: hiDecl.Declared}

	gen := ast.Generator{
		Names: []string{"i"},
		Range: &ast.BinOp{Op: ast.OpRange, Lhs: ast.Rhs{L: loRef, R: hiRef}, ValType: types.Scalar(types.IntKind).AsSet()},
	}

	// The generator variable's VarDecl is allocated lazily, the first
	// time the comprehension expands, immediately after lo and hi have
	// already claimed ids 1 and 2 -- so its id is deterministically 3.
	iRef := &ast.Id{Name: "i", DeclID: 3, ValType: types.Scalar(types.IntKind)}
	body := &ast.BinOp{
		Op: ast.OpGt, Lhs: ast.Rhs{L: iRef, R: ast.NewIntLit(source.NoSpan, *big.NewInt(0))},
		ValType: types.Scalar(types.BoolKind),
	}

	compr := &ast.Comprehension{Generators: []ast.Generator{gen}, Body: body, ValType: types.Scalar(types.BoolKind).AsArray(1)}
	call := &ast.Call{Name: "forall", Args: []ast.Expr{compr}, ValType: types.Scalar(types.BoolKind)}

	model.Append(&ast.ConstraintI{Expr: call})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	return newFixture("range", model, []*ast.VarDecl{loDecl, hiDecl})
}

// paramsFixture models an undefined-pars-only file meant to be filled
// from a data file before flattening -- the shape pkg/cmd's check
// subcommand exercises against a directory of data fixtures.
//
//	par int: width;
//	par int: height;
//	constraint width * height <= 64;
//	solve satisfy;
func paramsFixture() fixture {
	model := ast.NewModel()

	widthDecl := &ast.VarDecl{Base: ast.NewBase(source.NoSpan), Name: "width", Declared: types.Scalar(types.IntKind)}
	model.Append(&ast.VarDeclI{VarDecl: widthDecl})

	heightDecl := &ast.VarDecl{Base: ast.NewBase(source.NoSpan), Name: "height", Declared: types.Scalar(types.IntKind)}
	model.Append(&ast.VarDeclI{VarDecl: heightDecl})

	widthRef := &ast.Id{Name: "width", DeclID: 1, ValType: widthDecl.Declared}
	heightRef := &ast.Id{Name: "height", DeclID: 2, ValType: heightDecl.Declared}

	area := &ast.BinOp{Op: ast.OpMul, Lhs: ast.Rhs{L: widthRef, R: heightRef}, ValType: types.Scalar(types.IntKind)}
	le := &ast.BinOp{
		Op: ast.OpLe, Lhs: ast.Rhs{L: area, R: ast.NewIntLit(source.NoSpan, *big.NewInt(64))},
		ValType: types.Scalar(types.BoolKind).AsVar(),
	}

	model.Append(&ast.ConstraintI{Expr: le})
	model.Append(&ast.SolveI{Kind: ast.SolveSatisfy})

	return newFixture("params", model, []*ast.VarDecl{widthDecl, heightDecl})
}

// fixtureBuilders maps each fixture name to a builder rather than to a
// built fixture, so every fixture's AST is rebuilt fresh per lookup --
// two subcommands invoked in the same process never share a single
// mutable Model.
var fixtureBuilders = map[string]func() fixture{
	"sum":    sumFixture,
	"range":  rangeFixture,
	"params": paramsFixture,
}

// fixtureNames lists the known fixture names, sorted for stable --help
// output.
func fixtureNames() []string {
	names := make([]string, 0, len(fixtureBuilders))
	for n := range fixtureBuilders {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// lookupFixture builds a fresh copy of the named fixture model.
func lookupFixture(name string) (fixture, error) {
	build, ok := fixtureBuilders[name]
	if !ok {
		return fixture{}, fmt.Errorf("unknown fixture model %q (known: %v)", name, fixtureNames())
	}

	return build(), nil
}
