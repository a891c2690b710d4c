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
package flatten

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
)

// finalCleanup is the "oldflatzinc"-style finishing pass: it
// strips defines_var from every variable found on a defines_var cycle
// (no other annotation is removed), removes a par variable's now-redundant
// domain annotation, rewrites a trivially-true bool constraint away,
// and stably sorts the flat item list into declaration/constraint/
// solve/output order.
func (f *Flattener) finalCleanup() {
	f.pruneCyclicDefinesVar()
	f.dropRedundantParDomains()
	f.dropTrivialConstraints()
	f.stableSortItems()
}

// pruneCyclicDefinesVar finds every defines_var(x) annotation whose
// functional-dependency edge (the constraint defining x, pointing at
// every other variable that constraint reads) closes a cycle, and
// strips the annotation from each variable on that cycle -- an
// unconditional keep would let a solver's defines_var-driven
// elimination order loop forever. Visited/in-progress node state is
// tracked with a bitset, addressed by the arena's heap.Id, rather than
// a map[heap.Id]int, since ids are dense small integers here.
func (f *Flattener) pruneCyclicDefinesVar() {
	edges := f.buildDefinesVarGraph()

	n := f.highestDeclID(edges)
	visiting := bitset.New(n + 1)
	done := bitset.New(n + 1)
	onCycle := bitset.New(n + 1)

	var visit func(id heap.Id, stack []heap.Id)

	visit = func(id heap.Id, stack []heap.Id) {
		if done.Test(uint(id)) {
			return
		}

		if visiting.Test(uint(id)) {
			for i := len(stack) - 1; i >= 0; i-- {
				onCycle.Set(uint(stack[i]))
				if stack[i] == id {
					break
				}
			}

			return
		}

		visiting.Set(uint(id))

		path := make([]heap.Id, len(stack)+1)
		copy(path, stack)
		path[len(stack)] = id

		for _, dep := range edges[id] {
			visit(dep, path)
		}

		visiting.Clear(uint(id))
		done.Set(uint(id))
	}

	for id := range edges {
		visit(id, nil)
	}

	for _, item := range f.env.Flat.Items {
		decl, ok := item.(*ast.VarDeclI)
		if ok && onCycle.Test(uint(decl.SelfID)) {
			stripAnnotation(decl.Ann(), "defines_var")
		}
	}
}

func (f *Flattener) buildDefinesVarGraph() map[heap.Id][]heap.Id {
	edges := make(map[heap.Id][]heap.Id)

	for _, item := range f.env.Flat.Items {
		ci, ok := item.(*ast.ConstraintI)
		if !ok {
			continue
		}

		call, ok := ci.Expr.(*ast.Call)
		if !ok {
			continue
		}

		for _, arg := range call.Args {
			id, ok := arg.(*ast.Id)
			if !ok || !id.Ann().Has("defines_var") {
				continue
			}

			for _, other := range referencedDecls(ci.Expr) {
				if other != id.DeclID {
					edges[id.DeclID] = append(edges[id.DeclID], other)
				}
			}
		}
	}

	return edges
}

func (f *Flattener) highestDeclID(edges map[heap.Id][]heap.Id) uint {
	var max heap.Id

	for id, deps := range edges {
		if id > max {
			max = id
		}

		for _, d := range deps {
			if d > max {
				max = d
			}
		}
	}

	return uint(max)
}

func stripAnnotation(anns *ast.Annotations, name string) {
	kept := make([]ast.Annotation, 0)

	for _, a := range anns.All() {
		if a.Name != name {
			kept = append(kept, a)
		}
	}

	*anns = ast.Annotations{}

	for _, a := range kept {
		anns.Add(a)
	}
}

// dropRedundantParDomains removes a domain-restricting TypeInst from a
// par declaration once it has been memoised to a canonical literal: the
// domain no longer constrains anything a solver needs to see.
func (f *Flattener) dropRedundantParDomains() {
	for _, item := range f.env.Flat.Items {
		decl, ok := item.(*ast.VarDeclI)
		if !ok || !decl.Declared.IsPar() {
			continue
		}

		if decl.Def != nil {
			decl.TI = nil
		}
	}
}

// dropTrivialConstraints removes a `constraint true;` item, the flat
// residue of a reification or logical simplification that turned out
// to be statically satisfied.
func (f *Flattener) dropTrivialConstraints() {
	kept := make([]ast.Item, 0, len(f.env.Flat.Items))

	for _, item := range f.env.Flat.Items {
		if ci, ok := item.(*ast.ConstraintI); ok {
			if lit, ok := ci.Expr.(*ast.BoolLit); ok && lit.Val {
				continue
			}
		}

		kept = append(kept, item)
	}

	f.env.Flat.Items = kept
}

// stableSortItems groups the flat model into declaration, constraint,
// solve and output order while preserving each group's original
// relative order, the layout the printer expects.
func (f *Flattener) stableSortItems() {
	rank := func(it ast.Item) int {
		switch it.(type) {
		case *ast.VarDeclI:
			return 0
		case *ast.ConstraintI:
			return 1
		case *ast.SolveI:
			return 2
		case *ast.OutputI:
			return 3
		default:
			return 4
		}
	}

	items := f.env.Flat.Items
	sort.SliceStable(items, func(i, j int) bool {
		return rank(items[i]) < rank(items[j])
	})
}
