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
package env

import (
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
)

// CSEGet returns the cached (result, definedness) pair for a flat call
// keyed by its canonical structural key.
func (e *EnvI) CSEGet(key string) (cseEntry, bool) {
	entry, ok := e.cse[key]
	return entry, ok
}

// CSEPut records a fresh CSE entry, owned by the given flat VarDecl so
// it can be invalidated if that declaration is later removed.
func (e *EnvI) CSEPut(key string, result, definedness ast.Expr, owner heap.Id) {
	e.cse[key] = cseEntry{Result: result, Definedness: definedness, owner: owner}
}

// invalidateCSEFor drops every CSE entry owned by id: entries are
// invalidated whenever the referenced flat VarDecl is removed.
func (e *EnvI) invalidateCSEFor(id heap.Id) {
	for k, v := range e.cse {
		if v.owner == id {
			delete(e.cse, k)
		}
	}
}

// PathLookup returns the canonical VarDecl previously recorded for a
// source path, used by multi-pass unification.
func (e *EnvI) PathLookup(path string) (heap.Id, bool) {
	id, ok := e.pathStore[path]
	return id, ok
}

// PathBind records the canonical VarDecl for a source path.
func (e *EnvI) PathBind(path string, id heap.Id) {
	e.pathStore[path] = id
}

// RecordOccurrence appends item to the var-occurrences index for id.
func (e *EnvI) RecordOccurrence(id heap.Id, item ast.Item) {
	e.occurrences[id] = append(e.occurrences[id], item)
}

// Occurrences returns the items referencing id.
func (e *EnvI) Occurrences(id heap.Id) []ast.Item {
	return e.occurrences[id]
}

// OccurrenceCount returns the number of recorded references to id, used
// by the post-pass rewriting loop's dead-declaration removal.
func (e *EnvI) OccurrenceCount(id heap.Id) int {
	return len(e.occurrences[id])
}
