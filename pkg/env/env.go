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

// Package env implements EnvI, the flattener's process-wide coordination
// object: the source model, the flat model, the constant pool, a
// var-occurrences index, the CSE map, the path store, the reverse-mapper
// registry, the type interner, counters, a warning buffer, flattening
// options and the diagnostic call stack.
package env

import (
	"context"
	"math/rand"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/heap"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// EnvI is the single coordination object for one compilation. It is
// non-shareable: this permits concurrent compilations only when
// each owns a distinct EnvI, Model and managed heap.
type EnvI struct {
	// CompilationID uniquely identifies this compilation run, stamped
	// into diagnostics/output so a solution writer can correlate a flat
	// model back to its source compile.
	CompilationID uuid.UUID

	Source *ast.Model
	Flat   *ast.Model

	Options FlatteningOptions
	Verbose bool

	arena *heap.Arena[*ast.VarDecl]

	// occurrences maps a VarDecl's arena id to the items that reference
	// it, the var-occurrences index.
	occurrences map[heap.Id][]ast.Item

	cse       map[string]cseEntry
	pathStore map[string]heap.Id

	reverse *reverseRegistry

	Interner *types.Interner

	warnings warningBuffer
	stack    source.CallStack

	rng *rand.Rand

	// introducedCounter numbers X_INTRODUCED_<n>_ fresh variables, per
	// the naming convention fresh variables use for printer output.
	introducedCounter uint64

	failed bool

	ctx context.Context
}

// cseEntry is one CSE map entry: a cached (result, definedness) pair
// keyed by structural equality including operand order.
type cseEntry struct {
	Result      ast.Expr
	Definedness ast.Expr
	// owner is the flat VarDecl this call's result was bound to, if any;
	// the entry is invalidated when owner is marked removed.
	owner heap.Id
}

// New constructs a fresh EnvI around the given source model.
func New(ctx context.Context, source_ *ast.Model, opts FlatteningOptions) *EnvI {
	if ctx == nil {
		ctx = context.Background()
	}

	return &EnvI{
		CompilationID: uuid.New(),
		Source:        source_,
		Flat:          ast.NewModel(),
		Options:       opts,
		arena:         heap.NewArena[*ast.VarDecl](),
		occurrences:   make(map[heap.Id][]ast.Item),
		cse:           make(map[string]cseEntry),
		pathStore:     make(map[string]heap.Id),
		reverse:       newReverseRegistry(),
		Interner:      types.NewInterner(),
		rng:           rand.New(rand.NewSource(opts.RandomSeed)),
		ctx:           ctx,
	}
}

// DeclareVar allocates a fresh VarDecl in the managed heap and returns
// its arena id, which doubles as the canonical VarId identifying the
// declaration everywhere else in the flattener.
func (e *EnvI) DeclareVar(decl *ast.VarDecl) heap.Id {
	id := e.arena.Alloc(decl)
	decl.SelfID = id

	return id
}

// Decl implements eval.Env: looks up a VarDecl by arena id.
func (e *EnvI) Decl(id heap.Id) *ast.VarDecl {
	if !id.IsValid() || e.arena.IsRemoved(id) {
		return nil
	}

	return e.arena.Get(id)
}

// MemoizeDecl implements eval.Env: once a parameter's defining
// expression has been evaluated, it is rewritten to the canonical
// literal form, so re-evaluating the same declaration is a cache hit.
func (e *EnvI) MemoizeDecl(id heap.Id, lit ast.Expr) {
	decl := e.Decl(id)
	if decl == nil {
		return
	}

	decl.Def = lit
}

// RecordFieldNames implements eval.Env: returns the sorted field names
// of an interned record type, in storage order.
func (e *EnvI) RecordFieldNames(typeID uint32) []string {
	entry, ok := e.Interner.Record(typeID)
	if !ok {
		return nil
	}

	names := make([]string, len(entry.Fields))
	for i, f := range entry.Fields {
		names[i] = f.Name
	}

	return names
}

// RegisterRecordType implements eval.Env: interns a record type,
// sorting its fields by name.
func (e *EnvI) RegisterRecordType(fields []types.Field) uint32 {
	return e.Interner.RegisterRecordType(fields)
}

// CheckCancel implements eval.Env and is the cooperative yield point,
// invoked at each item traversal and at every call entry during
// evaluation.
func (e *EnvI) CheckCancel() error {
	select {
	case <-e.ctx.Done():
		return source.NewError(source.KindCancellation, source.NoSpan, "compilation cancelled: %v", e.ctx.Err())
	default:
		return nil
	}
}

// RemoveVar marks a VarDecl removed; it is never deleted in place,
// only physically compacted later via Compact.
func (e *EnvI) RemoveVar(id heap.Id) {
	e.arena.Remove(id)
	e.invalidateCSEFor(id)
}

// Compact physically reclaims removed/unrooted VarDecl slots, remapping
// survivors; it is the single-pass compaction point that stands in for
// a mark-sweep GC.
func (e *EnvI) Compact() map[heap.Id]heap.Id {
	return e.arena.Compact()
}

// NextIntroducedID returns a fresh, monotonically increasing id for an
// X_INTRODUCED_<n>_ variable name.
func (e *EnvI) NextIntroducedID() uint64 {
	return atomic.AddUint64(&e.introducedCounter, 1)
}

// Fail implements the fail(msg, loc) builtin: marks
// the environment failed; the remaining pipeline (flatten.go) is
// responsible for replacing the model with the constraint-false
// skeleton once it observes Failed().
func (e *EnvI) Fail(span source.Span, format string, args ...any) *source.Error {
	e.failed = true
	return source.NewError(source.KindModelInconsistent, span, format, args...)
}

// Failed reports whether Fail has been called on this environment.
func (e *EnvI) Failed() bool { return e.failed }

// PushFrame/PopFrame delegate to the call stack used for diagnostics and
// annotation capture.
func (e *EnvI) PushFrame(span source.Span, label string) { e.stack.Push(span, label) }

// PopFrame pops the most recently pushed call-stack frame.
func (e *EnvI) PopFrame() { e.stack.Pop() }

// StackFrames returns the current call stack, truncated to the 20-frame
// cap.
func (e *EnvI) StackFrames() []source.Frame { return e.stack.Frames(20) }

// Rand returns the environment's PRNG, seeded from Options.RandomSeed.
func (e *EnvI) Rand() *rand.Rand { return e.rng }
