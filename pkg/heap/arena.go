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

// Package heap implements a managed allocator for VarDecls. Rather than
// reproduce a mark-sweep collector with keep-alive roots, it uses an
// arena-plus-indices design, where a VarDecl becomes a VarId (an index
// into the arena). This sidesteps lifetime/GC complexity entirely and
// gives a natural single-pass compaction point (see Compact).
package heap

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Id is a stable, 1-based handle into an Arena. The zero value is never
// a valid allocation, so it doubles as a "no declaration" sentinel the
// way a nil pointer would in a pointer-based design.
type Id uint32

// IsValid reports whether this id refers to a live (or at least
// allocated) slot.
func (id Id) IsValid() bool {
	return id != 0
}

// Arena is a region/arena allocator for values of type T, guarded by a
// single mutex so that concurrent callers owning distinct Arenas never
// contend but a single Arena is safe to drive from multiple goroutines.
// Every method holds the lock for its own duration only; between calls
// an Id is not guaranteed to remain valid if Compact may run
// concurrently.
//
// removed is the mark bitmap of the simulated mark-region collector: a
// compact bitset rather than a []bool, since a compilation's arena can
// hold many thousands of declarations and most of them outlive the whole
// run.
type Arena[T any] struct {
	mu       sync.Mutex
	slots    []T
	removed  *bitset.BitSet
	roots    map[Id]int
	nextRoot int
}

// NewArena constructs an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{slots: make([]T, 1), removed: bitset.New(1), roots: make(map[Id]int)}
}

// Alloc inserts a new value and returns its stable Id.
func (a *Arena[T]) Alloc(v T) Id {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.slots = append(a.slots, v)

	return Id(len(a.slots) - 1)
}

// Get dereferences an Id. Dereferencing an id that was never allocated
// panics; dereferencing one marked Removed returns the stale (but still
// physically present, until Compact runs) value -- callers that must
// never observe a removed declaration should check IsRemoved first.
func (a *Arena[T]) Get(id Id) T {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.slots[id]
}

// Set overwrites the value at id in place.
func (a *Arena[T]) Set(id Id, v T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.slots[id] = v
}

// Remove marks an id as logically deleted without physically compacting
// the arena.
func (a *Arena[T]) Remove(id Id) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.removed.Set(uint(id))
}

// IsRemoved reports whether id has been marked removed.
func (a *Arena[T]) IsRemoved(id Id) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.removed.Test(uint(id))
}

// Len returns the number of slots ever allocated (including removed
// ones), which is also one more than the highest valid Id.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.slots)
}

// Pin registers id as a root for the duration of the keep-alive handle
// returned: a long-lived reference that survives any future Compact
// call, for any raw reference that must outlive a potential safe point.
func (a *Arena[T]) Pin(id Id) (unpin func()) {
	a.mu.Lock()
	a.roots[id]++
	a.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()

			a.roots[id]--
			if a.roots[id] <= 0 {
				delete(a.roots, id)
			}
		})
	}
}

// Compact physically removes every slot marked Removed and not rooted,
// returning a remapping table from old Id to new Id (0 for anything that
// was dropped). The flattener does not call it; it runs only when a
// caller invokes it (directly or through env.EnvI.Compact).
func (a *Arena[T]) Compact() map[Id]Id {
	a.mu.Lock()
	defer a.mu.Unlock()

	remap := make(map[Id]Id, len(a.slots))
	newSlots := make([]T, 1)
	newRemoved := bitset.New(1)

	for old := 1; old < len(a.slots); old++ {
		id := Id(old)
		wasRemoved := a.removed.Test(uint(old))

		if wasRemoved {
			if _, rooted := a.roots[id]; !rooted {
				remap[id] = 0
				continue
			}
		}

		newSlots = append(newSlots, a.slots[old])

		if wasRemoved {
			newRemoved.Set(uint(len(newSlots) - 1))
		}

		remap[id] = Id(len(newSlots) - 1)
	}

	a.slots = newSlots
	a.removed = newRemoved

	return remap
}

// All returns every live (non-removed) id currently allocated, in
// insertion order -- used for iterating the flat model's variable
// declarations.
func (a *Arena[T]) All() []Id {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ids []Id

	for i := 1; i < len(a.slots); i++ {
		if !a.removed.Test(uint(i)) {
			ids = append(ids, Id(i))
		}
	}

	return ids
}
