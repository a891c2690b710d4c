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

// Value is a solved (or evaluated) runtime value, the shape the
// reconstructed solution is expressed in. Exactly one field is
// meaningful, selected by Kind.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Tuple []Value
}

// ValueKind tags the active field of a Value.
type ValueKind uint8

// Value kinds.
const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueBool
	ValueString
	ValueTuple
)

// ReverseMapper reconstructs a user-facing value (a tuple, record, or
// enum projected to an integer/float surrogate during flattening) from
// the flat surrogate variables' solved assignments.
type ReverseMapper func(surrogates map[string]Value) Value

// reverseRegistry is the reverse mapper registry: type name to function
// that re-materializes a user-facing value post-solve, extended below
// into the solns2out-style ReconstructSolution entry point.
type reverseRegistry struct {
	byVar map[string]registeredMapper
}

type registeredMapper struct {
	surrogates []string
	fn         ReverseMapper
}

func newReverseRegistry() *reverseRegistry {
	return &reverseRegistry{byVar: make(map[string]registeredMapper)}
}

// RegisterReverseMapper associates the original user-facing variable
// name with the set of flat surrogate variable names its value must be
// rebuilt from, and the function that performs the rebuild.
func (e *EnvI) RegisterReverseMapper(userVar string, surrogates []string, fn ReverseMapper) {
	e.reverse.byVar[userVar] = registeredMapper{surrogates: surrogates, fn: fn}
}

// ReconstructSolution walks the reverse-mapper registry and rebuilds
// every registered user-facing value from a flat solution (a map from
// flat surrogate variable name to its solved Value). Surrogate-free
// entries of vars pass through unchanged.
func (e *EnvI) ReconstructSolution(vars map[string]Value) map[string]Value {
	out := make(map[string]Value, len(vars))

	for k, v := range vars {
		out[k] = v
	}

	for userVar, mapper := range e.reverse.byVar {
		inputs := make(map[string]Value, len(mapper.surrogates))

		missing := false

		for _, s := range mapper.surrogates {
			v, ok := vars[s]
			if !ok {
				missing = true
				break
			}

			inputs[s] = v
		}

		if missing {
			continue
		}

		out[userVar] = mapper.fn(inputs)

		for _, s := range mapper.surrogates {
			delete(out, s)
		}
	}

	return out
}
