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

// OutputMode selects the shape of the emitted output section: plain
// text, or JSON-encapsulated per the solution-stream encoding used by
// downstream tooling.
type OutputMode uint8

// Output modes.
const (
	// OutputModeText prints the flat model as model text.
	OutputModeText OutputMode = iota
	// OutputModeJSON emits the flat model as a JSON object.
	OutputModeJSON
)

// FlatteningOptions is the options bundle populated from CLI flags
// (see pkg/cmd).
type FlatteningOptions struct {
	// OnlyRangeDomains forbids multi-range integer domains, extracting
	// them to constraints instead.
	OnlyRangeDomains bool
	// EnableHalfReification prefers _imp variants under pos context.
	EnableHalfReification bool
	// RecordDomainChanges emits explicit domain constraints for all
	// domain narrowings.
	RecordDomainChanges bool
	// KeepOutputInFzn copies, rather than rebuilds, the output section.
	KeepOutputInFzn bool
	// DetailedTiming records per-location wall-clock time budgets.
	DetailedTiming bool
	// CollectMznPaths attaches mzn_path annotations even when not
	// deep-nested.
	CollectMznPaths bool
	// OnlyToplevelPaths elides call frames from source paths.
	OnlyToplevelPaths bool
	// RandomSeed initializes the environment's PRNG.
	RandomSeed int64
	// OutputMode shapes the output section (text or JSON).
	OutputMode OutputMode
	// EncapsulateJSON wraps the JSON output form under a top-level
	// {"solution": ...} object when true.
	EncapsulateJSON bool
}

// DefaultFlatteningOptions returns the options the CLI applies when no
// flags override them.
func DefaultFlatteningOptions() FlatteningOptions {
	return FlatteningOptions{
		EnableHalfReification: true,
		OutputMode:            OutputModeText,
	}
}
