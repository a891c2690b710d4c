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
package source

import "fmt"

// Kind distinguishes the error classes raised throughout the pipeline.
// They share one struct tagged by Kind so the environment can dispatch
// recovery policy uniformly (a boolean context turns UndefinedResult
// into false, a non-boolean context poisons definedness, everything
// else propagates).
type Kind uint8

const (
	// KindEval is a static-semantics violation encountered during
	// evaluation. Should never happen after type-checking; treated as an
	// internal error if it reaches the top level.
	KindEval Kind = iota
	// KindUndefined is well-defined runtime undefinedness (division by
	// zero, out-of-domain assignment, out-of-bounds index, deopt, a
	// failed constraint-in-let).
	KindUndefined
	// KindType is a structural mismatch (e.g. a record-merge field
	// collision). Fatal for the current compilation unit.
	KindType
	// KindArithmetic is an arithmetic result the evaluator cannot
	// represent (e.g. a negative exponent on a non-zero integer base);
	// it is reported under its own kind, not converted to KindEval.
	KindArithmetic
	// KindFlattening is a rewriting failure (missing reified predicate,
	// multiple solve items, etc). Fatal.
	KindFlattening
	// KindModelInconsistent signals fail(): caught at the top of
	// flattening so the post-fail skeleton can still be produced.
	KindModelInconsistent
	// KindJSON is a lexical or structural error in JSON input.
	KindJSON
	// KindCancellation is an externally requested stop.
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindEval:
		return "EvalError"
	case KindUndefined:
		return "UndefinedResult"
	case KindType:
		return "TypeError"
	case KindArithmetic:
		return "ArithmeticError"
	case KindFlattening:
		return "FlatteningError"
	case KindModelInconsistent:
		return "ModelInconsistent"
	case KindJSON:
		return "JSONError"
	case KindCancellation:
		return "CancellationError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type raised throughout the pipeline. It
// carries a Span so diagnostics can be rendered with file:line:column,
// and an optional call-stack snapshot captured at the point of failure.
type Error struct {
	ErrKind Kind
	Span    Span
	Message string
	Stack   []Frame
}

// NewError constructs an Error of the given kind at the given span.
func NewError(kind Kind, span Span, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	return &Error{ErrKind: kind, Span: span, Message: msg}
}

// WithStack attaches a call-stack snapshot to this error, returning the
// same error for chaining.
func (e *Error) WithStack(frames []Frame) *Error {
	e.Stack = frames
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span.String(), e.ErrKind.String(), e.Message)
}

// IsUndefined reports whether err is itself an *Error of kind
// UndefinedResult (a wrapped error is not unwrapped), the only error
// class recovered locally rather than propagated to the driver.
func IsUndefined(err error) bool {
	var serr *Error
	if e, ok := err.(*Error); ok {
		serr = e
	}

	return serr != nil && serr.ErrKind == KindUndefined
}

// IsModelInconsistent reports whether err signals a fail().
func IsModelInconsistent(err error) bool {
	var serr *Error
	if e, ok := err.(*Error); ok {
		serr = e
	}

	return serr != nil && serr.ErrKind == KindModelInconsistent
}
