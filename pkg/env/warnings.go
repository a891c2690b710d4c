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
	"fmt"

	"github.com/mzflatten/mzflatten/pkg/source"
	log "github.com/sirupsen/logrus"
)

// warningCap is the bounded buffer size: "a 20-warning
// cap with a terminal 'further warnings suppressed' entry".
const warningCap = 20

// Warning is one recorded compiler warning.
type Warning struct {
	Span    source.Span
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Span.String(), w.Message)
}

// warningBuffer is a ring-style buffer of diagnostics: it accepts
// warnings until the cap is hit, then appends one suppression marker
// and silently drops the rest.
type warningBuffer struct {
	entries    []Warning
	suppressed int
}

func (b *warningBuffer) add(w Warning) {
	if len(b.entries) < warningCap {
		b.entries = append(b.entries, w)
		return
	}

	b.suppressed++
}

// All returns every recorded warning, plus a final suppression notice
// when any warnings were dropped.
func (b *warningBuffer) All() []Warning {
	if b.suppressed == 0 {
		return append([]Warning(nil), b.entries...)
	}

	out := append([]Warning(nil), b.entries...)
	out = append(out, Warning{Message: fmt.Sprintf("further %d warnings suppressed", b.suppressed)})

	return out
}

// Warn records a warning and, when verbose logging is enabled, also
// emits it through logrus at Warn level.
func (e *EnvI) Warn(span source.Span, format string, args ...any) {
	w := Warning{Span: span, Message: fmt.Sprintf(format, args...)}
	e.warnings.add(w)

	if e.Verbose {
		log.WithField("span", span.String()).Warn(w.Message)
	}
}

// Warnings returns every recorded warning (see warningBuffer.All).
func (e *EnvI) Warnings() []Warning {
	return e.warnings.All()
}
