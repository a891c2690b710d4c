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
package types_test

import (
	"testing"

	"github.com/mzflatten/mzflatten/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSubtypeOfParVar(t *testing.T) {
	par := types.Scalar(types.IntKind)
	vr := par.AsVar()

	assert.True(t, par.SubtypeOf(vr))
	assert.False(t, vr.SubtypeOf(par))
}

func TestSubtypeOfOptional(t *testing.T) {
	base := types.Scalar(types.IntKind)
	opt := base.AsOptional()

	assert.True(t, base.SubtypeOf(opt))
	assert.False(t, opt.SubtypeOf(base))
}

func TestSubtypeOfBot(t *testing.T) {
	bot := types.Type{Base: types.Bot}
	assert.True(t, bot.SubtypeOf(types.Scalar(types.FloatKind).AsVar()))
}

func TestLeastUpperBoundMismatchedArityIsBot(t *testing.T) {
	a := types.Scalar(types.IntKind)
	b := types.Scalar(types.IntKind).AsArray(1)

	lub := types.LeastUpperBound(a, b)
	assert.Equal(t, types.Bot, lub.Base)
}

func TestLeastUpperBoundJoinsVariabilityAndOptionality(t *testing.T) {
	a := types.Scalar(types.IntKind)
	b := types.Scalar(types.IntKind).AsVar().AsOptional()

	lub := types.LeastUpperBound(a, b)
	assert.Equal(t, types.Var, lub.Variability)
	assert.True(t, lub.IsOptional)
}
