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
package ast_test

import (
	"math/big"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(lo, hi int64) ast.IntRange {
	return ast.IntRange{Lo: *big.NewInt(lo), Hi: *big.NewInt(hi)}
}

func TestNewIntSetValMergesOverlappingRanges(t *testing.T) {
	s := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 3), rng(4, 6), rng(10, 12)})
	require.Len(t, s.Ranges(), 2)
	assert.True(t, s.Contains(*big.NewInt(5)))
	assert.False(t, s.Contains(*big.NewInt(7)))
}

func TestIntSetValUnion(t *testing.T) {
	a := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 3)})
	b := ast.NewIntSetValFromRanges([]ast.IntRange{rng(2, 5)})

	u := a.Union(b)
	require.Len(t, u.Ranges(), 1)
	assert.Equal(t, int64(5), u.Card())
}

func TestIntSetValIntersect(t *testing.T) {
	a := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 10)})
	b := ast.NewIntSetValFromRanges([]ast.IntRange{rng(5, 15)})

	i := a.Intersect(b)
	assert.True(t, i.Contains(*big.NewInt(7)))
	assert.False(t, i.Contains(*big.NewInt(4)))
	assert.Equal(t, int64(6), i.Card())
}

func TestIntSetValDiff(t *testing.T) {
	a := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 10)})
	b := ast.NewIntSetValFromRanges([]ast.IntRange{rng(4, 6)})

	d := a.Diff(b)
	assert.False(t, d.Contains(*big.NewInt(5)))
	assert.True(t, d.Contains(*big.NewInt(3)))
	assert.True(t, d.Contains(*big.NewInt(7)))
}

func TestIntSetValSubsetAndEqual(t *testing.T) {
	a := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 3)})
	b := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 5)})

	assert.True(t, a.SubsetOf(b))
	assert.False(t, b.SubsetOf(a))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}

func TestIntSetValSymDiff(t *testing.T) {
	a := ast.NewIntSetValFromRanges([]ast.IntRange{rng(1, 5)})
	b := ast.NewIntSetValFromRanges([]ast.IntRange{rng(4, 8)})

	sd := a.SymDiff(b)
	assert.True(t, sd.Contains(*big.NewInt(2)))
	assert.True(t, sd.Contains(*big.NewInt(6)))
	assert.False(t, sd.Contains(*big.NewInt(5)))
}

func TestEmptyIntSetVal(t *testing.T) {
	assert.True(t, ast.EmptyIntSetVal.IsEmpty())
	assert.Equal(t, int64(0), ast.EmptyIntSetVal.Card())
}

func TestFloatSetValMergesAndContains(t *testing.T) {
	s := ast.NewFloatSetValFromRanges([]ast.FloatRange{{Lo: 0, Hi: 1}, {Lo: 0.5, Hi: 2}})
	require.Len(t, s.Ranges(), 1)
	assert.True(t, s.Contains(1.5))
	assert.False(t, s.Contains(3))
}
