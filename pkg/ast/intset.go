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
package ast

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// ExtInt is an extended integer: a finite big.Int, or +/-infinity. It is
// the element type of an IntSetVal's range endpoints.
type ExtInt struct {
	neginf, posinf bool
	val            big.Int
}

// NegInfExtInt is the -infinity extended integer.
var NegInfExtInt = ExtInt{neginf: true}

// PosInfExtInt is the +infinity extended integer.
var PosInfExtInt = ExtInt{posinf: true}

// FiniteExtInt wraps a finite big.Int value.
func FiniteExtInt(v big.Int) ExtInt { return ExtInt{val: v} }

// IsFinite reports whether this value is neither infinity.
func (e ExtInt) IsFinite() bool { return !e.neginf && !e.posinf }

// Finite returns the underlying big.Int; panics if infinite.
func (e ExtInt) Finite() big.Int {
	if !e.IsFinite() {
		panic("Finite() of infinite ExtInt")
	}

	return e.val
}

// Cmp orders -inf < finite < +inf, finite values by big.Int.Cmp.
func (e ExtInt) Cmp(o ExtInt) int {
	switch {
	case e.neginf && o.neginf, e.posinf && o.posinf:
		return 0
	case e.neginf, o.posinf:
		return -1
	case e.posinf, o.neginf:
		return 1
	default:
		return e.val.Cmp(&o.val)
	}
}

func (e ExtInt) String() string {
	switch {
	case e.neginf:
		return "-infinity"
	case e.posinf:
		return "infinity"
	default:
		return e.val.String()
	}
}

// extRange is one inclusive, finite-or-infinite range [Lo,Hi].
type extRange struct {
	Lo, Hi ExtInt
}

// IntSetVal is the runtime value of a par set-of-int expression: an
// ordered list of pairwise-disjoint, non-adjacent ranges.
// The zero value is the empty set.
type IntSetVal struct {
	ranges []extRange
}

// EmptyIntSetVal is the empty integer set.
var EmptyIntSetVal = IntSetVal{}

// NewIntSetValFromRanges builds an IntSetVal from the given ranges,
// normalising them into canonical (sorted, merged, disjoint) form.
func NewIntSetValFromRanges(ranges []IntRange) IntSetVal {
	ext := make([]extRange, len(ranges))
	for i, r := range ranges {
		ext[i] = extRange{Lo: FiniteExtInt(r.Lo), Hi: FiniteExtInt(r.Hi)}
	}

	return IntSetVal{ranges: normalise(ext)}
}

// IsEmpty reports whether this set has no members.
func (s IntSetVal) IsEmpty() bool { return len(s.ranges) == 0 }

// Ranges returns the canonical disjoint ranges of this set, in
// increasing order. The returned slice must not be mutated.
func (s IntSetVal) Ranges() []IntRange {
	out := make([]IntRange, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = IntRange{Lo: r.Lo.Finite(), Hi: r.Hi.Finite()}
	}

	return out
}

// densePresenceCap bounds the span a presence mask is built for: a set
// whose finite extent exceeds this many positions keeps the range-walk
// membership test, since no reasonably-sized bitset exists for it.
const densePresenceCap = 1 << 16

// Contains reports whether v is a member of this set. A set fragmented
// into enough disjoint ranges to make a linear walk worth avoiding, and
// small enough in overall span, is tested against a dense presence
// bitset instead.
func (s IntSetVal) Contains(v big.Int) bool {
	if len(s.ranges) > 4 {
		if mask, base, ok := s.presenceMask(); ok {
			off := new(big.Int).Sub(&v, &base)
			if !off.IsInt64() {
				return false
			}

			idx := off.Int64()

			return idx >= 0 && uint(idx) < mask.Len() && mask.Test(uint(idx))
		}
	}

	ev := FiniteExtInt(v)
	for _, r := range s.ranges {
		if r.Lo.Cmp(ev) <= 0 && ev.Cmp(r.Hi) <= 0 {
			return true
		}
	}

	return false
}

// presenceMask builds a dense bitset covering every position between
// this set's overall lower and upper bound, with one bit set per member
// position; ok is false when either bound is infinite or the span is
// too wide to justify materialising.
func (s IntSetVal) presenceMask() (mask *bitset.BitSet, base big.Int, ok bool) {
	if len(s.ranges) == 0 || !s.ranges[0].Lo.IsFinite() || !s.ranges[len(s.ranges)-1].Hi.IsFinite() {
		return nil, big.Int{}, false
	}

	lo := s.ranges[0].Lo.Finite()
	hi := s.ranges[len(s.ranges)-1].Hi.Finite()

	span := new(big.Int).Sub(&hi, &lo)
	if !span.IsInt64() || span.Sign() < 0 || span.Int64() >= densePresenceCap {
		return nil, big.Int{}, false
	}

	mask = bitset.New(uint(span.Int64()) + 1)

	for _, r := range s.ranges {
		rLo, rHi := r.Lo.Finite(), r.Hi.Finite()
		start := new(big.Int).Sub(&rLo, &lo).Int64()
		end := new(big.Int).Sub(&rHi, &lo).Int64()

		for i := start; i <= end; i++ {
			mask.Set(uint(i))
		}
	}

	return mask, lo, true
}

// Card returns the finite cardinality of this set, or -1 if any range is
// infinite.
func (s IntSetVal) Card() int64 {
	var total int64

	for _, r := range s.ranges {
		if !r.Lo.IsFinite() || !r.Hi.IsFinite() {
			return -1
		}

		lo, hi := r.Lo.Finite(), r.Hi.Finite()
		diff := new(big.Int).Sub(&hi, &lo)
		total += diff.Int64() + 1
	}

	return total
}

// rangeIter is a cursor over one sorted range list, used to implement
// the set-algebra operations below without materialising an
// element-at-a-time enumeration.
type rangeIter struct {
	ranges []extRange
	idx    int
}

func newRangeIter(ranges []extRange) *rangeIter { return &rangeIter{ranges: ranges} }

func (it *rangeIter) peek() (extRange, bool) {
	if it.idx >= len(it.ranges) {
		return extRange{}, false
	}

	return it.ranges[it.idx], true
}

func (it *rangeIter) advance() { it.idx++ }

// Union computes the union of s and o: concatenate both range lists and
// normalise the result, merging overlapping/adjacent intervals.
func (s IntSetVal) Union(o IntSetVal) IntSetVal {
	merged := append(append([]extRange(nil), s.ranges...), o.ranges...)
	return IntSetVal{ranges: normalise(merged)}
}

// Intersect computes the lazy intersection of s and o.
func (s IntSetVal) Intersect(o IntSetVal) IntSetVal {
	a, b := newRangeIter(s.ranges), newRangeIter(o.ranges)

	var out []extRange

	for {
		ra, ok1 := a.peek()
		rb, ok2 := b.peek()

		if !ok1 || !ok2 {
			break
		}

		lo := extMax(ra.Lo, rb.Lo)
		hi := extMin(ra.Hi, rb.Hi)

		if lo.Cmp(hi) <= 0 {
			out = append(out, extRange{Lo: lo, Hi: hi})
		}

		if ra.Hi.Cmp(rb.Hi) <= 0 {
			a.advance()
		} else {
			b.advance()
		}
	}

	return IntSetVal{ranges: out}
}

// Diff computes the lazy asymmetric difference s \ o.
func (s IntSetVal) Diff(o IntSetVal) IntSetVal {
	var out []extRange

	for _, r := range s.ranges {
		cur := r
		for _, h := range o.ranges {
			if h.Hi.Cmp(cur.Lo) < 0 || h.Lo.Cmp(cur.Hi) > 0 {
				continue // no overlap
			}

			if h.Lo.Cmp(cur.Lo) > 0 {
				out = append(out, extRange{Lo: cur.Lo, Hi: extPred(h.Lo)})
			}

			if h.Hi.Cmp(cur.Hi) >= 0 {
				cur.Lo = extSucc(cur.Hi) // exhausted
				break
			}

			cur.Lo = extSucc(h.Hi)
		}

		if cur.Lo.Cmp(cur.Hi) <= 0 {
			out = append(out, cur)
		}
	}

	return IntSetVal{ranges: normalise(out)}
}

// SymDiff computes the lazy symmetric difference of s and o.
func (s IntSetVal) SymDiff(o IntSetVal) IntSetVal {
	return s.Diff(o).Union(o.Diff(s))
}

// SubsetOf reports whether every member of s is a member of o.
func (s IntSetVal) SubsetOf(o IntSetVal) bool {
	return s.Diff(o).IsEmpty()
}

// Equal reports whether s and o contain exactly the same members.
func (s IntSetVal) Equal(o IntSetVal) bool {
	return s.SubsetOf(o) && o.SubsetOf(s)
}

func (s IntSetVal) String() string {
	if s.IsEmpty() {
		return "{}"
	}

	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = fmt.Sprintf("%s..%s", r.Lo.String(), r.Hi.String())
	}

	return strings.Join(parts, " union ")
}

func extMax(a, b ExtInt) ExtInt {
	if a.Cmp(b) >= 0 {
		return a
	}

	return b
}

func extMin(a, b ExtInt) ExtInt {
	if a.Cmp(b) <= 0 {
		return a
	}

	return b
}

func extPred(e ExtInt) ExtInt {
	if !e.IsFinite() {
		return e
	}

	v := e.Finite()
	return FiniteExtInt(*new(big.Int).Sub(&v, big.NewInt(1)))
}

func extSucc(e ExtInt) ExtInt {
	if !e.IsFinite() {
		return e
	}

	v := e.Finite()
	return FiniteExtInt(*new(big.Int).Add(&v, big.NewInt(1)))
}

// normalise sorts ranges by lower bound and merges overlapping/adjacent
// ones into the canonical disjoint form every IntSetVal maintains.
func normalise(ranges []extRange) []extRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := append([]extRange(nil), ranges...)
	insertionSortRanges(sorted)

	out := sorted[:1]

	for _, r := range sorted[1:] {
		last := &out[len(out)-1]

		if r.Lo.Cmp(extSucc(last.Hi)) <= 0 {
			if r.Hi.Cmp(last.Hi) > 0 {
				last.Hi = r.Hi
			}

			continue
		}

		out = append(out, r)
	}

	return out
}

func insertionSortRanges(rs []extRange) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].Lo.Cmp(rs[j-1].Lo) < 0; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

// FloatSetVal is the runtime value of a par set-of-float expression.
// Float sets in this language are always finite unions of closed
// intervals (no singleton-enumeration form), so the same disjoint-range
// representation applies with float64 endpoints.
type FloatSetVal struct {
	ranges []FloatRange
}

// FloatRange is an inclusive floating point range.
type FloatRange struct {
	Lo, Hi float64
}

// NewFloatSetValFromRanges builds a FloatSetVal, normalising overlapping
// ranges.
func NewFloatSetValFromRanges(ranges []FloatRange) FloatSetVal {
	sorted := append([]FloatRange(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Lo < sorted[j-1].Lo; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var out []FloatRange

	for _, r := range sorted {
		if len(out) > 0 && r.Lo <= out[len(out)-1].Hi {
			if r.Hi > out[len(out)-1].Hi {
				out[len(out)-1].Hi = r.Hi
			}

			continue
		}

		out = append(out, r)
	}

	return FloatSetVal{ranges: out}
}

// IsEmpty reports whether this set has no members.
func (s FloatSetVal) IsEmpty() bool { return len(s.ranges) == 0 }

// Ranges returns the canonical disjoint ranges of this set.
func (s FloatSetVal) Ranges() []FloatRange { return append([]FloatRange(nil), s.ranges...) }

// Contains reports whether v lies within any range of this set.
func (s FloatSetVal) Contains(v float64) bool {
	for _, r := range s.ranges {
		if v >= r.Lo && v <= r.Hi {
			return true
		}
	}

	return false
}
