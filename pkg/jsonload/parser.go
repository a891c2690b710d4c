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

// Package jsonload implements the push-down, type-directed JSON data
// loader: a recursive-descent parser that reads a JSON object and, for
// each key matching a known top-level declaration, coerces the JSON
// value through that declaration's TypeInst into an AssignI.
package jsonload

import (
	"math/big"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/mzflatten/mzflatten/pkg/types"
)

// Interner is the subset of a types.Interner the loader needs to resolve
// tuple/record field layouts by TypeID.
type Interner interface {
	Tuple(id uint32) (types.TupleEntry, bool)
	Record(id uint32) (types.RecordEntry, bool)
}

// EnumTable gives the ordered member names of each enum declared in the
// model being loaded against, keyed by enum name. Nothing in pkg/types or
// pkg/ast records this today (enum-typed declarations carry only a TIId
// naming the enum, never its member list), since populating it is
// normally the external resolver's job; the loader needs the member list
// itself, so the caller supplies it directly.
type EnumTable map[string][]string

// parser walks a token stream producing ast.Expr nodes directed by the
// types.Type/ast.TypeInst of the position being parsed.
type parser struct {
	lx    *lexer
	tok   token
	enums EnumTable
}

func newParser(data []byte, filename string, enums EnumTable) (*parser, error) {
	lx := newLexer(data, filename)

	p := &parser{lx: lx, enums: enums}
	if err := p.advance(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}

	p.tok = t

	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, source.NewError(source.KindJSON, p.tok.span, "expected %s", what)
	}

	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}

	return t, nil
}

// parseValue parses one JSON value coerced against ty/ti, the expected
// type and type annotation of the target position.
func (p *parser) parseValue(in Interner, ty types.Type, ti *ast.TypeInst) (ast.Expr, error) {
	span := p.tok.span

	if ty.IsSet {
		return p.parseSet(in, ty, span)
	}

	if ty.Dim > 0 {
		return p.parseArray(in, ty, ti, span)
	}

	switch ty.Base {
	case types.TupleKind:
		return p.parseTuple(in, ty, span)
	case types.RecordKind:
		return p.parseRecord(in, ty, span)
	case types.IntKind:
		if enumName, ok := enumNameOf(ti); ok {
			return p.parseEnumPosition(enumName, span)
		}

		return p.parseInt(span)
	case types.FloatKind:
		return p.parseFloat(span)
	case types.BoolKind:
		return p.parseBool(span)
	case types.StringKind:
		return p.parseString(span)
	default:
		return nil, source.NewError(source.KindJSON, span, "no JSON encoding defined for type %s", ty.String())
	}
}

// enumNameOf reports whether ti declares an enum-named scalar domain
// (`var Colors: x` or a plain `Colors: x` parameter), and if so its name.
func enumNameOf(ti *ast.TypeInst) (string, bool) {
	if ti == nil {
		return "", false
	}

	if id, ok := ti.Domain.(*ast.TIId); ok {
		return id.Name, true
	}

	return "", false
}

func (p *parser) parseInt(span source.Span) (ast.Expr, error) {
	switch p.tok.kind {
	case tokInt:
		v := p.tok.ival
		if err := p.advance(); err != nil {
			return nil, err
		}

		return ast.NewIntLit(span, v), nil
	case tokNull:
		if err := p.advance(); err != nil {
			return nil, err
		}

		return nil, nil
	default:
		return nil, source.NewError(source.KindJSON, span, "expected an integer literal")
	}
}

func (p *parser) parseFloat(span source.Span) (ast.Expr, error) {
	switch p.tok.kind {
	case tokFloat:
		v := p.tok.fval
		if err := p.advance(); err != nil {
			return nil, err
		}

		return &ast.FloatLit{Base: ast.NewBase(span), Val: v}, nil
	case tokInt:
		v := p.tok.ival
		if err := p.advance(); err != nil {
			return nil, err
		}

		f := new(big.Float).SetInt(&v)
		fv, _ := f.Float64()

		return &ast.FloatLit{Base: ast.NewBase(span), Val: fv}, nil
	default:
		return nil, source.NewError(source.KindJSON, span, "expected a float literal")
	}
}

func (p *parser) parseBool(span source.Span) (ast.Expr, error) {
	switch p.tok.kind {
	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}

		return &ast.BoolLit{Base: ast.NewBase(span), Val: true}, nil
	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}

		return &ast.BoolLit{Base: ast.NewBase(span), Val: false}, nil
	default:
		return nil, source.NewError(source.KindJSON, span, "expected a boolean literal")
	}
}

func (p *parser) parseString(span source.Span) (ast.Expr, error) {
	t, err := p.expect(tokString, "a string literal")
	if err != nil {
		return nil, err
	}

	return &ast.StringLit{Base: ast.NewBase(span), Val: t.str}, nil
}

// parseEnumPosition handles a position whose TypeInst.Domain names an
// enum: a JSON string is the member identifier directly; a JSON object
// recognises the `e`/`c`/`i` keys.
func (p *parser) parseEnumPosition(enumName string, span source.Span) (ast.Expr, error) {
	switch p.tok.kind {
	case tokString:
		name := p.tok.str
		if err := p.advance(); err != nil {
			return nil, err
		}

		return &ast.Id{Base: ast.NewBase(span), Name: name, ValType: types.Scalar(types.IntKind)}, nil
	case tokLBrace:
		return p.parseEnumObject(enumName, span)
	default:
		return nil, source.NewError(source.KindJSON, span, "expected an enum member name or enum object at %s-typed position", enumName)
	}
}

// parseEnumObject parses the `{"e": name}`, `{"c": name, "e": arg}` and
// `{"i": n}` encodings of an enum value.
func (p *parser) parseEnumObject(enumName string, span source.Span) (ast.Expr, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	var ctor string

	var haveCtor bool

	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "an object key")
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}

		switch keyTok.str {
		case "i":
			n, err := p.expect(tokInt, "an integer ordinal")
			if err != nil {
				return nil, err
			}

			if err := p.skipComma(); err != nil {
				return nil, err
			}

			return &ast.Call{
				Base: ast.NewBase(span),
				Name: "to_enum",
				Args: []ast.Expr{
					&ast.TIId{Base: ast.NewBase(span), Name: enumName},
					ast.NewIntLit(n.span, n.ival),
				},
				ValType: types.Scalar(types.IntKind),
			}, p.finishObject()
		case "c":
			nameTok, err := p.expect(tokString, "a constructor name")
			if err != nil {
				return nil, err
			}

			ctor = nameTok.str
			haveCtor = true

			if err := p.skipComma(); err != nil {
				return nil, err
			}
		case "e":
			if haveCtor {
				arg, err := p.parseConstructorArg(span)
				if err != nil {
					return nil, err
				}

				if err := p.skipComma(); err != nil {
					return nil, err
				}

				if err := p.finishObject(); err != nil {
					return nil, err
				}

				return &ast.Call{Base: ast.NewBase(span), Name: ctor, Args: []ast.Expr{arg}, ValType: types.Scalar(types.IntKind)}, nil
			}

			nameTok, err := p.expect(tokString, "an enum member name")
			if err != nil {
				return nil, err
			}

			if err := p.skipComma(); err != nil {
				return nil, err
			}

			if err := p.finishObject(); err != nil {
				return nil, err
			}

			return &ast.Id{Base: ast.NewBase(span), Name: nameTok.str, ValType: types.Scalar(types.IntKind)}, nil
		default:
			return nil, source.NewError(source.KindJSON, keyTok.span, "unrecognized enum object key %q", keyTok.str)
		}
	}

	return nil, source.NewError(source.KindJSON, span, "enum object missing an %q key", "e")
}

// parseConstructorArg parses the single argument to an enum constructor,
// either an int ordinal or a string; arrays and objects are rejected.
func (p *parser) parseConstructorArg(span source.Span) (ast.Expr, error) {
	switch p.tok.kind {
	case tokInt:
		v := p.tok.ival
		if err := p.advance(); err != nil {
			return nil, err
		}

		return ast.NewIntLit(span, v), nil
	case tokString:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}

		return &ast.StringLit{Base: ast.NewBase(span), Val: t.str}, nil
	default:
		return nil, source.NewError(source.KindJSON, span, "unsupported enum constructor argument")
	}
}

func (p *parser) skipComma() error {
	if p.tok.kind == tokComma {
		return p.advance()
	}

	return nil
}

// finishObject consumes any remaining key:value pairs up to the closing
// brace, used once an `e`/`i` key has already produced the result value.
func (p *parser) finishObject() error {
	for p.tok.kind != tokRBrace {
		if _, err := p.expect(tokString, "an object key"); err != nil {
			return err
		}

		if _, err := p.expect(tokColon, ":"); err != nil {
			return err
		}

		if err := p.skipAnyValue(); err != nil {
			return err
		}

		if err := p.skipComma(); err != nil {
			return err
		}
	}

	_, err := p.expect(tokRBrace, "}")

	return err
}

// skipAnyValue consumes one untyped JSON value, used to skip over object
// members the loader does not need (extra keys following `i`/`e`).
func (p *parser) skipAnyValue() error {
	switch p.tok.kind {
	case tokLBrace:
		if err := p.advance(); err != nil {
			return err
		}

		for p.tok.kind != tokRBrace {
			if _, err := p.expect(tokString, "an object key"); err != nil {
				return err
			}

			if _, err := p.expect(tokColon, ":"); err != nil {
				return err
			}

			if err := p.skipAnyValue(); err != nil {
				return err
			}

			if err := p.skipComma(); err != nil {
				return err
			}
		}

		return p.advance()
	case tokLBracket:
		if err := p.advance(); err != nil {
			return err
		}

		for p.tok.kind != tokRBracket {
			if err := p.skipAnyValue(); err != nil {
				return err
			}

			if err := p.skipComma(); err != nil {
				return err
			}
		}

		return p.advance()
	default:
		return p.advance()
	}
}

// parseSet parses a set-typed position: a JSON object with key "set"
// whose value is an array of ints and/or [min,max] range pairs, unioned
// together.
func (p *parser) parseSet(in Interner, ty types.Type, span source.Span) (ast.Expr, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	key, err := p.expect(tokString, `"set"`)
	if err != nil {
		return nil, err
	}

	if key.str != "set" {
		return nil, source.NewError(source.KindJSON, key.span, `set value must have a single "set" key, found %q`, key.str)
	}

	if _, err := p.expect(tokColon, ":"); err != nil {
		return nil, err
	}

	if _, err := p.expect(tokLBracket, "["); err != nil {
		return nil, err
	}

	elem := ty
	elem.IsSet = false

	var ranges []ast.IntRange

	for p.tok.kind != tokRBracket {
		rng, err := p.parseSetEntry()
		if err != nil {
			return nil, err
		}

		ranges = append(ranges, rng)

		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokRBracket, "]"); err != nil {
		return nil, err
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}

	return &ast.SetLit{Base: ast.NewBase(span), ElemType: elem, Ranges: normalizeRanges(ranges)}, nil
}

// parseSetEntry parses one array element of a "set" value: either a bare
// int (a singleton range) or a [lo,hi] pair.
func (p *parser) parseSetEntry() (ast.IntRange, error) {
	if p.tok.kind == tokLBracket {
		if err := p.advance(); err != nil {
			return ast.IntRange{}, err
		}

		lo, err := p.expect(tokInt, "an integer")
		if err != nil {
			return ast.IntRange{}, err
		}

		if _, err := p.expect(tokComma, ","); err != nil {
			return ast.IntRange{}, err
		}

		hi, err := p.expect(tokInt, "an integer")
		if err != nil {
			return ast.IntRange{}, err
		}

		if _, err := p.expect(tokRBracket, "]"); err != nil {
			return ast.IntRange{}, err
		}

		return ast.IntRange{Lo: lo.ival, Hi: hi.ival}, nil
	}

	v, err := p.expect(tokInt, "an integer or a [lo,hi] range pair")
	if err != nil {
		return ast.IntRange{}, err
	}

	return ast.IntRange{Lo: v.ival, Hi: v.ival}, nil
}

// normalizeRanges sorts and merges overlapping/adjacent ranges into the
// canonical disjoint form IntSetVal expects.
func normalizeRanges(in []ast.IntRange) []ast.IntRange {
	if len(in) == 0 {
		return nil
	}

	sorted := append([]ast.IntRange(nil), in...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Lo.Cmp(&sorted[j].Lo) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	out := []ast.IntRange{sorted[0]}

	for _, r := range sorted[1:] {
		last := &out[len(out)-1]

		one := big.NewInt(1)

		adjacent := new(big.Int).Add(&last.Hi, one)
		if r.Lo.Cmp(adjacent) <= 0 {
			if r.Hi.Cmp(&last.Hi) > 0 {
				last.Hi = r.Hi
			}

			continue
		}

		out = append(out, r)
	}

	return out
}

// parseTuple parses a JSON array at a tuple-typed position positionally.
func (p *parser) parseTuple(in Interner, ty types.Type, span source.Span) (ast.Expr, error) {
	entry, ok := in.Tuple(ty.TypeID)
	if !ok {
		return nil, source.NewError(source.KindJSON, span, "unregistered tuple type id %d", ty.TypeID)
	}

	if _, err := p.expect(tokLBracket, "["); err != nil {
		return nil, err
	}

	elems := make([]ast.Expr, 0, len(entry.Fields))

	for i := 0; p.tok.kind != tokRBracket; i++ {
		if i >= len(entry.Fields) {
			return nil, source.NewError(source.KindJSON, p.tok.span, "too many elements for tuple of arity %d", len(entry.Fields))
		}

		v, err := p.parseValue(in, entry.Fields[i], nil)
		if err != nil {
			return nil, err
		}

		elems = append(elems, v)

		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokRBracket, "]"); err != nil {
		return nil, err
	}

	if len(elems) != len(entry.Fields) {
		return nil, source.NewError(source.KindJSON, span, "tuple literal has %d elements, expected %d", len(elems), len(entry.Fields))
	}

	return &ast.ArrayLit{Base: ast.NewBase(span), IsTuple: true, TypeID: ty.TypeID, Elems: elems}, nil
}

// parseRecord parses a JSON object at a record-typed position, requiring
// every field name to be present as a key.
func (p *parser) parseRecord(in Interner, ty types.Type, span source.Span) (ast.Expr, error) {
	entry, ok := in.Record(ty.TypeID)
	if !ok {
		return nil, source.NewError(source.KindJSON, span, "unregistered record type id %d", ty.TypeID)
	}

	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	byName := make(map[string]ast.Expr, len(entry.Fields))

	byType := make(map[string]types.Type, len(entry.Fields))
	for _, f := range entry.Fields {
		byType[f.Name] = f.Type
	}

	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "a field name")
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}

		ft, ok := byType[keyTok.str]
		if !ok {
			return nil, source.NewError(source.KindJSON, keyTok.span, "record has no field %q", keyTok.str)
		}

		v, err := p.parseValue(in, ft, nil)
		if err != nil {
			return nil, err
		}

		byName[keyTok.str] = v

		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}

	elems := make([]ast.Expr, len(entry.Fields))

	for i, f := range entry.Fields {
		v, ok := byName[f.Name]
		if !ok {
			return nil, source.NewError(source.KindJSON, span, "record literal missing field %q", f.Name)
		}

		elems[i] = v
	}

	return &ast.ArrayLit{Base: ast.NewBase(span), IsRecord: true, TypeID: ty.TypeID, Elems: elems}, nil
}

// parseArray parses an array-typed position into a single flat ArrayLit,
// the same representation the rest of the pipeline uses for a multi-dim
// array: one Bounds pair per dimension plus a row-major flat Elems list
// (see eval.EvalArrayAccess's flattening arithmetic). A JSON value is
// always written fully bracketed, one nesting level per dimension; when
// a one-dimensional array's declared range names an enum and the JSON
// value is an object rather than an array, the object's keys are matched
// against the enum's member names in their declared order instead.
func (p *parser) parseArray(in Interner, ty types.Type, ti *ast.TypeInst, span source.Span) (ast.Expr, error) {
	if ty.Dim == 1 && ti != nil && len(ti.Ranges) > 0 && p.tok.kind == tokLBrace {
		if enumName, ok := enumRangeName(ti.Ranges[0]); ok {
			return p.parseEnumKeyedArray(in, ty, enumName, span)
		}
	}

	leafTy := ty
	leafTy.Dim = 0

	var leafTI *ast.TypeInst
	if ti != nil {
		leafTI = &ast.TypeInst{Declared: leafTy, Domain: ti.Domain}
	}

	elems, sizes, err := p.parseArrayLevels(in, leafTy, leafTI, int(ty.Dim), span)
	if err != nil {
		return nil, err
	}

	bounds := make([][2]int, len(sizes))
	for i, n := range sizes {
		bounds[i] = [2]int{1, n}
	}

	return &ast.ArrayLit{
		Base:     ast.NewBase(span),
		ElemType: leafTy,
		Bounds:   bounds,
		Elems:    elems,
	}, nil
}

// parseArrayLevels parses depth levels of nested JSON arrays, returning
// the flattened (row-major) leaf elements and the size of each level. A
// ragged array -- sibling sub-arrays of differing size -- is rejected,
// since Bounds requires one uniform extent per dimension.
func (p *parser) parseArrayLevels(in Interner, leafTy types.Type, leafTI *ast.TypeInst, depth int, span source.Span) ([]ast.Expr, []int, error) {
	if _, err := p.expect(tokLBracket, "["); err != nil {
		return nil, nil, err
	}

	var elems []ast.Expr

	var childSizes []int

	count := 0

	for p.tok.kind != tokRBracket {
		if depth <= 1 {
			v, err := p.parseValue(in, leafTy, leafTI)
			if err != nil {
				return nil, nil, err
			}

			elems = append(elems, v)
		} else {
			sub, subSizes, err := p.parseArrayLevels(in, leafTy, leafTI, depth-1, p.tok.span)
			if err != nil {
				return nil, nil, err
			}

			if childSizes == nil {
				childSizes = subSizes
			} else if !equalSizes(childSizes, subSizes) {
				return nil, nil, source.NewError(source.KindJSON, span, "ragged array: sub-arrays of differing size")
			}

			elems = append(elems, sub...)
		}

		count++

		if err := p.skipComma(); err != nil {
			return nil, nil, err
		}
	}

	if _, err := p.expect(tokRBracket, "]"); err != nil {
		return nil, nil, err
	}

	return elems, append([]int{count}, childSizes...), nil
}

func equalSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// enumRangeName reports whether rangeExpr (one entry of a TypeInst's
// Ranges) names an enum index set rather than an integer range.
func enumRangeName(rangeExpr ast.Expr) (string, bool) {
	if id, ok := rangeExpr.(*ast.TIId); ok {
		return id.Name, true
	}

	return "", false
}

// parseEnumKeyedArray handles `array[Enum] of T: x;` given as a JSON
// object mapping member name to value, e.g. {"R":10,"G":20,"B":30} for
// `array[Colors] of int: cost;`. Every member of the enum must be
// present; a repeated key keeps its last value, a key naming no member
// is ignored, and values are placed in the enum's declared order.
func (p *parser) parseEnumKeyedArray(in Interner, ty types.Type, enumName string, span source.Span) (ast.Expr, error) {
	members := p.enumTable()[enumName]
	if len(members) == 0 {
		return nil, source.NewError(source.KindJSON, span, "no member list registered for enum %q", enumName)
	}

	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	elemTy := ty.Element()

	byName := make(map[string]ast.Expr, len(members))

	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "an enum member name")
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}

		v, err := p.parseValue(in, elemTy, nil)
		if err != nil {
			return nil, err
		}

		byName[keyTok.str] = v

		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}

	elems := make([]ast.Expr, len(members))

	for i, m := range members {
		v, ok := byName[m]
		if !ok {
			return nil, source.NewError(source.KindJSON, span, "enum-keyed array missing member %q of %q", m, enumName)
		}

		elems[i] = v
	}

	return &ast.ArrayLit{
		Base:     ast.NewBase(span),
		ElemType: elemTy,
		Bounds:   [][2]int{{1, len(elems)}},
		Elems:    elems,
	}, nil
}

func (p *parser) enumTable() EnumTable {
	return p.enums
}
