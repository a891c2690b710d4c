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
package jsonload

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mzflatten/mzflatten/pkg/source"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokColon
	tokString
	tokInt
	tokFloat
	tokTrue
	tokFalse
	tokNull
)

type token struct {
	kind  tokenKind
	str   string
	ival  big.Int
	fval  float64
	span  source.Span
}

// lexer is a hand-rolled UTF-8 byte scanner producing the token set named
// by the data loader: braces, brackets, comma, colon, string, int, float,
// true, false and null.
type lexer struct {
	data     []byte
	pos      int
	filename string
	line     int
	col      int
}

func newLexer(data []byte, filename string) *lexer {
	return &lexer{data: data, filename: filename, line: 1, col: 1}
}

func (lx *lexer) spanHere() source.Span {
	return source.Span{Filename: lx.filename, Line: lx.line, Column: lx.col}
}

func (lx *lexer) peekByte() (byte, bool) {
	if lx.pos >= len(lx.data) {
		return 0, false
	}

	return lx.data[lx.pos], true
}

func (lx *lexer) advance() {
	if lx.pos >= len(lx.data) {
		return
	}

	if lx.data[lx.pos] == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}

	lx.pos++
}

func (lx *lexer) skipSpace() {
	for {
		b, ok := lx.peekByte()
		if !ok {
			return
		}

		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			lx.advance()
			continue
		}

		return
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()

	span := lx.spanHere()

	b, ok := lx.peekByte()
	if !ok {
		return token{kind: tokEOF, span: span}, nil
	}

	switch b {
	case '{':
		lx.advance()
		return token{kind: tokLBrace, span: span}, nil
	case '}':
		lx.advance()
		return token{kind: tokRBrace, span: span}, nil
	case '[':
		lx.advance()
		return token{kind: tokLBracket, span: span}, nil
	case ']':
		lx.advance()
		return token{kind: tokRBracket, span: span}, nil
	case ',':
		lx.advance()
		return token{kind: tokComma, span: span}, nil
	case ':':
		lx.advance()
		return token{kind: tokColon, span: span}, nil
	case '"':
		return lx.lexString(span)
	case 't':
		return lx.lexKeyword("true", tokTrue, span)
	case 'f':
		return lx.lexKeyword("false", tokFalse, span)
	case 'n':
		return lx.lexKeyword("null", tokNull, span)
	default:
		if b == '-' || (b >= '0' && b <= '9') {
			return lx.lexNumber(span)
		}

		return token{}, source.NewError(source.KindJSON, span, "unexpected character %q", rune(b))
	}
}

func (lx *lexer) lexKeyword(word string, kind tokenKind, span source.Span) (token, error) {
	if lx.pos+len(word) > len(lx.data) || string(lx.data[lx.pos:lx.pos+len(word)]) != word {
		return token{}, source.NewError(source.KindJSON, span, "invalid literal near %q", lx.snippet())
	}

	for range word {
		lx.advance()
	}

	return token{kind: kind, span: span}, nil
}

func (lx *lexer) snippet() string {
	end := lx.pos + 16
	if end > len(lx.data) {
		end = len(lx.data)
	}

	return string(lx.data[lx.pos:end])
}

// lexString consumes a JSON string literal, decoding \n, \t, \" and \\;
// any other escape is kept verbatim prefixed by its backslash.
func (lx *lexer) lexString(span source.Span) (token, error) {
	lx.advance() // opening quote

	var b strings.Builder

	for {
		c, ok := lx.peekByte()
		if !ok {
			return token{}, source.NewError(source.KindJSON, span, "unterminated string literal")
		}

		if c == '"' {
			lx.advance()
			return token{kind: tokString, str: b.String(), span: span}, nil
		}

		if c == '\\' {
			lx.advance()

			e, ok := lx.peekByte()
			if !ok {
				return token{}, source.NewError(source.KindJSON, span, "unterminated escape sequence")
			}

			switch e {
			case 'n':
				b.WriteByte('\n')
				lx.advance()
			case 't':
				b.WriteByte('\t')
				lx.advance()
			case '"':
				b.WriteByte('"')
				lx.advance()
			case '\\':
				b.WriteByte('\\')
				lx.advance()
			default:
				b.WriteByte('\\')
				b.WriteByte(e)
				lx.advance()
			}

			continue
		}

		r, size := utf8.DecodeRune(lx.data[lx.pos:])
		b.WriteRune(r)

		for i := 0; i < size; i++ {
			lx.advance()
		}
	}
}

func (lx *lexer) lexNumber(span source.Span) (token, error) {
	start := lx.pos
	isFloat := false

	if b, ok := lx.peekByte(); ok && b == '-' {
		lx.advance()
	}

	for {
		b, ok := lx.peekByte()
		if !ok || b < '0' || b > '9' {
			break
		}

		lx.advance()
	}

	if b, ok := lx.peekByte(); ok && b == '.' {
		isFloat = true
		lx.advance()

		for {
			b, ok := lx.peekByte()
			if !ok || b < '0' || b > '9' {
				break
			}

			lx.advance()
		}
	}

	if b, ok := lx.peekByte(); ok && (b == 'e' || b == 'E') {
		isFloat = true
		lx.advance()

		if b, ok := lx.peekByte(); ok && (b == '+' || b == '-') {
			lx.advance()
		}

		for {
			b, ok := lx.peekByte()
			if !ok || b < '0' || b > '9' {
				break
			}

			lx.advance()
		}
	}

	text := string(lx.data[start:lx.pos])

	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, source.NewError(source.KindJSON, span, "invalid float literal %q", text)
		}

		return token{kind: tokFloat, fval: f, span: span}, nil
	}

	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return token{}, source.NewError(source.KindJSON, span, "invalid integer literal %q", text)
	}

	return token{kind: tokInt, ival: *v, span: span}, nil
}
