// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import "strings"

type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokKind
	text string
}

func (t token) is(text string) bool { return t.kind == tokPunct && t.text == text }

var puncts3 = []string{"..."}

var puncts2 = []string{"&&", "||", "==", "!=", "<=", ">=", "<<", ">>", "->", "##"}

// lex splits a macro body or a type spelling into C tokens.
func lex(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) {
				d := src[j]
				if isIdentChar(d) || d == '.' {
					j++
					continue
				}
				// exponent sign: 1e-5, 0x1p+3
				if (d == '+' || d == '-') && strings.ContainsRune("eEpP", rune(src[j-1])) && !isHexLiteral(src[i:j]) {
					j++
					continue
				}
				break
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(src) {
				j++
			} else {
				j = len(src)
			}
			kind := tokString
			if c == '\'' {
				kind = tokChar
			}
			toks = append(toks, token{kind, src[i:j]})
			i = j
		default:
			n := 1
			for _, p := range puncts3 {
				if strings.HasPrefix(src[i:], p) {
					n = 3
				}
			}
			if n == 1 {
				for _, p := range puncts2 {
					if strings.HasPrefix(src[i:], p) {
						n = 2
						break
					}
				}
			}
			toks = append(toks, token{tokPunct, src[i : i+n]})
			i += n
		}
	}
	return toks
}

// isHexLiteral reports whether s starts a hexadecimal integer, where e
// and E are digits rather than exponents.
func isHexLiteral(s string) bool {
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && !strings.ContainsAny(s, "pP")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
