// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"strconv"
	"strings"
)

// trimParens removes parentheses enclosing the whole of s.
func trimParens(s string) string {
	for {
		s = strings.TrimSpace(s)
		if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
			return s
		}
		depth := 0
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 && i != len(s)-1 {
					return s
				}
			}
		}
		s = s[1 : len(s)-1]
	}
}

func splitSign(s string) (neg bool, rest string) {
	s = trimParens(s)
	switch {
	case strings.HasPrefix(s, "-"):
		return true, trimParens(s[1:])
	case strings.HasPrefix(s, "+"):
		return false, trimParens(s[1:])
	}
	return false, s
}

// parseIntLiteral parses a C integer constant such as 0x1004, (-1) or
// 10UL.
func parseIntLiteral(s string) (int64, bool) {
	neg, s := splitSign(s)
	s = strings.TrimRight(s, "uUlL")
	if s == "" || !isDigit(s[0]) || strings.ContainsAny(s, "_.") {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' && isDigit(s[1]) {
		// C octal
		s = "0o" + s[1:]
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false
	}
	v := int64(u)
	if neg {
		v = -v
	}
	return v, true
}

// parseFloatLiteral parses a decimal C floating constant such as 1.0f or
// (-100.0). It reports whether the literal was single precision.
func parseFloatLiteral(s string) (v float64, single, ok bool) {
	neg, s := splitSign(s)
	if s == "" || isHexLiteral(s) || !strings.ContainsAny(s, ".eE") {
		return 0, false, false
	}
	switch s[len(s)-1] {
	case 'f', 'F':
		single = true
		s = s[:len(s)-1]
	case 'l', 'L':
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, false
	}
	if neg {
		v = -v
	}
	return v, single, true
}

// parseStringLiteral parses one or more adjacent C string literals.
func parseStringLiteral(s string) (string, bool) {
	toks := lex(s)
	if len(toks) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, t := range toks {
		if t.kind != tokString {
			return "", false
		}
		v, err := strconv.Unquote(t.text)
		if err != nil {
			return "", false
		}
		b.WriteString(v)
	}
	return b.String(), true
}
