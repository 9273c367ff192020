// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"
)

type constKind int

const (
	intConst constKind = iota
	floatConst
	stringConst
	enumConst
)

type constDecl struct {
	name   string
	kind   constKind
	intVal int64
	// intKind types integer macros; typ types enumerators ("" is untyped).
	intKind IntKind
	typ     string
	single  bool
	float   float64
	str     string
}

type typeDecl struct {
	name string // Go name
	c    string
}

type param struct {
	name string
	typ  string
}

type funcDecl struct {
	name   string // Go name
	c      string
	params []param
	ret    string
}

var cBuiltins = map[string]string{
	"char":               "char",
	"signed char":        "schar",
	"unsigned char":      "uchar",
	"short":              "short",
	"short int":          "short",
	"unsigned short":     "ushort",
	"unsigned short int": "ushort",
	"int":                "int",
	"signed int":         "int",
	"signed":             "int",
	"unsigned":           "uint",
	"unsigned int":       "uint",
	"long":               "long",
	"long int":           "long",
	"unsigned long":      "ulong",
	"unsigned long int":  "ulong",
	"long long":          "longlong",
	"unsigned long long": "ulonglong",
	"float":              "float",
	"double":             "double",
	"_Bool":              "_Bool",
	"size_t":             "size_t",
	"int8_t":             "int8_t",
	"uint8_t":            "uint8_t",
	"int16_t":            "int16_t",
	"uint16_t":           "uint16_t",
	"int32_t":            "int32_t",
	"uint32_t":           "uint32_t",
	"int64_t":            "int64_t",
	"uint64_t":           "uint64_t",
}

// unit accumulates the declarations of every header in one generation
// pass.
type unit struct {
	cb ParseCallbacks

	// cleaned header paths, and the verdict for every file seen
	headers map[string]bool
	files   map[string]bool

	voidTypes map[string]bool
	// C type name to Go alias name.
	typeGo map[string]string
	// integer constants by C name, for aliases such as
	// #define AL_ILLEGAL_ENUM AL_INVALID_ENUM
	ints map[string]int64

	consts []*constDecl
	types  []*typeDecl
	funcs  []*funcDecl
	// Go identifiers taken so far.
	goNames map[string]bool
}

func newUnit(cb ParseCallbacks, headers []string) *unit {
	u := &unit{
		cb:        cb,
		headers:   map[string]bool{},
		files:     map[string]bool{},
		voidTypes: map[string]bool{},
		typeGo:    map[string]string{},
		ints:      map[string]int64{},
		goNames:   map[string]bool{"C": true, "unsafe": true},
	}
	for _, h := range headers {
		u.headers[filepath.Clean(h)] = true
	}
	return u
}

// inHeaders reports whether file, as the compiler names it, is one of the
// headers being bound. Declarations from any other file are skipped.
func (u *unit) inHeaders(file string) bool {
	if file == "" {
		return false
	}
	if in, ok := u.files[file]; ok {
		return in
	}
	in := u.headers[filepath.Clean(file)]
	if !in {
		if fi, err := os.Stat(file); err == nil {
			for h := range u.headers {
				if hi, err := os.Stat(h); err == nil && os.SameFile(fi, hi) {
					in = true
					break
				}
			}
		}
	}
	u.files[file] = in
	return in
}

// define handles the text of one #define after the directive name.
func (u *unit) define(rest string) {
	i := 0
	for i < len(rest) && isIdentChar(rest[i]) {
		i++
	}
	name := rest[:i]
	if name == "" {
		return
	}
	if i < len(rest) && rest[i] == '(' {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return
		}
		var params []string
		for _, p := range strings.Split(rest[i+1:end], ",") {
			if p = strings.TrimSpace(p); p != "" {
				params = append(params, p)
			}
		}
		u.cb.FuncMacro(name, params, strings.TrimSpace(rest[end+1:]))
		return
	}

	if u.cb.WillParseMacro(name) == MacroIgnore {
		return
	}
	u.objectMacro(name, strings.TrimSpace(rest[i:]))
}

func (u *unit) objectMacro(name, value string) {
	if value == "" {
		// include guards and empty qualifiers
		return
	}
	if v, ok := parseIntLiteral(value); ok {
		u.intMacro(name, v)
		return
	}
	if toks := lex(value); len(toks) == 1 && toks[0].kind == tokIdent {
		if v, ok := u.ints[toks[0].text]; ok {
			u.intMacro(name, v)
			return
		}
	}
	if f, single, ok := parseFloatLiteral(value); ok {
		u.addConst(&constDecl{name: name, kind: floatConst, float: f, single: single})
		return
	}
	if s, ok := parseStringLiteral(value); ok {
		u.cb.StrMacro(name, []byte(s))
		u.addConst(&constDecl{name: name, kind: stringConst, str: s})
		return
	}
	log.Debugf("bindgen: skipping macro %s", name)
}

func (u *unit) intMacro(name string, v int64) {
	kind, ok := u.cb.IntMacro(name, v)
	if !ok {
		kind = defaultIntKind(v)
	}
	u.ints[name] = v
	u.addConst(&constDecl{name: name, kind: intConst, intVal: v, intKind: kind})
}

// goName maps a C identifier to its Go name, or "" if it is taken or
// private.
func (u *unit) goName(c string, export bool) string {
	if c == "" || strings.HasPrefix(c, "_") {
		return ""
	}
	name, ok := u.cb.ItemName(c)
	if !ok {
		name = c
		if export {
			name = strings.ToUpper(c[:1]) + c[1:]
		}
	}
	if u.goNames[name] {
		return ""
	}
	u.goNames[name] = true
	return name
}

func (u *unit) addConst(c *constDecl) {
	if c.name = u.goName(c.name, false); c.name != "" {
		u.consts = append(u.consts, c)
	}
}

func (u *unit) addType(c string) {
	if _, dup := u.typeGo[c]; dup {
		return
	}
	name := u.goName(c, false)
	if name == "" {
		return
	}
	u.typeGo[c] = name
	u.types = append(u.types, &typeDecl{name: name, c: c})
}

// goType maps a C type, as the compiler spells it, to a Go type. void
// maps to "".
func (u *unit) goType(ctype string) (string, bool) {
	stars := 0
	tag := ""
	var words []string
	for _, t := range lex(ctype) {
		switch {
		case t.is("*"):
			stars++
		case t.kind != tokIdent:
			return "", false
		case t.text == "const" || t.text == "volatile" || t.text == "restrict" || t.text == "__restrict":
		case t.text == "struct" || t.text == "union" || t.text == "enum":
			tag = t.text
		default:
			words = append(words, t.text)
		}
	}
	base := strings.Join(words, " ")
	if base == "" {
		return "", false
	}
	if base == "void" || u.voidTypes[base] {
		if stars == 0 {
			return "", true
		}
		return strings.Repeat("*", stars-1) + "unsafe.Pointer", true
	}

	var gt string
	switch {
	case tag != "" && len(words) == 1:
		gt = "C." + tag + "_" + base
	case cBuiltins[base] != "":
		gt = "C." + cBuiltins[base]
	case u.typeGo[base] != "":
		gt = u.typeGo[base]
	case len(words) == 1:
		gt = "C." + base
	default:
		return "", false
	}
	return strings.Repeat("*", stars) + gt, true
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"C": true, "unsafe": true,
}

func safeIdent(name string) string {
	if goKeywords[name] {
		return name + "_"
	}
	return name
}
