// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"fmt"
	"strconv"
)

// IntKind is the Go integer type an integer macro is emitted as.
type IntKind int

const (
	I8 IntKind = iota + 1
	U8
	I16
	U16
	I32
	U32
	I64
	U64
)

var intKinds = map[IntKind]struct {
	name   string
	bits   uint
	signed bool
}{
	I8:  {"int8", 8, true},
	U8:  {"uint8", 8, false},
	I16: {"int16", 16, true},
	U16: {"uint16", 16, false},
	I32: {"int32", 32, true},
	U32: {"uint32", 32, false},
	I64: {"int64", 64, true},
	U64: {"uint64", 64, false},
}

// GoType returns the Go type name of k.
func (k IntKind) GoType() string {
	if info, ok := intKinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("IntKind(%d)", int(k))
}

func (k IntKind) String() string { return k.GoType() }

// Literal renders v as a Go constant of kind k. Values outside the
// kind's range wrap around the way a C conversion would.
func (k IntKind) Literal(v int64) string {
	info, ok := intKinds[k]
	if !ok || info.bits == 64 {
		if ok && !info.signed {
			return strconv.FormatUint(uint64(v), 10)
		}
		return strconv.FormatInt(v, 10)
	}
	mask := uint64(1)<<info.bits - 1
	u := uint64(v) & mask
	if info.signed && u&(1<<(info.bits-1)) != 0 {
		return strconv.FormatInt(int64(u)-int64(1)<<info.bits, 10)
	}
	return strconv.FormatUint(u, 10)
}

// defaultIntKind picks the narrowest of int32, uint32 and int64 that
// holds v.
func defaultIntKind(v int64) IntKind {
	switch {
	case v >= -1<<31 && v < 1<<31:
		return I32
	case v >= 0 && v < 1<<32:
		return U32
	}
	return I64
}

// MacroParsingBehavior tells the generator what to do with a macro.
type MacroParsingBehavior int

const (
	// MacroDefault emits the macro if its value is understood.
	MacroDefault MacroParsingBehavior = iota
	// MacroIgnore skips the macro. It still counts as defined for
	// conditional compilation.
	MacroIgnore
)

// ParseCallbacks lets callers customize generation. Embed NopCallbacks
// and override only the hooks needed.
type ParseCallbacks interface {
	// WillParseMacro is consulted before any object-like macro is
	// emitted.
	WillParseMacro(name string) MacroParsingBehavior
	// IntMacro chooses the type of an integer macro. Returning false
	// keeps the generator's default.
	IntMacro(name string, value int64) (IntKind, bool)
	// StrMacro observes string macros.
	StrMacro(name string, value []byte)
	// FuncMacro observes function-like macros, which are never emitted.
	FuncMacro(name string, params []string, body string)
	// EnumVariantName may rename an enumerator; enum is empty for
	// anonymous enums.
	EnumVariantName(enum, variant string, value int64) (string, bool)
	// ItemName may rename a type, constant or function on the Go side.
	ItemName(name string) (string, bool)
	// IncludeFile observes every file a bound header includes, as the
	// compiler resolved it.
	IncludeFile(filename string)
}

// NopCallbacks implements ParseCallbacks with pass-through behavior.
type NopCallbacks struct{}

var _ ParseCallbacks = NopCallbacks{}

func (NopCallbacks) WillParseMacro(string) MacroParsingBehavior { return MacroDefault }

func (NopCallbacks) IntMacro(string, int64) (IntKind, bool) { return 0, false }

func (NopCallbacks) StrMacro(string, []byte) {}

func (NopCallbacks) FuncMacro(string, []string, string) {}

func (NopCallbacks) EnumVariantName(string, string, int64) (string, bool) { return "", false }

func (NopCallbacks) ItemName(string) (string, bool) { return "", false }

func (NopCallbacks) IncludeFile(string) {}
