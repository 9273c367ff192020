// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link writes the directives that point a consuming build at
// freshly built native libraries.
package link

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind is how a library is linked.
type Kind string

const (
	Dylib     Kind = "dylib"
	Static    Kind = "static"
	Framework Kind = "framework"
	// All is only meaningful as a search kind.
	All Kind = "all"
)

// Lib names one library to link. Name is used verbatim and is
// case-sensitive: "OpenAL32" and "openal" are different libraries.
type Lib struct {
	Kind Kind   `yaml:"kind" toml:"kind"`
	Name string `yaml:"name" toml:"name"`
}

// Set is an ordered, write-once list of link directives: one search path
// followed by the libraries to link.
type Set struct {
	SearchKind Kind
	SearchPath string
	Libs       []Lib
}

// NewSet returns a Set searching dir for the given libraries.
func NewSet(dir string, libs ...Lib) *Set {
	return &Set{SearchKind: All, SearchPath: dir, Libs: libs}
}

// Format selects the directive syntax of the consuming build.
type Format string

const (
	// Cargo emits cargo:rustc-link-* build script directives.
	Cargo Format = "cargo"
	// Cgo emits #cgo LDFLAGS lines.
	Cgo Format = "cgo"
	// Flags emits bare linker flags, one per line, for CGO_LDFLAGS.
	Flags Format = "flags"
)

// ParseFormat parses a Format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Cargo, Cgo, Flags:
		return f, nil
	}
	return "", fmt.Errorf("unknown directive format %q (want cargo, cgo or flags)", s)
}

// Lines renders the set in format f, search path first.
func (s *Set) Lines(f Format) ([]string, error) {
	lines := make([]string, 0, len(s.Libs)+1)
	switch f {
	case Cargo:
		if kind := s.SearchKind; kind != "" {
			lines = append(lines, "cargo:rustc-link-search="+string(kind)+"="+s.SearchPath)
		} else {
			lines = append(lines, "cargo:rustc-link-search="+s.SearchPath)
		}
		for _, lib := range s.Libs {
			lines = append(lines, "cargo:rustc-link-lib="+string(lib.kind())+"="+lib.Name)
		}
	case Cgo, Flags:
		prefix, arg := "", func(s string) string { return s }
		if f == Cgo {
			prefix, arg = "#cgo LDFLAGS: ", cgoQuote
		}
		lines = append(lines, prefix+arg("-L"+s.SearchPath))
		for _, lib := range s.Libs {
			if lib.Kind == Framework {
				lines = append(lines, prefix+"-framework "+arg(lib.Name))
				continue
			}
			lines = append(lines, prefix+arg("-l"+lib.Name))
		}
	default:
		return nil, fmt.Errorf("unknown directive format %q", f)
	}
	return lines, nil
}

// Write writes the set to w in format f, one directive per line.
func (s *Set) Write(w io.Writer, f Format) error {
	lines, err := s.Lines(f)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteCgoFile writes a Go source file in package pkg whose cgo preamble
// carries the set's linker flags.
func (s *Set) WriteCgoFile(path, pkg string) error {
	lines, err := s.Lines(Cgo)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("// Code generated by alsoft. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n/*\n", pkg)
	for _, line := range lines {
		buf.WriteString(line + "\n")
	}
	buf.WriteString("*/\nimport \"C\"\n")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, src, 0o644)
}

// cgoQuote quotes one #cgo argument. cgo splits directives at spaces and
// treats a backslash as an escape, inside quotes or not.
func cgoQuote(s string) string {
	if !strings.ContainsAny(s, " \t\n\r\"'\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func (l Lib) kind() Kind {
	if l.Kind == "" {
		return Dylib
	}
	return l.Kind
}
