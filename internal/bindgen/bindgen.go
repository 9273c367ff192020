// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bindgen generates cgo bindings from C headers.
//
// One Generate call hands every header to clang, reading macros from the
// preprocessor (-E -dD) and declarations from the JSON AST dump, and
// produces a single Go file: type aliases for typedefs, constants for
// integer, float and string macros and enumerators, and exported wrappers
// for function prototypes. ParseCallbacks customize the output;
// NopCallbacks leaves everything as the headers declare it.
package bindgen

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goplus/alsoft/internal/command"
	"github.com/pkg/errors"
)

// Builder configures a generation pass.
type Builder struct {
	headers []string
	cb      ParseCallbacks
	pkg     string
	defines map[string]string
	cflags  []string
	clang   string
	runner  command.Runner
}

// NewBuilder returns a Builder generating package "bindings" with
// NopCallbacks.
func NewBuilder() *Builder {
	return &Builder{cb: NopCallbacks{}, pkg: "bindings", defines: map[string]string{}}
}

// Header adds a header to the pass. Headers are read in the order added.
func (b *Builder) Header(path string) *Builder {
	b.headers = append(b.headers, path)
	return b
}

// ParseCallbacks sets the customization hooks.
func (b *Builder) ParseCallbacks(cb ParseCallbacks) *Builder {
	if cb == nil {
		cb = NopCallbacks{}
	}
	b.cb = cb
	return b
}

// Package sets the Go package name of the generated file.
func (b *Builder) Package(name string) *Builder {
	b.pkg = name
	return b
}

// Define predefines a macro, both for clang and in the cgo preamble.
func (b *Builder) Define(name, value string) *Builder {
	b.defines[name] = value
	return b
}

// CFlags adds flags passed to clang and written to the #cgo CFLAGS line.
func (b *Builder) CFlags(flags ...string) *Builder {
	b.cflags = append(b.cflags, flags...)
	return b
}

// Bindings is generated, formatted Go source.
type Bindings struct {
	Package string
	Source  []byte
}

// WriteTo writes the source to w.
func (b *Bindings) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Source)
	return int64(n), err
}

// WriteToFile writes the source to path. The file appears complete or
// not at all.
func (b *Bindings) WriteToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create bindings file")
	}
	tmp := f.Name()
	if _, err := f.Write(b.Source); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", path)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Generate reads all headers in a single pass and renders the bindings.
func (b *Builder) Generate(ctx context.Context) (*Bindings, error) {
	if len(b.headers) == 0 {
		return nil, errors.New("bindgen: no headers")
	}
	u, err := b.parse(ctx)
	if err != nil {
		return nil, err
	}

	src := b.render(u)
	formatted, err := format.Source(src)
	if err != nil {
		return nil, errors.Wrap(err, "format generated bindings")
	}
	return &Bindings{Package: b.pkg, Source: formatted}, nil
}

func (b *Builder) render(u *unit) []byte {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by alsoft bindgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n/*\n", b.pkg)
	if len(b.cflags) > 0 {
		fmt.Fprintf(&buf, "#cgo CFLAGS: %s\n", strings.Join(b.cflags, " "))
	}
	names := make([]string, 0, len(b.defines))
	for name := range b.defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&buf, "#define %s %s\n", name, b.defines[name])
	}
	for _, h := range b.headers {
		fmt.Fprintf(&buf, "#include %q\n", filepath.ToSlash(h))
	}
	buf.WriteString("*/\nimport \"C\"\n\n")

	usesUnsafe := false
	for _, f := range u.funcs {
		if strings.Contains(f.ret, "unsafe.") {
			usesUnsafe = true
		}
		for _, p := range f.params {
			if strings.Contains(p.typ, "unsafe.") {
				usesUnsafe = true
			}
		}
	}
	if usesUnsafe {
		buf.WriteString("import \"unsafe\"\n\n")
	}

	if len(u.types) > 0 {
		buf.WriteString("type (\n")
		for _, t := range u.types {
			fmt.Fprintf(&buf, "\t%s = C.%s\n", t.name, t.c)
		}
		buf.WriteString(")\n\n")
	}

	if len(u.consts) > 0 {
		buf.WriteString("const (\n")
		for _, c := range u.consts {
			buf.WriteString("\t" + c.name)
			switch c.kind {
			case intConst:
				fmt.Fprintf(&buf, " %s = %s\n", c.intKind.GoType(), c.intKind.Literal(c.intVal))
			case enumConst:
				if c.typ != "" {
					buf.WriteString(" " + c.typ)
				}
				fmt.Fprintf(&buf, " = %d\n", c.intVal)
			case floatConst:
				typ := "float64"
				if c.single {
					typ = "float32"
				}
				fmt.Fprintf(&buf, " %s = %s\n", typ, strconv.FormatFloat(c.float, 'g', -1, 64))
			case stringConst:
				fmt.Fprintf(&buf, " = %s\n", strconv.Quote(c.str))
			}
		}
		buf.WriteString(")\n\n")
	}

	for _, f := range u.funcs {
		params := make([]string, len(f.params))
		args := make([]string, len(f.params))
		for i, p := range f.params {
			params[i] = p.name + " " + p.typ
			args[i] = p.name
		}
		call := fmt.Sprintf("C.%s(%s)", f.c, strings.Join(args, ", "))
		fmt.Fprintf(&buf, "func %s(%s) %s {\n", f.name, strings.Join(params, ", "), f.ret)
		if f.ret == "" {
			fmt.Fprintf(&buf, "\t%s\n}\n\n", call)
		} else {
			fmt.Fprintf(&buf, "\treturn %s\n}\n\n", call)
		}
	}
	return buf.Bytes()
}
