// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/alsoft/internal/command"
	"github.com/pkg/errors"
	"github.com/qiniu/x/log"
)

// DefaultClang is the compiler used when none is configured.
const DefaultClang = "clang"

// Clang sets the clang executable used to read the headers.
func (b *Builder) Clang(path string) *Builder {
	b.clang = path
	return b
}

// Runner sets the process runner clang is started through.
func (b *Builder) Runner(r command.Runner) *Builder {
	b.runner = r
	return b
}

// clangArgs returns the arguments for one clang pass over wrapper.
func (b *Builder) clangArgs(wrapper string, mode ...string) []string {
	args := append([]string{"-x", "c"}, mode...)
	names := make([]string, 0, len(b.defines))
	for name := range b.defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "-D"+name+"="+b.defines[name])
	}
	args = append(args, b.cflags...)
	return append(args, wrapper)
}

func (b *Builder) runClang(ctx context.Context, args []string) ([]byte, error) {
	clang := b.clang
	if clang == "" {
		clang = DefaultClang
	}
	runner := b.runner
	if runner == nil {
		runner = command.Default
	}
	var out bytes.Buffer
	res := runner.Run(ctx, command.Cmd{Name: clang, Args: args, Stdout: &out})
	if err := res.Error(); err != nil {
		return nil, errors.Wrap(err, "run clang")
	}
	return out.Bytes(), nil
}

// writeWrapper writes a translation unit including every header in
// order and returns its path and the absolute header paths.
func (b *Builder) writeWrapper(dir string) (string, []string, error) {
	var buf bytes.Buffer
	abs := make([]string, len(b.headers))
	for i, h := range b.headers {
		p, err := filepath.Abs(h)
		if err != nil {
			return "", nil, err
		}
		if _, err := os.Stat(p); err != nil {
			return "", nil, errors.Wrap(err, "bindgen")
		}
		abs[i] = p
		fmt.Fprintf(&buf, "#include %q\n", filepath.ToSlash(p))
	}
	wrapper := filepath.Join(dir, "wrapper.h")
	if err := os.WriteFile(wrapper, buf.Bytes(), 0o644); err != nil {
		return "", nil, errors.Wrap(err, "write wrapper header")
	}
	return wrapper, abs, nil
}

// parse runs the preprocessor and the declaration dump over the headers.
func (b *Builder) parse(ctx context.Context) (*unit, error) {
	dir, err := os.MkdirTemp("", "alsoft-bindgen-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	wrapper, abs, err := b.writeWrapper(dir)
	if err != nil {
		return nil, err
	}
	macros, err := b.runClang(ctx, b.clangArgs(wrapper, "-E", "-dD"))
	if err != nil {
		return nil, err
	}
	ast, err := b.runClang(ctx, b.clangArgs(wrapper, "-fsyntax-only", "-Xclang", "-ast-dump=json"))
	if err != nil {
		return nil, err
	}
	log.Debugf("bindgen: %d bytes of macros, %d bytes of AST", len(macros), len(ast))

	u := newUnit(b.cb, abs)
	// enumerators first: macros may alias them
	if err := u.scanAST(ast); err != nil {
		return nil, err
	}
	u.scanMacros(macros)
	return u, nil
}
