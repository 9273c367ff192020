// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bindings emits the cgo bindings for the public OpenAL-Soft
// headers.
package bindings

import (
	"context"
	"path/filepath"

	"github.com/goplus/alsoft/internal/bindgen"
	"github.com/pkg/errors"
	"github.com/qiniu/x/log"
)

const (
	// DefaultFile is the name of the generated file under the output dir.
	DefaultFile = "bindings.go"
	// DefaultPackage is the Go package of the generated file.
	DefaultPackage = "openal"
)

// Headers lists the public headers, in generation order.
var Headers = []string{"al.h", "alc.h", "alext.h", "efx.h", "efx-presets.h"}

// IncludeDir returns the public header directory of a source tree.
func IncludeDir(srcDir string) string {
	return filepath.Join(srcDir, "include", "AL")
}

// HeaderPaths returns the full paths of Headers in srcDir.
func HeaderPaths(srcDir string) []string {
	dir := IncludeDir(srcDir)
	paths := make([]string, len(Headers))
	for i, h := range Headers {
		paths[i] = filepath.Join(dir, h)
	}
	return paths
}

// ForceInt32 types every integer macro as int32 and leaves the other
// hooks as no-ops.
type ForceInt32 struct {
	bindgen.NopCallbacks
}

func (ForceInt32) IntMacro(string, int64) (bindgen.IntKind, bool) {
	return bindgen.I32, true
}

// Request is one generation pass over a set of headers.
type Request struct {
	Headers    []string
	IncludeDir string
	Package    string
	Callbacks  bindgen.ParseCallbacks
	// Defines are predefined for clang and the cgo preamble.
	Defines map[string]string
	// Clang is the compiler executable; bindgen.DefaultClang if empty.
	Clang string
}

// Generator turns headers into bindings.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*bindgen.Bindings, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req *Request) (*bindgen.Bindings, error)

func (f GeneratorFunc) Generate(ctx context.Context, req *Request) (*bindgen.Bindings, error) {
	return f(ctx, req)
}

// Default generates with bindgen, which reads the headers through clang.
var Default Generator = GeneratorFunc(generate)

func generate(ctx context.Context, req *Request) (*bindgen.Bindings, error) {
	b := bindgen.NewBuilder().
		Package(req.Package).
		ParseCallbacks(req.Callbacks).
		Clang(req.Clang)
	if req.IncludeDir != "" {
		b.CFlags("-I" + filepath.ToSlash(req.IncludeDir))
	}
	for name, value := range req.Defines {
		b.Define(name, value)
	}
	for _, h := range req.Headers {
		b.Header(h)
	}
	return b.Generate(ctx)
}

// Emitter writes the bindings of a source tree into an output dir.
type Emitter struct {
	Generator Generator // Default if nil
	Package   string    // DefaultPackage if empty
	File      string    // DefaultFile if empty

	// Defines and Clang are passed to the generator.
	Defines map[string]string
	Clang   string
}

// Emit generates the bindings for the headers under srcDir in a single
// pass and writes them to outDir. It returns the path written.
func (e *Emitter) Emit(ctx context.Context, srcDir, outDir string) (string, error) {
	gen := e.Generator
	if gen == nil {
		gen = Default
	}
	pkg := e.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	file := e.File
	if file == "" {
		file = DefaultFile
	}

	req := &Request{
		Headers:    HeaderPaths(srcDir),
		IncludeDir: IncludeDir(srcDir),
		Package:    pkg,
		Callbacks:  ForceInt32{},
		Defines:    e.Defines,
		Clang:      e.Clang,
	}
	log.Debugf("generating bindings for %d headers in %s", len(req.Headers), req.IncludeDir)
	b, err := gen.Generate(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate openal-soft bindings")
	}
	path := filepath.Join(outDir, file)
	if err := b.WriteToFile(path); err != nil {
		return "", errors.Wrap(err, "failed to write bindings")
	}
	log.Infof("bindings written to %s", path)
	return path, nil
}
