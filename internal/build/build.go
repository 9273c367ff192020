// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build fetches, compiles and links a CMake-based native library
// on behalf of a consuming build.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/alsoft/internal/buildsys"
	"github.com/goplus/alsoft/internal/buildsys/cmake"
	"github.com/goplus/alsoft/internal/command"
	"github.com/goplus/alsoft/internal/link"
	"github.com/goplus/alsoft/internal/source"
	"github.com/qiniu/x/log"
)

// Fetcher provides the source tree to build.
type Fetcher interface {
	Fetch(ctx context.Context) (*source.Tree, error)
}

// Options configures a Builder.
type Options struct {
	// OutDir is the build root: cmake builds in OutDir/build and installs
	// into OutDir.
	OutDir  string
	Profile Profile
	Policy  Policy
	// Defines are passed to cmake. ON and OFF become BOOL definitions,
	// anything else a STRING.
	Defines map[string]string
	// Generator optionally selects the CMake generator.
	Generator string
	// Toolchain optionally names a CMake toolchain file.
	Toolchain string
	// Env is set for every build system process.
	Env map[string]string
	// Install also runs the install step.
	Install bool
	Libs    []link.Lib
	Format  link.Format
	// Stdout receives the link directives; nil means os.Stdout.
	Stdout io.Writer
	// Record, if set, names a file that receives the resolved output
	// directory.
	Record string
	// CgoFile, if set, receives a Go file in package CgoPackage carrying
	// the link directives as #cgo LDFLAGS.
	CgoFile    string
	CgoPackage string
	Runner     command.Runner
	// BuildSystem returns the build system for a fetched tree. Nil means
	// CMake, configured from the options above.
	BuildSystem func(srcDir string) buildsys.BuildSystem
}

// Result describes a finished build.
type Result struct {
	Tree      *source.Tree
	OutputDir string
	Links     *link.Set
}

// Builder runs the fetch, configure, build, resolve and emit steps in
// order, stopping at the first failure.
type Builder struct {
	fetcher Fetcher
	opts    Options
}

// NewBuilder creates a Builder.
func NewBuilder(fetcher Fetcher, opts Options) (*Builder, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("build: no fetcher")
	}
	if opts.OutDir == "" {
		return nil, fmt.Errorf("build: OutDir must be set")
	}
	if len(opts.Libs) == 0 {
		return nil, fmt.Errorf("build: no libraries to link")
	}
	if opts.Format == "" {
		opts.Format = link.Cargo
	}
	if opts.Runner == nil {
		opts.Runner = command.Default
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.CgoPackage == "" {
		opts.CgoPackage = "openal"
	}
	return &Builder{fetcher: fetcher, opts: opts}, nil
}

// Run performs the whole build. Nothing is retried: the first failing
// step ends the run and later steps never start.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	tree, err := b.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c := b.buildSystem(tree.Dir)
	if err := c.Configure(ctx); err != nil {
		return nil, fmt.Errorf("configure %s: %w", tree.Dir, err)
	}
	if err := c.Build(ctx); err != nil {
		return nil, fmt.Errorf("build %s: %w", tree.Dir, err)
	}
	if b.opts.Install {
		if err := c.Install(ctx); err != nil {
			return nil, fmt.Errorf("install %s: %w", tree.Dir, err)
		}
	}

	dir, err := ResolveOutputDir(c.OutputDir(), b.opts.Policy, b.opts.Profile)
	if err != nil {
		return nil, err
	}
	log.Debugf("libraries resolved to %s (%v policy, %v profile)", dir, b.opts.Policy, b.opts.Profile)

	set := link.NewSet(dir, b.opts.Libs...)
	if err := set.Write(b.opts.Stdout, b.opts.Format); err != nil {
		return nil, fmt.Errorf("write link directives: %w", err)
	}
	if b.opts.Record != "" {
		if err := writeRecord(b.opts.Record, dir); err != nil {
			return nil, err
		}
	}
	if b.opts.CgoFile != "" {
		if err := set.WriteCgoFile(b.opts.CgoFile, b.opts.CgoPackage); err != nil {
			return nil, fmt.Errorf("write cgo file: %w", err)
		}
	}
	return &Result{Tree: tree, OutputDir: dir, Links: set}, nil
}

func (b *Builder) buildSystem(srcDir string) buildsys.BuildSystem {
	var bs buildsys.BuildSystem
	if b.opts.BuildSystem != nil {
		bs = b.opts.BuildSystem(srcDir)
	} else {
		bs = b.cmake(srcDir)
	}
	keys := make([]string, 0, len(b.opts.Env))
	for k := range b.opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bs.Env(k, b.opts.Env[k])
	}
	return bs
}

func (b *Builder) cmake(srcDir string) *cmake.CMake {
	c := cmake.ForOutDir(srcDir, b.opts.OutDir).
		Runner(b.opts.Runner).
		BuildType(b.opts.Profile.BuildType())
	if b.opts.Generator != "" {
		c.Generator(b.opts.Generator)
	}
	if b.opts.Toolchain != "" {
		c.Toolchain(b.opts.Toolchain)
	}
	keys := make([]string, 0, len(b.opts.Defines))
	for k := range b.opts.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := b.opts.Defines[k]; strings.ToUpper(v) {
		case "ON":
			c.DefineBool(k, true)
		case "OFF":
			c.DefineBool(k, false)
		default:
			c.Define(k, v)
		}
	}
	return c
}

func writeRecord(path, dir string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(dir+"\n"), 0o644); err != nil {
		return fmt.Errorf("record output dir: %w", err)
	}
	return nil
}
