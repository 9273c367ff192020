// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"

	"github.com/goplus/alsoft/internal/build"
	"github.com/goplus/alsoft/internal/config"
	"github.com/goplus/alsoft/internal/env"
	"github.com/goplus/alsoft/internal/link"
	"github.com/goplus/alsoft/internal/source"
	"github.com/goplus/alsoft/internal/vcs"
)

// buildFlags are the command line overrides of the config file. Empty
// strings keep the configured value.
type buildFlags struct {
	outDir     string
	profile    string
	policy     string
	format     string
	record     string
	cgoFile    string
	cgoPackage string
	toolchain  string
	install    bool
	bindings   bool
}

// apply copies the set flags over cfg.
func (f *buildFlags) apply(cfg *config.Config) {
	if f.profile != "" {
		cfg.Profile = f.profile
	}
	if f.policy != "" {
		cfg.Policy = f.policy
	}
	if f.format != "" {
		cfg.Format = f.format
	}
	if f.record != "" {
		cfg.Record = f.record
	}
	if f.toolchain != "" {
		cfg.Toolchain = f.toolchain
	}
	if f.install {
		cfg.Install = true
	}
	if f.bindings {
		cfg.Bindings.Enabled = true
	}
}

func (f *buildFlags) resolveOutDir() (string, error) {
	if f.outDir != "" {
		return f.outDir, nil
	}
	return env.OutDir()
}

// profile is the configured profile, or the one the environment selects.
func profile(cfg *config.Config) (build.Profile, error) {
	if cfg.Profile != "" {
		return build.ParseProfile(cfg.Profile)
	}
	return env.ProfileFromEnv()
}

func loadConfig(f *buildFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// buildOptions assembles the builder options from cfg.
func buildOptions(cfg *config.Config, f *buildFlags, outDir string) (build.Options, error) {
	prof, err := profile(cfg)
	if err != nil {
		return build.Options{}, err
	}
	policy, err := build.ParsePolicy(cfg.Policy)
	if err != nil {
		return build.Options{}, err
	}
	format, err := link.ParseFormat(cfg.Format)
	if err != nil {
		return build.Options{}, err
	}
	return build.Options{
		OutDir:     outDir,
		Profile:    prof,
		Policy:     policy,
		Defines:    cfg.Defines,
		Generator:  cfg.Generator,
		Toolchain:  cfg.Toolchain,
		Env:        cfg.Env,
		Install:    cfg.Install,
		Libs:       cfg.Libs,
		Format:     format,
		Record:     cfg.Record,
		CgoFile:    f.cgoFile,
		CgoPackage: f.cgoPackage,
	}, nil
}

func newFetcher(cfg *config.Config, outDir string) *source.Fetcher {
	return &source.Fetcher{
		VCS:    vcs.NewGit(),
		Remote: cfg.Repository,
		Ref:    cfg.Ref,
		Dir:    cfg.SourceDir(outDir),
	}
}
