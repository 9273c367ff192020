// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads alsoft.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/alsoft/internal/bindings"
	"github.com/goplus/alsoft/internal/build"
	"github.com/goplus/alsoft/internal/env"
	"github.com/goplus/alsoft/internal/link"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config is given. Files ending in .toml
// are read as TOML, anything else as YAML.
const DefaultFile = "alsoft.yaml"

const (
	DefaultRepository = "https://github.com/kcat/openal-soft.git"
	DefaultRef        = "v1.19"
)

// Config holds alsoft configuration
type Config struct {
	Repository string `yaml:"repository" toml:"repository"`
	Ref        string `yaml:"ref" toml:"ref"`
	// Dir is the source tree; empty means <out dir>/openal-soft.
	Dir     string            `yaml:"dir" toml:"dir"`
	Defines map[string]string `yaml:"defines" toml:"defines"`
	Libs    []link.Lib        `yaml:"libs" toml:"libs"`
	Policy  string            `yaml:"policy" toml:"policy"`
	// Profile overrides the environment when set.
	Profile   string `yaml:"profile" toml:"profile"`
	Format    string `yaml:"format" toml:"format"`
	Generator string `yaml:"generator" toml:"generator"`
	// Toolchain is passed to cmake as CMAKE_TOOLCHAIN_FILE.
	Toolchain string `yaml:"toolchain,omitempty" toml:"toolchain,omitempty"`
	// Env is set for every cmake process.
	Env      map[string]string `yaml:"env,omitempty" toml:"env,omitempty"`
	Install  bool              `yaml:"install" toml:"install"`
	Record   string            `yaml:"record" toml:"record"`
	Bindings Bindings          `yaml:"bindings" toml:"bindings"`
}

// Bindings configures the binding emitter.
type Bindings struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Package string `yaml:"package" toml:"package"`
	File    string `yaml:"file" toml:"file"`
	// Defines are predefined while reading the headers, for example
	// AL_ALEXT_PROTOTYPES to expose the extension prototypes.
	Defines map[string]string `yaml:"defines,omitempty" toml:"defines,omitempty"`
	// Clang is the compiler that reads the headers; "clang" if empty.
	Clang string `yaml:"clang,omitempty" toml:"clang,omitempty"`
}

// Default returns the configuration of the OpenAL-Soft v1.19 shared
// library build.
func Default() *Config {
	return &Config{
		Repository: DefaultRepository,
		Ref:        DefaultRef,
		Defines: map[string]string{
			"LIBTYPE":         "SHARED",
			"ALSOFT_UTILS":    "OFF",
			"ALSOFT_EXAMPLES": "OFF",
			"ALSOFT_TESTS":    "OFF",
		},
		Libs: []link.Lib{
			{Kind: link.Dylib, Name: "common"},
			{Kind: link.Dylib, Name: "OpenAL32"},
		},
		Policy: build.ProfileSubdir.String(),
		Format: string(link.Cargo),
		Bindings: Bindings{
			Package: bindings.DefaultPackage,
			File:    bindings.DefaultFile,
		},
	}
}

// Load reads the configuration at path over the defaults. Defines merge
// with the default defines; every other field replaces its default. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	defines, libs := cfg.Defines, cfg.Libs
	cfg.Defines, cfg.Libs = nil, nil
	if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Libs == nil {
		cfg.Libs = libs
	}
	if cfg.Defines == nil {
		cfg.Defines = map[string]string{}
	}
	for k, v := range defines {
		if _, ok := cfg.Defines[k]; !ok {
			cfg.Defines[k] = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}

// Validate reports every problem in cfg at once.
func (cfg *Config) Validate() error {
	var err error
	if cfg.Repository == "" {
		err = multierr.Append(err, fmt.Errorf("repository is empty"))
	}
	if cfg.Ref == "" {
		err = multierr.Append(err, fmt.Errorf("ref is empty"))
	}
	if _, e := build.ParsePolicy(cfg.Policy); e != nil {
		err = multierr.Append(err, e)
	}
	if cfg.Profile != "" {
		if _, e := build.ParseProfile(cfg.Profile); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if _, e := link.ParseFormat(cfg.Format); e != nil {
		err = multierr.Append(err, e)
	}
	if len(cfg.Libs) == 0 {
		err = multierr.Append(err, fmt.Errorf("no libs to link"))
	}
	for i, lib := range cfg.Libs {
		if lib.Name == "" {
			err = multierr.Append(err, fmt.Errorf("libs[%d]: name is empty", i))
		}
		switch lib.Kind {
		case "", link.Dylib, link.Static, link.Framework:
		default:
			err = multierr.Append(err, fmt.Errorf("libs[%d]: unknown kind %q", i, lib.Kind))
		}
	}
	for k := range cfg.Defines {
		if k == "" {
			err = multierr.Append(err, fmt.Errorf("defines: empty name"))
		}
	}
	for k := range cfg.Env {
		if k == "" || strings.Contains(k, "=") {
			err = multierr.Append(err, fmt.Errorf("env: invalid name %q", k))
		}
	}
	return err
}

// SourceDir returns Dir, or the default tree location under outDir.
func (cfg *Config) SourceDir(outDir string) string {
	if cfg.Dir != "" {
		return cfg.Dir
	}
	return env.SourceDir(outDir)
}
