// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"

	"github.com/goplus/alsoft/internal/bindings"
	"github.com/goplus/alsoft/internal/build"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var buildFlagValues buildFlags

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch, build and link OpenAL-Soft",
	Long: `Build clones OpenAL-Soft into the output directory (or cleans the tree
already there), builds it with CMake and prints the link directives on
standard output. All other output goes to standard error.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	addOutDirFlag(buildCmd, &buildFlagValues)
	addProfileFlags(buildCmd, &buildFlagValues)
	flags := buildCmd.Flags()
	flags.StringVar(&buildFlagValues.format, "format", "", "Link directive format: cargo, cgo or flags")
	flags.StringVar(&buildFlagValues.record, "record", "", "Write the resolved output directory to this file")
	flags.StringVar(&buildFlagValues.cgoFile, "cgo-file", "", "Also write the link directives as a Go file with #cgo LDFLAGS")
	flags.StringVar(&buildFlagValues.cgoPackage, "cgo-package", "openal", "Package name of the --cgo-file")
	flags.StringVar(&buildFlagValues.toolchain, "toolchain", "", "CMake toolchain file for cross builds")
	flags.BoolVar(&buildFlagValues.install, "install", false, "Also run the CMake install step")
	flags.BoolVar(&buildFlagValues.bindings, "bindings", false, "Also generate the cgo bindings into the output directory")
	rootCmd.AddCommand(buildCmd)
}

func addOutDirFlag(cmd *cobra.Command, f *buildFlags) {
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "Build root (default $OUT_DIR, then the user cache dir)")
}

func addProfileFlags(cmd *cobra.Command, f *buildFlags) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "Build profile: debug or release (default from $ALSOFT_PROFILE or $PROFILE)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "Output directory policy: profile, release or root")
}

func runBuild(cmd *cobra.Command, args []string) error {
	f := &buildFlagValues
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	outDir, err := f.resolveOutDir()
	if err != nil {
		return fmt.Errorf("failed to get output dir: %w", err)
	}
	opts, err := buildOptions(cfg, f, outDir)
	if err != nil {
		return err
	}
	opts.Stdout = cmd.OutOrStdout()

	builder, err := build.NewBuilder(newFetcher(cfg, outDir), opts)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}
	result, err := builder.Run(context.Background())
	if err != nil {
		return fmt.Errorf("failed to build openal-soft: %w", err)
	}

	if cfg.Bindings.Enabled {
		e := &bindings.Emitter{
			Package: cfg.Bindings.Package,
			File:    cfg.Bindings.File,
			Defines: cfg.Bindings.Defines,
			Clang:   cfg.Bindings.Clang,
		}
		if _, err := e.Emit(context.Background(), result.Tree.Dir, outDir); err != nil {
			return err
		}
	}
	log.Infof("openal-soft %s built in %s", cfg.Ref, result.OutputDir)
	return nil
}
