// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"

	"github.com/goplus/alsoft/internal/build"
	"github.com/goplus/alsoft/internal/buildsys/cmake"
	"github.com/goplus/alsoft/internal/config"
	"github.com/spf13/cobra"
)

var resolveFlagValues buildFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the directory the libraries are linked from",
	Long: `Resolve prints the directory build would point the linker at, for the
selected policy and profile, without building anything.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	addOutDirFlag(resolveCmd, &resolveFlagValues)
	addProfileFlags(resolveCmd, &resolveFlagValues)
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	f := &resolveFlagValues
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	outDir, err := f.resolveOutDir()
	if err != nil {
		return fmt.Errorf("failed to get output dir: %w", err)
	}
	dir, err := resolveDir(cfg.SourceDir(outDir), outDir, cfg.Policy, cfg.Profile)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}

// resolveDir mirrors the resolution build performs after compiling.
func resolveDir(srcDir, outDir, policy, profileName string) (string, error) {
	p, err := build.ParsePolicy(policy)
	if err != nil {
		return "", err
	}
	prof, err := profile(&config.Config{Profile: profileName})
	if err != nil {
		return "", err
	}
	return build.ResolveOutputDir(cmake.ForOutDir(srcDir, outDir).OutputDir(), p, prof)
}
