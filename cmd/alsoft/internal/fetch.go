// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var fetchFlagValues buildFlags

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Clone or clean the OpenAL-Soft source tree",
	Long:  `Fetch runs only the first step of build and prints the source tree path.`,
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	addOutDirFlag(fetchCmd, &fetchFlagValues)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	f := &fetchFlagValues
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	outDir, err := f.resolveOutDir()
	if err != nil {
		return fmt.Errorf("failed to get output dir: %w", err)
	}
	tree, err := newFetcher(cfg, outDir).Fetch(context.Background())
	if err != nil {
		return err
	}
	if !tree.Verified {
		log.Warnf("%s was reused as is; its version is unverified", tree.Dir)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tree.Dir)
	return nil
}
