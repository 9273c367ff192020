// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"

	"github.com/goplus/alsoft/internal/config"
	"github.com/goplus/alsoft/internal/vcs"
	"github.com/spf13/cobra"
)

var tagsAll bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the release tags of the OpenAL-Soft repository",
	Long:  `Tags lists the remote's semver release tags, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().BoolVarP(&tagsAll, "all", "a", false, "List every tag, not only releases")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tags, err := vcs.NewGit().Tags(context.Background(), cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to list tags of %s: %w", cfg.Repository, err)
	}
	if !tagsAll {
		tags = vcs.ReleaseTags(tags)
	}
	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), tag)
	}
	return nil
}
