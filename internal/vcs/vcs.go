// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goplus/alsoft/internal/command"
	"golang.org/x/mod/semver"
)

// Git drives the git command line client.
type Git struct {
	git    string
	runner command.Runner
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// WithRunner sets the process runner used for every git invocation.
func WithRunner(r command.Runner) GitOption {
	return func(g *Git) {
		g.runner = r
	}
}

// NewGit creates a new git client.
func NewGit(opts ...GitOption) *Git {
	g := &Git{git: "git", runner: command.Default}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone performs a shallow, single-branch checkout of ref into dir.
// ref may name a tag or a branch.
func (g *Git) Clone(ctx context.Context, remote, ref, dir string) command.Result {
	return g.run(ctx, "", "clone", "--branch", ref, "--depth", "1", remote, dir)
}

// Clean removes untracked and ignored files, recursively and by force,
// from the work tree at dir.
func (g *Git) Clean(ctx context.Context, dir string) command.Result {
	return g.run(ctx, dir, "clean", "-fdx")
}

// Tags returns the tags of the remote repository.
func (g *Git) Tags(ctx context.Context, remote string) ([]string, error) {
	var stdout bytes.Buffer
	res := g.runner.Run(ctx, g.cmd("", &stdout, "ls-remote", "--tags", "--refs", remote))
	if err := res.Error(); err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return nil, nil
	}

	var tags []string
	for _, line := range strings.Split(output, "\n") {
		// format: <hash>\trefs/tags/<tag>
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) == 2 {
			tag := strings.TrimPrefix(parts[1], "refs/tags/")
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// ReleaseTags filters tags down to semantic versions and sorts them
// newest first.
func ReleaseTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if semver.IsValid(tag) && semver.Prerelease(tag) == "" {
			out = append(out, tag)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return semver.Compare(out[i], out[j]) > 0
	})
	return out
}

func (g *Git) run(ctx context.Context, dir string, args ...string) command.Result {
	return g.runner.Run(ctx, g.cmd(dir, nil, args...))
}

func (g *Git) cmd(dir string, stdout *bytes.Buffer, args ...string) command.Cmd {
	c := command.Cmd{
		Name: g.git,
		Args: args,
		Dir:  dir,
		// never block a build on a credential prompt
		Env: map[string]string{"GIT_TERMINAL_PROMPT": "0"},
	}
	if stdout != nil {
		c.Stdout = stdout
	}
	return c
}
