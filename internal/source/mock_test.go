// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"errors"

	"github.com/goplus/alsoft/internal/command"
)

var errExit = errors.New("exit status 128")

// mockVCS implements VCS for unit testing and counts invocations.
type mockVCS struct {
	cloneFunc func(ctx context.Context, remote, ref, dir string) command.Result
	cleanFunc func(ctx context.Context, dir string) command.Result

	clones, cleans int
}

func (m *mockVCS) Clone(ctx context.Context, remote, ref, dir string) command.Result {
	m.clones++
	if m.cloneFunc != nil {
		return m.cloneFunc(ctx, remote, ref, dir)
	}
	return command.Result{Cmd: command.Cmd{Name: "git", Args: []string{"clone"}}}
}

func (m *mockVCS) Clean(ctx context.Context, dir string) command.Result {
	m.cleans++
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, dir)
	}
	return command.Result{Cmd: command.Cmd{Name: "git", Args: []string{"clean", "-fdx"}, Dir: dir}}
}

func failed(name string, args ...string) command.Result {
	return command.Result{Cmd: command.Cmd{Name: name, Args: args}, ExitCode: 128, Err: errExit}
}
