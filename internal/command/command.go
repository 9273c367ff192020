// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package command spawns external tools and reports how they exited.
//
// A Runner never panics and never returns a bare error: every invocation
// yields a Result carrying the exit status, so callers decide themselves
// whether a failure aborts the build or routes into a fallback.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// stderrTail bounds how much child stderr an ExitError quotes.
const stderrTail = 4 << 10

// Cmd describes one external process invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	// Env entries override the inherited environment.
	Env map[string]string
	// Stdout, when set, captures child stdout instead of the runner's sink.
	Stdout io.Writer
}

// String renders the command line as a shell user would type it.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of running a Cmd.
type Result struct {
	Cmd      Cmd
	ExitCode int
	Stderr   string
	// Err is set when the process could not be started or did not exit
	// with status zero.
	Err error
}

// OK reports whether the process ran and exited with status zero.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Error returns nil for a successful result, otherwise an *ExitError.
func (r Result) Error() error {
	if r.OK() {
		return nil
	}
	return &ExitError{Result: r}
}

// ExitError reports a failed external process.
type ExitError struct {
	Result Result
}

func (e *ExitError) Error() string {
	r := e.Result
	var msg string
	if r.ExitCode < 0 {
		msg = fmt.Sprintf("%s: %v", r.Cmd, r.Err)
	} else {
		msg = fmt.Sprintf("%s: exit status %d", r.Cmd, r.ExitCode)
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Result.Err }

// Runner runs external processes to completion.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Cmd) Result

func (f RunnerFunc) Run(ctx context.Context, cmd Cmd) Result { return f(ctx, cmd) }

// Exec runs commands on the host through os/exec.
type Exec struct {
	// Stdout receives child stdout. Nil means os.Stderr: the hook's own
	// stdout is reserved for link directives.
	Stdout io.Writer
	// Stderr receives child stderr in addition to the captured tail.
	// Nil means os.Stderr.
	Stderr io.Writer
}

// Default is the runner used when none is configured.
var Default Runner = &Exec{}

func (e *Exec) Run(ctx context.Context, c Cmd) Result {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}

	stdout, stderr := e.Stdout, e.Stderr
	if c.Stdout != nil {
		stdout = c.Stdout
	} else if stdout == nil {
		stdout = os.Stderr
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	var buf tailBuffer
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &buf)

	res := Result{Cmd: c}
	err := cmd.Run()
	res.Stderr = buf.String()
	if err == nil {
		return res
	}
	res.Err = err
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	return res
}

// MergeEnv overlays override on base and returns a sorted KEY=VALUE list.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(override))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// tailBuffer keeps the last stderrTail bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= stderrTail {
		t.buf.Reset()
		t.buf.Write(p[n-stderrTail:])
		return n, nil
	}
	if over := t.buf.Len() + n - stderrTail; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
