// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/alsoft/internal/buildsys"
	"github.com/goplus/alsoft/internal/command"
	"github.com/goplus/alsoft/internal/link"
	"github.com/goplus/alsoft/internal/source"
	"github.com/goplus/alsoft/internal/vcs"
	"github.com/google/go-cmp/cmp"
)

var errExit = errors.New("exit status 1")

// fakeRunner records invocations and fails the ones fail selects.
type fakeRunner struct {
	cmds []command.Cmd
	fail func(c command.Cmd) bool
}

func (r *fakeRunner) Run(ctx context.Context, c command.Cmd) command.Result {
	r.cmds = append(r.cmds, c)
	if r.fail != nil && r.fail(c) {
		return command.Result{Cmd: c, ExitCode: 1, Err: errExit}
	}
	return command.Result{Cmd: c}
}

func (r *fakeRunner) count(name, sub string) int {
	n := 0
	for _, c := range r.cmds {
		if c.Name == name && len(c.Args) > 0 && c.Args[0] == sub {
			n++
		}
	}
	return n
}

func (r *fakeRunner) countTool(name string) int {
	n := 0
	for _, c := range r.cmds {
		if c.Name == name {
			n++
		}
	}
	return n
}

var openalLibs = []link.Lib{{Kind: link.Dylib, Name: "common"}, {Kind: link.Dylib, Name: "OpenAL32"}}

var openalDefines = map[string]string{
	"LIBTYPE":         "SHARED",
	"ALSOFT_UTILS":    "OFF",
	"ALSOFT_EXAMPLES": "OFF",
	"ALSOFT_TESTS":    "OFF",
}

func newTestBuilder(t *testing.T, r *fakeRunner, opts Options) (*Builder, string) {
	t.Helper()
	out := t.TempDir()
	fetcher := &source.Fetcher{
		VCS:    vcs.NewGit(vcs.WithRunner(r)),
		Remote: "https://github.com/kcat/openal-soft.git",
		Ref:    "v1.19",
		Dir:    filepath.Join(out, "openal-soft"),
	}
	opts.OutDir = out
	opts.Runner = r
	if opts.Libs == nil {
		opts.Libs = openalLibs
	}
	if opts.Defines == nil {
		opts.Defines = openalDefines
	}
	b, err := NewBuilder(fetcher, opts)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b, out
}

func TestRunEmitsDirectives(t *testing.T) {
	r := &fakeRunner{}
	var stdout bytes.Buffer
	b, out := newTestBuilder(t, r, Options{Profile: Debug, Policy: ProfileSubdir, Stdout: &stdout})

	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDir := filepath.Join(out, "build", "Debug")
	if res.OutputDir != wantDir {
		t.Errorf("OutputDir = %q, want %q", res.OutputDir, wantDir)
	}
	want := "cargo:rustc-link-search=all=" + wantDir + "\n" +
		"cargo:rustc-link-lib=dylib=common\n" +
		"cargo:rustc-link-lib=dylib=OpenAL32\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}

	if n := r.count("git", "clone"); n != 1 {
		t.Errorf("git clone invoked %d times, want 1", n)
	}
	if n := r.count("git", "clean"); n != 0 {
		t.Errorf("git clean invoked %d times, want 0", n)
	}
	if n := r.countTool("cmake"); n != 2 {
		t.Errorf("cmake invoked %d times, want 2 (configure, build)", n)
	}

	configure := strings.Join(r.cmds[1].Args, " ")
	for _, def := range []string{
		"-DLIBTYPE:STRING=SHARED",
		"-DALSOFT_UTILS:BOOL=OFF",
		"-DALSOFT_EXAMPLES:BOOL=OFF",
		"-DALSOFT_TESTS:BOOL=OFF",
		"-DCMAKE_BUILD_TYPE:STRING=Debug",
	} {
		if !strings.Contains(configure, def) {
			t.Errorf("configure %q missing %s", configure, def)
		}
	}
	if diff := cmp.Diff([]string{"--build", filepath.Join(out, "build"), "--config", "Debug"}, r.cmds[2].Args); diff != "" {
		t.Errorf("build args mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCleanupFailureStopsBeforeBuild(t *testing.T) {
	r := &fakeRunner{fail: func(c command.Cmd) bool { return c.Name == "git" }}
	var stdout bytes.Buffer
	b, _ := newTestBuilder(t, r, Options{Stdout: &stdout})

	_, err := b.Run(context.Background())
	var fetchErr *source.Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Run error = %v, want *source.Error", err)
	}
	if n := r.count("git", "clean"); n != 1 {
		t.Errorf("git clean invoked %d times, want 1", n)
	}
	if n := r.countTool("cmake"); n != 0 {
		t.Errorf("cmake invoked %d times after a failed cleanup", n)
	}
	if stdout.Len() != 0 {
		t.Errorf("directives emitted after failure: %q", stdout.String())
	}
}

func TestRunExistingTreeIsCleanedAndBuilt(t *testing.T) {
	r := &fakeRunner{fail: func(c command.Cmd) bool { return c.Name == "git" && c.Args[0] == "clone" }}
	b, _ := newTestBuilder(t, r, Options{Stdout: &bytes.Buffer{}})

	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Tree.Verified {
		t.Error("tree reused after a failed clone must be unverified")
	}
	if r.count("git", "clean") != 1 || r.countTool("cmake") != 2 {
		t.Errorf("invocations: %v", r.cmds)
	}
}

func TestRunBuildFailure(t *testing.T) {
	r := &fakeRunner{fail: func(c command.Cmd) bool { return c.Name == "cmake" && c.Args[0] == "--build" }}
	var stdout bytes.Buffer
	b, _ := newTestBuilder(t, r, Options{Stdout: &stdout, Install: true})

	_, err := b.Run(context.Background())
	var exitErr *command.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run error = %v, want *command.ExitError", err)
	}
	if r.count("cmake", "--install") != 0 {
		t.Error("install ran after a failed build")
	}
	if stdout.Len() != 0 {
		t.Error("directives emitted after a failed build")
	}
}

func TestRunReleasePolicyIgnoresProfile(t *testing.T) {
	r := &fakeRunner{}
	var stdout bytes.Buffer
	b, out := newTestBuilder(t, r, Options{Profile: Debug, Policy: ReleaseSubdir, Stdout: &stdout, Format: link.Flags})

	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := filepath.Join(out, "build", "Release"); res.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", res.OutputDir, want)
	}
	if !strings.HasPrefix(stdout.String(), "-L"+res.OutputDir+"\n") {
		t.Errorf("flags output = %q", stdout.String())
	}
}

func TestRunRecordAndCgoFile(t *testing.T) {
	r := &fakeRunner{}
	dir := t.TempDir()
	record := filepath.Join(dir, "diag", "output-dir.txt")
	cgoFile := filepath.Join(dir, "al", "link_cgo.go")
	b, out := newTestBuilder(t, r, Options{
		Policy:     RootDir,
		Stdout:     &bytes.Buffer{},
		Install:    true,
		Record:     record,
		CgoFile:    cgoFile,
		CgoPackage: "al",
		Libs:       []link.Lib{{Name: "openal"}},
	})

	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputDir != out {
		t.Errorf("OutputDir = %q, want build root %q", res.OutputDir, out)
	}
	if r.count("cmake", "--install") != 1 {
		t.Error("install step did not run")
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != out {
		t.Errorf("record = %q, want %q", data, out)
	}

	src, err := os.ReadFile(cgoFile)
	if err != nil {
		t.Fatalf("cgo file not written: %v", err)
	}
	if !strings.Contains(string(src), "package al") || !strings.Contains(string(src), "#cgo LDFLAGS: -lopenal") {
		t.Errorf("cgo file:\n%s", src)
	}
}

func TestNewBuilderValidation(t *testing.T) {
	f := &source.Fetcher{}
	if _, err := NewBuilder(nil, Options{OutDir: "/o", Libs: openalLibs}); err == nil {
		t.Error("nil fetcher accepted")
	}
	if _, err := NewBuilder(f, Options{Libs: openalLibs}); err == nil {
		t.Error("empty OutDir accepted")
	}
	if _, err := NewBuilder(f, Options{OutDir: "/o"}); err == nil {
		t.Error("empty Libs accepted")
	}
}

func TestRunToolchainAndEnv(t *testing.T) {
	r := &fakeRunner{}
	b, _ := newTestBuilder(t, r, Options{
		Profile:   Release,
		Stdout:    &bytes.Buffer{},
		Toolchain: "/opt/toolchains/aarch64.cmake",
		Env:       map[string]string{"CC": "clang", "CXX": "clang++"},
	})
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var cmakeCmds []command.Cmd
	for _, c := range r.cmds {
		if c.Name == "cmake" {
			cmakeCmds = append(cmakeCmds, c)
		}
	}
	if len(cmakeCmds) != 2 {
		t.Fatalf("cmake invoked %d times, want 2", len(cmakeCmds))
	}
	configure := strings.Join(cmakeCmds[0].Args, " ")
	if !strings.Contains(configure, "-DCMAKE_TOOLCHAIN_FILE:STRING=/opt/toolchains/aarch64.cmake") {
		t.Errorf("configure %q lacks the toolchain file", configure)
	}
	for i, c := range cmakeCmds {
		if diff := cmp.Diff(map[string]string{"CC": "clang", "CXX": "clang++"}, c.Env); diff != "" {
			t.Errorf("cmake %d env mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// fakeBuildSystem records the lifecycle calls it receives.
type fakeBuildSystem struct {
	calls     []string
	env       map[string]string
	outputDir string
	build     func() error
}

func (f *fakeBuildSystem) Env(key, val string) {
	if f.env == nil {
		f.env = map[string]string{}
	}
	f.env[key] = val
}

func (f *fakeBuildSystem) Configure(ctx context.Context, args ...string) error {
	f.calls = append(f.calls, "configure")
	return nil
}

func (f *fakeBuildSystem) Build(ctx context.Context, args ...string) error {
	f.calls = append(f.calls, "build")
	if f.build != nil {
		return f.build()
	}
	return nil
}

func (f *fakeBuildSystem) Install(ctx context.Context, args ...string) error {
	f.calls = append(f.calls, "install")
	return nil
}

func (f *fakeBuildSystem) OutputDir() string { return f.outputDir }

func TestRunCustomBuildSystem(t *testing.T) {
	r := &fakeRunner{}
	bs := &fakeBuildSystem{outputDir: "/prefix"}
	var gotSrc string
	var stdout bytes.Buffer
	b, out := newTestBuilder(t, r, Options{
		Policy:  RootDir,
		Stdout:  &stdout,
		Install: true,
		Env:     map[string]string{"MAKEFLAGS": "-j4"},
		Format:  link.Flags,
		BuildSystem: func(srcDir string) buildsys.BuildSystem {
			gotSrc = srcDir
			return bs
		},
	})
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := filepath.Join(out, "openal-soft"); gotSrc != want {
		t.Errorf("build system created for %q, want %q", gotSrc, want)
	}
	if diff := cmp.Diff([]string{"configure", "build", "install"}, bs.calls); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if bs.env["MAKEFLAGS"] != "-j4" {
		t.Errorf("env = %v", bs.env)
	}
	if res.OutputDir != "/prefix" || !strings.HasPrefix(stdout.String(), "-L/prefix\n") {
		t.Errorf("OutputDir = %q, directives %q", res.OutputDir, stdout.String())
	}
	if r.countTool("cmake") != 0 {
		t.Error("cmake ran alongside a custom build system")
	}

	bs = &fakeBuildSystem{build: func() error { return errExit }}
	b, _ = newTestBuilder(t, &fakeRunner{}, Options{
		Stdout:      &bytes.Buffer{},
		Install:     true,
		BuildSystem: func(string) buildsys.BuildSystem { return bs },
	})
	if _, err := b.Run(context.Background()); !errors.Is(err, errExit) {
		t.Errorf("Run err = %v, want the build failure", err)
	}
	if diff := cmp.Diff([]string{"configure", "build"}, bs.calls); diff != "" {
		t.Errorf("lifecycle after failure mismatch (-want +got):\n%s", diff)
	}
}
