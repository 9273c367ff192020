// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
)

var openal = []Lib{{Kind: Dylib, Name: "common"}, {Kind: Dylib, Name: "OpenAL32"}}

func TestCargoDirectives(t *testing.T) {
	dir := filepath.Join("out dir", "build", "Debug")
	var buf bytes.Buffer
	if err := NewSet(dir, openal...).Write(&buf, Cargo); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "cargo:rustc-link-search=all=" + dir + "\n" +
		"cargo:rustc-link-lib=dylib=common\n" +
		"cargo:rustc-link-lib=dylib=OpenAL32\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("cargo output mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectiveShape(t *testing.T) {
	const dir = "/work/out/build/Release"
	for _, f := range []Format{Cargo, Cgo, Flags} {
		t.Run(string(f), func(t *testing.T) {
			lines, err := NewSet(dir, openal...).Lines(f)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(lines[0], dir) {
				t.Errorf("search directive %q does not contain %q verbatim", lines[0], dir)
			}
			libs := lines[1:]
			if len(libs) != 2 {
				t.Fatalf("got %d library directives, want exactly 2: %v", len(libs), libs)
			}
			if !strings.HasSuffix(libs[0], "common") || !strings.HasSuffix(libs[1], "OpenAL32") {
				t.Errorf("library directives = %v", libs)
			}
		})
	}
}

func TestLibNamesAreCaseSensitive(t *testing.T) {
	a, _ := NewSet("/d", Lib{Name: "OpenAL32"}).Lines(Flags)
	b, _ := NewSet("/d", Lib{Name: "openal"}).Lines(Flags)
	if a[1] == b[1] {
		t.Fatalf("OpenAL32 and openal conflated: %q", a[1])
	}
	if a[1] != "-lOpenAL32" || b[1] != "-lopenal" {
		t.Errorf("got %q and %q", a[1], b[1])
	}
	c, _ := NewSet("/d", Lib{Name: "OPENAL"}).Lines(Cargo)
	if c[1] != "cargo:rustc-link-lib=dylib=OPENAL" {
		t.Errorf("name case was altered: %q", c[1])
	}
}

func TestCgoAndFlags(t *testing.T) {
	set := NewSet("/x", Lib{Name: "common"}, Lib{Kind: Framework, Name: "CoreAudio"})
	cgo, _ := set.Lines(Cgo)
	want := []string{"#cgo LDFLAGS: -L/x", "#cgo LDFLAGS: -lcommon", "#cgo LDFLAGS: -framework CoreAudio"}
	if diff := cmp.Diff(want, cgo); diff != "" {
		t.Errorf("cgo mismatch (-want +got):\n%s", diff)
	}
	flags, _ := set.Lines(Flags)
	want = []string{"-L/x", "-lcommon", "-framework CoreAudio"}
	if diff := cmp.Diff(want, flags); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchKindOmitted(t *testing.T) {
	s := &Set{SearchPath: "/x", Libs: []Lib{{Name: "common"}}}
	lines, _ := s.Lines(Cargo)
	if lines[0] != "cargo:rustc-link-search=/x" {
		t.Errorf("search = %q", lines[0])
	}
	if lines[1] != "cargo:rustc-link-lib=dylib=common" {
		t.Errorf("empty kind should default to dylib, got %q", lines[1])
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"cargo": Cargo, "CGO": Cgo, "flags": Flags} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("meson"); err == nil {
		t.Error("ParseFormat(meson) should fail")
	}
	if _, err := NewSet("/x").Lines(Format("meson")); err == nil {
		t.Error("Lines with unknown format should fail")
	}
}

func TestWriteCgoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "al", "link_cgo.go")
	if err := NewSet("/opt/al", openal...).WriteCgoFile(path, "al"); err != nil {
		t.Fatalf("WriteCgoFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	src := string(data)
	for _, want := range []string{
		"// Code generated by alsoft. DO NOT EDIT.",
		"package al",
		"#cgo LDFLAGS: -L/opt/al",
		"#cgo LDFLAGS: -lcommon",
		"#cgo LDFLAGS: -lOpenAL32",
		`import "C"`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated file missing %q:\n%s", want, src)
		}
	}
}

// splitCgoArgs splits a #cgo directive body the way cmd/cgo does.
func splitCgoArgs(s string) []string {
	var args []string
	var arg []rune
	escaped, quoted := false, false
	var quote rune
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
		case r == '"' || r == '\'':
			quoted, quote = true, r
			continue
		case unicode.IsSpace(r):
			if quoted || len(arg) > 0 {
				quoted = false
				args = append(args, string(arg))
				arg = arg[:0]
			}
			continue
		}
		arg = append(arg, r)
	}
	if quoted || len(arg) > 0 {
		args = append(args, string(arg))
	}
	return args
}

func TestCgoQuote(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/opt/al", "-L/opt/al"},
		{"/home/me/My Projects/out", `"-L/home/me/My Projects/out"`},
		{`C:\Users\me\out`, `"-LC:\\Users\\me\\out"`},
		{`/tmp/it's "here"`, `"-L/tmp/it's \"here\""`},
		{"/tmp/tab\there", "\"-L/tmp/tab\there\""},
	}
	for _, tt := range tests {
		lines, err := NewSet(tt.dir, Lib{Name: "OpenAL32"}).Lines(Cgo)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.TrimPrefix(lines[0], "#cgo LDFLAGS: "); got != tt.want {
			t.Errorf("search path %q rendered as %s, want %s", tt.dir, got, tt.want)
		}
		if diff := cmp.Diff([]string{"-L" + tt.dir}, splitCgoArgs(strings.TrimPrefix(lines[0], "#cgo LDFLAGS: "))); diff != "" {
			t.Errorf("cgo reads %q differently (-want +got):\n%s", tt.dir, diff)
		}
	}

	flags, _ := NewSet("/home/me/My Projects/out").Lines(Flags)
	if flags[0] != "-L/home/me/My Projects/out" {
		t.Errorf("flags format should stay verbatim, got %q", flags[0])
	}
}

func TestWriteCgoFileQuotesSearchPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build dir", "Release")
	path := filepath.Join(t.TempDir(), "link_cgo.go")
	if err := NewSet(dir, openal...).WriteCgoFile(path, "al"); err != nil {
		t.Fatalf("WriteCgoFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, line := range strings.Split(string(data), "\n") {
		if body, ok := strings.CutPrefix(line, "#cgo LDFLAGS: "); ok {
			got = append(got, splitCgoArgs(body)...)
		}
	}
	if diff := cmp.Diff([]string{"-L" + dir, "-lcommon", "-lOpenAL32"}, got); diff != "" {
		t.Errorf("cgo flags mismatch (-want +got):\n%s", diff)
	}
}
