// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// scanMacros reads the output of clang -E -dD. Linemarkers attribute each
// #define to the file it appears in; only the bound headers count.
func (u *unit) scanMacros(out []byte) {
	file := ""
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "#define "):
			if u.inHeaders(file) {
				u.define(line[len("#define "):])
			}
		case strings.HasPrefix(line, "# "), strings.HasPrefix(line, "#line "):
			name, flags, ok := parseLineMarker(line)
			if !ok {
				continue
			}
			if hasFlag(flags, "1") && u.inHeaders(file) {
				u.cb.IncludeFile(name)
			}
			file = name
		}
	}
}

// parseLineMarker parses `# 12 "path/al.h" 1 3`.
func parseLineMarker(line string) (file string, flags []string, ok bool) {
	rest := strings.TrimPrefix(strings.TrimPrefix(line, "#line"), "#")
	rest = strings.TrimSpace(rest)
	i := strings.IndexByte(rest, ' ')
	if i < 0 {
		return "", nil, false
	}
	if _, err := strconv.Atoi(rest[:i]); err != nil {
		return "", nil, false
	}
	rest = strings.TrimSpace(rest[i:])
	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return "", nil, false
	}
	if file, err = strconv.Unquote(quoted); err != nil {
		return "", nil, false
	}
	return file, strings.Fields(rest[len(quoted):]), true
}

func hasFlag(flags []string, f string) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
