// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Profile is the consuming build's configuration.
type Profile int

const (
	Release Profile = iota
	Debug
)

// ParseProfile accepts "debug" or "release" in any case. Cargo's "dev"
// profile and an empty string are accepted as Debug and Release.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dev":
		return Debug, nil
	case "release", "":
		return Release, nil
	}
	return Release, fmt.Errorf("unknown build profile %q (want debug or release)", s)
}

// BuildType returns the CMAKE_BUILD_TYPE for p.
func (p Profile) BuildType() string {
	if p == Debug {
		return "Debug"
	}
	return "Release"
}

func (p Profile) String() string { return strings.ToLower(p.BuildType()) }

// Policy decides where, below the build root, the linkable libraries are
// looked for.
type Policy int

const (
	// ProfileSubdir appends build/Debug or build/Release by profile.
	ProfileSubdir Policy = iota
	// ReleaseSubdir always appends build/Release, whatever the profile.
	ReleaseSubdir
	// RootDir uses the build root as is.
	RootDir
)

var policyNames = map[Policy]string{
	ProfileSubdir: "profile",
	ReleaseSubdir: "release",
	RootDir:       "root",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses "profile", "release" or "root".
func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range policyNames {
		if s == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown output policy %q (want profile, release or root)", s)
}

// ResolveOutputDir returns the directory holding the built libraries
// under root.
func ResolveOutputDir(root string, policy Policy, profile Profile) (string, error) {
	switch policy {
	case ProfileSubdir:
		return filepath.Join(root, "build", profile.BuildType()), nil
	case ReleaseSubdir:
		return filepath.Join(root, "build", Release.BuildType()), nil
	case RootDir:
		return root, nil
	}
	return "", fmt.Errorf("unknown output policy %v", policy)
}
