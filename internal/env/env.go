// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"os"
	"path/filepath"

	"github.com/goplus/alsoft/internal/build"
)

const (
	// OutDirVar names the scratch directory of the invoking build.
	OutDirVar = "OUT_DIR"
	// ProfileVar selects the profile; it wins over CargoProfileVar.
	ProfileVar = "ALSOFT_PROFILE"
	// CargoProfileVar is set by cargo for build scripts.
	CargoProfileVar = "PROFILE"
)

// WorkDir is the fallback build root when OUT_DIR is not set.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".alsoft"), nil
}

// OutDir returns the build root: $OUT_DIR if set, WorkDir otherwise.
func OutDir() (string, error) {
	if dir := os.Getenv(OutDirVar); dir != "" {
		return dir, nil
	}
	return WorkDir()
}

// SourceDir is where the OpenAL-Soft tree is cloned under outDir.
func SourceDir(outDir string) string {
	return filepath.Join(outDir, "openal-soft")
}

// ProfileFromEnv reads the profile selector. Neither variable set means
// Release.
func ProfileFromEnv() (build.Profile, error) {
	for _, key := range []string{ProfileVar, CargoProfileVar} {
		if v := os.Getenv(key); v != "" {
			return build.ParseProfile(v)
		}
	}
	return build.Release, nil
}
