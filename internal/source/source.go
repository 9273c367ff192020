// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source makes a pinned checkout of a third-party repository
// available on disk.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/alsoft/internal/command"
	"github.com/goplus/alsoft/internal/lockedfile"
	"github.com/qiniu/x/log"
)

// VCS is the subset of a version control client the fetcher needs.
type VCS interface {
	// Clone makes a shallow, single-branch checkout of ref into dir.
	Clone(ctx context.Context, remote, ref, dir string) command.Result
	// Clean force-removes untracked and ignored files under dir.
	Clean(ctx context.Context, dir string) command.Result
}

// Tree is a source tree on disk.
type Tree struct {
	Dir string
	Ref string
	// Verified is false when the tree was reused without a version
	// marker, so its checkout may not match Ref.
	Verified bool
}

// Error reports that neither a clone nor the cleanup of an existing tree
// succeeded.
type Error struct {
	Dir   string
	Clone command.Result
	Clean command.Result
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to fetch source into %s", e.Dir)
	if err := e.Clone.Error(); err != nil && e.Clone.Cmd.Name != "" {
		fmt.Fprintf(&b, ": %v", err)
	}
	fmt.Fprintf(&b, "; cleanup: %v", e.Clean.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Clean.Error() }

// Fetcher ensures Dir holds a checkout of Remote at Ref.
type Fetcher struct {
	VCS    VCS
	Remote string
	Ref    string
	Dir    string
}

// MarkerPath returns the file recording which ref the tree at dir was
// cloned from. It sits next to dir so that cleaning the tree keeps it.
func MarkerPath(dir string) string {
	return filepath.Clean(dir) + ".ref"
}

func lockPath(dir string) string {
	return filepath.Clean(dir) + ".lock"
}

// Fetch clones the tree, or reuses and cleans the one already present.
//
// A tree whose marker matches Ref is cleaned and reused without a clone.
// A tree whose marker names another ref is removed and cloned again.
// Without a marker, a failed clone is taken to mean the tree already
// exists: it is cleaned and reused, and a failing cleanup is fatal.
func (f *Fetcher) Fetch(ctx context.Context) (*Tree, error) {
	if f.Dir == "" || f.Ref == "" || f.Remote == "" {
		return nil, errors.New("source: Remote, Ref and Dir must be set")
	}

	unlock, err := lockedfile.MutexAt(lockPath(f.Dir)).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	marker, err := readMarker(f.Dir)
	if err != nil {
		return nil, err
	}

	switch {
	case marker == f.Ref:
		if _, err := os.Stat(f.Dir); err == nil {
			log.Infof("reusing %s at %s", f.Dir, f.Ref)
			if clean := f.VCS.Clean(ctx, f.Dir); !clean.OK() {
				return nil, &Error{Dir: f.Dir, Clean: clean}
			}
			return &Tree{Dir: f.Dir, Ref: f.Ref, Verified: true}, nil
		}
		// stale marker, the tree itself is gone
		if err := os.Remove(MarkerPath(f.Dir)); err != nil {
			return nil, err
		}
	case marker != "":
		log.Warnf("%s holds %s, want %s: cloning again", f.Dir, marker, f.Ref)
		if err := os.RemoveAll(f.Dir); err != nil {
			return nil, fmt.Errorf("remove stale tree: %w", err)
		}
		if err := os.Remove(MarkerPath(f.Dir)); err != nil {
			return nil, err
		}
	}

	log.Infof("cloning %s@%s into %s", f.Remote, f.Ref, f.Dir)
	clone := f.VCS.Clone(ctx, f.Remote, f.Ref, f.Dir)
	if clone.OK() {
		if err := writeMarker(f.Dir, f.Ref); err != nil {
			return nil, err
		}
		return &Tree{Dir: f.Dir, Ref: f.Ref, Verified: true}, nil
	}

	log.Debugf("clone failed, treating %s as already present: %v", f.Dir, clone.Error())
	clean := f.VCS.Clean(ctx, f.Dir)
	if !clean.OK() {
		return nil, &Error{Dir: f.Dir, Clone: clone, Clean: clean}
	}
	log.Warnf("reusing %s without a version marker; it may not be at %s", f.Dir, f.Ref)
	return &Tree{Dir: f.Dir, Ref: f.Ref}, nil
}

func readMarker(dir string) (string, error) {
	data, err := os.ReadFile(MarkerPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeMarker(dir, ref string) error {
	return os.WriteFile(MarkerPath(dir), []byte(ref+"\n"), 0o644)
}
