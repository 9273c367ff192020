// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package lockedfile

import "os"

// No advisory locking on this platform; concurrent builds are not
// serialized.
const supported = false

func lockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) error { return nil }
