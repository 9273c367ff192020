// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/goplus/alsoft/cmd/alsoft/internal"

func main() {
	internal.Execute()
}
