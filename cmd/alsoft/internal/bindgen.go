// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"

	"github.com/goplus/alsoft/internal/bindgen"
	"github.com/goplus/alsoft/internal/bindings"
	"github.com/goplus/alsoft/internal/config"
	"github.com/spf13/cobra"
)

var (
	bindgenPackage string
	bindgenFile    string
	bindgenClang   string
	bindgenDefines map[string]string
)

var bindgenCmd = &cobra.Command{
	Use:   "bindgen <srcdir> <outdir>",
	Short: "Generate cgo bindings for the OpenAL-Soft headers",
	Long: `Bindgen reads al.h, alc.h, alext.h, efx.h and efx-presets.h from
<srcdir>/include/AL through clang and writes one Go file of cgo bindings
into <outdir>. Integer macros are typed int32. Unset flags fall back to the
bindings section of the config file.`,
	Args: cobra.ExactArgs(2),
	RunE: runBindgen,
}

func init() {
	flags := bindgenCmd.Flags()
	flags.StringVar(&bindgenPackage, "package", "", "Package name of the generated file (default "+bindings.DefaultPackage+")")
	flags.StringVar(&bindgenFile, "file", "", "Name of the generated file (default "+bindings.DefaultFile+")")
	flags.StringVar(&bindgenClang, "clang", "", "Clang executable used to read the headers (default "+bindgen.DefaultClang+")")
	flags.StringToStringVarP(&bindgenDefines, "define", "D", nil, "Predefine a macro while reading the headers, NAME=VALUE")
	rootCmd.AddCommand(bindgenCmd)
}

func runBindgen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	e := &bindings.Emitter{
		Package: cfg.Bindings.Package,
		File:    cfg.Bindings.File,
		Defines: map[string]string{},
		Clang:   cfg.Bindings.Clang,
	}
	if bindgenPackage != "" {
		e.Package = bindgenPackage
	}
	if bindgenFile != "" {
		e.File = bindgenFile
	}
	if bindgenClang != "" {
		e.Clang = bindgenClang
	}
	for k, v := range cfg.Bindings.Defines {
		e.Defines[k] = v
	}
	for k, v := range bindgenDefines {
		e.Defines[k] = v
	}
	path, err := e.Emit(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
