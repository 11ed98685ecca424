// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/tkdb34st/capnproto/compiler"
	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/source"
)

var (
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
)

// printError writes each error of a compiler.ErrorList on its own line.
func printError(w io.Writer, err error) {
	var list compiler.ErrorList
	if !errors.As(err, &list) {
		errorColor.Fprintln(w, err)
		return
	}
	for _, item := range list {
		errorColor.Fprintln(w, item)
	}
}

func printWarnings(w io.Writer, warnings []*compiler.Warning) {
	for _, warning := range warnings {
		warningColor.Fprintln(w, warning)
	}
}

// parseFiles compiles every path, printing errors as it goes, and stops at
// the first file that fails.
func (env *cmdEnv) parseFiles(p *compiler.Parser, paths []string) ([]*schema.Node, bool) {
	reader := source.NewFsReader(env.fs)
	importPath := env.cfg.importPath()

	var files []*schema.Node
	for _, filePath := range paths {
		display := path.Clean(filepath.ToSlash(filePath))
		file, err := p.ParseDiskFile(display, display, importPath, reader)
		if err != nil {
			printWarnings(env.stderr, p.Warnings())
			printError(env.stderr, err)
			return nil, false
		}
		files = append(files, file)
	}
	printWarnings(env.stderr, p.Warnings())
	return files, true
}

func (env *cmdEnv) newParser() *compiler.Parser {
	return compiler.NewParser(compiler.WithLogger(env.log))
}

// writeOutput writes to stdout if outPath is empty.
func (env *cmdEnv) writeOutput(outPath string, output []byte) error {
	if outPath == "" {
		_, err := env.stdout.Write(output)
		return err
	}
	return afero.WriteFile(env.fs, outPath, output, 0o666)
}

func usageError(w io.Writer, help *commandHelp) int {
	fmt.Fprintf(w, "usage: schemac %s\n", help.usage)
	return 1
}
