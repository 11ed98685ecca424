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
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tkdb34st/capnproto/encoding/schemadesc"
	"github.com/tkdb34st/capnproto/encoding/schematext"
	"github.com/tkdb34st/capnproto/schema"
)

type cmdCompile struct {
	outPath string
}

func (*cmdCompile) help() *commandHelp {
	return &commandHelp{
		usage:   "compile [flags] FILE...",
		summary: "Compile schema files and print the resulting schema graph",
	}
}

func (cmd *cmdCompile) flags(flags *pflag.FlagSet) {
	importFlags(flags)
	flags.StringP("format", "f", "", "Output format: text, json or yaml (default text)")
	flags.StringVarP(&cmd.outPath, "output", "o", "", "Write output to this file instead of stdout")
}

// importFlags are shared by every command that compiles schema files.
func importFlags(flags *pflag.FlagSet) {
	flags.StringSliceP("import-path", "I", nil, "Search root for imports starting with '/' (repeatable)")
	flags.Bool("no-standard-import", false, "Don't search "+strings.Join(standardImportPath, " or "))
}

func (cmd *cmdCompile) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) < 1 {
		return usageError(env.stderr, cmd.help())
	}

	format := env.cfg.Format
	switch format {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(env.stderr, "Unsupported output format %q (choose 'text', 'json' or 'yaml')\n", format)
		return 1
	}

	files, ok := env.parseFiles(env.newParser(), argv)
	if !ok {
		return 1
	}

	output, err := encodeFiles(format, files)
	if err != nil {
		printError(env.stderr, err)
		return 1
	}
	if err := env.writeOutput(cmd.outPath, output); err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}
	return 0
}

func encodeFiles(format string, files []*schema.Node) ([]byte, error) {
	if format == "text" {
		var buf strings.Builder
		for _, file := range files {
			if err := schematext.EncodeTo(file, &buf); err != nil {
				return nil, err
			}
		}
		return []byte(buf.String()), nil
	}

	req, err := schemadesc.Describe(files...)
	if err != nil {
		return nil, err
	}
	if format == "yaml" {
		return req.YAML()
	}
	return req.JSON()
}
