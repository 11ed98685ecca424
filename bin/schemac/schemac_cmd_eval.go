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

	"github.com/tkdb34st/capnproto/dynamic"
	"github.com/tkdb34st/capnproto/schema"
)

type cmdEval struct{}

func (*cmdEval) help() *commandHelp {
	return &commandHelp{
		usage:   "eval [flags] FILE NAME",
		summary: "Print the value of a constant, such as Outer.Inner.limit",
	}
}

func (*cmdEval) flags(flags *pflag.FlagSet) {
	importFlags(flags)
}

func (cmd *cmdEval) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) != 2 {
		return usageError(env.stderr, cmd.help())
	}

	files, ok := env.parseFiles(env.newParser(), argv[:1])
	if !ok {
		return 1
	}

	node := files[0]
	for _, name := range strings.Split(argv[1], ".") {
		nested, ok := node.Nested(name)
		if !ok {
			fmt.Fprintf(env.stderr, "%s has no member named '%s'\n", node.DisplayName(), name)
			return 1
		}
		node = nested
	}
	if node.Kind() != schema.KindConst {
		fmt.Fprintf(env.stderr, "%s is a %s, not a const\n", node.DisplayName(), node.Kind())
		return 1
	}

	value, err := dynamic.Const(node)
	if err != nil {
		errorColor.Fprintln(env.stderr, err)
		return 1
	}
	fmt.Fprintln(env.stdout, value)
	return 0
}
