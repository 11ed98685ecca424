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

	"github.com/spf13/pflag"

	"github.com/tkdb34st/capnproto/compiler"
)

type cmdID struct{}

func (*cmdID) help() *commandHelp {
	return &commandHelp{
		usage:   "id",
		summary: "Generate a new random file ID",
	}
}

func (*cmdID) flags(flags *pflag.FlagSet) {}

func (cmd *cmdID) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) != 0 {
		return usageError(env.stderr, cmd.help())
	}
	fmt.Fprintf(env.stdout, "@%s;\n", compiler.GenerateID())
	return 0
}
