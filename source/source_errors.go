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

package source

import (
	"fmt"
	"strings"

	"github.com/tkdb34st/capnproto/schema"
)

// NotFoundError reports an import that matched no file. Roots lists every
// directory tried, in order.
type NotFoundError struct {
	Specifier string
	Roots     []string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

func (err *NotFoundError) Code() uint32 {
	return 6000
}

func (err *NotFoundError) Message() string {
	return fmt.Sprintf(
		"Import %q not found (searched: %s)",
		err.Specifier,
		strings.Join(err.Roots, ", "),
	)
}

func (err *NotFoundError) Kind() schema.ErrorKind {
	return schema.ErrFileNotFound
}

// ReadError wraps a failure from a [Reader].
type ReadError struct {
	Path string
	Err  error
}

func (err *ReadError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

func (err *ReadError) Code() uint32 {
	return 6001
}

func (err *ReadError) Message() string {
	return fmt.Sprintf("Failed to read %q: %v", err.Path, err.Err)
}

func (err *ReadError) Kind() schema.ErrorKind {
	return schema.ErrFileNotFound
}

func (err *ReadError) Unwrap() error {
	return err.Err
}
