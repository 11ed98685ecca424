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

package dynamic

import (
	"errors"
	"fmt"

	"github.com/tkdb34st/capnproto/schema"
)

type Error struct {
	code     uint32
	kind     schema.ErrorKind
	message  string
	location schema.Location
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	if err.location.File == "" {
		return fmt.Sprintf("E%d: %s", err.code, err.message)
	}
	return fmt.Sprintf("%s: E%d: %s", err.location, err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Kind() schema.ErrorKind {
	return err.kind
}

func (err *Error) Message() string {
	return err.message
}

// Location is the declaration being evaluated, if known.
func (err *Error) Location() schema.Location {
	return err.location
}

// KindOf classifies err, or returns [schema.ErrOther] if no error in its
// chain carries a kind.
func KindOf(err error) schema.ErrorKind {
	var kinded interface{ Kind() schema.ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return schema.ErrOther
}

func errUnresolvedSymbol(loc schema.Location, name string) error {
	return &Error{
		code:     5000,
		kind:     schema.ErrUnresolvedSymbol,
		message:  fmt.Sprintf("Unresolved symbol %q", name),
		location: loc,
	}
}

func errTypeMismatch(loc schema.Location, format string, args ...any) error {
	return &Error{
		code:     5001,
		kind:     schema.ErrTypeMismatch,
		message:  fmt.Sprintf(format, args...),
		location: loc,
	}
}

func errUnresolvedField(loc schema.Location, structNode *schema.Node, name string) error {
	return &Error{
		code:     5002,
		kind:     schema.ErrUnresolvedField,
		message:  fmt.Sprintf("Struct %s has no field %q", structNode.DisplayName(), name),
		location: loc,
	}
}

func errDuplicateField(loc schema.Location, name string) error {
	return &Error{
		code:     5003,
		message:  fmt.Sprintf("Field %q is set more than once", name),
		location: loc,
	}
}

func errConstCycle(loc schema.Location, node *schema.Node) error {
	return &Error{
		code:     5004,
		message:  fmt.Sprintf("Const %s depends on itself", node.DisplayName()),
		location: loc,
	}
}

func errNotAConst(loc schema.Location, node *schema.Node) error {
	return &Error{
		code:     5005,
		kind:     schema.ErrTypeMismatch,
		message:  fmt.Sprintf("%s is a %s, not a const", node.DisplayName(), node.Kind()),
		location: loc,
	}
}
