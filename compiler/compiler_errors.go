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

package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/syntax"
)

type Error struct {
	code     uint32
	kind     schema.ErrorKind
	message  string
	location schema.Location
	cause    error
}

var _ error = (*Error)(nil)

// Error is one line per diagnostic. An import failure is followed by the
// errors of the imported file, each with its own location.
func (err *Error) Error() string {
	line := fmt.Sprintf("%s: E%d: %s", err.location, err.code, err.message)
	var nested ErrorList
	if err.code == 3009 && errors.As(err.cause, &nested) {
		return line + "\n" + nested.Error()
	}
	return line
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

func (err *Error) Location() schema.Location {
	return err.location
}

func (err *Error) Unwrap() error {
	return err.cause
}

// ErrorList is every error found while compiling one file.
type ErrorList []*Error

func (errs ErrorList) Error() string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

func (errs ErrorList) Unwrap() []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, err)
	}
	return out
}

// KindOf classifies err by the first error in its chain that carries a
// kind, or returns [schema.ErrOther].
func KindOf(err error) schema.ErrorKind {
	var kinded interface{ Kind() schema.ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return schema.ErrOther
}

func errMissingFileID(loc schema.Location, suggested schema.ID) *Error {
	return &Error{
		code:     3000,
		message:  fmt.Sprintf("File has no ID; add `@%s;` to the top of the file", suggested),
		location: loc,
	}
}

func errInvalidID(loc schema.Location, raw string) *Error {
	return &Error{
		code:     3001,
		message:  fmt.Sprintf("Invalid ID %s; IDs must be 64-bit with the high bit set", raw),
		location: loc,
	}
}

func errDuplicateID(loc schema.Location, id schema.ID, prev *schema.Node) *Error {
	return &Error{
		code: 3002,
		kind: schema.ErrDuplicateId,
		message: fmt.Sprintf(
			"Duplicate ID %s; also used by %s at %s",
			id, prev.DisplayName(), prev.Location(),
		),
		location: loc,
	}
}

func errDuplicateName(loc schema.Location, name string, prev schema.Location) *Error {
	return &Error{
		code:     3003,
		message:  fmt.Sprintf("Name '%s' is already defined at %s", name, prev),
		location: loc,
	}
}

func errUnresolvedSymbol(loc schema.Location, name string) *Error {
	return &Error{
		code:     3004,
		kind:     schema.ErrUnresolvedSymbol,
		message:  fmt.Sprintf("Unresolved symbol '%s'", name),
		location: loc,
	}
}

func errNotAType(loc schema.Location, name string, kind schema.Kind) *Error {
	return &Error{
		code:     3005,
		message:  fmt.Sprintf("'%s' is a %s, not a type", name, kind),
		location: loc,
	}
}

func errDuplicateOrdinal(loc schema.Location, container string, ordinal uint16, prevName string) *Error {
	return &Error{
		code:     3006,
		message:  fmt.Sprintf("Ordinal @%d in %s is already used by '%s'", ordinal, container, prevName),
		location: loc,
	}
}

func errOrdinalOutOfRange(loc schema.Location, raw string) *Error {
	return &Error{
		code:     3007,
		message:  fmt.Sprintf("Ordinal @%s out of range [0, 65535]", raw),
		location: loc,
	}
}

func errImportNotFound(loc schema.Location, cause error) *Error {
	return &Error{
		code:     causeCode(cause, 3008),
		kind:     schema.ErrFileNotFound,
		message:  unwrapMessage(cause),
		location: loc,
		cause:    cause,
	}
}

func errImportFailed(loc schema.Location, specifier string, cause error) *Error {
	return &Error{
		code:     3009,
		kind:     KindOf(cause),
		message:  fmt.Sprintf("Failed to compile import %q", specifier),
		location: loc,
		cause:    cause,
	}
}

func errParse(display string, cause error) *Error {
	loc := schema.Location{File: display}
	var syntaxErr *syntax.Error
	if errors.As(cause, &syntaxErr) {
		loc.Line = syntaxErr.Line()
		loc.Column = syntaxErr.Column()
	}
	return &Error{
		code:     causeCode(cause, 3010),
		kind:     schema.ErrParseError,
		message:  unwrapMessage(cause),
		location: loc,
		cause:    cause,
	}
}

func errRead(display string, cause error) *Error {
	return &Error{
		code:     causeCode(cause, 3011),
		kind:     schema.ErrFileNotFound,
		message:  unwrapMessage(cause),
		location: schema.Location{File: display},
		cause:    cause,
	}
}

func errNotAnAnnotation(loc schema.Location, node *schema.Node) *Error {
	return &Error{
		code:     3012,
		message:  fmt.Sprintf("%s is a %s, not an annotation", node.DisplayName(), node.Kind()),
		location: loc,
	}
}

func errAnnotationTarget(loc schema.Location, node *schema.Node, target string) *Error {
	return &Error{
		code: 3013,
		message: fmt.Sprintf(
			"Annotation %s cannot be applied to a %s (targets: %s)",
			node.DisplayName(), target, strings.Join(node.Targets(), ", "),
		),
		location: loc,
	}
}

func errListParam(loc schema.Location, name string) *Error {
	var message string
	if name == "List" {
		message = "List requires an element type, as in List(T)"
	} else {
		message = fmt.Sprintf("Type '%s' does not take a parameter", name)
	}
	return &Error{
		code:     3014,
		message:  message,
		location: loc,
	}
}

func errAliasCycle(loc schema.Location, name string) *Error {
	return &Error{
		code:     3015,
		kind:     schema.ErrUnresolvedSymbol,
		message:  fmt.Sprintf("Alias '%s' refers to itself", name),
		location: loc,
	}
}

// Errors from the syntax and source packages keep their own code and
// message, with the compiler supplying the location.
func causeCode(err error, fallback uint32) uint32 {
	var coded interface{ Code() uint32 }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return fallback
}

func unwrapMessage(err error) string {
	var coded interface{ Message() string }
	if errors.As(err, &coded) {
		return coded.Message()
	}
	return err.Error()
}
