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

package schema

// ErrorKind classifies failures across the source, compiler and dynamic
// packages.
type ErrorKind uint8

const (
	ErrOther ErrorKind = iota
	ErrFileNotFound
	ErrParseError
	ErrDuplicateId
	ErrUnresolvedSymbol
	ErrTypeMismatch
	ErrUnresolvedField
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrParseError:
		return "ParseError"
	case ErrDuplicateId:
		return "DuplicateId"
	case ErrUnresolvedSymbol:
		return "UnresolvedSymbol"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrUnresolvedField:
		return "UnresolvedField"
	default:
		return "Other"
	}
}
