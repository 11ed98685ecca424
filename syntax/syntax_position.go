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

package syntax

import (
	"sort"
)

type Position struct {
	Line   int
	Column int
}

// LineIndex maps byte offsets to 1-based line and column numbers. Columns
// count bytes, so a tab or a multi-byte rune advances the column by its
// encoded length.
type LineIndex struct {
	lineStarts []uint32
}

func NewLineIndex(src []byte) *LineIndex {
	starts := []uint32{0}
	for ii, c := range src {
		if c == '\n' {
			starts = append(starts, uint32(ii+1))
		}
	}
	return &LineIndex{lineStarts: starts}
}

func (idx *LineIndex) Position(offset uint32) Position {
	line := sort.Search(len(idx.lineStarts), func(ii int) bool {
		return idx.lineStarts[ii] > offset
	}) - 1
	return Position{
		Line:   line + 1,
		Column: int(offset-idx.lineStarts[line]) + 1,
	}
}
