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
	"github.com/spf13/afero"
)

type fsReader struct {
	fs afero.Fs
}

// NewFsReader adapts an afero filesystem. Directories do not exist as far
// as the reader is concerned.
func NewFsReader(fs afero.Fs) Reader {
	return &fsReader{fs: fs}
}

func (r *fsReader) Exists(path string) bool {
	info, err := r.fs.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func (r *fsReader) Read(path string) ([]byte, error) {
	return afero.ReadFile(r.fs, path)
}
