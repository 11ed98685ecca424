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

// Package source locates schema files and reads their contents.
package source

import (
	"path"
	"slices"
	"strings"
)

// Reader is the byte source that schema files are read from.
type Reader interface {
	Exists(path string) bool

	// Read fails if path does not exist.
	Read(path string) ([]byte, error)
}

// Resolve maps an import specifier to a canonical path and a display name.
//
// A specifier starting with "/" is looked up under each root in order, and
// the first root containing it wins. Other specifiers are relative to
// currentDir (for the canonical path) and currentDisplayDir (for the
// display name).
func Resolve(
	specifier string,
	currentDir string,
	currentDisplayDir string,
	roots []string,
	r Reader,
) (canonical, display string, err error) {
	if rel, ok := strings.CutPrefix(specifier, "/"); ok {
		for _, root := range roots {
			candidate := path.Join(root, rel)
			if r.Exists(candidate) {
				return candidate, path.Clean(rel), nil
			}
		}
		return "", "", &NotFoundError{
			Specifier: specifier,
			Roots:     slices.Clone(roots),
		}
	}

	candidate := path.Join(currentDir, specifier)
	if !r.Exists(candidate) {
		return "", "", &NotFoundError{
			Specifier: specifier,
			Roots:     []string{currentDir},
		}
	}
	return candidate, path.Join(currentDisplayDir, specifier), nil
}

// File is a schema file that has been located but not necessarily read.
type File struct {
	displayName string
	path        string
	importPath  []string
	reader      Reader
}

// NewDiskFile returns the file at path, shown to users as displayName.
// Root-absolute imports from it are searched for under importPath.
func NewDiskFile(displayName, filePath string, importPath []string, r Reader) *File {
	return &File{
		displayName: displayName,
		path:        path.Clean(filePath),
		importPath:  importPath,
		reader:      r,
	}
}

func (f *File) DisplayName() string {
	return f.displayName
}

// CanonicalPath identifies the underlying file. It is never shown in
// diagnostics.
func (f *File) CanonicalPath() string {
	return f.path
}

func (f *File) ImportPath() []string {
	return f.importPath
}

func (f *File) ReadContent() ([]byte, error) {
	content, err := f.reader.Read(f.path)
	if err != nil {
		return nil, &ReadError{Path: f.displayName, Err: err}
	}
	return content, nil
}

// Import resolves a specifier found in this file.
func (f *File) Import(specifier string) (*File, error) {
	canonical, display, err := Resolve(
		specifier,
		path.Dir(f.path),
		path.Dir(f.displayName),
		f.importPath,
		f.reader,
	)
	if err != nil {
		return nil, err
	}
	return &File{
		displayName: display,
		path:        canonical,
		importPath:  f.importPath,
		reader:      f.reader,
	}, nil
}
