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

package source_test

import (
	"errors"
	"testing"

	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/source"
)

var searchRoots = []string{"/usr/include", "/usr/local/include", "/opt/include"}

func newReader(t *testing.T) source.Reader {
	return source.NewFsReader(testutil.NewFs(t, map[string]string{
		"src/foo/bar.capnp":               "",
		"src/foo/baz.capnp":               "",
		"src/qux/corge.capnp":             "",
		"/usr/include/grault.capnp":       "",
		"/opt/include/grault.capnp":       "",
		"/usr/local/include/garply.capnp": "",
	}))
}

func TestImport(t *testing.T) {
	t.Parallel()

	bar := source.NewDiskFile("foo2/bar2.capnp", "src/foo/bar.capnp", searchRoots, newReader(t))

	tests := []struct {
		specifier string
		canonical string
		display   string
	}{
		{"baz.capnp", "src/foo/baz.capnp", "foo2/baz.capnp"},
		{"../qux/corge.capnp", "src/qux/corge.capnp", "qux/corge.capnp"},
		{"/grault.capnp", "/usr/include/grault.capnp", "grault.capnp"},
		{"/garply.capnp", "/usr/local/include/garply.capnp", "garply.capnp"},
	}
	for _, test := range tests {
		t.Run(test.specifier, func(t *testing.T) {
			file, err := bar.Import(test.specifier)
			testutil.AssertNoError(t, err)
			testutil.ExpectEq(t, test.canonical, file.CanonicalPath())
			testutil.ExpectEq(t, test.display, file.DisplayName())
			testutil.ExpectSliceEq(t, searchRoots, file.ImportPath())
		})
	}
}

func TestImportNotFound(t *testing.T) {
	t.Parallel()

	bar := source.NewDiskFile("bar.capnp", "src/foo/bar.capnp", searchRoots, newReader(t))

	_, err := bar.Import("/missing.capnp")
	var notFound *source.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *source.NotFoundError, got %v", err)
	}
	testutil.ExpectEq(t, "/missing.capnp", notFound.Specifier)
	testutil.ExpectSliceEq(t, searchRoots, notFound.Roots)
	testutil.ExpectEq(t, schema.ErrFileNotFound, notFound.Kind())
	testutil.ExpectEq(t,
		`E6000: Import "/missing.capnp" not found (searched: /usr/include, /usr/local/include, /opt/include)`,
		err.Error(),
	)

	_, err = bar.Import("missing.capnp")
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *source.NotFoundError, got %v", err)
	}
	testutil.ExpectSliceEq(t, []string{"src/foo"}, notFound.Roots)
}

func TestDirectoryDoesNotExist(t *testing.T) {
	t.Parallel()

	reader := newReader(t)
	testutil.ExpectTrue(t, reader.Exists("src/foo/bar.capnp"))
	testutil.ExpectFalse(t, reader.Exists("src/foo"))
}

func TestReadContent(t *testing.T) {
	t.Parallel()

	reader := source.NewFsReader(testutil.NewFs(t, map[string]string{
		"a.capnp": "@0x8123456789abcdef;\n",
	}))
	content, err := source.NewDiskFile("a.capnp", "./a.capnp", nil, reader).ReadContent()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "@0x8123456789abcdef;\n", string(content))

	_, err = source.NewDiskFile("b.capnp", "b.capnp", nil, reader).ReadContent()
	var readErr *source.ReadError
	testutil.ExpectTrue(t, errors.As(err, &readErr))
}
