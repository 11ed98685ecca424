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
	"testing"

	"github.com/spf13/afero"

	"github.com/tkdb34st/capnproto/compiler"
	"github.com/tkdb34st/capnproto/encoding/schemadesc"
	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/source"
)

const addrBook = `@0x8123456789abcdef;

using Dep = import "dep.capnp";

struct Person @0x9000000000000010 {
  name @0 :Text;
  emails @1 :List(Text);
  mood @2 :Mood;
  extra @3 :Dep.Extra;

  enum Mood @0x9000000000000011 {
    happy @0;
    sad @1;
  }
}

interface Directory @0x9000000000000012 {
  lookup @0 (name :Text, type :UInt8) -> (person :Person);
}

const maxPeople @0x9000000000000013 :UInt64 = 18446744073709551615;
const defaultMood @0x9000000000000014 :Person.Mood = sad;
const greeting @0x9000000000000015 :Text = "hi \"there\"";
const nobody @0x9000000000000016 :Person = (name = "nobody");
`

func request(t *testing.T) []byte {
	t.Helper()
	r := source.NewFsReader(testutil.NewFs(t, map[string]string{
		"proto/addr-book.capnp": addrBook,
		"proto/dep.capnp":       "@0x9000000000000001;\nstruct Extra @0x9000000000000002 {}\n",
	}))
	file, err := compiler.NewParser().ParseDiskFile(
		"proto/addr-book.capnp", "proto/addr-book.capnp", nil, r)
	testutil.AssertNoError(t, err)
	req, err := schemadesc.Describe(file)
	testutil.AssertNoError(t, err)
	buf, err := req.JSON()
	testutil.AssertNoError(t, err)
	return buf
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	resp, rc := handleRequest(request(t))
	testutil.AssertEq(t, uint32(0), rc)
	testutil.AssertEq(t, 1, len(resp.Files))
	testutil.ExpectSliceEq(t, []string{"addr_book.go"}, resp.Files[0].Path)

	got := string(resp.Files[0].Content)
	for _, want := range []string{
		`^// Code generated by schemac-codegen-go from proto/addr-book.capnp. DO NOT EDIT.\n\npackage addr_book\n`,
		`(?m)^import \(\n\t"context"\n\t"strconv"\n\)$`,
		`(?m)^type Person struct \{\n\tName\s+string\n\tEmails\s+\[\]string\n\tMood\s+Person_Mood\n\tExtra\s+any\n\}$`,
		`(?m)^type Person_Mood uint16$`,
		`(?m)^\tPerson_Mood_sad\s+Person_Mood = 1$`,
		`(?m)^\tcase Person_Mood_happy:\n\t\treturn "happy"$`,
		`(?m)^\tLookup\(ctx context.Context, name string, type_ uint8\) \(person Person, err error\)$`,
		`(?m)^const MaxPeople uint64 = 18446744073709551615$`,
		`(?m)^const DefaultMood Person_Mood = Person_Mood_sad$`,
		`(?m)^const Greeting string = "hi \\"there\\""$`,
		`(?m)^// proto/addr-book.capnp:nobody has no Go constant form.$`,
	} {
		testutil.ExpectMatch(t, want, got)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	resp, rc := handleRequest([]byte("{"))
	testutil.ExpectEq(t, uint32(1), rc)
	testutil.ExpectMatch(t, "^invalid codegen request: ", resp.Error)

	resp, rc = handleRequest([]byte(`{"requested": ["0x8123456789abcdef"]}`))
	testutil.ExpectEq(t, uint32(1), rc)
	testutil.ExpectEq(t, "Requested file 0x8123456789abcdef is missing from the request", resp.Error)

	resp, rc = handleRequest([]byte(`{}`))
	testutil.ExpectEq(t, uint32(1), rc)
	testutil.ExpectEq(t, "No files requested", resp.Error)
}

func TestGoPackage(t *testing.T) {
	t.Parallel()

	testutil.ExpectEq(t, "addr_book", goPackage("proto/addr-book.capnp"))
	testutil.ExpectEq(t, "schema_2d", goPackage("2d.capnp"))
	testutil.ExpectEq(t, "schema_type", goPackage("type.capnp"))
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	resp := &schemadesc.Response{Files: []*schemadesc.OutputFile{
		{Path: []string{"pkg", "a.go"}, Content: []byte("package pkg\n")},
	}}
	testutil.AssertNoError(t, writeFiles(fs, "/out", resp))
	got, err := afero.ReadFile(fs, "/out/pkg/a.go")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "package pkg\n", string(got))
}
