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

package schematext_test

import (
	"testing"

	"github.com/tkdb34st/capnproto/compiler"
	"github.com/tkdb34st/capnproto/dynamic"
	"github.com/tkdb34st/capnproto/encoding/schematext"
	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/source"
)

const mainSchema = `@0x8123456789abcdef;

using Dep = import "dep.capnp";

annotation tag @0x9000000000000010 (field, struct, enumerant) :Text;

struct Foo @0x9000000000000011 $tag("foo") {
  bar @0 :Int16 = -5;
  baz @1 :Text $tag("baz");
  dep @2 :Dep.Dep;
  list @3 :List(Float32) = [1.5, inf];

  enum Color @0x9000000000000012 {
    red @0;
    green @1 $tag("g");
  }
}

interface Store @0x9000000000000013 {
  get @0 (key :Text) -> (value :Data);
}

const answer @0x9000000000000014 :Foo = (bar = 42, list = [2.5]);
`

const expectText = `file "main.capnp" {
	id = 0x8123456789abcdef
	dependencies = [
		"dep.capnp"
	]
	annotation tag {
		id = 0x9000000000000010
		type = Text
		targets = [field, struct, enumerant]
	}
	struct Foo {
		id = 0x9000000000000011
		dependencies = [
			"main.capnp:tag"
			"dep.capnp:Dep"
		]
		$main.capnp:tag = "foo"
		field bar {
			ordinal = 0
			type = Int16
			default = -5
		}
		field baz {
			ordinal = 1
			type = Text
			$main.capnp:tag = "baz"
		}
		field dep {
			ordinal = 2
			type = dep.capnp:Dep
		}
		field list {
			ordinal = 3
			type = List(Float32)
			default = [1.5, inf]
		}
		enum Color {
			id = 0x9000000000000012
			dependencies = [
				"main.capnp:tag"
			]
			enumerant red = 0
			enumerant green {
				ordinal = 1
				$main.capnp:tag = "g"
			}
		}
	}
	interface Store {
		id = 0x9000000000000013
		method get {
			ordinal = 0
			param key = Text
			result value = Data
		}
	}
	const answer {
		id = 0x9000000000000014
		dependencies = [
			"main.capnp:Foo"
		]
		type = main.capnp:Foo
		value = (bar = 42, list = [2.5])
	}
}
`

func compile(t *testing.T, files map[string]string) *schema.Node {
	t.Helper()
	r := source.NewFsReader(testutil.NewFs(t, files))
	p := compiler.NewParser()
	file, err := p.ParseDiskFile("main.capnp", "main.capnp", nil, r)
	testutil.AssertNoError(t, err)
	return file
}

func TestEncode(t *testing.T) {
	t.Parallel()

	file := compile(t, map[string]string{
		"main.capnp": mainSchema,
		"dep.capnp":  "@0x9000000000000001;\nstruct Dep @0x9000000000000002 {}\n",
	})
	got, err := schematext.Encode(file)
	testutil.AssertNoError(t, err)
	testutil.ExpectNoDiff(t, expectText, got)
}

func TestEncodeBadConst(t *testing.T) {
	t.Parallel()

	file := compile(t, map[string]string{
		"main.capnp": "@0x8123456789abcdef;\nconst big :UInt8 = 300;\n",
	})
	_, err := schematext.Encode(file)
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, schema.ErrTypeMismatch, dynamic.KindOf(err))
}
