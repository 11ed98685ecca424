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

package syntax_test

import (
	"testing"

	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/syntax"
)

const barSchema = `# Top-level comment.
@0x8123456789abcdef;

using Corge = import "../qux/corge.capnp".Corge;

struct Bar @0x9000000000000001 {
  baz @0 :import "baz.capnp".Baz;
  corge @1 :Corge;
  names @2 :List(Text) = ["a", "b"];
  count @3 :UInt32 = 7 $tag("counter");

  enum Color {
    red @0;
    green @1;
  }
}

interface Store {
  get @0 (key :Text) -> (value :Data);
  put @1 (key :Text, value :Data) -> ();
}

annotation tag(field, struct) :Text;

const listConst :List(Float32) = [1.25, 2.5, 3e4];
const structConst :Foo = (bar = 123, baz: "qux");
`

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	src := []byte(barSchema)
	file, err := syntax.Parse(src)
	testutil.AssertNoError(t, err)
	testutil.ExpectNoDiff(t, string(src), syntax.Unparse(file))
	testutil.ExpectEq(t, uint32(0), file.Span().Start())
	testutil.ExpectEq(t, uint32(len(src)), file.Span().Len())
	testutil.ExpectEq(t, uint32(len(src)), file.Span().End())
	testutil.ExpectEq(t, syntax.NewSpan(0, uint32(len(src))), file.Span())
}

func TestParseDecls(t *testing.T) {
	t.Parallel()

	file, err := syntax.Parse([]byte(barSchema))
	testutil.AssertNoError(t, err)

	id, ok := file.ID().Value().GetUint64()
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, uint64(0x8123456789abcdef), id)

	decls := file.Decls()
	testutil.AssertEq(t, 6, len(decls))

	using := decls[0].(*syntax.Using)
	testutil.ExpectEq(t, "Corge", using.Name().Get())
	importPath, _ := using.Target().ImportPath().GetText()
	testutil.ExpectEq(t, "../qux/corge.capnp", importPath)
	testutil.ExpectEq(t, "Corge", using.Target().Name().String())

	bar := decls[1].(*syntax.Struct)
	testutil.ExpectEq(t, "Bar", bar.Name().Get())
	barID, _ := bar.ID().Value().GetUint64()
	testutil.ExpectEq(t, uint64(0x9000000000000001), barID)

	fields := bar.Fields()
	testutil.AssertEq(t, 4, len(fields))
	testutil.ExpectEq(t, "baz", fields[0].Name().Get())
	bazImport, _ := fields[0].Type().ImportPath().GetText()
	testutil.ExpectEq(t, "baz.capnp", bazImport)
	testutil.ExpectEq(t, "Baz", fields[0].Type().Name().String())

	ordinal, _ := fields[1].Ordinal().Value().GetUint16()
	testutil.ExpectEq(t, uint16(1), ordinal)

	testutil.ExpectEq(t, "List", fields[2].Type().Name().String())
	testutil.ExpectEq(t, "Text", fields[2].Type().Param().Name().String())
	names := fields[2].DefaultValue().(*syntax.ListLit)
	testutil.ExpectEq(t, 2, len(names.Items()))

	count := fields[3]
	testutil.AssertEq(t, 1, len(count.Annotations()))
	testutil.ExpectEq(t, "tag", count.Annotations()[0].Name().String())
	tagValue, _ := count.Annotations()[0].Value().(*syntax.TextLit).GetText()
	testutil.ExpectEq(t, "counter", tagValue)

	testutil.AssertEq(t, 1, len(bar.Decls()))
	color := bar.Decls()[0].(*syntax.Enum)
	testutil.ExpectEq(t, "Color", color.Name().Get())
	testutil.ExpectEq(t, 2, len(color.Enumerants()))
	testutil.ExpectEq(t, "green", color.Enumerants()[1].Name().Get())

	store := decls[2].(*syntax.Interface)
	methods := store.Methods()
	testutil.AssertEq(t, 2, len(methods))
	testutil.ExpectEq(t, "get", methods[0].Name().Get())
	testutil.ExpectEq(t, 1, methods[0].Params().Len())
	testutil.ExpectEq(t, 1, methods[0].Results().Len())
	testutil.ExpectEq(t, 2, methods[1].Params().Len())
	testutil.ExpectEq(t, 0, methods[1].Results().Len())

	tag := decls[3].(*syntax.Annotation)
	testutil.ExpectSliceEq(t, []string{"field", "struct"}, tag.Targets())
	testutil.ExpectEq(t, "Text", tag.Type().Name().String())

	listConst := decls[4].(*syntax.Const)
	testutil.ExpectEq(t, "listConst", listConst.Name().Get())
	items := listConst.Value().(*syntax.ListLit).Items()
	testutil.AssertEq(t, 3, len(items))
	testutil.ExpectEq(t, 30000.0, items[2].(*syntax.FloatLit).Get())

	structConst := decls[5].(*syntax.Const)
	structFields := structConst.Value().(*syntax.StructLit).Fields()
	testutil.AssertEq(t, 2, len(structFields))
	testutil.ExpectEq(t, "bar", structFields[0].Name().Get())
	testutil.ExpectEq(t, "baz", structFields[1].Name().Get())
}

func TestParseWithoutTrivia(t *testing.T) {
	t.Parallel()

	src := "# comment\n@0x8123456789abcdef;\nconst  a :Int32 = 1;\n"
	file, err := syntax.Parse([]byte(src), syntax.WithoutTrivia())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "@0x8123456789abcdef;consta:Int32=1;", syntax.Unparse(file))
	testutil.ExpectEq(t, 1, len(file.Decls()))
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src    string
		expect func(t *testing.T, node syntax.Node)
	}{
		{"-5", func(t *testing.T, node syntax.Node) {
			v, ok := node.(*syntax.IntLit).GetInt8()
			testutil.ExpectTrue(t, ok)
			testutil.ExpectEq(t, int8(-5), v)
		}},
		{"1_000", func(t *testing.T, node syntax.Node) {
			v, _ := node.(*syntax.IntLit).GetUint32()
			testutil.ExpectEq(t, uint32(1000), v)
		}},
		{`"a\tb\u{263A}"`, func(t *testing.T, node syntax.Node) {
			v, ok := node.(*syntax.TextLit).GetText()
			testutil.ExpectTrue(t, ok)
			testutil.ExpectEq(t, "a\tb☺", v)
		}},
		{"Foo.bar", func(t *testing.T, node syntax.Node) {
			testutil.ExpectEq(t, "Foo.bar", node.(*syntax.Name).String())
		}},
		{"[ ]", func(t *testing.T, node syntax.Node) {
			testutil.ExpectEq(t, 0, len(node.(*syntax.ListLit).Items()))
		}},
		{"[1, 2,]", func(t *testing.T, node syntax.Node) {
			testutil.ExpectEq(t, 2, len(node.(*syntax.ListLit).Items()))
		}},
		{"(a = (b = [1]), c: d)", func(t *testing.T, node syntax.Node) {
			fields := node.(*syntax.StructLit).Fields()
			testutil.AssertEq(t, 2, len(fields))
			_, ok := fields[0].Value().(*syntax.StructLit)
			testutil.ExpectTrue(t, ok)
			testutil.ExpectEq(t, "d", fields[1].Value().(*syntax.Name).String())
		}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			node, err := syntax.ParseValue([]byte(test.src))
			testutil.AssertNoError(t, err)
			test.expect(t, node)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		code   uint32
		line   int
		column int
	}{
		{
			name:   "missing colon",
			src:    "@0x8123456789abcdef;\nstruct Foo {\n  bar @0 Int32;\n}\n",
			code:   2001,
			line:   3,
			column: 10,
		},
		{
			name:   "unknown declaration",
			src:    "@0x8123456789abcdef;\nmessage Foo {}\n",
			code:   2016,
			line:   2,
			column: 1,
		},
		{
			name:   "expected declaration",
			src:    "123;",
			code:   2015,
			line:   1,
			column: 1,
		},
		{
			name:   "bad struct member",
			src:    "struct A {\n\t5\n}",
			code:   2023,
			line:   2,
			column: 2,
		},
		{
			name:   "bad enum member",
			src:    "enum E { @0; }",
			code:   2023,
			line:   1,
			column: 10,
		},
		{
			name:   "unknown annotation target",
			src:    "annotation foo(field, bogus) :Text;",
			code:   2025,
			line:   1,
			column: 23,
		},
		{
			name:   "empty import path",
			src:    "struct A {\n  b @0 :import \"\".B;\n}",
			code:   2026,
			line:   2,
			column: 16,
		},
		{
			name:   "missing value",
			src:    "const a :Int32 = ;",
			code:   2018,
			line:   1,
			column: 18,
		},
		{
			name:   "int too large",
			src:    "const a :UInt64 = 0x1_0000_0000_0000_0000;",
			code:   2019,
			line:   1,
			column: 19,
		},
		{
			name:   "unterminated text",
			src:    "\n\nconst a :Text = \"abc",
			code:   1006,
			line:   3,
			column: 17,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := syntax.Parse([]byte(test.src))
			testutil.AssertError(t, err)
			parseErr, ok := err.(*syntax.Error)
			if !ok {
				t.Fatalf("Expected *syntax.Error, got %T", err)
			}
			testutil.ExpectEq(t, test.code, parseErr.Code())
			testutil.ExpectEq(t, test.line, parseErr.Line())
			testutil.ExpectEq(t, test.column, parseErr.Column())
		})
	}
}

func TestParseValueTrailing(t *testing.T) {
	t.Parallel()

	_, err := syntax.ParseValue([]byte("1 2"))
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, "1:3: E2027: Unexpected trailing input (INT_LIT \"2\")", err.Error())
}

func TestWalk(t *testing.T) {
	t.Parallel()

	file, err := syntax.Parse([]byte("struct A { b @0 :C; d @1 :E; }"))
	testutil.AssertNoError(t, err)

	var fields []string
	syntax.Walk(file, func(node syntax.Node) bool {
		if field, ok := node.(*syntax.StructField); ok {
			fields = append(fields, field.Name().Get())
		}
		return true
	})
	testutil.ExpectSliceEq(t, []string{"b", "d"}, fields)
}

func TestParseTypeExpr(t *testing.T) {
	t.Parallel()

	opts := syntax.NewParseOptions()

	typeExpr, err := opts.ParseTypeExpr([]byte("List(Foo.Bar)"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "List", typeExpr.Name().String())
	testutil.AssertTrue(t, typeExpr.Param() != nil)
	testutil.ExpectEq(t, "Foo.Bar", typeExpr.Param().Name().String())

	typeExpr, err = opts.ParseTypeExpr([]byte(`import "a.capnp".B`))
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, typeExpr.ImportPath() != nil)
	path, ok := typeExpr.ImportPath().GetText()
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "a.capnp", path)
	testutil.ExpectEq(t, `"a.capnp"`, typeExpr.ImportPath().Raw())

	_, err = opts.ParseTypeExpr([]byte("List(Foo"))
	testutil.ExpectError(t, err)
}

func TestDocComments(t *testing.T) {
	t.Parallel()

	file, err := syntax.Parse([]byte("## Documented.\nstruct A {}\n# Plain.\n"))
	testutil.AssertNoError(t, err)

	var docs []bool
	syntax.Walk(file, func(node syntax.Node) bool {
		if comment, ok := node.(*syntax.Comment); ok {
			docs = append(docs, comment.IsDocComment())
		}
		return true
	})
	testutil.ExpectSliceEq(t, []bool{true, false}, docs)
}
