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

package schema_test

import (
	"errors"
	"testing"

	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/schema"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	file := schema.NewFile(0x8123456789abcdef, "foo/bar.capnp", schema.Location{File: "foo/bar.capnp"})
	outer := file.AddNested(schema.KindStruct, 0x8000000000000002, "Outer", schema.Location{})
	inner := outer.AddNested(schema.KindEnum, 0x8000000000000003, "Inner", schema.Location{})

	testutil.ExpectEq(t, "foo/bar.capnp", file.Node().DisplayName())
	testutil.ExpectEq(t, "foo/bar.capnp:Outer", outer.Node().DisplayName())
	testutil.ExpectEq(t, "foo/bar.capnp:Outer.Inner", inner.Node().DisplayName())
	testutil.ExpectEq(t, file.Node(), inner.Node().File())
	testutil.ExpectEq(t, "foo/bar.capnp:Outer.Inner", inner.Node().AsType().String())
}

func TestLookup(t *testing.T) {
	t.Parallel()

	file := schema.NewFile(0x8123456789abcdef, "a.capnp", schema.Location{})
	foo := file.AddNested(schema.KindStruct, 0x8000000000000002, "Foo", schema.Location{})
	bar := foo.AddNested(schema.KindStruct, 0x8000000000000003, "Bar", schema.Location{})
	other := schema.NewFile(0x8000000000000004, "b.capnp", schema.Location{})
	file.AddAlias("B", other.Node(), nil, schema.Location{})

	got, ok := bar.Node().Lookup("Foo")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, foo.Node(), got)

	got, ok = bar.Node().Lookup("B")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, other.Node(), got)

	_, ok = bar.Node().Lookup("Missing")
	testutil.ExpectFalse(t, ok)

	_, ok = file.Node().Nested("Bar")
	testutil.ExpectFalse(t, ok)
}

func TestSealOrdersFields(t *testing.T) {
	t.Parallel()

	file := schema.NewFile(0x8123456789abcdef, "a.capnp", schema.Location{})
	foo := file.AddNested(schema.KindStruct, 0x8000000000000002, "Foo", schema.Location{})
	text, _ := schema.Builtin("Text")
	foo.AddField("c", 2, text, nil, nil, schema.Location{})
	foo.AddField("a", 0, text, nil, nil, schema.Location{})
	foo.AddField("b", 1, text, nil, nil, schema.Location{})
	foo.Seal()

	var names []string
	for _, field := range foo.Node().Fields() {
		names = append(names, field.Name())
	}
	testutil.ExpectSliceEq(t, []string{"a", "b", "c"}, names)
}

func TestDependencies(t *testing.T) {
	t.Parallel()

	a := schema.NewFile(0x8000000000000001, "a.capnp", schema.Location{})
	b := schema.NewFile(0x8000000000000002, "b.capnp", schema.Location{})
	a.AddDependency(b.Node())
	a.AddDependency(b.Node())
	a.AddDependency(a.Node())

	testutil.ExpectEq(t, 1, len(a.Node().Dependencies()))
	dep, ok := a.Node().Dependency(0x8000000000000002)
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, b.Node(), dep)
	_, ok = b.Node().Dependency(0x8000000000000001)
	testutil.ExpectFalse(t, ok)
}

func TestTypeEqual(t *testing.T) {
	t.Parallel()

	float32Type, _ := schema.Builtin("Float32")
	float64Type, _ := schema.Builtin("Float64")
	testutil.ExpectTrue(t, schema.ListOf(float32Type).Equal(schema.ListOf(float32Type)))
	testutil.ExpectFalse(t, schema.ListOf(float32Type).Equal(schema.ListOf(float64Type)))
	testutil.ExpectEq(t, "List(List(Float32))", schema.ListOf(schema.ListOf(float32Type)).String())

	_, ok := schema.Builtin("List")
	testutil.ExpectFalse(t, ok)
}

func TestResolveConstMemoized(t *testing.T) {
	t.Parallel()

	file := schema.NewFile(0x8123456789abcdef, "a.capnp", schema.Location{})
	c := file.AddNested(schema.KindConst, 0x8000000000000002, "c", schema.Location{}).Node()

	calls := 0
	eval := func(*schema.Node) (any, error) {
		calls++
		return nil, errors.New("boom")
	}
	_, err1 := c.ResolveConst(eval)
	_, err2 := c.ResolveConst(eval)
	testutil.ExpectEq(t, 1, calls)
	testutil.ExpectEq(t, err1, err2)
}

func TestIDValid(t *testing.T) {
	t.Parallel()

	testutil.ExpectTrue(t, schema.ID(0x8123456789abcdef).Valid())
	testutil.ExpectFalse(t, schema.ID(0x0123456789abcdef).Valid())
	testutil.ExpectEq(t, "0x0000000000000001", schema.ID(1).String())
}
