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

package dynamic_test

import (
	"math"
	"testing"

	"github.com/tkdb34st/capnproto/dynamic"
	"github.com/tkdb34st/capnproto/internal/testutil"
	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/syntax"
)

func builtin(t *testing.T, name string) *schema.Type {
	t.Helper()
	typ, ok := schema.Builtin(name)
	if !ok {
		t.Fatalf("no builtin type %q", name)
	}
	return typ
}

func parseValue(t *testing.T, src string) syntax.Node {
	t.Helper()
	node, err := syntax.ParseValue([]byte(src))
	testutil.AssertNoError(t, err)
	return node
}

type testSchema struct {
	file  *schema.NodeBuilder
	foo   *schema.Node
	color *schema.Node
	next  schema.ID
}

func newTestSchema(t *testing.T) *testSchema {
	s := &testSchema{
		file: schema.NewFile(0x8123456789abcdef, "const.capnp", schema.Location{File: "const.capnp"}),
		next: 0x8000000000000100,
	}
	foo := s.file.AddNested(schema.KindStruct, s.id(), "Foo", schema.Location{})
	foo.AddField("baz", 1, builtin(t, "Text"), nil, nil, schema.Location{})
	foo.AddField("bar", 0, builtin(t, "Int16"), nil, nil, schema.Location{})
	foo.AddField("corge", 2, builtin(t, "UInt32"), parseValue(t, "7"), nil, schema.Location{})
	foo.AddField("grault", 3, schema.ListOf(builtin(t, "Text")), nil, nil, schema.Location{})
	foo.Seal()
	s.foo = foo.Node()

	color := s.file.AddNested(schema.KindEnum, s.id(), "Color", schema.Location{})
	color.AddEnumerant("red", 0, nil)
	color.AddEnumerant("green", 1, nil)
	s.color = color.Node()
	return s
}

func (s *testSchema) id() schema.ID {
	s.next++
	return s.next
}

func (s *testSchema) addConst(t *testing.T, name string, typ *schema.Type, src string) *schema.Node {
	t.Helper()
	c := s.file.AddNested(schema.KindConst, s.id(), name, schema.Location{File: "const.capnp"})
	c.SetType(typ)
	c.SetExpr(parseValue(t, src))
	return c.Node()
}

func TestListConst(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	listConst := s.addConst(t, "listConst", schema.ListOf(builtin(t, "Float32")), "[1.25, 2.5, 3e4]")

	value, err := dynamic.Const(listConst)
	testutil.AssertNoError(t, err)
	list, err := dynamic.As[dynamic.List](value)
	testutil.AssertNoError(t, err)

	var got []float32
	for _, item := range list.All() {
		f, err := dynamic.As[float32](item)
		testutil.AssertNoError(t, err)
		got = append(got, f)
	}
	testutil.ExpectSliceEq(t, []float32{1.25, 2.5, 30000}, got)
	testutil.ExpectEq(t, "[1.25, 2.5, 30000]", value.String())
}

func TestStructConst(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	structConst := s.addConst(t, "structConst", s.foo.AsType(), `(bar = 123, baz = "qux")`)

	value, err := dynamic.Const(structConst)
	testutil.AssertNoError(t, err)
	strct, err := value.Struct()
	testutil.AssertNoError(t, err)

	bar, err := strct.Get("bar")
	testutil.AssertNoError(t, err)
	barInt16, err := dynamic.As[int16](bar)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int16(123), barInt16)

	baz, err := strct.Get("baz")
	testutil.AssertNoError(t, err)
	bazText, err := dynamic.As[string](baz)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "qux", bazText)

	corge, err := strct.Get("corge")
	testutil.AssertNoError(t, err)
	corgeUint32, err := dynamic.As[uint32](corge)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint32(7), corgeUint32)
	testutil.ExpectFalse(t, strct.Has("corge"))

	grault, err := strct.Get("grault")
	testutil.AssertNoError(t, err)
	graultList, err := grault.List()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 0, graultList.Len())

	_, err = strct.Get("missing")
	testutil.ExpectEq(t, schema.ErrUnresolvedField, dynamic.KindOf(err))

	testutil.ExpectEq(t, `(bar = 123, baz = "qux")`, value.String())
}

func TestStructColonSyntax(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	value, err := dynamic.Evaluate(parseValue(t, `(bar: -4, grault: ["x"])`), s.foo.AsType(), s.file.Node())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `(bar = -4, grault = ["x"])`, value.String())
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	tests := []struct {
		name string
		src  string
		typ  *schema.Type
		kind schema.ErrorKind
		code uint32
	}{
		{"unknown field", `(qux = 1)`, s.foo.AsType(), schema.ErrUnresolvedField, 5002},
		{"duplicate field", `(bar = 1, bar = 2)`, s.foo.AsType(), schema.ErrOther, 5003},
		{"uint8 overflow", "300", builtin(t, "UInt8"), schema.ErrTypeMismatch, 5001},
		{"negative unsigned", "-1", builtin(t, "UInt32"), schema.ErrTypeMismatch, 5001},
		{"int16 overflow", "32768", builtin(t, "Int16"), schema.ErrTypeMismatch, 5001},
		{"float for int", "1.5", builtin(t, "Int32"), schema.ErrTypeMismatch, 5001},
		{"float32 overflow", "1e300", builtin(t, "Float32"), schema.ErrTypeMismatch, 5001},
		{"text for int", `"1"`, builtin(t, "Int32"), schema.ErrTypeMismatch, 5001},
		{"list for struct", "[1]", s.foo.AsType(), schema.ErrTypeMismatch, 5001},
		{"unknown enumerant", "blue", s.color.AsType(), schema.ErrUnresolvedSymbol, 5000},
		{"unknown const", "nothing", builtin(t, "Int32"), schema.ErrUnresolvedSymbol, 5000},
		{"nested error", `(bar = "x")`, s.foo.AsType(), schema.ErrTypeMismatch, 5001},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := dynamic.Evaluate(parseValue(t, test.src), test.typ, s.file.Node())
			testutil.AssertError(t, err)
			testutil.ExpectEq(t, test.kind, dynamic.KindOf(err))
			dynErr, ok := err.(*dynamic.Error)
			if !ok {
				t.Fatalf("Expected *dynamic.Error, got %T", err)
			}
			testutil.ExpectEq(t, test.code, dynErr.Code())
		})
	}
}

func TestScalars(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	eval := func(t *testing.T, src, typ string) dynamic.Value {
		t.Helper()
		value, err := dynamic.Evaluate(parseValue(t, src), builtin(t, typ), s.file.Node())
		testutil.AssertNoError(t, err)
		return value
	}

	b, err := dynamic.As[bool](eval(t, "true", "Bool"))
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, b)

	testutil.ExpectEq(t, "void", eval(t, "void", "Void").String())

	i64, err := dynamic.As[int64](eval(t, "-0x8000_0000_0000_0000", "Int64"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int64(math.MinInt64), i64)

	u64, err := dynamic.As[uint64](eval(t, "0xffff_ffff_ffff_ffff", "UInt64"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint64(math.MaxUint64), u64)

	_, err = dynamic.As[int64](eval(t, "0xffff_ffff_ffff_ffff", "UInt64"))
	testutil.ExpectEq(t, schema.ErrTypeMismatch, dynamic.KindOf(err))

	narrowed, err := dynamic.As[int8](eval(t, "100", "UInt32"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int8(100), narrowed)

	_, err = dynamic.As[int8](eval(t, "200", "UInt32"))
	testutil.ExpectEq(t, schema.ErrTypeMismatch, dynamic.KindOf(err))

	f64, err := dynamic.As[float64](eval(t, "-2.5e-3", "Float64"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, -2.5e-3, f64)

	f32, err := dynamic.As[float32](eval(t, "0.1", "Float32"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, float32(0.1), f32)

	fromInt, err := dynamic.As[float64](eval(t, "7", "Int32"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 7.0, fromInt)

	inf, _ := dynamic.As[float64](eval(t, "inf", "Float64"))
	testutil.ExpectTrue(t, math.IsInf(inf, 1))
	negInf, _ := dynamic.As[float32](eval(t, "-inf", "Float32"))
	testutil.ExpectTrue(t, math.IsInf(float64(negInf), -1))
	nan, _ := dynamic.As[float64](eval(t, "nan", "Float64"))
	testutil.ExpectTrue(t, math.IsNaN(nan))

	data, err := dynamic.As[[]byte](eval(t, `"\x00\xff"`, "Data"))
	testutil.AssertNoError(t, err)
	testutil.ExpectBytesEq(t, []byte{0x00, 0xff}, data)

	_, err = dynamic.As[string](eval(t, `"abc"`, "Data"))
	testutil.ExpectEq(t, schema.ErrTypeMismatch, dynamic.KindOf(err))
}

func TestEnumValue(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	value, err := dynamic.Evaluate(parseValue(t, "green"), s.color.AsType(), s.file.Node())
	testutil.AssertNoError(t, err)
	enumerant, err := dynamic.As[*schema.Enumerant](value)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "green", enumerant.Name())
	testutil.ExpectEq(t, uint16(1), enumerant.Ordinal())

	testutil.ExpectEq(t, "red", dynamic.Zero(s.color.AsType()).String())
}

func TestConstReferences(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	uint32Type := builtin(t, "UInt32")
	s.addConst(t, "a", uint32Type, "1234")
	b := s.addConst(t, "b", uint32Type, "a")
	c := s.addConst(t, "c", builtin(t, "Int32"), "a")
	x := s.addConst(t, "x", uint32Type, "y")
	s.addConst(t, "y", uint32Type, "x")

	value, err := dynamic.Const(b)
	testutil.AssertNoError(t, err)
	got, err := dynamic.As[uint32](value)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint32(1234), got)

	_, err = dynamic.Const(c)
	testutil.ExpectEq(t, schema.ErrTypeMismatch, dynamic.KindOf(err))

	_, err = dynamic.Const(x)
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, uint32(5004), err.(*dynamic.Error).Code())

	_, err = dynamic.Const(s.foo)
	testutil.ExpectEq(t, uint32(5005), err.(*dynamic.Error).Code())
}

func TestConstMemoized(t *testing.T) {
	t.Parallel()

	s := newTestSchema(t)
	c := s.addConst(t, "c", schema.ListOf(builtin(t, "Text")), `["a", "b"]`)

	first, err := dynamic.Const(c)
	testutil.AssertNoError(t, err)
	second, err := dynamic.Const(c)
	testutil.AssertNoError(t, err)

	firstList, _ := first.List()
	secondList, _ := second.List()
	testutil.ExpectEq(t, firstList.At(0), secondList.At(0))
}
