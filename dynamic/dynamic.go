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

// Package dynamic evaluates constant expressions into typed values that
// are read through the schema graph rather than generated code.
package dynamic

import (
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/tkdb34st/capnproto/schema"
)

// Value is a typed constant. The representation depends on the kind of
// its type: integers, bools, floats and enums use bits, Text and Data use
// text, and lists and structs hold a composite.
type Value struct {
	typ       *schema.Type
	bits      uint64
	text      string
	list      *List
	strct     *Struct
	enumerant *schema.Enumerant
}

func (v Value) Type() *schema.Type {
	return v.typ
}

func (v Value) List() (List, error) {
	if v.list == nil {
		return List{}, errTypeMismatch(schema.Location{}, "Value of type %s is not a list", v.typ)
	}
	return *v.list, nil
}

func (v Value) Struct() (Struct, error) {
	if v.strct == nil {
		return Struct{}, errTypeMismatch(schema.Location{}, "Value of type %s is not a struct", v.typ)
	}
	return *v.strct, nil
}

func (v Value) String() string {
	var buf strings.Builder
	v.format(&buf)
	return buf.String()
}

func (v Value) format(buf *strings.Builder) {
	if v.typ == nil {
		buf.WriteString("<invalid>")
		return
	}
	switch kind := v.typ.Kind(); {
	case kind == schema.TypeVoid:
		buf.WriteString("void")
	case kind == schema.TypeBool:
		buf.WriteString(strconv.FormatBool(v.bits != 0))
	case kind.IsSigned():
		buf.WriteString(strconv.FormatInt(int64(v.bits), 10))
	case kind.IsUnsigned():
		buf.WriteString(strconv.FormatUint(v.bits, 10))
	case kind == schema.TypeFloat32:
		buf.WriteString(formatFloat(math.Float64frombits(v.bits), 32))
	case kind == schema.TypeFloat64:
		buf.WriteString(formatFloat(math.Float64frombits(v.bits), 64))
	case kind == schema.TypeText, kind == schema.TypeData:
		buf.WriteString(strconv.Quote(v.text))
	case kind == schema.TypeEnum:
		if v.enumerant != nil {
			buf.WriteString(v.enumerant.Name())
		} else {
			buf.WriteString(strconv.FormatUint(v.bits, 10))
		}
	case kind == schema.TypeList:
		buf.WriteByte('[')
		for ii, item := range v.list.items {
			if ii > 0 {
				buf.WriteString(", ")
			}
			item.format(buf)
		}
		buf.WriteByte(']')
	case kind == schema.TypeStruct:
		buf.WriteByte('(')
		first := true
		for _, field := range v.strct.node.Fields() {
			item, ok := v.strct.fields[field.Name()]
			if !ok {
				continue
			}
			if !first {
				buf.WriteString(", ")
			}
			first = false
			buf.WriteString(field.Name())
			buf.WriteString(" = ")
			item.format(buf)
		}
		buf.WriteByte(')')
	default:
		buf.WriteString("null")
	}
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

type List struct {
	typ   *schema.Type
	items []Value
}

// Type is the list type, not the element type.
func (l List) Type() *schema.Type {
	return l.typ
}

func (l List) Len() int {
	return len(l.items)
}

func (l List) At(ii int) Value {
	return l.items[ii]
}

func (l List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for ii, item := range l.items {
			if !yield(ii, item) {
				return
			}
		}
	}
}

// Struct holds the fields set by a struct literal. Other fields are read
// through the struct node when accessed.
type Struct struct {
	node   *schema.Node
	fields map[string]Value
}

func (s Struct) Node() *schema.Node {
	return s.node
}

// Has reports whether the literal set the named field.
func (s Struct) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Get returns the named field: the literal's value if set, else the
// field's declared default, else the zero value of its type.
func (s Struct) Get(name string) (Value, error) {
	field, ok := s.node.Field(name)
	if !ok {
		return Value{}, errUnresolvedField(schema.Location{}, s.node, name)
	}
	if value, ok := s.fields[name]; ok {
		return value, nil
	}
	return FieldDefault(field)
}

// All yields every field in ordinal order, as [Struct.Get] would return it.
func (s Struct) All() iter.Seq2[*schema.Field, Value] {
	return func(yield func(*schema.Field, Value) bool) {
		for _, field := range s.node.Fields() {
			value, err := s.Get(field.Name())
			if err != nil {
				value = Zero(field.Type())
			}
			if !yield(field, value) {
				return
			}
		}
	}
}

// FieldDefault evaluates a field's declared default once, or returns the
// zero value of its type if it has none.
func FieldDefault(field *schema.Field) (Value, error) {
	if field.DefaultExpr() == nil {
		return Zero(field.Type()), nil
	}
	value, err := field.ResolveDefault(func(field *schema.Field) (any, error) {
		return Evaluate(field.DefaultExpr(), field.Type(), field.Parent())
	})
	if err != nil {
		return Value{}, err
	}
	return value.(Value), nil
}

// Zero returns the zero value of a type: 0, false, "", an empty list, an
// empty struct, or the first enumerant.
func Zero(t *schema.Type) Value {
	value := Value{typ: t}
	switch t.Kind() {
	case schema.TypeList:
		value.list = &List{typ: t}
	case schema.TypeStruct:
		value.strct = &Struct{node: t.Node()}
	case schema.TypeEnum:
		if enumerants := t.Node().Enumerants(); len(enumerants) > 0 {
			value.enumerant = enumerants[0]
			value.bits = uint64(enumerants[0].Ordinal())
		}
	}
	return value
}

type Narrowable interface {
	bool |
		int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		string | []byte |
		List | Struct | *schema.Enumerant
}

// As reads a value as T. Integers convert between widths when in range,
// floats accept integers, and []byte accepts Text or Data. Any other
// combination fails with a TypeMismatch error.
func As[T Narrowable](v Value) (T, error) {
	var out T
	var err error
	switch p := any(&out).(type) {
	case *bool:
		*p, err = asBool(v)
	case *int8:
		*p, err = asSigned[int8](v)
	case *int16:
		*p, err = asSigned[int16](v)
	case *int32:
		*p, err = asSigned[int32](v)
	case *int64:
		*p, err = asSigned[int64](v)
	case *uint8:
		*p, err = asUnsigned[uint8](v)
	case *uint16:
		*p, err = asUnsigned[uint16](v)
	case *uint32:
		*p, err = asUnsigned[uint32](v)
	case *uint64:
		*p, err = asUnsigned[uint64](v)
	case *float32:
		var f float64
		f, err = asFloat(v)
		*p = float32(f)
	case *float64:
		*p, err = asFloat(v)
	case *string:
		*p, err = asText(v)
	case *[]byte:
		*p, err = asData(v)
	case *List:
		*p, err = v.List()
	case *Struct:
		*p, err = v.Struct()
	case **schema.Enumerant:
		*p, err = asEnumerant(v)
	}
	return out, err
}

func mismatch(v Value, want string) error {
	return errTypeMismatch(schema.Location{}, "Value of type %s cannot be read as %s", v.typ, want)
}

func asBool(v Value) (bool, error) {
	if v.typ == nil || v.typ.Kind() != schema.TypeBool {
		return false, mismatch(v, "bool")
	}
	return v.bits != 0, nil
}

type signed interface {
	int8 | int16 | int32 | int64
}

type unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

func asSigned[I signed](v Value) (I, error) {
	var zero I
	if v.typ == nil || !v.typ.Kind().IsInteger() {
		return zero, mismatch(v, strconv.Itoa(bitSize(zero))+"-bit integer")
	}
	if v.typ.Kind().IsUnsigned() && v.bits > math.MaxInt64 {
		return zero, errTypeMismatch(schema.Location{}, "Value %d out of range", v.bits)
	}
	x := int64(v.bits)
	out := I(x)
	if int64(out) != x {
		return zero, errTypeMismatch(schema.Location{}, "Value %d out of range for int%d", x, bitSize(zero))
	}
	return out, nil
}

func asUnsigned[U unsigned](v Value) (U, error) {
	var zero U
	if v.typ == nil || !v.typ.Kind().IsInteger() {
		return zero, mismatch(v, strconv.Itoa(bitSize(zero))+"-bit unsigned integer")
	}
	if v.typ.Kind().IsSigned() && int64(v.bits) < 0 {
		return zero, errTypeMismatch(schema.Location{}, "Value %d out of range for uint%d", int64(v.bits), bitSize(zero))
	}
	out := U(v.bits)
	if uint64(out) != v.bits {
		return zero, errTypeMismatch(schema.Location{}, "Value %d out of range for uint%d", v.bits, bitSize(zero))
	}
	return out, nil
}

func bitSize[N signed | unsigned](n N) int {
	switch any(n).(type) {
	case int8, uint8:
		return 8
	case int16, uint16:
		return 16
	case int32, uint32:
		return 32
	}
	return 64
}

func asFloat(v Value) (float64, error) {
	if v.typ == nil {
		return 0, mismatch(v, "float")
	}
	switch kind := v.typ.Kind(); {
	case kind.IsFloat():
		return math.Float64frombits(v.bits), nil
	case kind.IsSigned():
		return float64(int64(v.bits)), nil
	case kind.IsUnsigned():
		return float64(v.bits), nil
	}
	return 0, mismatch(v, "float")
}

func asText(v Value) (string, error) {
	if v.typ == nil || v.typ.Kind() != schema.TypeText {
		return "", mismatch(v, "text")
	}
	return v.text, nil
}

func asData(v Value) ([]byte, error) {
	if v.typ == nil || (v.typ.Kind() != schema.TypeData && v.typ.Kind() != schema.TypeText) {
		return nil, mismatch(v, "data")
	}
	return []byte(v.text), nil
}

func asEnumerant(v Value) (*schema.Enumerant, error) {
	if v.typ == nil || v.typ.Kind() != schema.TypeEnum || v.enumerant == nil {
		return nil, mismatch(v, "enumerant")
	}
	return v.enumerant, nil
}
