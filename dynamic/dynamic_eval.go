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

package dynamic

import (
	"math"
	"slices"

	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/syntax"
)

// Evaluate converts a value expression to a value of type t. Names in expr
// are resolved through scope and its enclosing scopes.
func Evaluate(expr syntax.Node, t *schema.Type, scope *schema.Node) (Value, error) {
	ev := &evaluator{scope: scope}
	if scope != nil {
		ev.location = scope.Location()
	}
	return ev.eval(expr, t)
}

// Const returns the value of a const node. The value is computed on first
// use and memoized on the node.
func Const(node *schema.Node) (Value, error) {
	ev := &evaluator{location: node.Location()}
	return ev.constValue(node)
}

// AnnotationValue evaluates an applied annotation against the annotation's
// declared type. An annotation applied without a value is void.
func AnnotationValue(annotation *schema.Annotation) (Value, error) {
	typ := annotation.Decl().Type()
	if annotation.Expr() == nil {
		if typ.Kind() != schema.TypeVoid {
			return Value{}, errTypeMismatch(
				annotation.Scope().Location(),
				"Annotation %s requires a value of type %s",
				annotation.Decl().DisplayName(),
				typ,
			)
		}
		return Value{typ: typ}, nil
	}
	return Evaluate(annotation.Expr(), typ, annotation.Scope())
}

type evaluator struct {
	scope    *schema.Node
	location schema.Location
	visiting []*schema.Node
}

func (ev *evaluator) constValue(node *schema.Node) (Value, error) {
	if node.Kind() != schema.KindConst {
		return Value{}, errNotAConst(ev.location, node)
	}
	for _, visiting := range ev.visiting {
		if visiting == node {
			return Value{}, errConstCycle(node.Location(), node)
		}
	}
	value, err := node.ResolveConst(func(node *schema.Node) (any, error) {
		inner := &evaluator{
			scope:    node.Scope(),
			location: node.Location(),
			visiting: append(slices.Clip(ev.visiting), node),
		}
		return inner.eval(node.Expr(), node.Type())
	})
	if err != nil {
		return Value{}, err
	}
	return value.(Value), nil
}

func (ev *evaluator) eval(expr syntax.Node, t *schema.Type) (Value, error) {
	if name, ok := expr.(*syntax.Name); ok {
		return ev.evalName(name, t)
	}

	switch kind := t.Kind(); {
	case kind == schema.TypeVoid, kind == schema.TypeBool:
		return Value{}, ev.unexpected(expr, t)
	case kind.IsSigned():
		return ev.evalSigned(expr, t)
	case kind.IsUnsigned():
		return ev.evalUnsigned(expr, t)
	case kind.IsFloat():
		return ev.evalFloat(expr, t)
	case kind == schema.TypeText:
		lit, ok := expr.(*syntax.TextLit)
		if !ok {
			return Value{}, ev.unexpected(expr, t)
		}
		text, ok := lit.GetText()
		if !ok {
			return Value{}, errTypeMismatch(ev.location, "Text value %s is not valid UTF-8", lit.Raw())
		}
		return Value{typ: t, text: text}, nil
	case kind == schema.TypeData:
		lit, ok := expr.(*syntax.TextLit)
		if !ok {
			return Value{}, ev.unexpected(expr, t)
		}
		return Value{typ: t, text: string(lit.GetBytes())}, nil
	case kind == schema.TypeList:
		return ev.evalList(expr, t)
	case kind == schema.TypeStruct:
		return ev.evalStruct(expr, t)
	}
	return Value{}, ev.unexpected(expr, t)
}

func (ev *evaluator) unexpected(expr syntax.Node, t *schema.Type) error {
	return errTypeMismatch(ev.location, "Value %s is not a valid %s", syntax.Unparse(expr), t)
}

func (ev *evaluator) evalSigned(expr syntax.Node, t *schema.Type) (Value, error) {
	lit, ok := expr.(*syntax.IntLit)
	if !ok {
		return Value{}, ev.unexpected(expr, t)
	}
	var x int64
	switch t.Kind() {
	case schema.TypeInt8:
		var v int8
		v, ok = lit.GetInt8()
		x = int64(v)
	case schema.TypeInt16:
		var v int16
		v, ok = lit.GetInt16()
		x = int64(v)
	case schema.TypeInt32:
		var v int32
		v, ok = lit.GetInt32()
		x = int64(v)
	default:
		x, ok = lit.GetInt64()
	}
	if !ok {
		return Value{}, errTypeMismatch(ev.location, "Value %s out of range for %s", lit.Raw(), t)
	}
	return Value{typ: t, bits: uint64(x)}, nil
}

func (ev *evaluator) evalUnsigned(expr syntax.Node, t *schema.Type) (Value, error) {
	lit, ok := expr.(*syntax.IntLit)
	if !ok {
		return Value{}, ev.unexpected(expr, t)
	}
	var x uint64
	switch t.Kind() {
	case schema.TypeUInt8:
		var v uint8
		v, ok = lit.GetUint8()
		x = uint64(v)
	case schema.TypeUInt16:
		var v uint16
		v, ok = lit.GetUint16()
		x = uint64(v)
	case schema.TypeUInt32:
		var v uint32
		v, ok = lit.GetUint32()
		x = uint64(v)
	default:
		x, ok = lit.GetUint64()
	}
	if !ok {
		return Value{}, errTypeMismatch(ev.location, "Value %s out of range for %s", lit.Raw(), t)
	}
	return Value{typ: t, bits: x}, nil
}

func (ev *evaluator) evalFloat(expr syntax.Node, t *schema.Type) (Value, error) {
	var f float64
	switch lit := expr.(type) {
	case *syntax.FloatLit:
		f = lit.Get()
	case *syntax.IntLit:
		f = lit.Float64()
	default:
		return Value{}, ev.unexpected(expr, t)
	}
	return ev.narrowFloat(f, syntax.Unparse(expr), t)
}

func (ev *evaluator) narrowFloat(f float64, raw string, t *schema.Type) (Value, error) {
	if t.Kind() == schema.TypeFloat32 {
		narrow := float32(f)
		if math.IsInf(float64(narrow), 0) && !math.IsInf(f, 0) {
			return Value{}, errTypeMismatch(ev.location, "Value %s out of range for %s", raw, t)
		}
		f = float64(narrow)
	}
	return Value{typ: t, bits: math.Float64bits(f)}, nil
}

func (ev *evaluator) evalList(expr syntax.Node, t *schema.Type) (Value, error) {
	lit, ok := expr.(*syntax.ListLit)
	if !ok {
		return Value{}, ev.unexpected(expr, t)
	}
	items := make([]Value, 0, len(lit.Items()))
	for _, itemExpr := range lit.Items() {
		item, err := ev.eval(itemExpr, t.Elem())
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Value{typ: t, list: &List{typ: t, items: items}}, nil
}

func (ev *evaluator) evalStruct(expr syntax.Node, t *schema.Type) (Value, error) {
	lit, ok := expr.(*syntax.StructLit)
	if !ok {
		return Value{}, ev.unexpected(expr, t)
	}
	node := t.Node()
	fields := make(map[string]Value, len(lit.Fields()))
	for _, fieldLit := range lit.Fields() {
		name := fieldLit.Name().Get()
		field, ok := node.Field(name)
		if !ok {
			return Value{}, errUnresolvedField(ev.location, node, name)
		}
		if _, dup := fields[name]; dup {
			return Value{}, errDuplicateField(ev.location, name)
		}
		value, err := ev.eval(fieldLit.Value(), field.Type())
		if err != nil {
			return Value{}, err
		}
		fields[name] = value
	}
	return Value{typ: t, strct: &Struct{node: node, fields: fields}}, nil
}

// evalName handles keywords, enumerants and references to other consts.
func (ev *evaluator) evalName(name *syntax.Name, t *schema.Type) (Value, error) {
	parts := name.Parts()
	if len(parts) == 1 {
		word := parts[0].Get()
		switch t.Kind() {
		case schema.TypeVoid:
			if word == "void" {
				return Value{typ: t}, nil
			}
		case schema.TypeBool:
			switch word {
			case "true":
				return Value{typ: t, bits: 1}, nil
			case "false":
				return Value{typ: t, bits: 0}, nil
			}
		case schema.TypeFloat32, schema.TypeFloat64:
			switch word {
			case "inf":
				return ev.narrowFloat(math.Inf(1), word, t)
			case "nan":
				return ev.narrowFloat(math.NaN(), word, t)
			}
		case schema.TypeEnum:
			if enumerant, ok := t.Node().Enumerant(word); ok {
				return Value{
					typ:       t,
					bits:      uint64(enumerant.Ordinal()),
					enumerant: enumerant,
				}, nil
			}
		}
	}

	node, ok := ev.lookup(parts)
	if !ok {
		return Value{}, errUnresolvedSymbol(ev.location, name.String())
	}
	value, err := ev.constValue(node)
	if err != nil {
		return Value{}, err
	}
	if !value.typ.Equal(t) {
		return Value{}, errTypeMismatch(
			ev.location,
			"Const %s has type %s, expected %s",
			node.DisplayName(),
			value.typ,
			t,
		)
	}
	return value, nil
}

func (ev *evaluator) lookup(parts []*syntax.Ident) (*schema.Node, bool) {
	if ev.scope == nil {
		return nil, false
	}
	node, ok := ev.scope.Lookup(parts[0].Get())
	for _, part := range parts[1:] {
		if !ok {
			break
		}
		node, ok = node.Nested(part.Get())
	}
	return node, ok
}
