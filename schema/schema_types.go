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

package schema

import (
	"fmt"
)

type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeText
	TypeData
	TypeList
	TypeEnum
	TypeStruct
	TypeInterface
	TypeAnyPointer
)

var typeKindNames = [...]string{
	TypeVoid:       "Void",
	TypeBool:       "Bool",
	TypeInt8:       "Int8",
	TypeInt16:      "Int16",
	TypeInt32:      "Int32",
	TypeInt64:      "Int64",
	TypeUInt8:      "UInt8",
	TypeUInt16:     "UInt16",
	TypeUInt32:     "UInt32",
	TypeUInt64:     "UInt64",
	TypeFloat32:    "Float32",
	TypeFloat64:    "Float64",
	TypeText:       "Text",
	TypeData:       "Data",
	TypeList:       "List",
	TypeEnum:       "Enum",
	TypeStruct:     "Struct",
	TypeInterface:  "Interface",
	TypeAnyPointer: "AnyPointer",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", uint8(k))
}

func (k TypeKind) IsSigned() bool {
	return k >= TypeInt8 && k <= TypeInt64
}

func (k TypeKind) IsUnsigned() bool {
	return k >= TypeUInt8 && k <= TypeUInt64
}

func (k TypeKind) IsInteger() bool {
	return k.IsSigned() || k.IsUnsigned()
}

func (k TypeKind) IsFloat() bool {
	return k == TypeFloat32 || k == TypeFloat64
}

// Type is a resolved type expression. Types without a node are shared
// values; compare them with [Type.Equal].
type Type struct {
	kind TypeKind
	elem *Type
	node *Node
}

var builtinTypes = map[string]*Type{}

func init() {
	for kind := TypeVoid; kind <= TypeData; kind++ {
		builtinTypes[kind.String()] = &Type{kind: kind}
	}
	builtinTypes["AnyPointer"] = &Type{kind: TypeAnyPointer}
}

// Builtin returns the builtin type with the given name, such as "UInt32".
// "List" is not a builtin; see [ListOf].
func Builtin(name string) (*Type, bool) {
	t, ok := builtinTypes[name]
	return t, ok
}

func BuiltinKind(kind TypeKind) *Type {
	return builtinTypes[kind.String()]
}

func ListOf(elem *Type) *Type {
	return &Type{kind: TypeList, elem: elem}
}

func (t *Type) Kind() TypeKind {
	return t.kind
}

// Elem is the element type of a list.
func (t *Type) Elem() *Type {
	return t.elem
}

// Node is the declaration of an enum, struct or interface type.
func (t *Type) Node() *Node {
	return t.node
}

func (t *Type) Equal(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || t.kind != other.kind {
		return false
	}
	switch t.kind {
	case TypeList:
		return t.elem.Equal(other.elem)
	case TypeEnum, TypeStruct, TypeInterface:
		return t.node == other.node
	}
	return true
}

func (t *Type) String() string {
	switch t.kind {
	case TypeList:
		return fmt.Sprintf("List(%s)", t.elem)
	case TypeEnum, TypeStruct, TypeInterface:
		return t.node.DisplayName()
	}
	return t.kind.String()
}
