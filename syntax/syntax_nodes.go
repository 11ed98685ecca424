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

package syntax

import (
	"bytes"
	"errors"
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"
)

type Span struct {
	start, len uint32
}

func NewSpan(start, len uint32) Span {
	return Span{start, len}
}

func (s Span) Start() uint32 {
	return s.start
}

func (s Span) End() uint32 {
	return s.start + s.len
}

func (s Span) Len() uint32 {
	return s.len
}

type Node interface {
	Span() Span

	ChildNodes() iter.Seq[Node]

	privChildren() []Node

	UnparseTo(buf *bytes.Buffer)
}

// Decl is a named declaration: a struct, enum, interface, const,
// annotation or using alias.
type Decl interface {
	Node
	Name() *Ident
	ID() *Tag
	Annotations() []*AnnotationApply
}

func Unparse(node Node) string {
	var buf bytes.Buffer
	node.UnparseTo(&buf)
	return buf.String()
}

func Walk(node Node, walkFn func(Node) bool) {
	if node == nil || !walkFn(node) {
		return
	}
	for _, child := range node.privChildren() {
		Walk(child, walkFn)
	}
	walkFn(nil)
}

func iterChildren(childNodes []Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, child := range childNodes {
			if !yield(child) {
				return
			}
		}
	}
}

type leafNode struct{}

func (*leafNode) ChildNodes() iter.Seq[Node] {
	return func(_yield func(Node) bool) {}
}

func (*leafNode) privChildren() []Node {
	return nil
}

type branchNode struct {
	span       Span
	childNodes []Node
}

func (n *branchNode) Span() Span {
	return n.span
}

func (n *branchNode) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *branchNode) privChildren() []Node {
	return n.childNodes
}

func (n *branchNode) UnparseTo(buf *bytes.Buffer) {
	for _, childNode := range n.childNodes {
		childNode.UnparseTo(buf)
	}
}

type Space struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Space)(nil)

func (n *Space) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Space) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

type Newline struct {
	leafNode
	start uint32
	crlf  bool
}

var _ Node = (*Newline)(nil)

func (n *Newline) Span() Span {
	var len uint32
	if n.crlf {
		len = 2
	} else {
		len = 1
	}
	return Span{
		start: n.start,
		len:   len,
	}
}

func (n *Newline) UnparseTo(buf *bytes.Buffer) {
	if n.crlf {
		buf.WriteString("\r\n")
	} else {
		buf.WriteByte('\n')
	}
}

type Comment struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Comment)(nil)

func (n *Comment) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Comment) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func (n *Comment) Text() string {
	return n.raw
}

func (n *Comment) IsDocComment() bool {
	return strings.HasPrefix(n.raw, "##")
}

type IntLit struct {
	leafNode
	raw   string
	value uint64
	start uint32
}

var _ Node = (*IntLit)(nil)

func (n *IntLit) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *IntLit) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func newIntLit(token string, kind TokenKind, start uint32) (*IntLit, error) {
	base := 10
	valueStr := token
	if valueStr[0] == '-' {
		valueStr = valueStr[1:]
	}
	switch kind {
	case T_BIN_INT_LIT:
		base = 2
		valueStr = valueStr[2:]
	case T_OCT_INT_LIT:
		base = 8
		valueStr = valueStr[2:]
	case T_DEC_INT_LIT:
		base = 10
		valueStr = valueStr[2:]
	case T_HEX_INT_LIT:
		base = 16
		valueStr = valueStr[2:]
	}
	valueStr = strings.ReplaceAll(valueStr, "_", "")

	value, err := strconv.ParseUint(valueStr, base, 64)
	if err != nil {
		return nil, errIntLitTooPositive(token, start)
	}
	if token[0] == '-' {
		if value > (uint64(math.MaxInt64) + 1) {
			return nil, errIntLitTooNegative(token, start)
		}
		value = uint64(-int64(value))
	}

	return &IntLit{
		raw:   token,
		value: value,
		start: start,
	}, nil
}

func (n *IntLit) Raw() string {
	return n.raw
}

func (n *IntLit) IsNegative() bool {
	return n.raw[0] == '-'
}

// Float64 returns the literal converted to the nearest float64.
func (n *IntLit) Float64() float64 {
	if n.IsNegative() {
		return float64(int64(n.value))
	}
	return float64(n.value)
}

func (n *IntLit) GetUint8() (uint8, bool) {
	if n.raw[0] != '-' && n.value <= math.MaxUint8 {
		return uint8(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetUint16() (uint16, bool) {
	if n.raw[0] != '-' && n.value <= math.MaxUint16 {
		return uint16(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetUint32() (uint32, bool) {
	if n.raw[0] != '-' && n.value <= math.MaxUint32 {
		return uint32(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetUint64() (uint64, bool) {
	if n.raw[0] != '-' {
		return n.value, true
	}
	return 0, false
}

func (n *IntLit) GetInt8() (int8, bool) {
	if n.raw[0] == '-' {
		v := int64(n.value)
		if v >= math.MinInt8 && v <= math.MaxInt8 {
			return int8(v), true
		}
		return 0, false
	}
	if n.value <= math.MaxInt8 {
		return int8(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetInt16() (int16, bool) {
	if n.raw[0] == '-' {
		v := int64(n.value)
		if v >= math.MinInt16 && v <= math.MaxInt16 {
			return int16(v), true
		}
		return 0, false
	}
	if n.value <= math.MaxInt16 {
		return int16(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetInt32() (int32, bool) {
	if n.raw[0] == '-' {
		v := int64(n.value)
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int32(v), true
		}
		return 0, false
	}
	if n.value <= math.MaxInt32 {
		return int32(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetInt64() (int64, bool) {
	if n.raw[0] == '-' || n.value <= math.MaxInt64 {
		return int64(n.value), true
	}
	return 0, false
}

// FloatLit holds a decimal literal with a fraction or exponent. The value
// is parsed once at full float64 precision; narrowing happens later.
type FloatLit struct {
	leafNode
	raw   string
	value float64
	start uint32
}

var _ Node = (*FloatLit)(nil)

func newFloatLit(token string, start uint32) (*FloatLit, error) {
	value, err := strconv.ParseFloat(token, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, errFloatLitInvalid(start, []byte(token))
	}
	if err != nil {
		return nil, errFloatLitOutOfRange(token, start)
	}
	return &FloatLit{
		raw:   token,
		value: value,
		start: start,
	}, nil
}

func (n *FloatLit) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *FloatLit) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func (n *FloatLit) Raw() string {
	return n.raw
}

func (n *TextLit) Raw() string {
	return n.raw
}

func (n *FloatLit) Get() float64 {
	return n.value
}

type TextLit struct {
	leafNode
	raw       string
	value     string
	start     uint32
	validText bool
}

var _ Node = (*TextLit)(nil)

func (n *TextLit) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *TextLit) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func newTextLit(token string, start uint32, flags uint8) (*TextLit, error) {
	value := token[1 : len(token)-1]
	if flags&tokenFlagTextHasNoEscapes != 0 {
		return &TextLit{
			raw:       token,
			value:     value,
			start:     start,
			validText: true,
		}, nil
	}

	invalid := func() (*TextLit, error) {
		return nil, errTextLitInvalid(start, token)
	}

	var buf bytes.Buffer
	escaped := false
	validText := true
	for len(value) > 0 {
		c := value[0]
		if !escaped {
			if c == 0x5C {
				escaped = true
			} else {
				buf.WriteByte(c)
			}
			value = value[1:]
			continue
		}
		escaped = false

		switch c {
		case 0x22, 0x27, 0x5C:
			buf.WriteByte(c)
			value = value[1:]
		case 0x6E:
			buf.WriteByte(0x0A)
			value = value[1:]
		case 0x72:
			buf.WriteByte(0x0D)
			value = value[1:]
		case 0x74:
			buf.WriteByte(0x09)
			value = value[1:]
		case 0x78:
			if len(value) < 3 {
				return invalid()
			}
			b, err := strconv.ParseUint(value[1:3], 16, 8)
			if err != nil {
				return invalid()
			}
			if b > 0x7F {
				validText = false
			}
			buf.WriteByte(uint8(b))
			value = value[3:]
		case 0x75:
			value = value[1:]
			if len(value) == 0 || value[0] != 0x7B {
				return invalid()
			}
			value = value[1:]

			var hex string
			hexEnd := false
			for ii, hc := range value {
				if hc == 0x7D {
					hex = value[:ii]
					value = value[ii:]
					hexEnd = true
					break
				}
			}
			if !hexEnd || len(hex) == 0 || len(hex) > 6 {
				return invalid()
			}
			value = value[1:]

			scalar, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return invalid()
			}
			if scalar > 0x10FFFF || (scalar >= 0xD800 && scalar <= 0xDFFF) {
				return invalid()
			}

			buf.WriteRune(rune(scalar))
		default:
			return invalid()
		}
	}
	if escaped {
		return invalid()
	}
	return &TextLit{
		raw:       token,
		value:     buf.String(),
		start:     start,
		validText: validText,
	}, nil
}

func (n *TextLit) IsText() bool {
	return n.validText
}

// GetText returns the decoded value if it is valid UTF-8 text.
func (n *TextLit) GetText() (string, bool) {
	if !n.validText {
		return "", false
	}
	return n.value, true
}

// GetBytes returns the decoded value, including any raw \x escapes.
func (n *TextLit) GetBytes() []byte {
	return []byte(n.value)
}

type Sigil struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Sigil)(nil)

func (n *Sigil) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Sigil) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func (n *Sigil) Get() string {
	return n.raw
}

type Ident struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Ident)(nil)

func (n *Ident) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Ident) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func (n *Ident) Get() string {
	return n.raw
}

type Keyword struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Keyword)(nil)

func (n *Keyword) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Keyword) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

// File is the root of a parsed schema source file.
type File struct {
	branchNode
	id    *Tag
	decls []Decl
}

var _ Node = (*File)(nil)

// ID returns the file ID pragma, or nil if the file has none.
func (n *File) ID() *Tag {
	return n.id
}

func (n *File) Decls() []Decl {
	return n.decls
}

// Tag is an `@` followed by an integer literal: a declaration ID or a
// member ordinal.
type Tag struct {
	branchNode
	value *IntLit
}

var _ Node = (*Tag)(nil)

func (n *Tag) Value() *IntLit {
	return n.value
}

// Name is a dotted identifier path such as `Outer.Inner`.
type Name struct {
	branchNode
	parts []*Ident
}

var _ Node = (*Name)(nil)

func (n *Name) Parts() []*Ident {
	return n.parts
}

func (n *Name) String() string {
	parts := make([]string, 0, len(n.parts))
	for _, part := range n.parts {
		parts = append(parts, part.Get())
	}
	return strings.Join(parts, ".")
}

// TypeExpr is either a (possibly parameterized) name such as `List(Foo)`,
// or an import reference such as `import "foo.capnp".Foo.Bar`.
type TypeExpr struct {
	branchNode
	importPath *TextLit
	name       *Name
	param      *TypeExpr
}

var _ Node = (*TypeExpr)(nil)

// ImportPath is set for `import "path"` references.
func (n *TypeExpr) ImportPath() *TextLit {
	return n.importPath
}

// Name is the referenced name. For an import reference it is the path
// inside the imported file, and may be nil.
func (n *TypeExpr) Name() *Name {
	return n.name
}

func (n *TypeExpr) Param() *TypeExpr {
	return n.param
}

type declFields struct {
	name        *Ident
	id          *Tag
	annotations []*AnnotationApply
}

func (d *declFields) Name() *Ident {
	return d.name
}

func (d *declFields) ID() *Tag {
	return d.id
}

func (d *declFields) Annotations() []*AnnotationApply {
	return d.annotations
}

type Using struct {
	branchNode
	declFields
	target *TypeExpr
}

var _ Decl = (*Using)(nil)

func (n *Using) Target() *TypeExpr {
	return n.target
}

type Const struct {
	branchNode
	declFields
	typeExpr *TypeExpr
	value    Node
}

var _ Decl = (*Const)(nil)

func (n *Const) Type() *TypeExpr {
	return n.typeExpr
}

func (n *Const) Value() Node {
	return n.value
}

type Struct struct {
	branchNode
	declFields
	fields []*StructField
	decls  []Decl
}

var _ Decl = (*Struct)(nil)

func (n *Struct) Fields() []*StructField {
	return n.fields
}

func (n *Struct) Decls() []Decl {
	return n.decls
}

type StructField struct {
	branchNode
	name         *Ident
	ordinal      *Tag
	typeExpr     *TypeExpr
	defaultValue Node
	annotations  []*AnnotationApply
}

var _ Node = (*StructField)(nil)

func (n *StructField) Name() *Ident {
	return n.name
}

func (n *StructField) Ordinal() *Tag {
	return n.ordinal
}

func (n *StructField) Type() *TypeExpr {
	return n.typeExpr
}

// DefaultValue is nil when the field declares no default.
func (n *StructField) DefaultValue() Node {
	return n.defaultValue
}

func (n *StructField) Annotations() []*AnnotationApply {
	return n.annotations
}

type Enum struct {
	branchNode
	declFields
	enumerants []*Enumerant
}

var _ Decl = (*Enum)(nil)

func (n *Enum) Enumerants() []*Enumerant {
	return n.enumerants
}

type Enumerant struct {
	branchNode
	name        *Ident
	ordinal     *Tag
	annotations []*AnnotationApply
}

var _ Node = (*Enumerant)(nil)

func (n *Enumerant) Name() *Ident {
	return n.name
}

func (n *Enumerant) Ordinal() *Tag {
	return n.ordinal
}

func (n *Enumerant) Annotations() []*AnnotationApply {
	return n.annotations
}

type Interface struct {
	branchNode
	declFields
	methods []*Method
	decls   []Decl
}

var _ Decl = (*Interface)(nil)

func (n *Interface) Methods() []*Method {
	return n.methods
}

func (n *Interface) Decls() []Decl {
	return n.decls
}

type Method struct {
	branchNode
	name        *Ident
	ordinal     *Tag
	params      *ParamList
	results     *ParamList
	annotations []*AnnotationApply
}

var _ Node = (*Method)(nil)

func (n *Method) Name() *Ident {
	return n.name
}

func (n *Method) Ordinal() *Tag {
	return n.ordinal
}

func (n *Method) Params() *ParamList {
	return n.params
}

// Results is nil when the method declares no `-> (...)` clause.
func (n *Method) Results() *ParamList {
	return n.results
}

func (n *Method) Annotations() []*AnnotationApply {
	return n.annotations
}

type ParamList struct {
	branchNode
	params []*Param
}

var _ Node = (*ParamList)(nil)

func (n *ParamList) Params() iter.Seq[*Param] {
	return slices.Values(n.params)
}

func (n *ParamList) Len() int {
	return len(n.params)
}

type Param struct {
	branchNode
	name         *Ident
	typeExpr     *TypeExpr
	defaultValue Node
}

var _ Node = (*Param)(nil)

func (n *Param) Name() *Ident {
	return n.name
}

func (n *Param) Type() *TypeExpr {
	return n.typeExpr
}

func (n *Param) DefaultValue() Node {
	return n.defaultValue
}

type Annotation struct {
	branchNode
	declFields
	targets  []Node
	typeExpr *TypeExpr
}

var _ Decl = (*Annotation)(nil)

// Targets returns the target names, with `*` standing for every target.
func (n *Annotation) Targets() []string {
	out := make([]string, 0, len(n.targets))
	for _, target := range n.targets {
		switch target := target.(type) {
		case *Ident:
			out = append(out, target.Get())
		case *Sigil:
			out = append(out, target.Get())
		}
	}
	return out
}

func (n *Annotation) Type() *TypeExpr {
	return n.typeExpr
}

// AnnotationApply is a `$name(value)` application on a declaration or
// member.
type AnnotationApply struct {
	branchNode
	name  *Name
	value Node
}

var _ Node = (*AnnotationApply)(nil)

func (n *AnnotationApply) Name() *Name {
	return n.name
}

// Value is nil for `$name` without arguments.
func (n *AnnotationApply) Value() Node {
	return n.value
}

type ListLit struct {
	branchNode
	items []Node
}

var _ Node = (*ListLit)(nil)

func (n *ListLit) Items() []Node {
	return n.items
}

type StructLit struct {
	branchNode
	fields []*StructLitField
}

var _ Node = (*StructLit)(nil)

func (n *StructLit) Fields() []*StructLitField {
	return n.fields
}

type StructLitField struct {
	branchNode
	name  *Ident
	value Node
}

var _ Node = (*StructLitField)(nil)

func (n *StructLitField) Name() *Ident {
	return n.name
}

func (n *StructLitField) Value() Node {
	return n.value
}
