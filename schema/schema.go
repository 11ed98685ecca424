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

// Package schema holds the compiled, ID-addressed schema graph.
//
// Nodes are built by the compiler through a [NodeBuilder] and are read-only
// once published. Lazily computed values (constant values and field
// defaults) are memoized on the node with [sync.Once], so published nodes
// may be read from multiple goroutines.
package schema

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/tkdb34st/capnproto/syntax"
)

// ID is a 64-bit declaration identifier. Valid IDs have bit 63 set.
type ID uint64

const idValidBit = ID(1) << 63

func (id ID) Valid() bool {
	return id&idValidBit != 0
}

func (id ID) String() string {
	return fmt.Sprintf("0x%016x", uint64(id))
}

type Kind uint8

const (
	KindFile Kind = iota
	KindStruct
	KindEnum
	KindInterface
	KindConst
	KindAnnotation
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindInterface:
		return "interface"
	case KindConst:
		return "const"
	case KindAnnotation:
		return "annotation"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Location is a position in a schema source file, for diagnostics.
type Location struct {
	File   string
	Line   int
	Column int
}

func (loc Location) String() string {
	if loc.Line == 0 {
		return loc.File
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

type Node struct {
	id       ID
	kind     Kind
	name     string
	location Location
	scope    *Node

	nested       []*Node
	nestedByName map[string]*Node
	aliases      map[string]*Alias

	fields     []*Field
	enumerants []*Enumerant
	methods    []*Method

	typ         *Type
	asType      *Type
	expr        syntax.Node
	targets     []string
	annotations []*Annotation

	deps     []*Node
	depsByID map[ID]*Node

	constOnce  sync.Once
	constValue any
	constErr   error
}

func (n *Node) ID() ID {
	return n.id
}

func (n *Node) Kind() Kind {
	return n.kind
}

// Name is the declared name. For a file node it is the display name.
func (n *Node) Name() string {
	return n.name
}

// DisplayName is the file display name for file nodes, and
// "file.capnp:Outer.Inner" for declarations.
func (n *Node) DisplayName() string {
	if n.scope == nil {
		return n.name
	}
	var parts []string
	node := n
	for ; node.scope != nil; node = node.scope {
		parts = append(parts, node.name)
	}
	slices.Reverse(parts)
	return node.name + ":" + strings.Join(parts, ".")
}

func (n *Node) Location() Location {
	return n.location
}

// Scope is the lexically enclosing node, or nil for a file.
func (n *Node) Scope() *Node {
	return n.scope
}

// File is the file node this declaration belongs to.
func (n *Node) File() *Node {
	node := n
	for node.scope != nil {
		node = node.scope
	}
	return node
}

func (n *Node) Nested(name string) (*Node, bool) {
	node, ok := n.nestedByName[name]
	return node, ok
}

// NestedNodes returns nested declarations in declaration order.
func (n *Node) NestedNodes() []*Node {
	return n.nested
}

func (n *Node) Alias(name string) (*Alias, bool) {
	alias, ok := n.aliases[name]
	return alias, ok
}

// Lookup resolves name against this node and then each enclosing scope,
// checking nested declarations before `using` aliases at each level.
func (n *Node) Lookup(name string) (*Node, bool) {
	for scope := n; scope != nil; scope = scope.scope {
		if node, ok := scope.nestedByName[name]; ok {
			return node, true
		}
		if alias, ok := scope.aliases[name]; ok && alias.node != nil {
			return alias.node, true
		}
	}
	return nil, false
}

// Fields returns struct fields in ordinal order.
func (n *Node) Fields() []*Field {
	return n.fields
}

func (n *Node) Field(name string) (*Field, bool) {
	for _, field := range n.fields {
		if field.name == name {
			return field, true
		}
	}
	return nil, false
}

// Enumerants returns enumerants in ordinal order.
func (n *Node) Enumerants() []*Enumerant {
	return n.enumerants
}

func (n *Node) Enumerant(name string) (*Enumerant, bool) {
	for _, enumerant := range n.enumerants {
		if enumerant.name == name {
			return enumerant, true
		}
	}
	return nil, false
}

// Methods returns interface methods in ordinal order.
func (n *Node) Methods() []*Method {
	return n.methods
}

// Type is the declared type of a const or annotation.
func (n *Node) Type() *Type {
	return n.typ
}

// AsType is the type referring to a struct, enum or interface node, or nil
// for other kinds.
func (n *Node) AsType() *Type {
	return n.asType
}

// Expr is the unevaluated value of a const.
func (n *Node) Expr() syntax.Node {
	return n.expr
}

// Targets lists the declaration kinds an annotation may be applied to.
func (n *Node) Targets() []string {
	return n.targets
}

func (n *Node) Annotations() []*Annotation {
	return n.annotations
}

// Dependency returns a direct dependency by ID. Transitive dependencies are
// reached by navigating each direct dependency in turn.
func (n *Node) Dependency(id ID) (*Node, bool) {
	node, ok := n.depsByID[id]
	return node, ok
}

// Dependencies returns direct dependencies in the order they were first
// referenced.
func (n *Node) Dependencies() []*Node {
	return n.deps
}

// Walk yields this node and every nested declaration, depth first.
func (n *Node) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, child := range n.nested {
		if !child.walk(yield) {
			return false
		}
	}
	return true
}

// ResolveConst evaluates a const once and memoizes the result, including
// any error.
func (n *Node) ResolveConst(eval func(*Node) (any, error)) (any, error) {
	n.constOnce.Do(func() {
		n.constValue, n.constErr = eval(n)
	})
	return n.constValue, n.constErr
}

// Alias is a `using` declaration. It names either a node or a type that
// has no node, such as `List(Text)`.
type Alias struct {
	name     string
	node     *Node
	typ      *Type
	location Location
}

func (a *Alias) Name() string {
	return a.name
}

// Node is nil when the alias names a builtin or list type.
func (a *Alias) Node() *Node {
	return a.node
}

// Type is nil when the alias names a file, const or annotation.
func (a *Alias) Type() *Type {
	return a.typ
}

func (a *Alias) Location() Location {
	return a.location
}

type Field struct {
	name        string
	ordinal     uint16
	typ         *Type
	expr        syntax.Node
	parent      *Node
	location    Location
	annotations []*Annotation

	defaultOnce  sync.Once
	defaultValue any
	defaultErr   error
}

func (f *Field) Name() string {
	return f.name
}

func (f *Field) Ordinal() uint16 {
	return f.ordinal
}

func (f *Field) Type() *Type {
	return f.typ
}

// DefaultExpr is nil when the field has no declared default.
func (f *Field) DefaultExpr() syntax.Node {
	return f.expr
}

// Parent is the struct node declaring this field.
func (f *Field) Parent() *Node {
	return f.parent
}

func (f *Field) Location() Location {
	return f.location
}

func (f *Field) Annotations() []*Annotation {
	return f.annotations
}

// ResolveDefault evaluates the default once and memoizes the result.
func (f *Field) ResolveDefault(eval func(*Field) (any, error)) (any, error) {
	f.defaultOnce.Do(func() {
		f.defaultValue, f.defaultErr = eval(f)
	})
	return f.defaultValue, f.defaultErr
}

type Enumerant struct {
	name        string
	ordinal     uint16
	parent      *Node
	annotations []*Annotation
}

func (e *Enumerant) Name() string {
	return e.name
}

func (e *Enumerant) Ordinal() uint16 {
	return e.ordinal
}

// Parent is the enum node declaring this enumerant.
func (e *Enumerant) Parent() *Node {
	return e.parent
}

func (e *Enumerant) Annotations() []*Annotation {
	return e.annotations
}

type Method struct {
	name        string
	ordinal     uint16
	params      []*Param
	results     []*Param
	annotations []*Annotation
}

func (m *Method) Name() string {
	return m.name
}

func (m *Method) Ordinal() uint16 {
	return m.ordinal
}

func (m *Method) Params() []*Param {
	return m.params
}

func (m *Method) Results() []*Param {
	return m.results
}

func (m *Method) Annotations() []*Annotation {
	return m.annotations
}

type Param struct {
	name string
	typ  *Type
	expr syntax.Node
}

func NewParam(name string, typ *Type, defaultExpr syntax.Node) *Param {
	return &Param{name: name, typ: typ, expr: defaultExpr}
}

func (p *Param) Name() string {
	return p.name
}

func (p *Param) Type() *Type {
	return p.typ
}

func (p *Param) DefaultExpr() syntax.Node {
	return p.expr
}

// Annotation is an applied `$name(value)`.
type Annotation struct {
	decl  *Node
	expr  syntax.Node
	scope *Node
}

func NewAnnotation(decl *Node, expr syntax.Node, scope *Node) *Annotation {
	return &Annotation{decl: decl, expr: expr, scope: scope}
}

// Decl is the annotation declaration node.
func (a *Annotation) Decl() *Node {
	return a.decl
}

// Expr is nil for an annotation applied without a value.
func (a *Annotation) Expr() syntax.Node {
	return a.expr
}

// Scope is the node whose scope chain resolves names in Expr.
func (a *Annotation) Scope() *Node {
	return a.scope
}
