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
	"cmp"
	"slices"

	"github.com/tkdb34st/capnproto/syntax"
)

// NodeBuilder mutates a node while it is being compiled. The node pointer
// is available from [NodeBuilder.Node] immediately so that references to
// it can be taken before it is complete.
type NodeBuilder struct {
	node *Node
}

func NewFile(id ID, displayName string, loc Location) *NodeBuilder {
	return &NodeBuilder{node: &Node{
		id:       id,
		kind:     KindFile,
		name:     displayName,
		location: loc,
	}}
}

func (b *NodeBuilder) Node() *Node {
	return b.node
}

// AddNested creates a nested declaration. Name uniqueness is the caller's
// responsibility.
func (b *NodeBuilder) AddNested(kind Kind, id ID, name string, loc Location) *NodeBuilder {
	child := &Node{
		id:       id,
		kind:     kind,
		name:     name,
		location: loc,
		scope:    b.node,
	}
	switch kind {
	case KindStruct:
		child.asType = &Type{kind: TypeStruct, node: child}
	case KindEnum:
		child.asType = &Type{kind: TypeEnum, node: child}
	case KindInterface:
		child.asType = &Type{kind: TypeInterface, node: child}
	}
	if b.node.nestedByName == nil {
		b.node.nestedByName = make(map[string]*Node)
	}
	b.node.nested = append(b.node.nested, child)
	b.node.nestedByName[name] = child
	return &NodeBuilder{node: child}
}

// AddAlias records a `using` declaration. Exactly one of node or typ
// should be set, except for struct, enum and interface targets, which set
// both.
func (b *NodeBuilder) AddAlias(name string, node *Node, typ *Type, loc Location) *Alias {
	alias := &Alias{
		name:     name,
		node:     node,
		typ:      typ,
		location: loc,
	}
	if b.node.aliases == nil {
		b.node.aliases = make(map[string]*Alias)
	}
	b.node.aliases[name] = alias
	return alias
}

func (b *NodeBuilder) AddField(
	name string,
	ordinal uint16,
	typ *Type,
	defaultExpr syntax.Node,
	annotations []*Annotation,
	loc Location,
) *Field {
	field := &Field{
		name:        name,
		ordinal:     ordinal,
		typ:         typ,
		expr:        defaultExpr,
		parent:      b.node,
		location:    loc,
		annotations: annotations,
	}
	b.node.fields = append(b.node.fields, field)
	return field
}

func (b *NodeBuilder) AddEnumerant(name string, ordinal uint16, annotations []*Annotation) *Enumerant {
	enumerant := &Enumerant{
		name:        name,
		ordinal:     ordinal,
		parent:      b.node,
		annotations: annotations,
	}
	b.node.enumerants = append(b.node.enumerants, enumerant)
	return enumerant
}

func (b *NodeBuilder) AddMethod(
	name string,
	ordinal uint16,
	params []*Param,
	results []*Param,
	annotations []*Annotation,
) *Method {
	method := &Method{
		name:        name,
		ordinal:     ordinal,
		params:      params,
		results:     results,
		annotations: annotations,
	}
	b.node.methods = append(b.node.methods, method)
	return method
}

func (b *NodeBuilder) SetType(typ *Type) {
	b.node.typ = typ
}

func (b *NodeBuilder) SetExpr(expr syntax.Node) {
	b.node.expr = expr
}

func (b *NodeBuilder) SetTargets(targets []string) {
	b.node.targets = targets
}

func (b *NodeBuilder) SetAnnotations(annotations []*Annotation) {
	b.node.annotations = annotations
}

// AddDependency records a direct dependency. Self references and repeats
// are ignored.
func (b *NodeBuilder) AddDependency(dep *Node) {
	if dep == nil || dep == b.node {
		return
	}
	if _, ok := b.node.depsByID[dep.id]; ok {
		return
	}
	if b.node.depsByID == nil {
		b.node.depsByID = make(map[ID]*Node)
	}
	b.node.deps = append(b.node.deps, dep)
	b.node.depsByID[dep.id] = dep
}

// Seal orders members by ordinal. Ordinals must already be unique.
func (b *NodeBuilder) Seal() {
	slices.SortStableFunc(b.node.fields, func(x, y *Field) int {
		return cmp.Compare(x.ordinal, y.ordinal)
	})
	slices.SortStableFunc(b.node.enumerants, func(x, y *Enumerant) int {
		return cmp.Compare(x.ordinal, y.ordinal)
	})
	slices.SortStableFunc(b.node.methods, func(x, y *Method) int {
		return cmp.Compare(x.ordinal, y.ordinal)
	})
}
