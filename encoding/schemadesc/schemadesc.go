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

// Package schemadesc describes a compiled schema graph as plain structs,
// for JSON and YAML output and for codegen plugin requests.
package schemadesc

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tkdb34st/capnproto/dynamic"
	"github.com/tkdb34st/capnproto/schema"
)

type Request struct {
	// IDs of the files named by the caller. Files also includes everything
	// they import.
	Requested []string `json:"requested" yaml:"requested"`
	Files     []*File  `json:"files" yaml:"files"`
}

type File struct {
	ID          string   `json:"id" yaml:"id"`
	DisplayName string   `json:"displayName" yaml:"display_name"`
	Imports     []string `json:"imports,omitempty" yaml:"imports,omitempty"`
	Nodes       []*Node  `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

type Node struct {
	ID           string        `json:"id" yaml:"id"`
	Kind         string        `json:"kind" yaml:"kind"`
	Name         string        `json:"name" yaml:"name"`
	DisplayName  string        `json:"displayName" yaml:"display_name"`
	Location     string        `json:"location" yaml:"location"`
	Dependencies []string      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Annotations  []*Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Fields       []*Field      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Enumerants   []*Enumerant  `json:"enumerants,omitempty" yaml:"enumerants,omitempty"`
	Methods      []*Method     `json:"methods,omitempty" yaml:"methods,omitempty"`
	Type         *Type         `json:"type,omitempty" yaml:"type,omitempty"`
	Value        any           `json:"value,omitempty" yaml:"value,omitempty"`
	Targets      []string      `json:"targets,omitempty" yaml:"targets,omitempty"`
	Nested       []*Node       `json:"nested,omitempty" yaml:"nested,omitempty"`
}

type Type struct {
	// Lowercase type kind, such as "uint32", "list" or "struct".
	Kind string `json:"kind" yaml:"kind"`
	Elem *Type  `json:"elem,omitempty" yaml:"elem,omitempty"`
	// ID of the enum, struct or interface declaration.
	Node string `json:"node,omitempty" yaml:"node,omitempty"`
}

type Field struct {
	Name        string        `json:"name" yaml:"name"`
	Ordinal     uint16        `json:"ordinal" yaml:"ordinal"`
	Type        *Type         `json:"type" yaml:"type"`
	Default     any           `json:"default,omitempty" yaml:"default,omitempty"`
	Annotations []*Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

type Enumerant struct {
	Name        string        `json:"name" yaml:"name"`
	Ordinal     uint16        `json:"ordinal" yaml:"ordinal"`
	Annotations []*Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

type Method struct {
	Name        string        `json:"name" yaml:"name"`
	Ordinal     uint16        `json:"ordinal" yaml:"ordinal"`
	Params      []*Param      `json:"params" yaml:"params"`
	Results     []*Param      `json:"results" yaml:"results"`
	Annotations []*Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

type Param struct {
	Name string `json:"name" yaml:"name"`
	Type *Type  `json:"type" yaml:"type"`
}

type Annotation struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Describe builds a request for files and every file they import,
// directly or not. Imports come before their importers.
//
// Const values, field defaults and annotation values are evaluated, and
// the first evaluation error is returned.
func Describe(files ...*schema.Node) (*Request, error) {
	d := &describer{seen: make(map[schema.ID]bool)}
	req := &Request{}
	for _, file := range files {
		req.Requested = append(req.Requested, file.ID().String())
		d.visitFile(file)
	}
	if d.err != nil {
		return nil, d.err
	}
	req.Files = d.files
	return req, nil
}

func (r *Request) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (r *Request) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type describer struct {
	seen  map[schema.ID]bool
	files []*File
	err   error
}

func (d *describer) visitFile(file *schema.Node) {
	if d.seen[file.ID()] {
		return
	}
	d.seen[file.ID()] = true

	out := &File{
		ID:          file.ID().String(),
		DisplayName: file.DisplayName(),
	}
	for _, dep := range file.Dependencies() {
		if dep.Kind() == schema.KindFile {
			d.visitFile(dep)
			out.Imports = append(out.Imports, dep.ID().String())
		}
	}
	for _, child := range file.NestedNodes() {
		out.Nodes = append(out.Nodes, d.node(child))
	}
	d.files = append(d.files, out)
}

func (d *describer) node(node *schema.Node) *Node {
	out := &Node{
		ID:          node.ID().String(),
		Kind:        node.Kind().String(),
		Name:        node.Name(),
		DisplayName: node.DisplayName(),
		Location:    node.Location().String(),
		Annotations: d.annotations(node.Annotations()),
		Targets:     node.Targets(),
	}
	for _, dep := range node.Dependencies() {
		out.Dependencies = append(out.Dependencies, dep.ID().String())
	}
	for _, field := range node.Fields() {
		f := &Field{
			Name:        field.Name(),
			Ordinal:     field.Ordinal(),
			Type:        describeType(field.Type()),
			Annotations: d.annotations(field.Annotations()),
		}
		if field.DefaultExpr() != nil {
			f.Default = d.value(dynamic.FieldDefault(field))
		}
		out.Fields = append(out.Fields, f)
	}
	for _, enumerant := range node.Enumerants() {
		out.Enumerants = append(out.Enumerants, &Enumerant{
			Name:        enumerant.Name(),
			Ordinal:     enumerant.Ordinal(),
			Annotations: d.annotations(enumerant.Annotations()),
		})
	}
	for _, method := range node.Methods() {
		out.Methods = append(out.Methods, &Method{
			Name:        method.Name(),
			Ordinal:     method.Ordinal(),
			Params:      describeParams(method.Params()),
			Results:     describeParams(method.Results()),
			Annotations: d.annotations(method.Annotations()),
		})
	}
	if node.Type() != nil {
		out.Type = describeType(node.Type())
	}
	if node.Kind() == schema.KindConst {
		out.Value = d.value(dynamic.Const(node))
	}
	for _, child := range node.NestedNodes() {
		out.Nested = append(out.Nested, d.node(child))
	}
	return out
}

func (d *describer) annotations(annotations []*schema.Annotation) []*Annotation {
	var out []*Annotation
	for _, annotation := range annotations {
		out = append(out, &Annotation{
			ID:    annotation.Decl().ID().String(),
			Name:  annotation.Decl().DisplayName(),
			Value: d.value(dynamic.AnnotationValue(annotation)),
		})
	}
	return out
}

func (d *describer) value(v dynamic.Value, err error) any {
	if err != nil {
		if d.err == nil {
			d.err = err
		}
		return nil
	}
	return Plain(v)
}

func describeParams(params []*schema.Param) []*Param {
	out := make([]*Param, 0, len(params))
	for _, param := range params {
		out = append(out, &Param{
			Name: param.Name(),
			Type: describeType(param.Type()),
		})
	}
	return out
}

// describeType lowercases kind names, as node kinds are.
func describeType(t *schema.Type) *Type {
	out := &Type{Kind: strings.ToLower(t.Kind().String())}
	switch t.Kind() {
	case schema.TypeList:
		out.Elem = describeType(t.Elem())
	case schema.TypeEnum, schema.TypeStruct, schema.TypeInterface:
		out.Node = t.Node().ID().String()
	}
	return out
}

// Plain converts a value to nil, bool, int64, uint64, float64, string,
// []byte, []any or map[string]any. Enum values become the enumerant name.
// Non-finite floats become "inf", "-inf" or "nan", which JSON cannot
// represent as numbers.
func Plain(v dynamic.Value) any {
	switch kind := v.Type().Kind(); {
	case kind == schema.TypeBool:
		b, _ := dynamic.As[bool](v)
		return b
	case kind.IsSigned():
		n, _ := dynamic.As[int64](v)
		return n
	case kind.IsUnsigned():
		n, _ := dynamic.As[uint64](v)
		return n
	case kind.IsFloat():
		f, _ := dynamic.As[float64](v)
		switch {
		case math.IsInf(f, 1):
			return "inf"
		case math.IsInf(f, -1):
			return "-inf"
		case math.IsNaN(f):
			return "nan"
		}
		return f
	case kind == schema.TypeText:
		s, _ := dynamic.As[string](v)
		return s
	case kind == schema.TypeData:
		b, _ := dynamic.As[[]byte](v)
		return b
	case kind == schema.TypeEnum:
		if enumerant, err := dynamic.As[*schema.Enumerant](v); err == nil {
			return enumerant.Name()
		}
		n, _ := dynamic.As[uint16](v)
		return n
	case kind == schema.TypeList:
		list, _ := v.List()
		out := make([]any, 0, list.Len())
		for _, item := range list.All() {
			out = append(out, Plain(item))
		}
		return out
	case kind == schema.TypeStruct:
		strct, _ := v.Struct()
		out := make(map[string]any)
		for field, item := range strct.All() {
			out[field.Name()] = Plain(item)
		}
		return out
	}
	return nil
}
