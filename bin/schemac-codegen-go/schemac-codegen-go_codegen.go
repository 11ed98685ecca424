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

package main

import (
	"encoding/json"
	"fmt"
	"go/format"
	"go/token"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tkdb34st/capnproto/encoding/schemadesc"
)

// handleRequest runs the generator on an encoded request. A nonzero rc
// means the response carries an error.
func handleRequest(requestBuf []byte) (*schemadesc.Response, uint32) {
	req, err := schemadesc.DecodeRequest(requestBuf)
	if err != nil {
		return &schemadesc.Response{Error: err.Error()}, 1
	}
	resp, err := generate(req)
	if err != nil {
		return &schemadesc.Response{Error: err.Error()}, 1
	}
	return resp, 0
}

// generate emits one Go file per requested schema file. Every requested
// file shares a package, named after the first of them. Declarations from
// files that were imported but not requested are typed as any.
func generate(req *schemadesc.Request) (*schemadesc.Response, error) {
	files := make(map[string]*schemadesc.File, len(req.Files))
	for _, file := range req.Files {
		files[file.ID] = file
	}
	var requested []*schemadesc.File
	for _, id := range req.Requested {
		file, ok := files[id]
		if !ok {
			return nil, fmt.Errorf("Requested file %s is missing from the request", id)
		}
		requested = append(requested, file)
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("No files requested")
	}

	c := &codegen{
		goPackage: goPackage(requested[0].DisplayName),
		goNames:   make(map[string]string),
	}
	for _, file := range requested {
		for _, node := range file.Nodes {
			c.nameNode(node, "")
		}
	}

	resp := &schemadesc.Response{}
	for _, file := range requested {
		content, err := c.emitFile(file)
		if err != nil {
			return nil, err
		}
		resp.Files = append(resp.Files, &schemadesc.OutputFile{
			Path:    []string{goPackage(file.DisplayName) + ".go"},
			Content: content,
		})
	}
	return resp, nil
}

type codegen struct {
	goPackage string
	// Node ID to Go type name, for every declaration in a requested file.
	goNames map[string]string

	output  strings.Builder
	imports map[string]bool
}

func (c *codegen) nameNode(node *schemadesc.Node, prefix string) {
	name := exported(node.Name)
	if prefix != "" {
		name = prefix + "_" + node.Name
	}
	c.goNames[node.ID] = name
	for _, nested := range node.Nested {
		c.nameNode(nested, name)
	}
}

func (c *codegen) emitFile(file *schemadesc.File) ([]byte, error) {
	c.output.Reset()
	c.imports = make(map[string]bool)

	var body strings.Builder
	for _, node := range file.Nodes {
		if err := c.emitNode(&body, node); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(&c.output, "// Code generated by schemac-codegen-go from %s. DO NOT EDIT.\n\n", file.DisplayName)
	fmt.Fprintf(&c.output, "package %s\n\n", c.goPackage)
	if len(c.imports) > 0 {
		c.output.WriteString("import (\n")
		for _, pkg := range slices.Sorted(maps.Keys(c.imports)) {
			fmt.Fprintf(&c.output, "%q\n", pkg)
		}
		c.output.WriteString(")\n\n")
	}
	c.output.WriteString(body.String())

	formatted, err := format.Source([]byte(c.output.String()))
	if err != nil {
		return nil, fmt.Errorf("Generated invalid Go for %s: %w", file.DisplayName, err)
	}
	return formatted, nil
}

func (c *codegen) emitNode(w *strings.Builder, node *schemadesc.Node) error {
	goName := c.goNames[node.ID]
	switch node.Kind {
	case "struct":
		fmt.Fprintf(w, "// %s is %s (%s).\n", goName, node.DisplayName, node.ID)
		fmt.Fprintf(w, "type %s struct {\n", goName)
		for _, field := range node.Fields {
			fmt.Fprintf(w, "%s %s\n", exported(field.Name), c.goType(field.Type))
		}
		w.WriteString("}\n\n")
	case "enum":
		c.imports["strconv"] = true
		fmt.Fprintf(w, "// %s is %s (%s).\n", goName, node.DisplayName, node.ID)
		fmt.Fprintf(w, "type %s uint16\n\n", goName)
		if len(node.Enumerants) > 0 {
			w.WriteString("const (\n")
			for _, enumerant := range node.Enumerants {
				fmt.Fprintf(w, "%s_%s %s = %d\n", goName, enumerant.Name, goName, enumerant.Ordinal)
			}
			w.WriteString(")\n\n")
		}
		fmt.Fprintf(w, "func (e %s) String() string {\nswitch e {\n", goName)
		for _, enumerant := range node.Enumerants {
			fmt.Fprintf(w, "case %s_%s:\nreturn %q\n", goName, enumerant.Name, enumerant.Name)
		}
		fmt.Fprintf(w, "}\nreturn \"%s(\" + strconv.Itoa(int(e)) + \")\"\n}\n\n", goName)
	case "interface":
		c.imports["context"] = true
		fmt.Fprintf(w, "// %s is %s (%s).\n", goName, node.DisplayName, node.ID)
		fmt.Fprintf(w, "type %s interface {\n", goName)
		for _, method := range node.Methods {
			fmt.Fprintf(w, "%s(ctx context.Context", exported(method.Name))
			for _, param := range method.Params {
				fmt.Fprintf(w, ", %s %s", paramName(param.Name), c.goType(param.Type))
			}
			w.WriteString(") (")
			for _, result := range method.Results {
				fmt.Fprintf(w, "%s %s, ", paramName(result.Name), c.goType(result.Type))
			}
			w.WriteString("err error)\n")
		}
		w.WriteString("}\n\n")
	case "const":
		literal, ok := c.constLiteral(node.Type, node.Value)
		if !ok {
			fmt.Fprintf(w, "// %s has no Go constant form.\n\n", node.DisplayName)
			break
		}
		fmt.Fprintf(w, "// %s is %s (%s).\n", goName, node.DisplayName, node.ID)
		fmt.Fprintf(w, "const %s %s = %s\n\n", goName, c.goType(node.Type), literal)
	}

	for _, nested := range node.Nested {
		if err := c.emitNode(w, nested); err != nil {
			return err
		}
	}
	return nil
}

var scalarGoTypes = map[string]string{
	"void":       "struct{}",
	"bool":       "bool",
	"int8":       "int8",
	"int16":      "int16",
	"int32":      "int32",
	"int64":      "int64",
	"uint8":      "uint8",
	"uint16":     "uint16",
	"uint32":     "uint32",
	"uint64":     "uint64",
	"float32":    "float32",
	"float64":    "float64",
	"text":       "string",
	"data":       "[]byte",
	"anypointer": "any",
}

func (c *codegen) goType(t *schemadesc.Type) string {
	if goType, ok := scalarGoTypes[t.Kind]; ok {
		return goType
	}
	switch t.Kind {
	case "list":
		return "[]" + c.goType(t.Elem)
	case "struct", "enum", "interface":
		if goName, ok := c.goNames[t.Node]; ok {
			return goName
		}
	}
	return "any"
}

// constLiteral renders a const value that Go can declare with const:
// booleans, finite numbers, text and enumerants.
func (c *codegen) constLiteral(t *schemadesc.Type, value any) (string, bool) {
	switch t.Kind {
	case "bool":
		b, ok := value.(bool)
		return strconv.FormatBool(b), ok
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		n, ok := value.(json.Number)
		return n.String(), ok
	case "float32", "float64":
		n, ok := value.(json.Number)
		if !ok {
			// "inf", "-inf" and "nan" are not constant expressions.
			return "", false
		}
		return n.String(), true
	case "text":
		s, ok := value.(string)
		return strconv.Quote(s), ok
	case "enum":
		goName, known := c.goNames[t.Node]
		name, ok := value.(string)
		if !known || !ok {
			return "", false
		}
		return goName + "_" + name, true
	}
	return "", false
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func paramName(name string) string {
	if token.IsKeyword(name) || name == "ctx" || name == "err" {
		return name + "_"
	}
	return name
}

// goPackage derives a package name from a display name, so that
// "proto/addr-book.capnp" becomes "addr_book".
func goPackage(displayName string) string {
	base := strings.TrimSuffix(path.Base(displayName), ".capnp")
	var buf strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('_')
		}
	}
	name := buf.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') || token.IsKeyword(name) {
		name = "schema_" + name
	}
	return name
}
