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

// Package schematext dumps a compiled schema graph as indented text.
//
// Const values and field defaults are evaluated while encoding, so the
// dump doubles as a check that every value in the file is well typed.
package schematext

import (
	"fmt"
	"io"
	"strings"

	"github.com/tkdb34st/capnproto/dynamic"
	"github.com/tkdb34st/capnproto/schema"
)

func Encode(file *schema.Node) (string, error) {
	var buf strings.Builder
	err := EncodeTo(file, &buf)
	return buf.String(), err
}

// EncodeTo writes file and its nested declarations to w. Imported files
// are listed by display name but not expanded.
func EncodeTo(file *schema.Node, w io.Writer) error {
	e := encoder{w: w}
	e.visitNode(file)
	return e.err
}

type encoder struct {
	w      io.Writer
	indent int
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if indent := strings.Repeat("\t", e.indent); indent != "" {
		if _, err := io.WriteString(e.w, indent); err != nil {
			e.err = err
			return
		}
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
		return
	}
	if _, err := io.WriteString(e.w, "\n"); err != nil {
		e.err = err
		return
	}
}

func (e *encoder) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *encoder) block(header string, body func()) {
	e.line(header + " {")
	e.indent += 1
	body()
	e.indent -= 1
	e.line("}")
}

func (e *encoder) visitNode(node *schema.Node) {
	if e.err != nil {
		return
	}
	header := fmt.Sprintf("%s %s", node.Kind(), node.Name())
	if node.Kind() == schema.KindFile {
		header = fmt.Sprintf("file %s", quote(node.Name()))
	}
	e.block(header, func() {
		e.linef("id = %s", node.ID())
		e.visitDependencies(node)
		e.visitAnnotations(node.Annotations())

		switch node.Kind() {
		case schema.KindStruct:
			for _, field := range node.Fields() {
				e.visitField(field)
			}
		case schema.KindEnum:
			for _, enumerant := range node.Enumerants() {
				e.visitEnumerant(enumerant)
			}
		case schema.KindInterface:
			for _, method := range node.Methods() {
				e.visitMethod(method)
			}
		case schema.KindConst:
			e.linef("type = %s", node.Type())
			value, err := dynamic.Const(node)
			if err != nil {
				e.err = err
				return
			}
			e.linef("value = %s", value)
		case schema.KindAnnotation:
			e.linef("type = %s", node.Type())
			e.linef("targets = [%s]", strings.Join(node.Targets(), ", "))
		}

		for _, child := range node.NestedNodes() {
			e.visitNode(child)
		}
	})
}

func (e *encoder) visitDependencies(node *schema.Node) {
	deps := node.Dependencies()
	if len(deps) == 0 {
		return
	}
	e.line("dependencies = [")
	e.indent += 1
	for _, dep := range deps {
		e.line(quote(dep.DisplayName()))
	}
	e.indent -= 1
	e.line("]")
}

func (e *encoder) visitAnnotations(annotations []*schema.Annotation) {
	for _, annotation := range annotations {
		value, err := dynamic.AnnotationValue(annotation)
		if err != nil {
			e.err = err
			return
		}
		e.linef("$%s = %s", annotation.Decl().DisplayName(), value)
	}
}

func (e *encoder) visitField(field *schema.Field) {
	e.block("field "+field.Name(), func() {
		e.linef("ordinal = %d", field.Ordinal())
		e.linef("type = %s", field.Type())
		if field.DefaultExpr() != nil {
			value, err := dynamic.FieldDefault(field)
			if err != nil {
				e.err = err
				return
			}
			e.linef("default = %s", value)
		}
		e.visitAnnotations(field.Annotations())
	})
}

func (e *encoder) visitEnumerant(enumerant *schema.Enumerant) {
	if len(enumerant.Annotations()) == 0 {
		e.linef("enumerant %s = %d", enumerant.Name(), enumerant.Ordinal())
		return
	}
	e.block("enumerant "+enumerant.Name(), func() {
		e.linef("ordinal = %d", enumerant.Ordinal())
		e.visitAnnotations(enumerant.Annotations())
	})
}

func (e *encoder) visitMethod(method *schema.Method) {
	e.block("method "+method.Name(), func() {
		e.linef("ordinal = %d", method.Ordinal())
		for _, param := range method.Params() {
			e.linef("param %s = %s", param.Name(), param.Type())
		}
		for _, result := range method.Results() {
			e.linef("result %s = %s", result.Name(), result.Type())
		}
		e.visitAnnotations(method.Annotations())
	})
}

func quote(text string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, c := range text {
		if c == '\\' || c == '"' {
			buf.WriteByte('\\')
			buf.WriteRune(c)
			continue
		}
		if c == '\t' {
			buf.WriteString("\\t")
			continue
		}
		if c == '\n' {
			buf.WriteString("\\n")
			continue
		}
		if c < 0x20 || c == 0x7F {
			fmt.Fprintf(&buf, "\\x%02X", c)
			continue
		}
		buf.WriteRune(c)
	}
	buf.WriteByte('"')
	return buf.String()
}
