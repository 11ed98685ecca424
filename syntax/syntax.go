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
)

type ParseOption interface {
	apply(*ParseOptions)
}

type parseOption func(*ParseOptions)

func (f parseOption) apply(opts *ParseOptions) { f(opts) }

// WithoutTrivia drops spaces, newlines and comments from the parsed tree.
// Spans are unaffected, but [Unparse] no longer round-trips the source.
func WithoutTrivia() ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.saveSpaces = false
		opts.saveNewlines = false
		opts.saveComments = false
	})
}

func Parse(src []uint8, opts ...ParseOption) (*File, error) {
	return NewParseOptions(opts...).ParseFile(src)
}

func ParseValue(src []uint8, opts ...ParseOption) (Node, error) {
	return NewParseOptions(opts...).ParseValue(src)
}

type ParseOptions struct {
	saveSpaces   bool
	saveNewlines bool
	saveComments bool
}

func NewParseOptions(opts ...ParseOption) *ParseOptions {
	parseOptions := &ParseOptions{
		saveSpaces:   true,
		saveNewlines: true,
		saveComments: true,
	}
	for _, opt := range opts {
		opt.apply(parseOptions)
	}
	return parseOptions
}

func (opts *ParseOptions) ParseFile(src []uint8) (*File, error) {
	ctx, err := newParseCtx[File](opts, src)
	if err != nil {
		return nil, locateErr(src, err)
	}
	file, err := parseFile(ctx)
	if err != nil {
		return nil, locateErr(src, err)
	}
	return file, nil
}

func (opts *ParseOptions) ParseTypeExpr(src []uint8) (*TypeExpr, error) {
	ctx, err := newParseCtx[TypeExpr](opts, src)
	if err != nil {
		return nil, locateErr(src, err)
	}
	typeExpr, err := parseTypeExpr(ctx)
	if err == nil {
		err = ctx.expectEOF()
	}
	if err != nil {
		return nil, locateErr(src, err)
	}
	return typeExpr, nil
}

type valueRoot struct{}

func (opts *ParseOptions) ParseValue(src []uint8) (Node, error) {
	ctx, err := newParseCtx[valueRoot](opts, src)
	if err != nil {
		return nil, locateErr(src, err)
	}
	ctx.comments()
	value := parseRequiredValue(ctx)
	if ctx.err == nil {
		ctx.err = ctx.expectEOF()
	}
	if ctx.err != nil {
		return nil, locateErr(src, ctx.err)
	}
	return value, nil
}

func locateErr(src []uint8, err error) error {
	if syntaxErr, ok := err.(*Error); ok {
		syntaxErr.locate(NewLineIndex(src))
	}
	return err
}

type parseCtx[T any] struct {
	src        []uint8
	opts       *ParseOptions
	tokens     *Tokens
	childNodes []Node
	haveToken  bool
	token      Token
	err        error
	consumed   uint32
	offset     uint32
}

func newParseCtx[T any](opts *ParseOptions, src []uint8) (*parseCtx[T], error) {
	tokens, err := NewTokens(src)
	if err != nil {
		return nil, err
	}
	return &parseCtx[T]{
		src:    src,
		opts:   opts,
		tokens: tokens,
	}, nil
}

func (ctx *parseCtx[T]) ensureToken() error {
	if ctx.err != nil {
		return ctx.err
	}
	if ctx.haveToken {
		return nil
	}
	if err := ctx.tokens.Next(&ctx.token); err != nil {
		ctx.err = err
		return ctx.err
	}
	ctx.haveToken = true
	return nil
}

// peek returns the kind of the next token, or T_EOF after an error.
func (ctx *parseCtx[T]) peek() TokenKind {
	if err := ctx.ensureToken(); err != nil {
		return T_EOF
	}
	return ctx.token.Kind
}

func (ctx *parseCtx[T]) readToken() []uint8 {
	return ctx.src[:ctx.token.Len]
}

func (ctx *parseCtx[T]) consumeToken(child Node) {
	ctx.src = ctx.src[ctx.token.Len:]
	ctx.consumed += uint32(ctx.token.Len)
	ctx.offset += uint32(ctx.token.Len)
	ctx.haveToken = false
	if child != nil {
		ctx.childNodes = append(ctx.childNodes, child)
	}
}

func (ctx *parseCtx[T]) tokenSpan() Span {
	return Span{
		start: ctx.offset,
		len:   uint32(ctx.token.Len),
	}
}

func (ctx *parseCtx[T]) loop(yield func(struct{}) bool) {
	if ctx.err != nil {
		return
	}
	for {
		consumed := ctx.consumed
		if !yield(struct{}{}) {
			return
		}
		if ctx.err != nil {
			return
		}
		if consumed == ctx.consumed {
			return
		}
	}
}

func (ctx *parseCtx[T]) consumeSpace() {
	if !ctx.opts.saveSpaces {
		ctx.consumeToken(nil)
		return
	}

	tokenBytes := ctx.readToken()
	var token string
	if bytes.Equal(tokenBytes, []uint8{' '}) {
		token = " "
	} else {
		token = string(tokenBytes)
	}
	ctx.consumeToken(&Space{
		raw:   token,
		start: ctx.offset,
	})
}

// comments skips spaces, newlines and comments.
func (ctx *parseCtx[T]) comments() {
	for _ = range ctx.loop {
		if err := ctx.ensureToken(); err != nil {
			return
		}
		switch ctx.token.Kind {
		case T_SPACE:
			ctx.consumeSpace()
		case T_NEWLINE:
			var child Node
			if ctx.opts.saveNewlines {
				child = &Newline{
					crlf:  ctx.token.Len == 2,
					start: ctx.offset,
				}
			}
			ctx.consumeToken(child)
		case T_COMMENT:
			var child Node
			if ctx.opts.saveComments {
				child = &Comment{
					raw:   string(ctx.readToken()),
					start: ctx.offset,
				}
			}
			ctx.consumeToken(child)
		default:
			return
		}
	}
}

func (ctx *parseCtx[T]) sigil(kind TokenKind) {
	if err := ctx.ensureToken(); err != nil {
		return
	}
	if ctx.token.Kind != kind {
		ctx.err = errExpectedSigil(
			kind,
			ctx.token.Kind,
			string(ctx.readToken()),
			ctx.tokenSpan(),
		)
		return
	}
	ctx.consumeToken(&Sigil{
		raw:   string(ctx.readToken()),
		start: ctx.offset,
	})
}

func (ctx *parseCtx[T]) trySigil(kind TokenKind) bool {
	return ctx.trySigilNode(kind) != nil
}

func (ctx *parseCtx[T]) trySigilNode(kind TokenKind) *Sigil {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	if ctx.token.Kind != kind {
		return nil
	}
	sigil := &Sigil{
		raw:   string(ctx.readToken()),
		start: ctx.offset,
	}
	ctx.consumeToken(sigil)
	return sigil
}

func (ctx *parseCtx[T]) tryKeyword(keyword string) bool {
	if err := ctx.ensureToken(); err != nil {
		return false
	}
	if ctx.token.Kind != T_IDENT {
		return false
	}
	if string(ctx.readToken()) != keyword {
		return false
	}
	ctx.consumeToken(&Keyword{
		raw:   keyword,
		start: ctx.offset,
	})
	return true
}

func (ctx *parseCtx[T]) ident() *Ident {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	token := string(ctx.readToken())
	if ctx.token.Kind != T_IDENT {
		ctx.err = errExpectedIdent(ctx.token.Kind, token, ctx.tokenSpan())
		return nil
	}
	ident := &Ident{
		raw:   token,
		start: ctx.offset,
	}
	ctx.consumeToken(ident)
	return ident
}

func (ctx *parseCtx[T]) int() *IntLit {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	token := string(ctx.readToken())

	if !ctx.token.Kind.isIntLit() {
		ctx.err = errExpectedIntLit(ctx.token.Kind, token, ctx.tokenSpan())
		return nil
	}

	intNode, err := newIntLit(token, ctx.token.Kind, ctx.offset)
	if err != nil {
		ctx.err = err
		return nil
	}
	ctx.consumeToken(intNode)
	return intNode
}

func (ctx *parseCtx[T]) float() *FloatLit {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	floatNode, err := newFloatLit(string(ctx.readToken()), ctx.offset)
	if err != nil {
		ctx.err = err
		return nil
	}
	ctx.consumeToken(floatNode)
	return floatNode
}

func (ctx *parseCtx[T]) text() *TextLit {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	token := string(ctx.readToken())

	if ctx.token.Kind != T_TEXT_LIT {
		ctx.err = errExpectedTextLit(ctx.token.Kind, token, ctx.tokenSpan())
		return nil
	}
	textNode, err := newTextLit(token, ctx.offset, ctx.token.flags)
	if err != nil {
		ctx.err = err
		return nil
	}
	ctx.consumeToken(textNode)
	return textNode
}

func (ctx *parseCtx[T]) expectEOF() error {
	ctx.comments()
	if err := ctx.ensureToken(); err != nil {
		return err
	}
	if ctx.token.Kind != T_EOF {
		return errUnexpectedTrailing(
			ctx.token.Kind,
			string(ctx.readToken()),
			ctx.tokenSpan(),
		)
	}
	return nil
}

func (ctx *parseCtx[T]) finish(
	build func(span Span, childNodes []Node) *T,
) (*T, error) {
	if ctx.err != nil {
		return nil, ctx.err
	}
	span := Span{
		start: ctx.offset - ctx.consumed,
		len:   ctx.consumed,
	}
	return build(span, ctx.childNodes), nil
}

func parseChild[P any, C any, PtrC interface {
	*C
	Node
}](
	ctx *parseCtx[P],
	parseChildFn func(*parseCtx[C]) (PtrC, error),
) (*C, bool) {
	if ctx.err != nil {
		return nil, false
	}
	childCtx := &parseCtx[C]{
		src:       ctx.src,
		opts:      ctx.opts,
		tokens:    ctx.tokens,
		haveToken: ctx.haveToken,
		token:     ctx.token,
		offset:    ctx.offset,
	}
	child, err := parseChildFn(childCtx)
	if err != nil {
		ctx.err = err
		return nil, false
	}

	ctx.haveToken = childCtx.haveToken
	ctx.token = childCtx.token

	if childCtx.consumed == 0 {
		return nil, false
	}
	ctx.src = ctx.src[childCtx.consumed:]
	ctx.consumed += childCtx.consumed
	ctx.offset = childCtx.offset
	ctx.childNodes = append(ctx.childNodes, child)
	return child, true
}

func parseFile(ctx *parseCtx[File]) (*File, error) {
	ctx.comments()

	var id *Tag
	if ctx.peek() == T_AT {
		id, _ = parseChild(ctx, parseTag)
		ctx.comments()
		ctx.sigil(T_SEMICOLON)
	}

	var decls []Decl
	for _ = range ctx.loop {
		ctx.comments()
		if ctx.peek() == T_EOF {
			break
		}
		decl, ok := parseDecl(ctx)
		if ctx.err != nil {
			return nil, ctx.err
		}
		if !ok {
			token := string(ctx.readToken())
			span := ctx.tokenSpan()
			if ctx.token.Kind == T_IDENT {
				return nil, errUnknownDeclaration(token, span)
			}
			return nil, errExpectedDeclaration(ctx.token.Kind, token, span)
		}
		decls = append(decls, decl)
	}

	return ctx.finish(func(span Span, childNodes []Node) *File {
		return &File{
			branchNode: branchNode{span, childNodes},
			id:         id,
			decls:      decls,
		}
	})
}

func parseDecl[T any](ctx *parseCtx[T]) (Decl, bool) {
	if decl, ok := parseChild(ctx, parseStruct); ok {
		return decl, true
	}
	if decl, ok := parseChild(ctx, parseEnum); ok {
		return decl, true
	}
	if decl, ok := parseChild(ctx, parseInterface); ok {
		return decl, true
	}
	if decl, ok := parseChild(ctx, parseConst); ok {
		return decl, true
	}
	if decl, ok := parseChild(ctx, parseAnnotation); ok {
		return decl, true
	}
	if decl, ok := parseChild(ctx, parseUsing); ok {
		return decl, true
	}
	return nil, false
}

func parseTag(ctx *parseCtx[Tag]) (*Tag, error) {
	ctx.sigil(T_AT)
	value := ctx.int()
	return ctx.finish(func(span Span, childNodes []Node) *Tag {
		return &Tag{
			branchNode: branchNode{span, childNodes},
			value:      value,
		}
	})
}

func parseOptionalID[T any](ctx *parseCtx[T]) *Tag {
	if ctx.peek() != T_AT {
		return nil
	}
	id, _ := parseChild(ctx, parseTag)
	ctx.comments()
	return id
}

func parseName(ctx *parseCtx[Name]) (*Name, error) {
	parts := []*Ident{ctx.ident()}
	for _ = range ctx.loop {
		if !ctx.trySigil(T_DOT) {
			break
		}
		parts = append(parts, ctx.ident())
	}
	return ctx.finish(func(span Span, childNodes []Node) *Name {
		return &Name{
			branchNode: branchNode{span, childNodes},
			parts:      parts,
		}
	})
}

func parseTypeExpr(ctx *parseCtx[TypeExpr]) (*TypeExpr, error) {
	if err := ctx.ensureToken(); err != nil {
		return nil, err
	}
	if ctx.token.Kind != T_IDENT {
		return nil, errExpectedTypeExpr(
			ctx.token.Kind,
			string(ctx.readToken()),
			ctx.tokenSpan(),
		)
	}

	var importPath *TextLit
	var name *Name
	var param *TypeExpr
	if ctx.tryKeyword("import") {
		ctx.comments()
		importPath = ctx.text()
		if importPath != nil && importPath.value == "" {
			return nil, errEmptyImportPath(importPath.Span())
		}
		if ctx.trySigil(T_DOT) {
			name, _ = parseChild(ctx, parseName)
		}
	} else {
		name, _ = parseChild(ctx, parseName)
		if ctx.trySigil(T_OPEN_PAREN) {
			ctx.comments()
			param, _ = parseChild(ctx, parseTypeExpr)
			ctx.comments()
			ctx.sigil(T_CLOSE_PAREN)
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *TypeExpr {
		return &TypeExpr{
			branchNode: branchNode{span, childNodes},
			importPath: importPath,
			name:       name,
			param:      param,
		}
	})
}

func parseAnnotationApplies[T any](ctx *parseCtx[T]) []*AnnotationApply {
	var annotations []*AnnotationApply
	for _ = range ctx.loop {
		if ctx.peek() != T_DOLLAR {
			break
		}
		if annotation, ok := parseChild(ctx, parseAnnotationApply); ok {
			annotations = append(annotations, annotation)
			ctx.comments()
		}
	}
	return annotations
}

func parseAnnotationApply(ctx *parseCtx[AnnotationApply]) (*AnnotationApply, error) {
	if !ctx.trySigil(T_DOLLAR) {
		return nil, nil
	}
	name, _ := parseChild(ctx, parseName)

	var value Node
	if ctx.trySigil(T_OPEN_PAREN) {
		ctx.comments()
		value = parseRequiredValue(ctx)
		ctx.comments()
		ctx.sigil(T_CLOSE_PAREN)
	}

	return ctx.finish(func(span Span, childNodes []Node) *AnnotationApply {
		return &AnnotationApply{
			branchNode: branchNode{span, childNodes},
			name:       name,
			value:      value,
		}
	})
}

func parseUsing(ctx *parseCtx[Using]) (*Using, error) {
	if !ctx.tryKeyword("using") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	ctx.sigil(T_EQ)
	ctx.comments()
	target, _ := parseChild(ctx, parseTypeExpr)
	ctx.comments()
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *Using {
		return &Using{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{name: name},
			target:     target,
		}
	})
}

func parseConst(ctx *parseCtx[Const]) (*Const, error) {
	if !ctx.tryKeyword("const") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	id := parseOptionalID(ctx)
	ctx.sigil(T_COLON)
	ctx.comments()
	typeExpr, _ := parseChild(ctx, parseTypeExpr)
	ctx.comments()
	ctx.sigil(T_EQ)
	ctx.comments()
	value := parseRequiredValue(ctx)
	ctx.comments()
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *Const {
		return &Const{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{
				name:        name,
				id:          id,
				annotations: annotations,
			},
			typeExpr: typeExpr,
			value:    value,
		}
	})
}

func parseStruct(ctx *parseCtx[Struct]) (*Struct, error) {
	if !ctx.tryKeyword("struct") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	id := parseOptionalID(ctx)
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_OPEN_CURL)

	var fields []*StructField
	var decls []Decl
	for _ = range ctx.loop {
		ctx.comments()
		if ctx.trySigil(T_CLOSE_CURL) {
			break
		}
		if decl, ok := parseDecl(ctx); ok {
			decls = append(decls, decl)
			continue
		}
		if ctx.err != nil {
			return nil, ctx.err
		}
		if ctx.peek() != T_IDENT {
			return nil, errExpectedMember(
				"struct",
				ctx.token.Kind,
				string(ctx.readToken()),
				ctx.tokenSpan(),
			)
		}
		if field, ok := parseChild(ctx, parseStructField); ok {
			fields = append(fields, field)
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *Struct {
		return &Struct{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{
				name:        name,
				id:          id,
				annotations: annotations,
			},
			fields: fields,
			decls:  decls,
		}
	})
}

func parseStructField(ctx *parseCtx[StructField]) (*StructField, error) {
	name := ctx.ident()
	ctx.comments()
	ordinal, _ := parseChild(ctx, parseTag)
	ctx.comments()
	ctx.sigil(T_COLON)
	ctx.comments()
	typeExpr, _ := parseChild(ctx, parseTypeExpr)
	ctx.comments()

	var defaultValue Node
	if ctx.trySigil(T_EQ) {
		ctx.comments()
		defaultValue = parseRequiredValue(ctx)
		ctx.comments()
	}
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *StructField {
		return &StructField{
			branchNode:   branchNode{span, childNodes},
			name:         name,
			ordinal:      ordinal,
			typeExpr:     typeExpr,
			defaultValue: defaultValue,
			annotations:  annotations,
		}
	})
}

func parseEnum(ctx *parseCtx[Enum]) (*Enum, error) {
	if !ctx.tryKeyword("enum") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	id := parseOptionalID(ctx)
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_OPEN_CURL)

	var enumerants []*Enumerant
	for _ = range ctx.loop {
		ctx.comments()
		if ctx.trySigil(T_CLOSE_CURL) {
			break
		}
		if ctx.peek() != T_IDENT {
			if ctx.err != nil {
				return nil, ctx.err
			}
			return nil, errExpectedMember(
				"enum",
				ctx.token.Kind,
				string(ctx.readToken()),
				ctx.tokenSpan(),
			)
		}
		if enumerant, ok := parseChild(ctx, parseEnumerant); ok {
			enumerants = append(enumerants, enumerant)
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *Enum {
		return &Enum{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{
				name:        name,
				id:          id,
				annotations: annotations,
			},
			enumerants: enumerants,
		}
	})
}

func parseEnumerant(ctx *parseCtx[Enumerant]) (*Enumerant, error) {
	name := ctx.ident()
	ctx.comments()
	ordinal, _ := parseChild(ctx, parseTag)
	ctx.comments()
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *Enumerant {
		return &Enumerant{
			branchNode:  branchNode{span, childNodes},
			name:        name,
			ordinal:     ordinal,
			annotations: annotations,
		}
	})
}

func parseInterface(ctx *parseCtx[Interface]) (*Interface, error) {
	if !ctx.tryKeyword("interface") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	id := parseOptionalID(ctx)
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_OPEN_CURL)

	var methods []*Method
	var decls []Decl
	for _ = range ctx.loop {
		ctx.comments()
		if ctx.trySigil(T_CLOSE_CURL) {
			break
		}
		if decl, ok := parseDecl(ctx); ok {
			decls = append(decls, decl)
			continue
		}
		if ctx.err != nil {
			return nil, ctx.err
		}
		if ctx.peek() != T_IDENT {
			return nil, errExpectedMember(
				"interface",
				ctx.token.Kind,
				string(ctx.readToken()),
				ctx.tokenSpan(),
			)
		}
		if method, ok := parseChild(ctx, parseMethod); ok {
			methods = append(methods, method)
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *Interface {
		return &Interface{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{
				name:        name,
				id:          id,
				annotations: annotations,
			},
			methods: methods,
			decls:   decls,
		}
	})
}

func parseMethod(ctx *parseCtx[Method]) (*Method, error) {
	name := ctx.ident()
	ctx.comments()
	ordinal, _ := parseChild(ctx, parseTag)
	ctx.comments()
	params, _ := parseChild(ctx, parseParamList)
	ctx.comments()

	var results *ParamList
	if ctx.trySigil(T_ARROW) {
		ctx.comments()
		results, _ = parseChild(ctx, parseParamList)
		ctx.comments()
	}
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *Method {
		return &Method{
			branchNode:  branchNode{span, childNodes},
			name:        name,
			ordinal:     ordinal,
			params:      params,
			results:     results,
			annotations: annotations,
		}
	})
}

func parseParamList(ctx *parseCtx[ParamList]) (*ParamList, error) {
	ctx.sigil(T_OPEN_PAREN)
	ctx.comments()

	var params []*Param
	if !ctx.trySigil(T_CLOSE_PAREN) {
		for _ = range ctx.loop {
			if param, ok := parseChild(ctx, parseParam); ok {
				params = append(params, param)
			}
			ctx.comments()
			if ctx.trySigil(T_COMMA) {
				ctx.comments()
				continue
			}
			ctx.sigil(T_CLOSE_PAREN)
			break
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *ParamList {
		return &ParamList{
			branchNode: branchNode{span, childNodes},
			params:     params,
		}
	})
}

func parseParam(ctx *parseCtx[Param]) (*Param, error) {
	name := ctx.ident()
	ctx.comments()
	ctx.sigil(T_COLON)
	ctx.comments()
	typeExpr, _ := parseChild(ctx, parseTypeExpr)

	var defaultValue Node
	ctx.comments()
	if ctx.trySigil(T_EQ) {
		ctx.comments()
		defaultValue = parseRequiredValue(ctx)
	}

	return ctx.finish(func(span Span, childNodes []Node) *Param {
		return &Param{
			branchNode:   branchNode{span, childNodes},
			name:         name,
			typeExpr:     typeExpr,
			defaultValue: defaultValue,
		}
	})
}

var annotationTargets = map[string]struct{}{
	"file":       {},
	"const":      {},
	"enum":       {},
	"enumerant":  {},
	"struct":     {},
	"field":      {},
	"interface":  {},
	"method":     {},
	"param":      {},
	"annotation": {},
}

func parseAnnotation(ctx *parseCtx[Annotation]) (*Annotation, error) {
	if !ctx.tryKeyword("annotation") {
		return nil, nil
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	id := parseOptionalID(ctx)
	ctx.sigil(T_OPEN_PAREN)
	ctx.comments()

	var targets []Node
	for _ = range ctx.loop {
		if star := ctx.trySigilNode(T_STAR); star != nil {
			targets = append(targets, star)
		} else if ctx.peek() == T_IDENT {
			target := ctx.ident()
			if _, ok := annotationTargets[target.Get()]; !ok {
				return nil, errUnknownAnnotationTarget(target.Get(), target.Span())
			}
			targets = append(targets, target)
		} else {
			if ctx.err != nil {
				return nil, ctx.err
			}
			return nil, errExpectedAnnotationTarget(
				ctx.token.Kind,
				string(ctx.readToken()),
				ctx.tokenSpan(),
			)
		}
		ctx.comments()
		if ctx.trySigil(T_COMMA) {
			ctx.comments()
			continue
		}
		ctx.sigil(T_CLOSE_PAREN)
		break
	}
	ctx.comments()
	ctx.sigil(T_COLON)
	ctx.comments()
	typeExpr, _ := parseChild(ctx, parseTypeExpr)
	ctx.comments()
	annotations := parseAnnotationApplies(ctx)
	ctx.sigil(T_SEMICOLON)

	return ctx.finish(func(span Span, childNodes []Node) *Annotation {
		return &Annotation{
			branchNode: branchNode{span, childNodes},
			declFields: declFields{
				name:        name,
				id:          id,
				annotations: annotations,
			},
			targets:  targets,
			typeExpr: typeExpr,
		}
	})
}

func parseRequiredValue[T any](ctx *parseCtx[T]) Node {
	node := parseValue(ctx)
	if node == nil && ctx.err == nil {
		ctx.err = errExpectedValue(
			ctx.token.Kind,
			string(ctx.readToken()),
			ctx.tokenSpan(),
		)
	}
	return node
}

func parseValue[T any](ctx *parseCtx[T]) Node {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	switch kind := ctx.token.Kind; {
	case kind.isIntLit():
		if child := ctx.int(); child != nil {
			return child
		}
	case kind == T_FLOAT_LIT:
		if child := ctx.float(); child != nil {
			return child
		}
	case kind == T_TEXT_LIT:
		if child := ctx.text(); child != nil {
			return child
		}
	case kind == T_OPEN_SQUARE:
		if child, ok := parseChild(ctx, parseListLit); ok {
			return child
		}
	case kind == T_OPEN_PAREN:
		if child, ok := parseChild(ctx, parseStructLit); ok {
			return child
		}
	case kind == T_IDENT:
		if child, ok := parseChild(ctx, parseName); ok {
			return child
		}
	}
	return nil
}

func parseListLit(ctx *parseCtx[ListLit]) (*ListLit, error) {
	ctx.sigil(T_OPEN_SQUARE)
	ctx.comments()

	var items []Node
	if !ctx.trySigil(T_CLOSE_SQUARE) {
		for _ = range ctx.loop {
			if item := parseRequiredValue(ctx); item != nil {
				items = append(items, item)
			}
			ctx.comments()
			if ctx.trySigil(T_COMMA) {
				ctx.comments()
				if ctx.trySigil(T_CLOSE_SQUARE) {
					break
				}
				continue
			}
			ctx.sigil(T_CLOSE_SQUARE)
			break
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *ListLit {
		return &ListLit{
			branchNode: branchNode{span, childNodes},
			items:      items,
		}
	})
}

func parseStructLit(ctx *parseCtx[StructLit]) (*StructLit, error) {
	ctx.sigil(T_OPEN_PAREN)
	ctx.comments()

	var fields []*StructLitField
	if !ctx.trySigil(T_CLOSE_PAREN) {
		for _ = range ctx.loop {
			if field, ok := parseChild(ctx, parseStructLitField); ok {
				fields = append(fields, field)
			}
			ctx.comments()
			if ctx.trySigil(T_COMMA) {
				ctx.comments()
				if ctx.trySigil(T_CLOSE_PAREN) {
					break
				}
				continue
			}
			ctx.sigil(T_CLOSE_PAREN)
			break
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *StructLit {
		return &StructLit{
			branchNode: branchNode{span, childNodes},
			fields:     fields,
		}
	})
}

// parseStructLitField accepts both `name: value` and `name = value`.
func parseStructLitField(ctx *parseCtx[StructLitField]) (*StructLitField, error) {
	name := ctx.ident()
	ctx.comments()
	if !ctx.trySigil(T_COLON) {
		ctx.sigil(T_EQ)
	}
	ctx.comments()
	value := parseRequiredValue(ctx)

	return ctx.finish(func(span Span, childNodes []Node) *StructLitField {
		return &StructLitField{
			branchNode: branchNode{span, childNodes},
			name:       name,
			value:      value,
		}
	})
}
