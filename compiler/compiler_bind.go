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

package compiler

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/source"
	"github.com/tkdb34st/capnproto/syntax"
)

func (p *Parser) compileUnit(u *unit, f *source.File) error {
	src, err := f.ReadContent()
	if err != nil {
		return ErrorList{errRead(f.DisplayName(), err)}
	}
	parsed, err := syntax.Parse(src)
	if err != nil {
		return ErrorList{errParse(f.DisplayName(), err)}
	}

	c := &compiler{
		p:       p,
		u:       u,
		file:    f,
		lines:   syntax.NewLineIndex(src),
		imports: make(map[string]*schema.Node),
	}
	c.compileFile(parsed)
	if len(c.errors) > 0 {
		return c.errors
	}
	u.warnings = c.warnings
	return nil
}

// compiler binds a single file. Nested imports get their own compiler.
type compiler struct {
	p        *Parser
	u        *unit
	file     *source.File
	lines    *syntax.LineIndex
	errors   ErrorList
	warnings []*Warning

	// Set by declare()
	decls  []*declInfo
	scopes []*scopeCtx

	// Keyed by import specifier. A nil node records a failed import.
	imports map[string]*schema.Node
}

type scopeCtx struct {
	parent  *scopeCtx
	builder *schema.NodeBuilder
	names   map[string]schema.Location
	usings  map[string]*usingInfo
	order   []*usingInfo
}

type declInfo struct {
	node    syntax.Decl
	builder *schema.NodeBuilder
	outer   *scopeCtx
	inner   *scopeCtx
	members []memberInfo
}

type memberInfo struct {
	name     string
	ordinal  uint16
	location schema.Location
}

type usingState uint8

const (
	usingPending usingState = iota
	usingResolving
	usingDone
)

type usingInfo struct {
	node     *syntax.Using
	scope    *scopeCtx
	location schema.Location
	state    usingState
	target   ref
	used     bool
}

// ref is a resolved name. Builtin types have no node, and files, consts
// and annotations have no type. A ref with neither is a failed lookup
// that has already been reported.
type ref struct {
	node *schema.Node
	typ  *schema.Type
}

func (r ref) reported() bool {
	return r.node == nil && r.typ == nil
}

func (c *compiler) err(err *Error) {
	c.errors = append(c.errors, err)
}

func (c *compiler) warn(warning *Warning) {
	c.warnings = append(c.warnings, warning)
}

func (c *compiler) loc(node syntax.Node) schema.Location {
	span := node.Span()
	pos := c.lines.Position(span.Start())
	return schema.Location{
		File:   c.file.DisplayName(),
		Line:   pos.Line,
		Column: pos.Column,
	}
}

func (c *compiler) compileFile(parsed *syntax.File) {
	file := c.declareFile(parsed)
	if file == nil {
		return
	}
	c.declare(file, parsed.Decls())
	if len(c.errors) > 0 {
		return
	}
	c.resolve()
	if len(c.errors) > 0 {
		return
	}
	c.seal()
}

func (c *compiler) declareFile(parsed *syntax.File) *scopeCtx {
	loc := schema.Location{File: c.file.DisplayName()}
	tag := parsed.ID()
	if tag == nil {
		c.err(errMissingFileID(loc, GenerateID()))
		return nil
	}
	id, ok := c.checkID(tag)
	if !ok {
		return nil
	}
	loc = c.loc(tag)

	builder := schema.NewFile(id, c.file.DisplayName(), loc)
	c.u.file = builder
	if prev := c.p.reserveID(c.u, id, builder.Node()); prev != nil {
		c.err(errDuplicateID(loc, id, prev))
		return nil
	}
	return c.newScope(nil, builder)
}

func (c *compiler) newScope(parent *scopeCtx, builder *schema.NodeBuilder) *scopeCtx {
	scope := &scopeCtx{
		parent:  parent,
		builder: builder,
		names:   make(map[string]schema.Location),
		usings:  make(map[string]*usingInfo),
	}
	c.scopes = append(c.scopes, scope)
	return scope
}

func (c *compiler) checkID(tag *syntax.Tag) (schema.ID, bool) {
	value, ok := tag.Value().GetUint64()
	if !ok || !schema.ID(value).Valid() {
		c.err(errInvalidID(c.loc(tag), tag.Value().Raw()))
		return 0, false
	}
	return schema.ID(value), true
}

func (c *compiler) checkOrdinal(tag *syntax.Tag) (uint16, bool) {
	ordinal, ok := tag.Value().GetUint16()
	if !ok {
		c.err(errOrdinalOutOfRange(c.loc(tag), tag.Value().Raw()))
		return 0, false
	}
	return ordinal, true
}

// registerName reserves name in scope, which is shared by nested
// declarations, aliases and members.
func (c *compiler) registerName(scope *scopeCtx, name *syntax.Ident) bool {
	loc := c.loc(name)
	if prev, conflict := scope.names[name.Get()]; conflict {
		c.err(errDuplicateName(loc, name.Get(), prev))
		return false
	}
	scope.names[name.Get()] = loc
	return true
}

// Phase 1: create a node for every declaration and reserve its ID.
func (c *compiler) declare(scope *scopeCtx, decls []syntax.Decl) {
	for _, decl := range decls {
		c.declareDecl(scope, decl)
	}
}

func (c *compiler) declareDecl(scope *scopeCtx, decl syntax.Decl) {
	if !c.registerName(scope, decl.Name()) {
		return
	}
	name := decl.Name().Get()
	loc := c.loc(decl.Name())

	if using, ok := decl.(*syntax.Using); ok {
		info := &usingInfo{node: using, scope: scope, location: loc}
		scope.usings[name] = info
		scope.order = append(scope.order, info)
		return
	}

	var kind schema.Kind
	switch decl.(type) {
	case *syntax.Struct:
		kind = schema.KindStruct
	case *syntax.Enum:
		kind = schema.KindEnum
	case *syntax.Interface:
		kind = schema.KindInterface
	case *syntax.Const:
		kind = schema.KindConst
	case *syntax.Annotation:
		kind = schema.KindAnnotation
	default:
		return
	}

	parentID := scope.builder.Node().ID()
	id := ChildID(parentID, name)
	if tag := decl.ID(); tag != nil {
		var ok bool
		if id, ok = c.checkID(tag); !ok {
			return
		}
	}

	builder := scope.builder.AddNested(kind, id, name, loc)
	if prev := c.p.reserveID(c.u, id, builder.Node()); prev != nil {
		c.err(errDuplicateID(loc, id, prev))
		return
	}

	info := &declInfo{node: decl, builder: builder, outer: scope}
	c.decls = append(c.decls, info)

	switch decl := decl.(type) {
	case *syntax.Struct:
		info.inner = c.newScope(scope, builder)
		for _, field := range decl.Fields() {
			c.registerName(info.inner, field.Name())
		}
		c.declare(info.inner, decl.Decls())
	case *syntax.Interface:
		info.inner = c.newScope(scope, builder)
		for _, method := range decl.Methods() {
			c.registerName(info.inner, method.Name())
		}
		c.declare(info.inner, decl.Decls())
	case *syntax.Enum:
		enumerants := make(map[string]schema.Location)
		for _, enumerant := range decl.Enumerants() {
			enumerantName := enumerant.Name().Get()
			enumerantLoc := c.loc(enumerant.Name())
			if prev, conflict := enumerants[enumerantName]; conflict {
				c.err(errDuplicateName(enumerantLoc, enumerantName, prev))
				continue
			}
			enumerants[enumerantName] = enumerantLoc
		}
	case *syntax.Annotation:
		builder.SetTargets(decl.Targets())
	}
}

// Phase 2: resolve names and add members.
func (c *compiler) resolve() {
	for _, info := range c.decls {
		switch decl := info.node.(type) {
		case *syntax.Struct:
			c.resolveStruct(info, decl)
		case *syntax.Enum:
			c.resolveEnum(info, decl)
		case *syntax.Interface:
			c.resolveInterface(info, decl)
		case *syntax.Const:
			info.builder.SetAnnotations(c.resolveAnnotations(info.outer, info.builder, decl.Annotations(), "const"))
			if typ := c.resolveType(info.outer, info.builder, decl.Type()); typ != nil {
				info.builder.SetType(typ)
			}
			info.builder.SetExpr(decl.Value())
			c.markUsed(info.outer, decl.Value())
		case *syntax.Annotation:
			info.builder.SetAnnotations(c.resolveAnnotations(info.outer, info.builder, decl.Annotations(), "annotation"))
			if typ := c.resolveType(info.outer, info.builder, decl.Type()); typ != nil {
				info.builder.SetType(typ)
			}
		}
	}

	for _, scope := range c.scopes {
		for _, using := range scope.order {
			c.resolveUsing(using)
		}
	}
	for _, scope := range c.scopes {
		for _, using := range scope.order {
			if !using.used && !using.target.reported() {
				c.warn(warnUnusedAlias(using.location, using.node.Name().Get()))
			}
		}
	}
}

func (c *compiler) resolveStruct(info *declInfo, decl *syntax.Struct) {
	b := info.builder
	b.SetAnnotations(c.resolveAnnotations(info.outer, b, decl.Annotations(), "struct"))
	for _, field := range decl.Fields() {
		ordinal, ok := c.checkOrdinal(field.Ordinal())
		typ := c.resolveType(info.inner, b, field.Type())
		annotations := c.resolveAnnotations(info.inner, b, field.Annotations(), "field")
		if !ok || typ == nil {
			continue
		}
		c.markUsed(info.inner, field.DefaultValue())
		loc := c.loc(field.Name())
		b.AddField(field.Name().Get(), ordinal, typ, field.DefaultValue(), annotations, loc)
		info.members = append(info.members, memberInfo{field.Name().Get(), ordinal, loc})
	}
}

func (c *compiler) resolveEnum(info *declInfo, decl *syntax.Enum) {
	b := info.builder
	b.SetAnnotations(c.resolveAnnotations(info.outer, b, decl.Annotations(), "enum"))
	for _, enumerant := range decl.Enumerants() {
		ordinal, ok := c.checkOrdinal(enumerant.Ordinal())
		annotations := c.resolveAnnotations(info.outer, b, enumerant.Annotations(), "enumerant")
		if !ok {
			continue
		}
		b.AddEnumerant(enumerant.Name().Get(), ordinal, annotations)
		info.members = append(info.members, memberInfo{
			enumerant.Name().Get(), ordinal, c.loc(enumerant.Name()),
		})
	}
}

func (c *compiler) resolveInterface(info *declInfo, decl *syntax.Interface) {
	b := info.builder
	b.SetAnnotations(c.resolveAnnotations(info.outer, b, decl.Annotations(), "interface"))
	for _, method := range decl.Methods() {
		ordinal, ok := c.checkOrdinal(method.Ordinal())
		params, paramsOK := c.resolveParams(info.inner, b, method.Params())
		results, resultsOK := c.resolveParams(info.inner, b, method.Results())
		annotations := c.resolveAnnotations(info.inner, b, method.Annotations(), "method")
		if !ok || !paramsOK || !resultsOK {
			continue
		}
		b.AddMethod(method.Name().Get(), ordinal, params, results, annotations)
		info.members = append(info.members, memberInfo{
			method.Name().Get(), ordinal, c.loc(method.Name()),
		})
	}
}

func (c *compiler) resolveParams(
	scope *scopeCtx,
	b *schema.NodeBuilder,
	list *syntax.ParamList,
) ([]*schema.Param, bool) {
	if list == nil {
		return nil, true
	}
	ok := true
	params := make([]*schema.Param, 0, list.Len())
	for param := range list.Params() {
		typ := c.resolveType(scope, b, param.Type())
		if typ == nil {
			ok = false
			continue
		}
		c.markUsed(scope, param.DefaultValue())
		params = append(params, schema.NewParam(param.Name().Get(), typ, param.DefaultValue()))
	}
	return params, ok
}

func (c *compiler) resolveAnnotations(
	scope *scopeCtx,
	b *schema.NodeBuilder,
	applies []*syntax.AnnotationApply,
	target string,
) []*schema.Annotation {
	var out []*schema.Annotation
	for _, apply := range applies {
		loc := c.loc(apply)
		r := c.resolveName(scope, apply.Name(), nil)
		if r.reported() {
			continue
		}
		if r.node == nil || r.node.Kind() != schema.KindAnnotation {
			if r.node == nil {
				c.err(errUnresolvedSymbol(loc, apply.Name().String()))
			} else {
				c.err(errNotAnAnnotation(loc, r.node))
			}
			continue
		}
		targets := r.node.Targets()
		if !slices.Contains(targets, target) && !slices.Contains(targets, "*") {
			c.err(errAnnotationTarget(loc, r.node, target))
			continue
		}
		b.AddDependency(r.node)
		c.markUsed(scope, apply.Value())
		out = append(out, schema.NewAnnotation(r.node, apply.Value(), scope.builder.Node()))
	}
	return out
}

// resolveType returns nil if an error was reported. Every referenced
// declaration is recorded as a dependency of b.
func (c *compiler) resolveType(
	scope *scopeCtx,
	b *schema.NodeBuilder,
	expr *syntax.TypeExpr,
) *schema.Type {
	r := c.resolveTypeExpr(scope, expr)
	if r.reported() {
		return nil
	}
	b.AddDependency(r.node)
	if r.typ == nil {
		c.err(errNotAType(c.loc(expr), typeExprName(expr), r.node.Kind()))
		return nil
	}
	for elem := r.typ; elem.Kind() == schema.TypeList; {
		elem = elem.Elem()
		b.AddDependency(elem.Node())
	}
	return r.typ
}

func typeExprName(expr *syntax.TypeExpr) string {
	if expr.ImportPath() != nil {
		if expr.Name() == nil {
			return syntax.Unparse(expr.ImportPath())
		}
		return syntax.Unparse(expr.ImportPath()) + "." + expr.Name().String()
	}
	return expr.Name().String()
}

func (c *compiler) resolveTypeExpr(scope *scopeCtx, expr *syntax.TypeExpr) ref {
	if lit := expr.ImportPath(); lit != nil {
		file := c.importFile(lit)
		if file == nil {
			return ref{}
		}
		if expr.Name() == nil {
			return ref{node: file}
		}
		return c.resolveNested(ref{node: file}, expr.Name().Parts(), expr.Name())
	}

	parts := expr.Name().Parts()
	if len(parts) == 1 && parts[0].Get() == "List" && !c.inScope(scope, "List") {
		if expr.Param() == nil {
			c.err(errListParam(c.loc(expr), "List"))
			return ref{}
		}
		elem := c.resolveTypeExpr(scope, expr.Param())
		if elem.reported() {
			return ref{}
		}
		if elem.typ == nil {
			c.err(errNotAType(c.loc(expr.Param()), typeExprName(expr.Param()), elem.node.Kind()))
			return ref{}
		}
		return ref{typ: schema.ListOf(elem.typ)}
	}
	if expr.Param() != nil {
		c.err(errListParam(c.loc(expr), expr.Name().String()))
		return ref{}
	}
	return c.resolveName(scope, expr.Name(), nil)
}

// resolveName looks up the first part of name in the scope chain, then in
// the builtin types, and walks the remaining parts as nested declarations.
// The alias being resolved, if any, is skipped in its own scope.
func (c *compiler) resolveName(scope *scopeCtx, name *syntax.Name, self *usingInfo) ref {
	parts := name.Parts()
	first := parts[0].Get()
	r, found := c.lookup(scope, first, self)
	if !found {
		if typ, ok := schema.Builtin(first); ok && len(parts) == 1 {
			return ref{typ: typ}
		}
		c.err(errUnresolvedSymbol(c.loc(parts[0]), first))
		return ref{}
	}
	if r.reported() {
		return r
	}
	return c.resolveNested(r, parts[1:], name)
}

func (c *compiler) resolveNested(r ref, parts []*syntax.Ident, name *syntax.Name) ref {
	for _, part := range parts {
		var next *schema.Node
		var ok bool
		if r.node != nil {
			next, ok = r.node.Nested(part.Get())
		}
		if !ok {
			c.err(errUnresolvedSymbol(c.loc(part), name.String()))
			return ref{}
		}
		r = ref{node: next, typ: next.AsType()}
	}
	return r
}

func (c *compiler) inScope(scope *scopeCtx, name string) bool {
	for ; scope != nil; scope = scope.parent {
		if _, ok := scope.names[name]; ok {
			return true
		}
	}
	return false
}

// lookup searches the scope chain for a nested declaration or alias.
func (c *compiler) lookup(scope *scopeCtx, name string, self *usingInfo) (ref, bool) {
	for ; scope != nil; scope = scope.parent {
		if node, ok := scope.builder.Node().Nested(name); ok {
			return ref{node: node, typ: node.AsType()}, true
		}
		if using, ok := scope.usings[name]; ok && using != self {
			using.used = true
			return c.resolveUsing(using), true
		}
	}
	return ref{}, false
}

// markUsed marks aliases named in a value expression as used. Values are
// evaluated lazily, so the names themselves are not resolved here.
func (c *compiler) markUsed(scope *scopeCtx, expr syntax.Node) {
	syntax.Walk(expr, func(node syntax.Node) bool {
		name, ok := node.(*syntax.Name)
		if !ok {
			return node != nil
		}
		first := name.Parts()[0].Get()
		for s := scope; s != nil; s = s.parent {
			if _, ok := s.builder.Node().Nested(first); ok {
				break
			}
			if using, ok := s.usings[first]; ok {
				using.used = true
				break
			}
		}
		return false
	})
}

func (c *compiler) resolveUsing(using *usingInfo) ref {
	switch using.state {
	case usingDone:
		return using.target
	case usingResolving:
		c.err(errAliasCycle(using.location, using.node.Name().Get()))
		return ref{}
	}

	using.state = usingResolving
	r := c.resolveAliasTarget(using)
	using.state = usingDone
	using.target = r
	if !r.reported() {
		using.scope.builder.AddAlias(using.node.Name().Get(), r.node, r.typ, using.location)
	}
	return r
}

func (c *compiler) resolveAliasTarget(using *usingInfo) ref {
	target := using.node.Target()
	if target.ImportPath() != nil || target.Param() != nil {
		return c.resolveTypeExpr(using.scope, target)
	}
	// Skipping the alias itself lets `using Foo = Foo;` in a nested scope
	// refer to an outer Foo.
	return c.resolveName(using.scope, target.Name(), using)
}

func (c *compiler) importFile(lit *syntax.TextLit) *schema.Node {
	specifier, _ := lit.GetText()
	if node, seen := c.imports[specifier]; seen {
		return node
	}
	c.imports[specifier] = nil

	loc := c.loc(lit)
	imported, err := c.file.Import(specifier)
	if err != nil {
		c.err(errImportNotFound(loc, err))
		return nil
	}
	c.p.log.WithFields(logrus.Fields{
		"file":   c.file.DisplayName(),
		"import": specifier,
		"path":   imported.CanonicalPath(),
	}).Debug("Resolved import")

	node, err := c.p.compileFile(imported)
	if err != nil {
		c.err(errImportFailed(loc, specifier, err))
		return nil
	}
	c.u.file.AddDependency(node)
	c.imports[specifier] = node
	return node
}

// Phase 3: check ordinals and sort members.
func (c *compiler) seal() {
	for _, info := range c.decls {
		if len(info.members) > 0 {
			c.checkOrdinals(info)
		}
	}
	if len(c.errors) > 0 {
		return
	}
	for _, info := range c.decls {
		info.builder.Seal()
	}
	c.u.file.Seal()
}

func (c *compiler) checkOrdinals(info *declInfo) {
	container := info.builder.Node().DisplayName()
	byOrdinal := make(map[uint16]string, len(info.members))
	maxOrdinal := uint16(0)
	for _, member := range info.members {
		if prev, dupe := byOrdinal[member.ordinal]; dupe {
			c.err(errDuplicateOrdinal(member.location, container, member.ordinal, prev))
			continue
		}
		byOrdinal[member.ordinal] = member.name
		maxOrdinal = max(maxOrdinal, member.ordinal)
	}
	for ordinal := range int(maxOrdinal) {
		if _, ok := byOrdinal[uint16(ordinal)]; !ok {
			c.warn(warnSkippedOrdinal(info.builder.Node().Location(), container, uint16(ordinal)))
		}
	}
}
