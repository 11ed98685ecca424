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

// Package compiler binds parsed schema files into a [schema.Node] graph.
//
// A [Parser] owns the graph: every file it compiles is cached by canonical
// path and every declaration by ID, for the lifetime of the Parser. A
// Parser is not safe for concurrent use, but the nodes it returns are.
package compiler

import (
	"io"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/tkdb34st/capnproto/schema"
	"github.com/tkdb34st/capnproto/source"
)

type ParserOption interface {
	apply(*ParserOptions)
}

type parserOption func(*ParserOptions)

func (f parserOption) apply(opts *ParserOptions) { f(opts) }

type ParserOptions struct {
	logger logrus.FieldLogger
}

// WithLogger logs file resolution and compilation at debug level.
func WithLogger(logger logrus.FieldLogger) ParserOption {
	return parserOption(func(opts *ParserOptions) {
		opts.logger = logger
	})
}

type Parser struct {
	log logrus.FieldLogger

	files     map[string]*schema.Node
	fileOrder []*schema.Node
	ids       map[schema.ID]*schema.Node
	warnings  []*Warning

	// Files being compiled, or compiled but waiting on a file further up
	// the stack.
	units map[string]*unit
	stack []*unit
}

// unit is one file's compilation. A unit that references a file still on
// the stack cannot be published until that file is, so it joins the
// group of the lowest such file and shares its fate.
type unit struct {
	path     string
	display  string
	file     *schema.NodeBuilder
	depth    int
	low      int
	heldBy   *unit
	group    []*unit
	ids      []schema.ID
	warnings []*Warning
}

func NewParser(opts ...ParserOption) *Parser {
	parserOptions := &ParserOptions{}
	for _, opt := range opts {
		opt.apply(parserOptions)
	}
	logger := parserOptions.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Parser{
		log:   logger,
		files: make(map[string]*schema.Node),
		ids:   make(map[schema.ID]*schema.Node),
		units: make(map[string]*unit),
	}
}

// ParseFile compiles f and its imports. If f's canonical path has already
// been compiled, the cached node is returned and f's display name is
// ignored.
//
// On failure the error is an [ErrorList], and nothing from this call is
// added to the cache.
func (p *Parser) ParseFile(f *source.File) (*schema.Node, error) {
	return p.compileFile(f)
}

// ParseDiskFile is shorthand for [Parser.ParseFile] on
// [source.NewDiskFile].
func (p *Parser) ParseDiskFile(
	displayName string,
	path string,
	importPath []string,
	r source.Reader,
) (*schema.Node, error) {
	return p.ParseFile(source.NewDiskFile(displayName, path, importPath, r))
}

// Node returns any compiled declaration by ID.
func (p *Parser) Node(id schema.ID) (*schema.Node, bool) {
	node, ok := p.ids[id]
	return node, ok
}

// Files yields compiled files in the order they were published.
func (p *Parser) Files() iter.Seq[*schema.Node] {
	return func(yield func(*schema.Node) bool) {
		for _, file := range p.fileOrder {
			if !yield(file) {
				return
			}
		}
	}
}

// Warnings returns warnings for every published file.
func (p *Parser) Warnings() []*Warning {
	return p.warnings
}

func (p *Parser) compileFile(f *source.File) (*schema.Node, error) {
	path := f.CanonicalPath()
	log := p.log.WithFields(logrus.Fields{
		"file": f.DisplayName(),
		"path": path,
	})

	if node, ok := p.files[path]; ok {
		log.WithField("display", node.DisplayName()).Debug("Using cached file")
		return node, nil
	}
	if u, ok := p.units[path]; ok {
		holder := u
		if u.heldBy != nil {
			holder = u.heldBy
		}
		log.WithField("depth", holder.depth).Debug("Referenced file is still compiling")
		p.noteReference(holder.depth)
		return u.file.Node(), nil
	}

	u := &unit{
		path:    path,
		display: f.DisplayName(),
		depth:   len(p.stack),
		low:     len(p.stack),
	}
	p.units[path] = u
	p.stack = append(p.stack, u)
	log.Debug("Compiling...")

	err := p.compileUnit(u, f)

	p.stack = p.stack[:len(p.stack)-1]
	if err != nil {
		log.WithError(err).Debug("Compilation failed")
		p.discard(u)
		return nil, err
	}

	if u.low < u.depth {
		holder := p.stack[u.low]
		log.WithField("held_by", holder.display).Debug("Waiting on file further up the stack")
		p.hold(holder, u)
		p.noteReference(holder.depth)
		return u.file.Node(), nil
	}

	p.publish(u)
	log.WithField("id", u.file.Node().ID()).Debug("Compiled")
	return u.file.Node(), nil
}

// noteReference records that the file on top of the stack depends on the
// unit at depth.
func (p *Parser) noteReference(depth int) {
	if len(p.stack) == 0 {
		return
	}
	top := p.stack[len(p.stack)-1]
	top.low = min(top.low, depth)
}

func (p *Parser) hold(holder *unit, u *unit) {
	members := append([]*unit{u}, u.group...)
	u.group = nil
	for _, member := range members {
		member.heldBy = holder
	}
	holder.group = append(holder.group, members...)
}

func (p *Parser) publish(u *unit) {
	for _, member := range append([]*unit{u}, u.group...) {
		node := member.file.Node()
		delete(p.units, member.path)
		p.files[member.path] = node
		p.fileOrder = append(p.fileOrder, node)
		p.warnings = append(p.warnings, member.warnings...)
		member.heldBy = nil
	}
	u.group = nil
}

func (p *Parser) discard(u *unit) {
	for _, member := range append([]*unit{u}, u.group...) {
		delete(p.units, member.path)
		for _, id := range member.ids {
			delete(p.ids, id)
		}
	}
	u.group = nil
}

func (p *Parser) reserveID(u *unit, id schema.ID, node *schema.Node) *schema.Node {
	if prev, ok := p.ids[id]; ok && prev != node {
		return prev
	}
	p.ids[id] = node
	u.ids = append(u.ids, id)
	return nil
}
