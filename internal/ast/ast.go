// Package ast defines the Vais abstract syntax tree: the contract between
// the parser (internal/parser) and everything downstream (internal/checker,
// internal/ir). Surface syntax is deliberately not part of this contract —
// only the shape of this tree is.
package ast

import "github.com/vaislang/vais/internal/diag"

// Node is the base interface every AST node implements. Every node carries
// a span; nodes never hold references into the source text, only the span
// the parser derived it from.
type Node interface {
	Span() diag.Span
}

// base is embedded by every concrete node to provide Span() without
// repeating the field and accessor in each type.
type base struct {
	span diag.Span
}

func (b base) Span() diag.Span { return b.span }

// NewBase constructs the embeddable span holder; exported so the parser can
// build nodes from a single call site.
func NewBase(span diag.Span) base { return base{span: span} }

// Module is the root of every parsed file: a flat list of top-level items.
type Module struct {
	base
	Path  string // logical module path, independent of file system path
	Items []Item
}

func NewModule(span diag.Span, path string, items []Item) *Module {
	return &Module{base: NewBase(span), Path: path, Items: items}
}
