// Package diag provides the stable coded-diagnostic contract shared by every
// compiler stage: lexer, parser, type checker, IR lowering, and the JIT.
package diag

import "fmt"

// Span is a byte-offset range into a single source file. Tokens and AST
// nodes never carry references into the source text, only spans.
type Span struct {
	Start int
	End   int
	File  string
}

// String renders a span as "file:start-end" for log and error messages.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether offset lies within [Start, End).
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}
