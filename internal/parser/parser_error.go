package parser

import "github.com/vaislang/vais/internal/diag"

// parseAbort is thrown via panic/recover to unwind to ParseFile when the
// parser is not in multi-error mode. ParseFile's recover() wrapper
// carries the diagnostic that caused the abort instead of a bare
// runtime panic value.
type parseAbort struct {
	diagnostic *diag.Diagnostic
}

// errorf records a diagnostic at span and, unless p.MultiError is set,
// aborts parsing by panicking with parseAbort (recovered in ParseFile).
// In multi-error mode the caller is expected to substitute an
// ast.ExprError/recovery node and keep going rather than abort.
func (p *Parser) errorf(span diag.Span, code string, format string, args ...interface{}) {
	d := diag.New(code, span, format, args...)
	p.errors = append(p.errors, d)
	if !p.MultiError {
		panic(parseAbort{diagnostic: d})
	}
}

// peekError records an "unexpected token" diagnostic comparing the token
// the parser expected against the one it actually found.
func (p *Parser) peekError(want string) {
	p.errorf(p.curPos(), diag.E010, "expected next token to be %s, got %s instead", want, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError() {
	p.errorf(p.curPos(), diag.E010, "no prefix parse function for %s found", p.curToken.Type)
}
