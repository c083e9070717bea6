package diag

import (
	"fmt"
	"strings"
)

// Diagnostic is the wire contract every stage reports errors in, so
// external collaborators (LSP, registry, DAP) can render them without
// caring which stage produced them.
type Diagnostic struct {
	Code      string
	Severity  Severity
	Message   string
	Primary   Span
	Secondary []Span
	Help      string // empty means "no suggestion"
}

// New builds a diagnostic, deriving severity from the code registry.
func New(code string, primary Span, message string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityOf(code),
		Message:  fmt.Sprintf(message, args...),
		Primary:  primary,
	}
}

// WithHelp attaches a fix-it / suggestion string (e.g. "did you mean
// `foo`?").
func (d *Diagnostic) WithHelp(help string, args ...interface{}) *Diagnostic {
	d.Help = fmt.Sprintf(help, args...)
	return d
}

// WithSecondary attaches secondary spans, used for multi-location errors
// such as move/borrow conflicts that point to both sites.
func (d *Diagnostic) WithSecondary(spans ...Span) *Diagnostic {
	d.Secondary = append(d.Secondary, spans...)
	return d
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", d.Primary, d.Code, d.Message)
	if d.Help != "" {
		fmt.Fprintf(&b, " (help: %s)", d.Help)
	}
	return b.String()
}

// List is an ordered collection of diagnostics, as produced by multi-error
// collection mode or the parser's recovery mode.
type List []*Diagnostic

// HasErrors reports whether any diagnostic in the list is an error or
// internal failure; warnings never fail compilation.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity != SeverityWarning {
			return true
		}
	}
	return false
}

// Primary returns the first error-or-worse diagnostic encountered,
// which stays the primary one even after later errors are collected.
func (l List) Primary() *Diagnostic {
	for _, d := range l {
		if d.Severity != SeverityWarning {
			return d
		}
	}
	return nil
}
