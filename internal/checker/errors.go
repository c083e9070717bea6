package checker

import (
	"fmt"

	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// newMismatch builds an E020 type-mismatch diagnostic.
func newMismatch(span diag.Span, expected, found types.Type) *diag.Diagnostic {
	return diag.New(diag.E020, span, "type mismatch: expected %s, found %s", expected.String(), found.String())
}

// newUndefinedVar builds an E021 undefined-variable diagnostic, optionally
// suggesting a nearby in-scope name by edit distance.
func newUndefinedVar(span diag.Span, name string, inScope []string) *diag.Diagnostic {
	d := diag.New(diag.E021, span, "undefined variable %q", name)
	if s := closestName(name, inScope); s != "" {
		d = d.WithHelp(fmt.Sprintf("did you mean `%s`?", s))
	}
	return d
}

func newUndefinedType(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E022, span, "undefined type %q", name)
}

func newUndefinedFunction(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E023, span, "undefined function %q", name)
}

func newNotCallable(span diag.Span, t types.Type) *diag.Diagnostic {
	return diag.New(diag.E024, span, "type %s is not callable", t.String())
}

func newArgCount(span diag.Span, expected, got int) *diag.Diagnostic {
	return diag.New(diag.E025, span, "expected %d arguments, got %d", expected, got)
}

func newCannotInfer(span diag.Span) *diag.Diagnostic {
	return diag.New(diag.E026, span, "cannot infer type")
}

func newDuplicate(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E027, span, "%q is already defined in this scope", name)
}

func newImmutableAssign(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E028, span, "cannot assign to immutable binding %q", name)
}

func newUseAfterMove(span diag.Span, movedAt diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E029, span, "use of moved value %q", name).
		WithSecondary(movedAt).
		WithHelp("value was moved here")
}

func newBorrowConflict(span diag.Span, other diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E030, span, "conflicting borrow of %q", name).WithSecondary(other)
}

func diagUnexpandedMacro(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.E013, span, "unexpanded macro invocation %q reached the type checker", name)
}

func newUnusedVar(span diag.Span, name string) *diag.Diagnostic {
	return diag.New(diag.W001, span, "variable %q is never read", name).
		WithHelp(fmt.Sprintf("prefix with an underscore: `_%s`", name))
}

// closestName returns the candidate in inScope with the smallest Levenshtein
// distance to name, or "" if none is within a tolerance of 2.
func closestName(name string, inScope []string) string {
	best := ""
	bestDist := 3
	for _, cand := range inScope {
		d := levenshtein(name, cand)
		if d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
