package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/parser"
	"github.com/vaislang/vais/testutil"
)

// TestGolden_CompiledFunctionShape pins down the exact instruction
// sequence and operand encoding lowerFunction emits for a small function,
// so an accidental opcode reordering or operand-shape change in
// lower.go shows up as a structural diff instead of silently changing
// behavior downstream in internal/vm and internal/jit.
func TestGolden_CompiledFunctionShape(t *testing.T) {
	l := lexer.New(`fn add(a: i64, b: i64) -> i64 { a + b }`, "golden.vais")
	p := parser.New(l, "golden.vais")
	mod, errs := p.ParseFile("golden")
	require.Empty(t, errs)

	fns, err := Lower(mod)
	require.NoError(t, err)
	require.Len(t, fns, 1)

	testutil.CompareWithGolden(t, "ir", "add_function", fns[0])
}
