package checker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/testutil"
)

func namedBool() ast.Type { return ast.NewNamedType(sp(), "bool", nil) }

// TestGolden_ResolvedFunctionTypes pins down the resolved *types.Fn
// signatures CheckModule generalizes into the environment for a small
// module, so a change to schemeForSignature or resolveAstType that
// silently reshapes a resolved type shows up as a structural diff
// instead of only failing whichever hand-written assertion happened to
// cover that shape.
func TestGolden_ResolvedFunctionTypes(t *testing.T) {
	addBody := ast.NewBlock(sp(), nil, ast.NewBinary(sp(), ast.OpAdd,
		ast.NewIdent(sp(), "a"), ast.NewIdent(sp(), "b")))
	addFn := ast.NewFunction(sp(), "add", nil,
		[]ast.Param{{Name: "a", Type: namedI64()}, {Name: "b", Type: namedI64()}},
		namedI64(), nil, addBody, false)

	isEvenBody := ast.NewBlock(sp(), nil, ast.NewBinary(sp(), ast.OpEq,
		ast.NewBinary(sp(), ast.OpMod, ast.NewIdent(sp(), "n"), ast.NewIntLit(sp(), 2)),
		ast.NewIntLit(sp(), 0)))
	isEvenFn := ast.NewFunction(sp(), "is_even", nil,
		[]ast.Param{{Name: "n", Type: namedI64()}},
		namedBool(), nil, isEvenBody, false)

	mod := &ast.Module{Items: []ast.Item{addFn, isEvenFn}}

	c := New()
	require.NoError(t, c.CheckModule(mod))

	resolved := map[string]string{}
	for _, name := range []string{"add", "is_even"} {
		scheme, ok := c.Env.Lookup(name)
		require.True(t, ok, "missing scheme for %s", name)
		resolved[name] = scheme.Body.String()
	}

	testutil.CompareWithGolden(t, "checker", "resolved_function_types", resolved)
}
