package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
)

func sp() diag.Span { return diag.Span{File: "test.vais", Start: 0, End: 1} }

func namedI64() ast.Type { return ast.NewNamedType(sp(), "i64", nil) }

func TestCheckModule_SimpleArithmetic(t *testing.T) {
	body := ast.NewBlock(sp(), nil, ast.NewBinary(sp(), ast.OpAdd,
		ast.NewIntLit(sp(), 2), ast.NewIntLit(sp(), 3)))
	fn := ast.NewFunction(sp(), "add_two", nil, nil, namedI64(), nil, body, false)
	mod := &ast.Module{Items: []ast.Item{fn}}

	c := New()
	err := c.CheckModule(mod)
	require.NoError(t, err)
	assert.Empty(t, c.Diagnostics())
}

func TestCheckModule_TypeMismatchReported(t *testing.T) {
	body := ast.NewBlock(sp(), nil, ast.NewBoolLit(sp(), true))
	fn := ast.NewFunction(sp(), "wrong_return", nil, nil, namedI64(), nil, body, false)
	mod := &ast.Module{Items: []ast.Item{fn}}

	c := New()
	err := c.CheckModule(mod)
	require.Error(t, err)
	require.NotEmpty(t, c.Diagnostics())
	assert.Equal(t, diag.E020, c.Diagnostics()[0].Code)
}

func TestCheckModule_UndefinedVariable(t *testing.T) {
	body := ast.NewBlock(sp(), nil, ast.NewIdent(sp(), "nope"))
	fn := ast.NewFunction(sp(), "uses_undefined", nil, nil, nil, nil, body, false)
	mod := &ast.Module{Items: []ast.Item{fn}}

	c := New()
	err := c.CheckModule(mod)
	require.Error(t, err)
	assert.Equal(t, diag.E021, c.FirstError().Code)
}

func TestCheckModule_MultiErrorCollectsAll(t *testing.T) {
	fn1 := ast.NewFunction(sp(), "a", nil, nil, nil, nil,
		ast.NewBlock(sp(), nil, ast.NewIdent(sp(), "missing1")), false)
	fn2 := ast.NewFunction(sp(), "b", nil, nil, nil, nil,
		ast.NewBlock(sp(), nil, ast.NewIdent(sp(), "missing2")), false)
	mod := &ast.Module{Items: []ast.Item{fn1, fn2}}

	c := New()
	c.MultiError = true
	_ = c.CheckModule(mod)
	assert.Len(t, c.Diagnostics(), 2)
}

// TestObjectSafety_MethodReturningSelf covers the scenario where
// a trait method returning Self is not object-safe.
func TestObjectSafety_MethodReturningSelf(t *testing.T) {
	selfParam := ast.Param{Name: "self", IsSelf: true}
	clone := ast.NewFunction(sp(), "clone", nil, []ast.Param{selfParam}, ast.NewGenericType(sp(), "Self"), nil, nil, false)
	trait := ast.NewTraitDecl(sp(), "Cloneable", nil, nil, []*ast.Function{clone})
	mod := &ast.Module{Items: []ast.Item{trait}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	c.resolveObjectSafety()

	info := c.Traits["Cloneable"]
	require.NotNil(t, info)
	assert.False(t, info.ObjectSafe)
	assert.NotEmpty(t, info.Violations)
}

func TestObjectSafety_PlainTraitIsSafe(t *testing.T) {
	selfParam := ast.Param{Name: "self", IsSelf: true}
	show := ast.NewFunction(sp(), "show", nil, []ast.Param{selfParam}, namedI64(), nil, nil, false)
	trait := ast.NewTraitDecl(sp(), "Show", nil, nil, []*ast.Function{show})
	mod := &ast.Module{Items: []ast.Item{trait}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	c.resolveObjectSafety()

	assert.True(t, c.Traits["Show"].ObjectSafe)
}

func TestObjectSafety_GenericMethodNotSafe(t *testing.T) {
	selfParam := ast.Param{Name: "self", IsSelf: true}
	convert := ast.NewFunction(sp(), "convert", []ast.Generic{{Name: "U"}}, []ast.Param{selfParam}, ast.NewGenericType(sp(), "U"), nil, nil, false)
	trait := ast.NewTraitDecl(sp(), "Convert", nil, nil, []*ast.Function{convert})
	mod := &ast.Module{Items: []ast.Item{trait}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	c.resolveObjectSafety()

	assert.False(t, c.Traits["Convert"].ObjectSafe)
}

// TestSpecialization_AmbiguousOverlap resolves the Open Question recorded in
// DESIGN.md: two impls of equal specificity for the same trait always
// produce E042, never "first match wins".
func TestSpecialization_AmbiguousOverlap(t *testing.T) {
	implA := ast.NewImplDecl(sp(), nil, "Display", false, ast.NewNamedType(sp(), "Point", nil), nil)
	implB := ast.NewImplDecl(sp(), nil, "Display", false, ast.NewNamedType(sp(), "Point", nil), nil)
	mod := &ast.Module{Items: []ast.Item{implA, implB}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	err := c.resolveSpecialization()
	require.Error(t, err)
	assert.Equal(t, diag.E042, c.FirstError().Code)
}

func TestSpecialization_NegativeImplConflict(t *testing.T) {
	positive := ast.NewImplDecl(sp(), nil, "Send", false, ast.NewNamedType(sp(), "Handle", nil), nil)
	negative := ast.NewImplDecl(sp(), nil, "Send", true, ast.NewNamedType(sp(), "Handle", nil), nil)
	mod := &ast.Module{Items: []ast.Item{positive, negative}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	err := c.resolveSpecialization()
	require.Error(t, err)
	assert.Equal(t, diag.E043, c.FirstError().Code)
}

func TestSpecialization_ConcreteBeatsBlanket(t *testing.T) {
	blanket := ast.NewImplDecl(sp(), []ast.Generic{{Name: "T"}}, "Describe", false, ast.NewGenericType(sp(), "T"), nil)
	concrete := ast.NewImplDecl(sp(), nil, "Describe", false, ast.NewNamedType(sp(), "Point", nil), nil)
	mod := &ast.Module{Items: []ast.Item{blanket, concrete}}

	c := New()
	require.NoError(t, c.collectDeclarations(mod.Items))
	err := c.resolveSpecialization()
	assert.NoError(t, err, "differing specificity must resolve without ambiguity")
}

// TestComptime_Arithmetic exercises the restricted comptime evaluator.
func TestComptime_Arithmetic(t *testing.T) {
	let := ast.NewLetStmt(sp(), ast.NewIdentPattern(sp(), "x", false, nil), nil, ast.NewIntLit(sp(), 4), false)
	tail := ast.NewBinary(sp(), ast.OpMul, ast.NewIdent(sp(), "x"), ast.NewIntLit(sp(), 10))
	block := ast.NewBlock(sp(), []ast.Stmt{let}, tail)

	c := New()
	typ, err := c.evalComptime(c.Env, block)
	require.NoError(t, err)
	assert.Equal(t, "i64", typ.String())
}

func TestComptime_OverflowIsError(t *testing.T) {
	maxI64 := ast.NewIntLit(sp(), 9223372036854775807)
	tail := ast.NewBinary(sp(), ast.OpAdd, maxI64, ast.NewIntLit(sp(), 1))
	block := ast.NewBlock(sp(), nil, tail)

	c := New()
	_, err := c.evalComptime(c.Env, block)
	require.Error(t, err)
	assert.Equal(t, diag.E050, c.FirstError().Code)
}

func TestComptime_DivisionByZero(t *testing.T) {
	tail := ast.NewBinary(sp(), ast.OpDiv, ast.NewIntLit(sp(), 10), ast.NewIntLit(sp(), 0))
	block := ast.NewBlock(sp(), nil, tail)

	c := New()
	_, err := c.evalComptime(c.Env, block)
	require.Error(t, err)
	assert.Equal(t, diag.E051, c.FirstError().Code)
}

func TestComptime_NonConstantInputIsError(t *testing.T) {
	tail := ast.NewBinary(sp(), ast.OpAdd, ast.NewIdent(sp(), "unbound"), ast.NewIntLit(sp(), 1))
	block := ast.NewBlock(sp(), nil, tail)

	c := New()
	_, err := c.evalComptime(c.Env, block)
	require.Error(t, err)
	assert.Equal(t, diag.E052, c.FirstError().Code)
}

func TestComptime_IfBranching(t *testing.T) {
	then := ast.NewBlock(sp(), nil, ast.NewIntLit(sp(), 1))
	els := ast.NewBlock(sp(), nil, ast.NewIntLit(sp(), 2))
	ifExpr := ast.NewIf(sp(), ast.NewBoolLit(sp(), false), then, els, nil)
	block := ast.NewBlock(sp(), nil, ifExpr)

	c := New()
	typ, err := c.evalComptime(c.Env, block)
	require.NoError(t, err)
	assert.Equal(t, "i64", typ.String())
}

// TestUsageDiscipline_LinearUseAfterMove covers a Linear parameter read
// twice, which is a use-after-move error.
func TestUsageDiscipline_LinearUseAfterMove(t *testing.T) {
	linearParam := ast.Param{Name: "h", Type: ast.NewNamedType(sp(), "Linear", []ast.Type{ast.NewNamedType(sp(), "Handle", nil)})}
	body := ast.NewBlock(sp(), []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewIdent(sp(), "h")),
	}, ast.NewIdent(sp(), "h"))
	fn := ast.NewFunction(sp(), "use_twice", nil, []ast.Param{linearParam}, nil, nil, body, false)

	c := New()
	err := c.checkUsageDiscipline(fn)
	require.Error(t, err)
	assert.Equal(t, diag.E029, c.FirstError().Code)
}

func TestUsageDiscipline_LinearUsedOnceIsFine(t *testing.T) {
	linearParam := ast.Param{Name: "h", Type: ast.NewNamedType(sp(), "Linear", []ast.Type{ast.NewNamedType(sp(), "Handle", nil)})}
	body := ast.NewBlock(sp(), nil, ast.NewIdent(sp(), "h"))
	fn := ast.NewFunction(sp(), "consume", nil, []ast.Param{linearParam}, nil, nil, body, false)

	c := New()
	err := c.checkUsageDiscipline(fn)
	assert.NoError(t, err)
}

func TestUsageDiscipline_LinearNeverUsedWarns(t *testing.T) {
	linearParam := ast.Param{Name: "h", Type: ast.NewNamedType(sp(), "Linear", []ast.Type{ast.NewNamedType(sp(), "Handle", nil)})}
	body := ast.NewBlock(sp(), nil, ast.NewIntLit(sp(), 0))
	fn := ast.NewFunction(sp(), "drops_h", nil, []ast.Param{linearParam}, nil, nil, body, false)

	c := New()
	err := c.checkUsageDiscipline(fn)
	require.NoError(t, err)
	require.Len(t, c.Diagnostics(), 1)
	assert.Equal(t, diag.W002, c.Diagnostics()[0].Code)
}

// TestLambdaCaptures_MutRefRequiresLetMut exercises the ByMutRef capture
// mode's let-mut requirement.
func TestLambdaCaptures_MutRefRequiresLetMut(t *testing.T) {
	env := newTestChecker().Env.Child()
	env.Define("counter", nil) // immutable binding

	lambda := ast.NewLambda(sp(), nil, ast.CaptureByMutRef, ast.NewIdent(sp(), "counter"))

	chk := New()
	err := chk.checkLambdaCaptures(env, lambda)
	require.Error(t, err)
	assert.Equal(t, diag.E028, chk.FirstError().Code)
}

func TestLambdaCaptures_MutRefOverMutableBindingOK(t *testing.T) {
	checker := New()
	env := checker.Env.Child()
	env.DefineMutable("counter", nil, true)

	lambda := ast.NewLambda(sp(), nil, ast.CaptureByMutRef, ast.NewIdent(sp(), "counter"))
	err := checker.checkLambdaCaptures(env, lambda)
	assert.NoError(t, err)
}

func TestLambdaCaptures_ByValueNeedsNoMutability(t *testing.T) {
	checker := New()
	env := checker.Env.Child()
	env.Define("x", nil)

	lambda := ast.NewLambda(sp(), nil, ast.CaptureByValue, ast.NewIdent(sp(), "x"))
	err := checker.checkLambdaCaptures(env, lambda)
	assert.NoError(t, err)
}

func newTestChecker() *Checker { return New() }
