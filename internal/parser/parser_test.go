package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

func parse(t *testing.T, src string) (*ast.Module, diag.List) {
	t.Helper()
	l := lexer.New(src, "test.vais")
	p := New(l, "test.vais")
	mod, errs := p.ParseFile("test")
	require.NotNil(t, mod)
	return mod, errs
}

func TestParseFile_SimpleFunction(t *testing.T) {
	mod, errs := parse(t, `fn add(a: i64, b: i64) -> i64 { a + b }`)
	require.Empty(t, errs)
	require.Len(t, mod.Items, 1)

	fn, ok := mod.Items[0].(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)

	ret, ok := fn.Return.(*ast.NamedType)
	require.True(t, ok)
	assert.Equal(t, "i64", ret.Name)

	require.NotNil(t, fn.Body)
	require.NotNil(t, fn.Body.Tail)
	bin, ok := fn.Body.Tail.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func TestParseFile_LetAndIfElse(t *testing.T) {
	mod, errs := parse(t, `
fn classify(x: i64) -> i64 {
	let mut y = 0;
	if x > 0 {
		y = 1;
	} else {
		y = -1;
	}
	y
}`)
	require.Empty(t, errs)
	require.Len(t, mod.Items, 1)
	fn := mod.Items[0].(*ast.Function)
	require.Len(t, fn.Body.Stmts, 2)

	letStmt, ok := fn.Body.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	assert.True(t, letStmt.Mutable)
	ident, ok := letStmt.Pattern.(*ast.IdentPattern)
	require.True(t, ok)
	assert.Equal(t, "y", ident.Name)

	exprStmt, ok := fn.Body.Stmts[1].(*ast.ExprStmt)
	require.True(t, ok)
	ifExpr, ok := exprStmt.Value.(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifExpr.ElseBlock)

	tailIdent, ok := fn.Body.Tail.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "y", tailIdent.Name)
}

func TestParseFile_StructAndImpl(t *testing.T) {
	mod, errs := parse(t, `
struct Point {
	x: f64,
	y: f64,
}

impl Point {
	fn len(&self) -> f64 {
		self.x
	}
}`)
	require.Empty(t, errs)
	require.Len(t, mod.Items, 2)

	st, ok := mod.Items[0].(*ast.StructDecl)
	require.True(t, ok)
	assert.Equal(t, "Point", st.Name)
	require.Len(t, st.Fields, 2)
	assert.Equal(t, "x", st.Fields[0].Name)

	impl, ok := mod.Items[1].(*ast.ImplDecl)
	require.True(t, ok)
	assert.Empty(t, impl.Trait)
	forType, ok := impl.ForType.(*ast.NamedType)
	require.True(t, ok)
	assert.Equal(t, "Point", forType.Name)
	require.Len(t, impl.Methods, 1)
	assert.True(t, impl.Methods[0].Params[0].IsSelf)
	assert.True(t, impl.Methods[0].Params[0].SelfByRef)
}

func TestParseFile_TraitWithNegativeImpl(t *testing.T) {
	mod, errs := parse(t, `
trait Send {
	fn check(&self) -> bool;
}

impl !Send for Handle {
}`)
	require.Empty(t, errs)
	require.Len(t, mod.Items, 2)

	tr, ok := mod.Items[0].(*ast.TraitDecl)
	require.True(t, ok)
	assert.Equal(t, "Send", tr.Name)
	require.Len(t, tr.Methods, 1)
	assert.Nil(t, tr.Methods[0].Body)

	impl, ok := mod.Items[1].(*ast.ImplDecl)
	require.True(t, ok)
	assert.True(t, impl.Negative)
	assert.Equal(t, "Send", impl.Trait)
}

func TestParseFile_MacroInvocation(t *testing.T) {
	mod, errs := parse(t, `
fn main() {
	log!(x, y);
}`)
	require.Empty(t, errs)
	fn := mod.Items[0].(*ast.Function)
	require.Len(t, fn.Body.Stmts, 1)
	exprStmt := fn.Body.Stmts[0].(*ast.ExprStmt)
	invoke, ok := exprStmt.Value.(*ast.MacroInvoke)
	require.True(t, ok)
	assert.Equal(t, "log", invoke.Name)
	assert.Equal(t, "(", invoke.Delim)
}

func TestParseFile_TupleAndArrayLiterals(t *testing.T) {
	mod, errs := parse(t, `
fn pair() -> (i64, i64) {
	let a = (1, 2);
	let b = [1, 2, 3];
	a
}`)
	require.Empty(t, errs)
	fn := mod.Items[0].(*ast.Function)

	letA := fn.Body.Stmts[0].(*ast.LetStmt)
	tuple, ok := letA.Value.(*ast.TupleLit)
	require.True(t, ok)
	assert.Len(t, tuple.Elems, 2)

	letB := fn.Body.Stmts[1].(*ast.LetStmt)
	arr, ok := letB.Value.(*ast.ArrayLit)
	require.True(t, ok)
	assert.Len(t, arr.Elems, 3)
}

func TestParseFile_LinearParamAndLambda(t *testing.T) {
	mod, errs := parse(t, `
fn apply(h: linear<Handle>, f: fn(i64) -> i64) -> i64 {
	let g = |x| x + 1;
	g(1)
}`)
	require.Empty(t, errs)
	fn := mod.Items[0].(*ast.Function)
	require.Len(t, fn.Params, 2)

	named, ok := fn.Params[0].Type.(*ast.NamedType)
	require.True(t, ok)
	assert.Equal(t, "linear", named.Name)
	require.Len(t, named.Args, 1)

	letStmt := fn.Body.Stmts[0].(*ast.LetStmt)
	lambda, ok := letStmt.Value.(*ast.Lambda)
	require.True(t, ok)
	require.Len(t, lambda.Params, 1)
	assert.Equal(t, "x", lambda.Params[0].Name)
}

func TestParseFile_RecursionDepthGuardTriggers(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxParseDepth+50; i++ {
		b.WriteString("(")
	}
	b.WriteString("1")
	for i := 0; i < maxParseDepth+50; i++ {
		b.WriteString(")")
	}
	src := "fn deep() -> i64 { " + b.String() + " }"

	_, errs := parse(t, src)
	require.NotEmpty(t, errs)
	found := false
	for _, d := range errs {
		if d.Code == diag.E012 {
			found = true
		}
	}
	assert.True(t, found, "expected a recursion-depth diagnostic, got %v", errs)
}

func TestParseFile_UndefinedTokenRecordsParseError(t *testing.T) {
	_, errs := parse(t, `fn broken( { }`)
	require.NotEmpty(t, errs)
	assert.Equal(t, diag.E010, errs[0].Code)
}
