package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/parser"
)

func lowerSrc(t *testing.T, src string) ([]*CompiledFunction, error) {
	t.Helper()
	l := lexer.New(src, "t.vais")
	p := parser.New(l, "t.vais")
	mod, errs := p.ParseFile("t")
	require.Empty(t, errs)
	return Lower(mod)
}

func opSeq(fn *CompiledFunction) []Op {
	ops := make([]Op, len(fn.Instructions))
	for i, ins := range fn.Instructions {
		ops[i] = ins.Op
	}
	return ops
}

func TestLower_SimpleArithmetic(t *testing.T) {
	fns, err := lowerSrc(t, `fn add(a: i64, b: i64) -> i64 { a + b }`)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	fn := fns[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	assert.Equal(t, []Op{OpLoad, OpLoad, OpAdd, OpReturn}, opSeq(fn))
}

func TestLower_LetAndReturn(t *testing.T) {
	fns, err := lowerSrc(t, `
fn square(x: i64) -> i64 {
	let y = x * x;
	return y;
}`)
	require.NoError(t, err)
	fn := fns[0]
	assert.Equal(t, []Op{OpLoad, OpLoad, OpMul, OpStore, OpLoad, OpReturn, OpConst, OpReturn}, opSeq(fn))
}

func TestLower_IfElseProducesJumps(t *testing.T) {
	fns, err := lowerSrc(t, `
fn abs(x: i64) -> i64 {
	if x < 0 {
		-x
	} else {
		x
	}
}`)
	require.NoError(t, err)
	fn := fns[0]
	ops := opSeq(fn)
	require.Contains(t, ops, OpJumpIfNot)
	require.Contains(t, ops, OpJump)
	require.Contains(t, ops, OpNeg)

	var jf, je Instruction
	for _, ins := range fn.Instructions {
		if ins.Op == OpJumpIfNot {
			jf = ins
		}
		if ins.Op == OpJump {
			je = ins
		}
	}
	assert.Greater(t, jf.Offset, 0)
	assert.Greater(t, je.Offset, 0)
}

func TestLower_TailSelfCallForRecursion(t *testing.T) {
	fns, err := lowerSrc(t, `
fn sum(n: i64, acc: i64) -> i64 {
	if n <= 0 {
		acc
	} else {
		sum(n - 1, acc + n)
	}
}`)
	require.NoError(t, err)
	fn := fns[0]
	found := false
	for _, ins := range fn.Instructions {
		if ins.Op == OpTailSelfCall {
			found = true
			assert.Equal(t, "sum", ins.Name)
			assert.Equal(t, 2, ins.Argc)
		}
	}
	assert.True(t, found, "expected a TailSelfCall instruction, got %v", opSeq(fn))
}

func TestLower_NonTailRecursiveCallUsesSelfCall(t *testing.T) {
	fns, err := lowerSrc(t, `
fn fact(n: i64) -> i64 {
	if n <= 1 {
		1
	} else {
		n * fact(n - 1)
	}
}`)
	require.NoError(t, err)
	fn := fns[0]
	var found bool
	for _, ins := range fn.Instructions {
		if ins.Op == OpSelfCall {
			found = true
		}
		assert.NotEqual(t, OpTailSelfCall, ins.Op, "fact's recursive call is not in tail position")
	}
	assert.True(t, found)
}

func TestLower_WhileLoop(t *testing.T) {
	fns, err := lowerSrc(t, `
fn countdown(n: i64) -> i64 {
	let mut i = n;
	while i > 0 {
		i = i - 1;
	}
	i
}`)
	require.NoError(t, err)
	fn := fns[0]
	ops := opSeq(fn)
	require.Contains(t, ops, OpJumpIfNot)
	require.Contains(t, ops, OpJump)
}

func TestLower_LoopWithBreakValue(t *testing.T) {
	fns, err := lowerSrc(t, `
fn first_even(n: i64) -> i64 {
	let mut i = n;
	loop {
		if i % 2 == 0 {
			break i;
		}
		i = i + 1;
	}
}`)
	require.NoError(t, err)
	fn := fns[0]
	ops := opSeq(fn)
	assert.Contains(t, ops, OpJump)
	assert.Contains(t, ops, OpMod)
}

func TestLower_UnsupportedConstructIsLoweringError(t *testing.T) {
	_, err := lowerSrc(t, `
fn make() -> (i64, i64) {
	(1, 2)
}`)
	require.Error(t, err)
	var loweringErr *LoweringError
	require.ErrorAs(t, err, &loweringErr)
	assert.Equal(t, "make", loweringErr.Function)
}

func TestLower_DeferIsLoweringError(t *testing.T) {
	_, err := lowerSrc(t, `
fn f() -> i64 {
	defer g();
	1
}`)
	require.Error(t, err)
}

func TestLower_BreakOutsideLoopIsError(t *testing.T) {
	_, err := lowerSrc(t, `
fn f() -> i64 {
	break 1;
	0
}`)
	require.Error(t, err)
}
