package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/parser"
)

func compile(t *testing.T, src string) []*ir.CompiledFunction {
	t.Helper()
	l := lexer.New(src, "t.vais")
	p := parser.New(l, "t.vais")
	mod, errs := p.ParseFile("t")
	require.Empty(t, errs)
	fns, err := ir.Lower(mod)
	require.NoError(t, err)
	return fns
}

func TestExecuteFunction_Arithmetic(t *testing.T) {
	fns := compile(t, `fn add(a: i64, b: i64) -> i64 { a + b }`)
	result, err := ExecuteFunction(fns, "add", []ir.Value{ir.IntValue(3), ir.IntValue(4)})
	require.NoError(t, err)
	assert.Equal(t, ir.IntValue(7), result)
}

func TestExecuteFunction_RecursiveFactorial(t *testing.T) {
	fns := compile(t, `
fn fact(n: i64) -> i64 {
	if n <= 1 {
		1
	} else {
		n * fact(n - 1)
	}
}`)
	result, err := ExecuteFunction(fns, "fact", []ir.Value{ir.IntValue(6)})
	require.NoError(t, err)
	assert.Equal(t, ir.IntValue(720), result)
}

func TestExecuteFunction_TailRecursionDoesNotGrowGoStack(t *testing.T) {
	fns := compile(t, `
fn sum(n: i64, acc: i64) -> i64 {
	if n <= 0 {
		acc
	} else {
		sum(n - 1, acc + n)
	}
}`)
	// A non-tail implementation of this would blow the Go stack well
	// before a million recursive calls; TailSelfCall's trampoline
	// handles it in a single frame.
	result, err := ExecuteFunction(fns, "sum", []ir.Value{ir.IntValue(1_000_000), ir.IntValue(0)})
	require.NoError(t, err)
	assert.Equal(t, ir.IntValue(500000500000), result)
}

func TestExecuteFunction_WhileLoop(t *testing.T) {
	fns := compile(t, `
fn countdown_sum(n: i64) -> i64 {
	let mut i = n;
	let mut total = 0;
	while i > 0 {
		total = total + i;
		i = i - 1;
	}
	total
}`)
	result, err := ExecuteFunction(fns, "countdown_sum", []ir.Value{ir.IntValue(5)})
	require.NoError(t, err)
	assert.Equal(t, ir.IntValue(15), result)
}

func TestExecuteFunction_DivisionByZeroIsRuntimeError(t *testing.T) {
	fns := compile(t, `fn div(a: i64, b: i64) -> i64 { a / b }`)
	_, err := ExecuteFunction(fns, "div", []ir.Value{ir.IntValue(1), ir.IntValue(0)})
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "div", rerr.Function)
}

func TestExecuteFunction_UndefinedFunctionIsRuntimeError(t *testing.T) {
	fns := compile(t, `fn f() -> i64 { 1 }`)
	_, err := ExecuteFunction(fns, "missing", nil)
	require.Error(t, err)
}

func TestExecuteFunction_ArityMismatchIsRuntimeError(t *testing.T) {
	fns := compile(t, `fn add(a: i64, b: i64) -> i64 { a + b }`)
	_, err := ExecuteFunction(fns, "add", []ir.Value{ir.IntValue(1)})
	require.Error(t, err)
}

// stubJIT counts tier-up and OSR offers without actually compiling
// anything, so the Machine's threshold-crossing bookkeeping can be
// exercised without a real internal/jit dependency.
type stubJIT struct {
	compileCalls int
	osrOffers    int
	canJIT       bool
}

func (s *stubJIT) CanJIT(fn *ir.CompiledFunction) bool { return s.canJIT }
func (s *stubJIT) CompileFunction(fn *ir.CompiledFunction) error {
	s.compileCalls++
	return nil
}
func (s *stubJIT) CallCompiled(name string, args []ir.Value) (ir.Value, bool, error) {
	return ir.UnitValue(), false, nil
}
func (s *stubJIT) TryOSR(fn *ir.CompiledFunction, header int, locals map[string]ir.Value, stack []ir.Value) (ir.Value, bool, error) {
	s.osrOffers++
	return ir.UnitValue(), false, nil
}

func TestMachine_CallCountTierUpOffersCompilation(t *testing.T) {
	fns := compile(t, `fn inc(n: i64) -> i64 { n + 1 }`)
	m := NewMachine(fns)
	m.CallThreshold = 3
	jit := &stubJIT{canJIT: true}
	m.SetJITEngine(jit)

	for i := 0; i < 5; i++ {
		_, err := m.Call("inc", []ir.Value{ir.IntValue(int64(i))})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, jit.compileCalls, "should compile exactly once after crossing the threshold")
}

func TestMachine_LoopBackEdgeOffersOSR(t *testing.T) {
	fns := compile(t, `
fn spin(n: i64) -> i64 {
	let mut i = 0;
	while i < n {
		i = i + 1;
	}
	i
}`)
	m := NewMachine(fns)
	m.OSRThreshold = 10
	jit := &stubJIT{canJIT: true}
	m.SetJITEngine(jit)

	result, err := m.Call("spin", []ir.Value{ir.IntValue(50)})
	require.NoError(t, err)
	assert.Equal(t, ir.IntValue(50), result)
	assert.Greater(t, jit.osrOffers, 0, "expected at least one OSR offer once the loop crossed the threshold")
}
