package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/parser"
	"github.com/vaislang/vais/internal/vm"
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

func TestAnalyzeTier(t *testing.T) {
	intFn := compile(t, `fn add(a: i64, b: i64) -> i64 { a + b }`)[0]
	assert.Equal(t, IntOnly, AnalyzeTier(intFn))

	floatFn := compile(t, `fn addf(a: f64, b: f64) -> f64 { a + b }`)[0]
	assert.Equal(t, FloatOnly, AnalyzeTier(floatFn))

	genericFn := compile(t, `fn mix(a: i64) -> f64 { if a > 0 { 1.5 } else { 0 - 1 } }`)[0]
	// mixes int consts (the 0 in "a > 0", the 0 and 1 in "0 - 1") with
	// the float const 1.5.
	assert.Equal(t, Generic, AnalyzeTier(genericFn))
}

func TestCanJIT_BailsOnCrossFunctionCall(t *testing.T) {
	fns := compile(t, `
fn helper(x: i64) -> i64 { x + 1 }
fn caller(x: i64) -> i64 { helper(x) }
`)
	var caller *ir.CompiledFunction
	for _, fn := range fns {
		if fn.Name == "caller" {
			caller = fn
		}
	}
	require.NotNil(t, caller)
	tier := AnalyzeTier(caller)
	assert.False(t, CanJIT(caller, tier))
}

func TestModule_CallIntMatchesVMExecution(t *testing.T) {
	fns := compile(t, `
fn fact(n: i64) -> i64 {
	if n <= 1 {
		1
	} else {
		n * fact(n - 1)
	}
}`)
	m := NewModule()
	require.True(t, m.CanJIT(fns[0]))
	require.NoError(t, m.CompileFunction(fns[0]))

	jitResult, err := m.CallInt("fact", []int64{8})
	require.NoError(t, err)

	vmResult, err := vm.ExecuteFunction(fns, "fact", []ir.Value{ir.IntValue(8)})
	require.NoError(t, err)

	assert.Equal(t, vmResult.Int, jitResult)
}

func TestModule_CallFloatMatchesVMExecution(t *testing.T) {
	fns := compile(t, `
fn circle_area(r: f64) -> f64 {
	r * r * 3.14159
}`)
	m := NewModule()
	require.NoError(t, m.CompileFunction(fns[0]))

	jitResult, err := m.CallFloat("circle_area", []float64{2.0})
	require.NoError(t, err)

	vmResult, err := vm.ExecuteFunction(fns, "circle_area", []ir.Value{ir.FloatValue(2.0)})
	require.NoError(t, err)

	assert.InDelta(t, vmResult.Float, jitResult, 1e-9)
}

func TestMachine_TiersUpAndAgreesWithInterpreter(t *testing.T) {
	fns := compile(t, `fn square(n: i64) -> i64 { n * n }`)
	m := vm.NewMachine(fns)
	m.CallThreshold = 2
	engine := NewModule()
	m.SetJITEngine(engine)

	var last ir.Value
	for i := 0; i < 5; i++ {
		result, err := m.Call("square", []ir.Value{ir.IntValue(7)})
		require.NoError(t, err)
		last = result
	}
	assert.Equal(t, ir.IntValue(49), last)
}

func TestMachine_OSRTierUpAgreesWithInterpreter(t *testing.T) {
	fns := compile(t, `
fn spin_sum(n: i64) -> i64 {
	let mut i = 0;
	let mut total = 0;
	while i < n {
		total = total + i;
		i = i + 1;
	}
	total
}`)
	baseline, err := vm.ExecuteFunction(fns, "spin_sum", []ir.Value{ir.IntValue(200)})
	require.NoError(t, err)

	m := vm.NewMachine(fns)
	m.OSRThreshold = 5
	engine := NewModule()
	m.SetJITEngine(engine)

	result, err := m.Call("spin_sum", []ir.Value{ir.IntValue(200)})
	require.NoError(t, err)
	assert.Equal(t, baseline, result)
	assert.Greater(t, engine.TotalOSRTransitions(), uint64(0), "loop should have tiered up via OSR before returning")
}

func TestSimd_MapAndReduceInt(t *testing.T) {
	arr := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, []int64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}, MapInt(MapMulInt, arr, 2))
	assert.Equal(t, int64(55), ReduceSumInt(arr))

	product := ReduceProductInt([]int64{1, 2, 3, 4, 5})
	assert.Equal(t, int64(120), product)

	min, ok := ReduceMinInt([]int64{3, 1, 4, 1, 5, 9, 2, 6})
	require.True(t, ok)
	assert.Equal(t, int64(1), min)
	max, ok := ReduceMaxInt([]int64{3, 1, 4, 1, 5, 9, 2, 6})
	require.True(t, ok)
	assert.Equal(t, int64(9), max)

	_, ok = ReduceMinInt(nil)
	assert.False(t, ok)
}

func TestSimd_FilterInt(t *testing.T) {
	arr := []int64{1, 5, 2, 8, 3, 9, 4}
	assert.Equal(t, []int64{5, 8, 9}, FilterInt(FilterGtInt, arr, 4))
}

func TestSimd_FusedOps(t *testing.T) {
	arr := []int64{1, 2, 3, 4, 5}
	assert.Equal(t, int64(30), FusedMapReduceSumInt(arr, 2))

	filterArr := []int64{1, 5, 2, 8, 3, 9, 4}
	assert.Equal(t, int64(22), FusedFilterReduceSumInt(filterArr, 4))
}

func TestSimd_FloatOps(t *testing.T) {
	arr := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	assert.Equal(t, []float64{2.5, 5.0, 7.5, 10.0, 12.5}, MapMulFloat(arr, 2.5))
	assert.InDelta(t, 15.0, ReduceSumFloat(arr), 1e-10)
}

func TestSimd_LargeArrayMatchesScalarFold(t *testing.T) {
	arr := make([]int64, 10000)
	for i := range arr {
		arr[i] = int64(i + 1)
	}
	// Fused map(x2) + reduce(sum) must equal the scalar fold.
	got := FusedMapReduceSumInt(arr, 2)
	var want int64
	for _, v := range arr {
		want += v * 2
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int64(100010000), got)
}
