package query

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/depgraph"
	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/plugin"
	"github.com/vaislang/vais/internal/sourcestore"
)

func newTestDB() (*Database, *sourcestore.Store) {
	store := sourcestore.New()
	graph := depgraph.New()
	return New(store, graph), store
}

// TestIncrementalRebuildInvalidation runs an end-to-end
// incremental rebuild scenario: edit a dependency, confirm exactly the
// right caches are invalidated and nothing else is recomputed.
func TestIncrementalRebuildInvalidation(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("a.vais", "fn a() -> i64 { 1 }")
	db.SetSourceText("b.vais", "fn b() -> i64 { 2 }")

	aFns1, err := db.GenerateIR("a.vais", "native")
	require.NoError(t, err)
	bFns1, err := db.GenerateIR("b.vais", "native")
	require.NoError(t, err)
	require.NotEmpty(t, aFns1)
	require.NotEmpty(t, bFns1)

	db.SetSourceText("b.vais", "fn b() -> i64 { 200 }")

	assert.True(t, db.IsCachedIR("a.vais", "native"))
	assert.False(t, db.IsCachedIR("b.vais", "native"))

	aFns2, err := db.GenerateIR("a.vais", "native")
	require.NoError(t, err)
	assert.Same(t, aFns1[0], aFns2[0], "a's IR must be returned without recomputation")

	bFns2, err := db.GenerateIR("b.vais", "native")
	require.NoError(t, err)
	assert.NotSame(t, bFns1[0], bFns2[0])
	assert.True(t, mentionsConstant(bFns2, 200), "b's new IR should reflect the constant 200")
}

func mentionsConstant(fns []*ir.CompiledFunction, want int64) bool {
	for _, fn := range fns {
		for _, ins := range fn.Instructions {
			if ins.Op == ir.OpConst && ins.Const.Kind == ir.KindInt && ins.Const.Int == want {
				return true
			}
		}
	}
	return false
}

func TestGenerateIR_DifferentTargetsCacheIndependently(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("a.vais", "fn a() -> i64 { 1 }")

	_, err := db.GenerateIR("a.vais", "native")
	require.NoError(t, err)
	assert.True(t, db.IsCachedIR("a.vais", "native"))
	assert.False(t, db.IsCachedIR("a.vais", "wasm32"))

	_, err = db.GenerateIR("a.vais", "wasm32")
	require.NoError(t, err)
	assert.True(t, db.IsCachedIR("a.vais", "wasm32"))
	assert.True(t, db.IsCachedIR("a.vais", "native"), "generating for a second target must not evict the first")
}

func TestByteIdenticalReplaceLeavesEveryCacheEntryIntact(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("a.vais", "fn a() -> i64 { 1 }")
	_, _, err := db.Parse("a.vais")
	require.NoError(t, err)
	_, err = db.TypeCheck("a.vais")
	require.NoError(t, err)
	_, err = db.GenerateIR("a.vais", "native")
	require.NoError(t, err)

	require.True(t, db.IsCached("a.vais", StageAST))
	require.True(t, db.IsCached("a.vais", StageTypes))
	require.True(t, db.IsCachedIR("a.vais", "native"))

	changed := db.SetSourceText("a.vais", "fn a() -> i64 { 1 }")
	assert.False(t, changed)

	assert.True(t, db.IsCached("a.vais", StageAST))
	assert.True(t, db.IsCached("a.vais", StageTypes))
	assert.True(t, db.IsCachedIR("a.vais", "native"))
}

func TestDependentInvalidation_ImportingFileIsInvalidatedToo(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("lib.vais", "fn helper() -> i64 { 1 }")
	db.SetSourceText("main.vais", "fn user() -> i64 { 2 }")
	db.AddDependency("main.vais", "lib.vais")

	_, err := db.GenerateIR("main.vais", "native")
	require.NoError(t, err)
	assert.True(t, db.IsCachedIR("main.vais", "native"))

	db.SetSourceText("lib.vais", "fn helper() -> i64 { 9 }")

	assert.False(t, db.IsCachedIR("main.vais", "native"), "a file must invalidate everything that depends on it")
}

func TestTypeCheck_FailFastStopsAtFirstError(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("bad.vais", "fn bad() -> i64 { undefined_name }")

	diags, err := db.TypeCheck("bad.vais")
	require.Error(t, err)
	assert.NotEmpty(t, diags)
}

func TestClearCaches_DropsEveryStage(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("a.vais", "fn a() -> i64 { 1 }")
	_, err := db.GenerateIR("a.vais", "native")
	require.NoError(t, err)
	require.True(t, db.IsCachedIR("a.vais", "native"))

	db.ClearCaches()

	assert.False(t, db.IsCached("a.vais", StageAST))
	assert.False(t, db.IsCachedIR("a.vais", "native"))

	_, err = db.GenerateIR("a.vais", "native")
	require.NoError(t, err, "clearing caches must not forget the source text itself")
}

func TestTokenize_ConcurrentIdenticalQueriesCoalesce(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("a.vais", "fn a() -> i64 { 1 + 2 }")

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			toks, _, err := db.Tokenize("a.vais")
			require.NoError(t, err)
			results[i] = []byte{byte(len(toks))}
		}()
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestExecuteFunction_RunsGeneratedIR(t *testing.T) {
	db, _ := newTestDB()
	db.SetSourceText("math.vais", "fn add(a: i64, b: i64) -> i64 { a + b }")

	result, err := db.ExecuteFunction("math.vais", "native", "add", []ir.Value{ir.IntValue(3), ir.IntValue(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Int)
}

func TestIsCached_FalseForUnknownFile(t *testing.T) {
	db, _ := newTestDB()
	assert.False(t, db.IsCached("missing.vais", StageAST))
	assert.False(t, db.IsCachedIR("missing.vais", "native"))
}

func TestCallThreshold_OverridesMachineDefault(t *testing.T) {
	db, _ := newTestDB()
	db.CallThreshold = 2
	db.SetSourceText("th.vais", "fn id(a: i64) -> i64 { a }")

	for i := 0; i < 3; i++ {
		_, err := db.ExecuteFunction("th.vais", "native", "id", []ir.Value{ir.IntValue(int64(i))})
		require.NoError(t, err)
	}

	key := machineKey("th.vais", "native")
	db.machineMu.Lock()
	m := db.machines[key]
	db.machineMu.Unlock()
	require.NotNil(t, m)
	assert.Equal(t, uint64(2), m.CallThreshold)
}

func TestPlugins_BeforeAndAfterHooksFireAroundParse(t *testing.T) {
	db, _ := newTestDB()
	db.Plugins = plugin.NewRegistry()
	db.SetSourceText("hooked.vais", "fn f() -> i64 { 1 }")

	var sawBefore bool
	var sawAfterInput any
	db.Plugins.RegisterBefore(string(StageAST), func(stage string, input any) {
		sawBefore = true
	})
	db.Plugins.RegisterAfter(string(StageAST), func(stage string, input, output any) any {
		sawAfterInput = input
		return nil
	})

	_, _, err := db.Parse("hooked.vais")
	require.NoError(t, err)

	assert.True(t, sawBefore)
	assert.Equal(t, "hooked.vais", sawAfterInput)
}
