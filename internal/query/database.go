// Package query implements the stateful façade that is the
// query-driven incremental compilation database: it memoizes every
// pipeline stage's output per file, invalidates the memo transitively
// when a file's content hash changes, coalesces concurrent identical
// requests with singleflight, and is the only component external
// callers (a CLI, an LSP, a test harness) drive compilation through.
// Every other pipeline stage is a pure function of its inputs plus
// upstream query results; this package is where they get wired
// together and where the only mutable, shared state lives.
package query

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/depgraph"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/effects"
	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/jit"
	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/metrics"
	"github.com/vaislang/vais/internal/plugin"
	"github.com/vaislang/vais/internal/sourcestore"
	"github.com/vaislang/vais/internal/vm"
)

// NotFoundError reports a query against a path with no source text set.
type NotFoundError struct{ Path string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("query: no source set for %q", e.Path) }

// Database is the incremental compilation façade. Zero value is not
// usable; build one with New.
type Database struct {
	store *sourcestore.Store
	graph *depgraph.Graph

	// MultiError is threaded into every Checker this database builds,
	// toggling multi-error collection mode.
	MultiError bool

	// Plugins, if set, receives Before/After notifications around the
	// tokens and ast stages (Tokenize and Parse). TypeCheck and
	// GenerateIR run no plugin hooks.
	// Nil is a valid, fully no-op value — most callers never set one.
	Plugins *plugin.Registry

	// MaxParseDepth, CallThreshold, and OSRThreshold, when non-zero,
	// override the parser's/VM's own built-in defaults — the internal/
	// config knobs cmd/vaisc threads through via these fields.
	MaxParseDepth int
	CallThreshold uint64
	OSRThreshold  uint64

	tokens *stageCache[[]lexer.Token]
	ast    *stageCache[*ast.Module]
	types  *stageCache[struct{}] // type_check's result is pass/fail only

	irMu      sync.Mutex
	irEntries map[string]map[string]*cacheEntry[[]*ir.CompiledFunction] // path -> target -> entry

	tokenSF singleflight.Group
	astSF   singleflight.Group
	typeSF  singleflight.Group
	irSF    singleflight.Group

	machineMu sync.Mutex
	machines  map[string]*vm.Machine // "path|target" -> long-lived machine

	jit *jit.Module // optional; wired into every machine this database creates

	effects *effects.Context // optional; backs host calls (Clock.*, IO.*) from executed IR
}

// New builds a Database over store and graph. graph may be nil if the
// caller has no cross-file import edges to register; GetDependents then
// always reports none, and invalidation stays file-local.
func New(store *sourcestore.Store, graph *depgraph.Graph) *Database {
	db := &Database{
		store:     store,
		graph:     graph,
		tokens:    newStageCache[[]lexer.Token](),
		ast:       newStageCache[*ast.Module](),
		types:     newStageCache[struct{}](),
		irEntries: make(map[string]map[string]*cacheEntry[[]*ir.CompiledFunction]),
		machines:  make(map[string]*vm.Machine),
	}
	store.Observe(db.invalidate)
	return db
}

// SetJITModule wires a shared jit.Module into every vm.Machine this
// database builds (existing and future), enabling tier-up. Passing nil
// reverts to pure interpretation.
func (db *Database) SetJITModule(m *jit.Module) {
	db.jit = m
	db.machineMu.Lock()
	defer db.machineMu.Unlock()
	for _, machine := range db.machines {
		machine.SetJITEngine(jitEngineOrNil(m))
	}
}

func jitEngineOrNil(m *jit.Module) vm.JITEngine {
	if m == nil {
		return nil
	}
	return m
}

// SetEffectsContext wires a capability-checked runtime effect context
// into every vm.Machine this database builds (existing and future), so
// calls to e.g. "Clock.now" resolve through internal/effects instead of
// failing as undefined functions. Passing nil disables host dispatch.
func (db *Database) SetEffectsContext(ctx *effects.Context) {
	db.effects = ctx
	db.machineMu.Lock()
	defer db.machineMu.Unlock()
	for _, machine := range db.machines {
		machine.SetHostCall(hostCallOrNil(ctx))
	}
}

func hostCallOrNil(ctx *effects.Context) vm.HostCall {
	if ctx == nil {
		return nil
	}
	return effects.NewHost(ctx)
}

// runBefore/runAfter call into db.Plugins only if one is set, so every
// stage function can invoke them unconditionally.
func (db *Database) runBefore(stage string, input any) {
	if db.Plugins != nil {
		db.Plugins.RunBefore(stage, input)
	}
}

func (db *Database) runAfter(stage string, input, output any) any {
	if db.Plugins == nil {
		return output
	}
	return db.Plugins.RunAfter(stage, input, output)
}

// invalidate drops every stage cache entry for path, plus the same
// entries for every file that transitively depends on path: every
// cache entry for f and every cache entry for files in GetDependents(f)
// is invalidated before the next read. It is
// registered as a sourcestore.Store observer, so it fires exactly when
// SetSourceText/RemoveSource actually changed something (never on a
// byte-identical replace).
func (db *Database) invalidate(path string) {
	db.invalidateOne(path)
	if db.graph == nil {
		return
	}
	for _, dependent := range db.graph.GetDependents(path) {
		db.invalidateOne(dependent)
	}
}

func (db *Database) invalidateOne(path string) {
	db.tokens.invalidate(path)
	db.ast.invalidate(path)
	db.types.invalidate(path)

	db.irMu.Lock()
	delete(db.irEntries, path)
	db.irMu.Unlock()

	db.machineMu.Lock()
	for key := range db.machines {
		if machineKeyPath(key) == path {
			delete(db.machines, key)
		}
	}
	metrics.MachinesLive.Set(float64(len(db.machines)))
	db.machineMu.Unlock()
}

// ClearCaches drops every memoized stage result and long-lived machine.
// Source text itself (and the revision counter) is untouched.
func (db *Database) ClearCaches() {
	db.tokens.clear()
	db.ast.clear()
	db.types.clear()

	db.irMu.Lock()
	db.irEntries = make(map[string]map[string]*cacheEntry[[]*ir.CompiledFunction])
	db.irMu.Unlock()

	db.machineMu.Lock()
	db.machines = make(map[string]*vm.Machine)
	db.machineMu.Unlock()
	metrics.MachinesLive.Set(0)
}

// --- source store pass-through ---

func (db *Database) SetSourceText(path, content string) bool { return db.store.SetSourceText(path, content) }
func (db *Database) RemoveSource(path string) bool            { return db.store.RemoveSource(path) }
func (db *Database) SourceText(path string) (string, bool)    { return db.store.SourceText(path) }
func (db *Database) SourceHash(path string) (string, bool)    { return db.store.SourceHash(path) }
func (db *Database) SourceFiles() []string                    { return db.store.SourceFiles() }
func (db *Database) CurrentRevision() uint64                  { return db.store.CurrentRevision() }

// --- dependency graph pass-through ---

func (db *Database) AddDependency(from, to string) {
	if db.graph != nil {
		db.graph.AddDependency(from, to)
	}
}

func (db *Database) GetDependents(path string) []string {
	if db.graph == nil {
		return nil
	}
	return db.graph.GetDependents(path)
}

func (db *Database) ParallelLevels() [][]string {
	if db.graph == nil {
		return nil
	}
	return db.graph.ParallelLevels()
}

// --- cache introspection ---

type Stage string

const (
	StageTokens Stage = "tokens"
	StageAST    Stage = "ast"
	StageTypes  Stage = "types"
	StageIR     Stage = "ir"
)

// IsCached reports whether stage's cached entry for path is still valid
// against the file's current content hash. generate_ir's cache is keyed
// on a second (target) dimension this method can't express; callers
// checking that stage should use IsCachedIR instead, which IsCached
// itself always reports false for.
func (db *Database) IsCached(path string, stage Stage) bool {
	hash, ok := db.store.SourceHash(path)
	if !ok {
		return false
	}
	switch stage {
	case StageTokens:
		return db.tokens.isCached(path, hash)
	case StageAST:
		return db.ast.isCached(path, hash)
	case StageTypes:
		return db.types.isCached(path, hash)
	default:
		return false
	}
}

// IsCachedIR reports whether path's generate_ir(path, target) result is
// still valid.
func (db *Database) IsCachedIR(path, target string) bool {
	hash, ok := db.store.SourceHash(path)
	if !ok {
		return false
	}
	db.irMu.Lock()
	defer db.irMu.Unlock()
	byTarget, ok := db.irEntries[path]
	if !ok {
		return false
	}
	e, ok := byTarget[target]
	return ok && e.inputHash == hash
}

func machineKeyPath(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}

func machineKey(path, target string) string { return path + "|" + target }

// firstErrorOf adapts a diag.List into the plain error every stage
// function returns alongside its diagnostics, since Go has no
// Result<T,E> of its own to carry both at once.
func firstErrorOf(diags diag.List) error {
	if d := diags.Primary(); d != nil {
		return d
	}
	return nil
}
