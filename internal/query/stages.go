package query

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/checker"
	"github.com/vaislang/vais/internal/depgraph"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/lexer"
	"github.com/vaislang/vais/internal/metrics"
	"github.com/vaislang/vais/internal/parser"
	"github.com/vaislang/vais/internal/vm"
)

// tokenize loops lexer.NextToken() to EOF — the lexer package exposes no
// single-shot Tokenize helper of its own, so the query layer is where
// this loop lives, once, for every caller. ILLEGAL tokens are surfaced
// as E003 diagnostics rather than silently included in the token
// stream.
func tokenize(path, content string) ([]lexer.Token, diag.List) {
	l := lexer.New(content, path)
	var toks []lexer.Token
	var diags diag.List
	for {
		tok := l.NextToken()
		if tok.Type == lexer.ILLEGAL {
			// Token carries line/column, not byte offsets; Span.Start/End
			// stand in with the line number until the lexer grows byte
			// offsets of its own.
			span := diag.Span{Start: tok.Line, End: tok.Line, File: path}
			diags = append(diags, diag.New(diag.E003, span, "invalid byte sequence %q", tok.Literal))
		}
		toks = append(toks, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	return toks, diags
}

// Tokenize runs the lex stage for path, memoized on its content hash.
// Concurrent identical requests coalesce onto a single lex pass via
// singleflight, so they return the same result without duplicated work.
func (db *Database) Tokenize(path string) ([]lexer.Token, diag.List, error) {
	content, hash, ok := db.sourceAndHash(path)
	if !ok {
		return nil, nil, &NotFoundError{Path: path}
	}
	if toks, err, cached := db.tokens.get(path, hash); cached {
		metrics.CacheHits.WithLabelValues(string(StageTokens)).Inc()
		return toks, nil, err
	}
	metrics.CacheMisses.WithLabelValues(string(StageTokens)).Inc()
	db.runBefore(string(StageTokens), path)
	v, _, _ := db.tokenSF.Do(path+"|"+hash, func() (interface{}, error) {
		toks, diags := tokenize(path, content)
		db.tokens.put(path, hash, toks, firstErrorOf(diags))
		return stageResult[[]lexer.Token]{value: toks, diags: diags}, nil
	})
	res := v.(stageResult[[]lexer.Token])
	if replaced, ok := db.runAfter(string(StageTokens), path, res.value).([]lexer.Token); ok {
		res.value = replaced
	}
	return res.value, res.diags, firstErrorOf(res.diags)
}

// stageResult carries both the value and the full diagnostic list a
// singleflight-coalesced call produced, so every waiter (not just the
// one that actually ran the work) gets the complete diagnostics.
type stageResult[T any] struct {
	value T
	diags diag.List
}

// Parse runs the parse stage for path, itself driving Tokenize.
func (db *Database) Parse(path string) (*ast.Module, diag.List, error) {
	content, hash, ok := db.sourceAndHash(path)
	if !ok {
		return nil, nil, &NotFoundError{Path: path}
	}
	if mod, err, cached := db.ast.get(path, hash); cached {
		metrics.CacheHits.WithLabelValues(string(StageAST)).Inc()
		return mod, nil, err
	}
	metrics.CacheMisses.WithLabelValues(string(StageAST)).Inc()
	db.runBefore(string(StageAST), path)
	v, _, _ := db.astSF.Do(path+"|"+hash, func() (interface{}, error) {
		l := lexer.New(content, path)
		p := parser.New(l, path)
		p.MaxDepth = db.MaxParseDepth
		mod, errs := p.ParseFile(path)
		db.ast.put(path, hash, mod, firstErrorOf(errs))
		if db.graph != nil {
			db.graph.UpdateFileMetadata(path, depgraph.Metadata{
				Hash: depgraph.HashContent(content),
				Size: int64(len(content)),
			})
		}
		return stageResult[*ast.Module]{value: mod, diags: errs}, nil
	})
	res := v.(stageResult[*ast.Module])
	if replaced, ok := db.runAfter(string(StageAST), path, res.value).(*ast.Module); ok {
		res.value = replaced
	}
	return res.value, res.diags, firstErrorOf(res.diags)
}

// TypeCheck runs the type-check stage for path. It re-parses through
// Parse (itself memoized), so a cached AST never costs a re-parse.
func (db *Database) TypeCheck(path string) (diag.List, error) {
	mod, parseDiags, err := db.Parse(path)
	if err != nil {
		return parseDiags, err
	}

	content, hash, ok := db.sourceAndHash(path)
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	if _, err, cached := db.types.get(path, hash); cached {
		metrics.CacheHits.WithLabelValues(string(StageTypes)).Inc()
		return nil, err
	}
	metrics.CacheMisses.WithLabelValues(string(StageTypes)).Inc()
	v, _, _ := db.typeSF.Do(path+"|"+hash, func() (interface{}, error) {
		c := checker.New()
		c.MultiError = db.MultiError
		checkErr := c.CheckModule(mod)
		diags := c.Diagnostics()
		var stored error
		if checkErr != nil {
			stored = checkErr
		} else {
			stored = firstErrorOf(diags)
		}
		db.types.put(path, hash, struct{}{}, stored)
		return stageResult[struct{}]{diags: diags}, stored
	})
	res, _ := v.(stageResult[struct{}])
	return res.diags, firstErrorOf(res.diags)
}

// GenerateIR runs the lower stage for path against target, memoized on
// (content hash, target): changing the target triple invalidates the
// IR cache entry for that file without invalidating the AST or
// type-check caches. ir.Lower itself has no target parameter in
// this pipeline slice — there is only one lowering behavior — so target
// is purely a cache-key dimension here, not a branch inside Lower.
func (db *Database) GenerateIR(path, target string) ([]*ir.CompiledFunction, error) {
	if _, err := db.TypeCheck(path); err != nil {
		return nil, err
	}

	mod, _, err := db.Parse(path)
	if err != nil {
		return nil, err
	}
	_, hash, ok := db.sourceAndHash(path)
	if !ok {
		return nil, &NotFoundError{Path: path}
	}

	if fns, cerr, cached := db.irGet(path, target, hash); cached {
		metrics.CacheHits.WithLabelValues(string(StageIR)).Inc()
		return fns, cerr
	}
	metrics.CacheMisses.WithLabelValues(string(StageIR)).Inc()

	v, _, _ := db.irSF.Do(path+"\x00"+target+"|"+hash, func() (interface{}, error) {
		fns, lowerErr := ir.Lower(mod)
		db.irPut(path, target, hash, fns, lowerErr)
		return stageResult[[]*ir.CompiledFunction]{value: fns}, lowerErr
	})
	res := v.(stageResult[[]*ir.CompiledFunction])
	_, cerr, _ := db.irGet(path, target, hash)
	return res.value, cerr
}

func (db *Database) irGet(path, target, hash string) ([]*ir.CompiledFunction, error, bool) {
	db.irMu.Lock()
	defer db.irMu.Unlock()
	byTarget, ok := db.irEntries[path]
	if !ok {
		return nil, nil, false
	}
	e, ok := byTarget[target]
	if !ok || e.inputHash != hash {
		return nil, nil, false
	}
	return e.value, e.err, true
}

func (db *Database) irPut(path, target, hash string, fns []*ir.CompiledFunction, err error) {
	db.irMu.Lock()
	defer db.irMu.Unlock()
	byTarget, ok := db.irEntries[path]
	if !ok {
		byTarget = make(map[string]*cacheEntry[[]*ir.CompiledFunction])
		db.irEntries[path] = byTarget
	}
	byTarget[target] = &cacheEntry[[]*ir.CompiledFunction]{inputHash: hash, value: fns, err: err}
}

// ExecuteFunction runs entryName via the long-lived vm.Machine for
// (path, target), building and caching the machine from GenerateIR's
// result on first use. The machine survives across calls so the JIT's
// per-function call counters keep
// accumulating the way a real long-running compiler service would see
// them; it is invalidated alongside the IR entry it was built from.
func (db *Database) ExecuteFunction(path, target, entryName string, args []ir.Value) (ir.Value, error) {
	fns, err := db.GenerateIR(path, target)
	if err != nil {
		return ir.UnitValue(), err
	}

	key := machineKey(path, target)
	db.machineMu.Lock()
	m, ok := db.machines[key]
	if !ok {
		m = vm.NewMachine(fns)
		if db.CallThreshold != 0 {
			m.CallThreshold = db.CallThreshold
		}
		if db.OSRThreshold != 0 {
			m.OSRThreshold = db.OSRThreshold
		}
		m.SetJITEngine(jitEngineOrNil(db.jit))
		m.SetHostCall(hostCallOrNil(db.effects))
		db.machines[key] = m
		metrics.MachinesLive.Set(float64(len(db.machines)))
	}
	db.machineMu.Unlock()

	return m.Call(entryName, args)
}

func (db *Database) sourceAndHash(path string) (content string, hash string, ok bool) {
	content, ok = db.store.SourceText(path)
	if !ok {
		return "", "", false
	}
	hash, _ = db.store.SourceHash(path)
	return content, hash, true
}
