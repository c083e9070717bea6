// Package plugin implements an external-interface hook contract:
// plugins are pure observers or explicit transformers, run on the
// driver thread around a query stage. The shape generalizes
// internal/effects.Registry's nested-map-of-callbacks idiom
// (Registry["IO"]["print"] = op) from effect-name/op-name
// to stage-name/hook-kind.
package plugin

import "sync"

// BeforeHook observes a stage about to run over input, for logging/
// metrics/validation plugins that never change the pipeline's outcome.
type BeforeHook func(stage string, input any)

// AfterHook observes (or, if it returns a non-nil replacement, rewrites)
// a stage's output. Returning nil leaves output untouched — most plugins
// are observers and should return nil rather than re-wrap the value they
// were just handed.
type AfterHook func(stage string, input, output any) (replacement any)

// Registry holds hooks keyed by stage name ("tokens", "ast", "types",
// "ir", matching query.Stage's string values), mirroring
// effects.Registry["Effect"]["op"]'s nested structure: here the first
// key is the stage and the second dimension is hook kind rather than op
// name.
type Registry struct {
	mu     sync.RWMutex
	before map[string][]BeforeHook
	after  map[string][]AfterHook
}

// NewRegistry builds an empty Registry, safe for concurrent registration
// and dispatch.
func NewRegistry() *Registry {
	return &Registry{
		before: make(map[string][]BeforeHook),
		after:  make(map[string][]AfterHook),
	}
}

// RegisterBefore adds hook to run before stage executes. Hooks run in
// registration order.
func (r *Registry) RegisterBefore(stage string, hook BeforeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before[stage] = append(r.before[stage], hook)
}

// RegisterAfter adds hook to run after stage executes.
func (r *Registry) RegisterAfter(stage string, hook AfterHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after[stage] = append(r.after[stage], hook)
}

// RunBefore invokes every before-hook registered for stage, in order, on
// the calling (driver) goroutine — plugins never run concurrently with
// the stage they observe.
func (r *Registry) RunBefore(stage string, input any) {
	r.mu.RLock()
	hooks := append([]BeforeHook(nil), r.before[stage]...)
	r.mu.RUnlock()
	for _, h := range hooks {
		h(stage, input)
	}
}

// RunAfter invokes every after-hook registered for stage, in order,
// threading each hook's non-nil replacement into the next as its
// output argument, and returns the final value. A stage with no
// registered after-hooks returns output unchanged.
func (r *Registry) RunAfter(stage string, input, output any) any {
	r.mu.RLock()
	hooks := append([]AfterHook(nil), r.after[stage]...)
	r.mu.RUnlock()
	for _, h := range hooks {
		if replacement := h(stage, input, output); replacement != nil {
			output = replacement
		}
	}
	return output
}
