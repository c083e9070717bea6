// Package metrics exposes the compiler's internal counters and gauges via
// github.com/prometheus/client_golang, the Prometheus usage the example
// pack's nmxmxh-inos_v1 module pulls in. internal/query reports cache
// hit/miss per stage; internal/jit reports compiles and OSR transitions.
// A process embedding vaisc as a long-running service (an LSP, a build
// server) can scrape prometheus.DefaultRegisterer the usual way; a
// one-shot CLI invocation simply never scrapes them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheHits/CacheMisses are labeled by query stage ("tokens", "ast",
	// "types", "ir"), mirroring query.Stage's string values.
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vais",
		Subsystem: "query",
		Name:      "cache_hits_total",
		Help:      "Stage cache hits, labeled by stage.",
	}, []string{"stage"})

	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vais",
		Subsystem: "query",
		Name:      "cache_misses_total",
		Help:      "Stage cache misses, labeled by stage.",
	}, []string{"stage"})

	JITCompiles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vais",
		Subsystem: "jit",
		Name:      "compiles_total",
		Help:      "Functions tiered up from interpretation to native code.",
	})

	OSRTransitions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vais",
		Subsystem: "jit",
		Name:      "osr_transitions_total",
		Help:      "On-stack replacements from interpreted to JIT-compiled loop bodies.",
	})

	MachinesLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vais",
		Subsystem: "query",
		Name:      "machines_live",
		Help:      "Long-lived vm.Machine instances currently cached by the query database.",
	})
)

func init() {
	prometheus.MustRegister(CacheHits, CacheMisses, JITCompiles, OSRTransitions, MachinesLive)
}
