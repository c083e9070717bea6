// Package depgraph tracks which source files import which, and turns
// that adjacency into the level-by-level schedule the incremental
// pipeline drives: files that only depend on already-finished work can
// be re-checked concurrently, and cyclic imports degrade gracefully
// into a single shared level instead of panicking the build.
package depgraph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Metadata is the per-file bookkeeping the graph keeps alongside the
// edges themselves.
type Metadata struct {
	Hash  string
	Mtime int64
	Size  int64
}

// Graph is the forward/reverse adjacency pair plus metadata, ported
// from original_source's vaisc/src/incremental/graph.rs DependencyGraph.
// All exported methods are safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	forward  map[string][]string
	reverse  map[string][]string
	metadata map[string]Metadata

	sccDirty bool
	sccCache [][]string
	sccOf    map[string]int // path -> index into sccCache, valid iff !sccDirty
}

func New() *Graph {
	return &Graph{
		forward:  make(map[string][]string),
		reverse:  make(map[string][]string),
		metadata: make(map[string]Metadata),
		sccDirty: true,
	}
}

// AddDependency records that from imports to, mirroring add_dependency.
func (g *Graph) AddDependency(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forward[from] = append(g.forward[from], to)
	g.reverse[to] = append(g.reverse[to], from)
	g.sccDirty = true
}

// ClearFileDeps removes every forward edge originating at file (and the
// matching reverse entries), in preparation for re-adding a fresh
// import list after that file's AST is re-lowered.
func (g *Graph) ClearFileDeps(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	imports, ok := g.forward[file]
	if !ok {
		return
	}
	delete(g.forward, file)
	for _, imported := range imports {
		importers := g.reverse[imported]
		kept := importers[:0]
		for _, p := range importers {
			if p != file {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(g.reverse, imported)
		} else {
			g.reverse[imported] = kept
		}
	}
	g.sccDirty = true
}

// UpdateFileMetadata records file's hash/mtime/size, mirroring
// update_file_metadata.
func (g *Graph) UpdateFileMetadata(file string, md Metadata) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metadata[file] = md
}

// HashContent produces a fast, non-cryptographic change-detection hash
// for a file's content, suitable for Metadata.Hash. This is a deliberately
// different (and cheaper) hash than sourcestore's content-identity hash:
// the graph only needs to notice "did this file's bytes change since the
// last import scan", not resist collision attacks, so a 64-bit xxHash is
// the right weight class here rather than reusing the 128-bit hash that
// backs cache-correctness elsewhere.
func HashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

func (g *Graph) Metadata(file string) (Metadata, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	md, ok := g.metadata[file]
	return md, ok
}

// GetDependents returns every file that transitively imports file,
// found by a BFS over the reverse edges, mirroring get_dependents.
func (g *Graph) GetDependents(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	queue := []string{file}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.reverse[current] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) allFilesLocked() []string {
	seen := make(map[string]bool)
	for f := range g.forward {
		seen[f] = true
	}
	for f := range g.reverse {
		seen[f] = true
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// TopologicalSort computes Kahn levels: each level holds every file
// whose forward dependencies are all satisfied by earlier levels, so
// files in one level may be processed in parallel. A remaining
// circular dependency collapses everything left into one final level
// rather than looping forever, mirroring topological_sort's SCC
// fallback.
func (g *Graph) TopologicalSort() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	allFiles := g.allFilesLocked()
	inDegree := make(map[string]int, len(allFiles))
	for _, f := range allFiles {
		inDegree[f] = len(g.forward[f])
	}

	visited := make(map[string]bool, len(allFiles))
	var levels [][]string

	for len(visited) < len(allFiles) {
		var level []string
		for _, f := range allFiles {
			if !visited[f] && inDegree[f] == 0 {
				level = append(level, f)
			}
		}
		if len(level) == 0 {
			for _, f := range allFiles {
				if !visited[f] {
					level = append(level, f)
				}
			}
		}
		if len(level) == 0 {
			break
		}
		for _, f := range level {
			visited[f] = true
			for _, dependent := range g.reverse[f] {
				if inDegree[dependent] > 0 {
					inDegree[dependent]--
				}
			}
		}
		levels = append(levels, level)
	}
	return levels
}

// ParallelLevels computes the same level schedule as TopologicalSort
// but explicitly condenses strongly connected components first, so a
// cycle always lands in exactly one level no matter where Kahn's
// frontier would otherwise have split it, mirroring parallel_levels.
func (g *Graph) ParallelLevels() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	sccs := g.findSCCsLocked()
	sccIndex := make(map[string]int, len(sccs))
	for id, scc := range sccs {
		for _, f := range scc {
			sccIndex[f] = id
		}
	}

	sccForward := make([]map[int]bool, len(sccs))
	sccInDegree := make([]int, len(sccs))
	for i := range sccs {
		sccForward[i] = make(map[int]bool)
	}

	for from, tos := range g.forward {
		fromSCC, ok := sccIndex[from]
		if !ok {
			continue
		}
		for _, to := range tos {
			toSCC, ok := sccIndex[to]
			if !ok || toSCC == fromSCC {
				continue
			}
			// from depends on to, so to must be scheduled first: add an
			// edge to -> from in the condensation.
			if !sccForward[toSCC][fromSCC] {
				sccForward[toSCC][fromSCC] = true
				sccInDegree[fromSCC]++
			}
		}
	}

	visited := make([]bool, len(sccs))
	var levels [][]string
	visitedCount := 0
	for visitedCount < len(sccs) {
		var levelSCCs []int
		for id := range sccs {
			if !visited[id] && sccInDegree[id] == 0 {
				levelSCCs = append(levelSCCs, id)
			}
		}
		if len(levelSCCs) == 0 {
			break // cannot happen if sccs/condensation are well-formed
		}
		var level []string
		for _, id := range levelSCCs {
			visited[id] = true
			visitedCount++
			level = append(level, sccs[id]...)
			for dep := range sccForward[id] {
				sccInDegree[dep]--
			}
		}
		sort.Strings(level)
		levels = append(levels, level)
	}
	return levels
}

// FindSCCs runs Tarjan's algorithm over the forward edges and returns
// every strongly connected component (a component of size 1 is a file
// with no self-cycle). Mirrors find_sccs.
func (g *Graph) FindSCCs() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	sccs := g.findSCCsLocked()
	out := make([][]string, len(sccs))
	copy(out, sccs)
	return out
}

// findSCCsLocked requires mu held for writing: it repopulates sccCache
// and sccOf when dirty, so every caller takes the full Lock rather
// than RLock even though most only read the result.
func (g *Graph) findSCCsLocked() [][]string {
	if !g.sccDirty && g.sccCache != nil {
		return g.sccCache
	}
	t := &tarjanState{
		index:   make(map[string]int),
		lowLink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, f := range g.allFilesLocked() {
		if _, ok := t.index[f]; !ok {
			g.tarjanVisit(f, t)
		}
	}
	g.sccCache = t.sccs
	g.sccOf = make(map[string]int, len(t.sccs))
	for id, scc := range t.sccs {
		for _, f := range scc {
			g.sccOf[f] = id
		}
	}
	g.sccDirty = false
	return t.sccs
}

// IsInCycle reports whether file belongs to a multi-member SCC. This
// is answered off the cached
// SCC-membership map built by the last findSCCsLocked call rather than
// re-running Tarjan, so repeated calls between mutations are O(1).
func (g *Graph) IsInCycle(file string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	sccs := g.findSCCsLocked()
	id, ok := g.sccOf[file]
	if !ok {
		return false
	}
	return len(sccs[id]) > 1
}

type tarjanState struct {
	index      map[string]int
	lowLink    map[string]int
	indexCount int
	stack      []string
	onStack    map[string]bool
	sccs       [][]string
}

// tarjanVisit is a recursive depth-first visit, ported directly from
// graph.rs's tarjan_visit. A stack underflow here means the algorithm's
// own invariant (every pushed node is popped exactly once, at its own
// root) was violated — not a condition callers can recover from.
func (g *Graph) tarjanVisit(file string, t *tarjanState) {
	t.index[file] = t.indexCount
	t.lowLink[file] = t.indexCount
	t.indexCount++
	t.stack = append(t.stack, file)
	t.onStack[file] = true

	for _, dep := range g.forward[file] {
		if _, ok := t.index[dep]; !ok {
			g.tarjanVisit(dep, t)
			if t.lowLink[dep] < t.lowLink[file] {
				t.lowLink[file] = t.lowLink[dep]
			}
		} else if t.onStack[dep] {
			if t.index[dep] < t.lowLink[file] {
				t.lowLink[file] = t.index[dep]
			}
		}
	}

	if t.lowLink[file] == t.index[file] {
		var scc []string
		for {
			if len(t.stack) == 0 {
				panic("depgraph[C001]: Tarjan stack underflow, algorithm invariant violated")
			}
			node := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			delete(t.onStack, node)
			scc = append(scc, node)
			if node == file {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
