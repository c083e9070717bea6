package depgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSCCs_NoCycle(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "c.vais")

	sccs := g.FindSCCs()
	require.Len(t, sccs, 3)
	for _, scc := range sccs {
		assert.Len(t, scc, 1)
	}
}

func TestFindSCCs_SimpleCycle(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "a.vais")

	sccs := g.FindSCCs()
	require.Len(t, sccs, 1)
	assert.Len(t, sccs[0], 2)
	assert.ElementsMatch(t, []string{"a.vais", "b.vais"}, sccs[0])
}

func TestFindSCCs_Complex(t *testing.T) {
	g := New()
	// Cycle: A -> B -> C -> A
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "c.vais")
	g.AddDependency("c.vais", "a.vais")
	// D -> A, D -> E
	g.AddDependency("d.vais", "a.vais")
	g.AddDependency("d.vais", "e.vais")

	sccs := g.FindSCCs()
	require.Len(t, sccs, 3)

	var abc, d, e []string
	for _, scc := range sccs {
		switch {
		case contains(scc, "a.vais"):
			abc = scc
		case contains(scc, "d.vais"):
			d = scc
		case contains(scc, "e.vais"):
			e = scc
		}
	}
	assert.ElementsMatch(t, []string{"a.vais", "b.vais", "c.vais"}, abc)
	assert.Equal(t, []string{"d.vais"}, d)
	assert.Equal(t, []string{"e.vais"}, e)
}

func TestParallelLevels_WithSCC(t *testing.T) {
	g := New()
	// Cycle: A -> B -> A
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "a.vais")
	// C -> A, D -> C
	g.AddDependency("c.vais", "a.vais")
	g.AddDependency("d.vais", "c.vais")

	levels := g.ParallelLevels()
	require.GreaterOrEqual(t, len(levels), 2)

	abLevel := levelOf(levels, "a.vais")
	require.GreaterOrEqual(t, abLevel, 0)
	assert.Contains(t, levels[abLevel], "b.vais")

	cLevel := levelOf(levels, "c.vais")
	dLevel := levelOf(levels, "d.vais")
	require.Greater(t, cLevel, abLevel)
	require.Greater(t, dLevel, cLevel)
}

func TestIsInCycle(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "a.vais")
	g.AddDependency("c.vais", "a.vais")

	assert.True(t, g.IsInCycle("a.vais"))
	assert.True(t, g.IsInCycle("b.vais"))
	assert.False(t, g.IsInCycle("c.vais"))
}

func TestIsInCycle_RefreshesAfterClearFileDeps(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "a.vais")
	require.True(t, g.IsInCycle("a.vais"))

	g.ClearFileDeps("b.vais")
	assert.False(t, g.IsInCycle("a.vais"), "removing b's edge back to a should break the cycle")
}

func TestGetDependents_Transitive(t *testing.T) {
	g := New()
	// a imports b imports c: c's dependents are {a, b}
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "c.vais")

	deps := g.GetDependents("c.vais")
	assert.ElementsMatch(t, []string{"a.vais", "b.vais"}, deps)
}

func TestTopologicalSort_OrdersByDependency(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	g.AddDependency("b.vais", "c.vais")

	levels := g.TopologicalSort()
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"c.vais"}, levels[0])
	assert.Equal(t, []string{"b.vais"}, levels[1])
	assert.Equal(t, []string{"a.vais"}, levels[2])
}

func TestClearFileDeps_RemovesReverseEdges(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	require.Contains(t, g.GetDependents("b.vais"), "a.vais")

	g.ClearFileDeps("a.vais")
	assert.NotContains(t, g.GetDependents("b.vais"), "a.vais")
}

func TestDispatchLevels_RunsEarlierLevelFirst(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "c.vais")
	g.AddDependency("b.vais", "c.vais")
	levels := g.ParallelLevels()

	var mu sync.Mutex
	var order []string
	err := DispatchLevels(context.Background(), levels, func(_ context.Context, file string) error {
		mu.Lock()
		order = append(order, file)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, order, 3)
	// c.vais (level 0, no deps) must precede both a.vais and b.vais.
	assert.Equal(t, "c.vais", order[0])
}

func TestDispatchLevels_AbortsOnFirstError(t *testing.T) {
	g := New()
	g.AddDependency("a.vais", "b.vais")
	levels := g.ParallelLevels()

	boom := fmt.Errorf("lowering failed")
	err := DispatchLevels(context.Background(), levels, func(_ context.Context, file string) error {
		if file == "b.vais" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func levelOf(levels [][]string, file string) int {
	for i, level := range levels {
		if contains(level, file) {
			return i
		}
	}
	return -1
}

func TestMetadata_RoundTrips(t *testing.T) {
	g := New()
	g.UpdateFileMetadata("a.vais", Metadata{Hash: "abc123", Mtime: 42, Size: 7})
	md, ok := g.Metadata("a.vais")
	require.True(t, ok)
	assert.Equal(t, "abc123", md.Hash)
}

func TestFindSCCs_SortedDeterministically(t *testing.T) {
	g := New()
	g.AddDependency("z.vais", "a.vais")
	sccs := g.FindSCCs()
	assert.Equal(t, [][]string{{"a.vais"}, {"z.vais"}}, sccs)
	var names []string
	for _, scc := range sccs {
		names = append(names, scc...)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.vais", "z.vais"}, names)
}

func TestHashContent_StableAndSensitiveToChange(t *testing.T) {
	a := HashContent("fn main() {}")
	b := HashContent("fn main() {}")
	c := HashContent("fn main() { 1 }")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
