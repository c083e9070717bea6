package depgraph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DispatchLevels runs work for every file in levels (as produced by
// ParallelLevels or TopologicalSort), level by level: everything in one
// level runs concurrently via errgroup, and the next level only starts
// once the whole current level has finished, since its files may
// depend on results the current level just produced. The first error
// from any file cancels the errgroup's derived context passed to that
// level's other work; once all of the level's goroutines have returned,
// DispatchLevels returns that error without starting further levels.
func DispatchLevels(ctx context.Context, levels [][]string, work func(ctx context.Context, file string) error) error {
	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, file := range level {
			file := file
			g.Go(func() error {
				return work(gctx, file)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
