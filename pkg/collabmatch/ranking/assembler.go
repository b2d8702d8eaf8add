// Package ranking turns a pairwise score function into per-source top-K lists.
package ranking

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// ScoreFunc scores the ordered pair (source, target), both given as indices into the
// caller's entity slice. Returning false skips the pair.
type ScoreFunc func(source, target int) (models.MatchEdge, bool)

// Assembler scores every ordered pair of N entities and keeps the best K per source.
type Assembler struct {
	K       int
	Workers int
}

// New returns an assembler with the default K and one worker per CPU.
func New() *Assembler {
	return &Assembler{K: models.DefaultTopK, Workers: runtime.GOMAXPROCS(0)}
}

// Assemble returns one slice of edges per source index. Sources are fanned out across
// the worker pool; each worker writes only its own slot so the result does not depend
// on scheduling. Self pairs are never scored.
func (a *Assembler) Assemble(ctx context.Context, n int, score ScoreFunc) ([][]models.MatchEdge, error) {
	out := make([][]models.MatchEdge, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			edges := make([]models.MatchEdge, 0, n-1)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				if e, ok := score(i, j); ok {
					edges = append(edges, e)
				}
			}
			out[i] = TopK(edges, a.K)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) workers() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// TopK stable-sorts edges by descending score and truncates to k. Ties keep their
// enumeration order. The input slice is reordered in place. k <= 0 keeps everything.
func TopK(edges []models.MatchEdge, k int) []models.MatchEdge {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Score > edges[j].Score
	})
	if k > 0 && len(edges) > k {
		edges = edges[:k:k]
	}
	return edges
}
