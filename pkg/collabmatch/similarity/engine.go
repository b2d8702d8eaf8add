package similarity

import (
	"context"
	"runtime"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/ranking"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Engine ranks entities that carry an audio feature vector against each other.
type Engine struct {
	K       int
	Workers int
}

// NewEngine returns an engine with the default K and one worker per CPU.
func NewEngine() *Engine {
	return &Engine{K: models.DefaultTopK, Workers: runtime.GOMAXPROCS(0)}
}

// Rank returns one audio list per entity with a feature vector, in input order.
// Entities without a vector take no part in either direction. Edge scores are the
// raw cosine similarity, also stored in Components.Audio.
func (e *Engine) Rank(ctx context.Context, entities []models.EntityRecord) ([]models.RankedMatchList, error) {
	var idx []int
	var vectors [][]float64
	for i := range entities {
		if entities[i].HasAudio() {
			idx = append(idx, i)
			vectors = append(vectors, entities[i].AudioFeatures)
		}
	}

	m, err := BuildMatrix(vectors)
	if err != nil {
		return nil, err
	}
	sim, err := CosineMatrix(ctx, m, e.Workers)
	if err != nil {
		return nil, err
	}

	asm := &ranking.Assembler{K: e.K, Workers: e.Workers}
	edges, err := asm.Assemble(ctx, len(idx), func(i, j int) (models.MatchEdge, bool) {
		target := &entities[idx[j]]
		s := sim[i][j]
		return models.MatchEdge{
			SourceID:       entities[idx[i]].ID,
			TargetID:       target.ID,
			TargetName:     target.Name(),
			TargetLocation: target.LocationText,
			Components:     models.ComponentScores{Audio: s},
			Score:          s,
		}, true
	})
	if err != nil {
		return nil, err
	}

	lists := make([]models.RankedMatchList, len(idx))
	for i, src := range idx {
		lists[i] = models.RankedMatchList{
			Kind:       models.KindAudio,
			SourceID:   entities[src].ID,
			SourceName: entities[src].Name(),
			Edges:      edges[i],
		}
	}
	return lists, nil
}
