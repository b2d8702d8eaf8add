// Package consolidate merges metadata and audio rankings into one final ranking.
package consolidate

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/ranking"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Weights are the percentage weights of the final score. They must sum to 100.
type Weights struct {
	Location float64
	Genre    float64
	Audio    float64
	Role     float64
	Age      float64
}

// Default returns location 30, genre 25, audio 20, role 15, age 10.
func Default() Weights {
	return Weights{Location: 30, Genre: 25, Audio: 20, Role: 15, Age: 10}
}

// Validate rejects negative weights and sums other than 100.
func (w Weights) Validate() error {
	sum := 0.0
	for _, v := range []float64{w.Location, w.Genre, w.Audio, w.Role, w.Age} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: consolidation weight %v", scoring.ErrInvalidWeights, v)
		}
		sum += v
	}
	if math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("%w: consolidation weights sum to %v, want 100", scoring.ErrInvalidWeights, sum)
	}
	return nil
}

// Consolidator re-ranks metadata edges with the audio signal folded in.
type Consolidator struct {
	Meta    scoring.Weights // scale the metadata sub-scores were produced on
	Weights Weights
	K       int
}

// New validates both weight sets.
func New(meta scoring.Weights, w Weights, k int) (*Consolidator, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = models.DefaultTopK
	}
	return &Consolidator{Meta: meta.Clone(), Weights: w, K: k}, nil
}

type pair struct{ source, target string }

// Consolidate walks the metadata lists in order; they define which (source, target)
// pairs exist. Audio edges for pairs not present there are ignored. A pair without an
// audio edge contributes 0 audio, and negative similarities are clamped to 0.
func (c *Consolidator) Consolidate(metadata, audio []models.RankedMatchList) []models.RankedMatchList {
	sim := make(map[pair]float64)
	for _, l := range audio {
		for _, e := range l.Edges {
			sim[pair{e.SourceID, e.TargetID}] = e.Components.Audio
		}
	}

	out := make([]models.RankedMatchList, 0, len(metadata))
	for _, l := range metadata {
		edges := make([]models.MatchEdge, 0, len(l.Edges))
		for _, e := range l.Edges {
			edges = append(edges, c.edge(e, sim[pair{e.SourceID, e.TargetID}]))
		}
		out = append(out, models.RankedMatchList{
			Kind:       models.KindConsolidated,
			SourceID:   l.SourceID,
			SourceName: l.SourceName,
			Edges:      ranking.TopK(edges, c.K),
		})
	}
	return out
}

func (c *Consolidator) edge(meta models.MatchEdge, audio float64) models.MatchEdge {
	f := models.ComponentScores{
		Genre: fraction(meta.Components.Genre, c.Meta.Genre),
		Role:  fraction(meta.Components.Role, c.Meta.Role),
		Age:   fraction(meta.Components.Age, c.Meta.Age),
		Audio: clamp01(audio),
	}
	if c.Meta.Location == 0 {
		f.Location = 1
	} else {
		f.Location = fraction(meta.Components.Location, c.Meta.Location)
	}

	w := c.Weights
	out := meta
	out.Components = f
	out.Score = f.Location*w.Location + f.Genre*w.Genre + f.Audio*w.Audio + f.Role*w.Role + f.Age*w.Age
	return out
}

func fraction(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(v / max)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
