// Package scoring implements the metadata pairwise scorer: genre and role overlap,
// age compatibility and geodistance combined into one bounded sub-score per ordered pair.
package scoring

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/geo"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Scorer scores ordered pairs of entities with a fixed weight set.
type Scorer struct {
	w Weights
}

// NewScorer validates w and returns a scorer bound to a private copy of it.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{w: w.Clone()}, nil
}

// Weights returns a copy of the scorer's weight set.
func (s *Scorer) Weights() Weights { return s.w.Clone() }

// Score computes the directed edge source -> target. The result is not symmetric:
// ConsidersAge, AgeLimit and OKNotLocal are read from the source only.
func (s *Scorer) Score(source, target *models.EntityRecord) models.MatchEdge {
	edge := models.MatchEdge{
		SourceID:       source.ID,
		TargetID:       target.ID,
		TargetName:     target.Name(),
		TargetLocation: target.LocationText,
	}

	edge.Components.Genre, edge.Details.GenreMatches = overlap(source.Genres, target.Genres, s.w.Genre)
	edge.Components.Role, edge.Details.RoleMatches = overlap(source.Roles, target.Roles, s.w.Role)
	edge.Components.Age, edge.Details.AgeCompatible = s.ageScore(source, target)

	if km, ok := geo.Distance(source.Location, target.Location); ok {
		edge.Details.DistanceKm = &km
	}
	edge.Components.Location = s.locationScore(source, edge.Details.DistanceKm)

	c := edge.Components
	edge.Score = c.Genre + c.Role + c.Age + c.Location
	return edge
}

// overlap returns |a∩b| / max(|a|,|b|) × weight and the shared values in a's order.
// Either set being empty yields exactly zero.
func overlap(a, b []string, weight float64) (float64, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	var shared []string
	for _, v := range a {
		if _, ok := inB[v]; ok {
			shared = append(shared, v)
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(len(shared)) / float64(denom) * weight, shared
}

func (s *Scorer) ageScore(source, target *models.EntityRecord) (float64, bool) {
	full := s.w.Age
	if !source.ConsidersAge {
		return full, true
	}
	if source.Age.State == models.FieldAbsent || target.Age.State == models.FieldAbsent {
		return full, true
	}
	if !source.Age.Valid() || !target.Age.Valid() {
		return s.w.NeutralAge(), true
	}
	limit := source.AgeLimit
	if !limit.Valid() || limit.Value == models.NoAgeLimit {
		return full, true
	}

	gap := source.Age.Value - target.Age.Value
	if gap < 0 {
		gap = -gap
	}
	if gap <= limit.Value {
		return full, true
	}
	return math.Max(0, full-float64(gap-limit.Value)*s.w.AgeDecay), false
}

func (s *Scorer) locationScore(source *models.EntityRecord, distanceKm *float64) float64 {
	if s.w.Location == 0 {
		return 0
	}
	if distanceKm == nil {
		return s.w.Location
	}
	buckets := s.w.Intolerant
	if source.OKNotLocal {
		buckets = s.w.Tolerant
	}
	for _, b := range buckets {
		if *distanceKm < b.MaxKm {
			return b.Score
		}
	}
	// Validate guarantees an unbounded last bucket.
	panic(fmt.Sprintf("scoring: no distance bucket for %v km", *distanceKm))
}
