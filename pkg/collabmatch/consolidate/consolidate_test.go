package consolidate

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

func newTestConsolidator(t *testing.T, meta scoring.Weights) *Consolidator {
	t.Helper()
	c, err := New(meta, Default(), 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func metaEdge(src, dst string, genre, role, age, loc float64) models.MatchEdge {
	return models.MatchEdge{
		SourceID: src,
		TargetID: dst,
		Components: models.ComponentScores{
			Genre: genre, Role: role, Age: age, Location: loc,
		},
		Score: genre + role + age + loc,
	}
}

func audioList(src string, edges map[string]float64) models.RankedMatchList {
	l := models.RankedMatchList{Kind: models.KindAudio, SourceID: src}
	for dst, s := range edges {
		l.Edges = append(l.Edges, models.MatchEdge{
			SourceID: src, TargetID: dst, Score: s,
			Components: models.ComponentScores{Audio: s},
		})
	}
	return l
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestConsolidateFormula(t *testing.T) {
	c := newTestConsolidator(t, scoring.LocationAware())

	meta := []models.RankedMatchList{{
		SourceID: "a",
		Edges:    []models.MatchEdge{metaEdge("a", "b", 30, 0, 0, 0)},
	}}
	audio := []models.RankedMatchList{audioList("a", map[string]float64{"b": 0.8})}

	out := c.Consolidate(meta, audio)
	e := out[0].Edges[0]
	if !approx(e.Components.Genre, 1) {
		t.Errorf("genre fraction: got %v, want 1", e.Components.Genre)
	}
	// Full genre contributes 25, audio 0.8 contributes 16.
	if !approx(e.Score, 41) {
		t.Errorf("final score: got %v, want 41", e.Score)
	}
	if out[0].Kind != models.KindConsolidated {
		t.Errorf("kind: got %s", out[0].Kind)
	}
}

func TestMissingAudioContributesZero(t *testing.T) {
	c := newTestConsolidator(t, scoring.LocationAware())

	meta := []models.RankedMatchList{{
		SourceID: "a",
		Edges: []models.MatchEdge{
			metaEdge("a", "b", 30, 30, 15, 25),
			metaEdge("a", "c", 30, 30, 15, 25),
		},
	}}
	audio := []models.RankedMatchList{audioList("a", map[string]float64{"c": 1})}

	out := c.Consolidate(meta, audio)
	if len(out[0].Edges) != 2 {
		t.Fatalf("got %d edges, want 2 (row without audio kept)", len(out[0].Edges))
	}
	if out[0].Edges[0].TargetID != "c" || !approx(out[0].Edges[0].Score, 100) {
		t.Errorf("best: got %s %v, want c 100", out[0].Edges[0].TargetID, out[0].Edges[0].Score)
	}
	if out[0].Edges[1].TargetID != "b" || !approx(out[0].Edges[1].Score, 80) {
		t.Errorf("second: got %s %v, want b 80", out[0].Edges[1].TargetID, out[0].Edges[1].Score)
	}
}

func TestAudioOutsideMetadataIsDropped(t *testing.T) {
	c := newTestConsolidator(t, scoring.LocationAware())

	meta := []models.RankedMatchList{{SourceID: "a", Edges: []models.MatchEdge{metaEdge("a", "b", 0, 0, 0, 0)}}}
	audio := []models.RankedMatchList{
		audioList("a", map[string]float64{"b": 0.5, "z": 1}),
		audioList("z", map[string]float64{"a": 1}),
	}

	out := c.Consolidate(meta, audio)
	if len(out) != 1 || len(out[0].Edges) != 1 {
		t.Fatalf("got %+v, want only the a->b row", out)
	}
	if !approx(out[0].Edges[0].Score, 10) {
		t.Errorf("score: got %v, want 10", out[0].Edges[0].Score)
	}
}

func TestNegativeAudioIsClamped(t *testing.T) {
	c := newTestConsolidator(t, scoring.LocationAware())

	meta := []models.RankedMatchList{{SourceID: "a", Edges: []models.MatchEdge{metaEdge("a", "b", 0, 0, 0, 0)}}}
	audio := []models.RankedMatchList{audioList("a", map[string]float64{"b": -0.7})}

	e := c.Consolidate(meta, audio)[0].Edges[0]
	if e.Components.Audio != 0 || e.Score != 0 {
		t.Errorf("got audio %v score %v, want 0 and 0", e.Components.Audio, e.Score)
	}
}

func TestLiteSchemeLocationIsNeutral(t *testing.T) {
	c := newTestConsolidator(t, scoring.Lite())

	meta := []models.RankedMatchList{{SourceID: "a", Edges: []models.MatchEdge{metaEdge("a", "b", 40, 20, 20, 0)}}}
	e := c.Consolidate(meta, nil)[0].Edges[0]

	// location 30 + genre 25 + role 7.5 + age 10
	if !approx(e.Score, 72.5) {
		t.Errorf("score: got %v, want 72.5", e.Score)
	}
}

func TestConsolidateKeepsTopTenStable(t *testing.T) {
	c := newTestConsolidator(t, scoring.LocationAware())

	l := models.RankedMatchList{SourceID: "a"}
	for i := 0; i < 12; i++ {
		l.Edges = append(l.Edges, metaEdge("a", fmt.Sprintf("t%02d", i), 15, 15, 15, 25))
	}
	out := c.Consolidate([]models.RankedMatchList{l}, nil)
	if len(out[0].Edges) != 10 {
		t.Fatalf("got %d edges, want 10", len(out[0].Edges))
	}
	for i, e := range out[0].Edges {
		if want := fmt.Sprintf("t%02d", i); e.TargetID != want {
			t.Errorf("rank %d: got %s, want %s", i+1, e.TargetID, want)
		}
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default weights: %v", err)
	}
	w := Default()
	w.Audio = 30
	if err := w.Validate(); !errors.Is(err, scoring.ErrInvalidWeights) {
		t.Errorf("sum 110: got %v, want ErrInvalidWeights", err)
	}
	w = Default()
	w.Audio, w.Location = -10, 60
	if err := w.Validate(); !errors.Is(err, scoring.ErrInvalidWeights) {
		t.Errorf("negative weight: got %v, want ErrInvalidWeights", err)
	}
}
