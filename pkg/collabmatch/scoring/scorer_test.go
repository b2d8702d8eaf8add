package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

func newTestScorer(t *testing.T, w Weights) *Scorer {
	t.Helper()
	s, err := NewScorer(w)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func age(v int) models.IntField { return models.IntField{Value: v, State: models.FieldValid} }

func entity(id string) *models.EntityRecord {
	return &models.EntityRecord{ID: id, FirstName: id}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGenreAndRoleOverlap(t *testing.T) {
	s := newTestScorer(t, LocationAware())

	a := entity("a")
	a.Genres = []string{"rock", "jazz"}
	a.Roles = []string{"vocalist"}
	b := entity("b")
	b.Genres = []string{"jazz", "blues", "funk"}
	b.Roles = []string{"vocalist"}

	edge := s.Score(a, b)
	if !approx(edge.Components.Genre, 10) {
		t.Errorf("genre score: got %v, want 10", edge.Components.Genre)
	}
	if !approx(edge.Components.Role, 30) {
		t.Errorf("role score: got %v, want 30", edge.Components.Role)
	}
	if len(edge.Details.GenreMatches) != 1 || edge.Details.GenreMatches[0] != "jazz" {
		t.Errorf("genre matches: got %v", edge.Details.GenreMatches)
	}

	// An empty set still produces an edge, with zero for that component.
	b.Genres = nil
	edge = s.Score(a, b)
	if edge.Components.Genre != 0 {
		t.Errorf("empty genres: got %v, want 0", edge.Components.Genre)
	}
	if edge.Details.GenreMatches != nil {
		t.Errorf("empty genres: unexpected matches %v", edge.Details.GenreMatches)
	}
}

func TestAgeScore(t *testing.T) {
	s := newTestScorer(t, LocationAware())

	tests := []struct {
		name       string
		considers  bool
		sourceAge  models.IntField
		targetAge  models.IntField
		limit      models.IntField
		want       float64
		wantCompat bool
	}{
		{"within limit", true, age(30), age(38), age(10), 15, true},
		{"beyond limit", true, age(30), age(45), age(10), 15 - 5*1.5, false},
		{"clamped at zero", true, age(20), age(80), age(10), 0, false},
		{"gap equals limit", true, age(30), age(40), age(10), 15, true},
		{"does not consider age", false, age(30), age(80), age(10), 15, true},
		{"no limit sentinel", true, age(30), age(80), age(models.NoAgeLimit), 15, true},
		{"absent limit", true, age(30), age(80), models.IntField{}, 15, true},
		{"malformed limit", true, age(30), age(80), models.IntField{State: models.FieldMalformed}, 15, true},
		{"malformed target age", true, age(30), models.IntField{State: models.FieldMalformed}, age(10), 7.5, true},
		{"absent target age", true, age(30), models.IntField{}, age(10), 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := entity("a")
			a.ConsidersAge = tt.considers
			a.Age = tt.sourceAge
			a.AgeLimit = tt.limit
			b := entity("b")
			b.Age = tt.targetAge

			edge := s.Score(a, b)
			if !approx(edge.Components.Age, tt.want) {
				t.Errorf("age score: got %v, want %v", edge.Components.Age, tt.want)
			}
			if edge.Details.AgeCompatible != tt.wantCompat {
				t.Errorf("age compatible: got %v, want %v", edge.Details.AgeCompatible, tt.wantCompat)
			}
		})
	}
}

func TestLocationBuckets(t *testing.T) {
	s := newTestScorer(t, LocationAware())

	london := &models.Coordinate{Lat: 51.5074, Lon: -0.1278}
	// Roughly 30 km north of London.
	near := &models.Coordinate{Lat: 51.7772, Lon: -0.1278}

	a := entity("a")
	a.Location = london
	b := entity("b")
	b.Location = near

	edge := s.Score(a, b)
	if edge.Details.DistanceKm == nil {
		t.Fatal("expected a distance")
	}
	if d := *edge.Details.DistanceKm; d < 25 || d >= 50 {
		t.Fatalf("fixture distance %v km outside [25, 50)", d)
	}
	if edge.Components.Location != 20 {
		t.Errorf("intolerant source at 30 km: got %v, want 20", edge.Components.Location)
	}

	a.OKNotLocal = true
	edge = s.Score(a, b)
	if edge.Components.Location != 25 {
		t.Errorf("tolerant source at 30 km: got %v, want 25", edge.Components.Location)
	}

	b.Location = nil
	edge = s.Score(a, b)
	if edge.Components.Location != 25 {
		t.Errorf("missing coordinate: got %v, want full weight 25", edge.Components.Location)
	}
	if edge.Details.DistanceKm != nil {
		t.Errorf("missing coordinate: distance should be undefined, got %v", *edge.Details.DistanceKm)
	}
}

func TestScoreIsAsymmetric(t *testing.T) {
	s := newTestScorer(t, LocationAware())

	a := entity("a")
	a.ConsidersAge = true
	a.Age = age(30)
	a.AgeLimit = age(10)
	a.Location = &models.Coordinate{Lat: 51.5074, Lon: -0.1278}
	b := entity("b")
	b.Age = age(45)
	b.OKNotLocal = true
	b.Location = &models.Coordinate{Lat: 51.7772, Lon: -0.1278}

	ab := s.Score(a, b)
	ba := s.Score(b, a)
	if approx(ab.Score, ba.Score) {
		t.Fatalf("expected asymmetric scores, both %v", ab.Score)
	}
	if ab.SourceID != "a" || ab.TargetID != "b" || ba.SourceID != "b" {
		t.Errorf("edge direction mixed up: %+v / %+v", ab, ba)
	}
}

func TestScoreBounds(t *testing.T) {
	for _, name := range []string{PresetLocation, PresetLite} {
		w, err := Preset(name)
		if err != nil {
			t.Fatalf("Preset(%q): %v", name, err)
		}
		s := newTestScorer(t, w)

		a := entity("a")
		a.Genres = []string{"rock"}
		a.Roles = []string{"drummer"}
		a.ConsidersAge = true
		a.Age = age(20)
		a.AgeLimit = age(1)
		a.Location = &models.Coordinate{Lat: 0, Lon: 0}
		b := entity("b")
		b.Genres = []string{"rock"}
		b.Roles = []string{"drummer"}
		b.Age = age(90)
		b.Location = &models.Coordinate{Lat: 0, Lon: 180}

		for _, pair := range [][2]*models.EntityRecord{{a, b}, {b, a}, {a, a}} {
			edge := s.Score(pair[0], pair[1])
			c := edge.Components
			checks := map[string][2]float64{
				"genre":    {c.Genre, w.Genre},
				"role":     {c.Role, w.Role},
				"age":      {c.Age, w.Age},
				"location": {c.Location, w.Location},
				"total":    {edge.Score, w.Total()},
			}
			for label, v := range checks {
				if v[0] < 0 || v[0] > v[1]+1e-9 {
					t.Errorf("%s/%s: %v outside [0, %v]", name, label, v[0], v[1])
				}
			}
		}
	}
}

func TestLiteSchemeIgnoresLocation(t *testing.T) {
	s := newTestScorer(t, Lite())

	a := entity("a")
	a.Location = &models.Coordinate{Lat: 0, Lon: 0}
	b := entity("b")
	b.Location = &models.Coordinate{Lat: 0, Lon: 180}

	edge := s.Score(a, b)
	if edge.Components.Location != 0 {
		t.Errorf("lite location score: got %v, want 0", edge.Components.Location)
	}
	if edge.Details.DistanceKm == nil {
		t.Error("distance should still be reported for display")
	}
	if !approx(edge.Score, 20) {
		t.Errorf("lite total for disjoint sets: got %v, want 20 (age only)", edge.Score)
	}
}

func TestNewScorerRejectsInvalidWeights(t *testing.T) {
	bad := LocationAware()
	bad.Genre = -1
	if _, err := NewScorer(bad); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("negative weight: got %v, want ErrInvalidWeights", err)
	}

	bad = LocationAware()
	bad.Tolerant[0].Score = 40
	if _, err := NewScorer(bad); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("bucket above location weight: got %v, want ErrInvalidWeights", err)
	}

	bad = LocationAware()
	bad.Intolerant = bad.Intolerant[:2]
	if _, err := NewScorer(bad); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("bounded last bucket: got %v, want ErrInvalidWeights", err)
	}

	if _, err := Preset("nearby"); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("unknown preset: got %v, want ErrInvalidWeights", err)
	}
}

func TestPresetsAreNotAliased(t *testing.T) {
	w := LocationAware()
	s := newTestScorer(t, w)
	w.Tolerant[0].Score = 0

	a := entity("a")
	a.OKNotLocal = true
	a.Location = &models.Coordinate{Lat: 10, Lon: 10}
	b := entity("b")
	b.Location = &models.Coordinate{Lat: 10, Lon: 10}

	if got := s.Score(a, b).Components.Location; got != 25 {
		t.Errorf("scorer picked up caller mutation: got %v, want 25", got)
	}
}
