package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidWeights is returned when a weight set cannot be used for scoring.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Preset names.
const (
	PresetLocation = "location"
	PresetLite     = "lite"
)

// DistanceBucket awards Score points when the distance is strictly below MaxKm.
// The last bucket of a table uses MaxKm = +Inf as the catch-all.
type DistanceBucket struct {
	MaxKm float64
	Score float64
}

// Weights is the immutable configuration of the metadata scorer. A zero Location
// weight disables location scoring entirely.
type Weights struct {
	Genre    float64
	Role     float64
	Age      float64
	Location float64

	// AgeDecay is the number of points lost per year beyond the source's age limit.
	AgeDecay float64

	// Tolerant applies to sources that are fine with non-local collaborators,
	// Intolerant to everybody else. Buckets must be sorted by MaxKm.
	Tolerant   []DistanceBucket
	Intolerant []DistanceBucket
}

// LocationAware is the canonical scheme: genre 30, role 30, age 15, location 25.
func LocationAware() Weights {
	return Weights{
		Genre:    30,
		Role:     30,
		Age:      15,
		Location: 25,
		AgeDecay: 1.5,
		Tolerant: []DistanceBucket{
			{MaxKm: 50, Score: 25},
			{MaxKm: 200, Score: 22},
			{MaxKm: 500, Score: 20},
			{MaxKm: math.Inf(1), Score: 15},
		},
		Intolerant: []DistanceBucket{
			{MaxKm: 25, Score: 25},
			{MaxKm: 50, Score: 20},
			{MaxKm: 100, Score: 15},
			{MaxKm: 200, Score: 10},
			{MaxKm: math.Inf(1), Score: 5},
		},
	}
}

// Lite is the scheme without location: genre 40, role 40, age 20.
func Lite() Weights {
	return Weights{
		Genre:    40,
		Role:     40,
		Age:      20,
		AgeDecay: 2,
	}
}

// Preset returns the named weight scheme.
func Preset(name string) (Weights, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetLocation:
		return LocationAware(), nil
	case PresetLite:
		return Lite(), nil
	default:
		return Weights{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidWeights, name)
	}
}

// Total is the maximum reachable pairwise score.
func (w Weights) Total() float64 {
	return w.Genre + w.Role + w.Age + w.Location
}

// NeutralAge is the age score used when ages are present but unparseable.
func (w Weights) NeutralAge() float64 {
	return w.Age / 2
}

// Clone returns a deep copy so callers can tweak buckets without aliasing a preset.
func (w Weights) Clone() Weights {
	out := w
	out.Tolerant = append([]DistanceBucket(nil), w.Tolerant...)
	out.Intolerant = append([]DistanceBucket(nil), w.Intolerant...)
	return out
}

// Validate checks that every weight is usable and that the bucket tables stay within
// the location weight.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"genre": w.Genre, "role": w.Role, "age": w.Age, "location": w.Location, "age_decay": w.AgeDecay,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight must be a finite non-negative number, got %v", ErrInvalidWeights, name, v)
		}
	}
	if w.Total() <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	if w.Location == 0 {
		return nil
	}
	if err := validateBuckets("tolerant", w.Tolerant, w.Location); err != nil {
		return err
	}
	return validateBuckets("intolerant", w.Intolerant, w.Location)
}

func validateBuckets(name string, buckets []DistanceBucket, max float64) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: %s distance buckets are empty", ErrInvalidWeights, name)
	}
	if !sort.SliceIsSorted(buckets, func(i, j int) bool { return buckets[i].MaxKm < buckets[j].MaxKm }) {
		return fmt.Errorf("%w: %s distance buckets must be sorted by max_km", ErrInvalidWeights, name)
	}
	if !math.IsInf(buckets[len(buckets)-1].MaxKm, 1) {
		return fmt.Errorf("%w: last %s distance bucket must be unbounded", ErrInvalidWeights, name)
	}
	for _, b := range buckets {
		if b.Score < 0 || b.Score > max {
			return fmt.Errorf("%w: %s bucket score %v outside [0, %v]", ErrInvalidWeights, name, b.Score, max)
		}
	}
	return nil
}
