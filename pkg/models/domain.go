package models

import "strings"

// FieldState records what the input boundary found in an optional numeric column.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldValid
	FieldMalformed
)

// IntField is an optional integer column. Value is meaningful only when State is FieldValid.
type IntField struct {
	Value int
	State FieldState
}

// Valid reports whether the column held a parseable integer.
func (f IntField) Valid() bool { return f.State == FieldValid }

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// NoAgeLimit is the age_limit value meaning "any age gap is fine".
const NoAgeLimit = 999

// EntityRecord is one musician as handed over by the acquisition pipeline.
// Records are read-only for the duration of a run.
type EntityRecord struct {
	ID        string
	FirstName string
	LastName  string

	Genres           []string // set, first-occurrence order
	Roles            []string // set, first-occurrence order
	SkillProficiency []string
	SkillEngagement  []string
	WeeklyTime       string

	Age          IntField
	ConsidersAge bool
	AgeLimit     IntField
	OKNotLocal   bool

	LocationText string
	Location     *Coordinate // nil when geocoding failed

	AudioFeatureRef string
	AudioFeatures   []float64 // nil when no clip was processed
}

// Name is the display name: first and last name joined, or the group name alone.
func (e *EntityRecord) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// HasAudio reports whether the entity takes part in audio matching.
func (e *EntityRecord) HasAudio() bool { return len(e.AudioFeatures) > 0 }
