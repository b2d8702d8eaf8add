package models

// DefaultTopK is the number of matches kept per entity.
const DefaultTopK = 10

// ListKind identifies which stage produced a ranked list.
type ListKind string

const (
	KindMetadata     ListKind = "metadata"
	KindAudio        ListKind = "audio"
	KindConsolidated ListKind = "consolidated"
)

// ComponentScores holds the per-signal sub-scores of an edge.
//
// For metadata edges each value is on its component's weighted scale (genre 0..30 etc.).
// For audio edges only Audio is set, holding the raw cosine similarity.
// For consolidated edges every value is the normalized fraction in [0,1].
type ComponentScores struct {
	Genre    float64
	Role     float64
	Age      float64
	Location float64
	Audio    float64
}

// MatchDetails explains a metadata edge.
type MatchDetails struct {
	GenreMatches  []string
	RoleMatches   []string
	AgeCompatible bool
	DistanceKm    *float64 // nil when either side has no coordinate
}

// MatchEdge is a directed match from SourceID to TargetID. Edges are asymmetric:
// the source's age and locality preferences shape the score.
type MatchEdge struct {
	SourceID       string
	TargetID       string
	TargetName     string
	TargetLocation string
	Components     ComponentScores
	Details        MatchDetails
	Score          float64
}

// RankedMatchList is the ordered top-K of one source entity. Rank of Edges[i] is i+1.
type RankedMatchList struct {
	Kind       ListKind
	SourceID   string
	SourceName string
	Edges      []MatchEdge
}
