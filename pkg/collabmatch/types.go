package collabmatch

import "github.com/himanishpuri/CollabMatch/pkg/models"

// FeatureRecord is an extracted vector on its way into the feature store.
type FeatureRecord struct {
	UserID   string
	ClipPath string
	Vector   []float64
}

// ExtractReport summarises one extraction batch.
type ExtractReport struct {
	BatchID   string
	Extracted int // vectors saved
	Missing   int // entities without a clip on disk
	Failed    int // clips that could not be decoded or analysed
}

// Result holds every table produced by one run. It is not modified after Run returns.
type Result struct {
	RunID    string
	Entities []models.EntityRecord
	Metadata []models.RankedMatchList
	Audio    []models.RankedMatchList
	Final    []models.RankedMatchList
}

// List returns the list of the given kind for userID.
func (r *Result) List(kind models.ListKind, userID string) (*models.RankedMatchList, bool) {
	var lists []models.RankedMatchList
	switch kind {
	case models.KindMetadata:
		lists = r.Metadata
	case models.KindAudio:
		lists = r.Audio
	case models.KindConsolidated:
		lists = r.Final
	}
	for i := range lists {
		if lists[i].SourceID == userID {
			return &lists[i], true
		}
	}
	return nil, false
}
