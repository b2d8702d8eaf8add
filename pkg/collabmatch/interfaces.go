package collabmatch

import (
	"context"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

type Service interface {
	LoadEntities(path string) ([]models.EntityRecord, error)
	AttachFeatures(entities []models.EntityRecord) (int, error)
	RankMetadata(ctx context.Context, entities []models.EntityRecord) ([]models.RankedMatchList, error)
	RankAudio(ctx context.Context, entities []models.EntityRecord) ([]models.RankedMatchList, error)
	Consolidate(metadata, audio []models.RankedMatchList) []models.RankedMatchList
	ConsolidateFiles(metadataCSV, audioCSV string) ([]models.RankedMatchList, error)
	Run(ctx context.Context, entitiesPath string) (*Result, error)
	ExtractFeatures(ctx context.Context, entities []models.EntityRecord) (*ExtractReport, error)
	ListFeatures() ([]models.FeatureInfo, error)
	DeleteFeatures(userID string) error
	Close() error
}

type Storage interface {
	SaveFeatures(batchID string, records []FeatureRecord) error
	LoadFeatures() (map[string][]float64, error)
	ListFeatures() ([]models.FeatureInfo, error)
	DeleteFeatures(userID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
