package collabmatch

import (
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/storage"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite feature store.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveFeatures(batchID string, records []FeatureRecord) error {
	rows := make([]storage.FeatureVector, len(records))
	for i, r := range records {
		rows[i] = storage.FeatureVector{
			UserID:   r.UserID,
			Dims:     len(r.Vector),
			Data:     storage.EncodeVector(r.Vector),
			ClipPath: r.ClipPath,
			BatchID:  batchID,
		}
	}
	return s.db.SaveFeatures(rows)
}

func (s *storageAdapter) LoadFeatures() (map[string][]float64, error) {
	return s.db.LoadFeatures()
}

func (s *storageAdapter) ListFeatures() ([]models.FeatureInfo, error) {
	return s.db.ListFeatures()
}

func (s *storageAdapter) DeleteFeatures(userID string) error {
	return s.db.DeleteFeatures(userID)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
