package collabmatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

type memoryStorage struct {
	mu   sync.Mutex
	rows map[string]models.FeatureInfo
	vecs map[string][]float64
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{rows: map[string]models.FeatureInfo{}, vecs: map[string][]float64{}}
}

func (m *memoryStorage) SaveFeatures(batchID string, records []FeatureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.rows[r.UserID] = models.FeatureInfo{UserID: r.UserID, Dims: len(r.Vector), ClipPath: r.ClipPath, BatchID: batchID}
		m.vecs[r.UserID] = r.Vector
	}
	return nil
}

func (m *memoryStorage) LoadFeatures() (map[string][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]float64, len(m.vecs))
	for k, v := range m.vecs {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStorage) ListFeatures() ([]models.FeatureInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FeatureInfo, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryStorage) DeleteFeatures(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[userID]; !ok {
		return fmt.Errorf("no vector for %s", userID)
	}
	delete(m.rows, userID)
	delete(m.vecs, userID)
	return nil
}

func (m *memoryStorage) Close() error { return nil }
