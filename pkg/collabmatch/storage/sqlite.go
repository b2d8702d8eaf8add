package storage

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

const DefaultDBFile = "collabmatch.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no vector is stored for a user.
var ErrNotFound = errors.New("feature vector not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// FeatureVector is one user's audio feature vector. Data holds Dims little-endian float64s.
type FeatureVector struct {
	UserID    string `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Dims      int    `json:"dims"`
	Data      []byte `json:"-"`
	ClipPath  string `json:"clip_path"`
	BatchID   string `gorm:"type:varchar(36);index:idx_batch" json:"batch_id"`
	CreatedAt time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("COLLAB_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&FeatureVector{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// EncodeVector packs v as little-endian float64s.
func EncodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// DecodeVector unpacks a blob written by EncodeVector.
func DecodeVector(b []byte, dims int) ([]float64, error) {
	if len(b) != dims*8 {
		return nil, fmt.Errorf("vector blob has %d bytes, want %d for %d dims", len(b), dims*8, dims)
	}
	v := make([]float64, dims)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}

// SaveFeatures inserts or replaces the vectors of the given users in one transaction.
func (c *DBClient) SaveFeatures(rows []FeatureVector) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dims", "data", "clip_path", "batch_id", "created_at"}),
	}).CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("upserting feature vectors: %w", err)
	}
	return nil
}

// LoadFeatures returns every stored vector keyed by user id.
func (c *DBClient) LoadFeatures() (map[string][]float64, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []FeatureVector
	if err := c.DB.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying feature vectors: %w", err)
	}
	out := make(map[string][]float64, len(rows))
	for _, r := range rows {
		v, err := DecodeVector(r.Data, r.Dims)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", r.UserID, err)
		}
		out[r.UserID] = v
	}
	return out, nil
}

// ListFeatures describes the stored vectors without loading their payload.
func (c *DBClient) ListFeatures() ([]models.FeatureInfo, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []FeatureVector
	err := c.DB.Select("user_id", "dims", "clip_path", "batch_id", "created_at").
		Order("user_id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing feature vectors: %w", err)
	}
	out := make([]models.FeatureInfo, len(rows))
	for i, r := range rows {
		out[i] = models.FeatureInfo{
			UserID:    r.UserID,
			Dims:      r.Dims,
			ClipPath:  r.ClipPath,
			BatchID:   r.BatchID,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

// DeleteFeatures removes one user's vector. Deleting a missing user is ErrNotFound.
func (c *DBClient) DeleteFeatures(userID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("user_id = ?", userID).Delete(&FeatureVector{})
	if res.Error != nil {
		return fmt.Errorf("deleting feature vector: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return nil
}
