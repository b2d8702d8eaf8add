package models

import "time"

// FeatureInfo describes a stored audio feature vector without its payload.
type FeatureInfo struct {
	UserID    string
	Dims      int
	ClipPath  string
	BatchID   string
	CreatedAt time.Time
}
