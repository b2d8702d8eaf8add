package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_collab.sqlite3")
	t.Setenv("COLLAB_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
	if !client.DB.Migrator().HasTable(&FeatureVector{}) {
		t.Error("feature_vectors table was not created")
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float64{0, -1.5, 3.14159, 1e-300}
	out, err := DecodeVector(EncodeVector(in), len(in))
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
	if _, err := DecodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestSaveLoadFeatures(t *testing.T) {
	client, _ := setupTestDB(t)

	rows := []FeatureVector{
		{UserID: "u1", Dims: 3, Data: EncodeVector([]float64{1, 2, 3}), ClipPath: "u1_clip.wav", BatchID: "b1"},
		{UserID: "u2", Dims: 3, Data: EncodeVector([]float64{4, 5, 6}), ClipPath: "u2_clip.wav", BatchID: "b1"},
	}
	if err := client.SaveFeatures(rows); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}

	// Saving again replaces the vector instead of failing on the primary key.
	replace := []FeatureVector{{UserID: "u1", Dims: 2, Data: EncodeVector([]float64{7, 8}), BatchID: "b2"}}
	if err := client.SaveFeatures(replace); err != nil {
		t.Fatalf("SaveFeatures (upsert): %v", err)
	}

	all, err := client.LoadFeatures()
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d vectors, want 2", len(all))
	}
	if v := all["u1"]; len(v) != 2 || v[0] != 7 {
		t.Errorf("u1 after upsert: got %v", v)
	}

	if v := all["u2"]; len(v) != 3 || v[2] != 6 {
		t.Errorf("u2: got %v", v)
	}

	infos, err := client.ListFeatures()
	if err != nil {
		t.Fatalf("ListFeatures: %v", err)
	}
	if len(infos) != 2 || infos[0].UserID != "u1" || infos[0].BatchID != "b2" || infos[1].Dims != 3 {
		t.Errorf("ListFeatures: got %+v", infos)
	}
}

func TestDeleteFeatures(t *testing.T) {
	client, _ := setupTestDB(t)

	if err := client.SaveFeatures([]FeatureVector{{UserID: "u1", Dims: 1, Data: EncodeVector([]float64{1})}}); err != nil {
		t.Fatal(err)
	}
	if err := client.DeleteFeatures("u1"); err != nil {
		t.Fatalf("DeleteFeatures: %v", err)
	}
	if err := client.DeleteFeatures("u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client: %v", err)
	}
	if _, err := c.LoadFeatures(); err == nil {
		t.Error("expected error from nil client")
	}
}
