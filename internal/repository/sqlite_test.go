package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/mr1hm/go-settlements/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteSource {
	db, err := NewSQLiteSource(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteSource_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	records, err := DecodeRecords(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("DecodeRecords failed: %v", err)
	}
	if err := db.Import(ctx, records); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := db.Records(ctx)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].ID != "1" || got[0].Name != "Alpha" || len(got[0].Polygon) != 4 {
		t.Errorf("unexpected first record: %+v", got[0])
	}

	repo := New(nil)
	report, err := repo.Load(ctx, db)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if report.Loaded != 2 {
		t.Errorf("expected 2 loaded, got %d", report.Loaded)
	}
}

func TestSQLiteSource_NullPolygon(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	err := db.Import(ctx, []models.RawRecord{{ID: "n", Name: "No polygon"}})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := db.Records(ctx)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(got) != 1 || got[0].HasPolygon {
		t.Errorf("expected one record without polygon, got %+v", got)
	}
}

func TestSQLiteSource_Name(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if db.Name() != "sqlite::memory:" {
		t.Errorf("unexpected name %q", db.Name())
	}
}
