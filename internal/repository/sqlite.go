package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mr1hm/go-settlements/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteSource reads settlement records from a local SQLite table. Polygons
// are stored as JSON text in the same shape as the file source.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

func NewSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteSource{
		db:   db,
		path: path,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteSource) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS settlements (
			id TEXT,
			name TEXT,
			polygon TEXT
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSource) Name() string { return "sqlite:" + s.path }

// Records returns every row in insertion order. A NULL or unparsable polygon
// column yields a record without a polygon.
func (s *SQLiteSource) Records(ctx context.Context) ([]models.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, polygon FROM settlements ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("error querying settlements: %w", err)
	}
	defer rows.Close()

	var records []models.RawRecord
	for rows.Next() {
		var id, name, polygon sql.NullString
		if err := rows.Scan(&id, &name, &polygon); err != nil {
			return nil, fmt.Errorf("error scanning settlement: %w", err)
		}

		rec := models.RawRecord{ID: id.String, Name: name.String}
		if polygon.Valid {
			rec.Polygon, rec.HasPolygon = decodePolygon([]byte(polygon.String))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading settlements: %w", err)
	}

	return records, nil
}

// Import appends records to the table in a single transaction.
func (s *SQLiteSource) Import(ctx context.Context, records []models.RawRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO settlements (id, name, polygon) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var polygon sql.NullString
		if rec.HasPolygon {
			b, err := json.Marshal(rec.Polygon)
			if err != nil {
				return fmt.Errorf("error encoding polygon for %q: %w", rec.ID, err)
			}
			polygon = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Name, polygon); err != nil {
			return fmt.Errorf("error inserting %q: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
