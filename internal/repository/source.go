package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mr1hm/go-settlements/internal/config"
	"github.com/mr1hm/go-settlements/internal/models"
)

var ErrNotArray = errors.New("source document is not a JSON array")

// Source yields raw settlement records. An error means the whole source is
// unusable; malformed individual records are returned as-is and filtered by
// the repository.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]models.RawRecord, error)
}

type sourceRecord struct {
	ID      any             `json:"id"`
	Name    any             `json:"name"`
	Polygon json.RawMessage `json:"polygon"`
}

// DecodeRecords parses a JSON array of {id, name, polygon} records.
func DecodeRecords(r io.Reader) ([]models.RawRecord, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("error decoding records: %w", err)
	}
	if items == nil {
		return nil, ErrNotArray
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, decodeRecord(item))
	}
	return records, nil
}

func decodeRecord(item json.RawMessage) models.RawRecord {
	var sr sourceRecord
	if err := json.Unmarshal(item, &sr); err != nil {
		return models.RawRecord{}
	}

	rec := models.RawRecord{ID: formatID(sr.ID)}
	if name, ok := sr.Name.(string); ok {
		rec.Name = name
	}
	rec.Polygon, rec.HasPolygon = decodePolygon(sr.Polygon)
	return rec
}

func decodePolygon(raw []byte) ([]models.RawPoint, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var pts []models.RawPoint
	if err := json.Unmarshal(raw, &pts); err != nil {
		return nil, false
	}
	return pts, true
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// FileSource reads records from a JSON file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Records(ctx context.Context) ([]models.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", s.Path, err)
	}
	defer f.Close()

	return DecodeRecords(f)
}

// HTTPSource fetches the records document over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Name() string { return "http:" + s.URL }

func (s HTTPSource) Records(ctx context.Context) ([]models.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	return DecodeRecords(resp.Body)
}

// Open builds the source described by cfg. The returned close function
// releases any resources the source holds.
func Open(cfg config.SourceConfig) (Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.SourceFile:
		return FileSource{Path: cfg.Path}, noop, nil
	case config.SourceHTTP:
		return HTTPSource{URL: cfg.URL}, noop, nil
	case config.SourceSQLite:
		db, err := NewSQLiteSource(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind: %s", cfg.Kind)
	}
}
