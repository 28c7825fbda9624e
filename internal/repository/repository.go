package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mr1hm/go-settlements/internal/geometry"
	"github.com/mr1hm/go-settlements/internal/metrics"
	"github.com/mr1hm/go-settlements/internal/models"
)

// LoadReport summarizes one Load call. Skipped lists every record that did
// not make it into the collection, with the reason.
type LoadReport struct {
	Source  string
	Total   int
	Loaded  int
	Skipped []models.Outcome
}

// Repository holds the loaded settlements in source order. It is safe for
// concurrent use; callers always receive copies.
type Repository struct {
	mu     sync.RWMutex
	items  []*models.Settlement
	byID   map[string]*models.Settlement
	epoch  uint64
	colors *geometry.ColorAssigner
}

func New(colors *geometry.ColorAssigner) *Repository {
	if colors == nil {
		colors = geometry.NewColorAssigner()
	}
	return &Repository{
		byID:   make(map[string]*models.Settlement),
		colors: colors,
	}
}

// Load replaces the collection with the records from src. Invalid records are
// skipped and reported. If the source itself fails the collection is left
// empty and the error is returned.
func (r *Repository) Load(ctx context.Context, src Source) (LoadReport, error) {
	report := LoadReport{Source: src.Name()}

	r.mu.Lock()
	r.items = nil
	r.byID = make(map[string]*models.Settlement)
	r.epoch++
	r.mu.Unlock()
	metrics.SettlementsLoaded.Set(0)

	records, err := src.Records(ctx)
	if err != nil {
		return report, fmt.Errorf("error loading %s: %w", src.Name(), err)
	}
	report.Total = len(records)

	r.colors.Reset()
	items := make([]*models.Settlement, 0, len(records))
	byID := make(map[string]*models.Settlement, len(records))
	for _, rec := range records {
		s, reason := r.build(rec)
		if s == nil {
			report.Skipped = append(report.Skipped, models.Skipped(rec.ID, reason))
			continue
		}
		if _, dup := byID[s.ID]; dup {
			report.Skipped = append(report.Skipped, models.Skipped(rec.ID, "duplicate id"))
			continue
		}
		items = append(items, s)
		byID[s.ID] = s
	}
	report.Loaded = len(items)

	for _, o := range report.Skipped {
		slog.Warn("skipping record", "id", o.ID, "reason", o.Reason)
	}
	metrics.RecordsSkippedTotal.Add(float64(len(report.Skipped)))
	metrics.SettlementsLoaded.Set(float64(len(items)))

	r.mu.Lock()
	r.items = items
	r.byID = byID
	r.mu.Unlock()

	return report, nil
}

func (r *Repository) build(rec models.RawRecord) (*models.Settlement, string) {
	switch {
	case rec.ID == "":
		return nil, "missing id"
	case rec.Name == "":
		return nil, "missing name"
	case !rec.HasPolygon:
		return nil, "missing polygon"
	}

	polygon, err := geometry.ValidateAndFix(rec.Polygon)
	if err != nil {
		return nil, err.Error()
	}

	s := &models.Settlement{
		ID:      rec.ID,
		Name:    rec.Name,
		Polygon: polygon,
		Center:  geometry.Centroid(polygon),
		Color:   r.colors.Next(),
	}
	s.ResetEnrichment()
	return s, ""
}

func (r *Repository) All() []models.Settlement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Settlement, len(r.items))
	for i, s := range r.items {
		out[i] = *s
	}
	return out
}

func (r *Repository) Get(id string) (models.Settlement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return models.Settlement{}, false
	}
	return *s, true
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Claim moves every pending settlement among ids to loading and returns them
// in the order given, together with the current epoch. Unknown ids and
// entries that are already loading or resolved are left alone.
func (r *Repository) Claim(ids []string) ([]models.Settlement, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claimed []models.Settlement
	for _, id := range ids {
		s, ok := r.byID[id]
		if !ok || s.State != models.StatePending {
			continue
		}
		s.State = models.StateLoading
		claimed = append(claimed, *s)
	}
	return claimed, r.epoch
}

// Resolve applies res to a claimed settlement. It reports false when the
// claim is stale: the collection was reloaded or enrichment was cleared
// after epoch was handed out.
func (r *Repository) Resolve(id string, epoch uint64, res *models.GeocodeResult) (models.Settlement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return models.Settlement{}, false
	}
	s, ok := r.byID[id]
	if !ok || s.State != models.StateLoading {
		return models.Settlement{}, false
	}
	s.Apply(res)
	return *s, true
}

// Current reports whether claims handed out under epoch are still valid.
func (r *Repository) Current(epoch uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return epoch == r.epoch
}

// Release returns claimed settlements that were never processed to pending.
func (r *Repository) Release(ids []string, epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return
	}
	for _, id := range ids {
		if s, ok := r.byID[id]; ok && s.State == models.StateLoading {
			s.State = models.StatePending
		}
	}
}

// ClearEnrichment returns every settlement to pending with its source name
// and invalidates outstanding claims.
func (r *Repository) ClearEnrichment() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.epoch++
	for _, s := range r.items {
		s.ResetEnrichment()
	}
}
