// Package enrichment resolves display names for settlements in the
// background, one geocode request at a time.
package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-settlements/internal/events"
	"github.com/mr1hm/go-settlements/internal/metrics"
	"github.com/mr1hm/go-settlements/internal/models"
	"github.com/mr1hm/go-settlements/internal/worker"
)

const (
	DefaultInterval   = 100 * time.Millisecond
	DefaultBufferSize = 16
)

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) *models.GeocodeResult
}

// Store is the part of the settlement repository the scheduler writes to.
type Store interface {
	Get(id string) (models.Settlement, bool)
	Claim(ids []string) ([]models.Settlement, uint64)
	Resolve(id string, epoch uint64, res *models.GeocodeResult) (models.Settlement, bool)
	Release(ids []string, epoch uint64)
	Current(epoch uint64) bool
	ClearEnrichment()
}

// Clearer is implemented by geocode caches.
type Clearer interface {
	Clear()
}

type DelayFunc func(ctx context.Context, d time.Duration) error

type Report struct {
	Outcomes []models.Outcome
}

// Count returns how many outcomes have kind k.
func (r Report) Count(k models.OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

type run struct {
	settlements []models.Settlement
	epoch       uint64
	report      chan Report
}

type Scheduler struct {
	store       Store
	geocoder    Geocoder
	cache       Clearer
	broadcaster *events.Broadcaster
	interval    time.Duration
	delay       DelayFunc
	bufferSize  int

	runMu sync.Mutex
	pool  *worker.WorkerPool[run]
}

type Option func(*Scheduler)

// WithInterval sets the pause between two geocode lookups of the same run.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithDelay replaces the function used to pause between lookups.
func WithDelay(fn DelayFunc) Option {
	return func(s *Scheduler) { s.delay = fn }
}

func WithBroadcaster(b *events.Broadcaster) Option {
	return func(s *Scheduler) { s.broadcaster = b }
}

func WithBufferSize(n int) Option {
	return func(s *Scheduler) { s.bufferSize = n }
}

// WithCache lets Reset clear the geocode cache along with the settlements.
func WithCache(c Clearer) Option {
	return func(s *Scheduler) { s.cache = c }
}

func New(store Store, geocoder Geocoder, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      store,
		geocoder:   geocoder,
		interval:   DefaultInterval,
		delay:      sleep,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	s.pool = worker.NewWorkerPool(1, s.bufferSize, func(ctx context.Context, r run) error {
		r.report <- s.process(ctx, r)
		close(r.report)
		return nil
	})
	s.pool.OnDrop(s.drop)
	s.pool.Start(ctx)
	slog.Info("enrichment scheduler started", "interval", s.interval)
}

func (s *Scheduler) Stop() {
	if s.pool != nil {
		s.pool.Stop()
	}
	slog.Info("enrichment scheduler stopped")
}

// Trigger claims the pending settlements among ids and queues them for
// enrichment. Claiming happens before Trigger returns, so a second call with
// the same ids finds nothing to do. Trigger never blocks: when the queue is
// full the claims are released and the report lists them as skipped. The
// returned channel yields one Report once the run has finished.
func (s *Scheduler) Trigger(ctx context.Context, ids []string) <-chan Report {
	out := make(chan Report, 1)
	if ctx.Err() != nil {
		out <- Report{}
		close(out)
		return out
	}

	claimed, epoch := s.store.Claim(ids)
	if len(claimed) == 0 {
		out <- Report{}
		close(out)
		return out
	}

	r := run{settlements: claimed, epoch: epoch, report: out}
	if s.pool == nil || !s.pool.TrySubmit(r) {
		slog.Warn("enrichment queue full, releasing claims", "count", len(claimed))
		s.drop(r)
	}
	return out
}

// Run enriches the pending settlements among ids in the calling goroutine.
func (s *Scheduler) Run(ctx context.Context, ids []string) Report {
	claimed, epoch := s.store.Claim(ids)
	if len(claimed) == 0 {
		return Report{}
	}
	return s.process(ctx, run{settlements: claimed, epoch: epoch})
}

// Select returns the settlement with id, enriching it first if it is still
// pending. A settlement already queued by another run is returned as is.
func (s *Scheduler) Select(ctx context.Context, id string) (models.Settlement, bool) {
	st, ok := s.store.Get(id)
	if !ok {
		return models.Settlement{}, false
	}
	if st.State != models.StatePending {
		return st, true
	}

	select {
	case <-s.Trigger(ctx, []string{id}):
	case <-ctx.Done():
	}
	return s.store.Get(id)
}

// Reset clears the geocode cache and returns every settlement to pending.
// Runs still in flight finish, but their results are discarded.
func (s *Scheduler) Reset() {
	if s.cache != nil {
		s.cache.Clear()
	}
	s.store.ClearEnrichment()
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(events.Event{Kind: events.KindReset})
	}
	slog.Info("enrichment reset")
}

func (s *Scheduler) process(ctx context.Context, r run) Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var rep Report
	for i, st := range r.settlements {
		if i > 0 {
			if err := s.delay(ctx, s.interval); err != nil {
				rep.Outcomes = append(rep.Outcomes, s.release(r, i)...)
				break
			}
		}

		// claims from before a reset are void
		if !s.store.Current(r.epoch) {
			rep.Outcomes = append(rep.Outcomes, stale(r, i)...)
			break
		}

		res := s.geocoder.ReverseGeocode(ctx, st.Center.Lat, st.Center.Lng)
		if ctx.Err() != nil {
			rep.Outcomes = append(rep.Outcomes, s.release(r, i)...)
			break
		}

		updated, ok := s.store.Resolve(st.ID, r.epoch, res)
		var o models.Outcome
		switch {
		case !ok:
			o = models.Skipped(st.ID, staleReason)
		case res == nil:
			o = models.Failed(st.ID, "no geocode result")
		default:
			o = models.OK(st.ID)
		}
		if ok && s.broadcaster != nil {
			s.broadcaster.Resolved(updated)
		}
		metrics.EnrichmentTotal.WithLabelValues(o.Kind.String()).Inc()
		rep.Outcomes = append(rep.Outcomes, o)
	}

	slog.Debug("enrichment run complete",
		"count", len(r.settlements),
		"ok", rep.Count(models.OutcomeOK),
		"failed", rep.Count(models.OutcomeFailed))
	return rep
}

const staleReason = "stale claim"

// stale reports r.settlements[from:] as skipped. Their claims were already
// voided by a reset, so there is nothing to release.
func stale(r run, from int) []models.Outcome {
	rest := r.settlements[from:]
	outcomes := make([]models.Outcome, len(rest))
	for i, st := range rest {
		outcomes[i] = models.Skipped(st.ID, staleReason)
		metrics.EnrichmentTotal.WithLabelValues(models.OutcomeSkipped.String()).Inc()
	}
	return outcomes
}

// release hands r.settlements[from:] back to pending.
func (s *Scheduler) release(r run, from int) []models.Outcome {
	rest := r.settlements[from:]
	ids := make([]string, len(rest))
	outcomes := make([]models.Outcome, len(rest))
	for i, st := range rest {
		ids[i] = st.ID
		outcomes[i] = models.Skipped(st.ID, "cancelled")
	}
	s.store.Release(ids, r.epoch)
	return outcomes
}

func (s *Scheduler) drop(r run) {
	rep := Report{Outcomes: s.release(r, 0)}
	if r.report != nil {
		r.report <- rep
		close(r.report)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
