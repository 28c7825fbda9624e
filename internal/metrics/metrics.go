package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_geocode_requests_total",
		Help: "Total reverse geocode requests sent to the upstream service",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_geocode_fail_total",
		Help: "Total reverse geocode requests that produced no result",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlements_geocode_duration_ms",
		Help:    "Reverse geocode call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_geocode_cache_hits_total",
		Help: "Total geocode cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_geocode_cache_misses_total",
		Help: "Total geocode cache misses",
	})
	SettlementsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "settlements_loaded",
		Help: "Number of settlements in the current collection",
	})
	RecordsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_records_skipped_total",
		Help: "Total source records dropped during load",
	})
	EnrichmentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_enrichment_total",
		Help: "Settlements resolved by the enrichment scheduler, by outcome",
	}, []string{"outcome"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_api_rate_limited_total",
		Help: "Total API requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(SettlementsLoaded)
	prometheus.MustRegister(RecordsSkippedTotal)
	prometheus.MustRegister(EnrichmentTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
