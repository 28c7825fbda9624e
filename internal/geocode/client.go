// Package geocode resolves settlement centers to human-readable addresses
// through a Nominatim-compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mr1hm/go-settlements/internal/metrics"
	"github.com/mr1hm/go-settlements/internal/models"
)

const (
	DefaultBaseURL     = "https://nominatim.openstreetmap.org"
	DefaultUserAgent   = "go-settlements/1.0"
	DefaultLanguages   = "uk,ru,en"
	DefaultMinInterval = time.Second
	DefaultTimeout     = 10 * time.Second

	maxResponseBytes = 1 << 20
)

type Client struct {
	cache       *Cache
	http        *http.Client
	baseURL     string
	userAgent   string
	languages   string
	minInterval time.Duration
	limiter     *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLanguages(langs string) Option {
	return func(c *Client) { c.languages = langs }
}

// WithMinInterval sets the minimum spacing between upstream requests.
// Zero or negative disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.minInterval = d }
}

func NewClient(cache *Cache, opts ...Option) *Client {
	c := &Client{
		cache:       cache,
		http:        &http.Client{Timeout: DefaultTimeout},
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		languages:   DefaultLanguages,
		minInterval: DefaultMinInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.minInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(c.minInterval), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return c
}

func (c *Client) Cache() *Cache {
	return c.cache
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// ReverseGeocode returns the address for a coordinate, or nil when none is
// available. Not-found and upstream failures are indistinguishable to the
// caller and both are memoized.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) *models.GeocodeResult {
	key := Key(lat, lng)
	if res, ok := c.cache.Get(key); ok {
		return res
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	res, err := c.fetch(ctx, lat, lng)
	if err != nil {
		if ctx.Err() != nil {
			// shutting down; this is not an answer worth remembering
			return nil
		}
		slog.Warn("reverse geocode failed", "key", key, "error", err)
		metrics.GeocodeFailTotal.Inc()
		c.cache.Set(key, nil)
		return nil
	}

	c.cache.Set(key, res)
	return res
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (*models.GeocodeResult, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	if c.languages != "" {
		q.Set("accept-language", c.languages)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()
	metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading resp.Body: %w", err)
	}

	var data nominatimResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}
	if data.DisplayName == "" {
		return nil, fmt.Errorf("no display_name in response: %s", data.Error)
	}

	slog.Debug("reverse geocode resolved", "lat", lat, "lng", lng, "duration_ms", time.Since(t0).Milliseconds())
	return &models.GeocodeResult{
		DisplayName: data.DisplayName,
		Address:     data.Address,
		Raw:         json.RawMessage(body),
	}, nil
}
