package geocode

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mr1hm/go-settlements/internal/metrics"
	"github.com/mr1hm/go-settlements/internal/models"
)

const DefaultCacheSize = 10000

// Key quantizes a coordinate to 6 decimals (about 11cm). Points closer than
// that share a slot.
func Key(lat, lng float64) string {
	return fmt.Sprintf("nominatim_%.6f_%.6f", lat, lng)
}

// Cache memoizes reverse geocode results for the session. A stored nil is
// a known-empty result, distinct from a key that was never looked up.
type Cache struct {
	store *lru.Cache[string, *models.GeocodeResult]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	store, err := lru.New[string, *models.GeocodeResult](size)
	if err != nil {
		return nil, fmt.Errorf("error creating geocode cache: %w", err)
	}
	return &Cache{store: store}, nil
}

func (c *Cache) Get(key string) (*models.GeocodeResult, bool) {
	res, ok := c.store.Get(key)
	if ok {
		metrics.CacheHitsTotal.Inc()
	} else {
		metrics.CacheMissesTotal.Inc()
	}
	return res, ok
}

func (c *Cache) Set(key string, res *models.GeocodeResult) {
	c.store.Add(key, res)
}

func (c *Cache) Clear() {
	c.store.Purge()
}

func (c *Cache) Size() int {
	return c.store.Len()
}

// Sample returns up to n keys, least recently used first. A Get moves its
// key to the back. Diagnostic only.
func (c *Cache) Sample(n int) []string {
	if n <= 0 {
		return []string{}
	}
	keys := c.store.Keys()
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
