package inventory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
)

// DefaultCacheTTL bounds the external call rate to the inventory source.
const DefaultCacheTTL = 60 * time.Second

// Cache is a process-wide read-through cache in front of a Source. A miss
// blocks the calling turn until the fetch resolves; a fetch failure is
// propagated, never papered over with stale data.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	units     []models.Unit
	fetchedAt time.Time
}

// NewCache wraps a Source with a TTL cache. A non-positive ttl uses
// DefaultCacheTTL.
func NewCache(src Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// FetchAll returns the cached unit list, refreshing it when the TTL has
// elapsed.
func (c *Cache) FetchAll(ctx context.Context) ([]models.Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.units != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		slog.Debug("Inventory cache hit", "count", len(c.units), "age", c.now().Sub(c.fetchedAt))
		return c.units, nil
	}

	units, err := c.src.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	c.units = units
	c.fetchedAt = c.now()
	slog.Debug("Inventory cache refreshed", "count", len(units))
	return units, nil
}
