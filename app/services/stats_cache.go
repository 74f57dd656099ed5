package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quickplan/app/models"
)

// DefaultStatsTTL is how long a computed snapshot is served without
// recomputation.
const DefaultStatsTTL = 30 * time.Second

// StatsCache memoizes the aggregate view for a fixed freshness window.
//
// Every Invalidate bumps a generation counter. A recomputation only stores
// its snapshot if no invalidation happened while it ran, so a reader that
// starts after a mutation never receives pre-mutation figures.
type StatsCache struct {
	mu         sync.Mutex
	snapshot   *models.Stats
	computedAt time.Time
	generation uint64

	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group
}

// NewStatsCache creates a cache with the given freshness window. A
// non-positive ttl selects DefaultStatsTTL.
func NewStatsCache(ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsCache{ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot while it is fresh, otherwise calls compute
// and caches its result. The bool reports a cache hit.
func (c *StatsCache) Get(ctx context.Context, compute func(context.Context) (models.Stats, error)) (models.Stats, bool, error) {
	c.mu.Lock()
	if c.snapshot != nil && c.now().Sub(c.computedAt) < c.ttl {
		s := *c.snapshot
		c.mu.Unlock()
		return s, true, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// the flight is shared; detach it from the first caller's cancellation
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.flight.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		started := c.now()
		stats, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.snapshot = &stats
			c.computedAt = started
		}
		c.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return models.Stats{}, false, err
	}
	return v.(models.Stats), false, nil
}

// Invalidate drops the snapshot. The next Get recomputes.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.computedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
}

// computeStats aggregates over every row, parents and subtasks alike.
// Hour totals are nil when there are no rows.
func computeStats(rows []models.Task) models.Stats {
	stats := models.Stats{TotalTasks: len(rows)}
	if len(rows) == 0 {
		return stats
	}
	resources := make(map[string]struct{}, len(rows))
	var total float64
	for _, r := range rows {
		total += r.Hours
		resources[r.Resource] = struct{}{}
	}
	avg := total / float64(len(rows))
	stats.TotalHours = &total
	stats.AvgHours = &avg
	stats.UniqueResources = len(resources)
	return stats
}
