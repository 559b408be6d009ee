package match

import (
	"context"
	"sync"

	"minotaur/internal/model"

	"golang.org/x/sync/singleflight"
)

// QueryCache memoizes advisory lookups per (ecosystem, name, version).
// Concurrent callers for the same key share one in-flight call; failed
// lookups are not cached.
type QueryCache struct {
	source AdvisorySource

	mu      sync.Mutex
	results map[string][]model.VulnerabilityRecord
	group   singleflight.Group
}

// NewQueryCache wraps source.
func NewQueryCache(source AdvisorySource) *QueryCache {
	return &QueryCache{source: source, results: make(map[string][]model.VulnerabilityRecord)}
}

// Get returns the cached result for q or performs the lookup. The boolean
// reports whether the result was served without a new call.
func (c *QueryCache) Get(ctx context.Context, q model.PackageQuery) ([]model.VulnerabilityRecord, bool, error) {
	key := q.Key()

	c.mu.Lock()
	if recs, ok := c.results[key]; ok {
		c.mu.Unlock()
		return recs, true, nil
	}
	c.mu.Unlock()

	performed := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if recs, ok := c.results[key]; ok {
			c.mu.Unlock()
			return recs, nil
		}
		c.mu.Unlock()

		performed = true
		recs, err := c.source.Query(ctx, q)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.results[key] = recs
		c.mu.Unlock()
		return recs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]model.VulnerabilityRecord), !performed, nil
}

// Len returns the number of cached results.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
