// Package zonecache memoizes per-activity heart rate zone records so repeated
// summaries over overlapping windows do not refetch them from Strava.
package zonecache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"zonetrends/internal/analysis"
)

// Key identifies one activity's zone record for one account
type Key struct {
	Account    string
	ActivityID string
}

func (k Key) flight() string {
	return k.Account + "\x00" + k.ActivityID
}

// FetchFunc retrieves the zone record for an activity on a cache miss
type FetchFunc func(ctx context.Context, activityID string) ([]analysis.ZoneTime, error)

// Observer is notified of cache lookups
type Observer interface {
	CacheHit()
	CacheMiss()
}

// Cache is a memoization store for zone records. Entries are never modified
// after they are stored; a failed fetch stores nothing.
type Cache struct {
	mu     sync.Mutex
	policy Policy
	obs    Observer
	group  singleflight.Group
}

// New creates a cache over the given policy. obs may be nil.
func New(policy Policy, obs Observer) *Cache {
	if policy == nil {
		policy = Unbounded()
	}
	return &Cache{policy: policy, obs: obs}
}

// GetOrFetch returns the stored rows for (account, activityID), calling fetch
// only when no entry exists. Concurrent misses for the same key share one fetch,
// which runs detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done. Errors from fetch are returned as is.
func (c *Cache) GetOrFetch(ctx context.Context, account, activityID string, fetch FetchFunc) ([]analysis.ZoneTime, error) {
	key := Key{Account: account, ActivityID: activityID}

	if rows, ok := c.get(key); ok {
		c.hit()
		return rows, nil
	}
	c.miss()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.flight(), func() (interface{}, error) {
		// a flight that finished between our lookup and DoChan may have filled it
		if rows, ok := c.get(key); ok {
			return rows, nil
		}
		rows, err := fetch(fetchCtx, activityID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.policy.Add(key, rows)
		c.mu.Unlock()
		return rows, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]analysis.ZoneTime), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Len()
}

// Forget drops every entry belonging to account
func (c *Cache) Forget(account string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range c.policy.Keys() {
		if k.Account == account {
			c.policy.Remove(k)
			removed++
		}
	}
	return removed
}

func (c *Cache) get(key Key) ([]analysis.ZoneTime, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Get(key)
}

func (c *Cache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}
