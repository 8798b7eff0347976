package zonecache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"zonetrends/internal/analysis"
)

// Policy is the storage behind a Cache. It decides what is kept and for how long.
// Implementations need not be safe for concurrent use; Cache serializes access.
type Policy interface {
	Get(key Key) ([]analysis.ZoneTime, bool)
	Add(key Key, rows []analysis.ZoneTime)
	Remove(key Key)
	Keys() []Key
	Len() int
}

// Unbounded returns a policy that keeps every entry for the life of the process
func Unbounded() Policy {
	return &unbounded{m: make(map[Key][]analysis.ZoneTime)}
}

type unbounded struct {
	m map[Key][]analysis.ZoneTime
}

func (u *unbounded) Get(key Key) ([]analysis.ZoneTime, bool) {
	rows, ok := u.m[key]
	return rows, ok
}

func (u *unbounded) Add(key Key, rows []analysis.ZoneTime) { u.m[key] = rows }

func (u *unbounded) Remove(key Key) { delete(u.m, key) }

func (u *unbounded) Keys() []Key {
	keys := make([]Key, 0, len(u.m))
	for k := range u.m {
		keys = append(keys, k)
	}
	return keys
}

func (u *unbounded) Len() int { return len(u.m) }

// LRU returns a policy that keeps at most size entries, evicting the least
// recently used one when full
func LRU(size int) (Policy, error) {
	c, err := lru.New[Key, []analysis.ZoneTime](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru policy: %w", err)
	}
	return &lruPolicy{c: c}, nil
}

type lruPolicy struct {
	c *lru.Cache[Key, []analysis.ZoneTime]
}

func (p *lruPolicy) Get(key Key) ([]analysis.ZoneTime, bool) { return p.c.Get(key) }

func (p *lruPolicy) Add(key Key, rows []analysis.ZoneTime) { p.c.Add(key, rows) }

func (p *lruPolicy) Remove(key Key) { p.c.Remove(key) }

func (p *lruPolicy) Keys() []Key { return p.c.Keys() }

func (p *lruPolicy) Len() int { return p.c.Len() }

// NewPolicy picks LRU for a positive maxEntries and Unbounded otherwise
func NewPolicy(maxEntries int) (Policy, error) {
	if maxEntries > 0 {
		return LRU(maxEntries)
	}
	return Unbounded(), nil
}
