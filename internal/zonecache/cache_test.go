package zonecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"zonetrends/internal/analysis"
)

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) CacheHit()  { o.hits.Add(1) }
func (o *countingObserver) CacheMiss() { o.misses.Add(1) }

func zoneRows(seconds ...float64) []analysis.ZoneTime {
	rows := make([]analysis.ZoneTime, len(seconds))
	for i, s := range seconds {
		rows[i] = analysis.ZoneTime{ZoneNumber: i + 1, SecondsInZone: s}
	}
	return rows
}

func TestGetOrFetch_FetchesOnce(t *testing.T) {
	obs := &countingObserver{}
	c := New(Unbounded(), obs)

	calls := 0
	fetch := func(_ context.Context, id string) ([]analysis.ZoneTime, error) {
		calls++
		require.Equal(t, "123", id)
		return zoneRows(10, 20, 30, 40, 50), nil
	}

	first, err := c.GetOrFetch(context.Background(), "alice", "123", fetch)
	require.NoError(t, err)
	second, err := c.GetOrFetch(context.Background(), "alice", "123", fetch)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
	require.Equal(t, int64(1), obs.hits.Load())
	require.Equal(t, int64(1), obs.misses.Load())
	require.Equal(t, 1, c.Len())
}

func TestGetOrFetch_KeyIncludesAccount(t *testing.T) {
	c := New(nil, nil)

	calls := 0
	fetch := func(context.Context, string) ([]analysis.ZoneTime, error) {
		calls++
		return zoneRows(1), nil
	}

	_, err := c.GetOrFetch(context.Background(), "alice", "1", fetch)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), "bob", "1", fetch)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
	require.Equal(t, 2, c.Len())
}

func TestGetOrFetch_FailureIsNotCached(t *testing.T) {
	c := New(Unbounded(), nil)
	upstream := errors.New("API error 502: bad gateway")

	_, err := c.GetOrFetch(context.Background(), "alice", "9", func(context.Context, string) ([]analysis.ZoneTime, error) {
		return nil, upstream
	})
	require.ErrorIs(t, err, upstream)
	require.Same(t, upstream, err)
	require.Equal(t, 0, c.Len())

	rows, err := c.GetOrFetch(context.Background(), "alice", "9", func(context.Context, string) ([]analysis.ZoneTime, error) {
		return zoneRows(5), nil
	})
	require.NoError(t, err)
	require.Equal(t, zoneRows(5), rows)
	require.Equal(t, 1, c.Len())
}

func TestGetOrFetch_EmptyRecordIsCached(t *testing.T) {
	c := New(Unbounded(), nil)

	calls := 0
	fetch := func(context.Context, string) ([]analysis.ZoneTime, error) {
		calls++
		return []analysis.ZoneTime{}, nil
	}

	for i := 0; i < 3; i++ {
		rows, err := c.GetOrFetch(context.Background(), "alice", "7", fetch)
		require.NoError(t, err)
		require.Empty(t, rows)
	}
	require.Equal(t, 1, calls)
}

func TestGetOrFetch_ConcurrentMissesShareOneFetch(t *testing.T) {
	c := New(Unbounded(), nil)

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context, string) ([]analysis.ZoneTime, error) {
		calls.Add(1)
		<-release
		return zoneRows(1, 2), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]analysis.ZoneTime, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), "alice", "42", fetch)
		}(i)
	}

	close(release)
	wg.Wait()

	// late arrivals either hit the cache or find it filled inside the flight
	require.Equal(t, int64(1), calls.Load())
	require.Equal(t, 1, c.Len())
	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, zoneRows(1, 2), results[i])
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	policy, err := LRU(2)
	require.NoError(t, err)
	c := New(policy, nil)

	calls := map[string]int{}
	fetch := func(_ context.Context, id string) ([]analysis.ZoneTime, error) {
		calls[id]++
		return zoneRows(1), nil
	}
	ctx := context.Background()

	for _, id := range []string{"a", "b", "a", "c"} {
		_, err := c.GetOrFetch(ctx, "alice", id, fetch)
		require.NoError(t, err)
	}
	require.Equal(t, 2, c.Len())

	// b was least recently used when c arrived
	_, err = c.GetOrFetch(ctx, "alice", "b", fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls["b"])

	_, err = c.GetOrFetch(ctx, "alice", "c", fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls["c"])
}

func TestLRU_RejectsInvalidSize(t *testing.T) {
	_, err := LRU(0)
	require.Error(t, err)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(0)
	require.NoError(t, err)
	require.IsType(t, &unbounded{}, p)

	p, err = NewPolicy(10)
	require.NoError(t, err)
	require.IsType(t, &lruPolicy{}, p)
}

func TestForget(t *testing.T) {
	c := New(Unbounded(), nil)
	fetch := func(context.Context, string) ([]analysis.ZoneTime, error) {
		return zoneRows(1), nil
	}
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		_, err := c.GetOrFetch(ctx, "alice", id, fetch)
		require.NoError(t, err)
	}
	_, err := c.GetOrFetch(ctx, "bob", "1", fetch)
	require.NoError(t, err)

	require.Equal(t, 2, c.Forget("alice"))
	require.Equal(t, 1, c.Len())
}

func TestGetOrFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New(Unbounded(), nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	fetch := func(ctx context.Context, _ string) ([]analysis.ZoneTime, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return zoneRows(5, 6), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(leaderCtx, "alice", "9", fetch)
		leaderErr <- err
	}()
	<-started

	type result struct {
		rows []analysis.ZoneTime
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		rows, err := c.GetOrFetch(context.Background(), "alice", "9", fetch)
		follower <- result{rows, err}
	}()

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	require.Equal(t, zoneRows(5, 6), got.rows)
	require.Equal(t, int64(1), calls.Load())
	require.Equal(t, 1, c.Len())
}

func TestGetOrFetch_CallerContextDone(t *testing.T) {
	c := New(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	_, err := c.GetOrFetch(ctx, "alice", "1", func(context.Context, string) ([]analysis.ZoneTime, error) {
		<-release
		return zoneRows(1), nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
