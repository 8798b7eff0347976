package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_CacheCounters(t *testing.T) {
	c := New()

	c.CacheMiss()
	c.CacheHit()
	c.CacheHit()

	require.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
}

func TestCollector_FetchOutcomes(t *testing.T) {
	c := New()

	c.ObserveFetch("zones", nil)
	c.ObserveFetch("zones", errors.New("boom"))
	c.ObserveFetch("activities", nil)

	require.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("zones", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("zones", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("activities", "ok")))
}

func TestCollector_SummaryOutcomes(t *testing.T) {
	c := New()

	c.ObserveSummary(120*time.Millisecond, 4, nil)
	c.ObserveSummary(5*time.Millisecond, 0, errors.New("upstream"))

	require.Equal(t, 1.0, testutil.ToFloat64(c.summaries.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.summaries.WithLabelValues("error")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	var observed uint64
	for _, mf := range families {
		if mf.GetName() == "zonetrends_summary_duration_seconds" {
			observed = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	require.Equal(t, uint64(2), observed)
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.CacheHit()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "zonetrends_zone_cache_hits_total 1")
}
