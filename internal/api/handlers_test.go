package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zonetrends/internal/analysis"
	"zonetrends/internal/service"
	"zonetrends/internal/store"
)

type stubZones struct {
	summary  *service.Summary
	err      error
	gotStart time.Time
	gotEnd   time.Time
	calls    int
}

func (s *stubZones) Summarize(_ context.Context, account string, start, end time.Time) (*service.Summary, error) {
	s.calls++
	s.gotStart, s.gotEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	sum := *s.summary
	sum.Account, sum.Start, sum.End = account, start, end
	return &sum, nil
}

type stubAccounts struct {
	accounts []store.Account
	err      error
}

func (s stubAccounts) ListAccounts() ([]store.Account, error) { return s.accounts, s.err }

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func sampleSummary() *service.Summary {
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &service.Summary{
		Views: analysis.Views{
			ZonePercentages: []analysis.ZonePercentage{{ZoneNumber: 1, Percentage: 42.86}, {ZoneNumber: 2, Percentage: 57.14}},
			ZoneTrend:       []analysis.WeeklyZoneTrend{{WeekStart: week, ZoneNumber: 1, Percentage: 42.86}},
			ActivityCounts:  []analysis.WeeklyActivityCount{{WeekStart: week, Count: 2}},
			TrainingTime:    []analysis.WeeklyTrainingTime{{WeekStart: week, Hours: 1.5}},
			Activities:      2,
		},
		GeneratedAt: fixedNow,
	}
}

func newTestRouter(zones Summarizer, accounts AccountLister, creds Credentials) http.Handler {
	return NewRouter(Deps{
		Zones:      zones,
		Accounts:   accounts,
		Metrics:    http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "metrics") }),
		Auth:       creds,
		WindowDays: 30,
		Now:        func() time.Time { return fixedNow },
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(&stubZones{}, stubAccounts{}, Credentials{User: "u", Password: "p"})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	h := newTestRouter(&stubZones{}, stubAccounts{}, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "metrics", rec.Body.String())
}

func TestListAccounts(t *testing.T) {
	accounts := stubAccounts{accounts: []store.Account{
		{Name: "alice", AthleteID: 1, AccessToken: "secret"},
		{Name: "bob", AthleteID: 2},
	}}
	h := newTestRouter(&stubZones{}, accounts, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"name":"alice","athlete_id":1},{"name":"bob","athlete_id":2}]`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "secret")
}

func TestListAccounts_StoreError(t *testing.T) {
	h := newTestRouter(&stubZones{}, stubAccounts{err: errors.New("db locked")}, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestZones_Success(t *testing.T) {
	zones := &stubZones{summary: sampleSummary()}
	h := newTestRouter(zones, stubAccounts{}, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/accounts/alice/zones?start=2024-01-01&end=2024-01-07", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Account)
	require.Equal(t, "2024-01-01", resp.Start)
	require.Equal(t, "2024-01-07", resp.End)
	require.Equal(t, 2, resp.Activities)
	require.Equal(t, "2 trainings considered", resp.Label)
	require.Equal(t, []ZonePercentageView{{Zone: 1, Percentage: 42.86}, {Zone: 2, Percentage: 57.14}}, resp.ZonePercentages)
	require.Equal(t, []ActivityCountView{{WeekStart: "2024-01-01", Count: 2}}, resp.ActivityCounts)
	require.Equal(t, []TrainingTimeView{{WeekStart: "2024-01-01", Hours: 1.5}}, resp.TrainingTime)
	require.Len(t, resp.ZoneTrend, 1)
}

func TestZones_DefaultWindow(t *testing.T) {
	zones := &stubZones{summary: sampleSummary()}
	h := newTestRouter(zones, stubAccounts{}, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/accounts/alice/zones", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2023, 12, 21, 0, 0, 0, 0, time.UTC), zones.gotStart)
	require.Equal(t, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), zones.gotEnd)
}

func TestZones_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		calls  int
	}{
		{"bad date", "?start=2024-13-01", nil, http.StatusBadRequest, 0},
		{"inverted range", "?start=2024-02-01&end=2024-01-01", nil, http.StatusBadRequest, 0},
		{"unknown account", "", fmt.Errorf("loading account x: %w", store.ErrAccountNotFound), http.StatusNotFound, 1},
		{"upstream failure", "", errors.New("API error 503: unavailable"), http.StatusBadGateway, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := &stubZones{summary: sampleSummary(), err: tt.err}
			h := newTestRouter(zones, stubAccounts{}, Credentials{})

			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/accounts/alice/zones"+tt.query, nil))

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.calls, zones.calls)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotEmpty(t, body["detail"])
		})
	}
}

func TestBasicAuth(t *testing.T) {
	creds := Credentials{User: "coach", Password: "pw"}
	h := newTestRouter(&stubZones{summary: sampleSummary()}, stubAccounts{}, creds)

	tests := []struct {
		name   string
		user   string
		pass   string
		set    bool
		status int
	}{
		{"missing", "", "", false, http.StatusUnauthorized},
		{"wrong password", "coach", "nope", true, http.StatusUnauthorized},
		{"valid", "coach", "pw", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tt.set {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := do(t, h, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(&stubZones{}, stubAccounts{}, Credentials{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_RecoversPanics(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	srv := NewServer(":0", panicky, nil)

	rec := do(t, srv.Handler, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
