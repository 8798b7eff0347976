package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"zonetrends/internal/service"
	"zonetrends/internal/store"
)

type handler struct {
	zones      Summarizer
	accounts   AccountLister
	windowDays int
	logger     *slog.Logger
	now        func() time.Time
}

func newHandler(d Deps) *handler {
	h := &handler{
		zones:      d.Zones,
		accounts:   d.Accounts,
		windowDays: d.WindowDays,
		logger:     d.Logger,
		now:        d.Now,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// AccountView is one stored account without its tokens
type AccountView struct {
	Name      string `json:"name"`
	AthleteID int64  `json:"athlete_id"`
}

// ZonePercentageView is a zone's share of the window
type ZonePercentageView struct {
	Zone       int     `json:"zone"`
	Percentage float64 `json:"percentage"`
}

// ZoneTrendView is a zone's share of one week
type ZoneTrendView struct {
	WeekStart  string  `json:"week_start"`
	Zone       int     `json:"zone"`
	Percentage float64 `json:"percentage"`
}

// ActivityCountView is the number of activities in one week
type ActivityCountView struct {
	WeekStart string `json:"week_start"`
	Count     int    `json:"count"`
}

// TrainingTimeView is the hours trained in one week
type TrainingTimeView struct {
	WeekStart string  `json:"week_start"`
	Hours     float64 `json:"hours"`
}

// SummaryResponse is the body of the zones endpoint
type SummaryResponse struct {
	Account         string               `json:"account"`
	Start           string               `json:"start"`
	End             string               `json:"end"`
	Activities      int                  `json:"activities"`
	Label           string               `json:"label"`
	ZonePercentages []ZonePercentageView `json:"zone_percentages"`
	ZoneTrend       []ZoneTrendView      `json:"zone_trend"`
	ActivityCounts  []ActivityCountView  `json:"activity_counts"`
	TrainingTime    []TrainingTimeView   `json:"training_time"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listAccounts(w http.ResponseWriter, _ *http.Request) {
	accounts, err := h.accounts.ListAccounts()
	if err != nil {
		h.logger.Error("list_accounts_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "unable to list accounts")
		return
	}

	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, AccountView{Name: a.Name, AthleteID: a.AthleteID})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) zoneSummary(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	q := r.URL.Query()

	start, end, err := service.ParseWindow(q.Get("start"), q.Get("end"), h.now(), h.windowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sum, err := h.zones.Summarize(r.Context(), account, start, end)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown account "+account)
		return
	case errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	default:
		h.logger.Error("summary_request_failed", "account", account, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func toSummaryResponse(s *service.Summary) SummaryResponse {
	v := s.Views
	resp := SummaryResponse{
		Account:         s.Account,
		Start:           s.Start.Format(service.DateLayout),
		End:             s.End.Format(service.DateLayout),
		Activities:      v.Activities,
		Label:           s.Label(),
		ZonePercentages: make([]ZonePercentageView, 0, len(v.ZonePercentages)),
		ZoneTrend:       make([]ZoneTrendView, 0, len(v.ZoneTrend)),
		ActivityCounts:  make([]ActivityCountView, 0, len(v.ActivityCounts)),
		TrainingTime:    make([]TrainingTimeView, 0, len(v.TrainingTime)),
		GeneratedAt:     s.GeneratedAt,
	}
	for _, zp := range v.ZonePercentages {
		resp.ZonePercentages = append(resp.ZonePercentages, ZonePercentageView{Zone: zp.ZoneNumber, Percentage: zp.Percentage})
	}
	for _, tr := range v.ZoneTrend {
		resp.ZoneTrend = append(resp.ZoneTrend, ZoneTrendView{WeekStart: day(tr.WeekStart), Zone: tr.ZoneNumber, Percentage: tr.Percentage})
	}
	for _, c := range v.ActivityCounts {
		resp.ActivityCounts = append(resp.ActivityCounts, ActivityCountView{WeekStart: day(c.WeekStart), Count: c.Count})
	}
	for _, tt := range v.TrainingTime {
		resp.TrainingTime = append(resp.TrainingTime, TrainingTimeView{WeekStart: day(tt.WeekStart), Hours: tt.Hours})
	}
	return resp
}

func day(t time.Time) string {
	return t.Format(service.DateLayout)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
