package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"zonetrends/internal/analysis"
	"zonetrends/internal/zonecache"
)

// DefaultActivityType is the activity family summarized when none is configured
const DefaultActivityType = "running"

// DefaultWindowDays is the default length of a summary window
const DefaultWindowDays = 30

// DateLayout is the calendar date format used by every input and output
const DateLayout = "2006-01-02"

// ErrInvalidRange is returned when the window ends before it starts
var ErrInvalidRange = errors.New("end date is before start date")

// Fetcher is the upstream activity source for one account
type Fetcher interface {
	ZoneSource
	ListActivities(ctx context.Context, activityType string, start, end time.Time) ([]analysis.ActivityRef, error)
}

// ClientSource resolves the Fetcher for a named account
type ClientSource interface {
	Fetcher(account string) (Fetcher, error)
}

// SummaryObserver is told about every summary build
type SummaryObserver interface {
	ObserveSummary(elapsed time.Duration, activities int, err error)
}

// Summary is the set of zone views for one account and date range
type Summary struct {
	Account     string
	Start       time.Time
	End         time.Time
	Views       analysis.Views
	GeneratedAt time.Time
}

// Label describes how many trainings the summary considered
func (s *Summary) Label() string {
	return TrainingsLabel(s.Views.Activities)
}

// TrainingsLabel formats an activity count for display
func TrainingsLabel(n int) string {
	switch n {
	case 0:
		return "No trainings"
	case 1:
		return "1 training considered"
	}
	return fmt.Sprintf("%d trainings considered", n)
}

// ZoneService builds zone summaries for stored accounts
type ZoneService struct {
	source       ClientSource
	assembler    *Assembler
	activityType string
	logger       *slog.Logger
	observer     SummaryObserver
	now          func() time.Time
}

// ZoneOption configures a ZoneService
type ZoneOption func(*ZoneService)

// WithActivityType selects the activity family to summarize
func WithActivityType(t string) ZoneOption {
	return func(s *ZoneService) {
		if t != "" {
			s.activityType = t
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) ZoneOption {
	return func(s *ZoneService) { s.logger = l }
}

// WithSummaryObserver reports every build to o
func WithSummaryObserver(o SummaryObserver) ZoneOption {
	return func(s *ZoneService) { s.observer = o }
}

// NewZoneService creates a zone service. All accounts share cache.
func NewZoneService(source ClientSource, cache *zonecache.Cache, opts ...ZoneOption) *ZoneService {
	s := &ZoneService{
		source:       source,
		assembler:    NewAssembler(cache),
		activityType: DefaultActivityType,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize lists the account's activities between start and end (both dates
// inclusive), assembles their zone records and aggregates them with weekly
// buckets anchored at start.
func (s *ZoneService) Summarize(ctx context.Context, account string, start, end time.Time) (sum *Summary, err error) {
	began := s.now()
	activities := 0
	defer func() {
		elapsed := s.now().Sub(began)
		if s.observer != nil {
			s.observer.ObserveSummary(elapsed, activities, err)
		}
		if err != nil {
			s.logger.Warn("summary_failed", "account", account, "error", err)
			return
		}
		s.logger.Info("summary_built",
			"account", account,
			"start", start.Format(DateLayout),
			"end", end.Format(DateLayout),
			"activities", activities,
			"duration", elapsed.String(),
		)
	}()

	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	fetcher, err := s.source.Fetcher(account)
	if err != nil {
		return nil, err
	}

	refs, err := fetcher.ListActivities(ctx, s.activityType, start, end)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("activities_listed", "account", account, "count", len(refs))

	samples, err := s.assembler.Assemble(ctx, account, refs, fetcher)
	if err != nil {
		return nil, err
	}

	views := analysis.AggregateZones(samples, start)
	activities = views.Activities

	return &Summary{
		Account:     account,
		Start:       start,
		End:         end,
		Views:       views,
		GeneratedAt: s.now(),
	}, nil
}

// DefaultWindow returns the date range covering the last days days up to and
// including today.
func DefaultWindow(now time.Time, days int) (start, end time.Time) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start = end.AddDate(0, 0, -days)
	return start, end
}

// ParseWindow parses YYYY-MM-DD bounds in loc. An empty bound takes its value
// from the default window.
func ParseWindow(startStr, endStr string, now time.Time, days int) (start, end time.Time, err error) {
	start, end = DefaultWindow(now, days)
	loc := now.Location()

	if startStr != "" {
		if start, err = time.ParseInLocation(DateLayout, startStr, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		if end, err = time.ParseInLocation(DateLayout, endStr, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}
