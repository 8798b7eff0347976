package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"zonetrends/internal/analysis"
)

const BaseURL = "https://www.strava.com/api/v3"

// maxPerPage is the largest page Strava serves
const maxPerPage = 100

// APIError is returned for any non-200 response from Strava
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Observer is told about every request the client makes
type Observer interface {
	ObserveFetch(endpoint string, err error)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	baseURL     string
	observer    Observer
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (used by tests)
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRateLimiter replaces the default Strava rate limiter
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = r }
}

// WithObserver reports requests to o
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		rateLimiter: NewRateLimiter(),
		baseURL:     BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetActivities fetches one page of activities started between after and before.
// A zero time leaves that side of the range open.
func (c *Client) GetActivities(ctx context.Context, after, before time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "activities", "/athlete/activities", params, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// ListActivities returns every activity of the given family that started on a
// day between start and end, both inclusive, oldest first
func (c *Client) ListActivities(ctx context.Context, activityType string, start, end time.Time) ([]analysis.ActivityRef, error) {
	after, before := dayRange(start, end)

	var refs []analysis.ActivityRef
	for page := 1; ; page++ {
		activities, err := c.GetActivities(ctx, after, before, page, maxPerPage)
		if err != nil {
			return nil, err
		}

		for _, a := range activities {
			if a.MatchesType(activityType) {
				refs = append(refs, a.Ref())
			}
		}

		if len(activities) < maxPerPage {
			break // Last page
		}
	}

	return refs, nil
}

// GetActivityZones fetches the zone distributions of one activity
func (c *Client) GetActivityZones(ctx context.Context, activityID string) ([]ActivityZone, error) {
	var zones []ActivityZone
	path := fmt.Sprintf("/activities/%s/zones", url.PathEscape(activityID))
	if err := c.getJSON(ctx, "zones", path, nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// GetZoneTime returns the heart rate zone record of one activity
func (c *Client) GetZoneTime(ctx context.Context, activityID string) ([]analysis.ZoneTime, error) {
	zones, err := c.GetActivityZones(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return HeartRateZoneTimes(zones), nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, v any) (err error) {
	if c.observer != nil {
		defer func() { c.observer.ObserveFetch(endpoint, err) }()
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

// dayRange turns an inclusive date range into Strava's exclusive after/before epochs
func dayRange(start, end time.Time) (after, before time.Time) {
	y, m, d := start.Date()
	after = time.Date(y, m, d, 0, 0, 0, 0, start.Location()).Add(-time.Second)
	y, m, d = end.Date()
	before = time.Date(y, m, d, 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	return after, before
}
