package analysis

import (
	"math"
	"sort"
	"time"
)

// WeekDays is the width of a trend bucket in calendar days
const WeekDays = 7

// PlaceholderActivityID identifies the synthetic activity used when a window has no runs
const PlaceholderActivityID = "1"

// placeholderZones are the zones synthesized for an empty window
var placeholderZones = []int{1, 2, 3, 4, 5}

// ZoneTime is the time spent in one heart rate zone during an activity
type ZoneTime struct {
	ZoneNumber    int
	SecondsInZone float64
}

// ActivityRef is the activity metadata needed to place zone times on the calendar
type ActivityRef struct {
	ID              string
	StartTimeLocal  time.Time // wall clock of the activity's own timezone
	DurationSeconds float64
}

// ZoneSample is one row per (activity, heart rate zone)
type ZoneSample struct {
	ZoneNumber    int
	SecondsInZone float64
	ActivityID    string
	ActivityDate  time.Time
	DurationHours float64
}

// ZonePercentage is a zone's share of all time across the window
type ZonePercentage struct {
	ZoneNumber int
	Percentage float64
}

// WeeklyZoneTrend is a zone's share of time within one 7-day bucket
type WeeklyZoneTrend struct {
	WeekStart  time.Time
	ZoneNumber int
	Percentage float64
}

// WeeklyActivityCount is the number of distinct activities in a bucket
type WeeklyActivityCount struct {
	WeekStart time.Time
	Count     int
}

// WeeklyTrainingTime is the total activity duration in a bucket
type WeeklyTrainingTime struct {
	WeekStart time.Time
	Hours     float64
}

// Views holds the derived tables for one window
type Views struct {
	ZonePercentages []ZonePercentage
	ZoneTrend       []WeeklyZoneTrend
	ActivityCounts  []WeeklyActivityCount
	TrainingTime    []WeeklyTrainingTime

	// Activities is the number of distinct real activities behind the views.
	// It is 0 when the window was empty and placeholder rows were used.
	Activities int
}

// AggregateZones computes zone percentages and weekly trends from a flat table
// of zone samples. Weekly buckets are anchored at the calendar date of windowStart.
func AggregateZones(samples []ZoneSample, windowStart time.Time) Views {
	anchor := startOfDay(windowStart)

	placeholder := len(samples) == 0
	if placeholder {
		samples = placeholderSamples(anchor)
	}

	views := Views{
		ZonePercentages: zonePercentages(samples),
		ZoneTrend:       weeklyZoneTrend(samples, anchor),
		ActivityCounts:  weeklyActivityCounts(samples, anchor),
		TrainingTime:    weeklyTrainingTime(samples, anchor),
	}

	if placeholder {
		for i := range views.ActivityCounts {
			views.ActivityCounts[i].Count = 0
		}
		return views
	}

	views.Activities = countDistinct(samples)
	return views
}

// WeekBucket returns the index of the 7-day bucket containing t, counted in
// calendar days from anchor. t's date is taken from its own wall clock, never
// converted to anchor's location. Dates before the anchor get negative indexes.
func WeekBucket(anchor, t time.Time) int {
	days := calendarDays(anchor, t)
	if days < 0 {
		return -((-days + WeekDays - 1) / WeekDays)
	}
	return days / WeekDays
}

// WeekStart returns the first day of bucket k for the given anchor
func WeekStart(anchor time.Time, k int) time.Time {
	a := startOfDay(anchor)
	return a.AddDate(0, 0, k*WeekDays)
}

// RoundPercent rounds to 2 decimal places
func RoundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}

// share returns part/total as a percentage, or 0 when total is 0
func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return RoundPercent(part / total * 100)
}

func zonePercentages(samples []ZoneSample) []ZonePercentage {
	byZone := make(map[int]float64)
	var total float64
	for _, s := range samples {
		byZone[s.ZoneNumber] += s.SecondsInZone
		total += s.SecondsInZone
	}

	zones := sortedKeys(byZone)
	result := make([]ZonePercentage, 0, len(zones))
	for _, z := range zones {
		result = append(result, ZonePercentage{
			ZoneNumber: z,
			Percentage: share(byZone[z], total),
		})
	}
	return result
}

func weeklyZoneTrend(samples []ZoneSample, anchor time.Time) []WeeklyZoneTrend {
	type bucketZone struct {
		bucket int
		zone   int
	}

	seconds := make(map[bucketZone]float64)
	totals := make(map[int]float64)
	for _, s := range samples {
		b := WeekBucket(anchor, s.ActivityDate)
		seconds[bucketZone{b, s.ZoneNumber}] += s.SecondsInZone
		totals[b] += s.SecondsInZone
	}

	keys := make([]bucketZone, 0, len(seconds))
	for k := range seconds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].bucket != keys[j].bucket {
			return keys[i].bucket < keys[j].bucket
		}
		return keys[i].zone < keys[j].zone
	})

	result := make([]WeeklyZoneTrend, 0, len(keys))
	for _, k := range keys {
		result = append(result, WeeklyZoneTrend{
			WeekStart:  WeekStart(anchor, k.bucket),
			ZoneNumber: k.zone,
			Percentage: share(seconds[k], totals[k.bucket]),
		})
	}
	return result
}

func weeklyActivityCounts(samples []ZoneSample, anchor time.Time) []WeeklyActivityCount {
	ids := make(map[int]map[string]struct{})
	for _, s := range samples {
		b := WeekBucket(anchor, s.ActivityDate)
		if ids[b] == nil {
			ids[b] = make(map[string]struct{})
		}
		ids[b][s.ActivityID] = struct{}{}
	}

	first, last, ok := bucketRange(ids)
	if !ok {
		return nil
	}

	result := make([]WeeklyActivityCount, 0, last-first+1)
	for b := first; b <= last; b++ {
		result = append(result, WeeklyActivityCount{
			WeekStart: WeekStart(anchor, b),
			Count:     len(ids[b]),
		})
	}
	return result
}

func weeklyTrainingTime(samples []ZoneSample, anchor time.Time) []WeeklyTrainingTime {
	hours := make(map[int]float64)
	seen := make(map[string]struct{})
	for _, s := range samples {
		if _, dup := seen[s.ActivityID]; dup {
			continue
		}
		seen[s.ActivityID] = struct{}{}
		hours[WeekBucket(anchor, s.ActivityDate)] += s.DurationHours
	}

	first, last, ok := bucketRange(hours)
	if !ok {
		return nil
	}

	result := make([]WeeklyTrainingTime, 0, last-first+1)
	for b := first; b <= last; b++ {
		result = append(result, WeeklyTrainingTime{
			WeekStart: WeekStart(anchor, b),
			Hours:     hours[b],
		})
	}
	return result
}

func placeholderSamples(anchor time.Time) []ZoneSample {
	samples := make([]ZoneSample, 0, len(placeholderZones))
	for _, z := range placeholderZones {
		samples = append(samples, ZoneSample{
			ZoneNumber:   z,
			ActivityID:   PlaceholderActivityID,
			ActivityDate: anchor,
		})
	}
	return samples
}

func countDistinct(samples []ZoneSample) int {
	ids := make(map[string]struct{})
	for _, s := range samples {
		ids[s.ActivityID] = struct{}{}
	}
	return len(ids)
}

func bucketRange[V any](m map[int]V) (first, last int, ok bool) {
	for b := range m {
		if !ok {
			first, last, ok = b, b, true
			continue
		}
		if b < first {
			first = b
		}
		if b > last {
			last = b
		}
	}
	return first, last, ok
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// calendarDays counts whole calendar days from a's date to b's date. Each date
// is read from its own clock fields: activity timestamps carry local wall time
// (Strava tags it UTC) and must not be shifted into the anchor's zone.
// Comparing civil dates keeps DST transitions from shifting bucket edges.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
