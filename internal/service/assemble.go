package service

import (
	"context"
	"time"

	"zonetrends/internal/analysis"
	"zonetrends/internal/zonecache"
)

// ZoneSource fetches one activity's heart rate zone record
type ZoneSource interface {
	GetZoneTime(ctx context.Context, activityID string) ([]analysis.ZoneTime, error)
}

// Assembler joins activity metadata with cached zone records into the flat
// sample table the aggregation engine consumes.
type Assembler struct {
	cache *zonecache.Cache
}

// NewAssembler creates an assembler reading through cache
func NewAssembler(cache *zonecache.Cache) *Assembler {
	if cache == nil {
		cache = zonecache.New(nil, nil)
	}
	return &Assembler{cache: cache}
}

// Assemble returns one sample per (activity, zone) in input order. Zone
// records missing from the cache are fetched from src. The first fetch error
// is returned as is and nothing is returned with it.
func (a *Assembler) Assemble(ctx context.Context, account string, activities []analysis.ActivityRef, src ZoneSource) ([]analysis.ZoneSample, error) {
	samples := make([]analysis.ZoneSample, 0, len(activities)*5)

	for _, act := range activities {
		rows, err := a.cache.GetOrFetch(ctx, account, act.ID, src.GetZoneTime)
		if err != nil {
			return nil, err
		}

		hours := act.DurationSeconds / float64(time.Hour/time.Second)
		for _, row := range rows {
			samples = append(samples, analysis.ZoneSample{
				ZoneNumber:    row.ZoneNumber,
				SecondsInZone: row.SecondsInZone,
				ActivityID:    act.ID,
				ActivityDate:  act.StartTimeLocal,
				DurationHours: hours,
			})
		}
	}

	return samples, nil
}
