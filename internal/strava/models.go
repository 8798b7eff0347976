package strava

import (
	"sort"
	"strconv"
	"time"

	"zonetrends/internal/analysis"
)

// Activity represents a Strava activity summary from /athlete/activities
type Activity struct {
	ID             int64     `json:"id"`
	Athlete        Athlete   `json:"athlete"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	SportType      string    `json:"sport_type"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal time.Time `json:"start_date_local"`
	Timezone       string    `json:"timezone"`
	Distance       float64   `json:"distance"`     // meters
	MovingTime     int       `json:"moving_time"`  // seconds
	ElapsedTime    int       `json:"elapsed_time"` // seconds
	HasHeartrate   bool      `json:"has_heartrate"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Ref converts the summary into the metadata the zone assembler needs.
// Duration is moving time, matching the timer duration a watch reports.
func (a Activity) Ref() analysis.ActivityRef {
	return analysis.ActivityRef{
		ID:              strconv.FormatInt(a.ID, 10),
		StartTimeLocal:  a.StartDateLocal,
		DurationSeconds: float64(a.MovingTime),
	}
}

// ActivityZone is one entry of /activities/{id}/zones
type ActivityZone struct {
	Type                string               `json:"type"` // "heartrate" or "power"
	SensorBased         bool                 `json:"sensor_based"`
	DistributionBuckets []DistributionBucket `json:"distribution_buckets"`
}

// DistributionBucket is the time spent between two heart rate (or power) bounds
type DistributionBucket struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Time float64 `json:"time"` // seconds
}

// HeartRateZoneTimes extracts the heart rate distribution, numbering zones from 1
// in the order Strava returns them. Returns an empty record if there is none.
func HeartRateZoneTimes(zones []ActivityZone) []analysis.ZoneTime {
	for _, z := range zones {
		if z.Type != ZoneTypeHeartRate {
			continue
		}
		rows := make([]analysis.ZoneTime, len(z.DistributionBuckets))
		for i, b := range z.DistributionBuckets {
			rows[i] = analysis.ZoneTime{ZoneNumber: i + 1, SecondsInZone: b.Time}
		}
		return rows
	}
	return []analysis.ZoneTime{}
}

// ZoneTypeHeartRate is the zone type carrying heart rate buckets
const ZoneTypeHeartRate = "heartrate"

// activityTypes maps an activity family to the Strava sport types it includes
var activityTypes = map[string][]string{
	"running": {"Run", "TrailRun", "VirtualRun"},
	"cycling": {"Ride", "VirtualRide", "GravelRide", "MountainBikeRide", "EBikeRide"},
	"walking": {"Walk", "Hike"},
}

// MatchesType reports whether the activity belongs to the given family.
// An unknown family is treated as a literal sport type.
func (a Activity) MatchesType(family string) bool {
	types, ok := activityTypes[family]
	if !ok {
		types = []string{family}
	}
	for _, t := range types {
		if a.SportType == t || a.Type == t {
			return true
		}
	}
	return false
}

// KnownActivityType reports whether family is a recognized activity family.
// Anything else is matched as a single Strava sport type.
func KnownActivityType(family string) bool {
	_, ok := activityTypes[family]
	return ok
}

// ActivityFamilies lists the recognized families in name order
func ActivityFamilies() []string {
	names := make([]string, 0, len(activityTypes))
	for name := range activityTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
