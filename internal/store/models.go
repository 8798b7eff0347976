package store

import "time"

// Account is a named Strava login with its OAuth tokens
type Account struct {
	Name         string    `db:"name"`
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}
