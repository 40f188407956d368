package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Run is a completed, persisted run
type Run struct {
	ID               string    `db:"id"` // uuid assigned at start
	Name             string    `db:"name"`
	Source           string    `db:"source"` // "live", "replay" or "stdin"
	StartedAt        time.Time `db:"started_at"`
	EndedAt          time.Time `db:"ended_at"`
	DistanceKm       float64   `db:"distance_km"`
	DurationSeconds  float64   `db:"duration_seconds"` // ticked, excludes pauses
	PaceMinPerKm     float64   `db:"pace_min_per_km"`
	Calories         int       `db:"calories"`
	ElevationGainM   *float64  `db:"elevation_gain_m"`   // nullable
	AvgHeartrate     *float64  `db:"avg_heartrate"`      // nullable
	MaxHeartrate     *int      `db:"max_heartrate"`      // nullable
	StravaActivityID *int64    `db:"strava_activity_id"` // nil until uploaded
}

// Uploaded reports whether the run has been pushed to Strava
func (r *Run) Uploaded() bool {
	return r.StravaActivityID != nil
}

// RunPoint is one accepted route coordinate
type RunPoint struct {
	RunID string   `db:"run_id"`
	Seq   int      `db:"seq"`
	Lat   float64  `db:"lat"`
	Lon   float64  `db:"lon"`
	Speed *float64 `db:"speed"` // m/s, nil when unknown
}

// PersonalRecord is the best run for a category
type PersonalRecord struct {
	ID              int64     `db:"id"`
	Category        string    `db:"category"` // e.g. "longest_run", "fastest_5k_pace"
	RunID           string    `db:"run_id"`
	DistanceKm      float64   `db:"distance_km"`
	DurationSeconds float64   `db:"duration_seconds"`
	PaceMinPerKm    *float64  `db:"pace_min_per_km"`
	AchievedAt      time.Time `db:"achieved_at"`
}
