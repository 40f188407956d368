package strava

import "time"

// Activity represents a Strava activity from the API
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	Manual             bool      `json:"manual"`
}

// Athlete represents a Strava athlete
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// DisplayName returns "First Last", falling back to the username
func (a Athlete) DisplayName() string {
	name := a.Firstname
	if a.Lastname != "" {
		if name != "" {
			name += " "
		}
		name += a.Lastname
	}
	if name == "" {
		return a.Username
	}
	return name
}

// NewActivity is a manual activity to create, in the units Strava expects
type NewActivity struct {
	Name           string
	SportType      string // "Run"
	StartDateLocal time.Time
	ElapsedTime    int     // seconds
	Distance       float64 // meters
	Description    string
}
