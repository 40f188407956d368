package tracker

import "time"

// Snapshot is a read-only copy of a run's live state
type Snapshot struct {
	RunID          string
	State          State
	StartedAt      time.Time
	DistanceKm     float64
	ElapsedSeconds float64
	PaceMinPerKm   float64
	Calories       int
	Route          []Coordinate
	Speeds         []float64
	CurrentSpeed   float64     // speed of the last accepted sample, NaN when unknown
	Center         *Coordinate // last accepted position, nil before the first fix
	ElevationGainM *float64    // nil when no sample carried altitude
	HeartRate      *int        // nil when no reading arrived
}

// Segments returns the colored route segments
func (s Snapshot) Segments() []Segment {
	return Segments(s.Route, s.Speeds)
}

// Summary is the frozen result of a completed run
type Summary struct {
	RunID           string
	StartedAt       time.Time
	EndedAt         time.Time
	DistanceKm      float64
	DurationSeconds float64
	PaceMinPerKm    float64
	Calories        int
	ElevationGainM  *float64
	AvgHeartRate    *float64
	MaxHeartRate    *int
	Route           []Coordinate
	Speeds          []float64
}

// Segments returns the colored route segments
func (s Summary) Segments() []Segment {
	return Segments(s.Route, s.Speeds)
}

// AverageSpeed returns the mean speed in m/s over the ticked duration
func (s Summary) AverageSpeed() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return s.DistanceKm * 1000 / s.DurationSeconds
}
