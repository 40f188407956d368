package tracker

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// PositionSample is one reported device position
type PositionSample struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Speed     float64  // m/s, negative or NaN when unknown
	Altitude  *float64 // meters, nil when not reported
}

// Coordinate returns the sample's position
func (s PositionSample) Coordinate() Coordinate {
	return Coordinate{Lat: s.Latitude, Lon: s.Longitude}
}

// Valid reports whether latitude and longitude are finite and in range
func (s PositionSample) Valid() bool {
	if math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) ||
		math.IsInf(s.Latitude, 0) || math.IsInf(s.Longitude, 0) {
		return false
	}
	return s.Latitude >= -90 && s.Latitude <= 90 && s.Longitude >= -180 && s.Longitude <= 180
}

// HasSpeed reports whether the sample carries a usable speed
func (s PositionSample) HasSpeed() bool {
	return SpeedKnown(s.Speed)
}

// SpeedKnown reports whether a recorded speed is a real measurement
func SpeedKnown(speed float64) bool {
	return !math.IsNaN(speed) && !math.IsInf(speed, 0) && speed >= 0
}

// UnknownSpeed is the sentinel stored when a speed is missing or not recorded
var UnknownSpeed = math.NaN()

// Coordinate is a latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point converts to an orb point (lon, lat order)
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// HeartRateSample is one heart-rate reading in beats per minute
type HeartRateSample struct {
	BPM       int
	Timestamp time.Time
}

// Valid reports whether the reading is physiologically plausible
func (h HeartRateSample) Valid() bool {
	return h.BPM > 20 && h.BPM < 250
}
