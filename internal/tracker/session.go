package tracker

import "time"

// RunSession holds the mutable state of one run.
// It has a single owner and no internal locking.
type RunSession struct {
	totalDistanceKm      float64
	routeCoordinates     []Coordinate
	segmentSpeeds        []float64
	lastAcceptedPosition *PositionSample
	lastAcceptedAt       *time.Time
	elapsedSeconds       float64
	currentPaceMinPerKm  float64

	elevationGainM float64
	hasElevation   bool

	heartRate    *int
	heartRateN   int
	heartRateSum int
	heartRateMax int
}

// NewRunSession returns an empty session
func NewRunSession() *RunSession {
	return &RunSession{}
}

// TotalDistanceKm returns the accumulated distance
func (s *RunSession) TotalDistanceKm() float64 { return s.totalDistanceKm }

// ElapsedSeconds returns the ticked duration
func (s *RunSession) ElapsedSeconds() float64 { return s.elapsedSeconds }

// CurrentPaceMinPerKm returns the last computed pace
func (s *RunSession) CurrentPaceMinPerKm() float64 { return s.currentPaceMinPerKm }

// RouteCoordinates returns a copy of the recorded route
func (s *RunSession) RouteCoordinates() []Coordinate {
	out := make([]Coordinate, len(s.routeCoordinates))
	copy(out, s.routeCoordinates)
	return out
}

// SegmentSpeeds returns a copy of the speeds parallel to the route
func (s *RunSession) SegmentSpeeds() []float64 {
	out := make([]float64, len(s.segmentSpeeds))
	copy(out, s.segmentSpeeds)
	return out
}

// LastAcceptedPosition returns the most recently accepted sample, if any
func (s *RunSession) LastAcceptedPosition() (PositionSample, bool) {
	if s.lastAcceptedPosition == nil {
		return PositionSample{}, false
	}
	return *s.lastAcceptedPosition, true
}

// LastAcceptedAt returns when the last sample was accepted, if any
func (s *RunSession) LastAcceptedAt() (time.Time, bool) {
	if s.lastAcceptedAt == nil {
		return time.Time{}, false
	}
	return *s.lastAcceptedAt, true
}

// ElevationGainM returns the climbed meters and whether any altitude data was seen
func (s *RunSession) ElevationGainM() (float64, bool) {
	return s.elevationGainM, s.hasElevation
}

// HeartRate returns the latest reading, or nil when none arrived
func (s *RunSession) HeartRate() *int {
	if s.heartRate == nil {
		return nil
	}
	hr := *s.heartRate
	return &hr
}

// AverageHeartRate returns the mean of all readings, or nil when none arrived
func (s *RunSession) AverageHeartRate() *float64 {
	if s.heartRateN == 0 {
		return nil
	}
	avg := float64(s.heartRateSum) / float64(s.heartRateN)
	return &avg
}

// MaxHeartRate returns the highest reading, or nil when none arrived
func (s *RunSession) MaxHeartRate() *int {
	if s.heartRateN == 0 {
		return nil
	}
	hr := s.heartRateMax
	return &hr
}

// Tick advances the duration by one second and recomputes pace
func (s *RunSession) Tick() {
	s.elapsedSeconds++
	s.updatePace()
}

// updatePace leaves the previous pace in place while no distance is recorded
func (s *RunSession) updatePace() {
	if s.totalDistanceKm > 0 {
		s.currentPaceMinPerKm = s.elapsedSeconds / 60 / s.totalDistanceKm
	}
}

// RecordHeartRate stores a heart-rate reading
func (s *RunSession) RecordHeartRate(bpm int) {
	s.heartRate = &bpm
	s.heartRateN++
	s.heartRateSum += bpm
	if bpm > s.heartRateMax {
		s.heartRateMax = bpm
	}
}

// Reset clears every field back to the empty state
func (s *RunSession) Reset() {
	*s = RunSession{}
}

// appendPoint keeps routeCoordinates and segmentSpeeds the same length
func (s *RunSession) appendPoint(c Coordinate, speed float64) {
	s.routeCoordinates = append(s.routeCoordinates, c)
	s.segmentSpeeds = append(s.segmentSpeeds, speed)
}
