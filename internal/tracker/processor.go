package tracker

import (
	"time"

	"github.com/paulmach/orb/geo"
)

// DefaultMinInterval is the minimum gap between accepted samples
const DefaultMinInterval = 10 * time.Second

// AcceptResult is the outcome of offering a sample to a session
type AcceptResult int

const (
	// Accepted means the session was mutated
	Accepted AcceptResult = iota
	// Throttled means the sample arrived too soon and was dropped
	Throttled
	// Invalid means the sample had no usable position
	Invalid
	// Inactive means the run was not recording
	Inactive
)

// String returns the result name
func (r AcceptResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Throttled:
		return "throttled"
	case Invalid:
		return "invalid"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// DistanceFunc returns the surface distance in meters between two coordinates
type DistanceFunc func(a, b Coordinate) float64

// HaversineDistance is the default great-circle distance
func HaversineDistance(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// ProcessorOptions configures sample acceptance.
// Throttling and speed recording are independent of each other.
type ProcessorOptions struct {
	Throttle     bool
	MinInterval  time.Duration
	RecordSpeeds bool
	Distance     DistanceFunc
}

// DefaultProcessorOptions returns the canonical policy: throttled at 10s, speeds recorded
func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		Throttle:     true,
		MinInterval:  DefaultMinInterval,
		RecordSpeeds: true,
		Distance:     HaversineDistance,
	}
}

// Processor decides whether samples enter a session and applies them
type Processor struct {
	opts ProcessorOptions
}

// NewProcessor creates a processor, filling unset interval and distance with defaults
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Distance == nil {
		opts.Distance = HaversineDistance
	}
	return &Processor{opts: opts}
}

// Options returns the effective configuration
func (p *Processor) Options() ProcessorOptions {
	return p.opts
}

// Accept offers a sample to the session at time now
func (p *Processor) Accept(s *RunSession, sample PositionSample, now time.Time) AcceptResult {
	if !sample.Valid() {
		return Invalid
	}

	if p.opts.Throttle && s.lastAcceptedAt != nil && now.Sub(*s.lastAcceptedAt) < p.opts.MinInterval {
		return Throttled
	}

	if prev := s.lastAcceptedPosition; prev != nil {
		meters := p.opts.Distance(prev.Coordinate(), sample.Coordinate())
		if meters > 0 {
			s.totalDistanceKm += meters / 1000
		}

		if prev.Altitude != nil && sample.Altitude != nil {
			if climb := *sample.Altitude - *prev.Altitude; climb > 0 {
				s.elevationGainM += climb
			}
		}
	}
	if sample.Altitude != nil {
		s.hasElevation = true
	}

	accepted := sample
	acceptedAt := now
	s.lastAcceptedPosition = &accepted
	s.lastAcceptedAt = &acceptedAt

	speed := UnknownSpeed
	if p.opts.RecordSpeeds {
		speed = sample.Speed
	}
	s.appendPoint(sample.Coordinate(), speed)
	s.updatePace()

	return Accepted
}
