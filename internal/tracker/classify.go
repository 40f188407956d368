package tracker

import "math"

// Speed thresholds in m/s for route coloring
const (
	SlowSpeedLimit   = 1.5
	MediumSpeedLimit = 3.5
)

// SpeedBucket is the display class of a route segment
type SpeedBucket int

const (
	BucketUnknown SpeedBucket = iota
	BucketSlow
	BucketMedium
	BucketFast
)

// String returns the bucket name
func (b SpeedBucket) String() string {
	switch b {
	case BucketSlow:
		return "slow"
	case BucketMedium:
		return "medium"
	case BucketFast:
		return "fast"
	default:
		return "unknown"
	}
}

// Color returns the hex color used to draw segments in this bucket
func (b SpeedBucket) Color() string {
	switch b {
	case BucketSlow:
		return "#EF4444" // red
	case BucketMedium:
		return "#F59E0B" // yellow
	case BucketFast:
		return "#10B981" // green
	default:
		return "#3B82F6" // blue
	}
}

// Classify maps an instantaneous speed (m/s) to a bucket.
// Missing speeds (negative, NaN, infinite) are Unknown, never Slow.
func Classify(speed float64) SpeedBucket {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return BucketUnknown
	}
	switch {
	case speed < SlowSpeedLimit:
		return BucketSlow
	case speed < MediumSpeedLimit:
		return BucketMedium
	default:
		return BucketFast
	}
}

// Segment is the line between two consecutive route coordinates
type Segment struct {
	From   Coordinate
	To     Coordinate
	Speed  float64 // speed recorded at From
	Bucket SpeedBucket
}

// Segments derives the colored segments of a route.
// coords and speeds are parallel; extra entries in either are ignored.
func Segments(coords []Coordinate, speeds []float64) []Segment {
	n := len(coords)
	if len(speeds) < n {
		n = len(speeds)
	}
	if n < 2 {
		return nil
	}

	segments := make([]Segment, 0, n-1)
	for i := 0; i < n-1; i++ {
		segments = append(segments, Segment{
			From:   coords[i],
			To:     coords[i+1],
			Speed:  speeds[i],
			Bucket: Classify(speeds[i]),
		})
	}
	return segments
}

// BucketShares returns the fraction of segments in each bucket
func BucketShares(segments []Segment) map[SpeedBucket]float64 {
	shares := make(map[SpeedBucket]float64)
	if len(segments) == 0 {
		return shares
	}
	for _, s := range segments {
		shares[s.Bucket]++
	}
	for b := range shares {
		shares[b] /= float64(len(segments))
	}
	return shares
}
