// Package route exports recorded runs as GeoJSON for map renderers.
package route

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"pacetrack/internal/tracker"
)

// LineString converts a route to an orb line string
func LineString(coords []tracker.Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		ls = append(ls, c.Point())
	}
	return ls
}

// Bound returns the bounding box of a route; ok is false for an empty route
func Bound(coords []tracker.Coordinate) (orb.Bound, bool) {
	if len(coords) == 0 {
		return orb.Bound{}, false
	}
	return LineString(coords).Bound(), true
}

// FeatureCollection builds one LineString feature per colored segment,
// plus a Point feature for the current position when center is set.
func FeatureCollection(coords []tracker.Coordinate, speeds []float64, center *tracker.Coordinate) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, seg := range tracker.Segments(coords, speeds) {
		f := geojson.NewFeature(orb.LineString{seg.From.Point(), seg.To.Point()})
		f.Properties["index"] = i
		f.Properties["bucket"] = seg.Bucket.String()
		f.Properties["color"] = seg.Bucket.Color()
		if tracker.SpeedKnown(seg.Speed) {
			f.Properties["speed_mps"] = seg.Speed
		} else {
			f.Properties["speed_mps"] = nil
		}
		fc.Append(f)
	}

	if center != nil {
		f := geojson.NewFeature(center.Point())
		f.Properties["kind"] = "position"
		fc.Append(f)
	}

	return fc
}

// FromSnapshot exports a live run
func FromSnapshot(s tracker.Snapshot) *geojson.FeatureCollection {
	return FeatureCollection(s.Route, s.Speeds, s.Center)
}

// FromSummary exports a completed run
func FromSummary(s tracker.Summary) *geojson.FeatureCollection {
	return FeatureCollection(s.Route, s.Speeds, nil)
}
