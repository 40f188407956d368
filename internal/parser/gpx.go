package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"time"

	"pacetrack/internal/tracker"
)

// gpxFile is the subset of GPX 1.1 we read
type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
	// Garmin TrackPointExtension; namespace prefixes are ignored by encoding/xml
	HR    *int     `xml:"extensions>TrackPointExtension>hr"`
	Speed *float64 `xml:"extensions>TrackPointExtension>speed"`
}

// GPXParser decodes GPX 1.1 tracks
type GPXParser struct{}

// Parse reads every track point of every segment.
// Speed comes from the TrackPointExtension when present, otherwise it is
// derived from the distance and time to the previous point.
func (p *GPXParser) Parse(r io.Reader) (*Track, error) {
	var doc gpxFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding gpx: %w", err)
	}

	track := &Track{}
	for _, trk := range doc.Tracks {
		if track.Name == "" {
			track.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			var prev tracker.PositionSample
			havePrev := false
			for _, pt := range seg.Points {
				ts, err := parseGPXTime(pt.Time)
				if err != nil {
					return nil, err
				}

				sample := tracker.PositionSample{
					Latitude:  pt.Lat,
					Longitude: pt.Lon,
					Timestamp: ts,
					Altitude:  pt.Ele,
					Speed:     tracker.UnknownSpeed,
				}
				switch {
				case pt.Speed != nil:
					sample.Speed = *pt.Speed
				case havePrev:
					sample.Speed = derivedSpeed(prev, sample)
				}

				track.Samples = append(track.Samples, sample)
				prev, havePrev = sample, true

				if pt.HR != nil {
					track.HeartRates = append(track.HeartRates, tracker.HeartRateSample{BPM: *pt.HR, Timestamp: ts})
				}
			}
		}
	}

	if len(track.Samples) == 0 {
		return nil, ErrNoTrackData
	}
	track.sortByTime()
	return track, nil
}

func parseGPXTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return ts, nil
}

// derivedSpeed is distance over time between two fixes; unknown when time is missing
func derivedSpeed(prev, cur tracker.PositionSample) float64 {
	if prev.Timestamp.IsZero() || cur.Timestamp.IsZero() {
		return math.NaN()
	}
	dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 {
		return math.NaN()
	}
	return tracker.HaversineDistance(prev.Coordinate(), cur.Coordinate()) / dt
}
