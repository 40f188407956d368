package parser

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"pacetrack/internal/tracker"
)

// FITParser decodes Garmin FIT activity files
type FITParser struct{}

// Parse reads the record messages of an activity file
func (p *FITParser) Parse(r io.Reader) (*Track, error) {
	fitFile, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding fit: %w", err)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, fmt.Errorf("reading fit activity: %w", err)
	}

	track := &Track{}
	for _, rec := range activity.Records {
		if rec.HeartRate != 0xFF && rec.HeartRate > 0 {
			track.HeartRates = append(track.HeartRates, tracker.HeartRateSample{
				BPM:       int(rec.HeartRate),
				Timestamp: rec.Timestamp,
			})
		}

		// Indoor or pre-fix records carry no position
		if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}

		sample := tracker.PositionSample{
			Latitude:  rec.PositionLat.Degrees(),
			Longitude: rec.PositionLong.Degrees(),
			Timestamp: rec.Timestamp,
			Speed:     recordSpeed(rec),
		}
		if alt := recordAltitude(rec); !math.IsNaN(alt) {
			sample.Altitude = &alt
		}
		track.Samples = append(track.Samples, sample)
	}

	if len(track.Samples) == 0 {
		return nil, ErrNoTrackData
	}
	track.sortByTime()
	return track, nil
}

// recordSpeed prefers the 32-bit enhanced field; NaN marks an invalid value
func recordSpeed(rec *fit.RecordMsg) float64 {
	if s := rec.GetEnhancedSpeedScaled(); !math.IsNaN(s) {
		return s
	}
	return rec.GetSpeedScaled()
}

func recordAltitude(rec *fit.RecordMsg) float64 {
	if a := rec.GetEnhancedAltitudeScaled(); !math.IsNaN(a) {
		return a
	}
	return rec.GetAltitudeScaled()
}
