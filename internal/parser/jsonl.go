package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"pacetrack/internal/tracker"
)

// Line is one JSON-lines record. Position fields and hr are independent:
// a line may carry a fix, a heart-rate reading, or both.
type Line struct {
	Lat   *float64  `json:"lat"`
	Lon   *float64  `json:"lon"`
	Speed *float64  `json:"speed"`
	Alt   *float64  `json:"alt"`
	HR    *int      `json:"hr"`
	Time  time.Time `json:"time"`
}

// HasPosition reports whether the line carries a fix
func (l Line) HasPosition() bool {
	return l.Lat != nil && l.Lon != nil
}

// Sample converts the line's fix; speed defaults to unknown
func (l Line) Sample() tracker.PositionSample {
	s := tracker.PositionSample{
		Latitude:  *l.Lat,
		Longitude: *l.Lon,
		Timestamp: l.Time,
		Speed:     math.NaN(),
		Altitude:  l.Alt,
	}
	if l.Speed != nil {
		s.Speed = *l.Speed
	}
	return s
}

// DecodeLine parses a single JSON line
func DecodeLine(raw string) (Line, error) {
	var l Line
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return Line{}, fmt.Errorf("decoding line: %w", err)
	}
	return l, nil
}

// JSONLParser decodes newline-delimited JSON recordings
type JSONLParser struct{}

// Parse reads all lines; blank lines and lines without data are skipped
func (p *JSONLParser) Parse(r io.Reader) (*Track, error) {
	track := &Track{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		l, err := DecodeLine(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if l.HasPosition() {
			track.Samples = append(track.Samples, l.Sample())
		}
		if l.HR != nil {
			track.HeartRates = append(track.HeartRates, tracker.HeartRateSample{BPM: *l.HR, Timestamp: l.Time})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}

	if len(track.Samples) == 0 {
		return nil, ErrNoTrackData
	}
	track.sortByTime()
	return track, nil
}
