// Package parser decodes recorded tracks (GPX, FIT, JSON lines) into
// position and heart-rate samples that can be replayed into a run.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pacetrack/internal/tracker"
)

// ErrNoTrackData is returned when a file decodes but holds no positions
var ErrNoTrackData = errors.New("no track data found")

// ErrUnknownFormat is returned when the file type cannot be detected
var ErrUnknownFormat = errors.New("unknown track format")

// Track is a decoded recording
type Track struct {
	Name       string
	Samples    []tracker.PositionSample
	HeartRates []tracker.HeartRateSample
}

// Parser decodes one track format
type Parser interface {
	Parse(r io.Reader) (*Track, error)
}

// ForType returns the parser for a detected file type
func ForType(ft FileType) (Parser, error) {
	switch ft {
	case FileTypeGPX:
		return &GPXParser{}, nil
	case FileTypeFIT:
		return &FITParser{}, nil
	case FileTypeJSONL:
		return &JSONLParser{}, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// ParseFile detects the format of a file and decodes it
func ParseFile(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading track file: %w", err)
	}

	ft := DetectFileTypeFromData(data)
	if ft == FileTypeUnknown {
		ft = fileTypeFromExt(path)
	}

	p, err := ForType(ft)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	track, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s track: %w", ft, err)
	}
	if track.Name == "" {
		track.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return track, nil
}

// sortByTime orders samples chronologically; recorders occasionally emit out of order
func (t *Track) sortByTime() {
	sort.SliceStable(t.Samples, func(i, j int) bool {
		return t.Samples[i].Timestamp.Before(t.Samples[j].Timestamp)
	})
	sort.SliceStable(t.HeartRates, func(i, j int) bool {
		return t.HeartRates[i].Timestamp.Before(t.HeartRates[j].Timestamp)
	})
}

func fileTypeFromExt(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return FileTypeGPX
	case ".fit":
		return FileTypeFIT
	case ".jsonl", ".ndjson":
		return FileTypeJSONL
	default:
		return FileTypeUnknown
	}
}
