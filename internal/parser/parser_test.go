package parser

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"
  xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
  <trk>
    <name>Morning Run</name>
    <trkseg>
      <trkpt lat="0.0" lon="0.0"><ele>10</ele><time>2024-05-01T07:00:00Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>120</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
      <trkpt lat="0.0" lon="0.001"><ele>12</ele><time>2024-05-01T07:00:40Z</time></trkpt>
      <trkpt lat="0.0" lon="0.002"><time>2024-05-01T07:01:20Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>135</gpxtpx:hr><gpxtpx:speed>3.2</gpxtpx:speed></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestGPXParser(t *testing.T) {
	track, err := (&GPXParser{}).Parse(strings.NewReader(sampleGPX))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if track.Name != "Morning Run" {
		t.Errorf("Name = %q, want %q", track.Name, "Morning Run")
	}
	if len(track.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(track.Samples))
	}
	if len(track.HeartRates) != 2 {
		t.Errorf("heart rates = %d, want 2", len(track.HeartRates))
	}

	first := track.Samples[0]
	if !math.IsNaN(first.Speed) {
		t.Errorf("first speed = %v, want unknown", first.Speed)
	}
	if first.Altitude == nil || *first.Altitude != 10 {
		t.Errorf("first altitude = %v, want 10", first.Altitude)
	}

	// ~111 m in 40 s
	if s := track.Samples[1].Speed; math.Abs(s-2.78) > 0.05 {
		t.Errorf("derived speed = %v, want ~2.78", s)
	}
	if s := track.Samples[2].Speed; s != 3.2 {
		t.Errorf("extension speed = %v, want 3.2", s)
	}
	if track.Samples[2].Altitude != nil {
		t.Error("point without <ele> should have nil altitude")
	}
}

func TestGPXParserEmpty(t *testing.T) {
	_, err := (&GPXParser{}).Parse(strings.NewReader(`<?xml version="1.0"?><gpx><trk><trkseg></trkseg></trk></gpx>`))
	if !errors.Is(err, ErrNoTrackData) {
		t.Errorf("error = %v, want ErrNoTrackData", err)
	}
}

func TestJSONLParser(t *testing.T) {
	input := `{"lat":0,"lon":0,"speed":2.5,"time":"2024-05-01T07:00:00Z"}

{"hr":140,"time":"2024-05-01T07:00:05Z"}
{"lat":0,"lon":0.001,"alt":15,"hr":142,"time":"2024-05-01T07:00:10Z"}
`
	track, err := (&JSONLParser{}).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(track.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(track.Samples))
	}
	if len(track.HeartRates) != 2 {
		t.Errorf("heart rates = %d, want 2", len(track.HeartRates))
	}
	if track.Samples[0].Speed != 2.5 {
		t.Errorf("speed = %v, want 2.5", track.Samples[0].Speed)
	}
	if !math.IsNaN(track.Samples[1].Speed) {
		t.Errorf("missing speed = %v, want NaN", track.Samples[1].Speed)
	}
	if track.Samples[1].Altitude == nil || *track.Samples[1].Altitude != 15 {
		t.Error("altitude not decoded")
	}
}

func TestJSONLParserBadLine(t *testing.T) {
	_, err := (&JSONLParser{}).Parse(strings.NewReader("{\"lat\":0,\"lon\":0}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %v, want line 2 failure", err)
	}
}

func TestDetectFileTypeFromData(t *testing.T) {
	fitHeader := []byte{14, 0x10, 0, 0, 0, 0, 0, 0, '.', 'F', 'I', 'T', 0, 0}

	tests := []struct {
		name string
		data []byte
		want FileType
	}{
		{"fit", fitHeader, FileTypeFIT},
		{"gpx with prolog", []byte(sampleGPX), FileTypeGPX},
		{"gpx without prolog", []byte(`<gpx version="1.1"></gpx>`), FileTypeGPX},
		{"jsonl", []byte(`{"lat":1,"lon":2}`), FileTypeJSONL},
		{"tcx", []byte(`<?xml version="1.0"?><TrainingCenterDatabase/>`), FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileTypeFromData(tt.data); got != tt.want {
				t.Errorf("DetectFileTypeFromData = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFileNameFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tempo.jsonl")
	if err := os.WriteFile(path, []byte(`{"lat":1,"lon":2}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	track, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if track.Name != "tempo" {
		t.Errorf("Name = %q, want file base name", track.Name)
	}
}

func TestParseFileUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(path); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}
