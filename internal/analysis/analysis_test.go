package analysis

import (
	"math"
	"testing"
	"time"

	"pacetrack/internal/store"
)

func TestPredict(t *testing.T) {
	// 5K in 19:00 is VDOT 50
	preds := Predict(5.0, 1140)
	if len(preds) != 3 {
		t.Fatalf("predictions = %d, want 3 (5k target skipped)", len(preds))
	}

	byName := map[string]RacePrediction{}
	for _, p := range preds {
		byName[p.TargetName] = p
	}
	if _, ok := byName["5k"]; ok {
		t.Error("5k target should be skipped for a 5k run")
	}

	tenK := byName["10k"]
	if abs(tenK.PredictedSeconds-2364) > 60 {
		t.Errorf("10k prediction = %v, want ~39:24", formatDuration(tenK.PredictedSeconds))
	}
	if math.Abs(tenK.PredictedPace-float64(tenK.PredictedSeconds)/60/10) > 1e-9 {
		t.Errorf("10k pace = %v, inconsistent with time", tenK.PredictedPace)
	}
	if tenK.Confidence != "high" {
		t.Errorf("10k confidence = %q, want high", tenK.Confidence)
	}
	if m := byName["marathon"]; m.Confidence != "medium" {
		t.Errorf("marathon confidence = %q, want medium", m.Confidence)
	}
}

func TestPredictTooShort(t *testing.T) {
	tests := []struct {
		name     string
		km       float64
		duration float64
	}{
		{"short jog", 1.0, 300},
		{"no duration", 5.0, 0},
		{"no distance", 0, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Predict(tt.km, tt.duration); got != nil {
				t.Errorf("Predict(%v, %v) = %v, want nil", tt.km, tt.duration, got)
			}
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name   string
		source float64
		target float64
		want   string
	}{
		{"same distance", Distance10K, Distance10K, "high"},
		{"double", Distance5K, Distance10K, "high"},
		{"5k to half", Distance5K, DistanceHalfMara, "medium"},
		{"short source", 2000, Distance5K, "medium"},
		{"short source to marathon", 2000, DistanceMarathon, "low"},
		{"no source", 0, Distance5K, "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := CalculateConfidence(tt.source, tt.target); got != tt.want {
				t.Errorf("CalculateConfidence(%v, %v) = %q, want %q", tt.source, tt.target, got, tt.want)
			}
		})
	}
}

func TestTRIMP(t *testing.T) {
	zones := DefaultZones()
	hr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		duration float64
		avgHR    *float64
		want     float64
	}{
		{"no heart rate", 3600, nil, 0},
		{"no duration", 0, hr(150), 0},
		{"below resting", 3600, hr(40), 0},
		{"at max", 3600, hr(185), 60 * math.Exp(1.92)},
		{"hour at 150", 3600, hr(150), 60 * (100.0 / 135) * math.Exp(1.92*100.0/135)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TRIMP(tt.duration, tt.avgHR, zones)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("TRIMP = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyLoadsAndFitness(t *testing.T) {
	hr := 150.0
	day := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{StartedAt: day.AddDate(0, 0, 2), DurationSeconds: 1800, AvgHeartrate: &hr},
		{StartedAt: day, DurationSeconds: 1800, AvgHeartrate: &hr},
		{StartedAt: day.Add(10 * time.Hour), DurationSeconds: 1800, AvgHeartrate: &hr},
		{StartedAt: day.AddDate(0, 0, 1), DurationSeconds: 1800}, // no HR
	}

	loads := DailyLoads(runs, DefaultZones())
	if len(loads) != 3 {
		t.Fatalf("daily loads = %d, want 3", len(loads))
	}
	single := TRIMP(1800, &hr, DefaultZones())
	if math.Abs(loads[0].TRIMP-2*single) > 1e-9 {
		t.Errorf("first day TRIMP = %v, want two runs summed (%v)", loads[0].TRIMP, 2*single)
	}
	if loads[1].TRIMP != 0 {
		t.Errorf("run without HR contributed %v", loads[1].TRIMP)
	}

	until := day.AddDate(0, 0, 9)
	trend := CalculateFitnessTrend(loads, until)
	if len(trend) != 10 {
		t.Fatalf("trend days = %d, want 10", len(trend))
	}
	for i := 1; i < len(trend); i++ {
		if !trend[i].Date.After(trend[i-1].Date) {
			t.Fatalf("trend not in date order at %d", i)
		}
	}

	current := GetCurrentFitness(loads, until)
	if current.TSB <= 0 {
		t.Errorf("TSB after a week of rest = %v, want positive", current.TSB)
	}
	if FormDescription(current.TSB) == "" {
		t.Error("FormDescription returned empty string")
	}
}

func TestRecordCandidates(t *testing.T) {
	run := &store.Run{
		ID:              "r1",
		DistanceKm:      5.1,
		DurationSeconds: 1500,
		PaceMinPerKm:    1500.0 / 60 / 5.1,
		StartedAt:       time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC),
	}

	got := map[string]store.CompareMode{}
	for _, c := range RecordCandidates(run) {
		got[c.Record.Category] = c.Mode
		if c.Record.RunID != "r1" {
			t.Errorf("%s RunID = %q, want r1", c.Record.Category, c.Record.RunID)
		}
	}

	want := map[string]store.CompareMode{
		CategoryLongestRun:  store.CompareDistance,
		CategoryLongestTime: store.CompareDuration,
		CategoryFastestPace: store.ComparePace,
		"distance_5k":       store.ComparePace,
	}
	if len(got) != len(want) {
		t.Errorf("categories = %v, want %v", got, want)
	}
	for cat, mode := range want {
		if got[cat] != mode {
			t.Errorf("%s mode = %v, want %v", cat, got[cat], mode)
		}
	}
}

func TestRecordCandidatesShortRun(t *testing.T) {
	run := &store.Run{ID: "r1", DistanceKm: 0.5, DurationSeconds: 200, PaceMinPerKm: 6.6}
	for _, c := range RecordCandidates(run) {
		if c.Record.Category == CategoryFastestPace {
			t.Error("short run should not compete for fastest pace")
		}
	}

	if got := RecordCandidates(&store.Run{ID: "empty"}); got != nil {
		t.Errorf("zero-distance run candidates = %v, want nil", got)
	}
}
