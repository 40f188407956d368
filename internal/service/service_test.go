package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pacetrack/internal/analysis"
	"pacetrack/internal/config"
	"pacetrack/internal/metrics"
	"pacetrack/internal/store"
	"pacetrack/internal/strava"
	"pacetrack/internal/tracker"
)

var t0 = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testSummary(id string, km, seconds float64) tracker.Summary {
	hr := 148.0
	maxHR := 171
	return tracker.Summary{
		RunID:           id,
		StartedAt:       t0,
		EndedAt:         t0.Add(time.Duration(seconds) * time.Second),
		DistanceKm:      km,
		DurationSeconds: seconds,
		PaceMinPerKm:    seconds / 60 / km,
		Calories:        int(km * 60),
		AvgHeartRate:    &hr,
		MaxHeartRate:    &maxHR,
		Route: []tracker.Coordinate{
			{Lat: 52.5200, Lon: 13.4050},
			{Lat: 52.5210, Lon: 13.4060},
			{Lat: 52.5220, Lon: 13.4070},
		},
		Speeds: []float64{math.NaN(), 3.2, 2.1},
	}
}

func TestRecordAndRoute(t *testing.T) {
	st := setupTestStore(t)
	svc := NewRunService(st, config.AthleteConfig{}, nil)

	res, err := svc.Record(testSummary("run-1", 5.02, 1500), "", SourceReplay)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.Run.Name != DefaultRunName(t0) {
		t.Errorf("Name = %q, want default %q", res.Run.Name, DefaultRunName(t0))
	}
	if len(res.NewRecords) != 4 {
		t.Errorf("NewRecords = %v, want 4 categories for a first 5K", res.NewRecords)
	}

	got, err := svc.Get("run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Source != SourceReplay || got.Calories != 301 {
		t.Errorf("run = %+v", got)
	}

	coords, speeds, err := svc.Route("run-1")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(coords) != 3 || len(speeds) != 3 {
		t.Fatalf("route lengths = %d, %d, want 3, 3", len(coords), len(speeds))
	}
	if !math.IsNaN(speeds[0]) {
		t.Errorf("speeds[0] = %v, want NaN for unknown", speeds[0])
	}
	if speeds[1] != 3.2 || coords[2].Lat != 52.5220 {
		t.Errorf("route = %v %v", coords, speeds)
	}

	sum, err := svc.Summary("run-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.MaxHeartRate == nil || *sum.MaxHeartRate != 171 || len(sum.Segments()) != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRecordEmptyRun(t *testing.T) {
	svc := NewRunService(setupTestStore(t), config.AthleteConfig{}, nil)
	_, err := svc.Record(tracker.Summary{RunID: "empty", StartedAt: t0}, "", SourceLive)
	if !errors.Is(err, ErrEmptyRun) {
		t.Errorf("Record(empty) error = %v, want ErrEmptyRun", err)
	}
}

func TestRecordOnlyBeatsWorseRecords(t *testing.T) {
	st := setupTestStore(t)
	svc := NewRunService(st, config.AthleteConfig{}, nil)

	if _, err := svc.Record(testSummary("long", 12, 4200), "Long Run", SourceLive); err != nil {
		t.Fatalf("Record long: %v", err)
	}
	res, err := svc.Record(testSummary("fast", 5, 1200), "Tempo", SourceLive)
	if err != nil {
		t.Fatalf("Record fast: %v", err)
	}

	got := map[string]bool{}
	for _, c := range res.NewRecords {
		got[c] = true
	}
	if got[analysis.CategoryLongestRun] || got[analysis.CategoryLongestTime] {
		t.Errorf("shorter run took distance/time records: %v", res.NewRecords)
	}
	if !got[analysis.CategoryFastestPace] || !got["distance_5k"] {
		t.Errorf("faster run missed pace records: %v", res.NewRecords)
	}

	views, err := svc.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	for _, v := range views {
		if v.Category == analysis.CategoryLongestRun && v.RunName != "Long Run" {
			t.Errorf("longest run record = %+v, want run name Long Run", v)
		}
		if v.Label == "" {
			t.Errorf("record %s has no label", v.Category)
		}
	}
}

func TestHistoryLimits(t *testing.T) {
	st := setupTestStore(t)
	svc := NewRunService(st, config.AthleteConfig{}, nil)
	for i, id := range []string{"a", "b", "c"} {
		s := testSummary(id, 3, 900)
		s.StartedAt = t0.Add(time.Duration(i) * time.Hour)
		if _, err := svc.Record(s, "", SourceLive); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	tests := []struct {
		limit, offset int
		want          []string
	}{
		{0, 0, []string{"c", "b", "a"}},
		{2, 0, []string{"c", "b"}},
		{2, 2, []string{"a"}},
		{5, -1, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		runs, err := svc.History(tt.limit, tt.offset)
		if err != nil {
			t.Fatalf("History(%d, %d): %v", tt.limit, tt.offset, err)
		}
		var ids []string
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("History(%d, %d) = %v, want %v", tt.limit, tt.offset, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("History(%d, %d) = %v, want %v", tt.limit, tt.offset, ids, tt.want)
				break
			}
		}
	}
}

func TestRouteNotFound(t *testing.T) {
	svc := NewRunService(setupTestStore(t), config.AthleteConfig{}, nil)
	if _, _, err := svc.Route("missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("Route(missing) error = %v, want ErrRunNotFound", err)
	}
	if _, err := svc.Predictions("missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("Predictions(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestFitnessAndPredictions(t *testing.T) {
	st := setupTestStore(t)
	svc := NewRunService(st, config.AthleteConfig{RestingHR: 55, MaxHR: 190}, nil)
	if _, err := svc.Record(testSummary("run-1", 5, 1140), "", SourceLive); err != nil {
		t.Fatalf("Record: %v", err)
	}

	fit, err := svc.Fitness(t0.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	if len(fit.Trend) != 4 {
		t.Errorf("trend days = %d, want 4", len(fit.Trend))
	}
	if fit.Current.CTL <= 0 || fit.Description == "" {
		t.Errorf("current fitness = %+v (%q)", fit.Current, fit.Description)
	}

	preds, err := svc.Predictions("run-1")
	if err != nil {
		t.Fatalf("Predictions: %v", err)
	}
	if len(preds) != 3 {
		t.Errorf("predictions = %d, want 3", len(preds))
	}
}

func TestDefaultRunName(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{6, "Morning Run"},
		{13, "Afternoon Run"},
		{19, "Evening Run"},
		{23, "Night Run"},
		{2, "Night Run"},
	}
	for _, tt := range tests {
		at := time.Date(2024, 5, 1, tt.hour, 30, 0, 0, time.Local)
		if got := DefaultRunName(at); got != tt.want {
			t.Errorf("DefaultRunName(%02d:30) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

type fakeCreator struct {
	created []strava.NewActivity
	failOn  string
	nextID  int64
}

func (f *fakeCreator) CreateActivity(_ context.Context, a strava.NewActivity) (*strava.Activity, error) {
	if a.Name == f.failOn {
		return nil, &strava.APIError{StatusCode: 500, Body: "boom"}
	}
	f.created = append(f.created, a)
	f.nextID++
	return &strava.Activity{ID: f.nextID, Name: a.Name}, nil
}

func TestUploadPending(t *testing.T) {
	st := setupTestStore(t)
	runs := NewRunService(st, config.AthleteConfig{}, nil)
	for i, name := range []string{"first", "broken", "third"} {
		s := testSummary(name, 4, 1300)
		s.StartedAt = t0.Add(time.Duration(i) * time.Hour)
		if _, err := runs.Record(s, name, SourceLive); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	creator := &fakeCreator{failOn: "broken"}
	up := NewUploadService(creator, st, reg, 10, nil)

	res, err := up.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("UploadPending: %v", err)
	}
	if res.Pending != 3 || res.Uploaded != 2 || len(res.Errors) != 1 {
		t.Errorf("result = %+v, want 3 pending, 2 uploaded, 1 error", res)
	}
	if creator.created[0].Name != "first" || creator.created[0].Distance != 4000 {
		t.Errorf("first upload = %+v, want oldest run first in meters", creator.created[0])
	}
	if got := testutil.ToFloat64(reg.UploadsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("uploads ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(reg.UploadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("uploads error = %v, want 1", got)
	}

	first, _ := st.GetRun("first")
	if !first.Uploaded() || *first.StravaActivityID != 1 {
		t.Errorf("first run not marked uploaded: %+v", first)
	}

	// Only the failed run remains
	creator.failOn = ""
	res, err = up.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("second UploadPending: %v", err)
	}
	if res.Pending != 1 || res.Uploaded != 1 {
		t.Errorf("second pass = %+v, want the failed run retried", res)
	}
}

func TestUploadPendingCanceled(t *testing.T) {
	st := setupTestStore(t)
	runs := NewRunService(st, config.AthleteConfig{}, nil)
	if _, err := runs.Record(testSummary("r", 4, 1300), "", SourceLive); err != nil {
		t.Fatalf("Record: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	up := NewUploadService(&fakeCreator{}, st, nil, 0, nil)
	if _, err := up.UploadPending(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	up := NewUploadService(&fakeCreator{}, setupTestStore(t), nil, 0, nil)
	if _, err := up.Schedule(context.Background(), "whenever"); err == nil {
		t.Error("Schedule accepted an invalid cron spec")
	}

	stop, err := up.Schedule(context.Background(), "@every 1h")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	stop()
}

func TestToNewActivity(t *testing.T) {
	hr := 150.4
	r := &store.Run{Name: "Lunch", Source: SourceLive, StartedAt: t0, DurationSeconds: 1800.7, DistanceKm: 5.0123, AvgHeartrate: &hr}
	a := ToNewActivity(r)
	if a.SportType != "Run" || a.ElapsedTime != 1800 || math.Abs(a.Distance-5012.3) > 1e-9 {
		t.Errorf("activity = %+v", a)
	}
	if a.Description != "Recorded with pacetrack (live), avg HR 150 bpm" {
		t.Errorf("Description = %q", a.Description)
	}
}
