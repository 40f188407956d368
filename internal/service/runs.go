// Package service connects the tracking core to storage and Strava.
package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"pacetrack/internal/analysis"
	"pacetrack/internal/config"
	"pacetrack/internal/store"
	"pacetrack/internal/tracker"
)

// ErrEmptyRun is returned when a stopped run has nothing worth keeping
var ErrEmptyRun = errors.New("run has no distance or duration")

// RunService records completed runs and answers history queries
type RunService struct {
	store   *store.Store
	hrZones analysis.HRZones
	log     *zap.SugaredLogger
}

// NewRunService creates a run service with athlete config for training load
func NewRunService(st *store.Store, athlete config.AthleteConfig, log *zap.SugaredLogger) *RunService {
	zones := analysis.DefaultZones()
	if athlete.RestingHR > 0 {
		zones.RestingHR = float64(athlete.RestingHR)
	}
	if athlete.MaxHR > 0 {
		zones.MaxHR = float64(athlete.MaxHR)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RunService{store: st, hrZones: zones, log: log}
}

// RecordResult describes a stored run
type RecordResult struct {
	Run        *store.Run
	NewRecords []string // categories the run set
}

// Record persists a completed run with its route and updates personal records.
// An empty name gets a time-of-day default like "Morning Run".
func (s *RunService) Record(sum tracker.Summary, name, source string) (*RecordResult, error) {
	if sum.DistanceKm <= 0 && sum.DurationSeconds <= 0 {
		return nil, ErrEmptyRun
	}
	if name == "" {
		name = DefaultRunName(sum.StartedAt)
	}

	run := &store.Run{
		ID:              sum.RunID,
		Name:            name,
		Source:          source,
		StartedAt:       sum.StartedAt,
		EndedAt:         sum.EndedAt,
		DistanceKm:      sum.DistanceKm,
		DurationSeconds: sum.DurationSeconds,
		PaceMinPerKm:    sum.PaceMinPerKm,
		Calories:        sum.Calories,
		ElevationGainM:  sum.ElevationGainM,
		AvgHeartrate:    sum.AvgHeartRate,
		MaxHeartrate:    sum.MaxHeartRate,
	}

	if err := s.store.SaveRun(run, toPoints(sum.RunID, sum.Route, sum.Speeds)); err != nil {
		return nil, fmt.Errorf("saving run %s: %w", run.ID, err)
	}

	result := &RecordResult{Run: run}
	for _, c := range analysis.RecordCandidates(run) {
		pr := c.Record
		updated, err := s.store.UpsertPersonalRecord(&pr, c.Mode)
		if err != nil {
			// The run itself is saved; a failed record update is not fatal
			s.log.Warnw("updating personal record", "category", pr.Category, "run_id", run.ID, "error", err)
			continue
		}
		if updated {
			result.NewRecords = append(result.NewRecords, pr.Category)
		}
	}

	s.log.Infow("run recorded",
		"run_id", run.ID,
		"source", source,
		"distance_km", run.DistanceKm,
		"duration_seconds", run.DurationSeconds,
		"new_records", len(result.NewRecords),
	)
	return result, nil
}

// History returns stored runs, newest first
func (s *RunService) History(limit, offset int) ([]store.Run, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListRuns(limit, offset)
}

// Get returns a single run
func (s *RunService) Get(id string) (*store.Run, error) {
	return s.store.GetRun(id)
}

// Route returns a stored run's coordinates and per-point speeds.
// Unknown speeds come back as the NaN sentinel.
func (s *RunService) Route(id string) ([]tracker.Coordinate, []float64, error) {
	if _, err := s.store.GetRun(id); err != nil {
		return nil, nil, err
	}
	points, err := s.store.GetRunPoints(id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading route for %s: %w", id, err)
	}
	coords, speeds := fromPoints(points)
	return coords, speeds, nil
}

// Summary rebuilds the summary of a stored run, route included
func (s *RunService) Summary(id string) (tracker.Summary, error) {
	run, err := s.store.GetRun(id)
	if err != nil {
		return tracker.Summary{}, err
	}
	coords, speeds, err := s.Route(id)
	if err != nil {
		return tracker.Summary{}, err
	}
	return tracker.Summary{
		RunID:           run.ID,
		StartedAt:       run.StartedAt,
		EndedAt:         run.EndedAt,
		DistanceKm:      run.DistanceKm,
		DurationSeconds: run.DurationSeconds,
		PaceMinPerKm:    run.PaceMinPerKm,
		Calories:        run.Calories,
		ElevationGainM:  run.ElevationGainM,
		AvgHeartRate:    run.AvgHeartrate,
		MaxHeartRate:    run.MaxHeartrate,
		Route:           coords,
		Speeds:          speeds,
	}, nil
}

// Rename changes a run's name
func (s *RunService) Rename(id, name string) error {
	if name == "" {
		return errors.New("run name must not be empty")
	}
	return s.store.RenameRun(id, name)
}

// Delete removes a run and everything hanging off it
func (s *RunService) Delete(id string) error {
	return s.store.DeleteRun(id)
}

// Totals aggregates every stored run
func (s *RunService) Totals() (store.Totals, error) {
	return s.store.GetTotals()
}

// PersonalRecordView is a personal record ready for display
type PersonalRecordView struct {
	store.PersonalRecord
	Label   string
	RunName string
}

// Records returns all personal records with labels and run names
func (s *RunService) Records() ([]PersonalRecordView, error) {
	records, err := s.store.GetAllPersonalRecords()
	if err != nil {
		return nil, fmt.Errorf("loading personal records: %w", err)
	}

	views := make([]PersonalRecordView, 0, len(records))
	for _, pr := range records {
		v := PersonalRecordView{PersonalRecord: pr, Label: analysis.GetCategoryLabel(pr.Category)}
		if run, err := s.store.GetRun(pr.RunID); err == nil {
			v.RunName = run.Name
		}
		views = append(views, v)
	}
	return views, nil
}

// Predictions estimates race times from a stored run
func (s *RunService) Predictions(id string) ([]analysis.RacePrediction, error) {
	run, err := s.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	return analysis.Predict(run.DistanceKm, run.DurationSeconds), nil
}

// FitnessData is the training-load view as of a day
type FitnessData struct {
	Current     analysis.FitnessMetrics
	Description string
	Trend       []analysis.FitnessMetrics
}

// Fitness computes CTL/ATL/TSB from recent runs with heart-rate data
func (s *RunService) Fitness(until time.Time) (*FitnessData, error) {
	runs, err := s.store.ListRuns(FitnessRunsLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}

	loads := analysis.DailyLoads(runs, s.hrZones)
	trend := analysis.CalculateFitnessTrend(loads, until)

	data := &FitnessData{Trend: trend}
	if len(trend) > 0 {
		data.Current = trend[len(trend)-1]
	}
	data.Description = analysis.FormDescription(data.Current.TSB)
	return data, nil
}

// DefaultRunName names a run after the time of day it started
func DefaultRunName(started time.Time) string {
	switch h := started.Local().Hour(); {
	case h >= 5 && h < 12:
		return "Morning Run"
	case h >= 12 && h < 17:
		return "Afternoon Run"
	case h >= 17 && h < 21:
		return "Evening Run"
	default:
		return "Night Run"
	}
}

func toPoints(runID string, coords []tracker.Coordinate, speeds []float64) []store.RunPoint {
	points := make([]store.RunPoint, len(coords))
	for i, c := range coords {
		points[i] = store.RunPoint{RunID: runID, Seq: i, Lat: c.Lat, Lon: c.Lon}
		if i < len(speeds) && tracker.SpeedKnown(speeds[i]) {
			v := speeds[i]
			points[i].Speed = &v
		}
	}
	return points
}

func fromPoints(points []store.RunPoint) ([]tracker.Coordinate, []float64) {
	coords := make([]tracker.Coordinate, len(points))
	speeds := make([]float64, len(points))
	for i, p := range points {
		coords[i] = tracker.Coordinate{Lat: p.Lat, Lon: p.Lon}
		speeds[i] = math.NaN()
		if p.Speed != nil {
			speeds[i] = *p.Speed
		}
	}
	return coords, speeds
}
