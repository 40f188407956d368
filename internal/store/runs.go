package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, name, source, started_at, ended_at, distance_km, duration_seconds,
	pace_min_per_km, calories, elevation_gain_m, avg_heartrate, max_heartrate, strava_activity_id`

// SaveRun inserts a run and its route points in one transaction.
// Saving an existing ID replaces the run and its points.
func (s *Store) SaveRun(r *Run, points []RunPoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (`+runColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source = excluded.source,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			distance_km = excluded.distance_km,
			duration_seconds = excluded.duration_seconds,
			pace_min_per_km = excluded.pace_min_per_km,
			calories = excluded.calories,
			elevation_gain_m = excluded.elevation_gain_m,
			avg_heartrate = excluded.avg_heartrate,
			max_heartrate = excluded.max_heartrate,
			strava_activity_id = excluded.strava_activity_id,
			updated_at = CURRENT_TIMESTAMP
	`,
		r.ID, r.Name, r.Source,
		r.StartedAt.UTC().Format(time.RFC3339), r.EndedAt.UTC().Format(time.RFC3339),
		r.DistanceKm, r.DurationSeconds, r.PaceMinPerKm, r.Calories,
		r.ElevationGainM, r.AvgHeartrate, r.MaxHeartrate, r.StravaActivityID,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if err := saveRunPoints(tx, r.ID, points); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns runs ordered by start time descending
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsPendingUpload returns runs not yet pushed to Strava, oldest first
func (s *Store) RunsPendingUpload(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE strava_activity_id IS NULL AND distance_km > 0
		ORDER BY started_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// MarkUploaded records the Strava activity created for a run
func (s *Store) MarkUploaded(id string, stravaActivityID int64) error {
	result, err := s.db.Exec(`
		UPDATE runs
		SET strava_activity_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, stravaActivityID, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// RenameRun changes a run's display name
func (s *Store) RenameRun(id, name string) error {
	result, err := s.db.Exec(`
		UPDATE runs SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, name, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// DeleteRun removes a run; its points and records cascade
func (s *Store) DeleteRun(id string) error {
	result, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// CountRuns returns the total number of runs
func (s *Store) CountRuns() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

// Totals aggregates all stored runs
type Totals struct {
	Runs            int
	DistanceKm      float64
	DurationSeconds float64
	Calories        int
}

// GetTotals sums distance, time and calories over all runs
func (s *Store) GetTotals() (Totals, error) {
	var t Totals
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(distance_km), 0),
			COALESCE(SUM(duration_seconds), 0), COALESCE(SUM(calories), 0)
		FROM runs
	`).Scan(&t.Runs, &t.DistanceKm, &t.DurationSeconds, &t.Calories)
	return t, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRow(row rowScanner) (*Run, error) {
	var r Run
	var startedAt, endedAt string

	err := row.Scan(
		&r.ID, &r.Name, &r.Source, &startedAt, &endedAt,
		&r.DistanceKm, &r.DurationSeconds, &r.PaceMinPerKm, &r.Calories,
		&r.ElevationGainM, &r.AvgHeartrate, &r.MaxHeartrate, &r.StravaActivityID,
	)
	if err != nil {
		return nil, err
	}

	var parseErr error
	r.StartedAt, parseErr = time.Parse(time.RFC3339, startedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, parseErr)
	}
	r.EndedAt, parseErr = time.Parse(time.RFC3339, endedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing ended_at %q: %w", endedAt, parseErr)
	}
	return &r, nil
}

// scanRun scans a single run from a row
func scanRun(row *sql.Row) (*Run, error) {
	r, err := scanRunRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// scanRuns scans multiple runs from rows
func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		r, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}
