package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CompareMode determines how personal records are compared
type CompareMode int

const (
	CompareDuration CompareMode = iota // higher duration wins (longest_time)
	CompareDistance                    // higher distance wins (longest_run)
	ComparePace                        // lower pace wins (fastest_pace)
)

// UpsertPersonalRecord stores pr if it beats the current record for its
// category under mode. It reports whether the record was written.
func (s *Store) UpsertPersonalRecord(pr *PersonalRecord, mode CompareMode) (updated bool, err error) {
	existing, err := s.GetPersonalRecordByCategory(pr.Category)
	if err != nil && !errors.Is(err, ErrPersonalRecordNotFound) {
		return false, err
	}

	if existing != nil {
		switch mode {
		case CompareDuration:
			if existing.DurationSeconds >= pr.DurationSeconds {
				return false, nil
			}
		case CompareDistance:
			if existing.DistanceKm >= pr.DistanceKm {
				return false, nil
			}
		case ComparePace:
			if pr.PaceMinPerKm == nil {
				return false, nil
			}
			if existing.PaceMinPerKm != nil && *existing.PaceMinPerKm <= *pr.PaceMinPerKm {
				return false, nil
			}
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO personal_records (
			category, run_id, distance_km, duration_seconds, pace_min_per_km, achieved_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			run_id = excluded.run_id,
			distance_km = excluded.distance_km,
			duration_seconds = excluded.duration_seconds,
			pace_min_per_km = excluded.pace_min_per_km,
			achieved_at = excluded.achieved_at
	`,
		pr.Category, pr.RunID, pr.DistanceKm, pr.DurationSeconds,
		pr.PaceMinPerKm, pr.AchievedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}

	return true, nil
}

// GetPersonalRecordByCategory retrieves a personal record by category
func (s *Store) GetPersonalRecordByCategory(category string) (*PersonalRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, category, run_id, distance_km, duration_seconds, pace_min_per_km, achieved_at
		FROM personal_records
		WHERE category = ?
	`, category)

	pr, err := scanPersonalRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersonalRecordNotFound
	}
	return pr, err
}

// GetAllPersonalRecords retrieves all personal records
func (s *Store) GetAllPersonalRecords() ([]PersonalRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, category, run_id, distance_km, duration_seconds, pace_min_per_km, achieved_at
		FROM personal_records
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PersonalRecord
	for rows.Next() {
		pr, err := scanPersonalRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *pr)
	}
	return records, rows.Err()
}

func scanPersonalRecord(row rowScanner) (*PersonalRecord, error) {
	var pr PersonalRecord
	var achievedAt string

	err := row.Scan(
		&pr.ID, &pr.Category, &pr.RunID, &pr.DistanceKm, &pr.DurationSeconds,
		&pr.PaceMinPerKm, &achievedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.AchievedAt, err = time.Parse(time.RFC3339, achievedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing achieved_at %q: %w", achievedAt, err)
	}
	return &pr, nil
}
