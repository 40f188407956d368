package store

import (
	"database/sql"
	"fmt"
)

// saveRunPoints replaces the route points of a run inside tx
func saveRunPoints(tx *sql.Tx, runID string, points []RunPoint) error {
	if _, err := tx.Exec("DELETE FROM run_points WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("deleting existing points: %w", err)
	}
	if len(points) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_points (run_id, seq, lat, lon, speed)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.Exec(runID, i, p.Lat, p.Lon, p.Speed); err != nil {
			return fmt.Errorf("inserting point %d: %w", i, err)
		}
	}
	return nil
}

// GetRunPoints retrieves the route of a run in recorded order
func (s *Store) GetRunPoints(runID string) ([]RunPoint, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, lat, lon, speed
		FROM run_points
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []RunPoint
	for rows.Next() {
		var p RunPoint
		if err := rows.Scan(&p.RunID, &p.Seq, &p.Lat, &p.Lon, &p.Speed); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CountRunPoints returns the number of route points stored for a run
func (s *Store) CountRunPoints(runID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM run_points WHERE run_id = ?", runID).Scan(&count)
	return count, err
}
