package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Completed runs
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			distance_km REAL NOT NULL,
			duration_seconds REAL NOT NULL,
			pace_min_per_km REAL NOT NULL,
			calories INTEGER NOT NULL,
			elevation_gain_m REAL,
			avg_heartrate REAL,
			max_heartrate INTEGER,
			strava_activity_id INTEGER,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_strava ON runs(strava_activity_id)`,

		// Route points (accepted samples, in order)
		`CREATE TABLE IF NOT EXISTS run_points (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			speed REAL,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		// Personal records (best run per category)
		`CREATE TABLE IF NOT EXISTS personal_records (
			id INTEGER PRIMARY KEY,
			category TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL,
			distance_km REAL NOT NULL,
			duration_seconds REAL NOT NULL,
			pace_min_per_km REAL,
			achieved_at TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_personal_records_run ON personal_records(run_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
