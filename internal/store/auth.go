package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// The auth table holds at most one login, always in row 1.
const authRowID = 1

// GetAuth returns the stored Strava login, or ErrNoAuth
func (s *Store) GetAuth() (*Auth, error) {
	var (
		a         Auth
		expiresAt int64
	)
	err := s.db.QueryRow(
		`SELECT athlete_id, access_token, refresh_token, expires_at FROM auth WHERE id = ?`,
		authRowID,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, fmt.Errorf("reading auth: %w", err)
	}
	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

// SaveAuth replaces the stored login. The original created_at survives
// a re-login.
func (s *Store) SaveAuth(a *Auth) error {
	_, err := s.db.Exec(`
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		authRowID, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	return nil
}

// UpdateTokens stores a refreshed token pair. It returns ErrNoAuth when
// nobody is logged in, so a refresh never creates a login.
func (s *Store) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE auth SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		accessToken, refreshToken, expiresAt.Unix(), authRowID)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}

// DeleteAuth forgets the stored login
func (s *Store) DeleteAuth() error {
	if _, err := s.db.Exec(`DELETE FROM auth WHERE id = ?`, authRowID); err != nil {
		return fmt.Errorf("deleting auth: %w", err)
	}
	return nil
}
