package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"pacetrack/internal/store"
)

// refreshBuffer is how early a token is refreshed before it expires
const refreshBuffer = 60 * time.Second

// TokenStore persists OAuth tokens
type TokenStore interface {
	GetAuth() (*store.Auth, error)
	UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource wraps oauth2.TokenSource with persistence
// It automatically refreshes tokens and calls onRefresh when a new token is obtained
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a new TokenSource that will refresh tokens as needed
// and call onRefresh to persist new tokens
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// FromStore builds a TokenSource from stored tokens; refreshed tokens are written back.
// It returns store.ErrNoAuth when the user has not logged in.
func FromStore(cfg *oauth2.Config, st TokenStore) (*TokenSource, error) {
	a, err := st.GetAuth()
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
		TokenType:    "Bearer",
	}
	return NewTokenSource(cfg, token, func(t *oauth2.Token) error {
		if err := st.UpdateTokens(t.AccessToken, t.RefreshToken, t.Expiry); err != nil {
			return fmt.Errorf("saving refreshed token: %w", err)
		}
		return nil
	}), nil
}

// ToAuth converts a fresh login into the stored form
func ToAuth(r *AuthResult) *store.Auth {
	return &store.Auth{
		AthleteID:    r.AthleteID,
		AccessToken:  r.Token.AccessToken,
		RefreshToken: r.Token.RefreshToken,
		ExpiresAt:    r.Token.Expiry,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	// Force a refresh: the oauth2 source would still accept a token inside the buffer
	stale := *ts.token
	stale.Expiry = time.Now().Add(-time.Second)
	src := ts.config.TokenSource(context.Background(), &stale)
	newToken, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	// Persist the new token if callback is set
	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, err
		}
	}

	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshBuffer
}
