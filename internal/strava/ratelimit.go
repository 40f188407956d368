package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
// On top of those the client keeps its own budget of requests per window.

// Default local budget: 50 requests per minute
const (
	DefaultRequestsPerWindow = 50
	DefaultWindow            = time.Minute
)

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu sync.Mutex

	// Local request budget
	budget *rate.Limiter

	// 15-minute window, as reported by Strava
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window, as reported by Strava
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time
}

// NewRateLimiter allows requests per window locally and tracks Strava's limits.
// Non-positive values select the defaults.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = DefaultRequestsPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	now := time.Now()
	return &RateLimiter{
		budget:        rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests),
		shortLimit:    100,
		shortResetsAt: now.Add(15 * time.Minute),
		dailyLimit:    1000,
		dailyResetsAt: now.Truncate(24 * time.Hour).Add(24 * time.Hour),
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.reserveWindow(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.budget.Wait(ctx)
}

// reserveWindow counts one request against Strava's windows and returns how
// long to wait first when a window is exhausted
func (r *RateLimiter) reserveWindow() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Reset windows if expired
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(15 * time.Minute)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	var wait time.Duration
	if r.shortUsage >= r.shortLimit {
		wait = r.shortResetsAt.Sub(now)
		r.shortUsage = 0
		r.shortResetsAt = r.shortResetsAt.Add(15 * time.Minute)
	}
	if r.dailyUsage >= r.dailyLimit {
		if d := r.dailyResetsAt.Sub(now); d > wait {
			wait = d
		}
		r.dailyUsage = 0
		r.dailyResetsAt = r.dailyResetsAt.Add(24 * time.Hour)
	}

	r.shortUsage++
	r.dailyUsage++
	return wait
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage = short
		r.dailyUsage = daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit = short
		r.dailyLimit = daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
