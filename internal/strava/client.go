package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// APIError is a non-success response from Strava
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource, limiter *RateLimiter) *Client {
	return NewClientWithHTTP(oauth2.NewClient(context.Background(), tokenSource), BaseURL, limiter)
}

// NewClientWithHTTP creates a client with an already authorized HTTP client and base URL
func NewClientWithHTTP(httpClient *http.Client, baseURL string, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
	}
}

// GetAthlete fetches the authenticated athlete
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.do(ctx, http.MethodGet, "/athlete", nil, http.StatusOK, &athlete); err != nil {
		return nil, fmt.Errorf("fetching athlete: %w", err)
	}
	return &athlete, nil
}

// CreateActivity creates a manual activity and returns it with its Strava ID
func (c *Client) CreateActivity(ctx context.Context, a NewActivity) (*Activity, error) {
	form := url.Values{}
	form.Set("name", a.Name)
	form.Set("sport_type", a.SportType)
	form.Set("start_date_local", a.StartDateLocal.Format("2006-01-02T15:04:05Z07:00"))
	form.Set("elapsed_time", strconv.Itoa(a.ElapsedTime))
	form.Set("distance", strconv.FormatFloat(a.Distance, 'f', 1, 64))
	if a.Description != "" {
		form.Set("description", a.Description)
	}

	var created Activity
	if err := c.do(ctx, http.MethodPost, "/activities", form, http.StatusCreated, &created); err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}
	return &created, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, want int, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
