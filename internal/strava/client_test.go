package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/activities" {
			t.Errorf("request = %s %s, want POST /activities", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		want := map[string]string{
			"name":             "Morning Run",
			"sport_type":       "Run",
			"start_date_local": "2024-05-01T07:00:00Z",
			"elapsed_time":     "1800",
			"distance":         "5012.3",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form %s = %q, want %q", k, got, v)
			}
		}

		w.Header().Set("X-RateLimit-Limit", "100,1000")
		w.Header().Set("X-RateLimit-Usage", "10,200")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 987654, "name": "Morning Run", "sport_type": "Run", "manual": true}`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), srv.URL, nil)
	got, err := c.CreateActivity(context.Background(), NewActivity{
		Name:           "Morning Run",
		SportType:      "Run",
		StartDateLocal: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC),
		ElapsedTime:    1800,
		Distance:       5012.3,
	})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if got.ID != 987654 || !got.Manual {
		t.Errorf("activity = %+v", got)
	}

	short, daily := c.RateLimitStatus()
	if short != 90 || daily != 800 {
		t.Errorf("RateLimitStatus = %d, %d, want 90, 800", short, daily)
	}
}

func TestCreateActivityAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Authorization Error"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), srv.URL, nil)
	_, err := c.CreateActivity(context.Background(), NewActivity{Name: "x", SportType: "Run"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestGetAthlete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete" {
			t.Errorf("path = %s, want /athlete", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 5, "firstname": "Ada", "lastname": "Runner"}`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), srv.URL+"/", nil)
	a, err := c.GetAthlete(context.Background())
	if err != nil {
		t.Fatalf("GetAthlete: %v", err)
	}
	if a.ID != 5 || a.DisplayName() != "Ada Runner" {
		t.Errorf("athlete = %+v (%q)", a, a.DisplayName())
	}
}

func TestAthleteDisplayName(t *testing.T) {
	tests := []struct {
		athlete Athlete
		want    string
	}{
		{Athlete{Firstname: "Ada", Lastname: "Runner"}, "Ada Runner"},
		{Athlete{Firstname: "Ada"}, "Ada"},
		{Athlete{Lastname: "Runner"}, "Runner"},
		{Athlete{Username: "ada_runs"}, "ada_runs"},
	}
	for _, tt := range tests {
		if got := tt.athlete.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.athlete, got, tt.want)
		}
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	r := NewRateLimiter(1, time.Hour)
	ctx := context.Background()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); err == nil {
		t.Error("second Wait inside the window should fail with the context")
	}
}

func TestRateLimiterHeaders(t *testing.T) {
	r := NewRateLimiter(0, 0)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "200, 2000")
	h.Set("X-RateLimit-Usage", "bogus")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	if short != 200 || daily != 2000 {
		t.Errorf("Status = %d, %d, want 200, 2000", short, daily)
	}
}
