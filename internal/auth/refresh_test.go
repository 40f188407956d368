package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"pacetrack/internal/store"
)

func tokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestTokenSourceValidTokenNoRefresh(t *testing.T) {
	var calls int
	srv := tokenServer(t, &calls)

	token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(testOAuthConfig(srv.URL), token, nil)

	got, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got.AccessToken != "a" || calls != 0 {
		t.Errorf("AccessToken = %q after %d calls, want cached token", got.AccessToken, calls)
	}
	if ts.IsExpired() {
		t.Error("IsExpired = true for token valid for an hour")
	}
}

func TestFromStoreRefreshesAndPersists(t *testing.T) {
	var calls int
	srv := tokenServer(t, &calls)

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Inside the refresh buffer
	if err := db.SaveAuth(&store.Auth{
		AthleteID: 1, AccessToken: "old", RefreshToken: "old-r", ExpiresAt: time.Now().Add(30 * time.Second),
	}); err != nil {
		t.Fatal(err)
	}

	ts, err := FromStore(testOAuthConfig(srv.URL), db)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	got, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got.AccessToken != "new-access" || calls != 1 {
		t.Errorf("AccessToken = %q after %d calls, want refreshed", got.AccessToken, calls)
	}

	saved, err := db.GetAuth()
	if err != nil {
		t.Fatal(err)
	}
	if saved.AccessToken != "new-access" || saved.RefreshToken != "new-refresh" {
		t.Errorf("stored tokens = %q/%q, want refreshed values", saved.AccessToken, saved.RefreshToken)
	}
	if saved.AthleteID != 1 {
		t.Errorf("AthleteID = %d, want 1", saved.AthleteID)
	}
}

func TestFromStoreNotLoggedIn(t *testing.T) {
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := FromStore(testOAuthConfig("http://unused"), db); !errors.Is(err, store.ErrNoAuth) {
		t.Errorf("error = %v, want store.ErrNoAuth", err)
	}
}

func TestExtractAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]interface{}{
		"athlete": map[string]interface{}{"id": float64(1234)},
	})
	if got := ExtractAthleteID(tok); got != 1234 {
		t.Errorf("ExtractAthleteID = %d, want 1234", got)
	}
	if got := ExtractAthleteID(&oauth2.Token{}); got != 0 {
		t.Errorf("ExtractAthleteID without extras = %d, want 0", got)
	}
}

func TestNewOAuthConfigDefaults(t *testing.T) {
	cfg := NewOAuthConfig("id", "s")
	if want := "http://localhost:8089/callback"; cfg.RedirectURL != want {
		t.Errorf("RedirectURL = %q, want %q", cfg.RedirectURL, want)
	}
	if cfg.Endpoint.TokenURL != Endpoint.TokenURL {
		t.Errorf("TokenURL = %q, want %q", cfg.Endpoint.TokenURL, Endpoint.TokenURL)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != "read,activity:write" {
		t.Errorf("Scopes = %v, want [read,activity:write]", cfg.Scopes)
	}
}
