package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrNoCode        = errors.New("no authorization code in callback")
	ErrAuthTimeout   = errors.New("authentication timed out")
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>pacetrack connected</title></head>
<body style="font-family: system-ui; text-align: center; padding-top: 20vh;">
<h1 style="color: #10B981;">Connected to Strava</h1>
<p>pacetrack can now upload your runs. Close this window and return to the terminal.</p>
</body>
</html>`

// callbackResult is what the browser redirect delivered
type callbackResult struct {
	code string
	err  error
}

// callbackRouter handles the single redirect from Strava. The first
// result is delivered on results; later requests are answered but dropped.
func callbackRouter(state string, results chan<- callbackResult) http.Handler {
	deliver := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		switch {
		case q.Get("state") != state:
			deliver(callbackResult{err: ErrStateMismatch})
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			deliver(callbackResult{err: fmt.Errorf("strava denied access: %s", q.Get("error"))})
			http.Error(w, "Authorization was denied", http.StatusBadRequest)
		case q.Get("code") == "":
			deliver(callbackResult{err: ErrNoCode})
			http.Error(w, "No authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, successPage)
			deliver(callbackResult{code: q.Get("code")})
		}
	})
	return r
}

// Authenticate runs the OAuth flow with a local callback server.
// Instructions for the user are written to out.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*AuthResult, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	results := make(chan callbackResult, 1)
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{
		Handler:           callbackRouter(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer shutdownServer(server)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To let pacetrack upload runs to Strava, open this URL in your browser:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Waiting for authorization...")

	timeout := time.NewTimer(AuthTimeout)
	defer timeout.Stop()

	var res callbackResult
	select {
	case res = <-results:
	case err := <-serveErr:
		return nil, err
	case <-timeout.C:
		return nil, fmt.Errorf("%w after %v", ErrAuthTimeout, AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
	}, nil
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
