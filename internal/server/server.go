// Package server exposes the live session and stored runs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pacetrack/internal/metrics"
	"pacetrack/internal/service"
	"pacetrack/internal/tracker"
)

// SnapshotSource supplies the live run state, usually a *feed.Loop
type SnapshotSource interface {
	Snapshot() tracker.Snapshot
}

// Options configures a Server
type Options struct {
	Runs           *service.RunService
	Live           SnapshotSource // nil when no run is being tracked
	Metrics        *metrics.Registry
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
	Now            func() time.Time
}

// Server is the HTTP read API
type Server struct {
	runs    *service.RunService
	live    SnapshotSource
	metrics *metrics.Registry
	log     *zap.SugaredLogger
	now     func() time.Time
	router  chi.Router
}

// New builds the router
func New(opts Options) *Server {
	s := &Server{
		runs:    opts.Runs,
		live:    opts.Live,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.now == nil {
		s.now = time.Now
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestLogger(s.log, s.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Get("/session/route", s.handleSessionRoute)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/route", s.handleRunRoute)
		r.Get("/records", s.handleRecords)
		r.Get("/fitness", s.handleFitness)
	})

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Infow("http server stopped")
	return nil
}
