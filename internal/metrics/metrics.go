// Package metrics defines the Prometheus collectors for pacetrack.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics
type Registry struct {
	// Tracking
	SamplesTotal    *prometheus.CounterVec
	TicksTotal      prometheus.Counter
	HeartRatesTotal prometheus.Counter
	RunsCompleted   prometheus.Counter
	DistanceKm      prometheus.Gauge
	ElapsedSeconds  prometheus.Gauge

	// Uploads
	UploadsTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewRegistry registers every collector on reg
func NewRegistry(reg *prometheus.Registry) *Registry {
	f := promauto.With(reg)
	return &Registry{
		SamplesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacetrack_samples_total",
				Help: "Position samples offered to the active run, by outcome",
			},
			[]string{"result"},
		),
		TicksTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pacetrack_ticks_total",
			Help: "Duration ticks applied to a running session",
		}),
		HeartRatesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pacetrack_heart_rate_readings_total",
			Help: "Heart-rate readings recorded",
		}),
		RunsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "pacetrack_runs_completed_total",
			Help: "Runs stopped and summarized",
		}),
		DistanceKm: f.NewGauge(prometheus.GaugeOpts{
			Name: "pacetrack_run_distance_km",
			Help: "Distance of the current run",
		}),
		ElapsedSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name: "pacetrack_run_elapsed_seconds",
			Help: "Ticked duration of the current run",
		}),
		UploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacetrack_uploads_total",
				Help: "Completed runs pushed to Strava, by status",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacetrack_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pacetrack_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"route", "method"},
		),
		gatherer: reg,
	}
}

// Gatherer returns the registry backing these collectors, for /metrics
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.gatherer
}
