package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pacetrack/internal/feed"
	"pacetrack/internal/tracker"
)

func TestUserEnded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"loop stopped", fmt.Errorf("stopping run: %w", feed.ErrLoopStopped), true},
		{"stop after ui stop", fmt.Errorf("stopping run: %w: cannot stop while completed", tracker.ErrInvalidTransition), true},
		{"feed error", fmt.Errorf("feeding replay: %w", errors.New("bad gpx")), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userEnded(tt.err); got != tt.want {
				t.Errorf("userEnded(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// A stop sent after the run already completed wraps ErrInvalidTransition.
func TestStopAfterCompletedIsUserEnded(t *testing.T) {
	ctrl := tracker.NewController(tracker.ControllerOptions{Processor: tracker.DefaultProcessorOptions()})
	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	_, err := ctrl.Stop()
	if !userEnded(fmt.Errorf("stopping run: %w", err)) {
		t.Errorf("second Stop error %v not treated as user-ended", err)
	}
}
