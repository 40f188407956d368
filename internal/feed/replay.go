package feed

import (
	"context"
	"sync"
	"time"

	"pacetrack/internal/parser"
	"pacetrack/internal/tracker"
)

// Source pushes position and heart-rate events into a loop until exhausted
type Source interface {
	Feed(ctx context.Context, l *Loop) error
}

var (
	_ Source = (*Player)(nil)
	_ Source = (*Stream)(nil)
)

// VirtualClock is a tracker.Clock advanced by a replay rather than by wall time
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ tracker.Clock = (*VirtualClock)(nil)

// NewVirtualClock starts the clock at t
func NewVirtualClock(t time.Time) *VirtualClock {
	return &VirtualClock{now: t}
}

// Now returns the current virtual time
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Player replays a recorded track into a loop in virtual time.
// Each virtual second it releases the samples and heart-rate readings that
// fall inside it and then submits one tick, so the loop must run with
// ExternalTicks and the controller must use Clock.
type Player struct {
	Track *parser.Track
	Clock *VirtualClock
	// Speed multiplies playback; 1 is real time, 0 means as fast as possible
	Speed float64
}

// NewPlayer creates a player whose clock starts one second before the
// track's first sample, so the first virtual second releases it on time.
func NewPlayer(track *parser.Track, speed float64) *Player {
	start := time.Now()
	if len(track.Samples) > 0 && !track.Samples[0].Timestamp.IsZero() {
		start = track.Samples[0].Timestamp.Add(-time.Second)
	}
	return &Player{
		Track: track,
		Clock: NewVirtualClock(start),
		Speed: speed,
	}
}

// Feed submits the whole track and returns when it is exhausted or ctx ends
func (p *Player) Feed(ctx context.Context, l *Loop) error {
	samples := p.Track.Samples
	hrs := p.Track.HeartRates
	hasTimes := len(samples) > 0 && !samples[0].Timestamp.IsZero()

	if !hasTimes {
		// Untimed heart-rate readings cannot be placed on the timeline
		hrs = nil
	}

	var wait <-chan time.Time
	if p.Speed > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / p.Speed))
		defer ticker.Stop()
		wait = ticker.C
	}

	now := p.Clock.Now()
	for len(samples) > 0 || len(hrs) > 0 {
		if wait != nil {
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		now = now.Add(time.Second)
		p.Clock.Set(now)

		// Untimed tracks release one sample per virtual second
		if !hasTimes {
			if err := l.SubmitSample(ctx, samples[0]); err != nil {
				return err
			}
			samples = samples[1:]
		} else {
			for len(samples) > 0 && !samples[0].Timestamp.After(now) {
				if err := l.SubmitSample(ctx, samples[0]); err != nil {
					return err
				}
				samples = samples[1:]
			}
			for len(hrs) > 0 && !hrs[0].Timestamp.After(now) {
				if err := l.SubmitHeartRate(ctx, hrs[0]); err != nil {
					return err
				}
				hrs = hrs[1:]
			}
		}

		if err := l.SubmitTick(ctx); err != nil {
			return err
		}
	}
	return nil
}
