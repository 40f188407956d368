// Package feed serializes asynchronous location, heart-rate, timer and user
// events onto a single goroutine that owns the run controller.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pacetrack/internal/metrics"
	"pacetrack/internal/tracker"
)

// ErrLoopStopped is returned when submitting to a loop that is no longer running
var ErrLoopStopped = errors.New("event loop stopped")

// Command is a user action on the run lifecycle
type Command int

const (
	CmdStart Command = iota
	CmdPause
	CmdResume
	CmdStop
	CmdReset
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdStop:
		return "stop"
	case CmdReset:
		return "reset"
	default:
		return "unknown"
	}
}

// CommandResult is the reply to a command
type CommandResult struct {
	State   tracker.State
	Summary *tracker.Summary // set by a successful stop
}

type commandRequest struct {
	cmd   Command
	reply chan commandReply
}

type commandReply struct {
	result CommandResult
	err    error
}

// event is one inbound item; exactly one field is set.
// A single channel keeps samples, ticks and commands in arrival order.
type event struct {
	sample *tracker.PositionSample
	at     time.Time // clock reading when the sample was submitted
	hr     *tracker.HeartRateSample
	tick   bool
	cmd    *commandRequest
}

// Config wires a Loop
type Config struct {
	Controller *tracker.Controller
	Metrics    *metrics.Registry
	Logger     *zap.SugaredLogger

	// TickInterval drives the internal ticker; zero means one second.
	TickInterval time.Duration
	// ExternalTicks disables the internal ticker; ticks then come from SubmitTick.
	ExternalTicks bool

	// Completed is called on the loop goroutine after a successful stop
	Completed func(tracker.Summary)
}

// Loop owns a controller and applies events one at a time
type Loop struct {
	cfg Config

	events chan event
	done   chan struct{}

	mu          sync.RWMutex
	latest      tracker.Snapshot
	subscribers map[chan tracker.Snapshot]struct{}
}

// NewLoop creates a loop; call Run to start processing
func NewLoop(cfg Config) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	l := &Loop{
		cfg:         cfg,
		events:      make(chan event, 64),
		done:        make(chan struct{}),
		subscribers: make(map[chan tracker.Snapshot]struct{}),
		latest:      cfg.Controller.Snapshot(),
	}
	cfg.Controller.OnChange(l.publish)
	return l
}

// Run processes events until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	var tickC <-chan time.Time
	if !l.cfg.ExternalTicks {
		ticker := time.NewTicker(l.cfg.TickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tickC:
			l.applyTick()

		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

// SubmitSample queues a position fix stamped with the controller clock
func (l *Loop) SubmitSample(ctx context.Context, s tracker.PositionSample) error {
	return l.submit(ctx, event{sample: &s, at: l.cfg.Controller.Clock().Now()})
}

// SubmitHeartRate queues a heart-rate reading
func (l *Loop) SubmitHeartRate(ctx context.Context, hr tracker.HeartRateSample) error {
	return l.submit(ctx, event{hr: &hr})
}

// SubmitTick queues one duration tick; used with ExternalTicks
func (l *Loop) SubmitTick(ctx context.Context) error {
	return l.submit(ctx, event{tick: true})
}

// Do runs a lifecycle command and waits for its result
func (l *Loop) Do(ctx context.Context, cmd Command) (CommandResult, error) {
	req := &commandRequest{cmd: cmd, reply: make(chan commandReply, 1)}
	if err := l.submit(ctx, event{cmd: req}); err != nil {
		return CommandResult{}, err
	}

	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-l.done:
		return CommandResult{}, ErrLoopStopped
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

func (l *Loop) submit(ctx context.Context, ev event) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently published state
func (l *Loop) Snapshot() tracker.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest
}

// Subscribe returns a channel that always holds the newest snapshot.
// Slow readers skip intermediate states. Call the returned func to unsubscribe.
func (l *Loop) Subscribe() (<-chan tracker.Snapshot, func()) {
	ch := make(chan tracker.Snapshot, 1)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	ch <- l.latest
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
	}
}

func (l *Loop) dispatch(ev event) {
	switch {
	case ev.sample != nil:
		l.applySample(*ev.sample, ev.at)
	case ev.hr != nil:
		if l.cfg.Controller.HandleHeartRate(*ev.hr) && l.cfg.Metrics != nil {
			l.cfg.Metrics.HeartRatesTotal.Inc()
		}
	case ev.tick:
		l.applyTick()
	case ev.cmd != nil:
		result, err := l.apply(ev.cmd.cmd)
		ev.cmd.reply <- commandReply{result: result, err: err}
	}
}

func (l *Loop) applySample(s tracker.PositionSample, at time.Time) {
	result := l.cfg.Controller.HandleSampleAt(s, at)
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.SamplesTotal.WithLabelValues(result.String()).Inc()
	}
	if result == tracker.Invalid {
		l.cfg.Logger.Debugw("dropped invalid sample", "lat", s.Latitude, "lon", s.Longitude)
	}
}

func (l *Loop) applyTick() {
	if l.cfg.Controller.HandleTick() && l.cfg.Metrics != nil {
		l.cfg.Metrics.TicksTotal.Inc()
	}
}

func (l *Loop) apply(cmd Command) (CommandResult, error) {
	c := l.cfg.Controller

	var err error
	var summary *tracker.Summary
	switch cmd {
	case CmdStart:
		err = c.Start()
	case CmdPause:
		err = c.Pause()
	case CmdResume:
		err = c.Resume()
	case CmdStop:
		var s tracker.Summary
		s, err = c.Stop()
		if err == nil {
			summary = &s
		}
	case CmdReset:
		c.Reset()
	default:
		err = fmt.Errorf("unknown command %d", cmd)
	}

	if err != nil {
		l.cfg.Logger.Warnw("command rejected", "command", cmd.String(), "state", c.State().String(), "error", err)
		return CommandResult{State: c.State()}, err
	}
	l.cfg.Logger.Infow("run state changed", "command", cmd.String(), "state", c.State().String())

	if summary != nil {
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.RunsCompleted.Inc()
		}
		if l.cfg.Completed != nil {
			l.cfg.Completed(*summary)
		}
	}
	return CommandResult{State: c.State(), Summary: summary}, nil
}

// publish runs on the loop goroutine via the controller's change listener
func (l *Loop) publish(s tracker.Snapshot) {
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.DistanceKm.Set(s.DistanceKm)
		l.cfg.Metrics.ElapsedSeconds.Set(s.ElapsedSeconds)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.latest = s
	for ch := range l.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
