package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCaloriesPerKm is the flat energy estimate per kilometer
const DefaultCaloriesPerKm = 60.0

// ErrInvalidTransition is returned when a lifecycle call is made from the wrong state
var ErrInvalidTransition = errors.New("invalid run state transition")

// State is the lifecycle state of a run
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// ControllerOptions configures a Controller
type ControllerOptions struct {
	Processor     ProcessorOptions
	CaloriesPerKm float64
	Clock         Clock
}

// Controller drives a RunSession through its lifecycle.
// Callers serialize all calls; see feed.Loop.
type Controller struct {
	session       *RunSession
	processor     *Processor
	clock         Clock
	caloriesPerKm float64

	state     State
	runID     string
	startedAt time.Time
	endedAt   time.Time
	summary   *Summary

	listeners []func(Snapshot)
}

// NewController creates an idle controller
func NewController(opts ControllerOptions) *Controller {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.CaloriesPerKm <= 0 {
		opts.CaloriesPerKm = DefaultCaloriesPerKm
	}
	return &Controller{
		session:       NewRunSession(),
		processor:     NewProcessor(opts.Processor),
		clock:         opts.Clock,
		caloriesPerKm: opts.CaloriesPerKm,
		state:         StateIdle,
	}
}

// OnChange registers a listener called with a fresh snapshot after every mutation
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.listeners = append(c.listeners, fn)
}

// State returns the current lifecycle state
func (c *Controller) State() State { return c.state }

// Session exposes the underlying session for read access
func (c *Controller) Session() *RunSession { return c.session }

// Start begins a new run from Idle or Completed, clearing previous data
func (c *Controller) Start() error {
	if c.state != StateIdle && c.state != StateCompleted {
		return transitionError("start", c.state)
	}
	c.session.Reset()
	c.summary = nil
	c.runID = uuid.NewString()
	c.startedAt = c.clock.Now()
	c.endedAt = time.Time{}
	c.state = StateRunning
	c.notify()
	return nil
}

// Pause stops ticking and sample acceptance
func (c *Controller) Pause() error {
	if c.state != StateRunning {
		return transitionError("pause", c.state)
	}
	c.state = StatePaused
	c.notify()
	return nil
}

// Resume continues a paused run without clearing accumulated state
func (c *Controller) Resume() error {
	if c.state != StatePaused {
		return transitionError("resume", c.state)
	}
	c.state = StateRunning
	c.notify()
	return nil
}

// Stop completes the run and freezes its summary
func (c *Controller) Stop() (Summary, error) {
	if c.state != StateRunning && c.state != StatePaused {
		return Summary{}, transitionError("stop", c.state)
	}
	c.endedAt = c.clock.Now()
	c.state = StateCompleted
	summary := c.buildSummary()
	c.summary = &summary
	c.notify()
	return summary, nil
}

// Reset discards the run from any state
func (c *Controller) Reset() {
	c.session.Reset()
	c.summary = nil
	c.runID = ""
	c.startedAt = time.Time{}
	c.endedAt = time.Time{}
	c.state = StateIdle
	c.notify()
}

// Summary returns the frozen summary of a completed run
func (c *Controller) Summary() (Summary, bool) {
	if c.summary == nil {
		return Summary{}, false
	}
	return *c.summary, true
}

// Clock returns the controller's time source. It is fixed at construction,
// so any goroutine may read it.
func (c *Controller) Clock() Clock { return c.clock }

// HandleSample offers a position sample arriving now
func (c *Controller) HandleSample(sample PositionSample) AcceptResult {
	return c.HandleSampleAt(sample, c.clock.Now())
}

// HandleSampleAt offers a position sample that arrived at at. Queued
// callers pass the time the sample was delivered, not the time it is applied.
func (c *Controller) HandleSampleAt(sample PositionSample, at time.Time) AcceptResult {
	if c.state != StateRunning {
		return Inactive
	}
	result := c.processor.Accept(c.session, sample, at)
	if result == Accepted {
		c.notify()
	}
	return result
}

// HandleTick advances the duration by one second while running
func (c *Controller) HandleTick() bool {
	if c.state != StateRunning {
		return false
	}
	c.session.Tick()
	c.notify()
	return true
}

// HandleHeartRate records a heart-rate reading while running
func (c *Controller) HandleHeartRate(hr HeartRateSample) bool {
	if c.state != StateRunning || !hr.Valid() {
		return false
	}
	c.session.RecordHeartRate(hr.BPM)
	c.notify()
	return true
}

// Snapshot returns a copy of the current state safe to hand to other goroutines
func (c *Controller) Snapshot() Snapshot {
	s := c.session
	snap := Snapshot{
		RunID:          c.runID,
		State:          c.state,
		StartedAt:      c.startedAt,
		DistanceKm:     s.TotalDistanceKm(),
		ElapsedSeconds: s.ElapsedSeconds(),
		PaceMinPerKm:   s.CurrentPaceMinPerKm(),
		Calories:       c.calories(),
		Route:          s.RouteCoordinates(),
		Speeds:         s.SegmentSpeeds(),
		HeartRate:      s.HeartRate(),
	}
	if gain, ok := s.ElevationGainM(); ok {
		snap.ElevationGainM = &gain
	}
	if last, ok := s.LastAcceptedPosition(); ok {
		center := last.Coordinate()
		snap.Center = &center
		snap.CurrentSpeed = last.Speed
	} else {
		snap.CurrentSpeed = UnknownSpeed
	}
	return snap
}

func (c *Controller) calories() int {
	return int(c.session.TotalDistanceKm() * c.caloriesPerKm)
}

func (c *Controller) buildSummary() Summary {
	s := c.session
	summary := Summary{
		RunID:           c.runID,
		StartedAt:       c.startedAt,
		EndedAt:         c.endedAt,
		DistanceKm:      s.TotalDistanceKm(),
		DurationSeconds: s.ElapsedSeconds(),
		PaceMinPerKm:    s.CurrentPaceMinPerKm(),
		Calories:        c.calories(),
		AvgHeartRate:    s.AverageHeartRate(),
		MaxHeartRate:    s.MaxHeartRate(),
		Route:           s.RouteCoordinates(),
		Speeds:          s.SegmentSpeeds(),
	}
	if gain, ok := s.ElevationGainM(); ok {
		summary.ElevationGainM = &gain
	}
	return summary
}

func (c *Controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range c.listeners {
		fn(snap)
	}
}

func transitionError(op string, from State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, from)
}
