package tracker

import (
	"errors"
	"math"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestController() (*Controller, *fakeClock) {
	clock := &fakeClock{now: t0}
	c := NewController(ControllerOptions{
		Processor: DefaultProcessorOptions(),
		Clock:     clock,
	})
	return c, clock
}

func TestControllerScenarioDistance(t *testing.T) {
	c, clock := newTestController()
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.HandleSample(sampleAt(0, 0, 3))
	clock.Advance(11 * time.Second)
	c.HandleSample(sampleAt(0, 0.01, 3))

	snap := c.Snapshot()
	if math.Abs(snap.DistanceKm-1.11)/1.11 > 0.01 {
		t.Errorf("DistanceKm = %v, want ~1.11", snap.DistanceKm)
	}
	if len(snap.Route) != 2 {
		t.Errorf("len(Route) = %d, want 2", len(snap.Route))
	}
	if snap.Center == nil || snap.Center.Lon != 0.01 {
		t.Errorf("Center = %v, want last accepted position", snap.Center)
	}
}

func TestControllerHandleSampleAtUsesDeliveryTime(t *testing.T) {
	c, clock := newTestController()
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// the clock has moved on; acceptance follows the delivery times
	clock.Advance(time.Minute)

	tests := []struct {
		at   time.Duration
		lon  float64
		want AcceptResult
	}{
		{0, 0, Accepted},
		{5 * time.Second, 0.001, Throttled},
		{10 * time.Second, 0.002, Accepted},
	}
	for _, tt := range tests {
		if got := c.HandleSampleAt(sampleAt(0, tt.lon, 3), t0.Add(tt.at)); got != tt.want {
			t.Errorf("HandleSampleAt(+%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
	if n := len(c.Snapshot().Route); n != 2 {
		t.Errorf("len(Route) = %d, want 2", n)
	}
}

func TestControllerPauseResumeStop(t *testing.T) {
	c, clock := newTestController()
	c.Start()

	c.HandleSample(sampleAt(0, 0, 3))
	clock.Advance(time.Minute)
	c.HandleSample(sampleAt(0, 0.005, 3))
	for i := 0; i < 30; i++ {
		c.HandleTick()
	}
	distance := c.Session().TotalDistanceKm()
	elapsed := c.Session().ElapsedSeconds()

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// Paused runs ignore samples and ticks
	clock.Advance(time.Minute)
	if got := c.HandleSample(sampleAt(0, 0.02, 3)); got != Inactive {
		t.Errorf("sample while paused = %v, want Inactive", got)
	}
	if c.HandleTick() {
		t.Error("tick while paused should be ignored")
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	summary, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if summary.DistanceKm != distance {
		t.Errorf("summary distance = %v, want %v", summary.DistanceKm, distance)
	}
	if summary.DurationSeconds != elapsed {
		t.Errorf("summary duration = %v, want %v", summary.DurationSeconds, elapsed)
	}
	if c.State() != StateCompleted {
		t.Errorf("State = %v, want completed", c.State())
	}
	if got, ok := c.Summary(); !ok || got.RunID != summary.RunID {
		t.Error("Summary should return the frozen summary")
	}

	// Completed runs accept no further mutation
	if got := c.HandleSample(sampleAt(1, 1, 3)); got != Inactive {
		t.Errorf("sample after stop = %v, want Inactive", got)
	}
}

func TestControllerInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Controller)
		op    func(c *Controller) error
	}{
		{"stop while idle", func(c *Controller) {}, func(c *Controller) error { _, err := c.Stop(); return err }},
		{"pause while idle", func(c *Controller) {}, (*Controller).Pause},
		{"resume while idle", func(c *Controller) {}, (*Controller).Resume},
		{"resume while running", func(c *Controller) { c.Start() }, (*Controller).Resume},
		{"pause while paused", func(c *Controller) { c.Start(); c.Pause() }, (*Controller).Pause},
		{"start while running", func(c *Controller) { c.Start() }, (*Controller).Start},
		{"start while paused", func(c *Controller) { c.Start(); c.Pause() }, (*Controller).Start},
		{"stop while completed", func(c *Controller) { c.Start(); c.Stop() }, func(c *Controller) error { _, err := c.Stop(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController()
			tt.setup(c)
			before := c.State()

			err := tt.op(c)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error = %v, want ErrInvalidTransition", err)
			}
			if c.State() != before {
				t.Errorf("state changed %v -> %v on rejected transition", before, c.State())
			}
		})
	}
}

func TestControllerRestartAfterCompleted(t *testing.T) {
	c, clock := newTestController()
	c.Start()
	c.HandleSample(sampleAt(0, 0, 3))
	clock.Advance(time.Minute)
	c.HandleSample(sampleAt(0, 0.01, 3))
	c.Stop()
	firstID := c.Snapshot().RunID

	if err := c.Start(); err != nil {
		t.Fatalf("Start after completed: %v", err)
	}
	snap := c.Snapshot()
	if snap.DistanceKm != 0 || len(snap.Route) != 0 {
		t.Error("start should clear the previous run")
	}
	if snap.RunID == firstID || snap.RunID == "" {
		t.Errorf("RunID = %q, want a new id", snap.RunID)
	}
	if _, ok := c.Summary(); ok {
		t.Error("summary should be cleared on start")
	}
}

func TestControllerReset(t *testing.T) {
	c, clock := newTestController()
	c.Start()
	c.HandleSample(sampleAt(0, 0, 3))
	clock.Advance(time.Minute)
	c.HandleSample(sampleAt(0, 0.01, 3))
	c.Pause()

	c.Reset()

	snap := c.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("State = %v, want idle", snap.State)
	}
	if snap.DistanceKm != 0 || len(snap.Route) != 0 || len(snap.Speeds) != 0 {
		t.Error("reset should clear distance, route and speeds")
	}
	if snap.Center != nil {
		t.Error("reset should clear the last accepted position")
	}
}

func TestControllerSummaryMetrics(t *testing.T) {
	c, clock := newTestController()
	c.Start()

	first := sampleAt(0, 0, 3)
	first.Altitude = floatPtr(10)
	second := sampleAt(0, 0.01, 3)
	second.Altitude = floatPtr(25)

	c.HandleSample(first)
	clock.Advance(11 * time.Second)
	c.HandleSample(second)
	c.HandleHeartRate(HeartRateSample{BPM: 140})
	c.HandleHeartRate(HeartRateSample{BPM: 160})
	c.HandleHeartRate(HeartRateSample{BPM: 0}) // dropped
	for i := 0; i < 60; i++ {
		c.HandleTick()
	}

	summary, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if want := int(summary.DistanceKm * DefaultCaloriesPerKm); summary.Calories != want {
		t.Errorf("Calories = %d, want %d", summary.Calories, want)
	}
	if summary.ElevationGainM == nil || *summary.ElevationGainM != 15 {
		t.Errorf("ElevationGainM = %v, want 15", summary.ElevationGainM)
	}
	if summary.AvgHeartRate == nil || *summary.AvgHeartRate != 150 {
		t.Errorf("AvgHeartRate = %v, want 150", summary.AvgHeartRate)
	}
	if summary.MaxHeartRate == nil || *summary.MaxHeartRate != 160 {
		t.Errorf("MaxHeartRate = %v, want 160", summary.MaxHeartRate)
	}
	wantPace := 60.0 / 60 / summary.DistanceKm
	if math.Abs(summary.PaceMinPerKm-wantPace) > 1e-9 {
		t.Errorf("PaceMinPerKm = %v, want %v", summary.PaceMinPerKm, wantPace)
	}
	if !summary.EndedAt.Equal(clock.now) {
		t.Errorf("EndedAt = %v, want %v", summary.EndedAt, clock.now)
	}
}

func TestControllerSummaryUnknownData(t *testing.T) {
	c, _ := newTestController()
	c.Start()
	c.HandleSample(sampleAt(0, 0, -1))
	summary, _ := c.Stop()

	if summary.ElevationGainM != nil {
		t.Errorf("ElevationGainM = %v, want nil without altitude", *summary.ElevationGainM)
	}
	if summary.AvgHeartRate != nil || summary.MaxHeartRate != nil {
		t.Error("heart rate should be unknown without readings")
	}
	if Classify(summary.Speeds[0]) != BucketUnknown {
		t.Error("negative speed should classify as unknown")
	}
}

func TestControllerOnChange(t *testing.T) {
	c, clock := newTestController()
	var snaps []Snapshot
	c.OnChange(func(s Snapshot) { snaps = append(snaps, s) })

	c.Start()
	c.HandleSample(sampleAt(0, 0, 3))
	c.HandleSample(sampleAt(0, 0.001, 3)) // throttled, no notification
	clock.Advance(time.Minute)
	c.HandleTick()

	if len(snaps) != 3 {
		t.Fatalf("notifications = %d, want 3", len(snaps))
	}
	if snaps[0].State != StateRunning {
		t.Errorf("first notification state = %v, want running", snaps[0].State)
	}
	if snaps[2].ElapsedSeconds != 1 {
		t.Errorf("last notification elapsed = %v, want 1", snaps[2].ElapsedSeconds)
	}
}
