package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pacetrack/internal/metrics"
	"pacetrack/internal/parser"
	"pacetrack/internal/tracker"
)

var t0 = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

type testLoop struct {
	loop      *Loop
	clock     *VirtualClock
	metrics   *metrics.Registry
	completed chan tracker.Summary
	cancel    context.CancelFunc
	errc      chan error
	once      sync.Once
}

func startTestLoop(t *testing.T) *testLoop {
	t.Helper()
	return startTestLoopWithClock(t, NewVirtualClock(t0))
}

func startTestLoopWithClock(t *testing.T, clock *VirtualClock) *testLoop {
	t.Helper()

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	completed := make(chan tracker.Summary, 1)

	ctrl := tracker.NewController(tracker.ControllerOptions{
		Processor: tracker.DefaultProcessorOptions(),
		Clock:     clock,
	})
	loop := NewLoop(Config{
		Controller:    ctrl,
		Metrics:       reg,
		ExternalTicks: true,
		Completed:     func(s tracker.Summary) { completed <- s },
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	tl := &testLoop{loop: loop, clock: clock, metrics: reg, completed: completed, cancel: cancel, errc: errc}
	t.Cleanup(tl.stop)
	return tl
}

func (tl *testLoop) stop() {
	tl.once.Do(func() {
		tl.cancel()
		<-tl.errc
	})
}

func (tl *testLoop) do(t *testing.T, cmd Command) CommandResult {
	t.Helper()
	res, err := tl.loop.Do(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Do(%v): %v", cmd, err)
	}
	return res
}

func fix(lat, lon, speed float64, at time.Time) tracker.PositionSample {
	return tracker.PositionSample{Latitude: lat, Longitude: lon, Speed: speed, Timestamp: at}
}

func TestLoopRunLifecycle(t *testing.T) {
	tl := startTestLoop(t)
	ctx := context.Background()

	if res := tl.do(t, CmdStart); res.State != tracker.StateRunning {
		t.Fatalf("state after start = %v, want running", res.State)
	}

	if err := tl.loop.SubmitSample(ctx, fix(0, 0, 3, t0)); err != nil {
		t.Fatal(err)
	}
	tl.clock.Set(t0.Add(11 * time.Second))
	if err := tl.loop.SubmitSample(ctx, fix(0, 0.01, 3, t0.Add(11*time.Second))); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		if err := tl.loop.SubmitTick(ctx); err != nil {
			t.Fatal(err)
		}
	}

	res := tl.do(t, CmdStop)
	if res.State != tracker.StateCompleted {
		t.Errorf("state after stop = %v, want completed", res.State)
	}
	if res.Summary == nil {
		t.Fatal("stop returned no summary")
	}
	if res.Summary.DurationSeconds != 60 {
		t.Errorf("DurationSeconds = %v, want 60", res.Summary.DurationSeconds)
	}
	if d := res.Summary.DistanceKm; d < 1.1 || d > 1.12 {
		t.Errorf("DistanceKm = %v, want ~1.11", d)
	}

	select {
	case s := <-tl.completed:
		if s.RunID != res.Summary.RunID {
			t.Errorf("completed RunID = %q, want %q", s.RunID, res.Summary.RunID)
		}
	case <-time.After(time.Second):
		t.Fatal("Completed callback not called")
	}

	if got := testutil.ToFloat64(tl.metrics.SamplesTotal.WithLabelValues("accepted")); got != 2 {
		t.Errorf("accepted samples = %v, want 2", got)
	}
	if got := testutil.ToFloat64(tl.metrics.TicksTotal); got != 60 {
		t.Errorf("ticks = %v, want 60", got)
	}
	if got := testutil.ToFloat64(tl.metrics.RunsCompleted); got != 1 {
		t.Errorf("runs completed = %v, want 1", got)
	}
}

func TestLoopRejectsInvalidCommand(t *testing.T) {
	tl := startTestLoop(t)

	_, err := tl.loop.Do(context.Background(), CmdPause)
	if !errors.Is(err, tracker.ErrInvalidTransition) {
		t.Errorf("pause while idle error = %v, want ErrInvalidTransition", err)
	}
	if s := tl.loop.Snapshot().State; s != tracker.StateIdle {
		t.Errorf("state = %v, want idle", s)
	}
}

func TestLoopIgnoresInputWhilePaused(t *testing.T) {
	tl := startTestLoop(t)
	ctx := context.Background()

	tl.do(t, CmdStart)
	tl.loop.SubmitTick(ctx)
	tl.do(t, CmdPause)

	tl.loop.SubmitTick(ctx)
	tl.loop.SubmitSample(ctx, fix(0, 0, 3, t0))
	// a command round trip guarantees the queued events were applied
	tl.do(t, CmdResume)

	snap := tl.loop.Snapshot()
	if snap.ElapsedSeconds != 1 {
		t.Errorf("ElapsedSeconds = %v, want 1", snap.ElapsedSeconds)
	}
	if len(snap.Route) != 0 {
		t.Errorf("route length = %d, want 0", len(snap.Route))
	}
	if got := testutil.ToFloat64(tl.metrics.SamplesTotal.WithLabelValues("inactive")); got != 1 {
		t.Errorf("inactive samples = %v, want 1", got)
	}
}

func TestLoopSubscribe(t *testing.T) {
	tl := startTestLoop(t)

	ch, unsubscribe := tl.loop.Subscribe()
	defer unsubscribe()

	first := <-ch
	if first.State != tracker.StateIdle {
		t.Errorf("initial snapshot state = %v, want idle", first.State)
	}

	tl.do(t, CmdStart)
	select {
	case snap := <-ch:
		if snap.State != tracker.StateRunning {
			t.Errorf("published state = %v, want running", snap.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestLoopStopped(t *testing.T) {
	tl := startTestLoop(t)
	tl.stop()

	if err := tl.loop.SubmitTick(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("SubmitTick after stop = %v, want ErrLoopStopped", err)
	}
	if _, err := tl.loop.Do(context.Background(), CmdStart); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Do after stop = %v, want ErrLoopStopped", err)
	}
}

func TestPlayerReplaysInVirtualTime(t *testing.T) {
	tl := startTestLoop(t)
	ctx := context.Background()

	// one fix every 5 s: the 10 s throttle keeps every other one
	var samples []tracker.PositionSample
	for i := 0; i <= 6; i++ {
		at := t0.Add(time.Duration(i*5) * time.Second)
		samples = append(samples, fix(0, float64(i)*0.0001, 2, at))
	}
	track := &parser.Track{
		Samples:    samples,
		HeartRates: []tracker.HeartRateSample{{BPM: 150, Timestamp: t0.Add(3 * time.Second)}},
	}

	player := NewPlayer(track, 0)
	player.Clock = tl.clock
	tl.clock.Set(t0.Add(-time.Second))

	tl.do(t, CmdStart)
	if err := player.Feed(ctx, tl.loop); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	res := tl.do(t, CmdStop)

	if got := len(res.Summary.Route); got != 4 {
		t.Errorf("accepted points = %d, want 4", got)
	}
	if got := testutil.ToFloat64(tl.metrics.SamplesTotal.WithLabelValues("throttled")); got != 3 {
		t.Errorf("throttled = %v, want 3", got)
	}
	if res.Summary.MaxHeartRate == nil || *res.Summary.MaxHeartRate != 150 {
		t.Errorf("MaxHeartRate = %v, want 150", res.Summary.MaxHeartRate)
	}
	if res.Summary.DurationSeconds != 31 {
		t.Errorf("DurationSeconds = %v, want 31", res.Summary.DurationSeconds)
	}
}

func TestInstantReplayKeepsThrottleSchedule(t *testing.T) {
	// 61 fixes one second apart, 0.0001 degrees of longitude each
	var samples []tracker.PositionSample
	for i := 0; i <= 60; i++ {
		samples = append(samples, fix(0, float64(i)*0.0001, 1.2, t0.Add(time.Duration(i)*time.Second)))
	}
	player := NewPlayer(&parser.Track{Samples: samples}, 0)
	tl := startTestLoopWithClock(t, player.Clock)
	ctx := context.Background()

	tl.do(t, CmdStart)
	if err := player.Feed(ctx, tl.loop); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	res := tl.do(t, CmdStop)

	// accepted at t=0,10,...,60
	if got := len(res.Summary.Route); got != 7 {
		t.Errorf("accepted points = %d, want 7", got)
	}
	if d := res.Summary.DistanceKm; d < 0.66 || d > 0.675 {
		t.Errorf("DistanceKm = %v, want ~0.667", d)
	}
	if got := testutil.ToFloat64(tl.metrics.SamplesTotal.WithLabelValues("throttled")); got != 54 {
		t.Errorf("throttled = %v, want 54", got)
	}
	if res.Summary.DurationSeconds != 61 {
		t.Errorf("DurationSeconds = %v, want 61", res.Summary.DurationSeconds)
	}
}

func TestStreamFeed(t *testing.T) {
	tl := startTestLoop(t)
	ctx := context.Background()
	tl.do(t, CmdStart)

	input := `{"lat":0,"lon":0,"speed":2.5}
garbage
{"hr":140}
`
	var bad []int
	stream := &Stream{
		Reader:    strings.NewReader(input),
		Now:       tl.clock.Now,
		OnBadLine: func(n int, err error) { bad = append(bad, n) },
	}
	if err := stream.Feed(ctx, tl.loop); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	tl.do(t, CmdPause)

	snap := tl.loop.Snapshot()
	if len(snap.Route) != 1 {
		t.Errorf("route length = %d, want 1", len(snap.Route))
	}
	if snap.HeartRate == nil || *snap.HeartRate != 140 {
		t.Errorf("HeartRate = %v, want 140", snap.HeartRate)
	}
	if len(bad) != 1 || bad[0] != 2 {
		t.Errorf("bad lines = %v, want [2]", bad)
	}
}
