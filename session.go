package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"pacetrack/internal/analysis"
	"pacetrack/internal/feed"
	"pacetrack/internal/parser"
	"pacetrack/internal/service"
	"pacetrack/internal/tracker"
	"pacetrack/internal/tui"
)

const stopTimeout = 5 * time.Second

// sourceFlags selects where position fixes come from
type sourceFlags struct {
	replay   string
	speed    float64
	stdin    bool
	autoStop bool
}

func (f *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.replay, "replay", "", "replay a recorded GPX, FIT or JSON-lines track")
	fs.Float64Var(&f.speed, "speed", 1, "replay speed multiplier; 0 replays as fast as possible")
	fs.BoolVar(&f.stdin, "stdin", false, "read JSON-lines fixes from stdin")
	fs.BoolVar(&f.autoStop, "auto-stop", false, "stop the run when the feed ends")
}

func (f sourceFlags) enabled() bool {
	return f.replay != "" || f.stdin
}

// session is one controller and event loop plus the feed driving it
type session struct {
	e         *env
	flags     sourceFlags
	source    string
	trackName string
	loop      *feed.Loop
	src       feed.Source // nil when only the clock drives the run

	completed func(tracker.Summary)
}

func newSession(e *env, f sourceFlags) (*session, error) {
	if f.replay != "" && f.stdin {
		return nil, errors.New("--replay and --stdin are mutually exclusive")
	}

	s := &session{e: e, flags: f, source: service.SourceLive}
	tcfg := e.cfg.Tracking
	ctrlOpts := tracker.ControllerOptions{
		Processor: tracker.ProcessorOptions{
			Throttle:     tcfg.ThrottleEnabled(),
			MinInterval:  tcfg.MinInterval(),
			RecordSpeeds: tcfg.RecordSpeedsEnabled(),
		},
		CaloriesPerKm: tcfg.CaloriesPerKm,
	}
	loopCfg := feed.Config{
		Metrics:   e.metrics,
		Logger:    e.log.Named("feed"),
		Completed: s.handleCompleted,
	}

	switch {
	case f.replay != "":
		track, err := parser.ParseFile(f.replay)
		if err != nil {
			return nil, fmt.Errorf("loading replay: %w", err)
		}
		player := feed.NewPlayer(track, f.speed)
		ctrlOpts.Clock = player.Clock
		loopCfg.ExternalTicks = true
		s.src = player
		s.source = service.SourceReplay
		s.trackName = track.Name
		e.log.Infow("replaying track", "path", f.replay, "samples", len(track.Samples), "speed", f.speed)
	case f.stdin:
		s.src = &feed.Stream{
			Reader: os.Stdin,
			OnBadLine: func(lineNo int, err error) {
				e.log.Warnw("skipping bad feed line", "line", lineNo, "error", err)
			},
		}
		s.source = service.SourceStdin
	default:
		s.flags.autoStop = false
	}

	loopCfg.Controller = tracker.NewController(ctrlOpts)
	s.loop = feed.NewLoop(loopCfg)
	return s, nil
}

func (s *session) handleCompleted(sum tracker.Summary) {
	if s.completed != nil {
		s.completed(sum)
	}
}

// onCompleted records every finished run and hands the outcome to report.
// It must be called before the loop starts.
func (s *session) onCompleted(runs *service.RunService, name string, report func(*service.RecordResult, error)) {
	if name == "" {
		name = s.trackName
	}
	s.completed = func(sum tracker.Summary) {
		res, err := runs.Record(sum, name, s.source)
		if errors.Is(err, service.ErrEmptyRun) {
			s.e.log.Infow("discarding empty run", "run_id", sum.RunID)
			return
		}
		report(res, err)
	}
}

// start launches the loop; the returned func cancels it and waits for exit
func (s *session) start(ctx context.Context) func() {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loop.Run(loopCtx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// drive starts a run and feeds it. With auto-stop the run is stopped once
// the feed is exhausted and its summary returned; otherwise the summary is nil.
func (s *session) drive(ctx context.Context) (*tracker.Summary, error) {
	if _, err := s.loop.Do(ctx, feed.CmdStart); err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	if s.src != nil {
		err := s.src.Feed(ctx, s.loop)
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("feeding %s: %w", s.source, err)
		}
		s.e.log.Infow("feed finished", "source", s.source)
	}
	if !s.flags.autoStop || ctx.Err() != nil {
		return nil, nil
	}
	return s.stop(ctx)
}

func (s *session) stop(ctx context.Context) (*tracker.Summary, error) {
	res, err := s.loop.Do(ctx, feed.CmdStop)
	if err != nil {
		return nil, fmt.Errorf("stopping run: %w", err)
	}
	return res.Summary, nil
}

// runHeadless tracks until the feed ends (with auto-stop) or ctx is cancelled
func (s *session) runHeadless(ctx context.Context) (*tracker.Summary, error) {
	shutdown := s.start(context.Background())
	defer shutdown()

	sum, err := s.drive(ctx)
	if err != nil || sum != nil {
		return sum, err
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.stop(stopCtx)
}

// runTUI opens the terminal UI on the live run. A replay or stdin feed
// starts the run immediately; otherwise the user starts it.
func (s *session) runTUI(ctx context.Context, runs *service.RunService) error {
	shutdown := s.start(ctx)
	defer shutdown()

	snaps, unsubscribe := s.loop.Subscribe()
	defer unsubscribe()

	app := tui.NewApp(tui.Options{
		Loop:      s.loop,
		Snapshots: snaps,
		Runs:      runs,
		Units:     tui.NewUnits(s.e.cfg.Display),
		Source:    s.source,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if s.src != nil {
		go func() {
			sum, err := s.drive(ctx)
			if userEnded(err) {
				s.e.log.Infow("feed ended after the run was closed in the UI", "source", s.source)
				return
			}
			if err != nil {
				s.e.log.Errorw("feed failed", "error", err)
				return
			}
			if sum == nil {
				return
			}
			// auto-stopped outside the UI, so the UI never saw the stop reply
			res, err := runs.Record(*sum, s.trackName, s.source)
			if errors.Is(err, service.ErrEmptyRun) {
				res, err = nil, nil
			}
			p.Send(tui.RunFinishedMsg{Summary: *sum, Result: res, Err: err})
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// userEnded reports whether a feed's error only means the run was already
// stopped, reset or shut down from the UI before the feed finished.
func userEnded(err error) bool {
	return errors.Is(err, feed.ErrLoopStopped) || errors.Is(err, tracker.ErrInvalidTransition)
}

func printSummary(units tui.Units, sum *tracker.Summary, res *service.RecordResult) {
	if sum == nil {
		return
	}
	fmt.Printf("Run finished %s\n", humanize.Time(sum.EndedAt))
	fmt.Printf("  Distance   %s\n", units.FormatDistance(sum.DistanceKm))
	fmt.Printf("  Time       %s\n", tui.FormatDuration(sum.DurationSeconds))
	fmt.Printf("  Pace       %s\n", units.FormatPaceWithUnit(sum.PaceMinPerKm))
	fmt.Printf("  Calories   %s kcal\n", humanize.Comma(int64(sum.Calories)))
	fmt.Printf("  Heart rate %s avg\n", tui.FormatAvgHeartRate(sum.AvgHeartRate))
	fmt.Printf("  Elevation  %s\n", tui.FormatElevation(sum.ElevationGainM))

	if res == nil {
		fmt.Println("Not saved: no distance or time was recorded.")
		return
	}
	fmt.Printf("Saved as %q (%s)\n", res.Run.Name, res.Run.ID)
	if len(res.NewRecords) > 0 {
		labels := make([]string, 0, len(res.NewRecords))
		for _, c := range res.NewRecords {
			labels = append(labels, analysis.GetCategoryLabel(c))
		}
		fmt.Printf("New personal records: %s\n", strings.Join(labels, ", "))
	}
}
