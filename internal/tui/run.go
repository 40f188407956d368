package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"pacetrack/internal/feed"
	"pacetrack/internal/service"
	"pacetrack/internal/tracker"
)

const (
	chartPoints   = 60
	segmentBarLen = 48
	commandWait   = 2 * time.Second
)

// Commander sends lifecycle commands to the event loop
type Commander interface {
	Do(ctx context.Context, cmd feed.Command) (feed.CommandResult, error)
}

// RunModel is the live run screen
type RunModel struct {
	loop   Commander
	runs   *service.RunService
	units  Units
	source string
	snap   tracker.Snapshot
	status string
	err    error
}

// NewRunModel creates the live run screen
func NewRunModel(loop Commander, runs *service.RunService, units Units, source string) RunModel {
	return RunModel{loop: loop, runs: runs, units: units, source: source}
}

// SnapshotMsg carries a new live run state
type SnapshotMsg struct {
	Snapshot tracker.Snapshot
}

// RunFinishedMsg is sent after a run is stopped and recorded
type RunFinishedMsg struct {
	Summary tracker.Summary
	Result  *service.RecordResult
	Err     error // recording error; the summary is still valid
}

type commandDoneMsg struct {
	cmd    feed.Command
	result feed.CommandResult
	err    error
}

// WaitForSnapshot blocks on the subscription and delivers the next snapshot
func WaitForSnapshot(ch <-chan tracker.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// Init initializes the run screen
func (m RunModel) Init() tea.Cmd {
	return nil
}

func (m RunModel) send(cmd feed.Command) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandWait)
		defer cancel()
		result, err := m.loop.Do(ctx, cmd)
		return commandDoneMsg{cmd: cmd, result: result, err: err}
	}
}

func (m RunModel) record(sum tracker.Summary) tea.Cmd {
	return func() tea.Msg {
		if m.runs == nil {
			return RunFinishedMsg{Summary: sum}
		}
		res, err := m.runs.Record(sum, "", m.source)
		if errors.Is(err, service.ErrEmptyRun) {
			err = nil
		}
		return RunFinishedMsg{Summary: sum, Result: res, Err: err}
	}
}

// Update handles messages
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = msg.Snapshot

	case RunFinishedMsg:
		m.status = "Run saved"
		if msg.Err != nil {
			m.status = ""
			m.err = msg.Err
		} else if msg.Result == nil {
			m.status = "Run finished (not saved)"
		}

	case commandDoneMsg:
		m.err = msg.err
		if msg.err != nil {
			m.status = ""
			return m, nil
		}
		m.status = "Run " + msg.result.State.String()
		if msg.result.Summary != nil {
			m.status = "Saving run..."
			return m, m.record(*msg.result.Summary)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			switch m.snap.State {
			case tracker.StateIdle:
				return m, m.send(feed.CmdStart)
			case tracker.StateCompleted:
				return m, m.send(feed.CmdReset)
			}
		case " ", "p":
			switch m.snap.State {
			case tracker.StateRunning:
				return m, m.send(feed.CmdPause)
			case tracker.StatePaused:
				return m, m.send(feed.CmdResume)
			}
		case "x":
			if m.snap.State == tracker.StateRunning || m.snap.State == tracker.StatePaused {
				return m, m.send(feed.CmdStop)
			}
		case "r":
			return m, m.send(feed.CmdReset)
		}
	}
	return m, nil
}

// View renders the run screen
func (m RunModel) View() string {
	var sections []string

	stats := m.renderStatsCard()
	side := m.renderSensorCard()
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, stats, "  ", side))

	if chart := m.renderSpeedChart(); chart != "" {
		sections = append(sections, chart)
	}
	if bar := m.renderSegmentBar(); bar != "" {
		sections = append(sections, bar)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("  %v", m.err)))
	} else if m.status != "" {
		sections = append(sections, statusStyle.Render("  "+m.status))
	}
	sections = append(sections, statusStyle.Render(m.keyHint()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m RunModel) renderStatsCard() string {
	title := cardTitleStyle.Render("Run · " + stateLabel(m.snap.State))

	lines := []string{
		RenderMetric("Distance", m.units.FormatDistance(m.snap.DistanceKm)),
		RenderMetric("Duration", FormatDuration(m.snap.ElapsedSeconds)),
		RenderMetric("Pace", m.units.FormatPaceWithUnit(m.snap.PaceMinPerKm)),
		RenderMetric("Calories", fmt.Sprintf("%d kcal", m.snap.Calories)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m RunModel) renderSensorCard() string {
	title := cardTitleStyle.Render("Sensors")

	position := unknown
	if m.snap.Center != nil {
		position = fmt.Sprintf("%.5f, %.5f", m.snap.Center.Lat, m.snap.Center.Lon)
	}

	lines := []string{
		RenderMetric("Speed", m.units.FormatSpeed(m.snap.CurrentSpeed)),
		RenderMetric("Heart rate", FormatHeartRate(m.snap.HeartRate)),
		RenderMetric("Elevation gain", FormatElevation(m.snap.ElevationGainM)),
		RenderMetric("Position", position),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m RunModel) renderSpeedChart() string {
	graph := speedChart(m.units, m.snap.Speeds)
	if graph == "" {
		return ""
	}
	return cardStyle.Render(graph)
}

// speedChart plots the most recent known speeds in the display unit
func speedChart(u Units, speeds []float64) string {
	data := knownSpeeds(speeds, chartPoints)
	if len(data) <= 2 {
		return ""
	}
	factor := 3.6
	if u.IsMiles() {
		factor /= kmPerMile
	}
	for i := range data {
		data[i] *= factor
	}
	return asciigraph.Plot(data,
		asciigraph.Height(6),
		asciigraph.Width(60),
		asciigraph.Precision(1),
		asciigraph.Caption("speed ("+speedLabel(u)+")"),
	)
}

func (m RunModel) renderSegmentBar() string {
	return RenderSegmentBar(m.snap.Segments(), segmentBarLen)
}

func (m RunModel) keyHint() string {
	switch m.snap.State {
	case tracker.StateIdle:
		return "enter: start run"
	case tracker.StateRunning:
		return "space/p: pause  x: stop"
	case tracker.StatePaused:
		return "space/p: resume  x: stop"
	case tracker.StateCompleted:
		return "enter/r: new run  2: history"
	}
	return ""
}

// RenderSegmentBar draws the most recent route segments as colored blocks
func RenderSegmentBar(segments []tracker.Segment, width int) string {
	if len(segments) == 0 {
		return ""
	}
	if len(segments) > width {
		segments = segments[len(segments)-width:]
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteString(bucketStyle(s.Bucket).Render("█"))
	}

	legend := []string{}
	for _, bucket := range routeBuckets {
		legend = append(legend, bucketStyle(bucket).Render("■ "+bucket.String()))
	}
	return "  " + b.String() + "\n  " + strings.Join(legend, "  ")
}

// knownSpeeds returns the last n measured speeds, skipping unknowns
func knownSpeeds(speeds []float64, n int) []float64 {
	out := make([]float64, 0, n)
	for _, s := range speeds {
		if tracker.SpeedKnown(s) {
			out = append(out, s)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func speedLabel(u Units) string {
	if u.IsMiles() {
		return "mph"
	}
	return "km/h"
}

func stateLabel(s tracker.State) string {
	switch s {
	case tracker.StateRunning:
		return successStyle.Render("running")
	case tracker.StatePaused:
		return warningStyle.Render("paused")
	case tracker.StateCompleted:
		return "completed"
	default:
		return "ready"
	}
}
