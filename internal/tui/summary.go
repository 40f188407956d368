package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacetrack/internal/analysis"
	"pacetrack/internal/tracker"
)

// SummaryModel shows a completed run: totals, speed profile, predictions
type SummaryModel struct {
	units      Units
	name       string
	summary    tracker.Summary
	newRecords []string
	saveErr    error
	viewport   viewport.Model
	ready      bool
}

// NewSummaryModel creates a summary screen for a finished or stored run
func NewSummaryModel(units Units, name string, sum tracker.Summary, newRecords []string, saveErr error, width, height int) SummaryModel {
	m := SummaryModel{
		units:      units,
		name:       name,
		summary:    sum,
		newRecords: newRecords,
		saveErr:    saveErr,
	}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.viewport.SetContent(m.renderContent())
		m.ready = true
	}
	return m
}

// Init initializes the summary screen
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.renderContent())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the summary screen
func (m SummaryModel) View() string {
	if !m.ready {
		return m.renderContent()
	}
	footer := statusStyle.Render("  j/k or arrows: scroll  esc: back")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m SummaryModel) renderContent() string {
	s := m.summary
	var sections []string

	title := m.name
	if title == "" {
		title = "Run Summary"
	}
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("%s  %s", title, s.StartedAt.Local().Format("Mon Jan 2 15:04"))))

	if m.saveErr != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Run not saved: %v", m.saveErr)))
	}

	lines := []string{
		RenderMetric("Distance", m.units.FormatDistance(s.DistanceKm)),
		RenderMetric("Duration", FormatDuration(s.DurationSeconds)),
		RenderMetric("Pace", m.units.FormatPaceWithUnit(s.PaceMinPerKm)),
		RenderMetric("Avg speed", m.units.FormatSpeed(s.AverageSpeed())),
		RenderMetric("Calories", fmt.Sprintf("%d kcal", s.Calories)),
		RenderMetric("Elevation gain", FormatElevation(s.ElevationGainM)),
		RenderMetric("Avg heart rate", FormatAvgHeartRate(s.AvgHeartRate)),
		RenderMetric("Max heart rate", FormatHeartRate(s.MaxHeartRate)),
	}
	sections = append(sections, cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	if len(m.newRecords) > 0 {
		sections = append(sections, m.renderNewRecords())
	}

	segments := s.Segments()
	if len(segments) > 0 {
		sections = append(sections, m.renderBuckets(segments))
	}

	if chart := speedChart(m.units, s.Speeds); chart != "" {
		sections = append(sections, chart)
	}

	if preds := analysis.Predict(s.DistanceKm, s.DurationSeconds); len(preds) > 0 {
		sections = append(sections, m.renderPredictions(preds))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SummaryModel) renderNewRecords() string {
	lines := []string{sectionStyle.Render("New personal records")}
	for _, cat := range m.newRecords {
		lines = append(lines, lipgloss.NewStyle().Foreground(primaryColor).Render("  ★ "+analysis.GetCategoryLabel(cat)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m SummaryModel) renderBuckets(segments []tracker.Segment) string {
	shares := tracker.BucketShares(segments)
	buckets := make([]tracker.SpeedBucket, 0, len(shares))
	for b := range shares {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	lines := []string{sectionStyle.Render("Route by speed")}
	for _, b := range buckets {
		style := bucketStyle(b)
		lines = append(lines, fmt.Sprintf("  %s %s",
			style.Render(fmt.Sprintf("%-8s", b.String())),
			RenderShareBar(shares[b], 30, lipgloss.Color(b.Color()))+fmt.Sprintf(" %3.0f%%", shares[b]*100)))
	}
	lines = append(lines, RenderSegmentBar(segments, segmentBarLen))
	return strings.Join(lines, "\n") + "\n"
}

func (m SummaryModel) renderPredictions(preds []analysis.RacePrediction) string {
	lines := []string{
		sectionStyle.Render(
			fmt.Sprintf("Race predictions (VDOT %.1f, %s)", preds[0].VDOT, analysis.GetVDOTLabel(preds[0].VDOT))),
	}
	lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("%-14s %9s %12s %10s", "Distance", "Time", "Pace", "Confidence")))
	for _, p := range preds {
		lines = append(lines, tableRowStyle.Render(fmt.Sprintf("%-14s %9s %12s %10s",
			analysis.GetTargetLabel(p.TargetName),
			FormatDuration(float64(p.PredictedSeconds)),
			m.units.FormatPace(p.PredictedPace),
			p.Confidence,
		)))
	}
	return strings.Join(lines, "\n")
}
