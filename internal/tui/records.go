package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pacetrack/internal/analysis"
	"pacetrack/internal/service"
)

// RecordsModel is the personal records and fitness screen
type RecordsModel struct {
	runs     *service.RunService
	units    Units
	records  []service.PersonalRecordView
	fitness  *service.FitnessData
	viewport viewport.Model
	loading  bool
	err      error
	ready    bool
}

// NewRecordsModel creates a new records model
func NewRecordsModel(runs *service.RunService, units Units, width, height int) RecordsModel {
	m := RecordsModel{
		runs:    runs,
		units:   units,
		loading: true,
	}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}
	return m
}

// Init initializes the records screen
func (m RecordsModel) Init() tea.Cmd {
	return m.loadRecords
}

type recordsLoadedMsg struct {
	records []service.PersonalRecordView
	fitness *service.FitnessData
	err     error
}

func (m RecordsModel) loadRecords() tea.Msg {
	records, err := m.runs.Records()
	if err != nil {
		return recordsLoadedMsg{err: err}
	}
	fitness, err := m.runs.Fitness(time.Now())
	return recordsLoadedMsg{records: records, fitness: fitness, err: err}
}

// Update handles messages
func (m RecordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.records = msg.records
		m.fitness = msg.fitness
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if !m.loading {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadRecords
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the records screen
func (m RecordsModel) View() string {
	if m.loading {
		return "\n  Loading personal records..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m RecordsModel) renderContent() string {
	var lines []string

	lines = append(lines, cardTitleStyle.Render("Personal Records"))
	if len(m.records) == 0 {
		lines = append(lines, "No personal records yet. Finish a run to set some.")
	} else {
		lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("%-14s %10s %9s %10s  %-20s %s",
			"Record", "Distance", "Time", "Pace", "Run", "When")))
		for _, r := range m.records {
			pace := unknown
			if r.PaceMinPerKm != nil {
				pace = m.units.FormatPace(*r.PaceMinPerKm)
			}
			lines = append(lines, tableRowStyle.Render(fmt.Sprintf("%-14s %10s %9s %10s  %-20s %s",
				r.Label,
				m.units.FormatDistance(r.DistanceKm),
				FormatDuration(r.DurationSeconds),
				pace,
				truncateName(r.RunName, 20),
				humanize.Time(r.AchievedAt),
			)))
		}
	}

	if m.fitness != nil && len(m.fitness.Trend) > 0 {
		lines = append(lines, "", m.renderFitness())
	}

	return strings.Join(lines, "\n")
}

func (m RecordsModel) renderFitness() string {
	cur := m.fitness.Current
	lines := []string{
		cardTitleStyle.Render("Training Load"),
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.0f", cur.CTL)),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.0f", cur.ATL)),
		RenderMetric("Form (TSB)", fmt.Sprintf("%+.0f", cur.TSB)),
		"",
		helpDescStyle.Render(analysis.FormDescription(cur.TSB)),
	}
	return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
