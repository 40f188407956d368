package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pacetrack/internal/service"
	"pacetrack/internal/store"
)

// HistoryModel is the stored runs list screen
type HistoryModel struct {
	runs     *service.RunService
	units    Units
	list     []store.Run
	totals   store.Totals
	table    table.Model
	offset   int
	pageSize int
	loading  bool
	err      error
}

// NewHistoryModel creates a new history model
func NewHistoryModel(runs *service.RunService, units Units) HistoryModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "When", Width: 14},
			{Title: "Name", Width: 22},
			{Title: "Distance", Width: 10},
			{Title: "Time", Width: 9},
			{Title: "Pace", Width: 9},
			{Title: "HR", Width: 8},
			{Title: "Strava", Width: 6},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(mutedColor).BorderBottom(true).Bold(true).Foreground(primaryColor)
	s.Selected = s.Selected.Foreground(textColor).Background(primaryColor).Bold(true)
	t.SetStyles(s)

	return HistoryModel{
		runs:     runs,
		units:    units,
		table:    t,
		pageSize: 15,
		loading:  true,
	}
}

// Init initializes the history screen
func (m HistoryModel) Init() tea.Cmd {
	return m.loadPage
}

type historyLoadedMsg struct {
	runs   []store.Run
	totals store.Totals
	err    error
}

// OpenRunMsg asks the app to show a stored run
type OpenRunMsg struct {
	RunID string
	Name  string
}

func (m HistoryModel) loadPage() tea.Msg {
	runs, err := m.runs.History(m.pageSize, m.offset)
	if err != nil {
		return historyLoadedMsg{err: err}
	}
	totals, err := m.runs.Totals()
	if err != nil {
		return historyLoadedMsg{err: err}
	}
	return historyLoadedMsg{runs: runs, totals: totals}
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.list = msg.runs
		m.totals = msg.totals
		m.table.SetRows(m.rows())
		m.table.SetCursor(0)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "pgdown", "n":
			if m.offset+m.pageSize < m.totals.Runs {
				m.offset += m.pageSize
				m.loading = true
				return m, m.loadPage
			}
			return m, nil
		case "pgup", "b":
			if m.offset > 0 {
				m.offset -= m.pageSize
				if m.offset < 0 {
					m.offset = 0
				}
				m.loading = true
				return m, m.loadPage
			}
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadPage
		case "enter":
			if i := m.table.Cursor(); i >= 0 && i < len(m.list) {
				run := m.list[i]
				return m, func() tea.Msg {
					return OpenRunMsg{RunID: run.ID, Name: run.Name}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m HistoryModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.list))
	for _, r := range m.list {
		uploaded := ""
		if r.Uploaded() {
			uploaded = "✓"
		}
		rows = append(rows, table.Row{
			humanize.Time(r.StartedAt),
			truncateName(r.Name, 22),
			m.units.FormatDistance(r.DistanceKm),
			FormatDuration(r.DurationSeconds),
			m.units.FormatPace(r.PaceMinPerKm),
			FormatAvgHeartRate(r.AvgHeartrate),
			uploaded,
		})
	}
	return rows
}

// View renders the history list
func (m HistoryModel) View() string {
	if m.loading {
		return "\n  Loading runs..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.list) == 0 {
		return "\n  No runs yet. Start one with 'pacetrack run'."
	}

	title := cardTitleStyle.Render(fmt.Sprintf("Runs (%d-%d of %d)", m.offset+1, m.offset+len(m.list), m.totals.Runs))
	totals := statusStyle.Render(fmt.Sprintf("  Total: %s in %s · %s kcal",
		m.units.FormatDistance(m.totals.DistanceKm),
		FormatDuration(m.totals.DurationSeconds),
		humanize.Comma(int64(m.totals.Calories)),
	))
	help := statusStyle.Render("  enter: details  n/b: next/prev page  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View(), totals, help)
}
