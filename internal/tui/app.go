// Package tui is the Bubble Tea terminal interface.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacetrack/internal/service"
	"pacetrack/internal/tracker"
)

// Screen identifiers
type Screen int

const (
	ScreenRun Screen = iota
	ScreenHistory
	ScreenRecords
	ScreenSummary
	ScreenHelp
)

// Options wires the App
type Options struct {
	Loop      Commander                // nil for the history-only browser
	Snapshots <-chan tracker.Snapshot  // live updates, from feed.Loop.Subscribe
	Runs      *service.RunService
	Units     Units
	Source    string // recorded as the run source
}

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	run     RunModel
	history HistoryModel
	records RecordsModel
	summary SummaryModel
	help    HelpModel

	live      bool
	snapshots <-chan tracker.Snapshot
	runs      *service.RunService
	units     Units

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies
func NewApp(opts Options) *App {
	a := &App{
		screen:    ScreenHistory,
		live:      opts.Loop != nil,
		snapshots: opts.Snapshots,
		runs:      opts.Runs,
		units:     opts.Units,
		history:   NewHistoryModel(opts.Runs, opts.Units),
		records:   NewRecordsModel(opts.Runs, opts.Units, 0, 0),
		help:      NewHelpModel(),
	}
	if a.live {
		a.screen = ScreenRun
		a.run = NewRunModel(opts.Loop, opts.Runs, opts.Units, opts.Source)
	}
	return a
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	if a.live && a.snapshots != nil {
		return tea.Batch(a.run.Init(), WaitForSnapshot(a.snapshots))
	}
	return a.history.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			if a.live {
				a.screen = ScreenRun
				return a, nil
			}
		case "2":
			a.screen = ScreenHistory
			return a, a.history.Init()
		case "3":
			a.screen = ScreenRecords
			a.records = NewRecordsModel(a.runs, a.units, a.width, a.height)
			return a, a.records.Init()
		case "?":
			if a.screen != ScreenHelp {
				a.prevScreen = a.screen
				a.screen = ScreenHelp
			}
			return a, nil
		case "esc":
			switch a.screen {
			case ScreenHelp:
				a.screen = a.prevScreen
				return a, nil
			case ScreenSummary:
				a.screen = a.prevScreen
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Scrolling screens size their viewports from this
		var cmd tea.Cmd
		var m tea.Model
		m, _ = a.records.Update(msg)
		a.records = m.(RecordsModel)
		m, cmd = a.summary.Update(msg)
		a.summary = m.(SummaryModel)
		return a, cmd

	case SnapshotMsg:
		m, _ := a.run.Update(msg)
		a.run = m.(RunModel)
		return a, WaitForSnapshot(a.snapshots)

	case RunFinishedMsg:
		a.status = ""
		var newRecords []string
		name := ""
		if msg.Result != nil {
			newRecords = msg.Result.NewRecords
			name = msg.Result.Run.Name
			a.status = "Run saved"
		}
		a.summary = NewSummaryModel(a.units, name, msg.Summary, newRecords, msg.Err, a.width, a.height)
		a.prevScreen = ScreenRun
		a.screen = ScreenSummary
		m, _ := a.run.Update(msg)
		a.run = m.(RunModel)
		return a, nil

	case commandDoneMsg:
		m, cmd := a.run.Update(msg)
		a.run = m.(RunModel)
		return a, cmd

	case historyLoadedMsg:
		m, cmd := a.history.Update(msg)
		a.history = m.(HistoryModel)
		return a, cmd

	case recordsLoadedMsg:
		m, cmd := a.records.Update(msg)
		a.records = m.(RecordsModel)
		return a, cmd

	case OpenRunMsg:
		return a, a.openRun(msg)

	case runLoadedMsg:
		if msg.err != nil {
			a.status = "Error: " + msg.err.Error()
			return a, nil
		}
		a.status = ""
		a.summary = NewSummaryModel(a.units, msg.name, msg.summary, nil, nil, a.width, a.height)
		a.prevScreen = ScreenHistory
		a.screen = ScreenSummary
		return a, nil
	}

	// Delegate to current screen
	var cmd tea.Cmd
	var m tea.Model
	switch a.screen {
	case ScreenRun:
		m, cmd = a.run.Update(msg)
		a.run = m.(RunModel)
	case ScreenHistory:
		m, cmd = a.history.Update(msg)
		a.history = m.(HistoryModel)
	case ScreenRecords:
		m, cmd = a.records.Update(msg)
		a.records = m.(RecordsModel)
	case ScreenSummary:
		m, cmd = a.summary.Update(msg)
		a.summary = m.(SummaryModel)
	case ScreenHelp:
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

type runLoadedMsg struct {
	name    string
	summary tracker.Summary
	err     error
}

func (a *App) openRun(msg OpenRunMsg) tea.Cmd {
	runs := a.runs
	return func() tea.Msg {
		sum, err := runs.Summary(msg.RunID)
		return runLoadedMsg{name: msg.Name, summary: sum, err: err}
	}
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenRun:
		content = a.run.View()
	case ScreenHistory:
		content = a.history.View()
	case ScreenRecords:
		content = a.records.View()
	case ScreenSummary:
		content = a.summary.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("pacetrack")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Run", ScreenRun},
		{"2", "History", ScreenHistory},
		{"3", "Records", ScreenRecords},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for _, item := range items {
		if item.screen == ScreenRun && !a.live {
			continue
		}
		if nav != "" {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}
	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}
