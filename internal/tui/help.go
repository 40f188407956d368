package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacetrack/internal/tracker"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		cardTitleStyle.Render("Keyboard Shortcuts"),
		m.renderSection("Navigation", []keyHelp{
			{"1", "Live run"},
			{"2", "Run history"},
			{"3", "Personal records"},
			{"?", "Help (this screen)"},
			{"q", "Quit"},
			{"esc", "Back / close help"},
		}),
		m.renderSection("Live Run", []keyHelp{
			{"enter", "Start run / new run after finishing"},
			{"space / p", "Pause or resume"},
			{"x", "Stop and save"},
			{"r", "Reset"},
		}),
		m.renderSection("History", []keyHelp{
			{"j / down", "Move cursor down"},
			{"k / up", "Move cursor up"},
			{"n / b", "Next / previous page"},
			{"enter", "Run details"},
			{"r", "Refresh list"},
		}),
		m.renderLegend(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	lines := []string{"", sectionStyle.Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}
	return strings.Join(lines, "\n")
}

func (m HelpModel) renderLegend() string {
	lines := []string{"", sectionStyle.Render("Route Colors"), ""}

	desc := map[tracker.SpeedBucket]string{
		tracker.BucketSlow:    "slow: under 1.5 m/s (walking)",
		tracker.BucketMedium:  "medium: 1.5 to 3.5 m/s (jogging)",
		tracker.BucketFast:    "fast: 3.5 m/s and up",
		tracker.BucketUnknown: "unknown: no speed reported",
	}
	for _, b := range routeBuckets {
		lines = append(lines, "  "+bucketStyle(b).Render("█ ")+helpDescStyle.Render(desc[b]))
	}

	lines = append(lines, "", helpDescStyle.Render("  Pace shows as M'SS\" per unit; -- means no data yet."))
	return strings.Join(lines, "\n")
}
