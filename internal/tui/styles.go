package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pacetrack/internal/tracker"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	textColor      = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1).
			MarginBottom(1)

	navStyle         = lipgloss.NewStyle().Foreground(mutedColor).MarginBottom(1)
	navActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	navInactiveStyle = lipgloss.NewStyle().Foreground(mutedColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(secondaryColor)

	metricLabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(18)
	metricValueStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				BorderBottom(true).
				BorderForeground(mutedColor).
				Padding(0, 1)
	tableRowStyle = lipgloss.NewStyle().Padding(0, 1)

	statusStyle  = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	successStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)

	helpKeyStyle  = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(mutedColor)

	emptyBarStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// routeBuckets is the legend order for speed buckets
var routeBuckets = []tracker.SpeedBucket{
	tracker.BucketSlow,
	tracker.BucketMedium,
	tracker.BucketFast,
	tracker.BucketUnknown,
}

// bucketStyle colors text the way the route draws that bucket
func bucketStyle(b tracker.SpeedBucket) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(b.Color()))
}

// RenderMetric renders a label and value on one line. A signed value
// ("+4", "-12") is colored as positive or negative.
func RenderMetric(label, value string) string {
	style := metricValueStyle
	switch {
	case strings.HasPrefix(value, "+"):
		style = style.Foreground(secondaryColor)
	case strings.HasPrefix(value, "-") && value != unknown:
		style = style.Foreground(errorColor)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, metricLabelStyle.Render(label), style.Render(value))
}

// RenderShareBar draws fraction (0..1) of width as filled blocks in color
func RenderShareBar(fraction float64, width int, color lipgloss.Color) string {
	filled := int(fraction*float64(width) + 0.5)
	filled = max(0, min(filled, width))
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		emptyBarStyle.Render(strings.Repeat("░", width-filled))
}

// RenderKeyHelp renders a key binding help item
func RenderKeyHelp(key, desc string) string {
	return helpKeyStyle.Render(key) + " " + helpDescStyle.Render(desc)
}
