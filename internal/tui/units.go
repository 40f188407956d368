package tui

import (
	"fmt"
	"math"

	"pacetrack/internal/config"
	"pacetrack/internal/tracker"
)

const (
	kmPerMile = 1.609344
	unknown   = "--"
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in km to the user's preferred unit
func (u Units) FormatDistance(km float64) string {
	return fmt.Sprintf("%s %s", u.FormatDistanceValue(km), u.DistanceLabel())
}

// FormatDistanceValue returns just the numeric distance value (no unit label)
func (u Units) FormatDistanceValue(km float64) string {
	if u.IsMiles() {
		return fmt.Sprintf("%.2f", km/kmPerMile)
	}
	return fmt.Sprintf("%.2f", km)
}

// FormatPace formats a pace given in min/km as M'SS" in the user's pace unit.
// Zero or invalid paces render as "--".
func (u Units) FormatPace(minPerKm float64) string {
	if minPerKm <= 0 || math.IsNaN(minPerKm) || math.IsInf(minPerKm, 0) {
		return unknown
	}
	if u.cfg.PaceUnit == "min/mi" {
		minPerKm *= kmPerMile
	}
	total := int(math.Round(minPerKm * 60))
	return fmt.Sprintf("%d'%02d\"", total/60, total%60)
}

// FormatPaceWithUnit formats pace with the unit label
func (u Units) FormatPaceWithUnit(minPerKm float64) string {
	pace := u.FormatPace(minPerKm)
	if pace == unknown {
		return pace
	}
	return pace + " /" + u.DistanceLabel()
}

// FormatSpeed formats m/s in km/h or mph
func (u Units) FormatSpeed(mps float64) string {
	if !tracker.SpeedKnown(mps) {
		return unknown
	}
	kmh := mps * 3.6
	if u.IsMiles() {
		return fmt.Sprintf("%.1f mph", kmh/kmPerMile)
	}
	return fmt.Sprintf("%.1f km/h", kmh)
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// PaceLabel returns the pace unit label ("min/mi" or "min/km")
func (u Units) PaceLabel() string {
	if u.cfg.PaceUnit == "min/mi" {
		return "min/mi"
	}
	return "min/km"
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

// FormatDuration formats seconds as MM:SS, or H:MM:SS past an hour
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		return unknown
	}
	s := int(seconds)
	h, m, sec := s/3600, s%3600/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

// FormatHeartRate formats a reading, "--" when absent
func FormatHeartRate(bpm *int) string {
	if bpm == nil {
		return unknown
	}
	return fmt.Sprintf("%d bpm", *bpm)
}

// FormatAvgHeartRate formats an average reading, "--" when absent
func FormatAvgHeartRate(bpm *float64) string {
	if bpm == nil {
		return unknown
	}
	return fmt.Sprintf("%.0f bpm", *bpm)
}

// FormatElevation formats elevation gain in meters, "--" when absent
func FormatElevation(m *float64) string {
	if m == nil {
		return unknown
	}
	return fmt.Sprintf("%.0f m", *m)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
