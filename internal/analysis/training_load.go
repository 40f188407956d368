package analysis

import (
	"math"
	"sort"
	"time"

	"pacetrack/internal/store"
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64
	MaxHR     float64
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// TRIMP calculates Training Impulse (Banister model) from a run's ticked
// duration and average heart rate.
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio), b = 1.92
// Runs without heart-rate data score 0.
func TRIMP(durationSeconds float64, avgHR *float64, zones HRZones) float64 {
	if avgHR == nil || *avgHR <= 0 || durationSeconds <= 0 {
		return 0
	}

	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}

	hrRatio := (*avgHR - zones.RestingHR) / hrReserve
	hrRatio = math.Max(0, math.Min(1, hrRatio))

	const b = 1.92
	return durationSeconds / 60 * hrRatio * math.Exp(b*hrRatio)
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date  time.Time
	TRIMP float64
}

// DailyLoads sums TRIMP per calendar day of StartedAt (UTC for stored runs)
func DailyLoads(runs []store.Run, zones HRZones) []DailyLoad {
	byDay := make(map[time.Time]float64)
	for _, r := range runs {
		y, m, d := r.StartedAt.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, r.StartedAt.Location())
		byDay[day] += TRIMP(r.DurationSeconds, r.AvgHeartrate, zones)
	}

	loads := make([]DailyLoad, 0, len(byDay))
	for day, trimp := range byDay {
		loads = append(loads, DailyLoad{Date: day, TRIMP: trimp})
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})
	return loads
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time
	CTL  float64 // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64 // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64 // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB for every day from the first
// load through until; days without runs count as zero load.
// dailyLoads must be sorted by date.
func CalculateFitnessTrend(dailyLoads []DailyLoad, until time.Time) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	loadMap := make(map[string]float64, len(dailyLoads))
	for _, dl := range dailyLoads {
		loadMap[dl.Date.Format("2006-01-02")] += dl.TRIMP
	}

	end := dailyLoads[len(dailyLoads)-1].Date
	if until.After(end) {
		end = until
	}

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := dailyLoads[0].Date; !d.After(end); d = d.AddDate(0, 0, 1) {
		trimp := loadMap[d.Format("2006-01-02")]
		ctl += ctlDecay * (trimp - ctl)
		atl += atlDecay * (trimp - atl)
		metrics = append(metrics, FitnessMetrics{Date: d, CTL: ctl, ATL: atl, TSB: ctl - atl})
	}
	return metrics
}

// GetCurrentFitness returns the CTL/ATL/TSB values as of until
func GetCurrentFitness(dailyLoads []DailyLoad, until time.Time) FitnessMetrics {
	metrics := CalculateFitnessTrend(dailyLoads, until)
	if len(metrics) == 0 {
		return FitnessMetrics{}
	}
	return metrics[len(metrics)-1]
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
