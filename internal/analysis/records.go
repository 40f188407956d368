package analysis

import "pacetrack/internal/store"

// Record categories tracked for every run
const (
	CategoryLongestRun  = "longest_run"
	CategoryLongestTime = "longest_time"
	CategoryFastestPace = "fastest_pace"
)

// MinFastestPaceKm keeps short jogs out of the fastest-pace record
const MinFastestPaceKm = 1.0

// RecordCandidate is a record a run may set and how it competes
type RecordCandidate struct {
	Record store.PersonalRecord
	Mode   store.CompareMode
}

// RecordCandidates lists the personal records a completed run competes for
func RecordCandidates(r *store.Run) []RecordCandidate {
	if r.DistanceKm <= 0 {
		return nil
	}

	base := store.PersonalRecord{
		RunID:           r.ID,
		DistanceKm:      r.DistanceKm,
		DurationSeconds: r.DurationSeconds,
		AchievedAt:      r.StartedAt,
	}
	if r.PaceMinPerKm > 0 {
		pace := r.PaceMinPerKm
		base.PaceMinPerKm = &pace
	}

	with := func(category string, mode store.CompareMode) RecordCandidate {
		pr := base
		pr.Category = category
		return RecordCandidate{Record: pr, Mode: mode}
	}

	candidates := []RecordCandidate{
		with(CategoryLongestRun, store.CompareDistance),
		with(CategoryLongestTime, store.CompareDuration),
	}
	if r.DistanceKm >= MinFastestPaceKm && base.PaceMinPerKm != nil {
		candidates = append(candidates, with(CategoryFastestPace, store.ComparePace))
	}
	// Whole-run race distances compete on pace, which orders equal distances like time
	if cat, _, ok := GetMatchingRaceCategory(r.DistanceKm * 1000); ok && base.PaceMinPerKm != nil {
		candidates = append(candidates, with(cat, store.ComparePace))
	}
	return candidates
}

// GetCategoryLabel returns a human-readable label for a record category
func GetCategoryLabel(category string) string {
	labels := map[string]string{
		CategoryLongestRun:  "Longest run",
		CategoryLongestTime: "Longest time",
		CategoryFastestPace: "Fastest pace",
		"distance_full":     "Marathon",
		"distance_half":     "Half Marathon",
		"distance_10k":      "10K",
		"distance_5k":       "5K",
	}
	if label, ok := labels[category]; ok {
		return label
	}
	return category
}
