// Package analysis derives fitness estimates from completed runs.
package analysis

// Standard distances in meters
const (
	Distance1K        = 1000
	Distance1500      = 1500
	Distance1Mile     = 1609.34
	Distance5K        = 5000
	Distance10K       = 10000
	DistanceHalfMara  = 21097
	DistanceMarathon  = 42195
	DistanceTolerance = 0.05 // 5% tolerance for race distance matching
)

// RaceDistances maps whole-run record categories to their distance
var RaceDistances = map[string]float64{
	"distance_5k":   Distance5K,
	"distance_10k":  Distance10K,
	"distance_half": DistanceHalfMara,
	"distance_full": DistanceMarathon,
}

// MatchesRaceDistance checks if a run's total distance matches a standard
// race distance within the tolerance (±5%)
func MatchesRaceDistance(runMeters, raceMeters float64) bool {
	return matchesDistance(runMeters, raceMeters)
}

// GetMatchingRaceCategory returns the race category if the run matches a standard distance
func GetMatchingRaceCategory(runMeters float64) (category string, distance float64, matches bool) {
	for cat, dist := range RaceDistances {
		if MatchesRaceDistance(runMeters, dist) {
			return cat, dist, true
		}
	}
	return "", 0, false
}
