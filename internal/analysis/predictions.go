package analysis

import "math"

// MinPredictionMeters is the shortest run that yields race predictions
const MinPredictionMeters = Distance1500

// PredictionTarget represents a target distance for predictions
type PredictionTarget struct {
	Name           string // "5k", "10k", "half", "marathon"
	DistanceMeters float64
}

// PredictionTargets defines the standard prediction distances
var PredictionTargets = []PredictionTarget{
	{"5k", Distance5K},
	{"10k", Distance10K},
	{"half", DistanceHalfMara},
	{"marathon", DistanceMarathon},
}

// RacePrediction represents a predicted race time
type RacePrediction struct {
	TargetName       string
	TargetMeters     float64
	PredictedSeconds int
	PredictedPace    float64 // min/km
	VDOT             float64
	Confidence       string  // "high", "medium", "low"
	ConfidenceScore  float64 // 0.0 to 1.0
}

// CalculateConfidence scores a prediction by how far it extrapolates from the
// source run. Runs shorter than 3 km are treated as less reliable.
func CalculateConfidence(sourceMeters, targetMeters float64) (float64, string) {
	if sourceMeters <= 0 {
		return 0, "low"
	}

	score := 1.0

	ratio := targetMeters / sourceMeters
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch {
	case ratio > 4:
		score *= 0.7 // e.g. 5K to marathon
	case ratio > 2:
		score *= 0.85
	case ratio > 1.5:
		score *= 0.95
	}

	if sourceMeters < 3000 {
		score *= 0.85
	}

	var label string
	switch {
	case score >= 0.85:
		label = "high"
	case score >= 0.65:
		label = "medium"
	default:
		label = "low"
	}
	return score, label
}

// Predict produces race predictions from a run's distance and duration.
// Targets within 5% of the run distance are skipped; the run itself is the answer there.
func Predict(distanceKm, durationSeconds float64) []RacePrediction {
	meters := distanceKm * 1000
	if meters < MinPredictionMeters || durationSeconds <= 0 {
		return nil
	}

	vdot := CalculateVDOT(meters, durationSeconds)
	if vdot <= 0 {
		return nil
	}

	var predictions []RacePrediction
	for _, target := range PredictionTargets {
		if matchesDistance(target.DistanceMeters, meters) {
			continue
		}

		seconds := PredictTime(vdot, target.DistanceMeters)
		if seconds <= 0 {
			continue
		}

		score, label := CalculateConfidence(meters, target.DistanceMeters)
		predictions = append(predictions, RacePrediction{
			TargetName:       target.Name,
			TargetMeters:     target.DistanceMeters,
			PredictedSeconds: seconds,
			PredictedPace:    float64(seconds) / 60 / (target.DistanceMeters / 1000),
			VDOT:             vdot,
			Confidence:       label,
			ConfidenceScore:  math.Round(score*100) / 100,
		})
	}
	return predictions
}

// GetTargetLabel returns a human-readable label for a target distance
func GetTargetLabel(targetName string) string {
	labels := map[string]string{
		"5k":       "5K",
		"10k":      "10K",
		"half":     "Half Marathon",
		"marathon": "Marathon",
	}
	if label, ok := labels[targetName]; ok {
		return label
	}
	return targetName
}
