package session

import (
	"math"

	"codeberg.org/mutker/formctl/internal/exercise"
)

// Deviation is the distance of angle from the ideal as a fraction of the
// wider half-range, capped at 1. A profile whose bounds collapse onto the
// ideal has zero deviation everywhere.
func Deviation(angle float64, b exercise.Bounds) float64 {
	maxDev := b.MaxDeviation()
	if maxDev <= 0 {
		return 0
	}

	return math.Min(1, math.Abs(angle-b.Ideal)/maxDev)
}

// Score rates how closely angles stayed to the ideal, from 0 to 100. It
// reports false when there are no angles to score.
func Score(angles []float64, b exercise.Bounds) (int, bool) {
	if len(angles) == 0 {
		return 0, false
	}

	var total float64
	for _, angle := range angles {
		total += Deviation(angle, b)
	}

	score := math.Round((1 - total/float64(len(angles))) * 100)

	return int(math.Max(0, math.Min(100, score))), true
}
