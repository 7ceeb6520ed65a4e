// Package feedback classifies a smoothed joint angle into a form cue.
package feedback

import "codeberg.org/mutker/formctl/internal/exercise"

// Classify returns the feedback code for angle under the exercise profile.
// Angles exactly on Max-FeedbackBandOffset or Min+FeedbackBandOffset are Good.
func Classify(angle float64, p exercise.Profile) exercise.FeedbackCode {
	switch {
	case angle > p.Bounds.Max-exercise.FeedbackBandOffset:
		return p.Feedback.Extended
	case angle < p.Bounds.Min+exercise.FeedbackBandOffset:
		return p.Feedback.Flexed
	default:
		return exercise.Good
	}
}
