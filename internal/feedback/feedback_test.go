package feedback_test

import (
	"testing"

	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/feedback"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		kind  exercise.Kind
		angle float64
		want  exercise.FeedbackCode
	}{
		{"curl mid range", exercise.BicepCurl, 95, exercise.Good},
		{"curl extended", exercise.BicepCurl, 155, exercise.CurlExtendMore},
		{"curl flexed", exercise.BicepCurl, 35, exercise.CurlComplete},
		{"curl upper boundary", exercise.BicepCurl, 150, exercise.Good},
		{"curl lower boundary", exercise.BicepCurl, 40, exercise.Good},
		{"curl just past upper", exercise.BicepCurl, 150.01, exercise.CurlExtendMore},
		{"curl just past lower", exercise.BicepCurl, 39.99, exercise.CurlComplete},
		{"push-up too high", exercise.PushUp, 151, exercise.PushUpTooHigh},
		{"push-up too low", exercise.PushUp, 85, exercise.PushUpTooLow},
		{"push-up good", exercise.PushUp, 120, exercise.Good},
		{"squat standing", exercise.Squat, 165, exercise.SquatStandUp},
		{"squat too low", exercise.Squat, 75, exercise.SquatTooLow},
		{"squat good", exercise.Squat, 110, exercise.Good},
		{"press locked out", exercise.ShoulderPress, 165, exercise.PressLockedOut},
		{"press push higher", exercise.ShoulderPress, 65, exercise.PressPushHigher},
		{"press good", exercise.ShoulderPress, 160, exercise.Good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feedback.Classify(tt.angle, tt.kind.Profile())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCodesBelongToProfile(t *testing.T) {
	for _, k := range exercise.Kinds {
		p := k.Profile()
		for angle := 0.0; angle <= 180; angle += 2.5 {
			assert.Contains(t, p.Feedback.Codes(), feedback.Classify(angle, p), "%s at %.1f", k, angle)
		}
	}
}
