package session

import (
	"time"

	"codeberg.org/mutker/formctl/internal/exercise"
	"github.com/google/uuid"
)

// Aggregator collects the per-frame outputs of one session. It is owned by
// the goroutine processing the session.
type Aggregator struct {
	profile   exercise.Profile
	startedAt time.Time
	angles    []float64
	feedback  *Histogram
	reps      int
}

// NewAggregator starts a session for profile at startedAt.
func NewAggregator(profile exercise.Profile, startedAt time.Time) *Aggregator {
	return &Aggregator{
		profile:   profile,
		startedAt: startedAt,
		feedback:  NewHistogram(),
	}
}

// Add records one smoothed angle and its feedback code.
func (a *Aggregator) Add(angle float64, code exercise.FeedbackCode) {
	a.angles = append(a.angles, angle)

	count, _ := a.feedback.Get(code)
	a.feedback.Set(code, count+1)
}

// SetReps stores the repetition count reported by the rep counter.
func (a *Aggregator) SetReps(n int) {
	a.reps = n
}

// Reps returns the last stored repetition count.
func (a *Aggregator) Reps() int { return a.reps }

// Len returns the number of recorded angles.
func (a *Aggregator) Len() int { return len(a.angles) }

// StartedAt returns the session start time.
func (a *Aggregator) StartedAt() time.Time { return a.startedAt }

// Record builds the session summary as of endedAt. The date is taken from
// endedAt and the score from every recorded angle.
func (a *Aggregator) Record(endedAt time.Time) *Record {
	elapsed := endedAt.Sub(a.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	angles := a.angles
	if len(angles) > MaxRecordAngles {
		angles = angles[len(angles)-MaxRecordAngles:]
	}

	feedback := NewHistogram()
	for pair := a.feedback.Oldest(); pair != nil; pair = pair.Next() {
		feedback.Set(pair.Key, pair.Value)
	}

	rec := &Record{
		ID:                 uuid.New(),
		Exercise:           a.profile.Kind.String(),
		ExerciseName:       a.profile.Name,
		StartedAt:          a.startedAt,
		Date:               endedAt.Format(DateFormat),
		DurationMinutes:    int(elapsed / time.Minute),
		Reps:               a.reps,
		MostCommonFeedback: MostCommon(feedback),
		Feedback:           feedback,
		Angles:             make([]float64, len(angles)),
	}
	copy(rec.Angles, angles)

	if score, ok := Score(a.angles, a.profile.Bounds); ok {
		rec.Performance = &score
	}

	return rec
}
