package session

import (
	"time"

	"codeberg.org/mutker/formctl/internal/exercise"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// DateFormat is the layout of Record.Date.
	DateFormat = "2006-01-02 15:04"
	// MaxRecordAngles bounds the angles kept in a Record.
	MaxRecordAngles = 100
)

// Histogram counts feedback codes in order of first occurrence.
type Histogram = orderedmap.OrderedMap[exercise.FeedbackCode, int]

// NewHistogram returns an empty Histogram.
func NewHistogram() *Histogram {
	return orderedmap.New[exercise.FeedbackCode, int]()
}

// Record is the summary of a finished session.
type Record struct {
	ID              uuid.UUID `json:"id"`
	Exercise        string    `json:"exercise"`
	ExerciseName    string    `json:"exercise_name"`
	StartedAt       time.Time `json:"started_at"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Reps            int       `json:"reps"`
	// Performance is nil when the session recorded no angles.
	Performance        *int                  `json:"performance"`
	MostCommonFeedback exercise.FeedbackCode `json:"most_common_feedback,omitempty"`
	Feedback           *Histogram            `json:"feedback"`
	// Angles holds the most recent smoothed angles, earliest first.
	Angles []float64 `json:"angles"`
}

// Empty reports whether the session recorded no angles.
func (r *Record) Empty() bool {
	return r.Performance == nil
}

// MostCommon returns the code with the highest count. Ties go to the code
// seen first. It returns "" for an empty histogram.
func MostCommon(h *Histogram) exercise.FeedbackCode {
	var (
		best  exercise.FeedbackCode
		count int
	)
	for pair := h.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value > count {
			best, count = pair.Key, pair.Value
		}
	}

	return best
}
