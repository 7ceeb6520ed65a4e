package history

import (
	"context"
	"io"

	"codeberg.org/mutker/formctl/internal/session"
)

// Store keeps finished session records.
type Store interface {
	// Save stores rec and drops sessions beyond the retention limit.
	Save(ctx context.Context, rec *session.Record) error
	// Recent returns up to limit sessions, newest first. A non-positive
	// limit returns every stored session.
	Recent(ctx context.Context, limit int) ([]*session.Record, error)
	// Progress summarizes the stored sessions per exercise.
	Progress(ctx context.Context) ([]Progress, error)
	// Export writes every stored session as a JSON array, oldest first.
	Export(ctx context.Context, w io.Writer) error
	// Clear removes every stored session.
	Clear(ctx context.Context) error
	Close() error
}

// Progress aggregates the stored sessions of one exercise.
type Progress struct {
	Exercise     string `json:"exercise"`
	ExerciseName string `json:"exercise_name"`
	Sessions     int    `json:"sessions"`
	TotalReps    int    `json:"total_reps"`
	TotalMinutes int    `json:"total_minutes"`
	// AveragePerformance and BestPerformance are nil when no session of the
	// exercise was scored.
	AveragePerformance *float64 `json:"average_performance"`
	BestPerformance    *int     `json:"best_performance"`
	LastDate           string   `json:"last_date"`
}
