package capture

import (
	"context"

	"codeberg.org/mutker/formctl/internal/pose"
)

// Source delivers pose frames from the external pose estimator.
type Source interface {
	// Next blocks until the next frame is available. It returns io.EOF when
	// the stream has ended and ctx.Err() when ctx is cancelled.
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Frame is one pose estimator output. Either Keypoints or Angle carries the
// sample; a frame with neither has no sample.
type Frame struct {
	Index     int
	Keypoints pose.Keypoints
	// Angle is a precomputed joint angle in degrees.
	Angle *float64
}

// Sample returns the joint angle for roles. A precomputed angle takes
// precedence over keypoints.
func (f Frame) Sample(r pose.Roles) (float64, bool) {
	if f.Angle != nil {
		return *f.Angle, true
	}

	a, b, c, ok := f.Keypoints.Triple(r)
	if !ok {
		return 0, false
	}

	return pose.Angle(a, b, c), true
}
