package session_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/formctl/internal/capture"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/pose"
	"codeberg.org/mutker/formctl/internal/reps"
	"codeberg.org/mutker/formctl/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fixedClock() time.Time { return start }

func options() session.Options {
	return session.Options{Logger: logger.Nop(), Clock: fixedClock, Outbox: 256}
}

func angleFrame(i int, angle float64) capture.Frame {
	return capture.Frame{Index: i, Angle: &angle}
}

func TestPushUpRegression(t *testing.T) {
	p := session.NewPipeline(exercise.PushUp.Profile(), options())

	raw := []float64{160, 150, 130, 100, 85, 90, 110, 140, 160}
	wantAngles := []float64{160, 155, 146.6667, 135, 125, 119.1667, 117.8571, 120.625, 125}
	wantDirections := []reps.Direction{
		reps.Unknown,
		reps.Down, reps.Down, reps.Down, reps.Down, reps.Down, reps.Down,
		reps.Up, reps.Up,
	}
	wantFeedback := []exercise.FeedbackCode{
		exercise.PushUpTooHigh, exercise.PushUpTooHigh,
		exercise.Good, exercise.Good, exercise.Good, exercise.Good,
		exercise.Good, exercise.Good, exercise.Good,
	}

	for i, angle := range raw {
		snap := p.Process(angleFrame(i, angle))

		assert.InDelta(t, wantAngles[i], snap.Angle, 1e-3, "frame %d", i)
		assert.Equal(t, wantDirections[i], snap.Direction, "frame %d", i)
		assert.Zero(t, snap.Reps, "frame %d", i)
		assert.False(t, snap.Rep, "frame %d", i)
		assert.Equal(t, wantFeedback[i], snap.Feedback, "frame %d", i)
		assert.True(t, snap.Signal)
		assert.Equal(t, i, snap.Frame)
	}

	rec := p.Record()
	assert.Zero(t, rec.Reps)
	assert.Len(t, rec.Angles, len(raw))
	assert.Equal(t, exercise.Good, rec.MostCommonFeedback)

	count, _ := rec.Feedback.Get(exercise.PushUpTooHigh)
	assert.Equal(t, 2, count)
	assert.Len(t, p.Outputs(), len(raw))
}

func TestMissingKeypoints(t *testing.T) {
	p := session.NewPipeline(exercise.BicepCurl.Profile(), options())

	snap := p.Process(capture.Frame{Index: 0})
	assert.False(t, snap.Signal)
	assert.Equal(t, exercise.NoSignal, snap.Feedback)
	assert.Zero(t, snap.Angle)
	assert.Equal(t, reps.Unknown, snap.Direction)

	p.Process(angleFrame(1, 120))
	p.Process(angleFrame(2, 100))

	snap = p.Process(capture.Frame{Index: 3, Keypoints: pose.Keypoints{
		pose.LeftShoulder: {X: 0, Y: 1},
		pose.LeftElbow:    {X: 0, Y: 0},
	}})
	assert.False(t, snap.Signal)
	assert.Equal(t, 110.0, snap.Angle, "carries the last smoothed angle")
	assert.Equal(t, reps.Down, snap.Direction)
	assert.Equal(t, "No pose detected", snap.Cue)

	rec := p.Record()
	assert.Len(t, rec.Angles, 2, "frames without a sample are not recorded")
	_, seen := rec.Feedback.Get(exercise.NoSignal)
	assert.False(t, seen)
}

func TestCountingResumesAfterGap(t *testing.T) {
	opts := options()
	opts.Window = 1
	p := session.NewPipeline(exercise.BicepCurl.Profile(), opts)

	for i, angle := range []float64{160, 120, 80, 35} {
		p.Process(angleFrame(i, angle))
	}

	for i := 4; i < 6; i++ {
		snap := p.Process(capture.Frame{Index: i})
		assert.False(t, snap.Signal)
		assert.Equal(t, 35.0, snap.Angle)
		assert.Zero(t, snap.Reps)
	}

	snap := p.Process(angleFrame(6, 60))
	assert.True(t, snap.Signal)
	assert.Equal(t, reps.Up, snap.Direction, "compares against the angle before the gap")
	assert.True(t, snap.Rep)
	assert.Equal(t, 1, snap.Reps)

	for i, angle := range []float64{100, 160} {
		snap = p.Process(angleFrame(7+i, angle))
		assert.False(t, snap.Rep)
	}

	rec := p.Record()
	assert.Equal(t, 1, rec.Reps)
	assert.Equal(t, []float64{160, 120, 80, 35, 60, 100, 160}, rec.Angles)
	_, seen := rec.Feedback.Get(exercise.NoSignal)
	assert.False(t, seen)
}

func TestProcessAfterRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := session.NewPipeline(exercise.BicepCurl.Profile(), options())
	rec, err := p.Run(context.Background(), capture.NewReader(strings.NewReader(`{"angle":90}`)))
	require.NoError(t, err)
	assert.Len(t, rec.Angles, 1)

	var snap session.Snapshot
	require.NotPanics(t, func() { snap = p.Process(angleFrame(1, 100)) })
	assert.True(t, snap.Signal)
	assert.InDelta(t, 95.0, snap.Angle, 1e-9)

	var queued int
	for range p.Outputs() {
		queued++
	}
	assert.Equal(t, 1, queued, "only the snapshot published during Run is delivered")
}

func TestKeypointFrames(t *testing.T) {
	p := session.NewPipeline(exercise.BicepCurl.Profile(), options())

	snap := p.Process(capture.Frame{Keypoints: pose.Keypoints{
		pose.LeftShoulder: {X: 0, Y: 1},
		pose.LeftElbow:    {X: 0, Y: 0},
		pose.LeftWrist:    {X: 1, Y: 0},
	}})

	assert.True(t, snap.Signal)
	assert.InDelta(t, 90, snap.Angle, 1e-6)
	assert.Equal(t, exercise.Good, snap.Feedback)
	assert.Equal(t, "Good Form", snap.Cue)
}

func curlStream(cycles int) string {
	var b strings.Builder
	for c := 0; c < cycles; c++ {
		for a := 160; a >= 30; a -= 5 {
			fmt.Fprintf(&b, "{\"angle\":%d}\n", a)
		}
		for a := 35; a <= 160; a += 5 {
			fmt.Fprintf(&b, "{\"angle\":%d}\n", a)
		}
	}
	return b.String()
}

func TestRunCountsReps(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := options()
	opts.Window = 1
	p := session.NewPipeline(exercise.BicepCurl.Profile(), opts)

	var (
		wg    sync.WaitGroup
		snaps []session.Snapshot
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := range p.Outputs() {
			snaps = append(snaps, s)
		}
	}()

	rec, err := p.Run(context.Background(), capture.NewReader(strings.NewReader(curlStream(3))))
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, 3, rec.Reps)
	require.NotNil(t, rec.Performance)

	var events int
	for i, s := range snaps {
		assert.Equal(t, i, s.Frame, "snapshots arrive in frame order")
		if s.Rep {
			events++
		}
	}
	assert.Equal(t, 3, events)
}

func TestRunDoesNotWaitForConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := options()
	opts.Window = 1
	opts.Outbox = 4
	p := session.NewPipeline(exercise.BicepCurl.Profile(), opts)

	rec, err := p.Run(context.Background(), capture.NewReader(strings.NewReader(curlStream(2))))
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Reps)
	assert.Positive(t, p.Dropped())

	// Only the newest snapshots are left, in order.
	var frames []int
	for s := range p.Outputs() {
		frames = append(frames, s.Frame)
	}
	require.Len(t, frames, 4)
	for i := 1; i < len(frames); i++ {
		assert.Equal(t, frames[i-1]+1, frames[i])
	}
}

func TestRunCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	p := session.NewPipeline(exercise.Squat.Profile(), options())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var rec *session.Record
	var err error
	go func() {
		defer close(done)
		rec, err = p.Run(ctx, capture.NewReader(pr))
	}()

	_, werr := io.WriteString(pw, "{\"angle\":120}\n")
	require.NoError(t, werr)

	cancel()
	<-done
	require.NoError(t, err)
	assert.Zero(t, rec.Reps)

	_, open := <-p.Outputs()
	for open {
		_, open = <-p.Outputs()
	}

	pw.Close()
}

func TestStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	p := session.NewPipeline(exercise.ShoulderPress.Profile(), options())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(context.Background(), capture.NewReader(pr))
	}()

	p.Stop()
	p.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	pw.Close()
}

func TestRunThrottled(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := options()
	opts.Window = 1
	opts.Interval = time.Millisecond
	p := session.NewPipeline(exercise.BicepCurl.Profile(), opts)

	rec, err := p.Run(context.Background(), capture.NewReader(strings.NewReader(curlStream(1))))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Reps)
}
