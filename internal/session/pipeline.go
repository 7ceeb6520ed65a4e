package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/formctl/internal/capture"
	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/feedback"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/reps"
	"codeberg.org/mutker/formctl/internal/smoothing"
)

const (
	DefaultInterval = 33 * time.Millisecond
	DefaultOutbox   = 64
)

// Snapshot is the immutable per-frame output of a Pipeline.
type Snapshot struct {
	Frame     int                   `json:"frame"`
	Time      time.Time             `json:"time"`
	Exercise  string                `json:"exercise"`
	Angle     float64               `json:"smoothed_angle"`
	Direction reps.Direction        `json:"direction"`
	Reps      int                   `json:"rep_count"`
	Rep       bool                  `json:"rep"`
	Feedback  exercise.FeedbackCode `json:"feedback_code"`
	Cue       string                `json:"cue"`
	// Signal is false when the frame carried no usable sample.
	Signal bool `json:"signal"`
}

// Options configures a Pipeline. Zero values select defaults, except
// Interval where zero disables throttling.
type Options struct {
	// Interval is the minimum time between two processed frames.
	Interval time.Duration
	// Window is the smoothing window size.
	Window int
	// Outbox is the capacity of the snapshot channel.
	Outbox int
	Logger logger.Logger
	Clock  func() time.Time
}

// Pipeline turns a stream of pose frames into snapshots and, at the end,
// a session Record. A Pipeline serves one session and is driven by a single
// goroutine; only Outputs, Stop and Dropped may be used concurrently.
type Pipeline struct {
	profile exercise.Profile
	opts    Options
	log     logger.Logger

	buffer  *smoothing.Buffer
	counter *reps.Machine
	agg     *Aggregator
	last    float64

	out      chan Snapshot
	stop     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
	finished atomic.Bool
}

// NewPipeline starts a session for profile.
func NewPipeline(profile exercise.Profile, opts Options) *Pipeline {
	if opts.Outbox <= 0 {
		opts.Outbox = DefaultOutbox
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	return &Pipeline{
		profile: profile,
		opts:    opts,
		log:     opts.Logger.With("session"),
		buffer:  smoothing.NewBuffer(opts.Window),
		counter: reps.New(profile),
		agg:     NewAggregator(profile, opts.Clock()),
		out:     make(chan Snapshot, opts.Outbox),
		stop:    make(chan struct{}),
	}
}

// Outputs returns the snapshot channel. It is closed when Run returns.
// Snapshots are never waited on: when the channel is full the oldest queued
// snapshot is discarded.
func (p *Pipeline) Outputs() <-chan Snapshot {
	return p.out
}

// Dropped returns the number of snapshots discarded because the consumer
// fell behind.
func (p *Pipeline) Dropped() uint64 {
	return p.dropped.Load()
}

// Stop ends a running session. It is safe to call more than once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Process runs one frame through the pipeline and publishes its snapshot.
// A frame without a sample leaves the session state untouched and yields a
// no_signal snapshot carrying the last smoothed angle. Once Run has returned
// the snapshot is still computed and returned but no longer published.
func (p *Pipeline) Process(frame capture.Frame) Snapshot {
	snap := Snapshot{
		Frame:    frame.Index,
		Time:     p.opts.Clock(),
		Exercise: p.profile.Kind.String(),
	}

	raw, ok := frame.Sample(p.profile.Roles)
	if !ok {
		snap.Angle = p.last
		snap.Direction = p.counter.Direction()
		snap.Reps = p.counter.Count()
		snap.Feedback = exercise.NoSignal
		snap.Cue = p.profile.Cue(exercise.NoSignal)
		p.publish(snap)

		return snap
	}

	p.buffer.Push(raw)
	smoothed := p.buffer.Average()
	step := p.counter.Observe(smoothed)
	code := feedback.Classify(smoothed, p.profile)

	p.agg.Add(smoothed, code)
	p.agg.SetReps(step.Count)
	p.last = smoothed

	if step.Completed {
		p.log.Info().Int("reps", step.Count).Int("frame", frame.Index).Msg("Repetition completed")
	}

	snap.Angle = smoothed
	snap.Direction = step.Direction
	snap.Reps = step.Count
	snap.Rep = step.Completed
	snap.Feedback = code
	snap.Cue = p.profile.Cue(code)
	snap.Signal = true
	p.publish(snap)

	return snap
}

func (p *Pipeline) publish(s Snapshot) {
	if p.finished.Load() {
		return
	}

	for {
		select {
		case p.out <- s:
			return
		default:
		}

		select {
		case <-p.out:
			p.dropped.Add(1)
		default:
		}
	}
}

// Record returns the summary of the session so far.
func (p *Pipeline) Record() *Record {
	return p.agg.Record(p.opts.Clock())
}

// Run processes frames from src until the stream ends, ctx is cancelled or
// Stop is called, and returns the session Record. Ending by cancellation is
// not an error. src is closed before Run returns. Run must be called at most
// once.
func (p *Pipeline) Run(ctx context.Context, src capture.Source) (*Record, error) {
	defer p.closeOutputs()
	defer func() {
		if err := src.Close(); err != nil {
			p.log.Warn().Err(err).Msg("Failed to close frame source")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var tick <-chan time.Time
	if p.opts.Interval > 0 {
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.log.Debug().
		Str("exercise", p.profile.Kind.String()).
		Dur("interval", p.opts.Interval).
		Int("window", p.buffer.Cap()).
		Msg("Session started")

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				p.log.Debug().Msg("Frame stream ended")
			case ctx.Err() != nil:
				p.log.Debug().Msg("Session cancelled")
			default:
				return p.finish(), errors.New().Wrap(errors.ErrSessionFailed, err)
			}

			return p.finish(), nil
		}

		p.Process(frame)

		if tick != nil {
			select {
			case <-ctx.Done():
				p.log.Debug().Msg("Session cancelled")
				return p.finish(), nil
			case <-tick:
			}
		}
	}
}

func (p *Pipeline) closeOutputs() {
	p.finished.Store(true)
	close(p.out)
}

func (p *Pipeline) finish() *Record {
	rec := p.Record()

	event := p.log.Info().
		Str("exercise", rec.Exercise).
		Int("reps", rec.Reps).
		Int("samples", p.agg.Len())
	if dropped := p.Dropped(); dropped > 0 {
		event = event.Uint64("dropped_snapshots", dropped)
	}
	event.Msg("Session finished")

	return rec
}
