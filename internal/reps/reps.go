// Package reps counts exercise repetitions from a smoothed joint angle
// sequence using direction reversal with hysteresis.
package reps

import "codeberg.org/mutker/formctl/internal/exercise"

// Direction is the movement of the smoothed angle between two samples.
type Direction int

const (
	Unknown Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Step is the outcome of observing one smoothed angle.
type Step struct {
	Direction Direction
	// Completed is set on the sample that registered a repetition.
	Completed bool
	Count     int
}

// Machine tracks direction changes of one session's smoothed angle and
// registers a repetition when the configured reversal happens near the
// completion extreme. After counting it stays disarmed until the angle
// crosses the reset threshold, so chatter around a turning point cannot
// count twice. A Machine is not safe for concurrent use.
type Machine struct {
	bounds exercise.Bounds
	cfg    exercise.RepConfig

	prev      float64
	hasPrev   bool
	direction Direction
	armed     bool
	count     int
}

// New returns a Machine for the given profile, armed and with no history.
func New(profile exercise.Profile) *Machine {
	return &Machine{
		bounds: profile.Bounds,
		cfg:    profile.Reps,
		armed:  true,
	}
}

// Observe feeds the next smoothed angle. Frames without a sample must not be
// observed; the next valid angle is compared against the last observed one.
func (m *Machine) Observe(angle float64) Step {
	if !m.hasPrev {
		m.prev = angle
		m.hasPrev = true
		m.direction = Unknown
		return Step{Direction: Unknown, Count: m.count}
	}

	current := Down
	if angle > m.prev {
		current = Up
	}

	completed := false
	if m.isCompletionEdge(current) && m.cfg.Completion.Beyond(m.prev, m.bounds) {
		if m.armed {
			m.count++
			m.armed = false
			completed = true
		}
	} else if m.cfg.Reset.Beyond(angle, m.bounds) {
		m.armed = true
	}

	m.direction = current
	m.prev = angle

	return Step{Direction: current, Completed: completed, Count: m.count}
}

func (m *Machine) isCompletionEdge(current Direction) bool {
	switch m.cfg.Edge {
	case exercise.DownToUp:
		return m.direction == Down && current == Up
	case exercise.UpToDown:
		return m.direction == Up && current == Down
	default:
		return false
	}
}

// Count returns the number of repetitions registered so far.
func (m *Machine) Count() int { return m.count }

// Direction returns the direction of the last observed movement.
func (m *Machine) Direction() Direction { return m.direction }

// Armed reports whether the next completion edge will count.
func (m *Machine) Armed() bool { return m.armed }
