package exercise

// Edge is the direction reversal that completes a repetition.
type Edge int

const (
	// DownToUp completes a rep when a falling angle starts rising.
	DownToUp Edge = iota + 1
	// UpToDown completes a rep when a rising angle starts falling.
	UpToDown
)

// Extreme selects which bound a Threshold is measured from.
type Extreme int

const (
	AtMin Extreme = iota + 1
	AtMax
)

// Threshold is a point Offset degrees inside one bound of the target range.
type Threshold struct {
	Extreme Extreme
	Offset  float64
}

// Value returns the threshold angle for b.
func (t Threshold) Value(b Bounds) float64 {
	if t.Extreme == AtMin {
		return b.Min + t.Offset
	}

	return b.Max - t.Offset
}

// Beyond reports whether angle lies past the threshold, towards its bound.
func (t Threshold) Beyond(angle float64, b Bounds) bool {
	if t.Extreme == AtMin {
		return angle < t.Value(b)
	}

	return angle > t.Value(b)
}

// RepConfig is the hysteresis configuration of the repetition counter: a rep
// completes on Edge while the previous angle is beyond Completion, and the
// counter re-arms once the angle passes Reset.
type RepConfig struct {
	Edge       Edge
	Completion Threshold
	Reset      Threshold
}
