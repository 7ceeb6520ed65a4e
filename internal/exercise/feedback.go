package exercise

// FeedbackCode classifies the current form of one exercise. Codes are only
// meaningful together with the exercise that produced them.
type FeedbackCode string

const (
	Good     FeedbackCode = "good"
	NoSignal FeedbackCode = "no_signal"

	CurlExtendMore FeedbackCode = "extend_more"
	CurlComplete   FeedbackCode = "curl_complete"

	PushUpTooHigh FeedbackCode = "too_high"
	PushUpTooLow  FeedbackCode = "too_low"

	SquatStandUp FeedbackCode = "stand_up"
	SquatTooLow  FeedbackCode = "too_low"

	PressLockedOut  FeedbackCode = "locked_out"
	PressPushHigher FeedbackCode = "push_higher"
)

// FeedbackBandOffset is the distance in degrees from each bound at which
// form stops being classified as Good.
const FeedbackBandOffset = 10.0

const (
	goodCue     = "Good Form"
	noSignalCue = "No pose detected"
)

// Feedback names the codes an exercise reports outside the Good band and
// the cue text shown for each.
type Feedback struct {
	// Extended is reported above Max-FeedbackBandOffset.
	Extended    FeedbackCode
	ExtendedCue string
	// Flexed is reported below Min+FeedbackBandOffset.
	Flexed    FeedbackCode
	FlexedCue string
}

// Codes returns the feedback codes the exercise can produce for a sample.
func (f Feedback) Codes() []FeedbackCode {
	return []FeedbackCode{Good, f.Extended, f.Flexed}
}

// Cue returns the text shown to the user for code c under profile p.
// Unknown codes are returned verbatim.
func (p Profile) Cue(c FeedbackCode) string {
	switch c {
	case Good:
		return goodCue
	case NoSignal:
		return noSignalCue
	case p.Feedback.Extended:
		return p.Feedback.ExtendedCue
	case p.Feedback.Flexed:
		return p.Feedback.FlexedCue
	default:
		return string(c)
	}
}
