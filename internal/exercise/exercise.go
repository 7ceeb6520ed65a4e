// Package exercise is the registry of supported exercises and their constant
// angle, feedback and repetition-detection configuration.
package exercise

import (
	"strings"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/pose"
)

// Kind identifies one of the supported exercises.
type Kind int

const (
	BicepCurl Kind = iota + 1
	PushUp
	Squat
	ShoulderPress
)

// Kinds lists every supported exercise in display order.
var Kinds = []Kind{BicepCurl, PushUp, Squat, ShoulderPress}

// Bounds are the target angles of an exercise in degrees. A well-formed
// profile has Min < Ideal < Max.
type Bounds struct {
	Min   float64
	Max   float64
	Ideal float64
}

// MaxDeviation is the wider of the two half-ranges around Ideal.
func (b Bounds) MaxDeviation() float64 {
	return max(b.Ideal-b.Min, b.Max-b.Ideal)
}

// Level is the difficulty an exercise is aimed at.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Profile is the immutable configuration of one exercise.
type Profile struct {
	Kind        Kind
	Name        string
	Description string
	Level       Level
	Muscles     []string
	Roles       pose.Roles
	Bounds      Bounds
	Feedback    Feedback
	Reps        RepConfig
}

// String returns the canonical lower-case identifier, e.g. "bicep curl".
func (k Kind) String() string {
	switch k {
	case BicepCurl:
		return "bicep curl"
	case PushUp:
		return "push-up"
	case Squat:
		return "squat"
	case ShoulderPress:
		return "shoulder press"
	default:
		return "unknown"
	}
}

// Profile returns the constant configuration for k. The zero Profile is
// returned for an unknown kind.
func (k Kind) Profile() Profile {
	switch k {
	case BicepCurl:
		return bicepCurl
	case PushUp:
		return pushUp
	case Squat:
		return squat
	case ShoulderPress:
		return shoulderPress
	default:
		return Profile{}
	}
}

// Parse resolves an exercise identifier. Matching ignores case, and
// underscores, hyphens and spaces are interchangeable.
func Parse(name string) (Kind, error) {
	want := normalize(name)
	for _, k := range Kinds {
		if normalize(k.String()) == want {
			return k, nil
		}
	}

	return 0, errors.New().WithData(errors.ErrUnknownExercise, name)
}

// Lookup resolves an exercise identifier to its profile.
func Lookup(name string) (Profile, error) {
	k, err := Parse(name)
	if err != nil {
		return Profile{}, err
	}

	return k.Profile(), nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}

var armRoles = pose.Roles{
	Proximal: pose.LeftShoulder,
	Vertex:   pose.LeftElbow,
	Distal:   pose.LeftWrist,
}

var bicepCurl = Profile{
	Kind:        BicepCurl,
	Name:        "Bicep Curl",
	Description: "Trains biceps by flexing at the elbow",
	Level:       Beginner,
	Muscles:     []string{"Biceps", "Forearms"},
	Roles:       armRoles,
	Bounds:      Bounds{Min: 30, Max: 160, Ideal: 90},
	Feedback: Feedback{
		Extended:    CurlExtendMore,
		ExtendedCue: "Extend more",
		Flexed:      CurlComplete,
		FlexedCue:   "Curl Complete",
	},
	Reps: RepConfig{
		Edge:       DownToUp,
		Completion: Threshold{Extreme: AtMin, Offset: 10},
		Reset:      Threshold{Extreme: AtMax, Offset: 20},
	},
}

var pushUp = Profile{
	Kind:        PushUp,
	Name:        "Push-Up",
	Description: "Full body exercise focusing on chest and arms",
	Level:       Intermediate,
	Muscles:     []string{"Chest", "Shoulders", "Triceps", "Core"},
	Roles:       armRoles,
	Bounds:      Bounds{Min: 80, Max: 160, Ideal: 90},
	Feedback: Feedback{
		Extended:    PushUpTooHigh,
		ExtendedCue: "Lower your body more",
		Flexed:      PushUpTooLow,
		FlexedCue:   "Push up more",
	},
	Reps: RepConfig{
		Edge:       UpToDown,
		Completion: Threshold{Extreme: AtMax, Offset: 20},
		Reset:      Threshold{Extreme: AtMin, Offset: 20},
	},
}

var squat = Profile{
	Kind:        Squat,
	Name:        "Squat",
	Description: "Lower body exercise for legs and glutes",
	Level:       Intermediate,
	Muscles:     []string{"Quadriceps", "Hamstrings", "Glutes", "Core"},
	Roles: pose.Roles{
		Proximal: pose.LeftHip,
		Vertex:   pose.LeftKnee,
		Distal:   pose.LeftAnkle,
	},
	Bounds: Bounds{Min: 70, Max: 170, Ideal: 110},
	Feedback: Feedback{
		Extended:    SquatStandUp,
		ExtendedCue: "Stand Up Straight",
		Flexed:      SquatTooLow,
		FlexedCue:   "Too Low",
	},
	Reps: RepConfig{
		Edge:       UpToDown,
		Completion: Threshold{Extreme: AtMax, Offset: 20},
		Reset:      Threshold{Extreme: AtMin, Offset: 20},
	},
}

var shoulderPress = Profile{
	Kind:        ShoulderPress,
	Name:        "Shoulder Press",
	Description: "Upper body exercise targeting shoulders",
	Level:       Advanced,
	Muscles:     []string{"Shoulders", "Triceps", "Upper Back"},
	Roles:       armRoles,
	Bounds:      Bounds{Min: 60, Max: 170, Ideal: 160},
	Feedback: Feedback{
		Extended:    PressLockedOut,
		ExtendedCue: "Locked Out",
		Flexed:      PressPushHigher,
		FlexedCue:   "Push Higher",
	},
	Reps: RepConfig{
		Edge:       DownToUp,
		Completion: Threshold{Extreme: AtMax, Offset: 10},
		Reset:      Threshold{Extreme: AtMin, Offset: 10},
	},
}
