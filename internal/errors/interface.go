package errors

import "strings"

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}

// Detail is the data attached to storage and I/O errors: the step that
// failed, the object it acted on and the underlying message.
type Detail struct {
	Phase  string
	Target string
	Cause  string
}

// Failed returns the Detail for err during phase.
func Failed(phase string, err error) Detail {
	d := Detail{Phase: phase}
	if err != nil {
		d.Cause = err.Error()
	}

	return d
}

// On returns a copy of d naming target.
func (d Detail) On(target string) Detail {
	d.Target = target
	return d
}

func (d Detail) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Phase, d.Target, d.Cause} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ": ")
}
