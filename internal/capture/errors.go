package capture

import "codeberg.org/mutker/formctl/internal/errors"

const (
	// Lifecycle Errors
	ErrOpenFailed   = errors.ErrorCode("capture_open_failed")
	ErrCloseFailed  = errors.ErrorCode("capture_close_failed")
	ErrSourceClosed = errors.ErrorCode("capture_source_closed")

	// Stream Errors
	ErrReadFailed = errors.ErrorCode("capture_read_failed")
)
