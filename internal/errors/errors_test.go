package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/formctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid interval value", f.New(errors.ErrInvalidInterval).Error())
	assert.Equal(t, "Unknown exercise: plank", f.WithData(errors.ErrUnknownExercise, "plank").Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())

	wrapped := f.Wrap(errors.ErrReadConfig, fmt.Errorf("boom"))
	assert.Equal(t, "Failed to read config file: boom", wrapped.Error())
	assert.Equal(t, "unregistered_code", errors.GetErrorMessage("unregistered_code"))
}

func TestCodeMatching(t *testing.T) {
	f := errors.New()
	cause := fmt.Errorf("disk full")
	err := fmt.Errorf("saving: %w", f.Wrap(errors.ErrOperationFailed, cause))

	assert.True(t, errors.HasCode(err, errors.ErrOperationFailed))
	assert.False(t, errors.HasCode(err, errors.ErrTimeout))
	assert.True(t, errors.Is(err, f.New(errors.ErrOperationFailed)))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}

func TestDetail(t *testing.T) {
	f := errors.New()

	d := errors.Failed("open_database", fmt.Errorf("permission denied")).On("/var/lib/formctl/history.db")
	err := f.WithData(errors.ErrInitFailed, d)

	assert.Equal(t, "Initialization failed: open_database: /var/lib/formctl/history.db: permission denied", err.Error())
	assert.Equal(t, d, err.GetData())
	assert.Equal(t, "commit", errors.Failed("commit", nil).String())
}
