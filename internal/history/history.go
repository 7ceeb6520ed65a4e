// Package history persists finished session records in sqlite.
package history

import (
	"context"
	"io"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/session"
)

// No-op implementation
type noopStore struct{}

// NewService returns the history store described by cfg. When history is
// disabled nothing is stored and queries return no sessions.
func NewService(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Session history disabled, using no-op store")
		return &noopStore{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	return repo, nil
}

func (*noopStore) Save(_ context.Context, _ *session.Record) error {
	return nil
}

func (*noopStore) Recent(_ context.Context, _ int) ([]*session.Record, error) {
	return nil, nil
}

func (*noopStore) Progress(_ context.Context) ([]Progress, error) {
	return nil, nil
}

func (*noopStore) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "[]\n")
	return err
}

func (*noopStore) Clear(_ context.Context) error {
	return nil
}

func (*noopStore) Close() error {
	return nil
}
