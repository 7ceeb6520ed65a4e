// Package telemetry publishes per-frame session snapshots as JSON to an
// MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/session"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type service struct {
	client Client
	cfg    Config
	log    logger.Logger
}

// No-op implementation
type noopPublisher struct{}

// NewService connects to the configured broker. A disabled config yields a
// publisher that discards everything.
func NewService(cfg Config, log logger.Logger) (Publisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Snapshot publishing disabled, using no-op publisher")
		return &noopPublisher{}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, errFactory.WithData(ErrConnectFailed, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, err)
	}

	log.Info().
		Str("broker", cfg.Broker).
		Str("topic", cfg.Topic).
		Msg("Connected to MQTT broker")

	return NewWithClient(cfg, client, log), nil
}

// NewWithClient returns a Publisher over an already connected client.
func NewWithClient(cfg Config, client Client, log logger.Logger) Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &service{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func (s *service) Record(ctx context.Context, snapshot *session.Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidSnapshot)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errFactory.Wrap(ErrInvalidSnapshot, err)
	}

	token := s.client.Publish(s.cfg.Topic, s.cfg.QoS, s.cfg.Retain, payload)

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	case <-timer.C:
		return errFactory.WithData(ErrOperationTimeout, s.cfg.Topic)
	case <-token.Done():
		if err := token.Error(); err != nil {
			return errFactory.Wrap(ErrPublishFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	s.client.Disconnect(disconnectQuiesceMs)
	s.log.Debug().Msg("Disconnected from MQTT broker")

	return nil
}

// No-op implementation
func (*noopPublisher) Record(_ context.Context, _ *session.Snapshot) error {
	return nil
}

func (*noopPublisher) Close() error {
	return nil
}
