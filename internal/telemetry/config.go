package telemetry

import (
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
)

const (
	defaultBroker       = "tcp://localhost:1883"
	defaultTopic        = "formctl/frames"
	defaultClientID     = "formctl"
	defaultTimeout      = 2 * time.Second
	disconnectQuiesceMs = 250
)

type Config struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Retain   bool
	// Timeout bounds the wait for a connect or publish acknowledgement.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Broker:   defaultBroker,
		Topic:    defaultTopic,
		ClientID: defaultClientID,
		Timeout:  defaultTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the broker settings if publishing is enabled
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errFactory.New(ErrInvalidBroker)
	}
	if c.Topic == "" {
		return errFactory.New(ErrInvalidTopic)
	}
	if c.QoS > 2 {
		return errFactory.WithData(ErrInvalidQoS, c.QoS)
	}

	return nil
}
