package telemetry

import (
	"context"

	"codeberg.org/mutker/formctl/internal/session"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher delivers session snapshots to downstream consumers.
type Publisher interface {
	Record(ctx context.Context, snapshot *session.Snapshot) error
	Close() error
}

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}
