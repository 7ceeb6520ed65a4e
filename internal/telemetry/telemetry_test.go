package telemetry_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/reps"
	"codeberg.org/mutker/formctl/internal/session"
	"codeberg.org/mutker/formctl/internal/telemetry"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	token        mqtt.Token
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, message{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return completedToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func snapshot() *session.Snapshot {
	return &session.Snapshot{
		Frame:     12,
		Exercise:  "bicep curl",
		Angle:     92.5,
		Direction: reps.Up,
		Reps:      3,
		Rep:       true,
		Feedback:  exercise.Good,
		Cue:       "Good Form",
		Signal:    true,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	assert.NoError(t, cfg.Validate(), "disabled config is always valid")

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Broker = ""
	assert.True(t, errors.HasCode(bad.Validate(), telemetry.ErrInvalidBroker))

	bad = cfg
	bad.Topic = ""
	assert.True(t, errors.HasCode(bad.Validate(), telemetry.ErrInvalidTopic))

	bad = cfg
	bad.QoS = 3
	assert.True(t, errors.HasCode(bad.Validate(), telemetry.ErrInvalidQoS))
}

func TestDisabledIsNoop(t *testing.T) {
	pub, err := telemetry.NewService(telemetry.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, pub.Record(context.Background(), snapshot()))
	assert.NoError(t, pub.Close())
}

func TestPublishSnapshot(t *testing.T) {
	client := &fakeClient{}
	cfg := telemetry.DefaultConfig()
	cfg.QoS = 1
	pub := telemetry.NewWithClient(cfg, client, logger.Nop())

	require.NoError(t, pub.Record(context.Background(), snapshot()))
	require.Len(t, client.messages, 1)

	msg := client.messages[0]
	assert.Equal(t, "formctl/frames", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, 92.5, decoded["smoothed_angle"])
	assert.Equal(t, "up", decoded["direction"])
	assert.Equal(t, 3.0, decoded["rep_count"])
	assert.Equal(t, "good", decoded["feedback_code"])

	require.NoError(t, pub.Close())
	assert.True(t, client.disconnected)
}

func TestPublishErrors(t *testing.T) {
	client := &fakeClient{token: completedToken(stderrors.New("broker gone"))}
	pub := telemetry.NewWithClient(telemetry.DefaultConfig(), client, logger.Nop())

	err := pub.Record(context.Background(), snapshot())
	assert.True(t, errors.HasCode(err, telemetry.ErrPublishFailed))

	err = pub.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidSnapshot))
}

func TestPublishTimeout(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	cfg := telemetry.DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	pub := telemetry.NewWithClient(cfg, client, logger.Nop())

	err := pub.Record(context.Background(), snapshot())
	assert.True(t, errors.HasCode(err, telemetry.ErrOperationTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.Timeout = time.Minute
	pub = telemetry.NewWithClient(cfg, client, logger.Nop())
	err = pub.Record(ctx, snapshot())
	assert.ErrorIs(t, err, context.Canceled)
}
