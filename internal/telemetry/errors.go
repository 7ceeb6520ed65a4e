package telemetry

import "codeberg.org/mutker/formctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidBroker = errors.ErrorCode("telemetry_invalid_broker")
	ErrInvalidTopic  = errors.ErrorCode("telemetry_invalid_topic")
	ErrInvalidQoS    = errors.ErrorCode("telemetry_invalid_qos")

	// Connection Errors
	ErrConnectFailed = errors.ErrorCode("telemetry_connect_failed")

	// Publish Errors
	ErrPublishFailed   = errors.ErrorCode("telemetry_publish_failed")
	ErrInvalidSnapshot = errors.ErrorCode("telemetry_invalid_snapshot")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
