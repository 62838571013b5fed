package topic

import "errors"

var (
	// ErrInvalidPattern is returned when a subscription filter is malformed.
	ErrInvalidPattern = errors.New("topic: invalid pattern")

	// ErrDuplicatePattern is returned when a filter is registered twice.
	ErrDuplicatePattern = errors.New("topic: pattern already registered")

	// ErrNilHandler is returned when registering without a handler.
	ErrNilHandler = errors.New("topic: nil handler")
)

// ErrRejected marks a handler error caused by the message itself (bad JSON,
// missing fields, unknown enum values) rather than by the system. The
// router logs these at warn level and counts them separately.
var ErrRejected = errors.New("topic: message rejected")
