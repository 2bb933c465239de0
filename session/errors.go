package session

import "errors"

// Domain-specific errors for session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrClosed is returned when an operation is attempted on a session
	// that has been closed.
	ErrClosed = errors.New("session: closed")

	// ErrNotConnected is returned when publish or subscribe is called
	// before a connection exists.
	ErrNotConnected = errors.New("session: no connection")

	// ErrDialFailed is returned when the transport cannot be created.
	ErrDialFailed = errors.New("session: dial failed")

	// ErrInvalidQoS is returned for QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("session: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic or topic list is
	// provided.
	ErrInvalidTopic = errors.New("session: topic cannot be empty")
)
