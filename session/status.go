package session

import "github.com/nerrad567/gray-logic-session/transport"

// Status describes the session's view of its broker connection.
type Status int

const (
	// StatusOffline: no connection and none pending. Initial state, and
	// terminal after an explicit close.
	StatusOffline Status = iota

	// StatusConnecting: a connect request is in flight and the session
	// has not yet been online on this transport.
	StatusConnecting

	// StatusOnline: connected to the broker.
	StatusOnline

	// StatusReconnecting: the connection dropped after being online and
	// the transport is retrying.
	StatusReconnecting

	// StatusError: the transport reported a terminal error.
	StatusError
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusConnecting:
		return "connecting"
	case StatusOnline:
		return "online"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// nextStatus applies one transport lifecycle event to the current status.
//
// Reconnecting is distinguished from Connecting only by prior-connected
// history: a drop while Online yields Reconnecting, while a drop during a
// connect attempt folds back to Connecting.
func nextStatus(cur Status, kind transport.LifecycleKind) Status {
	switch kind {
	case transport.LifecycleConnected:
		return StatusOnline
	case transport.LifecycleReconnecting:
		if cur == StatusOnline {
			return StatusReconnecting
		}
		return StatusConnecting
	case transport.LifecycleClosed:
		return StatusOffline
	case transport.LifecycleErrored:
		return StatusError
	default:
		return cur
	}
}
