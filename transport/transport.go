package transport

import (
	"context"
	"time"
)

// LifecycleKind identifies a transport lifecycle event.
type LifecycleKind int

const (
	// LifecycleConnected is emitted when a connection to the broker is
	// established, on initial connect and on every successful reconnect.
	LifecycleConnected LifecycleKind = iota

	// LifecycleReconnecting is emitted when the connection dropped and the
	// transport intends to retry.
	LifecycleReconnecting

	// LifecycleClosed is emitted when the connection is closed with no
	// retry pending (explicit disconnect).
	LifecycleClosed

	// LifecycleErrored is emitted on a terminal transport error. Err
	// carries the cause.
	LifecycleErrored
)

// String returns a human-readable name for logging.
func (k LifecycleKind) String() string {
	switch k {
	case LifecycleConnected:
		return "connected"
	case LifecycleReconnecting:
		return "reconnecting"
	case LifecycleClosed:
		return "closed"
	case LifecycleErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a single entry in the transport's ordered event stream.
type LifecycleEvent struct {
	Kind LifecycleKind
	Err  error // non-nil only for LifecycleErrored
}

// Message is an inbound publication delivered by the transport.
//
// Metadata carries protocol-level user properties when the transport
// supports them (MQTT 5); it is nil otherwise. Messages are transient:
// handlers must copy Payload if they retain it.
type Message struct {
	Topic     string
	Payload   []byte
	Metadata  map[string]string
	QoS       byte
	Retained  bool
	Duplicate bool
}

// Handlers receives the transport's event stream.
//
// The transport guarantees at-most-one handler invocation in flight per
// connection: lifecycle and message events are delivered in the order the
// protocol engine reports them.
type Handlers struct {
	OnMessage   func(Message)
	OnLifecycle func(LifecycleEvent)
}

// Config holds the connection parameters for a transport.
type Config struct {
	// URL is the broker address, e.g. "tcp://localhost:1883" or
	// "ssl://broker.example.com:8883".
	URL string

	// ClientID identifies this client to the broker. Generated by the
	// session layer when empty.
	ClientID string

	Username string
	Password string

	// KeepAlive is the MQTT keepalive interval. Zero selects the
	// adapter's default.
	KeepAlive time.Duration

	// CleanSession starts a fresh broker-side session on connect.
	CleanSession bool

	// InitialRetryDelay and MaxRetryDelay bound the transport's
	// reconnect backoff. Zero selects adapter defaults.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// PublishOptions controls a single publish.
type PublishOptions struct {
	QoS    byte
	Retain bool

	// Metadata is attached as protocol-level user properties when the
	// transport supports them, and silently dropped otherwise.
	Metadata map[string]string
}

// SubscribeOptions controls a subscribe request.
type SubscribeOptions struct {
	QoS byte

	// NoLocal requests that the broker not echo this client's own
	// publications back on the subscription. Ignored by transports
	// without protocol support.
	NoLocal bool
}

// Capabilities reports which optional protocol features the concrete
// transport provides end-to-end.
type Capabilities struct {
	// UserMetadata: publish metadata survives to matching subscribers.
	UserMetadata bool

	// NoLocal: SubscribeOptions.NoLocal is honoured by the broker.
	NoLocal bool
}

// Transport is a live connection to an MQTT broker.
//
// Publish, Subscribe and Unsubscribe are fire-and-forget from the session
// layer's perspective: a nil error means the request was handed to the
// protocol engine, not that the broker acknowledged it. Completion is
// observed through later events.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte, opts PublishOptions) error
	Subscribe(ctx context.Context, filters []string, opts SubscribeOptions) error
	Unsubscribe(ctx context.Context, filters []string) error
	Capabilities() Capabilities

	// Close force-closes the connection. The transport emits no further
	// events after Close returns.
	Close() error
}

// Dialer creates a connected Transport. The session layer uses it to build
// the initial transport and to rebuild one when connection parameters
// change.
type Dialer func(ctx context.Context, cfg Config, h Handlers) (Transport, error)
