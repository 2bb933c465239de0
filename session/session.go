package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-session/codec"
	"github.com/nerrad567/gray-logic-session/echo"
	"github.com/nerrad567/gray-logic-session/transport"
)

// Logger interface for optional logging support.
// Compatible with slog.Logger and the logging package's Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Recorder receives session telemetry. Implementations must not block:
// calls happen on the publish and delivery paths.
type Recorder interface {
	StatusChanged(s Status)
	PublishSent(topic string)
	MessageDelivered(topic string)
	MessageSuppressed(topic string)
}

// PublishOptions controls a single publish.
type PublishOptions struct {
	// QoS is the delivery level requested from the transport (0, 1, or 2).
	QoS byte

	// Retain asks the broker to keep the message for new subscribers.
	Retain bool

	// Mode selects the payload encode policy. The zero value is
	// codec.ModeAuto.
	Mode codec.Mode
}

// Session owns one logical broker connection.
//
// Exactly one publisher identity exists per Session. It is generated at
// Open, never mutates, and survives Reconfigure; only Close ends it.
//
// All methods are safe for concurrent use.
type Session struct {
	dial transport.Dialer

	identity string
	filter   *echo.Filter
	reg      *registry

	// mu guards the transport handle, status, generation and closed
	// flag. The generation counter invalidates event handlers attached
	// to a torn-down transport, so no status update is dispatched after
	// teardown.
	mu     sync.Mutex
	tr     transport.Transport
	cfg    transport.Config
	status Status
	gen    int
	closed bool

	// Callbacks and collaborators (optional, set via Set*).
	onStatus   func(Status)
	onError    func(error)
	logger     Logger
	recorder   Recorder
	callbackMu sync.RWMutex
}

// Open creates a Session and connects it to the broker described by cfg.
//
// The returned Session is already Connecting or Online; lifecycle from
// here on is observable through Status and the optional status callback.
// Callers must Close the session to release the connection.
func Open(ctx context.Context, dial transport.Dialer, cfg transport.Config) (*Session, error) {
	identity := newIdentity()
	if cfg.ClientID == "" {
		cfg.ClientID = "glsession-" + identity[:8]
	}

	s := &Session{
		dial:     dial,
		identity: identity,
		filter:   echo.NewFilter(identity),
		reg:      newRegistry(),
		cfg:      cfg,
		status:   StatusConnecting,
		gen:      1,
	}

	tr, err := dial(ctx, cfg, s.handlers(1))
	if err != nil {
		s.mu.Lock()
		s.status = StatusError
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}

	s.mu.Lock()
	s.tr = tr
	s.mu.Unlock()
	return s, nil
}

// newIdentity generates the session's publisher identity: random bits
// plus wall-clock time (UUIDv7), unique with overwhelming probability
// across any broker's connected-client set.
func newIdentity() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Identity returns the session's publisher identity tag.
func (s *Session) Identity() string {
	return s.identity
}

// Status returns the session's current view of the connection lifecycle.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetOnStatus sets a callback invoked after every status transition.
func (s *Session) SetOnStatus(callback func(Status)) {
	s.callbackMu.Lock()
	s.onStatus = callback
	s.callbackMu.Unlock()
}

// SetOnError sets a callback invoked when the transport reports a
// terminal error. The status transitions to StatusError either way.
func (s *Session) SetOnError(callback func(error)) {
	s.callbackMu.Lock()
	s.onError = callback
	s.callbackMu.Unlock()
}

// SetLogger sets a logger for callback panics and delivery warnings.
// If not set, those events are silently dropped.
func (s *Session) SetLogger(logger Logger) {
	s.callbackMu.Lock()
	s.logger = logger
	s.callbackMu.Unlock()
}

// SetRecorder sets a telemetry recorder for session counters.
func (s *Session) SetRecorder(recorder Recorder) {
	s.callbackMu.Lock()
	s.recorder = recorder
	s.callbackMu.Unlock()
}

// Publish encodes value under the options' serialization mode and sends
// it to topic.
//
// The publish is fire-and-forget at this layer: a nil error means the
// payload was recorded for echo suppression and handed to the transport.
// Publish fails synchronously if the session is closed or no connection
// exists yet.
func (s *Session) Publish(ctx context.Context, topic string, value any, opts PublishOptions) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if opts.QoS > 2 {
		return ErrInvalidQoS
	}

	s.mu.Lock()
	tr := s.tr
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if tr == nil {
		return ErrNotConnected
	}

	payload, err := codec.Encode(value, opts.Mode)
	if err != nil {
		return err
	}

	// Record before the send so an immediate broker echo already finds
	// the fingerprint.
	s.filter.Record(topic, payload)

	err = tr.Publish(ctx, topic, payload, transport.PublishOptions{
		QoS:    opts.QoS,
		Retain: opts.Retain,
		Metadata: map[string]string{
			echo.IdentityProperty: s.identity,
		},
	})
	if err != nil {
		return fmt.Errorf("publishing to %q: %w", topic, err)
	}

	if r := s.getRecorder(); r != nil {
		r.PublishSent(topic)
	}
	return nil
}

// Subscribe creates a Subscription over the given topic filters.
//
// The transport-level subscribe is shared per filter across
// Subscriptions; each Subscription still receives and decodes every
// matching non-suppressed message independently.
func (s *Session) Subscribe(ctx context.Context, topics []string, opts SubscribeOptions) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, ErrInvalidTopic
	}
	for _, t := range topics {
		if t == "" {
			return nil, ErrInvalidTopic
		}
	}
	if opts.QoS > 2 {
		return nil, ErrInvalidQoS
	}

	s.mu.Lock()
	tr := s.tr
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if tr == nil {
		return nil, ErrNotConnected
	}

	sub := &Subscription{
		session: s,
		topics:  append([]string(nil), topics...),
		opts:    opts,
	}
	if err := s.reg.acquire(ctx, tr, tr.Capabilities(), sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubscribeTopic is a convenience wrapper for a single topic filter.
func (s *Session) SubscribeTopic(ctx context.Context, topic string, opts SubscribeOptions) (*Subscription, error) {
	return s.Subscribe(ctx, []string{topic}, opts)
}

// release is called by Subscription.Close.
func (s *Session) release(sub *Subscription) error {
	s.mu.Lock()
	tr := s.tr
	closed := s.closed
	s.mu.Unlock()

	if closed {
		// Transport already gone; drop the bookkeeping only.
		return s.reg.release(context.Background(), nil, transport.Capabilities{}, sub)
	}
	var caps transport.Capabilities
	if tr != nil {
		caps = tr.Capabilities()
	}
	return s.reg.release(context.Background(), tr, caps, sub)
}

// Reconfigure tears down the current transport and dials a new one with
// the given connection parameters.
//
// The echo fingerprint buffer is cleared (records from the old
// connection must not suppress deliveries on the new one) but the
// publisher identity is preserved: identity is session-scoped, not
// connection-scoped. Active Subscriptions are re-issued on the new
// transport.
func (s *Session) Reconfigure(ctx context.Context, cfg transport.Config) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	// Invalidate handlers attached to the old transport before closing
	// it, so late events cannot touch the new status.
	s.gen++
	gen := s.gen
	old := s.tr
	s.tr = nil
	if cfg.ClientID == "" {
		cfg.ClientID = s.cfg.ClientID
	}
	s.cfg = cfg
	s.status = StatusConnecting
	s.mu.Unlock()

	s.notifyStatus(StatusConnecting)

	if old != nil {
		if err := old.Close(); err != nil {
			if log := s.getLogger(); log != nil {
				log.Warn("closing previous transport", "error", err)
			}
		}
	}
	s.filter.Reset()

	tr, err := s.dial(ctx, cfg, s.handlers(gen))
	if err != nil {
		s.mu.Lock()
		s.status = StatusError
		s.mu.Unlock()
		s.notifyStatus(StatusError)
		return fmt.Errorf("%w: %w", ErrDialFailed, err)
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		// Closed or reconfigured again while dialing.
		s.mu.Unlock()
		tr.Close()
		return ErrClosed
	}
	s.tr = tr
	s.mu.Unlock()

	if err := s.reg.resubscribeAll(ctx, tr); err != nil {
		return fmt.Errorf("restoring subscriptions: %w", err)
	}
	return nil
}

// Close tears the session down: event handlers are invalidated, the
// transport is force-closed, and the handle cleared, in that order.
// No status update is dispatched after Close returns. Close is
// idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	old := s.tr
	s.tr = nil
	s.status = StatusOffline
	s.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// handlers binds the transport event stream to this session under a
// generation number; events from superseded transports are dropped.
func (s *Session) handlers(gen int) transport.Handlers {
	return transport.Handlers{
		OnMessage: func(msg transport.Message) {
			s.handleMessage(gen, msg)
		},
		OnLifecycle: func(ev transport.LifecycleEvent) {
			s.handleLifecycle(gen, ev)
		},
	}
}

// handleLifecycle reflects one transport event into the status signal.
// Events are processed in the order the transport reports them.
func (s *Session) handleLifecycle(gen int, ev transport.LifecycleEvent) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	next := nextStatus(s.status, ev.Kind)
	changed := next != s.status
	s.status = next
	s.mu.Unlock()

	if changed {
		s.notifyStatus(next)
	}
	if ev.Kind == transport.LifecycleErrored {
		s.callbackMu.RLock()
		callback := s.onError
		s.callbackMu.RUnlock()
		if callback != nil {
			callback(ev.Err)
		}
		if log := s.getLogger(); log != nil {
			log.Error("transport error", "error", ev.Err)
		}
	}
}

// handleMessage routes one inbound message: echo filter first, then
// per-subscription decode and delivery.
func (s *Session) handleMessage(gen int, msg transport.Message) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	log := s.getLogger()
	recorder := s.getRecorder()

	for _, sub := range s.reg.snapshot() {
		if !sub.matches(msg.Topic) {
			continue
		}
		if sub.opts.ExcludeSelf && s.filter.Matches(msg.Topic, msg.Payload, msg.Metadata, sub.opts.SelfWindow) {
			if recorder != nil {
				recorder.MessageSuppressed(msg.Topic)
			}
			continue
		}
		sub.deliver(msg, log)
		if recorder != nil {
			recorder.MessageDelivered(msg.Topic)
		}
	}
}

// notifyStatus invokes the status callback and recorder.
func (s *Session) notifyStatus(status Status) {
	s.callbackMu.RLock()
	callback := s.onStatus
	recorder := s.recorder
	s.callbackMu.RUnlock()

	if recorder != nil {
		recorder.StatusChanged(status)
	}
	if callback != nil {
		callback(status)
	}
}

func (s *Session) getLogger() Logger {
	s.callbackMu.RLock()
	defer s.callbackMu.RUnlock()
	return s.logger
}

func (s *Session) getRecorder() Recorder {
	s.callbackMu.RLock()
	defer s.callbackMu.RUnlock()
	return s.recorder
}
