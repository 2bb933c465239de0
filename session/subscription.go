package session

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-session/codec"
	"github.com/nerrad567/gray-logic-session/transport"
)

// SubscribeOptions configures one Subscription.
type SubscribeOptions struct {
	// QoS is the maximum delivery level requested from the transport
	// (0, 1, or 2).
	QoS byte

	// ExcludeSelf suppresses this session's own publications on the
	// subscription. When the transport supports a protocol-native
	// no-local option it is requested too; the in-process filter then
	// acts as a fallback.
	ExcludeSelf bool

	// SelfWindow bounds the fingerprint-based suppression fallback:
	// a message byte-identical to a local publish older than the window
	// is delivered. Zero selects echo.DefaultWindow.
	SelfWindow time.Duration

	// Mode selects the payload decode policy. Ignored when Parser is
	// set.
	Mode codec.Mode

	// OnMessage, when non-nil, is invoked synchronously for every
	// non-suppressed message. Panics and errors inside the callback are
	// isolated: they never interrupt delivery to other subscriptions.
	OnMessage func(value any, msg transport.Message)

	// Parser overrides the codec: it converts raw payload bytes to the
	// delivered value. A parser error falls back to the UTF-8 text of
	// the payload.
	Parser func(payload []byte) (any, error)
}

// Subscription is a live handle to one subscribe request.
//
// Each Subscription delivers independently: two Subscriptions on the same
// topic both receive every non-suppressed message, and closing one leaves
// the other fully functional.
type Subscription struct {
	session *Session
	topics  []string
	opts    SubscribeOptions

	mu       sync.Mutex
	latest   any
	hasValue bool
	closed   bool
}

// Topics returns the topic filters this subscription covers.
func (sub *Subscription) Topics() []string {
	out := make([]string, len(sub.topics))
	copy(out, sub.topics)
	return out
}

// Latest returns the most recent non-suppressed decoded value and whether
// any message has been delivered yet.
func (sub *Subscription) Latest() (any, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.latest, sub.hasValue
}

// matches reports whether an inbound topic is covered by this
// subscription's filters.
func (sub *Subscription) matches(topic string) bool {
	for _, f := range sub.topics {
		if matchTopic(f, topic) {
			return true
		}
	}
	return false
}

// deliver decodes and hands one non-suppressed message to the
// subscription. Callback failures are contained here.
func (sub *Subscription) deliver(msg transport.Message, log Logger) {
	value := sub.decode(msg.Payload)

	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.latest = value
	sub.hasValue = true
	callback := sub.opts.OnMessage
	sub.mu.Unlock()

	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("subscription callback panic recovered",
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()
	callback(value, msg)
}

// decode converts payload bytes to the delivered value, honouring a
// custom parser when configured.
func (sub *Subscription) decode(payload []byte) any {
	if sub.opts.Parser != nil {
		v, err := sub.opts.Parser(payload)
		if err != nil {
			return string(payload)
		}
		return v
	}
	return codec.Decode(payload, sub.opts.Mode)
}

// Close releases the subscription: its handler stops receiving messages
// and topics no longer referenced by any live Subscription are
// unsubscribed at the transport. Close is idempotent.
func (sub *Subscription) Close() error {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return nil
	}
	sub.closed = true
	sub.mu.Unlock()

	return sub.session.release(sub)
}
