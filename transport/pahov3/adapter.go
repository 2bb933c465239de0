package pahov3

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-session/transport"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the initial
	// connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultOpTimeout is the maximum time to wait for publish,
	// subscribe and unsubscribe acknowledgments.
	defaultOpTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time allowed for pending
	// operations on disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxPayloadSize caps outbound payloads (1MB), aligned with typical
	// broker limits.
	maxPayloadSize = 1 << 20

	// tlsMinVersion is the minimum TLS version for ssl:// brokers.
	tlsMinVersion = tls.VersionTLS12
)

// Adapter errors.
var (
	ErrConnectionFailed  = errors.New("pahov3: connection failed")
	ErrNotConnected      = errors.New("pahov3: client not connected")
	ErrPublishFailed     = errors.New("pahov3: publish failed")
	ErrSubscribeFailed   = errors.New("pahov3: subscribe failed")
	ErrUnsubscribeFailed = errors.New("pahov3: unsubscribe failed")
	ErrPayloadTooLarge   = errors.New("pahov3: payload exceeds maximum size")
)

// Options holds adapter settings beyond the transport config.
type Options struct {
	// Store persists in-flight QoS 1/2 messages across restarts, e.g.
	// a sqlitestore.Store. Nil selects paho's in-memory store. Only
	// effective with CleanSession off.
	Store pahomqtt.Store

	// ConnectTimeout overrides the initial connect timeout.
	ConnectTimeout time.Duration
}

// Dial connects with default adapter options.
func Dial(ctx context.Context, cfg transport.Config, h transport.Handlers) (transport.Transport, error) {
	return Dialer(Options{})(ctx, cfg, h)
}

// Dialer returns a transport.Dialer bound to the given adapter options.
func Dialer(o Options) transport.Dialer {
	return func(ctx context.Context, cfg transport.Config, h transport.Handlers) (transport.Transport, error) {
		return dial(ctx, cfg, o, h)
	}
}

// Client is a live MQTT 3.1.1 connection.
type Client struct {
	client   pahomqtt.Client
	handlers transport.Handlers

	// subscriptions tracks active filters for re-subscription on
	// reconnect.
	subscriptions map[string]byte // filter -> qos
	subMu         sync.Mutex

	// closed suppresses lifecycle events once Close has run.
	closed   bool
	closedMu sync.Mutex
}

func dial(ctx context.Context, cfg transport.Config, o Options, h transport.Handlers) (transport.Transport, error) {
	opts, err := buildClientOptions(cfg, o)
	if err != nil {
		return nil, err
	}

	c := &Client{
		handlers:      h,
		subscriptions: make(map[string]byte),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, _ error) {
		// Auto-reconnect is always on: a lost connection means a retry
		// is pending.
		c.emit(transport.LifecycleEvent{Kind: transport.LifecycleReconnecting})
	})
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.handleMessage(msg)
	})

	connectTimeout := o.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !waitToken(ctx, token, connectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// buildClientOptions maps the transport config onto paho client options.
func buildClientOptions(cfg transport.Config, o Options) (*pahomqtt.ClientOptions, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: empty broker URL", ErrConnectionFailed)
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(cfg.CleanSession)
	if o.Store != nil {
		opts.SetStore(o.Store)
	}

	// Retry and backoff live here, not in the session layer.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	if cfg.InitialRetryDelay > 0 {
		opts.SetConnectRetryInterval(cfg.InitialRetryDelay)
	}
	if cfg.MaxRetryDelay > 0 {
		opts.SetMaxReconnectInterval(cfg.MaxRetryDelay)
	}

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	// Ordered delivery: callbacks run synchronously on the router so
	// the session sees one event at a time.
	opts.SetOrderMatters(true)

	if strings.HasPrefix(cfg.URL, "ssl://") || strings.HasPrefix(cfg.URL, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts, nil
}

// handleConnect fires on initial connect and every reconnect.
func (c *Client) handleConnect() {
	c.restoreSubscriptions()
	c.emit(transport.LifecycleEvent{Kind: transport.LifecycleConnected})
}

// restoreSubscriptions re-subscribes to all tracked filters after a
// reconnect. Errors during restoration are ignored; the broker drops the
// session state only with clean-session on, and the next reconnect
// retries anyway.
func (c *Client) restoreSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for filter, qos := range c.subscriptions {
		c.client.Subscribe(filter, qos, nil)
	}
}

func (c *Client) handleMessage(msg pahomqtt.Message) {
	if c.handlers.OnMessage == nil {
		return
	}
	c.handlers.OnMessage(transport.Message{
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		QoS:       msg.Qos(),
		Retained:  msg.Retained(),
		Duplicate: msg.Duplicate(),
	})
}

// emit forwards a lifecycle event unless the client is closed.
func (c *Client) emit(ev transport.LifecycleEvent) {
	c.closedMu.Lock()
	closed := c.closed
	c.closedMu.Unlock()
	if closed || c.handlers.OnLifecycle == nil {
		return
	}
	c.handlers.OnLifecycle(ev)
}

// Publish sends a message. Metadata is silently dropped: MQTT 3.1.1 has
// no user properties.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, opts transport.PublishOptions) error {
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	if !c.client.IsConnectionOpen() && !c.client.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, opts.QoS, opts.Retain, payload)
	if !waitToken(ctx, token, defaultOpTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers the filters. The NoLocal option is not available
// in MQTT 3.1.1 and is ignored.
func (c *Client) Subscribe(ctx context.Context, filters []string, opts transport.SubscribeOptions) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	topics := make(map[string]byte, len(filters))
	for _, f := range filters {
		topics[f] = opts.QoS
	}

	c.subMu.Lock()
	for f := range topics {
		c.subscriptions[f] = opts.QoS
	}
	c.subMu.Unlock()

	token := c.client.SubscribeMultiple(topics, nil)
	if !waitToken(ctx, token, defaultOpTimeout) {
		c.dropTracked(filters)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		c.dropTracked(filters)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe removes the filters.
func (c *Client) Unsubscribe(ctx context.Context, filters []string) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	c.dropTracked(filters)

	token := c.client.Unsubscribe(filters...)
	if !waitToken(ctx, token, defaultOpTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

func (c *Client) dropTracked(filters []string) {
	c.subMu.Lock()
	for _, f := range filters {
		delete(c.subscriptions, f)
	}
	c.subMu.Unlock()
}

// Capabilities: MQTT 3.1.1 preserves no user metadata and has no
// no-local option.
func (c *Client) Capabilities() transport.Capabilities {
	return transport.Capabilities{}
}

// Close force-closes the connection after a short quiesce for pending
// operations. A Closed event is emitted first; no events follow.
func (c *Client) Close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	if c.handlers.OnLifecycle != nil {
		c.handlers.OnLifecycle(transport.LifecycleEvent{Kind: transport.LifecycleClosed})
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// waitToken waits for a paho token respecting both the context and the
// operation timeout.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-token.Done():
		return true
	case <-ctx.Done():
		return false
	case <-deadline.C:
		return false
	}
}
