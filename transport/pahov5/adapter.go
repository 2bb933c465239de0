package pahov5

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/nerrad567/gray-logic-session/transport"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds the wait for the initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultKeepAlive is the keepalive interval in seconds.
	defaultKeepAlive = 60 * time.Second

	// defaultRetryDelay is the reconnect delay when the config leaves it
	// zero.
	defaultRetryDelay = 2 * time.Second

	// sessionExpirySeconds keeps broker-side session state alive across
	// short disconnects so QoS 1/2 flows resume.
	sessionExpirySeconds = 60
)

// Adapter errors.
var (
	ErrConnectionFailed  = errors.New("pahov5: connection failed")
	ErrPublishFailed     = errors.New("pahov5: publish failed")
	ErrSubscribeFailed   = errors.New("pahov5: subscribe failed")
	ErrUnsubscribeFailed = errors.New("pahov5: unsubscribe failed")
)

// Client is a live MQTT 5 connection managed by autopaho.
type Client struct {
	cm       *autopaho.ConnectionManager
	handlers transport.Handlers

	// cancel stops the autopaho connection manager's retry loop.
	cancel context.CancelFunc

	// subscriptions tracks filters for re-subscription on reconnect.
	subscriptions map[string]paho.SubscribeOptions
	subMu         sync.Mutex

	closed   bool
	closedMu sync.Mutex
}

// Dial connects to the broker and blocks until the first connection is
// up or ctx/timeout expires.
func Dial(ctx context.Context, cfg transport.Config, h transport.Handlers) (transport.Transport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing broker URL: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		handlers:      h,
		subscriptions: make(map[string]paho.SubscribeOptions),
	}

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	retryDelay := cfg.InitialRetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	acfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     uint16(keepAlive / time.Second),
		CleanStartOnInitialConnection: cfg.CleanSession,
		SessionExpiryInterval:         sessionExpirySeconds,
		ConnectRetryDelay:             retryDelay,
		ConnectTimeout:                defaultConnectTimeout,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			c.handleConnectionUp()
		},
		OnConnectError: func(err error) {
			// autopaho keeps retrying: a connect error means a retry is
			// pending, not a terminal failure.
			c.emit(transport.LifecycleEvent{Kind: transport.LifecycleReconnecting})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.handlePublishReceived,
			},
			OnClientError: func(err error) {
				c.emit(transport.LifecycleEvent{Kind: transport.LifecycleReconnecting})
			},
			OnServerDisconnect: func(_ *paho.Disconnect) {
				c.emit(transport.LifecycleEvent{Kind: transport.LifecycleReconnecting})
			},
		},
	}
	if cfg.Username != "" {
		acfg.SetUsernamePassword(cfg.Username, []byte(cfg.Password))
	}

	// The manager's lifetime is bound to its own context, not the dial
	// context: Close cancels it.
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	cm, err := autopaho.NewConnection(runCtx, acfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.cm = cm

	waitCtx, waitCancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer waitCancel()
	if err := cm.AwaitConnection(waitCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// handleConnectionUp fires on initial connect and every reconnect.
func (c *Client) handleConnectionUp() {
	c.restoreSubscriptions()
	c.emit(transport.LifecycleEvent{Kind: transport.LifecycleConnected})
}

// restoreSubscriptions re-issues tracked filters. With a session expiry
// interval the broker usually still holds them; re-subscribing is
// harmless and covers expiry.
func (c *Client) restoreSubscriptions() {
	c.subMu.Lock()
	subs := make([]paho.SubscribeOptions, 0, len(c.subscriptions))
	for _, so := range c.subscriptions {
		subs = append(subs, so)
	}
	c.subMu.Unlock()

	if len(subs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	c.cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs})
}

func (c *Client) handlePublishReceived(pr paho.PublishReceived) (bool, error) {
	if c.handlers.OnMessage == nil {
		return false, nil
	}

	var metadata map[string]string
	if pr.Packet.Properties != nil && len(pr.Packet.Properties.User) > 0 {
		metadata = make(map[string]string, len(pr.Packet.Properties.User))
		for _, up := range pr.Packet.Properties.User {
			metadata[up.Key] = up.Value
		}
	}

	c.handlers.OnMessage(transport.Message{
		Topic:     pr.Packet.Topic,
		Payload:   pr.Packet.Payload,
		Metadata:  metadata,
		QoS:       pr.Packet.QoS,
		Retained:  pr.Packet.Retain,
		Duplicate: pr.Packet.Duplicate(),
	})
	return true, nil
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

// Publish sends a message, attaching metadata as MQTT 5 user properties.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, opts transport.PublishOptions) error {
	pub := &paho.Publish{
		Topic:   topic,
		QoS:     opts.QoS,
		Retain:  opts.Retain,
		Payload: payload,
	}
	if len(opts.Metadata) > 0 {
		props := &paho.PublishProperties{}
		for k, v := range opts.Metadata {
			props.User = append(props.User, paho.UserProperty{Key: k, Value: v})
		}
		pub.Properties = props
	}

	if _, err := c.cm.Publish(ctx, pub); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers the filters, honouring the no-local option.
func (c *Client) Subscribe(ctx context.Context, filters []string, opts transport.SubscribeOptions) error {
	subs := make([]paho.SubscribeOptions, 0, len(filters))
	for _, f := range filters {
		subs = append(subs, paho.SubscribeOptions{
			Topic:   f,
			QoS:     opts.QoS,
			NoLocal: opts.NoLocal,
		})
	}

	c.subMu.Lock()
	for _, so := range subs {
		c.subscriptions[so.Topic] = so
	}
	c.subMu.Unlock()

	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		c.subMu.Lock()
		for _, f := range filters {
			delete(c.subscriptions, f)
		}
		c.subMu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe removes the filters.
func (c *Client) Unsubscribe(ctx context.Context, filters []string) error {
	c.subMu.Lock()
	for _, f := range filters {
		delete(c.subscriptions, f)
	}
	c.subMu.Unlock()

	if _, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: filters}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// Capabilities: MQTT 5 user properties travel end-to-end and no-local is
// protocol-native.
func (c *Client) Capabilities() transport.Capabilities {
	return transport.Capabilities{
		UserMetadata: true,
		NoLocal:      true,
	}
}

// Close emits a Closed event, disconnects cleanly when possible, and
// stops the reconnect loop. No events follow.
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := c.cm.Disconnect(ctx)
	c.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pahov5: disconnect: %w", err)
	}
	return nil
}
