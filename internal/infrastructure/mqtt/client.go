package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

// Client is the bridge's one session with the broker shared by the hub and
// Home Assistant. It is safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig
	url  string

	online atomic.Bool

	// mu guards hooks and log.
	mu    sync.RWMutex
	hooks hooks
	log   Logger

	// routes are the live subscriptions, replayed after a reconnect.
	routesMu sync.RWMutex
	routes   map[string]route
}

// Logger receives handler failures and reconnect notices.
// *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler consumes one inbound message. Handlers run one at a time
// on paho's router goroutine in arrival order and must not block. A
// returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

type hooks struct {
	up   func()
	down func(err error)
}

type route struct {
	qos     byte
	handler MessageHandler
}

// newClient prepares a session without dialling the broker.
func newClient(cfg config.MQTTConfig) *Client {
	c := &Client{
		cfg:    cfg,
		url:    brokerURL(cfg),
		routes: make(map[string]route),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if l := c.logger(); l != nil {
			l.Warn("hub broker connection lost, reconnecting", "broker", c.url)
		}
	})

	c.paho = pahomqtt.NewClient(opts)
	return c
}

// Connect dials the broker once, bounded by mqtt.broker.connect_timeout.
// A failure is reported as ErrConnectionFailed and is not retried.
// On success the retained bridge status is set to "online" and the will
// flips it to "offline" if the session dies.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	wait := cfg.ConnectTimeout()
	if wait <= 0 {
		wait = defaultConnectTimeout
	}

	tok := c.paho.Connect()
	if !tok.WaitTimeout(wait) {
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: no answer within %v", ErrConnectionFailed, c.url, wait)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.url, err)
	}

	// sessionUp runs asynchronously; callers expect IsConnected right away.
	c.online.Store(true)
	return c, nil
}

func (c *Client) sessionUp() {
	c.online.Store(true)
	c.resubscribe()
	c.announce(StatusOnline)

	if up := c.currentHooks().up; up != nil {
		up()
	}
}

func (c *Client) sessionDown(err error) {
	c.online.Store(false)

	if down := c.currentHooks().down; down != nil {
		down(err)
	}
}

func (c *Client) resubscribe() {
	c.routesMu.RLock()
	defer c.routesMu.RUnlock()
	for topic, r := range c.routes {
		c.paho.Subscribe(topic, r.qos, c.dispatch(r.handler))
	}
}

// announce sets the retained bridge availability.
func (c *Client) announce(status string) pahomqtt.Token {
	return c.paho.Publish(Topics{}.BridgeStatus(), byte(c.cfg.QoS), true, status)
}

// Close marks the bridge offline and ends the session. It is safe on a
// client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.announce(StatusOffline).WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.online.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.online.Load() && c.paho.IsConnected()
}

// SetOnConnect registers fn to run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.hooks.up = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers fn to run when the session is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.hooks.down = fn
	c.mu.Unlock()
}

// SetLogger attaches l. Without one, handler failures are dropped silently.
func (c *Client) SetLogger(l Logger) {
	c.mu.Lock()
	c.log = l
	c.mu.Unlock()
}

func (c *Client) currentHooks() hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks
}

func (c *Client) logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// dispatch adapts h to paho, containing panics and logging errors.
func (c *Client) dispatch(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.logger(); l != nil {
					l.Error("message handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := h(msg.Topic(), msg.Payload()); err != nil {
			if l := c.logger(); l != nil {
				l.Warn("message handler failed", "topic", msg.Topic(), "error", err)
			}
		}
	}
}

// await waits for tok and wraps a timeout or broker error in op.
func await(tok pahomqtt.Token, op error) error {
	if !tok.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no ack within %v", op, defaultPublishTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}

// checkTopic validates arguments shared by publish and subscribe.
func checkTopic(topic string, qos byte) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	}
	return nil
}
