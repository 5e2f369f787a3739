package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"
)

// Transport is the subset of the MQTT session the correlator needs.
// It is satisfied by *mqtt.Client.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the optional structured logger used by the correlator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Request describes one synchronous ask.
type Request struct {
	RequestTopic  string
	ResponseTopic string

	// Payload is sent verbatim when it is a []byte, json.RawMessage or
	// string, otherwise JSON-encoded.
	Payload any

	// Match recognises the response. It is only called with decoded messages.
	Match MatchFunc

	Timeout time.Duration
}

// Options holds dependencies for New.
type Options struct {
	// Transport is the MQTT session. Required.
	Transport Transport

	// Registry is shared with other consumers when set; a new one is created otherwise.
	Registry *Registry

	// QoS for request publishes and response subscriptions.
	QoS byte

	Logger   Logger
	Observer Observer
}

// Correlator publishes requests and waits for their correlated responses.
//
// Thread Safety: All methods are safe for concurrent use. Any number of
// SendAndWait calls may be in flight, each with its own listener and deadline.
type Correlator struct {
	transport Transport
	registry  *Registry
	qos       byte
	logger    Logger
	observer  Observer

	// subs holds the broker subscription state per response topic. subMu
	// guards only the map; broker calls run under the topic's own lock so
	// requests on other topics never wait for them.
	subs  map[string]*topicSub
	subMu sync.Mutex
}

// topicSub is the subscription of one response topic.
type topicSub struct {
	// users counts requests holding this entry, including those still
	// waiting for mu. Guarded by Correlator.subMu.
	users int

	// mu is held across Subscribe and Unsubscribe of the topic. refs is
	// the number of requests the subscription currently serves.
	mu   sync.Mutex
	refs int
}

// New creates a Correlator.
func New(opts Options) (*Correlator, error) {
	if opts.Transport == nil {
		return nil, ErrTransportRequired
	}

	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Correlator{
		transport: opts.Transport,
		registry:  registry,
		qos:       opts.QoS,
		logger:    opts.Logger,
		observer:  opts.Observer,
		subs:      make(map[string]*topicSub),
	}, nil
}

// Registry returns the listener registry.
func (c *Correlator) Registry() *Registry {
	return c.registry
}

// Pending returns the number of registered listeners.
func (c *Correlator) Pending() int {
	return c.registry.Len()
}

// SendAndWait subscribes to req.ResponseTopic, publishes req.Payload to
// req.RequestTopic and blocks until a message accepted by req.Match arrives,
// req.Timeout elapses or ctx ends.
//
// Returns:
//   - (msg, true, nil) for the first accepted message
//   - (Message{}, false, nil) on timeout
//   - (Message{}, false, err) for invalid requests, transport failures
//     and cancellation
func (c *Correlator) SendAndWait(ctx context.Context, req Request) (Message, bool, error) {
	start := time.Now()

	msg, outcome, err := c.sendAndWait(ctx, req)

	if c.observer != nil {
		c.observer.ObserveRequest(RequestStats{
			RequestTopic:  req.RequestTopic,
			ResponseTopic: req.ResponseTopic,
			RequestType:   requestType(req.Payload),
			Outcome:       outcome,
			Duration:      time.Since(start),
			Pending:       c.registry.Len(),
		})
	}

	return msg, outcome == OutcomeMatched, err
}

func (c *Correlator) sendAndWait(ctx context.Context, req Request) (Message, Outcome, error) {
	if err := validate(req); err != nil {
		return Message{}, OutcomeError, err
	}

	payload, err := encode(req.Payload)
	if err != nil {
		return Message{}, OutcomeError, err
	}

	listener := NewListener(req.ResponseTopic, req.Match)
	id := c.registry.Add(listener)

	if err := c.acquire(req.ResponseTopic); err != nil {
		c.registry.Remove(id)
		return Message{}, OutcomeError, err
	}

	defer func() {
		c.registry.Remove(id)
		c.release(req.ResponseTopic)
	}()

	if err := c.transport.Publish(req.RequestTopic, payload, c.qos, false); err != nil {
		return Message{}, OutcomeError, fmt.Errorf("%w: %s: %w", ErrPublish, req.RequestTopic, err)
	}

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case <-listener.Done():
		msg, _ := listener.Result()
		return msg, OutcomeMatched, nil

	case <-timer.C:
		// A match may have landed in the same instant as the deadline.
		if msg, ok := listener.Result(); ok {
			return msg, OutcomeMatched, nil
		}
		c.logDebug("no response before deadline",
			"request_topic", req.RequestTopic,
			"response_topic", req.ResponseTopic,
			"timeout", req.Timeout)
		return Message{}, OutcomeTimeout, nil

	case <-ctx.Done():
		return Message{}, OutcomeCancelled, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// Publish sends a pre-serialised payload.
func (c *Correlator) Publish(topic string, payload []byte, retained bool) error {
	return c.transport.Publish(topic, payload, c.qos, retained)
}

// PublishJSON encodes v as JSON and publishes it.
func (c *Correlator) PublishJSON(topic string, v any, retained bool) error {
	payload, err := encode(v)
	if err != nil {
		return err
	}
	return c.transport.Publish(topic, payload, c.qos, retained)
}

// acquire subscribes to topic if no in-flight request holds it yet.
func (c *Correlator) acquire(topic string) error {
	ts := c.enter(topic)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.refs == 0 {
		if err := c.transport.Subscribe(topic, c.qos, c.handle); err != nil {
			c.leave(topic, ts)
			return fmt.Errorf("%w: %s: %w", ErrSubscribe, topic, err)
		}
	}
	ts.refs++
	return nil
}

// release drops one hold on topic and unsubscribes after the last one.
// Unsubscribe failures are logged: the request already has its outcome.
func (c *Correlator) release(topic string) {
	c.subMu.Lock()
	ts := c.subs[topic]
	c.subMu.Unlock()
	if ts == nil {
		return
	}

	ts.mu.Lock()
	ts.refs--
	if ts.refs == 0 {
		if err := c.transport.Unsubscribe(topic); err != nil {
			c.logWarn("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	ts.mu.Unlock()

	c.leave(topic, ts)
}

// enter returns the entry for topic, creating it, and counts the caller
// as a user so the entry outlives its wait for ts.mu.
func (c *Correlator) enter(topic string) *topicSub {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ts := c.subs[topic]
	if ts == nil {
		ts = &topicSub{}
		c.subs[topic] = ts
	}
	ts.users++
	return ts
}

// leave undoes enter and drops the entry after its last user.
func (c *Correlator) leave(topic string, ts *topicSub) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ts.users--
	if ts.users == 0 && c.subs[topic] == ts {
		delete(c.subs, topic)
	}
}

// handle is the transport callback for every response subscription.
func (c *Correlator) handle(topic string, payload []byte) error {
	msg := Decode(topic, payload)
	if !msg.Decoded() {
		c.logDebug("ignoring non-JSON message", "topic", topic, "bytes", len(payload))
		return nil
	}
	c.registry.Dispatch(msg)
	return nil
}

// Subscriptions returns the number of response topics currently held.
func (c *Correlator) Subscriptions() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

func validate(req Request) error {
	switch {
	case req.RequestTopic == "":
		return fmt.Errorf("%w: request topic is empty", ErrInvalidRequest)
	case req.ResponseTopic == "":
		return fmt.Errorf("%w: response topic is empty", ErrInvalidRequest)
	case req.Match == nil:
		return fmt.Errorf("%w: match function is nil", ErrInvalidRequest)
	case req.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidRequest)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodePayload, err)
	}
	return payload, nil
}

// requestType extracts the FIMP "type" of a payload for telemetry labels.
func requestType(v any) string {
	switch p := v.(type) {
	case []byte:
		return Decode("", p).Data.String("type")
	case interface{ MessageType() string }:
		return p.MessageType()
	case map[string]any:
		s, _ := p["type"].(string)
		return s
	}
	return ""
}

func (c *Correlator) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Correlator) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
