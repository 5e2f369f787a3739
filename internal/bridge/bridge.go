package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/fimp2ha/internal/discovery"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"
)

// haOnline is the payload Home Assistant publishes on its status topic
// after it (re)starts.
const haOnline = "online"

// Transport is the subset of the MQTT session the bridge needs.
// It is satisfied by *mqtt.Client.
type Transport interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Discoverer runs one discovery cycle. It is satisfied by
// *discovery.Orchestrator.
type Discoverer interface {
	Run(ctx context.Context) (*discovery.Result, error)
}

// Logger is the optional structured logger used by the bridge.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds dependencies for New.
type Options struct {
	Transport  Transport
	Discoverer Discoverer

	HomeAssistant config.HomeAssistantConfig

	// QoS for the Home Assistant status subscription.
	QoS byte

	Logger Logger
}

// Metrics is a point-in-time view of the bridge.
type Metrics struct {
	Connected bool      `json:"connected"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`

	// Cycles counts finished discovery cycles, successful or not.
	Cycles   uint64 `json:"cycles"`
	Failures uint64 `json:"failures"`

	// Coalesced counts triggers absorbed by an already pending cycle.
	Coalesced uint64 `json:"coalesced"`

	// HomeAssistantRestarts counts "online" announcements seen.
	HomeAssistantRestarts uint64 `json:"homeassistant_restarts"`

	LastResult *discovery.Result `json:"last_result,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
}

// Bridge drives discovery cycles for the lifetime of the MQTT session.
type Bridge struct {
	transport  Transport
	discoverer Discoverer
	ha         config.HomeAssistantConfig
	qos        byte
	logger     Logger

	// trigger holds at most one pending cycle request.
	trigger chan struct{}

	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	mu      sync.RWMutex
	started bool
	stopped bool
	running bool
	metrics Metrics

	// onCycle is called after every cycle. Set in tests.
	onCycle func(res *discovery.Result, err error)
}

// New creates a Bridge. Call Start to begin.
func New(opts Options) (*Bridge, error) {
	if opts.Transport == nil {
		return nil, ErrTransportRequired
	}
	if opts.Discoverer == nil {
		return nil, ErrDiscovererRequired
	}
	if opts.HomeAssistant.StatusTopic == "" {
		opts.HomeAssistant.StatusTopic = "homeassistant/status"
	}

	return &Bridge{
		transport:  opts.Transport,
		discoverer: opts.Discoverer,
		ha:         opts.HomeAssistant,
		qos:        opts.QoS,
		logger:     opts.Logger,
		trigger:    make(chan struct{}, 1),
	}, nil
}

// Start subscribes to the Home Assistant status topic, starts the cycle
// loop and queues the first discovery cycle. It returns once the loop is
// running; cycles proceed in the background until ctx ends or Stop is
// called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrNotRunning
	}
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.metrics.StartedAt = time.Now()
	b.mu.Unlock()

	if err := b.transport.Subscribe(b.ha.StatusTopic, b.qos, b.handleStatus); err != nil {
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return fmt.Errorf("subscribe to %s: %w", b.ha.StatusTopic, err)
	}
	b.logInfo("watching Home Assistant status", "topic", b.ha.StatusTopic)

	loopCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.ctxCancel = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go b.loop(loopCtx)

	b.enqueue()
	return nil
}

// Stop cancels any running cycle, waits for the loop to exit and drops the
// status subscription. Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		cancel := b.ctxCancel
		b.mu.Unlock()

		if cancel == nil {
			return
		}

		cancel()
		b.wg.Wait()

		if err := b.transport.Unsubscribe(b.ha.StatusTopic); err != nil {
			b.logWarn("unsubscribe from Home Assistant status failed", "error", err)
		}
		b.logInfo("bridge stopped")
	})
}

// Trigger requests a discovery cycle. It returns false when the request
// was merged into a cycle that is already pending.
func (b *Bridge) Trigger() (bool, error) {
	b.mu.RLock()
	live := b.started && !b.stopped
	b.mu.RUnlock()
	if !live {
		return false, ErrNotRunning
	}
	return b.enqueue(), nil
}

// Metrics returns a snapshot of the bridge counters.
func (b *Bridge) Metrics() Metrics {
	b.mu.RLock()
	m := b.metrics
	m.Running = b.running
	b.mu.RUnlock()

	m.Connected = b.transport.IsConnected()
	return m
}

// enqueue queues a cycle unless one is already pending.
func (b *Bridge) enqueue() bool {
	select {
	case b.trigger <- struct{}{}:
		return true
	default:
		b.mu.Lock()
		b.metrics.Coalesced++
		b.mu.Unlock()
		return false
	}
}

// handleStatus reruns discovery when Home Assistant comes back online.
func (b *Bridge) handleStatus(topic string, payload []byte) error {
	status := strings.TrimSpace(string(payload))
	if status != haOnline {
		b.logInfo("Home Assistant status", "topic", topic, "status", status)
		return nil
	}

	b.mu.Lock()
	b.metrics.HomeAssistantRestarts++
	b.mu.Unlock()

	b.logInfo("Home Assistant is online, republishing discovery")
	b.enqueue()
	return nil
}

func (b *Bridge) loop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.trigger:
			b.runCycle(ctx)
		}
	}
}

func (b *Bridge) runCycle(ctx context.Context) {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()

	res, err := b.discoverer.Run(ctx)

	b.mu.Lock()
	b.running = false
	b.metrics.Cycles++
	if res != nil {
		b.metrics.LastResult = res
	}
	if err != nil {
		b.metrics.Failures++
		b.metrics.LastError = err.Error()
	} else {
		b.metrics.LastError = ""
	}
	hook := b.onCycle
	b.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		b.logError("discovery cycle failed", "error", err)
	}
	if hook != nil {
		hook(res, err)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
