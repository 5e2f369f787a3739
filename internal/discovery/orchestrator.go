package discovery

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/fimp2ha/internal/correlator"
	"github.com/nerrad567/fimp2ha/internal/entity"
	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

// Publisher is what the orchestrator needs from the correlator.
// It is satisfied by *correlator.Correlator.
type Publisher interface {
	SendAndWait(ctx context.Context, req correlator.Request) (correlator.Message, bool, error)
	Publish(topic string, payload []byte, retained bool) error
	PublishJSON(topic string, v any, retained bool) error
}

// Ledger records published configs. It is satisfied by
// *entity.SQLiteRepository.
type Ledger interface {
	Upsert(ctx context.Context, rec entity.Record) error
	ListStale(ctx context.Context, cycle string) ([]entity.Record, error)
	Delete(ctx context.Context, configTopic string) error
}

// Logger is the optional structured logger used by the orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// CycleObserver is told about every finished cycle. res is never nil.
type CycleObserver interface {
	ObserveCycle(res *Result, err error)
}

// MultiObserver fans out to several cycle observers. Nil entries are skipped.
type MultiObserver []CycleObserver

// ObserveCycle implements CycleObserver.
func (m MultiObserver) ObserveCycle(res *Result, err error) {
	for _, o := range m {
		if o != nil {
			o.ObserveCycle(res, err)
		}
	}
}

// Options holds dependencies for New.
type Options struct {
	// Publisher is required.
	Publisher Publisher

	// Ledger enables stale entity cleanup. Optional.
	Ledger Ledger

	Discovery     config.DiscoveryConfig
	HomeAssistant config.HomeAssistantConfig

	Logger   Logger
	Observer CycleObserver
}

// Result summarises one discovery cycle.
type Result struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Devices is the number of devices entities were built for.
	Devices int `json:"devices"`

	// Skipped counts devices without a room or filtered out.
	Skipped int `json:"skipped"`

	Entities int `json:"entities"`
	Reports  int `json:"reports"`
	Statuses int `json:"statuses"`
	Removed  int `json:"removed"`

	// Unanswered counts parameter queries that timed out.
	Unanswered int `json:"unanswered"`
}

// Orchestrator runs discovery cycles.
//
// Thread Safety: Run is not reentrant. Callers serialise cycles.
type Orchestrator struct {
	publisher Publisher
	ledger    Ledger
	cfg       config.DiscoveryConfig
	ha        config.HomeAssistantConfig
	logger    Logger
	observer  CycleObserver

	// sleep waits for d or until ctx ends. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Publisher == nil {
		return nil, ErrPublisherRequired
	}
	if opts.HomeAssistant.DiscoveryPrefix == "" {
		opts.HomeAssistant.DiscoveryPrefix = "homeassistant"
	}
	return &Orchestrator{
		publisher: opts.Publisher,
		ledger:    opts.Ledger,
		cfg:       opts.Discovery,
		ha:        opts.HomeAssistant,
		logger:    opts.Logger,
		observer:  opts.Observer,
		sleep:     sleepContext,
	}, nil
}

// cycle carries the state of one Run.
type cycle struct {
	id       string
	result   *Result
	reports  []report
	statuses []status
}

// report is one *.get_report request to publish after the configs.
type report struct {
	topic   string
	service string
	msgType string
}

// status is a message published once the configs have settled.
type status struct {
	topic   string
	payload any
}

// Run performs one discovery cycle.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	c := &cycle{
		id:     uuid.NewString(),
		result: &Result{StartedAt: time.Now()},
	}
	c.result.CycleID = c.id

	err := o.run(ctx, c)

	c.result.Duration = time.Since(c.result.StartedAt)
	if o.observer != nil {
		o.observer.ObserveCycle(c.result, err)
	}
	if err != nil {
		o.logError("discovery cycle failed", "cycle", c.id, "error", err)
		return c.result, err
	}

	o.logInfo("discovery cycle complete",
		"cycle", c.id,
		"devices", c.result.Devices,
		"skipped", c.result.Skipped,
		"entities", c.result.Entities,
		"reports", c.result.Reports,
		"removed", c.result.Removed,
		"duration", c.result.Duration)
	return c.result, nil
}

func (o *Orchestrator) run(ctx context.Context, c *cycle) error {
	catalog, err := o.fetchCatalog(ctx)
	if err != nil {
		return err
	}
	o.logInfo("received catalog from hub",
		"devices", len(catalog.Devices),
		"rooms", len(catalog.Rooms),
		"shortcuts", len(catalog.Shortcuts),
		"mode", catalog.Mode)

	devices := slices.Clone(catalog.Devices)
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !o.selected(d) {
			c.result.Skipped++
			continue
		}
		if err := o.device(ctx, c, catalog, d); err != nil {
			return err
		}
		c.result.Devices++
	}

	o.logInfo("publishing get_report requests", "count", len(c.reports))
	for _, r := range c.reports {
		if err := o.publishJSON(r.topic, fimp.NewGetReport(r.service, r.msgType), false); err != nil {
			return err
		}
		c.result.Reports++
	}

	if err := o.house(ctx, c, catalog); err != nil {
		return err
	}

	if len(c.statuses) > 0 {
		if err := o.sleep(ctx, o.cfg.StatusDelayDuration()); err != nil {
			return err
		}
		for _, s := range c.statuses {
			if err := o.publishJSON(s.topic, s.payload, false); err != nil {
				return err
			}
			c.result.Statuses++
		}
	}

	return o.removeStale(ctx, c)
}

// fetchCatalog asks vinculum for the catalog. No answer is ErrNoCatalog.
func (o *Orchestrator) fetchCatalog(ctx context.Context) (*fimp.Catalog, error) {
	o.logInfo("requesting devices, rooms, shortcuts and mode from hub")

	msg, ok, err := o.publisher.SendAndWait(ctx, correlator.Request{
		RequestTopic:  fimp.VinculumCommandTopic(),
		ResponseTopic: fimp.ResponseTopic(),
		Payload:       fimp.CatalogRequest(),
		Match:         fimp.IsCatalogResponse,
		Timeout:       o.cfg.CatalogTimeoutDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("requesting catalog: %w", err)
	}
	if !ok {
		return nil, ErrNoCatalog
	}
	return fimp.ParseCatalog(msg.Raw)
}

// selected applies the room requirement and the include/exclude filter.
func (o *Orchestrator) selected(d fimp.Device) bool {
	if d.Room == nil {
		o.logDebug("skipping device without room", "device", d.Key(), "name", d.Name())
		return false
	}

	key := d.Key()
	switch o.cfg.SelectedDevicesMode {
	case config.SelectModeInclude:
		if len(o.cfg.SelectedDevices) > 0 && !slices.Contains(o.cfg.SelectedDevices, key) {
			o.debugf("skipping device not included", "device", key, "name", d.Name())
			return false
		}
	case config.SelectModeExclude:
		if slices.Contains(o.cfg.SelectedDevices, key) {
			o.debugf("skipping excluded device", "device", key, "name", d.Name())
			return false
		}
	}
	return true
}

// publishEntity publishes e's config and records it in the ledger.
func (o *Orchestrator) publishEntity(ctx context.Context, c *cycle, e homeassistant.Entity) error {
	payload, err := e.Payload()
	if err != nil {
		return err
	}
	topic := e.Topic(o.ha.DiscoveryPrefix)
	if err := o.publisher.Publish(topic, payload, o.ha.Retain); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	c.result.Entities++

	if o.ledger != nil {
		if err := o.ledger.Upsert(ctx, entity.RecordFor(e, o.ha.DiscoveryPrefix, c.id)); err != nil {
			return fmt.Errorf("%w: %w", ErrLedger, err)
		}
	}
	o.debugf("published config", "topic", topic, "name", e.Name())
	return nil
}

// removeStale clears configs not refreshed by this cycle. An empty
// retained payload on a config topic makes Home Assistant drop the entity.
func (o *Orchestrator) removeStale(ctx context.Context, c *cycle) error {
	if o.ledger == nil || !o.cfg.RemoveStale {
		return nil
	}

	stale, err := o.ledger.ListStale(ctx, c.id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	for _, rec := range stale {
		if err := o.publisher.Publish(rec.ConfigTopic, nil, true); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPublish, rec.ConfigTopic, err)
		}
		if err := o.ledger.Delete(ctx, rec.ConfigTopic); err != nil {
			return fmt.Errorf("%w: %w", ErrLedger, err)
		}
		c.result.Removed++
		o.logInfo("removed stale entity", "topic", rec.ConfigTopic, "device", rec.DeviceKey)
	}
	return nil
}

// query sends a get_report style request to a service and waits for the
// event of type want on its event topic. A timeout returns ok == false.
func (o *Orchestrator) query(ctx context.Context, c *cycle, svc fimp.Service, msg fimp.Message, want string) (correlator.Message, bool, error) {
	resp, ok, err := o.publisher.SendAndWait(ctx, correlator.Request{
		RequestTopic:  svc.CommandTopic(),
		ResponseTopic: svc.EventTopic(),
		Payload:       msg,
		Match:         correlator.MatchType(want),
		Timeout:       o.cfg.RequestTimeoutDuration(),
	})
	if err != nil {
		return correlator.Message{}, false, fmt.Errorf("querying %s on %s: %w", msg.Type, svc.Addr, err)
	}
	if !ok {
		c.result.Unanswered++
		o.logWarn("no response to parameter query", "type", msg.Type, "service", svc.Addr)
	}
	return resp, ok, nil
}

func (o *Orchestrator) publishJSON(topic string, v any, retained bool) error {
	if err := o.publisher.PublishJSON(topic, v, retained); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// debugf logs at Debug when discovery.debug is on.
func (o *Orchestrator) debugf(msg string, args ...any) {
	if o.cfg.Debug {
		o.logDebug(msg, args...)
	}
}

func (o *Orchestrator) logDebug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) logInfo(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) logWarn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}

func (o *Orchestrator) logError(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Error(msg, args...)
	}
}
