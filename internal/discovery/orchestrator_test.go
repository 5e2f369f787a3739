package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/fimp2ha/internal/correlator"
	"github.com/nerrad567/fimp2ha/internal/entity"
	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

// published is one message seen by fakePublisher.
type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakePublisher answers the catalog request from the fixture and the
// chargepoint max current query with maxCurrent (no answer when nil).
type fakePublisher struct {
	mu         sync.Mutex
	catalog    []byte
	maxCurrent any
	publishErr error
	requests   []correlator.Request
	messages   []published
}

func newFakePublisher(t *testing.T) *fakePublisher {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "fimp", "testdata", "catalog.json"))
	if err != nil {
		t.Fatalf("reading catalog fixture: %v", err)
	}
	return &fakePublisher{catalog: raw, maxCurrent: 32}
}

func (f *fakePublisher) SendAndWait(_ context.Context, req correlator.Request) (correlator.Message, bool, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	var msg correlator.Message
	switch {
	case req.RequestTopic == fimp.VinculumCommandTopic():
		if f.catalog == nil {
			return correlator.Message{}, false, nil
		}
		msg = correlator.Decode(req.ResponseTopic, f.catalog)
	case strings.Contains(req.RequestTopic, "sv:chargepoint"):
		if f.maxCurrent == nil {
			return correlator.Message{}, false, nil
		}
		raw, _ := json.Marshal(map[string]any{"type": "evt.max_current.report", "val": f.maxCurrent}) //nolint:errcheck // literal
		msg = correlator.Decode(req.ResponseTopic, raw)
	default:
		return correlator.Message{}, false, nil
	}

	if !req.Match(msg) {
		return correlator.Message{}, false, nil
	}
	return msg, true, nil
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (f *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.Publish(topic, raw, retained)
}

func (f *fakePublisher) configTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		if strings.HasPrefix(m.topic, "homeassistant/") && len(m.payload) > 0 {
			out = append(out, m.topic)
		}
	}
	return out
}

func (f *fakePublisher) config(t *testing.T, topic string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.topic == topic {
			var body map[string]any
			if err := json.Unmarshal(m.payload, &body); err != nil {
				t.Fatalf("config %s is not JSON: %v", topic, err)
			}
			return body
		}
	}
	t.Fatalf("no config published on %s", topic)
	return nil
}

func (f *fakePublisher) indexOf(pred func(published) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.IndexFunc(f.messages, pred)
}

// memLedger is an in-memory Ledger.
type memLedger struct {
	records map[string]entity.Record
}

func newMemLedger(seed ...entity.Record) *memLedger {
	l := &memLedger{records: make(map[string]entity.Record)}
	for _, r := range seed {
		l.records[r.ConfigTopic] = r
	}
	return l
}

func (l *memLedger) Upsert(_ context.Context, rec entity.Record) error {
	l.records[rec.ConfigTopic] = rec
	return nil
}

func (l *memLedger) ListStale(_ context.Context, cycle string) ([]entity.Record, error) {
	var out []entity.Record
	for _, r := range l.records {
		if r.LastCycle != cycle {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) Delete(_ context.Context, topic string) error {
	delete(l.records, topic)
	return nil
}

type recordingObserver struct {
	results []*Result
	errs    []error
}

func (r *recordingObserver) ObserveCycle(res *Result, err error) {
	r.results = append(r.results, res)
	r.errs = append(r.errs, err)
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		SelectedDevicesMode: config.SelectModeDefault,
		CatalogTimeout:      1,
		RequestTimeout:      1,
		StatusDelay:         2,
		RemoveStale:         true,
	}
}

func newTestOrchestrator(t *testing.T, pub Publisher, ledger Ledger, cfg config.DiscoveryConfig) (*Orchestrator, *[]time.Duration) {
	t.Helper()
	o, err := New(Options{
		Publisher:     pub,
		Ledger:        ledger,
		Discovery:     cfg,
		HomeAssistant: config.HomeAssistantConfig{DiscoveryPrefix: "homeassistant"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var slept []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return o, &slept
}

func TestNewRequiresPublisher(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrPublisherRequired) {
		t.Errorf("New() error = %v, want ErrPublisherRequired", err)
	}
}

func TestRunFullCycle(t *testing.T) {
	pub := newFakePublisher(t)
	ledger := newMemLedger()
	obs := &recordingObserver{}
	o, slept := newTestOrchestrator(t, pub, ledger, testDiscoveryConfig())
	o.observer = obs

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Devices != 3 || res.Skipped != 1 {
		t.Errorf("Devices = %d, Skipped = %d, want 3 and 1", res.Devices, res.Skipped)
	}
	if res.Entities != 13 {
		t.Errorf("Entities = %d, want 13; topics: %v", res.Entities, pub.configTopics())
	}
	if res.Reports != 9 {
		t.Errorf("Reports = %d, want 9", res.Reports)
	}
	if res.Statuses != 1 || res.Removed != 0 || res.Unanswered != 0 {
		t.Errorf("Statuses = %d, Removed = %d, Unanswered = %d", res.Statuses, res.Removed, res.Unanswered)
	}
	if res.CycleID == "" {
		t.Error("CycleID is empty")
	}
	if len(ledger.records) != 13 {
		t.Errorf("ledger has %d records, want 13", len(ledger.records))
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Errorf("status delay = %v, want one 2s wait", *slept)
	}
	if len(obs.results) != 1 || obs.errs[0] != nil {
		t.Errorf("observer saw %d cycles, errs %v", len(obs.results), obs.errs)
	}

	wantTopics := []string{
		"homeassistant/sensor/fh_3_zw_3_chargepoint_max_current/config",
		"homeassistant/lock/fh_3_zw_3_chargepoint_cable_lock/config",
		"homeassistant/sensor/fh_3_zw_3_chargepoint_state/config",
		"homeassistant/number/fh_3_zw_3_chargepoint_current/config",
		"homeassistant/switch/fh_3_zw_3_chargepoint_charging/config",
		"homeassistant/sensor/fh_3_zw_3_chargepoint_min_current/config",
		"homeassistant/sensor/fh_12_zw_12_battery/config",
		"homeassistant/binary_sensor/fh_12_zw_12_sensor_presence/config",
		"homeassistant/sensor/fh_12_zw_12_sensor_temp/config",
		"homeassistant/light/fh_20_zb_7_out_lvl_switch/config",
		"homeassistant/select/fh_mode/config",
		"homeassistant/button/fh_shortcut_1/config",
		"homeassistant/button/fh_shortcut_2/config",
	}
	if got := pub.configTopics(); !slices.Equal(got, wantTopics) {
		t.Errorf("config topics =\n%v\nwant\n%v", got, wantTopics)
	}

	// The unassigned device never shows up.
	for _, topic := range pub.configTopics() {
		if strings.Contains(topic, "fh_30_") {
			t.Errorf("device without room published %s", topic)
		}
	}
}

func TestRunOrdering(t *testing.T) {
	pub := newFakePublisher(t)
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lastDeviceConfig := pub.indexOf(func(m published) bool {
		return m.topic == "homeassistant/light/fh_20_zb_7_out_lvl_switch/config"
	})
	firstReport := pub.indexOf(func(m published) bool {
		return strings.HasPrefix(m.topic, "pt:j1/mt:cmd/rt:dev/")
	})
	modeConfig := pub.indexOf(func(m published) bool {
		return m.topic == "homeassistant/select/fh_mode/config"
	})
	modeStatus := pub.indexOf(func(m published) bool {
		return m.topic == fimp.VinculumEventTopic()
	})

	if lastDeviceConfig < 0 || firstReport < 0 || modeConfig < 0 || modeStatus < 0 {
		t.Fatalf("missing messages: config=%d report=%d mode=%d status=%d",
			lastDeviceConfig, firstReport, modeConfig, modeStatus)
	}
	if !(lastDeviceConfig < firstReport && firstReport < modeConfig && modeConfig < modeStatus) {
		t.Errorf("unexpected order: config=%d report=%d mode=%d status=%d",
			lastDeviceConfig, firstReport, modeConfig, modeStatus)
	}
}

func TestRunCatalogRequest(t *testing.T) {
	pub := newFakePublisher(t)
	cfg := testDiscoveryConfig()
	cfg.CatalogTimeout = 7
	o, _ := newTestOrchestrator(t, pub, nil, cfg)

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	req := pub.requests[0]
	if req.RequestTopic != "pt:j1/mt:cmd/rt:app/rn:vinculum/ad:1" {
		t.Errorf("RequestTopic = %q", req.RequestTopic)
	}
	if req.ResponseTopic != "pt:j1/mt:rsp/rt:app/rn:homeassistant/ad:flow1" {
		t.Errorf("ResponseTopic = %q", req.ResponseTopic)
	}
	if req.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", req.Timeout)
	}
	msg, ok := req.Payload.(fimp.Message)
	if !ok || msg.Type != "cmd.pd7.request" || msg.ResponseTo != req.ResponseTopic {
		t.Errorf("Payload = %+v", req.Payload)
	}
}

func TestRunNoCatalog(t *testing.T) {
	pub := newFakePublisher(t)
	pub.catalog = nil
	obs := &recordingObserver{}
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())
	o.observer = obs

	res, err := o.Run(context.Background())
	if !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("Run() error = %v, want ErrNoCatalog", err)
	}
	if res == nil || res.Entities != 0 {
		t.Errorf("Result = %+v", res)
	}
	if len(pub.messages) != 0 {
		t.Errorf("published %d messages without a catalog", len(pub.messages))
	}
	if len(obs.errs) != 1 || !errors.Is(obs.errs[0], ErrNoCatalog) {
		t.Errorf("observer errs = %v", obs.errs)
	}
}

func TestRunMaxCurrentUnanswered(t *testing.T) {
	pub := newFakePublisher(t)
	pub.maxCurrent = nil
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for an unanswered query", err)
	}
	if res.Unanswered != 1 {
		t.Errorf("Unanswered = %d, want 1", res.Unanswered)
	}
	// Only the max current sensor survives for the chargepoint.
	if res.Entities != 8 {
		t.Errorf("Entities = %d, want 8", res.Entities)
	}
	if res.Reports != 6 {
		t.Errorf("Reports = %d, want 6 (no chargepoint reports)", res.Reports)
	}
	for _, topic := range pub.configTopics() {
		if strings.Contains(topic, "chargepoint_current") || strings.Contains(topic, "chargepoint_charging") {
			t.Errorf("dependent entity published without max current: %s", topic)
		}
	}
}

func TestRunMaxCurrentNotInteger(t *testing.T) {
	pub := newFakePublisher(t)
	pub.maxCurrent = "thirty-two"
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Entities != 8 {
		t.Errorf("Entities = %d, want 8", res.Entities)
	}
}

func TestRunSelectedDevices(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		devices     []string
		wantDevices int
		wantSkipped int
	}{
		{name: "default ignores list", mode: config.SelectModeDefault, devices: []string{"zw_12"}, wantDevices: 3, wantSkipped: 1},
		{name: "include one", mode: config.SelectModeInclude, devices: []string{"zw_12"}, wantDevices: 1, wantSkipped: 3},
		{name: "include empty list keeps all", mode: config.SelectModeInclude, devices: nil, wantDevices: 3, wantSkipped: 1},
		{name: "exclude one", mode: config.SelectModeExclude, devices: []string{"zb_7"}, wantDevices: 2, wantSkipped: 2},
		{name: "exclude unassigned is still skipped once", mode: config.SelectModeExclude, devices: []string{"zw_30"}, wantDevices: 3, wantSkipped: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := newFakePublisher(t)
			cfg := testDiscoveryConfig()
			cfg.SelectedDevicesMode = tt.mode
			cfg.SelectedDevices = tt.devices
			o, _ := newTestOrchestrator(t, pub, nil, cfg)

			res, err := o.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Devices != tt.wantDevices || res.Skipped != tt.wantSkipped {
				t.Errorf("Devices = %d, Skipped = %d, want %d and %d",
					res.Devices, res.Skipped, tt.wantDevices, tt.wantSkipped)
			}
		})
	}
}

func TestRunRemovesStaleEntities(t *testing.T) {
	pub := newFakePublisher(t)
	gone := entity.Record{
		ConfigTopic: "homeassistant/sensor/fh_99_zw_99_sensor_temp/config",
		DeviceKey:   "zw_99",
		LastCycle:   "previous",
	}
	ledger := newMemLedger(gone)
	o, _ := newTestOrchestrator(t, pub, ledger, testDiscoveryConfig())

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1", res.Removed)
	}
	if _, ok := ledger.records[gone.ConfigTopic]; ok {
		t.Error("stale record still in ledger")
	}

	i := pub.indexOf(func(m published) bool { return m.topic == gone.ConfigTopic })
	if i < 0 {
		t.Fatal("no removal published for stale entity")
	}
	if m := pub.messages[i]; len(m.payload) != 0 || !m.retained {
		t.Errorf("removal = %+v, want empty retained payload", m)
	}
}

func TestRunKeepsStaleWhenDisabled(t *testing.T) {
	pub := newFakePublisher(t)
	gone := entity.Record{ConfigTopic: "homeassistant/sensor/old/config", LastCycle: "previous"}
	ledger := newMemLedger(gone)
	cfg := testDiscoveryConfig()
	cfg.RemoveStale = false
	o, _ := newTestOrchestrator(t, pub, ledger, cfg)

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Removed != 0 {
		t.Errorf("Removed = %d, want 0", res.Removed)
	}
	if _, ok := ledger.records[gone.ConfigTopic]; !ok {
		t.Error("stale record deleted with remove_stale off")
	}
}

func TestRunPublishFailure(t *testing.T) {
	pub := newFakePublisher(t)
	pub.publishErr = errors.New("not connected")
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())

	_, err := o.Run(context.Background())
	if !errors.Is(err, ErrPublish) {
		t.Errorf("Run() error = %v, want ErrPublish", err)
	}
}

func TestRunCancelled(t *testing.T) {
	pub := newFakePublisher(t)
	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())
	o.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Run(ctx); err == nil {
		t.Error("Run() with cancelled context should fail")
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero delay error = %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("short delay error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled delay error = %v", err)
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	m := MultiObserver{a, nil, b}

	m.ObserveCycle(&Result{CycleID: "c1"}, ErrNoCatalog)

	for i, r := range []*recordingObserver{a, b} {
		if len(r.results) != 1 || r.results[0].CycleID != "c1" || !errors.Is(r.errs[0], ErrNoCatalog) {
			t.Errorf("observer %d saw %+v / %v", i, r.results, r.errs)
		}
	}
}
