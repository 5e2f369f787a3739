package discovery

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/nerrad567/fimp2ha/internal/fimp"
)

func TestInitialStatuses(t *testing.T) {
	svc := fimp.Service{Addr: "/rt:dev/rn:zw/ad:1/sv:x/ad:12_0"}

	tests := []struct {
		name      string
		service   string
		param     map[string]any
		wantTypes []string
		wantVals  []any
		wantUnits []string
	}{
		{name: "temperature", service: "sensor_temp", param: map[string]any{"temperature": 21.5},
			wantTypes: []string{"evt.sensor.report"}, wantVals: []any{21.5}, wantUnits: []string{""}},
		{name: "battery as int", service: "battery", param: map[string]any{"batteryPercentage": 87.0},
			wantTypes: []string{"evt.lvl.report"}, wantVals: []any{87}, wantUnits: []string{""}},
		{name: "contact open", service: "sensor_contact", param: map[string]any{"openState": "open"},
			wantTypes: []string{"evt.open.report"}, wantVals: []any{true}, wantUnits: []string{""}},
		{name: "meter power and energy", service: "meter_elec", param: map[string]any{"power": 120.0, "energy": 3.2},
			wantTypes: []string{"evt.meter.report", "evt.meter.report"}, wantVals: []any{120.0, 3.2}, wantUnits: []string{"W", "kWh"}},
		{name: "lock secured", service: "door_lock", param: map[string]any{"lock": "secured"},
			wantTypes: []string{"evt.lock.report"}, wantVals: []any{map[string]bool{"is_secured": true}}, wantUnits: []string{""}},
		{name: "appliance string state", service: "out_bin_switch", param: map[string]any{"power": "off"},
			wantTypes: []string{"evt.binary.report"}, wantVals: []any{false}, wantUnits: []string{""}},
		{name: "no param", service: "sensor_temp", param: nil},
		{name: "wrong type skipped", service: "sensor_presence", param: map[string]any{"presence": "yes"}},
		{name: "unknown lock state", service: "door_lock", param: map[string]any{"lock": "jammed"}},
		{name: "unmapped service", service: "thermostat", param: map[string]any{"temperature": 20.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := initialStatuses(tt.service, svc, tt.param)
			if len(got) != len(tt.wantTypes) {
				t.Fatalf("got %d statuses, want %d", len(got), len(tt.wantTypes))
			}
			for i, s := range got {
				if s.topic != svc.EventTopic() {
					t.Errorf("topic = %q, want %q", s.topic, svc.EventTopic())
				}
				msg, ok := s.payload.(fimp.Message)
				if !ok {
					t.Fatalf("payload is %T, want fimp.Message", s.payload)
				}
				if msg.Type != tt.wantTypes[i] || msg.Service != tt.service {
					t.Errorf("message = %s/%s, want %s/%s", msg.Service, msg.Type, tt.service, tt.wantTypes[i])
				}
				if !reflect.DeepEqual(msg.Value, tt.wantVals[i]) {
					t.Errorf("val = %#v, want %#v", msg.Value, tt.wantVals[i])
				}
				unit, _ := msg.Props["unit"].(string)
				if unit != tt.wantUnits[i] {
					t.Errorf("props.unit = %q, want %q", unit, tt.wantUnits[i])
				}
			}
		})
	}
}

func TestRunPublishesParamStatuses(t *testing.T) {
	pub := newFakePublisher(t)

	var catalog map[string]any
	if err := json.Unmarshal(pub.catalog, &catalog); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	devices := catalog["val"].(map[string]any)["param"].(map[string]any)["device"].([]any)
	for _, d := range devices {
		dev := d.(map[string]any)
		if dev["id"] == 12.0 {
			dev["param"] = map[string]any{"temperature": 22.5, "batteryPercentage": 90, "presence": false}
		}
	}
	raw, err := json.Marshal(catalog)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	pub.catalog = raw

	o, _ := newTestOrchestrator(t, pub, nil, testDiscoveryConfig())
	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Three device values plus the house mode.
	if res.Statuses != 4 {
		t.Errorf("Statuses = %d, want 4", res.Statuses)
	}

	lastConfig := -1
	for i, m := range pub.messages {
		if strings.HasPrefix(m.topic, "homeassistant/") {
			lastConfig = i
		}
	}
	idx := pub.indexOf(func(m published) bool {
		var msg fimp.Message
		return json.Unmarshal(m.payload, &msg) == nil && msg.Type == "evt.sensor.report" && msg.Value == 22.5
	})
	if idx < 0 {
		t.Fatal("no temperature status published")
	}
	if idx < lastConfig {
		t.Errorf("temperature status at %d, before last config at %d", idx, lastConfig)
	}
	if pub.messages[idx].retained {
		t.Error("status published retained")
	}
}
