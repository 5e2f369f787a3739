package discovery

import (
	"github.com/nerrad567/fimp2ha/internal/fimp"
)

// paramReport ties a vinculum device param to the report an entity reads,
// so the current value can be replayed once the configs are in place.
type paramReport struct {
	param     string
	report    string
	valueType string

	// unit goes into props.unit; meter entities filter on it.
	unit string

	// convert maps the param to the report value. ok false skips it.
	convert func(v any) (out any, ok bool)
}

var paramReports = map[string][]paramReport{
	"battery":      {{param: "batteryPercentage", report: "evt.lvl.report", valueType: fimp.ValueInt, convert: asInt}},
	"sensor_temp":  {{param: "temperature", report: "evt.sensor.report", valueType: fimp.ValueFloat, convert: asFloat}},
	"sensor_humid": {{param: "humidity", report: "evt.sensor.report", valueType: fimp.ValueFloat, convert: asFloat}},
	"sensor_lumin": {{param: "illuminance", report: "evt.sensor.report", valueType: fimp.ValueFloat, convert: asFloat}},
	"sensor_presence": {
		{param: "presence", report: "evt.presence.report", valueType: fimp.ValueBool, convert: asBool},
	},
	"sensor_contact": {
		{param: "openState", report: "evt.open.report", valueType: fimp.ValueBool, convert: stateIs("open")},
	},
	"meter_elec": {
		{param: "power", report: "evt.meter.report", valueType: fimp.ValueFloat, unit: "W", convert: asFloat},
		{param: "energy", report: "evt.meter.report", valueType: fimp.ValueFloat, unit: "kWh", convert: asFloat},
	},
	"door_lock": {
		{param: "lock", report: "evt.lock.report", valueType: fimp.ValueBoolMap, convert: lockState},
	},
	"out_bin_switch": {
		{param: "power", report: "evt.binary.report", valueType: fimp.ValueBool, convert: onOff},
	},
}

// initialStatuses returns the reports replaying the catalog values of one
// service. Services or params without a known value produce nothing.
func initialStatuses(name string, svc fimp.Service, param map[string]any) []status {
	var out []status
	for _, pr := range paramReports[name] {
		raw, ok := param[pr.param]
		if !ok || raw == nil {
			continue
		}
		val, ok := pr.convert(raw)
		if !ok {
			continue
		}
		msg := fimp.NewCommand(name, pr.report, pr.valueType, val)
		if pr.unit != "" {
			msg.Props = map[string]any{"unit": pr.unit}
		}
		out = append(out, status{topic: svc.EventTopic(), payload: msg})
	}
	return out
}

func asFloat(v any) (any, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (any, bool) {
	f, ok := v.(float64)
	return int(f), ok
}

func asBool(v any) (any, bool) {
	b, ok := v.(bool)
	return b, ok
}

func stateIs(want string) func(any) (any, bool) {
	return func(v any) (any, bool) {
		s, ok := v.(string)
		return s == want, ok
	}
}

// onOff accepts a bool or the "on"/"off" strings vinculum uses for appliances.
func onOff(v any) (any, bool) {
	switch p := v.(type) {
	case bool:
		return p, true
	case string:
		switch p {
		case "on":
			return true, true
		case "off":
			return false, true
		}
	}
	return nil, false
}

// lockState turns "secured"/"unsecured" into the bool_map the lock template reads.
func lockState(v any) (any, bool) {
	s, ok := v.(string)
	if !ok || (s != "secured" && s != "unsecured") {
		return nil, false
	}
	return map[string]bool{"is_secured": s == "secured"}, true
}
