package discovery

import (
	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// sensorDef describes how one numeric sensor service is presented.
type sensorDef struct {
	name        string
	deviceClass string
	unit        string
	report      string
	category    string
}

var numericSensors = map[string]sensorDef{
	"battery": {
		name:        "Battery",
		deviceClass: "battery",
		unit:        "%",
		report:      "evt.lvl.report",
		category:    "diagnostic",
	},
	"sensor_temp": {
		name:        "Temperature",
		deviceClass: "temperature",
		unit:        "°C",
		report:      "evt.sensor.report",
	},
	"sensor_humid": {
		name:        "Humidity",
		deviceClass: "humidity",
		unit:        "%",
		report:      "evt.sensor.report",
	},
	"sensor_lumin": {
		name:        "Illuminance",
		deviceClass: "illuminance",
		unit:        "lx",
		report:      "evt.sensor.report",
	},
}

// binarySensors maps presence and contact services to binary sensors.
var binarySensors = map[string]sensorDef{
	"sensor_presence": {
		name:        "Motion",
		deviceClass: "motion",
		report:      "evt.presence.report",
	},
	"sensor_contact": {
		name:        "Door",
		deviceClass: "door",
		report:      "evt.open.report",
	},
}

// temperatureUnits maps FIMP sup_units to Home Assistant units.
var temperatureUnits = map[string]string{
	"C": "°C",
	"F": "°F",
}

func sensorEntities(d deviceCtx, name string, svc fimp.Service) []homeassistant.Entity {
	if def, ok := binarySensors[name]; ok {
		return []homeassistant.Entity{d.entity(homeassistant.KindBinarySensor, name, "", homeassistant.Config{
			"name":           def.name,
			"device_class":   def.deviceClass,
			"value_template": homeassistant.OnOffTemplate(def.report),
			"payload_on":     "ON",
			"payload_off":    "OFF",
		})}
	}

	def, ok := numericSensors[name]
	if !ok {
		return nil
	}
	unit := def.unit
	if name == "sensor_temp" {
		if units := svc.StringsProp("sup_units"); len(units) > 0 {
			if u, ok := temperatureUnits[units[0]]; ok {
				unit = u
			}
		}
	}

	config := homeassistant.Config{
		"name":                def.name,
		"device_class":        def.deviceClass,
		"unit_of_measurement": unit,
		"state_class":         "measurement",
		"value_template":      homeassistant.ReportTemplate(def.report, "value_json.val"),
	}
	if def.category != "" {
		config["entity_category"] = def.category
	}
	return []homeassistant.Entity{d.entity(homeassistant.KindSensor, name, "", config)}
}

// meterEntities exposes power and energy readings of meter_elec. The hub
// reports both as evt.meter.report, told apart by props.unit.
func meterEntities(d deviceCtx, name string, svc fimp.Service) []homeassistant.Entity {
	units := svc.StringsProp("sup_units")
	if len(units) == 0 {
		units = []string{"W", "kWh"}
	}

	var out []homeassistant.Entity
	for _, unit := range units {
		switch unit {
		case "W":
			out = append(out, d.entity(homeassistant.KindSensor, name, "_power", homeassistant.Config{
				"name":                "Power",
				"device_class":        "power",
				"unit_of_measurement": "W",
				"state_class":         "measurement",
				"value_template": homeassistant.ConditionalReportTemplate(
					"evt.meter.report", "value_json.props.unit == 'W'", "value_json.val"),
			}))
		case "kWh":
			out = append(out, d.entity(homeassistant.KindSensor, name, "_energy", homeassistant.Config{
				"name":                "Energy",
				"device_class":        "energy",
				"unit_of_measurement": "kWh",
				"state_class":         "total_increasing",
				"value_template": homeassistant.ConditionalReportTemplate(
					"evt.meter.report", "value_json.props.unit == 'kWh'", "value_json.val"),
			}))
		}
	}
	return out
}
