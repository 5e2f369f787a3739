package discovery

import (
	"fmt"
	"slices"

	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// climateModes are the hvac modes Home Assistant accepts.
var climateModes = []string{"off", "heat", "cool", "auto", "dry", "fan_only", "heat_cool"}

// thermostatEntity exposes a thermostat as a climate entity. The setpoint
// type is the first sup_setpoints entry, heat when none is listed. When the
// device also has sensor_temp its reports feed the current temperature.
func thermostatEntity(d deviceCtx, name string, svc fimp.Service) homeassistant.Entity {
	var modes []string
	for _, m := range svc.StringsProp("sup_modes") {
		if slices.Contains(climateModes, m) {
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		modes = []string{"off", "heat"}
	}

	setpoint := "heat"
	if sp := svc.StringsProp("sup_setpoints"); len(sp) > 0 {
		setpoint = sp[0]
	}

	config := homeassistant.Config{
		"name":               nil,
		"modes":              modes,
		"mode_command_topic": svc.CommandTopic(),
		"mode_command_template": commandTemplate(name, "cmd.mode.set", fimp.ValueString,
			`"{{ value }}"`),
		"mode_state_topic":          svc.EventTopic(),
		"mode_state_template":       homeassistant.ReportTemplate("evt.mode.report", "value_json.val"),
		"temperature_command_topic": svc.CommandTopic(),
		"temperature_command_template": commandTemplate(name, "cmd.setpoint.set", fimp.ValueStrMap,
			fmt.Sprintf(`{"type":%q,"temp":"{{ value }}","unit":"C"}`, setpoint)),
		"temperature_state_topic": svc.EventTopic(),
		"temperature_state_template": homeassistant.ConditionalReportTemplate("evt.setpoint.report",
			fmt.Sprintf("value_json.val.type == '%s'", setpoint), "value_json.val.temp | float"),
		"temperature_unit": "C",
		"precision":        0.5,
	}

	if temp, ok := d.Services["sensor_temp"]; ok {
		config["current_temperature_topic"] = temp.EventTopic()
		config["current_temperature_template"] = homeassistant.ReportTemplate("evt.sensor.report", "value_json.val")
	}

	e := d.entity(homeassistant.KindClimate, name, "", config)
	// Climate entities have no single state topic.
	delete(e.Config, "state_topic")
	return e
}
