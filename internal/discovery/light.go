package discovery

import (
	"slices"

	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// lightServices are the services whose reports seed a light's state.
var lightServices = []string{"color_ctrl", "out_lvl_switch", "out_bin_switch"}

// lightEntity combines out_bin_switch with the optional out_lvl_switch and
// color_ctrl services of a lighting device into one light. The entity takes
// the identifier of the level service when there is one. Colour temperature
// is passed through in kelvin.
func lightEntity(d deviceCtx) (homeassistant.Entity, bool) {
	binary, ok := d.Services["out_bin_switch"]
	if !ok {
		return homeassistant.Entity{}, false
	}
	level, hasLevel := d.Services["out_lvl_switch"]
	color, hasColor := d.Services["color_ctrl"]

	main := "out_bin_switch"
	if hasLevel {
		main = "out_lvl_switch"
	}

	payloadOn := staticCommand("out_bin_switch", "cmd.binary.set", fimp.ValueBool, true)
	payloadOff := staticCommand("out_bin_switch", "cmd.binary.set", fimp.ValueBool, false)

	config := homeassistant.Config{
		"state_topic":          binary.EventTopic(),
		"command_topic":        binary.CommandTopic(),
		"state_value_template": "{% if value_json.val %}" + payloadOn + "{% else %}" + payloadOff + "{% endif %}",
		"payload_on":           payloadOn,
		"payload_off":          payloadOff,
	}

	if hasLevel {
		config["brightness_state_topic"] = level.EventTopic()
		config["brightness_command_topic"] = level.CommandTopic()
		config["brightness_scale"] = 100
		config["brightness_value_template"] = "{{ value_json.val | int }}"
		config["brightness_command_template"] = commandTemplate("out_lvl_switch", "cmd.lvl.set", fimp.ValueInt,
			"{{ value | int }}")
	}

	if hasColor && slices.Contains(color.StringsProp("sup_components"), "temp") {
		config["color_temp_kelvin"] = true
		config["color_temp_state_topic"] = color.EventTopic()
		config["color_temp_command_topic"] = color.CommandTopic()
		config["color_temp_value_template"] = homeassistant.ReportTemplate("evt.color.report", "value_json.val.temp | int")
		config["color_temp_command_template"] = commandTemplate("color_ctrl", "cmd.color.set", fimp.ValueIntMap,
			`{"temp": {{ value | int }}}`)
	}

	return d.entity(homeassistant.KindLight, main, "", config), true
}
