package discovery

import (
	"context"
	"fmt"

	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// minChargeCurrent is the lowest current an EV charger will offer, in amps.
const minChargeCurrent = 6

const chargingState = `{% if value_json.type == 'evt.state.report' %}` +
	`{{ 'ON' if value_json.val == 'charging' else 'OFF' }}` +
	`{% else %}{{ this.state }}{% endif %}`

const chargingAvailability = `{% if value_json.type == 'evt.state.report' %}` +
	`{{ 'online' if value_json.val in ['charging', 'ready_to_charge'] else 'offline' }}` +
	`{% else %}undefined{% endif %}`

const chargingCommand = `{"type":"{{ 'cmd.charge.start' if value == 'ON' else 'cmd.charge.stop' }}",` +
	`"serv":"chargepoint","val_t":"null","val":null,"props":{},"tags":[],"src":"homeassistant"}`

// chargepoint builds the chargepoint entities. The charge current number
// needs the charger's max current, so the hub is asked for it first. When
// it does not answer only the max current sensor is created and ok is false.
func (o *Orchestrator) chargepoint(ctx context.Context, c *cycle, d deviceCtx) (entities []homeassistant.Entity, ok bool, err error) {
	const name = "chargepoint"
	svc := d.Services[name]

	if svc.Supports("evt.max_current.report") {
		entities = append(entities, d.entity(homeassistant.KindSensor, name, "_max_current", homeassistant.Config{
			"name":                "Max current",
			"device_class":        "current",
			"unit_of_measurement": "A",
			"value_template":      homeassistant.ReportTemplate("evt.max_current.report", "value_json.val"),
		}))
	}

	resp, answered, err := o.query(ctx, c, svc, fimp.NewGetReport(name, "cmd.max_current.get_report"), "evt.max_current.report")
	if err != nil {
		return nil, false, err
	}
	maxCurrent, valid := resp.Data.Int("val")
	if !answered || !valid {
		o.logWarn("could not determine chargepoint max current", "device", d.Key())
		return entities, false, nil
	}

	if svc.Supports("evt.cable_lock.report") {
		entities = append(entities, d.entity(homeassistant.KindLock, name, "_cable_lock", homeassistant.Config{
			"name":           "Cable lock",
			"command_topic":  svc.CommandTopic(),
			"value_template": homeassistant.ReportTemplate("evt.cable_lock.report", "'LOCKED' if value_json.val else 'UNLOCKED'"),
			"state_locked":   "LOCKED",
			"state_unlocked": "UNLOCKED",
			"payload_lock":   staticCommand(name, "cmd.cable_lock.set", fimp.ValueBool, true),
			"payload_unlock": staticCommand(name, "cmd.cable_lock.set", fimp.ValueBool, false),
		}))
	}

	if svc.Supports("evt.state.report") {
		entities = append(entities, d.entity(homeassistant.KindSensor, name, "_state", homeassistant.Config{
			"name":           "State",
			"value_template": homeassistant.ReportTemplate("evt.state.report", "value_json.val"),
		}))
	}

	if svc.Supports("evt.current_session.report") {
		entities = append(entities, d.entity(homeassistant.KindNumber, name, "_current", homeassistant.Config{
			"name":          "Charge current",
			"command_topic": svc.CommandTopic(),
			"value_template": homeassistant.ConditionalReportTemplate("evt.current_session.report",
				"value_json.props.offered_current != '0'", "value_json.props.offered_current | int"),
			"command_template": commandTemplate(name, "cmd.current_session.set_current", fimp.ValueInt,
				"{{ value | int }}"),
			"unit_of_measurement": "A",
			"min":                 0,
			"max":                 maxCurrent,
		}))
	}

	if svc.Supports("cmd.charge.start") && svc.Supports("cmd.charge.stop") {
		entities = append(entities, d.entity(homeassistant.KindSwitch, name, "_charging", homeassistant.Config{
			"name":           "Charging",
			"command_topic":  svc.CommandTopic(),
			"value_template": chargingState,
			"state_on":       "ON",
			"state_off":      "OFF",
			"availability": homeassistant.Availability{
				Topic:               svc.EventTopic(),
				ValueTemplate:       chargingAvailability,
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
			"command_template": chargingCommand,
		}))
	}

	entities = append(entities, d.entity(homeassistant.KindSensor, name, "_min_current", homeassistant.Config{
		"name":                "Min current",
		"device_class":        "current",
		"unit_of_measurement": "A",
		"value_template":      fmt.Sprintf("{{ %d }}", minChargeCurrent),
	}))

	return entities, true, nil
}
