package discovery

import (
	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// lockEntity exposes a door_lock service.
func lockEntity(d deviceCtx, name string, svc fimp.Service) homeassistant.Entity {
	return d.entity(homeassistant.KindLock, name, "", homeassistant.Config{
		"name":           "Lock",
		"command_topic":  svc.CommandTopic(),
		"value_template": homeassistant.ReportTemplate("evt.lock.report", "'LOCKED' if value_json.val.is_secured else 'UNLOCKED'"),
		"state_locked":   "LOCKED",
		"state_unlocked": "UNLOCKED",
		"payload_lock":   staticCommand(name, "cmd.lock.set", fimp.ValueBool, true),
		"payload_unlock": staticCommand(name, "cmd.lock.set", fimp.ValueBool, false),
	})
}

// switchEntity exposes the out_bin_switch of an appliance or boiler.
func switchEntity(d deviceCtx, name string, svc fimp.Service) homeassistant.Entity {
	return d.entity(homeassistant.KindSwitch, name, "", homeassistant.Config{
		"command_topic":  svc.CommandTopic(),
		"value_template": homeassistant.OnOffTemplate("evt.binary.report"),
		"state_on":       "ON",
		"state_off":      "OFF",
		"payload_on":     staticCommand(name, "cmd.binary.set", fimp.ValueBool, true),
		"payload_off":    staticCommand(name, "cmd.binary.set", fimp.ValueBool, false),
	})
}
