package discovery

import (
	"context"
	"fmt"

	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// hubKey groups the house mode and shortcuts under one device.
const hubKey = "futurehome_hub"

// houseModes are the vinculum house modes.
var houseModes = []string{"home", "away", "sleep", "vacation"}

func hubDevice() homeassistant.DeviceInfo {
	return homeassistant.DeviceInfo{
		Identifiers:  hubKey,
		Name:         "Futurehome",
		Manufacturer: "Futurehome",
		Model:        "Smarthub",
	}
}

func hubEntity(kind, objectID string, config homeassistant.Config) homeassistant.Entity {
	e := homeassistant.NewEntity(kind, objectID, homeassistant.Config{"device": hubDevice()}, config)
	e.DeviceKey = hubKey
	e.Service = fimp.AppVinculum
	return e
}

// modeNotify is the vinculum event announcing the house mode. The bridge
// publishes one after discovery so the select shows the current mode.
func modeNotify(mode string) fimp.Message {
	return fimp.NewCommand(fimp.AppVinculum, "evt.pd7.notify", fimp.ValueObject, map[string]any{
		"cmd":       "set",
		"component": "mode",
		"id":        mode,
	})
}

// house creates the mode select and one button per shortcut.
func (o *Orchestrator) house(ctx context.Context, c *cycle, catalog *fimp.Catalog) error {
	o.logInfo("creating mode select", "mode", catalog.Mode)

	mode := hubEntity(homeassistant.KindSelect, "fh_mode", homeassistant.Config{
		"name":          "Mode",
		"icon":          "mdi:home-switch",
		"options":       houseModes,
		"state_topic":   fimp.VinculumEventTopic(),
		"command_topic": fimp.VinculumCommandTopic(),
		"value_template": homeassistant.ConditionalReportTemplate("evt.pd7.notify",
			"value_json.val.component == 'mode'", "value_json.val.id"),
		"command_template": commandTemplate(fimp.AppVinculum, "cmd.pd7.request", fimp.ValueObject,
			`{"cmd":"set","component":"mode","id":"{{ value }}"}`),
	})
	if err := o.publishEntity(ctx, c, mode); err != nil {
		return err
	}
	if catalog.Mode != "" {
		c.statuses = append(c.statuses, status{
			topic:   fimp.VinculumEventTopic(),
			payload: modeNotify(catalog.Mode),
		})
	}

	o.logInfo("creating shortcut buttons", "count", len(catalog.Shortcuts))
	for _, sc := range catalog.Shortcuts {
		button := hubEntity(homeassistant.KindButton, fmt.Sprintf("fh_shortcut_%d", sc.ID), homeassistant.Config{
			"name":          sc.Client.Name,
			"icon":          "mdi:gesture-tap-button",
			"command_topic": fimp.VinculumCommandTopic(),
			"payload_press": staticCommand(fimp.AppVinculum, "cmd.pd7.request", fimp.ValueObject, map[string]any{
				"cmd":       "set",
				"component": "shortcut",
				"id":        sc.ID,
			}),
		})
		if err := o.publishEntity(ctx, c, button); err != nil {
			return err
		}
		o.debugf("created shortcut button", "id", sc.ID, "name", sc.Client.Name)
	}
	return nil
}
