package discovery

import (
	"context"
	"fmt"

	"github.com/nerrad567/fimp2ha/internal/fimp"
	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// Services turned into entities one by one.
var supportedSensors = map[string]bool{
	"battery":         true,
	"sensor_lumin":    true,
	"sensor_presence": true,
	"sensor_temp":     true,
	"sensor_humid":    true,
	"sensor_contact":  true,
}

// deviceCtx is a device being turned into entities.
type deviceCtx struct {
	fimp.Device
	room string
}

// identifier returns the object id prefix for one service of the device.
func (d deviceCtx) identifier(service string) string {
	return fmt.Sprintf("fh_%d_%s_%s_%s", d.ID, d.Adapter(), d.FIMP.Address, service)
}

// info returns the Home Assistant device block shared by all its entities.
func (d deviceCtx) info() homeassistant.DeviceInfo {
	return homeassistant.DeviceInfo{
		Identifiers:     d.Key(),
		Name:            d.Name(),
		SuggestedArea:   d.room,
		HardwareVersion: d.Model,
		Model:           d.DisplayModel(),
		SoftwareVersion: d.Key(),
	}
}

// base returns the config keys every entity of service starts from.
func (d deviceCtx) base(service string) homeassistant.Config {
	return homeassistant.Config{
		"name":        nil,
		"device":      d.info(),
		"state_topic": d.Services[service].EventTopic(),
	}
}

// entity builds an entity for service with object id suffix appended to
// the service identifier.
func (d deviceCtx) entity(kind, service, suffix string, config homeassistant.Config) homeassistant.Entity {
	e := homeassistant.NewEntity(kind, d.identifier(service)+suffix, d.base(service), config)
	e.DeviceKey = d.Key()
	e.Service = service
	return e
}

// device builds and publishes every entity of d.
func (o *Orchestrator) device(ctx context.Context, c *cycle, catalog *fimp.Catalog, d fimp.Device) error {
	room, ok := catalog.RoomAlias(*d.Room)
	if !ok {
		o.logWarn("device references unknown room", "device", d.Key(), "room", *d.Room)
	}
	dev := deviceCtx{Device: d, room: room}

	o.debugf("creating device",
		"device", dev.Key(),
		"name", dev.Name(),
		"functionality", dev.Functionality)

	var entities []homeassistant.Entity
	reported := make(map[string]bool)

	for _, name := range dev.ServiceNames() {
		svc := dev.Services[name]

		var built []homeassistant.Entity
		switch {
		case supportedSensors[name]:
			built = sensorEntities(dev, name, svc)
		case name == "meter_elec":
			built = meterEntities(dev, name, svc)
		case name == "door_lock":
			built = []homeassistant.Entity{lockEntity(dev, name, svc)}
		case dev.Functionality == "appliance" || dev.Type.Type == "boiler":
			if name == "out_bin_switch" {
				built = []homeassistant.Entity{switchEntity(dev, name, svc)}
			}
		case name == "thermostat":
			built = []homeassistant.Entity{thermostatEntity(dev, name, svc)}
		}

		if len(built) > 0 {
			o.debugf("service", "device", dev.Key(), "service", name, "entities", len(built))
			entities = append(entities, built...)
			c.addReports(reported, name, svc)
			c.statuses = append(c.statuses, initialStatuses(name, svc, dev.Param)...)
		}
	}

	if dev.HasService("chargepoint") {
		o.debugf("service", "device", dev.Key(), "service", "chargepoint")
		built, ok, err := o.chargepoint(ctx, c, dev)
		if err != nil {
			return err
		}
		entities = append(entities, built...)
		if ok {
			c.addReports(reported, "chargepoint", dev.Services["chargepoint"])
		}
	}

	if dev.Functionality == "lighting" {
		o.debugf("service", "device", dev.Key(), "service", "lighting")
		if e, ok := lightEntity(dev); ok {
			entities = append(entities, e)
			for _, name := range lightServices {
				if svc, ok := dev.Services[name]; ok {
					c.addReports(reported, name, svc)
				}
			}
		} else {
			o.logWarn("lighting device has no out_bin_switch service", "device", dev.Key())
		}
	}

	for _, e := range entities {
		if err := o.publishEntity(ctx, c, e); err != nil {
			return err
		}
	}
	return nil
}

// addReports queues the get_report requests of a service once per device.
func (c *cycle) addReports(seen map[string]bool, name string, svc fimp.Service) {
	if seen[name] {
		return
	}
	seen[name] = true
	for _, msgType := range svc.ReportRequests() {
		c.reports = append(c.reports, report{
			topic:   svc.CommandTopic(),
			service: name,
			msgType: msgType,
		})
	}
}
