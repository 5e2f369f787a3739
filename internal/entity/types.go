package entity

import (
	"time"

	"github.com/nerrad567/fimp2ha/internal/homeassistant"
)

// Record is one published discovery config.
type Record struct {
	ConfigTopic      string    `json:"config_topic"`
	UniqueID         string    `json:"unique_id"`
	Component        string    `json:"component"`
	DeviceKey        string    `json:"device_key"`
	Service          string    `json:"service,omitempty"`
	Name             string    `json:"name,omitempty"`
	FirstPublishedAt time.Time `json:"first_published_at"`
	LastPublishedAt  time.Time `json:"last_published_at"`
	LastCycle        string    `json:"last_cycle"`
}

// RecordFor describes e as published under prefix during cycle.
func RecordFor(e homeassistant.Entity, prefix, cycle string) Record {
	return Record{
		ConfigTopic: e.Topic(prefix),
		UniqueID:    e.ObjectID,
		Component:   e.Kind,
		DeviceKey:   e.DeviceKey,
		Service:     e.Service,
		Name:        e.Name(),
		LastCycle:   cycle,
	}
}
