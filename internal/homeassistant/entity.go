package homeassistant

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"
)

// Component kinds used by the bridge.
const (
	KindSensor       = "sensor"
	KindBinarySensor = "binary_sensor"
	KindSwitch       = "switch"
	KindLock         = "lock"
	KindNumber       = "number"
	KindLight        = "light"
	KindClimate      = "climate"
	KindSelect       = "select"
	KindButton       = "button"
)

// DeviceInfo groups entities under one device in Home Assistant.
type DeviceInfo struct {
	Identifiers     string `json:"identifiers"`
	Name            string `json:"name"`
	SuggestedArea   string `json:"suggested_area,omitempty"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	HardwareVersion string `json:"hw_version,omitempty"`
	Model           string `json:"model,omitempty"`
	SoftwareVersion string `json:"sw_version,omitempty"`
}

// Availability is one entry of a component's availability list.
type Availability struct {
	Topic               string `json:"topic"`
	ValueTemplate       string `json:"value_template,omitempty"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// Config is a discovery config body.
type Config map[string]any

// Merge returns a copy of c with every key of other applied on top.
func (c Config) Merge(other Config) Config {
	out := make(Config, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}

// Entity is one discovery config to publish.
type Entity struct {
	Kind     string
	ObjectID string
	Config   Config

	// DeviceKey and Service tie the entity back to the hub device.
	DeviceKey string
	Service   string
}

// NewEntity creates an entity whose object_id and unique_id are objectID.
func NewEntity(kind, objectID string, base, config Config) Entity {
	body := base.Merge(config)
	body["object_id"] = objectID
	body["unique_id"] = objectID

	return Entity{
		Kind:     kind,
		ObjectID: objectID,
		Config:   body,
	}
}

// Topic returns the discovery config topic under prefix.
func (e Entity) Topic(prefix string) string {
	return mqtt.Topics{}.HomeAssistantConfig(prefix, e.Kind, e.ObjectID)
}

// Name returns the configured entity name, if any.
func (e Entity) Name() string {
	s, _ := e.Config["name"].(string)
	return s
}

// Payload encodes the config body.
func (e Entity) Payload() ([]byte, error) {
	raw, err := json.Marshal(e.Config)
	if err != nil {
		return nil, fmt.Errorf("encoding %s/%s: %w", e.Kind, e.ObjectID, err)
	}
	return raw, nil
}
