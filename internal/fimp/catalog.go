package fimp

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/nerrad567/fimp2ha/internal/correlator"
)

// Catalog components requested from vinculum.
var catalogComponents = []string{"device", "room", "shortcut", "house"}

// CatalogRequest builds the vinculum request for devices, rooms, shortcuts
// and the house mode. The hub answers on ResponseTopic.
func CatalogRequest() Message {
	msg := NewCommand(AppVinculum, "cmd.pd7.request", ValueObject, map[string]any{
		"cmd":       "get",
		"component": nil,
		"param": map[string]any{
			"components": catalogComponents,
		},
	})
	msg.ResponseTo = ResponseTopic()
	return msg
}

// IsCatalogResponse recognises the vinculum answer to CatalogRequest.
func IsCatalogResponse(m correlator.Message) bool {
	_, ok := m.Data.Lookup("val", "param", "device")
	return ok
}

// Catalog is the hub's view of the house.
type Catalog struct {
	Devices   []Device
	Rooms     []Room
	Shortcuts []Shortcut
	Mode      string
}

// Room is a vinculum room.
type Room struct {
	ID    int    `json:"id"`
	Alias string `json:"alias"`
}

// Shortcut is a vinculum shortcut (scene).
type Shortcut struct {
	ID     int    `json:"id"`
	Client Client `json:"client"`
}

// Client holds the user-facing name of a vinculum object.
type Client struct {
	Name string `json:"name"`
}

// DeviceType is the hub's classification of a device.
type DeviceType struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// Adapter locates a device on its radio adapter.
type Adapter struct {
	Adapter string `json:"adapter"`
	Address string `json:"address"`
}

// Service is one capability group of a device.
type Service struct {
	Addr       string         `json:"addr"`
	Interfaces []string       `json:"intf"`
	Props      map[string]any `json:"props"`
}

// Device is a vinculum device.
type Device struct {
	ID            int                `json:"id"`
	Room          *int               `json:"room"`
	Model         string             `json:"model"`
	ModelAlias    string             `json:"modelAlias"`
	Functionality string             `json:"functionality"`
	Type          DeviceType         `json:"type"`
	Client        Client             `json:"client"`
	FIMP          Adapter            `json:"fimp"`
	Param         map[string]any     `json:"param"`
	Services      map[string]Service `json:"services"`
}

type catalogResponse struct {
	Val struct {
		Param struct {
			Device   []Device   `json:"device"`
			Room     []Room     `json:"room"`
			Shortcut []Shortcut `json:"shortcut"`
			House    struct {
				Mode string `json:"mode"`
			} `json:"house"`
		} `json:"param"`
	} `json:"val"`
}

// ParseCatalog decodes the vinculum catalog response.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var resp catalogResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	p := resp.Val.Param
	if p.Device == nil {
		return nil, fmt.Errorf("%w: no device list", ErrInvalidCatalog)
	}

	return &Catalog{
		Devices:   p.Device,
		Rooms:     p.Room,
		Shortcuts: p.Shortcut,
		Mode:      p.House.Mode,
	}, nil
}

// RoomAlias returns the alias of room id.
func (c *Catalog) RoomAlias(id int) (string, bool) {
	for _, r := range c.Rooms {
		if r.ID == id {
			return r.Alias, true
		}
	}
	return "", false
}

// AdapterShortName maps the hub adapter name to the short form used in ids.
func AdapterShortName(adapter string) string {
	switch adapter {
	case "zwave-ad":
		return "zw"
	case "zigbee":
		return "zb"
	default:
		return adapter
	}
}

// Adapter returns the short adapter name (zw, zb, ...).
func (d Device) Adapter() string {
	return AdapterShortName(d.FIMP.Adapter)
}

// Key returns "<adapter>_<address>", unique across adapters.
func (d Device) Key() string {
	return d.Adapter() + "_" + d.FIMP.Address
}

// Name returns the user-facing device name.
func (d Device) Name() string {
	return d.Client.Name
}

// DisplayModel returns the model alias, falling back to the model.
func (d Device) DisplayModel() string {
	if d.ModelAlias != "" {
		return d.ModelAlias
	}
	return d.Model
}

// HasService reports whether the device exposes service name.
func (d Device) HasService(name string) bool {
	_, ok := d.Services[name]
	return ok
}

// ServiceNames returns the device's service names in sorted order.
func (d Device) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether the service lists interface intf.
func (s Service) Supports(intf string) bool {
	return slices.Contains(s.Interfaces, intf)
}

// ReportRequests returns the service's *.get_report interfaces.
func (s Service) ReportRequests() []string {
	var out []string
	for _, intf := range s.Interfaces {
		if strings.HasSuffix(intf, ".get_report") {
			out = append(out, intf)
		}
	}
	return out
}

// StringsProp returns a string list property such as sup_units.
func (s Service) StringsProp(key string) []string {
	raw, ok := s.Props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// EventTopic returns the service's event topic.
func (s Service) EventTopic() string {
	return EventTopic(s.Addr)
}

// CommandTopic returns the service's command topic.
func (s Service) CommandTopic() string {
	return CommandTopic(s.Addr)
}
