package fimp

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies the bridge in the src field of every message it sends.
const Source = "homeassistant"

// Value types (val_t).
const (
	ValueNull    = "null"
	ValueBool    = "bool"
	ValueInt     = "int"
	ValueFloat   = "float"
	ValueString  = "string"
	ValueIntMap  = "int_map"
	ValueStrMap  = "str_map"
	ValueBoolMap = "bool_map"
	ValueObject  = "object"
)

// timeLayout is the FIMP ctime format.
const timeLayout = "2006-01-02T15:04:05.000-07:00"

// Message is the FIMP JSON envelope.
type Message struct {
	Type          string         `json:"type"`
	Service       string         `json:"serv"`
	ValueType     string         `json:"val_t"`
	Value         any            `json:"val"`
	Props         map[string]any `json:"props"`
	Tags          []string       `json:"tags"`
	Source        string         `json:"src"`
	Version       string         `json:"ver,omitempty"`
	UID           string         `json:"uid,omitempty"`
	CorrelationID string         `json:"corid,omitempty"`
	CreationTime  string         `json:"ctime,omitempty"`
	ResponseTo    string         `json:"resp_to,omitempty"`
}

// NewCommand builds a command from the bridge with a fresh uid.
func NewCommand(service, msgType, valueType string, value any) Message {
	return Message{
		Type:         msgType,
		Service:      service,
		ValueType:    valueType,
		Value:        value,
		Source:       Source,
		Version:      "1",
		UID:          uuid.NewString(),
		CreationTime: time.Now().Format(timeLayout),
	}
}

// NewGetReport builds a parameterless *.get_report request.
func NewGetReport(service, msgType string) Message {
	return NewCommand(service, msgType, ValueNull, nil)
}

// MessageType returns the FIMP type. Used for telemetry labels.
func (m Message) MessageType() string {
	return m.Type
}
