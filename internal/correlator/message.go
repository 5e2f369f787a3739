package correlator

import (
	"encoding/json"
	"math"
)

// Payload is a decoded JSON object. Predicates read it by key path
// (for example "type", "val" or "props", "offered_current").
type Payload map[string]any

// Message is one inbound broker message.
type Message struct {
	Topic string

	// Raw is the payload exactly as received.
	Raw []byte

	// Data is the decoded JSON object, or nil if Raw is not a JSON object.
	Data Payload
}

// Decode builds a Message from a raw broker payload. It never fails:
// anything that is not a JSON object leaves Data nil.
func Decode(topic string, raw []byte) Message {
	msg := Message{Topic: topic, Raw: raw}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err == nil && data != nil {
		msg.Data = data
	}

	return msg
}

// Decoded reports whether the message carried a JSON object.
func (m Message) Decoded() bool {
	return m.Data != nil
}

// Lookup walks nested objects along path.
func (p Payload) Lookup(path ...string) (any, bool) {
	if len(path) == 0 || p == nil {
		return nil, false
	}

	var cur any = map[string]any(p)
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (p Payload) String(path ...string) string {
	v, ok := p.Lookup(path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Float returns the number at path.
func (p Payload) Float(path ...string) (float64, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the integral number at path. Non-integral values report false.
func (p Payload) Int(path ...string) (int, bool) {
	f, ok := p.Float(path...)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Object returns the nested object at path, or nil.
func (p Payload) Object(path ...string) Payload {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil
	}
	obj, _ := asObject(v)
	return obj
}

func asObject(v any) (Payload, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Payload:
		return o, true
	default:
		return nil, false
	}
}

// MatchFunc decides whether an inbound message answers a request.
// It is only called with decoded messages and may be called concurrently.
type MatchFunc func(Message) bool

// MatchType accepts messages whose "type" field equals typ.
func MatchType(typ string) MatchFunc {
	return func(m Message) bool {
		return m.Data.String("type") == typ
	}
}

// MatchAll accepts messages accepted by every fn.
func MatchAll(fns ...MatchFunc) MatchFunc {
	return func(m Message) bool {
		for _, fn := range fns {
			if !fn(m) {
				return false
			}
		}
		return true
	}
}

// MatchField accepts messages whose string field at path equals want.
func MatchField(want string, path ...string) MatchFunc {
	return func(m Message) bool {
		return m.Data.String(path...) == want
	}
}
