package mqtt

import (
	"encoding/json"
	"fmt"
)

// Largest payload the bridge will publish.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker's ack.
// Home Assistant discovery configs go out retained; FIMP commands and
// get_report requests do not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: %s: %d byte payload over %d limit", ErrPublishFailed, topic, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.paho.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishJSON encodes v and publishes it.
func (c *Client) PublishJSON(topic string, v any, qos byte, retained bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: encode: %w", ErrPublishFailed, topic, err)
	}
	return c.Publish(topic, b, qos, retained)
}
