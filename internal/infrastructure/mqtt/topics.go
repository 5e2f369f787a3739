package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots used by the bridge.
const (
	// TopicPrefixBridge is the base for the bridge's own topics.
	TopicPrefixBridge = "fimp2ha"

	// TopicPrefixFIMPEvent is the base for FIMP events and reports from the hub.
	TopicPrefixFIMPEvent = "pt:j1/mt:evt"

	// TopicPrefixFIMPCommand is the base for FIMP commands to the hub.
	TopicPrefixFIMPCommand = "pt:j1/mt:cmd"

	// TopicPrefixFIMPResponse is the base for FIMP responses to applications.
	TopicPrefixFIMPResponse = "pt:j1/mt:rsp"
)

// Topics provides builders for the topics the bridge publishes and subscribes to.
//
//	topics := mqtt.Topics{}
//	cfgTopic := topics.HomeAssistantConfig("homeassistant", "sensor", "fh_12_zw_12_sensor_temp")
//	// Returns: "homeassistant/sensor/fh_12_zw_12_sensor_temp/config"
type Topics struct{}

// =============================================================================
// Bridge Topics
// =============================================================================

// BridgeStatus returns the retained availability topic of the bridge.
//
// Example: fimp2ha/bridge/status
func (Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", TopicPrefixBridge)
}

// =============================================================================
// FIMP Topics
// =============================================================================

// FIMPEvent returns the event topic for a service address.
// Addresses start with a slash, as reported by the hub.
//
// Example: pt:j1/mt:evt/rt:dev/rn:zw/ad:1/sv:sensor_temp/ad:12_0
func (Topics) FIMPEvent(address string) string {
	return TopicPrefixFIMPEvent + address
}

// FIMPCommand returns the command topic for a service address.
//
// Example: pt:j1/mt:cmd/rt:dev/rn:zw/ad:1/sv:sensor_temp/ad:12_0
func (Topics) FIMPCommand(address string) string {
	return TopicPrefixFIMPCommand + address
}

// FIMPApplicationCommand returns the command topic of a hub application.
//
// Example: pt:j1/mt:cmd/rt:app/rn:vinculum/ad:1
func (Topics) FIMPApplicationCommand(app string) string {
	return fmt.Sprintf("%s/rt:app/rn:%s/ad:1", TopicPrefixFIMPCommand, app)
}

// FIMPApplicationEvent returns the event topic of a hub application.
//
// Example: pt:j1/mt:evt/rt:app/rn:vinculum/ad:1
func (Topics) FIMPApplicationEvent(app string) string {
	return fmt.Sprintf("%s/rt:app/rn:%s/ad:1", TopicPrefixFIMPEvent, app)
}

// FIMPResponse returns the response topic the hub answers an application on.
//
// Example: pt:j1/mt:rsp/rt:app/rn:homeassistant/ad:flow1
func (Topics) FIMPResponse(app, address string) string {
	return fmt.Sprintf("%s/rt:app/rn:%s/ad:%s", TopicPrefixFIMPResponse, app, address)
}

// =============================================================================
// Home Assistant Topics
// =============================================================================

// HomeAssistantConfig returns the discovery config topic for one entity.
//
// Example: homeassistant/sensor/fh_12_zw_12_sensor_temp/config
func (Topics) HomeAssistantConfig(prefix, component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/config", prefix, component, objectID)
}

// HomeAssistantStatus returns the birth/will topic of Home Assistant.
//
// Example: homeassistant/status
func (Topics) HomeAssistantStatus(prefix string) string {
	return fmt.Sprintf("%s/status", prefix)
}

// =============================================================================
// Wildcard Matching
// =============================================================================

// TopicMatches reports whether topic matches the subscription filter,
// following MQTT 3.1.1 wildcard rules: "+" matches exactly one level and a
// trailing "#" matches the parent level and everything below it.
func TopicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}

	return len(fl) == len(tl)
}
