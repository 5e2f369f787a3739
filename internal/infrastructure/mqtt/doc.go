// Package mqtt is the bridge's session with the broker the Futurehome hub
// and Home Assistant both use.
//
// The hub speaks FIMP under pt:j1/...; Home Assistant reads discovery
// configs under its discovery prefix. The bridge sits on the same broker
// and moves data between the two namespaces:
//
//	hub ⇄ broker ⇄ fimp2ha ⇄ broker ⇄ Home Assistant
//
// Connect dials once. If that fails the caller exits. With
// mqtt.reconnect.enabled off (the default) a dropped session is also fatal;
// SetOnDisconnect is where the caller hooks its shutdown. The retained
// fimp2ha/bridge/status topic reads "online" while the session is up and
// the will sets it to "offline".
//
// Handlers registered with Subscribe run in arrival order on paho's router
// goroutine, with panics contained. Topics builds every topic string the bridge uses and
// TopicMatches applies MQTT wildcard rules to a filter.
//
//	c, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	_ = c.Subscribe(mqtt.Topics{}.HomeAssistantStatus("homeassistant"), 0, func(topic string, b []byte) error {
//	    return nil
//	})
package mqtt
