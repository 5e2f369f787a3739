// Package homeassistant builds Home Assistant MQTT discovery payloads.
//
// An Entity is one discovery config: a component kind (sensor, switch,
// light, ...), an object id and the config body. The body is an open map
// because every component kind takes different keys; DeviceInfo and
// Availability are typed.
package homeassistant
