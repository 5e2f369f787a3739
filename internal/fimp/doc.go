// Package fimp models the Futurehome FIMP messages the bridge exchanges
// with the hub: the common JSON envelope, the service topics and the
// vinculum device catalog.
//
// FIMP topics are built from a service address reported by the hub:
//
//	addr:    /rt:dev/rn:zw/ad:1/sv:sensor_temp/ad:12_0
//	event:   pt:j1/mt:evt/rt:dev/rn:zw/ad:1/sv:sensor_temp/ad:12_0
//	command: pt:j1/mt:cmd/rt:dev/rn:zw/ad:1/sv:sensor_temp/ad:12_0
//
// The catalog is fetched from the vinculum application with a
// cmd.pd7.request; the hub answers on the resp_to topic of the request.
package fimp
