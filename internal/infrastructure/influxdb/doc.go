// Package influxdb writes bridge telemetry to InfluxDB v2.
//
// Two measurements are recorded:
//
//   - fimp_request: one point per correlated request, tagged with the
//     request type and outcome, carrying the wait duration
//   - discovery_cycle: one point per discovery cycle with its counts
//
// Client implements correlator.Observer and discovery.CycleObserver so it
// can be handed straight to both. Writes go through the non-blocking
// batched write API of influxdb-client-go; async write failures reach the
// SetOnError callback.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
package influxdb
