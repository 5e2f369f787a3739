// Package bridge runs the fimp2ha lifecycle on top of an MQTT session.
//
// # Responsibilities
//
//   - Run a discovery cycle at startup
//   - Watch the Home Assistant status topic and rerun discovery whenever
//     Home Assistant announces "online" (it forgets non-retained state on
//     restart)
//   - Serialise cycles: at most one runs at a time and triggers that arrive
//     while one is running collapse into a single follow-up cycle
//   - Keep a snapshot of cycle counters for the status API
//
// The bridge availability topic itself is owned by the MQTT client, which
// publishes "online" on connect and registers "offline" as its will.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package bridge
