// Package discovery turns the hub's vinculum catalog into Home Assistant
// MQTT discovery configs.
//
// One Run is one discovery cycle:
//
//  1. ask vinculum for devices, rooms, shortcuts and the house mode
//  2. build entities for every selected device that has a room
//  3. publish each config and record it in the entity ledger
//  4. publish the collected *.get_report requests so Home Assistant
//     receives initial state
//  5. create the house mode select and one button per shortcut
//  6. after a short delay publish the initial statuses
//  7. clear configs published by earlier cycles that this one did not
//     refresh
//
// Parameter queries such as the chargepoint max current go through the
// correlator. A query that times out is logged and the dependent entities
// are skipped; it never aborts the cycle. Transport failures do.
package discovery
