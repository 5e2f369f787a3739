// Package entity records which Home Assistant discovery configs the bridge
// has published.
//
// Every discovery cycle upserts one Record per config topic and stamps it
// with the cycle ID. Records left behind with an older cycle ID belong to
// devices or services that vanished from the hub; the discovery orchestrator
// clears their retained configs and deletes them.
package entity
