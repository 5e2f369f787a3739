// Package metrics exposes bridge counters to Prometheus.
//
// Metrics owns its own registry so tests and multiple bridges in one
// process never collide with the global one. It implements
// correlator.Observer and discovery.CycleObserver, and Middleware counts
// HTTP requests to the status API.
package metrics
