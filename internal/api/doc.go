// Package api implements the HTTP status API of the fimp2ha bridge.
//
// This package provides:
//   - Health and JSON metrics endpoints for supervisors and dashboards
//   - The Prometheus scrape endpoint
//   - Read access to the ledger of published discovery entities
//   - A trigger to rerun discovery without restarting Home Assistant
//   - Middleware stack (request ID, logging, recovery, body limit, metrics)
//
// # Endpoints
//
//	GET  /api/v1/health
//	GET  /api/v1/metrics
//	GET  /api/v1/entities[?device=zw_12]
//	GET  /api/v1/entities/{config topic}
//	POST /api/v1/discovery/run
//	GET  /metrics
//
// # Graceful Degradation
//
// Every dependency except the logger is optional. Endpoints whose backing
// component is missing answer 503 instead of failing the whole server.
package api
