package influxdb

import (
	"time"

	"github.com/nerrad567/fimp2ha/internal/correlator"
	"github.com/nerrad567/fimp2ha/internal/discovery"
)

// Measurement names.
const (
	MeasurementRequest = "fimp_request"
	MeasurementCycle   = "discovery_cycle"
)

// ObserveRequest records one correlated request. Implements correlator.Observer.
func (c *Client) ObserveRequest(stats correlator.RequestStats) {
	c.writePoint(MeasurementRequest,
		map[string]string{
			"type":           stats.RequestType,
			"outcome":        string(stats.Outcome),
			"response_topic": stats.ResponseTopic,
		},
		map[string]any{
			"duration_ms": float64(stats.Duration) / float64(time.Millisecond),
			"pending":     stats.Pending,
		},
		time.Now())
}

// ObserveCycle records one discovery cycle. Implements discovery.CycleObserver.
func (c *Client) ObserveCycle(res *discovery.Result, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.writePoint(MeasurementCycle,
		map[string]string{
			"status": status,
		},
		map[string]any{
			"cycle_id":    res.CycleID,
			"duration_ms": float64(res.Duration) / float64(time.Millisecond),
			"devices":     res.Devices,
			"skipped":     res.Skipped,
			"entities":    res.Entities,
			"reports":     res.Reports,
			"removed":     res.Removed,
			"unanswered":  res.Unanswered,
		},
		res.StartedAt)
}
