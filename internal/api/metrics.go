package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/fimp2ha/internal/bridge"
)

// Snapshot is the body of GET /api/v1/metrics.
type Snapshot struct {
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	Runtime struct {
		Goroutines    int     `json:"goroutines"`
		MemoryAllocMB float64 `json:"memory_alloc_mb"`
		MemoryTotalMB float64 `json:"memory_total_mb"`
		NumGC         uint32  `json:"num_gc"`
	} `json:"runtime"`

	MQTT struct {
		Connected bool `json:"connected"`
	} `json:"mqtt"`

	Correlator struct {
		PendingListeners int `json:"pending_listeners"`
	} `json:"correlator"`

	Bridge *bridge.Metrics `json:"bridge,omitempty"`

	Entities struct {
		Published int `json:"published"`
	} `json:"entities"`

	Database *PoolStats `json:"database,omitempty"`
}

// PoolStats is the subset of sql.DBStats worth watching for SQLite.
type PoolStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

const mib = 1 << 20

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	snap.Timestamp = time.Now().UTC().Format(time.RFC3339)
	snap.Version = s.Version
	snap.UptimeSeconds = int64(time.Since(s.started).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.Runtime.Goroutines = runtime.NumGoroutine()
	snap.Runtime.MemoryAllocMB = float64(mem.Alloc) / mib
	snap.Runtime.MemoryTotalMB = float64(mem.TotalAlloc) / mib
	snap.Runtime.NumGC = mem.NumGC

	if s.Bridge != nil {
		bm := s.Bridge.Metrics()
		snap.Bridge = &bm
		snap.MQTT.Connected = bm.Connected
	}
	if s.Correlator != nil {
		snap.Correlator.PendingListeners = s.Correlator.Pending()
	}
	if s.Entities != nil {
		n, err := s.Entities.Count(r.Context())
		if err != nil {
			s.Logger.Warn("counting published entities failed", "error", err)
		}
		snap.Entities.Published = n
	}
	if s.Database != nil {
		st := s.Database.Stats()
		snap.Database = &PoolStats{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, snap)
}
