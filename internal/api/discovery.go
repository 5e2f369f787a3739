package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/fimp2ha/internal/bridge"
)

// handleRunDiscovery queues a discovery cycle. The response is 202 either
// way; "queued" is false when the request merged into a pending cycle.
func (s *Server) handleRunDiscovery(w http.ResponseWriter, _ *http.Request) {
	if s.Bridge == nil {
		writeError(w, http.StatusServiceUnavailable, "bridge not available")
		return
	}

	queued, err := s.Bridge.Trigger()
	if errors.Is(err, bridge.ErrNotRunning) {
		writeError(w, http.StatusServiceUnavailable, "bridge is not running")
		return
	}
	if err != nil {
		s.Logger.Error("triggering discovery failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to trigger discovery")
		return
	}

	s.Logger.Info("discovery requested via API", "queued", queued)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued": queued,
	})
}
