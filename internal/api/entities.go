package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fimp2ha/internal/entity"
)

// handleListEntities lists published discovery entities, optionally
// filtered by ?device=<adapter>_<address>.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if s.Entities == nil {
		writeError(w, http.StatusServiceUnavailable, "entity ledger not available")
		return
	}

	var (
		records []entity.Record
		err     error
	)
	if device := strings.TrimSpace(r.URL.Query().Get("device")); device != "" {
		records, err = s.Entities.ListByDevice(r.Context(), device)
	} else {
		records, err = s.Entities.List(r.Context())
	}
	if err != nil {
		s.Logger.Error("listing entities failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}
	if records == nil {
		records = []entity.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": records,
		"count":    len(records),
	})
}

// handleGetEntity returns one entity by its full config topic, for example
// /api/v1/entities/homeassistant/sensor/fh_1_zw_12_sensor_temp/config.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	if s.Entities == nil {
		writeError(w, http.StatusServiceUnavailable, "entity ledger not available")
		return
	}

	topic := chi.URLParam(r, "*")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "config topic is required")
		return
	}

	rec, err := s.Entities.Get(r.Context(), topic)
	if errors.Is(err, entity.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		s.Logger.Error("getting entity failed", "topic", topic, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entity")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
