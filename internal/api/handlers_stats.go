package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleBackendStats(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || s.engine.LatencyStats() == nil {
		jsonError(w, "backend stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"backend":     s.backendName,
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.engine.LatencyStats().Snapshot(),
	})
}
