package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.LLM == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":       s.deps.LLM.Model(),
		"stats":       s.deps.LLM.LatencyStats().Snapshot(),
		"queue_depth": s.deps.Orchestrator.QueueDepth(),
		"documents":   s.deps.Library.Len(),
	})
}
