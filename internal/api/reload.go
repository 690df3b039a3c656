package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/middleware"
)

// ReloadHandler handles POST /reload, refreshing tier rule overrides from
// Postgres on demand.
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "reload"
	const method = "POST"
	status := "200"
	defer func() {
		s.Metrics.IncrementRequests(endpoint, method, status)
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()

	if err := s.Reload(r.Context()); err != nil {
		status = "500"
		logger.Error("reload failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
