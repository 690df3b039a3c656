package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/middleware"
	"github.com/linkplanhq/linkplan/internal/target"
)

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Target string `json:"target"`
}

// ResolveHandler handles POST /v1/resolve: normalize a target without
// touching the upstream metric source.
func (s *Server) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "ResolveHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/v1/resolve"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "resolve"
	const method = "POST"
	status := "200"
	defer func() {
		s.Metrics.IncrementRequests(endpoint, method, status)
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "400"
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scope, err := target.Resolve(req.Target)
	if err != nil {
		status = "400"
		span.RecordError(err)
		logger.Warn("target rejected", zap.String("target", req.Target), zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, scope)
}
