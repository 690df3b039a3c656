package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/analytics"
	"github.com/linkplanhq/linkplan/internal/metricsource"
	"github.com/linkplanhq/linkplan/internal/middleware"
	"github.com/linkplanhq/linkplan/internal/plan"
	"github.com/linkplanhq/linkplan/internal/target"
)

// RecommendRequest is the body of POST /v1/recommend.
type RecommendRequest struct {
	Target         string `json:"target"`
	RequestedLinks *int   `json:"requested_links,omitempty"`
}

// RecommendResponse is the combined scope + recommendation payload.
type RecommendResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Scope     target.Scope  `json:"scope"`
	RD        float64       `json:"rd"`
	Tier      plan.Tier     `json:"tier"`
	Dripfeed  plan.Dripfeed `json:"dripfeed"`
	Source    string        `json:"source"`
	CacheHit  bool          `json:"cache_hit"`
}

// RecommendHandler handles POST /v1/recommend: resolve the target, fetch
// its referring-domains count, and map it to a link recommendation.
func (s *Server) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "RecommendHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/v1/recommend"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "recommend"
	const method = "POST"
	status := "200"
	defer func() {
		s.Metrics.IncrementRequests(endpoint, method, status)
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()

	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "400"
		s.Metrics.IncrementLookups("bad_request")
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scope, err := target.Resolve(req.Target)
	if err != nil {
		status = "400"
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid target")
		logger.Warn("target rejected", zap.String("target", req.Target), zap.Error(err))
		s.Metrics.IncrementLookups("invalid_target")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("target.canonical", scope.CanonicalTarget),
		attribute.String("target.mode", string(scope.Mode)),
	)

	rd, cacheHit, err := s.Metric.Lookup(ctx, scope)
	if err != nil {
		status = "502"
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream fetch failed")
		logger.Error("referring domains fetch failed",
			zap.String("target", scope.CanonicalTarget),
			zap.Error(err))
		outcome := "upstream_error"
		if errors.Is(err, metricsource.ErrMetricNotFound) {
			outcome = "metric_not_found"
		}
		s.Metrics.IncrementLookups(outcome)
		s.writeError(w, http.StatusBadGateway, "upstream metric fetch failed")
		return
	}

	result, err := s.Engine.Recommend(rd, req.RequestedLinks)
	if err != nil {
		status = "422"
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid metric")
		logger.Error("upstream returned unusable metric",
			zap.Float64("rd", rd),
			zap.String("target", scope.CanonicalTarget),
			zap.Error(err))
		s.Metrics.IncrementLookups("invalid_metric")
		s.writeError(w, http.StatusUnprocessableEntity, "upstream returned an invalid metric")
		return
	}

	s.Metrics.IncrementLookups("ok")
	s.Metrics.ObserveReferringDomains(rd)
	s.Metrics.IncrementTier(fmt.Sprintf("%d-%d", result.Tier.Min, result.Tier.Max))
	if result.Dripfeed.Enabled {
		s.Metrics.IncrementDripfeed()
	}

	requestID := middleware.RequestIDFromContext(ctx)
	s.recordLookup(r, requestID, scope, result, cacheHit, time.Since(start))

	s.writeJSON(w, http.StatusOK, RecommendResponse{
		RequestID: requestID,
		Scope:     scope,
		RD:        rd,
		Tier:      result.Tier,
		Dripfeed:  result.Dripfeed,
		Source:    s.Metric.SourceName(),
		CacheHit:  cacheHit,
	})
}

// recordLookup writes the analytics audit row. Failures are logged only; the
// recommendation already returned to the caller is not affected by them.
func (s *Server) recordLookup(r *http.Request, requestID string, scope target.Scope, result plan.Result, cacheHit bool, took time.Duration) {
	if s.Analytics == nil {
		return
	}

	country := ""
	if s.GeoIP != nil {
		country = s.GeoIP.Country(clientIP(r))
	}

	event := analytics.LookupEvent{
		Timestamp:       time.Now(),
		RequestID:       requestID,
		APIKeyID:        middleware.APIKeyIDFromContext(r.Context()),
		RawTarget:       scope.InputRaw,
		CanonicalTarget: scope.CanonicalTarget,
		Mode:            string(scope.Mode),
		RD:              result.RDUsed,
		TierMin:         result.Tier.Min,
		TierMax:         result.Tier.Max,
		Dripfeed:        result.Dripfeed.Enabled,
		Source:          s.Metric.SourceName(),
		CacheHit:        cacheHit,
		Country:         country,
		DurationMs:      float64(took.Milliseconds()),
	}
	if err := s.Analytics.RecordLookup(r.Context(), event); err != nil {
		s.Logger.Warn("analytics record failed", zap.Error(err))
	}
}
