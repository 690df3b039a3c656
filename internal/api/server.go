package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/analytics"
	"github.com/linkplanhq/linkplan/internal/config"
	"github.com/linkplanhq/linkplan/internal/db"
	"github.com/linkplanhq/linkplan/internal/geoip"
	"github.com/linkplanhq/linkplan/internal/metricsource"
	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/plan"
)

var tracer = otel.Tracer("linkplan")

// Server groups dependencies for HTTP handlers. Store, PG, Analytics and
// GeoIP may be nil; handlers degrade gracefully without them.
type Server struct {
	Logger    *zap.Logger
	Store     *db.RedisStore
	PG        *db.Postgres
	Analytics analytics.Service
	GeoIP     *geoip.GeoIP
	Metric    *metricsource.Cache
	Engine    *plan.Engine
	Metrics   observability.MetricsRegistry
	Config    config.Config
	reloadMu  sync.Mutex
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, store *db.RedisStore, pg *db.Postgres, analyticsSvc analytics.Service, geo *geoip.GeoIP, metric *metricsource.Cache, engine *plan.Engine, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if engine == nil {
		engine = plan.NewEngine(plan.DefaultTable())
	}
	return &Server{
		Logger:    logger,
		Store:     store,
		PG:        pg,
		Analytics: analyticsSvc,
		GeoIP:     geo,
		Metric:    metric,
		Engine:    engine,
		Metrics:   metrics,
		Config:    cfg,
	}
}

// Reload refreshes tier rule overrides from Postgres. An empty override
// table restores the built-in defaults; an invalid one keeps the current
// table in place.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}

	table, err := s.PG.LoadTierRules(ctx)
	if err != nil {
		return fmt.Errorf("load tier rules: %w", err)
	}
	if table == nil {
		s.Engine.SetTable(plan.DefaultTable())
		s.Logger.Info("tier rules reloaded", zap.String("table", "default"))
		return nil
	}
	s.Engine.SetTable(table)
	s.Logger.Info("tier rules reloaded", zap.Int("bands", len(table)))
	return nil
}

// writeJSON serializes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("write response", zap.Error(err))
	}
}

// writeError emits the uniform error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// clientIP extracts the caller IP, honoring X-Forwarded-For from the edge.
func clientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}
