package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/analytics"
	"github.com/linkplanhq/linkplan/internal/api"
	"github.com/linkplanhq/linkplan/internal/config"
	"github.com/linkplanhq/linkplan/internal/db"
	"github.com/linkplanhq/linkplan/internal/geoip"
	"github.com/linkplanhq/linkplan/internal/metricsource"
	"github.com/linkplanhq/linkplan/internal/middleware"
	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/plan"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.ProxyKeys) == 0 {
		return fmt.Errorf("PROXY_KEYS must be set; refusing to serve unauthenticated")
	}

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	var store *db.RedisStore
	if cfg.RedisAddr != "" {
		var err error
		store, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer store.Close()
	} else {
		logger.Warn("REDIS_ADDR unset, RD caching disabled")
	}

	var pg *db.Postgres
	if cfg.PostgresDSN != "" {
		var err error
		pg, err = db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()
	} else {
		logger.Info("POSTGRES_DSN unset, using built-in tier table")
	}

	var analyticsSvc analytics.Service
	if cfg.ClickHouseDSN != "" {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer ch.Close()
		analyticsSvc = ch
	} else {
		logger.Warn("CLICKHOUSE_DSN unset, lookup analytics disabled")
	}

	var geoSvc *geoip.GeoIP
	if cfg.GeoIPDB != "" {
		var err error
		geoSvc, err = geoip.Init(cfg.GeoIPDB)
		if err != nil {
			return fmt.Errorf("failed to load geoip db: %w", err)
		}
		defer func() { _ = geoSvc.Close() }()
	}

	source, err := buildSource(cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}
	logger.Info("metric source configured", zap.String("source", source.Name()))

	cache := metricsource.NewCache(source, storeOrNil(store), cfg.RDCacheTTL, logger, metricsRegistry)
	engine := plan.NewEngine(plan.DefaultTable())

	srvDeps := api.NewServer(logger, store, pg, analyticsSvc, geoSvc, cache, engine, metricsRegistry, cfg)

	if pg != nil {
		if err := srvDeps.Reload(ctx); err != nil {
			logger.Warn("initial tier rule load failed, keeping defaults", zap.Error(err))
		}
	}

	auth := middleware.NewAuth(cfg.ProxyKeys, usageOrNil(store), logger, metricsRegistry)
	limiter := middleware.NewKeyLimiter(middleware.RateLimitConfig{
		Capacity:   cfg.RateLimitCapacity,
		RefillRate: cfg.RateLimitRefillRate,
		Enabled:    cfg.RateLimitEnabled,
	}, metricsRegistry)

	r := mux.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithTraceLogger(logger))

	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	protected := r.NewRoute().Subrouter()
	protected.Use(auth.Middleware)
	protected.Use(limiter.Middleware)
	protected.HandleFunc("/v1/recommend", srvDeps.RecommendHandler).Methods("POST")
	protected.HandleFunc("/v1/resolve", srvDeps.ResolveHandler).Methods("POST")
	protected.HandleFunc("/reload", srvDeps.ReloadHandler).Methods("POST")

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("linkplan running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if pg != nil && cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(ctx); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// buildSource picks the upstream transport: MCP when an endpoint or command
// is configured, the REST API otherwise.
func buildSource(cfg config.Config, logger *zap.Logger, metrics observability.MetricsRegistry) (metricsource.Source, error) {
	if cfg.MCPEndpoint != "" || cfg.MCPCommand != "" {
		return metricsource.NewMCPSource(metricsource.MCPConfig{
			Endpoint: cfg.MCPEndpoint,
			Command:  cfg.MCPCommand,
			Tool:     cfg.MCPTool,
			APIKey:   cfg.AhrefsAPIKey,
			Timeout:  cfg.UpstreamTimeout,
		}, logger, metrics), nil
	}
	if cfg.AhrefsAPIKey == "" {
		return nil, fmt.Errorf("no metric source configured: set MCP_ENDPOINT, MCP_COMMAND or AHREFS_API_KEY")
	}
	return metricsource.NewRESTSource(cfg.AhrefsAPIURL, cfg.AhrefsAPIKey, cfg.UpstreamTimeout, logger, metrics), nil
}

// storeOrNil avoids handing the cache a typed-nil interface value.
func storeOrNil(store *db.RedisStore) metricsource.RDStore {
	if store == nil {
		return nil
	}
	return store
}

func usageOrNil(store *db.RedisStore) middleware.KeyUsageCounter {
	if store == nil {
		return nil
	}
	return store
}
