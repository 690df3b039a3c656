package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/config"
	"github.com/linkplanhq/linkplan/internal/db"
	"github.com/linkplanhq/linkplan/internal/metricsource"
	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/plan"
	"github.com/linkplanhq/linkplan/internal/target"
)

type RecommendInput struct {
	Target         string `json:"target"`
	RequestedLinks *int   `json:"requested_links,omitempty"`
}

type RecommendOutput struct {
	Target           target.Scope `json:"target"`
	ReferringDomains float64      `json:"referring_domains"`
	Recommendation   plan.Result  `json:"recommendation"`
	Source           string       `json:"source"`
	CacheHit         bool         `json:"cache_hit"`
}

// RecommendServer bundles the lookup pipeline for the recommend_links tool.
type RecommendServer struct {
	metric *metricsource.Cache
	engine *plan.Engine
	logger *zap.Logger
}

// RecommendLinks resolves the target, fetches its referring domain count and
// maps it to a purchase recommendation.
func (s *RecommendServer) RecommendLinks(ctx context.Context, req *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
	scope, err := target.Resolve(input.Target)
	if err != nil {
		return nil, RecommendOutput{}, fmt.Errorf("invalid target %q: %w", input.Target, err)
	}

	rd, cacheHit, err := s.metric.Lookup(ctx, scope)
	if err != nil {
		return nil, RecommendOutput{}, fmt.Errorf("referring domains lookup failed: %w", err)
	}

	result, err := s.engine.Recommend(rd, input.RequestedLinks)
	if err != nil {
		return nil, RecommendOutput{}, fmt.Errorf("recommendation failed: %w", err)
	}

	s.logger.Info("recommend_links served",
		zap.String("target", scope.CanonicalTarget),
		zap.Float64("rd", rd),
		zap.Bool("cache_hit", cacheHit))

	return nil, RecommendOutput{
		Target:           scope,
		ReferringDomains: rd,
		Recommendation:   result,
		Source:           s.metric.SourceName(),
		CacheHit:         cacheHit,
	}, nil
}

func main() {
	// Stdout carries the JSON-RPC stream, so all logging goes to stderr.
	logger, err := observability.InitStderrLogger("linkplan-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()

	if cfg.AhrefsAPIKey == "" {
		logger.Fatal("AHREFS_API_KEY environment variable is required")
	}

	metrics := observability.NewNoOpRegistry()
	source := metricsource.NewRESTSource(cfg.AhrefsAPIURL, cfg.AhrefsAPIKey, cfg.UpstreamTimeout, logger, metrics)

	var store *db.RedisStore
	if cfg.RedisAddr != "" {
		store, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, serving uncached", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	var rdStore metricsource.RDStore
	if store != nil {
		rdStore = store
	}
	cache := metricsource.NewCache(source, rdStore, cfg.RDCacheTTL, logger, metrics)
	engine := plan.NewEngine(plan.DefaultTable())

	recServer := &RecommendServer{
		metric: cache,
		engine: engine,
		logger: logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "linkplan",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_links",
		Description: "Recommend a backlink purchase quantity for a URL or domain based on its referring domain count",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"target": map[string]interface{}{
					"type":        "string",
					"description": "URL or domain to evaluate, e.g. example.com or https://example.com/blog",
				},
				"requested_links": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Number of links the buyer wants to order (optional)",
				},
			},
			"required": []string{"target"},
		},
	}, recServer.RecommendLinks)

	logger.Info("linkplan MCP server running via stdio")

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
