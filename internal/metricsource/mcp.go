package metricsource

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/target"
)

// MCPConfig configures the MCP-backed metric source. Exactly one of
// Endpoint (streamable HTTP) or Command (stdio subprocess) must be set.
type MCPConfig struct {
	Endpoint string
	Command  string
	Tool     string
	APIKey   string
	Timeout  time.Duration
}

// MCPSource fetches referring domains by calling a tool on the provider's
// MCP server. A fresh, time-bounded session is dialed per fetch and closed
// before returning, so no connection state outlives the request.
type MCPSource struct {
	cfg     MCPConfig
	client  *mcp.Client
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewMCPSource returns an MCP-backed Source.
func NewMCPSource(cfg MCPConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *MCPSource {
	return &MCPSource{
		cfg: cfg,
		client: mcp.NewClient(&mcp.Implementation{
			Name:    "linkplan",
			Version: "1.0.0",
		}, nil),
		logger:  logger,
		metrics: metrics,
	}
}

// Name implements Source.
func (s *MCPSource) Name() string { return "mcp" }

// FetchReferringDomains implements Source.
func (s *MCPSource) FetchReferringDomains(ctx context.Context, scope target.Scope) (float64, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		s.metrics.RecordUpstreamLatency(s.Name(), time.Since(start))
		s.metrics.IncrementUpstreamFetches(s.Name(), outcome)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	transport, err := s.transport()
	if err != nil {
		outcome = "failure"
		return 0, err
	}

	session, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		outcome = "failure"
		return 0, fmt.Errorf("mcp connect: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("mcp session close", zap.Error(err))
		}
	}()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: s.cfg.Tool,
		Arguments: map[string]any{
			"target": scope.CanonicalTarget,
			"mode":   string(scope.Mode),
		},
	})
	if err != nil {
		outcome = "failure"
		return 0, fmt.Errorf("mcp call %s: %w", s.cfg.Tool, err)
	}
	if res.IsError {
		outcome = "failure"
		return 0, fmt.Errorf("mcp tool %s returned error: %s", s.cfg.Tool, textContent(res))
	}

	rd, err := s.extract(res)
	if err != nil {
		outcome = "not_found"
		return 0, err
	}

	s.logger.Debug("fetched referring domains over mcp",
		zap.String("target", scope.CanonicalTarget),
		zap.Float64("rd", rd))
	return rd, nil
}

// extract probes each text content block; the tool result sometimes splits
// the payload across several blocks, and not all of them are JSON.
func (s *MCPSource) extract(res *mcp.CallToolResult) (float64, error) {
	var lastErr error = ErrMetricNotFound
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		if !ok {
			continue
		}
		rd, err := ExtractReferringDomains(tc.Text)
		if err == nil {
			return rd, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

func (s *MCPSource) transport() (mcp.Transport, error) {
	if s.cfg.Endpoint != "" {
		return &mcp.StreamableClientTransport{
			Endpoint:   s.cfg.Endpoint,
			HTTPClient: &http.Client{Timeout: s.cfg.Timeout},
		}, nil
	}

	parts := strings.Fields(s.cfg.Command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcp source: neither endpoint nor command configured")
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Env = os.Environ()
	if s.cfg.APIKey != "" {
		cmd.Env = append(cmd.Env, "AHREFS_API_KEY="+s.cfg.APIKey)
	}
	cmd.Stderr = os.Stderr
	return &mcp.CommandTransport{Command: cmd}, nil
}

func textContent(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}
