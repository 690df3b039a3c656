package metricsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/target"
)

// maxBodyBytes caps how much of an upstream response is read; metric
// payloads are small and anything larger is garbage.
const maxBodyBytes = 1 << 20

// RESTSource fetches referring domains from the provider's REST API
// directly. It is the fallback when no MCP server is configured.
type RESTSource struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewRESTSource returns a REST-backed Source for the given API base URL.
func NewRESTSource(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *RESTSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &RESTSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

// Name implements Source.
func (s *RESTSource) Name() string { return "rest" }

// FetchReferringDomains implements Source.
func (s *RESTSource) FetchReferringDomains(ctx context.Context, scope target.Scope) (float64, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		s.metrics.RecordUpstreamLatency(s.Name(), time.Since(start))
		s.metrics.IncrementUpstreamFetches(s.Name(), outcome)
	}()

	params := url.Values{}
	params.Set("target", scope.CanonicalTarget)
	params.Set("mode", string(scope.Mode))
	params.Set("date", time.Now().UTC().Format("2006-01-02"))
	endpoint := s.baseURL + "/site-explorer/metrics?" + params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		outcome = "failure"
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		outcome = "failure"
		return 0, fmt.Errorf("metrics request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome = "failure"
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		outcome = "failure"
		return 0, fmt.Errorf("upstream http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	rd, err := ExtractReferringDomains(string(body))
	if err != nil {
		outcome = "not_found"
		return 0, err
	}

	s.logger.Debug("fetched referring domains over rest",
		zap.String("target", scope.CanonicalTarget),
		zap.Float64("rd", rd))
	return rd, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
