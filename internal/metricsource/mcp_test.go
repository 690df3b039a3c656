package metricsource

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
)

func TestMCPSource_BlankCommandFailsCleanly(t *testing.T) {
	src := NewMCPSource(MCPConfig{
		Command: "   ",
		Tool:    "site-explorer-metrics",
		Timeout: time.Second,
	}, zap.NewNop(), observability.NewNoOpRegistry())

	_, err := src.FetchReferringDomains(context.Background(), mustScope(t, "example.com"))
	if err == nil {
		t.Fatal("expected error for a command with no executable")
	}
}
