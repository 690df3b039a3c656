package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	ServiceName  string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AuthN: comma-separated shared secrets accepted in X-Proxy-Key or
	// an Authorization bearer token.
	ProxyKeys []string

	// Upstream metric source. When MCPEndpoint or MCPCommand is set the
	// bridge talks to the provider's MCP server; otherwise it calls the
	// REST API directly with AhrefsAPIKey.
	MCPEndpoint     string
	MCPCommand      string
	MCPTool         string
	AhrefsAPIURL    string
	AhrefsAPIKey    string
	UpstreamTimeout time.Duration

	// RD cache
	RedisAddr  string
	RDCacheTTL time.Duration

	// Tier rule overrides
	PostgresDSN       string
	ReloadInterval    time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Lookup analytics
	ClickHouseDSN string

	// GeoIP database for tagging lookups with the caller country.
	GeoIPDB string

	// Rate limiting per API key
	RateLimitEnabled    bool
	RateLimitCapacity   int
	RateLimitRefillRate int

	// Tracing
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent. Everything infrastructural is
// optional: Redis, Postgres, ClickHouse and GeoIP degrade to disabled when
// their variables are unset.
func Load() Config {
	cfg := Config{}

	cfg.ServiceName = getenv("SERVICE_NAME", "linkplan")
	cfg.Port = getenv("PORT", "8790")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)

	cfg.ProxyKeys = splitList(os.Getenv("PROXY_KEYS"))

	// Trimmed so a whitespace-only value cannot select a source that has
	// nothing to run.
	cfg.MCPEndpoint = strings.TrimSpace(getenv("MCP_ENDPOINT", ""))
	cfg.MCPCommand = strings.TrimSpace(getenv("MCP_COMMAND", ""))
	cfg.MCPTool = getenv("MCP_TOOL", "site-explorer-metrics")
	cfg.AhrefsAPIURL = getenv("AHREFS_API_URL", "https://api.ahrefs.com/v3")
	cfg.AhrefsAPIKey = getenv("AHREFS_API_KEY", "")
	cfg.UpstreamTimeout = envDuration("UPSTREAM_TIMEOUT", 20*time.Second)

	cfg.RedisAddr = getenv("REDIS_ADDR", "")
	cfg.RDCacheTTL = envDuration("RD_CACHE_TTL", 6*time.Hour)

	cfg.PostgresDSN = getenv("POSTGRES_DSN", "")
	// default to 5 minutes between automatic tier rule reloads
	cfg.ReloadInterval = envDuration("RELOAD_INTERVAL", 5*time.Minute)
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "")

	cfg.GeoIPDB = getenv("GEOIP_DB", "")

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitCapacity = envInt("RATE_LIMIT_CAPACITY", 30)
	cfg.RateLimitRefillRate = envInt("RATE_LIMIT_REFILL_RATE", 5)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.OTLPEndpoint = getenv("OTLP_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList parses a comma-separated list, trimming blanks.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
