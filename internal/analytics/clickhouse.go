// Package analytics records one audit row per recommendation lookup in
// ClickHouse. Recording is best effort; a lookup is still valid without its
// audit row, so failures here are logged by callers and never surfaced.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// LookupEvent mirrors a row in the rd_lookups table.
type LookupEvent struct {
	Timestamp       time.Time
	RequestID       string
	APIKeyID        string
	RawTarget       string
	CanonicalTarget string
	Mode            string
	RD              float64
	TierMin         int
	TierMax         int
	Dripfeed        bool
	Source          string
	CacheHit        bool
	Country         string
	DurationMs      float64
}

// Service defines the interface for lookup analytics.
type Service interface {
	RecordLookup(ctx context.Context, e LookupEvent) error
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the rd_lookups table exists.
func InitClickHouse(dsn string) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS rd_lookups (
       timestamp        DateTime,
       request_id       String,
       api_key_id       String,
       raw_target       String,
       canonical_target String,
       mode             String,
       rd               Float64,
       tier_min         Int32,
       tier_max         Int32,
       dripfeed         UInt8,
       source           String,
       cache_hit        UInt8,
       country          String,
       duration_ms      Float64
   ) ENGINE=MergeTree() ORDER BY (timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// RecordLookup inserts a single lookup row.
func (a *Analytics) RecordLookup(ctx context.Context, e LookupEvent) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO rd_lookups (
           timestamp, request_id, api_key_id, raw_target, canonical_target,
           mode, rd, tier_min, tier_max, dripfeed, source, cache_hit,
           country, duration_ms
       ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.RequestID, e.APIKeyID, e.RawTarget, e.CanonicalTarget,
		e.Mode, e.RD, int32(e.TierMin), int32(e.TierMax), boolUInt8(e.Dripfeed),
		e.Source, boolUInt8(e.CacheHit), e.Country, e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert rd_lookup: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}

func boolUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
