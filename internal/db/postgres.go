package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq" // postgres driver
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/plan"
)

// Postgres holds the connection used for operator tier-rule overrides.
type Postgres struct {
	db *sql.DB
}

// InitPostgres connects to Postgres with the given pool settings and
// ensures the tier_rules table exists.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	create := `CREATE TABLE IF NOT EXISTS tier_rules (
       pos        INT PRIMARY KEY,
       min_rd     INT NOT NULL,
       max_rd     INT,
       min_links  INT NOT NULL,
       max_links  INT NOT NULL
   )`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("postgres create tier_rules: %w", err)
	}

	zap.L().Info("Connected to PostgreSQL")
	return &Postgres{db: db}, nil
}

// LoadTierRules reads the operator tier-rule overrides ordered by position.
// A nil table (no error) means no overrides exist and the caller should keep
// the built-in defaults. Any invalid row set rejects the whole load so a
// half-written table never replaces a working one.
func (p *Postgres) LoadTierRules(ctx context.Context) (plan.Table, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT min_rd, max_rd, min_links, max_links FROM tier_rules ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("query tier_rules: %w", err)
	}
	defer rows.Close()

	var bands []plan.Band
	for rows.Next() {
		var (
			minRD, minLinks, maxLinks int
			maxRD                     sql.NullInt64
		)
		if err := rows.Scan(&minRD, &maxRD, &minLinks, &maxLinks); err != nil {
			return nil, fmt.Errorf("scan tier_rules: %w", err)
		}
		b := plan.Band{
			MinRD: minRD,
			MaxRD: plan.OpenEnded,
			Tier:  plan.Tier{Min: minLinks, Max: maxLinks},
		}
		if maxRD.Valid {
			b.MaxRD = int(maxRD.Int64)
		}
		bands = append(bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier_rules: %w", err)
	}
	if len(bands) == 0 {
		return nil, nil
	}

	table, err := plan.NewTable(bands)
	if err != nil {
		return nil, fmt.Errorf("tier_rules rejected: %w", err)
	}
	return table, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() {
	if p != nil && p.db != nil {
		if err := p.db.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}
