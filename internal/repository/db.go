package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialects understood by the journal.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is the journal handle. Pool is nil for SQLite.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Dialect string
	logger  *slog.Logger
}

// DialectFor picks postgres for postgres:// URLs and key=value DSNs, sqlite otherwise.
func DialectFor(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") || strings.Contains(d, "host=") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to Postgres through a pgx pool wrapped as *sql.DB, or opens a
// SQLite file (":memory:" works for tests).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if DialectFor(cfg.DSN) == DialectSQLite {
		return openSQLite(cfg, logger)
	}

	logger.Info("connecting to database", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "proposal-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: DialectPostgres, logger: logger}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(strings.TrimSpace(cfg.DSN), "sqlite://")
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("opening database", "dialect", DialectSQLite, "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	return &DB{SQL: db, Dialect: DialectSQLite, logger: logger}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.SQL.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", d.Dialect, err)
	}
	d.logger.Debug("database ping successful")
	return nil
}

// Migrate creates the journal table when missing.
func (d *DB) Migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if d.Dialect == DialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS extraction_run (
			id               TEXT PRIMARY KEY,
			source           TEXT NOT NULL,
			status           TEXT NOT NULL,
			confidence       INTEGER,
			is_data_confused BOOLEAN NOT NULL DEFAULT FALSE,
			degraded         BOOLEAN NOT NULL DEFAULT FALSE,
			total_price      DOUBLE PRECISION,
			result_json      TEXT,
			error_message    TEXT,
			started_at       ` + ts + ` NOT NULL,
			finished_at      ` + ts + `
		)`,
		`CREATE INDEX IF NOT EXISTS extraction_run_started_at_idx ON extraction_run (started_at)`,
	}
	for _, stmt := range ddl {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Debug("journal schema ready", "dialect", d.Dialect)
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
