package database

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/config"
)

// Conn is the subset of a pooled connection the data access layer uses.
// pgxpool conns satisfy it through the adapter in pool.go; tests fake it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Release()
}

// Pool abstracts the underlying connection pool.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Stat() PoolStat
	Close()
}

// PoolStat is a point-in-time snapshot of pool connection counts.
type PoolStat struct {
	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	// EmptyAcquires counts acquires that had to wait for a free connection.
	EmptyAcquires int64
}

// Options tunes the retry and timeout behavior of the data access layer.
type Options struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	ConnectRetries int
	QueryRetries   int
	RetryBase      time.Duration
}

// Status is the operational snapshot returned by DB.Status.
type Status struct {
	Healthy       bool  `json:"healthy"`
	TotalConns    int32 `json:"total_connections"`
	IdleConns     int32 `json:"idle_connections"`
	AcquiredConns int32 `json:"acquired_connections"`
	EmptyAcquires int64 `json:"waiting_acquires"`
	Retries       int64 `json:"retry_count"`
}

// DB is the resilient data access layer. Every query acquires a pooled
// connection with bounded exponential-backoff retries and a liveness probe,
// executes under a statement timeout, and releases the connection on every
// path. Transient query failures are retried with linear backoff;
// non-transient errors propagate immediately.
type DB struct {
	pool    Pool
	opts    Options
	log     zerolog.Logger
	healthy atomic.Bool
	retries atomic.Int64

	// sleep is overridable in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Open builds a DB on a pgxpool configured from cfg and verifies
// connectivity with an initial acquire+ping round trip.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*DB, error) {
	url := cfg.DatabaseURL
	if cfg.DBSSLRequire && !strings.Contains(url, "sslmode=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "sslmode=require"
	}

	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConns = cfg.DBMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	db := New(&pgxPoolAdapter{inner: pool}, Options{
		ConnectTimeout: cfg.DBConnectTimeout,
		QueryTimeout:   cfg.DBQueryTimeout,
		ConnectRetries: cfg.DBConnectRetries,
		QueryRetries:   cfg.DBQueryRetries,
		RetryBase:      cfg.DBRetryBase,
	}, log)

	conn, err := db.connect(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initial connection: %w", err)
	}
	conn.Release()

	log.Info().
		Int32("min_conns", cfg.DBMinConns).
		Int32("max_conns", cfg.DBMaxConns).
		Msg("PostgreSQL connected")

	return db, nil
}

// New wraps an already-built pool. Used by Open and by tests.
func New(pool Pool, opts Options, log zerolog.Logger) *DB {
	if opts.QueryRetries < 1 {
		opts.QueryRetries = 1
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 250 * time.Millisecond
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 15 * time.Second
	}
	db := &DB{pool: pool, opts: opts, log: log}
	db.healthy.Store(true)
	db.sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return db
}

// connect acquires a connection with a hard timeout, retrying with
// exponential backoff, and probes liveness with a ping before handing the
// connection out. The health flag tracks the outcome.
func (db *DB) connect(ctx context.Context) (Conn, error) {
	var lastErr error

	for attempt := 0; attempt <= db.opts.ConnectRetries; attempt++ {
		if attempt > 0 {
			db.retries.Add(1)
			backoff := db.opts.RetryBase << (attempt - 1)
			db.log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying connection acquire")
			if err := db.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		acquireCtx, cancel := context.WithTimeout(ctx, db.opts.ConnectTimeout)
		conn, err := db.pool.Acquire(acquireCtx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		if err := conn.Ping(ctx); err != nil {
			conn.Release()
			lastErr = err
			continue
		}

		db.healthy.Store(true)
		return conn, nil
	}

	db.healthy.Store(false)
	return nil, fmt.Errorf("acquire connection after %d attempts: %w", db.opts.ConnectRetries+1, lastErr)
}

// withRetry runs op on a fresh connection, retrying transient failures with
// linear backoff up to the configured attempt count. The connection is
// released on every path.
func (db *DB) withRetry(ctx context.Context, op func(Conn) error) error {
	var lastErr error

	for attempt := 1; attempt <= db.opts.QueryRetries; attempt++ {
		conn, err := db.connect(ctx)
		if err != nil {
			return err
		}

		err = op(conn)
		conn.Release()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		lastErr = err
		db.retries.Add(1)
		if attempt < db.opts.QueryRetries {
			backoff := time.Duration(attempt) * db.opts.RetryBase
			db.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying transient query failure")
			if serr := db.sleep(ctx, backoff); serr != nil {
				return lastErr
			}
		}
	}

	return fmt.Errorf("query failed after %d attempts: %w", db.opts.QueryRetries, lastErr)
}

// Query executes sql and hands the result rows to scan. The rows are only
// valid inside the callback; the whole operation (including scanning) is
// re-run on transient failure.
func (db *DB) Query(ctx context.Context, scan func(pgx.Rows) error, sql string, args ...any) error {
	return db.withRetry(ctx, func(conn Conn) error {
		qctx, cancel := context.WithTimeout(ctx, db.opts.QueryTimeout)
		defer cancel()

		rows, err := conn.Query(qctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		if scan != nil {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// QueryRow executes sql expecting a single row and scans it into dest.
// Returns pgx.ErrNoRows when the statement matches nothing.
func (db *DB) QueryRow(ctx context.Context, sql string, args []any, dest ...any) error {
	return db.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return pgx.ErrNoRows
		}
		return rows.Scan(dest...)
	}, sql, args...)
}

// Exec executes a statement and returns the number of affected rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := db.withRetry(ctx, func(conn Conn) error {
		qctx, cancel := context.WithTimeout(ctx, db.opts.QueryTimeout)
		defer cancel()

		tag, err := conn.Exec(qctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// Status returns a read-only diagnostic snapshot of the pool.
func (db *DB) Status() Status {
	stat := db.pool.Stat()
	return Status{
		Healthy:       db.healthy.Load(),
		TotalConns:    stat.TotalConns,
		IdleConns:     stat.IdleConns,
		AcquiredConns: stat.AcquiredConns,
		EmptyAcquires: stat.EmptyAcquires,
		Retries:       db.retries.Load(),
	}
}

// Healthy reports the current health flag.
func (db *DB) Healthy() bool {
	return db.healthy.Load()
}

// Close shuts the pool down. The DB is unusable afterwards.
func (db *DB) Close() {
	db.pool.Close()
}
