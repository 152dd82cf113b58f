package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPoolAdapter bridges *pgxpool.Pool to the Pool interface.
type pgxPoolAdapter struct {
	inner *pgxpool.Pool
}

func (p *pgxPoolAdapter) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.inner.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConnAdapter{inner: conn}, nil
}

func (p *pgxPoolAdapter) Stat() PoolStat {
	s := p.inner.Stat()
	return PoolStat{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		EmptyAcquires: s.EmptyAcquireCount(),
	}
}

func (p *pgxPoolAdapter) Close() {
	p.inner.Close()
}

// pgxConnAdapter wraps *pgxpool.Conn so the retry layer sees the Conn
// interface.
type pgxConnAdapter struct {
	inner *pgxpool.Conn
}

func (c *pgxConnAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.inner.Query(ctx, sql, args...)
}

func (c *pgxConnAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.inner.Exec(ctx, sql, args...)
}

func (c *pgxConnAdapter) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *pgxConnAdapter) Release() {
	c.inner.Release()
}
