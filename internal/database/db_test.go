package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows is a minimal pgx.Rows over pre-baked values.
type fakeRows struct {
	values [][]any
	idx    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.idx-1]
	for i := range dest {
		if p, ok := dest[i].(*int); ok {
			*p = row[i].(int)
		}
		if p, ok := dest[i].(*string); ok {
			*p = row[i].(string)
		}
	}
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return r.values[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

// fakeConn replays scripted errors, then succeeds.
type fakeConn struct {
	queryErrs []error
	execErrs  []error
	pingErr   error
	rows      *fakeRows

	queries  int
	execs    int
	released int
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queries++
	if len(c.queryErrs) > 0 {
		err := c.queryErrs[0]
		c.queryErrs = c.queryErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if c.rows != nil {
		return c.rows, nil
	}
	return &fakeRows{}, nil
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execs++
	if len(c.execErrs) > 0 {
		err := c.execErrs[0]
		c.execErrs = c.execErrs[1:]
		if err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (c *fakeConn) Ping(ctx context.Context) error { return c.pingErr }
func (c *fakeConn) Release()                       { c.released++ }

// fakePool hands out one shared conn, optionally failing the first
// acquires.
type fakePool struct {
	conn        *fakeConn
	acquireErrs []error
	acquires    int
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	p.acquires++
	if len(p.acquireErrs) > 0 {
		err := p.acquireErrs[0]
		p.acquireErrs = p.acquireErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return p.conn, nil
}

func (p *fakePool) Stat() PoolStat { return PoolStat{TotalConns: 1, IdleConns: 1} }
func (p *fakePool) Close()         {}

func newTestDB(pool Pool, queryRetries int) *DB {
	db := New(pool, Options{
		QueryRetries: queryRetries,
		RetryBase:    time.Millisecond,
	}, zerolog.Nop())
	// No real sleeping in tests.
	db.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return db
}

func transientErr() error {
	return &pgconn.PgError{Code: "57P01"} // admin_shutdown
}

func TestExec_TransientTwiceThenSuccess(t *testing.T) {
	conn := &fakeConn{execErrs: []error{transientErr(), transientErr(), nil}}
	pool := &fakePool{conn: conn}
	db := newTestDB(pool, 3)

	affected, err := db.Exec(context.Background(), "UPDATE questions SET x = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, 3, conn.execs)
	assert.Equal(t, 3, conn.released, "connection released on every attempt")

	// A recovered operation leaves the layer healthy.
	assert.True(t, db.Healthy())
	assert.Equal(t, int64(2), db.Status().Retries)
}

func TestExec_NonTransientFailsImmediately(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	conn := &fakeConn{execErrs: []error{unique}}
	pool := &fakePool{conn: conn}
	db := newTestDB(pool, 3)

	_, err := db.Exec(context.Background(), "INSERT INTO users ...")
	require.Error(t, err)
	assert.Equal(t, 1, conn.execs, "no retry on constraint violations")
	assert.Equal(t, int64(0), db.Status().Retries)
	assert.True(t, db.Healthy())
}

func TestExec_ExhaustedRetries(t *testing.T) {
	conn := &fakeConn{execErrs: []error{transientErr(), transientErr(), transientErr()}}
	pool := &fakePool{conn: conn}
	db := newTestDB(pool, 3)

	_, err := db.Exec(context.Background(), "UPDATE x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, conn.execs)
}

func TestConnect_ExponentialBackoff(t *testing.T) {
	conn := &fakeConn{}
	pool := &fakePool{
		conn:        conn,
		acquireErrs: []error{errors.New("pool exhausted"), errors.New("pool exhausted")},
	}
	db := New(pool, Options{
		ConnectRetries: 4,
		RetryBase:      10 * time.Millisecond,
	}, zerolog.Nop())

	var backoffs []time.Duration
	db.sleep = func(ctx context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)
		return nil
	}

	got, err := db.connect(context.Background())
	require.NoError(t, err)
	got.Release()

	assert.Equal(t, 3, pool.acquires)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, backoffs)
	assert.True(t, db.Healthy())
}

func TestConnect_ExhaustionMarksUnhealthy(t *testing.T) {
	pool := &fakePool{
		conn: &fakeConn{},
		acquireErrs: []error{
			errors.New("down"), errors.New("down"), errors.New("down"),
		},
	}
	db := New(pool, Options{ConnectRetries: 2, RetryBase: time.Millisecond}, zerolog.Nop())
	db.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := db.connect(context.Background())
	require.Error(t, err)
	assert.False(t, db.Healthy())

	// The next successful acquire flips it back.
	got, err := db.connect(context.Background())
	require.NoError(t, err)
	got.Release()
	assert.True(t, db.Healthy())
}

func TestConnect_DeadPingRetries(t *testing.T) {
	dead := &fakeConn{pingErr: errors.New("conn closed")}
	pool := &fakePool{conn: dead}
	db := New(pool, Options{ConnectRetries: 1, RetryBase: time.Millisecond}, zerolog.Nop())
	db.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := db.connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, pool.acquires, "ping failure counts as a failed attempt")
	assert.Equal(t, 2, dead.released, "dead connections are still released")
}

func TestQueryRow_NoRows(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{}}
	pool := &fakePool{conn: conn}
	db := newTestDB(pool, 1)

	var n int
	err := db.QueryRow(context.Background(), "SELECT id FROM x", nil, &n)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestQueryRow_ScansValues(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{values: [][]any{{42, "tee"}}}}
	pool := &fakePool{conn: conn}
	db := newTestDB(pool, 1)

	var n int
	var s string
	err := db.QueryRow(context.Background(), "SELECT id, name FROM x", nil, &n, &s)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, "tee", s)
}

func TestStatus_Snapshot(t *testing.T) {
	pool := &fakePool{conn: &fakeConn{}}
	db := newTestDB(pool, 1)

	status := db.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, int32(1), status.TotalConns)
	assert.Equal(t, int32(1), status.IdleConns)
	assert.Equal(t, int64(0), status.Retries)
}

func TestSingleConnSerializesQueries(t *testing.T) {
	// A max=1 pool serializes two concurrent operations: the second waits
	// for the release instead of deadlocking.
	conn := &fakeConn{}
	sem := make(chan struct{}, 1)
	pool := &blockingPool{conn: conn, sem: sem}
	db := newTestDB(pool, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := db.Exec(ctx, "SELECT 1")
			done <- err
		}()
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, 2, conn.execs)
}

// blockingPool admits one holder at a time, like a max_conns=1 pgxpool.
type blockingPool struct {
	conn *fakeConn
	sem  chan struct{}
}

func (p *blockingPool) Acquire(ctx context.Context) (Conn, error) {
	select {
	case p.sem <- struct{}{}:
		return &semConn{fakeConn: p.conn, sem: p.sem}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *blockingPool) Stat() PoolStat { return PoolStat{TotalConns: 1} }
func (p *blockingPool) Close()         {}

type semConn struct {
	*fakeConn
	sem chan struct{}
}

func (c *semConn) Release() {
	c.fakeConn.Release()
	<-c.sem
}
