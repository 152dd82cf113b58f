package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor emulates just enough of the ledger semantics: applied
// names accumulate in memory, and statements matching failOn error out.
type fakeExecutor struct {
	applied  []string
	executed []string
	failOn   string
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	f.executed = append(f.executed, sql)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return 0, errors.New("syntax error")
	}
	if strings.Contains(sql, "INSERT INTO applied_migrations") {
		f.applied = append(f.applied, args[0].(string))
	}
	return 0, nil
}

func (f *fakeExecutor) Query(ctx context.Context, scan func(pgx.Rows) error, sql string, args ...any) error {
	values := make([][]any, 0, len(f.applied))
	for _, name := range f.applied {
		values = append(values, []any{name})
	}
	return scan(&fakeRows{values: values})
}

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, sql := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
	}
	return dir
}

func newTestMigrator(db Executor, dir string) *Migrator {
	m := NewMigrator(db, dir, zerolog.Nop())
	m.delay = func(time.Duration) {}
	return m
}

func TestMigratorRun_AppliesInFilenameOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0002_second.sql": "CREATE TABLE two (id INT)",
		"0001_first.sql":  "CREATE TABLE one (id INT)",
		"notes.txt":       "ignored",
	})
	exec := &fakeExecutor{}
	m := newTestMigrator(exec, dir)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"0001_first.sql", "0002_second.sql"}, exec.applied)

	// The table statements ran in order.
	var tables []string
	for _, sql := range exec.executed {
		if strings.HasPrefix(sql, "CREATE TABLE o") || strings.HasPrefix(sql, "CREATE TABLE t") {
			tables = append(tables, sql)
		}
	}
	assert.Equal(t, []string{"CREATE TABLE one (id INT)", "CREATE TABLE two (id INT)"}, tables)
}

func TestMigratorRun_Idempotent(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0001_base.sql": "CREATE TABLE base (id INT)",
	})
	exec := &fakeExecutor{}
	m := newTestMigrator(exec, dir)

	require.NoError(t, m.Run(context.Background()))
	require.NoError(t, m.Run(context.Background()))

	applied := 0
	for _, sql := range exec.executed {
		if sql == "CREATE TABLE base (id INT)" {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "second run must skip the recorded migration")
	assert.Equal(t, []string{"0001_base.sql"}, exec.applied)
}

func TestMigratorRun_SkipsFailingMigration(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0001_bad.sql":  "CREATE BROKEN",
		"0002_good.sql": "CREATE TABLE good (id INT)",
	})
	exec := &fakeExecutor{failOn: "CREATE BROKEN"}
	m := newTestMigrator(exec, dir)

	require.NoError(t, m.Run(context.Background()), "a failing migration is not fatal")
	assert.Equal(t, []string{"0002_good.sql"}, exec.applied, "only the good one is recorded")

	// The failed file is retried on the next run since it never entered
	// the ledger.
	exec.failOn = ""
	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"0002_good.sql", "0001_bad.sql"}, exec.applied)
}

func TestMigratorApplied(t *testing.T) {
	exec := &fakeExecutor{applied: []string{"0002_b.sql", "0001_a.sql"}}
	m := newTestMigrator(exec, t.TempDir())

	names, err := m.Applied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, names)
}

func TestMigratorInitSchema(t *testing.T) {
	exec := &fakeExecutor{}
	m := newTestMigrator(exec, t.TempDir())

	delayed := false
	m.delay = func(d time.Duration) {
		delayed = true
		assert.Equal(t, destructiveInitDelay, d)
	}

	require.NoError(t, m.InitSchema(context.Background()))
	assert.True(t, delayed, "the cancellation window must elapse first")
	require.NotEmpty(t, exec.executed)
	assert.Contains(t, exec.executed[0], "DROP SCHEMA public CASCADE")
}
