package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Executor is the slice of DB the migrator needs.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, scan func(pgx.Rows) error, sql string, args ...any) error
}

// destructiveInitDelay is a last-chance cancellation window before the
// schema wipe. Nothing interrupts it programmatically; it exists so an
// operator who started the process with DB_INIT_SCHEMA=true by mistake can
// still hit Ctrl-C.
const destructiveInitDelay = 5 * time.Second

// Migrator applies .sql files from a directory at most once each, tracked
// in the applied_migrations ledger keyed by filename. A failing migration
// is logged and skipped; later files still run.
type Migrator struct {
	db  Executor
	dir string
	log zerolog.Logger

	// delay is overridable in tests.
	delay func(d time.Duration)
}

// NewMigrator creates a Migrator reading migration files from dir.
func NewMigrator(db Executor, dir string, log zerolog.Logger) *Migrator {
	return &Migrator{db: db, dir: dir, log: log, delay: time.Sleep}
}

// InitSchema drops and recreates the public schema. Destructive; callers
// must gate it behind an explicit opt-in flag. A fixed pause runs first as
// a human-reaction buffer.
func (m *Migrator) InitSchema(ctx context.Context) error {
	m.log.Warn().
		Dur("delay", destructiveInitDelay).
		Msg("DESTRUCTIVE schema init requested; dropping public schema after delay")
	m.delay(destructiveInitDelay)

	if _, err := m.db.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	m.log.Info().Msg("Schema reset complete")
	return nil
}

// Run applies all pending migrations in filename order.
func (m *Migrator) Run(ctx context.Context) error {
	if _, err := m.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS applied_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	); err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}

	files, err := m.migrationFiles()
	if err != nil {
		return err
	}

	for _, name := range files {
		if applied[name] {
			continue
		}

		sqlBytes, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			m.log.Error().Err(err).Str("migration", name).Msg("Migration unreadable, skipping")
			continue
		}

		if _, err := m.db.Exec(ctx, string(sqlBytes)); err != nil {
			// Intentionally non-fatal: a broken migration must not block
			// the ones after it. See DESIGN.md.
			m.log.Error().Err(err).Str("migration", name).Msg("Migration failed, skipping")
			continue
		}

		if _, err := m.db.Exec(ctx,
			`INSERT INTO applied_migrations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name,
		); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		m.log.Info().Str("migration", name).Msg("Migration applied")
	}

	return nil
}

// Applied returns the names recorded in the ledger, sorted.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	set, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)
	err := m.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			applied[name] = true
		}
		return nil
	}, `SELECT name FROM applied_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return applied, nil
}

func (m *Migrator) migrationFiles() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", m.dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}
