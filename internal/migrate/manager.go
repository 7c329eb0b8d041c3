// Package migrate applies the embedded SQL schema and development seeds with
// goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
)

const (
	defaultMigrationsTable = "schema_migrations"

	migrationsDir = "sql"
	seedsDir      = "seeds"
)

//go:embed sql/*.sql seeds/*.sql
var embedded embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Seams for tests.
var (
	gooseUp   = goose.UpContext
	gooseDown = goose.DownContext
)

// Manager executes SQL migrations and seed files.
type Manager struct {
	db              *sql.DB
	fsys            fs.FS
	migrationsTable string
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithFS replaces the embedded files. fsys must contain sql/ and seeds/.
func WithFS(fsys fs.FS) Option {
	return func(m *Manager) {
		if fsys != nil {
			m.fsys = fsys
		}
	}
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		fsys:            embedded,
		migrationsTable: defaultMigrationsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	return m.with(func() error {
		if err := gooseUp(ctx, m.db, migrationsDir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	return m.with(func() error {
		if err := gooseDown(ctx, m.db, migrationsDir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// Seed applies seed files. Seeds are unversioned and must be idempotent.
func (m *Manager) Seed(ctx context.Context) error {
	return m.with(func() error {
		if err := gooseUp(ctx, m.db, seedsDir, goose.WithNoVersioning()); err != nil {
			return fmt.Errorf("apply seeds: %w", err)
		}
		return nil
	})
}

// Status returns the applied migrations in order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	var applied []string
	err := m.with(func() error {
		current, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		all, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
		if err != nil {
			return fmt.Errorf("collect migrations: %w", err)
		}
		for _, mig := range all {
			if mig.Version <= current {
				applied = append(applied, path.Base(mig.Source))
			}
		}
		return nil
	})
	return applied, err
}

// Files lists the migration and seed file names, migrations first.
func (m *Manager) Files() ([]string, error) {
	var out []string
	for _, dir := range []string{migrationsDir, seedsDir} {
		names, err := fs.Glob(m.fsys, dir+"/*.sql")
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	if len(out) == 0 {
		return nil, errors.New("no migration files found")
	}
	return out, nil
}

func (m *Manager) with(fn func() error) error {
	if m.db == nil {
		return errors.New("database connection unavailable")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(m.fsys)
	goose.SetTableName(m.migrationsTable)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return fn()
}
